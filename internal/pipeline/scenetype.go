package pipeline

import (
	"sort"

	"github.com/banshee-data/scenebench/internal/confusion"
	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/labels"
)

// SceneTypeReport is the outcome of scene type classification scoring.
type SceneTypeReport struct {
	Scans   int
	Matrix  *confusion.Matrix
	IoUs    []confusion.ClassScore
	Recalls []confusion.ClassScore
	MeanIoU float64
}

// EvaluateSceneTypes scores one predicted type per scan. Both maps must
// cover the same number of scans and every scored ground-truth scan needs a
// prediction.
func EvaluateSceneTypes(reg *labels.Registry, pred, gt map[string]int) (*SceneTypeReport, error) {
	if len(pred) != len(gt) {
		return nil, faults.User("number of predicted scans (%d) does not match number of ground truth scans (%d)", len(pred), len(gt))
	}
	scans := make([]string, 0, len(gt))
	for s := range gt {
		scans = append(scans, s)
	}
	sort.Strings(scans)

	m := confusion.New(reg)
	var scored int64
	for _, scan := range scans {
		gtType := gt[scan]
		if !reg.Valid(gtType) {
			continue
		}
		p, ok := pred[scan]
		if !ok {
			return nil, faults.User("prediction file does not contain gt scan %s", scan)
		}
		m.AddPair(int64(gtType), int64(p))
		scored++
	}
	if err := m.CheckTotal(scored); err != nil {
		return nil, err
	}
	logf("evaluated %d scans", scored)

	ious := m.IoUs()
	return &SceneTypeReport{
		Scans:   int(scored),
		Matrix:  m,
		IoUs:    ious,
		Recalls: m.Recalls(),
		MeanIoU: confusion.Mean(ious),
	}, nil
}
