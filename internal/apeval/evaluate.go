package apeval

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/scenebench/internal/matching"
	"github.com/banshee-data/scenebench/internal/monitoring"
)

var logf = monitoring.Tagged("apeval")

// Table holds AP indexed as AP[filter][class][overlap].
type Table struct {
	Labels   []string
	Overlaps []float64
	Filters  []RegionFilter
	AP       [][][]float64
}

// At returns the AP of one cell.
func (t *Table) At(filter int, label string, overlap float64) float64 {
	oi := -1
	for i, o := range t.Overlaps {
		if isClose(o, overlap) {
			oi = i
			break
		}
	}
	for li, l := range t.Labels {
		if l == label && oi >= 0 && filter >= 0 && filter < len(t.AP) {
			return t.AP[filter][li][oi]
		}
	}
	return math.NaN()
}

// Evaluate fills the AP table for every (filter, overlap, class) cell.
// Cells are computed on up to workers goroutines; workers <= 0 uses
// GOMAXPROCS.
func Evaluate(ctx context.Context, scenes []*matching.SceneMatch, labels []string, p Params, workers int) (*Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	t := &Table{
		Labels:   append([]string(nil), labels...),
		Overlaps: append([]float64(nil), p.Overlaps...),
		Filters:  append([]RegionFilter(nil), p.Filters...),
		AP:       make([][][]float64, len(p.Filters)),
	}
	for fi := range t.AP {
		t.AP[fi] = make([][]float64, len(labels))
		for li := range t.AP[fi] {
			t.AP[fi][li] = make([]float64, len(p.Overlaps))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for fi, f := range t.Filters {
		for oi, overlap := range t.Overlaps {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				for li, label := range t.Labels {
					ap, _ := ClassAP(ScoreClass(scenes, label, f, overlap))
					t.AP[fi][li][oi] = ap
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logf("evaluated %d scenes: %d filters x %d overlaps x %d classes",
		len(scenes), len(t.Filters), len(t.Overlaps), len(t.Labels))
	return t, nil
}

// ClassCurve returns the AP and curve of a single class, used for plotting.
func ClassCurve(scenes []*matching.SceneMatch, label string, f RegionFilter, overlap float64) (float64, Curve) {
	return ClassAP(ScoreClass(scenes, label, f, overlap))
}
