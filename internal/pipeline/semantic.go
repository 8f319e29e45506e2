package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/scenebench/internal/confusion"
	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/labels"
)

// SemanticEvaluator scores per-vertex or per-pixel label submissions.
type SemanticEvaluator struct {
	FS       fsutil.FileSystem
	Registry *labels.Registry
	Workers  int
}

// SemanticReport is the outcome of a semantic labeling run.
type SemanticReport struct {
	Scenes   int
	Scored   int64
	Failures Failures
	Matrix   *confusion.Matrix
	IoUs     []confusion.ClassScore
	MeanIoU  float64
}

type sceneMatrix struct {
	m      *confusion.Matrix
	scored int64
}

// Run accumulates one matrix per scene on the pool and merges them in input
// order, checking the running total after every merge.
func (e *SemanticEvaluator) Run(ctx context.Context, pairs []ioformat.Pair) (*SemanticReport, error) {
	if e.FS == nil {
		e.FS = fsutil.OSFileSystem{}
	}
	results := make([]sceneResult[sceneMatrix], len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(e.Workers))
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sm, err := e.scene(pair)
			if err != nil {
				return record(&results[i], pair, err)
			}
			results[i] = sceneResult[sceneMatrix]{value: sm, ok: true}
			logf("scored %s (%d/%d)", pair.Name, i+1, len(pairs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scenes, failures := collect(pairs, results)
	total := confusion.New(e.Registry)
	var expected int64
	for _, sm := range scenes {
		if err := total.Merge(sm.m); err != nil {
			return nil, err
		}
		expected += sm.scored
		if err := total.CheckTotal(expected); err != nil {
			return nil, err
		}
	}
	ious := total.IoUs()
	return &SemanticReport{
		Scenes:   len(scenes),
		Scored:   expected,
		Failures: failures,
		Matrix:   total,
		IoUs:     ious,
		MeanIoU:  confusion.Mean(ious),
	}, nil
}

func (e *SemanticEvaluator) scene(pair ioformat.Pair) (sceneMatrix, error) {
	pred, gt, err := e.read(pair)
	if err != nil {
		return sceneMatrix{}, err
	}
	m := confusion.New(e.Registry)
	scored, err := m.Accumulate(pred, gt)
	if err != nil {
		return sceneMatrix{}, err
	}
	if err := m.CheckTotal(scored); err != nil {
		return sceneMatrix{}, err
	}
	return sceneMatrix{m: m, scored: scored}, nil
}

func (e *SemanticEvaluator) read(pair ioformat.Pair) (pred, gt []int64, err error) {
	if !strings.EqualFold(filepath.Ext(pair.GT), ".png") {
		if pred, err = ioformat.ReadIDs(e.FS, pair.Pred); err != nil {
			return nil, nil, err
		}
		gt, err = ioformat.ReadIDs(e.FS, pair.GT)
		return pred, gt, err
	}

	rawPred, err := ioformat.ReadLabelImage(e.FS, pair.Pred, false)
	if err != nil {
		return nil, nil, err
	}
	rawGT, err := ioformat.ReadLabelImage(e.FS, pair.GT, false)
	if err != nil {
		return nil, nil, err
	}
	evalSize := rawPred.Width == ioformat.EvalWidth && rawPred.Height == ioformat.EvalHeight
	if !evalSize && (rawPred.Width != rawGT.Width || rawPred.Height != rawGT.Height) {
		return nil, nil, faults.User("invalid image size for %s: %dx%d", pair.Pred, rawPred.Width, rawPred.Height)
	}
	p, err := ioformat.ReadLabelImage(e.FS, pair.Pred, true)
	if err != nil {
		return nil, nil, err
	}
	g, err := ioformat.ReadLabelImage(e.FS, pair.GT, true)
	if err != nil {
		return nil, nil, err
	}
	return p.Pix, g.Pix, nil
}
