package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/scenebench/internal/apeval"
	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/gtcache"
	"github.com/banshee-data/scenebench/internal/instance"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/labels"
	"github.com/banshee-data/scenebench/internal/matching"
)

// InstanceEvaluator scores instance segmentation submissions.
type InstanceEvaluator struct {
	FS       fsutil.FileSystem
	Registry *labels.Registry
	Params   apeval.Params
	Match    matching.Options
	Workers  int
	// Loader memoises ground-truth extraction. Nil computes every time.
	Loader *gtcache.Loader
	// PredRoot bounds the mask paths of prediction lists.
	PredRoot string
}

// InstanceReport is the outcome of an instance run.
type InstanceReport struct {
	Scenes   int
	Failures Failures
	Matches  []*matching.SceneMatch
	Table    *apeval.Table
	Summary  apeval.Summary
}

// Run evaluates every pair. Scenes that fail are reported and skipped;
// invariant faults abort the run.
func (e *InstanceEvaluator) Run(ctx context.Context, pairs []ioformat.Pair) (*InstanceReport, error) {
	if e.FS == nil {
		e.FS = fsutil.OSFileSystem{}
	}
	if e.Loader == nil {
		e.Loader = gtcache.NewLoader(nil)
	}
	if err := e.Params.Validate(); err != nil {
		return nil, err
	}

	results := make([]sceneResult[*matching.SceneMatch], len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(e.Workers))
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := e.scene(gctx, pair)
			if err != nil {
				return record(&results[i], pair, err)
			}
			results[i] = sceneResult[*matching.SceneMatch]{value: m, ok: true}
			logf("matched %s (%d/%d)", pair.Name, i+1, len(pairs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches, failures := collect(pairs, results)
	table, err := apeval.Evaluate(ctx, matches, e.Registry.Labels(), e.Params, e.Workers)
	if err != nil {
		return nil, err
	}
	return &InstanceReport{
		Scenes:   len(matches),
		Failures: failures,
		Matches:  matches,
		Table:    table,
		Summary:  apeval.Summarize(table, e.Registry),
	}, nil
}

func (e *InstanceEvaluator) scene(ctx context.Context, pair ioformat.Pair) (*matching.SceneMatch, error) {
	gtIDs, err := e.readGT(pair.GT)
	if err != nil {
		return nil, err
	}
	gt, err := e.Loader.LoadOrCompute(ctx, pair.Key, func(context.Context) (instance.Scene, error) {
		return instance.Extract(gtIDs, e.Registry), nil
	})
	if err != nil {
		return nil, err
	}
	preds, err := ioformat.LoadPredictions(e.FS, pair.Pred, e.PredRoot)
	if err != nil {
		return nil, err
	}
	m, err := matching.MatchScene(pair.Key, gt, gtIDs, preds, e.Registry, e.Match)
	if err != nil {
		return nil, err
	}
	return m, m.Validate()
}

func (e *InstanceEvaluator) readGT(path string) ([]int64, error) {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		img, err := ioformat.ReadLabelImage(e.FS, path, false)
		if err != nil {
			return nil, err
		}
		return img.Pix, nil
	}
	return ioformat.ReadIDs(e.FS, path)
}
