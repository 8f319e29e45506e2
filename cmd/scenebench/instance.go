package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/scenebench/internal/apeval"
	"github.com/banshee-data/scenebench/internal/config"
	"github.com/banshee-data/scenebench/internal/db"
	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/gtcache"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/labels"
	"github.com/banshee-data/scenebench/internal/matching"
	"github.com/banshee-data/scenebench/internal/pipeline"
	"github.com/banshee-data/scenebench/internal/report"
)

func runInstance(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("instance", stderr)
	predDir := fs.String("pred", "", "directory of per-scene prediction lists (required)")
	gtDir := fs.String("gt", "", "directory of ground-truth id files or label images (required)")
	benchmark := fs.String("benchmark", "3d", "parameter preset: 3d or 2d")
	configPath := fs.String("config", "", "JSON file overriding preset parameters")
	output := fs.String("output", "", "summary CSV (default <pred>/semantic_instance_evaluation.txt)")
	cachePath := fs.String("cache", "", "ground-truth instance cache file; with -db the database caches instead")
	curves := fs.String("curves", "", "write per-class precision/recall curves at IoU 0.5 to this PNG")
	var common evalFlags
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	common.apply()
	if err := requireFlag("pred", *predDir); err != nil {
		return err
	}
	if err := requireFlag("gt", *gtDir); err != nil {
		return err
	}

	preset, err := config.ParsePreset(*benchmark)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	params, err := cfg.Params(preset)
	if err != nil {
		return err
	}
	workers := common.workers
	if workers == 0 {
		workers = cfg.GetWorkers()
	}
	if *output == "" {
		*output = filepath.Join(*predDir, "semantic_instance_evaluation.txt")
	}

	gtExt := ""
	if preset == config.Preset2DInstance {
		gtExt = ".png"
	}
	fsys := fsutil.OSFileSystem{}
	pairs, err := ioformat.PairFilesAs(fsys, *predDir, *gtDir, ".txt", gtExt, []string{filepath.Base(*output)})
	if err != nil {
		return err
	}

	database, err := common.openDB()
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	reg := labels.ScanNetInstance()
	ev := &pipeline.InstanceEvaluator{
		FS:       fsys,
		Registry: reg,
		Params:   params,
		Match:    matching.Options{MinPredictionSize: cfg.GetMinPredictionSize(preset)},
		Workers:  workers,
		Loader:   gtcache.NewLoader(instanceCache(*cachePath, database)),
		PredRoot: *predDir,
	}
	fmt.Fprintf(stdout, "evaluating %d scans...\n", len(pairs))
	rep, err := ev.Run(ctx, pairs)
	if err != nil {
		return err
	}

	printFailures(stderr, rep.Failures)
	if err := report.WriteInstanceTable(stdout, rep.Summary); err != nil {
		return err
	}
	if err := writeFile(*output, func(w io.Writer) error {
		return report.WriteInstanceCSV(w, rep.Summary)
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote results to %s\n", *output)

	if *curves != "" {
		if err := savePRCurves(*curves, reg, rep); err != nil {
			return err
		}
	}
	if common.html != "" {
		if err := writeFile(common.html, func(w io.Writer) error {
			return report.WritePage(w, "scenebench instance", report.InstanceChart("Average precision", rep.Summary))
		}); err != nil {
			return err
		}
	}
	if database != nil {
		runID, err := persistInstance(ctx, database, preset, cfg, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recorded run %s\n", runID)
	}
	return rep.Failures.Err()
}

// instanceCache picks the cache backend. A nil result disables caching.
func instanceCache(path string, database *db.DB) gtcache.Cache {
	switch {
	case path != "":
		return gtcache.NewFile(nil, path)
	case database != nil:
		return db.NewGTCache(database)
	}
	return nil
}

func savePRCurves(path string, reg *labels.Registry, rep *pipeline.InstanceReport) error {
	var series []report.CurveSeries
	for _, label := range reg.Labels() {
		ap, curve := apeval.ClassCurve(rep.Matches, label, rep.Summary.Filter, 0.5)
		series = append(series, report.CurveSeries{Label: label, AP: ap, Curve: curve})
	}
	return report.SavePRCurves(path, "Precision/recall at IoU 0.5", series)
}
