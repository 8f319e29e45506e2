package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/labels"
	"github.com/banshee-data/scenebench/internal/pipeline"
	"github.com/banshee-data/scenebench/internal/report"
)

func runSceneType(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("scene-type", stderr)
	predFile := fs.String("pred", "", "prediction file of 'scan_name type_id' lines (required)")
	gtFile := fs.String("gt", "", "ground-truth file of 'scan_name type_id' lines (required)")
	output := fs.String("output", "", "confusion dump (default scene_type_evaluation.txt next to -pred)")
	var common evalFlags
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	common.apply()
	if err := requireFlag("pred", *predFile); err != nil {
		return err
	}
	if err := requireFlag("gt", *gtFile); err != nil {
		return err
	}
	if *output == "" {
		*output = filepath.Join(filepath.Dir(*predFile), "scene_type_evaluation.txt")
	}

	fsys := fsutil.OSFileSystem{}
	pred, err := ioformat.ReadSceneTypes(fsys, *predFile)
	if err != nil {
		return err
	}
	gt, err := ioformat.ReadSceneTypes(fsys, *gtFile)
	if err != nil {
		return err
	}
	rep, err := pipeline.EvaluateSceneTypes(labels.ScanNetSceneTypes(), pred, gt)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "evaluated %d scans\n", rep.Scans)
	fmt.Fprintf(stdout, "%-32s %8s %8s\n", "classes", "IoU", "recall")
	for i, s := range rep.IoUs {
		fmt.Fprintf(stdout, "%-32s %8.3f %8.3f\n", s.Label, s.Value, rep.Recalls[i].Value)
	}
	fmt.Fprintf(stdout, "%-32s %8.3f\n", "mean IoU", rep.MeanIoU)

	if err := writeFile(*output, func(w io.Writer) error {
		return report.WriteSceneTypeConfusion(w, rep.Matrix)
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote results to %s\n", *output)

	if common.html != "" {
		if err := writeFile(common.html, func(w io.Writer) error {
			return report.WritePage(w, "scenebench scene types",
				report.ScoreChart("Scene type IoU", "IoU", rep.IoUs),
				report.ScoreChart("Scene type recall", "recall", rep.Recalls),
			)
		}); err != nil {
			return err
		}
	}

	database, err := common.openDB()
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
		runID, err := persistSceneTypes(ctx, database, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recorded run %s\n", runID)
	}
	return nil
}
