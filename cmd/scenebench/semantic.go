package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/labels"
	"github.com/banshee-data/scenebench/internal/pipeline"
	"github.com/banshee-data/scenebench/internal/report"
)

func runSemantic(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("semantic", stderr)
	predDir := fs.String("pred", "", "directory of per-scene label files (required)")
	gtDir := fs.String("gt", "", "directory of ground-truth label files (required)")
	benchmark := fs.String("benchmark", "3d", "3d scores .txt vertex labels, 2d scores .png label images")
	output := fs.String("output", "", "confusion dump (default <pred>/semantic_label_evaluation.txt)")
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

	var ext string
	switch *benchmark {
	case "3d":
		ext = ".txt"
	case "2d":
		ext = ".png"
	default:
		return faults.Config("unknown semantic benchmark %q (want 3d or 2d)", *benchmark)
	}
	if *output == "" {
		*output = filepath.Join(*predDir, "semantic_label_evaluation.txt")
	}

	fsys := fsutil.OSFileSystem{}
	pairs, err := ioformat.PairFiles(fsys, *predDir, *gtDir, ext, []string{filepath.Base(*output)})
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

	ev := &pipeline.SemanticEvaluator{FS: fsys, Registry: labels.ScanNetSemantic(), Workers: common.workers}
	fmt.Fprintf(stdout, "evaluating %d scans...\n", len(pairs))
	rep, err := ev.Run(ctx, pairs)
	if err != nil {
		return err
	}

	printFailures(stderr, rep.Failures)
	fmt.Fprintln(stdout, "classes          IoU")
	fmt.Fprintln(stdout, "----------------------------")
	for _, s := range rep.IoUs {
		fmt.Fprintf(stdout, "%-15s: %.3f (%d/%d)\n", s.Label, s.Value, s.TP, s.Denom)
	}
	fmt.Fprintf(stdout, "mean IoU       : %.3f\n", rep.MeanIoU)

	if err := writeFile(*output, func(w io.Writer) error {
		return report.WriteConfusion(w, rep.Matrix)
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote results to %s\n", *output)

	if common.html != "" {
		if err := writeFile(common.html, func(w io.Writer) error {
			return report.WritePage(w, "scenebench semantic", report.ScoreChart("Class IoU", "IoU", rep.IoUs))
		}); err != nil {
			return err
		}
	}
	if database != nil {
		runID, err := persistSemantic(ctx, database, "semantic-"+*benchmark, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recorded run %s\n", runID)
	}
	return rep.Failures.Err()
}
