package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/scenebench/internal/config"
	"github.com/banshee-data/scenebench/internal/confusion"
	"github.com/banshee-data/scenebench/internal/db"
	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/pipeline"
)

type runParams struct {
	Preset config.Preset      `json:"preset"`
	Config *config.EvalConfig `json:"config"`
}

func persistInstance(ctx context.Context, database *db.DB, preset config.Preset, cfg *config.EvalConfig, rep *pipeline.InstanceReport) (string, error) {
	params, err := json.Marshal(runParams{Preset: preset, Config: cfg})
	if err != nil {
		return "", fmt.Errorf("encode run params: %w", err)
	}
	s := rep.Summary
	run := &db.Run{
		Task:         "instance",
		Benchmark:    string(preset),
		ParamsJSON:   params,
		MeanAP:       s.MeanAP,
		AP50:         s.AP50,
		AP25:         math.NaN(),
		MeanIoU:      math.NaN(),
		SceneCount:   rep.Scenes,
		FailureCount: len(rep.Failures),
	}
	if s.Has25 {
		run.AP25 = s.AP25
	}
	classes := make([]db.ClassResult, len(s.Classes))
	for i, c := range s.Classes {
		classes[i] = db.NaNClassResult(c.Label, c.ID)
		classes[i].AP, classes[i].AP50 = c.AP, c.AP50
		if s.Has25 {
			classes[i].AP25 = c.AP25
		}
	}
	return insertRun(ctx, database, run, classes, rep.Failures)
}

func persistSemantic(ctx context.Context, database *db.DB, benchmark string, rep *pipeline.SemanticReport) (string, error) {
	run := scoreRun("semantic", benchmark, rep.MeanIoU, rep.Scenes, len(rep.Failures))
	return insertRun(ctx, database, run, scoreClasses(rep.IoUs), rep.Failures)
}

func persistSceneTypes(ctx context.Context, database *db.DB, rep *pipeline.SceneTypeReport) (string, error) {
	run := scoreRun("scene-type", "scene-type", rep.MeanIoU, rep.Scans, 0)
	return insertRun(ctx, database, run, scoreClasses(rep.IoUs), nil)
}

func scoreRun(task, benchmark string, meanIoU float64, scenes, failures int) *db.Run {
	nan := math.NaN()
	return &db.Run{
		Task: task, Benchmark: benchmark,
		MeanAP: nan, AP50: nan, AP25: nan, MeanIoU: meanIoU,
		SceneCount: scenes, FailureCount: failures,
	}
}

func scoreClasses(scores []confusion.ClassScore) []db.ClassResult {
	out := make([]db.ClassResult, len(scores))
	for i, s := range scores {
		out[i] = db.NaNClassResult(s.Label, s.ID)
		out[i].IoU, out[i].TP, out[i].Denominator = s.Value, s.TP, s.Denom
	}
	return out
}

func insertRun(ctx context.Context, database *db.DB, run *db.Run, classes []db.ClassResult, failures pipeline.Failures) (string, error) {
	records := make([]db.FailureRecord, len(failures))
	for i, f := range failures {
		records[i] = db.FailureRecord{Scene: f.Scene, Kind: faults.KindOf(f.Err).String(), Message: f.Message()}
	}
	if err := db.NewRunStore(database).Insert(ctx, run, classes, records); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.RunID, nil
}
