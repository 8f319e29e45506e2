package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/scenebench/internal/faults"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaults3D(t *testing.T) {
	cfg := &EvalConfig{}

	overlaps := cfg.GetOverlaps(Preset3DInstance)
	if len(overlaps) != 10 {
		t.Fatalf("expected 10 overlaps, got %v", overlaps)
	}
	if overlaps[0] != 0.5 || overlaps[8] != 0.9 || overlaps[9] != 0.25 {
		t.Errorf("unexpected overlaps %v", overlaps)
	}
	if got := cfg.GetMinPredictionSize(Preset3DInstance); got != 100 {
		t.Errorf("GetMinPredictionSize() = %d, want 100", got)
	}

	filters, err := cfg.GetFilters(Preset3DInstance)
	if err != nil {
		t.Fatalf("GetFilters failed: %v", err)
	}
	if len(filters) != 1 || filters[0].MinRegionSize != 100 ||
		!math.IsInf(filters[0].MaxDistance, 1) || !math.IsInf(filters[0].MinDistConf, -1) {
		t.Errorf("unexpected filters %+v", filters)
	}
}

func TestDefaults2D(t *testing.T) {
	cfg := &EvalConfig{}
	overlaps := cfg.GetOverlaps(Preset2DInstance)
	if len(overlaps) != 10 || overlaps[9] != 0.95 {
		t.Errorf("unexpected overlaps %v", overlaps)
	}
	if cfg.GetIncludeOverlap25(Preset2DInstance) {
		t.Error("2D preset should not include 0.25")
	}
	if got := cfg.GetMinPredictionSize(Preset2DInstance); got != 1 {
		t.Errorf("GetMinPredictionSize() = %d, want 1", got)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "eval.json", `{
  "overlaps": [0.5, 0.75],
  "min_region_sizes": [100, 100],
  "distance_thresholds": ["inf", 2.5],
  "distance_confidences": ["-inf", 0.5],
  "min_prediction_size": 10,
  "workers": 4,
  "include_overlap_25": true
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	params, err := cfg.Params(Preset3DInstance)
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	if want := []float64{0.5, 0.75, 0.25}; len(params.Overlaps) != 3 || params.Overlaps[2] != want[2] {
		t.Errorf("overlaps = %v, want %v", params.Overlaps, want)
	}
	if len(params.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(params.Filters))
	}
	if !math.IsInf(params.Filters[0].MaxDistance, 1) || params.Filters[1].MaxDistance != 2.5 {
		t.Errorf("unexpected distances %+v", params.Filters)
	}
	if params.Filters[1].MinDistConf != 0.5 {
		t.Errorf("MinDistConf = %v, want 0.5", params.Filters[1].MinDistConf)
	}
	if cfg.GetWorkers() != 4 || cfg.GetMinPredictionSize(Preset3DInstance) != 10 {
		t.Errorf("unexpected scalars workers=%d min=%d", cfg.GetWorkers(), cfg.GetMinPredictionSize(Preset3DInstance))
	}
}

func TestLoad_PartialConfigBroadcastsDefaults(t *testing.T) {
	path := writeConfig(t, "eval.json", `{"distance_thresholds": [1, 2, "inf"]}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	filters, err := cfg.GetFilters(Preset2DInstance)
	if err != nil {
		t.Fatalf("GetFilters failed: %v", err)
	}
	if len(filters) != 3 {
		t.Fatalf("expected 3 filters, got %d", len(filters))
	}
	for _, f := range filters {
		if f.MinRegionSize != 100 || !math.IsInf(f.MinDistConf, -1) {
			t.Errorf("default not applied: %+v", f)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
	}{
		{"length mismatch", "a.json", `{"min_region_sizes": [100, 200], "distance_thresholds": ["inf"]}`},
		{"overlap out of range", "b.json", `{"overlaps": [1.5]}`},
		{"negative workers", "c.json", `{"workers": -1}`},
		{"bad json", "d.json", `{"overlaps": `},
		{"bad limit", "e.json", `{"distance_thresholds": ["far"]}`},
		{"wrong extension", "f.yaml", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.file, tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !faults.Is(err, faults.ConfigurationFault) {
				t.Errorf("expected ConfigurationFault, got %v", err)
			}
		})
	}
}

func TestLoad_TooLarge(t *testing.T) {
	body := `{"overlaps": [` + strings.Repeat("0.5,", 300000) + `0.5]}`
	_, err := Load(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestLimit_JSON(t *testing.T) {
	data, err := json.Marshal([]Limit{Limit(math.Inf(1)), Limit(math.Inf(-1)), 3})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `["inf","-inf",3]` {
		t.Errorf("got %s", data)
	}
	var back []Limit
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !math.IsInf(float64(back[0]), 1) || !math.IsInf(float64(back[1]), -1) || back[2] != 3 {
		t.Errorf("round trip gave %v", back)
	}
}

func TestParsePreset(t *testing.T) {
	for in, want := range map[string]Preset{"3d": Preset3DInstance, "2D-instance": Preset2DInstance} {
		got, err := ParsePreset(in)
		if err != nil || got != want {
			t.Errorf("ParsePreset(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePreset("4d"); !faults.Is(err, faults.ConfigurationFault) {
		t.Errorf("expected ConfigurationFault, got %v", err)
	}
}
