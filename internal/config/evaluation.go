// Package config loads evaluation parameters from JSON files and fills
// omitted fields from the benchmark presets.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/scenebench/internal/apeval"
	"github.com/banshee-data/scenebench/internal/faults"
)

// Preset names a benchmark's default parameters.
type Preset string

const (
	Preset3DInstance Preset = "3d-instance"
	Preset2DInstance Preset = "2d-instance"
)

// ParsePreset accepts the preset names used on the command line.
func ParsePreset(s string) (Preset, error) {
	switch Preset(strings.ToLower(s)) {
	case Preset3DInstance, "3d":
		return Preset3DInstance, nil
	case Preset2DInstance, "2d":
		return Preset2DInstance, nil
	}
	return "", faults.Config("unknown preset %q (want %s or %s)", s, Preset3DInstance, Preset2DInstance)
}

// Limit is a float that also accepts "inf" and "-inf" in JSON.
type Limit float64

func (l Limit) MarshalJSON() ([]byte, error) {
	switch f := float64(l); {
	case math.IsInf(f, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-inf"`), nil
	default:
		return json.Marshal(f)
	}
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", s, err)
		}
		*l = Limit(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*l = Limit(f)
	return nil
}

// EvalConfig holds optional overrides. Nil or empty fields fall back to the
// preset through the Get* methods.
type EvalConfig struct {
	Overlaps            []float64 `json:"overlaps,omitempty"`
	MinRegionSizes      []int     `json:"min_region_sizes,omitempty"`
	DistanceThresholds  []Limit   `json:"distance_thresholds,omitempty"`
	DistanceConfidences []Limit   `json:"distance_confidences,omitempty"`
	MinPredictionSize   *int      `json:"min_prediction_size,omitempty"`
	Workers             *int      `json:"workers,omitempty"`
	IncludeOverlap25    *bool     `json:"include_overlap_25,omitempty"`
}

func ptrInt(v int) *int    { return &v }
func ptrBool(v bool) *bool { return &v }

// Defaults returns the fully populated configuration for a preset.
func Defaults(p Preset) *EvalConfig {
	inf, negInf := Limit(math.Inf(1)), Limit(math.Inf(-1))
	switch p {
	case Preset2DInstance:
		return &EvalConfig{
			Overlaps:            apeval.Overlaps(0.5, 0.05, 10),
			MinRegionSizes:      []int{100},
			DistanceThresholds:  []Limit{inf},
			DistanceConfidences: []Limit{negInf},
			MinPredictionSize:   ptrInt(1),
			Workers:             ptrInt(0),
			IncludeOverlap25:    ptrBool(false),
		}
	default:
		return &EvalConfig{
			Overlaps:            apeval.Overlaps(0.5, 0.05, 9),
			MinRegionSizes:      []int{100},
			DistanceThresholds:  []Limit{inf},
			DistanceConfidences: []Limit{negInf},
			MinPredictionSize:   ptrInt(100),
			Workers:             ptrInt(0),
			IncludeOverlap25:    ptrBool(true),
		}
	}
}

// Load reads an EvalConfig from a .json file of at most 1 MiB.
func Load(path string) (*EvalConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, faults.Config("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, faults.Config("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &EvalConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, faults.Config("failed to parse config JSON: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *EvalConfig) Validate() error {
	for _, o := range c.Overlaps {
		if math.IsNaN(o) || o < 0 || o > 1 {
			return faults.Config("overlaps must be between 0 and 1, got %v", o)
		}
	}
	for _, s := range c.MinRegionSizes {
		if s < 0 {
			return faults.Config("min_region_sizes must be non-negative, got %d", s)
		}
	}

	n := -1
	for _, arr := range []struct {
		name string
		len  int
	}{
		{"min_region_sizes", len(c.MinRegionSizes)},
		{"distance_thresholds", len(c.DistanceThresholds)},
		{"distance_confidences", len(c.DistanceConfidences)},
	} {
		if arr.len == 0 {
			continue
		}
		if n >= 0 && arr.len != n {
			return faults.Config("region filter arrays must have equal length: %s has %d, expected %d", arr.name, arr.len, n)
		}
		n = arr.len
	}

	if c.MinPredictionSize != nil && *c.MinPredictionSize < 0 {
		return faults.Config("min_prediction_size must be non-negative, got %d", *c.MinPredictionSize)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return faults.Config("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetOverlaps returns the thresholds, appending 0.25 when enabled.
func (c *EvalConfig) GetOverlaps(p Preset) []float64 {
	out := append([]float64(nil), c.Overlaps...)
	if len(out) == 0 {
		out = Defaults(p).Overlaps
	}
	if c.GetIncludeOverlap25(p) {
		for _, o := range out {
			if o == 0.25 {
				return out
			}
		}
		out = append(out, 0.25)
	}
	return out
}

// GetFilters zips the three filter arrays. Omitted arrays take the preset's
// single value and are repeated to the length of the others.
func (c *EvalConfig) GetFilters(p Preset) ([]apeval.RegionFilter, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d := Defaults(p)
	n := max(len(c.MinRegionSizes), len(c.DistanceThresholds), len(c.DistanceConfidences), 1)

	sizes := c.MinRegionSizes
	if len(sizes) == 0 {
		sizes = repeat(d.MinRegionSizes[0], n)
	}
	dists := c.DistanceThresholds
	if len(dists) == 0 {
		dists = repeat(d.DistanceThresholds[0], n)
	}
	confs := c.DistanceConfidences
	if len(confs) == 0 {
		confs = repeat(d.DistanceConfidences[0], n)
	}

	out := make([]apeval.RegionFilter, n)
	for i := range out {
		out[i] = apeval.RegionFilter{
			MinRegionSize: sizes[i],
			MaxDistance:   float64(dists[i]),
			MinDistConf:   float64(confs[i]),
		}
	}
	return out, nil
}

func repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Params builds the AP evaluation grid.
func (c *EvalConfig) Params(p Preset) (apeval.Params, error) {
	filters, err := c.GetFilters(p)
	if err != nil {
		return apeval.Params{}, err
	}
	params := apeval.Params{Overlaps: c.GetOverlaps(p), Filters: filters}
	return params, params.Validate()
}

func (c *EvalConfig) GetMinPredictionSize(p Preset) int {
	if c.MinPredictionSize != nil {
		return *c.MinPredictionSize
	}
	return *Defaults(p).MinPredictionSize
}

func (c *EvalConfig) GetWorkers() int {
	if c.Workers != nil {
		return *c.Workers
	}
	return 0
}

func (c *EvalConfig) GetIncludeOverlap25(p Preset) bool {
	if c.IncludeOverlap25 != nil {
		return *c.IncludeOverlap25
	}
	return *Defaults(p).IncludeOverlap25
}
