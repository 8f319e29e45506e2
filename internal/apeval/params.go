package apeval

import (
	"math"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/instance"
)

// RegionFilter decides which ground-truth instances count as scoreable.
type RegionFilter struct {
	MinRegionSize int     `json:"min_region_size"`
	MaxDistance   float64 `json:"max_distance"`
	MinDistConf   float64 `json:"min_dist_conf"`
}

// DefaultRegionFilter accepts every instance of at least minSize elements.
func DefaultRegionFilter(minSize int) RegionFilter {
	return RegionFilter{
		MinRegionSize: minSize,
		MaxDistance:   math.Inf(1),
		MinDistConf:   math.Inf(-1),
	}
}

// Qualifies reports whether in is countable ground truth under f.
func (f RegionFilter) Qualifies(in instance.Instance) bool {
	return !in.IsGroup() && !f.Excludes(in)
}

// Excludes reports whether in fails the size or distance criteria. Excluded
// instances still absorb the pixels of predictions that overlap them.
func (f RegionFilter) Excludes(in instance.Instance) bool {
	return in.Count < f.MinRegionSize || in.MedDist > f.MaxDistance || in.DistConf < f.MinDistConf
}

// Params are the evaluation grid. They are passed by value into every call.
type Params struct {
	Overlaps []float64     `json:"overlaps"`
	Filters  []RegionFilter `json:"filters"`
}

// Validate rejects an empty or out-of-range grid.
func (p Params) Validate() error {
	if len(p.Overlaps) == 0 {
		return faults.Config("at least one overlap threshold is required")
	}
	for _, o := range p.Overlaps {
		if math.IsNaN(o) || o < 0 || o > 1 {
			return faults.Config("overlap threshold %v outside [0, 1]", o)
		}
	}
	if len(p.Filters) == 0 {
		return faults.Config("at least one region filter is required")
	}
	for i, f := range p.Filters {
		if f.MinRegionSize < 0 {
			return faults.Config("filter %d: negative min region size %d", i, f.MinRegionSize)
		}
		if math.IsNaN(f.MaxDistance) || math.IsNaN(f.MinDistConf) {
			return faults.Config("filter %d: NaN distance criteria", i)
		}
	}
	return nil
}

// Overlaps returns count thresholds starting at from, spaced by step. Values
// are computed by multiplication so 0.05 steps do not drift.
func Overlaps(from, step float64, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Round((from+step*float64(i))*1e9) / 1e9
	}
	return out
}

// isClose mirrors numpy.isclose defaults.
func isClose(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}
