package apeval

import (
	"math"

	"github.com/banshee-data/scenebench/internal/labels"
)

// ClassSummary is one class's row of the summary.
type ClassSummary struct {
	Label string  `json:"label"`
	ID    int     `json:"id"`
	AP    float64 `json:"ap"`
	AP50  float64 `json:"ap50"`
	AP25  float64 `json:"ap25"`
}

// Summary reduces a Table to the benchmark's headline numbers.
type Summary struct {
	MeanAP  float64        `json:"mean_ap"`
	AP50    float64        `json:"ap50"`
	AP25    float64        `json:"ap25"`
	Has25   bool           `json:"has_25"`
	Filter  RegionFilter   `json:"filter"`
	Classes []ClassSummary `json:"classes"`
}

// Summarize uses the filter row with the largest MaxDistance. Mean AP
// excludes the 0.25 threshold; every mean ignores NaN.
func Summarize(t *Table, reg *labels.Registry) Summary {
	fi := 0
	for i, f := range t.Filters {
		if f.MaxDistance > t.Filters[fi].MaxDistance {
			fi = i
		}
	}

	var all, at50, at25 []int
	for oi, o := range t.Overlaps {
		switch {
		case isClose(o, 0.25):
			at25 = append(at25, oi)
		default:
			all = append(all, oi)
			if isClose(o, 0.5) {
				at50 = append(at50, oi)
			}
		}
	}

	s := Summary{Has25: len(at25) > 0, Classes: make([]ClassSummary, len(t.Labels))}
	if len(t.Filters) > 0 {
		s.Filter = t.Filters[fi]
	}

	var cells [3][]float64
	for li, label := range t.Labels {
		var row []float64
		if fi < len(t.AP) {
			row = t.AP[fi][li]
		}
		cs := ClassSummary{
			Label: label,
			AP:    nanMean(pick(row, all)),
			AP50:  nanMean(pick(row, at50)),
			AP25:  nanMean(pick(row, at25)),
		}
		if reg != nil {
			cs.ID, _ = reg.ID(label)
		}
		s.Classes[li] = cs
		cells[0] = append(cells[0], pick(row, all)...)
		cells[1] = append(cells[1], pick(row, at50)...)
		cells[2] = append(cells[2], pick(row, at25)...)
	}
	s.MeanAP = nanMean(cells[0])
	s.AP50 = nanMean(cells[1])
	s.AP25 = nanMean(cells[2])
	return s
}

func pick(row []float64, idx []int) []float64 {
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

func nanMean(v []float64) float64 {
	var sum float64
	var n int
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
