package apeval

import (
	"math"
	"sort"

	"github.com/banshee-data/scenebench/internal/matching"
)

// Contribution is one scene's share of a class's scored examples. YTrue is
// 1 for true positives and 0 for false positives; YScore holds the
// confidences.
type Contribution struct {
	YTrue              []float64
	YScore             []float64
	HardFalseNegatives int
	HasGT              bool
	HasPred            bool
}

// Merge appends o to c. Merging is associative and the resulting AP does not
// depend on the order of the merged scenes.
func (c *Contribution) Merge(o Contribution) {
	c.YTrue = append(c.YTrue, o.YTrue...)
	c.YScore = append(c.YScore, o.YScore...)
	c.HardFalseNegatives += o.HardFalseNegatives
	c.HasGT = c.HasGT || o.HasGT
	c.HasPred = c.HasPred || o.HasPred
}

// ScoreScene scores one class of one scene for a filter and threshold. A
// prediction assigned to one ground-truth instance is not assigned again
// within the scene.
func ScoreScene(m *matching.SceneMatch, label string, f RegionFilter, overlap float64) Contribution {
	preds := m.Predictions[label]
	var gts []matching.ScoredInstance
	for _, gt := range m.GroundTruth[label] {
		if f.Qualifies(gt.Instance) {
			gts = append(gts, gt)
		}
	}

	c := Contribution{HasGT: len(gts) > 0, HasPred: len(preds) > 0}
	visited := make(map[int]bool)

	for _, gt := range gts {
		matched := false
		score := math.Inf(-1)

		candidates := append([]matching.PredictionMatch(nil), gt.Matches...)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Confidence > candidates[j].Confidence
		})
		for _, pm := range candidates {
			if visited[pm.ID] {
				continue
			}
			if matching.IoU(pm.Intersection, gt.Count, pm.Count) <= overlap {
				continue
			}
			if matched {
				// The lower-scored duplicate is a false positive.
				c.YTrue = append(c.YTrue, 0)
				c.YScore = append(c.YScore, math.Min(score, pm.Confidence))
				score = math.Max(score, pm.Confidence)
				continue
			}
			matched = true
			score = pm.Confidence
			visited[pm.ID] = true
		}
		if matched {
			c.YTrue = append(c.YTrue, 1)
			c.YScore = append(c.YScore, score)
		} else {
			c.HardFalseNegatives++
		}
	}

	for _, p := range preds {
		found := false
		for _, gm := range p.Matches {
			if matching.IoU(gm.Intersection, gm.Count, p.Count) > overlap {
				found = true
				break
			}
		}
		if found {
			continue
		}
		// Group pixels are already part of the void intersection.
		ignored := p.VoidIntersection
		for _, gm := range p.Matches {
			if !gm.IsGroup() && f.Excludes(gm.Instance) {
				ignored += gm.Intersection
			}
		}
		if float64(ignored)/float64(p.Count) <= overlap {
			c.YTrue = append(c.YTrue, 0)
			c.YScore = append(c.YScore, p.Confidence)
		}
	}
	return c
}

// ScoreClass merges the contributions of every scene for one class.
func ScoreClass(scenes []*matching.SceneMatch, label string, f RegionFilter, overlap float64) Contribution {
	var total Contribution
	for _, m := range scenes {
		total.Merge(ScoreScene(m, label, f, overlap))
	}
	return total
}
