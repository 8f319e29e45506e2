// Package matching intersects predicted instance masks with the ground-truth
// instances of one scene. The result records every non-empty overlap on
// both sides as value copies, so the scorer can read one SceneMatch under
// many thresholds without cross-contamination.
package matching

import (
	"sort"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/instance"
	"github.com/banshee-data/scenebench/internal/labels"
	"github.com/banshee-data/scenebench/internal/monitoring"
)

var logf = monitoring.Tagged("matcher")

// PredictionMask is one predicted instance as read from a prediction list.
type PredictionMask struct {
	Source     string
	LabelID    int
	Confidence float64
	Mask       []bool
}

// Prediction describes a scored prediction without its match list.
type Prediction struct {
	ID               int     `json:"pred_id"`
	Source           string  `json:"filename"`
	LabelID          int     `json:"label_id"`
	Confidence       float64 `json:"confidence"`
	Count            int     `json:"vert_count"`
	VoidIntersection int     `json:"void_intersection"`
}

// InstanceMatch is a ground-truth instance seen from a prediction.
type InstanceMatch struct {
	instance.Instance
	Intersection int `json:"intersection"`
}

// PredictionMatch is a prediction seen from a ground-truth instance.
type PredictionMatch struct {
	Prediction
	Intersection int `json:"intersection"`
}

// ScoredInstance is a ground-truth instance with the predictions that
// overlap it.
type ScoredInstance struct {
	instance.Instance
	Matches []PredictionMatch `json:"matched_pred"`
}

// ScoredPrediction is a prediction with the ground-truth instances it
// overlaps.
type ScoredPrediction struct {
	Prediction
	Matches []InstanceMatch `json:"matched_gt"`
}

// SceneMatch holds the bidirectional matches of one scene. Scenes are keyed
// by the absolute path of their ground-truth file.
type SceneMatch struct {
	Key         string                        `json:"key"`
	GroundTruth map[string][]ScoredInstance   `json:"gt"`
	Predictions map[string][]ScoredPrediction `json:"pred"`
}

// Options tunes MatchScene.
type Options struct {
	// MinPredictionSize drops predictions covering fewer elements. Values
	// below 1 are treated as 1 so empty masks are always skipped.
	MinPredictionSize int
}

// IoU returns intersection over union for two regions of the given sizes.
func IoU(intersection, countA, countB int) float64 {
	union := countA + countB - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// MatchScene intersects every prediction with every ground-truth instance of
// the same class. gtIDs is the scene's encoded id array that gt was
// extracted from. Inputs are not modified.
//
// Predictions are processed by descending confidence, ties in input order,
// and numbered in that order.
func MatchScene(key string, gt instance.Scene, gtIDs []int64, preds []PredictionMask, reg *labels.Registry, opts Options) (*SceneMatch, error) {
	minSize := opts.MinPredictionSize
	if minSize < 1 {
		minSize = 1
	}

	for _, p := range preds {
		if len(p.Mask) != len(gtIDs) {
			return nil, faults.WithScene(faults.User(
				"wrong number of entries in %s (%d) vs #ground truth elements (%d)",
				p.Source, len(p.Mask), len(gtIDs)), key)
		}
	}

	// Group regions are ignored for every class, like unlabeled ids.
	void := make([]bool, len(gtIDs))
	for i, id := range gtIDs {
		void[i] = instance.IsGroup(id) || !reg.Valid(instance.LabelOf(id))
	}

	m := &SceneMatch{
		Key:         key,
		GroundTruth: make(map[string][]ScoredInstance, reg.Len()),
		Predictions: make(map[string][]ScoredPrediction, reg.Len()),
	}
	for _, label := range reg.Labels() {
		list := gt[label]
		scored := make([]ScoredInstance, len(list))
		for i, in := range list {
			scored[i] = ScoredInstance{Instance: in}
		}
		m.GroundTruth[label] = scored
		m.Predictions[label] = []ScoredPrediction{}
	}

	order := make([]int, len(preds))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return preds[order[a]].Confidence > preds[order[b]].Confidence
	})

	nextID := 0
	hits := make(map[int64]int)
	for _, idx := range order {
		p := preds[idx]
		label, ok := reg.Name(p.LabelID)
		if !ok {
			continue
		}

		clear(hits)
		count, voidHits := 0, 0
		for i, set := range p.Mask {
			if !set {
				continue
			}
			count++
			if void[i] {
				voidHits++
			}
			if gtIDs[i] != 0 {
				hits[gtIDs[i]]++
			}
		}
		if count < minSize {
			continue
		}

		pred := Prediction{
			ID:               nextID,
			Source:           p.Source,
			LabelID:          p.LabelID,
			Confidence:       p.Confidence,
			Count:            count,
			VoidIntersection: voidHits,
		}
		nextID++

		sp := ScoredPrediction{Prediction: pred}
		gtList := m.GroundTruth[label]
		for gi := range gtList {
			inter := hits[gtList[gi].InstanceID]
			if inter == 0 {
				continue
			}
			sp.Matches = append(sp.Matches, InstanceMatch{Instance: gtList[gi].Instance, Intersection: inter})
			gtList[gi].Matches = append(gtList[gi].Matches, PredictionMatch{Prediction: pred, Intersection: inter})
		}
		m.Predictions[label] = append(m.Predictions[label], sp)
	}

	monitoring.Debugf("[matcher] %s: %d ground truth instances, %d of %d predictions kept", key, gt.Count(), nextID, len(preds))
	return m, nil
}

// PredictionCount returns the number of kept predictions in the scene.
func (m *SceneMatch) PredictionCount() int {
	n := 0
	for _, list := range m.Predictions {
		n += len(list)
	}
	return n
}

// Validate checks that no recorded intersection exceeds either side's size.
func (m *SceneMatch) Validate() error {
	for label, list := range m.GroundTruth {
		for _, gt := range list {
			for _, pm := range gt.Matches {
				if pm.Intersection > gt.Count || pm.Intersection > pm.Count {
					logf("%s: intersection %d exceeds sizes (%d, %d) for %s", m.Key, pm.Intersection, gt.Count, pm.Count, label)
					return faults.WithScene(faults.Invariant(
						"intersection %d of %s with instance %d exceeds region sizes",
						pm.Intersection, pm.Source, gt.InstanceID), m.Key)
				}
			}
		}
	}
	return nil
}
