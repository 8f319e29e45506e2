// Package instance decodes label+instance encoded id arrays into discrete
// ground-truth instances.
//
// Ids follow the ScanNet/Cityscapes convention: label*1000 + sequence for
// single objects. Ids below 1000 carry a bare class id and mark group or
// ignore regions; they are extracted like any other instance but are never
// scored as countable ground truth.
package instance

import (
	"sort"

	"github.com/banshee-data/scenebench/internal/labels"
)

// Offset separates the label and sequence parts of an encoded id.
const Offset = 1000

// Encode packs a label id and a sequence number into one identifier.
func Encode(label, seq int) int64 {
	return int64(label)*Offset + int64(seq)
}

// Split is the exact inverse of Encode.
func Split(id int64) (label, seq int) {
	return int(id / Offset), int(id % Offset)
}

// LabelOf returns the class id an identifier belongs to. Group regions
// (ids below Offset) carry their class id directly.
func LabelOf(id int64) int {
	if id < Offset {
		return int(id)
	}
	return int(id / Offset)
}

// IsGroup reports whether id marks a group/ignore region rather than a
// single object.
func IsGroup(id int64) bool {
	return id < Offset
}

// Instance is one ground-truth region of a scene.
type Instance struct {
	InstanceID int64   `json:"instance_id"`
	LabelID    int     `json:"label_id"`
	Count      int     `json:"vert_count"`
	MedDist    float64 `json:"med_dist"`
	DistConf   float64 `json:"dist_conf"`
}

// IsGroup reports whether the instance is a group/ignore region.
func (in Instance) IsGroup() bool {
	return IsGroup(in.InstanceID)
}

// Default distance statistics for datasets that carry no depth data.
const (
	DefaultMedDist  = -1.0
	DefaultDistConf = 0.0
)

// Scene maps class names to the instances of that class in one scene.
// Every registry label is present; lists may be empty.
type Scene map[string][]Instance

// Clone returns a deep copy of s.
func (s Scene) Clone() Scene {
	out := make(Scene, len(s))
	for label, list := range s {
		out[label] = append(make([]Instance, 0, len(list)), list...)
	}
	return out
}

// Count returns the total number of instances across all classes.
func (s Scene) Count() int {
	n := 0
	for _, list := range s {
		n += len(list)
	}
	return n
}

// Extract counts every distinct non-zero id in ids and returns the
// instances whose class is in reg, grouped by class name. Ids of classes
// outside the registry are dropped. Lists are sorted by instance id.
func Extract(ids []int64, reg *labels.Registry) Scene {
	counts := make(map[int64]int)
	for _, id := range ids {
		if id == 0 {
			continue
		}
		counts[id]++
	}

	scene := make(Scene, reg.Len())
	for _, label := range reg.Labels() {
		scene[label] = []Instance{}
	}
	for id, n := range counts {
		labelID := LabelOf(id)
		name, ok := reg.Name(labelID)
		if !ok {
			continue
		}
		scene[name] = append(scene[name], Instance{
			InstanceID: id,
			LabelID:    labelID,
			Count:      n,
			MedDist:    DefaultMedDist,
			DistConf:   DefaultDistConf,
		})
	}
	for _, list := range scene {
		sort.Slice(list, func(i, j int) bool { return list[i].InstanceID < list[j].InstanceID })
	}
	return scene
}

// Filter keeps only the classes present in reg. Cached scenes may have been
// produced under a wider registry.
func Filter(s Scene, reg *labels.Registry) Scene {
	out := make(Scene, reg.Len())
	for _, label := range reg.Labels() {
		out[label] = append([]Instance{}, s[label]...)
	}
	return out
}
