// Package pipeline runs a whole benchmark over a bounded worker pool and
// reduces the per-scene results in input order.
package pipeline

import (
	"errors"
	"runtime"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/ioformat"
	"github.com/banshee-data/scenebench/internal/monitoring"
)

var logf = monitoring.Tagged("pipeline")

// SceneFailure records a scene that was skipped.
type SceneFailure struct {
	Scene string `json:"scene"`
	Err   error  `json:"-"`
}

// Message is the failure text.
func (f SceneFailure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Failures is a partial failure report.
type Failures []SceneFailure

// Err joins the failures, or nil when there are none. The result is a
// UserFault only when every failure is one.
func (fs Failures) Err() error {
	if len(fs) == 0 {
		return nil
	}
	errs := make([]error, len(fs))
	allUser := true
	for i, f := range fs {
		errs[i] = f.Err
		allUser = allUser && faults.Is(f.Err, faults.UserFault)
	}
	kind := faults.Unclassified
	if allUser {
		kind = faults.UserFault
	}
	return &faults.Error{Kind: kind, Err: errors.Join(errs...)}
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// sceneResult is one slot of an index-ordered fan out.
type sceneResult[T any] struct {
	value T
	ok    bool
	err   error
}

// collect splits index-ordered results into values and failures.
func collect[T any](pairs []ioformat.Pair, results []sceneResult[T]) ([]T, Failures) {
	var values []T
	var failures Failures
	for i, r := range results {
		switch {
		case r.err != nil:
			failures = append(failures, SceneFailure{Scene: pairs[i].Key, Err: r.err})
		case r.ok:
			values = append(values, r.value)
		}
	}
	return values, failures
}

// record stores a scene error. Fatal faults are returned so the pool stops.
func record[T any](slot *sceneResult[T], pair ioformat.Pair, err error) error {
	err = faults.WithScene(err, pair.Key)
	if faults.Fatal(err) {
		return err
	}
	logf("skipping %s: %v", pair.Name, err)
	slot.err = err
	return nil
}
