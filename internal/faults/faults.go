// Package faults classifies evaluation errors so callers can decide whether
// a failure aborts one scene, the whole run, or startup.
package faults

import (
	"errors"
	"fmt"
)

// Kind is the class of an evaluation failure.
type Kind int

const (
	// Unclassified errors abort the scene they occurred in and are reported.
	Unclassified Kind = iota
	// UserFault is bad input supplied by the submitter: malformed prediction
	// lists, paths escaping the prediction root, vertex count mismatches.
	UserFault
	// InternalInvariantFault signals a logic bug, for example a confusion
	// matrix whose total diverges from the number of scored positions.
	InternalInvariantFault
	// ConfigurationFault is an inconsistent evaluation configuration and is
	// fatal at startup.
	ConfigurationFault
)

func (k Kind) String() string {
	switch k {
	case UserFault:
		return "user fault"
	case InternalInvariantFault:
		return "internal invariant violation"
	case ConfigurationFault:
		return "configuration fault"
	default:
		return "error"
	}
}

// Exit statuses used by the CLI.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUserFault = 2
)

// Error carries a Kind and the scene it was raised for, if any.
type Error struct {
	Kind  Kind
	Scene string
	Err   error
}

func (e *Error) Error() string {
	if e.Scene != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Scene, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// User returns a UserFault with a formatted message.
func User(format string, args ...any) error {
	return &Error{Kind: UserFault, Err: fmt.Errorf(format, args...)}
}

// Invariant returns an InternalInvariantFault with a formatted message.
func Invariant(format string, args ...any) error {
	return &Error{Kind: InternalInvariantFault, Err: fmt.Errorf(format, args...)}
}

// Config returns a ConfigurationFault with a formatted message.
func Config(format string, args ...any) error {
	return &Error{Kind: ConfigurationFault, Err: fmt.Errorf(format, args...)}
}

// WithScene attaches a scene identifier to err. Classified errors keep
// their kind; a scene already set is not overwritten.
func WithScene(err error, scene string) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Scene != "" {
			return err
		}
		return &Error{Kind: fe.Kind, Scene: scene, Err: fe.Err}
	}
	return &Error{Kind: Unclassified, Scene: scene, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unclassified
}

// Is reports whether err is classified as kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Fatal reports whether err must abort the whole run rather than a single
// scene.
func Fatal(err error) bool {
	k := KindOf(err)
	return k == InternalInvariantFault || k == ConfigurationFault
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Is(err, UserFault):
		return ExitUserFault
	default:
		return ExitFailure
	}
}
