// Package routeerr defines the typed error hierarchy shared across routecore
// so that adapters can map failures to response codes by kind alone.
package routeerr

import "fmt"

// Kind enumerates the fault categories raised by the core pipeline. Names
// are descriptive only; adapters switch on Kind to choose a status code.
type Kind string

const (
	BadBoundingBox        Kind = "bad_bounding_box"
	EmptyGraph            Kind = "empty_graph"
	MissingNode           Kind = "missing_node"
	PbfRead               Kind = "pbf_read"
	IOFailure             Kind = "io"
	NoRoute               Kind = "no_route"
	InvalidTargetDistance Kind = "invalid_target_distance"
	NoLoopFound           Kind = "no_loop_found"
	ElevationFailure      Kind = "elevation_failure"
)

// Error wraps an underlying cause with a Kind so callers can test the kind
// with Is below or use errors.As against *Error to recover it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var re *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			re = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return re != nil && re.Kind == kind
}
