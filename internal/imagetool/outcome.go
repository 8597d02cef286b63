package imagetool

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is the result class of one external image operation.
type Outcome int

const (
	Converted Outcome = iota
	Failed
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Converted:
		return "converted"
	case Failed:
		return "failed"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result reports what happened to one image. Path is the file produced (or
// modified); Err carries the cause for Failed and Timeout.
type Result struct {
	Outcome Outcome
	Path    string
	Err     error
}

// OK reports whether the operation produced Path.
func (r Result) OK() bool { return r.Outcome == Converted }

func fromContext(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Outcome: Timeout, Err: err}
	}
	return Result{Outcome: Failed, Err: err}
}
