// Package stage tags pipeline failures with the step that produced them and the
// record being processed at the time.
package stage

import (
	"errors"
	"fmt"
)

// Stage names a pipeline step.
type Stage string

const (
	Extract Stage = "extract"
	Parse   Stage = "parse"
	Enrich  Stage = "enrich"
	Persist Stage = "persist"
)

// Error is a fatal pipeline failure.
type Error struct {
	Stage  Stage
	Record any
	Err    error
}

// Wrap returns err tagged with st and record. A nil err stays nil.
func Wrap(st Stage, record any, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: st, Record: record, Err: err}
}

func (e *Error) Error() string {
	if e.Record == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Record, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Of returns the stage of the first *Error in err's chain.
func Of(err error) (Stage, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
