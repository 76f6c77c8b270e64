package warehouse

import (
	"errors"
	"fmt"
)

// Failure kinds. A *BuildError unwraps to one of these and to its cause.
var (
	// ErrSourceUnavailable means the production namespace could not be read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDimensionKeyMiss means a fact row referenced a natural key that is
	// missing from the current dimension snapshot and the policy is "fail".
	ErrDimensionKeyMiss = errors.New("dimension key miss")

	// ErrAggregateFailed means one rollup could not be computed.
	ErrAggregateFailed = errors.New("aggregate failed")

	// ErrReplaceFailed means the truncate and insert of a table was rolled back.
	ErrReplaceFailed = errors.New("truncate and insert failed")
)

// Stage identifies the builder family that produced a result.
type Stage string

// Builder stages, in execution order.
const (
	StageDimension Stage = "dimension"
	StageFact      Stage = "fact"
	StageAggregate Stage = "aggregate"
)

// BuildError attributes a failure to a table and stage.
type BuildError struct {
	Table string
	Stage Stage
	Kind  error
	Err   error
}

func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Table, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Stage, e.Table, e.Kind, e.Err)
}

// Unwrap exposes both the failure kind and the underlying cause.
func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Fatal reports whether the failure must abort the remaining builders.
// Aggregate failures are isolated to their own table.
func (e *BuildError) Fatal() bool {
	return e.Stage != StageAggregate
}

func newBuildError(table string, stage Stage, kind, err error) *BuildError {
	return &BuildError{Table: table, Stage: stage, Kind: kind, Err: err}
}
