package entities

import (
	"errors"
	"fmt"
	"time"
)

// Stage names a step of the release pipeline
type Stage string

// Pipeline stages in execution order
const (
	StageLoad     Stage = "load"
	StageValidate Stage = "validate"
	StageCompile  Stage = "compile"
	StagePatch    Stage = "patch"
	StagePackage  Stage = "package"
	StageSign     Stage = "sign"
	StagePublish  Stage = "publish"
)

// FailureKind tells a caller whether repeating a stage can help
type FailureKind int

// Failure kinds
const (
	FailureFatal FailureKind = iota
	FailureRetryable
)

func (k FailureKind) String() string {
	if k == FailureRetryable {
		return "retryable"
	}
	return "fatal"
}

var (
	// ErrMissingSecret is returned when a required environment secret is unset or empty
	ErrMissingSecret = errors.New("missing secret")

	// ErrValidation is returned when a strict validation policy rejects a descriptor
	ErrValidation = errors.New("descriptor validation failed")
)

// StageError is a classified failure of one pipeline stage
type StageError struct {
	Stage      Stage
	Kind       FailureKind
	RetryAfter time.Duration // hint from the remote side, zero if none
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a non-retryable failure of stage
func Fatal(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: FailureFatal, Err: err}
}

// Retryable wraps err as a failure that may succeed on another attempt
func Retryable(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: FailureRetryable, Err: err}
}

// IsRetryable reports whether err carries a retryable stage failure
func IsRetryable(err error) bool {
	var se *StageError
	return errors.As(err, &se) && se.Kind == FailureRetryable
}

// MissingSecret builds an ErrMissingSecret naming the environment variable
func MissingSecret(variable string) error {
	return fmt.Errorf("%w: %s is not set", ErrMissingSecret, variable)
}
