package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// Process exit codes
const (
	exitSuccess        = 0
	exitFatal          = 1
	exitUsage          = 2 // bad invocation or missing secret
	exitRetryExhausted = 3
)

type usageErr struct {
	err error
}

func (e *usageErr) Error() string { return e.err.Error() }
func (e *usageErr) Unwrap() error { return e.err }

func usageError(err error) error {
	return &usageErr{err: err}
}

// usageArgs marks positional argument errors as usage errors
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func exitCode(err error) int {
	var usage *usageErr
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &usage), errors.Is(err, entities.ErrMissingSecret):
		return exitUsage
	case entities.IsRetryable(err):
		return exitRetryExhausted
	default:
		return exitFatal
	}
}
