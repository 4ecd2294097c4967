package model

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying startup failures. Collaborators wrap them
// with %w so callers can tell the kinds apart with errors.Is.
var (
	// ErrSourceDirNotFound means the Catalog source directory is missing.
	ErrSourceDirNotFound = errors.New("catalog source directory not found")

	// ErrEntryNotFound means the Catalog entry module is missing.
	ErrEntryNotFound = errors.New("catalog entry file not found")

	// ErrPortExhausted means no free port was found within the allocator's
	// search window.
	ErrPortExhausted = errors.New("no free port found")

	// ErrBindConflict means the allocated port was taken between
	// allocation and bind.
	ErrBindConflict = errors.New("port was taken after allocation")

	// ErrInvalidBundlerConfig means the bundler configuration could not be
	// assembled from the resolved paths.
	ErrInvalidBundlerConfig = errors.New("invalid bundler configuration")

	// ErrSetupFailed means the generated Catalog files could not be written.
	ErrSetupFailed = errors.New("catalog setup failed")
)

// ExitCode is the process exit status of the CLI.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError is used for every failure, including invalid flags
	// and options: the command has a single failure report.
	ExitGeneralError ExitCode = 1
)

// CLIError is an error carrying the exit code the process should
// terminate with.
type CLIError struct {
	// Code is the process exit status.
	Code ExitCode

	// Message is the human-readable message.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the message, followed by the underlying error if present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError wrapping err.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
