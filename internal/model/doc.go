// Package model defines the domain types and value objects shared by the
// catalog start pipeline.
//
// The records here are produced once per run and never mutated afterwards:
// the detected Framework, the resolved Paths, the allocated port and the
// serving URL derived from it. Every collaborator receives them by value or
// read-only pointer.
//
// The package also defines exit codes (ExitCode), a custom error type
// (CLIError) carrying an exit code, and the sentinel errors that classify
// startup failures.
package model
