package detector

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInput is returned when there are no files to scan.
	ErrNoInput = errors.New("no input files")

	// ErrInvalidThreshold is wrapped by ThresholdError.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrBinary marks a file that contains NUL bytes.
	ErrBinary = errors.New("binary content")

	// ErrEncoding marks a file that is not valid UTF-8.
	ErrEncoding = errors.New("invalid UTF-8 encoding")

	// ErrTooLarge marks a file above the configured size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// ThresholdError reports a non-positive detection threshold.
type ThresholdError struct {
	Name  string
	Value int
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s must be positive, got %d", e.Name, e.Value)
}

func (e *ThresholdError) Unwrap() error {
	return ErrInvalidThreshold
}

// FileError is a per-file read or decode failure. The file is skipped and the
// run continues.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
