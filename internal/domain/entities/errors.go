package entities

import "errors"

// Per-file error taxonomy. Callers wrap these with context and test with errors.Is.
var (
	// ErrUnsupportedFormat is returned when a file is not ELF, PE or an archive
	ErrUnsupportedFormat = errors.New("binary file format is not recognized")
	// ErrMalformedBinary is returned when the format is recognized but the structure is invalid
	ErrMalformedBinary = errors.New("binary file is malformed")
	// ErrIOFailure is returned when a file cannot be opened, read or mapped
	ErrIOFailure = errors.New("failed to read binary file")
	// ErrLibcNotFound is returned when no C runtime library can be resolved
	ErrLibcNotFound = errors.New("dependent C runtime library was not found")
	// ErrLibcDisabled is returned when libc checks were turned off for the run
	ErrLibcDisabled = errors.New("C runtime library checks are disabled")
)
