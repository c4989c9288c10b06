package htmltable

import "errors"

// Error definitions for the `cybergodev/htmltable` package.
var (
	// ErrTableNotFound is returned when no table matches the query.
	ErrTableNotFound = errors.New("htmltable: table not found")

	// ErrInputTooLarge is returned when input exceeds MaxInputSize.
	ErrInputTooLarge = errors.New("htmltable: input size exceeds maximum")

	// ErrProcessorClosed is returned when operations are attempted on a closed processor.
	ErrProcessorClosed = errors.New("htmltable: processor closed")

	// ErrMaxDepthExceeded is returned when HTML nesting exceeds MaxDepth.
	ErrMaxDepthExceeded = errors.New("htmltable: max depth exceeded")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("htmltable: invalid config")

	// ErrProcessingTimeout is returned when processing exceeds ProcessingTimeout.
	ErrProcessingTimeout = errors.New("htmltable: processing timeout exceeded")

	// ErrFileNotFound is returned when the specified file does not exist.
	ErrFileNotFound = errors.New("htmltable: file not found")

	// ErrInvalidFilePath is returned when file path validation fails.
	ErrInvalidFilePath = errors.New("htmltable: invalid file path")

	// ErrUnknownEncoding is returned when ForcedEncoding names no known charset.
	ErrUnknownEncoding = errors.New("htmltable: unknown encoding")
)
