package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is wrapped by DecodeError when the bytes match no known container.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// FetchError reports that the byte source for a clip was unreachable or
// answered with a non-success status.
type FetchError struct {
	Path       string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports bytes that could not be decoded as audio.
type DecodeError struct {
	Path   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == FormatUnknown {
		return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("decode %s as %s: %v", e.Path, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// OutputError reports that the rendering context could not be opened.
type OutputError struct {
	Backend BackendType
	Err     error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("open %s output: %v", e.Backend, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }
