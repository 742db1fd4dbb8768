package engine

import "fmt"

// IOError reports that the source image could not be read.
type IOError struct {
	Path string // empty when the image came from a reader
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read image: %v", e.Err)
	}
	return fmt.Sprintf("read image %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RemoteError reports a failed exchange with the engine: a transport
// failure, a non-success status, or an unusable response body.
type RemoteError struct {
	StatusCode int    // 0 when no response arrived
	Message    string // engine-provided reason, if any
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("engine: status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("engine: status %d", e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("engine: %s", e.Message)
	default:
		return fmt.Sprintf("engine: %v", e.Err)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }
