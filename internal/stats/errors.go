package stats

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an update failure.
type ErrorKind int

const (
	// Transient5xx is an upstream server error; logged as a warning.
	Transient5xx ErrorKind = iota + 1
	// ClientOrOtherHTTP is any other HTTP error status.
	ClientOrOtherHTTP
	// Unexpected covers everything else, panics included.
	Unexpected
)

func (k ErrorKind) String() string {
	switch k {
	case Transient5xx:
		return "transient_5xx"
	case ClientOrOtherHTTP:
		return "client_http"
	case Unexpected:
		return "unexpected"
	default:
		return "none"
	}
}

// HTTPError is returned by sources when the upstream answered with an error
// status.
type HTTPError struct {
	Status int
	Body   string
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Status, e.URL)
}

// PanicError wraps a value recovered from a panicking update.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Classify maps an update error to its kind. nil classifies as 0.
func Classify(err error) ErrorKind {
	if err == nil {
		return 0
	}
	var he *HTTPError
	if errors.As(err, &he) {
		if he.Status >= 500 && he.Status <= 599 {
			return Transient5xx
		}
		return ClientOrOtherHTTP
	}
	return Unexpected
}

// HTTPDetails extracts the response status and body from err, if any.
func HTTPDetails(err error) (status int, body string) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status, he.Body
	}
	return 0, ""
}

func isCancel(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
