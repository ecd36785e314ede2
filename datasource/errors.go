package datasource

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps failures to reach the remote service at all.
	ErrTransport = errors.New("remote service unreachable")
	// ErrMalformed marks a 2xx response whose body could not be decoded.
	ErrMalformed = errors.New("malformed response")
	// ErrNotFound matches 404 responses and empty (null) bodies.
	ErrNotFound = errors.New("not found")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Path string
	// Message is the upstream {"error": "..."} text when one was sent.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Path, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Category buckets an error for the HTTP boundary.
type Category int

const (
	CategoryNone Category = iota
	CategoryNotFound
	CategoryTransport
	CategoryUpstream
	CategoryMalformed
)

// Classify maps an error returned by this package onto a Category.
func Classify(err error) Category {
	var se *StatusError
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrTransport):
		return CategoryTransport
	case errors.Is(err, ErrMalformed):
		return CategoryMalformed
	case errors.As(err, &se):
		return CategoryUpstream
	}
	return CategoryTransport
}
