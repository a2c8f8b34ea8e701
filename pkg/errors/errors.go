// Package errors defines the sentinel error taxonomy shared by the ingestion
// pipeline and the website, and maps errors onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Ingestion run and per-file failures.
var (
	ErrDirectoryUnavailable = errors.New("article directory unavailable")
	ErrFileUnreadable       = errors.New("article file unreadable")
	ErrIncompleteMetadata   = errors.New("incomplete front matter")
	ErrTruncatedDocument    = errors.New("document has no body")
	ErrMalformedID          = errors.New("malformed article id")
	ErrMalformedDate        = errors.New("malformed publish date")
	ErrMalformedTags        = errors.New("malformed tag list")
	ErrSummarization        = errors.New("summarization failed")
	ErrStoreWrite           = errors.New("store write failed")
)

// Website failures.
var (
	ErrArticleNotFound    = errors.New("article not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// IsFileLocal reports whether err only concerns a single source file and
// must never abort an ingestion run.
func IsFileLocal(err error) bool {
	for _, sentinel := range []error{
		ErrFileUnreadable,
		ErrIncompleteMetadata,
		ErrTruncatedDocument,
		ErrMalformedID,
		ErrMalformedDate,
		ErrMalformedTags,
		ErrSummarization,
		ErrStoreWrite,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrArticleNotFound), errors.Is(err, ErrSubscriberNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDirectoryUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
