// Package errors defines the error taxonomy shared by the indexing and
// retrieval engine and maps it onto HTTP status codes for the API layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks a malformed raw document or request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage marks an I/O or transaction failure against the index store.
	ErrStorage = errors.New("storage failure")
	// ErrStoreNotFound is returned when no index has been built yet.
	ErrStoreNotFound = errors.New("index store not found")
	// ErrStaleScores is returned when the statistics pass was aborted and
	// tf-idf scores no longer reflect the corpus.
	ErrStaleScores = errors.New("tf-idf scores are stale")
	// ErrEmptyIndex is returned when the statistics pass has no documents to score.
	ErrEmptyIndex        = errors.New("index is empty")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnavailable       = errors.New("search engine unavailable")
	ErrUnsupportedOption = errors.New("unsupported option")
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

// Input wraps a validation failure so that errors.Is(err, ErrInvalidInput) holds.
func Input(format string, args ...any) error {
	return New(ErrInvalidInput, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Storage wraps a driver error with the operation that failed.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedOption):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreNotFound), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
