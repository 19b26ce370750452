package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalid              = errors.New("invalid")
	ErrConflict             = errors.New("conflict")
	ErrInternal             = errors.New("internal")
	ErrCacheTierUnavailable = errors.New("cache tier unavailable")
	ErrMalformedCandidate   = errors.New("malformed candidate")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// SearchErrorKind classifies fatal retrieval failures surfaced to the caller.
type SearchErrorKind string

const (
	KindEmbeddingUnavailable   SearchErrorKind = "embedding_unavailable"
	KindVectorStoreUnavailable SearchErrorKind = "vector_store_unavailable"
	KindSearchTimeout          SearchErrorKind = "search_timeout"
)

// SearchError is the typed error returned for fatal retrieval failures.
// Non-fatal conditions (tier skip, dropped candidate) never produce one.
type SearchError struct {
	Kind  SearchErrorKind
	cause error
}

func NewSearchError(kind SearchErrorKind, cause error) *SearchError {
	return &SearchError{Kind: kind, cause: cause}
}

func (e *SearchError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("search error: %s", e.Kind)
	}
	return fmt.Sprintf("search error: %s: %v", e.Kind, e.cause)
}

func (e *SearchError) Unwrap() error {
	return e.cause
}

func IsSearchTimeout(err error) bool {
	var se *SearchError
	return errors.As(err, &se) && se.Kind == KindSearchTimeout
}
