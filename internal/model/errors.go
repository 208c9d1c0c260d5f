package model

import (
	"errors"
	"fmt"
)

// Category classifies a task failure so callers can decide whether a retry
// with better credentials (or simply waiting) is worthwhile.
type Category string

const (
	// CategoryBlocked covers bot checks, sign-in walls, private and
	// age-restricted videos.
	CategoryBlocked Category = "blocked"

	// CategoryForbidden covers HTTP 403 responses.
	CategoryForbidden Category = "forbidden"

	// CategoryNotFound covers HTTP 404 / deleted videos.
	CategoryNotFound Category = "not_found"

	// CategoryRateLimited covers HTTP 429 responses.
	CategoryRateLimited Category = "rate_limited"

	// CategoryEmptyFile means the download produced no usable bytes.
	CategoryEmptyFile Category = "empty_file"

	// CategoryInvalidFile means the downloaded file does not probe as video.
	CategoryInvalidFile Category = "invalid_file"

	// CategoryConversionFailed means all transcode tiers failed.
	CategoryConversionFailed Category = "conversion_failed"

	// CategoryTimeout means a bounded subprocess ran out of time.
	CategoryTimeout Category = "timeout"

	// CategoryOther is everything that could not be classified.
	CategoryOther Category = "other"
)

// Retryable reports whether the extraction/fetch layers should retry locally
// with escalating backoff.
func (c Category) Retryable() bool {
	return c == CategoryBlocked || c == CategoryRateLimited
}

// ClassifiedError wraps a cause with its failure category. It supports
// errors.As so the category survives fmt.Errorf %w wrapping.
type ClassifiedError struct {
	Category Category
	Err      error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewClassified wraps err with the given category.
func NewClassified(category Category, err error) error {
	return &ClassifiedError{Category: category, Err: err}
}

// Classifiedf builds a classified error from a format string.
func Classifiedf(category Category, format string, args ...any) error {
	return &ClassifiedError{Category: category, Err: fmt.Errorf(format, args...)}
}

// CategoryOf extracts the category from an error chain, defaulting to
// CategoryOther for plain errors.
func CategoryOf(err error) Category {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryOther
}
