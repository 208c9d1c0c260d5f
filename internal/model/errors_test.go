package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoryRetryable(t *testing.T) {
	retryable := []Category{CategoryBlocked, CategoryRateLimited}
	for _, c := range retryable {
		if !c.Retryable() {
			t.Errorf("expected %s to be retryable", c)
		}
	}

	final := []Category{
		CategoryForbidden, CategoryNotFound, CategoryEmptyFile,
		CategoryInvalidFile, CategoryConversionFailed, CategoryTimeout,
		CategoryOther,
	}
	for _, c := range final {
		if c.Retryable() {
			t.Errorf("expected %s to not be retryable", c)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	err := NewClassified(CategoryBlocked, errors.New("sign in to confirm"))
	if got := CategoryOf(err); got != CategoryBlocked {
		t.Errorf("CategoryOf = %s, expected %s", got, CategoryBlocked)
	}

	// Category must survive wrapping.
	wrapped := fmt.Errorf("extract failed: %w", err)
	if got := CategoryOf(wrapped); got != CategoryBlocked {
		t.Errorf("CategoryOf(wrapped) = %s, expected %s", got, CategoryBlocked)
	}

	if got := CategoryOf(errors.New("plain")); got != CategoryOther {
		t.Errorf("CategoryOf(plain) = %s, expected %s", got, CategoryOther)
	}
}

func TestTaskClone(t *testing.T) {
	task := Task{
		ID:        "abc123",
		Phase:     PhaseDownloading,
		VideoInfo: &VideoInfo{Title: "original"},
	}

	clone := task.Clone()
	clone.VideoInfo.Title = "mutated"

	if task.VideoInfo.Title != "original" {
		t.Error("Clone shares VideoInfo with the original task")
	}
}
