package ytclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hevcd/hevcd/internal/model"
)

func TestSubstringClassifier(t *testing.T) {
	tests := []struct {
		msg      string
		expected model.Category
	}{
		{"Sign in to confirm you're not a bot. This helps protect our community", model.CategoryBlocked},
		{"ERROR: Private video. Sign in if you've been granted access", model.CategoryBlocked},
		{"ERROR: Video unavailable", model.CategoryBlocked},
		{"ERROR: This video is age restricted", model.CategoryBlocked},
		{"HTTP Error 403: Forbidden", model.CategoryForbidden},
		{"HTTP Error 404: Not Found", model.CategoryNotFound},
		{"HTTP Error 429: Too Many Requests", model.CategoryRateLimited},
		{"unable to download webpage: rate limit reached", model.CategoryRateLimited},
		{"something exploded", model.CategoryOther},
	}

	c := SubstringClassifier{}
	for _, test := range tests {
		if got := c.Classify(errors.New(test.msg)); got != test.expected {
			t.Errorf("Classify(%q) = %s, expected %s", test.msg, got, test.expected)
		}
	}
}

func TestSubstringClassifierTimeout(t *testing.T) {
	c := SubstringClassifier{}
	err := fmt.Errorf("yt-dlp download failed: %w", context.DeadlineExceeded)
	if got := c.Classify(err); got != model.CategoryTimeout {
		t.Errorf("Classify(deadline) = %s, expected %s", got, model.CategoryTimeout)
	}
}

func TestSubstringClassifierNil(t *testing.T) {
	c := SubstringClassifier{}
	if got := c.Classify(nil); got != model.CategoryOther {
		t.Errorf("Classify(nil) = %s, expected %s", got, model.CategoryOther)
	}
}
