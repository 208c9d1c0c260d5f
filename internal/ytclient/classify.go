package ytclient

import (
	"context"
	"errors"
	"strings"

	"github.com/hevcd/hevcd/internal/model"
)

// Classifier maps an underlying capability error to a failure category. The
// matching rules are behind an interface so the retry loop can be tested in
// isolation from them.
type Classifier interface {
	Classify(err error) model.Category
}

// Phrase tables for the substring classifier. These track provider-side
// wording and are best-effort, not a guarantee.
var (
	blockedPhrases = []string{
		"sign in to confirm",
		"not a bot",
		"bot",
		"login required",
		"private video",
		"video unavailable",
		"age-restricted",
		"age restricted",
		"confirm your age",
		"blocked",
	}
	forbiddenPhrases   = []string{"403", "forbidden"}
	notFoundPhrases    = []string{"404", "not found"}
	rateLimitedPhrases = []string{"429", "too many requests", "rate limit"}
)

// SubstringClassifier classifies capability errors by matching known phrases
// in the error text.
type SubstringClassifier struct{}

func (SubstringClassifier) Classify(err error) model.Category {
	if err == nil {
		return model.CategoryOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case matchesAny(msg, blockedPhrases):
		return model.CategoryBlocked
	case matchesAny(msg, forbiddenPhrases):
		return model.CategoryForbidden
	case matchesAny(msg, notFoundPhrases):
		return model.CategoryNotFound
	case matchesAny(msg, rateLimitedPhrases):
		return model.CategoryRateLimited
	default:
		return model.CategoryOther
	}
}

func matchesAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
