package ytclient

import (
	"context"
)

// Availability markers reported by the extraction capability for videos that
// need an authenticated session.
var authWalledAvailability = map[string]bool{
	"needs_auth":      true,
	"premium_only":    true,
	"subscriber_only": true,
}

// AgeRestrictionLimit is the age_limit value at which a video is treated as
// age-gated.
const AgeRestrictionLimit = 18

// Metadata is the extraction result the pipeline cares about.
type Metadata struct {
	Title        string  `json:"title"`
	Thumbnail    string  `json:"thumbnail"`
	Duration     float64 `json:"duration"`
	AgeLimit     int     `json:"age_limit"`
	Availability string  `json:"availability"`
}

// AgeRestricted reports whether the video carries an age gate.
func (m *Metadata) AgeRestricted() bool {
	return m.AgeLimit >= AgeRestrictionLimit
}

// LoginWalled reports whether the video needs an authenticated session.
// Heuristic: derived from provider-side markers that may change.
func (m *Metadata) LoginWalled() bool {
	return authWalledAvailability[m.Availability]
}

// NeedsCredentials reports whether the video is unlikely to download without
// credentials.
func (m *Metadata) NeedsCredentials() bool {
	return m.AgeRestricted() || m.LoginWalled()
}

// Runner is the opaque metadata/media fetch capability. Errors carry the
// underlying tool's message so the classifier can categorize them.
type Runner interface {
	// Extract fetches video metadata without downloading media.
	Extract(ctx context.Context, url string, opts RequestOptions) (*Metadata, error)

	// Download fetches media to the options' output template.
	Download(ctx context.Context, url string, opts RequestOptions) error
}
