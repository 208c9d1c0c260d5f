package ytclient

// Package ytclient implements the core download pipeline built on top of the
// yt-dlp CLI, consumed as an opaque subprocess behind the Runner interface.
// It covers metadata extraction and media fetch with anti-blocking request
// shaping (rotating client identity, jittered delays, escalating backoff),
// substring error classification, and an ordered fallback strategy sweep for
// blocked extractions.
