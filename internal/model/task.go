package model

import (
	"time"
)

// VideoInfo holds the user-facing metadata extracted for a task.
type VideoInfo struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
}

// Task represents a single end-to-end download-and-convert job. A task is
// owned by exactly one orchestration goroutine; everyone else reads copies
// through the store.
type Task struct {
	ID             string
	URL            string
	Rename         string // optional filename hint for the final artifact
	Phase          Phase
	Message        string // human readable, always safe to show to the user
	VideoInfo      *VideoInfo
	OutputFilename string // set once the task reaches PhaseReady
	CreatedAt      time.Time
	FinishedAt     time.Time
}

// Clone returns a deep copy of the task so callers can read it without
// holding the store lock.
func (t *Task) Clone() Task {
	c := *t
	if t.VideoInfo != nil {
		vi := *t.VideoInfo
		c.VideoInfo = &vi
	}
	return c
}
