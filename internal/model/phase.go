package model

// Phase represents the pipeline stage of a download task.
type Phase string

const (
	// PhaseStarting means the task has been created but work has not begun.
	PhaseStarting Phase = "starting"

	// PhaseExtracting means video metadata extraction is in progress.
	PhaseExtracting Phase = "extracting"

	// PhaseDownloading means the media download is in progress.
	PhaseDownloading Phase = "downloading"

	// PhaseConverting means the transcode step is in progress.
	PhaseConverting Phase = "converting"

	// PhaseReady means the converted file is available for download.
	PhaseReady Phase = "ready"

	// PhaseError means the task failed.
	PhaseError Phase = "error"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true once the task has reached a final state. Terminal
// tasks are never mutated again except by explicit cleanup.
func (p Phase) IsTerminal() bool {
	return p == PhaseReady || p == PhaseError
}

// Status collapses the phase into the coarse processing/ready/error status
// exposed by the polling API.
func (p Phase) Status() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "processing"
	}
}
