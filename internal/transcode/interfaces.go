package transcode

import (
	"context"
)

// Transcoder defines the interface for the conversion service: ffprobe
// inspection plus the tiered ffmpeg conversion.
type Transcoder interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
	HasVideoStream(ctx context.Context, path string) (bool, error)
	Transcode(ctx context.Context, inputPath, outputPath string) error
}
