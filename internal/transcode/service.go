// Package transcode wraps the external ffmpeg/ffprobe binaries: input
// probing, a three-tier conversion pipeline (HEVC, then H.264, then a
// lossless remux) with per-tier timeouts, and structural validation of the
// produced output.
package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/model"
)

// FFmpeg constants for conversion settings
const (
	// Video codec settings
	PreferredVideoCodec = "libx265"
	FallbackVideoCodec  = "libx264"
	VideoPreset         = "medium"
	VideoCRF            = "23"

	// Audio codec settings
	AudioCodec   = "aac"
	AudioBitrate = "96k"

	// Aspect-preserving 720p letterbox/pillarbox scaling
	ScalePadFilter = "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2"

	// Container flags
	FastStartFlag = "+faststart"

	// Executable constants
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
)

// Default tier timeouts
const (
	DefaultEncodeTimeout = 30 * time.Minute
	DefaultRemuxTimeout  = 10 * time.Minute
)

// Tier names, in fallback order.
const (
	TierHEVC  = "hevc"
	TierH264  = "h264"
	TierRemux = "remux"
)

// StreamInfo is one stream from the prober output.
type StreamInfo struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// FormatInfo is the container-level prober output.
type FormatInfo struct {
	FormatName string `json:"format_name"`
}

// ProbeResult is the structured media inspection result.
type ProbeResult struct {
	Streams []StreamInfo `json:"streams"`
	Format  FormatInfo   `json:"format"`
}

// HasVideoStream reports whether the file contains at least one video
// stream.
func (p *ProbeResult) HasVideoStream() bool {
	_, ok := p.VideoStream()
	return ok
}

// VideoStream returns the first video stream, if any.
func (p *ProbeResult) VideoStream() (StreamInfo, bool) {
	for _, s := range p.Streams {
		if s.CodecType == "video" {
			return s, true
		}
	}
	return StreamInfo{}, false
}

// commandRunner abstracts subprocess execution so tier fallback behavior is
// testable without real encoders.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %v: %s", name, err, lastLine(stderr.String()))
	}
	return nil
}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %v: %s", name, err, lastLine(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Service drives ffprobe and the tiered ffmpeg conversion.
type Service struct {
	runner        commandRunner
	encodeTimeout time.Duration
	remuxTimeout  time.Duration
	logger        *logrus.Entry
}

// NewService creates the transcoding service.
func NewService(encodeTimeout, remuxTimeout time.Duration, logger *logrus.Entry) Transcoder {
	if encodeTimeout <= 0 {
		encodeTimeout = DefaultEncodeTimeout
	}
	if remuxTimeout <= 0 {
		remuxTimeout = DefaultRemuxTimeout
	}
	return &Service{
		runner:        execCommandRunner{},
		encodeTimeout: encodeTimeout,
		remuxTimeout:  remuxTimeout,
		logger:        logger.WithField("svc", "transcode"),
	}
}

// Probe inspects a media file with ffprobe.
func (s *Service) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := s.runner.Output(ctx, FFprobeCommand,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("probe returned malformed output: %w", err)
	}
	return &result, nil
}

// HasVideoStream probes the file and reports whether it contains video.
// Used by the fetcher for pre-flight validation, where a probe failure is
// fatal.
func (s *Service) HasVideoStream(ctx context.Context, path string) (bool, error) {
	result, err := s.Probe(ctx, path)
	if err != nil {
		return false, err
	}
	return result.HasVideoStream(), nil
}

type tier struct {
	name    string
	args    []string
	timeout time.Duration
}

// Transcode converts input into output, trying HEVC first, H.264 second and
// a lossless remux last. A tier timeout is terminal for the whole operation;
// other tier failures fall through to the next tier.
func (s *Service) Transcode(ctx context.Context, inputPath, outputPath string) error {
	// Diagnostic probe; failure here is tolerated.
	if result, err := s.Probe(ctx, inputPath); err != nil {
		s.logger.Warnf("Input probe failed for %s: %v", inputPath, err)
	} else if v, ok := result.VideoStream(); ok {
		s.logger.Infof("Input %s: codec=%s resolution=%dx%d container=%s",
			inputPath, v.CodecName, v.Width, v.Height, result.Format.FormatName)
	}

	tiers := []tier{
		{name: TierHEVC, args: encodeArgs(inputPath, outputPath, PreferredVideoCodec), timeout: s.encodeTimeout},
		{name: TierH264, args: encodeArgs(inputPath, outputPath, FallbackVideoCodec), timeout: s.encodeTimeout},
		{name: TierRemux, args: remuxArgs(inputPath, outputPath), timeout: s.remuxTimeout},
	}

	var lastErr error
	converted := false
	for _, t := range tiers {
		err := s.runTier(ctx, t, outputPath)
		if err == nil {
			converted = true
			break
		}
		if model.CategoryOf(err) == model.CategoryTimeout {
			return err
		}
		lastErr = err
		s.logger.Warnf("Transcode tier %s failed for %s: %v", t.name, inputPath, err)
	}
	if !converted {
		return model.NewClassified(model.CategoryConversionFailed, lastErr)
	}

	result, err := s.Probe(ctx, outputPath)
	if err != nil {
		return model.Classifiedf(model.CategoryConversionFailed, "output failed validation: %v", err)
	}
	if !result.HasVideoStream() {
		return model.Classifiedf(model.CategoryConversionFailed, "output contains no video stream")
	}
	return nil
}

// runTier runs one conversion attempt bounded by its timeout. Success means
// the process exited cleanly and the output file exists with content.
func (s *Service) runTier(ctx context.Context, t tier, outputPath string) error {
	tierCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	s.logger.Infof("Running transcode tier %s", t.name)
	if err := s.runner.Run(tierCtx, FFmpegCommand, t.args...); err != nil {
		s.removePartial(outputPath)
		if tierCtx.Err() == context.DeadlineExceeded {
			return model.Classifiedf(model.CategoryTimeout, "%s tier timed out after %s", t.name, t.timeout)
		}
		return fmt.Errorf("%s tier: %w", t.name, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("%s tier produced no output file", t.name)
	}
	if info.Size() == 0 {
		s.removePartial(outputPath)
		return fmt.Errorf("%s tier produced an empty output file", t.name)
	}
	return nil
}

func (s *Service) removePartial(outputPath string) {
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warnf("Failed to remove partial output %s: %v", outputPath, err)
	}
}

// encodeArgs builds the ffmpeg arguments for an encoding tier.
func encodeArgs(inputPath, outputPath, codec string) []string {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", codec,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-vf", ScalePadFilter,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
	}
	// faststart is a mov/mp4 muxer option; matroska outputs reject it.
	if strings.HasSuffix(strings.ToLower(outputPath), ".mp4") {
		args = append(args, "-movflags", FastStartFlag)
	}
	return append(args, outputPath)
}

// remuxArgs builds the ffmpeg arguments for the lossless stream-copy tier.
func remuxArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c", "copy",
		outputPath,
	}
}
