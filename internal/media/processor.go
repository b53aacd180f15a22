// Package media wraps the external ffmpeg/ffprobe toolchain: audio
// extraction from video containers, normalization to the format the
// transcription API expects, and duration probing.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"app/pkg/executor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrFFmpegMissing is returned when the toolchain is not installed.
var ErrFFmpegMissing = errors.New("ffmpeg tidak terinstall. Pastikan FFmpeg sudah terinstall di sistem")

// Whisper wants 16kHz mono input.
const (
	sampleRate = 16000
	channels   = 1
)

// Allowed upload extensions, lowercase with leading dot.
var (
	audioExtensions = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".ogg": true}
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true}
)

// Extension returns the lowercase extension of filename.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsAudio reports whether filename has an allowed audio extension.
func IsAudio(filename string) bool {
	return audioExtensions[Extension(filename)]
}

// IsVideo reports whether filename has an allowed video extension.
func IsVideo(filename string) bool {
	return videoExtensions[Extension(filename)]
}

// IsAllowed reports whether filename is uploadable at all.
func IsAllowed(filename string) bool {
	return IsAudio(filename) || IsVideo(filename)
}

// AllowedExtensions returns the sorted allow-list for error messages.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(audioExtensions)+len(videoExtensions))
	for e := range audioExtensions {
		exts = append(exts, e)
	}
	for e := range videoExtensions {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

// Processor converts uploaded media into normalized audio ready for
// transcription.
type Processor interface {
	// Process writes content to a temp file, extracts audio when the
	// upload is a video, normalizes it, and returns the audio path plus
	// the duration in minutes (rounded to one decimal). The caller must
	// Cleanup the returned path.
	Process(ctx context.Context, content []byte, extension string, isVideo bool) (string, float64, error)
	// Probe returns the media duration in minutes. ok is false when the
	// toolchain cannot determine it.
	Probe(ctx context.Context, path string) (minutes float64, ok bool)
	Cleanup(path string)
	FFmpegInstalled(ctx context.Context) bool
}

type ffmpegProcessor struct {
	exec    executor.Executor
	tempDir string
	logger  zerolog.Logger
}

// NewProcessor creates an ffmpeg-backed Processor writing into tempDir.
func NewProcessor(exec executor.Executor, tempDir string, logger zerolog.Logger) Processor {
	return &ffmpegProcessor{
		exec:    exec,
		tempDir: tempDir,
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

func (p *ffmpegProcessor) FFmpegInstalled(ctx context.Context) bool {
	_, err := p.exec.Execute(ctx, "ffmpeg", "-version")
	return err == nil
}

func (p *ffmpegProcessor) Process(ctx context.Context, content []byte, extension string, isVideo bool) (string, float64, error) {
	if !p.FFmpegInstalled(ctx) {
		return "", 0, ErrFFmpegMissing
	}
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create temp dir: %w", err)
	}

	srcPath := filepath.Join(p.tempDir, uuid.NewString()+extension)
	if err := os.WriteFile(srcPath, content, 0o600); err != nil {
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}

	audioPath := srcPath
	if isVideo {
		extracted, err := p.extractAudio(ctx, srcPath)
		p.Cleanup(srcPath)
		if err != nil {
			return "", 0, err
		}
		audioPath = extracted
	}

	normalized, err := p.normalize(ctx, audioPath)
	p.Cleanup(audioPath)
	if err != nil {
		return "", 0, err
	}

	minutes, ok := p.Probe(ctx, normalized)
	if !ok {
		minutes = 0
	}
	return normalized, minutes, nil
}

func (p *ffmpegProcessor) extractAudio(ctx context.Context, videoPath string) (string, error) {
	outputPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".extracted.mp3"
	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-y",
		outputPath,
	}
	if _, err := p.exec.Execute(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("extract audio: output file was not created")
	}
	return outputPath, nil
}

func (p *ffmpegProcessor) normalize(ctx context.Context, audioPath string) (string, error) {
	outputPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".normalized.mp3"
	args := []string{
		"-i", audioPath,
		"-acodec", "libmp3lame",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-y",
		outputPath,
	}
	if _, err := p.exec.Execute(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("normalize audio: %w", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("normalize audio: output file was not created")
	}
	return outputPath, nil
}

// Probe is best-effort: any ffprobe failure reports ok=false rather than
// an error, so callers can fall back to treating the duration as unknown.
func (p *ffmpegProcessor) Probe(ctx context.Context, path string) (float64, bool) {
	out, err := p.exec.Execute(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("ffprobe failed, duration unknown")
		return 0, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	minutes := seconds / 60
	return float64(int(minutes*10+0.5)) / 10, true
}

func (p *ffmpegProcessor) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn().Err(err).Str("path", path).Msg("Failed to clean up temp file")
	}
}

// Janitor removes temp files older than maxAge. Run at startup to sweep
// leftovers from crashed processing attempts.
func Janitor(tempDir string, maxAge time.Duration, logger zerolog.Logger) int {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return 0
	}
	deleted := 0
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(tempDir, e.Name())); err == nil {
				deleted++
			}
		}
	}
	if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("Removed stale temp files")
	}
	return deleted
}
