package orchestrator

import (
	"context"
	"strconv"
	"strings"

	"app/pkg/executor"
)

// DurationProbe estimates media duration before upload. ok is false when
// the duration cannot be determined; unknown durations never block an
// upload.
type DurationProbe interface {
	Probe(ctx context.Context, path string) (minutes float64, ok bool)
}

type ffprobeDuration struct {
	exec executor.Executor
}

// NewDurationProbe creates an ffprobe-backed DurationProbe.
func NewDurationProbe(exec executor.Executor) DurationProbe {
	return &ffprobeDuration{exec: exec}
}

func (p *ffprobeDuration) Probe(ctx context.Context, path string) (float64, bool) {
	out, err := p.exec.Execute(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return seconds / 60, true
}
