package executor

import "context"

// Executor runs external commands. Abstracted so media processing can be
// tested without ffmpeg installed.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
}
