// Package collector supervises external collection worker processes and
// drives the job lifecycle from their output.
package collector

import (
	"context"
	"errors"
	"fmt"

	"listing_collector/internal/domain"
)

var ErrSpawnRejected = errors.New("collector cannot run in a restricted serverless environment")

// ErrSnapshotNotFound marks a clean exit that never reported an output location.
var ErrSnapshotNotFound = errors.New("snapshot not found")

type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("collector exited with code %d", e.Code)
}

type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Exit ends a run. Err is set when the process could not be waited on or was
// killed by a signal; otherwise Code is the exit status.
type Exit struct {
	Code int
	Err  error
}

// Event is either an output line or the final Exit.
type Event struct {
	Stream Stream
	Line   string
	Exit   *Exit
}

type Config struct {
	JobID     string
	Params    domain.JobParams
	OutputDir string
}

// Run is one started worker. Events delivers output lines in the order each
// stream produced them, then exactly one Exit event, then closes.
type Run interface {
	Events() <-chan Event
}

type Worker interface {
	Start(ctx context.Context, cfg Config) (Run, error)
}
