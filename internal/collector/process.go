package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

const readBufferBytes = 64 * 1024

// ProcessWorker runs the collector as a child process. The process is not
// tied to the context passed to Start and only ends by exiting on its own.
type ProcessWorker struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
}

type processRun struct {
	events chan Event
}

func (r *processRun) Events() <-chan Event {
	return r.events
}

func (w *ProcessWorker) Start(_ context.Context, cfg Config) (Run, error) {
	cmd := exec.Command(w.Command, w.Args...)
	cmd.Dir = w.Dir
	cmd.Env = append(append(os.Environ(), w.Env...), BuildEnv(cfg)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	run := &processRun{events: make(chan Event, 64)}
	go run.drain(cmd, stdout, stderr)
	return run, nil
}

func (r *processRun) drain(cmd *exec.Cmd, stdout, stderr io.Reader) {
	defer close(r.events)

	var g errgroup.Group
	g.Go(func() error { return r.scan(Stdout, stdout) })
	g.Go(func() error { return r.scan(Stderr, stderr) })
	scanErr := g.Wait()

	// pipes must be fully read before Wait closes them
	waitErr := cmd.Wait()

	r.events <- Event{Exit: exitOf(waitErr, scanErr)}
}

func (r *processRun) scan(stream Stream, src io.Reader) error {
	rd := bufio.NewReaderSize(src, readBufferBytes)
	for {
		line, err := rd.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			r.events <- Event{Stream: stream, Line: line}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// keep draining so the child never blocks on a full pipe
			_, _ = io.Copy(io.Discard, rd)
			return fmt.Errorf("read %s: %w", stream, err)
		}
	}
}

func exitOf(waitErr, scanErr error) *Exit {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return &Exit{Code: 0, Err: scanErr}
	case errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0:
		return &Exit{Code: exitErr.ExitCode()}
	default:
		return &Exit{Code: -1, Err: waitErr}
	}
}
