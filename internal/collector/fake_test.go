package collector

import (
	"context"
	"sync"

	"listing_collector/internal/domain"
)

// fakeWorker replays a scripted run in-process.
type fakeWorker struct {
	mu       sync.Mutex
	started  []Config
	startErr error
	lines    []Event
	exit     Exit
	gate     chan struct{}
}

type fakeRun struct {
	events chan Event
}

func (r *fakeRun) Events() <-chan Event {
	return r.events
}

func (w *fakeWorker) Start(_ context.Context, cfg Config) (Run, error) {
	w.mu.Lock()
	w.started = append(w.started, cfg)
	w.mu.Unlock()

	if w.startErr != nil {
		return nil, w.startErr
	}

	run := &fakeRun{events: make(chan Event)}
	go func() {
		defer close(run.events)
		if w.gate != nil {
			<-w.gate
		}
		for _, ev := range w.lines {
			run.events <- ev
		}
		exit := w.exit
		run.events <- Event{Exit: &exit}
	}()
	return run, nil
}

func (w *fakeWorker) starts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.started)
}

type fakeIngester struct {
	mu     sync.Mutex
	calls  []string
	result *domain.SyncResult
	err    error
}

func (f *fakeIngester) Ingest(_ context.Context, jobID, snapshotPath string) (*domain.SyncResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, jobID+"="+snapshotPath)
	f.mu.Unlock()
	return f.result, f.err
}

func stdout(line string) Event { return Event{Stream: Stdout, Line: line} }

func stderr(line string) Event { return Event{Stream: Stderr, Line: line} }
