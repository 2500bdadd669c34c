package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Worker buffers audit events and writes them to the recorder off the request
// path. Logging is best-effort: a full buffer drops the event rather than
// blocking a ledger operation.
type Worker struct {
	eventCh  chan Event
	recorder Recorder
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWorker(recorder Recorder, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh:  make(chan Event, bufferSize),
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining audit events before shutdown", "remaining_events", len(w.eventCh))
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.recorder.Save(context.Background(), event); err != nil {
						slog.Error("failed to save audit event during shutdown", "error", err, "kind", event.Kind)
					}
				}
				return
			case event := <-w.eventCh:
				if err := w.recorder.Save(w.ctx, event); err != nil {
					slog.Error("failed to save audit event", "error", err, "kind", event.Kind)
				}
			}
		}
	}()
}

// Log enqueues an event without blocking.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("audit channel full, dropping event", "kind", event.Kind)
	}
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
	close(w.eventCh)
}
