package hook

import (
	"context"
	"log/slog"
	"sync"
)

const queueSize = 32

// Dispatcher runs hooks for events on a single background worker so the
// tick loop never waits on a hook process.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger
	queue    chan Request

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewDispatcher creates a Dispatcher. Call Start before Dispatch.
func NewDispatcher(m *Manager, e *Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		manager:  m,
		executor: e,
		logger:   logger,
		queue:    make(chan Request, queueSize),
	}
}

// Start launches the worker.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case req, ok := <-d.queue:
				if !ok {
					return
				}
				d.run(ctx, req)
			}
		}
	}()
}

// Dispatch queues req for every hook subscribed to its event. It never
// blocks and reports false when the request was dropped.
func (d *Dispatcher) Dispatch(req Request) bool {
	if len(d.manager.For(req.Event)) == 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	select {
	case d.queue <- req:
		return true
	default:
		d.logger.Warn("hook queue full, dropping event", "event", req.Event)
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context, req Request) {
	for _, h := range d.manager.For(req.Event) {
		resp, err := d.executor.Execute(ctx, h, req)
		switch {
		case err != nil:
			d.logger.Warn("hook failed", "hook", h.Manifest.Name, "event", req.Event, "error", err)
		case !resp.Success:
			d.logger.Warn("hook reported failure", "hook", h.Manifest.Name, "event", req.Event, "error", resp.Error)
		default:
			d.logger.Debug("hook ran", "hook", h.Manifest.Name, "event", req.Event)
		}
	}
}

// Stop refuses further requests, lets the worker run what is already queued
// and waits for it to exit. Each hook is still bounded by the executor
// timeout.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
}
