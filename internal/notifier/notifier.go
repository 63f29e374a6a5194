// Package notifier fans domain events out to delivery sinks without blocking the caller.
package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/google/uuid"
)

// Emitter is what services depend on. Emit never blocks and never fails the caller.
type Emitter interface {
	Emit(event string, channels []string, payload any)
}

type Sink interface {
	Name() string
	Deliver(ctx context.Context, n model.Notification) error
}

type Config struct {
	BufferSize      int
	Workers         int
	DeliveryTimeout time.Duration
}

type Dispatcher struct {
	cfg   Config
	sinks []Sink
	log   *logger.Logger
	now   func() time.Time

	queue   chan model.Notification
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	started sync.Once
	stopped sync.Once
}

func NewDispatcher(cfg Config, log *logger.Logger, sinks ...Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	return &Dispatcher{
		cfg:   cfg,
		sinks: sinks,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		queue: make(chan model.Notification, cfg.BufferSize),
	}
}

func (d *Dispatcher) Start() {
	d.started.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
		d.log.Info("Notification dispatcher started", "workers", d.cfg.Workers, "buffer", d.cfg.BufferSize, "sinks", len(d.sinks))
	})
}

func (d *Dispatcher) Emit(event string, channels []string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("Failed to encode notification payload", "event", event, "error", err)
		return
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		Event:     event,
		Channels:  append([]string(nil), channels...),
		Payload:   data,
		CreatedAt: d.now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("Notification dropped, dispatcher stopped", "event", event, "id", n.ID)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.log.Warn("Notification dropped, queue full", "event", event, "id", n.ID, "buffer", d.cfg.BufferSize)
	}
}

// Stop closes the queue and waits for queued notifications to be delivered or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.stopped.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			d.log.Info("Notification dispatcher stopped")
		case <-ctx.Done():
			d.log.Warn("Notification dispatcher stop timed out", "pending", len(d.queue))
		}
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n model.Notification) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliveryTimeout)
		err := sink.Deliver(ctx, n)
		cancel()
		if err != nil {
			d.log.Error("Failed to deliver notification",
				"sink", sink.Name(),
				"event", n.Event,
				"id", n.ID,
				"error", err,
			)
			continue
		}
		d.log.Debug("Notification delivered", "sink", sink.Name(), "event", n.Event, "id", n.ID)
	}
}
