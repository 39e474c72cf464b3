package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by Enqueue when no more deliveries can be buffered.
var ErrQueueFull = errors.New("mail queue is full")

// DispatcherConfig tunes a Dispatcher. Zero values fall back to defaults.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	Attempts    int
	Backoff     time.Duration
	SendTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	return c
}

// Dispatcher delivers emails in the background so HTTP handlers can answer
// as soon as a message is queued.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	queue  chan SendRequest
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. Call Run to start delivering.
func NewDispatcher(sender Sender, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		sender: sender,
		cfg:    cfg,
		queue:  make(chan SendRequest, cfg.QueueSize),
		logger: logger,
	}
}

// Enqueue schedules req for delivery without blocking.
func (d *Dispatcher) Enqueue(req SendRequest) error {
	select {
	case d.queue <- req:
		return nil
	default:
		d.logger.Warn("mail_queue_full", "to", req.To, "subject", req.Subject)
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has returned. Messages still queued at that point are dropped.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-d.queue:
					d.deliver(ctx, req)
				}
			}
		}()
	}
	wg.Wait()

	if n := len(d.queue); n > 0 {
		d.logger.Warn("mail_queue_dropped", "count", n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, req SendRequest) {
	for attempt := 1; attempt <= d.cfg.Attempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		res, err := d.sender.Send(sendCtx, req)
		cancel()
		if err == nil {
			d.logger.Info("mail_delivered", "to", req.To, "message_id", res.MessageID, "attempt", attempt)
			return
		}
		d.logger.Warn("mail_delivery_failed", "to", req.To, "attempt", attempt, "error", err)

		if attempt == d.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * d.cfg.Backoff):
		}
	}
	d.logger.Error("mail_delivery_abandoned", "to", req.To, "subject", req.Subject)
}
