// Package notify delivers fire-and-forget email off the request path.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authengine/domain"
)

// Config controls dispatcher buffering.
type Config struct {
	BufferSize  int           `env:"BUFFER_SIZE" envDefault:"256"`
	DropIfFull  bool          `env:"DROP_IF_FULL" envDefault:"true"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
}

// Dispatcher forwards email to a sender from a single background goroutine.
// Send failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	cfg       Config
	sender    domain.EmailSender
	logger    *slog.Logger
	ch        chan domain.EmailMessage
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. A nil sender yields a nil
// dispatcher, on which every method is a no-op.
func NewDispatcher(cfg Config, sender domain.EmailSender, logger *slog.Logger) *Dispatcher {
	if sender == nil {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sender: sender,
		logger: logger.With("component", "notify"),
		ch:     make(chan domain.EmailMessage, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg domain.EmailMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	if err := d.sender.SendEmail(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Warn("email delivery failed", "kind", msg.Kind, "error", err)
	}
}

// Notify enqueues msg. With DropIfFull a full buffer drops the message;
// otherwise Notify blocks until there is room or ctx is done.
func (d *Dispatcher) Notify(ctx context.Context, msg domain.EmailMessage) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- msg:
		case <-d.done:
		default:
			d.dropped.Add(1)
			d.logger.WarnContext(ctx, "email dropped, buffer full", "kind", msg.Kind)
		}
		return
	}

	select {
	case d.ch <- msg:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting messages and waits until the buffer is drained.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
