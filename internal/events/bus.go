package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"payrollctl/pkg/logging"
)

// DefaultBufferSize is the per-subscriber output buffer.
const DefaultBufferSize = 16

// Publisher is implemented by anything that accepts session events.
type Publisher interface {
	Publish(ev Event) error
}

// Bus is an in-process pub/sub for session events.
type Bus struct {
	pubsub  *gochannel.GoChannel
	forward message.Publisher
	now     func() time.Time

	mu     sync.Mutex
	closed bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithForwarder sends a copy of every event to p as well.
func WithForwarder(p message.Publisher) BusOption {
	return func(b *Bus) {
		b.forward = p
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) BusOption {
	return func(b *Bus) {
		b.now = now
	}
}

// NewBus creates a bus logging through the process slog logger.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: DefaultBufferSize},
			watermill.NewSlogLogger(logging.Logger()),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish stamps ev if needed and delivers it to every current subscriber.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(ev Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil
	}

	if ev.At.IsZero() {
		ev.At = b.now().UTC()
	}
	payload, err := ev.marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	if ev.Severity() == SeverityWarning {
		logging.Warn("Events", "%s", Message(ev))
	} else {
		logging.Debug("Events", "Published %s: %s", ev, Message(ev))
	}

	if b.forward != nil {
		fwd := message.NewMessage(msg.UUID, payload)
		if err := b.forward.Publish(Topic, fwd); err != nil {
			logging.Warn("Events", "Failed to forward %s: %v", ev, err)
		}
	}
	return nil
}

// Subscribe returns a channel of events published after the call. The
// channel is closed when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	out := make(chan Event, DefaultBufferSize)
	go func() {
		defer close(out)
		for msg := range msgs {
			ev, err := unmarshalEvent(msg.Payload)
			msg.Ack()
			if err != nil {
				logging.Warn("Events", "Dropping malformed event %s: %v", msg.UUID, err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close closes every subscription and the forwarder, if any.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var errs []error
	if err := b.pubsub.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.forward != nil {
		if err := b.forward.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
