package analytics

import (
	"context"
	"log/slog"

	"github.com/mwaghorn2000/oxidex/pkg/kafka"
	"github.com/mwaghorn2000/oxidex/pkg/resilience"
)

// Collector buffers analytics events and publishes them to Kafka from a
// single background goroutine. Track never blocks: when the buffer is full
// the event is dropped, analytics being strictly best-effort.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan Event
	done     chan struct{}
	logger   *slog.Logger
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan Event, bufferSize),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the publish loop. It drains buffered events on ctx
// cancellation before exiting.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drain()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) publish(ctx context.Context, event Event) {
	err := resilience.Retry(ctx, "analytics-publish", resilience.RetryConfig{}, func() error {
		return c.producer.Publish(ctx, kafka.Event{
			Key:   string(event.Type),
			Value: event,
		})
	})
	if err != nil {
		c.logger.Error("failed to publish analytics event", "type", event.Type, "error", err)
	}
}

// Track enqueues an event for publishing, dropping it if the buffer is full.
func (c *Collector) Track(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
	}
}

// Close stops the publish loop after the buffer drains.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drain() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			// Detached context: the parent is already cancelled.
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
