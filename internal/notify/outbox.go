package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bonvoyage/voyage/internal/queue"
)

const defaultOutboxInterval = time.Second

// Message is one payload bound for a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// PublishFunc delivers a single message.
type PublishFunc func(Message) error

// Outbox buffers messages in a bounded queue and publishes them from a
// background goroutine. Messages that fail to publish stay queued, in order,
// for the next attempt. When the queue is full the oldest messages are dropped.
type Outbox struct {
	q        *queue.Queue[Message]
	publish  PublishFunc
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex // serializes Flush
	wake     chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	started  bool
	closed   sync.Once
}

// NewOutbox creates an outbox holding at most capacity messages.
func NewOutbox(capacity int, interval time.Duration, publish PublishFunc, logger *slog.Logger) *Outbox {
	if interval <= 0 {
		interval = defaultOutboxInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		q:        queue.NewBounded[Message](capacity),
		publish:  publish,
		interval: interval,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (o *Outbox) Start() {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	go o.run()
}

func (o *Outbox) run() {
	defer close(o.done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopChan:
			return
		case <-o.wake:
		case <-ticker.C:
		}
		if err := o.Flush(); err != nil {
			o.logger.Debug("outbox flush incomplete", "pending", o.q.Len(), "error", err)
		}
	}
}

// Enqueue adds messages and wakes the drain goroutine. It never blocks.
func (o *Outbox) Enqueue(msgs ...Message) {
	o.q.Push(msgs...)
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Flush publishes queued messages in order until the queue is empty or a
// publish fails. The failed message and everything after it are requeued.
func (o *Outbox) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	items := o.q.GetAndEmpty()
	for i, m := range items {
		if err := o.publish(m); err != nil {
			o.q.PushFront(items[i:]...)
			return fmt.Errorf("publishing to %s: %w", m.Topic, err)
		}
	}
	return nil
}

// Pending returns the number of queued messages.
func (o *Outbox) Pending() int {
	return o.q.Len()
}

// Dropped returns how many messages were discarded because the outbox was full.
func (o *Outbox) Dropped() int {
	return o.q.Dropped()
}

// Close stops the drain goroutine and makes a final delivery attempt.
func (o *Outbox) Close() error {
	var err error
	o.closed.Do(func() {
		close(o.stopChan)
		o.mu.Lock()
		started := o.started
		o.mu.Unlock()
		if started {
			<-o.done
		}
		err = o.Flush()
		if n := o.q.Len(); n > 0 {
			err = errors.Join(err, fmt.Errorf("%d messages undelivered", n))
		}
	})
	return err
}
