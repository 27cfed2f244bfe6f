package queue

import (
	"errors"
	"sync"

	"rentals/server/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// EventQueue is a bounded in-memory queue that fans domain events out to
// subscribers on a single worker goroutine
type EventQueue struct {
	items    chan models.Event
	done     chan struct{}
	stopped  chan struct{}
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(models.Event) error
}

// NewEventQueue creates a new event queue with the specified buffer size
func NewEventQueue(bufferSize int, logger *logrus.Logger) *EventQueue {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &EventQueue{
		items:    make(chan models.Event, bufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(models.Event) error, 0),
	}
}

// Push adds an event to the queue without blocking
func (q *EventQueue) Push(event models.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- event:
		q.logger.WithField("event", event.Type).Debug("Pushed event to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each event
func (q *EventQueue) Subscribe(handler func(models.Event) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing events. Calling it more than once has no effect.
func (q *EventQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

func (q *EventQueue) process() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			// Deliver what was accepted before Close
			for {
				select {
				case event := <-q.items:
					q.dispatch(event)
				default:
					return
				}
			}
		case event := <-q.items:
			q.dispatch(event)
		}
	}
}

func (q *EventQueue) dispatch(event models.Event) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			q.logger.WithError(err).WithField("event", event.Type).Error("Handler failed to process event")
		}
	}
}

// Close stops accepting events and waits for the worker to drain the buffer
func (q *EventQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	close(q.done)
	q.mu.Unlock()

	if started {
		<-q.stopped
	}
	return nil
}

// Len returns the current number of events in the queue
func (q *EventQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *EventQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
