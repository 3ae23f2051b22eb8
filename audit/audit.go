// Package audit provides structured client-side audit logging for session
// and review transitions.
//
// This is the SDK's own trail of what the client did (logins, logouts,
// submits, review actions); the backend's append-only review trail for a
// submission is a separate resource, read through AdminAPI.AuditLog.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event records one client-side action.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	Action       string    `json:"action"` // bootstrap, login, logout, submit, approve, reject
	SubmissionID int64     `json:"submission_id,omitempty"`
	Result       string    `json:"result"` // success, failure, conflict, unauthenticated
	Error        string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Logger emits audit events to configured handlers from a buffered queue.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithStdoutHandler adds a handler that writes JSON events to stdout.
func WithStdoutHandler() Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) {
		l.AddHandler(h)
	}
}

// New creates a new audit logger with buffered async emission.
// bufferSize: event queue buffer size (default: 256).
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	logger := &Logger{
		queue: make(chan Event, bufferSize),
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(logger)
	}

	logger.wg.Add(1)
	go logger.process()

	return logger
}

// AddHandler adds a handler to receive audit events. Handlers must be added
// before events start flowing.
func (l *Logger) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Log emits an audit event asynchronously. Events logged after Close are
// dropped.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.queue <- event:
	case <-l.done:
	}
}

func (l *Logger) process() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			for _, h := range l.handlers {
				h(event)
			}
		case <-l.done:
			// drain what is already queued
			for {
				select {
				case event := <-l.queue:
					for _, h := range l.handlers {
						h(event)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending events and stops the logger.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return nil
}
