// Package verification implements the instructor-facing verification
// workflow: status view reads and document submission.
package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/metrics"
	"github.com/campushq/campus-go/session"
)

// Workflow drives an instructor's submission through its lifecycle
// (none → pending → approved|rejected → resubmit).
//
// The at-most-one-pending invariant is enforced authoritatively by the
// backend; the in-flight latch here only prevents the common double-submit
// case optimistically and callers must still handle ErrConflict.
type Workflow struct {
	session *session.Context
	api     campus.VerificationAPI
	logger  *slog.Logger
	meter   *metrics.Metrics

	mu       sync.Mutex
	inFlight bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithMetrics records submit outcomes to Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.meter = m }
}

// New creates a Workflow gated on the given session.
func New(sess *session.Context, api campus.VerificationAPI, opts ...Option) *Workflow {
	w := &Workflow{
		session: sess,
		api:     api,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		meter:   metrics.New(false),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Status returns the server-derived verification status view. The Verified
// flag in the view is backed by the identity, never inferred from the
// submission status, so an out-of-band admin approval shows up on the next
// read.
func (w *Workflow) Status(ctx context.Context) (campus.StatusView, error) {
	if err := w.session.WaitReady(ctx); err != nil {
		return campus.StatusView{}, fmt.Errorf("campus/verification: waiting for session: %w", err)
	}

	view, err := w.api.Status(ctx)
	if err != nil {
		w.logger.Error("verification: status fetch failed", "error", err)
		return campus.StatusView{}, fmt.Errorf("campus/verification: status: %w", err)
	}
	return view, nil
}

// Submit creates a new pending submission from the given documents and
// returns the refreshed status view. The create response is not trusted to
// reflect global state, so the view is re-fetched after a successful
// submit.
//
// An empty document list fails with ErrValidation before any network call.
// A second Submit while one is outstanding fails with ErrConflict, as does
// a backend-detected pending submission.
func (w *Workflow) Submit(ctx context.Context, documents []campus.DocumentUpload) (campus.StatusView, error) {
	if len(documents) == 0 {
		w.meter.RecordSubmit("validation")
		return campus.StatusView{}, fmt.Errorf("campus/verification: no documents attached: %w", campus.ErrValidation)
	}

	if err := w.session.WaitReady(ctx); err != nil {
		return campus.StatusView{}, fmt.Errorf("campus/verification: waiting for session: %w", err)
	}

	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		w.meter.RecordSubmit("conflict")
		return campus.StatusView{}, fmt.Errorf("campus/verification: submit already in flight: %w", campus.ErrConflict)
	}
	w.inFlight = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inFlight = false
		w.mu.Unlock()
	}()

	if err := w.api.Submit(ctx, documents); err != nil {
		switch {
		case errors.Is(err, campus.ErrConflict):
			w.meter.RecordSubmit("conflict")
			w.logger.Debug("verification: submission already under review")
		case errors.Is(err, campus.ErrValidation):
			w.meter.RecordSubmit("validation")
		default:
			w.meter.RecordSubmit("error")
			w.logger.Error("verification: submit failed", "error", err)
		}
		return campus.StatusView{}, fmt.Errorf("campus/verification: submit: %w", err)
	}

	w.meter.RecordSubmit("success")

	view, err := w.api.Status(ctx)
	if err != nil {
		w.logger.Error("verification: status refresh after submit failed", "error", err)
		return campus.StatusView{}, fmt.Errorf("campus/verification: status after submit: %w", err)
	}
	return view, nil
}
