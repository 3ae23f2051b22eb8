// Package review drives the admin review queue: listing pending
// submissions, opening a submission detail view and moving individual
// submissions through the approve/reject transition.
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/audit"
	"github.com/campushq/campus-go/metrics"
	"github.com/campushq/campus-go/session"
)

// ErrStale signals that a detail response arrived for a submission that is
// no longer the open one. It is a navigation artifact, not a failure:
// callers drop it silently instead of surfacing it to the admin.
var ErrStale = errors.New("campus/review: response for a view no longer open")

// Queue is the admin-facing review component. The detail view it holds is
// keyed by submission id, so a slow response for submission A never
// overwrites state after the admin has navigated to submission B.
type Queue struct {
	session *session.Context
	api     campus.AdminAPI
	logger  *slog.Logger
	meter   *metrics.Metrics
	trail   *audit.Logger

	mu     sync.Mutex
	target int64
	detail *campus.SubmissionDetail
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithMetrics records review outcomes to Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.meter = m }
}

// WithAudit emits review actions to the client-side audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(q *Queue) { q.trail = a }
}

// New creates a Queue gated on the given session.
func New(sess *session.Context, api campus.AdminAPI, opts ...Option) *Queue {
	q := &Queue{
		session: sess,
		api:     api,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		meter:   metrics.New(false),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// ListPending returns a finite snapshot of submissions awaiting review.
// The list is not restartable; re-fetch to refresh.
func (q *Queue) ListPending(ctx context.Context) ([]campus.Submission, error) {
	if err := q.session.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("campus/review: waiting for session: %w", err)
	}

	subs, err := q.api.ListPending(ctx)
	if err != nil {
		q.logger.Error("review: pending list fetch failed", "error", err)
		return nil, fmt.Errorf("campus/review: list pending: %w", err)
	}
	return subs, nil
}

// Open fetches the detail view for the given submission and makes it the
// current one. If the admin navigates to another submission before the
// fetch completes, the result is discarded and ErrStale returned.
func (q *Queue) Open(ctx context.Context, id int64) (campus.SubmissionDetail, error) {
	if err := q.session.WaitReady(ctx); err != nil {
		return campus.SubmissionDetail{}, fmt.Errorf("campus/review: waiting for session: %w", err)
	}

	q.mu.Lock()
	q.target = id
	q.mu.Unlock()

	detail, err := q.api.Detail(ctx, id)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.target != id {
		q.logger.Debug("review: dropping stale detail response",
			"submission_id", id,
			"current_id", q.target)
		return campus.SubmissionDetail{}, ErrStale
	}
	if err != nil {
		return campus.SubmissionDetail{}, fmt.Errorf("campus/review: open submission %d: %w", id, err)
	}

	q.detail = &detail
	return detail, nil
}

// Close forgets the open detail view, e.g. when navigating back to the
// queue list.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.target = 0
	q.detail = nil
}

// Current returns the last applied detail view, if one is open.
func (q *Queue) Current() (campus.SubmissionDetail, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.detail == nil {
		return campus.SubmissionDetail{}, false
	}
	return *q.detail, true
}

// Approve transitions a pending submission to approved. ErrConflict means
// the queue view was stale and the submission is no longer pending: the
// caller must re-fetch and inform the admin rather than silently succeed.
func (q *Queue) Approve(ctx context.Context, id int64) error {
	if err := q.session.WaitReady(ctx); err != nil {
		return fmt.Errorf("campus/review: waiting for session: %w", err)
	}

	if err := q.api.Approve(ctx, id); err != nil {
		q.recordAction("approve", id, err)
		return fmt.Errorf("campus/review: approve submission %d: %w", id, err)
	}

	q.recordAction("approve", id, nil)
	return nil
}

// Reject transitions a pending submission to rejected with the given
// reason. An empty reason fails with ErrValidation before any network
// call; staleness surfaces as ErrConflict like Approve.
func (q *Queue) Reject(ctx context.Context, id int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("campus/review: rejection reason is required: %w", campus.ErrValidation)
	}

	if err := q.session.WaitReady(ctx); err != nil {
		return fmt.Errorf("campus/review: waiting for session: %w", err)
	}

	if err := q.api.Reject(ctx, id, reason); err != nil {
		q.recordAction("reject", id, err)
		return fmt.Errorf("campus/review: reject submission %d: %w", id, err)
	}

	q.recordAction("reject", id, nil)
	return nil
}

// AuditLog returns the ordered review trail of a submission. The trail is
// append-only and read-only for the client.
func (q *Queue) AuditLog(ctx context.Context, id int64) ([]campus.ReviewEvent, error) {
	if err := q.session.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("campus/review: waiting for session: %w", err)
	}

	events, err := q.api.AuditLog(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("campus/review: audit log for submission %d: %w", id, err)
	}
	return events, nil
}

func (q *Queue) recordAction(action string, id int64, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, campus.ErrConflict):
		outcome = "conflict"
		q.logger.Debug("review: submission no longer pending",
			"action", action,
			"submission_id", id)
	case err != nil:
		outcome = "error"
		q.logger.Error("review: action failed",
			"action", action,
			"submission_id", id,
			"error", err)
	}
	q.meter.RecordReviewAction(action, outcome)

	if q.trail == nil {
		return
	}
	ev := audit.Event{Action: action, SubmissionID: id, Result: outcome}
	if snap := q.session.Snapshot(); snap.Identity != nil {
		ev.Actor = snap.Identity.Email
	}
	if err != nil {
		ev.Error = err.Error()
	}
	q.trail.Log(ev)
}
