package review

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/session"
	"github.com/campushq/campus-go/tokenstore"
)

type identityStub struct{}

func (identityStub) Login(context.Context, string, string) (campus.CredentialPair, error) {
	return campus.CredentialPair{}, campus.ErrInvalidCredentials
}

func (identityStub) Profile(context.Context) (campus.Identity, error) {
	return campus.Identity{}, campus.ErrUnauthenticated
}

type adminStub struct {
	mu           sync.Mutex
	pending      []campus.Submission
	details      map[int64]campus.SubmissionDetail
	events       map[int64][]campus.ReviewEvent
	approveErr   error
	rejectErr    error
	rejectCalls  int
	approveCalls int
	gates        map[int64]chan struct{} // Detail blocks on the gate for its id
}

func (s *adminStub) ListPending(context.Context) ([]campus.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, nil
}

func (s *adminStub) Detail(_ context.Context, id int64) (campus.SubmissionDetail, error) {
	s.mu.Lock()
	gate := s.gates[id]
	detail, ok := s.details[id]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return campus.SubmissionDetail{}, fmt.Errorf("submission %d: %w", id, campus.ErrNotFound)
	}
	return detail, nil
}

func (s *adminStub) Approve(_ context.Context, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approveCalls++
	return s.approveErr
}

func (s *adminStub) Reject(_ context.Context, _ int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCalls++
	return s.rejectErr
}

func (s *adminStub) AuditLog(_ context.Context, id int64) ([]campus.ReviewEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("submission %d: %w", id, campus.ErrNotFound)
	}
	return ev, nil
}

func readySession(t *testing.T) *session.Context {
	t.Helper()
	sess := session.New(tokenstore.NewMemory(), identityStub{})
	sess.Bootstrap(context.Background())
	return sess
}

func detailFor(id int64) campus.SubmissionDetail {
	return campus.SubmissionDetail{
		Submission: campus.Submission{
			ID:              id,
			Status:          campus.StatusPending,
			InstructorEmail: "ada@campus.example.com",
			CreatedAt:       time.Now(),
		},
		InstructorUsername: "ada",
		Documents: []campus.Document{
			{ID: id*10 + 1, StorageRef: "https://files.campus.example.com/a.pdf", UploadedAt: time.Now()},
		},
	}
}

func TestListPending(t *testing.T) {
	api := &adminStub{pending: []campus.Submission{
		{ID: 1, Status: campus.StatusPending},
		{ID: 2, Status: campus.StatusPending},
	}}
	q := New(readySession(t), api)

	subs, err := q.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(1), subs[0].ID)
}

func TestOpen_AppliesDetail(t *testing.T) {
	api := &adminStub{details: map[int64]campus.SubmissionDetail{7: detailFor(7)}}
	q := New(readySession(t), api)

	detail, err := q.Open(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), detail.ID)
	require.Len(t, detail.Documents, 1)

	current, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, int64(7), current.ID)
}

func TestOpen_NotFound(t *testing.T) {
	api := &adminStub{details: map[int64]campus.SubmissionDetail{}}
	q := New(readySession(t), api)

	_, err := q.Open(context.Background(), 99)
	require.ErrorIs(t, err, campus.ErrNotFound)

	_, ok := q.Current()
	assert.False(t, ok)
}

func TestOpen_StaleResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &adminStub{
		details: map[int64]campus.SubmissionDetail{7: detailFor(7), 8: detailFor(8)},
		gates:   map[int64]chan struct{}{7: gate},
	}
	q := New(readySession(t), api)

	slow := make(chan error, 1)
	go func() {
		_, err := q.Open(context.Background(), 7)
		slow <- err
	}()

	// admin navigates to submission 8 while 7 is still loading
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.target == 7
	}, time.Second, time.Millisecond)

	detail, err := q.Open(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), detail.ID)

	// the slow response for 7 lands now and must be dropped
	close(gate)
	require.ErrorIs(t, <-slow, ErrStale)

	current, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, int64(8), current.ID, "stale response must not overwrite the open view")
}

func TestClose_ForgetsView(t *testing.T) {
	api := &adminStub{details: map[int64]campus.SubmissionDetail{7: detailFor(7)}}
	q := New(readySession(t), api)

	_, err := q.Open(context.Background(), 7)
	require.NoError(t, err)

	q.Close()
	_, ok := q.Current()
	assert.False(t, ok)
}

func TestApprove_StaleQueueViewConflicts(t *testing.T) {
	api := &adminStub{approveErr: fmt.Errorf("not pending: %w", campus.ErrConflict)}
	q := New(readySession(t), api)

	err := q.Approve(context.Background(), 7)
	require.ErrorIs(t, err, campus.ErrConflict)
	assert.Equal(t, 1, api.approveCalls)
}

func TestReject_EmptyReason(t *testing.T) {
	api := &adminStub{}
	q := New(readySession(t), api)

	err := q.Reject(context.Background(), 7, "   ")
	require.ErrorIs(t, err, campus.ErrValidation)
	assert.Zero(t, api.rejectCalls, "validation happens before any network call")
}

func TestReject_PassesReasonThrough(t *testing.T) {
	api := &adminStub{}
	q := New(readySession(t), api)

	require.NoError(t, q.Reject(context.Background(), 7, "blurry ID"))
	assert.Equal(t, 1, api.rejectCalls)
}

func TestAuditLog_PreservesOrder(t *testing.T) {
	base := time.Now()
	api := &adminStub{events: map[int64][]campus.ReviewEvent{7: {
		{Actor: "ada@campus.example.com", Action: campus.ActionSubmitted, At: base},
		{Actor: "root@campus.example.com", Action: campus.ActionRejected, Reason: "blurry ID", At: base.Add(time.Hour)},
	}}}
	q := New(readySession(t), api)

	events, err := q.AuditLog(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, campus.ActionSubmitted, events[0].Action)
	assert.Equal(t, campus.ActionRejected, events[1].Action)
	assert.Equal(t, "blurry ID", events[1].Reason)
}
