// Package fake provides a self-contained in-memory backend implementing the
// campus service interfaces for tests and examples.
//
// The fake plays the role of the real platform: it mints signed JWT pairs on
// login, resolves the stored access token back into a profile, and is
// authoritative for the submission invariants (at most one pending
// submission per instructor, approve/reject valid only while pending). Use
// fake.NewBackend in unit tests to avoid network calls.
package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	campus "github.com/campushq/campus-go"
)

const (
	accessTTL  = time.Hour
	refreshTTL = 30 * 24 * time.Hour
)

type account struct {
	id       int64
	email    string
	username string
	password string
	role     campus.Role
	verified bool
}

type record struct {
	owner  *account
	detail campus.SubmissionDetail
}

// Backend implements campus.IdentityAPI, campus.VerificationAPI and
// campus.AdminAPI in memory.
type Backend struct {
	tokens campus.TokenStore
	secret []byte

	mu     sync.Mutex
	nextID int64
	users  map[string]*account
	subs   []*record
	trails map[int64][]campus.ReviewEvent
}

// Option seeds the fake backend.
type Option func(*Backend)

// WithUser adds a user account.
func WithUser(email, username, password string, role campus.Role) Option {
	return func(b *Backend) {
		b.nextID++
		b.users[email] = &account{
			id:       b.nextID,
			email:    email,
			username: username,
			password: password,
			role:     role,
		}
	}
}

// WithVerifiedInstructor adds an instructor account that is already
// verified.
func WithVerifiedInstructor(email, username, password string) Option {
	return func(b *Backend) {
		WithUser(email, username, password, campus.RoleInstructor)(b)
		b.users[email].verified = true
	}
}

// NewBackend creates a fake backend that resolves bearer credentials from
// the given token store, mirroring how the real adapter attaches them to
// requests.
func NewBackend(tokens campus.TokenStore, opts ...Option) *Backend {
	b := &Backend{
		tokens: tokens,
		secret: []byte(uuid.NewString()),
		users:  make(map[string]*account),
		trails: make(map[int64][]campus.ReviewEvent),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// --- IdentityAPI ---

// Login checks the password and mints a fresh signed pair.
func (b *Backend) Login(_ context.Context, email, password string) (campus.CredentialPair, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.users[email]
	if !ok || acct.password != password {
		return campus.CredentialPair{}, fmt.Errorf("campus/fake: login rejected: %w", campus.ErrInvalidCredentials)
	}

	access, err := b.mint(acct, "access", accessTTL)
	if err != nil {
		return campus.CredentialPair{}, err
	}
	refresh, err := b.mint(acct, "refresh", refreshTTL)
	if err != nil {
		return campus.CredentialPair{}, err
	}
	return campus.CredentialPair{Access: access, Refresh: refresh}, nil
}

// Profile resolves the stored access token into an Identity.
func (b *Backend) Profile(ctx context.Context) (campus.Identity, error) {
	acct, err := b.currentAccount(ctx)
	if err != nil {
		return campus.Identity{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return campus.Identity{
		ID:       acct.id,
		Email:    acct.email,
		Username: acct.username,
		Role:     acct.role,
		Verified: acct.verified,
	}, nil
}

// --- VerificationAPI ---

// Status derives the instructor's status view from the latest submission.
func (b *Backend) Status(ctx context.Context) (campus.StatusView, error) {
	acct, err := b.requireRole(ctx, campus.RoleInstructor)
	if err != nil {
		return campus.StatusView{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	view := campus.StatusView{Verified: acct.verified}
	if latest := b.latestOf(acct); latest != nil {
		sub := latest.detail.Submission
		view.Current = &sub
		view.CanResubmit = sub.Status == campus.StatusRejected
	}
	return view, nil
}

// Submit creates a new pending submission for the current instructor.
func (b *Backend) Submit(ctx context.Context, documents []campus.DocumentUpload) error {
	acct, err := b.requireRole(ctx, campus.RoleInstructor)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(documents) == 0 {
		return fmt.Errorf("campus/fake: verification documents are required: %w", campus.ErrValidation)
	}
	if acct.verified {
		return fmt.Errorf("campus/fake: instructor already verified: %w", campus.ErrConflict)
	}
	if latest := b.latestOf(acct); latest != nil && latest.detail.Status == campus.StatusPending {
		return fmt.Errorf("campus/fake: verification already under review: %w", campus.ErrConflict)
	}

	now := time.Now()
	b.nextID++
	detail := campus.SubmissionDetail{
		Submission: campus.Submission{
			ID:              b.nextID,
			Status:          campus.StatusPending,
			InstructorEmail: acct.email,
			CreatedAt:       now,
		},
		InstructorUsername: acct.username,
	}
	for _, doc := range documents {
		b.nextID++
		detail.Documents = append(detail.Documents, campus.Document{
			ID:         b.nextID,
			StorageRef: "https://files.campus.example.com/verification/" + uuid.NewString() + "/" + doc.Filename,
			UploadedAt: now,
		})
	}

	b.subs = append(b.subs, &record{owner: acct, detail: detail})
	b.trails[detail.ID] = append(b.trails[detail.ID], campus.ReviewEvent{
		Actor:  acct.email,
		Action: campus.ActionSubmitted,
		At:     now,
	})
	return nil
}

// --- AdminAPI ---

// ListPending returns summaries of submissions awaiting review, oldest
// first.
func (b *Backend) ListPending(ctx context.Context) ([]campus.Submission, error) {
	if _, err := b.requireRole(ctx, campus.RoleAdmin); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var pending []campus.Submission
	for _, rec := range b.subs {
		if rec.detail.Status == campus.StatusPending {
			pending = append(pending, rec.detail.Submission)
		}
	}
	return pending, nil
}

// Detail returns a submission with its documents.
func (b *Backend) Detail(ctx context.Context, id int64) (campus.SubmissionDetail, error) {
	if _, err := b.requireRole(ctx, campus.RoleAdmin); err != nil {
		return campus.SubmissionDetail{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.find(id)
	if rec == nil {
		return campus.SubmissionDetail{}, fmt.Errorf("campus/fake: submission %d: %w", id, campus.ErrNotFound)
	}

	detail := rec.detail
	detail.Documents = append([]campus.Document(nil), rec.detail.Documents...)
	return detail, nil
}

// Approve marks a pending submission approved and flips the owner's
// verified flag, observed by the owner's next profile or status read.
func (b *Backend) Approve(ctx context.Context, id int64) error {
	admin, err := b.requireRole(ctx, campus.RoleAdmin)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.find(id)
	if rec == nil {
		return fmt.Errorf("campus/fake: submission %d: %w", id, campus.ErrNotFound)
	}
	if rec.detail.Status != campus.StatusPending {
		return fmt.Errorf("campus/fake: only pending submissions can be approved: %w", campus.ErrConflict)
	}

	now := time.Now()
	rec.detail.Status = campus.StatusApproved
	rec.detail.RejectionReason = ""
	rec.detail.ReviewedAt = &now
	rec.owner.verified = true

	b.trails[id] = append(b.trails[id], campus.ReviewEvent{
		Actor:  admin.email,
		Action: campus.ActionApproved,
		At:     now,
	})
	return nil
}

// Reject marks a pending submission rejected with the given reason. The
// rejected record is retained unmodified by later resubmissions.
func (b *Backend) Reject(ctx context.Context, id int64, reason string) error {
	admin, err := b.requireRole(ctx, campus.RoleAdmin)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("campus/fake: rejection reason is required: %w", campus.ErrValidation)
	}

	rec := b.find(id)
	if rec == nil {
		return fmt.Errorf("campus/fake: submission %d: %w", id, campus.ErrNotFound)
	}
	if rec.detail.Status != campus.StatusPending {
		return fmt.Errorf("campus/fake: only pending submissions can be rejected: %w", campus.ErrConflict)
	}

	now := time.Now()
	rec.detail.Status = campus.StatusRejected
	rec.detail.RejectionReason = reason
	rec.detail.ReviewedAt = &now

	b.trails[id] = append(b.trails[id], campus.ReviewEvent{
		Actor:  admin.email,
		Action: campus.ActionRejected,
		Reason: reason,
		At:     now,
	})
	return nil
}

// AuditLog returns the append-only review trail of a submission.
func (b *Backend) AuditLog(ctx context.Context, id int64) ([]campus.ReviewEvent, error) {
	if _, err := b.requireRole(ctx, campus.RoleAdmin); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.find(id) == nil {
		return nil, fmt.Errorf("campus/fake: submission %d: %w", id, campus.ErrNotFound)
	}
	return append([]campus.ReviewEvent(nil), b.trails[id]...), nil
}

// --- internals ---

func (b *Backend) mint(acct *account, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  acct.email,
		"role": string(acct.role),
		"typ":  typ,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("campus/fake: sign token: %w", err)
	}
	return token, nil
}

// currentAccount resolves the bearer credential in the token store, the
// fake's stand-in for reading the Authorization header.
func (b *Backend) currentAccount(ctx context.Context) (*account, error) {
	pair, err := b.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.Parse(pair.Access, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return b.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("campus/fake: bad access token: %w", campus.ErrSessionInvalid)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("campus/fake: bad access token: %w", campus.ErrSessionInvalid)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.users[sub]
	if !ok {
		return nil, fmt.Errorf("campus/fake: unknown subject %q: %w", sub, campus.ErrSessionInvalid)
	}
	return acct, nil
}

func (b *Backend) requireRole(ctx context.Context, role campus.Role) (*account, error) {
	acct, err := b.currentAccount(ctx)
	if err != nil {
		return nil, err
	}
	if acct.role != role {
		return nil, fmt.Errorf("campus/fake: %s role required: %w", role, campus.ErrValidation)
	}
	return acct, nil
}

// latestOf returns the most recent submission of the account, nil if none.
// Callers hold b.mu.
func (b *Backend) latestOf(acct *account) *record {
	for i := len(b.subs) - 1; i >= 0; i-- {
		if b.subs[i].owner == acct {
			return b.subs[i]
		}
	}
	return nil
}

// find returns the record with the given id. Callers hold b.mu.
func (b *Backend) find(id int64) *record {
	for _, rec := range b.subs {
		if rec.detail.ID == id {
			return rec
		}
	}
	return nil
}
