package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campus "github.com/campushq/campus-go"
	"github.com/campushq/campus-go/tokenstore"
)

// identityStub implements campus.IdentityAPI for testing.
type identityStub struct {
	mu           sync.Mutex
	loginPair    campus.CredentialPair
	loginErr     error
	profile      campus.Identity
	profileErr   error
	profileCalls int
}

func (s *identityStub) Login(_ context.Context, _, _ string) (campus.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginErr != nil {
		return campus.CredentialPair{}, s.loginErr
	}
	return s.loginPair, nil
}

func (s *identityStub) Profile(_ context.Context) (campus.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileCalls++
	if s.profileErr != nil {
		return campus.Identity{}, s.profileErr
	}
	return s.profile, nil
}

func instructorIdentity() campus.Identity {
	return campus.Identity{
		ID:       7,
		Email:    "ada@campus.example.com",
		Username: "ada",
		Role:     campus.RoleInstructor,
	}
}

func TestBootstrap_NoCredential(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	api := &identityStub{}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	require.NoError(t, sess.WaitReady(ctx))
	snap := sess.Snapshot()
	assert.Equal(t, Ready, snap.Readiness)
	assert.Nil(t, snap.Identity)
	assert.Zero(t, api.profileCalls, "no resolution without a credential")
}

func TestBootstrap_ValidCredential(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	snap := sess.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "ada@campus.example.com", snap.Identity.Email)
	assert.Equal(t, campus.RoleInstructor, snap.Identity.Role)
	assert.True(t, snap.Authenticated())
}

func TestBootstrap_RejectedCredential(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "stale", Refresh: "stale"}))
	api := &identityStub{profileErr: fmt.Errorf("resolve: %w", campus.ErrSessionInvalid)}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	snap := sess.Snapshot()
	assert.Equal(t, Ready, snap.Readiness)
	assert.Nil(t, snap.Identity)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, campus.ErrUnauthenticated, "rejected credential must be cleared")
}

// brokenStore fails every Load, like a corrupt credential file.
type brokenStore struct {
	mu         sync.Mutex
	clearCalls int
}

func (s *brokenStore) Save(_ context.Context, _ campus.CredentialPair) error { return nil }

func (s *brokenStore) Load(_ context.Context) (campus.CredentialPair, error) {
	return campus.CredentialPair{}, fmt.Errorf("campus/tokenstore: decode credential: unexpected end of JSON input")
}

func (s *brokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	return nil
}

func TestBootstrap_UnreadableStoreIsCleared(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{}
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	snap := sess.Snapshot()
	assert.Equal(t, Ready, snap.Readiness)
	assert.Nil(t, snap.Identity)
	assert.Zero(t, api.profileCalls, "no resolution against an unreadable credential")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.clearCalls, "unreadable credential must be cleared like a rejected one")
}

func TestBootstrap_RunsOnce(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)
	sess.Bootstrap(ctx)

	assert.Equal(t, 1, api.profileCalls)
}

func TestWaitReady_BlocksUntilBootstrap(t *testing.T) {
	ctx := context.Background()
	sess := New(tokenstore.NewMemory(), &identityStub{})

	blocked := make(chan error, 1)
	go func() { blocked <- sess.WaitReady(ctx) }()

	select {
	case <-blocked:
		t.Fatal("WaitReady returned before bootstrap completed")
	case <-time.After(20 * time.Millisecond):
	}

	sess.Bootstrap(ctx)
	require.NoError(t, <-blocked)
}

func TestWaitReady_HonorsContext(t *testing.T) {
	sess := New(tokenstore.NewMemory(), &identityStub{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, sess.WaitReady(ctx), context.DeadlineExceeded)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	api := &identityStub{
		loginPair: campus.CredentialPair{Access: "new-a", Refresh: "new-r"},
		profile:   instructorIdentity(),
	}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	require.NoError(t, sess.Login(ctx, "ada@campus.example.com", "hunter2"))

	pair, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-a", pair.Access)

	snap := sess.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, int64(7), snap.Identity.ID)
}

func TestLogin_InvalidCredentialsLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	api := &identityStub{loginErr: fmt.Errorf("login: %w", campus.ErrInvalidCredentials)}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	err := sess.Login(ctx, "ada@campus.example.com", "wrong")
	require.ErrorIs(t, err, campus.ErrInvalidCredentials)

	_, loadErr := store.Load(ctx)
	assert.ErrorIs(t, loadErr, campus.ErrUnauthenticated, "token store must stay empty")
	assert.Nil(t, sess.Snapshot().Identity)
}

func TestLogin_ResolveFailureRollsBackStore(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	api := &identityStub{
		loginPair:  campus.CredentialPair{Access: "a", Refresh: "r"},
		profileErr: fmt.Errorf("resolve: %w", campus.ErrTransport),
	}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	err := sess.Login(ctx, "ada@campus.example.com", "hunter2")
	require.Error(t, err)

	_, loadErr := store.Load(ctx)
	assert.ErrorIs(t, loadErr, campus.ErrUnauthenticated, "partially stored pair must be rolled back")
	assert.Nil(t, sess.Snapshot().Identity)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)
	require.NotNil(t, sess.Snapshot().Identity)

	sess.Logout(ctx)
	assert.Nil(t, sess.Snapshot().Identity)

	// logging out while already logged out is fine
	sess.Logout(ctx)
	assert.Nil(t, sess.Snapshot().Identity)
}

func TestRefresh_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	require.NoError(t, sess.Refresh(ctx))
	first := sess.Snapshot()
	require.NoError(t, sess.Refresh(ctx))
	second := sess.Snapshot()

	assert.Equal(t, *first.Identity, *second.Identity)
}

func TestRefresh_PicksUpVerificationChange(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)
	require.False(t, sess.Snapshot().Identity.Verified)

	api.mu.Lock()
	api.profile.Verified = true
	api.mu.Unlock()

	require.NoError(t, sess.Refresh(ctx))
	assert.True(t, sess.Snapshot().Identity.Verified)
}

func TestRefresh_SessionInvalidDropsSession(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)
	require.NotNil(t, sess.Snapshot().Identity)

	api.mu.Lock()
	api.profileErr = fmt.Errorf("resolve: %w", campus.ErrSessionInvalid)
	api.mu.Unlock()

	require.NoError(t, sess.Refresh(ctx), "invalid session is recovered locally, not surfaced")
	assert.Nil(t, sess.Snapshot().Identity)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, campus.ErrUnauthenticated)
}

func TestRefresh_TransportErrorKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	api.mu.Lock()
	api.profileErr = fmt.Errorf("resolve: %w", campus.ErrTransport)
	api.mu.Unlock()

	err := sess.Refresh(ctx)
	require.ErrorIs(t, err, campus.ErrTransport)
	assert.NotNil(t, sess.Snapshot().Identity, "transient failure leaves the session intact")
}

func TestWatch_SignalsTransition(t *testing.T) {
	ctx := context.Background()
	sess := New(tokenstore.NewMemory(), &identityStub{})

	watch := sess.Watch()
	select {
	case <-watch:
		t.Fatal("watch fired before any transition")
	default:
	}

	sess.Bootstrap(ctx)

	select {
	case <-watch:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire on transition")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(ctx, campus.CredentialPair{Access: "a", Refresh: "r"}))
	api := &identityStub{profile: instructorIdentity()}

	sess := New(store, api)
	sess.Bootstrap(ctx)

	snap := sess.Snapshot()
	snap.Identity.Email = "tampered@campus.example.com"

	assert.Equal(t, "ada@campus.example.com", sess.Snapshot().Identity.Email)
}
