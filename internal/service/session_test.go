package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/outrclub/outr-api/internal/crypto"
	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/repository"
	"github.com/outrclub/outr-api/internal/repository/repotest"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newClockedSessions(t *testing.T) (*SessionManager, *repository.Store, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Now().UTC().Truncate(time.Second)}
	store := repository.NewStore(repotest.NewDB(t), repository.DialectSQLite).WithClock(clock.now)
	issuer := crypto.NewTokenIssuer(testSecret).WithClock(clock.now)
	return NewSessionManager(store, issuer, testTTL, time.Second).WithClock(clock.now), store, clock
}

func TestSessionManager_StartAndLookup(t *testing.T) {
	m, store, clock := newClockedSessions(t)
	ctx := context.Background()
	user, err := store.InsertUser(ctx, "a@x.com", "alice", "hash")
	require.NoError(t, err)

	token, sess, err := m.Start(ctx, user, testClient)
	require.NoError(t, err)
	require.Equal(t, crypto.HashToken(token), sess.TokenHash)
	require.True(t, sess.ExpiresAt.Equal(clock.t.Add(testTTL)))

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, sess.ID, claims.SessionID())

	got, err := m.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, testClient.UserAgent, got.UserAgent)

	// The token and its session expire together.
	clock.t = clock.t.Add(testTTL)
	got, err = m.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, got)
	_, err = m.Authenticate(ctx, token)
	require.ErrorIs(t, err, crypto.ErrInvalidToken)
}

func TestSessionManager_TokenTTLBoundary(t *testing.T) {
	m, store, clock := newClockedSessions(t)
	ctx := context.Background()
	user, err := store.InsertUser(ctx, "a@x.com", "alice", "hash")
	require.NoError(t, err)

	token, _, err := m.Start(ctx, user, testClient)
	require.NoError(t, err)
	issuedAt := clock.t

	clock.t = issuedAt.Add(6 * 24 * time.Hour)
	_, err = m.Authenticate(ctx, token)
	require.NoError(t, err, "accepted at T+6d")

	clock.t = issuedAt.Add(8 * 24 * time.Hour)
	_, err = m.Verify(token)
	require.ErrorIs(t, err, crypto.ErrInvalidToken, "rejected at T+8d")
}

func TestSessionManager_TouchUpdatesLastUsed(t *testing.T) {
	m, store, clock := newClockedSessions(t)
	ctx := context.Background()
	user, err := store.InsertUser(ctx, "a@x.com", "alice", "hash")
	require.NoError(t, err)

	token, sess, err := m.Start(ctx, user, testClient)
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	_, err = m.Authenticate(ctx, token)
	require.NoError(t, err)

	got, err := m.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, got.LastUsedAt.Equal(clock.t))
}

func TestSessionManager_RejectsForeignSession(t *testing.T) {
	m, store, clock := newClockedSessions(t)
	ctx := context.Background()
	alice, err := store.InsertUser(ctx, "a@x.com", "alice", "hash")
	require.NoError(t, err)
	bob, err := store.InsertUser(ctx, "b@x.com", "bob", "hash")
	require.NoError(t, err)

	_, sess, err := m.Start(ctx, alice, testClient)
	require.NoError(t, err)

	// A token naming alice's session but issued for bob must not authenticate.
	forged, err := crypto.NewTokenIssuer(testSecret).WithClock(clock.now).Issue(crypto.Identity{
		UserID:    bob.ID,
		SessionID: sess.ID,
	}, testTTL)
	require.NoError(t, err)

	_, err = m.Authenticate(ctx, forged)
	require.ErrorIs(t, err, crypto.ErrInvalidToken)
}

func TestSessionManager_RevokeIsIdempotent(t *testing.T) {
	m, store, _ := newClockedSessions(t)
	ctx := context.Background()
	user, err := store.InsertUser(ctx, "a@x.com", "alice", "hash")
	require.NoError(t, err)

	_, sess, err := m.Start(ctx, user, testClient)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, sess.ID))
	require.NoError(t, m.Revoke(ctx, sess.ID))
	require.NoError(t, m.Revoke(ctx, "never-existed"))

	got, err := m.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSessionManager_RevokeAllAndSweep(t *testing.T) {
	m, store, clock := newClockedSessions(t)
	ctx := context.Background()
	user, err := store.InsertUser(ctx, "a@x.com", "alice", "hash")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := m.Start(ctx, user, testClient)
		require.NoError(t, err)
	}
	n, err := m.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	_, err = m.Create(ctx, "old", user.ID, "h-old", model.ClientInfo{})
	require.NoError(t, err)
	clock.t = clock.t.Add(testTTL / 2)
	_, err = m.Create(ctx, "new", user.ID, "h-new", model.ClientInfo{})
	require.NoError(t, err)

	clock.t = clock.t.Add(testTTL/2 + time.Second)
	n, err = m.SweepExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := m.Lookup(ctx, "new")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestSessionManager_RunStopsOnCancel(t *testing.T) {
	m, _, _ := newClockedSessions(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
