package repository_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/repository"
	"github.com/outrclub/outr-api/internal/repository/repotest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore(t *testing.T) (*repository.Store, *clock, *sql.DB) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	db := repotest.NewDB(t)
	return repository.NewStore(db, repository.DialectSQLite).WithClock(c.now), c, db
}

func mustInsertUser(t *testing.T, s repository.CredentialStore, email, username string) *model.User {
	t.Helper()
	u, err := s.InsertUser(context.Background(), email, username, "hash")
	require.NoError(t, err)
	return u
}

func TestInsertAndFindUser(t *testing.T) {
	s, _, _ := newClockedStore(t)
	ctx := context.Background()

	created := mustInsertUser(t, s, "a@x.com", "alice")
	require.NotZero(t, created.ID)
	require.True(t, created.IsActive)

	byEmail, err := s.FindUserByEmail(ctx, "A@X.COM")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
	require.Equal(t, "alice", byEmail.Username)
	require.True(t, byEmail.IsActive)
	require.False(t, byEmail.EmailVerified)
	require.Nil(t, byEmail.LastLoginAt)

	byName, err := s.FindUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, created.ID, byName.ID)

	byID, err := s.FindUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", byID.Email)
}

func TestFindUser_NotFound(t *testing.T) {
	s, _, _ := newClockedStore(t)

	_, err := s.FindUserByEmail(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = s.FindUserByID(context.Background(), 999)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestInsertUser_DuplicateIgnoresCase(t *testing.T) {
	s, _, _ := newClockedStore(t)
	mustInsertUser(t, s, "a@x.com", "alice")

	_, err := s.InsertUser(context.Background(), "A@x.COM", "bob", "hash")
	require.ErrorIs(t, err, repository.ErrDuplicateUser)

	_, err = s.InsertUser(context.Background(), "b@x.com", "Alice", "hash")
	require.ErrorIs(t, err, repository.ErrDuplicateUser)
}

func TestUpdateLastLoginAndSetActive(t *testing.T) {
	s, c, _ := newClockedStore(t)
	ctx := context.Background()
	u := mustInsertUser(t, s, "a@x.com", "alice")

	c.advance(time.Hour)
	require.NoError(t, s.UpdateLastLogin(ctx, u.ID))
	require.NoError(t, s.SetUserActive(ctx, u.ID, false))

	got, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, got.LastLoginAt.Equal(c.t))
	require.False(t, got.IsActive)
}

func TestUpsertProfile_ReplacesSingleRow(t *testing.T) {
	s, _, db := newClockedStore(t)
	ctx := context.Background()
	u := mustInsertUser(t, s, "a@x.com", "alice")

	_, err := s.GetProfile(ctx, u.ID)
	require.ErrorIs(t, err, repository.ErrProfileNotFound)

	first, err := s.UpsertProfile(ctx, u.ID, model.ProfileUpdateRequest{Bio: "first", Location: "Riga"})
	require.NoError(t, err)
	require.Equal(t, "first", *first.Bio)
	require.Equal(t, "Riga", *first.Location)
	require.Nil(t, first.Website)

	second, err := s.UpsertProfile(ctx, u.ID, model.ProfileUpdateRequest{Bio: "second"})
	require.NoError(t, err)
	require.Equal(t, "second", *second.Bio)
	require.Nil(t, second.Location, "upsert replaces every field")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_profiles WHERE user_id = ?`, u.ID).Scan(&n))
	require.Equal(t, 1, n)
}

func TestSessionLifecycle(t *testing.T) {
	s, c, _ := newClockedStore(t)
	ctx := context.Background()
	u := mustInsertUser(t, s, "a@x.com", "alice")

	sess := &model.Session{
		ID:        "s-1",
		UserID:    u.ID,
		TokenHash: "hash-1",
		IPAddress: "10.0.0.1",
		UserAgent: "test",
		ExpiresAt: c.t.Add(time.Hour),
	}
	require.NoError(t, s.InsertSession(ctx, sess))

	got, err := s.FindSession(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.Equal(t, "hash-1", got.TokenHash)
	require.True(t, got.ExpiresAt.Equal(c.t.Add(time.Hour)))

	c.advance(10 * time.Minute)
	require.NoError(t, s.TouchSession(ctx, "s-1"))
	got, err = s.FindSession(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, got.LastUsedAt.Equal(c.t))

	c.advance(50 * time.Minute)
	_, err = s.FindSession(ctx, "s-1")
	require.ErrorIs(t, err, repository.ErrSessionNotFound, "session at its expiry instant is no longer valid")
}

func TestDeleteSessions(t *testing.T) {
	s, c, _ := newClockedStore(t)
	ctx := context.Background()
	alice := mustInsertUser(t, s, "a@x.com", "alice")
	bob := mustInsertUser(t, s, "b@x.com", "bob")

	for _, sess := range []*model.Session{
		{ID: "a1", UserID: alice.ID, TokenHash: "ha1", ExpiresAt: c.t.Add(time.Hour)},
		{ID: "a2", UserID: alice.ID, TokenHash: "ha2", ExpiresAt: c.t.Add(time.Hour)},
		{ID: "a3", UserID: alice.ID, TokenHash: "ha3", ExpiresAt: c.t.Add(time.Hour)},
		{ID: "b1", UserID: bob.ID, TokenHash: "hb1", ExpiresAt: c.t.Add(time.Hour)},
	} {
		require.NoError(t, s.InsertSession(ctx, sess))
	}

	n, err := s.DeleteSession(ctx, "a1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.DeleteSession(ctx, "a1")
	require.NoError(t, err, "deleting a missing session is not an error")
	require.EqualValues(t, 0, n)

	n, err = s.DeleteSessionByTokenHash(ctx, "ha2")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.DeleteSessionsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.FindSession(ctx, "b1")
	require.NoError(t, err, "other users' sessions are untouched")
}

func TestSweepExpiredSessions(t *testing.T) {
	s, c, _ := newClockedStore(t)
	ctx := context.Background()
	u := mustInsertUser(t, s, "a@x.com", "alice")

	require.NoError(t, s.InsertSession(ctx, &model.Session{ID: "short", UserID: u.ID, TokenHash: "h1", ExpiresAt: c.t.Add(time.Minute)}))
	require.NoError(t, s.InsertSession(ctx, &model.Session{ID: "long", UserID: u.ID, TokenHash: "h2", ExpiresAt: c.t.Add(time.Hour)}))

	n, err := s.SweepExpiredSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	c.advance(2 * time.Minute)
	n, err = s.SweepExpiredSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.FindSession(ctx, "long")
	require.NoError(t, err)
}

func TestAuditLogs(t *testing.T) {
	s, c, db := newClockedStore(t)
	ctx := context.Background()
	u := mustInsertUser(t, s, "a@x.com", "alice")
	client := model.ClientInfo{IP: "10.0.0.1", UserAgent: "curl"}

	require.NoError(t, s.InsertAuditLog(ctx, nil, model.ActionLoginFailed, client, map[string]string{"reason": "user_not_found"}))
	for _, action := range []string{model.ActionSignup, model.ActionLogin, model.ActionLogout} {
		c.advance(time.Second)
		require.NoError(t, s.InsertAuditLog(ctx, &u.ID, action, client, nil))
	}

	entries, err := s.ListAuditLogs(ctx, u.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, model.ActionLogout, entries[0].Action)
	require.Equal(t, model.ActionLogin, entries[1].Action)
	require.Equal(t, u.ID, *entries[0].UserID)
	require.Equal(t, "curl", entries[0].UserAgent)
	require.Nil(t, entries[0].Metadata)

	entries, err = s.ListAuditLogs(ctx, u.ID, 10, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.ActionSignup, entries[0].Action)

	var meta string
	require.NoError(t, db.QueryRow(`SELECT metadata FROM audit_logs WHERE user_id IS NULL`).Scan(&meta))
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(meta), &decoded))
	require.Equal(t, "user_not_found", decoded["reason"])
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	s, _, _ := newClockedStore(t)
	ctx := context.Background()

	var userID int64
	err := s.InTx(ctx, func(tx repository.CredentialStore) error {
		u, err := tx.InsertUser(ctx, "a@x.com", "alice", "hash")
		if err != nil {
			return err
		}
		userID = u.ID
		return tx.InsertAuditLog(ctx, &u.ID, model.ActionSignup, model.ClientInfo{}, nil)
	})
	require.NoError(t, err)

	_, err = s.FindUserByID(ctx, userID)
	require.NoError(t, err)
	entries, err := s.ListAuditLogs(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s, _, db := newClockedStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx repository.CredentialStore) error {
		u, err := tx.InsertUser(ctx, "a@x.com", "alice", "hash")
		require.NoError(t, err)
		require.NoError(t, tx.InsertAuditLog(ctx, &u.ID, model.ActionSignup, model.ClientInfo{}, nil))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.FindUserByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound, "user insert must roll back")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM audit_logs`).Scan(&n))
	require.Equal(t, 0, n, "audit insert must roll back")
}

func TestInTx_Nested(t *testing.T) {
	s, _, _ := newClockedStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx repository.CredentialStore) error {
		return tx.InTx(ctx, func(inner repository.CredentialStore) error {
			_, err := inner.InsertUser(ctx, "a@x.com", "alice", "hash")
			return err
		})
	})
	require.NoError(t, err)

	_, err = s.FindUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
}
