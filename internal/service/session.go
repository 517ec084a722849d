package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/outrclub/outr-api/internal/crypto"
	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/repository"
)

// SessionManager ties issued bearer tokens to server-side session rows so
// they can be revoked before they expire.
type SessionManager struct {
	store        repository.CredentialStore
	issuer       *crypto.TokenIssuer
	ttl          time.Duration
	storeTimeout time.Duration
	now          func() time.Time
}

// NewSessionManager creates a SessionManager. Tokens and sessions share ttl.
func NewSessionManager(store repository.CredentialStore, issuer *crypto.TokenIssuer, ttl, storeTimeout time.Duration) *SessionManager {
	return &SessionManager{
		store:        store,
		issuer:       issuer,
		ttl:          ttl,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// WithClock returns a copy of the manager that reads time from now.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	c := *m
	c.now = now
	return &c
}

// Start issues a token for user and records its session.
func (m *SessionManager) Start(ctx context.Context, user *model.User, client model.ClientInfo) (string, *model.Session, error) {
	id := uuid.NewString()

	token, err := m.issuer.Issue(crypto.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		SessionID: id,
	}, m.ttl)
	if err != nil {
		return "", nil, err
	}

	sess, err := m.Create(ctx, id, user.ID, crypto.HashToken(token), client)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Create stores a session that expires one ttl from now.
func (m *SessionManager) Create(ctx context.Context, id string, userID int64, tokenHash string, client model.ClientInfo) (*model.Session, error) {
	ctx, cancel := withStoreTimeout(ctx, m.storeTimeout)
	defer cancel()

	sess := &model.Session{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Lookup returns the session, or nil if it is absent or expired.
func (m *SessionManager) Lookup(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := withStoreTimeout(ctx, m.storeTimeout)
	defer cancel()

	sess, err := m.store.FindSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// Touch refreshes the session's last-used time. Failures are only logged.
func (m *SessionManager) Touch(ctx context.Context, id string) {
	ctx, cancel := withStoreTimeout(ctx, m.storeTimeout)
	defer cancel()

	if err := m.store.TouchSession(ctx, id); err != nil {
		slog.Warn("session touch failed", "session_id", id, "error", err)
	}
}

// Revoke deletes a session. Revoking an absent session is not an error.
func (m *SessionManager) Revoke(ctx context.Context, id string) error {
	ctx, cancel := withStoreTimeout(ctx, m.storeTimeout)
	defer cancel()

	_, err := m.store.DeleteSession(ctx, id)
	return err
}

// RevokeAll deletes every session of userID and returns how many there were.
func (m *SessionManager) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := withStoreTimeout(ctx, m.storeTimeout)
	defer cancel()

	return m.store.DeleteSessionsForUser(ctx, userID)
}

// Authenticate verifies token and requires its session to still exist and
// belong to the token's user. The session is touched on success.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (*crypto.Claims, error) {
	claims, err := m.issuer.Verify(token)
	if err != nil {
		return nil, err
	}

	sess, err := m.Lookup(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.ValidAt(m.now()) || sess.UserID != claims.UserID || sess.TokenHash != crypto.HashToken(token) {
		return nil, crypto.ErrInvalidToken
	}

	m.Touch(ctx, sess.ID)
	return claims, nil
}

// Verify checks a token's signature and expiry without consulting the store.
func (m *SessionManager) Verify(token string) (*crypto.Claims, error) {
	return m.issuer.Verify(token)
}

// SweepExpired deletes expired sessions.
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	ctx, cancel := withStoreTimeout(ctx, m.storeTimeout)
	defer cancel()

	return m.store.SweepExpiredSessions(ctx)
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.SweepExpired(ctx)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions swept", "removed", n)
			}
		}
	}
}
