package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/outrclub/outr-api/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// InsertSession stores a new session row.
func (s *Store) InsertSession(ctx context.Context, sess *model.Session) error {
	query := `INSERT INTO sessions (id, user_id, token_hash, ip_address, user_agent, created_at, last_used_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	now := s.timestamp()
	expiresAt := sess.ExpiresAt.UTC().Truncate(time.Second)
	_, err := s.q.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.TokenHash, sess.IPAddress, sess.UserAgent, now, now, expiresAt,
	)
	if err != nil {
		return err
	}

	sess.CreatedAt = now
	sess.LastUsedAt = now
	sess.ExpiresAt = expiresAt
	return nil
}

// FindSession retrieves an unexpired session by id. Expired rows that have not
// been swept yet are reported as not found.
func (s *Store) FindSession(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT id, user_id, token_hash, ip_address, user_agent, created_at, last_used_at, expires_at
		FROM sessions WHERE id = ? AND expires_at > ?`

	sess := &model.Session{}
	err := s.q.QueryRowContext(ctx, query, id, s.timestamp()).Scan(
		&sess.ID, &sess.UserID, &sess.TokenHash, &sess.IPAddress, &sess.UserAgent,
		&sess.CreatedAt, &sess.LastUsedAt, &sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// TouchSession refreshes the session's last-used timestamp.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	query := `UPDATE sessions SET last_used_at = ? WHERE id = ?`
	_, err := s.q.ExecContext(ctx, query, s.timestamp(), id)
	return err
}

// DeleteSession removes a session by id. Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) (int64, error) {
	return s.execCount(ctx, `DELETE FROM sessions WHERE id = ?`, id)
}

// DeleteSessionByTokenHash removes the session issued for the hashed token.
func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	return s.execCount(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
}

// DeleteSessionsForUser removes every session owned by userID.
func (s *Store) DeleteSessionsForUser(ctx context.Context, userID int64) (int64, error) {
	return s.execCount(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
}

// SweepExpiredSessions deletes all sessions whose expiry has passed.
func (s *Store) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.execCount(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.timestamp())
}

func (s *Store) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
