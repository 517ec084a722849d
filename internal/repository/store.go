package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/outrclub/outr-api/internal/model"
)

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CredentialStore persists users, profiles, sessions and audit entries.
// Every operation can run inside a transaction opened with InTx.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByID(ctx context.Context, id int64) (*model.User, error)
	InsertUser(ctx context.Context, email, username, passwordHash string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	SetUserActive(ctx context.Context, userID int64, active bool) error

	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	UpsertProfile(ctx context.Context, userID int64, req model.ProfileUpdateRequest) (*model.Profile, error)

	InsertSession(ctx context.Context, s *model.Session) error
	FindSession(ctx context.Context, id string) (*model.Session, error)
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) (int64, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteSessionsForUser(ctx context.Context, userID int64) (int64, error)
	SweepExpiredSessions(ctx context.Context) (int64, error)

	InsertAuditLog(ctx context.Context, userID *int64, action string, client model.ClientInfo, metadata any) error
	ListAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]model.AuditLogEntry, error)

	// InTx runs fn against a store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx CredentialStore) error) error
}

// Store is the database/sql implementation of CredentialStore.
type Store struct {
	db      *sql.DB
	q       DBTX
	dialect Dialect
	now     func() time.Time
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, q: db, dialect: dialect, now: time.Now}
}

// WithClock returns a copy of the store that reads time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	c := *s
	c.now = now
	return &c
}

// InTx implements CredentialStore. Calls on a store that is already
// transactional join the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx CredentialStore) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		bound := *s
		bound.q = tx
		return fn(&bound)
	})
}

// timestamp is the store's notion of "now": UTC, whole seconds, so stored
// values compare consistently in every dialect.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// withTx begins a transaction, runs fn, and commits on success or rolls back
// on error/panic. Panics are rethrown.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}
