package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/outrclub/outr-api/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("email or username already exists")
)

const userColumns = `id, email, username, password_hash, email_verified, is_active, created_at, updated_at, last_login_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.EmailVerified, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email. Columns are declared
// case-insensitive, so the match ignores case.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(s.q.QueryRowContext(ctx, query, email))
}

// FindUserByUsername retrieves a user by username, ignoring case.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return scanUser(s.q.QueryRowContext(ctx, query, username))
}

// FindUserByID retrieves a user by their ID.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(s.q.QueryRowContext(ctx, query, id))
}

// InsertUser creates an active, unverified user and returns the stored row.
func (s *Store) InsertUser(ctx context.Context, email, username, passwordHash string) (*model.User, error) {
	query := `INSERT INTO users (email, username, password_hash, email_verified, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := s.timestamp()
	result, err := s.q.ExecContext(ctx, query, email, username, passwordHash, false, true, now, now)
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UpdateLastLogin stamps the user's last login time.
func (s *Store) UpdateLastLogin(ctx context.Context, userID int64) error {
	query := `UPDATE users SET last_login_at = ? WHERE id = ?`
	_, err := s.q.ExecContext(ctx, query, s.timestamp(), userID)
	return err
}

// SetUserActive activates or deactivates a user.
func (s *Store) SetUserActive(ctx context.Context, userID int64, active bool) error {
	query := `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := s.q.ExecContext(ctx, query, active, s.timestamp(), userID)
	return err
}

// isDuplicateEntryError reports unique-constraint violations from either
// driver (MySQL 1062, SQLite UNIQUE/PRIMARY KEY).
func isDuplicateEntryError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
