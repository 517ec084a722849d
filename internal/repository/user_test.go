package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/outrclub/outr-api/internal/model"
)

func TestSentinelErrors(t *testing.T) {
	if ErrUserNotFound.Error() != "user not found" {
		t.Fatalf("unexpected error message: %s", ErrUserNotFound.Error())
	}
	if ErrDuplicateUser.Error() != "email or username already exists" {
		t.Fatalf("unexpected error message: %s", ErrDuplicateUser.Error())
	}
}

func TestIsDuplicateEntryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrUserNotFound, false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452, Message: "foreign key"}, false},
		{"wrapped mysql duplicate", errors.Join(errors.New("insert"), &mysql.MySQLError{Number: 1062}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateEntryError(tt.err); got != tt.want {
				t.Errorf("isDuplicateEntryError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"MySQL", DialectMySQL, false},
		{"postgres", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDialect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDialect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGooseDialect(t *testing.T) {
	if got := DialectSQLite.gooseDialect(); got != "sqlite3" {
		t.Errorf("gooseDialect() = %q, want sqlite3", got)
	}
	if got := DialectMySQL.gooseDialect(); got != "mysql" {
		t.Errorf("gooseDialect() = %q, want mysql", got)
	}
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewStore(db, DialectMySQL).WithClock(func() time.Time { return fixed }), mock
}

func TestMySQLInsertUser_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'email'"})

	_, err := s.InsertUser(context.Background(), "a@x.com", "alice", "hash")
	require.ErrorIs(t, err, ErrDuplicateUser)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLInsertUser_ReturnsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@x.com", "alice", "hash", false, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	u, err := s.InsertUser(context.Background(), "a@x.com", "alice", "hash")
	require.NoError(t, err)
	require.EqualValues(t, 42, u.ID)
	require.True(t, u.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSetUserActive_UnchangedRowIsNotAnError(t *testing.T) {
	s, mock := newMockStore(t)

	// MySQL reports zero affected rows when the value did not change.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = ?")).
		WithArgs(false, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.SetUserActive(context.Background(), 7, false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpsertProfile_UsesDuplicateKeyUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "bio", "avatar_url", "display_name", "location", "website", "updated_at"}).
			AddRow(int64(7), "hello", nil, nil, nil, nil, updated))

	p, err := s.UpsertProfile(context.Background(), 7, model.ProfileUpdateRequest{Bio: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", *p.Bio)
	require.Nil(t, p.AvatarURL)
	require.NotNil(t, p.UpdatedAt)
	require.True(t, p.UpdatedAt.Equal(updated))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLInTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx CredentialStore) error {
		if _, err := tx.DeleteSessionsForUser(context.Background(), 7); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
