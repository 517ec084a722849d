// Package service implements account, session and profile business logic on
// top of the credential store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/repository"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("email or username already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrUserNotFound       = errors.New("user not found")
)

func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// withStoreTimeout bounds store access so a stalled database fails the
// request instead of hanging it.
func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// recordAudit writes an audit entry outside any transaction. Failures are
// logged and never fail the caller.
func recordAudit(ctx context.Context, store repository.CredentialStore, userID *int64, action string, client model.ClientInfo, metadata any) {
	if err := store.InsertAuditLog(ctx, userID, action, client, metadata); err != nil {
		slog.Warn("audit log insert failed", "action", action, "error", err)
	}
}
