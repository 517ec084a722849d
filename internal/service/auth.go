package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/outrclub/outr-api/internal/crypto"
	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/notify"
	"github.com/outrclub/outr-api/internal/repository"
)

// Failed login reasons recorded in audit metadata.
const (
	reasonUserNotFound    = "user_not_found"
	reasonAccountInactive = "account_inactive"
	reasonInvalidPassword = "invalid_password"
)

// AuthService handles signup, login and logout.
type AuthService struct {
	store        repository.CredentialStore
	hasher       *crypto.PasswordHasher
	sessions     *SessionManager
	notifier     notify.Notifier
	storeTimeout time.Duration
	now          func() time.Time

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService creates a new AuthService. notifier may be nil.
func NewAuthService(store repository.CredentialStore, hasher *crypto.PasswordHasher, sessions *SessionManager, notifier notify.Notifier, storeTimeout time.Duration) *AuthService {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	dummy, err := hasher.Hash("outr.club-timing-equalizer")
	if err != nil {
		slog.Warn("computing dummy password hash", "error", err)
	}

	return &AuthService{
		store:        store,
		hasher:       hasher,
		sessions:     sessions,
		notifier:     notifier,
		storeTimeout: storeTimeout,
		now:          time.Now,
		dummyHash:    dummy,
	}
}

// Signup creates an account, opens its first session and returns the token.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest, client model.ClientInfo) (model.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return model.AuthResponse{}, validationError(err)
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.ensureAvailable(ctx, req.Email, req.Username); err != nil {
		return model.AuthResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return model.AuthResponse{}, validationError(err)
		}
		return model.AuthResponse{}, err
	}

	var user *model.User
	err = s.store.InTx(ctx, func(tx repository.CredentialStore) error {
		var err error
		user, err = tx.InsertUser(ctx, req.Email, req.Username, hash)
		if err != nil {
			return err
		}
		return tx.InsertAuditLog(ctx, &user.ID, model.ActionSignup, client, map[string]string{"username": user.Username})
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return model.AuthResponse{}, ErrConflict
		}
		return model.AuthResponse{}, err
	}

	token, _, err := s.sessions.Start(ctx, user, client)
	if err != nil {
		return model.AuthResponse{}, err
	}

	s.announce(notify.EventSignup, user, client)

	createdAt := user.CreatedAt
	return model.AuthResponse{
		User: model.UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			Username:  user.Username,
			CreatedAt: &createdAt,
		},
		Token: token,
	}, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return ErrConflict
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	if _, err := s.store.FindUserByUsername(ctx, username); err == nil {
		return ErrConflict
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	return nil
}

// Login verifies credentials and opens a new session. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest, client model.ClientInfo) (model.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return model.AuthResponse{}, validationError(err)
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = s.hasher.Verify(req.Password, s.dummyHash)
			recordAudit(ctx, s.store, nil, model.ActionLoginFailed, client, map[string]string{
				"email":  req.Email,
				"reason": reasonUserNotFound,
			})
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, err
	}

	if !user.IsActive {
		recordAudit(ctx, s.store, &user.ID, model.ActionLoginFailed, client, map[string]string{"reason": reasonAccountInactive})
		return model.AuthResponse{}, ErrAccountInactive
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !match {
		recordAudit(ctx, s.store, &user.ID, model.ActionLoginFailed, client, map[string]string{"reason": reasonInvalidPassword})
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	err = s.store.InTx(ctx, func(tx repository.CredentialStore) error {
		if err := tx.UpdateLastLogin(ctx, user.ID); err != nil {
			return err
		}
		return tx.InsertAuditLog(ctx, &user.ID, model.ActionLogin, client, nil)
	})
	if err != nil {
		return model.AuthResponse{}, err
	}

	token, _, err := s.sessions.Start(ctx, user, client)
	if err != nil {
		return model.AuthResponse{}, err
	}

	s.announce(notify.EventLogin, user, client)

	return model.AuthResponse{
		User: model.UserResponse{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
		},
		Token: token,
	}, nil
}

// Logout revokes the session the token was issued with. A missing or
// unverifiable token is a successful no-op.
func (s *AuthService) Logout(ctx context.Context, token string, client model.ClientInfo) error {
	if token == "" {
		return nil
	}

	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.store.InTx(ctx, func(tx repository.CredentialStore) error {
		if _, err := tx.DeleteSessionByTokenHash(ctx, crypto.HashToken(token)); err != nil {
			return err
		}
		return tx.InsertAuditLog(ctx, &claims.UserID, model.ActionLogout, client, nil)
	})
}

// LogoutAll revokes every session of userID and returns how many were open.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64, client model.ClientInfo) (int64, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	var revoked int64
	err := s.store.InTx(ctx, func(tx repository.CredentialStore) error {
		var err error
		revoked, err = tx.DeleteSessionsForUser(ctx, userID)
		if err != nil {
			return err
		}
		return tx.InsertAuditLog(ctx, &userID, model.ActionLogoutAll, client, map[string]int64{"sessions": revoked})
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

// Deactivate disables the account and revokes all of its sessions.
func (s *AuthService) Deactivate(ctx context.Context, userID int64, client model.ClientInfo) error {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.store.InTx(ctx, func(tx repository.CredentialStore) error {
		if _, err := tx.FindUserByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.SetUserActive(ctx, userID, false); err != nil {
			return err
		}
		if _, err := tx.DeleteSessionsForUser(ctx, userID); err != nil {
			return err
		}
		return tx.InsertAuditLog(ctx, &userID, model.ActionAccountDeactivated, client, nil)
	})
}

// Me returns the account view of userID including its profile.
func (s *AuthService) Me(ctx context.Context, userID int64) (model.MeResponse, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.MeResponse{}, ErrUserNotFound
		}
		return model.MeResponse{}, err
	}

	resp := model.MeResponse{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		EmailVerified: user.EmailVerified,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
		LastLoginAt:   user.LastLoginAt,
	}

	profile, err := s.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
		resp.Profile = *profile
	case !errors.Is(err, repository.ErrProfileNotFound):
		return model.MeResponse{}, err
	}

	return resp, nil
}

func (s *AuthService) announce(eventType string, user *model.User, client model.ClientInfo) {
	s.notifier.Notify(notify.Event{
		Type:      eventType,
		Email:     user.Email,
		Username:  user.Username,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Time:      s.now(),
	})
}
