package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/repository"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 100
)

// ProfileService manages user profiles and exposes the audit history.
type ProfileService struct {
	store        repository.CredentialStore
	storeTimeout time.Duration
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store repository.CredentialStore, storeTimeout time.Duration) *ProfileService {
	return &ProfileService{store: store, storeTimeout: storeTimeout}
}

// Get returns the user's profile, or nil if none has been written yet.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Update replaces the user's profile and records which fields were set.
func (s *ProfileService) Update(ctx context.Context, userID int64, req model.ProfileUpdateRequest, client model.ClientInfo) (*model.Profile, error) {
	req = trimProfile(req)
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	var profile *model.Profile
	err := s.store.InTx(ctx, func(tx repository.CredentialStore) error {
		var err error
		profile, err = tx.UpsertProfile(ctx, userID, req)
		if err != nil {
			return err
		}
		fields := req.Fields()
		if fields == nil {
			fields = []string{}
		}
		return tx.InsertAuditLog(ctx, &userID, model.ActionProfileUpdate, client, map[string][]string{"fields": fields})
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListAudit returns a page of the user's audit history, newest first, along
// with the effective limit and offset.
func (s *ProfileService) ListAudit(ctx context.Context, userID int64, limit, offset int) (model.AuditListResponse, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	entries, err := s.store.ListAuditLogs(ctx, userID, limit, offset)
	if err != nil {
		return model.AuditListResponse{}, err
	}
	return model.AuditListResponse{Entries: entries, Limit: limit, Offset: offset}, nil
}

func trimProfile(req model.ProfileUpdateRequest) model.ProfileUpdateRequest {
	req.Bio = strings.TrimSpace(req.Bio)
	req.AvatarURL = strings.TrimSpace(req.AvatarURL)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Location = strings.TrimSpace(req.Location)
	req.Website = strings.TrimSpace(req.Website)
	return req
}
