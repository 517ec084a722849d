package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/outrclub/outr-api/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

const (
	upsertProfileSQLite = `
	INSERT INTO user_profiles (user_id, bio, avatar_url, display_name, location, website, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		bio          = excluded.bio,
		avatar_url   = excluded.avatar_url,
		display_name = excluded.display_name,
		location     = excluded.location,
		website      = excluded.website,
		updated_at   = excluded.updated_at`

	upsertProfileMySQL = `
	INSERT INTO user_profiles (user_id, bio, avatar_url, display_name, location, website, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		bio          = VALUES(bio),
		avatar_url   = VALUES(avatar_url),
		display_name = VALUES(display_name),
		location     = VALUES(location),
		website      = VALUES(website),
		updated_at   = VALUES(updated_at)`
)

// GetProfile retrieves the profile owned by userID.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	query := `SELECT user_id, bio, avatar_url, display_name, location, website, updated_at
		FROM user_profiles WHERE user_id = ?`

	p := &model.Profile{}
	var updatedAt sql.NullTime
	err := s.q.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Bio, &p.AvatarURL, &p.DisplayName, &p.Location, &p.Website, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		p.UpdatedAt = &t
	}
	return p, nil
}

// UpsertProfile creates or replaces the user's profile in one statement and
// returns the stored row. Empty fields are stored as NULL.
func (s *Store) UpsertProfile(ctx context.Context, userID int64, req model.ProfileUpdateRequest) (*model.Profile, error) {
	query := upsertProfileSQLite
	if s.dialect == DialectMySQL {
		query = upsertProfileMySQL
	}

	_, err := s.q.ExecContext(ctx, query,
		userID,
		nullString(req.Bio),
		nullString(req.AvatarURL),
		nullString(req.DisplayName),
		nullString(req.Location),
		nullString(req.Website),
		s.timestamp(),
	)
	if err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
