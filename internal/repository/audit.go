package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/outrclub/outr-api/internal/model"
)

// InsertAuditLog appends an audit entry. userID may be nil for anonymous
// events; metadata, when non-nil, is stored as JSON.
func (s *Store) InsertAuditLog(ctx context.Context, userID *int64, action string, client model.ClientInfo, metadata any) error {
	query := `INSERT INTO audit_logs (user_id, action, ip_address, user_agent, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	var meta sql.NullString
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.q.ExecContext(ctx, query, uid, action, client.IP, client.UserAgent, meta, s.timestamp())
	return err
}

// ListAuditLogs returns a user's audit entries, newest first.
func (s *Store) ListAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]model.AuditLogEntry, error) {
	query := `SELECT id, user_id, action, ip_address, user_agent, metadata, created_at
		FROM audit_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := s.q.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.AuditLogEntry{}
	for rows.Next() {
		var (
			e    model.AuditLogEntry
			uid  sql.NullInt64
			meta sql.NullString
		)
		if err := rows.Scan(&e.ID, &uid, &e.Action, &e.IPAddress, &e.UserAgent, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			id := uid.Int64
			e.UserID = &id
		}
		if meta.Valid {
			e.Metadata = json.RawMessage(meta.String)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
