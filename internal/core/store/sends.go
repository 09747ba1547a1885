package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smsgate/smsgate/internal/core"
)

// DefaultListLimit caps ListSends when no limit is given.
const DefaultListLimit = 50

// RecordSend appends one send outcome. Missing IDs and timestamps are filled in.
func (s *Store) RecordSend(ctx context.Context, rec *core.SendRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if rec == nil {
		return errors.New("send record is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sends (id, request_id, recipient, sender, body_preview, status, message_id, error_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, nullable(rec.RequestID), rec.Recipient, rec.Sender, rec.BodyPreview, string(rec.Status),
		nullable(rec.MessageID), nullable(rec.ErrorCode), rec.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("record send: %w", err)
	}
	return nil
}

// ListSends returns the most recent records, newest first.
func (s *Store) ListSends(ctx context.Context, limit int) ([]core.SendRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, request_id, recipient, sender, body_preview, status, message_id, error_code, created_at
		FROM sends
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sends: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []core.SendRecord
	for rows.Next() {
		var (
			rec       core.SendRecord
			requestID sql.NullString
			messageID sql.NullString
			errorCode sql.NullString
			status    string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &requestID, &rec.Recipient, &rec.Sender, &rec.BodyPreview,
			&status, &messageID, &errorCode, &createdAt); err != nil {
			return nil, fmt.Errorf("scan send: %w", err)
		}
		rec.RequestID = requestID.String
		rec.MessageID = messageID.String
		rec.ErrorCode = errorCode.String
		rec.Status = core.SendStatus(status)
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sends: %w", err)
	}
	return records, nil
}

// PruneSends deletes records created before cutoff and returns how many were removed.
func (s *Store) PruneSends(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM sends WHERE created_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune sends: %w", err)
	}
	return res.RowsAffected()
}

func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
