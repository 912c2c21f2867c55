package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/adnfaris/tripdana/internal/models"
)

// AppendAudit inserts an audit entry. The table is append-only; there are no
// update or delete operations.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	oldValues, err := marshalSnapshot(entry.OldValues)
	if err != nil {
		return err
	}
	newValues, err := marshalSnapshot(entry.NewValues)
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO audit_logs (id, trip_id, user_id, action, subject_kind, subject_id,
			old_values, new_values, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TripID, entry.UserID, entry.Action,
		entry.Subject.Kind, entry.Subject.ID,
		oldValues, newValues, entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit retrieves the newest audit entries for a trip.
func (s *SQLiteStore) ListAudit(ctx context.Context, tripID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, trip_id, user_id, action, subject_kind, subject_id,
			old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs WHERE trip_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		var oldValues, newValues sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.TripID, &entry.UserID, &entry.Action,
			&entry.Subject.Kind, &entry.Subject.ID,
			&oldValues, &newValues, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := unmarshalSnapshot(oldValues, &entry.OldValues); err != nil {
			return nil, err
		}
		if err := unmarshalSnapshot(newValues, &entry.NewValues); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func marshalSnapshot(values map[string]any) (any, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(b), nil
}

func unmarshalSnapshot(raw sql.NullString, dst *map[string]any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), dst); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return nil
}
