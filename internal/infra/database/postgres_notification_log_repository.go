// internal/infra/database/postgres_notification_log_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"shift_escalation_engine/internal/domain/channel"
	"shift_escalation_engine/internal/domain/escalation"

	"github.com/google/uuid"
)

// PostgresNotificationLogRepository persists the append-only audit trail
// of dispatch attempts. Rows are never updated after insert except the
// sent→responded status flip.
type PostgresNotificationLogRepository struct {
	db *sql.DB
}

func NewPostgresNotificationLogRepository(db *sql.DB) *PostgresNotificationLogRepository {
	return &PostgresNotificationLogRepository{db: db}
}

func (r *PostgresNotificationLogRepository) Append(ctx context.Context, entry *escalation.LogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `INSERT INTO notification_log
               (id, organization_id, execution_id, channel, stage, recipient, message, status, sent_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.OrganizationID, entry.ExecutionID,
		entry.Channel, entry.Stage, entry.Recipient, entry.Message, entry.Status, entry.SentAt)
	if err != nil {
		return fmt.Errorf("error appending notification log entry: %w", err)
	}
	return nil
}

func (r *PostgresNotificationLogRepository) CountStageAttempts(ctx context.Context, executionID uuid.UUID, stage int) (int, error) {
	query := `SELECT COUNT(*) FROM notification_log WHERE execution_id = $1 AND stage = $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, executionID, stage).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting stage attempts: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationLogRepository) MarkResponded(ctx context.Context, executionID uuid.UUID, ch channel.Type) (bool, error) {
	query := `UPDATE notification_log SET status = $3
               WHERE id = (SELECT id FROM notification_log
                           WHERE execution_id = $1 AND channel = $2 AND status = $4
                           ORDER BY sent_at DESC, id DESC
                           LIMIT 1)`
	res, err := r.db.ExecContext(ctx, query, executionID, ch, escalation.LogStatusResponded, escalation.LogStatusSent)
	if err != nil {
		return false, fmt.Errorf("error marking log entry responded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading responded result: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresNotificationLogRepository) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]*escalation.LogEntry, error) {
	query := `SELECT id, organization_id, execution_id, channel, stage, recipient, message, status, sent_at
               FROM notification_log
               WHERE execution_id = $1
               ORDER BY sent_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("error listing log entries by execution: %w", err)
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func (r *PostgresNotificationLogRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*escalation.LogEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_log WHERE organization_id = $1`, organizationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting log entries: %w", err)
	}

	query := `SELECT id, organization_id, execution_id, channel, stage, recipient, message, status, sent_at
               FROM notification_log
               WHERE organization_id = $1
               ORDER BY sent_at DESC, id DESC
               LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing log entries by organization: %w", err)
	}
	defer rows.Close()

	entries, err := scanLogEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanLogEntries(rows *sql.Rows) ([]*escalation.LogEntry, error) {
	entries := make([]*escalation.LogEntry, 0)
	for rows.Next() {
		entry := escalation.LogEntry{}
		if err := rows.Scan(&entry.ID, &entry.OrganizationID, &entry.ExecutionID, &entry.Channel,
			&entry.Stage, &entry.Recipient, &entry.Message, &entry.Status, &entry.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning log entry row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log entry rows: %w", err)
	}
	return entries, nil
}
