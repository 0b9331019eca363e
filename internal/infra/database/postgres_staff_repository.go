// internal/infra/database/postgres_staff_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shift_escalation_engine/internal/domain/staff"

	"github.com/google/uuid"
)

// Custom errors
var ErrStaffNotFound = fmt.Errorf("staff member not found")
var ErrDuplicatePushChatID = fmt.Errorf("staff member with this push chat id already exists")

type PostgresStaffRepository struct {
	db *sql.DB
}

func NewPostgresStaffRepository(db *sql.DB) *PostgresStaffRepository {
	return &PostgresStaffRepository{db: db}
}

func (r *PostgresStaffRepository) Create(ctx context.Context, s *staff.Staff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `INSERT INTO staff_members (id, organization_id, first_name, last_name, push_chat_id, phone_number, policy_id, is_active)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.OrganizationID, s.FirstName, s.LastName,
		s.PushChatID, s.PhoneNumber, s.PolicyID, s.IsActive).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "staff_members_push_chat_id_key") {
			return ErrDuplicatePushChatID
		}
		return fmt.Errorf("error creating staff member: %w", err)
	}
	return nil
}

func (r *PostgresStaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*staff.Staff, error) {
	query := `SELECT id, organization_id, first_name, last_name, push_chat_id, phone_number, policy_id, is_active, created_at, updated_at
               FROM staff_members WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresStaffRepository) GetByPushChatID(ctx context.Context, chatID int64) (*staff.Staff, error) {
	query := `SELECT id, organization_id, first_name, last_name, push_chat_id, phone_number, policy_id, is_active, created_at, updated_at
               FROM staff_members WHERE push_chat_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, chatID))
}

func (r *PostgresStaffRepository) Update(ctx context.Context, s *staff.Staff) error {
	query := `UPDATE staff_members
               SET first_name = $1, last_name = $2, push_chat_id = $3, phone_number = $4, policy_id = $5, is_active = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.FirstName, s.LastName, s.PushChatID, s.PhoneNumber, s.PolicyID, s.IsActive, s.ID).
		Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrStaffNotFound
		}
		return fmt.Errorf("error updating staff member: %w", err)
	}
	return nil
}

func (r *PostgresStaffRepository) ListActive(ctx context.Context, organizationID uuid.UUID) ([]*staff.Staff, error) {
	query := `SELECT id, organization_id, first_name, last_name, push_chat_id, phone_number, policy_id, is_active, created_at, updated_at
               FROM staff_members
               WHERE organization_id = $1 AND is_active = TRUE
               ORDER BY first_name, last_name`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error listing active staff: %w", err)
	}
	defer rows.Close()

	members := make([]*staff.Staff, 0)
	for rows.Next() {
		s := &staff.Staff{}
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.FirstName, &s.LastName, &s.PushChatID,
			&s.PhoneNumber, &s.PolicyID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning staff member: %w", err)
		}
		members = append(members, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staff members: %w", err)
	}
	return members, nil
}

func (r *PostgresStaffRepository) scanOne(row *sql.Row) (*staff.Staff, error) {
	s := &staff.Staff{}
	err := row.Scan(&s.ID, &s.OrganizationID, &s.FirstName, &s.LastName, &s.PushChatID,
		&s.PhoneNumber, &s.PolicyID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("error getting staff member: %w", err)
	}
	return s, nil
}
