// internal/infra/database/postgres_policy_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"shift_escalation_engine/internal/domain/policy"

	"github.com/google/uuid"
)

// Custom errors specific to policy repository
var ErrPolicyNotFound = fmt.Errorf("escalation policy not found")

type PostgresPolicyRepository struct {
	db *sql.DB
}

func NewPostgresPolicyRepository(db *sql.DB) *PostgresPolicyRepository {
	return &PostgresPolicyRepository{db: db}
}

func (r *PostgresPolicyRepository) Create(ctx context.Context, p *policy.Policy) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	stages, err := json.Marshal(p.Stages)
	if err != nil {
		return fmt.Errorf("error encoding policy stages: %w", err)
	}
	query := `INSERT INTO escalation_policies (id, organization_id, name, is_default, is_active, stages, max_retries)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, p.ID, p.OrganizationID, p.Name, p.IsDefault, p.IsActive, stages, p.MaxRetries).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating escalation policy: %w", err)
	}
	return nil
}

func (r *PostgresPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*policy.Policy, error) {
	query := `SELECT id, organization_id, name, is_default, is_active, stages, max_retries, created_at, updated_at
               FROM escalation_policies WHERE id = $1`
	return scanPolicy(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresPolicyRepository) ListDefaults(ctx context.Context, organizationID uuid.UUID) ([]*policy.Policy, error) {
	query := `SELECT id, organization_id, name, is_default, is_active, stages, max_retries, created_at, updated_at
               FROM escalation_policies
               WHERE organization_id = $1 AND is_default = TRUE AND is_active = TRUE
               ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error listing default policies: %w", err)
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *PostgresPolicyRepository) ListActive(ctx context.Context, organizationID uuid.UUID) ([]*policy.Policy, error) {
	query := `SELECT id, organization_id, name, is_default, is_active, stages, max_retries, created_at, updated_at
               FROM escalation_policies
               WHERE organization_id = $1 AND is_active = TRUE
               ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error listing active policies: %w", err)
	}
	defer rows.Close()
	return scanPolicies(rows)
}

// Deactivate is a soft delete. Executions that captured a snapshot before
// deactivation keep running against it.
func (r *PostgresPolicyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE escalation_policies SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error deactivating policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading deactivate result: %w", err)
	}
	if affected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicyFrom(sc rowScanner) (*policy.Policy, error) {
	p := policy.Policy{}
	var stages []byte
	err := sc.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.IsDefault, &p.IsActive, &stages, &p.MaxRetries, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stages, &p.Stages); err != nil {
		return nil, fmt.Errorf("error decoding policy stages: %w", err)
	}
	return &p, nil
}

func scanPolicy(row *sql.Row) (*policy.Policy, error) {
	p, err := scanPolicyFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("error getting escalation policy: %w", err)
	}
	return p, nil
}

func scanPolicies(rows *sql.Rows) ([]*policy.Policy, error) {
	policies := make([]*policy.Policy, 0)
	for rows.Next() {
		p, err := scanPolicyFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning policy row: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", err)
	}
	return policies, nil
}
