package postgres

import (
	"context"
	"fmt"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/integration"
)

var _ integration.Repo = (*IntegrationRepoImpl)(nil)

type IntegrationRepoImpl struct{ db *DB }

func NewIntegrationRepo(db *DB) *IntegrationRepoImpl { return &IntegrationRepoImpl{db: db} }

const (
	qIntegrationInsert = `
INSERT INTO integrations (check_id, type, name, target, notify_on, enabled)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at;`

	qIntegrationsByCheck = `
SELECT id, check_id, type, name, target, notify_on, enabled, created_at
FROM integrations
WHERE check_id = $1
ORDER BY id;`

	qIntegrationsEnabled = `
SELECT id, check_id, type, name, target, notify_on, enabled, created_at
FROM integrations
WHERE check_id = $1 AND enabled = TRUE
ORDER BY id;`

	qIntegrationDelete = `DELETE FROM integrations WHERE id = $1;`
)

func (r *IntegrationRepoImpl) Create(ctx context.Context, i *integration.Integration) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	notifyOn := make([]string, 0, len(i.NotifyOn))
	for _, s := range i.NotifyOn {
		notifyOn = append(notifyOn, string(s))
	}
	return r.db.Pool.QueryRow(ctx, qIntegrationInsert,
		i.CheckID, i.Type, i.Name, i.Target, notifyOn, i.Enabled,
	).Scan(&i.ID, &i.CreatedAt)
}

func (r *IntegrationRepoImpl) list(ctx context.Context, q string, checkID int64) ([]*integration.Integration, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, q, checkID)
	if err != nil {
		return nil, fmt.Errorf("query integrations: %w", err)
	}
	defer rows.Close()

	var out []*integration.Integration
	for rows.Next() {
		var (
			i        integration.Integration
			notifyOn []string
		)
		if err := rows.Scan(&i.ID, &i.CheckID, &i.Type, &i.Name, &i.Target, &notifyOn, &i.Enabled, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		i.NotifyOn = make([]check.Status, 0, len(notifyOn))
		for _, s := range notifyOn {
			i.NotifyOn = append(i.NotifyOn, check.Status(s))
		}
		out = append(out, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *IntegrationRepoImpl) ListByCheck(ctx context.Context, checkID int64) ([]*integration.Integration, error) {
	return r.list(ctx, qIntegrationsByCheck, checkID)
}

func (r *IntegrationRepoImpl) ListEnabledForCheck(ctx context.Context, checkID int64) ([]*integration.Integration, error) {
	return r.list(ctx, qIntegrationsEnabled, checkID)
}

func (r *IntegrationRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qIntegrationDelete, id)
	if err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
