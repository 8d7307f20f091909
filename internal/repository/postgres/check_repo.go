package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
)

var _ check.Repo = (*CheckRepoImpl)(nil)

type CheckRepoImpl struct {
	db *DB
}

func NewCheckRepo(db *DB) *CheckRepoImpl { return &CheckRepoImpl{db: db} }

const checkColumns = `id, name, ping_key, type, period_minutes, cron_expression, grace_minutes,
last_ping, next_due, status, http_url, http_method, http_timeout_sec, created_at, updated_at`

const (
	qCheckInsert = `
INSERT INTO checks (name, ping_key, type, period_minutes, cron_expression, grace_minutes,
                    next_due, status, http_url, http_method, http_timeout_sec)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + checkColumns + `;`

	qCheckByID = `
SELECT ` + checkColumns + `
FROM checks
WHERE id = $1;`

	qCheckByPingKey = `
SELECT ` + checkColumns + `
FROM checks
WHERE ping_key = $1;`

	qCheckList = `
SELECT ` + checkColumns + `
FROM checks
ORDER BY id;`

	qCheckUpdate = `
UPDATE checks
SET name = $2, type = $3, period_minutes = $4, cron_expression = $5, grace_minutes = $6,
    last_ping = $7, next_due = $8, status = $9,
    http_url = $10, http_method = $11, http_timeout_sec = $12,
    updated_at = NOW()
WHERE id = $1;`

	qCheckUpdateStatus = `
UPDATE checks
SET status = $2, updated_at = NOW()
WHERE id = $1;`

	qCheckHeartbeat = `
UPDATE checks
SET last_ping = $2, next_due = $3, status = $4, updated_at = NOW()
WHERE id = $1;`

	qCheckDelete = `DELETE FROM checks WHERE id = $1;`

	qCheckDueProbes = `
SELECT ` + checkColumns + `
FROM checks
WHERE type = 'http_request' AND next_due IS NOT NULL AND next_due <= $1
ORDER BY next_due
LIMIT $2;`
)

func scanCheck(row pgx.Row, c *check.Check) error {
	var (
		httpURL     *string
		httpMethod  *string
		httpTimeout *int
	)
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.PingKey,
		&c.Type,
		&c.PeriodMinutes,
		&c.CronExpression,
		&c.GraceMinutes,
		&c.LastPing,
		&c.NextDue,
		&c.Status,
		&httpURL,
		&httpMethod,
		&httpTimeout,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan check: %w", err)
	}
	if httpURL != nil {
		c.HTTP = &check.HTTPConfig{URL: *httpURL}
		if httpMethod != nil {
			c.HTTP.Method = *httpMethod
		}
		if httpTimeout != nil {
			c.HTTP.TimeoutSec = *httpTimeout
		}
	}
	return nil
}

func httpFields(c *check.Check) (url, method *string, timeout *int) {
	if c.HTTP == nil {
		return nil, nil, nil
	}
	u := c.HTTP.URL
	m := c.HTTP.Method
	t := c.HTTP.TimeoutSec
	return &u, &m, &t
}

func (r *CheckRepoImpl) Create(ctx context.Context, c *check.Check) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	hu, hm, ht := httpFields(c)
	row := r.db.Pool.QueryRow(ctx, qCheckInsert,
		c.Name, c.PingKey, c.Type, c.PeriodMinutes, c.CronExpression, c.GraceMinutes,
		c.NextDue, c.Status, hu, hm, ht,
	)
	return scanCheck(row, c)
}

func (r *CheckRepoImpl) GetByID(ctx context.Context, id int64) (*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c check.Check
	if err := scanCheck(r.db.Pool.QueryRow(ctx, qCheckByID, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CheckRepoImpl) GetByPingKey(ctx context.Context, key string) (*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c check.Check
	if err := scanCheck(r.db.Pool.QueryRow(ctx, qCheckByPingKey, key), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CheckRepoImpl) List(ctx context.Context) ([]*check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qCheckList)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer rows.Close()

	var out []*check.Check
	for rows.Next() {
		var c check.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *CheckRepoImpl) Update(ctx context.Context, c *check.Check) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	hu, hm, ht := httpFields(c)
	cmd, err := r.db.Pool.Exec(ctx, qCheckUpdate,
		c.ID, c.Name, c.Type, c.PeriodMinutes, c.CronExpression, c.GraceMinutes,
		c.LastPing, c.NextDue, c.Status, hu, hm, ht,
	)
	if err != nil {
		return fmt.Errorf("update check: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CheckRepoImpl) UpdateStatus(ctx context.Context, id int64, s check.Status) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qCheckUpdateStatus, id, s)
	if err != nil {
		return fmt.Errorf("update check status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CheckRepoImpl) RecordHeartbeat(ctx context.Context, id int64, lastPing time.Time, nextDue *time.Time, s check.Status) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qCheckHeartbeat, id, lastPing, nextDue, s)
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CheckRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qCheckDelete, id)
	if err != nil {
		return fmt.Errorf("delete check: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CheckRepoImpl) FetchDueProbes(ctx context.Context, now time.Time, limit int) ([]*check.Check, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qCheckDueProbes, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due probes: %w", err)
	}
	defer rows.Close()

	var out []*check.Check
	for rows.Next() {
		var c check.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
