package postgres

import (
	"context"
	"fmt"

	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
)

var _ ping.Repo = (*PingRepoImpl)(nil)

type PingRepoImpl struct{ db *DB }

func NewPingRepo(db *DB) *PingRepoImpl { return &PingRepoImpl{db: db} }

const (
	qPingInsert = `
INSERT INTO pings (check_id, ts, status, http_code, method, url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;`

	qPingsByCheck = `
SELECT id, check_id, ts, status, http_code, method, url
FROM pings
WHERE check_id = $1
ORDER BY ts DESC
LIMIT $2;`
)

func (r *PingRepoImpl) Insert(ctx context.Context, p *ping.Ping) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.db.Pool.QueryRow(ctx, qPingInsert,
		p.CheckID, p.Timestamp, p.Status, p.HTTPCode, p.Method, p.URL,
	).Scan(&p.ID)
}

func (r *PingRepoImpl) ListByCheck(ctx context.Context, checkID int64, limit int) ([]*ping.Ping, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qPingsByCheck, checkID, limit)
	if err != nil {
		return nil, fmt.Errorf("query pings: %w", err)
	}
	defer rows.Close()

	out := make([]*ping.Ping, 0, limit)
	for rows.Next() {
		var p ping.Ping
		if err := rows.Scan(&p.ID, &p.CheckID, &p.Timestamp, &p.Status, &p.HTTPCode, &p.Method, &p.URL); err != nil {
			return nil, fmt.Errorf("scan ping: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
