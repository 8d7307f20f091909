package check

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, c *Check) error
	GetByID(ctx context.Context, id int64) (*Check, error)
	GetByPingKey(ctx context.Context, key string) (*Check, error)
	List(ctx context.Context) ([]*Check, error)
	Update(ctx context.Context, c *Check) error
	UpdateStatus(ctx context.Context, id int64, s Status) error
	// RecordHeartbeat persists the ping-driven fields in one write so a
	// concurrent sweep cannot interleave between them.
	RecordHeartbeat(ctx context.Context, id int64, lastPing time.Time, nextDue *time.Time, s Status) error
	Delete(ctx context.Context, id int64) error
	// FetchDueProbes returns http_request checks whose next due time has
	// arrived, oldest first.
	FetchDueProbes(ctx context.Context, now time.Time, limit int) ([]*Check, error)
}
