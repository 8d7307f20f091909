package ping

import "context"

type Repo interface {
	Insert(ctx context.Context, p *Ping) error
	ListByCheck(ctx context.Context, checkID int64, limit int) ([]*Ping, error)
}
