package integration

import "context"

type Repo interface {
	Create(ctx context.Context, i *Integration) error
	ListByCheck(ctx context.Context, checkID int64) ([]*Integration, error)
	// ListEnabledForCheck is the dispatcher's read path: enabled rules only.
	ListEnabledForCheck(ctx context.Context, checkID int64) ([]*Integration, error)
	Delete(ctx context.Context, id int64) error
}
