package product

import "context"

// Store is the persistence port used by the Service.
//
// Methods with "Active" in their name only see products whose Status is
// StatusActive. FindByIDs, Update and SetAvailable address rows by primary key
// regardless of availability.
type Store interface {
	Create(ctx context.Context, p *Product) error
	CountActive(ctx context.Context) (int64, error)
	ListActive(ctx context.Context, offset, limit int) ([]Product, error)
	FindActiveByID(ctx context.Context, id uint) (*Product, error)
	Update(ctx context.Context, id uint, patch Patch) (*Product, error)
	SetAvailable(ctx context.Context, id uint, available bool) (*Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]Product, error)
}
