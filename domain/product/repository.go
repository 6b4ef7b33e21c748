package product

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository is the GORM-backed Store.
type Repository struct {
	db *gorm.DB
}

// Compile-time interface check.
var _ Store = (*Repository)(nil)

// NewRepository creates a new product repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// activeScope is the single predicate selecting active products.
func activeScope(db *gorm.DB) *gorm.DB {
	return db.Where("available = ?", true)
}

// Migrate runs database migrations for the product table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Product{})
}

// Create saves a new product to the database.
func (r *Repository) Create(ctx context.Context, product *Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// CountActive returns the number of active products.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Product{}).Scopes(activeScope).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

// ListActive returns up to limit active products after skipping offset rows.
// Results are ordered by ID for consistent pagination.
func (r *Repository) ListActive(ctx context.Context, offset, limit int) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Scopes(activeScope).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindActiveByID retrieves an active product by its ID.
func (r *Repository) FindActiveByID(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).Scopes(activeScope).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// Update applies the non-nil patch fields to the product with the given ID
// and returns the stored row.
func (r *Repository) Update(ctx context.Context, id uint, patch Patch) (*Product, error) {
	changes := make(map[string]any, 3)
	if patch.Name != nil {
		changes["name"] = *patch.Name
	}
	if patch.Description != nil {
		changes["description"] = *patch.Description
	}
	if patch.Price != nil {
		changes["price"] = *patch.Price
	}

	if len(changes) > 0 {
		result := r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Updates(changes)
		if err := result.Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNoRecord
		}
	}

	return r.findByID(ctx, id)
}

// SetAvailable flips the availability flag of the product with the given ID.
func (r *Repository) SetAvailable(ctx context.Context, id uint, available bool) (*Product, error) {
	result := r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("available", available)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to update product availability: %w", err)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNoRecord
	}
	return r.findByID(ctx, id)
}

// FindByIDs returns every product whose ID is in ids, active or not.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) ([]Product, error) {
	products := make([]Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

func (r *Repository) findByID(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}
