// Package product holds the catalog core: the Product entity, the Store port
// and its GORM implementation, and the Service that enforces the product
// lifecycle rules.
package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a product.
type Status string

const (
	// StatusActive products are visible to every catalog read.
	StatusActive Status = "active"
	// StatusDeleted products were soft-deleted and are only reachable through
	// bulk validation.
	StatusDeleted Status = "deleted"
)

// Product represents a product in the catalog.
type Product struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"size:1000" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"price"`
	Available   bool            `gorm:"not null;default:true;index" json:"available"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TableName returns the table name for Product model.
func (Product) TableName() string {
	return "products"
}

// Status reports whether the product is active or soft-deleted.
func (p Product) Status() Status {
	if p.Available {
		return StatusActive
	}
	return StatusDeleted
}

// CreateInput carries the fields accepted when creating a product.
type CreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

// Patch is a partial update. Nil fields are left unchanged.
// It has no ID field: updates never change the primary key.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil
}

// Pagination selects a 1-based page of at most Limit products.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the number of rows skipped before the page starts.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta describes the full result set independent of the returned slice.
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"lastPage"`
}

// Page is one page of active products.
type Page struct {
	Data []Product `json:"data"`
	Meta PageMeta  `json:"meta"`
}
