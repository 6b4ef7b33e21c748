// Package events defines the typed product lifecycle events emitted by the
// product module.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
	"github.com/shopspring/decimal"
)

// ProductCreatedEvent is emitted when a new product is created.
type ProductCreatedEvent struct {
	EventID   string          `json:"event_id"`
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProductCreatedV1 is the typed event definition for product creation.
// Subject: events.product.v1.product-created
var ProductCreatedV1 = helper.EventDefinition[ProductCreatedEvent](
	"product", "ProductCreated", "v1",
)

// ProductUpdatedEvent is emitted when a product's fields change.
type ProductUpdatedEvent struct {
	EventID   string    `json:"event_id"`
	ProductID uint      `json:"product_id"`
	Fields    []string  `json:"fields"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductUpdatedV1 is the typed event definition for product updates.
// Subject: events.product.v1.product-updated
var ProductUpdatedV1 = helper.EventDefinition[ProductUpdatedEvent](
	"product", "ProductUpdated", "v1",
)

// ProductDeletedEvent is emitted when a product is soft-deleted.
type ProductDeletedEvent struct {
	EventID   string    `json:"event_id"`
	ProductID uint      `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ProductDeletedV1 is the typed event definition for product soft deletion.
// Subject: events.product.v1.product-deleted
var ProductDeletedV1 = helper.EventDefinition[ProductDeletedEvent](
	"product", "ProductDeleted", "v1",
)
