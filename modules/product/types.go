package product

import (
	"encoding/json"
	"time"

	domain "github.com/example/product-catalog/domain/product"
	"github.com/shopspring/decimal"
)

// CreateProductRequest is the create_product payload.
type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"max=1000"`
	Price       *decimal.Decimal `json:"price" validate:"required,price"`
}

// FindAllProductRequest is the find_all_product payload.
// Zero values fall back to the default page and limit. Limit is capped at 100.
type FindAllProductRequest struct {
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

// FindProductRequest is the find_product_by_id payload.
type FindProductRequest struct {
	ID uint `json:"id" validate:"required"`
}

// UpdateProductRequest is the update_product_by_id payload. ID addresses the
// product and is never written.
type UpdateProductRequest struct {
	ID          uint             `json:"id" validate:"required"`
	Name        *string          `json:"name,omitempty" validate:"omitnil,min=1,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitnil,max=1000"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitnil,price"`
}

// DeleteProductRequest is the delete_product_by_id payload.
type DeleteProductRequest struct {
	ID uint `json:"id" validate:"required"`
}

// ValidateProductsRequest is the validate_products payload.
type ValidateProductsRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,required"`
}

// ProductResponse represents a product in responses.
type ProductResponse struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Available   bool        `json:"available"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ListProductsResponse is the find_all_product response.
type ListProductsResponse struct {
	Data []ProductResponse `json:"data"`
	Meta domain.PageMeta   `json:"meta"`
}

// toProductResponse converts a Product entity to a ProductResponse.
func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       json.Number(p.Price.String()),
		Available:   p.Available,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out
}
