package product

import (
	"context"
	"time"

	domain "github.com/example/product-catalog/domain/product"
	"github.com/example/product-catalog/events"
	"github.com/go-monolith/mono"
	"github.com/google/uuid"
)

// Default pagination applied when the caller leaves page or limit unset.
const (
	defaultPage  = 1
	defaultLimit = 10
)

// createProduct handles the create_product service request.
func (m *ProductModule) createProduct(ctx context.Context, req CreateProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := validate.Struct(req); err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	p, err := m.catalog.Create(ctx, domain.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
	})
	if err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	m.publishCreated(p)
	return toProductResponse(p), nil
}

// findAllProducts handles the find_all_product service request.
func (m *ProductModule) findAllProducts(ctx context.Context, req FindAllProductRequest, _ *mono.Msg) (ListProductsResponse, error) {
	if err := validate.Struct(req); err != nil {
		return ListProductsResponse{}, toRPCError(err)
	}

	pg := domain.Pagination{Page: req.Page, Limit: req.Limit}
	if pg.Page == 0 {
		pg.Page = defaultPage
	}
	if pg.Limit == 0 {
		pg.Limit = defaultLimit
	}

	page, err := m.catalog.List(ctx, pg)
	if err != nil {
		return ListProductsResponse{}, toRPCError(err)
	}

	return ListProductsResponse{
		Data: toProductResponses(page.Data),
		Meta: page.Meta,
	}, nil
}

// findProductByID handles the find_product_by_id service request.
func (m *ProductModule) findProductByID(ctx context.Context, req FindProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := validate.Struct(req); err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	p, err := m.catalog.FindOne(ctx, req.ID)
	if err != nil {
		return ProductResponse{}, toRPCError(err)
	}
	return toProductResponse(p), nil
}

// updateProductByID handles the update_product_by_id service request.
func (m *ProductModule) updateProductByID(ctx context.Context, req UpdateProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := validate.Struct(req); err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	patch := domain.Patch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}

	p, err := m.catalog.Update(ctx, req.ID, patch)
	if err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	if !patch.IsEmpty() {
		m.publishUpdated(p, patch)
	}
	return toProductResponse(p), nil
}

// deleteProductByID handles the delete_product_by_id service request.
func (m *ProductModule) deleteProductByID(ctx context.Context, req DeleteProductRequest, _ *mono.Msg) (ProductResponse, error) {
	if err := validate.Struct(req); err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	p, err := m.catalog.Remove(ctx, req.ID)
	if err != nil {
		return ProductResponse{}, toRPCError(err)
	}

	m.publishDeleted(p)
	return toProductResponse(p), nil
}

// validateProducts handles the validate_products service request.
func (m *ProductModule) validateProducts(ctx context.Context, req ValidateProductsRequest, _ *mono.Msg) ([]ProductResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, toRPCError(err)
	}

	products, err := m.catalog.ValidateProducts(ctx, req.IDs)
	if err != nil {
		return nil, toRPCError(err)
	}
	return toProductResponses(products), nil
}

// Event publishing is best-effort: failures are logged and never fail the request.

func (m *ProductModule) publishCreated(p *domain.Product) {
	if m.eventBus == nil {
		return
	}
	event := events.ProductCreatedEvent{
		EventID:   uuid.NewString(),
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		CreatedAt: p.CreatedAt,
	}
	if err := events.ProductCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ProductCreated event", "id", p.ID, "error", err)
	}
}

func (m *ProductModule) publishUpdated(p *domain.Product, patch domain.Patch) {
	if m.eventBus == nil {
		return
	}
	event := events.ProductUpdatedEvent{
		EventID:   uuid.NewString(),
		ProductID: p.ID,
		Fields:    changedFields(patch),
		UpdatedAt: p.UpdatedAt,
	}
	if err := events.ProductUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ProductUpdated event", "id", p.ID, "error", err)
	}
}

func (m *ProductModule) publishDeleted(p *domain.Product) {
	if m.eventBus == nil {
		return
	}
	event := events.ProductDeletedEvent{
		EventID:   uuid.NewString(),
		ProductID: p.ID,
		DeletedAt: time.Now(),
	}
	if err := events.ProductDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ProductDeleted event", "id", p.ID, "error", err)
	}
}

func changedFields(patch domain.Patch) []string {
	fields := make([]string, 0, 3)
	if patch.Name != nil {
		fields = append(fields, "name")
	}
	if patch.Description != nil {
		fields = append(fields, "description")
	}
	if patch.Price != nil {
		fields = append(fields, "price")
	}
	return fields
}
