package product

import (
	"context"
	"errors"

	"github.com/go-monolith/mono/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/example/product-catalog/domain/product"

// Service implements the product lifecycle and query rules on top of a Store.
type Service struct {
	store      Store
	logger     types.Logger
	tracer     trace.Tracer
	operations metric.Int64Counter
}

// NewService creates a catalog service backed by store.
// Tracing and metrics use the global OpenTelemetry providers.
func NewService(store Store, logger types.Logger) *Service {
	operations, err := otel.Meter(instrumentationName).Int64Counter(
		"catalog.operations",
		metric.WithDescription("Total number of catalog operations"),
	)
	if err != nil {
		logger.Warn("Failed to create operations counter", "error", err)
	}

	return &Service{
		store:      store,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		operations: operations,
	}
}

// Create inserts a new active product.
func (s *Service) Create(ctx context.Context, in CreateInput) (p *Product, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Create")
	defer func() { s.finish(ctx, span, "create", err) }()

	p = &Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Available:   true,
	}
	if err = s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("product.id", int64(p.ID)))
	s.logger.Info("Product created", "id", p.ID, "name", p.Name)
	return p, nil
}

// List returns one page of active products with totals for the whole set.
// Pages past the last one are empty but still carry the real totals.
func (s *Service) List(ctx context.Context, pg Pagination) (page *Page, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.List")
	defer func() { s.finish(ctx, span, "list", err) }()

	if pg.Page < 1 || pg.Limit < 1 {
		return nil, ErrInvalidPagination
	}
	span.SetAttributes(attribute.Int("page", pg.Page), attribute.Int("limit", pg.Limit))

	total, err := s.store.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	page = &Page{
		Data: []Product{},
		Meta: PageMeta{
			Total:    total,
			Page:     pg.Page,
			LastPage: lastPage(total, pg.Limit),
		},
	}
	// Within the last page the offset is below total and cannot overflow.
	if pg.Page > page.Meta.LastPage {
		return page, nil
	}

	data, err := s.store.ListActive(ctx, pg.Offset(), pg.Limit)
	if err != nil {
		return nil, err
	}
	if data != nil {
		page.Data = data
	}
	return page, nil
}

// FindOne returns the active product with the given id.
func (s *Service) FindOne(ctx context.Context, id uint) (p *Product, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.FindOne", trace.WithAttributes(attribute.Int64("product.id", int64(id))))
	defer func() { s.finish(ctx, span, "find_one", err) }()

	return s.findActive(ctx, id)
}

// Update applies patch to an active product. Soft-deleted products are
// reported as not found.
func (s *Service) Update(ctx context.Context, id uint, patch Patch) (p *Product, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Update", trace.WithAttributes(attribute.Int64("product.id", int64(id))))
	defer func() { s.finish(ctx, span, "update", err) }()

	current, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	p, err = s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.notFound(id, err)
	}

	s.logger.Info("Product updated", "id", id)
	return p, nil
}

// Remove soft-deletes an active product and returns it with Available false.
// Removing an already removed product fails with NotFoundError.
func (s *Service) Remove(ctx context.Context, id uint) (p *Product, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Remove", trace.WithAttributes(attribute.Int64("product.id", int64(id))))
	defer func() { s.finish(ctx, span, "remove", err) }()

	if _, err := s.findActive(ctx, id); err != nil {
		return nil, err
	}

	p, err = s.store.SetAvailable(ctx, id, false)
	if err != nil {
		return nil, s.notFound(id, err)
	}

	s.logger.Info("Product removed", "id", id)
	return p, nil
}

// ValidateProducts confirms that every id exists, regardless of availability.
// Duplicate ids are collapsed. The rows come back in store order.
func (s *Service) ValidateProducts(ctx context.Context, ids []uint) (products []Product, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ValidateProducts")
	defer func() { s.finish(ctx, span, "validate", err) }()

	distinct := uniqueIDs(ids)
	span.SetAttributes(attribute.Int("ids.distinct", len(distinct)))

	products, err = s.store.FindByIDs(ctx, distinct)
	if err != nil {
		return nil, err
	}
	if len(products) != len(distinct) {
		s.logger.Warn("Bulk validation rejected", "requested", len(distinct), "found", len(products))
		return nil, ErrSomeNotFound
	}
	return products, nil
}

func (s *Service) findActive(ctx context.Context, id uint) (*Product, error) {
	p, err := s.store.FindActiveByID(ctx, id)
	if err != nil {
		return nil, s.notFound(id, err)
	}
	return p, nil
}

// notFound maps ErrNoRecord to a NotFoundError for id and passes every other
// error through.
func (s *Service) notFound(id uint, err error) error {
	if errors.Is(err, ErrNoRecord) {
		return &NotFoundError{ID: id}
	}
	return err
}

func (s *Service) finish(ctx context.Context, span trace.Span, operation string, err error) {
	defer span.End()

	result := "success"
	switch {
	case err == nil:
	case IsNotFound(err), errors.Is(err, ErrSomeNotFound):
		result = "not_found"
		span.SetStatus(codes.Error, err.Error())
	default:
		result = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Catalog operation failed", "operation", operation, "error", err)
	}

	if s.operations != nil {
		s.operations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		))
	}
}

func lastPage(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	return int((total-1)/int64(limit)) + 1
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
