package product

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/product-catalog/config"
	domain "github.com/example/product-catalog/domain/product"
	"github.com/example/product-catalog/events"
	"github.com/example/product-catalog/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Service names, prefixed by the framework with "services.product.".
const (
	ServiceCreate           = "create_product"
	ServiceFindAll          = "find_all_product"
	ServiceFindByID         = "find_product_by_id"
	ServiceUpdateByID       = "update_product_by_id"
	ServiceDeleteByID       = "delete_product_by_id"
	ServiceValidateProducts = "validate_products"
)

// ProductModule exposes the product catalog over NATS request-reply.
type ProductModule struct {
	cfg         config.DatabaseConfig
	db          *gorm.DB
	catalog     *domain.Service
	cachePlugin *cache.PluginModule
	eventBus    mono.EventBus
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*ProductModule)(nil)
	_ mono.ServiceProviderModule = (*ProductModule)(nil)
	_ mono.HealthCheckableModule = (*ProductModule)(nil)
	_ mono.UsePluginModule       = (*ProductModule)(nil)
	_ mono.EventEmitterModule    = (*ProductModule)(nil)
)

// NewModule creates a new ProductModule.
func NewModule(cfg config.DatabaseConfig, logger types.Logger) *ProductModule {
	return &ProductModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *ProductModule) Name() string {
	return "product"
}

// SetPlugin receives the optional cache plugin.
func (m *ProductModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "cache" {
		return
	}
	cachePlugin, ok := plugin.(*cache.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for cache",
			"alias", alias,
			"expected", "*cache.PluginModule")
		return
	}
	m.cachePlugin = cachePlugin
	m.logger.Info("Received cache plugin", "alias", alias)
}

// SetEventBus receives the framework event bus.
func (m *ProductModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *ProductModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ProductCreatedV1.ToBase(),
		events.ProductUpdatedV1.ToBase(),
		events.ProductDeletedV1.ToBase(),
	}
}

// Health performs a health check on the product module.
func (m *ProductModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.cfg.Driver,
			"cached": m.cachePlugin != nil,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework automatically prefixes service names with "services.<module>."
// so "create_product" becomes "services.product.create_product" in the NATS subject.
func (m *ProductModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreate, json.Unmarshal, json.Marshal, m.createProduct,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFindAll, json.Unmarshal, json.Marshal, m.findAllProducts,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFindAll, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFindByID, json.Unmarshal, json.Marshal, m.findProductByID,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFindByID, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateByID, json.Unmarshal, json.Marshal, m.updateProductByID,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdateByID, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteByID, json.Unmarshal, json.Marshal, m.deleteProductByID,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteByID, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceValidateProducts, json.Unmarshal, json.Marshal, m.validateProducts,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceValidateProducts, err)
	}

	m.logger.Info("Registered services",
		"services", "services.product.{create_product,find_all_product,find_product_by_id,update_product_by_id,delete_product_by_id,validate_products}")
	return nil
}

// Start connects to the database, runs migrations and builds the catalog.
func (m *ProductModule) Start(_ context.Context) error {
	m.logger.Info("Connecting to database", "driver", m.cfg.Driver)

	dialector, err := openDialector(m.cfg)
	if err != nil {
		return err
	}

	logLevel := logger.Silent
	if m.cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if m.cfg.Driver == config.DriverSQLite {
		// SQLite allows one writer; ":memory:" databases also live on a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	repo := domain.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var store domain.Store = repo
	if m.cachePlugin != nil && m.cachePlugin.Port() != nil {
		store = domain.NewCachedStore(repo, m.cachePlugin.Port(), m.logger)
		m.logger.Info("Product lookups are cached")
	}

	m.catalog = domain.NewService(store, m.logger)

	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, lifecycle events will not be published")
	}

	m.logger.Info("Module started")
	return nil
}

// Stop gracefully closes the database connection.
func (m *ProductModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	m.logger.Info("Closing database connection")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Database connection closed")
	return nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
