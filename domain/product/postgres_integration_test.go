package product

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresStoreSuite runs the catalog against a PostgreSQL container.
type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	db        *gorm.DB
	svc       *Service
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catalog"),
		tcpostgres.WithUsername("catalog"),
		tcpostgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		s.T().Skipf("could not start postgres container: %v", err)
	}
	s.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = pgxpool.New(ctx, connStr)
	s.Require().NoError(err)

	s.db, err = gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	repo := NewRepository(s.db)
	s.Require().NoError(repo.Migrate())
	s.svc = NewService(repo, &mockLogger{})
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE TABLE products RESTART IDENTITY")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestLifecycle() {
	ctx := context.Background()

	p, err := s.svc.Create(ctx, CreateInput{
		Name:        "Widget",
		Description: "d",
		Price:       decimal.RequireFromString("9.9999"),
	})
	s.Require().NoError(err)
	s.True(p.Available)

	found, err := s.svc.FindOne(ctx, p.ID)
	s.Require().NoError(err)
	s.True(found.Price.Equal(decimal.RequireFromString("9.9999")), "price = %s", found.Price)

	_, err = s.svc.Remove(ctx, p.ID)
	s.Require().NoError(err)

	_, err = s.svc.FindOne(ctx, p.ID)
	s.True(IsNotFound(err))

	products, err := s.svc.ValidateProducts(ctx, []uint{p.ID, p.ID})
	s.Require().NoError(err)
	s.Len(products, 1)
}

func (s *PostgresStoreSuite) TestPagination() {
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.svc.Create(ctx, CreateInput{Name: name, Price: decimal.NewFromInt(1)})
		s.Require().NoError(err)
	}

	page, err := s.svc.List(ctx, Pagination{Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Len(page.Data, 2)
	s.Equal(int64(5), page.Meta.Total)
	s.Equal(3, page.Meta.LastPage)
}
