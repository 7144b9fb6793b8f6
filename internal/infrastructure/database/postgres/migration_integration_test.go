//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/testutil"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *postgres.DB
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(
		s.ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	gdb, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	s.Require().NoError(err)
	s.db = postgres.NewFromGorm(gdb)
	s.Require().NoError(s.db.Health(s.ctx))
}

func (s *PostgresSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.ctx))
	}
}

func (s *PostgresSuite) SetupTest() {
	migration := postgres.NewMigration(s.db.GetDB(), logger.Discard())
	s.Require().NoError(migration.DropAllTables(s.ctx))
	s.Require().NoError(migration.Migrate(s.ctx))
}

func (s *PostgresSuite) TestMigrateIsIdempotent() {
	migration := postgres.NewMigration(s.db.GetDB(), logger.Discard())
	s.NoError(migration.Migrate(s.ctx))
}

func (s *PostgresSuite) TestSeedRunsOnce() {
	migration := postgres.NewMigration(s.db.GetDB(), logger.Discard())
	s.Require().NoError(migration.SeedInitialData(s.ctx))

	var before int64
	s.Require().NoError(s.db.GetDB().Model(&catalog.Product{}).Count(&before).Error)
	s.Positive(before)

	s.Require().NoError(migration.SeedInitialData(s.ctx))

	var after int64
	s.Require().NoError(s.db.GetDB().Model(&catalog.Product{}).Count(&after).Error)
	s.Equal(before, after)
}

func (s *PostgresSuite) TestSecondDefaultAddressViolatesIndex() {
	gdb := s.db.GetDB()
	u := testutil.CreateUser(s.T(), gdb, "ada@example.com")

	first := testutil.CreateAddress(s.T(), gdb, u.ID, "1 Main St")
	second := testutil.CreateAddress(s.T(), gdb, u.ID, "2 Main St")

	s.Require().NoError(gdb.Model(&user.Address{}).Where("id = ?", first.ID).Update("is_default", true).Error)
	s.Error(gdb.Model(&user.Address{}).Where("id = ?", second.ID).Update("is_default", true).Error)
}

func (s *PostgresSuite) TestSecondOpenCartViolatesIndex() {
	gdb := s.db.GetDB()
	u := testutil.CreateUser(s.T(), gdb, "ada@example.com")

	newCart := func() *cart.Cart {
		c := &cart.Cart{Status: cart.StatusOpen}
		c.SetOwner(cart.UserOwner{UserID: u.ID})
		return c
	}

	s.Require().NoError(gdb.Create(newCart()).Error)
	s.Error(gdb.Create(newCart()).Error)
}

func (s *PostgresSuite) TestConcurrentCheckoutsNeverOversell() {
	gdb := s.db.GetDB()
	u := testutil.CreateUser(s.T(), gdb, "ada@example.com")
	addr := testutil.CreateAddress(s.T(), gdb, u.ID, "1 Main St")

	lamp := &catalog.Product{
		Name:       "Last lamp",
		Price:      decimal.NewFromInt(30),
		IsActive:   true,
		TrackStock: true,
		Stock:      1,
	}
	s.Require().NoError(gdb.Create(lamp).Error)

	svc := order.NewService(gdb, testutil.Config(), nil, nil, nil, nil, logger.Discard())
	defer svc.Wait()

	const buyers = 4
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(s.ctx, &order.CreateOrderRequest{
				UserID:            u.ID,
				AddressID:         addr.ID,
				PaymentMethodName: "Card",
				Details: []order.DetailRequest{
					{ProductID: lamp.ID, Price: lamp.Price, Quantity: 1},
				},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(apperror.Is(err, apperror.KindValidation), err)
	}
	s.Equal(1, succeeded)

	var stock int
	s.Require().NoError(gdb.Model(&catalog.Product{}).Select("stock").Where("id = ?", lamp.ID).Scan(&stock).Error)
	s.Zero(stock)
}
