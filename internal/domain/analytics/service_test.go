package analytics_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/review"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

type line struct {
	product *catalog.Product
	qty     int
}

func placeOrder(t *testing.T, db *gorm.DB, userID, addressID uint, status order.Status, lines ...line) *order.Order {
	t.Helper()

	total := decimal.Zero
	details := make([]order.OrderDetail, 0, len(lines))
	for _, l := range lines {
		details = append(details, order.OrderDetail{ProductID: l.product.ID, Price: l.product.Price, Quantity: l.qty})
		total = total.Add(l.product.Price.Mul(decimal.NewFromInt(int64(l.qty))))
	}

	var n int64
	require.NoError(t, db.Model(&order.Order{}).Count(&n).Error)
	o := &order.Order{
		OrderNumber:       fmt.Sprintf("ORD-TEST-%04d", n+1),
		UserID:            userID,
		AddressID:         addressID,
		Status:            status,
		ShippingCost:      decimal.Zero,
		TotalPrice:        total,
		EstimatedDelivery: time.Now().AddDate(0, 0, 3),
		Details:           details,
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func TestDashboardStats(t *testing.T) {
	db := testutil.NewDB(t)
	svc := analytics.NewService(db, testutil.Config())
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	aliceHome := testutil.CreateAddress(t, db, alice.ID, "1 Elm St")
	bobHome := testutil.CreateAddress(t, db, bob.ID, "2 Oak St")

	chair := testutil.CreateProduct(t, db, "Chair", "40.00")
	lamp := testutil.CreateProduct(t, db, "Lamp", "15.00")
	require.NoError(t, db.Model(lamp).Updates(map[string]interface{}{"track_stock": true, "stock": 2}).Error)
	rug := testutil.CreateProduct(t, db, "Rug", "60.00")
	require.NoError(t, db.Model(rug).Updates(map[string]interface{}{"track_stock": true, "stock": 0}).Error)

	placeOrder(t, db, alice.ID, aliceHome.ID, order.StatusWarehouse, line{chair, 1}, line{lamp, 2})
	placeOrder(t, db, alice.ID, aliceHome.ID, order.StatusShipped, line{lamp, 1})
	placeOrder(t, db, bob.ID, bobHome.ID, order.StatusDelivered, line{chair, 2})

	r := &review.Review{UserID: bob.ID, ProductID: chair.ID, Rating: 5, Comment: "Sturdy"}
	require.NoError(t, db.Create(r).Error)
	require.NoError(t, db.Create(&review.Report{ReviewID: r.ID, ReporterID: alice.ID, Reason: review.ReasonIrrelevant}).Error)

	stats, err := svc.GetDashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(3), stats.OrdersToday)
	assert.True(t, decimal.RequireFromString("165.00").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
	assert.True(t, decimal.RequireFromString("55.00").Equal(stats.AvgOrderValue), stats.AvgOrderValue.String())
	assert.Equal(t, map[string]int64{"WAREHOUSE": 1, "SHIPPED": 1, "DELIVERED": 1}, stats.OrdersByStatus)

	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, 50.0, stats.RepeatCustomerRate)

	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.OutOfStockProducts)
	assert.Equal(t, int64(1), stats.LowStockProducts)
	assert.Equal(t, int64(1), stats.ReportedReviews)
}

func TestDashboardStatsEmptyStore(t *testing.T) {
	db := testutil.NewDB(t)
	svc := analytics.NewService(db, testutil.Config())

	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.TotalRevenue.IsZero())
	assert.True(t, stats.AvgOrderValue.IsZero())
	assert.Zero(t, stats.RevenueGrowth)
	assert.Empty(t, stats.OrdersByStatus)
}

func TestSalesAnalytics(t *testing.T) {
	db := testutil.NewDB(t)
	svc := analytics.NewService(db, testutil.Config())
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "carol@example.com")
	home := testutil.CreateAddress(t, db, u.ID, "3 Pine St")
	chair := testutil.CreateProduct(t, db, "Chair", "40.00")
	lamp := testutil.CreateProduct(t, db, "Lamp", "15.00")

	placeOrder(t, db, u.ID, home.ID, order.StatusWarehouse, line{chair, 1}, line{lamp, 4})
	placeOrder(t, db, u.ID, home.ID, order.StatusWarehouse, line{lamp, 1})

	report, err := svc.GetSalesAnalytics(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, report.Days)
	assert.Equal(t, int64(2), report.TotalSales)
	assert.True(t, decimal.RequireFromString("115.00").Equal(report.TotalRevenue), report.TotalRevenue.String())

	require.Len(t, report.DailyRevenue, 1)
	assert.Equal(t, int64(2), report.DailyRevenue[0].Count)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, lamp.ID, report.TopProducts[0].ProductID)
	assert.Equal(t, int64(5), report.TopProducts[0].TotalSold)
	assert.Equal(t, int64(2), report.TopProducts[0].OrderCount)
	assert.True(t, decimal.RequireFromString("75.00").Equal(report.TopProducts[0].Revenue), report.TopProducts[0].Revenue.String())
	assert.Equal(t, "Chair", report.TopProducts[1].ProductName)

	_, err = svc.GetSalesAnalytics(ctx, 400)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
