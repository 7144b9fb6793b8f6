// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/review"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

const (
	defaultSalesDays = 30
	maxSalesDays     = 366
	topProductsLimit = 10
)

// Service builds read-only reports for administrators
type Service struct {
	db                *gorm.DB
	lowStockThreshold int
	now               func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:                db,
		lowStockThreshold: cfg.Catalog.LowStockThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// DashboardStats represents overall dashboard statistics
type DashboardStats struct {
	// Sales
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RevenueToday     decimal.Decimal `json:"revenue_today"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	RevenueGrowth    float64         `json:"revenue_growth"` // percent, this month vs last
	AvgOrderValue    decimal.Decimal `json:"avg_order_value"`

	// Orders
	TotalOrders     int64            `json:"total_orders"`
	OrdersToday     int64            `json:"orders_today"`
	OrdersThisMonth int64            `json:"orders_this_month"`
	OrderGrowth     float64          `json:"order_growth"`
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`

	// Customers
	TotalUsers         int64   `json:"total_users"`
	ActiveUsers        int64   `json:"active_users"`
	NewUsersThisMonth  int64   `json:"new_users_this_month"`
	RepeatCustomerRate float64 `json:"repeat_customer_rate"`

	// Catalog
	TotalProducts      int64 `json:"total_products"`
	ActiveProducts     int64 `json:"active_products"`
	OutOfStockProducts int64 `json:"out_of_stock_products"`
	LowStockProducts   int64 `json:"low_stock_products"`

	// Moderation
	ReportedReviews int64 `json:"reported_reviews"`
}

// SalesAnalytics represents sales over a trailing window
type SalesAnalytics struct {
	Days          int                `json:"days"`
	From          time.Time          `json:"from"`
	DailyRevenue  []TimeSeriesData   `json:"daily_revenue"`
	TotalSales    int64              `json:"total_sales"`
	TotalRevenue  decimal.Decimal    `json:"total_revenue"`
	AvgOrderValue decimal.Decimal    `json:"avg_order_value"`
	TopProducts   []ProductSalesData `json:"top_products"`
}

// TimeSeriesData is one day of revenue
type TimeSeriesData struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
	Count int64           `json:"count"`
}

// ProductSalesData is the sales total of one product
type ProductSalesData struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalSold   int64           `json:"total_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
	OrderCount  int64           `json:"order_count"`
}

// GetDashboardStats retrieves overall dashboard statistics
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	stats := &DashboardStats{OrdersByStatus: make(map[string]int64)}
	var lastMonthRevenue decimal.Decimal
	var lastMonthOrders int64

	orders := func() *gorm.DB { return db.Model(&order.Order{}) }
	revenue := []struct {
		dest *decimal.Decimal
		q    *gorm.DB
	}{
		{&stats.TotalRevenue, orders()},
		{&stats.RevenueToday, orders().Where("created_at >= ?", today)},
		{&stats.RevenueThisMonth, orders().Where("created_at >= ?", thisMonth)},
		{&lastMonthRevenue, orders().Where("created_at >= ? AND created_at < ?", lastMonth, thisMonth)},
	}
	for _, r := range revenue {
		if err := sumTotals(r.q, r.dest); err != nil {
			return nil, err
		}
	}

	counts := []struct {
		dest *int64
		q    *gorm.DB
	}{
		{&stats.TotalOrders, orders()},
		{&stats.OrdersToday, orders().Where("created_at >= ?", today)},
		{&stats.OrdersThisMonth, orders().Where("created_at >= ?", thisMonth)},
		{&lastMonthOrders, orders().Where("created_at >= ? AND created_at < ?", lastMonth, thisMonth)},
		{&stats.TotalUsers, db.Model(&user.User{})},
		{&stats.ActiveUsers, db.Model(&user.User{}).Where("is_active = ? AND banned_at IS NULL", true)},
		{&stats.NewUsersThisMonth, db.Model(&user.User{}).Where("created_at >= ?", thisMonth)},
		{&stats.TotalProducts, db.Model(&catalog.Product{})},
		{&stats.ActiveProducts, db.Model(&catalog.Product{}).Where("is_active = ?", true)},
		{&stats.OutOfStockProducts, db.Model(&catalog.Product{}).Where("track_stock = ? AND stock <= 0", true)},
		{&stats.LowStockProducts, db.Model(&catalog.Product{}).Where("track_stock = ? AND stock > 0 AND stock <= ?", true, s.lowStockThreshold)},
		{&stats.ReportedReviews, db.Model(&review.Report{}).Distinct("review_id")},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dest).Error; err != nil {
			return nil, apperror.Internal(err, "failed to count dashboard metrics")
		}
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := orders().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, apperror.Internal(err, "failed to group orders by status")
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	var repeatCustomers int64
	repeat := db.Model(&order.Order{}).Select("user_id").Group("user_id").Having("COUNT(*) > 1")
	if err := db.Table("(?) AS repeat_customers", repeat).Count(&repeatCustomers).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count repeat customers")
	}

	stats.RevenueGrowth = growth(stats.RevenueThisMonth, lastMonthRevenue)
	stats.OrderGrowth = growth(decimal.NewFromInt(stats.OrdersThisMonth), decimal.NewFromInt(lastMonthOrders))
	stats.AvgOrderValue = average(stats.TotalRevenue, stats.TotalOrders)
	if stats.TotalUsers > 0 {
		stats.RepeatCustomerRate = percent(float64(repeatCustomers) / float64(stats.TotalUsers))
	}

	return stats, nil
}

// GetSalesAnalytics retrieves sales over the last days days
func (s *Service) GetSalesAnalytics(ctx context.Context, days int) (*SalesAnalytics, error) {
	if days <= 0 {
		days = defaultSalesDays
	}
	if days > maxSalesDays {
		return nil, apperror.Validation("days must be at most %d", maxSalesDays)
	}

	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	db := s.db.WithContext(ctx)

	var orders []order.Order
	if err := db.Select("id", "total_price", "created_at").
		Where("created_at >= ?", from).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load orders")
	}

	report := &SalesAnalytics{
		Days:         days,
		From:         from,
		TotalSales:   int64(len(orders)),
		TotalRevenue: decimal.Zero,
	}

	// Bucketed by UTC day
	byDay := make(map[string]*TimeSeriesData)
	for _, o := range orders {
		key := o.CreatedAt.UTC().Format("2006-01-02")
		bucket, ok := byDay[key]
		if !ok {
			bucket = &TimeSeriesData{Date: key, Value: decimal.Zero}
			byDay[key] = bucket
		}
		bucket.Value = bucket.Value.Add(o.TotalPrice)
		bucket.Count++
		report.TotalRevenue = report.TotalRevenue.Add(o.TotalPrice)
	}
	for _, bucket := range byDay {
		report.DailyRevenue = append(report.DailyRevenue, *bucket)
	}
	sort.Slice(report.DailyRevenue, func(i, j int) bool {
		return report.DailyRevenue[i].Date < report.DailyRevenue[j].Date
	})
	report.AvgOrderValue = average(report.TotalRevenue, report.TotalSales)

	top, err := s.topProducts(db, from)
	if err != nil {
		return nil, err
	}
	report.TopProducts = top

	return report, nil
}

func (s *Service) topProducts(db *gorm.DB, from time.Time) ([]ProductSalesData, error) {
	rows, err := db.Table("order_details AS d").
		Select(`d.product_id, p.name,
			COALESCE(SUM(d.quantity), 0) AS total_sold,
			COALESCE(SUM(d.price * d.quantity), 0) AS revenue,
			COUNT(DISTINCT d.order_id) AS order_count`).
		Joins("JOIN orders o ON o.id = d.order_id").
		Joins("JOIN products p ON p.id = d.product_id").
		Where("o.created_at >= ?", from).
		Group("d.product_id, p.name").
		Order("total_sold DESC, d.product_id ASC").
		Limit(topProductsLimit).
		Rows()
	if err != nil {
		return nil, apperror.Internal(err, "failed to rank products")
	}
	defer rows.Close()

	var out []ProductSalesData
	for rows.Next() {
		var p ProductSalesData
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.TotalSold, &p.Revenue, &p.OrderCount); err != nil {
			return nil, apperror.Internal(err, "failed to read product sales")
		}
		p.Revenue = p.Revenue.Round(2)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err, "failed to read product sales")
	}
	return out, nil
}

func sumTotals(q *gorm.DB, dest *decimal.Decimal) error {
	var total decimal.NullDecimal
	if err := q.Select("SUM(total_price)").Row().Scan(&total); err != nil {
		return apperror.Internal(err, "failed to sum order totals")
	}
	*dest = decimal.Zero
	if total.Valid {
		*dest = total.Decimal.Round(2)
	}
	return nil
}

func average(total decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(n)).Round(2)
}

func growth(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	ratio, _ := current.Sub(previous).Div(previous).Float64()
	return percent(ratio)
}

func percent(ratio float64) float64 {
	return math.Round(ratio*10000) / 100
}
