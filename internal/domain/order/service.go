// internal/domain/order/service.go
package order

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberSuffix   = 6
	orderNumberAttempts = 5
	backgroundTimeout   = 30 * time.Second
)

// Mailer sends order emails
type Mailer interface {
	SendOrderConfirmationEmail(ctx context.Context, userEmail, userName string, data email.OrderConfirmationData) error
	SendOrderStatusUpdateEmail(ctx context.Context, userEmail, userName string, data email.OrderStatusUpdateData) error
}

// InvoiceRenderer turns an invoice into PDF bytes
type InvoiceRenderer interface {
	GenerateInvoice(inv *pdf.Invoice) ([]byte, error)
}

// Service handles order business logic
type Service struct {
	db            *gorm.DB
	config        config.CheckoutConfig
	notifications *notification.Service
	mailer        Mailer
	invoices      InvoiceRenderer
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	log           logrus.FieldLogger
	now           func() time.Time
	pending       sync.WaitGroup
}

// NewService creates a new order service. mailer, invoices and m may be nil.
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	notifications *notification.Service,
	mailer Mailer,
	invoices InvoiceRenderer,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Service {
	return &Service{
		db:            db,
		config:        cfg.Checkout,
		notifications: notifications,
		mailer:        mailer,
		invoices:      invoices,
		metrics:       m,
		tracer:        otel.Tracer("storefront-backend/order"),
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// DetailRequest is one line of an order as priced by the client
type DetailRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Size      string          `json:"size" binding:"max=20"`
	Color     string          `json:"color" binding:"max=50"`
}

// CreateOrderRequest represents order creation data. UserID comes from the
// authenticated principal, never from the body.
type CreateOrderRequest struct {
	UserID            uint            `json:"-"`
	AddressID         uint            `json:"address_id" binding:"required"`
	PaymentMethodID   *uint           `json:"payment_method_id"`
	PaymentMethodName string          `json:"payment_method_name" binding:"max=100"`
	Details           []DetailRequest `json:"details" binding:"required,min=1,dive"`
}

// CreateOrderResult is the saved order and its payment
type CreateOrderResult struct {
	Order   *Order   `json:"order"`
	Payment *Payment `json:"payment"`
}

// OrderListResponse represents a page of orders
type OrderListResponse struct {
	Orders     []Order               `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Wait blocks until background email deliveries have finished
func (s *Service) Wait() {
	s.pending.Wait()
}

// CreateOrder persists an order, its details and its payment atomically
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder", trace.WithAttributes(
		attribute.Int64("user.id", int64(req.UserID)),
		attribute.Int("order.lines", len(req.Details)),
	))
	defer span.End()

	if err := validateDetails(req.Details); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var (
		result   CreateOrderResult
		customer user.User
		products map[uint]*catalog.Product
		placed   *notification.Notification
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&customer, req.UserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Validation("user %d does not exist", req.UserID)
		}
		if err != nil {
			return apperror.Internal(err, "failed to load user")
		}

		var address user.Address
		err = tx.Where("id = ? AND user_id = ?", req.AddressID, req.UserID).First(&address).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("address not found")
		}
		if err != nil {
			return apperror.Internal(err, "failed to load address")
		}

		methodName, err := s.resolvePaymentMethod(tx, req)
		if err != nil {
			return err
		}

		products, err = reserveStock(ctx, s.tracer, tx, req.Details)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		details := make([]OrderDetail, 0, len(req.Details))
		for _, d := range req.Details {
			subtotal = subtotal.Add(d.Price.Mul(decimal.NewFromInt(int64(d.Quantity))))
			details = append(details, OrderDetail{
				ProductID: d.ProductID,
				Price:     d.Price,
				Quantity:  d.Quantity,
				Size:      strings.TrimSpace(d.Size),
				Color:     strings.TrimSpace(d.Color),
			})
		}
		shipping := s.ShippingFor(subtotal)

		number, err := uniqueOrderNumber(tx, s.now())
		if err != nil {
			return err
		}

		now := s.now()
		order := &Order{
			OrderNumber:       number,
			UserID:            req.UserID,
			AddressID:         address.ID,
			Status:            StatusWarehouse,
			ShippingCost:      shipping,
			TotalPrice:        subtotal.Add(shipping).Round(2),
			EstimatedDelivery: now.AddDate(0, 0, s.config.DeliveryDays),
			Details:           details,
		}
		if err := tx.Create(order).Error; err != nil {
			return apperror.Internal(err, "failed to create order")
		}

		pay := &Payment{
			OrderID: order.ID,
			Method:  methodName,
			Status:  PaymentStatusCompleted,
			Amount:  order.TotalPrice,
			PaidAt:  now,
		}
		if err := tx.Create(pay).Error; err != nil {
			return apperror.Internal(err, "failed to create payment")
		}

		order.PaymentMethodID = &pay.ID
		if err := tx.Model(order).Update("payment_method_id", pay.ID).Error; err != nil {
			return apperror.Internal(err, "failed to link payment")
		}

		if err := tx.Create(&StatusChange{OrderID: order.ID, Status: StatusWarehouse}).Error; err != nil {
			return apperror.Internal(err, "failed to record status")
		}

		if err := cart.MarkConverted(tx, req.UserID); err != nil {
			return err
		}

		if s.notifications != nil {
			placed, err = s.notifications.Create(ctx, tx, req.UserID, "Order placed",
				fmt.Sprintf("Your order %s has been placed.", order.OrderNumber), notification.TypeOrderPlaced)
			if err != nil {
				return err
			}
		}

		for i := range order.Details {
			order.Details[i].Product = products[order.Details[i].ProductID]
		}
		order.Address = &address
		order.Payment = pay
		result = CreateOrderResult{Order: order, Payment: pay}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.PublicMessage(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", result.Order.OrderNumber))
	if s.notifications != nil {
		s.notifications.Deliver(placed)
	}
	s.metrics.OrderCreated()
	s.log.WithFields(logrus.Fields{
		"order_number": result.Order.OrderNumber,
		"user_id":      req.UserID,
		"total":        result.Order.TotalPrice.StringFixed(2),
	}).Info("Order created")

	s.sendConfirmation(customer, result.Order)
	return &result, nil
}

// ShippingFor returns the surcharge applied to an order with this subtotal
func (s *Service) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThanOrEqual(s.config.FreeShippingThreshold) {
		return s.config.ShippingSurcharge
	}
	return decimal.Zero
}

// MarkShipped moves a WAREHOUSE order to SHIPPED
func (s *Service) MarkShipped(ctx context.Context, orderID uint) (*Order, error) {
	return s.transition(ctx, orderID, StatusShipped)
}

// MarkDelivered moves a SHIPPED order to DELIVERED
func (s *Service) MarkDelivered(ctx context.Context, orderID uint) (*Order, error) {
	return s.transition(ctx, orderID, StatusDelivered)
}

func (s *Service) transition(ctx context.Context, orderID uint, target Status) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Transition", trace.WithAttributes(
		attribute.Int64("order.id", int64(orderID)),
		attribute.String("order.status", string(target)),
	))
	defer span.End()

	var (
		order    Order
		customer user.User
		note     *notification.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("order not found")
		}
		if err != nil {
			return apperror.Internal(err, "failed to load order")
		}

		if !order.CanTransitionTo(target) {
			return apperror.Validation("order %s cannot move from %s to %s", order.OrderNumber, order.Status, target)
		}

		now := s.now()
		updates := map[string]interface{}{"status": target}
		switch target {
		case StatusShipped:
			updates["shipped_at"] = now
		case StatusDelivered:
			updates["delivered_at"] = now
		}

		res := tx.Model(&Order{}).Where("id = ? AND status = ?", order.ID, order.Status).Updates(updates)
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to update order status")
		}
		if res.RowsAffected == 0 {
			return apperror.Validation("order %s was modified concurrently", order.OrderNumber)
		}

		if err := tx.Create(&StatusChange{OrderID: order.ID, Status: target}).Error; err != nil {
			return apperror.Internal(err, "failed to record status")
		}

		if s.notifications != nil {
			title, typ := "Order shipped", notification.TypeOrderShipped
			if target == StatusDelivered {
				title, typ = "Order delivered", notification.TypeOrderDelivery
			}
			note, err = s.notifications.Create(ctx, tx, order.UserID, title,
				fmt.Sprintf("Your order %s is now %s.", order.OrderNumber, target), typ)
			if err != nil {
				return err
			}
		}

		if err := tx.First(&customer, order.UserID).Error; err != nil {
			return apperror.Internal(err, "failed to load order owner")
		}

		return tx.Preload("Details").First(&order, order.ID).Error
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.PublicMessage(err))
		return nil, err
	}

	if s.notifications != nil {
		s.notifications.Deliver(note)
	}
	s.metrics.OrderTransition(string(target))
	s.log.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"status":       target,
	}).Info("Order status changed")

	s.sendStatusUpdate(customer, &order)
	return &order, nil
}

// GetOrderDetailsByID returns an order owned by userID
func (s *Service) GetOrderDetailsByID(ctx context.Context, userID, orderID uint) (*Order, error) {
	var order Order
	err := preloadOrder(s.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("order not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to load order")
	}

	order.User = nil
	return &order, nil
}

// ListUserOrders returns the user's orders, newest first
func (s *Service) ListUserOrders(ctx context.Context, userID uint, params pagination.Params) (*OrderListResponse, error) {
	params = params.Normalize()
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count orders")
	}

	var orders []Order
	err := preloadOrder(db).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to list orders")
	}

	for i := range orders {
		orders[i].User = nil
	}
	return &OrderListResponse{Orders: orders, Pagination: pagination.Build(params, total)}, nil
}

// ListDeliveredProductIDs returns the distinct products the user has received
func (s *Service) ListDeliveredProductIDs(ctx context.Context, userID uint) ([]uint, error) {
	return DeliveredProductIDs(s.db.WithContext(ctx), userID)
}

// DeliveredProductIDs is the query behind ListDeliveredProductIDs, usable
// inside another service's transaction
func DeliveredProductIDs(db *gorm.DB, userID uint) ([]uint, error) {
	ids := []uint{}
	err := db.Model(&OrderDetail{}).
		Distinct("order_details.product_id").
		Joins("JOIN orders ON orders.id = order_details.order_id").
		Where("orders.user_id = ? AND orders.status = ?", userID, StatusDelivered).
		Order("order_details.product_id").
		Pluck("order_details.product_id", &ids).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to list delivered products")
	}
	return ids, nil
}

// GenerateInvoice renders an owned order as a PDF
func (s *Service) GenerateInvoice(ctx context.Context, userID, orderID uint) (string, []byte, error) {
	if s.invoices == nil {
		return "", nil, apperror.Internal(errors.New("invoice renderer not configured"), "invoices are unavailable")
	}

	order, err := s.GetOrderDetailsByID(ctx, userID, orderID)
	if err != nil {
		return "", nil, err
	}

	var customer user.User
	if err := s.db.WithContext(ctx).First(&customer, userID).Error; err != nil {
		return "", nil, apperror.Internal(err, "failed to load customer")
	}

	data, err := s.invoices.GenerateInvoice(buildInvoice(order, &customer))
	if err != nil {
		return "", nil, apperror.Internal(err, "failed to generate invoice")
	}
	return fmt.Sprintf("invoice-%s.pdf", order.OrderNumber), data, nil
}

func (s *Service) resolvePaymentMethod(tx *gorm.DB, req *CreateOrderRequest) (string, error) {
	name := strings.TrimSpace(req.PaymentMethodName)
	if req.PaymentMethodID == nil {
		if name == "" {
			return "", apperror.Validation("payment method is required")
		}
		return name, nil
	}

	var method payment.PaymentMethod
	err := tx.Where("id = ? AND user_id = ?", *req.PaymentMethodID, req.UserID).First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperror.NotFound("payment method not found")
	}
	if err != nil {
		return "", apperror.Internal(err, "failed to load payment method")
	}
	if name == "" {
		name = method.Masked()
	}
	return name, nil
}

func (s *Service) sendConfirmation(customer user.User, order *Order) {
	if s.mailer == nil {
		return
	}

	items := make([]email.OrderItem, 0, len(order.Details))
	for _, d := range order.Details {
		items = append(items, email.OrderItem{
			Name:     productName(d.Product, d.ProductID),
			Quantity: d.Quantity,
			Price:    d.Price.StringFixed(2),
		})
	}
	data := email.OrderConfirmationData{
		OrderNumber:       order.OrderNumber,
		OrderTotal:        order.TotalPrice.StringFixed(2),
		EstimatedDelivery: order.EstimatedDelivery.Format("January 2, 2006"),
		Items:             items,
	}

	s.background(order.OrderNumber, func(ctx context.Context) error {
		return s.mailer.SendOrderConfirmationEmail(ctx, customer.Email, customer.GetDisplayName(), data)
	})
}

func (s *Service) sendStatusUpdate(customer user.User, order *Order) {
	if s.mailer == nil {
		return
	}

	data := email.OrderStatusUpdateData{OrderNumber: order.OrderNumber, Status: string(order.Status)}
	s.background(order.OrderNumber, func(ctx context.Context) error {
		return s.mailer.SendOrderStatusUpdateEmail(ctx, customer.Email, customer.GetDisplayName(), data)
	})
}

// background runs fn detached from the request so a slow mail provider
// never delays the response
func (s *Service) background(orderNumber string, fn func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.log.WithError(err).WithField("order_number", orderNumber).Warn("Failed to send order email")
		}
	}()
}

func validateDetails(details []DetailRequest) error {
	if len(details) == 0 {
		return apperror.Validation("order must contain at least one item")
	}
	for i, d := range details {
		if d.ProductID == 0 {
			return apperror.Validation("item %d: product_id is required", i+1)
		}
		if d.Quantity < 1 {
			return apperror.Validation("item %d: quantity must be at least 1", i+1)
		}
		if d.Price.IsNegative() {
			return apperror.Validation("item %d: price must not be negative", i+1)
		}
		if !d.Price.Equal(d.Price.Round(2)) {
			return apperror.Validation("item %d: price must have at most two decimal places", i+1)
		}
	}
	return nil
}

// reserveStock resolves every product and decrements tracked stock
func reserveStock(ctx context.Context, tracer trace.Tracer, tx *gorm.DB, details []DetailRequest) (map[uint]*catalog.Product, error) {
	_, span := tracer.Start(ctx, "order.reserveStock")
	defer span.End()

	products := make(map[uint]*catalog.Product, len(details))
	for _, d := range details {
		product, ok := products[d.ProductID]
		if !ok {
			product = &catalog.Product{}
			err := tx.First(product, d.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("product %d not found", d.ProductID)
			}
			if err != nil {
				return nil, apperror.Internal(err, "failed to load product %d", d.ProductID)
			}
			products[d.ProductID] = product
		}

		if !product.TrackStock {
			continue
		}
		res := tx.Model(&catalog.Product{}).
			Where("id = ? AND stock >= ?", product.ID, d.Quantity).
			Update("stock", gorm.Expr("stock - ?", d.Quantity))
		if res.Error != nil {
			return nil, apperror.Internal(res.Error, "failed to reserve stock")
		}
		if res.RowsAffected == 0 {
			return nil, apperror.Validation("insufficient stock for product %d", product.ID)
		}
		product.Stock -= d.Quantity
	}
	return products, nil
}

// NewOrderNumber formats ORD-YYYYMMDD-XXXXXX for the given day
func NewOrderNumber(day time.Time) (string, error) {
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	suffix := make([]byte, orderNumberSuffix)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", day.Format("20060102"), suffix), nil
}

func uniqueOrderNumber(tx *gorm.DB, day time.Time) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := NewOrderNumber(day)
		if err != nil {
			return "", apperror.Internal(err, "failed to generate order number")
		}

		var count int64
		if err := tx.Model(&Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", apperror.Internal(err, "failed to check order number")
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", apperror.Internal(errors.New("order number space exhausted"), "failed to generate order number")
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Details.Product").
		Preload("Address").
		Preload("Payment").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func buildInvoice(order *Order, customer *user.User) *pdf.Invoice {
	inv := &pdf.Invoice{
		OrderNumber:       order.OrderNumber,
		OrderDate:         order.CreatedAt,
		Status:            string(order.Status),
		CustomerName:      customer.GetDisplayName(),
		CustomerEmail:     customer.Email,
		Subtotal:          order.Subtotal().StringFixed(2),
		Shipping:          order.ShippingCost.StringFixed(2),
		Total:             order.TotalPrice.StringFixed(2),
		EstimatedDelivery: order.EstimatedDelivery,
	}
	if order.Payment != nil {
		inv.PaymentMethod = order.Payment.Method
		inv.PaymentStatus = string(order.Payment.Status)
	}
	if a := order.Address; a != nil {
		inv.ShipTo = []string{a.FullName, a.Street, strings.TrimSpace(a.City + " " + a.State + " " + a.PostalCode), a.Country}
	}

	for _, d := range order.Details {
		var variant []string
		for _, v := range []string{d.Size, d.Color} {
			if v != "" {
				variant = append(variant, v)
			}
		}
		inv.Lines = append(inv.Lines, pdf.InvoiceLine{
			Name:     productName(d.Product, d.ProductID),
			Variant:  strings.Join(variant, " / "),
			Quantity: d.Quantity,
			Price:    d.Price.StringFixed(2),
			Total:    d.LineTotal().StringFixed(2),
		})
	}
	return inv
}

func productName(p *catalog.Product, id uint) string {
	if p != nil && p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Product #%d", id)
}
