// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/review"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/domain/wishlist"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Deps carries everything the route groups need
type Deps struct {
	Config *config.Config
	Log    logrus.FieldLogger
	JWT    *auth.JWTManager
	Redis  *redis.Client

	Users         *user.Service
	Admin         *user.AdminService
	Addresses     *user.AddressService
	Carts         *cart.Service
	Catalog       *catalog.Service
	Taxonomy      *catalog.TaxonomyService
	Orders        *order.Service
	Payments      *payment.Service
	Reviews       *review.Service
	Wishlist      *wishlist.Service
	Notifications *notification.Service
	Hub           *notification.Hub
	Analytics     *analytics.Service
	Inventory     *inventory.Service
}

func (d *Deps) requireAuth() gin.HandlerFunc {
	return middleware.AuthMiddleware(d.JWT, d.Admin, d.Log)
}

func (d *Deps) optionalAuth() gin.HandlerFunc {
	return middleware.OptionalAuthMiddleware(d.JWT, d.Admin, d.Log)
}

// SetupRoutes mounts every route group on rg
func SetupRoutes(rg *gin.RouterGroup, d *Deps) {
	SetupAuthRoutes(rg, d)
	SetupUserRoutes(rg, d)
	SetupCatalogRoutes(rg, d)
	SetupCartRoutes(rg, d)
	SetupOrderRoutes(rg, d)
	SetupReviewRoutes(rg, d)
	SetupWishlistRoutes(rg, d)
	SetupNotificationRoutes(rg, d)
	SetupAdminRoutes(rg, d)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, d *Deps) {
	authHandler := handlers.NewAuthHandler(d.Users, d.Carts, d.Config, d.Log)

	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.RefreshToken)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	users := rg.Group("/users")
	users.Use(d.requireAuth())
	{
		users.GET("/profile", authHandler.GetProfile)
		users.PUT("/profile", authHandler.UpdateProfile)
		users.POST("/change-password", authHandler.ChangePassword)
	}
}

// SetupUserRoutes sets up the address book and payment method vault
func SetupUserRoutes(rg *gin.RouterGroup, d *Deps) {
	addressHandler := handlers.NewAddressHandler(d.Addresses, d.Log)
	paymentHandler := handlers.NewPaymentMethodHandler(d.Payments, d.Log)

	addresses := rg.Group("/addresses")
	addresses.Use(d.requireAuth())
	{
		addresses.GET("", addressHandler.ListAddresses)
		addresses.POST("", addressHandler.CreateAddress)
		addresses.GET("/:id", addressHandler.GetAddress)
		addresses.PUT("/:id", addressHandler.UpdateAddress)
		addresses.DELETE("/:id", addressHandler.DeleteAddress)
		addresses.PATCH("/:id/default", addressHandler.SetDefaultAddress)
	}

	methods := rg.Group("/payment-methods")
	methods.Use(d.requireAuth())
	{
		methods.GET("", paymentHandler.ListPaymentMethods)
		methods.POST("", paymentHandler.CreatePaymentMethod)
		methods.GET("/:id", paymentHandler.GetPaymentMethod)
		methods.DELETE("/:id", paymentHandler.DeletePaymentMethod)
		methods.PATCH("/:id/default", paymentHandler.SetDefaultPaymentMethod)
	}
}

// SetupCatalogRoutes sets up products and the catalog taxonomy. Reads are
// public; writes require an admin.
func SetupCatalogRoutes(rg *gin.RouterGroup, d *Deps) {
	productHandler := handlers.NewProductHandler(d.Catalog, d.Log)
	taxonomyHandler := handlers.NewTaxonomyHandler(d.Taxonomy, d.Log)
	reviewHandler := handlers.NewReviewHandler(d.Reviews, d.Log)
	admin := []gin.HandlerFunc{d.requireAuth(), middleware.AdminMiddleware()}

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/:id/reviews", reviewHandler.ListProductReviews)

		manage := products.Group("", admin...)
		manage.GET("/export", productHandler.ExportProducts)
		manage.POST("", productHandler.CreateProduct)
		manage.PUT("/:id", productHandler.UpdateProduct)
		manage.DELETE("/:id", productHandler.DeleteProduct)
		manage.POST("/:id/images", productHandler.AddImage)
		manage.DELETE("/:id/images/:imageId", productHandler.DeleteImage)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", taxonomyHandler.ListCategories)
		categories.GET("/:id", taxonomyHandler.GetCategory)

		manage := categories.Group("", admin...)
		manage.POST("", taxonomyHandler.CreateCategory)
		manage.PUT("/:id", taxonomyHandler.UpdateCategory)
		manage.DELETE("/:id", taxonomyHandler.DeleteCategory)
	}

	subcategories := rg.Group("/subcategories")
	{
		subcategories.GET("", taxonomyHandler.ListSubcategories)

		manage := subcategories.Group("", admin...)
		manage.POST("", taxonomyHandler.CreateSubcategory)
		manage.PUT("/:id", taxonomyHandler.UpdateSubcategory)
		manage.DELETE("/:id", taxonomyHandler.DeleteSubcategory)
	}

	styles := rg.Group("/styles")
	{
		styles.GET("", taxonomyHandler.ListStyles)

		manage := styles.Group("", admin...)
		manage.POST("", taxonomyHandler.CreateStyle)
		manage.PUT("/:id", taxonomyHandler.UpdateStyle)
		manage.DELETE("/:id", taxonomyHandler.DeleteStyle)
	}

	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("", taxonomyHandler.ListSuppliers)

		manage := suppliers.Group("", admin...)
		manage.POST("", taxonomyHandler.CreateSupplier)
		manage.PUT("/:id", taxonomyHandler.UpdateSupplier)
		manage.DELETE("/:id", taxonomyHandler.DeleteSupplier)
	}
}

// SetupCartRoutes sets up cart routes. They work with anonymous sessions or
// authenticated users.
func SetupCartRoutes(rg *gin.RouterGroup, d *Deps) {
	cartHandler := handlers.NewCartHandler(d.Carts, d.Config, d.Log)

	carts := rg.Group("/cart")
	{
		carts.POST("/", d.optionalAuth(), cartHandler.CreateCart)
		carts.GET("/", d.optionalAuth(), cartHandler.GetCart)
		carts.DELETE("/", d.optionalAuth(), cartHandler.ClearCart)
		carts.POST("/associate", d.requireAuth(), cartHandler.AssociateCart)

		items := carts.Group("/items", d.optionalAuth())
		items.POST("", cartHandler.AddItem)
		items.PATCH("/:lineId", cartHandler.UpdateItem)
		items.DELETE("/:lineId", cartHandler.RemoveItem)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, d *Deps) {
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Log)

	orders := rg.Group("/order")
	orders.Use(d.requireAuth())
	{
		orders.POST("/create", orderHandler.CreateOrder)
		orders.GET("/user", orderHandler.ListUserOrders)
		orders.GET("/delivered-products", orderHandler.DeliveredProducts)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/invoice", orderHandler.DownloadInvoice)

		orders.PATCH("/:id/ship", middleware.AdminMiddleware(), orderHandler.MarkShipped)
		orders.PATCH("/:id/deliver", middleware.AdminMiddleware(), orderHandler.MarkDelivered)
	}
}

// SetupReviewRoutes sets up review routes for signed-in customers
func SetupReviewRoutes(rg *gin.RouterGroup, d *Deps) {
	reviewHandler := handlers.NewReviewHandler(d.Reviews, d.Log)

	reviews := rg.Group("/reviews")
	reviews.Use(d.requireAuth())
	{
		reviews.POST("", reviewHandler.CreateReview)
		reviews.PUT("/:id", reviewHandler.UpdateReview)
		reviews.DELETE("/:id", reviewHandler.DeleteReview)
		reviews.POST("/:id/report", reviewHandler.ReportReview)
	}
}

// SetupWishlistRoutes sets up wishlist routes
func SetupWishlistRoutes(rg *gin.RouterGroup, d *Deps) {
	wishlistHandler := handlers.NewWishlistHandler(d.Wishlist, d.Log)

	wishlist := rg.Group("/wishlist")
	wishlist.Use(d.requireAuth())
	{
		wishlist.GET("", wishlistHandler.GetWishlist)
		wishlist.POST("", wishlistHandler.AddToWishlist)
		wishlist.DELETE("", wishlistHandler.ClearWishlist)
		wishlist.DELETE("/:productId", wishlistHandler.RemoveFromWishlist)
	}
}

// SetupNotificationRoutes sets up notification routes and the websocket feed
func SetupNotificationRoutes(rg *gin.RouterGroup, d *Deps) {
	notificationHandler := handlers.NewNotificationHandler(d.Notifications, d.Hub, d.Config, d.Log)

	notifications := rg.Group("/notifications")
	notifications.Use(d.requireAuth())
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.GET("/ws", notificationHandler.Stream)
		notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
		notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.DeleteNotification)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, d *Deps) {
	userHandler := handlers.NewAdminUserHandler(d.Admin, d.Log)
	reviewHandler := handlers.NewReviewHandler(d.Reviews, d.Log)
	analyticsHandler := handlers.NewAnalyticsHandler(d.Analytics, d.Log)
	inventoryHandler := handlers.NewInventoryHandler(d.Inventory, d.Config, d.Log)

	admin := rg.Group("/admin")
	admin.Use(d.requireAuth())
	admin.Use(middleware.AdminMiddleware())
	{
		users := admin.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.POST("/:id/ban", userHandler.BanUser)
			users.DELETE("/:id/ban", userHandler.UnbanUser)
		}

		reviews := admin.Group("/reviews")
		{
			reviews.GET("/reported", reviewHandler.ModerationQueue)
			reviews.DELETE("/:id/reports", reviewHandler.DismissReports)
			reviews.DELETE("/:id", reviewHandler.AdminDeleteReview)
		}

		reports := admin.Group("/analytics")
		{
			reports.GET("/dashboard", analyticsHandler.GetDashboard)
			reports.GET("/sales", analyticsHandler.GetSales)
		}

		stock := admin.Group("/inventory")
		{
			stock.GET("/low-stock", inventoryHandler.GetLowStock)
			stock.POST("/:productId/adjust", inventoryHandler.AdjustStock)
			stock.GET("/:productId/movements", inventoryHandler.GetMovements)
		}
	}
}
