package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/handlers"
	"github.com/judithshaven/storefront/internal/handlers/cart"
	"github.com/judithshaven/storefront/internal/middleware"
)

type Deps struct {
	DB              *gorm.DB
	JWTSecret       []byte
	AuthHandler     *handlers.AuthHandler
	UserHandler     *handlers.UserHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	CartHandler     *cart.CartHandler
	OrderHandler    *handlers.OrderHandler
	CouponHandler   *handlers.CouponHandler
	ReviewHandler   *handlers.ReviewHandler
	WishlistHandler *handlers.WishlistHandler
	ContactHandler  *handlers.ContactHandler
	SearchHandler   *handlers.SearchHandler
	AdminUsers      *handlers.AdminUserHandler
	AuditLogs       *handlers.AuditLogHandler
	WSHandler       *handlers.WSHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	requireLogin := middleware.RequireLogin(d.JWTSecret)

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/refresh", d.AuthHandler.Refresh)
	v1.POST("/logout", d.AuthHandler.LogOut)

	v1.GET("/search", d.SearchHandler.Search)
	v1.POST("/contact", d.ContactHandler.Create)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.ListForProduct)
	products.POST("/:id/reviews", d.ReviewHandler.Create, requireLogin)

	categories := v1.Group("/categories")
	categories.GET("", d.CategoryHandler.GetCategories)
	categories.GET("/:id", d.CategoryHandler.GetCategory)

	v1.POST("/coupons/validate", d.CouponHandler.Validate, requireLogin)

	me := v1.Group("/users/me", requireLogin)
	me.GET("", d.UserHandler.Me)
	me.PUT("", d.UserHandler.UpdateMe)

	cartGroup := v1.Group("/cart", requireLogin)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PATCH("/:id", d.CartHandler.UpdateQuantity)
	cartGroup.DELETE("", d.CartHandler.ClearCart)
	cartGroup.DELETE("/:id", d.CartHandler.DeleteOneFromCart)
	cartGroup.DELETE("/:id/all", d.CartHandler.DeleteAllFromCart)

	v1.POST("/checkout/quote", d.OrderHandler.Quote, requireLogin)

	ordersGroup := v1.Group("/orders", requireLogin)
	ordersGroup.POST("", d.OrderHandler.PlaceOrder)
	ordersGroup.GET("", d.OrderHandler.ListMine)
	ordersGroup.GET("/:id", d.OrderHandler.GetOrder)
	ordersGroup.POST("/:id/cancel-request", d.OrderHandler.CancelRequest)
	ordersGroup.POST("/:id/return-request", d.OrderHandler.ReturnRequest)

	wishlist := v1.Group("/wishlist", requireLogin)
	wishlist.GET("", d.WishlistHandler.List)
	wishlist.POST("", d.WishlistHandler.Add)
	wishlist.DELETE("/:id", d.WishlistHandler.Remove)

	v1.GET("/ws/orders/:id", d.WSHandler.OrderRoom, requireLogin)

	admin := v1.Group("/admin", requireLogin, middleware.RequireAdmin)

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/products/bulk-delete", d.ProductHandler.BulkDelete)
	admin.PATCH("/products/bulk-update", d.ProductHandler.BulkUpdate)
	admin.GET("/products/export", d.ProductHandler.Export)

	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.PatchCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)

	admin.GET("/orders", d.OrderHandler.ListAll)
	admin.PUT("/orders/:id/status", d.OrderHandler.UpdateStatus)
	admin.PUT("/orders/:id/pay", d.OrderHandler.MarkPaid)
	admin.POST("/orders/bulk-delete", d.OrderHandler.BulkDelete)
	admin.GET("/orders/export", d.OrderHandler.Export)

	admin.GET("/coupons", d.CouponHandler.List)
	admin.POST("/coupons", d.CouponHandler.Create)
	admin.DELETE("/coupons/:id", d.CouponHandler.Delete)

	admin.GET("/users", d.AdminUsers.ListUsers)
	admin.PUT("/users/:id/role", d.AdminUsers.UpdateRole)
	admin.DELETE("/users/:id", d.AdminUsers.DeleteUser)
	admin.POST("/users/bulk-delete", d.AdminUsers.BulkDelete)
	admin.GET("/users/export", d.AdminUsers.Export)

	admin.GET("/contact", d.ContactHandler.List)
	admin.GET("/audit-logs", d.AuditLogs.List)
}
