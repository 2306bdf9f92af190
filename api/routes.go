package api

import (
	"net/http"

	authhandler "backend/api/handlers/auth"
	carthandler "backend/api/handlers/cart"
	categoryhandler "backend/api/handlers/category"
	chathandler "backend/api/handlers/chat"
	reviewhandler "backend/api/handlers/review"
	storehandler "backend/api/handlers/store"
	transactionhandler "backend/api/handlers/transaction"
	unitpricehandler "backend/api/handlers/unitprice"
	userhandler "backend/api/handlers/user"
	wastehandler "backend/api/handlers/waste"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth        *authhandler.Handler
	User        *userhandler.Handler
	Store       *storehandler.Handler
	Waste       *wastehandler.Handler
	UnitPrice   *unitpricehandler.Handler
	Cart        *carthandler.Handler
	Transaction *transactionhandler.Handler
	Review      *reviewhandler.Handler
	Category    *categoryhandler.Handler
	Chat        *chathandler.Handler
}

// NewRouter builds the gin engine: global middleware, health endpoints and
// all API routes.
func NewRouter(cfg *config.Config, jwtService *auth.JWTService, db *gorm.DB, rdb redis.UniversalClient, h *Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Metrics(),
	)

	registerHealthRoutes(router, db, rdb)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAuthRoutes(router, h)
	registerPublicRoutes(router, h)
	registerProtectedRoutes(router, jwtService, h)

	return router
}

func registerHealthRoutes(router *gin.Engine, db *gorm.DB, rdb redis.UniversalClient) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness checks the backing stores; the load balancer pulls the pod
	// when either is down.
	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

func registerAuthRoutes(router *gin.Engine, h *Handlers) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}
}

// registerPublicRoutes mounts the browse endpoints that work without a login.
func registerPublicRoutes(router *gin.Engine, h *Handlers) {
	wastes := router.Group("/farm-wastes")
	{
		wastes.GET("", h.Waste.List)
		wastes.GET("/featured", h.Waste.Featured)
		wastes.POST("/search", h.Waste.Search)
		// The :id segment also accepts a slug; the handler disambiguates.
		wastes.GET("/:id", h.Waste.Get)
	}

	router.GET("/stores/:id", h.Store.Get)
	router.GET("/stores/:id/farm-wastes", h.Store.Products)

	prices := router.Group("/unit-prices")
	{
		prices.GET("/farm-waste/:wasteId", h.UnitPrice.ListByWaste)
		prices.GET("/:id", h.UnitPrice.Get)
	}

	router.GET("/reviews/farm-waste/:wasteId", h.Review.ListByWaste)

	router.GET("/categories", h.Category.List)
	router.GET("/category-groups", h.Category.ListGroups)

	router.POST("/chat", h.Chat.Stream)
}

func registerProtectedRoutes(router *gin.Engine, jwtService *auth.JWTService, h *Handlers) {
	authed := router.Group("")
	authed.Use(auth.Middleware(jwtService))

	users := authed.Group("/users")
	{
		users.GET("/me", h.User.Me)
		users.PUT("/me", h.User.UpdateMe)
	}

	stores := authed.Group("/stores")
	{
		stores.POST("", h.Store.Create)
		stores.GET("/mine", h.Store.Mine)
		stores.PUT("/:id", h.Store.Update)
	}

	wastes := authed.Group("/farm-wastes")
	{
		wastes.POST("", h.Waste.Create)
		wastes.PUT("/:id", h.Waste.Update)
		wastes.DELETE("/:id", h.Waste.Delete)
	}

	prices := authed.Group("/unit-prices")
	{
		prices.POST("", h.UnitPrice.Create)
		prices.PUT("/:id", h.UnitPrice.Update)
		prices.DELETE("/:id", h.UnitPrice.Delete)
	}

	cart := authed.Group("/cart")
	{
		cart.GET("", h.Cart.Get)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/items/:id", h.Cart.RemoveItem)
	}

	transactions := authed.Group("/transactions")
	{
		transactions.POST("", h.Transaction.Create)
		transactions.GET("", h.Transaction.ListMine)
		transactions.GET("/:orderId", h.Transaction.Get)
		transactions.PUT("/:orderId/status", h.Transaction.UpdateStatus)
	}

	reviews := authed.Group("/reviews")
	{
		reviews.POST("", h.Review.Create)
		reviews.DELETE("/:id", h.Review.Delete)
	}

	categories := authed.Group("")
	{
		categories.POST("/categories", h.Category.Create)
		categories.POST("/category-groups", h.Category.CreateGroup)
	}
}
