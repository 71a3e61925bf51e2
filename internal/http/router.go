// README: HTTP router registration (gin engine, shared middleware, route table).
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"semas/internal/http/handlers"
	"semas/internal/http/middleware"
	"semas/internal/modules/avatar"
	"semas/internal/modules/booking"
	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/modules/payment"
	"semas/internal/modules/prefs"
	"semas/internal/modules/pricing"
	"semas/internal/modules/session"
)

// MediaPrefix is where avatars held by the in-memory object store are served.
const MediaPrefix = "/media/"

type Deps struct {
	Sessions *session.Manager
	Tokens   *middleware.Tokens
	Orders   *order.Service
	Pricing  *pricing.Service
	Payments *payment.Service
	Booking  *booking.Service
	Prefs    *prefs.Service
	Avatars  *avatar.Service
	// LocalAvatars is set when avatars are kept in process instead of S3.
	LocalAvatars   *avatar.MemoryStore
	AllowedOrigins []string
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	authHandler := handlers.NewAuthHandler(deps.Sessions, deps.Tokens)
	avatarHandler := handlers.NewAvatarHandler(deps.Avatars, deps.LocalAvatars)
	r.GET(MediaPrefix+"*key", avatarHandler.Object)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Tokens, deps.Sessions))

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/navigate/:view", authHandler.Navigate)

	catalogHandler := handlers.NewCatalogHandler(deps.Pricing, deps.Orders)
	api.GET("/services", catalogHandler.List)

	prefsHandler := handlers.NewPrefsHandler(deps.Prefs)
	api.GET("/prefs", prefsHandler.Get)
	api.PUT("/prefs", prefsHandler.Update)
	api.PUT("/prefs/selected-service", prefsHandler.SetSelectedService)
	api.POST("/prefs/selected-service/consume", prefsHandler.ConsumeSelectedService)

	authed := api.Group("")
	authed.Use(middleware.RequireSession())

	authed.GET("/me", authHandler.Me)
	authed.PATCH("/me", authHandler.UpdateMe)
	authed.PUT("/me/avatar", avatarHandler.Upload)
	authed.GET("/users/:id", authHandler.User)

	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	authed.POST("/payments", paymentHandler.Process)

	customer := middleware.RequireRole(directory.RoleCustomer)
	bookingHandler := handlers.NewBookingHandler(deps.Booking)
	authed.POST("/bookings", customer, bookingHandler.Book)

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	authed.POST("/orders", customer, orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/active", orderHandler.Active)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.GET("/orders/:id/events", orderHandler.Events)
	authed.POST("/orders/:id/rate", customer, orderHandler.Rate)
	authed.GET("/orders/:id/messages", orderHandler.Messages)
	authed.POST("/orders/:id/messages", orderHandler.PostMessage)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)

	techHandler := handlers.NewTechnicianHandler(deps.Orders)
	jobs := authed.Group("/jobs")
	jobs.Use(middleware.RequireRole(directory.RoleTechnician, directory.RoleAdmin))
	jobs.GET("/queue", techHandler.Queue)
	jobs.GET("/mine", techHandler.Mine)
	jobs.POST("/:id/accept", techHandler.Accept)
	jobs.POST("/:id/status", techHandler.Status)

	return r
}

// corsConfig allows any origin, without credentials, when none are configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", handlers.DeviceHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
