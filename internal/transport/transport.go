package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/eventbook/config"
	"github.com/ds124wfegd/eventbook/internal/transport/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Event   *EventHandler
	Booking *BookingHandler
	Auth    *AuthHandler
	// Authenticator guards the private routes; usually the auth service.
	Authenticator middleware.Authenticator
}

func InitRoutes(cfg *config.Config, h *Handlers) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	protect := middleware.Auth(h.Authenticator)

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ok",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.GET("/me", protect, h.Auth.Me)
		}

		events := api.Group("/events")
		{
			events.GET("", h.Event.ListEvents)
			events.GET("/:id", h.Event.GetEvent)
			events.POST("", protect, h.Event.CreateEvent)
			events.PUT("/:id", protect, h.Event.UpdateEvent)
			events.DELETE("/:id", protect, h.Event.DeleteEvent)
		}

		bookings := api.Group("/bookings", protect)
		{
			bookings.GET("", h.Booking.GetMyBookings)
			bookings.POST("", h.Booking.CreateBooking)
			bookings.DELETE("/:id", h.Booking.CancelBooking)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Route not found")
	})

	return router
}
