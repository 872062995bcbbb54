package v1

import (
	"context"
	"net/http"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/service"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Services struct {
	Auth      *service.AuthService
	Booking   *service.BookingService
	Directory *service.DirectoryService
	Inventory *service.InventoryService
	Record    *service.RecordService
}

// NewRouter assembles the full HTTP surface: global middleware, the public
// auth endpoints, and the authenticated v1 API.
func NewRouter(
	ctx context.Context,
	cfg *config.Config,
	svcs Services,
	jwtManager *auth.JWTManager,
	collector *metrics.Collector,
	log *zap.Logger,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(MetricsMiddleware(collector))
	router.Use(RateLimitMiddleware(ctx, cfg.RateLimit, log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowedOrigins,
		AllowMethods:  cfg.CORS.AllowedMethods,
		AllowHeaders:  cfg.CORS.AllowedHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        cfg.CORS.MaxAge,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authHandler := NewAuthHandler(svcs.Auth)
	bookingHandler := NewBookingHandler(svcs.Booking)
	directoryHandler := NewDirectoryHandler(svcs.Directory)
	inventoryHandler := NewInventoryHandler(svcs.Inventory)
	recordHandler := NewRecordHandler(svcs.Record)

	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(AuthRateLimitMiddleware(ctx, cfg.RateLimit, log))
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	authed := api.Group("")
	authed.Use(AuthMiddleware(jwtManager))
	{
		authed.POST("/auth/register", RequireRoles(domain.RoleAdmin), authHandler.Register)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		reservations := authed.Group("/reservations")
		{
			reservations.POST("", bookingHandler.RequestReservation)
			reservations.GET("", RequireRoles(domain.RoleAdmin), bookingHandler.ListByStatus)
			reservations.GET("/upcoming", bookingHandler.ListUpcoming)
			reservations.GET("/:id", bookingHandler.GetReservation)
			reservations.POST("/:id/decision", RequireRoles(domain.RoleProvider, domain.RoleAdmin), bookingHandler.DecideReservation)
			reservations.POST("/:id/cancel", bookingHandler.CancelReservation)
			reservations.POST("/:id/complete", RequireRoles(domain.RoleProvider, domain.RoleAdmin), bookingHandler.CompleteReservation)
			reservations.POST("/:id/reschedule", bookingHandler.RescheduleReservation)
		}

		providers := authed.Group("/providers")
		{
			providers.POST("", RequireRoles(domain.RoleAdmin), directoryHandler.CreateProvider)
			providers.GET("", directoryHandler.ListProviders)
			providers.GET("/:provider_id", directoryHandler.GetProvider)
			providers.GET("/:provider_id/slots", bookingHandler.ListAvailableSlots)
			providers.GET("/:provider_id/slots/check", bookingHandler.CheckSlot)
			providers.GET("/:provider_id/pending", RequireRoles(domain.RoleProvider, domain.RoleAdmin), bookingHandler.ListPending)
			providers.GET("/:provider_id/schedule", bookingHandler.GetSchedule)
			providers.PUT("/:provider_id/schedule", RequireRoles(domain.RoleProvider, domain.RoleAdmin), bookingHandler.SetSchedule)
		}

		patients := authed.Group("/patients")
		{
			patients.POST("", RequireRoles(domain.RoleAdmin), directoryHandler.CreatePatient)
			patients.GET("", RequireRoles(domain.RoleAdmin, domain.RoleProvider), directoryHandler.ListPatients)
			patients.GET("/:patient_id", directoryHandler.GetPatient)
			patients.DELETE("/:patient_id", RequireRoles(domain.RoleAdmin), directoryHandler.DeactivatePatient)
			patients.POST("/:patient_id/records", RequireRoles(domain.RoleProvider, domain.RoleAdmin), recordHandler.AppendEntry)
			patients.GET("/:patient_id/records", recordHandler.ListByPatient)
		}

		records := authed.Group("/records")
		{
			records.POST("/:entry_id/addenda", RequireRoles(domain.RoleProvider, domain.RoleAdmin), recordHandler.AddAddendum)
		}

		medications := authed.Group("/medications")
		{
			medications.POST("", RequireRoles(domain.RoleAdmin, domain.RolePharmacist), inventoryHandler.CreateMedication)
			medications.GET("", RequireRoles(domain.RoleAdmin, domain.RolePharmacist, domain.RoleProvider), inventoryHandler.ListMedications)
			medications.GET("/:id", RequireRoles(domain.RoleAdmin, domain.RolePharmacist, domain.RoleProvider), inventoryHandler.GetMedication)
			medications.PATCH("/:id/stock", RequireRoles(domain.RoleAdmin, domain.RolePharmacist), inventoryHandler.AdjustStock)
			medications.PATCH("/:id/threshold", RequireRoles(domain.RoleAdmin, domain.RolePharmacist), inventoryHandler.SetLowStockThreshold)
			medications.POST("/:id/replenish", RequireRoles(domain.RoleAdmin, domain.RolePharmacist), inventoryHandler.RequestReplenishment)
			medications.POST("/:id/replenish/fulfill", RequireRoles(domain.RoleAdmin, domain.RolePharmacist), inventoryHandler.FulfillReplenishment)
			medications.DELETE("/:id", RequireRoles(domain.RoleAdmin), inventoryHandler.DeleteMedication)
		}
	}

	return router
}
