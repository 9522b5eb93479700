package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter собирает маршруты API. Служебные маршруты монтируются только при заданном adminToken.
func NewRouter(mode string, h *Handler, adminToken string, timeout time.Duration, logger *zap.Logger) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), RequestTimeout(timeout))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", RequireActor())
	{
		bookings := api.Group("/bookings")
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/status", h.UpdateBookingStatus)
		bookings.POST("/:id/confirm", h.ConfirmBooking())
		bookings.POST("/:id/decline", h.DeclineBooking())
		bookings.POST("/:id/start", h.StartBooking())
		bookings.POST("/:id/complete", h.CompleteBooking())
		bookings.POST("/:id/complete-early", h.CompleteBookingEarly())
		bookings.POST("/:id/cancel", h.CancelBooking())
		bookings.POST("/:id/emergency-cancel", h.EmergencyCancelBooking())
		bookings.POST("/:id/no-show", h.ReportNoShow())
		bookings.POST("/:id/reviews", h.SubmitReview)

		companions := api.Group("/companions")
		companions.GET("/:id/schedule", h.GetSchedule)
		companions.GET("/:id/availability", h.CheckAvailability)

		reviews := api.Group("/reviews")
		reviews.PATCH("/:id", h.EditReview)
		reviews.GET("/:id/dispute-eligibility", h.DisputeEligibility)
		reviews.POST("/:id/dispute", h.DisputeReview)

		api.GET("/users/:id/reviews", h.ListUserReviews)
		api.GET("/me/strikes", h.ListStrikes)
	}

	if adminToken != "" {
		internal := r.Group("/internal", RequireAdmin(adminToken))
		internal.POST("/bookings/:id/payment", h.RecordPayment)
		internal.POST("/reviews/:id/resolve", h.ResolveDispute)
		internal.POST("/strikes/:id/void", h.VoidStrike)
		internal.POST("/strikes/:id/confirm", h.ConfirmStrike)
		internal.POST("/scheduler/run", h.RunScheduler)
		internal.PUT("/settings/platform-fee", h.SetPlatformFee)
	} else {
		logger.Warn("ADMIN_TOKEN is empty, internal routes are disabled")
	}

	return r
}
