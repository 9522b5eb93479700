package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BookingSvc interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID, userID int64) (*model.Booking, error)
	ListBookings(ctx context.Context, userID int64) ([]*model.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, companionID int64) (*model.Booking, error)
	DeclineBooking(ctx context.Context, bookingID uuid.UUID, companionID int64, reason string) (*model.Booking, error)
	StartBooking(ctx context.Context, bookingID uuid.UUID, companionID int64) (*model.Booking, error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID, companionID int64) (*model.Booking, error)
	CompleteBookingEarly(ctx context.Context, bookingID uuid.UUID, userID int64) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, userID int64, reason string) (*model.Booking, error)
	EmergencyCancelBooking(ctx context.Context, bookingID uuid.UUID, userID int64, reason string) (*model.Booking, error)
	ReportNoShow(ctx context.Context, bookingID uuid.UUID, reporterID int64, description string) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, userID int64, target model.BookingStatus, reason string) (*model.Booking, error)
	RecordPaymentCaptured(ctx context.Context, bookingID uuid.UUID, status model.PaymentStatus) (*model.Booking, error)
	GetSchedule(ctx context.Context, companionID int64, from, to time.Time) ([]model.TimeRange, error)
	CheckAvailability(ctx context.Context, companionID int64, start, end time.Time) (bool, error)
	RunScheduledTransitions(ctx context.Context) ([]service.SweepResult, error)
}

type ReviewSvc interface {
	SubmitReview(ctx context.Context, in service.SubmitReviewInput) (*model.Review, error)
	EditReview(ctx context.Context, reviewID uuid.UUID, reviewerID int64, rating int, comment string) (*model.Review, error)
	CanDisputeReview(ctx context.Context, reviewID uuid.UUID, userID int64) (model.DisputeEligibility, error)
	DisputeReview(ctx context.Context, reviewID uuid.UUID, companionID int64, reason string) (*model.Review, error)
	ResolveReviewDispute(ctx context.Context, reviewID uuid.UUID, upheld bool) (*model.Review, error)
	ListReviews(ctx context.Context, revieweeID int64) ([]*model.Review, error)
}

type StrikeSvc interface {
	ListActiveStrikes(ctx context.Context, userID int64) ([]*model.Strike, error)
	VoidStrike(ctx context.Context, strikeID uuid.UUID, reason string) error
	ConfirmStrike(ctx context.Context, strikeID uuid.UUID) error
}

type FeeSetter interface {
	SetPlatformFeeFraction(ctx context.Context, fee decimal.Decimal) error
}

type Handler struct {
	bookings BookingSvc
	reviews  ReviewSvc
	strikes  StrikeSvc
	fees     FeeSetter
	logger   *zap.Logger
}

func NewHandler(bookings BookingSvc, reviews ReviewSvc, strikes StrikeSvc, fees FeeSetter, logger *zap.Logger) *Handler {
	return &Handler{
		bookings: bookings,
		reviews:  reviews,
		strikes:  strikes,
		fees:     fees,
		logger:   logger,
	}
}

// Bookings

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		HirerID:     actorID(c),
		CompanionID: req.CompanionID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), id, actorID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListBookings(c.Request.Context(), actorID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.UpdateBookingStatus(c.Request.Context(), id, actorID(c), req.Status, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

type bookingAction func(ctx context.Context, bookingID uuid.UUID, userID int64, reason string) (*model.Booking, error)

// transitionHandler общий обработчик для POST /bookings/:id/<действие>
func (h *Handler) transitionHandler(action bookingAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req ReasonRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		booking, err := action(c.Request.Context(), id, actorID(c), req.Reason)
		if err != nil {
			h.handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, booking)
	}
}

func (h *Handler) ConfirmBooking() gin.HandlerFunc {
	return h.transitionHandler(func(ctx context.Context, id uuid.UUID, userID int64, _ string) (*model.Booking, error) {
		return h.bookings.ConfirmBooking(ctx, id, userID)
	})
}

func (h *Handler) DeclineBooking() gin.HandlerFunc {
	return h.transitionHandler(h.bookings.DeclineBooking)
}

func (h *Handler) StartBooking() gin.HandlerFunc {
	return h.transitionHandler(func(ctx context.Context, id uuid.UUID, userID int64, _ string) (*model.Booking, error) {
		return h.bookings.StartBooking(ctx, id, userID)
	})
}

func (h *Handler) CompleteBooking() gin.HandlerFunc {
	return h.transitionHandler(func(ctx context.Context, id uuid.UUID, userID int64, _ string) (*model.Booking, error) {
		return h.bookings.CompleteBooking(ctx, id, userID)
	})
}

func (h *Handler) CompleteBookingEarly() gin.HandlerFunc {
	return h.transitionHandler(func(ctx context.Context, id uuid.UUID, userID int64, _ string) (*model.Booking, error) {
		return h.bookings.CompleteBookingEarly(ctx, id, userID)
	})
}

func (h *Handler) CancelBooking() gin.HandlerFunc {
	return h.transitionHandler(h.bookings.CancelBooking)
}

func (h *Handler) EmergencyCancelBooking() gin.HandlerFunc {
	return h.transitionHandler(h.bookings.EmergencyCancelBooking)
}

func (h *Handler) ReportNoShow() gin.HandlerFunc {
	return h.transitionHandler(h.bookings.ReportNoShow)
}

// Companions

func (h *Handler) GetSchedule(c *gin.Context) {
	companionID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}

	busy, err := h.bookings.GetSchedule(c.Request.Context(), companionID, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ScheduleResponse{CompanionID: companionID, From: from, To: to, Busy: busy})
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	companionID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	start, ok := timeQuery(c, "start")
	if !ok {
		return
	}
	end, ok := timeQuery(c, "end")
	if !ok {
		return
	}

	available, err := h.bookings.CheckAvailability(c.Request.Context(), companionID, start, end)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		CompanionID: companionID,
		StartTime:   start,
		EndTime:     end,
		Available:   available,
	})
}

func (h *Handler) ListStrikes(c *gin.Context) {
	strikes, err := h.strikes.ListActiveStrikes(c.Request.Context(), actorID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, strikes)
}

// params

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func timeQuery(c *gin.Context, name string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, c.Query(name))
	if err != nil {
		badRequest(c, "invalid "+name+" format, expected RFC3339")
		return time.Time{}, false
	}
	return t, true
}
