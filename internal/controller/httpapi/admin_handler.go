package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Служебные маршруты: платёжный шлюз, модерация, ручной запуск планировщика

func (h *Handler) RecordPayment(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.RecordPaymentCaptured(c.Request.Context(), bookingID, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) ResolveDispute(c *gin.Context) {
	reviewID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	review, err := h.reviews.ResolveReviewDispute(c.Request.Context(), reviewID, *req.Upheld)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.logger.Info("Review dispute resolved",
		zap.String("review_id", reviewID.String()),
		zap.Bool("upheld", *req.Upheld),
	)
	c.JSON(http.StatusOK, review)
}

func (h *Handler) VoidStrike(c *gin.Context) {
	strikeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.strikes.VoidStrike(c.Request.Context(), strikeID, req.Reason); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ConfirmStrike(c *gin.Context) {
	strikeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.strikes.ConfirmStrike(c.Request.Context(), strikeID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RunScheduler(c *gin.Context) {
	results, err := h.bookings.RunScheduledTransitions(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) SetPlatformFee(c *gin.Context) {
	var req PlatformFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	fee, err := decimal.NewFromString(req.Fee)
	if err != nil || fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		badRequest(c, "fee must be a decimal in [0, 1)")
		return
	}

	if err := h.fees.SetPlatformFeeFraction(c.Request.Context(), fee); err != nil {
		h.handleError(c, err)
		return
	}

	h.logger.Info("Platform fee updated", zap.String("fee", fee.String()))
	c.JSON(http.StatusOK, gin.H{"fee": fee.String()})
}
