package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/companion_booking/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *Handler) SubmitReview(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	review, err := h.reviews.SubmitReview(c.Request.Context(), service.SubmitReviewInput{
		BookingID:  bookingID,
		ReviewerID: actorID(c),
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *Handler) EditReview(c *gin.Context) {
	reviewID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	review, err := h.reviews.EditReview(c.Request.Context(), reviewID, actorID(c), req.Rating, req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *Handler) DisputeEligibility(c *gin.Context) {
	reviewID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	eligibility, err := h.reviews.CanDisputeReview(c.Request.Context(), reviewID, actorID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, eligibility)
}

func (h *Handler) DisputeReview(c *gin.Context) {
	reviewID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	review, err := h.reviews.DisputeReview(c.Request.Context(), reviewID, actorID(c), req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *Handler) ListUserReviews(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		return
	}

	reviews, err := h.reviews.ListReviews(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}
