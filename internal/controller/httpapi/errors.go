package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByKind = map[model.ErrorKind]int{
	model.KindNotFound:          http.StatusNotFound,
	model.KindForbidden:         http.StatusForbidden,
	model.KindInvalidTransition: http.StatusConflict,
	model.KindConflict:          http.StatusConflict,
	model.KindPolicyViolation:   http.StatusUnprocessableEntity,
	model.KindValidation:        http.StatusBadRequest,
	model.KindUnavailable:       http.StatusServiceUnavailable,
}

// StatusFor HTTP-код для ошибки сервиса
func StatusFor(err error) int {
	if status, ok := statusByKind[model.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var e *model.Error
	if !errors.As(err, &e) {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if e.Kind == model.KindUnavailable {
		h.logger.Warn("Store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(StatusFor(err), ErrorResponse{
		Error:   e.Message,
		Kind:    string(e.Kind),
		Details: e.Details,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(model.KindValidation)})
}
