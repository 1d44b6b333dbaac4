package controllers

import (
	"errors"
	"net/http"

	"zapdesk/services"
	"zapdesk/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// StatusFor traduz a taxonomia de erros dos serviços para status HTTP.
func StatusFor(err error) int {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		gatewayErr    *tools.GatewayError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNoTenant):
		return http.StatusForbidden
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError responde com a mensagem do erro; falhas internas também são logadas.
func RespondServiceError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", code),
			zap.Error(err))
	}
	RespondError(c, err.Error(), code)
}
