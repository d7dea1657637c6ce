package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service"
	"github.com/yourusername/course-api/pkg/reporting"
)

// handleError сопоставляет ошибку сервиса с HTTP-ответом для маршрутов тестов
func handleError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		reportInternal(c, component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// handlePaymentError отвечает в формате платёжных маршрутов: {status: "failed", error}.
// 401 отдаётся с пустым телом, чтобы не раскрывать детали.
func handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.Status(http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": service.InitiateStatusFailed, "error": err.Error()})
	case errors.Is(err, service.ErrPaymentNotConfigured):
		log.Printf("[PaymentHandler] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": service.InitiateStatusFailed, "error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrPrecondition):
		c.JSON(http.StatusBadRequest, gin.H{"status": service.InitiateStatusFailed, "error": err.Error()})
	case errors.Is(err, apperrors.ErrGateway):
		reportInternal(c, "PaymentHandler", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": service.InitiateStatusFailed, "error": err.Error()})
	default:
		reportInternal(c, "PaymentHandler", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": service.InitiateStatusFailed, "error": "Internal server error"})
	}
}

func reportInternal(c *gin.Context, component string, err error) {
	extras := map[string]interface{}{
		"route": c.FullPath(),
	}
	if userID := c.GetString("user_id"); userID != "" {
		extras["user_id"] = userID
	}
	if domain, ok := domainFromContext(c); ok {
		extras["domain_id"] = domain.ID
	}
	log.Printf("[%s] Internal error on %s %s: %v", component, c.Request.Method, c.Request.URL.Path, err)
	reporting.RequestError(c.Request, err, extras)
}
