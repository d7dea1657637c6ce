package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service"
)

// Тело вебхука больше этого размера отклоняется
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler принимает уведомления платёжных шлюзов
type WebhookHandler struct {
	webhookService *service.WebhookService
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// Handle обрабатывает POST /api/payment/webhook/:method.
// Подпись проверяет шлюз, поэтому тело читается без разбора.
// 5xx заставляет шлюз повторить доставку.
func (h *WebhookHandler) Handle(c *gin.Context) {
	method := c.Param("method")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(payload) > maxWebhookBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}

	success, err := h.webhookService.HandleWebhook(c.Request.Context(), method, payload, c.Request.Header)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnauthorized):
			log.Printf("[WebhookHandler] Отклонён вебхук %s: %v", method, err)
			c.Status(http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrPrecondition):
			log.Printf("[WebhookHandler] Вебхук для ненастроенного шлюза %s", method)
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment method"})
		case errors.Is(err, apperrors.ErrValidation):
			log.Printf("[WebhookHandler] Некорректное событие %s: %v", method, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			reportInternal(c, "WebhookHandler", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "success": success})
}
