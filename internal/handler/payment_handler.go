package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service"
)

// PaymentHandler обрабатывает запросы на оплату и вступление
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler создает новый обработчик платежей
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// VerifyRequest - запрос статуса счёта
type VerifyRequest struct {
	ID string `json:"id" binding:"required"`
}

// Initiate обрабатывает POST /api/payment/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handlePaymentError(c, apperrors.ErrNotFound)
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	var req service.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": service.InitiateStatusFailed, "error": err.Error()})
		return
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), domain, userID, req)
	if err != nil {
		log.Printf("[PaymentHandler] Initiate user=%s %s=%s plan=%s: %v", userID, req.EntityType, req.EntityID, req.PlanID, err)
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyNew обрабатывает POST /api/payment/verify-new. Только читает статус счёта.
func (h *PaymentHandler) VerifyNew(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handlePaymentError(c, apperrors.ErrNotFound)
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": service.InitiateStatusFailed, "error": err.Error()})
		return
	}

	status, err := h.paymentService.Verify(c.Request.Context(), domain, userID, req.ID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// CancelMembership обрабатывает POST /api/memberships/:id/cancel
func (h *PaymentHandler) CancelMembership(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handlePaymentError(c, apperrors.ErrNotFound)
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	membershipID := c.GetString("membershipID")

	membership, err := h.paymentService.CancelSubscription(c.Request.Context(), domain, userID, membershipID)
	if err != nil {
		handleError(c, "PaymentHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     membership.ID,
		"status": membership.Status,
	})
}
