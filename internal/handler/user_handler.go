package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/handler/dto"
	"github.com/yourusername/course-api/pkg/auth"
)

// UserHandler обрабатывает запросы, связанные с текущим пользователем
type UserHandler struct {
	jwtService *auth.JWTService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(jwtService *auth.JWTService) *UserHandler {
	return &UserHandler{
		jwtService: jwtService,
	}
}

// GetMe возвращает профиль пользователя, загруженный RequireAuth
func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user.(*entity.User)))
}

// IssueWSTicket выдаёт короткоживущий тикет для подключения к /ws
func (h *UserHandler) IssueWSTicket(c *gin.Context) {
	v, ok := c.Get("user")
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	user := v.(*entity.User)

	ticket, err := h.jwtService.GenerateWSTicket(user)
	if err != nil {
		log.Printf("[UserHandler] Не удалось выдать WS-тикет пользователю %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.WSTicketResponse{
		Ticket:    ticket,
		ExpiresIn: int(h.jwtService.WSTicketTTL().Seconds()),
	})
}
