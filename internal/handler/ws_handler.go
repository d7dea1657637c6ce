package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/course-api/internal/websocket"
	"github.com/yourusername/course-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsHub      *websocket.Hub
	wsManager  *websocket.Manager
	jwtService *auth.JWTService
	upgrader   gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins должен совпадать со списком CORS.
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	jwtService *auth.JWTService,
	allowedOrigins []string,
) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		wsHub:      wsHub,
		wsManager:  wsManager,
		jwtService: jwtService,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Пустой Origin - не браузерный клиент
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Отклонён origin: %s", origin)
				return false
			},
			EnableCompression: true,
		},
	}
}

// HandleConnection обрабатывает GET /ws?ticket=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// тикет не логируем
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.jwtService.ParseWSTicket(ticket)
	if err != nil {
		log.Printf("[WSHandler] Недействительный тикет: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}

	if domain, ok := domainFromContext(c); ok && domain.ID != claims.DomainID {
		log.Printf("[WSHandler] Тикет пользователя %s выдан для другого домена", claims.UserID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Printf("[WSHandler] Ошибка upgrade для пользователя %s: %v", claims.UserID, err)
		return
	}

	log.Printf("[WSHandler] Подключен пользователь %s", claims.UserID)
	client := websocket.NewClient(h.wsHub, conn, claims.UserID)
	client.Run(h.wsManager.HandleMessage)
}
