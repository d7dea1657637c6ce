package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	"github.com/yourusername/course-api/pkg/auth"
)

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	jwtService *auth.JWTService
	userRepo   repository.UserRepository
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userRepo:   userRepo,
	}
}

// RequireAuth проверяет Bearer-токен и загружает активного пользователя домена.
// Должен стоять после TenantMiddleware. Ответ 401 без тела.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtService.ParseToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		v, exists := c.Get(ContextDomainKey)
		domain, _ := v.(*entity.Domain)
		if !exists || domain == nil || domain.ID != claims.DomainID {
			log.Printf("[AuthMiddleware] Токен пользователя %s выдан для другого домена", claims.UserID)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), domain.ID, claims.UserID)
		if err != nil || !user.Active {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("email", user.Email)
		c.Set("is_admin", user.IsAdmin())

		c.Next()
	}
}

// AdminOnly пропускает только администраторов школы. Ставится после RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_id") == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !c.GetBool("is_admin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
