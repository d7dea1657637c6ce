package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/domain/entity"
)

// domainFromContext возвращает школу, определённую TenantMiddleware
func domainFromContext(c *gin.Context) (*entity.Domain, bool) {
	v, exists := c.Get("domain")
	if !exists {
		return nil, false
	}
	domain, ok := v.(*entity.Domain)
	return domain, ok && domain != nil
}

// userIDFromContext возвращает ID пользователя, установленный RequireAuth
func userIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	return userID, userID != ""
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool("is_admin")
}
