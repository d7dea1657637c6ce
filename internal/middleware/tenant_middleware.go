package middleware

import (
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/domain/repository"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// ContextDomainKey - ключ контекста gin с *entity.Domain текущего запроса
const ContextDomainKey = "domain"

// DomainHeader позволяет указать школу явно (за прокси, в тестах)
const DomainHeader = "X-Domain"

// TenantMiddleware определяет школу по заголовку X-Domain или по Host
func TenantMiddleware(domainRepo repository.DomainRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := domainName(c.Request)
		if name == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "domain not found"})
			return
		}

		domain, err := domainRepo.GetByName(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "domain not found"})
				return
			}
			log.Printf("[TenantMiddleware] Ошибка загрузки домена %q: %v", name, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(ContextDomainKey, domain)
		c.Next()
	}
}

// domainName возвращает имя школы: X-Domain, иначе первый сегмент Host
// (school.example.com -> school)
func domainName(r *http.Request) string {
	if name := strings.TrimSpace(r.Header.Get(DomainHeader)); name != "" {
		return strings.ToLower(name)
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}
