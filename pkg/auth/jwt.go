package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/course-api/internal/domain/entity"
)

const (
	issuer          = "course-api"
	usageAccess     = ""
	usageWebsocket  = "websocket_auth"
	audienceUser    = "course-user"
	audienceWSToken = "course-ws"
)

// Ошибки проверки токена
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("invalid token")
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	UserID   string `json:"user_id"`
	DomainID string `json:"domain_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	// Usage отличает WS-тикет от токена доступа
	Usage string `json:"usage,omitempty"`
	jwt.RegisteredClaims
}

// JWTService предоставляет методы для работы с JWT (HS256)
type JWTService struct {
	secret         []byte
	expiration     time.Duration
	wsTicketExpiry time.Duration
	now            func() time.Time
}

// NewJWTService создает новый сервис JWT
func NewJWTService(secret string, expirationHrs int, wsTicketExpirySec int) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if wsTicketExpirySec <= 0 {
		wsTicketExpirySec = 60
	}
	return &JWTService{
		secret:         []byte(secret),
		expiration:     time.Duration(expirationHrs) * time.Hour,
		wsTicketExpiry: time.Duration(wsTicketExpirySec) * time.Second,
		now:            time.Now,
	}, nil
}

// WSTicketTTL возвращает срок жизни WS-тикета
func (s *JWTService) WSTicketTTL() time.Duration {
	return s.wsTicketExpiry
}

// GenerateToken создает токен доступа для пользователя домена
func (s *JWTService) GenerateToken(user *entity.User) (string, error) {
	return s.sign(user.ID, user.DomainID, user.Email, user.Role, usageAccess, s.expiration, audienceUser)
}

// GenerateWSTicket создает короткоживущий JWT для аутентификации WebSocket
func (s *JWTService) GenerateWSTicket(user *entity.User) (string, error) {
	return s.sign(user.ID, user.DomainID, user.Email, user.Role, usageWebsocket, s.wsTicketExpiry, audienceWSToken)
}

func (s *JWTService) sign(userID, domainID, email, role, usage string, ttl time.Duration, audience string) (string, error) {
	now := s.now()
	claims := &JWTCustomClaims{
		UserID:   userID,
		DomainID: domainID,
		Email:    email,
		Role:     role,
		Usage:    usage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для пользователя ID=%s: %v", userID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет токен доступа. WS-тикеты здесь не принимаются.
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*JWTCustomClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Usage != usageAccess {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseWSTicket проверяет JWT, используемый как WS-тикет
func (s *JWTService) ParseWSTicket(ticketString string) (*JWTCustomClaims, error) {
	claims, err := s.parse(ticketString)
	if err != nil {
		return nil, err
	}
	if claims.Usage != usageWebsocket {
		return nil, fmt.Errorf("%w: invalid ticket usage", ErrTokenInvalid)
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				log.Printf("[JWT] Токен пользователя ID=%s истёк", claims.UserID)
				return nil, ErrTokenExpired
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" || claims.DomainID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
