package dto

import "github.com/yourusername/course-api/internal/domain/entity"

// UserResponse - профиль текущего пользователя
type UserResponse struct {
	ID       string `json:"id"`
	DomainID string `json:"domain_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
}

// WSTicketResponse - одноразовый тикет для подключения к websocket
type WSTicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expires_in"` // секунды
}

// NewUserResponse создает DTO пользователя
func NewUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:       user.ID,
		DomainID: user.DomainID,
		Email:    user.Email,
		Name:     user.Name,
		IsAdmin:  user.IsAdmin(),
	}
}
