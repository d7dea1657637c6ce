package entity

import (
	"time"

	"gorm.io/gorm"
)

// Роли пользователя внутри домена
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// User представляет пользователя школы
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	DomainID  string    `gorm:"size:36;not null;uniqueIndex:idx_users_domain_email" json:"domain_id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_users_domain_email" json:"email"`
	Name      string    `gorm:"size:255;not null;default:''" json:"name"`
	Role      string    `gorm:"size:20;not null;default:'user'" json:"-"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate генерирует ID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// IsAdmin возвращает true для администраторов школы
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
