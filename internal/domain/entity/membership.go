package entity

import (
	"time"

	"gorm.io/gorm"
)

// Статусы членства
const (
	MembershipStatusPending  = "pending"
	MembershipStatusActive   = "active"
	MembershipStatusRejected = "rejected"
	MembershipStatusExpired  = "expired"
)

// Роли участника сообщества
const (
	MembershipRoleModerate = "MODERATE"
	MembershipRolePost     = "POST"
	MembershipRoleComment  = "COMMENT"
)

// Membership - доступ пользователя к курсу или сообществу
type Membership struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	DomainID           string    `gorm:"size:36;not null;uniqueIndex:idx_membership_owner" json:"domain_id"`
	UserID             string    `gorm:"size:36;not null;uniqueIndex:idx_membership_owner" json:"user_id"`
	EntityID           string    `gorm:"size:36;not null;uniqueIndex:idx_membership_owner" json:"entity_id"`
	EntityType         string    `gorm:"size:20;not null;uniqueIndex:idx_membership_owner" json:"entity_type"`
	Status             string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Role               string    `gorm:"size:20;not null;default:''" json:"role"`
	PaymentPlanID      string    `gorm:"size:36;not null;default:''" json:"payment_plan_id"`
	SessionID          string    `gorm:"size:36;not null;default:''" json:"-"`
	SubscriptionID     string    `gorm:"size:255;not null;default:'';index" json:"-"`
	SubscriptionMethod string    `gorm:"size:20;not null;default:''" json:"-"`
	JoiningReason      string    `gorm:"size:1000;not null;default:''" json:"joining_reason,omitempty"`
	RejectionReason    string    `gorm:"size:1000;not null;default:''" json:"rejection_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Membership) TableName() string {
	return "memberships"
}

// BeforeCreate генерирует ID и первичную сессию
func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.SessionID == "" {
		m.SessionID = NewID()
	}
	return nil
}

// IsActive проверяет, активно ли членство
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// IsRejected проверяет, отклонено ли членство
func (m *Membership) IsRejected() bool {
	return m.Status == MembershipStatusRejected
}
