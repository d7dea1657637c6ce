package entity

import (
	"time"

	"gorm.io/gorm"
)

// Типы сущностей, к которым выдаётся членство
const (
	EntityTypeCourse    = "course"
	EntityTypeCommunity = "community"
)

// Course представляет курс, продаваемый школой
type Course struct {
	ID                   string      `gorm:"primaryKey;size:36" json:"id"`
	DomainID             string      `gorm:"size:36;not null;index" json:"domain_id"`
	Title                string      `gorm:"size:255;not null" json:"title"`
	Published            bool        `gorm:"not null;default:false" json:"published"`
	PaymentPlanIDs       StringArray `gorm:"type:jsonb;not null" json:"payment_plan_ids"`
	DefaultPaymentPlanID string      `gorm:"size:36;not null;default:''" json:"default_payment_plan_id"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Course) TableName() string {
	return "courses"
}

// BeforeCreate генерирует ID
func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
