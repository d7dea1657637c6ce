package entity

import (
	"time"

	"gorm.io/gorm"
)

// Community представляет сообщество школы
type Community struct {
	ID                   string      `gorm:"primaryKey;size:36" json:"id"`
	DomainID             string      `gorm:"size:36;not null;index" json:"domain_id"`
	Name                 string      `gorm:"size:255;not null" json:"name"`
	AutoAcceptMembers    bool        `gorm:"not null;default:false" json:"auto_accept_members"`
	PaymentPlanIDs       StringArray `gorm:"type:jsonb;not null" json:"payment_plan_ids"`
	DefaultPaymentPlanID string      `gorm:"size:36;not null;default:''" json:"default_payment_plan_id"`
	Deleted              bool        `gorm:"not null;default:false" json:"-"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Community) TableName() string {
	return "communities"
}

// BeforeCreate генерирует ID
func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// Product: минимальное описание покупаемой сущности для платёжного шлюза
type Product struct {
	ID    string
	Type  string
	Title string
}

// ProductFromCourse формирует Product из курса
func ProductFromCourse(c *Course) Product {
	return Product{ID: c.ID, Type: EntityTypeCourse, Title: c.Title}
}

// ProductFromCommunity формирует Product из сообщества
func ProductFromCommunity(c *Community) Product {
	return Product{ID: c.ID, Type: EntityTypeCommunity, Title: c.Name}
}
