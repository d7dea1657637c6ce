package entity

import (
	"time"

	"gorm.io/gorm"
)

// Платёжные методы, которые может выбрать школа
const (
	PaymentMethodNone     = ""
	PaymentMethodStripe   = "stripe"
	PaymentMethodMidtrans = "midtrans"
)

// Domain представляет школу (тенант). Почти все сущности привязаны к домену.
type Domain struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Name            string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	PaymentMethod   string    `gorm:"size:20;not null;default:''" json:"payment_method"`
	CurrencyISOCode string    `gorm:"size:3;not null;default:'USD'" json:"currency_iso_code"`
	EmailFrom       string    `gorm:"size:255;not null;default:''" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Domain) TableName() string {
	return "domains"
}

// BeforeCreate генерирует ID
func (d *Domain) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	return nil
}

// HasPaymentMethod проверяет, настроен ли платёжный шлюз для домена
func (d *Domain) HasPaymentMethod() bool {
	return d.PaymentMethod != PaymentMethodNone
}
