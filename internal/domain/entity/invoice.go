package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Статусы счёта
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusFailed  = "failed"
)

// Invoice - запись об одной попытке оплаты членства
type Invoice struct {
	ID                       string          `gorm:"primaryKey;size:36" json:"-"`
	InvoiceID                string          `gorm:"size:36;not null;uniqueIndex" json:"invoice_id"`
	DomainID                 string          `gorm:"size:36;not null;index" json:"domain_id"`
	MembershipID             string          `gorm:"size:36;not null;index" json:"membership_id"`
	MembershipSessionID      string          `gorm:"size:36;not null" json:"-"`
	PaymentPlanID            string          `gorm:"size:36;not null;default:''" json:"payment_plan_id"`
	Amount                   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	CurrencyISOCode          string          `gorm:"size:3;not null" json:"currency_iso_code"`
	Status                   string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaymentProcessor         string          `gorm:"size:20;not null" json:"payment_processor"`
	PaymentProcessorEntityID string          `gorm:"size:255;not null;default:''" json:"-"`
	Metadata                 datatypes.JSON  `gorm:"type:jsonb" json:"-"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Invoice) TableName() string {
	return "invoices"
}

// BeforeCreate генерирует внутренний и публичный ID
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	if i.InvoiceID == "" {
		i.InvoiceID = NewID()
	}
	return nil
}

// IsPending проверяет, ожидает ли счёт оплаты
func (i *Invoice) IsPending() bool {
	return i.Status == InvoiceStatusPending
}
