package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы платёжных планов
const (
	PaymentPlanTypeFree         = "free"
	PaymentPlanTypeOneTime      = "onetime"
	PaymentPlanTypeSubscription = "subscription"
	PaymentPlanTypeEMI          = "emi"
)

// PaymentPlan описывает ценовое предложение, прикреплённое к курсу или сообществу
type PaymentPlan struct {
	ID                        string          `gorm:"primaryKey;size:36" json:"id"`
	DomainID                  string          `gorm:"size:36;not null;index" json:"domain_id"`
	Name                      string          `gorm:"size:255;not null" json:"name"`
	Type                      string          `gorm:"size:20;not null" json:"type"`
	OneTimeAmount             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"one_time_amount"`
	SubscriptionMonthlyAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subscription_monthly_amount"`
	SubscriptionYearlyAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subscription_yearly_amount"`
	EMIAmount                 decimal.Decimal `gorm:"column:emi_amount;type:numeric(12,2);not null;default:0" json:"emi_amount"`
	EMITotalInstallments      int             `gorm:"column:emi_total_installments;not null;default:0" json:"emi_total_installments"`
	EntityID                  string          `gorm:"size:36;not null;default:''" json:"entity_id"`
	EntityType                string          `gorm:"size:20;not null;default:''" json:"entity_type"`
	Archived                  bool            `gorm:"not null;default:false" json:"archived"`
	Internal                  bool            `gorm:"not null;default:false" json:"internal"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (PaymentPlan) TableName() string {
	return "payment_plans"
}

// BeforeCreate генерирует ID
func (p *PaymentPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

// IsFree проверяет, бесплатный ли план
func (p *PaymentPlan) IsFree() bool {
	return p.Type == PaymentPlanTypeFree
}

// IsRecurring возвращает true для подписок и рассрочки (EMI)
func (p *PaymentPlan) IsRecurring() bool {
	return p.Type == PaymentPlanTypeSubscription || p.Type == PaymentPlanTypeEMI
}

// IsOneTime проверяет разовую покупку
func (p *PaymentPlan) IsOneTime() bool {
	return p.Type == PaymentPlanTypeOneTime
}

// ChargeAmount возвращает сумму для счёта: разовая, подписка (месяц, затем год) или EMI,
// что задано первым. Если ничего не задано - 0.
func (p *PaymentPlan) ChargeAmount() decimal.Decimal {
	for _, amount := range []decimal.Decimal{
		p.OneTimeAmount,
		p.SubscriptionMonthlyAmount,
		p.SubscriptionYearlyAmount,
		p.EMIAmount,
	} {
		if amount.IsPositive() {
			return amount
		}
	}
	return decimal.Zero
}

// BillingInterval возвращает интервал списания для подписки: "month" или "year"
func (p *PaymentPlan) BillingInterval() string {
	if p.Type == PaymentPlanTypeSubscription &&
		!p.SubscriptionMonthlyAmount.IsPositive() &&
		p.SubscriptionYearlyAmount.IsPositive() {
		return "year"
	}
	return "month"
}
