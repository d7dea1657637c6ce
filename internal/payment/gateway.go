// Package payment описывает контракт платёжного шлюза и типизированные события вебхуков.
package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/yourusername/course-api/internal/domain/entity"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// Ключи метаданных, которые передаются в шлюз и возвращаются в событиях
const (
	MetaMembershipID    = "membershipId"
	MetaInvoiceID       = "invoiceId"
	MetaCurrencyISOCode = "currencyISOCode"
	MetaDomainID        = "domainId"
)

// Metadata связывает сессию шлюза с нашими записями
type Metadata struct {
	MembershipID    string `json:"membershipId"`
	InvoiceID       string `json:"invoiceId"`
	CurrencyISOCode string `json:"currencyISOCode"`
	DomainID        string `json:"domainId"`
}

// Map возвращает метаданные в виде, который принимают шлюзы
func (m Metadata) Map() map[string]string {
	return map[string]string{
		MetaMembershipID:    m.MembershipID,
		MetaInvoiceID:       m.InvoiceID,
		MetaCurrencyISOCode: m.CurrencyISOCode,
		MetaDomainID:        m.DomainID,
	}
}

// MetadataFromMap разбирает метаданные события. invoiceId обязателен.
func MetadataFromMap(values map[string]string) (Metadata, error) {
	m := Metadata{
		MembershipID:    values[MetaMembershipID],
		InvoiceID:       values[MetaInvoiceID],
		CurrencyISOCode: values[MetaCurrencyISOCode],
		DomainID:        values[MetaDomainID],
	}
	if m.InvoiceID == "" {
		return Metadata{}, fmt.Errorf("%w: event metadata has no %s", apperrors.ErrValidation, MetaInvoiceID)
	}
	return m, nil
}

// InitiateParams - данные для создания checkout-сессии
type InitiateParams struct {
	Metadata Metadata
	Plan     *entity.PaymentPlan
	Product  entity.Product
	Origin   string
	Amount   decimal.Decimal
	Currency string
}

// Session - ответ шлюза, по которому клиент уходит на оплату
type Session struct {
	ID          string
	RedirectURL string
}

// Gateway - адаптер внешнего платёжного шлюза
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, params InitiateParams) (*Session, error)
	ValidateSubscription(ctx context.Context, subscriptionID string) (bool, error)
	// Cancel идемпотентен: отмена уже отменённой подписки не ошибка
	Cancel(ctx context.Context, subscriptionID string) error
	CurrencyISOCode() string
	// ParseEvent проверяет подпись и превращает тело вебхука в типизированное событие
	ParseEvent(ctx context.Context, payload []byte, headers http.Header) (Event, error)
}

// GatewayError оборачивает ошибку шлюза, сохраняя его сообщение для клиента
func GatewayError(gateway string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrGateway, gateway, err)
}
