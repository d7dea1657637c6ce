// Package midtrans - адаптер Midtrans Snap (разовые оплаты) с подтверждением статуса через Core API
package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	midtransapi "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/payment"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// Name - значение domain.payment_method для Midtrans
const Name = entity.PaymentMethodMidtrans

// Config - настройки Midtrans
type Config struct {
	ServerKey  string
	Production bool
	Currency   string
}

type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtransapi.Error)
}

type statusAPI interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtransapi.Error)
}

// Gateway реализует payment.Gateway поверх midtrans-go
type Gateway struct {
	snap      snapAPI
	status    statusAPI
	serverKey string
	currency  string
}

// New создает адаптер Midtrans
func New(cfg Config) (*Gateway, error) {
	if cfg.ServerKey == "" {
		return nil, fmt.Errorf("midtrans server key is required")
	}
	env := midtransapi.Sandbox
	if cfg.Production {
		env = midtransapi.Production
	}

	var snapClient snap.Client
	snapClient.New(cfg.ServerKey, env)
	var coreClient coreapi.Client
	coreClient.New(cfg.ServerKey, env)

	currency := strings.ToUpper(cfg.Currency)
	if currency == "" {
		currency = "IDR"
	}
	return &Gateway{
		snap:      &snapClient,
		status:    &coreClient,
		serverKey: cfg.ServerKey,
		currency:  currency,
	}, nil
}

// Name возвращает имя шлюза
func (g *Gateway) Name() string { return Name }

// CurrencyISOCode возвращает валюту расчётов
func (g *Gateway) CurrencyISOCode() string { return g.currency }

// Initiate создает Snap-транзакцию. order_id = invoiceId.
func (g *Gateway) Initiate(ctx context.Context, params payment.InitiateParams) (*payment.Session, error) {
	if params.Plan == nil {
		return nil, fmt.Errorf("%w: payment plan is required", apperrors.ErrValidation)
	}
	if params.Plan.IsRecurring() {
		return nil, fmt.Errorf("%w: midtrans supports one-time plans only", apperrors.ErrPrecondition)
	}
	amount := params.Amount.Round(0).IntPart()
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	req := &snap.Request{
		TransactionDetails: midtransapi.TransactionDetails{
			OrderID:  params.Metadata.InvoiceID,
			GrossAmt: amount,
		},
		Items: &[]midtransapi.ItemDetails{{
			ID:    params.Product.ID,
			Name:  truncate(params.Product.Title, 50),
			Price: amount,
			Qty:   1,
		}},
		CustomField1: params.Metadata.MembershipID,
		CustomField2: params.Metadata.DomainID,
		CustomField3: params.Metadata.CurrencyISOCode,
	}
	if origin := strings.TrimRight(params.Origin, "/"); origin != "" {
		req.Callbacks = &snap.Callbacks{
			Finish: fmt.Sprintf("%s/checkout/verify?id=%s", origin, params.Metadata.InvoiceID),
		}
	}

	resp, mErr := g.snap.CreateTransaction(req)
	if mErr != nil {
		return nil, payment.GatewayError(Name, fmt.Errorf("%v", mErr))
	}
	return &payment.Session{ID: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// ValidateSubscription: подписки через этот адаптер не оформляются
func (g *Gateway) ValidateSubscription(ctx context.Context, subscriptionID string) (bool, error) {
	return false, nil
}

// Cancel: отменять нечего, операция идемпотентна
func (g *Gateway) Cancel(ctx context.Context, subscriptionID string) error {
	if subscriptionID != "" {
		log.Printf("[MidtransGateway] WARN: отмена подписки %s не поддерживается, пропускаем", subscriptionID)
	}
	return nil
}

// notification - тело HTTP-уведомления Midtrans
type notification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// ParseEvent проверяет signature_key уведомления и перепроверяет статус через CheckTransaction
func (g *Gateway) ParseEvent(ctx context.Context, payload []byte, headers http.Header) (payment.Event, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: malformed midtrans notification: %v", apperrors.ErrValidation, err)
	}
	if n.OrderID == "" {
		return nil, fmt.Errorf("%w: midtrans notification has no order_id", apperrors.ErrValidation)
	}
	if !g.validSignature(n) {
		return nil, fmt.Errorf("%w: invalid midtrans signature", apperrors.ErrUnauthorized)
	}

	status, mErr := g.status.CheckTransaction(n.OrderID)
	if mErr != nil {
		return nil, payment.GatewayError(Name, fmt.Errorf("%v", mErr))
	}

	meta := payment.Metadata{InvoiceID: n.OrderID}
	eventID := fmt.Sprintf("%s:%s", status.TransactionID, status.TransactionStatus)
	return toEvent(eventID, meta, status.TransactionStatus, status.FraudStatus, status.TransactionID), nil
}

// toEvent переводит статус транзакции Midtrans в событие
func toEvent(eventID string, meta payment.Metadata, transactionStatus, fraudStatus, transactionID string) payment.Event {
	switch transactionStatus {
	case "settlement":
		return payment.CheckoutCompleted{ID: eventID, Paid: true, Metadata: meta, ProcessorEntityID: transactionID}
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return payment.CheckoutCompleted{ID: eventID, Paid: true, Metadata: meta, ProcessorEntityID: transactionID}
		}
		return payment.Ignored{ID: eventID, Type: "capture:" + fraudStatus}
	case "expire", "cancel", "deny", "failure":
		return payment.CheckoutExpired{ID: eventID, Metadata: meta, Reason: transactionStatus}
	default:
		return payment.Ignored{ID: eventID, Type: transactionStatus}
	}
}

// validSignature: SHA512(order_id + status_code + gross_amount + server_key)
func (g *Gateway) validSignature(n notification) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + g.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) == 1
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
