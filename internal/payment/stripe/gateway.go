// Package stripe - адаптер Stripe Checkout и Subscriptions
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/payment"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// Name - значение domain.payment_method для Stripe
const Name = entity.PaymentMethodStripe

// Config - настройки Stripe
type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type checkoutAPI interface {
	New(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

type subscriptionAPI interface {
	Get(id string, params *stripeapi.SubscriptionParams) (*stripeapi.Subscription, error)
	Cancel(id string, params *stripeapi.SubscriptionCancelParams) (*stripeapi.Subscription, error)
}

// Gateway реализует payment.Gateway поверх stripe-go
type Gateway struct {
	checkout      checkoutAPI
	subscriptions subscriptionAPI
	webhookSecret string
	currency      string
}

// New создает адаптер Stripe
func New(cfg Config) (*Gateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &Gateway{
		checkout:      sc.CheckoutSessions,
		subscriptions: sc.Subscriptions,
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToUpper(cfg.Currency),
	}, nil
}

// Name возвращает имя шлюза
func (g *Gateway) Name() string { return Name }

// CurrencyISOCode возвращает валюту по умолчанию
func (g *Gateway) CurrencyISOCode() string { return g.currency }

// Initiate создает Checkout Session: payment для разовых планов, subscription для подписок и EMI
func (g *Gateway) Initiate(ctx context.Context, params payment.InitiateParams) (*payment.Session, error) {
	sp, err := g.checkoutParams(params)
	if err != nil {
		return nil, err
	}
	sp.Context = ctx

	session, err := g.checkout.New(sp)
	if err != nil {
		return nil, payment.GatewayError(Name, err)
	}
	return &payment.Session{ID: session.ID, RedirectURL: session.URL}, nil
}

func (g *Gateway) checkoutParams(params payment.InitiateParams) (*stripeapi.CheckoutSessionParams, error) {
	if params.Plan == nil {
		return nil, fmt.Errorf("%w: payment plan is required", apperrors.ErrValidation)
	}
	currency := params.Currency
	if currency == "" {
		currency = g.currency
	}
	unitAmount := params.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if unitAmount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	priceData := &stripeapi.CheckoutSessionLineItemPriceDataParams{
		Currency: stripeapi.String(strings.ToLower(currency)),
		ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(params.Product.Title),
		},
		UnitAmount: stripeapi.Int64(unitAmount),
	}

	origin := strings.TrimRight(params.Origin, "/")
	metadata := params.Metadata.Map()
	sp := &stripeapi.CheckoutSessionParams{
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			PriceData: priceData,
			Quantity:  stripeapi.Int64(1),
		}},
		SuccessURL:        stripeapi.String(fmt.Sprintf("%s/checkout/verify?id=%s", origin, params.Metadata.InvoiceID)),
		CancelURL:         stripeapi.String(origin),
		ClientReferenceID: stripeapi.String(params.Metadata.InvoiceID),
		Metadata:          metadata,
	}

	if params.Plan.IsRecurring() {
		interval := params.Plan.BillingInterval()
		priceData.Recurring = &stripeapi.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripeapi.String(interval),
		}
		sp.Mode = stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription))
		sp.SubscriptionData = &stripeapi.CheckoutSessionSubscriptionDataParams{Metadata: metadata}
	} else {
		sp.Mode = stripeapi.String(string(stripeapi.CheckoutSessionModePayment))
	}
	return sp, nil
}

// ValidateSubscription проверяет, что подписка активна
func (g *Gateway) ValidateSubscription(ctx context.Context, subscriptionID string) (bool, error) {
	if subscriptionID == "" {
		return false, nil
	}
	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.subscriptions.Get(subscriptionID, params)
	if err != nil {
		if isResourceMissing(err) {
			return false, nil
		}
		return false, payment.GatewayError(Name, err)
	}
	return sub.Status == stripeapi.SubscriptionStatusActive || sub.Status == stripeapi.SubscriptionStatusTrialing, nil
}

// Cancel отменяет подписку. Уже отменённая или удалённая подписка - не ошибка.
func (g *Gateway) Cancel(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	getParams := &stripeapi.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := g.subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		if isResourceMissing(err) {
			return nil
		}
		return payment.GatewayError(Name, err)
	}
	if sub.Status == stripeapi.SubscriptionStatusCanceled {
		log.Printf("[StripeGateway] Подписка %s уже отменена", subscriptionID)
		return nil
	}

	cancelParams := &stripeapi.SubscriptionCancelParams{}
	cancelParams.Context = ctx
	if _, err := g.subscriptions.Cancel(subscriptionID, cancelParams); err != nil {
		if isResourceMissing(err) {
			return nil
		}
		return payment.GatewayError(Name, err)
	}
	return nil
}

// ParseEvent проверяет подпись Stripe-Signature и разбирает событие
func (g *Gateway) ParseEvent(ctx context.Context, payload []byte, headers http.Header) (payment.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, headers.Get("Stripe-Signature"), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid stripe signature: %v", apperrors.ErrUnauthorized, err)
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: stripe event %s has no data", apperrors.ErrValidation, event.ID)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var cs stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: malformed checkout session: %v", apperrors.ErrValidation, err)
		}
		meta, err := payment.MetadataFromMap(cs.Metadata)
		if err != nil {
			return nil, err
		}
		completed := payment.CheckoutCompleted{
			ID:                event.ID,
			Paid:              cs.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid,
			Metadata:          meta,
			ProcessorEntityID: cs.ID,
		}
		if cs.Subscription != nil {
			completed.SubscriptionID = cs.Subscription.ID
		}
		return completed, nil

	case "checkout.session.expired", "checkout.session.async_payment_failed":
		var cs stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: malformed checkout session: %v", apperrors.ErrValidation, err)
		}
		meta, err := payment.MetadataFromMap(cs.Metadata)
		if err != nil {
			return nil, err
		}
		return payment.CheckoutExpired{ID: event.ID, Metadata: meta, Reason: string(event.Type)}, nil

	case "invoice.paid":
		var inv stripeapi.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: malformed invoice: %v", apperrors.ErrValidation, err)
		}
		// первый счёт подписки уже обработан через checkout.session.completed
		if inv.BillingReason == stripeapi.InvoiceBillingReasonSubscriptionCreate || inv.Subscription == nil {
			return payment.Ignored{ID: event.ID, Type: string(event.Type)}, nil
		}
		paid := payment.InvoicePaid{
			ID:                event.ID,
			SubscriptionID:    inv.Subscription.ID,
			ProcessorEntityID: inv.ID,
		}
		if inv.SubscriptionDetails != nil {
			// у продления нет нашего счёта: invoiceId в метаданных подписки указывает на первый счёт
			paid.Metadata, _ = payment.MetadataFromMap(inv.SubscriptionDetails.Metadata)
		}
		return paid, nil
	}

	return payment.Ignored{ID: event.ID, Type: string(event.Type)}, nil
}

func isResourceMissing(err error) bool {
	var stripeErr *stripeapi.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripeapi.ErrorCodeResourceMissing
}
