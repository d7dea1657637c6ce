package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	"github.com/yourusername/course-api/internal/payment"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

const webhookDedupTTL = 24 * time.Hour

// PaymentNotifier - уведомления, которые шлёт обработка вебхуков
type PaymentNotifier interface {
	NotifyCheckoutExpired(ctx context.Context, domain *entity.Domain, membership *entity.Membership, invoice *entity.Invoice)
	PushInvoiceStatus(userID string, invoice *entity.Invoice)
}

// WebhookService обрабатывает события платёжных шлюзов
type WebhookService struct {
	domainRepo     repository.DomainRepository
	planRepo       repository.PaymentPlanRepository
	membershipRepo repository.MembershipRepository
	invoiceRepo    repository.InvoiceRepository
	cacheRepo      repository.CacheRepository
	gateways       *payment.Registry
	memberships    *MembershipService
	notifier       PaymentNotifier
}

// NewWebhookService создает сервис обработки вебхуков
func NewWebhookService(
	domainRepo repository.DomainRepository,
	planRepo repository.PaymentPlanRepository,
	membershipRepo repository.MembershipRepository,
	invoiceRepo repository.InvoiceRepository,
	cacheRepo repository.CacheRepository,
	gateways *payment.Registry,
	memberships *MembershipService,
	notifier PaymentNotifier,
) *WebhookService {
	return &WebhookService{
		domainRepo:     domainRepo,
		planRepo:       planRepo,
		membershipRepo: membershipRepo,
		invoiceRepo:    invoiceRepo,
		cacheRepo:      cacheRepo,
		gateways:       gateways,
		memberships:    memberships,
		notifier:       notifier,
	}
}

// HandleWebhook проверяет тело вебхука через шлюз и обрабатывает событие.
// Возвращает true только для успешной оплаты.
func (s *WebhookService) HandleWebhook(ctx context.Context, method string, payload []byte, headers http.Header) (bool, error) {
	gateway, err := s.gateways.Get(method)
	if err != nil {
		return false, err
	}
	event, err := gateway.ParseEvent(ctx, payload, headers)
	if err != nil {
		return false, err
	}
	return s.HandleEvent(ctx, gateway, event)
}

// HandleEvent обрабатывает уже проверенное событие. Повторные доставки отбрасываются по ID события.
func (s *WebhookService) HandleEvent(ctx context.Context, gateway payment.Gateway, event payment.Event) (bool, error) {
	dedupKey := fmt.Sprintf("payment:event:%s:%s", gateway.Name(), event.EventID())
	if event.EventID() != "" {
		fresh, err := s.cacheRepo.SetNX(ctx, dedupKey, "1", webhookDedupTTL)
		if err != nil {
			log.Printf("[WebhookService] Ошибка дедупликации %s: %v, обрабатываем без неё", dedupKey, err)
		} else if !fresh {
			log.Printf("[WebhookService] Повторная доставка события %s, пропускаем", event.EventID())
			return false, nil
		}
	}

	err := s.dispatch(ctx, gateway, event)
	if err != nil {
		// даём шлюзу доставить событие повторно
		if delErr := s.cacheRepo.Delete(ctx, dedupKey); delErr != nil {
			log.Printf("[WebhookService] Не удалось снять ключ %s: %v", dedupKey, delErr)
		}
		return false, err
	}
	return payment.IsSuccessfulPayment(event), nil
}

func (s *WebhookService) dispatch(ctx context.Context, gateway payment.Gateway, event payment.Event) error {
	switch ev := event.(type) {
	case payment.CheckoutCompleted:
		if !ev.Paid {
			log.Printf("[WebhookService] Checkout для счёта %s завершён без оплаты, ждём подтверждения", ev.Metadata.InvoiceID)
			return nil
		}
		return s.handleCheckoutCompleted(ctx, gateway, ev)
	case payment.InvoicePaid:
		return s.handleRenewal(ctx, gateway, ev)
	case payment.CheckoutExpired:
		return s.handleCheckoutExpired(ctx, ev)
	case payment.Ignored:
		log.Printf("[WebhookService] Событие %s типа %s не обрабатывается", ev.ID, ev.Type)
		return nil
	default:
		return fmt.Errorf("%w: unsupported event %T", apperrors.ErrValidation, event)
	}
}

// handleCheckoutCompleted: счёт -> paid, затем активация, только если сессия счёта совпадает с текущей сессией членства.
// Подтверждение устаревшей сессии записывается в счёт, но членство не меняет.
// Уже оплаченный счёт не прерывает обработку: повторная доставка после сбоя активации должна её завершить.
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, gateway payment.Gateway, ev payment.CheckoutCompleted) error {
	invoice, err := s.invoiceRepo.GetByInvoiceID(ctx, ev.Metadata.InvoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[WebhookService] Счёт %s из события %s не найден", ev.Metadata.InvoiceID, ev.ID)
			return nil
		}
		return err
	}

	marked, err := s.markPaid(ctx, invoice.InvoiceID, ev.ProcessorEntityID)
	if err != nil {
		return err
	}
	if !marked {
		log.Printf("[WebhookService] Счёт %s уже оплачен, проверяем активацию членства", invoice.InvoiceID)
	}
	invoice.Status = entity.InvoiceStatusPaid

	domain, err := s.domainRepo.GetByID(ctx, invoice.DomainID)
	if err != nil {
		return fmt.Errorf("domain %s: %w", invoice.DomainID, err)
	}
	membership, err := s.membershipRepo.GetByID(ctx, domain.ID, invoice.MembershipID)
	if err != nil {
		return fmt.Errorf("membership %s: %w", invoice.MembershipID, err)
	}
	if marked {
		s.notifier.PushInvoiceStatus(membership.UserID, invoice)
	}

	if invoice.MembershipSessionID != membership.SessionID {
		log.Printf("[WebhookService] RECONCILE: счёт %s оплачен для устаревшей сессии %s, текущая сессия членства %s - %s; членство не меняется",
			invoice.InvoiceID, invoice.MembershipSessionID, membership.ID, membership.SessionID)
		return nil
	}

	plan, err := s.planRepo.GetByID(ctx, domain.ID, invoice.PaymentPlanID)
	if err != nil {
		return fmt.Errorf("payment plan %s: %w", invoice.PaymentPlanID, err)
	}

	if ev.SubscriptionID != "" && membership.SubscriptionID != ev.SubscriptionID {
		if err := s.membershipRepo.UpdateSubscription(ctx, membership.ID, ev.SubscriptionID, gateway.Name()); err != nil {
			return fmt.Errorf("failed to store subscription for membership %s: %w", membership.ID, err)
		}
		membership.SubscriptionID = ev.SubscriptionID
		membership.SubscriptionMethod = gateway.Name()
	}

	_, err = s.memberships.Activate(ctx, domain, membership, plan)
	return err
}

// markPaid переводит счёт в paid из pending, а также из failed: деньги всё равно списаны
func (s *WebhookService) markPaid(ctx context.Context, invoiceID, processorEntityID string) (bool, error) {
	for _, from := range []string{entity.InvoiceStatusPending, entity.InvoiceStatusFailed} {
		ok, err := s.invoiceRepo.TransitionStatus(ctx, invoiceID, from, entity.InvoiceStatusPaid, processorEntityID)
		if err != nil {
			return false, fmt.Errorf("failed to mark invoice %s paid: %w", invoiceID, err)
		}
		if ok {
			if from == entity.InvoiceStatusFailed {
				log.Printf("[WebhookService] RECONCILE: счёт %s был failed, но шлюз подтвердил оплату", invoiceID)
			}
			return true, nil
		}
	}
	return false, nil
}

// handleRenewal записывает оплаченный период подписки, возобновляет истёкшее членство
// и отменяет подписку EMI после последнего взноса
func (s *WebhookService) handleRenewal(ctx context.Context, gateway payment.Gateway, ev payment.InvoicePaid) error {
	membership, err := s.membershipRepo.GetBySubscriptionID(ctx, ev.SubscriptionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[WebhookService] Членство для подписки %s не найдено", ev.SubscriptionID)
			return nil
		}
		return err
	}
	domain, err := s.domainRepo.GetByID(ctx, membership.DomainID)
	if err != nil {
		return fmt.Errorf("domain %s: %w", membership.DomainID, err)
	}
	plan, err := s.planRepo.GetByID(ctx, domain.ID, membership.PaymentPlanID)
	if err != nil {
		return fmt.Errorf("payment plan %s: %w", membership.PaymentPlanID, err)
	}

	if _, err := s.recordRenewal(ctx, gateway, domain, membership, plan, ev); err != nil {
		return err
	}

	if !membership.IsActive() {
		if _, err := s.memberships.Activate(ctx, domain, membership, plan); err != nil {
			return err
		}
	}

	if plan.Type == entity.PaymentPlanTypeEMI && plan.EMITotalInstallments > 0 {
		paid, err := s.invoiceRepo.CountPaid(ctx, membership.ID, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to count paid installments: %w", err)
		}
		if paid >= int64(plan.EMITotalInstallments) {
			log.Printf("[WebhookService] Оплачены все %d взносов EMI членства %s, отменяем подписку %s",
				plan.EMITotalInstallments, membership.ID, ev.SubscriptionID)
			if err := gateway.Cancel(ctx, ev.SubscriptionID); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordRenewal записывает оплаченный счёт периода. Платёж шлюза, уже записанный
// при прошлой доставке, повторно не создаётся. Возвращает true, если счёт создан сейчас.
func (s *WebhookService) recordRenewal(ctx context.Context, gateway payment.Gateway, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan, ev payment.InvoicePaid) (bool, error) {
	if ev.ProcessorEntityID != "" {
		existing, err := s.invoiceRepo.GetByProcessorEntityID(ctx, gateway.Name(), ev.ProcessorEntityID)
		if err == nil {
			log.Printf("[WebhookService] Платёж %s уже записан в счёт %s", ev.ProcessorEntityID, existing.InvoiceID)
			return false, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return false, fmt.Errorf("failed to look up renewal invoice %s: %w", ev.ProcessorEntityID, err)
		}
	}

	currency := domain.CurrencyISOCode
	if currency == "" {
		currency = gateway.CurrencyISOCode()
	}
	invoice := &entity.Invoice{
		DomainID:                 domain.ID,
		MembershipID:             membership.ID,
		MembershipSessionID:      membership.SessionID,
		PaymentPlanID:            plan.ID,
		Amount:                   renewalAmount(plan),
		CurrencyISOCode:          currency,
		Status:                   entity.InvoiceStatusPaid,
		PaymentProcessor:         gateway.Name(),
		PaymentProcessorEntityID: ev.ProcessorEntityID,
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrInvoiceRecorded) {
			log.Printf("[WebhookService] Платёж %s записан параллельной доставкой", ev.ProcessorEntityID)
			return false, nil
		}
		return false, fmt.Errorf("failed to record renewal invoice: %w", err)
	}
	s.notifier.PushInvoiceStatus(membership.UserID, invoice)
	return true, nil
}

func renewalAmount(plan *entity.PaymentPlan) decimal.Decimal {
	if plan.Type == entity.PaymentPlanTypeEMI && plan.EMIAmount.IsPositive() {
		return plan.EMIAmount
	}
	return plan.ChargeAmount()
}

// handleCheckoutExpired помечает счёт failed и отправляет письмо об истёкшей оплате
func (s *WebhookService) handleCheckoutExpired(ctx context.Context, ev payment.CheckoutExpired) error {
	invoice, err := s.invoiceRepo.GetByInvoiceID(ctx, ev.Metadata.InvoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[WebhookService] Счёт %s из события %s не найден", ev.Metadata.InvoiceID, ev.ID)
			return nil
		}
		return err
	}

	changed, err := s.invoiceRepo.TransitionStatus(ctx, invoice.InvoiceID, entity.InvoiceStatusPending, entity.InvoiceStatusFailed, "")
	if err != nil {
		return fmt.Errorf("failed to mark invoice %s failed: %w", invoice.InvoiceID, err)
	}
	if !changed {
		return nil
	}
	invoice.Status = entity.InvoiceStatusFailed
	log.Printf("[WebhookService] Счёт %s: оплата не завершена (%s)", invoice.InvoiceID, ev.Reason)

	domain, err := s.domainRepo.GetByID(ctx, invoice.DomainID)
	if err != nil {
		return fmt.Errorf("domain %s: %w", invoice.DomainID, err)
	}
	membership, err := s.membershipRepo.GetByID(ctx, domain.ID, invoice.MembershipID)
	if err != nil {
		return fmt.Errorf("membership %s: %w", invoice.MembershipID, err)
	}
	s.notifier.PushInvoiceStatus(membership.UserID, invoice)
	s.notifier.NotifyCheckoutExpired(ctx, domain, membership, invoice)
	return nil
}
