package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	"github.com/yourusername/course-api/internal/payment"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// Статусы ответа payment/initiate
const (
	InitiateStatusSuccess   = "success"
	InitiateStatusFailed    = "failed"
	InitiateStatusInitiated = "initiated"
)

const initiateLockTTL = 30 * time.Second

// InitiateRequest - запрос на вступление или покупку
type InitiateRequest struct {
	EntityID      string `json:"id" binding:"required"`
	EntityType    string `json:"type" binding:"required"`
	PlanID        string `json:"planId" binding:"required"`
	Origin        string `json:"origin"`
	JoiningReason string `json:"joiningReason"`
}

// InitiateResult - ответ payment/initiate
type InitiateResult struct {
	Status         string            `json:"status"`
	PaymentTracker string            `json:"paymentTracker,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// PaymentService реализует инициацию оплаты, проверку статуса счёта и отмену подписки
type PaymentService struct {
	userRepo       repository.UserRepository
	courseRepo     repository.CourseRepository
	communityRepo  repository.CommunityRepository
	planRepo       repository.PaymentPlanRepository
	membershipRepo repository.MembershipRepository
	invoiceRepo    repository.InvoiceRepository
	cacheRepo      repository.CacheRepository
	gateways       *payment.Registry
	memberships    *MembershipService
}

// NewPaymentService создает платёжный сервис
func NewPaymentService(
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	communityRepo repository.CommunityRepository,
	planRepo repository.PaymentPlanRepository,
	membershipRepo repository.MembershipRepository,
	invoiceRepo repository.InvoiceRepository,
	cacheRepo repository.CacheRepository,
	gateways *payment.Registry,
	memberships *MembershipService,
) *PaymentService {
	return &PaymentService{
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		communityRepo:  communityRepo,
		planRepo:       planRepo,
		membershipRepo: membershipRepo,
		invoiceRepo:    invoiceRepo,
		cacheRepo:      cacheRepo,
		gateways:       gateways,
		memberships:    memberships,
	}
}

// purchasable - курс или сообщество, к которому пользователь получает доступ
type purchasable struct {
	product           entity.Product
	planIDs           entity.StringArray
	autoAcceptMembers bool
}

// Initiate разбирает запрос на вступление/покупку и либо активирует членство, либо создаёт checkout-сессию
func (s *PaymentService) Initiate(ctx context.Context, domain *entity.Domain, userID string, req InitiateRequest) (*InitiateResult, error) {
	user, err := s.userRepo.GetByID(ctx, domain.ID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if !user.Active {
		return nil, apperrors.ErrUnauthorized
	}

	item, err := s.resolveEntity(ctx, domain.ID, req.EntityID, req.EntityType)
	if err != nil {
		return nil, err
	}
	plan, err := s.resolvePlan(ctx, domain.ID, req.PlanID, item)
	if err != nil {
		return nil, err
	}

	var gateway payment.Gateway
	if !plan.IsFree() {
		gateway, err = s.gateways.Get(domain.PaymentMethod)
		if err != nil {
			log.Printf("[PaymentService] Домен %s: платёжный шлюз не настроен (%q)", domain.ID, domain.PaymentMethod)
			return nil, ErrPaymentNotConfigured
		}
	}

	membership, err := s.loadOrCreateMembership(ctx, domain.ID, user.ID, item.product)
	if err != nil {
		return nil, err
	}

	switch {
	case membership.IsRejected():
		return nil, ErrMembershipRejected

	case membership.IsActive():
		if plan.IsFree() {
			return &InitiateResult{Status: InitiateStatusSuccess}, nil
		}
		if !plan.IsRecurring() {
			return nil, ErrAlreadyEnrolled
		}
		valid, err := s.validateSubscription(ctx, domain, membership)
		if err != nil {
			return nil, err
		}
		if valid {
			return &InitiateResult{Status: InitiateStatusSuccess}, nil
		}
		if _, err := s.membershipRepo.UpdateStatus(ctx, membership.ID, entity.MembershipStatusActive, entity.MembershipStatusExpired); err != nil {
			return nil, fmt.Errorf("failed to expire membership %s: %w", membership.ID, err)
		}
		membership.Status = entity.MembershipStatusExpired
		log.Printf("[PaymentService] Подписка членства %s недействительна, членство переведено в expired", membership.ID)
	}

	if plan.IsFree() {
		return s.joinFree(ctx, domain, membership, plan, item, req.JoiningReason)
	}
	return s.startCheckout(ctx, domain, membership, plan, item, gateway, req.Origin)
}

func (s *PaymentService) resolveEntity(ctx context.Context, domainID, entityID, entityType string) (*purchasable, error) {
	switch entityType {
	case entity.EntityTypeCourse:
		course, err := s.courseRepo.GetByID(ctx, domainID, entityID)
		if err != nil {
			return nil, fmt.Errorf("course %s: %w", entityID, err)
		}
		return &purchasable{product: entity.ProductFromCourse(course), planIDs: course.PaymentPlanIDs}, nil
	case entity.EntityTypeCommunity:
		community, err := s.communityRepo.GetByID(ctx, domainID, entityID)
		if err != nil {
			return nil, fmt.Errorf("community %s: %w", entityID, err)
		}
		return &purchasable{
			product:           entity.ProductFromCommunity(community),
			planIDs:           community.PaymentPlanIDs,
			autoAcceptMembers: community.AutoAcceptMembers,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrValidation, entityType)
	}
}

func (s *PaymentService) resolvePlan(ctx context.Context, domainID, planID string, item *purchasable) (*entity.PaymentPlan, error) {
	if !item.planIDs.Contains(planID) {
		return nil, ErrInvalidPlan
	}
	plan, err := s.planRepo.GetByID(ctx, domainID, planID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidPlan
		}
		return nil, fmt.Errorf("failed to load payment plan %s: %w", planID, err)
	}
	if plan.Archived || plan.Internal {
		return nil, ErrInvalidPlan
	}
	return plan, nil
}

func (s *PaymentService) loadOrCreateMembership(ctx context.Context, domainID, userID string, product entity.Product) (*entity.Membership, error) {
	membership, err := s.membershipRepo.GetByOwner(ctx, domainID, userID, product.ID, product.Type)
	if err == nil {
		return membership, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	membership = &entity.Membership{
		DomainID:   domainID,
		UserID:     userID,
		EntityID:   product.ID,
		EntityType: product.Type,
		Status:     entity.MembershipStatusPending,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		if errors.Is(err, repository.ErrMembershipExists) {
			return s.membershipRepo.GetByOwner(ctx, domainID, userID, product.ID, product.Type)
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	return membership, nil
}

func (s *PaymentService) validateSubscription(ctx context.Context, domain *entity.Domain, membership *entity.Membership) (bool, error) {
	if membership.SubscriptionID == "" {
		return false, nil
	}
	method := membership.SubscriptionMethod
	if method == "" {
		method = domain.PaymentMethod
	}
	gateway, err := s.gateways.Get(method)
	if err != nil {
		return false, ErrPaymentNotConfigured
	}
	return gateway.ValidateSubscription(ctx, membership.SubscriptionID)
}

func (s *PaymentService) joinFree(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan, item *purchasable, joiningReason string) (*InitiateResult, error) {
	if item.product.Type == entity.EntityTypeCommunity && !item.autoAcceptMembers {
		joiningReason = strings.TrimSpace(joiningReason)
		if joiningReason == "" {
			return nil, ErrJoiningReasonRequired
		}
		membership.JoiningReason = joiningReason
	}
	if _, err := s.memberships.Activate(ctx, domain, membership, plan); err != nil {
		return nil, err
	}
	return &InitiateResult{Status: InitiateStatusSuccess}, nil
}

// startCheckout: счёт (pending) -> шлюз -> условная запись новой сессии членства.
// При ошибке шлюза счёт помечается failed, членство не трогается.
func (s *PaymentService) startCheckout(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan, item *purchasable, gateway payment.Gateway, origin string) (*InitiateResult, error) {
	lockKey := fmt.Sprintf("payment:initiate:%s", membership.ID)
	acquired, err := s.cacheRepo.SetNX(ctx, lockKey, "1", initiateLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire initiate lock: %w", err)
	}
	if !acquired {
		return nil, ErrPaymentInProgress
	}
	defer func() {
		if err := s.cacheRepo.Delete(context.Background(), lockKey); err != nil {
			log.Printf("[PaymentService] Не удалось снять блокировку %s: %v", lockKey, err)
		}
	}()

	// после блокировки перечитываем сессию: её мог сменить предыдущий запрос
	current, err := s.membershipRepo.GetByID(ctx, domain.ID, membership.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload membership %s: %w", membership.ID, err)
	}
	switch {
	case current.IsRejected():
		return nil, ErrMembershipRejected
	case current.IsActive():
		// активировано вебхуком между проверкой и блокировкой
		log.Printf("[PaymentService] Членство %s уже активно, новая сессия оплаты не создаётся", current.ID)
		return &InitiateResult{Status: InitiateStatusSuccess}, nil
	}

	currency := domain.CurrencyISOCode
	if currency == "" {
		currency = gateway.CurrencyISOCode()
	}
	newSessionID := entity.NewID()
	amount := plan.ChargeAmount()

	invoiceMeta, _ := json.Marshal(map[string]string{"planType": plan.Type, "productTitle": item.product.Title})
	invoice := &entity.Invoice{
		DomainID:            domain.ID,
		MembershipID:        current.ID,
		MembershipSessionID: newSessionID,
		PaymentPlanID:       plan.ID,
		Amount:              amount,
		CurrencyISOCode:     currency,
		Status:              entity.InvoiceStatusPending,
		PaymentProcessor:    gateway.Name(),
		Metadata:            datatypes.JSON(invoiceMeta),
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	metadata := payment.Metadata{
		MembershipID:    current.ID,
		InvoiceID:       invoice.InvoiceID,
		CurrencyISOCode: currency,
		DomainID:        domain.ID,
	}
	session, err := gateway.Initiate(ctx, payment.InitiateParams{
		Metadata: metadata,
		Plan:     plan,
		Product:  item.product,
		Origin:   origin,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		log.Printf("[PaymentService] Ошибка шлюза %s для счёта %s (membership=%s): %v", gateway.Name(), invoice.InvoiceID, current.ID, err)
		s.failInvoice(ctx, invoice.InvoiceID)
		return nil, err
	}

	err = s.membershipRepo.StartPaymentSession(ctx, current.ID, current.SessionID, repository.PaymentSessionUpdate{
		NewSessionID:  newSessionID,
		PaymentPlanID: plan.ID,
		Status:        entity.MembershipStatusPending,
	})
	if err != nil {
		log.Printf("[PaymentService] Сессия шлюза %s создана, но членство %s не обновлено: %v (счёт %s)",
			session.ID, current.ID, err, invoice.InvoiceID)
		s.failInvoice(ctx, invoice.InvoiceID)
		if errors.Is(err, repository.ErrStaleSession) {
			return nil, ErrPaymentInProgress
		}
		return nil, err
	}

	log.Printf("[PaymentService] Создана сессия оплаты: membership=%s invoice=%s gateway=%s", current.ID, invoice.InvoiceID, gateway.Name())
	return &InitiateResult{
		Status:         InitiateStatusInitiated,
		PaymentTracker: session.ID,
		Metadata: map[string]string{
			"invoiceId":   invoice.InvoiceID,
			"redirectUrl": session.RedirectURL,
		},
	}, nil
}

func (s *PaymentService) failInvoice(ctx context.Context, invoiceID string) {
	if _, err := s.invoiceRepo.TransitionStatus(ctx, invoiceID, entity.InvoiceStatusPending, entity.InvoiceStatusFailed, ""); err != nil {
		log.Printf("[PaymentService] Не удалось пометить счёт %s как failed: %v", invoiceID, err)
	}
}

// Verify возвращает статус счёта его владельцу. Ничего не меняет.
func (s *PaymentService) Verify(ctx context.Context, domain *entity.Domain, userID, invoiceID string) (string, error) {
	invoice, err := s.invoiceRepo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return "", fmt.Errorf("invoice %s: %w", invoiceID, err)
	}
	if invoice.DomainID != domain.ID {
		return "", fmt.Errorf("invoice %s: %w", invoiceID, apperrors.ErrNotFound)
	}
	membership, err := s.membershipRepo.GetByID(ctx, domain.ID, invoice.MembershipID)
	if err != nil {
		return "", fmt.Errorf("membership %s: %w", invoice.MembershipID, err)
	}
	if membership.UserID != userID {
		log.Printf("[PaymentService] Пользователь %s запросил чужой счёт %s", userID, invoiceID)
		return "", apperrors.ErrUnauthorized
	}
	return invoice.Status, nil
}

// CancelSubscription отменяет подписку членства владельцем и переводит членство в expired
func (s *PaymentService) CancelSubscription(ctx context.Context, domain *entity.Domain, userID, membershipID string) (*entity.Membership, error) {
	membership, err := s.membershipRepo.GetByID(ctx, domain.ID, membershipID)
	if err != nil {
		return nil, fmt.Errorf("membership %s: %w", membershipID, err)
	}
	if membership.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	if membership.SubscriptionID == "" {
		return nil, ErrNotRecurring
	}

	method := membership.SubscriptionMethod
	if method == "" {
		method = domain.PaymentMethod
	}
	gateway, err := s.gateways.Get(method)
	if err != nil {
		return nil, ErrPaymentNotConfigured
	}
	if err := gateway.Cancel(ctx, membership.SubscriptionID); err != nil {
		return nil, err
	}

	if _, err := s.membershipRepo.UpdateStatus(ctx, membership.ID, entity.MembershipStatusActive, entity.MembershipStatusExpired); err != nil {
		return nil, fmt.Errorf("failed to expire membership %s: %w", membership.ID, err)
	}
	membership.Status = entity.MembershipStatusExpired
	log.Printf("[PaymentService] Подписка %s членства %s отменена пользователем", membership.SubscriptionID, membership.ID)
	return membership, nil
}
