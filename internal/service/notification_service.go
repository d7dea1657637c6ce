package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
)

// Тип websocket-события об изменении статуса счёта
const EventInvoiceStatus = "payment:invoice_status"

// PurchaseFinalizer выполняет побочные эффекты после активации оплаченного членства
type PurchaseFinalizer interface {
	FinalizePurchase(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan)
}

// NotificationService отправляет письма и websocket-события по итогам оплаты.
// Ошибки только логируются: уведомления не должны ломать платёжный процесс.
type NotificationService struct {
	email         EmailService
	events        EventPublisher
	userRepo      repository.UserRepository
	courseRepo    repository.CourseRepository
	communityRepo repository.CommunityRepository
	sendTimeout   time.Duration
}

// NewNotificationService создает сервис уведомлений
func NewNotificationService(
	email EmailService,
	events EventPublisher,
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	communityRepo repository.CommunityRepository,
) *NotificationService {
	return &NotificationService{
		email:         email,
		events:        events,
		userRepo:      userRepo,
		courseRepo:    courseRepo,
		communityRepo: communityRepo,
		sendTimeout:   15 * time.Second,
	}
}

// FinalizePurchase отправляет подтверждение покупки
func (s *NotificationService) FinalizePurchase(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan) {
	title := s.productTitle(ctx, domain.ID, membership)
	subject := fmt.Sprintf("You now have access to %s", title)
	body := fmt.Sprintf("Thank you for your purchase. Your access to %s is active.", title)
	s.sendToMember(ctx, domain, membership, subject, body, "purchase:"+membership.ID+":"+membership.SessionID)
	log.Printf("[NotificationService] Покупка завершена: membership=%s plan=%s", membership.ID, plan.ID)
}

// NotifyCheckoutExpired сообщает пользователю, что сессия оплаты истекла
func (s *NotificationService) NotifyCheckoutExpired(ctx context.Context, domain *entity.Domain, membership *entity.Membership, invoice *entity.Invoice) {
	title := s.productTitle(ctx, domain.ID, membership)
	subject := fmt.Sprintf("Your checkout for %s has expired", title)
	body := fmt.Sprintf("Your payment for %s was not completed. You can start a new checkout at any time.", title)
	s.sendToMember(ctx, domain, membership, subject, body, "expired:"+invoice.InvoiceID)
}

// PushInvoiceStatus отправляет владельцу членства новый статус счёта
func (s *NotificationService) PushInvoiceStatus(userID string, invoice *entity.Invoice) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"invoice_id": invoice.InvoiceID,
		"status":     invoice.Status,
	}
	if err := s.events.SendEventToUser(userID, EventInvoiceStatus, payload); err != nil {
		log.Printf("[NotificationService] Не удалось отправить %s пользователю %s: %v", EventInvoiceStatus, userID, err)
	}
}

func (s *NotificationService) sendToMember(ctx context.Context, domain *entity.Domain, membership *entity.Membership, subject, body, idempotencyKey string) {
	user, err := s.userRepo.GetByID(ctx, domain.ID, membership.UserID)
	if err != nil {
		log.Printf("[NotificationService] Пользователь %s членства %s не найден: %v", membership.UserID, membership.ID, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	err = s.email.Send(sendCtx, Email{
		From:           domain.EmailFrom,
		To:             user.Email,
		Subject:        subject,
		Text:           body,
		HTML:           "<p>" + html.EscapeString(body) + "</p>",
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		log.Printf("[NotificationService] Ошибка отправки письма %q для membership=%s: %v", subject, membership.ID, err)
	}
}

func (s *NotificationService) productTitle(ctx context.Context, domainID string, membership *entity.Membership) string {
	switch membership.EntityType {
	case entity.EntityTypeCourse:
		if course, err := s.courseRepo.GetByID(ctx, domainID, membership.EntityID); err == nil {
			return course.Title
		}
	case entity.EntityTypeCommunity:
		if community, err := s.communityRepo.GetByID(ctx, domainID, membership.EntityID); err == nil {
			return community.Name
		}
	}
	return "your purchase"
}
