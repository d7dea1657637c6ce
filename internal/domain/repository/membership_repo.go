package repository

import (
	"context"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// PaymentSessionUpdate описывает поля членства, которые меняются при старте новой оплаты
type PaymentSessionUpdate struct {
	NewSessionID  string
	PaymentPlanID string
	Status        string
}

// ActivationUpdate описывает результат активации членства
type ActivationUpdate struct {
	Status        string
	Role          string
	PaymentPlanID string
	JoiningReason string
}

// MembershipRepository определяет методы для работы с членствами
type MembershipRepository interface {
	Create(ctx context.Context, membership *entity.Membership) error
	GetByID(ctx context.Context, domainID, id string) (*entity.Membership, error)
	GetByOwner(ctx context.Context, domainID, userID, entityID, entityType string) (*entity.Membership, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.Membership, error)
	// StartPaymentSession атомарно выставляет новую сессию, план и статус, очищая подписку.
	// Условие: текущая session_id == expectedSessionID, иначе ErrStaleSession.
	StartPaymentSession(ctx context.Context, id, expectedSessionID string, update PaymentSessionUpdate) error
	// Activate атомарно применяет активацию, только если членство ещё не active.
	// Возвращает false, если запись уже была активной (повторная активация).
	Activate(ctx context.Context, id string, update ActivationUpdate) (bool, error)
	// UpdateStatus атомарно меняет статус from -> to. Возвращает false, если статус уже другой.
	UpdateStatus(ctx context.Context, id, from, to string) (bool, error)
	UpdateSubscription(ctx context.Context, id, subscriptionID, subscriptionMethod string) error
}
