package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
)

// MembershipRepo реализует repository.MembershipRepository
type MembershipRepo struct {
	db *gorm.DB
}

// NewMembershipRepo создает новый репозиторий членств
func NewMembershipRepo(db *gorm.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// Create создает членство. Уникальный индекс idx_membership_owner не даёт создать дубликат
// для одной пары (user, entity) при параллельных запросах.
func (r *MembershipRepo) Create(ctx context.Context, membership *entity.Membership) error {
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s entity %s", repository.ErrMembershipExists, membership.UserID, membership.EntityID)
		}
		return err
	}
	return nil
}

// GetByID возвращает членство домена по ID
func (r *MembershipRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Membership, error) {
	var membership entity.Membership
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&membership).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &membership, nil
}

// GetByOwner возвращает членство пользователя в сущности
func (r *MembershipRepo) GetByOwner(ctx context.Context, domainID, userID, entityID, entityType string) (*entity.Membership, error) {
	var membership entity.Membership
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND user_id = ? AND entity_id = ? AND entity_type = ?", domainID, userID, entityID, entityType).
		First(&membership).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &membership, nil
}

// GetBySubscriptionID ищет членство по ID подписки в платёжном шлюзе
func (r *MembershipRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.Membership, error) {
	if subscriptionID == "" {
		return nil, notFound(gorm.ErrRecordNotFound)
	}
	var membership entity.Membership
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		First(&membership).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &membership, nil
}

// StartPaymentSession - compare-and-swap по session_id.
// Активное и отклонённое членство не переводится обратно в pending.
// - RowsAffected == 0 → сессию или статус уже сменил параллельный запрос (ErrStaleSession)
func (r *MembershipRepo) StartPaymentSession(ctx context.Context, id, expectedSessionID string, update repository.PaymentSessionUpdate) error {
	result := r.db.WithContext(ctx).Model(&entity.Membership{}).
		Where("id = ? AND session_id = ? AND status NOT IN ?", id, expectedSessionID, finalOrActive).
		Updates(map[string]interface{}{
			"session_id":          update.NewSessionID,
			"payment_plan_id":     update.PaymentPlanID,
			"status":              update.Status,
			"subscription_id":     "",
			"subscription_method": "",
		})
	if result.Error != nil {
		return fmt.Errorf("start payment session for membership %s failed: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: membership %s", repository.ErrStaleSession, id)
	}
	return nil
}

// finalOrActive - статусы, из которых ни активация, ни новая сессия оплаты не переводят
var finalOrActive = []string{entity.MembershipStatusActive, entity.MembershipStatusRejected}

// Activate применяет активацию только к неактивному и не отклонённому членству
func (r *MembershipRepo) Activate(ctx context.Context, id string, update repository.ActivationUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status": update.Status,
		"role":   update.Role,
	}
	if update.PaymentPlanID != "" {
		updates["payment_plan_id"] = update.PaymentPlanID
	}
	if update.JoiningReason != "" {
		updates["joining_reason"] = update.JoiningReason
	}

	result := r.db.WithContext(ctx).Model(&entity.Membership{}).
		Where("id = ? AND status NOT IN ?", id, finalOrActive).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("activate membership %s failed: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateStatus атомарно меняет статус from → to
func (r *MembershipRepo) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Membership{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("update membership %s status %s -> %s failed: %w", id, from, to, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateSubscription сохраняет ID подписки и шлюз, через который она оформлена
func (r *MembershipRepo) UpdateSubscription(ctx context.Context, id, subscriptionID, subscriptionMethod string) error {
	return r.db.WithContext(ctx).Model(&entity.Membership{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_id":     subscriptionID,
			"subscription_method": subscriptionMethod,
		}).Error
}
