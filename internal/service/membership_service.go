package service

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
)

// MembershipService активирует членства
type MembershipService struct {
	membershipRepo repository.MembershipRepository
	communityRepo  repository.CommunityRepository
	finalizer      PurchaseFinalizer
}

// NewMembershipService создает сервис членств
func NewMembershipService(
	membershipRepo repository.MembershipRepository,
	communityRepo repository.CommunityRepository,
	finalizer PurchaseFinalizer,
) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		communityRepo:  communityRepo,
		finalizer:      finalizer,
	}
}

// Activate применяет активацию к членству. Уже активное и отклонённое членство не меняется.
// Запись условная (status <> 'active'), поэтому при параллельных вызовах
// FinalizePurchase срабатывает не более одного раза.
// Возвращает true, если членство стало активным в результате этого вызова.
func (s *MembershipService) Activate(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan) (bool, error) {
	if membership.IsActive() {
		return false, nil
	}
	if membership.IsRejected() {
		log.Printf("[MembershipService] Членство %s отклонено, активация пропущена", membership.ID)
		return false, nil
	}

	update, err := s.activationFor(ctx, domain, membership, plan)
	if err != nil {
		return false, err
	}

	changed, err := s.membershipRepo.Activate(ctx, membership.ID, update)
	if err != nil {
		return false, fmt.Errorf("failed to activate membership %s: %w", membership.ID, err)
	}
	if !changed {
		log.Printf("[MembershipService] Членство %s уже активировано параллельным запросом", membership.ID)
		return false, nil
	}

	membership.Status = update.Status
	membership.Role = update.Role
	if update.PaymentPlanID != "" {
		membership.PaymentPlanID = update.PaymentPlanID
	}
	if update.JoiningReason != "" {
		membership.JoiningReason = update.JoiningReason
	}

	activated := update.Status == entity.MembershipStatusActive
	log.Printf("[MembershipService] Членство %s (%s %s) -> %s, роль %q",
		membership.ID, membership.EntityType, membership.EntityID, update.Status, update.Role)

	if activated && plan != nil && s.finalizer != nil {
		s.finalizer.FinalizePurchase(ctx, domain, membership, plan)
	}
	return activated, nil
}

func (s *MembershipService) activationFor(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan) (repository.ActivationUpdate, error) {
	update := repository.ActivationUpdate{
		Status:        entity.MembershipStatusActive,
		JoiningReason: membership.JoiningReason,
	}
	if plan != nil {
		update.PaymentPlanID = plan.ID
	}

	if membership.EntityType != entity.EntityTypeCommunity {
		return update, nil
	}

	update.Role = entity.MembershipRolePost
	if plan != nil && !plan.IsFree() {
		return update, nil
	}

	community, err := s.communityRepo.GetByID(ctx, domain.ID, membership.EntityID)
	if err != nil {
		return update, fmt.Errorf("failed to load community %s: %w", membership.EntityID, err)
	}
	if !community.AutoAcceptMembers {
		update.Status = entity.MembershipStatusPending
		update.Role = entity.MembershipRoleComment
	}
	return update, nil
}
