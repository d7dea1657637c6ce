package service

import (
	"fmt"

	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// Ошибки сервисов. Каждая оборачивает общий sentinel из internal/pkg/errors,
// чтобы обработчики могли сопоставить её с HTTP-кодом через errors.Is.
var (
	ErrQuizNotPublished     = fmt.Errorf("%w: quiz is not published", apperrors.ErrValidation)
	ErrAttemptLimitReached  = fmt.Errorf("%w: attempt limit reached", apperrors.ErrConflict)
	ErrAttemptNotInProgress = fmt.Errorf("%w: attempt is not in progress", apperrors.ErrConflict)
	ErrAttemptExpired       = fmt.Errorf("%w: attempt time limit has expired", apperrors.ErrConflict)
	ErrQuizDeleted          = fmt.Errorf("%w: quiz backing this attempt was deleted", apperrors.ErrNotFound)
	ErrQuizLocked           = fmt.Errorf("%w: quiz scoring settings cannot change after attempts were completed", apperrors.ErrConflict)

	ErrInvalidPlan           = fmt.Errorf("%w: payment plan is not offered for this item", apperrors.ErrValidation)
	ErrMembershipRejected    = fmt.Errorf("%w: membership request was rejected", apperrors.ErrConflict)
	ErrAlreadyEnrolled       = fmt.Errorf("%w: already enrolled", apperrors.ErrConflict)
	ErrJoiningReasonRequired = fmt.Errorf("%w: joining reason is required", apperrors.ErrPrecondition)
	ErrPaymentNotConfigured  = fmt.Errorf("%w: payment method is not configured", apperrors.ErrPrecondition)
	ErrPaymentInProgress     = fmt.Errorf("%w: another payment is being initiated", apperrors.ErrConflict)
	ErrNotRecurring          = fmt.Errorf("%w: membership has no recurring subscription", apperrors.ErrValidation)
)
