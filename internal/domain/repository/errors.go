package repository

import "errors"

var (
	// ErrAttemptAlreadyInProgress означает, что у пользователя уже есть попытка in_progress по этому тесту
	// (срабатывает partial unique index idx_quiz_attempts_single_in_progress).
	ErrAttemptAlreadyInProgress = errors.New("another attempt is already in progress")
	// ErrAttemptNotInProgress означает, что условное обновление не нашло попытку в статусе in_progress.
	ErrAttemptNotInProgress = errors.New("attempt is not in progress")
	// ErrStaleSession означает, что сессия членства сменилась между чтением и записью.
	ErrStaleSession = errors.New("membership session has changed")
	// ErrMembershipExists означает, что членство для (user, entity) уже создано параллельным запросом.
	ErrMembershipExists = errors.New("membership already exists")
	// ErrInvoiceRecorded означает, что счёт с тем же ID платежа в шлюзе уже записан.
	ErrInvoiceRecorded = errors.New("invoice for this processor payment already recorded")
	// ErrLockNotAcquired означает, что распределённая блокировка уже занята.
	ErrLockNotAcquired = errors.New("lock is held by another request")
)
