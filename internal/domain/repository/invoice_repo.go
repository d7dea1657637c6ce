package repository

import (
	"context"
	"time"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// InvoiceRepository определяет методы для работы со счетами. Счета никогда не удаляются.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.Invoice, error)
	GetByProcessorEntityID(ctx context.Context, processor, processorEntityID string) (*entity.Invoice, error)
	// TransitionStatus атомарно переводит счёт из from в to. Возвращает false, если счёт уже не в статусе from.
	TransitionStatus(ctx context.Context, invoiceID, from, to, processorEntityID string) (bool, error)
	CountPaid(ctx context.Context, membershipID, paymentPlanID string) (int64, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Invoice, error)
}
