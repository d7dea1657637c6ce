package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
)

// InvoiceRepo реализует repository.InvoiceRepository
type InvoiceRepo struct {
	db *gorm.DB
}

// NewInvoiceRepo создает новый репозиторий счетов
func NewInvoiceRepo(db *gorm.DB) *InvoiceRepo {
	return &InvoiceRepo{db: db}
}

// Create создает счёт. Частичный уникальный индекс idx_invoices_processor_entity
// не даёт записать один платёж шлюза дважды.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", repository.ErrInvoiceRecorded, invoice.PaymentProcessor, invoice.PaymentProcessorEntityID)
		}
		return err
	}
	return nil
}

// GetByProcessorEntityID ищет счёт по ID платежа в шлюзе
func (r *InvoiceRepo) GetByProcessorEntityID(ctx context.Context, processor, processorEntityID string) (*entity.Invoice, error) {
	if processorEntityID == "" {
		return nil, notFound(gorm.ErrRecordNotFound)
	}
	var invoice entity.Invoice
	err := r.db.WithContext(ctx).
		Where("payment_processor = ? AND payment_processor_entity_id = ?", processor, processorEntityID).
		First(&invoice).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &invoice, nil
}

// GetByInvoiceID возвращает счёт по публичному ID
func (r *InvoiceRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	var invoice entity.Invoice
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).First(&invoice).Error; err != nil {
		return nil, notFound(err)
	}
	return &invoice, nil
}

// TransitionStatus атомарно переводит счёт from → to.
// processorEntityID сохраняется, только если передан.
func (r *InvoiceRepo) TransitionStatus(ctx context.Context, invoiceID, from, to, processorEntityID string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if processorEntityID != "" {
		updates["payment_processor_entity_id"] = processorEntityID
	}
	result := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Where("invoice_id = ? AND status = ?", invoiceID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountPaid считает оплаченные счета членства по плану (для EMI)
func (r *InvoiceRepo) CountPaid(ctx context.Context, membershipID, paymentPlanID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Where("membership_id = ? AND payment_plan_id = ? AND status = ?", membershipID, paymentPlanID, entity.InvoiceStatusPaid).
		Count(&count).Error
	return count, err
}

// ListPendingBefore возвращает счета, зависшие в pending дольше отсечки
func (r *InvoiceRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Invoice, error) {
	var invoices []entity.Invoice
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", entity.InvoiceStatusPending, before).
		Order("created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&invoices).Error
	return invoices, err
}
