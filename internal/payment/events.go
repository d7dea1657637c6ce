package payment

// Event - событие вебхука после проверки на границе
type Event interface {
	// EventID - идентификатор для дедупликации повторных доставок
	EventID() string
}

// CheckoutCompleted - checkout-сессия завершена. Paid=false для отложенных методов оплаты.
type CheckoutCompleted struct {
	ID                string
	Paid              bool
	Metadata          Metadata
	SubscriptionID    string
	ProcessorEntityID string
}

// CheckoutExpired - сессия истекла или оплата отклонена
type CheckoutExpired struct {
	ID       string
	Metadata Metadata
	Reason   string
}

// InvoicePaid - оплачен очередной период подписки
type InvoicePaid struct {
	ID                string
	SubscriptionID    string
	Metadata          Metadata
	ProcessorEntityID string
}

// Ignored - событие, которое мы не обрабатываем
type Ignored struct {
	ID   string
	Type string
}

func (e CheckoutCompleted) EventID() string { return e.ID }
func (e CheckoutExpired) EventID() string   { return e.ID }
func (e InvoicePaid) EventID() string       { return e.ID }
func (e Ignored) EventID() string           { return e.ID }

// IsSuccessfulPayment возвращает true только для оплаченного checkout и оплаченного счёта подписки
func IsSuccessfulPayment(e Event) bool {
	switch ev := e.(type) {
	case CheckoutCompleted:
		return ev.Paid
	case InvoicePaid:
		return true
	default:
		return false
	}
}
