package payment

import (
	"fmt"
	"log"
	"sync"

	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// ErrNotConfigured - для способа оплаты домена нет настроенного шлюза
var ErrNotConfigured = fmt.Errorf("%w: payment method is not configured", apperrors.ErrPrecondition)

// Registry сопоставляет payment_method домена с настроенным шлюзом
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry создает реестр из переданных шлюзов
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register добавляет шлюз под его именем
func (r *Registry) Register(g Gateway) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
	log.Printf("[PaymentRegistry] Зарегистрирован шлюз %s", g.Name())
}

// Get возвращает шлюз для способа оплаты
func (r *Registry) Get(method string) (Gateway, error) {
	if method == "" {
		return nil, ErrNotConfigured
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, method)
	}
	return g, nil
}
