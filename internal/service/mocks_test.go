package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	"github.com/yourusername/course-api/internal/payment"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев тестов и попыток
// ============================================================================

type MockQuizRepo struct {
	mock.Mock
}

func (m *MockQuizRepo) Create(ctx context.Context, quiz *entity.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Quiz, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) Update(ctx context.Context, quiz *entity.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) AppendQuestion(ctx context.Context, quizID string, question *entity.Question) error {
	args := m.Called(ctx, quizID, question)
	return args.Error(0)
}

type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Question, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetByIDs(ctx context.Context, domainID string, ids []string) ([]entity.Question, error) {
	args := m.Called(ctx, domainID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

type MockAttemptRepo struct {
	mock.Mock
}

func (m *MockAttemptRepo) Create(ctx context.Context, attempt *entity.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetByID(ctx context.Context, domainID, id string) (*entity.QuizAttempt, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepo) FindInProgress(ctx context.Context, quizID, userID string) (*entity.QuizAttempt, error) {
	args := m.Called(ctx, quizID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepo) CountCompleted(ctx context.Context, quizID, userID string) (int64, error) {
	args := m.Called(ctx, quizID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepo) CountCompletedForQuiz(ctx context.Context, quizID string) (int64, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepo) Complete(ctx context.Context, attempt *entity.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) ListByUser(ctx context.Context, quizID, userID string) ([]entity.QuizAttempt, error) {
	args := m.Called(ctx, quizID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepo) ListByQuiz(ctx context.Context, quizID string) ([]entity.QuizAttempt, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizAttempt), args.Error(1)
}

// ============================================================================
// Кеш в памяти
// ============================================================================

// memoryCache - простой CacheRepository для тестов; значения хранятся как есть
type memoryCache struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration)
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	if view, ok := v.(*QuizView); ok {
		if out, ok := dest.(*QuizView); ok {
			*out = *view
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

func (c *memoryCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

var _ repository.CacheRepository = (*memoryCache)(nil)

// ============================================================================
// Моки платёжных репозиториев
// ============================================================================

type MockDomainRepo struct {
	mock.Mock
}

func (m *MockDomainRepo) GetByID(ctx context.Context, id string) (*entity.Domain, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Domain), args.Error(1)
}

func (m *MockDomainRepo) GetByName(ctx context.Context, name string) (*entity.Domain, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Domain), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, domainID, id string) (*entity.User, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, domainID, email string) (*entity.User, error) {
	args := m.Called(ctx, domainID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type MockCourseRepo struct {
	mock.Mock
}

func (m *MockCourseRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Course, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Course), args.Error(1)
}

type MockCommunityRepo struct {
	mock.Mock
}

func (m *MockCommunityRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Community, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Community), args.Error(1)
}

type MockPlanRepo struct {
	mock.Mock
}

func (m *MockPlanRepo) GetByID(ctx context.Context, domainID, id string) (*entity.PaymentPlan, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentPlan), args.Error(1)
}

type MockMembershipRepo struct {
	mock.Mock
}

func (m *MockMembershipRepo) Create(ctx context.Context, membership *entity.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Membership, error) {
	args := m.Called(ctx, domainID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Membership), args.Error(1)
}

func (m *MockMembershipRepo) GetByOwner(ctx context.Context, domainID, userID, entityID, entityType string) (*entity.Membership, error) {
	args := m.Called(ctx, domainID, userID, entityID, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Membership), args.Error(1)
}

func (m *MockMembershipRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.Membership, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Membership), args.Error(1)
}

func (m *MockMembershipRepo) StartPaymentSession(ctx context.Context, id, expectedSessionID string, update repository.PaymentSessionUpdate) error {
	args := m.Called(ctx, id, expectedSessionID, update)
	return args.Error(0)
}

func (m *MockMembershipRepo) Activate(ctx context.Context, id string, update repository.ActivationUpdate) (bool, error) {
	args := m.Called(ctx, id, update)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepo) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepo) UpdateSubscription(ctx context.Context, id, subscriptionID, subscriptionMethod string) error {
	args := m.Called(ctx, id, subscriptionID, subscriptionMethod)
	return args.Error(0)
}

type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	args := m.Called(ctx, invoice)
	if invoice.InvoiceID == "" {
		invoice.InvoiceID = entity.NewID()
	}
	return args.Error(0)
}

func (m *MockInvoiceRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) GetByProcessorEntityID(ctx context.Context, processor, processorEntityID string) (*entity.Invoice, error) {
	args := m.Called(ctx, processor, processorEntityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) TransitionStatus(ctx context.Context, invoiceID, from, to, processorEntityID string) (bool, error) {
	args := m.Called(ctx, invoiceID, from, to, processorEntityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepo) CountPaid(ctx context.Context, membershipID, paymentPlanID string) (int64, error) {
	args := m.Called(ctx, membershipID, paymentPlanID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Invoice, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Invoice), args.Error(1)
}

// ============================================================================
// Шлюз, события и уведомления
// ============================================================================

type MockGateway struct {
	mock.Mock
	name string
}

func (m *MockGateway) Name() string { return m.name }

func (m *MockGateway) Initiate(ctx context.Context, params payment.InitiateParams) (*payment.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockGateway) ValidateSubscription(ctx context.Context, subscriptionID string) (bool, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) Cancel(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockGateway) CurrencyISOCode() string { return "USD" }

func (m *MockGateway) ParseEvent(ctx context.Context, payload []byte, headers http.Header) (payment.Event, error) {
	args := m.Called(ctx, payload, headers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(payment.Event), args.Error(1)
}

type MockFinalizer struct {
	mock.Mock
}

func (m *MockFinalizer) FinalizePurchase(ctx context.Context, domain *entity.Domain, membership *entity.Membership, plan *entity.PaymentPlan) {
	m.Called(ctx, domain, membership, plan)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyCheckoutExpired(ctx context.Context, domain *entity.Domain, membership *entity.Membership, invoice *entity.Invoice) {
	m.Called(ctx, domain, membership, invoice)
}

func (m *MockNotifier) PushInvoiceStatus(userID string, invoice *entity.Invoice) {
	m.Called(userID, invoice)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) SendEventToUser(userID string, eventType string, data interface{}) error {
	args := m.Called(userID, eventType, data)
	return args.Error(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) Send(ctx context.Context, email Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
