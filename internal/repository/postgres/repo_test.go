package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// newTestDB поднимает SQLite в памяти с той же схемой и частичным индексом, что и миграции
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.Domain{}, &entity.User{}, &entity.Course{}, &entity.Community{},
		&entity.PaymentPlan{}, &entity.Membership{}, &entity.Invoice{},
		&entity.Quiz{}, &entity.Question{}, &entity.QuizAttempt{},
	))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX idx_quiz_attempts_single_in_progress ON quiz_attempts(quiz_id, user_id) WHERE status = 'in_progress'",
	).Error)
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX idx_invoices_processor_entity ON invoices(payment_processor, payment_processor_entity_id) WHERE payment_processor_entity_id <> ''",
	).Error)
	return db
}

func TestAttemptRepo_SingleInProgress(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepo(db)
	ctx := context.Background()

	first := &entity.QuizAttempt{DomainID: "d1", QuizID: "q1", UserID: "u1", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, first))

	second := &entity.QuizAttempt{DomainID: "d1", QuizID: "q1", UserID: "u1", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, repository.ErrAttemptAlreadyInProgress)

	// другой пользователь не блокируется
	other := &entity.QuizAttempt{DomainID: "d1", QuizID: "q1", UserID: "u2", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, other))

	found, err := repo.FindInProgress(ctx, "q1", "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestAttemptRepo_CompleteOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepo(db)
	ctx := context.Background()

	attempt := &entity.QuizAttempt{DomainID: "d1", QuizID: "q1", UserID: "u1", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, attempt))

	now := time.Now()
	attempt.CompletedAt = &now
	attempt.Score = 3
	attempt.PercentageScore = 75
	attempt.Passed = true
	attempt.Answers = entity.AttemptAnswers{{QuestionID: "x", Answer: []string{"a"}, IsCorrect: true, Score: 3}}
	require.NoError(t, repo.Complete(ctx, attempt))
	assert.Equal(t, entity.AttemptStatusCompleted, attempt.Status)

	err := repo.Complete(ctx, attempt)
	assert.ErrorIs(t, err, repository.ErrAttemptNotInProgress)

	stored, err := repo.GetByID(ctx, "d1", attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Score)
	assert.True(t, stored.Passed)
	require.Len(t, stored.Answers, 1)
	assert.Equal(t, []string{"a"}, stored.Answers[0].Answer)

	count, err := repo.CountCompleted(ctx, "q1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// после завершения можно начать новую попытку
	next := &entity.QuizAttempt{DomainID: "d1", QuizID: "q1", UserID: "u1", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, next))
}

func TestAttemptRepo_GetByIDWrongDomain(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepo(db)
	ctx := context.Background()

	attempt := &entity.QuizAttempt{DomainID: "d1", QuizID: "q1", UserID: "u1", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, attempt))

	_, err := repo.GetByID(ctx, "d2", attempt.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuizRepo_AppendQuestionKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	quizzes := NewQuizRepo(db)
	questions := NewQuestionRepo(db)
	ctx := context.Background()

	quiz := &entity.Quiz{DomainID: "d1", Title: "Go basics"}
	require.NoError(t, quizzes.Create(ctx, quiz))

	q1 := &entity.Question{DomainID: "d1", Text: "first", Type: entity.QuestionTypeTrueFalse, Points: 1, CorrectAnswers: entity.StringArray{"true"}}
	q2 := &entity.Question{DomainID: "d1", Text: "second", Type: entity.QuestionTypeShortAnswer, Points: 2, CorrectAnswers: entity.StringArray{"goroutine"}}
	require.NoError(t, quizzes.AppendQuestion(ctx, quiz.ID, q1))
	require.NoError(t, quizzes.AppendQuestion(ctx, quiz.ID, q2))

	stored, err := quizzes.GetByID(ctx, "d1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StringArray{q1.ID, q2.ID}, stored.QuestionIDs)

	list, err := questions.GetByIDs(ctx, "d1", []string{q2.ID, "missing", q1.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, q2.ID, list[0].ID)
	assert.Equal(t, q1.ID, list[1].ID)

	err = quizzes.AppendQuestion(ctx, "missing", &entity.Question{DomainID: "d1", Text: "x", Type: entity.QuestionTypeTrueFalse})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMembershipRepo_StartPaymentSessionCAS(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepo(db)
	ctx := context.Background()

	m := &entity.Membership{DomainID: "d1", UserID: "u1", EntityID: "c1", EntityType: entity.EntityTypeCourse, Status: entity.MembershipStatusPending}
	require.NoError(t, repo.Create(ctx, m))
	require.NoError(t, repo.UpdateSubscription(ctx, m.ID, "sub_1", entity.PaymentMethodStripe))

	oldSession := m.SessionID
	err := repo.StartPaymentSession(ctx, m.ID, oldSession, repository.PaymentSessionUpdate{
		NewSessionID: "s2", PaymentPlanID: "p1", Status: entity.MembershipStatusPending,
	})
	require.NoError(t, err)

	// вторая попытка с тем же ожидаемым значением проигрывает гонку
	err = repo.StartPaymentSession(ctx, m.ID, oldSession, repository.PaymentSessionUpdate{
		NewSessionID: "s3", PaymentPlanID: "p1", Status: entity.MembershipStatusPending,
	})
	assert.ErrorIs(t, err, repository.ErrStaleSession)

	stored, err := repo.GetByID(ctx, "d1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "s2", stored.SessionID)
	assert.Equal(t, "p1", stored.PaymentPlanID)
	assert.Empty(t, stored.SubscriptionID)
	assert.Empty(t, stored.SubscriptionMethod)
}

func TestMembershipRepo_DuplicateOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Membership{DomainID: "d1", UserID: "u1", EntityID: "c1", EntityType: entity.EntityTypeCourse}))
	err := repo.Create(ctx, &entity.Membership{DomainID: "d1", UserID: "u1", EntityID: "c1", EntityType: entity.EntityTypeCourse})
	assert.ErrorIs(t, err, repository.ErrMembershipExists)
}

func TestMembershipRepo_ActivateOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepo(db)
	ctx := context.Background()

	m := &entity.Membership{DomainID: "d1", UserID: "u1", EntityID: "c1", EntityType: entity.EntityTypeCommunity, Status: entity.MembershipStatusPending}
	require.NoError(t, repo.Create(ctx, m))

	update := repository.ActivationUpdate{Status: entity.MembershipStatusActive, Role: entity.MembershipRolePost, PaymentPlanID: "p1"}
	changed, err := repo.Activate(ctx, m.ID, update)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Activate(ctx, m.ID, update)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.UpdateStatus(ctx, m.ID, entity.MembershipStatusPending, entity.MembershipStatusRejected)
	require.NoError(t, err)
	assert.False(t, changed)

	bySub, err := repo.GetBySubscriptionID(ctx, "")
	assert.Nil(t, bySub)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInvoiceRepo_TransitionAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepo(db)
	ctx := context.Background()

	inv := &entity.Invoice{
		DomainID: "d1", MembershipID: "m1", MembershipSessionID: "s1", PaymentPlanID: "p1",
		Amount: decimal.NewFromInt(20), CurrencyISOCode: "USD", Status: entity.InvoiceStatusPending,
		PaymentProcessor: entity.PaymentMethodStripe,
	}
	require.NoError(t, repo.Create(ctx, inv))
	require.NotEmpty(t, inv.InvoiceID)

	ok, err := repo.TransitionStatus(ctx, inv.InvoiceID, entity.InvoiceStatusPending, entity.InvoiceStatusPaid, "cs_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, inv.InvoiceID, entity.InvoiceStatusPending, entity.InvoiceStatusFailed, "")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.GetByInvoiceID(ctx, inv.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, stored.Status)
	assert.Equal(t, "cs_1", stored.PaymentProcessorEntityID)
	assert.True(t, decimal.NewFromInt(20).Equal(stored.Amount))

	count, err := repo.CountPaid(ctx, "m1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	pending := &entity.Invoice{DomainID: "d1", MembershipID: "m2", MembershipSessionID: "s2", CurrencyISOCode: "USD", Status: entity.InvoiceStatusPending, PaymentProcessor: entity.PaymentMethodStripe}
	require.NoError(t, repo.Create(ctx, pending))
	list, err := repo.ListPendingBefore(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.InvoiceID, list[0].InvoiceID)
}

func TestMembershipRepo_RejectedIsFinal(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepo(db)
	ctx := context.Background()

	m := &entity.Membership{DomainID: "d1", UserID: "u1", EntityID: "c1", EntityType: entity.EntityTypeCommunity, Status: entity.MembershipStatusRejected}
	require.NoError(t, repo.Create(ctx, m))

	changed, err := repo.Activate(ctx, m.ID, repository.ActivationUpdate{Status: entity.MembershipStatusActive, Role: entity.MembershipRolePost})
	require.NoError(t, err)
	assert.False(t, changed)

	err = repo.StartPaymentSession(ctx, m.ID, m.SessionID, repository.PaymentSessionUpdate{
		NewSessionID: "s2", PaymentPlanID: "p1", Status: entity.MembershipStatusPending,
	})
	assert.ErrorIs(t, err, repository.ErrStaleSession)

	stored, err := repo.GetByID(ctx, "d1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MembershipStatusRejected, stored.Status)
	assert.Equal(t, m.SessionID, stored.SessionID)
}

func TestMembershipRepo_StartPaymentSessionKeepsActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepo(db)
	ctx := context.Background()

	m := &entity.Membership{DomainID: "d1", UserID: "u1", EntityID: "c1", EntityType: entity.EntityTypeCourse, Status: entity.MembershipStatusActive}
	require.NoError(t, repo.Create(ctx, m))

	err := repo.StartPaymentSession(ctx, m.ID, m.SessionID, repository.PaymentSessionUpdate{
		NewSessionID: "s2", PaymentPlanID: "p1", Status: entity.MembershipStatusPending,
	})
	assert.ErrorIs(t, err, repository.ErrStaleSession)

	stored, err := repo.GetByID(ctx, "d1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MembershipStatusActive, stored.Status)
}

func TestInvoiceRepo_ProcessorEntityRecordedOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvoiceRepo(db)
	ctx := context.Background()

	renewal := func() *entity.Invoice {
		return &entity.Invoice{
			DomainID: "d1", MembershipID: "m1", MembershipSessionID: "s1", PaymentPlanID: "emi",
			Amount: decimal.NewFromInt(30), CurrencyISOCode: "USD", Status: entity.InvoiceStatusPaid,
			PaymentProcessor: entity.PaymentMethodStripe, PaymentProcessorEntityID: "in_1",
		}
	}
	first := renewal()
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, renewal()), repository.ErrInvoiceRecorded)

	found, err := repo.GetByProcessorEntityID(ctx, entity.PaymentMethodStripe, "in_1")
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceID, found.InvoiceID)

	_, err = repo.GetByProcessorEntityID(ctx, entity.PaymentMethodStripe, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// pending-счета без ID платежа уникальным индексом не ограничены
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Invoice{DomainID: "d1", MembershipID: "m2", MembershipSessionID: "s2",
			CurrencyISOCode: "USD", Status: entity.InvoiceStatusPending, PaymentProcessor: entity.PaymentMethodStripe}))
	}

	count, err := repo.CountPaid(ctx, "m1", "emi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAttemptRepo_SurvivesQuizDeletion(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepo(db)
	ctx := context.Background()

	quiz := &entity.Quiz{DomainID: "d1", Title: "Quiz"}
	require.NoError(t, db.Create(quiz).Error)
	attempt := &entity.QuizAttempt{DomainID: "d1", QuizID: quiz.ID, UserID: "u1", Status: entity.AttemptStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, attempt))

	require.NoError(t, db.Delete(&entity.Quiz{}, "id = ?", quiz.ID).Error)

	stored, err := repo.GetByID(ctx, "d1", attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, stored.QuizID)
}
