package repository

import (
	"context"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// DomainRepository определяет методы для работы со школами (тенантами)
type DomainRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Domain, error)
	GetByName(ctx context.Context, name string) (*entity.Domain, error)
}

// UserRepository определяет методы для работы с пользователями домена
type UserRepository interface {
	GetByID(ctx context.Context, domainID, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, domainID, email string) (*entity.User, error)
}

// CourseRepository - курсы домена
type CourseRepository interface {
	GetByID(ctx context.Context, domainID, id string) (*entity.Course, error)
}

// CommunityRepository - сообщества домена (удалённые не возвращаются)
type CommunityRepository interface {
	GetByID(ctx context.Context, domainID, id string) (*entity.Community, error)
}

// PaymentPlanRepository - платёжные планы (только чтение)
type PaymentPlanRepository interface {
	GetByID(ctx context.Context, domainID, id string) (*entity.PaymentPlan, error)
}
