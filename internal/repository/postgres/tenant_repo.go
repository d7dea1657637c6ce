package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// DomainRepo реализует repository.DomainRepository
type DomainRepo struct {
	db *gorm.DB
}

// NewDomainRepo создает новый репозиторий доменов
func NewDomainRepo(db *gorm.DB) *DomainRepo {
	return &DomainRepo{db: db}
}

// GetByID возвращает домен по ID
func (r *DomainRepo) GetByID(ctx context.Context, id string) (*entity.Domain, error) {
	var domain entity.Domain
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&domain).Error; err != nil {
		return nil, notFound(err)
	}
	return &domain, nil
}

// GetByName возвращает домен по имени хоста
func (r *DomainRepo) GetByName(ctx context.Context, name string) (*entity.Domain, error) {
	var domain entity.Domain
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&domain).Error; err != nil {
		return nil, notFound(err)
	}
	return &domain, nil
}

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID возвращает пользователя домена по ID
func (r *UserRepo) GetByID(ctx context.Context, domainID, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByEmail возвращает пользователя домена по email
func (r *UserRepo) GetByEmail(ctx context.Context, domainID, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND email = ?", domainID, email).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// CourseRepo реализует repository.CourseRepository
type CourseRepo struct {
	db *gorm.DB
}

// NewCourseRepo создает новый репозиторий курсов
func NewCourseRepo(db *gorm.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// GetByID возвращает курс домена
func (r *CourseRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Course, error) {
	var course entity.Course
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&course).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &course, nil
}

// CommunityRepo реализует repository.CommunityRepository
type CommunityRepo struct {
	db *gorm.DB
}

// NewCommunityRepo создает новый репозиторий сообществ
func NewCommunityRepo(db *gorm.DB) *CommunityRepo {
	return &CommunityRepo{db: db}
}

// GetByID возвращает неудалённое сообщество домена
func (r *CommunityRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Community, error) {
	var community entity.Community
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ? AND deleted = ?", domainID, id, false).
		First(&community).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &community, nil
}

// PaymentPlanRepo реализует repository.PaymentPlanRepository
type PaymentPlanRepo struct {
	db *gorm.DB
}

// NewPaymentPlanRepo создает новый репозиторий платёжных планов
func NewPaymentPlanRepo(db *gorm.DB) *PaymentPlanRepo {
	return &PaymentPlanRepo{db: db}
}

// GetByID возвращает план домена
func (r *PaymentPlanRepo) GetByID(ctx context.Context, domainID, id string) (*entity.PaymentPlan, error) {
	var plan entity.PaymentPlan
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&plan).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}
