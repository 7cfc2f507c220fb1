package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
)

var activityList = listFields{
	table:        "user_activities",
	search:       []string{"action"},
	ordering:     map[string]string{"timestamp": "timestamp"},
	defaultOrder: "timestamp DESC, user_activities.id DESC",
	filters: map[string]field{
		"user":   {column: "user_id", kind: kindInt},
		"action": {column: "action"},
	},
}

// ActivityRepository определяет интерфейс журнала действий
type ActivityRepository interface {
	Create(ctx context.Context, a *domain.UserActivity) error
	List(ctx context.Context, q ListQuery) ([]domain.UserActivity, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.UserActivity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository создаёт новый экземпляр репозитория
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, a *domain.UserActivity) error {
	return r.db.WithContext(ctx).Omit("User").Create(a).Error
}

func (r *activityRepository) List(ctx context.Context, q ListQuery) ([]domain.UserActivity, int64, error) {
	return paginate[domain.UserActivity](ctx, r.db, activityList, q, nil, "User")
}

func (r *activityRepository) GetByID(ctx context.Context, id int64) (*domain.UserActivity, error) {
	return findOne[domain.UserActivity](ctx, r.db, id, domain.ErrNotFound, nil, "User")
}

// RevokedTokenRepository хранит отозванные refresh-токены
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Cleanup(ctx context.Context, now time.Time) (int64, error)
}

type revokedTokenRepository struct {
	db *gorm.DB
}

// NewRevokedTokenRepository создаёт новый экземпляр репозитория
func NewRevokedTokenRepository(db *gorm.DB) RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

// Revoke идемпотентен: повторный отзыв того же токена не ошибка
func (r *revokedTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).Create(&domain.RevokedToken{JTI: jti, ExpiresAt: expiresAt}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *revokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}

// Cleanup удаляет записи токенов, срок которых уже истёк сам по себе
func (r *revokedTokenRepository) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.RevokedToken{})
	return result.RowsAffected, result.Error
}
