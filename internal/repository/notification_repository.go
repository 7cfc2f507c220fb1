package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

var notificationList = listFields{
	table:        "notifications",
	search:       []string{"title", "message"},
	ordering:     map[string]string{"created_at": "created_at"},
	defaultOrder: "created_at DESC, notifications.id DESC",
	filters: map[string]field{
		"is_read":           {column: "is_read", kind: kindBool},
		"notification_type": {column: "type"},
	},
}

// NotificationRepository определяет интерфейс для работы с уведомлениями
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.Notification, int64, error)
	Recent(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Notification, error)
	MarkRead(ctx context.Context, n *domain.Notification) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository создаёт новый экземпляр репозитория
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Omit("User", "Task", "Project").Create(n).Error
}

func (r *notificationRepository) List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.Notification, int64, error) {
	return paginate[domain.Notification](ctx, r.db, notificationList, q, []Scope{Visible(f)})
}

func (r *notificationRepository) Recent(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var items []domain.Notification
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *notificationRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Notification, error) {
	return findOne[domain.Notification](ctx, r.db, id, domain.ErrNotificationNotFound, []Scope{Visible(f)})
}

func (r *notificationRepository) MarkRead(ctx context.Context, n *domain.Notification) error {
	if err := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("id = ?", n.ID).Update("is_read", true).Error; err != nil {
		return err
	}
	n.IsRead = true
	return nil
}

// MarkAllRead отмечает все непрочитанные уведомления пользователя
// и возвращает число изменённых записей
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
