package service

import (
	"context"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

// NotificationService определяет чтение и отметку уведомлений.
// Клиенты видят только собственные уведомления.
type NotificationService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Notification, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Notification, error)
	MarkRead(ctx context.Context, actor *domain.User, id int64) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, actor *domain.User) (int64, error)
	UnreadCount(ctx context.Context, actor *domain.User) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService создаёт новый экземпляр сервиса
func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) filter(actor *domain.User) policy.Filter {
	return policy.VisibilityFilter(actor, policy.ResourceNotification)
}

func (s *notificationService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Notification, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceNotification, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, s.filter(actor), q)
}

func (s *notificationService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Notification, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceNotification, nil); err != nil {
		return nil, err
	}
	return s.repo.GetVisible(ctx, s.filter(actor), id)
}

func (s *notificationService) MarkRead(ctx context.Context, actor *domain.User, id int64) (*domain.Notification, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceNotification, nil); err != nil {
		return nil, err
	}
	n, err := s.repo.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor *domain.User) (int64, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceNotification, nil); err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, actor.ID)
}

func (s *notificationService) UnreadCount(ctx context.Context, actor *domain.User) (int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceNotification, nil); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, actor.ID)
}
