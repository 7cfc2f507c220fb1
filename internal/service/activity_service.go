package service

import (
	"context"
	"log/slog"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

// ActivityService ведёт журнал действий пользователей
type ActivityService interface {
	Record(ctx context.Context, actor *domain.User, action string)
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.UserActivity, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.UserActivity, error)
}

type activityService struct {
	repo   repository.ActivityRepository
	logger *slog.Logger
}

// NewActivityService создаёт новый экземпляр сервиса
func NewActivityService(repo repository.ActivityRepository, logger *slog.Logger) ActivityService {
	return &activityService{repo: repo, logger: logger}
}

// Record пишет запись журнала; ошибка записи только логируется
func (s *activityService) Record(ctx context.Context, actor *domain.User, action string) {
	if actor == nil {
		return
	}
	a := &domain.UserActivity{
		UserID:    actor.ID,
		Action:    action,
		IPAddress: auth.ClientIP(ctx),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Warn("failed to record activity", "user_id", actor.ID, "action", action, "error", err)
	}
}

func (s *activityService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.UserActivity, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceActivity, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q)
}

func (s *activityService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.UserActivity, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceActivity, nil); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
