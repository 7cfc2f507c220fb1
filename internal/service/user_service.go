package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

// UserService определяет операции над пользователями
type UserService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.User, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.User, error)
	Create(ctx context.Context, actor *domain.User, req *dto.CreateUserRequest) (*domain.User, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Stats(ctx context.Context, actor *domain.User) (*repository.UserStats, error)
	Team(ctx context.Context, actor *domain.User, id int64) ([]domain.User, error)
}

type userService struct {
	users      repository.UserRepository
	activities ActivityService
	logger     *slog.Logger
}

// NewUserService создаёт новый экземпляр сервиса
func NewUserService(users repository.UserRepository, activities ActivityService, logger *slog.Logger) UserService {
	return &userService{users: users, activities: activities, logger: logger}
}

func (s *userService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.User, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceUser, nil); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, policy.VisibilityFilter(actor, policy.ResourceUser), q)
}

func (s *userService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	return s.users.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceUser), id)
}

func (s *userService) Create(ctx context.Context, actor *domain.User, req *dto.CreateUserRequest) (*domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceUser, nil); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewValidationError("email", "user with this email already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:               req.Email,
		PasswordHash:        hash,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Role:                domain.Role(req.Role),
		PosteID:             req.PosteID,
		DepartmentID:        req.DepartmentID,
		SectionID:           req.SectionID,
		Phone:               req.Phone,
		PhonePro:            req.PhonePro,
		City:                req.City,
		Country:             req.Country,
		ThemePreference:     "light",
		Language:            "fr",
		NotificationEmail:   true,
		NotificationDesktop: true,
		IsActive:            true,
		CreatedByID:         &actor.ID,
	}
	setBool(&u.IsActive, req.IsActive)

	if err := s.users.Create(ctx, u, req.Competences); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Created user: %s", u.Email))
	return s.users.GetByID(ctx, u.ID)
}

func (s *userService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateUserRequest) (*domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceUser, nil); err != nil {
		return nil, err
	}

	u, err := s.users.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceUser), id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != u.Email {
		exists, err := s.users.ExistsByEmail(ctx, *req.Email, &u.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.NewValidationError("email", "user with this email already exists")
		}
		u.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if req.Role != nil {
		u.Role = domain.Role(*req.Role)
	}

	setString(&u.FirstName, req.FirstName)
	setString(&u.LastName, req.LastName)
	setString(&u.Phone, req.Phone)
	setString(&u.PhonePro, req.PhonePro)
	setString(&u.City, req.City)
	setString(&u.Country, req.Country)
	setBool(&u.IsActive, req.IsActive)
	setNullable(&u.PosteID, req.PosteID)
	setNullable(&u.DepartmentID, req.DepartmentID)
	setNullable(&u.SectionID, req.SectionID)

	if err := s.users.Update(ctx, u, req.Competences); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Updated user: %s", u.Email))
	return s.users.GetByID(ctx, u.ID)
}

func (s *userService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceUser, nil); err != nil {
		return err
	}
	u, err := s.users.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceUser), id)
	if err != nil {
		return err
	}
	if u.ID == actor.ID {
		return domain.NewValidationError("id", "you cannot delete your own account")
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.activities.Record(ctx, actor, fmt.Sprintf("Deleted user: %s", u.Email))
	return nil
}

func (s *userService) Stats(ctx context.Context, actor *domain.User) (*repository.UserStats, error) {
	if err := policy.Authorize(actor, policy.ActionStats, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	return s.users.Stats(ctx, policy.VisibilityFilter(actor, policy.ResourceUser))
}

// Team возвращает команду пользователя id; id == 0 означает самого actor
func (s *userService) Team(ctx context.Context, actor *domain.User, id int64) ([]domain.User, error) {
	target := actor
	if id != 0 && id != actor.ID {
		if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceUser, nil); err != nil {
			return nil, err
		}
		u, err := s.users.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceUser), id)
		if err != nil {
			return nil, err
		}
		target = u
	}

	team := policy.TeamFilter(target)
	if team.Empty() {
		return []domain.User{}, nil
	}
	return s.users.ListAll(ctx, team)
}
