package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/repository"
)

// AuthService определяет вход, обновление токенов и профиль
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.User, *auth.Pair, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Logout(ctx context.Context, refresh string) error
	Authenticate(ctx context.Context, access string) (*domain.User, error)
	Me(ctx context.Context, actor *domain.User) (*domain.User, error)
	UpdateMe(ctx context.Context, actor *domain.User, req *dto.UpdateProfileRequest) (*domain.User, error)
}

type authService struct {
	users   repository.UserRepository
	revoked repository.RevokedTokenRepository
	tokens  *auth.TokenManager
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthService создаёт новый экземпляр сервиса
func NewAuthService(
	users repository.UserRepository,
	revoked repository.RevokedTokenRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:   users,
		revoked: revoked,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.User, *auth.Pair, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(u.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.TouchLastLogin(ctx, u.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", "user_id", u.ID, "error", err)
	}

	full, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return full, pair, nil
}

func (s *authService) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return "", err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", fmt.Errorf("%w: revoked", domain.ErrInvalidToken)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		return "", domain.ErrInvalidToken
	}

	return s.tokens.NewAccess(claims)
}

func (s *authService) Logout(ctx context.Context, refresh string) error {
	claims, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return err
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *authService) Authenticate(ctx context.Context, access string) (*domain.User, error) {
	claims, err := s.tokens.ParseAccess(access)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", domain.ErrInvalidToken)
	}
	return u, nil
}

func (s *authService) Me(ctx context.Context, actor *domain.User) (*domain.User, error) {
	return s.users.GetByID(ctx, actor.ID)
}

func (s *authService) UpdateMe(ctx context.Context, actor *domain.User, req *dto.UpdateProfileRequest) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	setString(&u.FirstName, req.FirstName)
	setString(&u.LastName, req.LastName)
	setString(&u.Phone, req.Phone)
	setString(&u.PhonePro, req.PhonePro)
	setString(&u.City, req.City)
	setString(&u.Country, req.Country)
	setString(&u.ThemePreference, req.ThemePreference)
	setString(&u.Language, req.Language)
	setBool(&u.NotificationEmail, req.NotificationEmail)
	setBool(&u.NotificationDesktop, req.NotificationDesktop)

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.users.Update(ctx, u, nil); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, u.ID)
}
