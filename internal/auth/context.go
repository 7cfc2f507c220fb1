package auth

import (
	"context"

	"github.com/project-tracker-api/internal/domain"
)

type ctxKey int

const (
	userKey ctxKey = iota
	clientIPKey
)

// WithUser сохраняет аутентифицированного пользователя в контексте
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom возвращает пользователя запроса или nil
func UserFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// WithClientIP сохраняет адрес клиента для журнала действий
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP возвращает адрес клиента запроса
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
