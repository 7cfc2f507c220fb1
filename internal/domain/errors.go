package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Определение бизнес-ошибок
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrUnauthorized = errors.New("authentication credentials were not provided")
	ErrInvalidToken = errors.New("token is invalid or expired")

	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")

	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrPosteNotFound        = fmt.Errorf("poste %w", ErrNotFound)
	ErrDepartmentNotFound   = fmt.Errorf("department %w", ErrNotFound)
	ErrSectionNotFound      = fmt.Errorf("section %w", ErrNotFound)
	ErrCompetenceNotFound   = fmt.Errorf("competence %w", ErrNotFound)
	ErrProjectNotFound      = fmt.Errorf("project %w", ErrNotFound)
	ErrTaskNotFound         = fmt.Errorf("task %w", ErrNotFound)
	ErrCommentNotFound      = fmt.Errorf("comment %w", ErrNotFound)
	ErrAttachmentNotFound   = fmt.Errorf("attachment %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
)

// ValidationError содержит ошибки по полям запроса
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError создаёт ошибку валидации для одного поля
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add добавляет ошибку поля
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty сообщает, что ошибок нет
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
