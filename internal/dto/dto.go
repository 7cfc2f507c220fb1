package dto

import (
	"bytes"
	"encoding/json"
)

// NullableID различает отсутствующее поле и явный null в частичном обновлении
type NullableID struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON отмечает поле присутствующим, null сбрасывает значение
func (n *NullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// LoginRequest - запрос на вход
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest - запрос на обмен refresh-токена
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// UpdateProfileRequest - правка собственного профиля
type UpdateProfileRequest struct {
	FirstName           *string `json:"first_name" validate:"omitempty,min=1,max=150"`
	LastName            *string `json:"last_name" validate:"omitempty,min=1,max=150"`
	Phone               *string `json:"phone" validate:"omitempty,max=20"`
	PhonePro            *string `json:"phone_pro" validate:"omitempty,max=20"`
	City                *string `json:"city" validate:"omitempty,max=100"`
	Country             *string `json:"country" validate:"omitempty,max=100"`
	ThemePreference     *string `json:"theme_preference" validate:"omitempty,oneof=light dark auto"`
	Language            *string `json:"language" validate:"omitempty,oneof=fr en"`
	NotificationEmail   *bool   `json:"notification_email"`
	NotificationDesktop *bool   `json:"notification_desktop"`
	Password            *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// CreateUserRequest - запрос на создание пользователя
type CreateUserRequest struct {
	Email        string  `json:"email" validate:"required,email,max=254"`
	Password     string  `json:"password" validate:"required,min=8,max=128"`
	FirstName    string  `json:"first_name" validate:"required,max=150"`
	LastName     string  `json:"last_name" validate:"required,max=150"`
	Role         string  `json:"role" validate:"required,oneof=director coordinator section_head member"`
	PosteID      *int64  `json:"poste_id" validate:"omitempty,min=1"`
	DepartmentID *int64  `json:"department_id" validate:"omitempty,min=1"`
	SectionID    *int64  `json:"section_id" validate:"omitempty,min=1"`
	Phone        string  `json:"phone" validate:"max=20"`
	PhonePro     string  `json:"phone_pro" validate:"max=20"`
	City         string  `json:"city" validate:"max=100"`
	Country      string  `json:"country" validate:"max=100"`
	IsActive     *bool   `json:"is_active"`
	Competences  []int64 `json:"competences" validate:"omitempty,dive,min=1"`
}

// UpdateUserRequest - запрос на обновление пользователя
type UpdateUserRequest struct {
	Email        *string    `json:"email" validate:"omitempty,email,max=254"`
	Password     *string    `json:"password" validate:"omitempty,min=8,max=128"`
	FirstName    *string    `json:"first_name" validate:"omitempty,min=1,max=150"`
	LastName     *string    `json:"last_name" validate:"omitempty,min=1,max=150"`
	Role         *string    `json:"role" validate:"omitempty,oneof=director coordinator section_head member"`
	PosteID      NullableID `json:"poste_id"`
	DepartmentID NullableID `json:"department_id"`
	SectionID    NullableID `json:"section_id"`
	Phone        *string    `json:"phone" validate:"omitempty,max=20"`
	PhonePro     *string    `json:"phone_pro" validate:"omitempty,max=20"`
	City         *string    `json:"city" validate:"omitempty,max=100"`
	Country      *string    `json:"country" validate:"omitempty,max=100"`
	IsActive     *bool      `json:"is_active"`
	Competences  []int64    `json:"competences" validate:"omitempty,dive,min=1"`
}

// PosteRequest - создание и обновление должности
type PosteRequest struct {
	Title             string `json:"title" validate:"required,max=100"`
	Code              string `json:"code" validate:"required,max=20"`
	Category          string `json:"category" validate:"omitempty,oneof=direction management technical support commercial administrative other"`
	Description       string `json:"description"`
	HierarchyLevel    int    `json:"hierarchy_level" validate:"min=0,max=10"`
	IsActive          *bool  `json:"is_active"`
	CanManageTeam     *bool  `json:"can_manage_team"`
	CanCreateProjects *bool  `json:"can_create_projects"`
	CanValidateTasks  *bool  `json:"can_validate_tasks"`
}

// DepartmentRequest - создание и обновление департамента
type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,max=10"`
	Description string `json:"description"`
}

// SectionRequest - создание и обновление секции
type SectionRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Code          string `json:"code" validate:"required,max=10"`
	DepartmentID  int64  `json:"department_id" validate:"required,min=1"`
	ResponsibleID *int64 `json:"responsible_id" validate:"omitempty,min=1"`
	Description   string `json:"description"`
}

// CompetenceRequest - создание и обновление компетенции
type CompetenceRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"max=50"`
}

// CreateProjectRequest - запрос на создание проекта
type CreateProjectRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Code         string  `json:"code" validate:"required,max=20"`
	Description  string  `json:"description"`
	DepartmentID int64   `json:"department_id" validate:"required,min=1"`
	Priority     int     `json:"priority" validate:"omitempty,min=1,max=5"`
	Status       string  `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	StartDate    string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Coordinators []int64 `json:"coordinators" validate:"omitempty,dive,min=1"`
}

// UpdateProjectRequest - запрос на обновление проекта
type UpdateProjectRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Code         *string `json:"code" validate:"omitempty,min=1,max=20"`
	Description  *string `json:"description"`
	DepartmentID *int64  `json:"department_id" validate:"omitempty,min=1"`
	Priority     *int    `json:"priority" validate:"omitempty,min=1,max=5"`
	Status       *string `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	StartDate    *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Coordinators []int64 `json:"coordinators" validate:"omitempty,dive,min=1"`
}

// CreateTaskRequest - запрос на создание задачи
type CreateTaskRequest struct {
	Title                string  `json:"title" validate:"required,max=200"`
	Description          string  `json:"description"`
	ProjectID            int64   `json:"project" validate:"required,min=1"`
	Status               string  `json:"status" validate:"omitempty,oneof=todo in_progress review done blocked"`
	KanbanOrder          int     `json:"kanban_order" validate:"min=0"`
	Priority             int     `json:"priority" validate:"omitempty,min=1,max=5"`
	Complexity           int     `json:"complexity" validate:"omitempty,min=1,max=5"`
	StartDate            string  `json:"start_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DueDate              string  `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	IsCompleted          bool    `json:"is_completed"`
	CompletionPercentage int     `json:"completion_percentage" validate:"min=0,max=100"`
	AssignedTo           []int64 `json:"assigned_to" validate:"omitempty,dive,min=1"`
}

// UpdateTaskRequest - запрос на обновление задачи
type UpdateTaskRequest struct {
	Title                *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description          *string `json:"description"`
	ProjectID            *int64  `json:"project" validate:"omitempty,min=1"`
	Status               *string `json:"status" validate:"omitempty,oneof=todo in_progress review done blocked"`
	KanbanOrder          *int    `json:"kanban_order" validate:"omitempty,min=0"`
	Priority             *int    `json:"priority" validate:"omitempty,min=1,max=5"`
	Complexity           *int    `json:"complexity" validate:"omitempty,min=1,max=5"`
	StartDate            *string `json:"start_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DueDate              *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	IsCompleted          *bool   `json:"is_completed"`
	CompletionPercentage *int    `json:"completion_percentage" validate:"omitempty,min=0,max=100"`
	AssignedTo           []int64 `json:"assigned_to" validate:"omitempty,dive,min=1"`
}

// TaskStatusRequest - смена статуса задачи
type TaskStatusRequest struct {
	Status               string `json:"status" validate:"required,oneof=todo in_progress review done blocked"`
	CompletionPercentage *int   `json:"completion_percentage" validate:"omitempty,min=0,max=100"`
}

// AssignTaskRequest - замена набора исполнителей
type AssignTaskRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1,dive,min=1"`
}

// CommentRequest - создание и правка комментария
type CommentRequest struct {
	TaskID  int64  `json:"task" validate:"required,min=1"`
	Comment string `json:"comment" validate:"required,max=5000"`
}

// UpdateCommentRequest - правка текста комментария
type UpdateCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=5000"`
}

// UpdateAttachmentRequest - перенос вложения в другую задачу
type UpdateAttachmentRequest struct {
	TaskID int64 `json:"task" validate:"required,min=1"`
}
