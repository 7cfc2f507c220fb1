package dto

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	DateLayout = "2006-01-02"
)

// Response - конверт успешного ответа
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse - конверт ответа с ошибкой
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ListResponse - конверт постраничного списка
type ListResponse struct {
	Status   string `json:"status"`
	Count    int64  `json:"count"`
	Page     int    `json:"page"`
	Next     *int   `json:"next"`
	Previous *int   `json:"previous"`
	Data     any    `json:"data"`
}

// Success оборачивает данные в конверт
func Success(data any) Response {
	return Response{Status: StatusSuccess, Data: data}
}

// Failure строит конверт ошибки
func Failure(message string, fields map[string]string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message, Errors: fields}
}

// Page строит конверт страницы с номерами соседних страниц
func Page(data any, count int64, page, pageSize int) ListResponse {
	if page < 1 {
		page = 1
	}
	resp := ListResponse{Status: StatusSuccess, Count: count, Page: page, Data: data}
	if pageSize > 0 && int64(page*pageSize) < count {
		next := page + 1
		resp.Next = &next
	}
	if page > 1 {
		prev := page - 1
		resp.Previous = &prev
	}
	return resp
}

// UserBrief - краткие сведения о пользователе во вложенных объектах
type UserBrief struct {
	ID       int64       `json:"id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Initials string      `json:"initials"`
	Role     domain.Role `json:"role"`
}

// ToUserBrief возвращает nil для незагруженного пользователя
func ToUserBrief(u *domain.User) *UserBrief {
	if u == nil {
		return nil
	}
	return &UserBrief{ID: u.ID, Email: u.Email, FullName: u.FullName(), Initials: u.Initials(), Role: u.Role}
}

// ToUserBriefs конвертирует список пользователей
func ToUserBriefs(users []domain.User) []UserBrief {
	out := make([]UserBrief, 0, len(users))
	for i := range users {
		out = append(out, *ToUserBrief(&users[i]))
	}
	return out
}

// UserResponse - профиль пользователя
type UserResponse struct {
	domain.User
	FullName       string              `json:"full_name"`
	Initials       string              `json:"initials"`
	PosteTitle     string              `json:"poste_title,omitempty"`
	DepartmentName string              `json:"department_name,omitempty"`
	SectionName    string              `json:"section_name,omitempty"`
	Competences    []domain.Competence `json:"competences"`
	Permissions    policy.Capabilities `json:"permissions"`
}

// ToUser конвертирует пользователя; возможности считаются по загруженной должности
func ToUser(u *domain.User) UserResponse {
	resp := UserResponse{
		User:        *u,
		FullName:    u.FullName(),
		Initials:    u.Initials(),
		Competences: u.Competences,
		Permissions: policy.ResolveCapabilities(u),
	}
	if resp.Competences == nil {
		resp.Competences = []domain.Competence{}
	}
	if u.Poste != nil {
		resp.PosteTitle = u.Poste.Title
	}
	if u.Department != nil {
		resp.DepartmentName = u.Department.Name
	}
	if u.Section != nil {
		resp.SectionName = u.Section.Name
	}
	return resp
}

// ToUsers конвертирует список пользователей
func ToUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUser(&users[i]))
	}
	return out
}

// DepartmentResponse - департамент с числом секций
type DepartmentResponse struct {
	domain.Department
	SectionsCount int `json:"sections_count"`
}

// ToDepartments конвертирует список департаментов
func ToDepartments(items []domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(items))
	for i := range items {
		out = append(out, DepartmentResponse{Department: items[i], SectionsCount: len(items[i].Sections)})
	}
	return out
}

// SectionResponse - секция с названием департамента и ответственным
type SectionResponse struct {
	domain.Section
	DepartmentName string     `json:"department_name,omitempty"`
	Responsible    *UserBrief `json:"responsible"`
}

// ToSection конвертирует секцию
func ToSection(s *domain.Section) SectionResponse {
	resp := SectionResponse{Section: *s, Responsible: ToUserBrief(s.Responsible)}
	if s.Department != nil {
		resp.DepartmentName = s.Department.Name
	}
	return resp
}

// ToSections конвертирует список секций
func ToSections(items []domain.Section) []SectionResponse {
	out := make([]SectionResponse, 0, len(items))
	for i := range items {
		out = append(out, ToSection(&items[i]))
	}
	return out
}

// ProjectResponse - проект с прогрессом и участниками
type ProjectResponse struct {
	domain.Project
	StartDate          string      `json:"start_date"`
	EndDate            string      `json:"end_date"`
	DepartmentName     string      `json:"department_name,omitempty"`
	CreatedBy          *UserBrief  `json:"created_by"`
	Coordinators       []UserBrief `json:"coordinators"`
	Progress           int         `json:"progress"`
	TaskCount          int         `json:"task_count"`
	CompletedTaskCount int         `json:"completed_task_count"`
	IsOverdue          bool        `json:"is_overdue"`
}

// ToProject конвертирует проект; total и completed - число его задач
func ToProject(p *domain.Project, total, completed int, now time.Time) ProjectResponse {
	resp := ProjectResponse{
		Project:            *p,
		StartDate:          p.StartDate.Format(DateLayout),
		EndDate:            p.EndDate.Format(DateLayout),
		CreatedBy:          ToUserBrief(p.CreatedBy),
		Coordinators:       ToUserBriefs(p.Coordinators),
		Progress:           domain.ProgressOf(completed, total),
		TaskCount:          total,
		CompletedTaskCount: completed,
		IsOverdue: p.Status != domain.ProjectCompleted && p.Status != domain.ProjectCancelled &&
			now.After(p.EndDate.AddDate(0, 0, 1)),
	}
	if p.Department != nil {
		resp.DepartmentName = p.Department.Name
	}
	return resp
}

// TaskResponse - задача с исполнителями и сроками
type TaskResponse struct {
	domain.Task
	ProjectName   string      `json:"project_name,omitempty"`
	CreatedBy     *UserBrief  `json:"created_by"`
	AssignedTo    []UserBrief `json:"assigned_to"`
	IsOverdue     bool        `json:"is_overdue"`
	DaysRemaining int         `json:"days_remaining"`
}

// ToTask конвертирует задачу
func ToTask(t *domain.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		Task:          *t,
		CreatedBy:     ToUserBrief(t.CreatedBy),
		AssignedTo:    ToUserBriefs(t.Assignees),
		IsOverdue:     t.IsOverdue(now),
		DaysRemaining: t.DaysRemaining(now),
	}
	if t.Project != nil {
		resp.ProjectName = t.Project.Name
	}
	return resp
}

// ToTasks конвертирует список задач
func ToTasks(tasks []domain.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, ToTask(&tasks[i], now))
	}
	return out
}

// CommentResponse - комментарий с автором
type CommentResponse struct {
	domain.TaskComment
	User *UserBrief `json:"user"`
}

// ToComment конвертирует комментарий
func ToComment(c *domain.TaskComment) CommentResponse {
	return CommentResponse{TaskComment: *c, User: ToUserBrief(c.User)}
}

// ToComments конвертирует список комментариев
func ToComments(items []domain.TaskComment) []CommentResponse {
	out := make([]CommentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToComment(&items[i]))
	}
	return out
}

// AttachmentResponse - вложение с человекочитаемым размером
type AttachmentResponse struct {
	domain.TaskAttachment
	User            *UserBrief `json:"user"`
	FileSizeDisplay string     `json:"file_size_display"`
	DownloadURL     string     `json:"download_url"`
}

// ToAttachment конвертирует вложение
func ToAttachment(a *domain.TaskAttachment) AttachmentResponse {
	return AttachmentResponse{
		TaskAttachment:  *a,
		User:            ToUserBrief(a.User),
		FileSizeDisplay: humanize.IBytes(uint64(max(a.FileSize, 0))),
		DownloadURL:     fmt.Sprintf("/task-attachments/%d/download", a.ID),
	}
}

// ToAttachments конвертирует список вложений
func ToAttachments(items []domain.TaskAttachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToAttachment(&items[i]))
	}
	return out
}

// ActivityResponse - запись журнала с пользователем
type ActivityResponse struct {
	domain.UserActivity
	User *UserBrief `json:"user"`
}

// ToActivities конвертирует журнал действий
func ToActivities(items []domain.UserActivity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for i := range items {
		out = append(out, ActivityResponse{UserActivity: items[i], User: ToUserBrief(items[i].User)})
	}
	return out
}

// TokenResponse - ответ на вход
type TokenResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    UserResponse `json:"user"`
}
