package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

// ProjectTaskCount - проект и число его задач
type ProjectTaskCount struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	TaskCount int64  `json:"task_count"`
}

// MemberPerformance - показатели исполнителя
type MemberPerformance struct {
	UserID         int64  `json:"user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	TotalTasks     int64  `json:"total_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
	OverdueTasks   int64  `json:"overdue_tasks"`
}

// DashboardRepository собирает агрегаты для дашборда
type DashboardRepository interface {
	TaskDatesSince(ctx context.Context, f policy.Filter, from time.Time) (created, completed []time.Time, err error)
	TopProjectsByTasks(ctx context.Context, f policy.Filter, limit int) ([]ProjectTaskCount, error)
	ProjectsByStatus(ctx context.Context, f policy.Filter, status domain.ProjectStatus) ([]domain.Project, error)
	RecentCompletedTasks(ctx context.Context, f policy.Filter, limit int) ([]domain.Task, error)
	RecentProjects(ctx context.Context, f policy.Filter, limit int) ([]domain.Project, error)
	TeamPerformance(ctx context.Context, team policy.Filter, now time.Time) ([]MemberPerformance, error)
	Departments(ctx context.Context) ([]domain.Department, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository создаёт новый экземпляр репозитория
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) TaskDatesSince(ctx context.Context, f policy.Filter, from time.Time) ([]time.Time, []time.Time, error) {
	var created, completed []time.Time

	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Scopes(Visible(f)).
		Where("tasks.created_at >= ?", from).
		Pluck("tasks.created_at", &created).Error
	if err != nil {
		return nil, nil, err
	}

	err = r.db.WithContext(ctx).Model(&domain.Task{}).
		Scopes(Visible(f)).
		Where("tasks.completed_date IS NOT NULL AND tasks.completed_date >= ?", from).
		Pluck("tasks.completed_date", &completed).Error
	if err != nil {
		return nil, nil, err
	}

	return created, completed, nil
}

func (r *dashboardRepository) TopProjectsByTasks(ctx context.Context, f policy.Filter, limit int) ([]ProjectTaskCount, error) {
	var rows []ProjectTaskCount
	err := r.db.WithContext(ctx).Model(&domain.Project{}).
		Scopes(Visible(f)).
		Select("projects.id AS project_id, projects.name AS name, projects.code AS code, COUNT(tasks.id) AS task_count").
		Joins("LEFT JOIN tasks ON tasks.project_id = projects.id").
		Group("projects.id, projects.name, projects.code").
		Order("task_count DESC, projects.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *dashboardRepository) ProjectsByStatus(ctx context.Context, f policy.Filter, status domain.ProjectStatus) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Scopes(Visible(f)).
		Where("projects.status = ?", status).
		Order("projects.end_date ASC").
		Find(&projects).Error
	return projects, err
}

func (r *dashboardRepository) RecentCompletedTasks(ctx context.Context, f policy.Filter, limit int) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Scopes(Visible(f)).
		Preload("Project").
		Where("tasks.is_completed = ? AND tasks.completed_date IS NOT NULL", true).
		Order("tasks.completed_date DESC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *dashboardRepository) RecentProjects(ctx context.Context, f policy.Filter, limit int) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Scopes(Visible(f)).
		Preload("CreatedBy").
		Preload("Department").
		Order("projects.created_at DESC").
		Limit(limit).
		Find(&projects).Error
	return projects, err
}

func (r *dashboardRepository) TeamPerformance(ctx context.Context, team policy.Filter, now time.Time) ([]MemberPerformance, error) {
	var rows []MemberPerformance
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Scopes(Visible(team)).
		Select(`users.id AS user_id, users.first_name AS first_name, users.last_name AS last_name,
			COUNT(tasks.id) AS total_tasks,
			SUM(CASE WHEN tasks.is_completed THEN 1 ELSE 0 END) AS completed_tasks,
			SUM(CASE WHEN NOT tasks.is_completed AND tasks.due_date < ? THEN 1 ELSE 0 END) AS overdue_tasks`, now).
		Joins("JOIN task_assignees ON task_assignees.user_id = users.id").
		Joins("JOIN tasks ON tasks.id = task_assignees.task_id").
		Where("users.is_active = ?", true).
		Group("users.id, users.first_name, users.last_name").
		Order("completed_tasks DESC, users.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *dashboardRepository) Departments(ctx context.Context) ([]domain.Department, error) {
	var departments []domain.Department
	err := r.db.WithContext(ctx).Order("name ASC").Find(&departments).Error
	return departments, err
}
