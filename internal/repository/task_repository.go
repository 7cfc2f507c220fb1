package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

var taskList = listFields{
	table:  "tasks",
	search: []string{"title", "description"},
	ordering: map[string]string{
		"title":        "title",
		"priority":     "priority",
		"complexity":   "complexity",
		"start_date":   "start_date",
		"due_date":     "due_date",
		"created_at":   "created_at",
		"kanban_order": "kanban_order",
		"status":       "status",
	},
	defaultOrder: "due_date ASC, tasks.priority DESC",
	filters: map[string]field{
		"project":      {column: "project_id", kind: kindInt},
		"status":       {column: "status"},
		"priority":     {column: "priority", kind: kindInt},
		"complexity":   {column: "complexity", kind: kindInt},
		"is_completed": {column: "is_completed", kind: kindBool},
		"created_by":   {column: "created_by_id", kind: kindInt},
	},
}

// TasksInProject ограничивает задачи проектом
func TasksInProject(projectID int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.project_id = ?", projectID)
	}
}

// TasksAssignedTo ограничивает задачи назначенными пользователю
func TasksAssignedTo(userID int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.id IN ("+taskIDsOfAssignee+")", userID)
	}
}

// TasksOverdue - незавершённые задачи с истёкшим сроком
func TasksOverdue(now time.Time) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.is_completed = ? AND tasks.due_date < ?", false, now)
	}
}

// TasksDueBetween - незавершённые задачи со сроком в интервале [from, to]
func TasksDueBetween(from, to time.Time) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.is_completed = ? AND tasks.due_date >= ? AND tasks.due_date <= ?", false, from, to)
	}
}

// TaskStats - сводка по задачам
type TaskStats struct {
	Total      int64            `json:"total"`
	Completed  int64            `json:"completed"`
	Overdue    int64            `json:"overdue"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[int]int64    `json:"by_priority"`
}

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	List(ctx context.Context, f policy.Filter, q ListQuery, scopes ...Scope) ([]domain.Task, int64, error)
	ListAll(ctx context.Context, f policy.Filter, scopes ...Scope) ([]domain.Task, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Task, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task, assigneeIDs []int64) error
	Update(ctx context.Context, t *domain.Task, assigneeIDs []int64) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, f policy.Filter, now time.Time, scopes ...Scope) (*TaskStats, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository создаёт новый экземпляр репозитория
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

var taskPreloads = []string{"Project", "CreatedBy", "Assignees"}

func (r *taskRepository) List(ctx context.Context, f policy.Filter, q ListQuery, scopes ...Scope) ([]domain.Task, int64, error) {
	return paginate[domain.Task](ctx, r.db, taskList, q, append([]Scope{Visible(f)}, scopes...), taskPreloads...)
}

func (r *taskRepository) ListAll(ctx context.Context, f policy.Filter, scopes ...Scope) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Scopes(append([]Scope{Visible(f)}, scopes...)...).
		Preload("Assignees").
		Order("tasks.kanban_order ASC, tasks.due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.Task, error) {
	return findOne[domain.Task](ctx, r.db, id, domain.ErrTaskNotFound, []Scope{Visible(f)}, taskPreloads...)
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return findOne[domain.Task](ctx, r.db, id, domain.ErrTaskNotFound, nil, taskPreloads...)
}

func (r *taskRepository) Create(ctx context.Context, t *domain.Task, assigneeIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Project", "CreatedBy", "Assignees").Create(t).Error; err != nil {
			return err
		}
		return replaceUsers(tx, t, "Assignees", assigneeIDs, &t.Assignees, "assigned_to")
	})
}

// Update сохраняет задачу; assigneeIDs == nil оставляет исполнителей без изменений
func (r *taskRepository) Update(ctx context.Context, t *domain.Task, assigneeIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Project", "CreatedBy", "Assignees").Save(t).Error; err != nil {
			return err
		}
		if assigneeIDs == nil {
			return nil
		}
		return replaceUsers(tx, t, "Assignees", assigneeIDs, &t.Assignees, "assigned_to")
	})
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.Task{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrTaskNotFound
		}
		return deleteTasksTx(tx, []int64{id})
	})
}

func (r *taskRepository) Stats(ctx context.Context, f policy.Filter, now time.Time, scopes ...Scope) (*TaskStats, error) {
	stats := &TaskStats{ByStatus: map[string]int64{}, ByPriority: map[int]int64{}}
	all := append([]Scope{Visible(f)}, scopes...)
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&domain.Task{}).Scopes(all...) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("tasks.is_completed = ?", true).Count(&stats.Completed).Error; err != nil {
		return nil, err
	}
	if err := base().Scopes(TasksOverdue(now)).Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := base().Select("tasks.status AS status, COUNT(*) AS count").Group("tasks.status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
	}

	var byPriority []struct {
		Priority int
		Count    int64
	}
	if err := base().Select("tasks.priority AS priority, COUNT(*) AS count").Group("tasks.priority").Scan(&byPriority).Error; err != nil {
		return nil, err
	}
	for _, row := range byPriority {
		stats.ByPriority[row.Priority] = row.Count
	}

	return stats, nil
}

// deleteTasksTx удаляет задачи вместе с комментариями, вложениями,
// уведомлениями и назначениями
func deleteTasksTx(tx *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	for _, stmt := range []string{
		"DELETE FROM task_comments WHERE task_id IN ?",
		"DELETE FROM task_attachments WHERE task_id IN ?",
		"DELETE FROM notifications WHERE task_id IN ?",
		"DELETE FROM task_assignees WHERE task_id IN ?",
		"DELETE FROM tasks WHERE id IN ?",
	} {
		if err := tx.Exec(stmt, ids).Error; err != nil {
			return err
		}
	}
	return nil
}
