package domain

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// ProjectStatus - статус проекта
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// TaskStatus - статус задачи (колонка канбана)
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// TaskStatuses перечисляет статусы в порядке колонок канбана
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskDone, TaskBlocked}

// NotificationType - вид уведомления
type NotificationType string

const (
	NotificationTaskAssigned        NotificationType = "task_assigned"
	NotificationTaskUpdated         NotificationType = "task_updated"
	NotificationTaskCompleted       NotificationType = "task_completed"
	NotificationCommentAdded        NotificationType = "comment_added"
	NotificationDeadlineApproaching NotificationType = "deadline_approaching"
	NotificationDeadlinePassed      NotificationType = "deadline_passed"
	NotificationProjectCreated      NotificationType = "project_created"
	NotificationProjectUpdated      NotificationType = "project_updated"
)

// Project представляет проект департамента
type Project struct {
	ID           int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string        `json:"name" gorm:"type:varchar(200);not null"`
	Code         string        `json:"code" gorm:"type:varchar(20);not null;uniqueIndex"`
	Description  string        `json:"description" gorm:"type:text"`
	DepartmentID int64         `json:"department_id" gorm:"not null;index"`
	Priority     int           `json:"priority" gorm:"not null"`
	Status       ProjectStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	StartDate    time.Time     `json:"start_date" gorm:"type:date;not null"`
	EndDate      time.Time     `json:"end_date" gorm:"type:date;not null"`
	CreatedByID  *int64        `json:"created_by_id" gorm:"index"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	Department   *Department `json:"-" gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE"`
	CreatedBy    *User       `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Coordinators []User      `json:"-" gorm:"many2many:project_coordinators"`
	Tasks        []Task      `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (Project) TableName() string {
	return "projects"
}

// ScopeDepartmentID возвращает департамент проекта для объектных проверок
func (p *Project) ScopeDepartmentID() *int64 {
	return &p.DepartmentID
}

// Progress вычисляет процент выполнения по загруженным задачам
func (p *Project) Progress() int {
	completed := 0
	for i := range p.Tasks {
		if p.Tasks[i].IsCompleted {
			completed++
		}
	}
	return ProgressOf(completed, len(p.Tasks))
}

// ProgressOf возвращает round(100*completed/total), 0 при отсутствии задач
func ProgressOf(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// Task представляет задачу проекта
type Task struct {
	ID                   int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title                string     `json:"title" gorm:"type:varchar(200);not null"`
	Description          string     `json:"description" gorm:"type:text"`
	ProjectID            int64      `json:"project_id" gorm:"not null;index"`
	CreatedByID          *int64     `json:"created_by_id" gorm:"index"`
	Status               TaskStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	KanbanOrder          int        `json:"kanban_order" gorm:"not null"`
	Priority             int        `json:"priority" gorm:"not null"`
	Complexity           int        `json:"complexity" gorm:"not null"`
	StartDate            time.Time  `json:"start_date" gorm:"not null"`
	DueDate              time.Time  `json:"due_date" gorm:"not null;index"`
	CompletedDate        *time.Time `json:"completed_date"`
	IsCompleted          bool       `json:"is_completed" gorm:"not null;index"`
	CompletionPercentage int        `json:"completion_percentage" gorm:"not null"`
	CreatedAt            time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Project   *Project `json:"-" gorm:"foreignKey:ProjectID"`
	CreatedBy *User    `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Assignees []User   `json:"-" gorm:"many2many:task_assignees"`
}

// TableName задаёт имя таблицы для GORM
func (Task) TableName() string {
	return "tasks"
}

// ApplyCompletionRule поддерживает согласованность полей завершения:
// завершённая задача получает дату и 100%, незавершённая теряет дату.
func (t *Task) ApplyCompletionRule(now time.Time) {
	if t.IsCompleted {
		if t.CompletedDate == nil {
			t.CompletedDate = &now
			t.CompletionPercentage = 100
		}
		return
	}
	t.CompletedDate = nil
}

// BeforeSave применяет правило завершения при любой записи задачи
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.ApplyCompletionRule(tx.NowFunc())
	return nil
}

// IsOverdue сообщает, просрочена ли незавершённая задача
func (t *Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted {
		return false
	}
	return now.After(t.DueDate)
}

// DaysRemaining возвращает число полных дней до срока
func (t *Task) DaysRemaining(now time.Time) int {
	if t.IsCompleted {
		return 0
	}
	days := int(t.DueDate.Sub(now).Hours() / 24)
	return max(0, days)
}

// IsAssigned проверяет, назначена ли задача пользователю
func (t *Task) IsAssigned(userID int64) bool {
	for i := range t.Assignees {
		if t.Assignees[i].ID == userID {
			return true
		}
	}
	return false
}

// TaskComment - комментарий к задаче
type TaskComment struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID    int64     `json:"task_id" gorm:"not null;index"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	Comment   string    `json:"comment" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Task *Task `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (TaskComment) TableName() string {
	return "task_comments"
}

// TaskAttachment - вложение задачи. Имя и размер фиксируются при загрузке.
type TaskAttachment struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID      int64     `json:"task_id" gorm:"not null;index"`
	UserID      int64     `json:"user_id" gorm:"not null;index"`
	FilePath    string    `json:"-" gorm:"type:varchar(500);not null"`
	Filename    string    `json:"filename" gorm:"type:varchar(255);not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	ContentType string    `json:"content_type" gorm:"type:varchar(255);not null"`
	UploadedAt  time.Time `json:"uploaded_at" gorm:"autoCreateTime"`

	Task *Task `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (TaskAttachment) TableName() string {
	return "task_attachments"
}

// Notification - уведомление пользователя
type Notification struct {
	ID        int64            `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64            `json:"user_id" gorm:"not null;index:idx_notifications_user_read"`
	Type      NotificationType `json:"notification_type" gorm:"type:varchar(30);not null"`
	Title     string           `json:"title" gorm:"type:varchar(200);not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	TaskID    *int64           `json:"task_id" gorm:"index"`
	ProjectID *int64           `json:"project_id" gorm:"index"`
	IsRead    bool             `json:"is_read" gorm:"not null;index:idx_notifications_user_read"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime"`

	User    *User    `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Task    *Task    `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Project *Project `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (Notification) TableName() string {
	return "notifications"
}
