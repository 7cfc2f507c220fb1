package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
)

var commentList = listFields{
	table:        "task_comments",
	search:       []string{"comment"},
	ordering:     map[string]string{"created_at": "created_at", "updated_at": "updated_at"},
	defaultOrder: "created_at DESC",
	filters: map[string]field{
		"task": {column: "task_id", kind: kindInt},
		"user": {column: "user_id", kind: kindInt},
	},
}

var attachmentList = listFields{
	table:        "task_attachments",
	search:       []string{"filename"},
	ordering:     map[string]string{"uploaded_at": "uploaded_at", "filename": "filename", "file_size": "file_size"},
	defaultOrder: "uploaded_at DESC",
	filters: map[string]field{
		"task": {column: "task_id", kind: kindInt},
		"user": {column: "user_id", kind: kindInt},
	},
}

// CommentRepository определяет интерфейс для работы с комментариями
type CommentRepository interface {
	List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.TaskComment, int64, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.TaskComment, error)
	Create(ctx context.Context, c *domain.TaskComment) error
	Update(ctx context.Context, c *domain.TaskComment) error
	Delete(ctx context.Context, id int64) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository создаёт новый экземпляр репозитория
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.TaskComment, int64, error) {
	return paginate[domain.TaskComment](ctx, r.db, commentList, q, []Scope{Visible(f)}, "User")
}

func (r *commentRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.TaskComment, error) {
	return findOne[domain.TaskComment](ctx, r.db, id, domain.ErrCommentNotFound, []Scope{Visible(f)}, "User")
}

func (r *commentRepository) Create(ctx context.Context, c *domain.TaskComment) error {
	return r.db.WithContext(ctx).Omit("Task", "User").Create(c).Error
}

func (r *commentRepository) Update(ctx context.Context, c *domain.TaskComment) error {
	return r.db.WithContext(ctx).Omit("Task", "User").Save(c).Error
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID[domain.TaskComment](ctx, r.db, id, domain.ErrCommentNotFound)
}

// AttachmentRepository определяет интерфейс для работы с вложениями
type AttachmentRepository interface {
	List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.TaskAttachment, int64, error)
	GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.TaskAttachment, error)
	PathsForTasks(ctx context.Context, taskIDs []int64) ([]string, error)
	Create(ctx context.Context, a *domain.TaskAttachment) error
	MoveToTask(ctx context.Context, a *domain.TaskAttachment, taskID int64) error
	Delete(ctx context.Context, id int64) error
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository создаёт новый экземпляр репозитория
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) List(ctx context.Context, f policy.Filter, q ListQuery) ([]domain.TaskAttachment, int64, error) {
	return paginate[domain.TaskAttachment](ctx, r.db, attachmentList, q, []Scope{Visible(f)}, "User")
}

func (r *attachmentRepository) GetVisible(ctx context.Context, f policy.Filter, id int64) (*domain.TaskAttachment, error) {
	return findOne[domain.TaskAttachment](ctx, r.db, id, domain.ErrAttachmentNotFound, []Scope{Visible(f)}, "User")
}

func (r *attachmentRepository) PathsForTasks(ctx context.Context, taskIDs []int64) ([]string, error) {
	var paths []string
	if len(taskIDs) == 0 {
		return paths, nil
	}
	err := r.db.WithContext(ctx).Model(&domain.TaskAttachment{}).Where("task_id IN ?", taskIDs).Pluck("file_path", &paths).Error
	return paths, err
}

func (r *attachmentRepository) Create(ctx context.Context, a *domain.TaskAttachment) error {
	return r.db.WithContext(ctx).Omit("Task", "User").Create(a).Error
}

// MoveToTask меняет только задачу; имя и размер файла не трогаются
func (r *attachmentRepository) MoveToTask(ctx context.Context, a *domain.TaskAttachment, taskID int64) error {
	err := r.db.WithContext(ctx).Model(&domain.TaskAttachment{}).Where("id = ?", a.ID).Update("task_id", taskID).Error
	if err != nil {
		return err
	}
	a.TaskID = taskID
	return nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID[domain.TaskAttachment](ctx, r.db, id, domain.ErrAttachmentNotFound)
}
