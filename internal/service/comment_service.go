package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/notify"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/storage"
)

// CommentService определяет операции над комментариями к задачам
type CommentService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.TaskComment, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.TaskComment, error)
	Create(ctx context.Context, actor *domain.User, req *dto.CommentRequest) (*domain.TaskComment, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateCommentRequest) (*domain.TaskComment, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

type commentService struct {
	comments repository.CommentRepository
	tasks    repository.TaskRepository
	fanout   *notify.Fanout
}

// NewCommentService создаёт новый экземпляр сервиса
func NewCommentService(comments repository.CommentRepository, tasks repository.TaskRepository, fanout *notify.Fanout) CommentService {
	return &commentService{comments: comments, tasks: tasks, fanout: fanout}
}

func (s *commentService) filter(actor *domain.User) policy.Filter {
	return policy.VisibilityFilter(actor, policy.ResourceComment)
}

func (s *commentService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.TaskComment, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceComment, nil); err != nil {
		return nil, 0, err
	}
	return s.comments.List(ctx, s.filter(actor), q)
}

func (s *commentService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.TaskComment, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceComment, nil); err != nil {
		return nil, err
	}
	return s.comments.GetVisible(ctx, s.filter(actor), id)
}

func (s *commentService) Create(ctx context.Context, actor *domain.User, req *dto.CommentRequest) (*domain.TaskComment, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceComment, nil); err != nil {
		return nil, err
	}
	task, err := visibleTask(ctx, s.tasks, actor, req.TaskID)
	if err != nil {
		return nil, err
	}

	c := &domain.TaskComment{TaskID: task.ID, UserID: actor.ID, Comment: req.Comment}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}

	s.fanout.Dispatch(ctx, notify.Event{Kind: notify.CommentAdded, Task: task, Actor: actor})
	c.User = actor
	return c, nil
}

func (s *commentService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateCommentRequest) (*domain.TaskComment, error) {
	c, err := s.comments.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceComment, c); err != nil {
		return nil, err
	}
	c.Comment = req.Comment
	if err := s.comments.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *commentService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	c, err := s.comments.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceComment, c); err != nil {
		return err
	}
	return s.comments.Delete(ctx, c.ID)
}

// visibleTask загружает задачу для ссылки из другой записи:
// невидимая задача - ошибка поля task, а не 404
func visibleTask(ctx context.Context, tasks repository.TaskRepository, actor *domain.User, id int64) (*domain.Task, error) {
	t, err := tasks.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceTask), id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewValidationError("task", "task does not exist")
		}
		return nil, err
	}
	return t, nil
}

// FileStore хранит содержимое вложений
type FileStore interface {
	Save(filename string, r io.Reader) (*storage.StoredFile, error)
	Open(path string) (*os.File, error)
	Delete(path string) error
}

// removeFiles удаляет файлы уже удалённых записей; ошибки только логируются
func removeFiles(ctx context.Context, files FileStore, logger *slog.Logger, paths []string) {
	for _, p := range paths {
		if err := files.Delete(p); err != nil {
			logger.WarnContext(ctx, "failed to remove attachment file", "path", p, "error", err)
		}
	}
}

// AttachmentService определяет операции над вложениями задач
type AttachmentService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.TaskAttachment, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.TaskAttachment, error)
	Create(ctx context.Context, actor *domain.User, taskID int64, filename string, r io.Reader) (*domain.TaskAttachment, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateAttachmentRequest) (*domain.TaskAttachment, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Open(ctx context.Context, actor *domain.User, id int64) (*domain.TaskAttachment, *os.File, error)
}

type attachmentService struct {
	attachments repository.AttachmentRepository
	tasks       repository.TaskRepository
	files       FileStore
	logger      *slog.Logger
}

// NewAttachmentService создаёт новый экземпляр сервиса
func NewAttachmentService(
	attachments repository.AttachmentRepository,
	tasks repository.TaskRepository,
	files FileStore,
	logger *slog.Logger,
) AttachmentService {
	return &attachmentService{attachments: attachments, tasks: tasks, files: files, logger: logger}
}

func (s *attachmentService) filter(actor *domain.User) policy.Filter {
	return policy.VisibilityFilter(actor, policy.ResourceAttachment)
}

func (s *attachmentService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.TaskAttachment, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceAttachment, nil); err != nil {
		return nil, 0, err
	}
	return s.attachments.List(ctx, s.filter(actor), q)
}

func (s *attachmentService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.TaskAttachment, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceAttachment, nil); err != nil {
		return nil, err
	}
	return s.attachments.GetVisible(ctx, s.filter(actor), id)
}

// Create сохраняет файл и фиксирует его имя, размер и тип
func (s *attachmentService) Create(ctx context.Context, actor *domain.User, taskID int64, filename string, r io.Reader) (*domain.TaskAttachment, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceAttachment, nil); err != nil {
		return nil, err
	}
	task, err := visibleTask(ctx, s.tasks, actor, taskID)
	if err != nil {
		return nil, err
	}

	stored, err := s.files.Save(filename, r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, domain.NewValidationError("file", err.Error())
		}
		return nil, fmt.Errorf("save attachment: %w", err)
	}

	a := &domain.TaskAttachment{
		TaskID:      task.ID,
		UserID:      actor.ID,
		FilePath:    stored.Path,
		Filename:    filename,
		FileSize:    stored.Size,
		ContentType: stored.ContentType,
	}
	if err := s.attachments.Create(ctx, a); err != nil {
		removeFiles(ctx, s.files, s.logger, []string{stored.Path})
		return nil, err
	}
	a.User = actor
	return a, nil
}

// Update переносит вложение в другую видимую задачу; файл не меняется
func (s *attachmentService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateAttachmentRequest) (*domain.TaskAttachment, error) {
	a, err := s.attachments.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceAttachment, a); err != nil {
		return nil, err
	}
	task, err := visibleTask(ctx, s.tasks, actor, req.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.attachments.MoveToTask(ctx, a, task.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *attachmentService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	a, err := s.attachments.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceAttachment, a); err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, a.ID); err != nil {
		return err
	}
	removeFiles(ctx, s.files, s.logger, []string{a.FilePath})
	return nil
}

// Open открывает файл видимого вложения; закрыть его должен вызывающий
func (s *attachmentService) Open(ctx context.Context, actor *domain.User, id int64) (*domain.TaskAttachment, *os.File, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Open(a.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, domain.ErrAttachmentNotFound
		}
		return nil, nil, err
	}
	return a, f, nil
}
