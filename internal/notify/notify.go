// Package notify строит и рассылает уведомления по событиям задач и комментариев.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/project-tracker-api/internal/domain"
)

// EventKind - вид события, порождающего уведомления
type EventKind string

const (
	TaskCreated    EventKind = "task_created"
	TaskReassigned EventKind = "task_reassigned"
	TaskCompleted  EventKind = "task_completed"
	CommentAdded   EventKind = "comment_added"
)

// Event - зафиксированное изменение, собранное сервисом после записи.
// Для TaskReassigned Recipients содержит только новых исполнителей.
type Event struct {
	Kind        EventKind
	Task        *domain.Task
	ProjectName string
	Actor       *domain.User
	Recipients  []int64
	ViaValidate bool
}

// Plan возвращает уведомления для события без обращения к хранилищу
func Plan(e Event) []domain.Notification {
	if e.Task == nil {
		return nil
	}
	t := e.Task
	taskID := &t.ID
	projectID := &t.ProjectID

	var out []domain.Notification
	add := func(userID int64, kind domain.NotificationType, title, message string) {
		for i := range out {
			if out[i].UserID == userID {
				return
			}
		}
		out = append(out, domain.Notification{
			UserID:    userID,
			Type:      kind,
			Title:     title,
			Message:   message,
			TaskID:    taskID,
			ProjectID: projectID,
		})
	}

	switch e.Kind {
	case TaskCreated:
		for _, uid := range assigneeIDs(t) {
			add(uid, domain.NotificationTaskAssigned,
				fmt.Sprintf("New task: %s", t.Title),
				fmt.Sprintf("You have been assigned to task %q in project %s", t.Title, e.ProjectName))
		}

	case TaskReassigned:
		for _, uid := range e.Recipients {
			add(uid, domain.NotificationTaskAssigned,
				fmt.Sprintf("New assignment: %s", t.Title),
				fmt.Sprintf("You have been assigned to task %q", t.Title))
		}

	case TaskCompleted:
		if t.CreatedByID != nil {
			add(*t.CreatedByID, domain.NotificationTaskCompleted,
				fmt.Sprintf("Task completed: %s", t.Title),
				fmt.Sprintf("Task %q has been marked as done", t.Title))
		}
		if e.ViaValidate {
			for _, uid := range assigneeIDs(t) {
				add(uid, domain.NotificationTaskCompleted,
					"Task validated",
					fmt.Sprintf("Your task %q has been validated", t.Title))
			}
		}

	case CommentAdded:
		author := "Someone"
		var authorID int64
		if e.Actor != nil {
			author = e.Actor.FullName()
			authorID = e.Actor.ID
		}
		for _, uid := range assigneeIDs(t) {
			if uid == authorID {
				continue
			}
			add(uid, domain.NotificationCommentAdded,
				fmt.Sprintf("New comment on %s", t.Title),
				fmt.Sprintf("%s commented on task %q", author, t.Title))
		}
	}

	return out
}

func assigneeIDs(t *domain.Task) []int64 {
	ids := make([]int64, 0, len(t.Assignees))
	for i := range t.Assignees {
		ids = append(ids, t.Assignees[i].ID)
	}
	return ids
}

// Store сохраняет одно уведомление
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// Fanout рассылает уведомления по событиям
type Fanout struct {
	store  Store
	logger *slog.Logger
}

// NewFanout создаёт рассылку поверх хранилища уведомлений
func NewFanout(store Store, logger *slog.Logger) *Fanout {
	return &Fanout{store: store, logger: logger}
}

// Dispatch создаёт уведомления для каждого события по отдельности.
// Ошибка одного получателя логируется и не мешает остальным.
// Возвращает успешно созданные уведомления.
func (f *Fanout) Dispatch(ctx context.Context, events ...Event) []domain.Notification {
	var created []domain.Notification
	for _, e := range events {
		for _, n := range Plan(e) {
			if err := f.store.Create(ctx, &n); err != nil {
				f.logger.Warn("failed to create notification",
					"event", e.Kind,
					"user_id", n.UserID,
					"task_id", e.Task.ID,
					"error", err,
				)
				continue
			}
			created = append(created, n)
		}
	}
	return created
}
