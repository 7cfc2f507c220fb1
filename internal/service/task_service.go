package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/notify"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

// UpcomingWindow - горизонт выборки ближайших задач
const UpcomingWindow = 7 * 24 * time.Hour

// MyTaskStats - сводка по задачам, назначенным пользователю
type MyTaskStats struct {
	Total      int64 `json:"total"`
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
}

// TaskService определяет операции над задачами
type TaskService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Task, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*domain.Task, error)
	Create(ctx context.Context, actor *domain.User, req *dto.CreateTaskRequest) (*domain.Task, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Stats(ctx context.Context, actor *domain.User) (*repository.TaskStats, error)
	MyTasks(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Task, int64, *MyTaskStats, error)
	Overdue(ctx context.Context, actor *domain.User) ([]domain.Task, error)
	Upcoming(ctx context.Context, actor *domain.User) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, actor *domain.User, id int64, req *dto.TaskStatusRequest) (*domain.Task, error)
	Assign(ctx context.Context, actor *domain.User, id int64, req *dto.AssignTaskRequest) (*domain.Task, error)
	Validate(ctx context.Context, actor *domain.User, id int64) (*domain.Task, error)
}

type taskService struct {
	tasks       repository.TaskRepository
	projects    repository.ProjectRepository
	attachments repository.AttachmentRepository
	files       FileStore
	fanout      *notify.Fanout
	activities  ActivityService
	logger      *slog.Logger
	now         func() time.Time
}

// NewTaskService создаёт новый экземпляр сервиса
func NewTaskService(
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	attachments repository.AttachmentRepository,
	files FileStore,
	fanout *notify.Fanout,
	activities ActivityService,
	logger *slog.Logger,
) TaskService {
	return &taskService{
		tasks:       tasks,
		projects:    projects,
		attachments: attachments,
		files:       files,
		fanout:      fanout,
		activities:  activities,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *taskService) filter(actor *domain.User) policy.Filter {
	return policy.VisibilityFilter(actor, policy.ResourceTask)
}

func (s *taskService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Task, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceTask, nil); err != nil {
		return nil, 0, err
	}
	return s.tasks.List(ctx, s.filter(actor), q)
}

func (s *taskService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceTask, nil); err != nil {
		return nil, err
	}
	return s.tasks.GetVisible(ctx, s.filter(actor), id)
}

func (s *taskService) Create(ctx context.Context, actor *domain.User, req *dto.CreateTaskRequest) (*domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceTask, nil); err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	project, err := s.projectFor(ctx, actor, req.ProjectID, verr)
	if err != nil {
		return nil, err
	}

	t := &domain.Task{
		Title:                req.Title,
		Description:          req.Description,
		ProjectID:            req.ProjectID,
		CreatedByID:          &actor.ID,
		Status:               domain.TaskStatus(orDefault(req.Status, string(domain.TaskTodo))),
		KanbanOrder:          req.KanbanOrder,
		Priority:             orDefault(req.Priority, 3),
		Complexity:           orDefault(req.Complexity, 3),
		StartDate:            parseTime("start_date", req.StartDate, verr),
		DueDate:              parseTime("due_date", req.DueDate, verr),
		IsCompleted:          req.IsCompleted,
		CompletionPercentage: req.CompletionPercentage,
	}
	checkTaskDates(t, verr)
	if err := validationOrNil(verr); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, t, req.AssignedTo); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Created task: %s", t.Title))
	s.fanout.Dispatch(ctx, notify.Event{
		Kind:        notify.TaskCreated,
		Task:        t,
		ProjectName: project.Name,
		Actor:       actor,
	})
	return s.tasks.GetByID(ctx, t.ID)
}

func (s *taskService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateTaskRequest) (*domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceTask, nil); err != nil {
		return nil, err
	}
	t, err := s.tasks.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}

	completing := (req.Status != nil && domain.TaskStatus(*req.Status) == domain.TaskDone && t.Status != domain.TaskDone) ||
		(req.IsCompleted != nil && *req.IsCompleted && !t.IsCompleted)
	if completing {
		if err := policy.Authorize(actor, policy.ActionComplete, policy.ResourceTask, t); err != nil {
			return nil, err
		}
	}

	verr := &domain.ValidationError{}
	if req.ProjectID != nil && *req.ProjectID != t.ProjectID {
		if _, err := s.projectFor(ctx, actor, *req.ProjectID, verr); err != nil {
			return nil, err
		}
		t.ProjectID = *req.ProjectID
		t.Project = nil
	}
	setString(&t.Title, req.Title)
	setString(&t.Description, req.Description)
	setInt(&t.KanbanOrder, req.KanbanOrder)
	setInt(&t.Priority, req.Priority)
	setInt(&t.Complexity, req.Complexity)
	setInt(&t.CompletionPercentage, req.CompletionPercentage)
	setBool(&t.IsCompleted, req.IsCompleted)
	if req.Status != nil {
		t.Status = domain.TaskStatus(*req.Status)
	}
	if req.StartDate != nil {
		t.StartDate = parseTime("start_date", *req.StartDate, verr)
	}
	if req.DueDate != nil {
		t.DueDate = parseTime("due_date", *req.DueDate, verr)
	}
	checkTaskDates(t, verr)
	if err := validationOrNil(verr); err != nil {
		return nil, err
	}

	before := t.Assignees
	if err := s.tasks.Update(ctx, t, req.AssignedTo); err != nil {
		return nil, err
	}

	var events []notify.Event
	if req.AssignedTo != nil {
		events = append(events, reassigned(actor, t, before)...)
	}
	if completing {
		events = append(events, notify.Event{Kind: notify.TaskCompleted, Task: t, Actor: actor})
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Updated task: %s", t.Title))
	s.fanout.Dispatch(ctx, events...)
	return s.tasks.GetByID(ctx, t.ID)
}

func (s *taskService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceTask, nil); err != nil {
		return err
	}
	t, err := s.tasks.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return err
	}

	paths, err := s.attachments.PathsForTasks(ctx, []int64{t.ID})
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		return err
	}
	removeFiles(ctx, s.files, s.logger, paths)

	s.activities.Record(ctx, actor, fmt.Sprintf("Deleted task: %s", t.Title))
	return nil
}

func (s *taskService) Stats(ctx context.Context, actor *domain.User) (*repository.TaskStats, error) {
	if err := policy.Authorize(actor, policy.ActionStats, policy.ResourceTask, nil); err != nil {
		return nil, err
	}
	return s.tasks.Stats(ctx, s.filter(actor), s.now())
}

// MyTasks возвращает страницу задач, назначенных actor, и сводку по ним
func (s *taskService) MyTasks(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]domain.Task, int64, *MyTaskStats, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceTask, nil); err != nil {
		return nil, 0, nil, err
	}
	mine := repository.TasksAssignedTo(actor.ID)

	tasks, count, err := s.tasks.List(ctx, allTasks, q, mine)
	if err != nil {
		return nil, 0, nil, err
	}
	st, err := s.tasks.Stats(ctx, allTasks, s.now(), mine)
	if err != nil {
		return nil, 0, nil, err
	}

	stats := &MyTaskStats{
		Total:      st.Total,
		Todo:       st.ByStatus[string(domain.TaskTodo)],
		InProgress: st.ByStatus[string(domain.TaskInProgress)],
		Completed:  st.Completed,
		Overdue:    st.Overdue,
	}
	return tasks, count, stats, nil
}

func (s *taskService) Overdue(ctx context.Context, actor *domain.User) ([]domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceTask, nil); err != nil {
		return nil, err
	}
	return s.tasks.ListAll(ctx, s.filter(actor), repository.TasksOverdue(s.now()))
}

func (s *taskService) Upcoming(ctx context.Context, actor *domain.User) ([]domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceTask, nil); err != nil {
		return nil, err
	}
	now := s.now()
	return s.tasks.ListAll(ctx, s.filter(actor), repository.TasksDueBetween(now, now.Add(UpcomingWindow)))
}

// UpdateStatus меняет колонку задачи; статус done завершает её
// и уведомляет автора
func (s *taskService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, req *dto.TaskStatusRequest) (*domain.Task, error) {
	t, err := s.tasks.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}

	status := domain.TaskStatus(req.Status)
	action := policy.ActionUpdate
	if status == domain.TaskDone {
		action = policy.ActionComplete
	}
	if err := policy.Authorize(actor, action, policy.ResourceTask, t); err != nil {
		return nil, err
	}

	t.Status = status
	setInt(&t.CompletionPercentage, req.CompletionPercentage)
	if status == domain.TaskDone {
		t.IsCompleted = true
		t.CompletionPercentage = 100
	}
	if err := s.tasks.Update(ctx, t, nil); err != nil {
		return nil, err
	}

	if status == domain.TaskDone {
		s.fanout.Dispatch(ctx, notify.Event{Kind: notify.TaskCompleted, Task: t, Actor: actor})
	}
	return s.tasks.GetByID(ctx, t.ID)
}

// Assign заменяет набор исполнителей; уведомляются только новые
func (s *taskService) Assign(ctx context.Context, actor *domain.User, id int64, req *dto.AssignTaskRequest) (*domain.Task, error) {
	t, err := s.tasks.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionAssign, policy.ResourceTask, t); err != nil {
		return nil, err
	}

	before := t.Assignees
	if err := s.tasks.Update(ctx, t, req.UserIDs); err != nil {
		return nil, err
	}
	s.fanout.Dispatch(ctx, reassigned(actor, t, before)...)
	return s.tasks.GetByID(ctx, t.ID)
}

// Validate принудительно завершает задачу от имени проверяющего
func (s *taskService) Validate(ctx context.Context, actor *domain.User, id int64) (*domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionValidate, policy.ResourceTask, nil); err != nil {
		return nil, err
	}
	t, err := s.tasks.GetVisible(ctx, s.filter(actor), id)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskDone
	t.IsCompleted = true
	t.CompletionPercentage = 100
	if err := s.tasks.Update(ctx, t, nil); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Validated task: %s", t.Title))
	s.fanout.Dispatch(ctx, notify.Event{Kind: notify.TaskCompleted, Task: t, Actor: actor, ViaValidate: true})
	return s.tasks.GetByID(ctx, t.ID)
}

// reassigned возвращает событие для исполнителей, которых не было в before
func reassigned(actor *domain.User, t *domain.Task, before []domain.User) []notify.Event {
	had := make(map[int64]bool, len(before))
	for i := range before {
		had[before[i].ID] = true
	}

	var added []int64
	for i := range t.Assignees {
		if !had[t.Assignees[i].ID] {
			added = append(added, t.Assignees[i].ID)
		}
	}
	if len(added) == 0 {
		return nil
	}
	return []notify.Event{{Kind: notify.TaskReassigned, Task: t, Actor: actor, Recipients: added}}
}

// projectFor загружает проект задачи; невидимый проект - ошибка поля
func (s *taskService) projectFor(ctx context.Context, actor *domain.User, id int64, verr *domain.ValidationError) (*domain.Project, error) {
	p, err := s.projects.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceProject), id)
	if err != nil {
		if isNotFound(err) {
			verr.Add("project", "project does not exist")
			return &domain.Project{}, nil
		}
		return nil, err
	}
	return p, nil
}

func checkTaskDates(t *domain.Task, verr *domain.ValidationError) {
	if !t.StartDate.IsZero() && !t.DueDate.IsZero() && t.DueDate.Before(t.StartDate) {
		verr.Add("due_date", "due date must not be before start date")
	}
}
