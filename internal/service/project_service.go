package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

// ProjectView - проект с числом задач для расчёта прогресса
type ProjectView struct {
	Project        *domain.Project
	TaskCount      int
	CompletedCount int
}

// Progress возвращает процент выполнения проекта
func (v ProjectView) Progress() int {
	return domain.ProgressOf(v.CompletedCount, v.TaskCount)
}

// TimelineItem - задача на диаграмме сроков проекта
type TimelineItem struct {
	ID         int64             `json:"id"`
	Title      string            `json:"title"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Status     domain.TaskStatus `json:"status"`
	AssignedTo []string          `json:"assigned_to"`
}

// ProjectService определяет операции над проектами
type ProjectService interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]ProjectView, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*ProjectView, error)
	Create(ctx context.Context, actor *domain.User, req *dto.CreateProjectRequest) (*ProjectView, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateProjectRequest) (*ProjectView, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
	Stats(ctx context.Context, actor *domain.User) (*repository.ProjectStats, error)
	Tasks(ctx context.Context, actor *domain.User, id int64) ([]domain.Task, error)
	Kanban(ctx context.Context, actor *domain.User, id int64) (map[domain.TaskStatus][]domain.Task, error)
	Timeline(ctx context.Context, actor *domain.User, id int64) ([]TimelineItem, error)
}

type projectService struct {
	projects    repository.ProjectRepository
	depts       repository.DepartmentRepository
	tasks       repository.TaskRepository
	attachments repository.AttachmentRepository
	files       FileStore
	activities  ActivityService
	logger      *slog.Logger
	now         func() time.Time
}

// NewProjectService создаёт новый экземпляр сервиса
func NewProjectService(
	projects repository.ProjectRepository,
	depts repository.DepartmentRepository,
	tasks repository.TaskRepository,
	attachments repository.AttachmentRepository,
	files FileStore,
	activities ActivityService,
	logger *slog.Logger,
) ProjectService {
	return &projectService{
		projects:    projects,
		depts:       depts,
		tasks:       tasks,
		attachments: attachments,
		files:       files,
		activities:  activities,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *projectService) List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]ProjectView, int64, error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.ResourceProject, nil); err != nil {
		return nil, 0, err
	}

	projects, count, err := s.projects.List(ctx, policy.VisibilityFilter(actor, policy.ResourceProject), q)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(projects))
	for i := range projects {
		ids = append(ids, projects[i].ID)
	}
	counts, err := s.projects.TaskCounts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	views := make([]ProjectView, 0, len(projects))
	for i := range projects {
		c := counts[projects[i].ID]
		views = append(views, ProjectView{Project: &projects[i], TaskCount: c.Total, CompletedCount: c.Completed})
	}
	return views, count, nil
}

func (s *projectService) Get(ctx context.Context, actor *domain.User, id int64) (*ProjectView, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceProject, nil); err != nil {
		return nil, err
	}
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *projectService) Create(ctx context.Context, actor *domain.User, req *dto.CreateProjectRequest) (*ProjectView, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.ResourceProject, nil); err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	p := &domain.Project{
		Name:         req.Name,
		Code:         req.Code,
		Description:  req.Description,
		DepartmentID: req.DepartmentID,
		Priority:     orDefault(req.Priority, 3),
		Status:       domain.ProjectStatus(orDefault(req.Status, string(domain.ProjectPlanning))),
		StartDate:    parseDate("start_date", req.StartDate, verr),
		EndDate:      parseDate("end_date", req.EndDate, verr),
		CreatedByID:  &actor.ID,
	}
	if err := s.check(ctx, p, nil, verr); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, p, req.Coordinators); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Created project: %s", p.Name))
	return s.reload(ctx, p.ID)
}

func (s *projectService) Update(ctx context.Context, actor *domain.User, id int64, req *dto.UpdateProjectRequest) (*ProjectView, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ResourceProject, nil); err != nil {
		return nil, err
	}
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	setString(&p.Name, req.Name)
	setString(&p.Code, req.Code)
	setString(&p.Description, req.Description)
	setInt(&p.Priority, req.Priority)
	if req.DepartmentID != nil {
		p.DepartmentID = *req.DepartmentID
		p.Department = nil
	}
	if req.Status != nil {
		p.Status = domain.ProjectStatus(*req.Status)
	}
	if req.StartDate != nil {
		p.StartDate = parseDate("start_date", *req.StartDate, verr)
	}
	if req.EndDate != nil {
		p.EndDate = parseDate("end_date", *req.EndDate, verr)
	}
	if err := s.check(ctx, p, &p.ID, verr); err != nil {
		return nil, err
	}

	if err := s.projects.Update(ctx, p, req.Coordinators); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor, fmt.Sprintf("Updated project: %s", p.Name))
	return s.reload(ctx, p.ID)
}

func (s *projectService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ResourceProject, nil); err != nil {
		return err
	}
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}

	tasks, err := s.tasks.ListAll(ctx, allTasks, repository.TasksInProject(p.ID))
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(tasks))
	for i := range tasks {
		ids = append(ids, tasks[i].ID)
	}
	paths, err := s.attachments.PathsForTasks(ctx, ids)
	if err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, p.ID); err != nil {
		return err
	}
	removeFiles(ctx, s.files, s.logger, paths)

	s.activities.Record(ctx, actor, fmt.Sprintf("Deleted project: %s", p.Name))
	return nil
}

func (s *projectService) Stats(ctx context.Context, actor *domain.User) (*repository.ProjectStats, error) {
	if err := policy.Authorize(actor, policy.ActionStats, policy.ResourceProject, nil); err != nil {
		return nil, err
	}
	return s.projects.Stats(ctx, policy.VisibilityFilter(actor, policy.ResourceProject), s.now())
}

// Tasks возвращает задачи видимого проекта; участник видит только свои
func (s *projectService) Tasks(ctx context.Context, actor *domain.User, id int64) ([]domain.Task, error) {
	if err := policy.Authorize(actor, policy.ActionRetrieve, policy.ResourceProject, nil); err != nil {
		return nil, err
	}
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	scopes := []repository.Scope{repository.TasksInProject(p.ID)}
	if actor.Role == domain.RoleMember {
		scopes = append(scopes, repository.TasksAssignedTo(actor.ID))
	}
	return s.tasks.ListAll(ctx, allTasks, scopes...)
}

// Kanban группирует задачи проекта по колонкам; колонка done
// собирается по признаку завершения
func (s *projectService) Kanban(ctx context.Context, actor *domain.User, id int64) (map[domain.TaskStatus][]domain.Task, error) {
	tasks, err := s.Tasks(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	board := make(map[domain.TaskStatus][]domain.Task, len(domain.TaskStatuses))
	for _, st := range domain.TaskStatuses {
		board[st] = []domain.Task{}
	}
	for _, t := range tasks {
		if t.IsCompleted {
			board[domain.TaskDone] = append(board[domain.TaskDone], t)
		}
		if t.Status != domain.TaskDone {
			board[t.Status] = append(board[t.Status], t)
		}
	}
	return board, nil
}

func (s *projectService) Timeline(ctx context.Context, actor *domain.User, id int64) ([]TimelineItem, error) {
	tasks, err := s.Tasks(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	items := make([]TimelineItem, 0, len(tasks))
	for _, t := range tasks {
		names := make([]string, 0, len(t.Assignees))
		for i := range t.Assignees {
			names = append(names, t.Assignees[i].FullName())
		}
		items = append(items, TimelineItem{
			ID:         t.ID,
			Title:      t.Title,
			Start:      t.StartDate,
			End:        t.DueDate,
			Status:     t.Status,
			AssignedTo: names,
		})
	}
	return items, nil
}

func (s *projectService) visible(ctx context.Context, actor *domain.User, id int64) (*domain.Project, error) {
	return s.projects.GetVisible(ctx, policy.VisibilityFilter(actor, policy.ResourceProject), id)
}

// check проверяет ссылки и даты проекта перед записью
func (s *projectService) check(ctx context.Context, p *domain.Project, excludeID *int64, verr *domain.ValidationError) error {
	if _, err := s.depts.GetByID(ctx, p.DepartmentID); err != nil {
		if !isNotFound(err) {
			return err
		}
		verr.Add("department_id", "department does not exist")
	}

	exists, err := s.projects.ExistsByCode(ctx, p.Code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		verr.Add("code", "project with this code already exists")
	}

	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		verr.Add("end_date", "end date must not be before start date")
	}
	return validationOrNil(verr)
}

func (s *projectService) reload(ctx context.Context, id int64) (*ProjectView, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *projectService) view(ctx context.Context, p *domain.Project) (*ProjectView, error) {
	counts, err := s.projects.TaskCounts(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	c := counts[p.ID]
	return &ProjectView{Project: p, TaskCount: c.Total, CompletedCount: c.Completed}, nil
}

// allTasks - фильтр без ограничений для выборок внутри уже проверенного проекта
var allTasks = policy.Filter{Resource: policy.ResourceTask, Unrestricted: true}
