package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
)

const (
	// ChartDays - длина временного ряда на графиках
	ChartDays = 30
	// TopProjects - число проектов в рейтинге по задачам
	TopProjects = 5

	defaultActivityLimit = 10
	maxActivityLimit     = 50
)

// DashboardStats - сводка главной страницы; состав зависит от роли
type DashboardStats struct {
	Projects        ProjectCounters     `json:"projects"`
	Tasks           TaskCounters        `json:"tasks"`
	Users           UserCounters        `json:"users"`
	Notifications   NotificationCounter `json:"notifications"`
	TeamPerformance *TeamPerformance    `json:"team_performance,omitempty"`
	DepartmentStats []DepartmentSummary `json:"department_stats,omitempty"`
}

// ProjectCounters - счётчики проектов
type ProjectCounters struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
}

// TaskCounters - счётчики задач
type TaskCounters struct {
	Total      int64 `json:"total"`
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
}

// UserCounters - счётчики пользователей
type UserCounters struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// NotificationCounter - непрочитанные уведомления
type NotificationCounter struct {
	Unread int64 `json:"unread"`
}

// TeamPerformance - показатели команды руководителя
type TeamPerformance struct {
	TeamTasks     int64                          `json:"team_tasks"`
	TeamCompleted int64                          `json:"team_completed"`
	TeamOverdue   int64                          `json:"team_overdue"`
	Members       []repository.MemberPerformance `json:"members"`
}

// DepartmentSummary - показатели департамента для директора
type DepartmentSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	UserCount    int64  `json:"user_count"`
	ProjectCount int64  `json:"project_count"`
	Completion   int    `json:"completion_rate"`
}

// ActivityItem - событие ленты активности
type ActivityItem struct {
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message,omitempty"`
	Project    string    `json:"project,omitempty"`
	Department string    `json:"department,omitempty"`
	User       string    `json:"user,omitempty"`
	Date       time.Time `json:"date"`
	TaskID     *int64    `json:"task_id,omitempty"`
	ProjectID  *int64    `json:"project_id,omitempty"`
}

// ChartData - данные графиков
type ChartData struct {
	TasksTimeline   []TimelinePoint               `json:"tasks_timeline"`
	TasksByStatus   []StatusCount                 `json:"tasks_by_status"`
	TasksByProject  []repository.ProjectTaskCount `json:"tasks_by_project"`
	ProjectProgress []ProjectProgress             `json:"projects_progress"`
}

// TimelinePoint - созданные и завершённые задачи за день
type TimelinePoint struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// StatusCount - число задач в статусе
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// ProjectProgress - прогресс активного проекта
type ProjectProgress struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Progress int    `json:"progress"`
}

// DashboardService собирает агрегаты с учётом видимости
type DashboardService interface {
	Stats(ctx context.Context, actor *domain.User) (*DashboardStats, error)
	Activities(ctx context.Context, actor *domain.User, limit int) ([]ActivityItem, error)
	Charts(ctx context.Context, actor *domain.User) (*ChartData, error)
}

type dashboardService struct {
	dashboard     repository.DashboardRepository
	projects      repository.ProjectRepository
	tasks         repository.TaskRepository
	users         repository.UserRepository
	depts         repository.DepartmentRepository
	notifications repository.NotificationRepository
	now           func() time.Time
}

// NewDashboardService создаёт новый экземпляр сервиса
func NewDashboardService(
	dashboard repository.DashboardRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	depts repository.DepartmentRepository,
	notifications repository.NotificationRepository,
) DashboardService {
	return &dashboardService{
		dashboard:     dashboard,
		projects:      projects,
		tasks:         tasks,
		users:         users,
		depts:         depts,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *dashboardService) Stats(ctx context.Context, actor *domain.User) (*DashboardStats, error) {
	if actor == nil || !actor.IsActive {
		return nil, domain.ErrForbidden
	}
	now := s.now()

	ps, err := s.projects.Stats(ctx, policy.VisibilityFilter(actor, policy.ResourceProject), now)
	if err != nil {
		return nil, err
	}
	ts, err := s.tasks.Stats(ctx, policy.VisibilityFilter(actor, policy.ResourceTask), now)
	if err != nil {
		return nil, err
	}
	us, err := s.users.Stats(ctx, policy.VisibilityFilter(actor, policy.ResourceUser))
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Projects: ProjectCounters{
			Total:     ps.Total,
			Active:    ps.ByStatus[string(domain.ProjectActive)],
			Completed: ps.ByStatus[string(domain.ProjectCompleted)],
			Overdue:   ps.Overdue,
		},
		Tasks: TaskCounters{
			Total:      ts.Total,
			Todo:       ts.ByStatus[string(domain.TaskTodo)],
			InProgress: ts.ByStatus[string(domain.TaskInProgress)],
			Completed:  ts.Completed,
			Overdue:    ts.Overdue,
		},
		Users:         UserCounters{Total: us.Total, Active: us.Active},
		Notifications: NotificationCounter{Unread: unread},
	}

	if actor.Role == domain.RoleDirector || actor.Role == domain.RoleCoordinator {
		members, err := s.dashboard.TeamPerformance(ctx, policy.TeamFilter(actor), now)
		if err != nil {
			return nil, err
		}
		team := &TeamPerformance{Members: members}
		if team.Members == nil {
			team.Members = []repository.MemberPerformance{}
		}
		for _, m := range members {
			team.TeamTasks += m.TotalTasks
			team.TeamCompleted += m.CompletedTasks
			team.TeamOverdue += m.OverdueTasks
		}
		stats.TeamPerformance = team
	}

	if actor.Role == domain.RoleDirector {
		depts, err := s.dashboard.Departments(ctx)
		if err != nil {
			return nil, err
		}
		stats.DepartmentStats = make([]DepartmentSummary, 0, len(depts))
		for _, d := range depts {
			ds, err := s.depts.Stats(ctx, d.ID, now)
			if err != nil {
				return nil, err
			}
			stats.DepartmentStats = append(stats.DepartmentStats, DepartmentSummary{
				ID:           d.ID,
				Name:         d.Name,
				UserCount:    ds.Users,
				ProjectCount: ds.Projects,
				Completion:   ds.CompletionRate,
			})
		}
	}

	return stats, nil
}

// Activities сливает завершённые задачи, новые проекты и непрочитанные
// уведомления в одну ленту по убыванию даты
func (s *dashboardService) Activities(ctx context.Context, actor *domain.User, limit int) ([]ActivityItem, error) {
	if actor == nil || !actor.IsActive {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	tasks, err := s.dashboard.RecentCompletedTasks(ctx, policy.VisibilityFilter(actor, policy.ResourceTask), limit)
	if err != nil {
		return nil, err
	}
	projects, err := s.dashboard.RecentProjects(ctx, policy.VisibilityFilter(actor, policy.ResourceProject), limit)
	if err != nil {
		return nil, err
	}
	notes, err := s.notifications.Recent(ctx, actor.ID, true, limit)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(tasks)+len(projects)+len(notes))
	for i := range tasks {
		t := &tasks[i]
		item := ActivityItem{
			Type:   string(domain.NotificationTaskCompleted),
			Title:  fmt.Sprintf("Task completed: %s", t.Title),
			TaskID: &t.ID,
		}
		if t.CompletedDate != nil {
			item.Date = *t.CompletedDate
		}
		if t.Project != nil {
			item.Project = t.Project.Name
			item.ProjectID = &t.Project.ID
		}
		items = append(items, item)
	}
	for i := range projects {
		p := &projects[i]
		item := ActivityItem{
			Type:      string(domain.NotificationProjectCreated),
			Title:     fmt.Sprintf("New project: %s", p.Name),
			Date:      p.CreatedAt,
			ProjectID: &p.ID,
		}
		if p.CreatedBy != nil {
			item.User = p.CreatedBy.FullName()
		}
		if p.Department != nil {
			item.Department = p.Department.Name
		}
		items = append(items, item)
	}
	for i := range notes {
		n := &notes[i]
		items = append(items, ActivityItem{
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Date:      n.CreatedAt,
			TaskID:    n.TaskID,
			ProjectID: n.ProjectID,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *dashboardService) Charts(ctx context.Context, actor *domain.User) (*ChartData, error) {
	if actor == nil || !actor.IsActive {
		return nil, domain.ErrForbidden
	}
	now := s.now().UTC()
	tasksFilter := policy.VisibilityFilter(actor, policy.ResourceTask)
	projectsFilter := policy.VisibilityFilter(actor, policy.ResourceProject)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(ChartDays - 1))
	created, completed, err := s.dashboard.TaskDatesSince(ctx, tasksFilter, from)
	if err != nil {
		return nil, err
	}

	data := &ChartData{TasksTimeline: timeline(from, created, completed)}

	ts, err := s.tasks.Stats(ctx, tasksFilter, now)
	if err != nil {
		return nil, err
	}
	data.TasksByStatus = make([]StatusCount, 0, len(ts.ByStatus))
	for status, count := range ts.ByStatus {
		data.TasksByStatus = append(data.TasksByStatus, StatusCount{Status: status, Count: count})
	}
	sort.Slice(data.TasksByStatus, func(i, j int) bool { return data.TasksByStatus[i].Status < data.TasksByStatus[j].Status })

	data.TasksByProject, err = s.dashboard.TopProjectsByTasks(ctx, projectsFilter, TopProjects)
	if err != nil {
		return nil, err
	}
	if data.TasksByProject == nil {
		data.TasksByProject = []repository.ProjectTaskCount{}
	}

	active, err := s.dashboard.ProjectsByStatus(ctx, projectsFilter, domain.ProjectActive)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(active))
	for i := range active {
		ids = append(ids, active[i].ID)
	}
	counts, err := s.projects.TaskCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	data.ProjectProgress = make([]ProjectProgress, 0, len(active))
	for _, p := range active {
		c := counts[p.ID]
		data.ProjectProgress = append(data.ProjectProgress, ProjectProgress{
			ID:       p.ID,
			Name:     p.Name,
			Code:     p.Code,
			Progress: domain.ProgressOf(c.Completed, c.Total),
		})
	}

	return data, nil
}

// timeline раскладывает даты по дням начиная с from
func timeline(from time.Time, created, completed []time.Time) []TimelinePoint {
	points := make([]TimelinePoint, ChartDays)
	index := make(map[string]int, ChartDays)
	for i := range points {
		day := from.AddDate(0, 0, i).Format("2006-01-02")
		points[i].Date = day
		index[day] = i
	}
	for _, t := range created {
		if i, ok := index[t.UTC().Format("2006-01-02")]; ok {
			points[i].Created++
		}
	}
	for _, t := range completed {
		if i, ok := index[t.UTC().Format("2006-01-02")]; ok {
			points[i].Completed++
		}
	}
	return points
}
