package repository_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/testutil"
)

type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	notes    repository.NotificationRepository

	deptA, deptB int64
	section      int64
	director     *domain.User
	coordA       *domain.User
	coordNoDept  *domain.User
	head         *domain.User
	headNoSect   *domain.User
	memberA      *domain.User
	memberB      *domain.User
	allUsers     []*domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewTestDB(t)

	f := &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		projects: repository.NewProjectRepository(db),
		tasks:    repository.NewTaskRepository(db),
		notes:    repository.NewNotificationRepository(db),
	}

	depts := repository.NewDepartmentRepository(db)
	a := &domain.Department{Name: "Operations", Code: "OPS"}
	b := &domain.Department{Name: "Finance", Code: "FIN"}
	for _, d := range []*domain.Department{a, b} {
		if err := depts.Create(ctx, d); err != nil {
			t.Fatalf("create department: %v", err)
		}
	}
	f.deptA, f.deptB = a.ID, b.ID

	sec := &domain.Section{Name: "Logistics", Code: "LOG", DepartmentID: f.deptB}
	if err := repository.NewSectionRepository(db).Create(ctx, sec); err != nil {
		t.Fatalf("create section: %v", err)
	}
	f.section = sec.ID

	mk := func(email string, role domain.Role, dept, section *int64) *domain.User {
		u := &domain.User{Email: email, PasswordHash: "x", FirstName: email[:3], LastName: "Test", Role: role,
			DepartmentID: dept, SectionID: section, IsActive: true}
		if err := f.users.Create(ctx, u, nil); err != nil {
			t.Fatalf("create user %s: %v", email, err)
		}
		f.allUsers = append(f.allUsers, u)
		return u
	}
	f.director = mk("dir@example.com", domain.RoleDirector, nil, nil)
	f.coordA = mk("coa@example.com", domain.RoleCoordinator, &f.deptA, nil)
	f.coordNoDept = mk("con@example.com", domain.RoleCoordinator, nil, nil)
	f.head = mk("hed@example.com", domain.RoleSectionHead, nil, &f.section)
	f.headNoSect = mk("hns@example.com", domain.RoleSectionHead, &f.deptA, nil)
	f.memberA = mk("mea@example.com", domain.RoleMember, &f.deptA, nil)
	f.memberB = mk("meb@example.com", domain.RoleMember, &f.deptB, &f.section)

	return f
}

func (f *fixture) project(t *testing.T, code string, dept int64, coordinators ...int64) *domain.Project {
	t.Helper()
	p := &domain.Project{Name: "Project " + code, Code: code, DepartmentID: dept, Priority: 3,
		Status: domain.ProjectPlanning, StartDate: time.Now(), EndDate: time.Now().AddDate(0, 1, 0)}
	if err := f.projects.Create(context.Background(), p, coordinators); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *fixture) task(t *testing.T, p *domain.Project, title string, assignees ...int64) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: title, ProjectID: p.ID, CreatedByID: &f.director.ID, Status: domain.TaskTodo,
		Priority: 3, Complexity: 2, StartDate: time.Now(), DueDate: time.Now().Add(48 * time.Hour)}
	if err := f.tasks.Create(context.Background(), task, assignees); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func ids[T any](items []T, id func(*T) int64) map[int64]bool {
	out := make(map[int64]bool, len(items))
	for i := range items {
		out[id(&items[i])] = true
	}
	return out
}

// SQL-фильтр видимости задач совпадает с предикатом в памяти для всех пользователей.
func TestVisible_TasksMatchInMemoryPredicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pa := f.project(t, "A1", f.deptA)
	pb := f.project(t, "B1", f.deptB, f.coordNoDept.ID)
	f.task(t, pa, "a-unassigned")
	f.task(t, pa, "a-memberB", f.memberB.ID)
	f.task(t, pb, "b-memberA", f.memberA.ID)
	f.task(t, pb, "b-coordNoDept", f.coordNoDept.ID)
	f.task(t, pb, "b-unassigned")

	var all []domain.Task
	if err := f.db.Preload("Project").Preload("Assignees").Find(&all).Error; err != nil {
		t.Fatalf("load tasks: %v", err)
	}

	for _, u := range f.allUsers {
		filter := policy.VisibilityFilter(u, policy.ResourceTask)
		got, err := f.tasks.ListAll(ctx, filter)
		if err != nil {
			t.Fatalf("list for %s: %v", u.Email, err)
		}
		gotIDs := ids(got, func(t *domain.Task) int64 { return t.ID })

		for i := range all {
			want := filter.AllowsTask(&all[i])
			if gotIDs[all[i].ID] != want {
				t.Errorf("user %s task %q: sql=%v predicate=%v", u.Email, all[i].Title, gotIDs[all[i].ID], want)
			}
		}
	}
}

func TestVisible_ProjectsMatchInMemoryPredicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pa := f.project(t, "A1", f.deptA)
	f.project(t, "B1", f.deptB, f.coordNoDept.ID)
	pc := f.project(t, "B2", f.deptB)
	f.task(t, pa, "a-memberB", f.memberB.ID)
	f.task(t, pc, "c-memberA", f.memberA.ID)

	var all []domain.Project
	if err := f.db.Preload("Coordinators").Preload("Tasks.Assignees").Find(&all).Error; err != nil {
		t.Fatalf("load projects: %v", err)
	}

	for _, u := range f.allUsers {
		filter := policy.VisibilityFilter(u, policy.ResourceProject)
		got, _, err := f.projects.List(ctx, filter, repository.ListQuery{PageSize: 100})
		if err != nil {
			t.Fatalf("list for %s: %v", u.Email, err)
		}
		gotIDs := ids(got, func(p *domain.Project) int64 { return p.ID })

		for i := range all {
			want := filter.AllowsProject(&all[i])
			if gotIDs[all[i].ID] != want {
				t.Errorf("user %s project %s: sql=%v predicate=%v", u.Email, all[i].Code, gotIDs[all[i].ID], want)
			}
		}
	}
}

func TestVisible_EmptyFilterReturnsNothing(t *testing.T) {
	f := newFixture(t)
	f.task(t, f.project(t, "A1", f.deptA), "anything", f.headNoSect.ID)

	filter := policy.VisibilityFilter(f.headNoSect, policy.ResourceTask)
	got, count, err := f.tasks.List(context.Background(), filter, repository.ListQuery{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if count != 0 || len(got) != 0 {
		t.Errorf("expected empty result, got %d tasks", count)
	}
}

func TestTaskRepository_CompletionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.project(t, "A1", f.deptA), "round trip")

	task.IsCompleted = true
	if err := f.tasks.Update(ctx, task, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, err := f.tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.CompletedDate == nil || stored.CompletionPercentage != 100 {
		t.Fatalf("expected completed date and 100%%, got %v / %d", stored.CompletedDate, stored.CompletionPercentage)
	}

	stored.IsCompleted = false
	if err := f.tasks.Update(ctx, stored, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	reopened, _ := f.tasks.GetByID(ctx, task.ID)
	if reopened.CompletedDate != nil {
		t.Errorf("expected completed date cleared, got %v", reopened.CompletedDate)
	}
}

func TestTaskRepository_UnknownAssigneeIsValidationError(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "A1", f.deptA)
	task := &domain.Task{Title: "x", ProjectID: p.ID, Status: domain.TaskTodo, Priority: 1, Complexity: 1,
		StartDate: time.Now(), DueDate: time.Now()}

	err := f.tasks.Create(context.Background(), task, []int64{f.memberA.ID, 9999})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["assigned_to"]; !ok {
		t.Errorf("expected assigned_to field error, got %v", verr.Fields)
	}
}

func TestTaskRepository_DeleteRemovesDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.project(t, "A1", f.deptA), "to delete", f.memberA.ID)

	if err := repository.NewCommentRepository(f.db).Create(ctx, &domain.TaskComment{TaskID: task.ID, UserID: f.memberA.ID, Comment: "hi"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := f.tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var comments int64
	f.db.Model(&domain.TaskComment{}).Count(&comments)
	if comments != 0 {
		t.Errorf("expected comments removed, got %d", comments)
	}
	if err := f.tasks.Delete(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound on second delete, got %v", err)
	}
}

func TestNotificationRepository_MarkAllReadIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n := &domain.Notification{UserID: f.memberA.ID, Type: domain.NotificationTaskAssigned, Title: "t", Message: "m"}
		if err := f.notes.Create(ctx, n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	for round := 1; round <= 2; round++ {
		if _, err := f.notes.MarkAllRead(ctx, f.memberA.ID); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		count, err := f.notes.UnreadCount(ctx, f.memberA.ID)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if count != 0 {
			t.Errorf("round %d: expected 0 unread, got %d", round, count)
		}
	}
}

func TestNotificationRepository_OtherUsersHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := &domain.Notification{UserID: f.memberA.ID, Type: domain.NotificationCommentAdded, Title: "t", Message: "m"}
	if err := f.notes.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	filter := policy.VisibilityFilter(f.memberB, policy.ResourceNotification)
	if _, err := f.notes.GetVisible(ctx, filter, n.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for other user, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	dup := &domain.User{Email: "mea@example.com", PasswordHash: "x", FirstName: "a", LastName: "b", Role: domain.RoleMember, IsActive: true}

	err := f.users.Create(context.Background(), dup, nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["email"] == "" {
		t.Fatalf("expected email validation error, got %v", err)
	}
}

func TestList_PaginationFiltersOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	director := policy.VisibilityFilter(f.director, policy.ResourceProject)

	for _, code := range []string{"P1", "P2", "P3"} {
		f.project(t, code, f.deptA)
	}
	f.project(t, "Q1", f.deptB)

	page, count, err := f.projects.List(ctx, director, repository.ListQuery{
		Page: 2, PageSize: 2, Ordering: "code",
		Filters: map[string]string{"department": strconv.FormatInt(f.deptA, 10)},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 projects in department, got %d", count)
	}
	if len(page) != 1 || page[0].Code != "P3" {
		t.Errorf("expected second page with P3, got %+v", page)
	}

	_, _, err = f.projects.List(ctx, director, repository.ListQuery{Filters: map[string]string{"priority": "high"}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error for bad filter, got %v", err)
	}

	found, _, err := f.projects.List(ctx, director, repository.ListQuery{Search: "project q"})
	if err != nil || len(found) != 1 || found[0].Code != "Q1" {
		t.Errorf("expected search to find Q1, got %+v (%v)", found, err)
	}
}
