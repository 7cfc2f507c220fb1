package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/notify"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/service"
	"github.com/project-tracker-api/internal/storage"
	"github.com/project-tracker-api/internal/testutil"
)

type env struct {
	db       *gorm.DB
	users    repository.UserRepository
	projects repository.ProjectRepository
	tasksRep repository.TaskRepository
	notes    repository.NotificationRepository
	postes   repository.PosteRepository
	sections repository.SectionRepository

	auth        service.AuthService
	userSvc     service.UserService
	sectionSvc  service.SectionService
	projectSvc  service.ProjectService
	taskSvc     service.TaskService
	comments    service.CommentService
	attachments service.AttachmentService
	dashboard   service.DashboardService

	dept     int64
	director *domain.User
	coord    *domain.User
	memberA  *domain.User
	memberB  *domain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &env{
		db:       db,
		users:    repository.NewUserRepository(db),
		projects: repository.NewProjectRepository(db),
		tasksRep: repository.NewTaskRepository(db),
		notes:    repository.NewNotificationRepository(db),
		postes:   repository.NewPosteRepository(db),
		sections: repository.NewSectionRepository(db),
	}
	depts := repository.NewDepartmentRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	files := storage.NewLocalStore(t.TempDir(), 1<<20)
	fanout := notify.NewFanout(e.notes, logger)
	activities := service.NewActivityService(repository.NewActivityRepository(db), logger)
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)

	e.auth = service.NewAuthService(e.users, repository.NewRevokedTokenRepository(db), tokens, logger)
	e.userSvc = service.NewUserService(e.users, activities, logger)
	e.sectionSvc = service.NewSectionService(e.sections, depts, e.users)
	e.projectSvc = service.NewProjectService(e.projects, depts, e.tasksRep, attachments, files, activities, logger)
	e.taskSvc = service.NewTaskService(e.tasksRep, e.projects, attachments, files, fanout, activities, logger)
	e.comments = service.NewCommentService(repository.NewCommentRepository(db), e.tasksRep, fanout)
	e.attachments = service.NewAttachmentService(attachments, e.tasksRep, files, logger)
	e.dashboard = service.NewDashboardService(repository.NewDashboardRepository(db), e.projects, e.tasksRep, e.users, depts, e.notes)

	d := &domain.Department{Name: "Operations", Code: "OPS"}
	if err := depts.Create(ctx, d); err != nil {
		t.Fatalf("create department: %v", err)
	}
	e.dept = d.ID

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	mk := func(email string, role domain.Role) *domain.User {
		u := &domain.User{Email: email, PasswordHash: hash, FirstName: strings.Split(email, "@")[0], LastName: "Test",
			Role: role, DepartmentID: &e.dept, IsActive: true}
		if err := e.users.Create(ctx, u, nil); err != nil {
			t.Fatalf("create user %s: %v", email, err)
		}
		return u
	}
	e.director = mk("director@example.com", domain.RoleDirector)
	e.coord = mk("coord@example.com", domain.RoleCoordinator)
	e.memberA = mk("alice@example.com", domain.RoleMember)
	e.memberB = mk("bob@example.com", domain.RoleMember)
	return e
}

func (e *env) project(t *testing.T, code string) *service.ProjectView {
	t.Helper()
	p, err := e.projectSvc.Create(context.Background(), e.director, &dto.CreateProjectRequest{
		Name: "Project " + code, Code: code, DepartmentID: e.dept,
		StartDate: "2026-01-01", EndDate: "2026-12-31",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (e *env) task(t *testing.T, actor *domain.User, projectID int64, title string, assignees ...int64) *domain.Task {
	t.Helper()
	now := time.Now().UTC()
	task, err := e.taskSvc.Create(context.Background(), actor, &dto.CreateTaskRequest{
		Title:      title,
		ProjectID:  projectID,
		StartDate:  now.Format(time.RFC3339),
		DueDate:    now.Add(72 * time.Hour).Format(time.RFC3339),
		AssignedTo: assignees,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (e *env) notifications(t *testing.T, u *domain.User) []domain.Notification {
	t.Helper()
	list, err := e.notes.Recent(context.Background(), u.ID, false, 100)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return list
}

func TestTaskCreate_NotifiesEachAssignee(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")

	task := e.task(t, e.director, p.Project.ID, "Write report", e.memberA.ID, e.memberB.ID)
	if len(task.Assignees) != 2 {
		t.Fatalf("expected 2 assignees, got %d", len(task.Assignees))
	}

	for _, u := range []*domain.User{e.memberA, e.memberB} {
		list := e.notifications(t, u)
		if len(list) != 1 {
			t.Fatalf("expected 1 notification for %s, got %d", u.Email, len(list))
		}
		if list[0].Type != domain.NotificationTaskAssigned {
			t.Errorf("expected task_assigned, got %s", list[0].Type)
		}
		if list[0].TaskID == nil || *list[0].TaskID != task.ID {
			t.Errorf("expected notification to reference task %d", task.ID)
		}
	}
	if got := e.notifications(t, e.director); len(got) != 0 {
		t.Errorf("expected creator to get no notification, got %d", len(got))
	}
}

func TestUpdateStatus_DoneCompletesAndNotifiesCreator(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.coord, p.Project.ID, "Ship it", e.memberA.ID)

	updated, err := e.taskSvc.UpdateStatus(context.Background(), e.memberA, task.ID, &dto.TaskStatusRequest{Status: "done"})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !updated.IsCompleted || updated.CompletedDate == nil {
		t.Fatalf("expected task completed with date, got completed=%v date=%v", updated.IsCompleted, updated.CompletedDate)
	}
	if updated.CompletionPercentage != 100 {
		t.Errorf("expected 100%%, got %d", updated.CompletionPercentage)
	}

	list := e.notifications(t, e.coord)
	if len(list) != 1 || list[0].Type != domain.NotificationTaskCompleted {
		t.Fatalf("expected one task_completed notification for creator, got %+v", list)
	}
}

func TestUpdateStatus_NonAssigneeCannotComplete(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Shared", e.memberA.ID)

	// memberB видит задачу только как исполнитель, поэтому получает 404
	_, err := e.taskSvc.UpdateStatus(context.Background(), e.memberB, task.ID, &dto.TaskStatusRequest{Status: "done"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectCreate_MemberForbidden(t *testing.T) {
	e := newEnv(t)

	_, err := e.projectSvc.Create(context.Background(), e.memberA, &dto.CreateProjectRequest{
		Name: "Rogue", Code: "RG", DepartmentID: e.dept, StartDate: "2026-01-01", EndDate: "2026-02-01",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestProjectCreate_Validation(t *testing.T) {
	e := newEnv(t)
	e.project(t, "DUP")

	_, err := e.projectSvc.Create(context.Background(), e.director, &dto.CreateProjectRequest{
		Name: "Again", Code: "DUP", DepartmentID: 9999, StartDate: "2026-03-01", EndDate: "2026-02-01",
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"code", "department_id", "end_date"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Errorf("expected error for %s, got %v", f, verr.Fields)
		}
	}
}

func TestTaskGet_InvisibleIsNotFound(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Private", e.memberB.ID)

	if _, err := e.taskSvc.Get(context.Background(), e.memberA, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for member, got %v", err)
	}
	if _, err := e.projectSvc.Get(context.Background(), e.memberA, p.Project.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected project not found for member, got %v", err)
	}
	if _, err := e.taskSvc.Get(context.Background(), e.memberB, task.ID); err != nil {
		t.Fatalf("expected assignee to see task, got %v", err)
	}
}

func TestTaskList_MemberWithoutAssignmentsIsEmpty(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	e.task(t, e.director, p.Project.ID, "Someone else's", e.memberB.ID)

	tasks, count, err := e.taskSvc.List(context.Background(), e.memberA, repository.ListQuery{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if count != 0 || len(tasks) != 0 {
		t.Fatalf("expected empty list, got %d (%d)", len(tasks), count)
	}
}

func TestAssign_NotifiesOnlyNewAssignees(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Grow", e.memberA.ID)

	updated, err := e.taskSvc.Assign(context.Background(), e.director, task.ID, &dto.AssignTaskRequest{
		UserIDs: []int64{e.memberA.ID, e.memberB.ID},
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(updated.Assignees) != 2 {
		t.Fatalf("expected 2 assignees, got %d", len(updated.Assignees))
	}

	if got := len(e.notifications(t, e.memberA)); got != 1 {
		t.Errorf("expected existing assignee to keep 1 notification, got %d", got)
	}
	if got := len(e.notifications(t, e.memberB)); got != 1 {
		t.Errorf("expected new assignee to get 1 notification, got %d", got)
	}
}

func TestAssign_UnknownUserIsValidationError(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Grow")

	_, err := e.taskSvc.Assign(context.Background(), e.director, task.ID, &dto.AssignTaskRequest{UserIDs: []int64{424242}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func ref[T any](v T) *T { return &v }

// withoutValidation выдаёт координатору должность без права проверять задачи
func (e *env) withoutValidation(t *testing.T, u *domain.User) *domain.User {
	t.Helper()
	ctx := context.Background()
	poste := &domain.Poste{Title: "Planner", Code: "PLN", IsActive: true, CanValidateTasks: new(bool)}
	if err := e.postes.Create(ctx, poste); err != nil {
		t.Fatalf("create poste: %v", err)
	}
	u.PosteID = &poste.ID
	if err := e.users.Update(ctx, u, nil); err != nil {
		t.Fatalf("update user: %v", err)
	}
	loaded, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return loaded
}

func TestTaskUpdate_CompletionNeedsValidateRightOrAssignment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.project(t, "P1")
	coord := e.withoutValidation(t, e.coord)

	tests := []struct {
		name string
		req  *dto.UpdateTaskRequest
	}{
		{"status done", &dto.UpdateTaskRequest{Status: ref("done")}},
		{"is_completed", &dto.UpdateTaskRequest{IsCompleted: ref(true)}},
		{"both", &dto.UpdateTaskRequest{Status: ref("done"), IsCompleted: ref(true)}},
		{"self assignment", &dto.UpdateTaskRequest{Status: ref("done"), AssignedTo: []int64{coord.ID}}},
	}
	for _, tt := range tests {
		task := e.task(t, e.director, p.Project.ID, "Close "+tt.name, e.memberA.ID)

		if _, err := e.taskSvc.Update(ctx, coord, task.ID, tt.req); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("%s: expected forbidden, got %v", tt.name, err)
		}
		stored, err := e.tasksRep.GetByID(ctx, task.ID)
		if err != nil {
			t.Fatalf("%s: get task: %v", tt.name, err)
		}
		if stored.IsCompleted || stored.Status == domain.TaskDone {
			t.Errorf("%s: expected task left open, got %s completed=%v", tt.name, stored.Status, stored.IsCompleted)
		}
		if len(stored.Assignees) != 1 || stored.Assignees[0].ID != e.memberA.ID {
			t.Errorf("%s: expected assignees unchanged, got %d", tt.name, len(stored.Assignees))
		}
	}

	// правка без завершения координатору по-прежнему доступна
	task := e.task(t, e.director, p.Project.ID, "Rename me", e.memberA.ID)
	if _, err := e.taskSvc.Update(ctx, coord, task.ID, &dto.UpdateTaskRequest{Title: ref("Renamed")}); err != nil {
		t.Fatalf("expected plain update to pass, got %v", err)
	}

	// исполнитель завершает задачу, создатель получает уведомление
	done, err := e.taskSvc.Update(ctx, e.memberA, task.ID, &dto.UpdateTaskRequest{Status: ref("done")})
	if err != nil {
		t.Fatalf("expected assignee to complete task, got %v", err)
	}
	if done.Status != domain.TaskDone {
		t.Errorf("expected status %s, got %s", domain.TaskDone, done.Status)
	}
	var completed int
	for _, n := range e.notifications(t, e.director) {
		if n.Type == domain.NotificationTaskCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("expected %d completion notification, got %d", 1, completed)
	}
}

func TestTaskUpdate_UnknownAssigneeKeepsFields(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Original", e.memberA.ID)

	_, err := e.taskSvc.Update(ctx, e.director, task.ID, &dto.UpdateTaskRequest{
		Title:      ref("Changed"),
		Priority:   ref(5),
		AssignedTo: []int64{999999},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["assigned_to"]; !ok {
		t.Errorf("expected assigned_to field error, got %v", verr.Fields)
	}

	stored, err := e.tasksRep.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if stored.Title != "Original" {
		t.Errorf("expected title %q, got %q", "Original", stored.Title)
	}
	if stored.Priority != task.Priority {
		t.Errorf("expected priority %d, got %d", task.Priority, stored.Priority)
	}
	if len(stored.Assignees) != 1 || stored.Assignees[0].ID != e.memberA.ID {
		t.Errorf("expected assignees unchanged, got %d", len(stored.Assignees))
	}

	updated, err := e.taskSvc.Update(ctx, e.director, task.ID, &dto.UpdateTaskRequest{
		Title:      ref("Changed"),
		AssignedTo: []int64{e.memberA.ID, e.memberB.ID},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Changed" || len(updated.Assignees) != 2 {
		t.Errorf("expected title and assignees saved, got %q with %d", updated.Title, len(updated.Assignees))
	}
	if got := len(e.notifications(t, e.memberA)); got != 1 {
		t.Errorf("expected existing assignee to keep %d notification, got %d", 1, got)
	}
	if got := len(e.notifications(t, e.memberB)); got != 1 {
		t.Errorf("expected new assignee to get %d notification, got %d", 1, got)
	}
}

func TestValidate(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Review", e.memberA.ID)
	ctx := context.Background()

	if _, err := e.taskSvc.Validate(ctx, e.memberA, task.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for member, got %v", err)
	}

	validated, err := e.taskSvc.Validate(ctx, e.coord, task.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Status != domain.TaskDone || !validated.IsCompleted {
		t.Fatalf("expected done and completed, got %s %v", validated.Status, validated.IsCompleted)
	}

	var completed int
	for _, n := range e.notifications(t, e.memberA) {
		if n.Type == domain.NotificationTaskCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("expected assignee to get a validation notification, got %d", completed)
	}
}

func TestComment_SkipsAuthor(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Discuss", e.memberA.ID, e.memberB.ID)
	ctx := context.Background()

	c, err := e.comments.Create(ctx, e.memberA, &dto.CommentRequest{TaskID: task.ID, Comment: "On it"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	count := func(u *domain.User) int {
		var n int
		for _, note := range e.notifications(t, u) {
			if note.Type == domain.NotificationCommentAdded {
				n++
			}
		}
		return n
	}
	if got := count(e.memberA); got != 0 {
		t.Errorf("expected author to get no comment notification, got %d", got)
	}
	if got := count(e.memberB); got != 1 {
		t.Errorf("expected other assignee to get 1 comment notification, got %d", got)
	}

	if _, err := e.comments.Update(ctx, e.memberB, c.ID, &dto.UpdateCommentRequest{Comment: "edit"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden for non-author edit, got %v", err)
	}
	if _, err := e.comments.Update(ctx, e.director, c.ID, &dto.UpdateCommentRequest{Comment: "edit"}); err != nil {
		t.Errorf("expected director to edit, got %v", err)
	}
}

func TestComment_InvisibleTaskIsValidationError(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Hidden", e.memberB.ID)

	_, err := e.comments.Create(context.Background(), e.memberA, &dto.CommentRequest{TaskID: task.ID, Comment: "hi"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["task"]; !ok {
		t.Errorf("expected task field error, got %v", verr.Fields)
	}
}

func TestAttachment_UploadOpenDelete(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Docs", e.memberA.ID)
	ctx := context.Background()

	a, err := e.attachments.Create(ctx, e.memberA, task.ID, "notes.txt", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if a.FileSize != int64(len("hello world")) {
		t.Errorf("expected size %d, got %d", len("hello world"), a.FileSize)
	}

	_, f, err := e.attachments.Open(ctx, e.memberA, a.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(f)
	f.Close()
	if string(body) != "hello world" {
		t.Errorf("unexpected content %q", body)
	}

	if err := e.attachments.Delete(ctx, e.memberB, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for invisible attachment, got %v", err)
	}
	if err := e.attachments.Delete(ctx, e.memberA, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := e.attachments.Open(ctx, e.memberA, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestProjectDelete_RemovesTasks(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	task := e.task(t, e.director, p.Project.ID, "Gone", e.memberA.ID)
	ctx := context.Background()

	if err := e.projectSvc.Delete(ctx, e.director, p.Project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := e.tasksRep.GetByID(ctx, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected task removed with project, got %v", err)
	}
}

func TestKanban_GroupsByStatus(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	ctx := context.Background()
	todo := e.task(t, e.director, p.Project.ID, "Todo", e.memberA.ID)
	done := e.task(t, e.director, p.Project.ID, "Done", e.memberA.ID)
	if _, err := e.taskSvc.UpdateStatus(ctx, e.director, done.ID, &dto.TaskStatusRequest{Status: "done"}); err != nil {
		t.Fatalf("update status: %v", err)
	}

	board, err := e.projectSvc.Kanban(ctx, e.memberA, p.Project.ID)
	if err != nil {
		t.Fatalf("kanban: %v", err)
	}
	if len(board[domain.TaskTodo]) != 1 || board[domain.TaskTodo][0].ID != todo.ID {
		t.Errorf("unexpected todo column: %+v", board[domain.TaskTodo])
	}
	if len(board[domain.TaskDone]) != 1 || board[domain.TaskDone][0].ID != done.ID {
		t.Errorf("unexpected done column: %+v", board[domain.TaskDone])
	}
	if board[domain.TaskBlocked] == nil {
		t.Error("expected empty columns to be present")
	}
}

func TestAuth_LoginRefreshLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, _, err := e.auth.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	u, pair, err := e.auth.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != e.memberA.ID || u.LastLogin == nil {
		t.Errorf("expected alice with last login set, got %d %v", u.ID, u.LastLogin)
	}

	who, err := e.auth.Authenticate(ctx, pair.Access)
	if err != nil || who.ID != e.memberA.ID {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := e.auth.Authenticate(ctx, pair.Refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected refresh token rejected as access, got %v", err)
	}

	access, err := e.auth.Refresh(ctx, pair.Refresh)
	if err != nil || access == "" {
		t.Fatalf("refresh: %v", err)
	}

	if err := e.auth.Logout(ctx, pair.Refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := e.auth.Refresh(ctx, pair.Refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected revoked refresh to fail, got %v", err)
	}
}

func TestDashboardStats_ByRole(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	e.task(t, e.director, p.Project.ID, "One", e.memberA.ID)
	e.task(t, e.director, p.Project.ID, "Two", e.memberB.ID)
	ctx := context.Background()

	dir, err := e.dashboard.Stats(ctx, e.director)
	if err != nil {
		t.Fatalf("director stats: %v", err)
	}
	if dir.Tasks.Total != 2 || dir.Projects.Total != 1 {
		t.Errorf("expected 2 tasks and 1 project, got %d and %d", dir.Tasks.Total, dir.Projects.Total)
	}
	if dir.TeamPerformance == nil || dir.TeamPerformance.TeamTasks != 2 {
		t.Errorf("expected team performance with 2 tasks, got %+v", dir.TeamPerformance)
	}
	if len(dir.DepartmentStats) != 1 {
		t.Errorf("expected department stats for director, got %d", len(dir.DepartmentStats))
	}

	mem, err := e.dashboard.Stats(ctx, e.memberA)
	if err != nil {
		t.Fatalf("member stats: %v", err)
	}
	if mem.Tasks.Total != 1 {
		t.Errorf("expected member to see 1 task, got %d", mem.Tasks.Total)
	}
	if mem.Notifications.Unread != 1 {
		t.Errorf("expected 1 unread notification, got %d", mem.Notifications.Unread)
	}
	if mem.TeamPerformance != nil || mem.DepartmentStats != nil {
		t.Error("expected no team or department stats for member")
	}
}

func TestDashboardCharts(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "P1")
	e.task(t, e.director, p.Project.ID, "One", e.memberA.ID)

	charts, err := e.dashboard.Charts(context.Background(), e.director)
	if err != nil {
		t.Fatalf("charts: %v", err)
	}
	if len(charts.TasksTimeline) != service.ChartDays {
		t.Fatalf("expected %d timeline points, got %d", service.ChartDays, len(charts.TasksTimeline))
	}
	last := charts.TasksTimeline[len(charts.TasksTimeline)-1]
	if last.Created != 1 {
		t.Errorf("expected 1 task created today, got %d", last.Created)
	}
	if len(charts.TasksByProject) != 1 || charts.TasksByProject[0].TaskCount != 1 {
		t.Errorf("unexpected tasks by project: %+v", charts.TasksByProject)
	}
}
