package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/handler"
	"github.com/project-tracker-api/internal/notify"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/service"
	"github.com/project-tracker-api/internal/storage"
	"github.com/project-tracker-api/internal/testutil"
)

const testPassword = "secret123"

type testServer struct {
	server *httptest.Server
	dept   int64
	users  map[string]*domain.User
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db := testutil.NewTestDB(t)

	users := repository.NewUserRepository(db)
	depts := repository.NewDepartmentRepository(db)
	sections := repository.NewSectionRepository(db)
	projects := repository.NewProjectRepository(db)
	tasks := repository.NewTaskRepository(db)
	comments := repository.NewCommentRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	notes := repository.NewNotificationRepository(db)

	files := storage.NewLocalStore(t.TempDir(), 1<<20)
	fanout := notify.NewFanout(notes, logger)
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	activities := service.NewActivityService(repository.NewActivityRepository(db), logger)
	authService := service.NewAuthService(users, repository.NewRevokedTokenRepository(db), tokens, logger)

	h := handler.Handlers{
		Auth:        handler.NewAuthHandler(authService, logger),
		Users:       handler.NewUserHandler(service.NewUserService(users, activities, logger), logger),
		Postes:      handler.NewPosteHandler(service.NewPosteService(repository.NewPosteRepository(db)), logger),
		Departments: handler.NewDepartmentHandler(service.NewDepartmentService(depts, users), logger),
		Sections:    handler.NewSectionHandler(service.NewSectionService(sections, depts, users), logger),
		Competences: handler.NewCompetenceHandler(service.NewCompetenceService(repository.NewCompetenceRepository(db)), logger),
		Activities:  handler.NewActivityHandler(activities, logger),
		Projects: handler.NewProjectHandler(
			service.NewProjectService(projects, depts, tasks, attachments, files, activities, logger), logger),
		Tasks: handler.NewTaskHandler(
			service.NewTaskService(tasks, projects, attachments, files, fanout, activities, logger), logger),
		Comments:      handler.NewCommentHandler(service.NewCommentService(comments, tasks, fanout), logger),
		Attachments:   handler.NewAttachmentHandler(service.NewAttachmentService(attachments, tasks, files, logger), 1<<20, logger),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notes), logger),
		Dashboard: handler.NewDashboardHandler(
			service.NewDashboardService(repository.NewDashboardRepository(db), projects, tasks, users, depts, notes), logger),
	}
	router := handler.NewRouter(h, authService, nil, logger)

	ts := &testServer{users: make(map[string]*domain.User)}
	d := &domain.Department{Name: "Operations", Code: "OPS"}
	if err := depts.Create(ctx, d); err != nil {
		t.Fatalf("create department: %v", err)
	}
	ts.dept = d.ID

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	for _, u := range []struct {
		name string
		role domain.Role
		dept *int64
	}{
		{"director", domain.RoleDirector, nil},
		{"coord", domain.RoleCoordinator, &ts.dept},
		{"head", domain.RoleSectionHead, nil},
		{"alice", domain.RoleMember, nil},
		{"bob", domain.RoleMember, nil},
		{"carol", domain.RoleMember, nil},
	} {
		user := &domain.User{Email: u.name + "@example.com", PasswordHash: hash, FirstName: u.name, LastName: "Test",
			Role: u.role, DepartmentID: u.dept, IsActive: true}
		if err := users.Create(ctx, user, nil); err != nil {
			t.Fatalf("create user %s: %v", u.name, err)
		}
		ts.users[u.name] = user
	}

	ts.server = httptest.NewServer(router.Setup())
	t.Cleanup(ts.server.Close)
	return ts
}

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
	Count   int64             `json:"count"`
	Next    *int              `json:"next"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		json.NewDecoder(resp.Body).Decode(&env)
	}
	return resp.StatusCode, env
}

func (ts *testServer) login(t *testing.T, name string) string {
	t.Helper()
	status, env := ts.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": name + "@example.com", "password": testPassword,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", name, status, env.Message)
	}
	var tokens struct {
		Access string `json:"access"`
	}
	json.Unmarshal(env.Data, &tokens)
	return tokens.Access
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
	return v
}

type idObject struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedDate *time.Time `json:"completed_date"`
}

func (ts *testServer) createProject(t *testing.T, token, code string) idObject {
	t.Helper()
	status, env := ts.do(t, http.MethodPost, "/projects", token, map[string]any{
		"name": "Project " + code, "code": code, "department_id": ts.dept,
		"start_date": "2026-01-01", "end_date": "2026-12-31",
	})
	if status != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d (%v)", status, env.Errors)
	}
	return decodeData[idObject](t, env)
}

func (ts *testServer) createTask(t *testing.T, token string, projectID int64, assignees ...int64) idObject {
	t.Helper()
	now := time.Now().UTC()
	status, env := ts.do(t, http.MethodPost, "/tasks", token, map[string]any{
		"title": "Task", "project": projectID,
		"start_date":  now.Format(time.RFC3339),
		"due_date":    now.Add(48 * time.Hour).Format(time.RFC3339),
		"assigned_to": assignees,
	})
	if status != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d (%v %s)", status, env.Errors, env.Message)
	}
	return decodeData[idObject](t, env)
}

func (ts *testServer) unread(t *testing.T, token string) int64 {
	t.Helper()
	status, env := ts.do(t, http.MethodGet, "/notifications/unread-count", token, nil)
	if status != http.StatusOK {
		t.Fatalf("unread count: expected 200, got %d", status)
	}
	return decodeData[map[string]int64](t, env)["unread_count"]
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestUnauthenticated(t *testing.T) {
	ts := setupTestServer(t)

	for _, token := range []string{"", "garbage"} {
		status, env := ts.do(t, http.MethodGet, "/projects", token, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("token %q: expected %d, got %d", token, http.StatusUnauthorized, status)
		}
		if env.Status != "error" {
			t.Errorf("token %q: expected error envelope, got %q", token, env.Status)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := setupTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("expected %d, got %d", http.StatusUnauthorized, status)
	}
	if env.Status != "error" {
		t.Errorf("expected error envelope, got %q", env.Status)
	}
}

func TestLogin_Validation(t *testing.T) {
	ts := setupTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "not-an-email"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, status)
	}
	for _, f := range []string{"email", "password"} {
		if _, ok := env.Errors[f]; !ok {
			t.Errorf("expected error for %s, got %v", f, env.Errors)
		}
	}
}

func TestRefreshAndLogout(t *testing.T) {
	ts := setupTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": testPassword,
	})
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", status)
	}
	pair := decodeData[struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		User    struct {
			Email string `json:"email"`
		} `json:"user"`
	}](t, env)
	if pair.User.Email != "alice@example.com" {
		t.Errorf("expected profile in login response, got %q", pair.User.Email)
	}

	status, env = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{"refresh": pair.Refresh})
	if status != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", status)
	}
	access := decodeData[map[string]string](t, env)["access"]
	if status, _ := ts.do(t, http.MethodGet, "/auth/me", access, nil); status != http.StatusOK {
		t.Errorf("me with refreshed token: expected 200, got %d", status)
	}

	if status, _ := ts.do(t, http.MethodPost, "/auth/logout", pair.Access, map[string]any{"refresh": pair.Refresh}); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}
	if status, _ := ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{"refresh": pair.Refresh}); status != http.StatusUnauthorized {
		t.Errorf("refresh after logout: expected 401, got %d", status)
	}
}

func TestUpdateMe(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.login(t, "alice")

	status, env := ts.do(t, http.MethodPut, "/auth/me", token, map[string]any{"city": "Lyon", "theme_preference": "dark"})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, env.Errors)
	}
	me := decodeData[struct {
		City  string `json:"city"`
		Theme string `json:"theme_preference"`
	}](t, env)
	if me.City != "Lyon" || me.Theme != "dark" {
		t.Errorf("unexpected profile: %+v", me)
	}

	status, _ = ts.do(t, http.MethodPut, "/auth/me", token, map[string]any{"theme_preference": "neon"})
	if status != http.StatusBadRequest {
		t.Errorf("expected %d for bad theme, got %d", http.StatusBadRequest, status)
	}
}

// Директор создаёт проект; участник без задач в нём получает 404.
func TestProject_CreateAndHiddenFromMember(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")

	p := ts.createProject(t, director, "X1")
	if p.Status != "planning" {
		t.Errorf("expected default status planning, got %q", p.Status)
	}

	status, env := ts.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", p.ID), ts.login(t, "alice"), nil)
	if status != http.StatusNotFound {
		t.Errorf("expected %d, got %d", http.StatusNotFound, status)
	}
	if env.Status != "error" {
		t.Errorf("expected error envelope, got %q", env.Status)
	}
}

// Координатор создаёт задачу на двоих: ровно два уведомления task_assigned.
func TestTask_CreateNotifiesAssignees(t *testing.T) {
	ts := setupTestServer(t)
	coord := ts.login(t, "coord")
	p := ts.createProject(t, ts.login(t, "director"), "P1")

	task := ts.createTask(t, coord, p.ID, ts.users["alice"].ID, ts.users["bob"].ID)

	for _, name := range []string{"alice", "bob"} {
		status, env := ts.do(t, http.MethodGet, "/notifications", ts.login(t, name), nil)
		if status != http.StatusOK {
			t.Fatalf("list notifications: expected 200, got %d", status)
		}
		list := decodeData[[]struct {
			Type   string `json:"notification_type"`
			TaskID *int64 `json:"task_id"`
		}](t, env)
		if env.Count != 1 || len(list) != 1 {
			t.Fatalf("%s: expected 1 notification, got %d", name, env.Count)
		}
		if list[0].Type != "task_assigned" || list[0].TaskID == nil || *list[0].TaskID != task.ID {
			t.Errorf("%s: unexpected notification %+v", name, list[0])
		}
	}
	if got := ts.unread(t, ts.login(t, "carol")); got != 0 {
		t.Errorf("expected no notification for unassigned user, got %d", got)
	}
}

// Исполнитель переводит задачу в done: задача завершена, автор уведомлён.
func TestTask_StatusDone(t *testing.T) {
	ts := setupTestServer(t)
	coord := ts.login(t, "coord")
	p := ts.createProject(t, ts.login(t, "director"), "P1")
	task := ts.createTask(t, coord, p.ID, ts.users["alice"].ID)

	status, env := ts.do(t, http.MethodPut, fmt.Sprintf("/tasks/%d/status", task.ID), ts.login(t, "alice"),
		map[string]any{"status": "done"})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, env.Message)
	}
	got := decodeData[idObject](t, env)
	if !got.IsCompleted || got.CompletedDate == nil {
		t.Errorf("expected completed task with date, got %+v", got)
	}
	if n := ts.unread(t, coord); n != 1 {
		t.Errorf("expected creator to have 1 unread notification, got %d", n)
	}
}

func TestProject_MemberCannotCreate(t *testing.T) {
	ts := setupTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/projects", ts.login(t, "alice"), map[string]any{
		"name": "Rogue", "code": "RG", "department_id": ts.dept,
		"start_date": "2026-01-01", "end_date": "2026-02-01",
	})
	if status != http.StatusForbidden {
		t.Errorf("expected %d, got %d", http.StatusForbidden, status)
	}
	if env.Status != "error" {
		t.Errorf("expected error envelope, got %q", env.Status)
	}
}

// Руководитель секции без секции получает пустой список, а не ошибку.
func TestTask_SectionHeadWithoutSectionSeesNothing(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	ts.createTask(t, director, p.ID, ts.users["alice"].ID)

	status, env := ts.do(t, http.MethodGet, "/tasks", ts.login(t, "head"), nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	list := decodeData[[]idObject](t, env)
	if env.Count != 0 || len(list) != 0 {
		t.Errorf("expected empty list, got %d items", len(list))
	}
}

func TestProject_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/projects", ts.login(t, "director"), map[string]any{
		"code": "X1", "department_id": ts.dept, "start_date": "01/01/2026", "end_date": "2026-02-01", "priority": 9,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, status)
	}
	for _, f := range []string{"name", "start_date", "priority"} {
		if _, ok := env.Errors[f]; !ok {
			t.Errorf("expected error for %s, got %v", f, env.Errors)
		}
	}
}

func TestTask_AssignUnknownUser(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	task := ts.createTask(t, director, p.ID)

	status, env := ts.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/assign", task.ID), director,
		map[string]any{"user_ids": []int64{987654}})
	if status != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, status)
	}
	if _, ok := env.Errors["assigned_to"]; !ok {
		t.Errorf("expected assigned_to error, got %v", env.Errors)
	}
}

func TestNotifications_MarkAllReadIdempotent(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	ts.createTask(t, director, p.ID, ts.users["alice"].ID)
	ts.createTask(t, director, p.ID, ts.users["alice"].ID)

	alice := ts.login(t, "alice")
	if n := ts.unread(t, alice); n != 2 {
		t.Fatalf("expected 2 unread, got %d", n)
	}
	for i := 0; i < 2; i++ {
		if status, _ := ts.do(t, http.MethodPost, "/notifications/mark-all-read", alice, nil); status != http.StatusOK {
			t.Fatalf("mark all read: expected 200, got %d", status)
		}
		if n := ts.unread(t, alice); n != 0 {
			t.Errorf("pass %d: expected 0 unread, got %d", i+1, n)
		}
	}
}

func TestNotifications_OtherUsersAreHidden(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	ts.createTask(t, director, p.ID, ts.users["alice"].ID)

	_, env := ts.do(t, http.MethodGet, "/notifications", ts.login(t, "alice"), nil)
	list := decodeData[[]idObject](t, env)
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}

	status, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/notifications/%d/mark-read", list[0].ID), ts.login(t, "bob"), nil)
	if status != http.StatusNotFound {
		t.Errorf("expected %d, got %d", http.StatusNotFound, status)
	}
}

func TestList_Pagination(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	for i := range 3 {
		ts.createProject(t, director, fmt.Sprintf("PG%d", i))
	}

	status, env := ts.do(t, http.MethodGet, "/projects?page_size=2", director, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if env.Count != 3 || env.Next == nil || *env.Next != 2 {
		t.Errorf("expected count 3 and next page 2, got %d %v", env.Count, env.Next)
	}
	if list := decodeData[[]idObject](t, env); len(list) != 2 {
		t.Errorf("expected 2 items on first page, got %d", len(list))
	}
}

func TestAttachment_UploadAndDownload(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	task := ts.createTask(t, director, p.ID, ts.users["alice"].ID)
	alice := ts.login(t, "alice")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("task", fmt.Sprint(task.ID))
	fw, _ := mw.CreateFormFile("file", "report.txt")
	fw.Write([]byte("quarterly numbers"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.server.URL+"/task-attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	var env envelope
	json.NewDecoder(resp.Body).Decode(&env)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, env.Errors)
	}
	att := decodeData[struct {
		ID          int64  `json:"id"`
		Filename    string `json:"filename"`
		FileSize    int64  `json:"file_size"`
		SizeDisplay string `json:"file_size_display"`
		DownloadURL string `json:"download_url"`
	}](t, env)
	if att.Filename != "report.txt" || att.FileSize != int64(len("quarterly numbers")) {
		t.Errorf("unexpected attachment: %+v", att)
	}
	if att.SizeDisplay != "17 B" {
		t.Errorf("expected humanized size 17 B, got %q", att.SizeDisplay)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.server.URL+att.DownloadURL, nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	content, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(content) != "quarterly numbers" {
		t.Errorf("unexpected download: %d %q", resp.StatusCode, content)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.server.URL+att.DownloadURL, nil)
	req.Header.Set("Authorization", "Bearer "+ts.login(t, "bob"))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected %d for invisible attachment, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestDashboard_RoleShapes(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	ts.createTask(t, director, p.ID, ts.users["alice"].ID)

	_, env := ts.do(t, http.MethodGet, "/dashboard/stats", director, nil)
	stats := decodeData[map[string]json.RawMessage](t, env)
	for _, key := range []string{"projects", "tasks", "users", "notifications", "team_performance", "department_stats"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("director: expected %s in stats", key)
		}
	}

	_, env = ts.do(t, http.MethodGet, "/dashboard/stats", ts.login(t, "alice"), nil)
	stats = decodeData[map[string]json.RawMessage](t, env)
	for _, key := range []string{"team_performance", "department_stats"} {
		if _, ok := stats[key]; ok {
			t.Errorf("member: unexpected %s in stats", key)
		}
	}

	status, env := ts.do(t, http.MethodGet, "/dashboard/activities?limit=5", director, nil)
	if status != http.StatusOK {
		t.Fatalf("activities: expected 200, got %d", status)
	}
	if items := decodeData[[]map[string]any](t, env); len(items) == 0 {
		t.Error("expected recent project in activity feed")
	}
}

func TestDepartmentStats_ObjectScope(t *testing.T) {
	ts := setupTestServer(t)

	status, _ := ts.do(t, http.MethodGet, fmt.Sprintf("/departments/%d/stats", ts.dept), ts.login(t, "coord"), nil)
	if status != http.StatusOK {
		t.Errorf("coordinator of department: expected 200, got %d", status)
	}
	status, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/departments/%d/stats", ts.dept), ts.login(t, "alice"), nil)
	if status != http.StatusForbidden {
		t.Errorf("member: expected 403, got %d", status)
	}
}

func userPayload(email string) map[string]any {
	return map[string]any{
		"email": email, "password": "password123", "first_name": "New", "last_name": "User", "role": "member",
	}
}

func TestUsers_CreatePermissions(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		actor string
		want  int
	}{
		{"alice", http.StatusForbidden},
		{"head", http.StatusForbidden},
		{"coord", http.StatusCreated},
		{"director", http.StatusCreated},
	}
	for _, tt := range tests {
		status, env := ts.do(t, http.MethodPost, "/users", ts.login(t, tt.actor), userPayload("by-"+tt.actor+"@example.com"))
		if status != tt.want {
			t.Errorf("%s: expected %d, got %d (%s)", tt.actor, tt.want, status, env.Message)
		}
	}
}

func TestUsers_UnknownReferences(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")

	for _, field := range []string{"department_id", "section_id", "poste_id"} {
		body := userPayload(field + "@example.com")
		body[field] = 999999

		status, env := ts.do(t, http.MethodPost, "/users", director, body)
		if status != http.StatusBadRequest {
			t.Errorf("%s: expected %d, got %d", field, http.StatusBadRequest, status)
		}
		if _, ok := env.Errors[field]; !ok {
			t.Errorf("%s: expected field error, got %v", field, env.Errors)
		}
	}

	status, env := ts.do(t, http.MethodGet, "/users", director, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if env.Count != int64(len(ts.users)) {
		t.Errorf("expected %d, got %d", len(ts.users), env.Count)
	}
}

func TestUsers_AndSectionsVisibility(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")

	var sections []int64
	for _, code := range []string{"S1", "S2"} {
		status, env := ts.do(t, http.MethodPost, "/sections", director, map[string]any{
			"name": "Section " + code, "code": code, "department_id": ts.dept,
		})
		if status != http.StatusCreated {
			t.Fatalf("create section: expected 201, got %d (%v)", status, env.Errors)
		}
		sections = append(sections, decodeData[idObject](t, env).ID)
	}
	for name, section := range map[string]int64{"head": sections[0], "alice": sections[0], "bob": sections[1]} {
		status, env := ts.do(t, http.MethodPatch, fmt.Sprintf("/users/%d", ts.users[name].ID), director,
			map[string]any{"section_id": section})
		if status != http.StatusOK {
			t.Fatalf("move %s: expected 200, got %d (%v)", name, status, env.Errors)
		}
	}

	tests := []struct {
		actor    string
		users    int64
		sections int64
	}{
		{"director", int64(len(ts.users)), 2},
		{"coord", int64(len(ts.users)), 2},
		{"head", 2, 1},
		{"carol", 1, 2},
	}
	for _, tt := range tests {
		token := ts.login(t, tt.actor)

		status, env := ts.do(t, http.MethodGet, "/users", token, nil)
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.actor, status)
		}
		if env.Count != tt.users {
			t.Errorf("%s users: expected %d, got %d", tt.actor, tt.users, env.Count)
		}

		status, env = ts.do(t, http.MethodGet, "/sections", token, nil)
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.actor, status)
		}
		if env.Count != tt.sections {
			t.Errorf("%s sections: expected %d, got %d", tt.actor, tt.sections, env.Count)
		}
	}
}

func TestTask_UpdateWithUnknownAssigneeKeepsTitle(t *testing.T) {
	ts := setupTestServer(t)
	director := ts.login(t, "director")
	p := ts.createProject(t, director, "P1")
	task := ts.createTask(t, director, p.ID, ts.users["alice"].ID)
	path := fmt.Sprintf("/tasks/%d", task.ID)

	status, env := ts.do(t, http.MethodPatch, path, director, map[string]any{
		"title": "Changed", "assigned_to": []int64{999999},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, status)
	}
	if _, ok := env.Errors["assigned_to"]; !ok {
		t.Errorf("expected assigned_to error, got %v", env.Errors)
	}

	status, env = ts.do(t, http.MethodGet, path, director, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	got := decodeData[struct {
		Title string `json:"title"`
	}](t, env)
	if got.Title != "Task" {
		t.Errorf("expected title %q, got %q", "Task", got.Title)
	}
}
