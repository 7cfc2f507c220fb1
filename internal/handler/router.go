package handler

import (
	"log/slog"
	"net/http"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/middleware"
)

// Handlers - набор обработчиков REST API
type Handlers struct {
	Auth          *AuthHandler
	Dashboard     *DashboardHandler
	Users         *UserHandler
	Postes        *CRUDHandler[domain.Poste, dto.PosteRequest]
	Departments   *DepartmentHandler
	Sections      *SectionHandler
	Competences   *CRUDHandler[domain.Competence, dto.CompetenceRequest]
	Activities    *ActivityHandler
	Projects      *ProjectHandler
	Tasks         *TaskHandler
	Comments      *CommentHandler
	Attachments   *AttachmentHandler
	Notifications *NotificationHandler
}

// Router настраивает маршруты API
type Router struct {
	mux    *http.ServeMux
	logger *slog.Logger
	h      Handlers
	auth   middleware.Authenticator
	admin  http.Handler
}

// NewRouter создаёт новый роутер; admin может быть nil
func NewRouter(h Handlers, authenticator middleware.Authenticator, admin http.Handler, logger *slog.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		h:      h,
		auth:   authenticator,
		admin:  admin,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	h := r.h

	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Аутентификация
	r.mux.HandleFunc("POST /auth/login", h.Auth.Login)
	r.mux.HandleFunc("POST /auth/refresh", h.Auth.Refresh)
	r.private("POST /auth/logout", h.Auth.Logout)
	r.private("GET /auth/me", h.Auth.Me)
	r.private("PUT /auth/me", h.Auth.UpdateMe)
	r.private("PATCH /auth/me", h.Auth.UpdateMe)

	r.private("GET /dashboard/stats", h.Dashboard.Stats)
	r.private("GET /dashboard/activities", h.Dashboard.Activities)
	r.private("GET /dashboard/charts", h.Dashboard.Charts)

	// Пользователи и оргструктура
	r.crud("/users", h.Users.List, h.Users.Get, h.Users.Create, h.Users.Update, h.Users.Delete)
	r.private("GET /users/stats", h.Users.Stats)
	r.private("GET /users/me/team", h.Users.Team)
	r.private("GET /users/{id}/team", h.Users.Team)

	r.crud("/postes", h.Postes.List, h.Postes.Get, h.Postes.Create, h.Postes.Update, h.Postes.Delete)
	r.crud("/departments", h.Departments.List, h.Departments.Get, h.Departments.Create, h.Departments.Update, h.Departments.Delete)
	r.private("GET /departments/{id}/users", h.Departments.Users)
	r.private("GET /departments/{id}/stats", h.Departments.Stats)
	r.crud("/sections", h.Sections.List, h.Sections.Get, h.Sections.Create, h.Sections.Update, h.Sections.Delete)
	r.private("GET /sections/{id}/users", h.Sections.Users)
	r.crud("/competences", h.Competences.List, h.Competences.Get, h.Competences.Create, h.Competences.Update, h.Competences.Delete)

	r.private("GET /activities", h.Activities.List)
	r.private("GET /activities/{id}", h.Activities.Get)

	// Проекты и задачи
	r.crud("/projects", h.Projects.List, h.Projects.Get, h.Projects.Create, h.Projects.Update, h.Projects.Delete)
	r.private("GET /projects/stats", h.Projects.Stats)
	r.private("GET /projects/{id}/tasks", h.Projects.Tasks)
	r.private("GET /projects/{id}/kanban", h.Projects.Kanban)
	r.private("GET /projects/{id}/timeline", h.Projects.Timeline)

	r.crud("/tasks", h.Tasks.List, h.Tasks.Get, h.Tasks.Create, h.Tasks.Update, h.Tasks.Delete)
	r.private("GET /tasks/stats", h.Tasks.Stats)
	r.private("GET /tasks/my-tasks", h.Tasks.MyTasks)
	r.private("GET /tasks/overdue", h.Tasks.Overdue)
	r.private("GET /tasks/upcoming", h.Tasks.Upcoming)
	r.private("PUT /tasks/{id}/status", h.Tasks.UpdateStatus)
	r.private("POST /tasks/{id}/assign", h.Tasks.Assign)
	r.private("POST /tasks/{id}/validate", h.Tasks.Validate)

	r.crud("/task-comments", h.Comments.List, h.Comments.Get, h.Comments.Create, h.Comments.Update, h.Comments.Delete)
	r.crud("/task-attachments", h.Attachments.List, h.Attachments.Get, h.Attachments.Create, h.Attachments.Update, h.Attachments.Delete)
	r.private("GET /task-attachments/{id}/download", h.Attachments.Download)

	// Уведомления
	r.private("GET /notifications", h.Notifications.List)
	r.private("GET /notifications/{id}", h.Notifications.Get)
	r.private("POST /notifications/{id}/mark-read", h.Notifications.MarkRead)
	r.private("POST /notifications/mark-all-read", h.Notifications.MarkAllRead)
	r.private("GET /notifications/unread-count", h.Notifications.UnreadCount)

	if r.admin != nil {
		r.mux.Handle("/admin/", r.admin)
	}

	// Применяем middleware
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.ClientIP(handler)
	handler = middleware.Recoverer(r.logger)(handler)

	return handler
}

// private регистрирует маршрут, доступный только с access-токеном
func (r *Router) private(pattern string, fn http.HandlerFunc) {
	r.mux.Handle(pattern, middleware.Authenticate(r.auth, r.logger)(fn))
}

// crud регистрирует стандартный набор маршрутов коллекции
func (r *Router) crud(prefix string, list, get, create, update, del http.HandlerFunc) {
	r.private("GET "+prefix, list)
	r.private("POST "+prefix, create)
	r.private("GET "+prefix+"/{id}", get)
	r.private("PUT "+prefix+"/{id}", update)
	r.private("PATCH "+prefix+"/{id}", update)
	r.private("DELETE "+prefix+"/{id}", del)
}
