// Package admin - серверная консоль для директора и координаторов.
// Страницы рендерятся через html/template, access-токен хранится в
// HttpOnly-cookie, списки проходят те же фильтры видимости, что и API.
package admin

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/policy"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// CookieName - имя cookie с access-токеном
const CookieName = "admin_token"

const pageSize = 50

// Services - сервисы, которые использует консоль
type Services struct {
	Auth      service.AuthService
	Users     service.UserService
	Projects  service.ProjectService
	Tasks     service.TaskService
	Dashboard service.DashboardService
}

// Console обслуживает маршруты /admin/
type Console struct {
	svc    Services
	tmpl   *template.Template
	logger *slog.Logger
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// New создаёт консоль; ttl задаёт срок жизни cookie, secure включает флаг Secure
func New(svc Services, ttl time.Duration, secure bool, logger *slog.Logger) (*Console, error) {
	c := &Console{svc: svc, logger: logger, ttl: ttl, secure: secure, now: time.Now}

	funcs := template.FuncMap{
		"ago": humanize.Time,
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"comma": func(n int64) string {
			return humanize.Comma(n)
		},
		"overdue": func(t domain.Task) bool {
			return t.IsOverdue(c.now())
		},
		"label": func(s any) string {
			return strings.ReplaceAll(fmt.Sprint(s), "_", " ")
		},
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin templates: %w", err)
	}
	c.tmpl = tmpl
	return c, nil
}

// Handler возвращает обработчик, смонтированный на /admin/
func (c *Console) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/login", c.loginPage)
	mux.HandleFunc("POST /admin/login", c.login)
	mux.HandleFunc("POST /admin/logout", c.logout)
	mux.HandleFunc("GET /admin/logout", c.logout)
	mux.Handle("GET /admin/{$}", c.requireStaff(c.dashboard))
	mux.Handle("GET /admin/users", c.requireStaff(c.users))
	mux.Handle("GET /admin/projects", c.requireStaff(c.projects))
	mux.Handle("GET /admin/tasks", c.requireStaff(c.tasks))
	return mux
}

// requireStaff пускает только активных директоров и координаторов;
// без валидной cookie отправляет на страницу входа
func (c *Console) requireStaff(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		u, err := c.svc.Auth.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			c.clearCookie(w)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		if !policy.IsStaff(u) {
			c.render(w, http.StatusForbidden, "forbidden.html", map[string]any{"User": u})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
	})
}

func (c *Console) loginPage(w http.ResponseWriter, r *http.Request) {
	c.render(w, http.StatusOK, "login.html", nil)
}

func (c *Console) login(w http.ResponseWriter, r *http.Request) {
	req := &dto.LoginRequest{
		Email:    strings.TrimSpace(strings.ToLower(r.FormValue("email"))),
		Password: r.FormValue("password"),
	}
	if req.Email == "" || req.Password == "" {
		c.render(w, http.StatusBadRequest, "login.html", map[string]any{"Error": "Email and password are required", "Email": req.Email})
		return
	}

	u, pair, err := c.svc.Auth.Login(r.Context(), req)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			c.logger.Error("admin login failed", slog.String("error", err.Error()))
			status = http.StatusInternalServerError
		}
		c.render(w, status, "login.html", map[string]any{"Error": "Invalid email or password", "Email": req.Email})
		return
	}
	if !policy.IsStaff(u) {
		c.render(w, http.StatusForbidden, "login.html", map[string]any{"Error": "Admin console is for staff only", "Email": req.Email})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    pair.Access,
		Path:     "/admin",
		Expires:  c.now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

func (c *Console) logout(w http.ResponseWriter, r *http.Request) {
	c.clearCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (c *Console) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Console) dashboard(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	stats, err := c.svc.Dashboard.Stats(r.Context(), u)
	if err != nil {
		c.fail(w, err)
		return
	}
	activities, err := c.svc.Dashboard.Activities(r.Context(), u, 10)
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, http.StatusOK, "dashboard.html", map[string]any{
		"User":       u,
		"Stats":      stats,
		"Activities": activities,
	})
}

func (c *Console) users(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	q := query(r)
	items, count, err := c.svc.Users.List(r.Context(), u, q)
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, http.StatusOK, "users.html", map[string]any{
		"User":   u,
		"Users":  items,
		"Count":  count,
		"Search": q.Search,
		"Pages":  pages(q, count),
	})
}

func (c *Console) projects(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	q := query(r)
	items, count, err := c.svc.Projects.List(r.Context(), u, q)
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, http.StatusOK, "projects.html", map[string]any{
		"User":     u,
		"Projects": items,
		"Count":    count,
		"Search":   q.Search,
		"Pages":    pages(q, count),
	})
}

func (c *Console) tasks(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	q := query(r)
	items, count, err := c.svc.Tasks.List(r.Context(), u, q)
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, http.StatusOK, "tasks.html", map[string]any{
		"User":   u,
		"Tasks":  items,
		"Count":  count,
		"Search": q.Search,
		"Pages":  pages(q, count),
	})
}

func (c *Console) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		c.render(w, http.StatusForbidden, "forbidden.html", nil)
	default:
		c.logger.Error("admin page failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (c *Console) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.tmpl.ExecuteTemplate(w, name, data); err != nil {
		c.logger.Error("failed to render template", slog.String("template", name), slog.String("error", err.Error()))
	}
}

// pager - ссылки на соседние страницы списка
type pager struct {
	Page int
	Prev int
	Next int
}

func pages(q repository.ListQuery, count int64) pager {
	p := pager{Page: q.Page}
	if q.Page > 1 {
		p.Prev = q.Page - 1
	}
	if int64(q.Page*q.PageSize) < count {
		p.Next = q.Page + 1
	}
	return p
}

func query(r *http.Request) repository.ListQuery {
	v := r.URL.Query()
	page, err := strconv.Atoi(v.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return repository.ListQuery{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(v.Get("search")),
		Ordering: v.Get("ordering"),
	}
}
