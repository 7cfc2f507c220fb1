package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/service"
)

// crudService - справочник, у которого один запрос на создание и правку
type crudService[T, R any] interface {
	List(ctx context.Context, actor *domain.User, q repository.ListQuery) ([]T, int64, error)
	Get(ctx context.Context, actor *domain.User, id int64) (*T, error)
	Create(ctx context.Context, actor *domain.User, req *R) (*T, error)
	Update(ctx context.Context, actor *domain.User, id int64, req *R) (*T, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

// CRUDHandler обслуживает справочники: должности, департаменты,
// секции и компетенции
type CRUDHandler[T, R any] struct {
	base
	svc  crudService[T, R]
	one  func(*T) any
	many func([]T) any
}

func newCRUDHandler[T, R any](svc crudService[T, R], logger *slog.Logger, one func(*T) any, many func([]T) any) *CRUDHandler[T, R] {
	if one == nil {
		one = func(v *T) any { return v }
	}
	if many == nil {
		many = func(v []T) any { return v }
	}
	return &CRUDHandler[T, R]{base: newBase(logger), svc: svc, one: one, many: many}
}

func (h *CRUDHandler[T, R]) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	items, count, err := h.svc.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, h.many(items), count)
}

func (h *CRUDHandler[T, R]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, h.one(item))
}

func (h *CRUDHandler[T, R]) Create(w http.ResponseWriter, r *http.Request) {
	var req R
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.svc.Create(r.Context(), auth.UserFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.Success(h.one(item)))
}

func (h *CRUDHandler[T, R]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req R
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.svc.Update(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, h.one(item))
}

func (h *CRUDHandler[T, R]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NewPosteHandler создаёт обработчик должностей
func NewPosteHandler(svc service.PosteService, logger *slog.Logger) *CRUDHandler[domain.Poste, dto.PosteRequest] {
	return newCRUDHandler[domain.Poste, dto.PosteRequest](svc, logger, nil, nil)
}

// NewCompetenceHandler создаёт обработчик компетенций
func NewCompetenceHandler(svc service.CompetenceService, logger *slog.Logger) *CRUDHandler[domain.Competence, dto.CompetenceRequest] {
	return newCRUDHandler[domain.Competence, dto.CompetenceRequest](svc, logger, nil, nil)
}

// DepartmentHandler добавляет к справочнику сотрудников и статистику
type DepartmentHandler struct {
	*CRUDHandler[domain.Department, dto.DepartmentRequest]
	depts service.DepartmentService
}

// NewDepartmentHandler создаёт обработчик департаментов
func NewDepartmentHandler(svc service.DepartmentService, logger *slog.Logger) *DepartmentHandler {
	one := func(d *domain.Department) any {
		return dto.DepartmentResponse{Department: *d, SectionsCount: len(d.Sections)}
	}
	many := func(items []domain.Department) any { return dto.ToDepartments(items) }
	return &DepartmentHandler{
		CRUDHandler: newCRUDHandler[domain.Department, dto.DepartmentRequest](svc, logger, one, many),
		depts:       svc,
	}
}

func (h *DepartmentHandler) Users(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	users, err := h.depts.Users(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUsers(users))
}

func (h *DepartmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.depts.Stats(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, stats)
}

// SectionHandler добавляет к справочнику список сотрудников секции
type SectionHandler struct {
	*CRUDHandler[domain.Section, dto.SectionRequest]
	sections service.SectionService
}

// NewSectionHandler создаёт обработчик секций
func NewSectionHandler(svc service.SectionService, logger *slog.Logger) *SectionHandler {
	one := func(s *domain.Section) any { return dto.ToSection(s) }
	many := func(items []domain.Section) any { return dto.ToSections(items) }
	return &SectionHandler{
		CRUDHandler: newCRUDHandler[domain.Section, dto.SectionRequest](svc, logger, one, many),
		sections:    svc,
	}
}

func (h *SectionHandler) Users(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	users, err := h.sections.Users(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUsers(users))
}

// UserHandler обслуживает пользователей и их команды
type UserHandler struct {
	base
	users service.UserService
}

// NewUserHandler создаёт обработчик пользователей
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{base: newBase(logger), users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	users, count, err := h.users.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, dto.ToUsers(users), count)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUser(u))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.users.Create(r.Context(), auth.UserFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.Success(dto.ToUser(u)))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.users.Update(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUser(u))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, stats)
}

// Team отдаёт команду пользователя {id}; для /users/me/team - текущего
func (h *UserHandler) Team(w http.ResponseWriter, r *http.Request) {
	var id int64
	if r.PathValue("id") != "" {
		var ok bool
		if id, ok = h.pathID(w, r); !ok {
			return
		}
	}
	team, err := h.users.Team(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUsers(team))
}

// ActivityHandler - журнал действий только для чтения
type ActivityHandler struct {
	base
	activities service.ActivityService
}

// NewActivityHandler создаёт обработчик журнала
func NewActivityHandler(activities service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{base: newBase(logger), activities: activities}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	items, count, err := h.activities.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, dto.ToActivities(items), count)
}

func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.activities.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToActivities([]domain.UserActivity{*a})[0])
}
