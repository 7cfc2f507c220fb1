package handler

import (
	"log/slog"
	"net/http"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/service"
)

// ProjectHandler обслуживает проекты и их представления
type ProjectHandler struct {
	base
	projects service.ProjectService
}

// NewProjectHandler создаёт обработчик проектов
func NewProjectHandler(projects service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{base: newBase(logger), projects: projects}
}

func (h *ProjectHandler) present(v *service.ProjectView) dto.ProjectResponse {
	return dto.ToProject(v.Project, v.TaskCount, v.CompletedCount, h.now())
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	views, count, err := h.projects.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	out := make([]dto.ProjectResponse, 0, len(views))
	for i := range views {
		out = append(out, h.present(&views[i]))
	}
	h.respondPage(w, q, out, count)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.projects.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, h.present(v))
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.projects.Create(r.Context(), auth.UserFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.Success(h.present(v)))
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.projects.Update(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, h.present(v))
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.projects.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projects.Stats(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, stats)
}

func (h *ProjectHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	tasks, err := h.projects.Tasks(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTasks(tasks, h.now()))
}

func (h *ProjectHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	board, err := h.projects.Kanban(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	now := h.now()
	out := make(map[domain.TaskStatus][]dto.TaskResponse, len(board))
	for status, tasks := range board {
		out[status] = dto.ToTasks(tasks, now)
	}
	h.respondOK(w, out)
}

func (h *ProjectHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	items, err := h.projects.Timeline(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, items)
}
