package handler

import (
	"log/slog"
	"net/http"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/service"
)

// TaskHandler обслуживает задачи и действия над ними
type TaskHandler struct {
	base
	tasks service.TaskService
}

// NewTaskHandler создаёт обработчик задач
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{base: newBase(logger), tasks: tasks}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	tasks, count, err := h.tasks.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, dto.ToTasks(tasks, h.now()), count)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.tasks.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTask(t, h.now()))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.tasks.Create(r.Context(), auth.UserFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.Success(dto.ToTask(t, h.now())))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.tasks.Update(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTask(t, h.now()))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Stats(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, stats)
}

// MyTasks отдаёт страницу своих задач вместе со сводкой
func (h *TaskHandler) MyTasks(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	tasks, count, stats, err := h.tasks.MyTasks(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	page := dto.Page(dto.ToTasks(tasks, h.now()), count, q.Page, q.PageSize)
	h.respondJSON(w, http.StatusOK, struct {
		dto.ListResponse
		Stats *service.MyTaskStats `json:"stats"`
	}{page, stats})
}

func (h *TaskHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.Overdue(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTasks(tasks, h.now()))
}

func (h *TaskHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.Upcoming(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTasks(tasks, h.now()))
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.TaskStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.tasks.UpdateStatus(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTask(t, h.now()))
}

func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.AssignTaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.tasks.Assign(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTask(t, h.now()))
}

func (h *TaskHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.tasks.Validate(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToTask(t, h.now()))
}
