package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/service"
)

// NotificationHandler отдаёт уведомления текущего пользователя
type NotificationHandler struct {
	base
	notifications service.NotificationService
}

// NewNotificationHandler создаёт обработчик уведомлений
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{base: newBase(logger), notifications: notifications}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	items, count, err := h.notifications.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, items, count)
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	n, err := h.notifications.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, n)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notifications.MarkAllRead(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, map[string]int64{"updated": updated})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, map[string]int64{"unread_count": count})
}

// DashboardHandler отдаёт агрегаты главной страницы
type DashboardHandler struct {
	base
	dashboard service.DashboardService
}

// NewDashboardHandler создаёт обработчик дашборда
func NewDashboardHandler(dashboard service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{base: newBase(logger), dashboard: dashboard}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, stats)
}

func (h *DashboardHandler) Activities(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.dashboard.Activities(r.Context(), auth.UserFrom(r.Context()), limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, items)
}

func (h *DashboardHandler) Charts(w http.ResponseWriter, r *http.Request) {
	charts, err := h.dashboard.Charts(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, charts)
}
