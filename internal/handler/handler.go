// Package handler содержит HTTP-обработчики REST API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/repository"
)

// MaxPageSize - верхняя граница page_size
const MaxPageSize = 100

// base - общие помощники обработчиков
type base struct {
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func newBase(logger *slog.Logger) base {
	return base{validator: dto.NewValidator(), logger: logger, now: time.Now}
}

// decode читает JSON-тело и проверяет его теги validate
func (h *base) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	if err := dto.Validate(h.validator, req); err != nil {
		h.handleServiceError(w, r, err)
		return false
	}
	return true
}

// pathID разбирает сегмент {id}; при ошибке отвечает 404
func (h *base) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusNotFound, "not found", nil)
		return 0, false
	}
	return id, true
}

// listQuery собирает параметры страницы, поиска и фильтров из строки запроса
func listQuery(r *http.Request) repository.ListQuery {
	values := r.URL.Query()
	q := repository.ListQuery{
		Page:     1,
		PageSize: repository.DefaultPageSize,
		Search:   values.Get("search"),
		Ordering: values.Get("ordering"),
		Filters:  make(map[string]string),
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil && size > 0 {
		q.PageSize = min(size, MaxPageSize)
	}
	for key := range values {
		switch key {
		case "page", "page_size", "search", "ordering":
		default:
			q.Filters[key] = values.Get(key)
		}
	}
	return q
}

func (h *base) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *base) respondOK(w http.ResponseWriter, data any) {
	h.respondJSON(w, http.StatusOK, dto.Success(data))
}

func (h *base) respondPage(w http.ResponseWriter, q repository.ListQuery, data any, count int64) {
	h.respondJSON(w, http.StatusOK, dto.Page(data, count, q.Page, q.PageSize))
}

func (h *base) respondError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	h.respondJSON(w, status, dto.Failure(msg, fields))
}

// handleServiceError переводит ошибку сервиса в HTTP-статус
func (h *base) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, "validation error", verr.Fields)
	case errors.Is(err, domain.ErrInvalidCredentials):
		h.respondError(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidToken):
		h.respondError(w, http.StatusUnauthorized, domain.ErrInvalidToken.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		h.respondError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found", nil)
	default:
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.Any("error", err),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		h.respondError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
