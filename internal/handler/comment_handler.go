package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/service"
)

// CommentHandler обслуживает комментарии к задачам
type CommentHandler struct {
	base
	comments service.CommentService
}

// NewCommentHandler создаёт обработчик комментариев
func NewCommentHandler(comments service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{base: newBase(logger), comments: comments}
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	items, count, err := h.comments.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, dto.ToComments(items), count)
}

func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.comments.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToComment(c))
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.comments.Create(r.Context(), auth.UserFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.Success(dto.ToComment(c)))
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateCommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.comments.Update(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToComment(c))
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.comments.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// multipartMemory - часть формы, которая держится в памяти
const multipartMemory = 8 << 20

// AttachmentHandler обслуживает загрузку и скачивание вложений
type AttachmentHandler struct {
	base
	attachments service.AttachmentService
	maxUpload   int64
}

// NewAttachmentHandler создаёт обработчик вложений; maxUpload ограничивает тело запроса
func NewAttachmentHandler(attachments service.AttachmentService, maxUpload int64, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{base: newBase(logger), attachments: attachments, maxUpload: maxUpload}
}

func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	items, count, err := h.attachments.List(r.Context(), auth.UserFrom(r.Context()), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondPage(w, q, dto.ToAttachments(items), count)
}

func (h *AttachmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.attachments.Get(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToAttachment(a))
}

// Create принимает multipart-форму с полями task и file
func (h *AttachmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusBadRequest, "validation error", map[string]string{"file": "file is too large"})
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	verr := &domain.ValidationError{}
	taskID, err := strconv.ParseInt(r.FormValue("task"), 10, 64)
	if err != nil || taskID <= 0 {
		verr.Add("task", "this field is required")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		verr.Add("file", "no file was submitted")
	} else {
		defer file.Close()
	}
	if !verr.Empty() {
		h.handleServiceError(w, r, verr)
		return
	}

	a, err := h.attachments.Create(r.Context(), auth.UserFrom(r.Context()), taskID, header.Filename, file)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.Success(dto.ToAttachment(a)))
}

func (h *AttachmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateAttachmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.attachments.Update(r.Context(), auth.UserFrom(r.Context()), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToAttachment(a))
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.attachments.Delete(r.Context(), auth.UserFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, f, err := h.attachments.Open(r.Context(), auth.UserFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer f.Close()

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	http.ServeContent(w, r, a.Filename, a.UploadedAt, f)
}
