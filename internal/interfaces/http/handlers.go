package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/garyjia/expense-refund-pipeline/internal/domain/workflow"
	"github.com/garyjia/expense-refund-pipeline/internal/pipeline"
	"github.com/garyjia/expense-refund-pipeline/internal/refund"
	"github.com/garyjia/expense-refund-pipeline/internal/session"
	"github.com/garyjia/expense-refund-pipeline/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	service *pipeline.Service
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service *pipeline.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateSessionRequest is the body of POST /api/v1/sessions
type CreateSessionRequest struct {
	OwnerEmail string `json:"ownerEmail" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateSession handles POST /api/v1/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, errors.New("ownerEmail is required"))
		return
	}

	sess, err := h.service.CreateSession(req.OwnerEmail)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// GetSession handles GET /api/v1/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// UploadFiles handles POST /api/v1/sessions/:id/files. Files arrive as
// multipart parts under the "files" field.
func (h *Handlers) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.fail(c, http.StatusBadRequest, errors.New("multipart form with a files field is required"))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		h.fail(c, http.StatusBadRequest, errors.New("no files provided"))
		return
	}

	files := make([]*entity.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header)
		if err != nil {
			h.logger.Error("Failed to read uploaded file",
				zap.String("file_name", header.Filename),
				zap.Error(err))
			h.fail(c, http.StatusBadRequest, err)
			return
		}
		files = append(files, file)
	}

	snapshot, err := h.service.AddFiles(c.Request.Context(), c.Param("id"), files)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    snapshot,
	})
}

// readUpload loads one multipart file into memory
func readUpload(header *multipart.FileHeader) (*entity.UploadedFile, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	return &entity.UploadedFile{
		Name:     header.Filename,
		MIMEType: mimeType,
		Size:     header.Size,
		Content:  content,
	}, nil
}

// Review handles POST /api/v1/sessions/:id/review
func (h *Handlers) Review(c *gin.Context) {
	snapshot, err := h.service.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    snapshot,
	})
}

// UpdateItem handles PUT /api/v1/sessions/:id/items/:index
func (h *Handlers) UpdateItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, errors.New("invalid item index"))
		return
	}

	var update session.LineItemUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.fail(c, http.StatusBadRequest, errors.New("invalid item payload"))
		return
	}

	if update.Amount != nil {
		if err := utils.ValidateAmount(*update.Amount); err != nil {
			h.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	if err := sess.UpdateItem(index, update); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// SelectAll handles POST /api/v1/sessions/:id/items/select-all
func (h *Handlers) SelectAll(c *gin.Context) {
	h.selection(c, func(sess *session.Session) error { return sess.SelectAll() })
}

// SelectNone handles POST /api/v1/sessions/:id/items/select-none
func (h *Handlers) SelectNone(c *gin.Context) {
	h.selection(c, func(sess *session.Session) error { return sess.SelectNone() })
}

func (h *Handlers) selection(c *gin.Context, apply func(*session.Session) error) {
	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	if err := apply(sess); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// DeleteSelected handles POST /api/v1/sessions/:id/items/delete-selected
func (h *Handlers) DeleteSelected(c *gin.Context) {
	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	removed, err := sess.DeleteSelected()
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"removed": removed,
			"session": sess.Snapshot(),
		},
	})
}

// Confirm handles POST /api/v1/sessions/:id/confirm
func (h *Handlers) Confirm(c *gin.Context) {
	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	if err := sess.Confirm(c.Request.Context()); err != nil {
		// Anything that is not a stage conflict is a validation failure
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		h.fail(c, status, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// Back handles POST /api/v1/sessions/:id/back
func (h *Handlers) Back(c *gin.Context) {
	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	if err := sess.Back(c.Request.Context()); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// Reset handles POST /api/v1/sessions/:id/reset
func (h *Handlers) Reset(c *gin.Context) {
	sess, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	if err := sess.StartOver(c.Request.Context()); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// Submit handles POST /api/v1/sessions/:id/submit. A partial failure is not
// an HTTP error: the per-item outcome is returned and the session stays
// retryable.
func (h *Handlers) Submit(c *gin.Context) {
	result, err := h.service.Submit(c.Request.Context(), c.Param("id"))
	if err != nil && result == nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: result.Failed == 0,
		Data:    result,
	})
}

// TeamMembers handles GET /api/v1/team-members
func (h *Handlers) TeamMembers(c *gin.Context) {
	members := h.service.TeamMembers(c.Request.Context())

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    members,
	})
}

// History handles GET /api/v1/history?owner=...&limit=...
func (h *Handlers) History(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		h.fail(c, http.StatusBadRequest, errors.New("owner query parameter is required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.service.History(owner, limit)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// SessionHistory handles GET /api/v1/sessions/:id/history
func (h *Handlers) SessionHistory(c *gin.Context) {
	records, err := h.service.SessionHistory(c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

func (h *Handlers) fail(c *gin.Context, status int, err error) {
	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed),
		errors.Is(err, session.ErrInvalidStage):
		return http.StatusConflict
	case errors.Is(err, session.ErrBatchLimitExceeded),
		errors.Is(err, session.ErrInvalidFile),
		errors.Is(err, session.ErrNoItemsSelected),
		errors.Is(err, refund.ErrNoItemsSelected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
