package ingestion

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/authz"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/util"
)

// Handler wires HTTP handlers to the ingestion service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches ingestion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ingestion/jobs", h.create)
	rg.GET("/ingestion/jobs", h.list)
	rg.GET("/ingestion/jobs/:id", h.get)
	rg.GET("/ingestion/jobs/:id/status", h.status)
	rg.POST("/ingestion/jobs/:id/retry", h.retry)
	rg.DELETE("/ingestion/jobs/:id", h.cancel)
}

type createRequest struct {
	DocumentID string `json:"documentId"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	job, err := h.Svc.Create(c.Request.Context(), req.DocumentID, middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, "failed to create job")
		return
	}
	respond.Created(c, ToResponse(job))
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	page, limit, offset := util.ClampPage(page, limit, 100)

	filter := ListFilter{Status: Status(c.Query("status"))}
	if middleware.RoleFromContext(c) == authz.RoleUser {
		filter.OwnerID = middleware.UserIDFromContext(c)
	}

	list, total, err := h.Svc.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(c, err, "failed to list jobs")
		return
	}

	data := make([]JobResponse, 0, len(list))
	for _, job := range list {
		data = append(data, ToResponse(job))
	}
	respond.OK(c, gin.H{
		"data": data,
		"meta": util.NewPageMeta(total, page, limit),
	})
}

func (h *Handler) get(c *gin.Context) {
	job, ok := h.loadAuthorized(c, authz.ActionRead)
	if !ok {
		return
	}
	respond.OK(c, ToResponse(job))
}

func (h *Handler) status(c *gin.Context) {
	if _, ok := h.loadAuthorized(c, authz.ActionRead); !ok {
		return
	}
	status, err := h.Svc.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load job status")
		return
	}
	respond.OK(c, status)
}

func (h *Handler) retry(c *gin.Context) {
	if _, ok := h.loadAuthorized(c, authz.ActionRetry); !ok {
		return
	}
	job, err := h.Svc.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to retry job")
		return
	}
	respond.OK(c, ToResponse(job))
}

func (h *Handler) cancel(c *gin.Context) {
	if _, ok := h.loadAuthorized(c, authz.ActionCancel); !ok {
		return
	}
	job, err := h.Svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to cancel job")
		return
	}
	respond.OK(c, ToResponse(job))
}

func (h *Handler) loadAuthorized(c *gin.Context, action authz.Action) (Job, bool) {
	job, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load job")
		return Job{}, false
	}

	ok := authz.CanAct(
		middleware.RoleFromContext(c),
		middleware.UserIDFromContext(c),
		job.CreatedByID,
		"",
		action,
	)
	if !ok {
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "insufficient permissions", nil)
		return Job{}, false
	}
	return job, true
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "job not found", nil)
	case errors.Is(err, ErrDocumentNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
	case errors.Is(err, ErrNotRetryable),
		errors.Is(err, ErrRetryLimit),
		errors.Is(err, ErrNotCancelable),
		errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
