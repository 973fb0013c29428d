package documents

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

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	if h.Svc.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OwnerID:     middleware.UserIDFromContext(c),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		h.writeError(c, err, "failed to upload document")
		return
	}
	respond.Created(c, ToResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	page, limit, offset := util.ClampPage(page, limit, 100)

	filter := ListFilter{Status: Status(c.Query("status"))}
	if middleware.RoleFromContext(c) == authz.RoleUser {
		filter.ViewerID = middleware.UserIDFromContext(c)
	}

	list, total, err := h.Svc.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(c, err, "failed to list documents")
		return
	}

	data := make([]DocumentResponse, 0, len(list))
	for _, doc := range list {
		data = append(data, ToResponse(doc))
	}
	respond.OK(c, gin.H{
		"data": data,
		"meta": util.NewPageMeta(total, page, limit),
	})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load document")
		return
	}
	if !h.authorize(c, doc, authz.ActionRead) {
		return
	}
	respond.OK(c, ToResponse(doc))
}

type updateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	AssignedToID *string `json:"assignedToId"`
	Status       *string `json:"status"`
}

func (h *Handler) update(c *gin.Context) {
	doc, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load document")
		return
	}
	if !h.authorize(c, doc, authz.ActionUpdate) {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	in := UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedToID,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		in.Status = &status
	}

	updated, err := h.Svc.Update(c.Request.Context(), doc.ID, in)
	if err != nil {
		h.writeError(c, err, "failed to update document")
		return
	}
	respond.OK(c, ToResponse(updated))
}

func (h *Handler) delete(c *gin.Context) {
	doc, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load document")
		return
	}
	if !h.authorize(c, doc, authz.ActionDelete) {
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), doc.ID); err != nil {
		h.writeError(c, err, "failed to delete document")
		return
	}
	respond.OK(c, gin.H{"id": doc.ID, "deleted": true})
}

func (h *Handler) authorize(c *gin.Context, doc Document, action authz.Action) bool {
	ok := authz.CanAct(
		middleware.RoleFromContext(c),
		middleware.UserIDFromContext(c),
		doc.CreatedByID,
		doc.AssignedToID,
		action,
	)
	if !ok {
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "insufficient permissions", nil)
	}
	return ok
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file exceeds maximum size", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
