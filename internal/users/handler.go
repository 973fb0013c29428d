package users

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

// Handler wires HTTP handlers to the users service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches user routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/users", middleware.RequireRole(authz.RoleAdmin), h.create)
	rg.GET("/users", middleware.RequireRole(authz.RoleAdmin, authz.RoleManager), h.list)
	rg.GET("/users/me", h.me)
	rg.GET("/users/:id", h.get)
	rg.PATCH("/users/:id", h.update)
	rg.DELETE("/users/:id", middleware.RequireRole(authz.RoleAdmin), h.delete)
}

type createRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	role := authz.RoleUser
	if req.Role != "" {
		role = authz.ParseRole(req.Role)
		if !authz.CanSetRole(middleware.RoleFromContext(c), role) {
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "cannot assign this role", nil)
			return
		}
	}

	user, err := h.Svc.Create(c.Request.Context(), CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		h.writeError(c, err, "failed to create user")
		return
	}
	respond.Created(c, ToResponse(user))
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	page, limit, offset := util.ClampPage(page, limit, 100)

	list, total, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err, "failed to list users")
		return
	}

	data := make([]UserResponse, 0, len(list))
	for _, user := range list {
		data = append(data, ToResponse(user))
	}
	respond.OK(c, gin.H{
		"data": data,
		"meta": util.NewPageMeta(total, page, limit),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, "failed to load user")
		return
	}
	respond.OK(c, ToResponse(user))
}

func (h *Handler) get(c *gin.Context) {
	targetID := c.Param("id")
	actorID := middleware.UserIDFromContext(c)
	role := middleware.RoleFromContext(c)

	if role == authz.RoleUser && targetID != actorID {
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "insufficient permissions", nil)
		return
	}

	user, err := h.Svc.GetByID(c.Request.Context(), targetID)
	if err != nil {
		h.writeError(c, err, "failed to load user")
		return
	}
	respond.OK(c, ToResponse(user))
}

type updateRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Role      *string `json:"role"`
}

func (h *Handler) update(c *gin.Context) {
	targetID := c.Param("id")
	actorID := middleware.UserIDFromContext(c)
	role := middleware.RoleFromContext(c)

	// Plain users only edit themselves. Managers and admins may update other
	// accounts; role assignment stays gated through CanSetRole below.
	if role == authz.RoleUser && targetID != actorID {
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "insufficient permissions", nil)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	in := UpdateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Role != nil {
		target := authz.ParseRole(*req.Role)
		if !authz.CanSetRole(role, target) {
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "cannot assign this role", nil)
			return
		}
		in.Role = &target
	}

	user, err := h.Svc.Update(c.Request.Context(), targetID, in)
	if err != nil {
		h.writeError(c, err, "failed to update user")
		return
	}
	respond.OK(c, ToResponse(user))
}

func (h *Handler) delete(c *gin.Context) {
	targetID := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), targetID); err != nil {
		h.writeError(c, err, "failed to delete user")
		return
	}
	respond.OK(c, gin.H{"id": targetID, "deleted": true})
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "user not found", nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "email already in use", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
