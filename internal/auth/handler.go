package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/users"
)

// Handler wires HTTP handlers to the auth service.
type Handler struct {
	Svc     *Service
	Limiter *middleware.RateLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, limiter *middleware.RateLimiter) *Handler {
	return &Handler{Svc: svc, Limiter: limiter}
}

// RegisterRoutes attaches auth routes to the router group. These routes are
// public; the credential endpoints carry a tighter rate limit.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	handlers := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if h.Limiter == nil {
			return []gin.HandlerFunc{fn}
		}
		rule := middleware.RateLimitRule{Rate: 10, Burst: 20}
		return []gin.HandlerFunc{middleware.RateLimit(h.Limiter, rule), fn}
	}

	rg.POST("/auth/register", handlers(h.register)...)
	rg.POST("/auth/login", handlers(h.login)...)
	rg.POST("/auth/refresh", handlers(h.refresh)...)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type authResponse struct {
	User         users.UserResponse `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	user, pair, err := h.Svc.Register(c.Request.Context(), users.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.Created(c, authResponse{
		User:         users.ToResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	user, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, authResponse{
		User:         users.ToResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "refreshToken is required", nil)
		return
	}

	user, pair, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, authResponse{
		User:         users.ToResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAuthentication):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid credentials", nil)
	case errors.Is(err, users.ErrEmailTaken):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "email already in use", nil)
	case errors.Is(err, users.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "authentication failed", nil)
	}
}
