package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzemr/record-api/internal/handler"
	"github.com/mzemr/record-api/internal/middleware"
	"github.com/mzemr/record-api/internal/model"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts the routes that need a session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.ValidationFailed("请求参数不合法", err.Error()))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Me(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized("会话无效或已过期"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}
