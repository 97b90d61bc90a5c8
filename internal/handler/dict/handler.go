package dict

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mzemr/record-api/internal/handler"
	"github.com/mzemr/record-api/internal/middleware"
	"github.com/mzemr/record-api/internal/model"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

type Service interface {
	Search(ctx context.Context, setCode, query string, page, pageSize int) (*model.DictSearchResult, error)
	MarkUsed(ctx context.Context, session *model.Session, setCode, code string) error
	Recents(ctx context.Context, session *model.Session, setCode string, limit int) ([]model.DictItem, error)
	AddFavorite(ctx context.Context, session *model.Session, setCode, code string) error
	RemoveFavorite(ctx context.Context, session *model.Session, setCode, code string) error
	Favorites(ctx context.Context, session *model.Session, setCode string) ([]model.DictItem, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	dicts := r.Group("/dicts/:set_code")
	{
		dicts.GET("/search", h.Search)
		dicts.GET("/recents", h.Recents)
		dicts.POST("/recents/:code", h.MarkUsed)
		dicts.GET("/favorites", h.Favorites)
		dicts.PUT("/favorites/:code", h.AddFavorite)
		dicts.DELETE("/favorites/:code", h.RemoveFavorite)
	}
}

func sessionOrAbort(c *gin.Context) (*model.Session, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized("会话无效或已过期"))
	}
	return session, ok
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (h *Handler) Search(c *gin.Context) {
	if _, ok := sessionOrAbort(c); !ok {
		return
	}
	result, err := h.service.Search(
		c.Request.Context(),
		c.Param("set_code"),
		c.Query("q"),
		intQuery(c, "page", 1),
		intQuery(c, "page_size", 20),
	)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) Recents(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	items, err := h.service.Recents(c.Request.Context(), session, c.Param("set_code"), intQuery(c, "limit", 0))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) MarkUsed(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	if err := h.service.MarkUsed(c.Request.Context(), session, c.Param("set_code"), c.Param("code")); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Favorites(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	items, err := h.service.Favorites(c.Request.Context(), session, c.Param("set_code"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) AddFavorite(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	if err := h.service.AddFavorite(c.Request.Context(), session, c.Param("set_code"), c.Param("code")); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	if err := h.service.RemoveFavorite(c.Request.Context(), session, c.Param("set_code"), c.Param("code")); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
