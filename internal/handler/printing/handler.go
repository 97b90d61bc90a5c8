package printing

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
	RenderHTML(ctx context.Context, recordID int64, session *model.Session) (string, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/print/:record_id", h.PrintPage)
}

// PrintPage returns the printable HTML page for one record.
func (h *Handler) PrintPage(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized("会话无效或已过期"))
		return
	}

	recordID, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil {
		handler.Error(c, apperrors.ValidationFailed("record_id 不合法", nil))
		return
	}

	html, err := h.service.RenderHTML(c.Request.Context(), recordID, session)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
