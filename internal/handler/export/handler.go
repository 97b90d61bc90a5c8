package export

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mzemr/record-api/internal/handler"
	"github.com/mzemr/record-api/internal/middleware"
	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/service/export"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Service interface {
	ExportReport(ctx context.Context, fromDate, toDate time.Time, session *model.Session) (*export.Result, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/export/report", h.ExportReport)
}

// ExportReport streams the upload workbook for ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) ExportReport(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized("会话无效或已过期"))
		return
	}

	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), time.Local)
	if err != nil {
		handler.Error(c, apperrors.ValidationFailed("from 日期格式不合法", nil))
		return
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("to"), time.Local)
	if err != nil {
		handler.Error(c, apperrors.ValidationFailed("to 日期格式不合法", nil))
		return
	}

	result, err := h.service.ExportReport(c.Request.Context(), from, to, session)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	c.Data(http.StatusOK, xlsxContentType, result.Content)
}
