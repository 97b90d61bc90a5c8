package record

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzemr/record-api/internal/handler"
	"github.com/mzemr/record-api/internal/middleware"
	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/service/prefill"
	"github.com/mzemr/record-api/internal/service/record"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

type Service interface {
	Get(ctx context.Context, patientNo string, session *model.Session) (*model.RecordResponse, error)
	SaveDraft(ctx context.Context, patientNo string, session *model.Session, req *model.RecordSaveRequest) (*model.RecordResponse, error)
	Submit(ctx context.Context, patientNo string, session *model.Session, req *model.RecordSaveRequest) (*model.RecordResponse, error)
	Reset(ctx context.Context, patientNo string, session *model.Session) (*record.ResetResult, error)
}

type PrefillService interface {
	Prefill(ctx context.Context, patientNo string, session *model.Session) (*prefill.Response, error)
}

type Handler struct {
	records  Service
	prefills PrefillService
}

func NewHandler(records Service, prefills PrefillService) *Handler {
	return &Handler{records: records, prefills: prefills}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/records")
	{
		records.GET("/:patient_no", h.Get)
		records.GET("/:patient_no/prefill", h.Prefill)
		records.POST("/:patient_no/draft", h.SaveDraft)
		records.POST("/:patient_no/submit", h.Submit)
		records.DELETE("/:patient_no", h.Reset)
	}
}

func sessionOrAbort(c *gin.Context) (*model.Session, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized("会话无效或已过期"))
	}
	return session, ok
}

func (h *Handler) Get(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	resp, err := h.records.Get(c.Request.Context(), c.Param("patient_no"), session)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Prefill(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	resp, err := h.prefills.Prefill(c.Request.Context(), c.Param("patient_no"), session)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) SaveDraft(c *gin.Context) {
	h.save(c, h.records.SaveDraft)
}

func (h *Handler) Submit(c *gin.Context) {
	h.save(c, h.records.Submit)
}

type saveFunc func(ctx context.Context, patientNo string, session *model.Session, req *model.RecordSaveRequest) (*model.RecordResponse, error)

func (h *Handler) save(c *gin.Context, fn saveFunc) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var req model.RecordSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.ValidationFailed("请求参数不合法", err.Error()))
		return
	}
	resp, err := fn(c.Request.Context(), c.Param("patient_no"), session, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Reset(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	result, err := h.records.Reset(c.Request.Context(), c.Param("patient_no"), session)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
