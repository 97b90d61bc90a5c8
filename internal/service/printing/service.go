// Package printing renders the printable information page for a single
// submitted record and logs every attempt.
package printing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/internal/external"
	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	"github.com/mzemr/record-api/internal/service/auth"
	"github.com/mzemr/record-api/internal/service/prefill"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

// Validator re-checks the record before printing; a page with stale
// validation errors must not reach paper.
type Validator interface {
	ValidateForSubmit(ctx context.Context, rec *model.Record) ([]model.FieldError, error)
}

type Service struct {
	records repository.RecordRepository
	exports repository.ExportLogRepository
	adapter external.DataAdapter
	engine  Validator
	logger  zerolog.Logger
}

func NewService(
	records repository.RecordRepository,
	exports repository.ExportLogRepository,
	adapter external.DataAdapter,
	engine Validator,
	logger zerolog.Logger,
) *Service {
	return &Service{
		records: records,
		exports: exports,
		adapter: adapter,
		engine:  engine,
		logger:  logger.With().Str("component", "printing").Logger(),
	}
}

// RenderHTML produces the print page for one record. Only submitted,
// currently valid records may be printed.
func (s *Service) RenderHTML(ctx context.Context, recordID int64, session *model.Session) (string, error) {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NotFound("记录不存在")
		}
		return "", fmt.Errorf("failed to load record %d: %w", recordID, err)
	}

	html, err := s.render(ctx, rec, session)
	if err != nil {
		s.logAttempt(ctx, rec.ID, model.ExportStatusFailed, session, err)
		return "", err
	}

	s.logAttempt(ctx, rec.ID, model.ExportStatusSuccess, session, nil)
	return html, nil
}

func (s *Service) render(ctx context.Context, rec *model.Record, session *model.Session) (string, error) {
	if err := s.ensureAccess(ctx, rec.PatientNo, session); err != nil {
		return "", err
	}
	if rec.Status != model.RecordStatusSubmitted {
		return "", apperrors.ValidationFailed("仅已提交记录允许打印", nil)
	}

	fieldErrors, err := s.engine.ValidateForSubmit(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to revalidate record %d: %w", rec.ID, err)
	}
	if len(fieldErrors) > 0 {
		return "", apperrors.ValidationFailed("校验失败", map[string]interface{}{"errors": fieldErrors})
	}

	view, err := buildView(rec)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render print page: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) ensureAccess(ctx context.Context, patientNo string, session *model.Session) error {
	baseRow, err := s.adapter.FetchBaseInfo(ctx, patientNo)
	if err != nil {
		return apperrors.External("外部数据暂不可用，请稍后重试", err)
	}
	if len(baseRow) == 0 {
		return apperrors.NotFound("未找到就诊记录")
	}
	return auth.ValidatePatientAccess(session, prefill.VisitContext(baseRow))
}

func (s *Service) logAttempt(ctx context.Context, recordID int64, status string, session *model.Session, cause error) {
	entry := &model.ExportLog{
		RecordID:   &recordID,
		ExportType: model.ExportTypePrint,
		Status:     status,
		CreatedBy:  session.Operator(),
	}
	if cause != nil {
		if appErr, ok := apperrors.AsAppError(cause); ok {
			entry.ErrorMessage = appErr.Message
			if raw, err := json.Marshal(map[string]interface{}{"code": appErr.Code}); err == nil {
				entry.Detail = raw
			}
		} else {
			entry.ErrorMessage = "打印异常"
		}
	}
	if err := s.exports.Create(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Int64("record_id", recordID).Msg("print log not written")
	}
}

type feeRow struct {
	LeftCode   string
	LeftValue  string
	RightCode  string
	RightValue string
}

type printView struct {
	RecordID  int64
	PatientNo string
	Org       *model.Org
	Base      *model.BaseInfo
	Med       *model.MedicationSummary

	TcmDisease    *model.Diagnosis
	WmMain        *model.Diagnosis
	TcmSyndromes  []*model.Diagnosis
	WmOthers      []*model.Diagnosis
	TcmOperations []*model.TcmOperation
	Surgeries     []*model.Surgery
	HerbDetails   []*model.HerbDetail
	FeeRows       []feeRow
}

// feePrintCodes uses the business-side spelling for the two mistyped
// blood-product columns, unlike the upload template.
var feePrintCodes = []string{
	"ZFY", "ZFJE", "YLFWF", "ZLCZF", "HLF", "QTFY", "BLZDF", "ZDF",
	"YXXZDF", "LCZDXMF", "FSSZLXMF", "ZLF", "SSZLF", "MZF", "SSF", "KFF",
	"ZYL_ZYZD", "ZYZL", "ZYWZ", "ZYGS", "ZCYJF", "ZYTNZL", "ZYGCZL",
	"ZYTSZL", "ZYQT", "ZYTSTPJG", "BZSS", "XYF", "KJYWF", "ZCYF", "ZYZJF",
	"ZCYF1", "PFKLF", "XF", "BDBBLZPF", "QDBBLZPF", "NXYZLZPF",
	"XBYZLZPF", "JCYYCLF", "YYCLF", "SSYCXCLF", "QTF",
}

func buildView(rec *model.Record) (*printView, error) {
	if rec.BaseInfo == nil || rec.Org == nil {
		return nil, apperrors.Internal("记录数据不完整", nil)
	}

	view := &printView{
		RecordID:  rec.ID,
		PatientNo: rec.PatientNo,
		Org:       rec.Org,
		Base:      rec.BaseInfo,
		Med:       rec.MedicationSummary,
	}

	byType := rec.DiagnosesByType()
	sortedDiags := func(t model.DiagType) []*model.Diagnosis {
		out := append([]*model.Diagnosis(nil), byType[t]...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].SeqNo < out[j].SeqNo })
		return out
	}
	if items := sortedDiags(model.DiagTypeTCMDiseaseMain); len(items) > 0 {
		view.TcmDisease = items[0]
	}
	if items := sortedDiags(model.DiagTypeWMMain); len(items) > 0 {
		view.WmMain = items[0]
	}
	view.TcmSyndromes = sortedDiags(model.DiagTypeTCMSyndrome)
	view.WmOthers = sortedDiags(model.DiagTypeWMOther)

	view.TcmOperations = append([]*model.TcmOperation(nil), rec.TcmOperations...)
	sort.SliceStable(view.TcmOperations, func(i, j int) bool {
		return view.TcmOperations[i].SeqNo < view.TcmOperations[j].SeqNo
	})
	view.Surgeries = append([]*model.Surgery(nil), rec.Surgeries...)
	sort.SliceStable(view.Surgeries, func(i, j int) bool {
		return view.Surgeries[i].SeqNo < view.Surgeries[j].SeqNo
	})
	view.HerbDetails = append([]*model.HerbDetail(nil), rec.HerbDetails...)
	sort.SliceStable(view.HerbDetails, func(i, j int) bool {
		return view.HerbDetails[i].SeqNo < view.HerbDetails[j].SeqNo
	})

	values := make([]string, len(feePrintCodes))
	if fee := rec.FeeSummary; fee != nil {
		for i, code := range feePrintCodes {
			if amount := fee.Amount(strings.ToLower(code)); amount != nil {
				values[i] = amount.String()
			}
		}
	}
	for i := 0; i < len(feePrintCodes); i += 2 {
		row := feeRow{LeftCode: feePrintCodes[i], LeftValue: values[i]}
		if i+1 < len(feePrintCodes) {
			row.RightCode = feePrintCodes[i+1]
			row.RightValue = values[i+1]
		}
		view.FeeRows = append(view.FeeRows, row)
	}

	return view, nil
}
