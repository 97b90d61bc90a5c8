// Package export builds the regulator upload workbook for a date range
// of submitted records. Export is all-or-nothing: a single missing,
// unsubmitted or invalid record in the window blocks the whole batch.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/mzemr/record-api/internal/external"
	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/rowmap"
)

const reportSheet = "门（急）诊诊疗数据上传表头"

// Validator re-checks each record at export time; rules may have
// tightened since the record was submitted.
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
		logger:  logger.With().Str("component", "export").Logger(),
	}
}

// Result is a finished workbook ready to stream to the caller.
type Result struct {
	FileName string
	Content  []byte
}

// ExportReport builds the upload workbook for visits in [from, to] by
// calendar day. Only admin and qc may export.
func (s *Service) ExportReport(ctx context.Context, fromDate, toDate time.Time, session *model.Session) (*Result, error) {
	if !session.HasRole(model.RoleAdmin) && !session.HasRole(model.RoleQC) {
		return nil, apperrors.Forbidden("无权执行批量导出")
	}
	if toDate.Before(fromDate) {
		return nil, apperrors.ValidationFailed("时间范围不合法（to < from）", nil)
	}

	fromDt := truncateToDay(fromDate)
	toDt := truncateToDay(toDate).AddDate(0, 0, 1)
	fileName := fmt.Sprintf("mz_mfp_report_%s_%s.xlsx",
		fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"))
	operator := session.Operator()
	window := map[string]interface{}{
		"from": fromDate.Format("2006-01-02"),
		"to":   toDate.Format("2006-01-02"),
	}

	patientNos, err := s.fetchPatientNos(ctx, fromDt, toDt)
	if err != nil {
		s.logExport(ctx, model.ExportStatusFailed, operator, fileName, "外部就诊清单不可用", window)
		return nil, apperrors.External("外部数据暂不可用，请稍后重试", err)
	}
	if len(patientNos) == 0 {
		content, err := s.buildWorkbook(nil)
		if err != nil {
			return nil, err
		}
		s.logExport(ctx, model.ExportStatusSuccess, operator, fileName, "", withCount(window, "rows", 0))
		return &Result{FileName: fileName, Content: content}, nil
	}

	records, err := s.records.ListByPatientNos(ctx, patientNos)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for export: %w", err)
	}
	byPatient := make(map[string]*model.Record, len(records))
	for _, rec := range records {
		byPatient[rec.PatientNo] = rec
	}

	var missing, notSubmitted []string
	for _, pn := range patientNos {
		rec, ok := byPatient[pn]
		switch {
		case !ok:
			missing = append(missing, pn)
		case rec.Status != model.RecordStatusSubmitted:
			notSubmitted = append(notSubmitted, pn)
		}
	}
	if len(missing) > 0 || len(notSubmitted) > 0 {
		detail := withCount(withCount(window, "missing", len(missing)), "not_submitted", len(notSubmitted))
		s.logExport(ctx, model.ExportStatusFailed, operator, fileName, "存在未提交或未生成记录，阻断导出", detail)
		return nil, apperrors.ValidationFailed("导出阻断：范围内存在未提交/缺失记录", map[string]interface{}{
			"missing":       emptyIfNil(missing),
			"not_submitted": emptyIfNil(notSubmitted),
		})
	}

	var bad []map[string]interface{}
	for _, pn := range patientNos {
		rec := byPatient[pn]
		fieldErrors, err := s.engine.ValidateForSubmit(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to revalidate record %s: %w", pn, err)
		}
		if len(fieldErrors) > 0 {
			bad = append(bad, map[string]interface{}{
				"patient_no": pn,
				"record_id":  rec.ID,
				"errors":     fieldErrors,
			})
		}
	}
	if len(bad) > 0 {
		s.logExport(ctx, model.ExportStatusFailed, operator, fileName, "校验失败，阻断导出", withCount(window, "bad_records", len(bad)))
		return nil, apperrors.ValidationFailed("导出阻断：存在校验错误", map[string]interface{}{"errors": bad})
	}

	ordered := make([]*model.Record, 0, len(patientNos))
	for _, pn := range patientNos {
		ordered = append(ordered, byPatient[pn])
	}
	content, err := s.buildWorkbook(ordered)
	if err != nil {
		s.logExport(ctx, model.ExportStatusFailed, operator, fileName, "导出异常", window)
		return nil, apperrors.Internal("导出失败，请稍后重试", err)
	}

	s.logExport(ctx, model.ExportStatusSuccess, operator, fileName, "", withCount(window, "rows", len(ordered)))
	return &Result{FileName: fileName, Content: content}, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func withCount(detail map[string]interface{}, key string, n int) map[string]interface{} {
	out := make(map[string]interface{}, len(detail)+1)
	for k, v := range detail {
		out[k] = v
	}
	out[key] = n
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// fetchPatientNos reads the HIS visit list and returns unique patient
// numbers in feed order.
func (s *Service) fetchPatientNos(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := s.adapter.FetchVisitList(ctx, from, to)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, row := range rows {
		pn := rowmap.String(rowmap.FirstValue(row, "JZKH", "jzkh", "BLH", "blh", "PATIENT_NO", "patient_no"))
		if pn == "" || seen[pn] {
			continue
		}
		seen[pn] = true
		out = append(out, pn)
	}
	return out, nil
}

func (s *Service) buildWorkbook(records []*model.Record) ([]byte, error) {
	headers := reportHeaders()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("failed to name report sheet: %w", err)
	}

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(reportSheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, rec := range records {
		cells, err := recordRow(rec)
		if err != nil {
			return nil, err
		}
		row := make([]interface{}, len(headers))
		for j, h := range headers {
			row[j] = cells[h]
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(reportSheet, axis, &row); err != nil {
			return nil, fmt.Errorf("failed to write record row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// logExport appends an export_log row. Logging never blocks the export
// outcome; a write failure is only warned about.
func (s *Service) logExport(ctx context.Context, status, operator, fileName, errorMessage string, detail map[string]interface{}) {
	raw, err := json.Marshal(detail)
	if err != nil {
		raw = nil
	}
	entry := &model.ExportLog{
		ExportType:   model.ExportTypeXLSX,
		FileName:     fileName,
		Status:       status,
		ErrorMessage: errorMessage,
		Detail:       raw,
		CreatedBy:    operator,
	}
	if err := s.exports.Create(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("file_name", fileName).Msg("export log not written")
	}
}
