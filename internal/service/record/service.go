// Package record implements the save/submit lifecycle of one outpatient
// record: create-or-update with optimistic locking, read-only fee and
// medication refresh from the HIS feed, submit-time validation and the
// per-field audit trail.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/internal/external"
	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	"github.com/mzemr/record-api/internal/service/auth"
	"github.com/mzemr/record-api/internal/service/prefill"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/rowmap"
)

// Validator is the submit-time admission check.
type Validator interface {
	ValidateForSubmit(ctx context.Context, rec *model.Record) ([]model.FieldError, error)
}

type Service struct {
	records repository.RecordRepository
	audits  repository.AuditRepository
	adapter external.DataAdapter
	engine  Validator
	logger  zerolog.Logger
}

func NewService(
	records repository.RecordRepository,
	audits repository.AuditRepository,
	adapter external.DataAdapter,
	engine Validator,
	logger zerolog.Logger,
) *Service {
	return &Service{
		records: records,
		audits:  audits,
		adapter: adapter,
		engine:  engine,
		logger:  logger.With().Str("component", "record").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, patientNo string, session *model.Session) (*model.RecordResponse, error) {
	rec, err := s.records.GetByPatientNo(ctx, patientNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("记录不存在")
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	if _, err := s.ensureAccess(ctx, patientNo, session); err != nil {
		return nil, err
	}
	return toResponse(rec)
}

// SaveDraft stores the payload without admission checks. Saving over a
// submitted record pulls it back to draft.
func (s *Service) SaveDraft(ctx context.Context, patientNo string, session *model.Session, req *model.RecordSaveRequest) (*model.RecordResponse, error) {
	rec, oldFlat, isNew, err := s.prepareSave(ctx, patientNo, session, req)
	if err != nil {
		return nil, err
	}

	if rec.Status == model.RecordStatusSubmitted {
		rec.Status = model.RecordStatusDraft
		rec.SubmittedAt = nil
	}

	return s.persist(ctx, rec, oldFlat, isNew, session, req)
}

// Submit runs the validation engine and, when the record is clean, marks
// it submitted.
func (s *Service) Submit(ctx context.Context, patientNo string, session *model.Session, req *model.RecordSaveRequest) (*model.RecordResponse, error) {
	rec, oldFlat, isNew, err := s.prepareSave(ctx, patientNo, session, req)
	if err != nil {
		return nil, err
	}

	fieldErrors, err := s.engine.ValidateForSubmit(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to validate record: %w", err)
	}
	if len(fieldErrors) > 0 {
		return nil, apperrors.ValidationFailed("校验失败", map[string]interface{}{"errors": fieldErrors})
	}

	now := time.Now()
	rec.Status = model.RecordStatusSubmitted
	rec.SubmittedAt = &now

	return s.persist(ctx, rec, oldFlat, isNew, session, req)
}

// ResetResult reports what a reset removed.
type ResetResult struct {
	PatientNo       string `json:"patient_no"`
	DeletedRecordID *int64 `json:"deleted_record_id"`
}

// Reset wipes the aggregate, its audits and export logs. Admin only.
func (s *Service) Reset(ctx context.Context, patientNo string, session *model.Session) (*ResetResult, error) {
	if !session.HasRole(model.RoleAdmin) && !strings.EqualFold(session.LoginName, model.RoleAdmin) {
		return nil, apperrors.Forbidden("仅 admin 可执行清理")
	}
	patientNo = strings.TrimSpace(patientNo)
	if patientNo == "" {
		return nil, apperrors.ValidationFailed("patient_no 不能为空", nil)
	}

	result := &ResetResult{PatientNo: patientNo}
	rec, err := s.records.GetByPatientNo(ctx, patientNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	if err := s.records.Delete(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("failed to delete record: %w", err)
	}
	s.logger.Info().Str("patient_no", patientNo).Int64("record_id", rec.ID).Msg("record reset")
	result.DeletedRecordID = &rec.ID
	return result, nil
}

// prepareSave performs the shared front half of draft-save and submit:
// access check, HIS fetches, version check, payload and read-only data
// application.
func (s *Service) prepareSave(
	ctx context.Context,
	patientNo string,
	session *model.Session,
	req *model.RecordSaveRequest,
) (rec *model.Record, oldFlat map[string]*string, isNew bool, err error) {
	baseRow, err := s.ensureAccess(ctx, patientNo, session)
	if err != nil {
		return nil, nil, false, err
	}
	feeRow, err := s.adapter.FetchPatientFee(ctx, patientNo)
	if err != nil {
		return nil, nil, false, apperrors.External("外部数据暂不可用，请稍后重试", err)
	}

	rec, err = s.records.GetByPatientNo(ctx, patientNo)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		isNew = true
		rec, err = s.newRecord(ctx, patientNo, session, baseRow)
		if err != nil {
			return nil, nil, false, err
		}
	case err != nil:
		return nil, nil, false, fmt.Errorf("failed to load record: %w", err)
	default:
		oldFlat = flattenRecord(rec)
		if err := checkVersion(rec, req.Version); err != nil {
			return nil, nil, false, err
		}
	}

	applyPayload(rec, &req.Payload)
	if err := applyReadonly(rec, feeRow); err != nil {
		return nil, nil, false, err
	}
	rec.PrefillSnapshot = buildSnapshot(baseRow, feeRow)
	return rec, oldFlat, isNew, nil
}

func (s *Service) persist(
	ctx context.Context,
	rec *model.Record,
	oldFlat map[string]*string,
	isNew bool,
	session *model.Session,
	req *model.RecordSaveRequest,
) (*model.RecordResponse, error) {
	if isNew {
		if err := s.records.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to create record: %w", err)
		}
	} else {
		err := s.records.Update(ctx, rec, *req.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.VersionConflict("版本冲突，请刷新后重试", map[string]interface{}{"current_version": rec.Version})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update record: %w", err)
		}
	}

	if err := s.writeAudits(ctx, rec, oldFlat, flattenRecord(rec), session); err != nil {
		s.logger.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to write field audits")
	}
	return toResponse(rec)
}

func (s *Service) ensureAccess(ctx context.Context, patientNo string, session *model.Session) (rowmap.Row, error) {
	baseRow, err := s.adapter.FetchBaseInfo(ctx, patientNo)
	if err != nil {
		return nil, apperrors.External("外部数据暂不可用，请稍后重试", err)
	}
	if baseRow == nil {
		return nil, apperrors.NotFound("未找到就诊记录")
	}
	if err := auth.ValidatePatientAccess(session, prefill.VisitContext(baseRow)); err != nil {
		return nil, err
	}
	return baseRow, nil
}

func (s *Service) newRecord(ctx context.Context, patientNo string, session *model.Session, baseRow rowmap.Row) (*model.Record, error) {
	zzjgdm := rowmap.String(rowmap.FirstValue(baseRow, "ZZJGDM", "zzjgdm"))
	if zzjgdm == "" {
		return nil, apperrors.External("外部数据缺少组织机构代码", nil)
	}
	jgmc := rowmap.String(rowmap.FirstValue(baseRow, "JGMC", "jgmc"))
	org, err := s.records.EnsureOrg(ctx, zzjgdm, jgmc)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure org: %w", err)
	}

	visitTime, ok := rowmap.Time(rowmap.FirstValue(baseRow, "JZSJ", "jzsj"))
	if !ok {
		return nil, apperrors.External("外部数据缺少就诊时间", nil)
	}

	return &model.Record{
		OrgID:     org.ID,
		PatientNo: patientNo,
		VisitTime: visitTime,
		Status:    model.RecordStatusDraft,
		DeptCode:  session.DeptCode,
		DocCode:   session.DocCode,
		Version:   1,
	}, nil
}

// checkVersion guards updates: a missing or stale version is a conflict,
// never a silent overwrite.
func checkVersion(rec *model.Record, provided *int) error {
	if provided == nil {
		return apperrors.VersionConflict("缺少 version 参数", nil)
	}
	if rec.Version != *provided {
		return apperrors.VersionConflict("版本冲突，请刷新后重试", map[string]interface{}{"current_version": rec.Version})
	}
	return nil
}

// applyPayload replaces the editable sections wholesale. Sequence
// numbers are renumbered 1..n per group, preserving the caller's order.
func applyPayload(rec *model.Record, payload *model.RecordPayload) {
	rec.BaseInfo = baseInfoFromPayload(rec.ID, &payload.BaseInfo)

	grouped := make(map[model.DiagType][]model.DiagnosisItem)
	var typeOrder []model.DiagType
	for _, item := range payload.Diagnoses {
		if _, seen := grouped[item.DiagType]; !seen {
			typeOrder = append(typeOrder, item.DiagType)
		}
		grouped[item.DiagType] = append(grouped[item.DiagType], item)
	}

	rec.Diagnoses = nil
	for _, diagType := range typeOrder {
		items := grouped[diagType]
		sort.SliceStable(items, func(i, j int) bool { return items[i].SeqNo < items[j].SeqNo })
		for i, item := range items {
			rec.Diagnoses = append(rec.Diagnoses, &model.Diagnosis{
				RecordID: rec.ID,
				DiagType: diagType,
				SeqNo:    i + 1,
				DiagName: item.DiagName,
				DiagCode: item.DiagCode,
				Source:   model.SourceManual,
			})
		}
	}

	ops := append([]model.TcmOperationItem(nil), payload.TcmOperations...)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].SeqNo < ops[j].SeqNo })
	rec.TcmOperations = nil
	for i, item := range ops {
		rec.TcmOperations = append(rec.TcmOperations, &model.TcmOperation{
			RecordID: rec.ID,
			SeqNo:    i + 1,
			OpName:   item.OpName,
			OpCode:   item.OpCode,
			OpTimes:  item.OpTimes,
			OpDays:   item.OpDays,
			Source:   model.SourceManual,
		})
	}

	surgeries := append([]model.SurgeryItem(nil), payload.Surgeries...)
	sort.SliceStable(surgeries, func(i, j int) bool { return surgeries[i].SeqNo < surgeries[j].SeqNo })
	rec.Surgeries = nil
	for i, item := range surgeries {
		rec.Surgeries = append(rec.Surgeries, &model.Surgery{
			RecordID:         rec.ID,
			SeqNo:            i + 1,
			OpName:           item.OpName,
			OpCode:           item.OpCode,
			OpTime:           item.OpTime,
			OperatorName:     item.OperatorName,
			AnesthesiaMethod: item.AnesthesiaMethod,
			AnesthesiaDoctor: item.AnesthesiaDoctor,
			SurgeryLevel:     item.SurgeryLevel,
			Source:           model.SourceManual,
		})
	}

	herbs := append([]model.HerbDetailItem(nil), payload.HerbDetails...)
	sort.SliceStable(herbs, func(i, j int) bool { return herbs[i].SeqNo < herbs[j].SeqNo })
	rec.HerbDetails = nil
	for i, item := range herbs {
		rec.HerbDetails = append(rec.HerbDetails, &model.HerbDetail{
			RecordID:  rec.ID,
			SeqNo:     i + 1,
			HerbType:  item.HerbType,
			RouteCode: item.RouteCode,
			RouteName: item.RouteName,
			DoseCount: item.DoseCount,
			Source:    model.SourceManual,
		})
	}
}

// applyReadonly refreshes the fee and medication sections from the fee
// feed. They are never taken from user input.
func applyReadonly(rec *model.Record, feeRow rowmap.Row) error {
	if feeRow == nil {
		return nil
	}
	fee, err := prefill.BuildFeeSummary(feeRow)
	if err != nil {
		return err
	}
	fee.RecordID = rec.ID
	rec.FeeSummary = fee

	med := prefill.BuildMedicationSummary(feeRow)
	med.RecordID = rec.ID
	rec.MedicationSummary = med
	return nil
}

func buildSnapshot(baseRow, feeRow rowmap.Row) json.RawMessage {
	snapshot := map[string]interface{}{
		"base_info":   baseRow,
		"patient_fee": feeRow,
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil
	}
	return raw
}

func (s *Service) writeAudits(ctx context.Context, rec *model.Record, old, current map[string]*string, session *model.Session) error {
	keys := make(map[string]struct{}, len(old)+len(current))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range current {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []model.FieldAudit
	for _, key := range sorted {
		oldVal, newVal := old[key], current[key]
		if equalValue(oldVal, newVal) {
			continue
		}
		source := model.SourceManual
		if strings.HasPrefix(key, "fee_summary.") || strings.HasPrefix(key, "medication_summary.") {
			source = model.SourcePrefill
		}
		changes = append(changes, model.FieldAudit{
			RecordID:     rec.ID,
			FieldKey:     key,
			OldValue:     oldVal,
			NewValue:     newVal,
			ChangeSource: source,
			OperatorCode: session.Operator(),
		})
	}
	if len(changes) == 0 {
		return nil
	}
	return s.audits.CreateBatch(ctx, changes)
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func baseInfoFromPayload(recordID int64, p *model.BaseInfoPayload) *model.BaseInfo {
	return &model.BaseInfo{
		RecordID: recordID,
		Username: p.Username,
		Jzkh:     p.Jzkh,
		Xm:       p.Xm,
		Xb:       p.Xb,
		Csrq:     p.Csrq,
		Hy:       p.Hy,
		Gj:       p.Gj,
		Mz:       p.Mz,
		Zjlb:     p.Zjlb,
		Zjhm:     p.Zjhm,
		Xzz:      p.Xzz,
		Lxdh:     p.Lxdh,
		Ywgms:    p.Ywgms,
		Gmyw:     p.Gmyw,
		Qtgms:    p.Qtgms,
		Qtgmy:    p.Qtgmy,
		Ghsj:     p.Ghsj,
		Bdsj:     p.Bdsj,
		Jzsj:     p.Jzsj,
		Jzks:     p.Jzks,
		Jzksdm:   p.Jzksdm,
		Jzys:     p.Jzys,
		Jzyszc:   p.Jzyszc,
		Jzlx:     p.Jzlx,
		Fz:       p.Fz,
		Sy:       p.Sy,
		Mzmtbhz:  p.Mzmtbhz,
		Jzhzfj:   p.Jzhzfj,
		Jzhzqx:   p.Jzhzqx,
		Zyzkjsj:  p.Zyzkjsj,
		Hzzs:     p.Hzzs,
	}
}

func toResponse(rec *model.Record) (*model.RecordResponse, error) {
	if rec.BaseInfo == nil {
		return nil, apperrors.Internal("记录缺少基础信息", nil)
	}

	payload := model.RecordPayload{
		BaseInfo: payloadFromBaseInfo(rec.BaseInfo),
	}

	diagnoses := append([]*model.Diagnosis(nil), rec.Diagnoses...)
	sort.SliceStable(diagnoses, func(i, j int) bool {
		if diagnoses[i].DiagType != diagnoses[j].DiagType {
			return diagnoses[i].DiagType < diagnoses[j].DiagType
		}
		return diagnoses[i].SeqNo < diagnoses[j].SeqNo
	})
	for _, d := range diagnoses {
		payload.Diagnoses = append(payload.Diagnoses, model.DiagnosisItem{
			DiagType: d.DiagType, SeqNo: d.SeqNo, DiagName: d.DiagName, DiagCode: d.DiagCode,
		})
	}

	ops := append([]*model.TcmOperation(nil), rec.TcmOperations...)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].SeqNo < ops[j].SeqNo })
	for _, o := range ops {
		payload.TcmOperations = append(payload.TcmOperations, model.TcmOperationItem{
			SeqNo: o.SeqNo, OpName: o.OpName, OpCode: o.OpCode, OpTimes: o.OpTimes, OpDays: o.OpDays,
		})
	}

	surgeries := append([]*model.Surgery(nil), rec.Surgeries...)
	sort.SliceStable(surgeries, func(i, j int) bool { return surgeries[i].SeqNo < surgeries[j].SeqNo })
	for _, sg := range surgeries {
		payload.Surgeries = append(payload.Surgeries, model.SurgeryItem{
			SeqNo:            sg.SeqNo,
			OpName:           sg.OpName,
			OpCode:           sg.OpCode,
			OpTime:           sg.OpTime,
			OperatorName:     sg.OperatorName,
			AnesthesiaMethod: sg.AnesthesiaMethod,
			AnesthesiaDoctor: sg.AnesthesiaDoctor,
			SurgeryLevel:     sg.SurgeryLevel,
		})
	}

	herbs := append([]*model.HerbDetail(nil), rec.HerbDetails...)
	sort.SliceStable(herbs, func(i, j int) bool { return herbs[i].SeqNo < herbs[j].SeqNo })
	for _, h := range herbs {
		payload.HerbDetails = append(payload.HerbDetails, model.HerbDetailItem{
			SeqNo: h.SeqNo, HerbType: h.HerbType, RouteCode: h.RouteCode, RouteName: h.RouteName, DoseCount: h.DoseCount,
		})
	}

	return &model.RecordResponse{
		Record: model.RecordMeta{
			RecordID:    rec.ID,
			PatientNo:   rec.PatientNo,
			Status:      rec.Status,
			Version:     rec.Version,
			VisitTime:   rec.VisitTime,
			SubmittedAt: rec.SubmittedAt,
		},
		Payload:           payload,
		MedicationSummary: rec.MedicationSummary,
		FeeSummary:        rec.FeeSummary,
		PrefillSnapshot:   rec.PrefillSnapshot,
	}, nil
}

func payloadFromBaseInfo(b *model.BaseInfo) model.BaseInfoPayload {
	return model.BaseInfoPayload{
		Username: b.Username,
		Jzkh:     b.Jzkh,
		Xm:       b.Xm,
		Xb:       b.Xb,
		Csrq:     b.Csrq,
		Hy:       b.Hy,
		Gj:       b.Gj,
		Mz:       b.Mz,
		Zjlb:     b.Zjlb,
		Zjhm:     b.Zjhm,
		Xzz:      b.Xzz,
		Lxdh:     b.Lxdh,
		Ywgms:    b.Ywgms,
		Gmyw:     b.Gmyw,
		Qtgms:    b.Qtgms,
		Qtgmy:    b.Qtgmy,
		Ghsj:     b.Ghsj,
		Bdsj:     b.Bdsj,
		Jzsj:     b.Jzsj,
		Jzks:     b.Jzks,
		Jzksdm:   b.Jzksdm,
		Jzys:     b.Jzys,
		Jzyszc:   b.Jzyszc,
		Jzlx:     b.Jzlx,
		Fz:       b.Fz,
		Sy:       b.Sy,
		Mzmtbhz:  b.Mzmtbhz,
		Jzhzfj:   b.Jzhzfj,
		Jzhzqx:   b.Jzhzqx,
		Zyzkjsj:  b.Zyzkjsj,
		Hzzs:     b.Hzzs,
	}
}
