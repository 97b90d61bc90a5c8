package record

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/rowmap"
)

type fakeRecordRepo struct {
	records   map[string]*model.Record
	updateErr error
	created   *model.Record
	updated   *model.Record
	deleted   []int64
	nextID    int64
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[string]*model.Record{}, nextID: 100}
}

func (f *fakeRecordRepo) GetByPatientNo(_ context.Context, patientNo string) (*model.Record, error) {
	rec, ok := f.records[patientNo]
	if !ok {
		return nil, repository.ErrNotFound
	}
	loaded := *rec
	return &loaded, nil
}

func (f *fakeRecordRepo) GetByID(_ context.Context, id int64) (*model.Record, error) {
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRecordRepo) ListByPatientNos(_ context.Context, patientNos []string) ([]*model.Record, error) {
	var out []*model.Record
	for _, no := range patientNos {
		if rec, ok := f.records[no]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Create(_ context.Context, rec *model.Record) error {
	f.nextID++
	rec.ID = f.nextID
	f.created = rec
	committed := *rec
	f.records[rec.PatientNo] = &committed
	return nil
}

// Update mirrors the postgres repository: the compare-and-swap owns the
// version bump, and the store keeps a committed snapshot rather than the
// caller's pointer.
func (f *fakeRecordRepo) Update(_ context.Context, rec *model.Record, expectedVersion int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.records[rec.PatientNo]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	rec.Version = expectedVersion + 1
	f.updated = rec
	committed := *rec
	f.records[rec.PatientNo] = &committed
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, recordID int64) error {
	f.deleted = append(f.deleted, recordID)
	for no, rec := range f.records {
		if rec.ID == recordID {
			delete(f.records, no)
		}
	}
	return nil
}

func (f *fakeRecordRepo) EnsureOrg(_ context.Context, zzjgdm, jgmc string) (*model.Org, error) {
	return &model.Org{ID: 1, Zzjgdm: zzjgdm, Jgmc: jgmc, IsActive: true}, nil
}

type fakeAuditRepo struct {
	batches [][]model.FieldAudit
}

func (f *fakeAuditRepo) CreateBatch(_ context.Context, audits []model.FieldAudit) error {
	f.batches = append(f.batches, audits)
	return nil
}

func (f *fakeAuditRepo) ListByRecordID(_ context.Context, _ int64, _ int) ([]model.FieldAudit, error) {
	return nil, nil
}

type fakeAdapter struct {
	baseRow rowmap.Row
	feeRow  rowmap.Row
	visits  []rowmap.Row
}

func (f *fakeAdapter) FetchBaseInfo(_ context.Context, _ string) (rowmap.Row, error) {
	return f.baseRow, nil
}

func (f *fakeAdapter) FetchPatientFee(_ context.Context, _ string) (rowmap.Row, error) {
	return f.feeRow, nil
}

func (f *fakeAdapter) FetchVisitList(_ context.Context, _, _ time.Time) ([]rowmap.Row, error) {
	return f.visits, nil
}

func (f *fakeAdapter) FetchDiagnoses(_ context.Context, _ string) ([]rowmap.Row, error) {
	return nil, nil
}

func (f *fakeAdapter) FetchChiefComplaint(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakeAdapter) FetchHerbDetails(_ context.Context, _ string) ([]rowmap.Row, error) {
	return nil, nil
}

type stubValidator struct {
	errs []model.FieldError
}

func (s *stubValidator) ValidateForSubmit(_ context.Context, _ *model.Record) ([]model.FieldError, error) {
	return s.errs, nil
}

func adminSession() *model.Session {
	return &model.Session{LoginName: "admin", Roles: []string{model.RoleAdmin}}
}

func doctorSession() *model.Session {
	return &model.Session{LoginName: "doc01", DocCode: "D001", DeptCode: "03", Roles: []string{model.RoleDoctor}}
}

func hisRows() (rowmap.Row, rowmap.Row) {
	base := rowmap.Row{
		"ZZJGDM": "1234567890",
		"JGMC":   "某中医院",
		"JZSJ":   time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local),
		"JZKSDM": "03",
		"jzysdm": "D001",
	}
	fee := rowmap.Row{
		"ZFY":  "100.00",
		"ZFJE": "20.00",
		"XYF":  "30.00",
	}
	return base, fee
}

func savePayload() *model.RecordSaveRequest {
	return &model.RecordSaveRequest{
		Payload: model.RecordPayload{
			BaseInfo: model.BaseInfoPayload{Xm: "张三", Jzkh: "MZ001"},
		},
	}
}

func newTestService(repo *fakeRecordRepo, audits *fakeAuditRepo, validator Validator) *Service {
	base, fee := hisRows()
	return NewService(repo, audits, &fakeAdapter{baseRow: base, feeRow: fee}, validator, zerolog.Nop())
}

func TestSaveDraftCreatesRecord(t *testing.T) {
	repo := newFakeRecordRepo()
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits, &stubValidator{})

	resp, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)

	assert.Equal(t, model.RecordStatusDraft, resp.Record.Status)
	assert.Equal(t, 1, resp.Record.Version)
	require.NotNil(t, repo.created)
	assert.Equal(t, "D001", repo.created.DocCode)

	// Read-only sections come from the feed, not the payload.
	require.NotNil(t, resp.FeeSummary)
	assert.Equal(t, "100", resp.FeeSummary.Zfy.String())
	require.NotNil(t, resp.MedicationSummary)
	assert.Equal(t, "2", resp.MedicationSummary.Xysy)

	// Creation writes one audit batch.
	require.Len(t, audits.batches, 1)
	assert.NotEmpty(t, audits.batches[0])
}

func TestSaveDraftRequiresVersionOnUpdate(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	_, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)

	_, err = svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeVersionConflict, appErr.Code)
	assert.Equal(t, "缺少 version 参数", appErr.Message)
}

func TestSaveDraftStaleVersionConflicts(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	_, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)

	stale := savePayload()
	v := 99
	stale.Version = &v
	_, err = svc.SaveDraft(context.Background(), "MZ001", doctorSession(), stale)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeVersionConflict, appErr.Code)
	detail, ok := appErr.Detail.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, detail["current_version"])
}

func TestSaveDraftBumpsVersion(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	first, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)

	next := savePayload()
	next.Version = &first.Record.Version
	second, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), next)
	require.NoError(t, err)
	assert.Equal(t, first.Record.Version+1, second.Record.Version)
}

// The version a save responds with must be the version the row holds, or
// the client echoing it back would conflict on every following save.
func TestSaveDraftVersionMatchesStored(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	first, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)
	require.Equal(t, repo.records["MZ001"].Version, first.Record.Version)

	next := savePayload()
	next.Version = &first.Record.Version
	second, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), next)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Record.Version)
	assert.Equal(t, repo.records["MZ001"].Version, second.Record.Version)

	third := savePayload()
	third.Version = &second.Record.Version
	_, err = svc.SaveDraft(context.Background(), "MZ001", doctorSession(), third)
	require.NoError(t, err)
}

func TestSaveDraftRegressesSubmitted(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	resp, err := svc.Submit(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)
	assert.Equal(t, model.RecordStatusSubmitted, resp.Record.Status)
	assert.NotNil(t, resp.Record.SubmittedAt)

	next := savePayload()
	next.Version = &resp.Record.Version
	draft, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), next)
	require.NoError(t, err)
	assert.Equal(t, model.RecordStatusDraft, draft.Record.Status)
	assert.Nil(t, draft.Record.SubmittedAt)
}

func TestSubmitBlockedByValidation(t *testing.T) {
	repo := newFakeRecordRepo()
	validator := &stubValidator{errs: []model.FieldError{
		{Field: "base_info.xm", Message: "必填项缺失", Rule: model.RuleRequired, Section: "基础信息"},
	}}
	svc := newTestService(repo, &fakeAuditRepo{}, validator)

	_, err := svc.Submit(context.Background(), "MZ001", doctorSession(), savePayload())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	detail, ok := appErr.Detail.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, detail["errors"], 1)

	// A failed submit never persists.
	assert.Nil(t, repo.created)
}

func TestSaveDraftRenumbersSequences(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	req := savePayload()
	req.Payload.TcmOperations = []model.TcmOperationItem{
		{SeqNo: 5, OpName: "艾灸"},
		{SeqNo: 2, OpName: "针刺"},
	}
	req.Payload.Diagnoses = []model.DiagnosisItem{
		{DiagType: model.DiagTypeTCMSyndrome, SeqNo: 9, DiagName: "风寒束表证"},
		{DiagType: model.DiagTypeTCMDiseaseMain, SeqNo: 3, DiagName: "感冒病"},
	}

	resp, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), req)
	require.NoError(t, err)

	require.Len(t, resp.Payload.TcmOperations, 2)
	assert.Equal(t, "针刺", resp.Payload.TcmOperations[0].OpName)
	assert.Equal(t, 1, resp.Payload.TcmOperations[0].SeqNo)
	assert.Equal(t, "艾灸", resp.Payload.TcmOperations[1].OpName)
	assert.Equal(t, 2, resp.Payload.TcmOperations[1].SeqNo)

	// Renumbering is per diagnosis group.
	for _, d := range resp.Payload.Diagnoses {
		assert.Equal(t, 1, d.SeqNo)
	}
}

func TestGetUnknownRecord(t *testing.T) {
	svc := newTestService(newFakeRecordRepo(), &fakeAuditRepo{}, &stubValidator{})

	_, err := svc.Get(context.Background(), "NOPE", adminSession())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestAccessDeniedForOtherDoctor(t *testing.T) {
	svc := newTestService(newFakeRecordRepo(), &fakeAuditRepo{}, &stubValidator{})

	other := &model.Session{LoginName: "doc02", DocCode: "D002", DeptCode: "05", Roles: []string{model.RoleDoctor}}
	_, err := svc.SaveDraft(context.Background(), "MZ001", other, savePayload())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestResetRequiresAdmin(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestService(repo, &fakeAuditRepo{}, &stubValidator{})

	_, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)

	_, err = svc.Reset(context.Background(), "MZ001", doctorSession())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	result, err := svc.Reset(context.Background(), "MZ001", adminSession())
	require.NoError(t, err)
	require.NotNil(t, result.DeletedRecordID)
	assert.Len(t, repo.deleted, 1)
}

func TestResetUnknownPatientIsNoop(t *testing.T) {
	svc := newTestService(newFakeRecordRepo(), &fakeAuditRepo{}, &stubValidator{})

	result, err := svc.Reset(context.Background(), "NOPE", adminSession())
	require.NoError(t, err)
	assert.Nil(t, result.DeletedRecordID)
}

func TestAuditDiffMarksPrefillChanges(t *testing.T) {
	repo := newFakeRecordRepo()
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits, &stubValidator{})

	_, err := svc.SaveDraft(context.Background(), "MZ001", doctorSession(), savePayload())
	require.NoError(t, err)

	require.Len(t, audits.batches, 1)
	sources := map[string]string{}
	for _, a := range audits.batches[0] {
		sources[a.FieldKey] = a.ChangeSource
	}
	assert.Equal(t, model.SourceManual, sources["base_info.xm"])
	assert.Equal(t, model.SourcePrefill, sources["fee_summary.zfy"])
	assert.Equal(t, model.SourcePrefill, sources["medication_summary.xysy"])
}
