package prefill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzemr/record-api/internal/model"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/rowmap"
)

type fakeAdapter struct {
	baseRow  rowmap.Row
	feeRow   rowmap.Row
	diagRows []rowmap.Row
	herbRows []rowmap.Row
	chief    string
	feeErr   error
}

func (f *fakeAdapter) FetchBaseInfo(_ context.Context, _ string) (rowmap.Row, error) {
	return f.baseRow, nil
}

func (f *fakeAdapter) FetchPatientFee(_ context.Context, _ string) (rowmap.Row, error) {
	return f.feeRow, f.feeErr
}

func (f *fakeAdapter) FetchVisitList(_ context.Context, _, _ time.Time) ([]rowmap.Row, error) {
	return nil, nil
}

func (f *fakeAdapter) FetchDiagnoses(_ context.Context, _ string) ([]rowmap.Row, error) {
	return f.diagRows, nil
}

func (f *fakeAdapter) FetchChiefComplaint(_ context.Context, _ string) (string, error) {
	return f.chief, nil
}

func (f *fakeAdapter) FetchHerbDetails(_ context.Context, _ string) ([]rowmap.Row, error) {
	return f.herbRows, nil
}

func prefillSession() *model.Session {
	return &model.Session{LoginName: "doc01", DocCode: "D001", DeptCode: "03", Roles: []string{model.RoleDoctor}}
}

func baseRow() rowmap.Row {
	return rowmap.Row{
		"XM":     "张三",
		"JZKH":   "MZ001",
		"JZSJ":   time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local),
		"JZKSDM": "03",
		"jzysdm": "D001",
		"HZZS":   "主诉（基础视图）",
	}
}

func newPrefillService(adapter *fakeAdapter) *Service {
	return NewService(adapter, zerolog.Nop())
}

func TestPrefillUnknownVisit(t *testing.T) {
	svc := newPrefillService(&fakeAdapter{})

	_, err := svc.Prefill(context.Background(), "NOPE", prefillSession())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestPrefillAccessDenied(t *testing.T) {
	svc := newPrefillService(&fakeAdapter{baseRow: baseRow()})

	other := &model.Session{LoginName: "doc02", DocCode: "D002", DeptCode: "05", Roles: []string{model.RoleDoctor}}
	_, err := svc.Prefill(context.Background(), "MZ001", other)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestPrefillFeedFailure(t *testing.T) {
	svc := newPrefillService(&fakeAdapter{baseRow: baseRow(), feeErr: errors.New("view timeout")})

	_, err := svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeExternalError, appErr.Code)
}

func TestPrefillBaseFields(t *testing.T) {
	adapter := &fakeAdapter{
		baseRow: baseRow(),
		feeRow:  rowmap.Row{"ZFY": "100.00", "XYSY": "1"},
		chief:   "咳嗽 3 天（专门视图）",
	}
	svc := newPrefillService(adapter)

	resp, err := svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.NoError(t, err)

	assert.Equal(t, "MZ001", resp.PatientNo)
	require.NotNil(t, resp.VisitTime)
	assert.Equal(t, 2026, resp.VisitTime.Year())

	xm := resp.Fields["XM"]
	require.NotNil(t, xm.Value)
	assert.Equal(t, "张三", *xm.Value)
	assert.Equal(t, model.SourcePrefill, xm.Source)
	assert.False(t, xm.Readonly)

	// The dedicated chief-complaint view wins over the base row.
	hzzs := resp.Fields["HZZS"]
	require.NotNil(t, hzzs.Value)
	assert.Equal(t, "咳嗽 3 天（专门视图）", *hzzs.Value)

	// Fee-feed fields arrive read-only.
	zfy := resp.Fields["ZFY"]
	assert.True(t, zfy.Readonly)
	require.NotNil(t, zfy.Value)
	assert.Equal(t, "100.00", *zfy.Value)
	assert.True(t, resp.Fields["XYSY"].Readonly)
}

func TestPrefillChiefFallsBackToBaseRow(t *testing.T) {
	svc := newPrefillService(&fakeAdapter{baseRow: baseRow()})

	resp, err := svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.NoError(t, err)
	require.NotNil(t, resp.Fields["HZZS"].Value)
	assert.Equal(t, "主诉（基础视图）", *resp.Fields["HZZS"].Value)
}

func TestPrefillAdmissionTimeLockedWhenPresent(t *testing.T) {
	row := baseRow()
	row["ZYZKJSJ"] = "2026-03-01 11:00:00"
	svc := newPrefillService(&fakeAdapter{baseRow: row})

	resp, err := svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.NoError(t, err)
	assert.True(t, resp.Fields["ZYZKJSJ"].Readonly)

	// Absent value stays editable.
	svc = newPrefillService(&fakeAdapter{baseRow: baseRow()})
	resp, err = svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.NoError(t, err)
	assert.False(t, resp.Fields["ZYZKJSJ"].Readonly)
}

func TestPrefillDiagnosisGrouping(t *testing.T) {
	diag := func(sortMarker string, no int, name, code string) rowmap.Row {
		return rowmap.Row{
			"DIAGNOSIS_HIS_SORT": sortMarker,
			"diagnosis_no":       no,
			"diagnosis_name":     name,
			"diagnosis_code":     code,
		}
	}
	adapter := &fakeAdapter{
		baseRow: baseRow(),
		diagRows: []rowmap.Row{
			diag("D", 2, "慢性咽炎", "J31.200"),
			diag("D", 1, "急性上呼吸道感染", "J06.900"),
			diag("B", 1, "感冒病", "A01.02.03"),
			diag("Z", 2, "风热犯表证", "B02.03.05"),
			diag("Z", 1, "风寒束表证", "B02.03.04"),
			diag("Z", 3, "多余证候", "B02.03.06"),
		},
	}
	svc := newPrefillService(adapter)

	resp, err := svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.NoError(t, err)

	wmMain := resp.Diagnoses[model.DiagTypeWMMain]
	require.Len(t, wmMain, 1)
	assert.Equal(t, "急性上呼吸道感染", wmMain[0].DiagName)

	wmOther := resp.Diagnoses[model.DiagTypeWMOther]
	require.Len(t, wmOther, 1)
	assert.Equal(t, "慢性咽炎", wmOther[0].DiagName)
	assert.Equal(t, 1, wmOther[0].SeqNo)

	// TCM syndromes cap at two, kept in HIS order.
	syndromes := resp.Diagnoses[model.DiagTypeTCMSyndrome]
	require.Len(t, syndromes, 2)
	assert.Equal(t, "风寒束表证", syndromes[0].DiagName)
	assert.Equal(t, "风热犯表证", syndromes[1].DiagName)

	disease := resp.Diagnoses[model.DiagTypeTCMDiseaseMain]
	require.Len(t, disease, 1)
	assert.Equal(t, "感冒病", disease[0].DiagName)
}

func TestPrefillHerbOrderingAndCap(t *testing.T) {
	herb := func(xh int) rowmap.Row {
		return rowmap.Row{"xh": xh, "ZCYLB": "1", "YYTJDM": "1", "YYTJMC": "口服", "YYJS": 7}
	}
	rows := []rowmap.Row{herb(3), herb(1), herb(2)}
	for i := 4; i <= 45; i++ {
		rows = append(rows, herb(i))
	}
	svc := newPrefillService(&fakeAdapter{baseRow: baseRow(), herbRows: rows})

	resp, err := svc.Prefill(context.Background(), "MZ001", prefillSession())
	require.NoError(t, err)

	require.Len(t, resp.Herbs, 40)
	assert.Equal(t, 1, resp.Herbs[0].SeqNo)
	assert.Equal(t, "口服", resp.Herbs[0].RouteName)
	assert.Equal(t, 7, resp.Herbs[0].DoseCount)
}
