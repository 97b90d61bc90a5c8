// Package prefill assembles entry-form defaults from the HIS reporting
// views: editable header fields, read-only fee and medication data, and
// suggested diagnosis/herb rows.
package prefill

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/internal/external"
	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/service/auth"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/rowmap"
)

// FieldValue is one suggested form value. Readonly values come from the
// fee feed and are re-applied server-side on every save.
type FieldValue struct {
	Value    *string `json:"value"`
	Source   string  `json:"source"`
	Readonly bool    `json:"readonly"`
}

type DiagRow struct {
	SeqNo    int    `json:"seq_no"`
	DiagName string `json:"diag_name"`
	DiagCode string `json:"diag_code"`
}

type HerbRow struct {
	SeqNo     int    `json:"seq_no"`
	HerbType  string `json:"herb_type"`
	RouteCode string `json:"route_code"`
	RouteName string `json:"route_name"`
	DoseCount int    `json:"dose_count"`
}

type Response struct {
	PatientNo string                       `json:"patient_no"`
	VisitTime *time.Time                   `json:"visit_time"`
	Fields    map[string]FieldValue        `json:"fields"`
	Diagnoses map[model.DiagType][]DiagRow `json:"diagnoses"`
	Herbs     []HerbRow                    `json:"herbs"`
}

// Header columns copied verbatim from the master-index view.
var baseFieldCodes = []string{
	"USERNAME", "JZKH", "XM", "XB", "CSRQ", "HY", "GJ", "MZ", "ZJLB",
	"ZJHM", "XZZ", "LXDH", "GHSJ", "BDSJ", "JZSJ", "JZKS", "JZKSDM",
	"JZYS", "JZYSZC", "HZZS",
}

type Service struct {
	adapter external.DataAdapter
	logger  zerolog.Logger
}

func NewService(adapter external.DataAdapter, logger zerolog.Logger) *Service {
	return &Service{
		adapter: adapter,
		logger:  logger.With().Str("component", "prefill").Logger(),
	}
}

// Prefill loads everything the entry form needs for one visit. The base
// row is fetched first for the access check; the slower feeds run
// concurrently after it passes.
func (s *Service) Prefill(ctx context.Context, patientNo string, session *model.Session) (*Response, error) {
	baseRow, err := s.adapter.FetchBaseInfo(ctx, patientNo)
	if err != nil {
		return nil, apperrors.External("外部数据暂不可用，请稍后重试", err)
	}
	if baseRow == nil {
		return nil, apperrors.NotFound("未找到就诊记录")
	}
	if err := auth.ValidatePatientAccess(session, VisitContext(baseRow)); err != nil {
		return nil, err
	}

	var (
		wg                 sync.WaitGroup
		feeRow             rowmap.Row
		diagRows, herbRows []rowmap.Row
		chief              string
		feeErr, diagErr    error
		chiefErr, herbErr  error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		feeRow, feeErr = s.adapter.FetchPatientFee(ctx, patientNo)
	}()
	go func() {
		defer wg.Done()
		diagRows, diagErr = s.adapter.FetchDiagnoses(ctx, patientNo)
	}()
	go func() {
		defer wg.Done()
		chief, chiefErr = s.adapter.FetchChiefComplaint(ctx, patientNo)
	}()
	go func() {
		defer wg.Done()
		herbRows, herbErr = s.adapter.FetchHerbDetails(ctx, patientNo)
	}()
	wg.Wait()

	for _, err := range []error{feeErr, diagErr, chiefErr, herbErr} {
		if err != nil {
			return nil, apperrors.External("外部数据暂不可用，请稍后重试", err)
		}
	}

	resp := &Response{
		PatientNo: patientNo,
		Fields:    s.buildFields(baseRow, feeRow, chief),
		Diagnoses: buildDiagnosisLists(diagRows),
		Herbs:     buildHerbList(herbRows),
	}
	if t, ok := rowmap.Time(rowmap.FirstValue(baseRow, "JZSJ", "jzsj")); ok {
		resp.VisitTime = &t
	}
	return resp, nil
}

func (s *Service) buildFields(baseRow, feeRow rowmap.Row, chief string) map[string]FieldValue {
	fields := make(map[string]FieldValue)

	for _, code := range baseFieldCodes {
		value := rowmap.String(rowmap.FirstValue(baseRow, code, strings.ToLower(code)))
		fields[code] = FieldValue{Value: strPtr(value), Source: model.SourcePrefill}
	}

	// 住院证开具时间：视图已回填时锁定，避免人工覆盖。
	zyzkjsj := rowmap.String(rowmap.FirstValue(baseRow, "ZYZKJSJ", "zyzkjsj", "ZYZDJSJ", "zyzdjsj"))
	fields["ZYZKJSJ"] = FieldValue{Value: strPtr(zyzkjsj), Source: model.SourcePrefill, Readonly: zyzkjsj != ""}

	// 主诉优先取专门视图的内容，缺失时回退基础视图字段。
	if chief == "" {
		chief = rowmap.String(rowmap.FirstValue(baseRow, "HZZS", "hzzs"))
	}
	fields["HZZS"] = FieldValue{Value: strPtr(chief), Source: model.SourcePrefill}

	if feeRow != nil {
		for _, entry := range feeCandidates {
			value := rowmap.String(rowmap.FirstValue(feeRow, entry.candidates...))
			fields[strings.ToUpper(entry.code)] = FieldValue{Value: strPtr(value), Source: model.SourcePrefill, Readonly: true}
		}
		for _, entry := range medCandidates {
			value := rowmap.String(rowmap.FirstValue(feeRow, entry.candidates...))
			fields[strings.ToUpper(entry.code)] = FieldValue{Value: strPtr(value), Source: model.SourcePrefill, Readonly: true}
		}
	}

	return fields
}

// buildDiagnosisLists sorts the HIS diagnosis rows into the four entry
// groups. Sort markers: D western, B TCM disease, Z TCM syndrome; for
// western rows diagnosis_no 1 is the principal diagnosis.
func buildDiagnosisLists(rows []rowmap.Row) map[model.DiagType][]DiagRow {
	if len(rows) == 0 {
		return map[model.DiagType][]DiagRow{}
	}

	type parsed struct {
		sort string
		no   int
		name string
		code string
	}
	var all []parsed
	for _, row := range rows {
		no, _ := strconv.Atoi(rowmap.String(rowmap.FirstValue(row, "diagnosis_no", "DIAGNOSIS_NO")))
		if no == 0 {
			no = 1
		}
		all = append(all, parsed{
			sort: rowmap.String(rowmap.FirstValue(row, "DIAGNOSIS_HIS_SORT", "sort")),
			no:   no,
			name: rowmap.String(rowmap.FirstValue(row, "diagnosis_name", "DIAGNOSIS_NAME", "diagnosis_desc")),
			code: rowmap.String(rowmap.FirstValue(row, "diagnosis_code", "DIAGNOSIS_CODE")),
		})
	}

	pick := func(marker string, limit int, principalOnly, othersOnly bool) []DiagRow {
		var matched []parsed
		for _, p := range all {
			if p.sort != marker || p.name == "" {
				continue
			}
			if principalOnly && p.no != 1 {
				continue
			}
			if othersOnly && p.no == 1 {
				continue
			}
			matched = append(matched, p)
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].no < matched[j].no })
		if limit > 0 && len(matched) > limit {
			matched = matched[:limit]
		}
		out := make([]DiagRow, len(matched))
		for i, p := range matched {
			out[i] = DiagRow{SeqNo: i + 1, DiagName: p.name, DiagCode: p.code}
		}
		return out
	}

	return map[model.DiagType][]DiagRow{
		model.DiagTypeTCMDiseaseMain: pick("B", 1, false, false),
		model.DiagTypeTCMSyndrome:    pick("Z", 2, false, false),
		model.DiagTypeWMMain:         pick("D", 1, true, false),
		model.DiagTypeWMOther:        pick("D", 0, false, true),
	}
}

func buildHerbList(rows []rowmap.Row) []HerbRow {
	if len(rows) == 0 {
		return nil
	}

	sorted := append([]rowmap.Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := strconv.Atoi(rowmap.String(rowmap.FirstValue(sorted[i], "xh", "XH")))
		b, _ := strconv.Atoi(rowmap.String(rowmap.FirstValue(sorted[j], "xh", "XH")))
		return a < b
	})
	if len(sorted) > 40 {
		sorted = sorted[:40]
	}

	out := make([]HerbRow, len(sorted))
	for i, row := range sorted {
		dose, _ := strconv.Atoi(rowmap.String(rowmap.FirstValue(row, "YYJS", "yyjs")))
		out[i] = HerbRow{
			SeqNo:     i + 1,
			HerbType:  rowmap.String(rowmap.FirstValue(row, "ZCYLB", "zcylb")),
			RouteCode: rowmap.String(rowmap.FirstValue(row, "YYTJDM", "yytjdm")),
			RouteName: rowmap.String(rowmap.FirstValue(row, "YYTJMC", "yytjmc")),
			DoseCount: dose,
		}
	}
	return out
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
