package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzemr/record-api/internal/model"
)

// fakeDicts serves dictionary lookups from fixed maps, keyed set:code.
type fakeDicts struct {
	codes map[string]bool
	names map[string]string
	err   error
}

func (f *fakeDicts) CodeExists(_ context.Context, setCode, code string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.codes[setCode+":"+code], nil
}

func (f *fakeDicts) CanonicalName(_ context.Context, setCode, code string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	name, ok := f.names[setCode+":"+code]
	return name, ok, nil
}

func testDicts() *fakeDicts {
	codes := map[string]bool{
		"RC001:1": true, "RC001:2": true,
		"RC002:2":  true,
		"RC035:01": true,
		"RC038:1":  true,
		"RC037:1":  true, "RC037:2": true,
		"RC041:1": true, "RC041:2": true,
		"RC023:03":  true,
		"RC044:231": true,
		"RC016:1":   true, "RC016:2": true,
		"RC042:3": true,
		"RC045:7": true, "RC045:1": true,
		"COUNTRY:CHN":            true,
		"TCM_DISEASE:A01.02.03":  true,
		"TCM_SYNDROME:B02.03.04": true,
		"ICD10:J06.900":          true,
		"ICD9CM3:81.5400":        true,
		"RC013:1":                true,
		"RC029:2":                true,
		"HERB_TYPE:1":            true,
		"DRUG_ROUTE:1":           true,
	}
	names := map[string]string{
		"DRUG_ROUTE:1": "口服",
	}
	return &fakeDicts{codes: codes, names: names}
}

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// validRecord builds a record that passes every submit rule against
// testDicts.
func validRecord() *model.Record {
	birth := time.Date(1949, 12, 31, 0, 0, 0, 0, time.Local)
	ghsj := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	bdsj := ghsj.Add(10 * time.Minute)
	jzsj := bdsj.Add(20 * time.Minute)

	return &model.Record{
		ID:        1,
		PatientNo: "MZ20260301001",
		Status:    model.RecordStatusDraft,
		BaseInfo: &model.BaseInfo{
			Username: "entry01",
			Jzkh:     "MZ20260301001",
			Xm:       "张三",
			Xb:       "1",
			Csrq:     timePtr(birth),
			Hy:       "2",
			Gj:       "CHN",
			Mz:       "01",
			Zjlb:     "1",
			Zjhm:     "11010519491231002X",
			Xzz:      "北京市东城区某街道1号",
			Lxdh:     "13800000000",
			Ywgms:    "1",
			Ghsj:     timePtr(ghsj),
			Bdsj:     timePtr(bdsj),
			Jzsj:     timePtr(jzsj),
			Jzks:     "针灸科",
			Jzksdm:   "03",
			Jzys:     "李四",
			Jzyszc:   "231",
			Jzlx:     "2",
			Fz:       "2",
			Sy:       "2",
			Mzmtbhz:  "2",
		},
		Diagnoses: []*model.Diagnosis{
			{DiagType: model.DiagTypeTCMDiseaseMain, SeqNo: 1, DiagName: "感冒病", DiagCode: "A01.02.03"},
			{DiagType: model.DiagTypeTCMSyndrome, SeqNo: 1, DiagName: "风寒束表证", DiagCode: "B02.03.04"},
			{DiagType: model.DiagTypeWMMain, SeqNo: 1, DiagName: "急性上呼吸道感染", DiagCode: "J06.900"},
		},
		MedicationSummary: &model.MedicationSummary{
			Xysy: "2", Zcysy: "2", Zyzjsy: "2", Ctypsy: "2", Pfklsy: "2",
		},
		FeeSummary: &model.FeeSummary{
			Zfy:      dec("100.00"),
			Zfje:     dec("20.00"),
			Zlf:      dec("30.00"),
			Fsszlxmf: dec("30.00"),
			Qtf:      dec("70.00"),
		},
	}
}

func TestValidateForSubmitCleanRecord(t *testing.T) {
	engine := NewEngine(testDicts())

	errs, err := engine.ValidateForSubmit(context.Background(), validRecord())
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateForSubmitIsDeterministic(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Xm = ""
	rec.BaseInfo.Lxdh = ""
	rec.Diagnoses = rec.Diagnoses[:1]
	rec.FeeSummary.Zfje = dec("500.00")

	first, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	second, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestValidateForSubmitMissingBaseInfoShortCircuits(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo = nil
	rec.FeeSummary = nil

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "base_info", errs[0].Field)
	assert.Equal(t, model.RuleRequired, errs[0].Rule)
	assert.Equal(t, "缺少基础信息", errs[0].Message)
}

func TestValidateForSubmitRequiredFields(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Xm = ""
	rec.BaseInfo.Zjhm = "-"
	rec.BaseInfo.Jzsj = nil

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	fields := errorFields(errs, model.RuleRequired)
	assert.Contains(t, fields, "base_info.xm")
	assert.Contains(t, fields, "base_info.zjhm")
	assert.Contains(t, fields, "base_info.jzsj")
}

func TestValidateForSubmitFixingAFieldNeverAddsErrors(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Xm = ""
	rec.BaseInfo.Xzz = ""

	before, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	rec.BaseInfo.Xm = "张三"
	after, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	assert.Len(t, after, len(before)-1)
	assert.NotContains(t, errorFields(after, model.RuleRequired), "base_info.xm")
}

func TestValidateForSubmitMaxLengthCountsRunes(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Mz = "汉族"

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errorFields(errs, model.RuleMaxLength), "two chars fit a max of 2 regardless of byte width")

	rec.BaseInfo.Mz = "汉族人"
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	fields := errorFields(errs, model.RuleMaxLength)
	assert.Contains(t, fields, "base_info.mz")
}

func TestValidateForSubmitMaxLengthCountsWhitespace(t *testing.T) {
	engine := NewEngine(testDicts())

	// The limit applies to the stored value as-is; padding is not
	// stripped before counting.
	rec := validRecord()
	rec.BaseInfo.Mz = "汉 "

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errorFields(errs, model.RuleMaxLength))

	rec.BaseInfo.Mz = "汉  "
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, errorFields(errs, model.RuleMaxLength), "base_info.mz")
}

func TestValidateForSubmitTimeOrder(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	base := rec.BaseInfo
	late := base.Jzsj.Add(2 * time.Hour)
	base.Ghsj = timePtr(late)

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	fields := errorFields(errs, model.RuleTimeOrder)
	assert.Contains(t, fields, "base_info.bdsj")
	assert.Contains(t, fields, "base_info.jzsj")

	// Absent endpoints disable the comparison.
	base.Ghsj = nil
	base.Bdsj = nil
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errorFields(errs, model.RuleTimeOrder))
}

func TestValidateForSubmitIDCard(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Zjhm = "110105194912310021"

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, errorFields(errs, model.RuleIDCard), "base_info.zjhm")

	// Non-resident certificate types skip the checksum.
	rec.BaseInfo.Zjlb = "1"
	rec.BaseInfo.Zjhm = "110105491231002"
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errorFields(errs, model.RuleIDCard), "15-digit legacy numbers pass")
}

func TestValidateForSubmitAllergyConditional(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Ywgms = "2"

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, errorFields(errs, model.RuleConditionalRequired), "base_info.gmyw")

	rec.BaseInfo.Gmyw = "青霉素"
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateForSubmitEmergencyConditionals(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Jzlx = "1"

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	fields := errorFields(errs, model.RuleConditionalRequired)
	assert.Contains(t, fields, "base_info.jzhzfj")
	assert.Contains(t, fields, "base_info.jzhzqx")

	// Direction "admitted" additionally demands the admission-slip time.
	rec.BaseInfo.Jzhzfj = "3"
	rec.BaseInfo.Jzhzqx = "7"
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, errorFields(errs, model.RuleConditionalRequired), "base_info.zyzkjsj")

	rec.BaseInfo.Zyzkjsj = timePtr(rec.BaseInfo.Jzsj.Add(time.Hour))
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateForSubmitDiagnosisCardinality(t *testing.T) {
	engine := NewEngine(testDicts())

	// Dropping the syndrome rows yields one anchored error and skips the
	// per-row checks for that type.
	rec := validRecord()
	rec.Diagnoses = []*model.Diagnosis{
		{DiagType: model.DiagTypeTCMDiseaseMain, SeqNo: 1, DiagName: "感冒病", DiagCode: "A01.02.03"},
		{DiagType: model.DiagTypeWMMain, SeqNo: 1, DiagName: "急性上呼吸道感染", DiagCode: "J06.900"},
	}
	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "diagnosis.tcm_syndrome.1.diag_name", errs[0].Field)
	assert.Equal(t, model.RuleRequired, errs[0].Rule)
	require.NotNil(t, errs[0].SeqNo)
	assert.Equal(t, 1, *errs[0].SeqNo)

	// Three syndrome rows exceed the max of two.
	rec = validRecord()
	rec.Diagnoses = append(rec.Diagnoses,
		&model.Diagnosis{DiagType: model.DiagTypeTCMSyndrome, SeqNo: 2, DiagName: "气虚证", DiagCode: "B02.03.04"},
		&model.Diagnosis{DiagType: model.DiagTypeTCMSyndrome, SeqNo: 3, DiagName: "血瘀证", DiagCode: "B02.03.04"},
	)
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	fields := errorFields(errs, model.RuleMaxCount)
	assert.Contains(t, fields, "diagnosis.tcm_syndrome")
}

func TestValidateForSubmitUnknownDiagnosisType(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.Diagnoses = append(rec.Diagnoses,
		&model.Diagnosis{DiagType: "zy_fz", SeqNo: 1, DiagName: "某", DiagCode: "X"},
	)

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	fields := errorFields(errs, model.RuleInvalidType)
	assert.Equal(t, []string{"diagnosis.zy_fz"}, fields)
}

func TestValidateForSubmitDuplicateSeqYieldsOneError(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.Diagnoses = append(rec.Diagnoses,
		&model.Diagnosis{DiagType: model.DiagTypeTCMSyndrome, SeqNo: 1, DiagName: "气虚证", DiagCode: "B02.03.04"},
	)

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	var seqErrs []model.FieldError
	for _, e := range errs {
		if e.Rule == model.RuleSeqNo {
			seqErrs = append(seqErrs, e)
		}
	}
	require.Len(t, seqErrs, 1, "a broken sequence reports exactly one error per group")
	assert.Equal(t, "diagnosis.tcm_syndrome", seqErrs[0].Field)
	assert.Equal(t, "序号重复", seqErrs[0].Message)
}

func TestValidateForSubmitSeqGapYieldsOneError(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.TcmOperations = []*model.TcmOperation{
		{SeqNo: 1, OpName: "针刺", OpCode: "81.5400", OpTimes: intPtr(3)},
		{SeqNo: 3, OpName: "艾灸", OpCode: "81.5400", OpTimes: intPtr(2)},
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	var seqErrs []model.FieldError
	for _, e := range errs {
		if e.Rule == model.RuleSeqNo {
			seqErrs = append(seqErrs, e)
		}
	}
	require.Len(t, seqErrs, 1)
	assert.Equal(t, "tcm_operation", seqErrs[0].Field)
	assert.Equal(t, "序号不连续（禁止跳号空洞）", seqErrs[0].Message)
}

func TestValidateForSubmitTcmOperationRows(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.TcmOperations = []*model.TcmOperation{
		{SeqNo: 1, OpName: "", OpCode: "81.5400", OpTimes: nil, OpDays: intPtr(-1)},
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	assert.Contains(t, errorFields(errs, model.RuleRequired), "tcm_operation.1.op_name")
	rangeFields := errorFields(errs, model.RuleRange)
	assert.Contains(t, rangeFields, "tcm_operation.1.op_times")
	assert.Contains(t, rangeFields, "tcm_operation.1.op_days")
}

func TestValidateForSubmitSurgeryRows(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.Surgeries = []*model.Surgery{
		{
			SeqNo:            1,
			OpName:           "小针刀治疗",
			OpCode:           "81.5400",
			OpTime:           nil,
			OperatorName:     "李四",
			AnesthesiaMethod: "1",
			AnesthesiaDoctor: "",
			SurgeryLevel:     intPtr(-1),
		},
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	requiredFields := errorFields(errs, model.RuleRequired)
	assert.Contains(t, requiredFields, "surgery.1.op_time")
	assert.Contains(t, requiredFields, "surgery.1.anesthesia_doctor")
	assert.Contains(t, errorFields(errs, model.RuleRange), "surgery.1.surgery_level")
}

func TestValidateForSubmitMissingMedicationSummary(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.MedicationSummary = nil

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "medication_summary", errs[0].Field)
	assert.Equal(t, "缺少用药标识（外部数据未返回）", errs[0].Message)
	assert.Equal(t, "用药", errs[0].Section)
}

func TestValidateForSubmitHerbRequiredWhenDecoctionUsed(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.MedicationSummary.Ctypsy = "1"

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, errorFields(errs, model.RuleConditionalRequired), "herb_detail")

	rec.HerbDetails = []*model.HerbDetail{
		{SeqNo: 1, HerbType: "1", RouteCode: "1", RouteName: "口服", DoseCount: intPtr(7)},
	}
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateForSubmitHerbRowCompleteness(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.MedicationSummary.Ctypsy = "1"
	rec.HerbDetails = []*model.HerbDetail{
		{SeqNo: 1, HerbType: "1", RouteCode: "", RouteName: "口服", DoseCount: intPtr(7)},
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	// An incomplete row reports once and skips its field-level checks.
	fields := errorFields(errs, model.RuleRowComplete)
	require.Equal(t, []string{"herb_detail.1"}, fields)
	assert.Empty(t, errorFields(errs, model.RuleRange))
}

func TestValidateForSubmitHerbRouteNameMustMatchCode(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.MedicationSummary.Pfklsy = "1"
	rec.HerbDetails = []*model.HerbDetail{
		{SeqNo: 1, HerbType: "1", RouteCode: "1", RouteName: "外用", DoseCount: intPtr(7)},
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	fields := errorFields(errs, model.RuleDict)
	assert.Equal(t, []string{"herb_detail.1.route_name"}, fields)
}

func TestValidateForSubmitMissingFeeSummary(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.FeeSummary = nil

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "fee_summary", errs[0].Field)
	assert.Equal(t, "缺少费用信息（外部数据未返回）", errs[0].Message)
}

func TestValidateForSubmitFeeRelations(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.FeeSummary = &model.FeeSummary{
		Zfy:   dec("100.00"),
		Zfje:  dec("150.00"),
		Sszlf: dec("10.00"),
		Mzf:   dec("8.00"),
		Ssf:   dec("5.00"),
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	fields := errorFields(errs, model.RuleFeeRelation)
	assert.Contains(t, fields, "fee_summary.zfje")
	assert.Contains(t, fields, "fee_summary.sszlf")

	// Balancing the anesthesia/surgery split clears the relation.
	rec.FeeSummary.Zfje = dec("20.00")
	rec.FeeSummary.Sszlf = dec("13.00")
	errs, err = engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errorFields(errs, model.RuleFeeRelation))
}

func TestValidateForSubmitFeeNegativeAndOverTotal(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.FeeSummary = &model.FeeSummary{
		Zfy:  dec("100.00"),
		Zfje: dec("0.00"),
		Xyf:  dec("-1.00"),
		Qtf:  dec("120.00"),
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	var byField = map[string]string{}
	for _, e := range errs {
		if e.Rule == model.RuleFeeRelation {
			byField[e.Field] = e.Message
		}
	}
	assert.Equal(t, "金额不得为负数", byField["fee_summary.xyf"])
	assert.Equal(t, "分项费用不得大于总费用", byField["fee_summary.qtf"])
	// Line items above the total also break the top-level sum.
	assert.Equal(t, "总费用需满足 ZFY ≥ 分项费用之和", byField["fee_summary.zfy"])
}

func TestValidateForSubmitFeeSubItemsNotDoubleCounted(t *testing.T) {
	engine := NewEngine(testDicts())

	// Sub-therapy fees equal their parent; only the parent counts toward
	// the total.
	rec := validRecord()
	rec.FeeSummary = &model.FeeSummary{
		Zfy:  dec("100.00"),
		Zfje: dec("0.00"),
		Zyzl: dec("60.00"),
		Zywz: dec("30.00"),
		Zygs: dec("30.00"),
		Qtf:  dec("40.00"),
	}

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, errorFields(errs, model.RuleFeeRelation))
}

func TestValidateForSubmitDictChecks(t *testing.T) {
	engine := NewEngine(testDicts())

	rec := validRecord()
	rec.BaseInfo.Xb = "9"
	rec.Diagnoses[2].DiagCode = "Z99.999"

	errs, err := engine.ValidateForSubmit(context.Background(), rec)
	require.NoError(t, err)

	fields := errorFields(errs, model.RuleDict)
	assert.Contains(t, fields, "base_info.xb")
	assert.Contains(t, fields, "diagnosis.wm_main.1.diag_code")
}

func TestValidateForSubmitDictLookupFailure(t *testing.T) {
	dicts := testDicts()
	dicts.err = errors.New("connection refused")
	engine := NewEngine(dicts)

	_, err := engine.ValidateForSubmit(context.Background(), validRecord())
	require.Error(t, err)
}

func errorFields(errs []model.FieldError, rule string) []string {
	var fields []string
	for _, e := range errs {
		if e.Rule == rule {
			fields = append(fields, e.Field)
		}
	}
	return fields
}
