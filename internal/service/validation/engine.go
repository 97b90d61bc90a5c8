package validation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mzemr/record-api/internal/model"
)

// DictLookup resolves codes against the governing code sets. The engine
// only needs existence and the canonical display name; the dict service
// provides a cached implementation.
type DictLookup interface {
	CodeExists(ctx context.Context, setCode, code string) (bool, error)
	CanonicalName(ctx context.Context, setCode, code string) (string, bool, error)
}

// Engine runs the final admission checks shared by submit, export and
// print. It is stateless and safe for concurrent use.
type Engine struct {
	dicts DictLookup
}

func NewEngine(dicts DictLookup) *Engine {
	return &Engine{dicts: dicts}
}

// collector accumulates field errors in rule-evaluation order, which is
// fixed, so validating the same record twice yields the same list.
type collector struct {
	errors []model.FieldError
}

func (c *collector) add(field, message, section, rule string, seqNo *int) {
	c.errors = append(c.errors, model.FieldError{
		Field:   field,
		Message: message,
		Section: section,
		Rule:    rule,
		SeqNo:   seqNo,
	})
}

// missing reports whether a captured value counts as absent. The HIS
// feed uses a literal "-" as its null marker.
func missing(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || trimmed == "-"
}

// runeLen counts characters, not bytes. Length limits come from the
// upload interface and are defined over characters.
func runeLen(value string) int {
	return utf8.RuneCountInString(value)
}

func seqPtr(seq int) *int {
	return &seq
}

// ValidateForSubmit runs every rule against a fully loaded record and
// returns the ordered error list. The returned error is non-nil only
// when a dictionary lookup itself fails; rule violations are data, not
// errors.
func (e *Engine) ValidateForSubmit(ctx context.Context, rec *model.Record) ([]model.FieldError, error) {
	c := &collector{}

	if rec.BaseInfo == nil {
		c.add("base_info", "缺少基础信息", sectionBaseInfo, ruleRequired, nil)
		return c.errors, nil
	}

	e.validateBaseInfo(rec.BaseInfo, c)
	e.validateDiagnoses(rec, c)
	e.validateTcmOperations(rec, c)
	e.validateSurgeries(rec, c)
	e.validateMedicationAndHerbs(rec, c)
	e.validateFeeSummary(rec.FeeSummary, c)

	if err := e.validateDictCodes(ctx, rec, c); err != nil {
		return nil, err
	}
	return c.errors, nil
}

func (e *Engine) validateBaseInfo(base *model.BaseInfo, c *collector) {
	for _, field := range requiredBaseFields {
		var absent bool
		switch field {
		case "csrq":
			absent = base.Csrq == nil
		case "jzsj":
			absent = base.Jzsj == nil
		default:
			absent = missing(base.Field(field))
		}
		if absent {
			c.add("base_info."+field, "必填项缺失", sectionBaseInfo, ruleRequired, nil)
		}
	}

	for _, lim := range baseMaxLens {
		value := base.Field(lim.field)
		if missing(value) {
			continue
		}
		if runeLen(value) > lim.max {
			c.add("base_info."+lim.field, fmt.Sprintf("长度超限（最大 %d）", lim.max), sectionBaseInfo, ruleMaxLength, nil)
		}
	}

	// 时间顺序：JZSJ ≥ BDSJ ≥ GHSJ，仅在两端都存在时校验。
	if base.Ghsj != nil && base.Bdsj != nil && base.Bdsj.Before(*base.Ghsj) {
		c.add("base_info.bdsj", "报到时间不得早于挂号时间", sectionBaseInfo, ruleTimeOrder, nil)
	}
	if base.Bdsj != nil && base.Jzsj != nil && base.Jzsj.Before(*base.Bdsj) {
		c.add("base_info.jzsj", "就诊时间不得早于报到时间", sectionBaseInfo, ruleTimeOrder, nil)
	}
	if base.Ghsj != nil && base.Jzsj != nil && base.Jzsj.Before(*base.Ghsj) {
		c.add("base_info.jzsj", "就诊时间不得早于挂号时间", sectionBaseInfo, ruleTimeOrder, nil)
	}

	if base.Zjlb == codeResidentIDCard && !missing(base.Zjhm) {
		if !ValidResidentID(base.Zjhm) {
			c.add("base_info.zjhm", "身份证号格式或校验位不正确", sectionBaseInfo, ruleIDCard, nil)
		}
	}

	if strings.TrimSpace(base.Ywgms) == codeAllergyYes && missing(base.Gmyw) {
		c.add("base_info.gmyw", "药物过敏史为“有”时，过敏药物必填", sectionBaseInfo, ruleConditionalRequired, nil)
	}
	if !missing(base.Qtgms) && strings.TrimSpace(base.Qtgms) == codeAllergyYes && missing(base.Qtgmy) {
		c.add("base_info.qtgmy", "其他过敏史为“有”时，其他过敏原必填", sectionBaseInfo, ruleConditionalRequired, nil)
	}

	if strings.TrimSpace(base.Jzlx) == codeEmergencyVisit {
		if missing(base.Jzhzfj) {
			c.add("base_info.jzhzfj", "急诊就诊类型下，急诊患者分级必填", sectionBaseInfo, ruleConditionalRequired, nil)
		}
		if missing(base.Jzhzqx) {
			c.add("base_info.jzhzqx", "急诊就诊类型下，急诊患者去向必填", sectionBaseInfo, ruleConditionalRequired, nil)
		}
	}

	if !missing(base.Jzhzqx) && strings.TrimSpace(base.Jzhzqx) == codeAdmittedViaER && base.Zyzkjsj == nil {
		c.add("base_info.zyzkjsj", "急诊患者去向为“急诊转入院”时，住院证开具时间必填", sectionBaseInfo, ruleConditionalRequired, nil)
	}
}

func (e *Engine) validateDiagnoses(rec *model.Record, c *collector) {
	grouped := rec.DiagnosesByType()

	allowed := make(map[model.DiagType]bool, len(diagRules))
	for _, rule := range diagRules {
		allowed[rule.diagType] = true
	}
	unknown := make([]string, 0)
	for diagType := range grouped {
		if !allowed[diagType] {
			unknown = append(unknown, string(diagType))
		}
	}
	sort.Strings(unknown)
	for _, diagType := range unknown {
		c.add("diagnosis."+diagType, "不支持的诊断类型", sectionDiagnosis, ruleInvalidType, nil)
	}

	for _, rule := range diagRules {
		rows := append([]*model.Diagnosis(nil), grouped[rule.diagType]...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].SeqNo < rows[j].SeqNo })

		prefix := "diagnosis." + string(rule.diagType)
		if len(rows) < rule.min {
			c.add(prefix+".1.diag_name", "必填项缺失", sectionDiagnosis, ruleRequired, seqPtr(1))
			continue
		}
		if len(rows) > rule.max {
			c.add(prefix, fmt.Sprintf("条数超限（最多 %d 条）", rule.max), sectionDiagnosis, ruleMaxCount, nil)
		}

		seqs := make([]int, len(rows))
		for i, d := range rows {
			seqs[i] = d.SeqNo
		}
		c.checkSeqNos(seqs, prefix, sectionDiagnosis)

		for _, diag := range rows {
			rowField := fmt.Sprintf("%s.%d.", prefix, diag.SeqNo)
			if missing(diag.DiagName) {
				c.add(rowField+"diag_name", "必填项缺失", sectionDiagnosis, ruleRequired, seqPtr(diag.SeqNo))
			} else if runeLen(diag.DiagName) > rule.nameMax {
				c.add(rowField+"diag_name", fmt.Sprintf("长度超限（最大 %d）", rule.nameMax), sectionDiagnosis, ruleMaxLength, seqPtr(diag.SeqNo))
			}

			if rule.codeRequired && missing(diag.DiagCode) {
				c.add(rowField+"diag_code", "必填项缺失", sectionDiagnosis, ruleRequired, seqPtr(diag.SeqNo))
			}
			if !missing(diag.DiagCode) && runeLen(diag.DiagCode) > rule.codeMax {
				c.add(rowField+"diag_code", fmt.Sprintf("长度超限（最大 %d）", rule.codeMax), sectionDiagnosis, ruleMaxLength, seqPtr(diag.SeqNo))
			}
		}
	}
}

func (e *Engine) validateTcmOperations(rec *model.Record, c *collector) {
	ops := append([]*model.TcmOperation(nil), rec.TcmOperations...)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].SeqNo < ops[j].SeqNo })

	if len(ops) > maxTcmOperations {
		c.add("tcm_operation", fmt.Sprintf("中医治疗性操作最多 %d 条", maxTcmOperations), sectionTreatment, ruleMaxCount, nil)
	}

	seqs := make([]int, len(ops))
	for i, op := range ops {
		seqs[i] = op.SeqNo
	}
	c.checkSeqNos(seqs, "tcm_operation", sectionTreatment)

	for _, op := range ops {
		rowField := fmt.Sprintf("tcm_operation.%d.", op.SeqNo)
		if missing(op.OpName) {
			c.add(rowField+"op_name", "必填项缺失", sectionTreatment, ruleRequired, seqPtr(op.SeqNo))
		} else if runeLen(op.OpName) > 100 {
			c.add(rowField+"op_name", "长度超限（最大 100）", sectionTreatment, ruleMaxLength, seqPtr(op.SeqNo))
		}

		if missing(op.OpCode) {
			c.add(rowField+"op_code", "必填项缺失", sectionTreatment, ruleRequired, seqPtr(op.SeqNo))
		} else if runeLen(op.OpCode) > 20 {
			c.add(rowField+"op_code", "长度超限（最大 20）", sectionTreatment, ruleMaxLength, seqPtr(op.SeqNo))
		}

		if op.OpTimes == nil || *op.OpTimes < 0 {
			c.add(rowField+"op_times", "操作次数需为非负整数", sectionTreatment, ruleRange, seqPtr(op.SeqNo))
		}
		if op.OpDays != nil && *op.OpDays < 0 {
			c.add(rowField+"op_days", "操作天数需为非负整数", sectionTreatment, ruleRange, seqPtr(op.SeqNo))
		}
	}
}

func (e *Engine) validateSurgeries(rec *model.Record, c *collector) {
	surgeries := append([]*model.Surgery(nil), rec.Surgeries...)
	sort.SliceStable(surgeries, func(i, j int) bool { return surgeries[i].SeqNo < surgeries[j].SeqNo })

	if len(surgeries) > maxSurgeries {
		c.add("surgery", fmt.Sprintf("手术/操作最多 %d 条", maxSurgeries), sectionSurgery, ruleMaxCount, nil)
	}

	seqs := make([]int, len(surgeries))
	for i, s := range surgeries {
		seqs[i] = s.SeqNo
	}
	c.checkSeqNos(seqs, "surgery", sectionSurgery)

	for _, s := range surgeries {
		rowField := fmt.Sprintf("surgery.%d.", s.SeqNo)
		requiredStr := []struct {
			key, value, message string
			max                 int
		}{
			{"op_name", s.OpName, "手术/操作名称必填", 100},
			{"op_code", s.OpCode, "手术/操作编码必填", 20},
			{"operator_name", s.OperatorName, "手术操作者必填", 40},
			{"anesthesia_method", s.AnesthesiaMethod, "麻醉方式必填", 6},
			{"anesthesia_doctor", s.AnesthesiaDoctor, "麻醉医师必填", 40},
		}
		for _, f := range requiredStr {
			if missing(f.value) {
				c.add(rowField+f.key, f.message, sectionSurgery, ruleRequired, seqPtr(s.SeqNo))
			} else if runeLen(f.value) > f.max {
				c.add(rowField+f.key, fmt.Sprintf("长度超限（最大 %d）", f.max), sectionSurgery, ruleMaxLength, seqPtr(s.SeqNo))
			}
		}

		if s.OpTime == nil {
			c.add(rowField+"op_time", "手术/操作日期必填", sectionSurgery, ruleRequired, seqPtr(s.SeqNo))
		}

		if s.SurgeryLevel == nil {
			c.add(rowField+"surgery_level", "手术分级必填", sectionSurgery, ruleRequired, seqPtr(s.SeqNo))
		} else if *s.SurgeryLevel < 0 {
			c.add(rowField+"surgery_level", "手术分级不合法", sectionSurgery, ruleRange, seqPtr(s.SeqNo))
		}
	}
}

func (e *Engine) validateMedicationAndHerbs(rec *model.Record, c *collector) {
	med := rec.MedicationSummary
	if med == nil {
		c.add("medication_summary", "缺少用药标识（外部数据未返回）", sectionHerb, ruleRequired, nil)
		return
	}

	for _, field := range medicationFlags {
		if missing(med.Flag(field)) {
			c.add("medication_summary."+field, "必填项缺失", sectionHerb, ruleRequired, nil)
		}
	}

	herbs := append([]*model.HerbDetail(nil), rec.HerbDetails...)
	sort.SliceStable(herbs, func(i, j int) bool { return herbs[i].SeqNo < herbs[j].SeqNo })

	if len(herbs) > maxHerbDetails {
		c.add("herb_detail", fmt.Sprintf("中草药明细最多 %d 行", maxHerbDetails), sectionHerb, ruleMaxCount, nil)
	}

	// 传统饮片或配方颗粒标识为“是”时，明细不得为空。
	if strings.TrimSpace(med.Ctypsy) == codeUsageYes || strings.TrimSpace(med.Pfklsy) == codeUsageYes {
		if len(herbs) == 0 {
			c.add("herb_detail", "已使用传统饮片/配方颗粒时需至少填写 1 行中草药明细", sectionHerb, ruleConditionalRequired, nil)
		}
	}

	seqs := make([]int, len(herbs))
	for i, h := range herbs {
		seqs[i] = h.SeqNo
	}
	c.checkSeqNos(seqs, "herb_detail", sectionHerb)

	for _, herb := range herbs {
		rowField := fmt.Sprintf("herb_detail.%d", herb.SeqNo)
		if missing(herb.HerbType) || missing(herb.RouteCode) || missing(herb.RouteName) {
			c.add(rowField, "中草药明细同一行字段需完整", sectionHerb, ruleRowComplete, seqPtr(herb.SeqNo))
			continue
		}

		if runeLen(herb.HerbType) > 1 {
			c.add(rowField+".herb_type", "长度超限（最大 1）", sectionHerb, ruleMaxLength, seqPtr(herb.SeqNo))
		}
		if runeLen(herb.RouteCode) > 30 {
			c.add(rowField+".route_code", "长度超限（最大 30）", sectionHerb, ruleMaxLength, seqPtr(herb.SeqNo))
		}
		if runeLen(herb.RouteName) > 100 {
			c.add(rowField+".route_name", "长度超限（最大 100）", sectionHerb, ruleMaxLength, seqPtr(herb.SeqNo))
		}

		if herb.DoseCount == nil || *herb.DoseCount < 0 {
			c.add(rowField+".dose_count", "用药剂数需为非负整数", sectionHerb, ruleRange, seqPtr(herb.SeqNo))
		}
	}
}

func (e *Engine) validateFeeSummary(fee *model.FeeSummary, c *collector) {
	if fee == nil {
		c.add("fee_summary", "缺少费用信息（外部数据未返回）", sectionFee, ruleRequired, nil)
		return
	}

	zero := decimal.Zero
	zfy := zero
	if fee.Zfy != nil {
		zfy = *fee.Zfy
	}
	zfje := zero
	if fee.Zfje != nil {
		zfje = *fee.Zfje
	}

	if !zfy.IsPositive() {
		c.add("fee_summary.zfy", "总费用需大于 0", sectionFee, ruleFeeRelation, nil)
	}
	if zfje.IsNegative() || zfje.GreaterThan(zfy) {
		c.add("fee_summary.zfje", "自付金额需满足 0<=ZFJE<=ZFY", sectionFee, ruleFeeRelation, nil)
	}

	for _, field := range feeItemFields {
		value := fee.Amount(field)
		if value == nil {
			continue
		}
		if value.IsNegative() {
			c.add("fee_summary."+field, "金额不得为负数", sectionFee, ruleFeeRelation, nil)
			continue
		}
		if zfy.IsPositive() && value.GreaterThan(zfy) {
			c.add("fee_summary."+field, "分项费用不得大于总费用", sectionFee, ruleFeeRelation, nil)
		}
	}

	orZero := func(v *decimal.Decimal) decimal.Decimal {
		if v == nil {
			return zero
		}
		return *v
	}

	if fee.Sszlf != nil && fee.Sszlf.LessThan(orZero(fee.Mzf).Add(orZero(fee.Ssf))) {
		c.add("fee_summary.sszlf", "手术治疗费需满足 SSZLF ≥ MZF + SSF", sectionFee, ruleFeeRelation, nil)
	}
	if fee.Zlf != nil && fee.Fsszlxmf != nil && fee.Zlf.GreaterThan(*fee.Fsszlxmf) {
		c.add("fee_summary.zlf", "临床物理治疗费不得大于非手术治疗项目费", sectionFee, ruleFeeRelation, nil)
	}
	if fee.Kjywf != nil && fee.Xyf != nil && fee.Kjywf.GreaterThan(*fee.Xyf) {
		c.add("fee_summary.kjywf", "抗菌药物费用不得大于西药费", sectionFee, ruleFeeRelation, nil)
	}
	if fee.Zyzjf != nil && fee.Zcyf != nil && fee.Zyzjf.GreaterThan(*fee.Zcyf) {
		c.add("fee_summary.zyzjf", "医疗机构中药制剂费不得大于中成药费", sectionFee, ruleFeeRelation, nil)
	}
	if fee.Zcyf1 != nil && fee.Pfklf != nil && fee.Zcyf1.LessThan(*fee.Pfklf) {
		c.add("fee_summary.zcyf1", "中草药费需满足 ZCYF1 ≥ PFKLF", sectionFee, ruleFeeRelation, nil)
	}

	if fee.Zyzl != nil {
		parts := orZero(fee.Zywz).
			Add(orZero(fee.Zygs)).
			Add(orZero(fee.Zcyjf)).
			Add(orZero(fee.Zytnzl)).
			Add(orZero(fee.Zygczl)).
			Add(orZero(fee.Zytszl))
		if parts.GreaterThan(*fee.Zyzl) {
			c.add("fee_summary.zyzl", "中医治疗费需满足 ZYZL ≥ 各子项之和", sectionFee, ruleFeeRelation, nil)
		}
	}

	if fee.Zyqt != nil {
		if fee.Zytstpjg != nil && fee.Zytstpjg.GreaterThan(*fee.Zyqt) {
			c.add("fee_summary.zytstpjg", "中医特殊调配加工费不得大于中医其他费", sectionFee, ruleFeeRelation, nil)
		}
		if fee.Bzss != nil && fee.Bzss.GreaterThan(*fee.Zyqt) {
			c.add("fee_summary.bzss", "辨证施膳费不得大于中医其他费", sectionFee, ruleFeeRelation, nil)
		}
	}

	totalParts := zero
	for _, field := range feeTopLevelFields {
		totalParts = totalParts.Add(orZero(fee.Amount(field)))
	}
	if zfy.IsPositive() && totalParts.GreaterThan(zfy) {
		c.add("fee_summary.zfy", "总费用需满足 ZFY ≥ 分项费用之和", sectionFee, ruleFeeRelation, nil)
	}
}

func (e *Engine) validateDictCodes(ctx context.Context, rec *model.Record, c *collector) error {
	base := rec.BaseInfo
	if base == nil {
		return nil
	}

	for _, entry := range baseDictSets {
		value := base.Field(entry.field)
		if missing(value) {
			continue
		}
		ok, err := e.dicts.CodeExists(ctx, entry.setCode, strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("failed to check dict code %s/%s: %w", entry.setCode, value, err)
		}
		if !ok {
			c.add("base_info."+entry.field, fmt.Sprintf("字典值不合法（%s）", entry.setCode), sectionBaseInfo, ruleDict, nil)
		}
	}

	if med := rec.MedicationSummary; med != nil {
		for _, field := range medicationFlags {
			value := med.Flag(field)
			if missing(value) {
				continue
			}
			ok, err := e.dicts.CodeExists(ctx, setMedicationFlag, strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("failed to check medication flag %s: %w", field, err)
			}
			if !ok {
				c.add("medication_summary."+field, "用药标识值不合法（RC016）", sectionHerb, ruleDict, nil)
			}
		}
	}

	for _, op := range rec.TcmOperations {
		if missing(op.OpCode) {
			continue
		}
		ok, err := e.dicts.CodeExists(ctx, setProcedure, strings.TrimSpace(op.OpCode))
		if err != nil {
			return fmt.Errorf("failed to check operation code %s: %w", op.OpCode, err)
		}
		if !ok {
			c.add(fmt.Sprintf("tcm_operation.%d.op_code", op.SeqNo), "操作编码不合法（ICD9CM3）", sectionTreatment, ruleDict, seqPtr(op.SeqNo))
		}
	}

	for _, s := range rec.Surgeries {
		if !missing(s.OpCode) {
			ok, err := e.dicts.CodeExists(ctx, setProcedure, strings.TrimSpace(s.OpCode))
			if err != nil {
				return fmt.Errorf("failed to check surgery code %s: %w", s.OpCode, err)
			}
			if !ok {
				c.add(fmt.Sprintf("surgery.%d.op_code", s.SeqNo), "手术/操作编码不合法（ICD9CM3）", sectionSurgery, ruleDict, seqPtr(s.SeqNo))
			}
		}
		if !missing(s.AnesthesiaMethod) {
			ok, err := e.dicts.CodeExists(ctx, setAnesthesiaMethod, strings.TrimSpace(s.AnesthesiaMethod))
			if err != nil {
				return fmt.Errorf("failed to check anesthesia method %s: %w", s.AnesthesiaMethod, err)
			}
			if !ok {
				c.add(fmt.Sprintf("surgery.%d.anesthesia_method", s.SeqNo), "麻醉方式编码不合法（RC013）", sectionSurgery, ruleDict, seqPtr(s.SeqNo))
			}
		}
		if s.SurgeryLevel != nil {
			ok, err := e.dicts.CodeExists(ctx, setSurgeryLevel, strconv.Itoa(*s.SurgeryLevel))
			if err != nil {
				return fmt.Errorf("failed to check surgery level %d: %w", *s.SurgeryLevel, err)
			}
			if !ok {
				c.add(fmt.Sprintf("surgery.%d.surgery_level", s.SeqNo), "手术分级编码不合法（RC029）", sectionSurgery, ruleDict, seqPtr(s.SeqNo))
			}
		}
	}

	for _, herb := range rec.HerbDetails {
		if !missing(herb.HerbType) {
			ok, err := e.dicts.CodeExists(ctx, setHerbType, strings.TrimSpace(herb.HerbType))
			if err != nil {
				return fmt.Errorf("failed to check herb type %s: %w", herb.HerbType, err)
			}
			if !ok {
				c.add(fmt.Sprintf("herb_detail.%d.herb_type", herb.SeqNo), "中草药类别编码不合法（HERB_TYPE）", sectionHerb, ruleDict, seqPtr(herb.SeqNo))
			}
		}
		if !missing(herb.RouteCode) {
			ok, err := e.dicts.CodeExists(ctx, setDrugRoute, strings.TrimSpace(herb.RouteCode))
			if err != nil {
				return fmt.Errorf("failed to check drug route %s: %w", herb.RouteCode, err)
			}
			if !ok {
				c.add(fmt.Sprintf("herb_detail.%d.route_code", herb.SeqNo), "用药途径编码不合法（DRUG_ROUTE）", sectionHerb, ruleDict, seqPtr(herb.SeqNo))
			}
		}
		if !missing(herb.RouteCode) && !missing(herb.RouteName) {
			expected, found, err := e.dicts.CanonicalName(ctx, setDrugRoute, strings.TrimSpace(herb.RouteCode))
			if err != nil {
				return fmt.Errorf("failed to resolve drug route name %s: %w", herb.RouteCode, err)
			}
			if found && strings.TrimSpace(herb.RouteName) != expected {
				c.add(fmt.Sprintf("herb_detail.%d.route_name", herb.SeqNo), "用药途径名称与代码不一致", sectionHerb, ruleDict, seqPtr(herb.SeqNo))
			}
		}
	}

	for _, diag := range rec.Diagnoses {
		if missing(diag.DiagCode) {
			continue
		}
		var setCode string
		switch diag.DiagType {
		case model.DiagTypeWMMain, model.DiagTypeWMOther:
			setCode = setICD10
		case model.DiagTypeTCMDiseaseMain:
			setCode = setTCMDisease
		case model.DiagTypeTCMSyndrome:
			setCode = setTCMSyndrome
		default:
			continue
		}
		ok, err := e.dicts.CodeExists(ctx, setCode, strings.TrimSpace(diag.DiagCode))
		if err != nil {
			return fmt.Errorf("failed to check diagnosis code %s: %w", diag.DiagCode, err)
		}
		if !ok {
			c.add(fmt.Sprintf("diagnosis.%s.%d.diag_code", diag.DiagType, diag.SeqNo), fmt.Sprintf("诊断编码不合法（%s）", setCode), sectionDiagnosis, ruleDict, seqPtr(diag.SeqNo))
		}
	}

	return nil
}
