package record

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mzemr/record-api/internal/model"
)

// Flattened field keys for the audit diff. Header and fee fields are
// enumerated in interface-code order so diffs are stable.
var flatBaseFields = []string{
	"username", "jzkh", "xm", "xb", "csrq", "hy", "gj", "mz", "zjlb",
	"zjhm", "xzz", "lxdh", "ywgms", "gmyw", "qtgms", "qtgmy", "ghsj",
	"bdsj", "jzsj", "jzks", "jzksdm", "jzys", "jzyszc", "jzlx", "fz",
	"sy", "mzmtbhz", "jzhzfj", "jzhzqx", "zyzkjsj", "hzzs",
}

var flatFeeFields = []string{
	"zfy", "zfje", "ylfwf", "zlczf", "hlf", "qtfy", "blzdf", "zdf",
	"yxxzdf", "lczdxmf", "fsszlxmf", "zlf", "sszlf", "mzf", "ssf", "kff",
	"zyl_zyzd", "zyzl", "zywz", "zygs", "zcyjf", "zytnzl", "zygczl",
	"zytszl", "zyqt", "zytstpjg", "bzss", "xyf", "kjywf", "zcyf", "zyzjf",
	"zcyf1", "pfklf", "xf", "bdbblzpf", "qdbblzpf", "nxyzlzpf", "xbyzlzpf",
	"jcyyclf", "yyclf", "ssycxclf", "qtf",
}

// flattenRecord renders the whole aggregate as key → serialized value,
// the shape the field-audit diff runs over.
func flattenRecord(rec *model.Record) map[string]*string {
	if rec == nil {
		return map[string]*string{}
	}

	flat := map[string]*string{
		"record.status":       serialize(string(rec.Status)),
		"record.dept_code":    serialize(rec.DeptCode),
		"record.doc_code":     serialize(rec.DocCode),
		"record.visit_time":   serializeTime(&rec.VisitTime),
		"record.submitted_at": serializeTime(rec.SubmittedAt),
	}

	if rec.BaseInfo != nil {
		for _, field := range flatBaseFields {
			flat["base_info."+field] = flattenBaseField(rec.BaseInfo, field)
		}
	}

	diagnoses := append([]*model.Diagnosis(nil), rec.Diagnoses...)
	sort.SliceStable(diagnoses, func(i, j int) bool {
		if diagnoses[i].DiagType != diagnoses[j].DiagType {
			return diagnoses[i].DiagType < diagnoses[j].DiagType
		}
		return diagnoses[i].SeqNo < diagnoses[j].SeqNo
	})
	for _, d := range diagnoses {
		prefix := fmt.Sprintf("diagnosis.%s.%d", d.DiagType, d.SeqNo)
		flat[prefix+".diag_name"] = serialize(d.DiagName)
		flat[prefix+".diag_code"] = serialize(d.DiagCode)
	}

	for _, op := range rec.TcmOperations {
		prefix := fmt.Sprintf("tcm_operation.%d", op.SeqNo)
		flat[prefix+".op_name"] = serialize(op.OpName)
		flat[prefix+".op_code"] = serialize(op.OpCode)
		flat[prefix+".op_times"] = serializeInt(op.OpTimes)
		flat[prefix+".op_days"] = serializeInt(op.OpDays)
	}

	for _, s := range rec.Surgeries {
		prefix := fmt.Sprintf("surgery.%d", s.SeqNo)
		flat[prefix+".op_name"] = serialize(s.OpName)
		flat[prefix+".op_code"] = serialize(s.OpCode)
		flat[prefix+".op_time"] = serializeTime(s.OpTime)
		flat[prefix+".operator_name"] = serialize(s.OperatorName)
		flat[prefix+".anesthesia_method"] = serialize(s.AnesthesiaMethod)
		flat[prefix+".anesthesia_doctor"] = serialize(s.AnesthesiaDoctor)
		flat[prefix+".surgery_level"] = serializeInt(s.SurgeryLevel)
	}

	for _, h := range rec.HerbDetails {
		prefix := fmt.Sprintf("herb_detail.%d", h.SeqNo)
		flat[prefix+".herb_type"] = serialize(h.HerbType)
		flat[prefix+".route_code"] = serialize(h.RouteCode)
		flat[prefix+".route_name"] = serialize(h.RouteName)
		flat[prefix+".dose_count"] = serializeInt(h.DoseCount)
	}

	if med := rec.MedicationSummary; med != nil {
		flat["medication_summary.xysy"] = serialize(med.Xysy)
		flat["medication_summary.zcysy"] = serialize(med.Zcysy)
		flat["medication_summary.zyzjsy"] = serialize(med.Zyzjsy)
		flat["medication_summary.ctypsy"] = serialize(med.Ctypsy)
		flat["medication_summary.pfklsy"] = serialize(med.Pfklsy)
	}

	if fee := rec.FeeSummary; fee != nil {
		for _, field := range flatFeeFields {
			flat["fee_summary."+field] = serializeDecimal(fee.Amount(field))
		}
	}

	return flat
}

func flattenBaseField(b *model.BaseInfo, field string) *string {
	switch field {
	case "csrq":
		return serializeTime(b.Csrq)
	case "ghsj":
		return serializeTime(b.Ghsj)
	case "bdsj":
		return serializeTime(b.Bdsj)
	case "jzsj":
		return serializeTime(b.Jzsj)
	case "zyzkjsj":
		return serializeTime(b.Zyzkjsj)
	default:
		return serialize(b.Field(field))
	}
}

func serialize(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func serializeTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	s := value.Format(time.RFC3339)
	return &s
}

func serializeInt(value *int) *string {
	if value == nil {
		return nil
	}
	s := strconv.Itoa(*value)
	return &s
}

func serializeDecimal(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}
