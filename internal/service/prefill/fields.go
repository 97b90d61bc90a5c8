package prefill

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/service/auth"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/rowmap"
)

// Fee-view column candidates per interface code. HIS vendors disagree on
// column naming; some export the interface code, some the Chinese label.
// Order matters: the first non-null candidate wins.
var feeCandidates = []struct {
	code       string
	candidates []string
}{
	{"zfy", []string{"ZFY", "总费用"}},
	{"zfje", []string{"ZFJE", "自付金额", "zffy", "ZFFY"}},
	{"ylfwf", []string{"YLFWF", "一般医疗服务费"}},
	{"zlczf", []string{"ZLCZF", "一般治疗操作费"}},
	{"hlf", []string{"HLF", "护理费"}},
	{"qtfy", []string{"QTFY", "其他费用", "其他费用合计"}},
	{"blzdf", []string{"BLZDF", "病理诊断费"}},
	{"zdf", []string{"ZDF", "实验室诊断费"}},
	{"yxxzdf", []string{"YXXZDF", "影像学诊断费"}},
	{"lczdxmf", []string{"LCZDXMF", "临床诊断项目费"}},
	{"fsszlxmf", []string{"FSSZLXMF", "非手术治疗项目费"}},
	{"zlf", []string{"ZLF", "临床物理治疗费"}},
	{"sszlf", []string{"SSZLF", "手术治疗费"}},
	{"mzf", []string{"MZF", "麻醉费"}},
	{"ssf", []string{"SSF", "手术费"}},
	{"kff", []string{"KFF", "康复费"}},
	{"zyl_zyzd", []string{"ZYL_ZYZD", "中医辨证论治费", "中医诊断费", "中医诊断"}},
	{"zyzl", []string{"ZYZL", "中医治疗", "中医治疗费用"}},
	{"zywz", []string{"ZYWZ", "中医外治"}},
	{"zygs", []string{"ZYGS", "中医骨伤"}},
	{"zcyjf", []string{"ZCYJF", "针刺与灸法"}},
	{"zytnzl", []string{"ZYTNZL", "中医推拿治疗"}},
	{"zygczl", []string{"ZYGCZL", "中医肛肠治疗"}},
	{"zytszl", []string{"ZYTSZL", "中医特殊治疗"}},
	{"zyqt", []string{"ZYQT", "中医其他", "中医_其他"}},
	{"zytstpjg", []string{"ZYTSTPJG", "中医特殊调配加工", "中药特殊调配加工"}},
	{"bzss", []string{"BZSS", "辨证施膳"}},
	{"xyf", []string{"XYF", "西药费"}},
	{"kjywf", []string{"KJYWF", "抗菌药物费用"}},
	{"zcyf", []string{"ZCYF", "中成药费"}},
	{"zyzjf", []string{"ZYZJF", "医疗机构中药制剂费"}},
	{"zcyf1", []string{"ZCYF1", "中草药费"}},
	{"pfklf", []string{"PFKLF", "配方颗粒费"}},
	{"xf", []string{"XF", "血费"}},
	{"bdbblzpf", []string{"BDBBLZPF", "白蛋白类制品费"}},
	{"qdbblzpf", []string{"QDBBLZPF", "球蛋白类制品费"}},
	{"nxyzlzpf", []string{"NXYZLZPF", "凝血因子类制品费"}},
	{"xbyzlzpf", []string{"XBYZLZPF", "细胞因子类制品费"}},
	{"jcyyclf", []string{"JCYYCLF", "检查用一次性医用材料费"}},
	{"yyclf", []string{"YYCLF", "治疗用一次性医用材料费"}},
	{"ssycxclf", []string{"SSYCXCLF", "手术用一次性医用材料费"}},
	{"qtf", []string{"QTF", "其他费"}},
}

var medCandidates = []struct {
	code       string
	candidates []string
}{
	{"xysy", []string{"XYSY", "是否使用西药"}},
	{"zcysy", []string{"ZCYSY", "是否使用中成药"}},
	{"zyzjsy", []string{"ZYZJSY", "是否使用中药制剂"}},
	{"ctypsy", []string{"CTYPSY", "是否使用传统饮片"}},
	{"pfklsy", []string{"PFKLSY", "是否使用配方颗粒"}},
}

// BuildFeeSummary maps one fee-view row onto the read-only fee section.
// ZFY and ZFJE must be present; the rest of the columns are optional.
func BuildFeeSummary(row rowmap.Row) (*model.FeeSummary, error) {
	fee := &model.FeeSummary{}
	for _, entry := range feeCandidates {
		raw := rowmap.Clean(rowmap.FirstValue(row, entry.candidates...))
		if raw == nil {
			continue
		}
		value, ok := rowmap.Decimal(raw)
		if !ok {
			return nil, apperrors.External("外部费用数据格式不合法", fmt.Errorf("unparseable amount for %s", entry.code))
		}
		setFee(fee, entry.code, value)
	}
	if fee.Zfy == nil || fee.Zfje == nil {
		return nil, apperrors.External("外部费用数据缺失", nil)
	}
	return fee, nil
}

func setFee(fee *model.FeeSummary, code string, value decimal.Decimal) {
	v := value
	switch code {
	case "zfy":
		fee.Zfy = &v
	case "zfje":
		fee.Zfje = &v
	case "ylfwf":
		fee.Ylfwf = &v
	case "zlczf":
		fee.Zlczf = &v
	case "hlf":
		fee.Hlf = &v
	case "qtfy":
		fee.Qtfy = &v
	case "blzdf":
		fee.Blzdf = &v
	case "zdf":
		fee.Zdf = &v
	case "yxxzdf":
		fee.Yxxzdf = &v
	case "lczdxmf":
		fee.Lczdxmf = &v
	case "fsszlxmf":
		fee.Fsszlxmf = &v
	case "zlf":
		fee.Zlf = &v
	case "sszlf":
		fee.Sszlf = &v
	case "mzf":
		fee.Mzf = &v
	case "ssf":
		fee.Ssf = &v
	case "kff":
		fee.Kff = &v
	case "zyl_zyzd":
		fee.ZylZyzd = &v
	case "zyzl":
		fee.Zyzl = &v
	case "zywz":
		fee.Zywz = &v
	case "zygs":
		fee.Zygs = &v
	case "zcyjf":
		fee.Zcyjf = &v
	case "zytnzl":
		fee.Zytnzl = &v
	case "zygczl":
		fee.Zygczl = &v
	case "zytszl":
		fee.Zytszl = &v
	case "zyqt":
		fee.Zyqt = &v
	case "zytstpjg":
		fee.Zytstpjg = &v
	case "bzss":
		fee.Bzss = &v
	case "xyf":
		fee.Xyf = &v
	case "kjywf":
		fee.Kjywf = &v
	case "zcyf":
		fee.Zcyf = &v
	case "zyzjf":
		fee.Zyzjf = &v
	case "zcyf1":
		fee.Zcyf1 = &v
	case "pfklf":
		fee.Pfklf = &v
	case "xf":
		fee.Xf = &v
	case "bdbblzpf":
		fee.Bdbblzpf = &v
	case "qdbblzpf":
		fee.Qdbblzpf = &v
	case "nxyzlzpf":
		fee.Nxyzlzpf = &v
	case "xbyzlzpf":
		fee.Xbyzlzpf = &v
	case "jcyyclf":
		fee.Jcyyclf = &v
	case "yyclf":
		fee.Yyclf = &v
	case "ssycxclf":
		fee.Ssycxclf = &v
	case "qtf":
		fee.Qtf = &v
	}
}

// BuildMedicationSummary maps the usage flags off the fee-view row.
// Unreported flags default to "2" (not used).
func BuildMedicationSummary(row rowmap.Row) *model.MedicationSummary {
	values := make(map[string]string, len(medCandidates))
	for _, entry := range medCandidates {
		value := rowmap.String(rowmap.Clean(rowmap.FirstValue(row, entry.candidates...)))
		if value == "" {
			value = "2"
		}
		values[entry.code] = value
	}
	return &model.MedicationSummary{
		Xysy:   values["xysy"],
		Zcysy:  values["zcysy"],
		Zyzjsy: values["zyzjsy"],
		Ctypsy: values["ctypsy"],
		Pfklsy: values["pfklsy"],
	}
}

// VisitContext extracts the department/doctor pair from the master-index
// row for access checks.
func VisitContext(row rowmap.Row) *auth.VisitAccessContext {
	if row == nil {
		return nil
	}
	return &auth.VisitAccessContext{
		DeptCode: rowmap.String(rowmap.FirstValue(row, "JZKSDM", "jzksdm", "DEPT_CODE", "dept_code", "JZKSDMHIS", "jzksdmhis")),
		DocCode:  rowmap.String(rowmap.FirstValue(row, "JZYS_DM", "JZYSBM", "JZYSBM_CODE", "jzysdm", "DOC_CODE")),
	}
}
