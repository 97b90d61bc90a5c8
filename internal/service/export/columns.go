package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mzemr/record-api/internal/model"
)

// feeColumnCodes is the upload-template fee column order. Column names
// stay in interface spelling; BDBLZPF/QDBLZPF map to the historically
// misspelled model fields bdbblzpf/qdbblzpf.
var feeColumnCodes = []string{
	"ZFY", "ZFJE", "YLFWF", "ZLCZF", "HLF", "QTFY", "BLZDF", "ZDF",
	"YXXZDF", "LCZDXMF", "FSSZLXMF", "ZLF", "SSZLF", "MZF", "SSF", "KFF",
	"ZYL_ZYZD", "ZYZL", "ZYWZ", "ZYGS", "ZCYJF", "ZYTNZL", "ZYGCZL",
	"ZYTSZL", "ZYQT", "ZYTSTPJG", "BZSS", "XYF", "KJYWF", "ZCYF", "ZYZJF",
	"ZCYF1", "PFKLF", "XF", "BDBLZPF", "QDBLZPF", "NXYZLZPF", "XBYZLZPF",
	"JCYYCLF", "YYCLF", "SSYCXCLF", "QTF",
}

var baseColumns = []string{
	"JGMC", "ZZJGDM", "USERNAME", "JZKH", "XM", "JZSJ", "XB", "CSRQ",
	"HY", "GJ", "MZ", "ZJLB", "ZJHM", "XZZ", "LXDH", "YWGMS", "GMYW",
	"QTGMS", "QTGMY", "GHSJ", "BDSJ", "JZKS", "JZKSDM", "JZYS", "JZYSZC",
	"JZLX", "FZ", "SY", "MZMTBHZ", "JZHZFJ", "JZHZQX", "ZYZKJSJ", "HZZS",
}

// reportHeaders returns the upload-template header row.
func reportHeaders() []string {
	headers := make([]string, 0, 420)
	headers = append(headers, baseColumns...)

	headers = append(headers, "MZD_ZB", "JBDM_ZB")
	for i := 1; i <= 2; i++ {
		headers = append(headers, fmt.Sprintf("MZD_ZZ%d", i), fmt.Sprintf("JBDM_ZZ%d", i))
	}
	headers = append(headers, "MZZD_ZYZD", "MZZD_JBBM")
	for i := 1; i <= 10; i++ {
		headers = append(headers, fmt.Sprintf("MZZD_QTZD%d", i), fmt.Sprintf("MZZD_JBBM%d", i))
	}
	for i := 1; i <= 10; i++ {
		headers = append(headers,
			fmt.Sprintf("ZYZLCZMC%d", i), fmt.Sprintf("ZYZLCZBM%d", i),
			fmt.Sprintf("ZYZLCZCS%d", i), fmt.Sprintf("ZYZLCZTS%d", i))
	}
	for i := 1; i <= 5; i++ {
		headers = append(headers,
			fmt.Sprintf("SSCZMC%d", i), fmt.Sprintf("SSCZBM%d", i),
			fmt.Sprintf("SSCZRQ%d", i), fmt.Sprintf("SSCZZ%d", i),
			fmt.Sprintf("MZFS%d", i), fmt.Sprintf("MZYS%d", i),
			fmt.Sprintf("SHJB%d", i))
	}
	headers = append(headers, "XYSY", "ZCYSY", "ZYZJSY", "CTYPSY", "PFKLSY")
	for i := 1; i <= 40; i++ {
		headers = append(headers,
			fmt.Sprintf("ZCYLB%d", i), fmt.Sprintf("YYTJDM%d", i),
			fmt.Sprintf("YYTJMC%d", i), fmt.Sprintf("YYJS%d", i))
	}
	headers = append(headers, feeColumnCodes...)
	return headers
}

func feeFieldForColumn(code string) string {
	switch code {
	case "ZYL_ZYZD":
		return "zyl_zyzd"
	case "BDBLZPF":
		return "bdbblzpf"
	case "QDBLZPF":
		return "qdbblzpf"
	}
	return strings.ToLower(code)
}

func cleanCell(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	return s
}

// quoteCell wraps free-text cells in English double quotes so downstream
// CSV-ish importers do not split on embedded commas.
func quoteCell(s string) interface{} {
	v := cleanCell(s)
	if v == nil {
		return nil
	}
	text := v.(string)
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		return text
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func dateTimeCell(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02 15:04:05")
}

func dateCell(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func intCell(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// recordRow flattens one submitted record into the template cell map.
func recordRow(rec *model.Record) (map[string]interface{}, error) {
	base := rec.BaseInfo
	org := rec.Org
	if base == nil || org == nil {
		return nil, fmt.Errorf("record %d is missing base info or org", rec.ID)
	}

	data := map[string]interface{}{}

	data["JGMC"] = cleanCell(org.Jgmc)
	data["ZZJGDM"] = cleanCell(org.Zzjgdm)
	data["USERNAME"] = cleanCell(base.Username)
	data["JZKH"] = cleanCell(base.Jzkh)
	data["XM"] = cleanCell(base.Xm)
	data["JZSJ"] = dateTimeCell(base.Jzsj)
	data["XB"] = cleanCell(base.Xb)
	data["CSRQ"] = dateCell(base.Csrq)
	data["HY"] = cleanCell(base.Hy)
	data["GJ"] = cleanCell(base.Gj)
	data["MZ"] = cleanCell(base.Mz)
	data["ZJLB"] = cleanCell(base.Zjlb)
	data["ZJHM"] = cleanCell(base.Zjhm)
	data["XZZ"] = cleanCell(base.Xzz)
	data["LXDH"] = cleanCell(base.Lxdh)
	data["YWGMS"] = cleanCell(base.Ywgms)
	data["GMYW"] = quoteCell(base.Gmyw)
	data["QTGMS"] = cleanCell(base.Qtgms)
	data["QTGMY"] = quoteCell(base.Qtgmy)
	data["GHSJ"] = dateTimeCell(base.Ghsj)
	data["BDSJ"] = dateTimeCell(base.Bdsj)
	data["JZKS"] = cleanCell(base.Jzks)
	data["JZKSDM"] = cleanCell(base.Jzksdm)
	data["JZYS"] = cleanCell(base.Jzys)
	data["JZYSZC"] = cleanCell(base.Jzyszc)
	data["JZLX"] = cleanCell(base.Jzlx)
	data["FZ"] = cleanCell(base.Fz)
	data["SY"] = cleanCell(base.Sy)
	data["MZMTBHZ"] = cleanCell(base.Mzmtbhz)
	data["JZHZFJ"] = cleanCell(base.Jzhzfj)
	data["JZHZQX"] = cleanCell(base.Jzhzqx)
	data["ZYZKJSJ"] = dateTimeCell(base.Zyzkjsj)
	data["HZZS"] = quoteCell(base.Hzzs)

	byType := rec.DiagnosesByType()
	diagsOf := func(t model.DiagType) []*model.Diagnosis {
		out := append([]*model.Diagnosis(nil), byType[t]...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].SeqNo < out[j].SeqNo })
		return out
	}

	if tcmDis := diagsOf(model.DiagTypeTCMDiseaseMain); len(tcmDis) > 0 {
		data["MZD_ZB"] = cleanCell(tcmDis[0].DiagName)
		data["JBDM_ZB"] = cleanCell(tcmDis[0].DiagCode)
	}
	tcmSyn := diagsOf(model.DiagTypeTCMSyndrome)
	for i := 1; i <= 2; i++ {
		if i <= len(tcmSyn) {
			data[fmt.Sprintf("MZD_ZZ%d", i)] = cleanCell(tcmSyn[i-1].DiagName)
			data[fmt.Sprintf("JBDM_ZZ%d", i)] = cleanCell(tcmSyn[i-1].DiagCode)
		}
	}
	if wmMain := diagsOf(model.DiagTypeWMMain); len(wmMain) > 0 {
		data["MZZD_ZYZD"] = cleanCell(wmMain[0].DiagName)
		data["MZZD_JBBM"] = cleanCell(wmMain[0].DiagCode)
	}
	wmOther := diagsOf(model.DiagTypeWMOther)
	for i := 1; i <= 10; i++ {
		if i <= len(wmOther) {
			data[fmt.Sprintf("MZZD_QTZD%d", i)] = cleanCell(wmOther[i-1].DiagName)
			data[fmt.Sprintf("MZZD_JBBM%d", i)] = cleanCell(wmOther[i-1].DiagCode)
		}
	}

	ops := append([]*model.TcmOperation(nil), rec.TcmOperations...)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].SeqNo < ops[j].SeqNo })
	for i := 1; i <= 10 && i <= len(ops); i++ {
		op := ops[i-1]
		data[fmt.Sprintf("ZYZLCZMC%d", i)] = cleanCell(op.OpName)
		data[fmt.Sprintf("ZYZLCZBM%d", i)] = cleanCell(op.OpCode)
		data[fmt.Sprintf("ZYZLCZCS%d", i)] = intCell(op.OpTimes)
		data[fmt.Sprintf("ZYZLCZTS%d", i)] = intCell(op.OpDays)
	}

	surgeries := append([]*model.Surgery(nil), rec.Surgeries...)
	sort.SliceStable(surgeries, func(i, j int) bool { return surgeries[i].SeqNo < surgeries[j].SeqNo })
	for i := 1; i <= 5 && i <= len(surgeries); i++ {
		s := surgeries[i-1]
		data[fmt.Sprintf("SSCZMC%d", i)] = cleanCell(s.OpName)
		data[fmt.Sprintf("SSCZBM%d", i)] = cleanCell(s.OpCode)
		data[fmt.Sprintf("SSCZRQ%d", i)] = dateTimeCell(s.OpTime)
		data[fmt.Sprintf("SSCZZ%d", i)] = cleanCell(s.OperatorName)
		data[fmt.Sprintf("MZFS%d", i)] = cleanCell(s.AnesthesiaMethod)
		data[fmt.Sprintf("MZYS%d", i)] = cleanCell(s.AnesthesiaDoctor)
		data[fmt.Sprintf("SHJB%d", i)] = intCell(s.SurgeryLevel)
	}

	if med := rec.MedicationSummary; med != nil {
		data["XYSY"] = cleanCell(med.Xysy)
		data["ZCYSY"] = cleanCell(med.Zcysy)
		data["ZYZJSY"] = cleanCell(med.Zyzjsy)
		data["CTYPSY"] = cleanCell(med.Ctypsy)
		data["PFKLSY"] = cleanCell(med.Pfklsy)
	}

	herbs := append([]*model.HerbDetail(nil), rec.HerbDetails...)
	sort.SliceStable(herbs, func(i, j int) bool { return herbs[i].SeqNo < herbs[j].SeqNo })
	for i := 1; i <= 40 && i <= len(herbs); i++ {
		h := herbs[i-1]
		data[fmt.Sprintf("ZCYLB%d", i)] = cleanCell(h.HerbType)
		data[fmt.Sprintf("YYTJDM%d", i)] = cleanCell(h.RouteCode)
		data[fmt.Sprintf("YYTJMC%d", i)] = cleanCell(h.RouteName)
		data[fmt.Sprintf("YYJS%d", i)] = intCell(h.DoseCount)
	}

	if fee := rec.FeeSummary; fee != nil {
		for _, code := range feeColumnCodes {
			if amount := fee.Amount(feeFieldForColumn(code)); amount != nil {
				data[code] = amount.InexactFloat64()
			}
		}
	}

	return data, nil
}
