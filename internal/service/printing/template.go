package printing

import (
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

var printFuncs = template.FuncMap{
	"dt": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"num": func(v *int) string {
		if v == nil {
			return ""
		}
		return decimal.NewFromInt(int64(*v)).String()
	},
}

var printTemplate = template.Must(template.New("print").Funcs(printFuncs).Parse(`<!doctype html>
<html lang="zh-CN">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>门（急）诊诊疗信息页打印</title>
  <style>
    body { font-family: "Microsoft YaHei", "PingFang SC", Arial, sans-serif; color: #111; }
    h1 { font-size: 18px; margin: 0 0 10px; text-align: center; }
    h2 { font-size: 14px; margin: 14px 0 6px; }
    table { width: 100%; border-collapse: collapse; table-layout: fixed; }
    th, td { border: 1px solid #333; padding: 6px 8px; font-size: 12px; vertical-align: top; word-wrap: break-word; }
    th { background: #f5f5f5; }
    .kv th { width: 160px; text-align: right; }
    .muted { color: #666; font-size: 11px; }
    @media print {
      .no-print { display: none; }
      a { color: inherit; text-decoration: none; }
      h2 { page-break-after: avoid; }
      table { page-break-inside: avoid; }
    }
  </style>
</head>
<body>
<h1>中医门（急）诊诊疗信息页（打印）</h1>
<div class='muted'>RecordID: {{.RecordID}}　PatientNo: {{.PatientNo}}</div>
<h2>就诊过程信息</h2>
<table class='kv'>
<tr><th>医疗机构名称（JGMC）</th><td>{{.Org.Jgmc}}</td><th>组织机构代码（ZZJGDM）</th><td>{{.Org.Zzjgdm}}</td></tr>
<tr><th>系统登录用户名（USERNAME）</th><td>{{.Base.Username}}</td><th>就诊卡号/病案号（JZKH）</th><td>{{.Base.Jzkh}}</td></tr>
<tr><th>挂号时间（GHSJ）</th><td>{{dt .Base.Ghsj}}</td><th>报到时间（BDSJ）</th><td>{{dt .Base.Bdsj}}</td></tr>
<tr><th>就诊时间（JZSJ）</th><td>{{dt .Base.Jzsj}}</td><th>就诊类型（JZLX）</th><td>{{.Base.Jzlx}}</td></tr>
<tr><th>就诊科室（JZKS）</th><td>{{.Base.Jzks}}</td><th>就诊科室代码（JZKSDM）</th><td>{{.Base.Jzksdm}}</td></tr>
<tr><th>接诊医师（JZYS）</th><td>{{.Base.Jzys}}</td><th>接诊医师职称（JZYSZC）</th><td>{{.Base.Jzyszc}}</td></tr>
<tr><th>急诊患者分级（JZHZFJ）</th><td>{{.Base.Jzhzfj}}</td><th>急诊患者去向（JZHZQX）</th><td>{{.Base.Jzhzqx}}</td></tr>
<tr><th>住院证开具时间（ZYZKJSJ）</th><td colspan='3'>{{dt .Base.Zyzkjsj}}</td></tr>
</table>
<h2>患者基本信息</h2>
<table class='kv'>
<tr><th>姓名（XM）</th><td>{{.Base.Xm}}</td><th>性别（XB）</th><td>{{.Base.Xb}}</td></tr>
<tr><th>出生日期（CSRQ）</th><td>{{date .Base.Csrq}}</td><th>婚姻（HY）</th><td>{{.Base.Hy}}</td></tr>
<tr><th>国籍（GJ）</th><td>{{.Base.Gj}}</td><th>民族（MZ）</th><td>{{.Base.Mz}}</td></tr>
<tr><th>证件类别（ZJLB）</th><td>{{.Base.Zjlb}}</td><th>证件号码（ZJHM）</th><td>{{.Base.Zjhm}}</td></tr>
<tr><th>现住址（XZZ）</th><td colspan='3'>{{.Base.Xzz}}</td></tr>
<tr><th>联系电话（LXDH）</th><td>{{.Base.Lxdh}}</td><th>药物过敏史（YWGMS）</th><td>{{.Base.Ywgms}}</td></tr>
<tr><th>过敏药物（GMYW）</th><td colspan='3'>{{.Base.Gmyw}}</td></tr>
<tr><th>其他过敏史（QTGMS）</th><td>{{.Base.Qtgms}}</td><th>其他过敏原（QTGMY）</th><td>{{.Base.Qtgmy}}</td></tr>
</table>
<h2>主诉</h2>
<table class='kv'>
<tr><th>患者主诉（HZZS）</th><td>{{.Base.Hzzs}}</td></tr>
</table>
<h2>诊断信息</h2>
<table>
<tr><th>类别</th><th>名称</th><th>编码</th></tr>
<tr><td>中医疾病（MZD_ZB/JBDM_ZB）</td><td>{{with .TcmDisease}}{{.DiagName}}{{end}}</td><td>{{with .TcmDisease}}{{.DiagCode}}{{end}}</td></tr>
<tr><td>西医主要诊断（MZZD_ZYZD/MZZD_JBBM）</td><td>{{with .WmMain}}{{.DiagName}}{{end}}</td><td>{{with .WmMain}}{{.DiagCode}}{{end}}</td></tr>
{{range .TcmSyndromes}}<tr><td>中医证候（第{{.SeqNo}}组）</td><td>{{.DiagName}}</td><td>{{.DiagCode}}</td></tr>
{{end}}{{range .WmOthers}}<tr><td>西医其他诊断（第{{.SeqNo}}条）</td><td>{{.DiagName}}</td><td>{{.DiagCode}}</td></tr>
{{end}}</table>
<h2>中医治疗性操作（非手术类）</h2>
<table>
<tr><th>序号</th><th>名称</th><th>编码</th><th>次数</th><th>天数</th></tr>
{{range .TcmOperations}}<tr><td>{{.SeqNo}}</td><td>{{.OpName}}</td><td>{{.OpCode}}</td><td>{{num .OpTimes}}</td><td>{{num .OpDays}}</td></tr>
{{else}}<tr><td colspan='5' class='muted'>（无）</td></tr>
{{end}}</table>
<h2>手术/操作</h2>
<table>
<tr><th>序号</th><th>名称</th><th>编码</th><th>日期</th><th>操作者</th><th>麻醉方式</th><th>麻醉医师</th><th>分级</th></tr>
{{range .Surgeries}}<tr><td>{{.SeqNo}}</td><td>{{.OpName}}</td><td>{{.OpCode}}</td><td>{{dt .OpTime}}</td><td>{{.OperatorName}}</td><td>{{.AnesthesiaMethod}}</td><td>{{.AnesthesiaDoctor}}</td><td>{{num .SurgeryLevel}}</td></tr>
{{else}}<tr><td colspan='8' class='muted'>（无）</td></tr>
{{end}}</table>
<h2>用药情况</h2>
<table class='kv'>
<tr><th>是否使用西药（XYSY）</th><td>{{with .Med}}{{.Xysy}}{{end}}</td><th>是否使用中成药（ZCYSY）</th><td>{{with .Med}}{{.Zcysy}}{{end}}</td></tr>
<tr><th>是否使用中药制剂（ZYZJSY）</th><td>{{with .Med}}{{.Zyzjsy}}{{end}}</td><th>是否使用传统饮片（CTYPSY）</th><td>{{with .Med}}{{.Ctypsy}}{{end}}</td></tr>
<tr><th>是否使用配方颗粒（PFKLSY）</th><td colspan='3'>{{with .Med}}{{.Pfklsy}}{{end}}</td></tr>
</table>
<h2>中草药明细</h2>
<table>
<tr><th>序号</th><th>类别（ZCYLB）</th><th>途径代码（YYTJDM）</th><th>途径名称（YYTJMC）</th><th>剂数（YYJS）</th></tr>
{{range .HerbDetails}}<tr><td>{{.SeqNo}}</td><td>{{.HerbType}}</td><td>{{.RouteCode}}</td><td>{{.RouteName}}</td><td>{{num .DoseCount}}</td></tr>
{{else}}<tr><td colspan='5' class='muted'>（无）</td></tr>
{{end}}</table>
<h2>费用信息</h2>
<table>
<tr><th>字段</th><th>值</th><th>字段</th><th>值</th></tr>
{{range .FeeRows}}<tr><th>{{.LeftCode}}</th><td>{{.LeftValue}}</td><th>{{.RightCode}}</th><td>{{.RightValue}}</td></tr>
{{end}}</table>
</body></html>`))
