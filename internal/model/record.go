package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type RecordStatus string

const (
	RecordStatusDraft     RecordStatus = "draft"
	RecordStatusSubmitted RecordStatus = "submitted"
)

type DiagType string

const (
	DiagTypeTCMDiseaseMain DiagType = "tcm_disease_main"
	DiagTypeTCMSyndrome    DiagType = "tcm_syndrome"
	DiagTypeWMMain         DiagType = "wm_main"
	DiagTypeWMOther        DiagType = "wm_other"
)

// Data provenance for child rows: written by the prefill pipeline or
// edited by a clinician.
const (
	SourcePrefill = "prefill"
	SourceManual  = "manual"
)

// Record is the aggregate root for one outpatient medical-record page,
// keyed by the HIS patient number. Child sections are loaded eagerly by
// the repository; a nil section means the upstream feed or the clinician
// never populated it.
type Record struct {
	ID              int64           `db:"id" json:"record_id"`
	OrgID           int64           `db:"org_id" json:"-"`
	PatientNo       string          `db:"patient_no" json:"patient_no"`
	VisitTime       time.Time       `db:"visit_time" json:"visit_time"`
	Status          RecordStatus    `db:"status" json:"status"`
	DeptCode        string          `db:"dept_code" json:"dept_code"`
	DocCode         string          `db:"doc_code" json:"doc_code"`
	SubmittedAt     *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	Version         int             `db:"version" json:"version"`
	PrefillSnapshot json.RawMessage `db:"prefill_snapshot" json:"prefill_snapshot,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"-"`
	UpdatedAt       time.Time       `db:"updated_at" json:"-"`

	BaseInfo          *BaseInfo          `db:"-" json:"base_info,omitempty"`
	Diagnoses         []*Diagnosis       `db:"-" json:"diagnoses,omitempty"`
	TcmOperations     []*TcmOperation    `db:"-" json:"tcm_operations,omitempty"`
	Surgeries         []*Surgery         `db:"-" json:"surgeries,omitempty"`
	HerbDetails       []*HerbDetail      `db:"-" json:"herb_details,omitempty"`
	MedicationSummary *MedicationSummary `db:"-" json:"medication_summary,omitempty"`
	FeeSummary        *FeeSummary        `db:"-" json:"fee_summary,omitempty"`
	Org               *Org               `db:"-" json:"-"`
}

// DiagnosesByType groups the diagnosis rows by their type. Storage order
// is not significant; callers sort by seq_no where they need it.
func (r *Record) DiagnosesByType() map[DiagType][]*Diagnosis {
	grouped := make(map[DiagType][]*Diagnosis)
	for _, d := range r.Diagnoses {
		grouped[d.DiagType] = append(grouped[d.DiagType], d)
	}
	return grouped
}

// Org is the reporting institution a record belongs to, identified by its
// national organization code (ZZJGDM).
type Org struct {
	ID       int64  `db:"id" json:"id"`
	Jgmc     string `db:"jgmc" json:"jgmc"`
	Zzjgdm   string `db:"zzjgdm" json:"zzjgdm"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// BaseInfo is the mandatory header section: demographics, contact data
// and visit metadata. Field names follow the upload-interface codes the
// regulator defines (XM, XB, CSRQ, ...); empty string or "-" means the
// field has not been captured yet.
type BaseInfo struct {
	RecordID int64      `db:"record_id" json:"-"`
	Username string     `db:"username" json:"username"`
	Jzkh     string     `db:"jzkh" json:"jzkh"`
	Xm       string     `db:"xm" json:"xm"`
	Xb       string     `db:"xb" json:"xb"`
	Csrq     *time.Time `db:"csrq" json:"csrq"`
	Hy       string     `db:"hy" json:"hy"`
	Gj       string     `db:"gj" json:"gj"`
	Mz       string     `db:"mz" json:"mz"`
	Zjlb     string     `db:"zjlb" json:"zjlb"`
	Zjhm     string     `db:"zjhm" json:"zjhm"`
	Xzz      string     `db:"xzz" json:"xzz"`
	Lxdh     string     `db:"lxdh" json:"lxdh"`

	Ywgms string `db:"ywgms" json:"ywgms"`
	Gmyw  string `db:"gmyw" json:"gmyw"`
	Qtgms string `db:"qtgms" json:"qtgms"`
	Qtgmy string `db:"qtgmy" json:"qtgmy"`

	Ghsj *time.Time `db:"ghsj" json:"ghsj"`
	Bdsj *time.Time `db:"bdsj" json:"bdsj"`
	Jzsj *time.Time `db:"jzsj" json:"jzsj"`

	Jzks    string     `db:"jzks" json:"jzks"`
	Jzksdm  string     `db:"jzksdm" json:"jzksdm"`
	Jzys    string     `db:"jzys" json:"jzys"`
	Jzyszc  string     `db:"jzyszc" json:"jzyszc"`
	Jzlx    string     `db:"jzlx" json:"jzlx"`
	Fz      string     `db:"fz" json:"fz"`
	Sy      string     `db:"sy" json:"sy"`
	Mzmtbhz string     `db:"mzmtbhz" json:"mzmtbhz"`
	Jzhzfj  string     `db:"jzhzfj" json:"jzhzfj"`
	Jzhzqx  string     `db:"jzhzqx" json:"jzhzqx"`
	Zyzkjsj *time.Time `db:"zyzkjsj" json:"zyzkjsj"`

	Hzzs string `db:"hzzs" json:"hzzs"`
}

// Field returns the value of a string-typed header field by its
// interface code. Timestamp fields are not addressable this way.
func (b *BaseInfo) Field(name string) string {
	switch name {
	case "username":
		return b.Username
	case "jzkh":
		return b.Jzkh
	case "xm":
		return b.Xm
	case "xb":
		return b.Xb
	case "hy":
		return b.Hy
	case "gj":
		return b.Gj
	case "mz":
		return b.Mz
	case "zjlb":
		return b.Zjlb
	case "zjhm":
		return b.Zjhm
	case "xzz":
		return b.Xzz
	case "lxdh":
		return b.Lxdh
	case "ywgms":
		return b.Ywgms
	case "gmyw":
		return b.Gmyw
	case "qtgms":
		return b.Qtgms
	case "qtgmy":
		return b.Qtgmy
	case "jzks":
		return b.Jzks
	case "jzksdm":
		return b.Jzksdm
	case "jzys":
		return b.Jzys
	case "jzyszc":
		return b.Jzyszc
	case "jzlx":
		return b.Jzlx
	case "fz":
		return b.Fz
	case "sy":
		return b.Sy
	case "mzmtbhz":
		return b.Mzmtbhz
	case "jzhzfj":
		return b.Jzhzfj
	case "jzhzqx":
		return b.Jzhzqx
	case "hzzs":
		return b.Hzzs
	}
	return ""
}

// Diagnosis rows are sequence-numbered per diag_type, not globally.
type Diagnosis struct {
	ID       int64    `db:"id" json:"-"`
	RecordID int64    `db:"record_id" json:"-"`
	DiagType DiagType `db:"diag_type" json:"diag_type"`
	SeqNo    int      `db:"seq_no" json:"seq_no"`
	DiagName string   `db:"diag_name" json:"diag_name"`
	DiagCode string   `db:"diag_code" json:"diag_code"`
	Source   string   `db:"source" json:"-"`
}

type TcmOperation struct {
	ID       int64  `db:"id" json:"-"`
	RecordID int64  `db:"record_id" json:"-"`
	SeqNo    int    `db:"seq_no" json:"seq_no"`
	OpName   string `db:"op_name" json:"op_name"`
	OpCode   string `db:"op_code" json:"op_code"`
	OpTimes  *int   `db:"op_times" json:"op_times"`
	OpDays   *int   `db:"op_days" json:"op_days"`
	Source   string `db:"source" json:"-"`
}

type Surgery struct {
	ID               int64      `db:"id" json:"-"`
	RecordID         int64      `db:"record_id" json:"-"`
	SeqNo            int        `db:"seq_no" json:"seq_no"`
	OpName           string     `db:"op_name" json:"op_name"`
	OpCode           string     `db:"op_code" json:"op_code"`
	OpTime           *time.Time `db:"op_time" json:"op_time"`
	OperatorName     string     `db:"operator_name" json:"operator_name"`
	AnesthesiaMethod string     `db:"anesthesia_method" json:"anesthesia_method"`
	AnesthesiaDoctor string     `db:"anesthesia_doctor" json:"anesthesia_doctor"`
	SurgeryLevel     *int       `db:"surgery_level" json:"surgery_level"`
	Source           string     `db:"source" json:"-"`
}

type HerbDetail struct {
	ID        int64  `db:"id" json:"-"`
	RecordID  int64  `db:"record_id" json:"-"`
	SeqNo     int    `db:"seq_no" json:"seq_no"`
	HerbType  string `db:"herb_type" json:"herb_type"`
	RouteCode string `db:"route_code" json:"route_code"`
	RouteName string `db:"route_name" json:"route_name"`
	DoseCount *int   `db:"dose_count" json:"dose_count"`
	Source    string `db:"source" json:"-"`
}

// MedicationSummary carries the five yes/no usage flags (RC016 coded).
// All values come from the HIS fee feed and are never user-edited.
type MedicationSummary struct {
	RecordID int64  `db:"record_id" json:"-"`
	Xysy     string `db:"xysy" json:"xysy"`
	Zcysy    string `db:"zcysy" json:"zcysy"`
	Zyzjsy   string `db:"zyzjsy" json:"zyzjsy"`
	Ctypsy   string `db:"ctypsy" json:"ctypsy"`
	Pfklsy   string `db:"pfklsy" json:"pfklsy"`
}

// Flag returns one of the five usage flags by its interface code.
func (m *MedicationSummary) Flag(name string) string {
	switch name {
	case "xysy":
		return m.Xysy
	case "zcysy":
		return m.Zcysy
	case "zyzjsy":
		return m.Zyzjsy
	case "ctypsy":
		return m.Ctypsy
	case "pfklsy":
		return m.Pfklsy
	}
	return ""
}

// FeeSummary is the read-only fee breakdown sourced from the HIS fee
// view. Amounts are exact decimals; a nil field means the feed did not
// report that category.
type FeeSummary struct {
	RecordID int64 `db:"record_id" json:"-"`

	Zfy  *decimal.Decimal `db:"zfy" json:"zfy"`
	Zfje *decimal.Decimal `db:"zfje" json:"zfje"`

	Ylfwf    *decimal.Decimal `db:"ylfwf" json:"ylfwf"`
	Zlczf    *decimal.Decimal `db:"zlczf" json:"zlczf"`
	Hlf      *decimal.Decimal `db:"hlf" json:"hlf"`
	Qtfy     *decimal.Decimal `db:"qtfy" json:"qtfy"`
	Blzdf    *decimal.Decimal `db:"blzdf" json:"blzdf"`
	Zdf      *decimal.Decimal `db:"zdf" json:"zdf"`
	Yxxzdf   *decimal.Decimal `db:"yxxzdf" json:"yxxzdf"`
	Lczdxmf  *decimal.Decimal `db:"lczdxmf" json:"lczdxmf"`
	Fsszlxmf *decimal.Decimal `db:"fsszlxmf" json:"fsszlxmf"`
	Zlf      *decimal.Decimal `db:"zlf" json:"zlf"`
	Sszlf    *decimal.Decimal `db:"sszlf" json:"sszlf"`
	Mzf      *decimal.Decimal `db:"mzf" json:"mzf"`
	Ssf      *decimal.Decimal `db:"ssf" json:"ssf"`
	Kff      *decimal.Decimal `db:"kff" json:"kff"`
	ZylZyzd  *decimal.Decimal `db:"zyl_zyzd" json:"zyl_zyzd"`
	Zyzl     *decimal.Decimal `db:"zyzl" json:"zyzl"`
	Zywz     *decimal.Decimal `db:"zywz" json:"zywz"`
	Zygs     *decimal.Decimal `db:"zygs" json:"zygs"`
	Zcyjf    *decimal.Decimal `db:"zcyjf" json:"zcyjf"`
	Zytnzl   *decimal.Decimal `db:"zytnzl" json:"zytnzl"`
	Zygczl   *decimal.Decimal `db:"zygczl" json:"zygczl"`
	Zytszl   *decimal.Decimal `db:"zytszl" json:"zytszl"`
	Zyqt     *decimal.Decimal `db:"zyqt" json:"zyqt"`
	Zytstpjg *decimal.Decimal `db:"zytstpjg" json:"zytstpjg"`
	Bzss     *decimal.Decimal `db:"bzss" json:"bzss"`
	Xyf      *decimal.Decimal `db:"xyf" json:"xyf"`
	Kjywf    *decimal.Decimal `db:"kjywf" json:"kjywf"`
	Zcyf     *decimal.Decimal `db:"zcyf" json:"zcyf"`
	Zyzjf    *decimal.Decimal `db:"zyzjf" json:"zyzjf"`
	Zcyf1    *decimal.Decimal `db:"zcyf1" json:"zcyf1"`
	Pfklf    *decimal.Decimal `db:"pfklf" json:"pfklf"`
	Xf       *decimal.Decimal `db:"xf" json:"xf"`
	Bdbblzpf *decimal.Decimal `db:"bdbblzpf" json:"bdbblzpf"`
	Qdbblzpf *decimal.Decimal `db:"qdbblzpf" json:"qdbblzpf"`
	Nxyzlzpf *decimal.Decimal `db:"nxyzlzpf" json:"nxyzlzpf"`
	Xbyzlzpf *decimal.Decimal `db:"xbyzlzpf" json:"xbyzlzpf"`
	Jcyyclf  *decimal.Decimal `db:"jcyyclf" json:"jcyyclf"`
	Yyclf    *decimal.Decimal `db:"yyclf" json:"yyclf"`
	Ssycxclf *decimal.Decimal `db:"ssycxclf" json:"ssycxclf"`
	Qtf      *decimal.Decimal `db:"qtf" json:"qtf"`
}

// Amount returns a fee field by its interface code, nil when the feed
// did not report it or the code is unknown.
func (f *FeeSummary) Amount(field string) *decimal.Decimal {
	switch field {
	case "zfy":
		return f.Zfy
	case "zfje":
		return f.Zfje
	case "ylfwf":
		return f.Ylfwf
	case "zlczf":
		return f.Zlczf
	case "hlf":
		return f.Hlf
	case "qtfy":
		return f.Qtfy
	case "blzdf":
		return f.Blzdf
	case "zdf":
		return f.Zdf
	case "yxxzdf":
		return f.Yxxzdf
	case "lczdxmf":
		return f.Lczdxmf
	case "fsszlxmf":
		return f.Fsszlxmf
	case "zlf":
		return f.Zlf
	case "sszlf":
		return f.Sszlf
	case "mzf":
		return f.Mzf
	case "ssf":
		return f.Ssf
	case "kff":
		return f.Kff
	case "zyl_zyzd":
		return f.ZylZyzd
	case "zyzl":
		return f.Zyzl
	case "zywz":
		return f.Zywz
	case "zygs":
		return f.Zygs
	case "zcyjf":
		return f.Zcyjf
	case "zytnzl":
		return f.Zytnzl
	case "zygczl":
		return f.Zygczl
	case "zytszl":
		return f.Zytszl
	case "zyqt":
		return f.Zyqt
	case "zytstpjg":
		return f.Zytstpjg
	case "bzss":
		return f.Bzss
	case "xyf":
		return f.Xyf
	case "kjywf":
		return f.Kjywf
	case "zcyf":
		return f.Zcyf
	case "zyzjf":
		return f.Zyzjf
	case "zcyf1":
		return f.Zcyf1
	case "pfklf":
		return f.Pfklf
	case "xf":
		return f.Xf
	case "bdbblzpf":
		return f.Bdbblzpf
	case "qdbblzpf":
		return f.Qdbblzpf
	case "nxyzlzpf":
		return f.Nxyzlzpf
	case "xbyzlzpf":
		return f.Xbyzlzpf
	case "jcyyclf":
		return f.Jcyyclf
	case "yyclf":
		return f.Yyclf
	case "ssycxclf":
		return f.Ssycxclf
	case "qtf":
		return f.Qtf
	}
	return nil
}
