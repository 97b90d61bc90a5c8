package model

import (
	"encoding/json"
	"time"
)

// RecordSaveRequest is the body of both draft-save and submit. Version
// must match the stored record for updates (optimistic concurrency); it
// is ignored when the save creates the record.
type RecordSaveRequest struct {
	Version *int          `json:"version"`
	Payload RecordPayload `json:"payload" binding:"required"`
}

// RecordPayload is the editable portion of a record. Fee and medication
// data are read-only and deliberately absent here: they are re-applied
// from the HIS feed on every save.
type RecordPayload struct {
	BaseInfo      BaseInfoPayload    `json:"base_info" binding:"required"`
	Diagnoses     []DiagnosisItem    `json:"diagnoses" binding:"max=23,dive"`
	TcmOperations []TcmOperationItem `json:"tcm_operations" binding:"max=10,dive"`
	Surgeries     []SurgeryItem      `json:"surgeries" binding:"max=5,dive"`
	HerbDetails   []HerbDetailItem   `json:"herb_details" binding:"max=40,dive"`
}

// BaseInfoPayload mirrors BaseInfo. Everything is optional at the
// payload level; incompleteness is a draft's privilege and the
// validation engine gates submit.
type BaseInfoPayload struct {
	Username string     `json:"username"`
	Jzkh     string     `json:"jzkh"`
	Xm       string     `json:"xm"`
	Xb       string     `json:"xb"`
	Csrq     *time.Time `json:"csrq"`
	Hy       string     `json:"hy"`
	Gj       string     `json:"gj"`
	Mz       string     `json:"mz"`
	Zjlb     string     `json:"zjlb"`
	Zjhm     string     `json:"zjhm"`
	Xzz      string     `json:"xzz"`
	Lxdh     string     `json:"lxdh"`
	Ywgms    string     `json:"ywgms"`
	Gmyw     string     `json:"gmyw"`
	Qtgms    string     `json:"qtgms"`
	Qtgmy    string     `json:"qtgmy"`
	Ghsj     *time.Time `json:"ghsj"`
	Bdsj     *time.Time `json:"bdsj"`
	Jzsj     *time.Time `json:"jzsj"`
	Jzks     string     `json:"jzks"`
	Jzksdm   string     `json:"jzksdm"`
	Jzys     string     `json:"jzys"`
	Jzyszc   string     `json:"jzyszc"`
	Jzlx     string     `json:"jzlx"`
	Fz       string     `json:"fz"`
	Sy       string     `json:"sy"`
	Mzmtbhz  string     `json:"mzmtbhz"`
	Jzhzfj   string     `json:"jzhzfj"`
	Jzhzqx   string     `json:"jzhzqx"`
	Zyzkjsj  *time.Time `json:"zyzkjsj"`
	Hzzs     string     `json:"hzzs"`
}

type DiagnosisItem struct {
	DiagType DiagType `json:"diag_type" binding:"required,oneof=tcm_disease_main tcm_syndrome wm_main wm_other"`
	SeqNo    int      `json:"seq_no"`
	DiagName string   `json:"diag_name"`
	DiagCode string   `json:"diag_code"`
}

type TcmOperationItem struct {
	SeqNo   int    `json:"seq_no"`
	OpName  string `json:"op_name"`
	OpCode  string `json:"op_code"`
	OpTimes *int   `json:"op_times"`
	OpDays  *int   `json:"op_days"`
}

type SurgeryItem struct {
	SeqNo            int        `json:"seq_no"`
	OpName           string     `json:"op_name"`
	OpCode           string     `json:"op_code"`
	OpTime           *time.Time `json:"op_time"`
	OperatorName     string     `json:"operator_name"`
	AnesthesiaMethod string     `json:"anesthesia_method"`
	AnesthesiaDoctor string     `json:"anesthesia_doctor"`
	SurgeryLevel     *int       `json:"surgery_level"`
}

type HerbDetailItem struct {
	SeqNo     int    `json:"seq_no"`
	HerbType  string `json:"herb_type"`
	RouteCode string `json:"route_code"`
	RouteName string `json:"route_name"`
	DoseCount *int   `json:"dose_count"`
}

// RecordMeta is the aggregate-level metadata returned to the UI.
type RecordMeta struct {
	RecordID    int64        `json:"record_id"`
	PatientNo   string       `json:"patient_no"`
	Status      RecordStatus `json:"status"`
	Version     int          `json:"version"`
	VisitTime   time.Time    `json:"visit_time"`
	SubmittedAt *time.Time   `json:"submitted_at,omitempty"`
}

type RecordResponse struct {
	Record            RecordMeta         `json:"record"`
	Payload           RecordPayload      `json:"payload"`
	MedicationSummary *MedicationSummary `json:"medication_summary,omitempty"`
	FeeSummary        *FeeSummary        `json:"fee_summary,omitempty"`
	PrefillSnapshot   json.RawMessage    `json:"prefill_snapshot,omitempty"`
}
