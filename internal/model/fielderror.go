package model

// Rule tags carried on FieldError. The set is fixed; the correction UI
// switches on these values.
const (
	RuleRequired            = "required"
	RuleMaxLength           = "max_length"
	RuleTimeOrder           = "time_order"
	RuleIDCard              = "idcard"
	RuleConditionalRequired = "conditional_required"
	RuleSeqNo               = "seq_no"
	RuleMaxCount            = "max_count"
	RuleInvalidType         = "invalid_type"
	RuleRowComplete         = "row_complete"
	RuleRange               = "range"
	RuleDict                = "dict"
	RuleFeeRelation         = "fee_relation"
)

// FieldError is one submit-blocking finding. Field is a dotted path
// ("fee_summary.zfy", "diagnosis.tcm_syndrome.2.diag_code"); Section is
// the UI grouping label; SeqNo is set for list-item findings.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Rule    string `json:"rule"`
	Section string `json:"section"`
	SeqNo   *int   `json:"seq_no,omitempty"`
}
