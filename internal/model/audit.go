package model

import "time"

// FieldAudit is one field-level change captured on save: flattened
// dotted key, old and new serialized values. ChangeSource distinguishes
// clinician edits from prefill refreshes.
type FieldAudit struct {
	ID           int64     `db:"id" json:"id"`
	RecordID     int64     `db:"record_id" json:"record_id"`
	FieldKey     string    `db:"field_key" json:"field_key"`
	OldValue     *string   `db:"old_value" json:"old_value"`
	NewValue     *string   `db:"new_value" json:"new_value"`
	ChangeSource string    `db:"change_source" json:"change_source"`
	OperatorCode string    `db:"operator_code" json:"operator_code"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
