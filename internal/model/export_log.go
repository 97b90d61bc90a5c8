package model

import (
	"encoding/json"
	"time"
)

const (
	ExportTypeXLSX  = "xlsx"
	ExportTypePrint = "print"

	ExportStatusSuccess = "success"
	ExportStatusFailed  = "failed"
)

// ExportLog is an append-only trace of export and print attempts.
type ExportLog struct {
	ID           int64           `db:"id" json:"id"`
	RecordID     *int64          `db:"record_id" json:"record_id,omitempty"`
	ExportType   string          `db:"export_type" json:"export_type"`
	FileName     string          `db:"file_name" json:"file_name"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	Detail       json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
