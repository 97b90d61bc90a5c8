package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
)

type exportLogRepository struct {
	db *sqlx.DB
}

func NewExportLogRepository(db *sqlx.DB) repository.ExportLogRepository {
	return &exportLogRepository{db: db}
}

func (r *exportLogRepository) Create(ctx context.Context, entry *model.ExportLog) error {
	entry.CreatedAt = time.Now()
	query := `
		INSERT INTO mz_mfp_export_log (
			record_id, export_type, file_name, status, error_message, detail, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		entry.RecordID, entry.ExportType, entry.FileName, entry.Status,
		entry.ErrorMessage, entry.Detail, entry.CreatedBy, entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to insert export log: %w", err)
	}
	return nil
}

func (r *exportLogRepository) DeleteByRecordID(ctx context.Context, recordID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mz_mfp_export_log WHERE record_id = $1`, recordID); err != nil {
		return fmt.Errorf("failed to delete export logs: %w", err)
	}
	return nil
}
