package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
)

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) CreateBatch(ctx context.Context, audits []model.FieldAudit) error {
	if len(audits) == 0 {
		return nil
	}
	return withTx(r.db, func(tx *sqlx.Tx) error {
		now := time.Now()
		query := `
			INSERT INTO mz_mfp_field_audit (
				record_id, field_key, old_value, new_value, change_source, operator_code, created_at
			) VALUES (:record_id, :field_key, :old_value, :new_value, :change_source, :operator_code, :created_at)
		`
		for i := range audits {
			audits[i].CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, query, audits[i]); err != nil {
				return fmt.Errorf("failed to insert field audit: %w", err)
			}
		}
		return nil
	})
}

func (r *auditRepository) ListByRecordID(ctx context.Context, recordID int64, limit int) ([]model.FieldAudit, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var audits []model.FieldAudit
	query := `
		SELECT * FROM mz_mfp_field_audit
		WHERE record_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &audits, query, recordID, limit); err != nil {
		return nil, fmt.Errorf("failed to list field audits: %w", err)
	}
	return audits, nil
}
