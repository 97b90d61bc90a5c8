package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
)

type recordRepository struct {
	db *sqlx.DB
}

func NewRecordRepository(db *sqlx.DB) repository.RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) GetByPatientNo(ctx context.Context, patientNo string) (*model.Record, error) {
	return r.getOne(ctx, `SELECT * FROM mz_mfp_record WHERE patient_no = $1`, patientNo)
}

func (r *recordRepository) GetByID(ctx context.Context, id int64) (*model.Record, error) {
	return r.getOne(ctx, `SELECT * FROM mz_mfp_record WHERE id = $1`, id)
}

func (r *recordRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.Record, error) {
	var rec model.Record
	if err := r.db.GetContext(ctx, &rec, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if err := r.loadChildren(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepository) ListByPatientNos(ctx context.Context, patientNos []string) ([]*model.Record, error) {
	if len(patientNos) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM mz_mfp_record WHERE patient_no IN (?)`, patientNos)
	if err != nil {
		return nil, fmt.Errorf("failed to build record query: %w", err)
	}
	query = r.db.Rebind(query)

	var records []*model.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	for _, rec := range records {
		if err := r.loadChildren(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *recordRepository) loadChildren(ctx context.Context, rec *model.Record) error {
	var base model.BaseInfo
	err := r.db.GetContext(ctx, &base, `SELECT * FROM mz_mfp_base_info WHERE record_id = $1`, rec.ID)
	switch {
	case err == nil:
		rec.BaseInfo = &base
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to load base info: %w", err)
	}

	if err := r.db.SelectContext(ctx, &rec.Diagnoses,
		`SELECT * FROM mz_mfp_diagnosis WHERE record_id = $1 ORDER BY diag_type, seq_no`, rec.ID); err != nil {
		return fmt.Errorf("failed to load diagnoses: %w", err)
	}
	if err := r.db.SelectContext(ctx, &rec.TcmOperations,
		`SELECT * FROM mz_mfp_tcm_operation WHERE record_id = $1 ORDER BY seq_no`, rec.ID); err != nil {
		return fmt.Errorf("failed to load tcm operations: %w", err)
	}
	if err := r.db.SelectContext(ctx, &rec.Surgeries,
		`SELECT * FROM mz_mfp_surgery WHERE record_id = $1 ORDER BY seq_no`, rec.ID); err != nil {
		return fmt.Errorf("failed to load surgeries: %w", err)
	}
	if err := r.db.SelectContext(ctx, &rec.HerbDetails,
		`SELECT * FROM mz_mfp_herb_detail WHERE record_id = $1 ORDER BY seq_no`, rec.ID); err != nil {
		return fmt.Errorf("failed to load herb details: %w", err)
	}

	var med model.MedicationSummary
	err = r.db.GetContext(ctx, &med, `SELECT * FROM mz_mfp_medication_summary WHERE record_id = $1`, rec.ID)
	switch {
	case err == nil:
		rec.MedicationSummary = &med
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to load medication summary: %w", err)
	}

	var fee model.FeeSummary
	err = r.db.GetContext(ctx, &fee, `SELECT * FROM mz_mfp_fee_summary WHERE record_id = $1`, rec.ID)
	switch {
	case err == nil:
		rec.FeeSummary = &fee
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to load fee summary: %w", err)
	}

	var org model.Org
	err = r.db.GetContext(ctx, &org, `SELECT * FROM mz_mfp_org WHERE id = $1`, rec.OrgID)
	switch {
	case err == nil:
		rec.Org = &org
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to load org: %w", err)
	}

	return nil
}

func (r *recordRepository) Create(ctx context.Context, rec *model.Record) error {
	return withTx(r.db, func(tx *sqlx.Tx) error {
		now := time.Now()
		rec.Version = 1
		rec.CreatedAt = now
		rec.UpdatedAt = now

		query := `
			INSERT INTO mz_mfp_record (
				org_id, patient_no, visit_time, status, dept_code, doc_code,
				submitted_at, version, prefill_snapshot, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query,
			rec.OrgID, rec.PatientNo, rec.VisitTime, rec.Status, rec.DeptCode, rec.DocCode,
			rec.SubmittedAt, rec.Version, rec.PrefillSnapshot, rec.CreatedAt, rec.UpdatedAt,
		).Scan(&rec.ID); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}

		return r.writeChildren(ctx, tx, rec)
	})
}

func (r *recordRepository) Update(ctx context.Context, rec *model.Record, expectedVersion int) error {
	return withTx(r.db, func(tx *sqlx.Tx) error {
		rec.UpdatedAt = time.Now()

		query := `
			UPDATE mz_mfp_record SET
				status = $1, dept_code = $2, doc_code = $3, submitted_at = $4,
				prefill_snapshot = $5, version = version + 1, updated_at = $6
			WHERE id = $7 AND version = $8
		`
		result, err := tx.ExecContext(ctx, query,
			rec.Status, rec.DeptCode, rec.DocCode, rec.SubmittedAt,
			rec.PrefillSnapshot, rec.UpdatedAt, rec.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrVersionConflict
		}
		rec.Version = expectedVersion + 1

		if err := r.deleteChildren(ctx, tx, rec.ID); err != nil {
			return err
		}
		return r.writeChildren(ctx, tx, rec)
	})
}

// deleteChildren clears every child section before reinsert; the unique
// constraint on (record_id, diag_type, seq_no) makes in-place updates
// collide with renumbered rows.
func (r *recordRepository) deleteChildren(ctx context.Context, tx *sqlx.Tx, recordID int64) error {
	for _, table := range []string{
		"mz_mfp_base_info",
		"mz_mfp_diagnosis",
		"mz_mfp_tcm_operation",
		"mz_mfp_surgery",
		"mz_mfp_herb_detail",
		"mz_mfp_medication_summary",
		"mz_mfp_fee_summary",
	} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE record_id = $1`, table), recordID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (r *recordRepository) writeChildren(ctx context.Context, tx *sqlx.Tx, rec *model.Record) error {
	if rec.BaseInfo != nil {
		rec.BaseInfo.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_base_info (
				record_id, username, jzkh, xm, xb, csrq, hy, gj, mz, zjlb, zjhm, xzz, lxdh,
				ywgms, gmyw, qtgms, qtgmy, ghsj, bdsj, jzsj, jzks, jzksdm, jzys, jzyszc,
				jzlx, fz, sy, mzmtbhz, jzhzfj, jzhzqx, zyzkjsj, hzzs
			) VALUES (
				:record_id, :username, :jzkh, :xm, :xb, :csrq, :hy, :gj, :mz, :zjlb, :zjhm, :xzz, :lxdh,
				:ywgms, :gmyw, :qtgms, :qtgmy, :ghsj, :bdsj, :jzsj, :jzks, :jzksdm, :jzys, :jzyszc,
				:jzlx, :fz, :sy, :mzmtbhz, :jzhzfj, :jzhzqx, :zyzkjsj, :hzzs
			)`, rec.BaseInfo); err != nil {
			return fmt.Errorf("failed to insert base info: %w", err)
		}
	}

	for _, d := range rec.Diagnoses {
		d.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_diagnosis (record_id, diag_type, seq_no, diag_name, diag_code, source)
			VALUES (:record_id, :diag_type, :seq_no, :diag_name, :diag_code, :source)`, d); err != nil {
			return fmt.Errorf("failed to insert diagnosis: %w", err)
		}
	}

	for _, op := range rec.TcmOperations {
		op.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_tcm_operation (record_id, seq_no, op_name, op_code, op_times, op_days, source)
			VALUES (:record_id, :seq_no, :op_name, :op_code, :op_times, :op_days, :source)`, op); err != nil {
			return fmt.Errorf("failed to insert tcm operation: %w", err)
		}
	}

	for _, s := range rec.Surgeries {
		s.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_surgery (
				record_id, seq_no, op_name, op_code, op_time, operator_name,
				anesthesia_method, anesthesia_doctor, surgery_level, source
			) VALUES (
				:record_id, :seq_no, :op_name, :op_code, :op_time, :operator_name,
				:anesthesia_method, :anesthesia_doctor, :surgery_level, :source
			)`, s); err != nil {
			return fmt.Errorf("failed to insert surgery: %w", err)
		}
	}

	for _, h := range rec.HerbDetails {
		h.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_herb_detail (record_id, seq_no, herb_type, route_code, route_name, dose_count, source)
			VALUES (:record_id, :seq_no, :herb_type, :route_code, :route_name, :dose_count, :source)`, h); err != nil {
			return fmt.Errorf("failed to insert herb detail: %w", err)
		}
	}

	if rec.MedicationSummary != nil {
		rec.MedicationSummary.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_medication_summary (record_id, xysy, zcysy, zyzjsy, ctypsy, pfklsy)
			VALUES (:record_id, :xysy, :zcysy, :zyzjsy, :ctypsy, :pfklsy)`, rec.MedicationSummary); err != nil {
			return fmt.Errorf("failed to insert medication summary: %w", err)
		}
	}

	if rec.FeeSummary != nil {
		rec.FeeSummary.RecordID = rec.ID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO mz_mfp_fee_summary (
				record_id, zfy, zfje, ylfwf, zlczf, hlf, qtfy, blzdf, zdf, yxxzdf, lczdxmf,
				fsszlxmf, zlf, sszlf, mzf, ssf, kff, zyl_zyzd, zyzl, zywz, zygs, zcyjf,
				zytnzl, zygczl, zytszl, zyqt, zytstpjg, bzss, xyf, kjywf, zcyf, zyzjf,
				zcyf1, pfklf, xf, bdbblzpf, qdbblzpf, nxyzlzpf, xbyzlzpf, jcyyclf, yyclf,
				ssycxclf, qtf
			) VALUES (
				:record_id, :zfy, :zfje, :ylfwf, :zlczf, :hlf, :qtfy, :blzdf, :zdf, :yxxzdf, :lczdxmf,
				:fsszlxmf, :zlf, :sszlf, :mzf, :ssf, :kff, :zyl_zyzd, :zyzl, :zywz, :zygs, :zcyjf,
				:zytnzl, :zygczl, :zytszl, :zyqt, :zytstpjg, :bzss, :xyf, :kjywf, :zcyf, :zyzjf,
				:zcyf1, :pfklf, :xf, :bdbblzpf, :qdbblzpf, :nxyzlzpf, :xbyzlzpf, :jcyyclf, :yyclf,
				:ssycxclf, :qtf
			)`, rec.FeeSummary); err != nil {
			return fmt.Errorf("failed to insert fee summary: %w", err)
		}
	}

	return nil
}

func (r *recordRepository) Delete(ctx context.Context, recordID int64) error {
	return withTx(r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM mz_mfp_export_log WHERE record_id = $1`, recordID); err != nil {
			return fmt.Errorf("failed to delete export logs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM mz_mfp_field_audit WHERE record_id = $1`, recordID); err != nil {
			return fmt.Errorf("failed to delete field audits: %w", err)
		}
		if err := r.deleteChildren(ctx, tx, recordID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM mz_mfp_record WHERE id = $1`, recordID)
		if err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *recordRepository) EnsureOrg(ctx context.Context, zzjgdm, jgmc string) (*model.Org, error) {
	var org model.Org
	err := r.db.GetContext(ctx, &org, `SELECT * FROM mz_mfp_org WHERE zzjgdm = $1`, zzjgdm)
	if err == nil {
		if jgmc != "" && org.Jgmc != jgmc {
			if _, err := r.db.ExecContext(ctx, `UPDATE mz_mfp_org SET jgmc = $1 WHERE id = $2`, jgmc, org.ID); err != nil {
				return nil, fmt.Errorf("failed to update org name: %w", err)
			}
			org.Jgmc = jgmc
		}
		return &org, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get org: %w", err)
	}

	name := jgmc
	if name == "" {
		name = zzjgdm
	}
	org = model.Org{Jgmc: name, Zzjgdm: zzjgdm, IsActive: true}
	if err := r.db.QueryRowContext(ctx,
		`INSERT INTO mz_mfp_org (jgmc, zzjgdm, is_active) VALUES ($1, $2, $3) RETURNING id`,
		org.Jgmc, org.Zzjgdm, org.IsActive,
	).Scan(&org.ID); err != nil {
		return nil, fmt.Errorf("failed to insert org: %w", err)
	}
	return &org, nil
}
