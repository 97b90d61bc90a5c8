// Package external reads the hospital information system's reporting
// views. The connection is strictly read-only; the platform never writes
// into the HIS.
package external

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/internal/config"
	"github.com/mzemr/record-api/pkg/circuitbreaker"
	"github.com/mzemr/record-api/pkg/rowmap"
)

// DataAdapter is the lookup surface consumed by the record, export and
// print services. Rows come back loosely typed; callers pick values out
// with rowmap.FirstValue because column names vary between HIS vendors.
type DataAdapter interface {
	// FetchBaseInfo returns the patient master-index row for one visit,
	// keyed by the visit card number (JZKH). Nil when unknown.
	FetchBaseInfo(ctx context.Context, patientNo string) (rowmap.Row, error)
	// FetchPatientFee returns the fee breakdown row, keyed by BLH.
	FetchPatientFee(ctx context.Context, patientNo string) (rowmap.Row, error)
	// FetchVisitList returns one row per visit inside [from, to).
	FetchVisitList(ctx context.Context, from, to time.Time) ([]rowmap.Row, error)
	// FetchDiagnoses returns the HIS diagnosis rows for one visit.
	FetchDiagnoses(ctx context.Context, patientNo string) ([]rowmap.Row, error)
	// FetchChiefComplaint returns the chief-complaint text, "" when the
	// HIS has none.
	FetchChiefComplaint(ctx context.Context, patientNo string) (string, error)
	// FetchHerbDetails returns the dispensed herb prescription rows.
	FetchHerbDetails(ctx context.Context, patientNo string) ([]rowmap.Row, error)
}

const (
	baseInfoQuery  = `SELECT * FROM V_EMR_MZ_PAT_MASTER_INDEX WHERE JZKH = $1`
	feeQuery       = `SELECT * FROM V_EMR_MZ_PAGE_FEE WHERE BLH = $1`
	visitListQuery = `SELECT JZKH, JZSJ, jzksdm, jzysdm, XM, jzks, JZYS
		FROM V_EMR_MZ_PAT_MASTER_INDEX
		WHERE JZSJ >= $1 AND JZSJ < $2`
	diagnosisQuery = `SELECT * FROM V_EMR_MZ_DIAGNOSIS WHERE JZKH = $1`
	chiefQuery     = `SELECT HZZS FROM V_EMR_MZ_CHIEF_COMPLAINT WHERE JZKH = $1`
	herbQuery      = `SELECT * FROM V_EMR_MZ_HERB_DETAIL WHERE BLH = $1`
)

type adapter struct {
	db      *sqlx.DB
	breaker *circuitbreaker.CircuitBreaker
	logger  zerolog.Logger
}

func NewAdapter(cfg config.ExternalConfig, logger zerolog.Logger) (DataAdapter, error) {
	db, err := sqlx.Connect(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to external source: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &adapter{
		db: db,
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "his",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: logger.With().Str("component", "external").Logger(),
	}, nil
}

func (a *adapter) FetchBaseInfo(ctx context.Context, patientNo string) (rowmap.Row, error) {
	rows, err := a.query(ctx, baseInfoQuery, patientNo)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (a *adapter) FetchPatientFee(ctx context.Context, patientNo string) (rowmap.Row, error) {
	rows, err := a.query(ctx, feeQuery, patientNo)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (a *adapter) FetchVisitList(ctx context.Context, from, to time.Time) ([]rowmap.Row, error) {
	return a.query(ctx, visitListQuery, from, to)
}

func (a *adapter) FetchDiagnoses(ctx context.Context, patientNo string) ([]rowmap.Row, error) {
	return a.query(ctx, diagnosisQuery, patientNo)
}

func (a *adapter) FetchChiefComplaint(ctx context.Context, patientNo string) (string, error) {
	rows, err := a.query(ctx, chiefQuery, patientNo)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rowmap.String(rowmap.FirstValue(rows[0], "HZZS", "hzzs")), nil
}

func (a *adapter) FetchHerbDetails(ctx context.Context, patientNo string) ([]rowmap.Row, error) {
	return a.query(ctx, herbQuery, patientNo)
}

func (a *adapter) query(ctx context.Context, query string, args ...interface{}) ([]rowmap.Row, error) {
	var result []rowmap.Row
	err := a.breaker.Execute(func() error {
		rows, err := a.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("external query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			row := make(map[string]interface{})
			if err := rows.MapScan(row); err != nil {
				return fmt.Errorf("failed to scan external row: %w", err)
			}
			result = append(result, rowmap.Row(row))
		}
		return rows.Err()
	})
	if err != nil {
		a.logger.Error().Err(err).Str("query", query).Msg("external query failed")
		return nil, err
	}
	return result, nil
}
