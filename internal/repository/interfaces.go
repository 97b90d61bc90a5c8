package repository

import (
	"context"
	"errors"

	"github.com/mzemr/record-api/internal/model"
)

// ErrVersionConflict is returned by Update when the caller's version no
// longer matches the stored row (optimistic concurrency).
var ErrVersionConflict = errors.New("record version conflict")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// RecordRepository persists the medical-record aggregate. Loads are
// eager: every child collection is populated. Saves replace the child
// collections wholesale (set semantics); storage order of list items is
// not meaningful, only the explicit seq_no on each item is.
type RecordRepository interface {
	GetByPatientNo(ctx context.Context, patientNo string) (*model.Record, error)
	GetByID(ctx context.Context, id int64) (*model.Record, error)
	ListByPatientNos(ctx context.Context, patientNos []string) ([]*model.Record, error)
	// Create inserts the aggregate with version 1.
	Create(ctx context.Context, rec *model.Record) error
	// Update applies the aggregate if expectedVersion matches the stored
	// version, bumping it by one; ErrVersionConflict otherwise.
	Update(ctx context.Context, rec *model.Record, expectedVersion int) error
	// Delete removes the aggregate, its children and its export logs.
	Delete(ctx context.Context, recordID int64) error
	EnsureOrg(ctx context.Context, zzjgdm, jgmc string) (*model.Org, error)
}

// DictRepository reads the dictionary code-sets. Only active items
// (status=1) are visible.
type DictRepository interface {
	SetExists(ctx context.Context, setCode string) (bool, error)
	CodeExists(ctx context.Context, setCode, code string) (bool, error)
	CanonicalName(ctx context.Context, setCode, code string) (string, bool, error)
	Search(ctx context.Context, setCode, query string, page, pageSize int) (*model.DictSearchResult, error)
	GetItems(ctx context.Context, setCode string, codes []string) ([]model.DictItem, error)
}

type ExportLogRepository interface {
	Create(ctx context.Context, entry *model.ExportLog) error
	DeleteByRecordID(ctx context.Context, recordID int64) error
}

type AuditRepository interface {
	CreateBatch(ctx context.Context, audits []model.FieldAudit) error
	ListByRecordID(ctx context.Context, recordID int64, limit int) ([]model.FieldAudit, error)
}

type UserRepository interface {
	GetByLoginName(ctx context.Context, loginName string) (*model.User, error)
}
