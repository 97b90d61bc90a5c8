package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
)

type dictRepository struct {
	db *sqlx.DB
}

func NewDictRepository(db *sqlx.DB) repository.DictRepository {
	return &dictRepository{db: db}
}

func (r *dictRepository) SetExists(ctx context.Context, setCode string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM dict_set WHERE set_code = $1`, setCode)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dict set: %w", err)
	}
	return true, nil
}

func (r *dictRepository) CodeExists(ctx context.Context, setCode, code string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one,
		`SELECT 1 FROM dict_item WHERE set_code = $1 AND code = $2 AND status = $3 LIMIT 1`,
		setCode, code, model.DictStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dict item: %w", err)
	}
	return true, nil
}

func (r *dictRepository) CanonicalName(ctx context.Context, setCode, code string) (string, bool, error) {
	var name string
	err := r.db.GetContext(ctx, &name,
		`SELECT name FROM dict_item WHERE set_code = $1 AND code = $2 AND status = $3 LIMIT 1`,
		setCode, code, model.DictStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get dict item name: %w", err)
	}
	return name, true, nil
}

func (r *dictRepository) Search(ctx context.Context, setCode, query string, page, pageSize int) (*model.DictSearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	where := `set_code = $1 AND status = $2`
	args := []interface{}{setCode, model.DictStatusActive}
	if query != "" {
		where += ` AND (code ILIKE $3 OR name ILIKE $3 OR pinyin ILIKE $3)`
		args = append(args, "%"+query+"%")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM dict_item WHERE %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to count dict items: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT * FROM dict_item WHERE %s
		ORDER BY sort_no ASC, code ASC
		OFFSET %d LIMIT %d`, where, (page-1)*pageSize, pageSize)
	var items []model.DictItem
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search dict items: %w", err)
	}

	return &model.DictSearchResult{
		SetCode:  setCode,
		Query:    query,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}, nil
}

func (r *dictRepository) GetItems(ctx context.Context, setCode string, codes []string) ([]model.DictItem, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM dict_item WHERE set_code = ? AND status = ? AND code IN (?)`,
		setCode, model.DictStatusActive, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to build dict query: %w", err)
	}
	query = r.db.Rebind(query)

	var items []model.DictItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get dict items: %w", err)
	}
	return items, nil
}
