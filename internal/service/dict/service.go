// Package dict serves the platform code-sets: paged search for the
// entry UI plus per-operator recents and favorites.
package dict

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	repo   repository.DictRepository
	usage  UsageStore
	logger zerolog.Logger
}

func NewService(repo repository.DictRepository, usage UsageStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		usage:  usage,
		logger: logger.With().Str("component", "dict").Logger(),
	}
}

func (s *Service) ensureSet(ctx context.Context, setCode string) error {
	ok, err := s.repo.SetExists(ctx, setCode)
	if err != nil {
		return fmt.Errorf("failed to check dict set %s: %w", setCode, err)
	}
	if !ok {
		return apperrors.NotFound("字典集不存在")
	}
	return nil
}

// Search pages through a code-set matching code, name or pinyin prefix.
func (s *Service) Search(ctx context.Context, setCode, query string, page, pageSize int) (*model.DictSearchResult, error) {
	if err := s.ensureSet(ctx, setCode); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	result, err := s.repo.Search(ctx, setCode, strings.TrimSpace(query), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search dict set %s: %w", setCode, err)
	}
	return result, nil
}

// MarkUsed records that the operator picked a code. Unknown codes are
// rejected so recents never accumulate stale values.
func (s *Service) MarkUsed(ctx context.Context, session *model.Session, setCode, code string) error {
	if err := s.ensureSet(ctx, setCode); err != nil {
		return err
	}
	ok, err := s.repo.CodeExists(ctx, setCode, code)
	if err != nil {
		return fmt.Errorf("failed to check dict code: %w", err)
	}
	if !ok {
		return apperrors.ValidationFailed("字典编码不存在", map[string]interface{}{"set_code": setCode, "code": code})
	}
	if err := s.usage.Touch(ctx, session.LoginName, setCode, code); err != nil {
		// Recents are a convenience; a Redis hiccup must not block entry.
		s.logger.Warn().Err(err).Str("set_code", setCode).Msg("dict usage not recorded")
	}
	return nil
}

// Recents returns the operator's recently used items, newest first.
func (s *Service) Recents(ctx context.Context, session *model.Session, setCode string, limit int) ([]model.DictItem, error) {
	if err := s.ensureSet(ctx, setCode); err != nil {
		return nil, err
	}
	codes, err := s.usage.Recents(ctx, session.LoginName, setCode, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("set_code", setCode).Msg("dict recents unavailable")
		return []model.DictItem{}, nil
	}
	return s.resolve(ctx, setCode, codes)
}

func (s *Service) AddFavorite(ctx context.Context, session *model.Session, setCode, code string) error {
	if err := s.ensureSet(ctx, setCode); err != nil {
		return err
	}
	ok, err := s.repo.CodeExists(ctx, setCode, code)
	if err != nil {
		return fmt.Errorf("failed to check dict code: %w", err)
	}
	if !ok {
		return apperrors.ValidationFailed("字典编码不存在", map[string]interface{}{"set_code": setCode, "code": code})
	}
	if err := s.usage.AddFavorite(ctx, session.LoginName, setCode, code); err != nil {
		return apperrors.External("收藏服务暂不可用，请稍后重试", err)
	}
	return nil
}

func (s *Service) RemoveFavorite(ctx context.Context, session *model.Session, setCode, code string) error {
	if err := s.ensureSet(ctx, setCode); err != nil {
		return err
	}
	if err := s.usage.RemoveFavorite(ctx, session.LoginName, setCode, code); err != nil {
		return apperrors.External("收藏服务暂不可用，请稍后重试", err)
	}
	return nil
}

func (s *Service) Favorites(ctx context.Context, session *model.Session, setCode string) ([]model.DictItem, error) {
	if err := s.ensureSet(ctx, setCode); err != nil {
		return nil, err
	}
	codes, err := s.usage.Favorites(ctx, session.LoginName, setCode)
	if err != nil {
		s.logger.Warn().Err(err).Str("set_code", setCode).Msg("dict favorites unavailable")
		return []model.DictItem{}, nil
	}
	return s.resolve(ctx, setCode, codes)
}

// resolve turns a code list into items, preserving the input order and
// silently dropping codes that have since been retired.
func (s *Service) resolve(ctx context.Context, setCode string, codes []string) ([]model.DictItem, error) {
	if len(codes) == 0 {
		return []model.DictItem{}, nil
	}
	items, err := s.repo.GetItems(ctx, setCode, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to load dict items: %w", err)
	}
	byCode := make(map[string]model.DictItem, len(items))
	for _, item := range items {
		byCode[item.Code] = item
	}
	out := make([]model.DictItem, 0, len(codes))
	for _, code := range codes {
		if item, ok := byCode[code]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}
