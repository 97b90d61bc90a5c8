package dict

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzemr/record-api/internal/model"
	apperrors "github.com/mzemr/record-api/pkg/errors"
)

type fakeDictRepo struct {
	sets  map[string]bool
	items map[string][]model.DictItem
}

func newFakeDictRepo() *fakeDictRepo {
	return &fakeDictRepo{
		sets: map[string]bool{"RC013": true},
		items: map[string][]model.DictItem{
			"RC013": {
				{SetCode: "RC013", Code: "1", Name: "全身麻醉"},
				{SetCode: "RC013", Code: "2", Name: "椎管内麻醉"},
				{SetCode: "RC013", Code: "3", Name: "局部麻醉"},
			},
		},
	}
}

func (f *fakeDictRepo) SetExists(_ context.Context, setCode string) (bool, error) {
	return f.sets[setCode], nil
}

func (f *fakeDictRepo) CodeExists(_ context.Context, setCode, code string) (bool, error) {
	for _, item := range f.items[setCode] {
		if item.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDictRepo) CanonicalName(_ context.Context, setCode, code string) (string, bool, error) {
	for _, item := range f.items[setCode] {
		if item.Code == code {
			return item.Name, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeDictRepo) Search(_ context.Context, setCode, query string, page, pageSize int) (*model.DictSearchResult, error) {
	return &model.DictSearchResult{
		SetCode:  setCode,
		Query:    query,
		Page:     page,
		PageSize: pageSize,
		Total:    len(f.items[setCode]),
		Items:    f.items[setCode],
	}, nil
}

func (f *fakeDictRepo) GetItems(_ context.Context, setCode string, codes []string) ([]model.DictItem, error) {
	want := map[string]bool{}
	for _, c := range codes {
		want[c] = true
	}
	var out []model.DictItem
	for _, item := range f.items[setCode] {
		if want[item.Code] {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeUsageStore struct {
	touched   []string
	recents   map[string][]string
	favorites map[string][]string
	err       error
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{recents: map[string][]string{}, favorites: map[string][]string{}}
}

func usageKey(loginName, setCode string) string { return loginName + ":" + setCode }

func (f *fakeUsageStore) Touch(_ context.Context, loginName, setCode, code string) error {
	if f.err != nil {
		return f.err
	}
	f.touched = append(f.touched, code)
	key := usageKey(loginName, setCode)
	f.recents[key] = append([]string{code}, f.recents[key]...)
	return nil
}

func (f *fakeUsageStore) Recents(_ context.Context, loginName, setCode string, _ int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recents[usageKey(loginName, setCode)], nil
}

func (f *fakeUsageStore) AddFavorite(_ context.Context, loginName, setCode, code string) error {
	if f.err != nil {
		return f.err
	}
	key := usageKey(loginName, setCode)
	f.favorites[key] = append(f.favorites[key], code)
	return nil
}

func (f *fakeUsageStore) RemoveFavorite(_ context.Context, loginName, setCode, code string) error {
	if f.err != nil {
		return f.err
	}
	key := usageKey(loginName, setCode)
	out := f.favorites[key][:0]
	for _, c := range f.favorites[key] {
		if c != code {
			out = append(out, c)
		}
	}
	f.favorites[key] = out
	return nil
}

func (f *fakeUsageStore) Favorites(_ context.Context, loginName, setCode string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.favorites[usageKey(loginName, setCode)], nil
}

func dictSession() *model.Session {
	return &model.Session{LoginName: "doc01", Roles: []string{model.RoleDoctor}}
}

func TestSearchUnknownSet(t *testing.T) {
	svc := NewService(newFakeDictRepo(), newFakeUsageStore(), zerolog.Nop())

	_, err := svc.Search(context.Background(), "NOPE", "", 1, 20)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestSearchClampsPaging(t *testing.T) {
	svc := NewService(newFakeDictRepo(), newFakeUsageStore(), zerolog.Nop())

	result, err := svc.Search(context.Background(), "RC013", "麻醉", 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, maxPageSize, result.PageSize)
}

func TestMarkUsedRejectsUnknownCode(t *testing.T) {
	usage := newFakeUsageStore()
	svc := NewService(newFakeDictRepo(), usage, zerolog.Nop())

	err := svc.MarkUsed(context.Background(), dictSession(), "RC013", "99")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	assert.Empty(t, usage.touched)
}

func TestRecentsNewestFirst(t *testing.T) {
	usage := newFakeUsageStore()
	svc := NewService(newFakeDictRepo(), usage, zerolog.Nop())
	session := dictSession()

	require.NoError(t, svc.MarkUsed(context.Background(), session, "RC013", "1"))
	require.NoError(t, svc.MarkUsed(context.Background(), session, "RC013", "3"))

	items, err := svc.Recents(context.Background(), session, "RC013", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "3", items[0].Code)
	assert.Equal(t, "局部麻醉", items[0].Name)
	assert.Equal(t, "1", items[1].Code)
}

func TestRecentsDegradeWhenStoreDown(t *testing.T) {
	usage := newFakeUsageStore()
	usage.err = errors.New("connection refused")
	svc := NewService(newFakeDictRepo(), usage, zerolog.Nop())

	items, err := svc.Recents(context.Background(), dictSession(), "RC013", 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Selection itself stays usable even if the usage write fails.
	err = svc.MarkUsed(context.Background(), dictSession(), "RC013", "1")
	require.NoError(t, err)
}

func TestFavoritesRoundTrip(t *testing.T) {
	usage := newFakeUsageStore()
	svc := NewService(newFakeDictRepo(), usage, zerolog.Nop())
	session := dictSession()

	require.NoError(t, svc.AddFavorite(context.Background(), session, "RC013", "2"))

	items, err := svc.Favorites(context.Background(), session, "RC013")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "椎管内麻醉", items[0].Name)

	require.NoError(t, svc.RemoveFavorite(context.Background(), session, "RC013", "2"))
	items, err = svc.Favorites(context.Background(), session, "RC013")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFavoriteWriteFailureSurfaces(t *testing.T) {
	usage := newFakeUsageStore()
	usage.err = errors.New("connection refused")
	svc := NewService(newFakeDictRepo(), usage, zerolog.Nop())

	err := svc.AddFavorite(context.Background(), dictSession(), "RC013", "2")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeExternalError, appErr.Code)
}
