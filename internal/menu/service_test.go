package menu

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryMenuRepo struct {
	mu         sync.Mutex
	categories map[int64]Category
	goods      map[int64]FinishedGood
	nextCat    int64
	nextGood   int64
}

func newMemoryMenuRepo() *memoryMenuRepo {
	return &memoryMenuRepo{categories: make(map[int64]Category), goods: make(map[int64]FinishedGood)}
}

func (r *memoryMenuRepo) ListCategories(ctx context.Context, q shared.PageQuery) ([]Category, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		all = append(all, c)
	}
	less := func(a, b Category) bool {
		switch q.SortBy {
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "column_count":
			if a.ColumnCount != b.ColumnCount {
				return a.ColumnCount < b.ColumnCount
			}
		default:
			if a.DisplayOrder != b.DisplayOrder {
				return a.DisplayOrder < b.DisplayOrder
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(all, func(i, j int) bool {
		if q.SortOrder == shared.SortDesc {
			return less(all[j], all[i])
		}
		return less(all[i], all[j])
	})
	start := q.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return append([]Category{}, all[start:end]...), len(all), nil
}

func (r *memoryMenuRepo) GetCategory(ctx context.Context, id int64) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

func (r *memoryMenuRepo) keyTaken(key string, except int64) (Category, bool) {
	for id, c := range r.categories {
		if id != except && NameKey(c.Name) == key {
			return c, true
		}
	}
	return Category{}, false
}

func (r *memoryMenuRepo) InsertCategory(ctx context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.keyTaken(NameKey(c.Name), 0); taken {
		return Category{}, ErrDuplicateCategory
	}
	r.nextCat++
	c.ID = r.nextCat
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryMenuRepo) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return Category{}, ErrCategoryNotFound
	}
	if _, taken := r.keyTaken(NameKey(c.Name), c.ID); taken {
		return Category{}, ErrDuplicateCategory
	}
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryMenuRepo) DeleteCategory(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(r.categories, id)
	for gid, fg := range r.goods {
		if fg.CategoryID != nil && *fg.CategoryID == id {
			fg.CategoryID = nil
			r.goods[gid] = fg
		}
	}
	return nil
}

func (r *memoryMenuRepo) EnsureCategory(ctx context.Context, name string, at time.Time) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, taken := r.keyTaken(NameKey(name), 0); taken {
		return c, nil
	}
	r.nextCat++
	c := Category{ID: r.nextCat, Name: name, CreatedAt: at, UpdatedAt: at}
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryMenuRepo) populate(fg FinishedGood) FinishedGood {
	fg.Category = nil
	if fg.CategoryID != nil {
		if c, ok := r.categories[*fg.CategoryID]; ok {
			fg.Category = &c
		}
	}
	return fg
}

func (r *memoryMenuRepo) ListFinishedGoods(ctx context.Context, categoryID *int64) ([]FinishedGood, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FinishedGood, 0, len(r.goods))
	for id := int64(1); id <= r.nextGood; id++ {
		fg, ok := r.goods[id]
		if !ok {
			continue
		}
		if categoryID != nil && (fg.CategoryID == nil || *fg.CategoryID != *categoryID) {
			continue
		}
		out = append(out, r.populate(fg))
	}
	return out, nil
}

func (r *memoryMenuRepo) GetFinishedGood(ctx context.Context, id int64) (FinishedGood, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fg, ok := r.goods[id]
	if !ok {
		return FinishedGood{}, ErrFinishedGoodNotFound
	}
	return r.populate(fg), nil
}

func (r *memoryMenuRepo) InsertFinishedGood(ctx context.Context, fg FinishedGood) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextGood++
	fg.ID = r.nextGood
	r.goods[fg.ID] = fg
	return fg.ID, nil
}

func (r *memoryMenuRepo) UpdateFinishedGood(ctx context.Context, fg FinishedGood) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.goods[fg.ID]; !ok {
		return ErrFinishedGoodNotFound
	}
	r.goods[fg.ID] = fg
	return nil
}

func (r *memoryMenuRepo) DeleteFinishedGood(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.goods[id]; !ok {
		return ErrFinishedGoodNotFound
	}
	delete(r.goods, id)
	return nil
}

type stubAudit struct {
	logs []shared.AuditLog
}

func (s *stubAudit) Record(ctx context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func newTestService() (*Service, *memoryMenuRepo, *stubAudit) {
	repo := newMemoryMenuRepo()
	audit := &stubAudit{}
	svc := NewService(repo, audit)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo, audit
}

func TestNameKeyFoldsCase(t *testing.T) {
	require.Equal(t, NameKey("Drinks"), NameKey("  DRINKS "))
	require.NotEqual(t, NameKey("Drinks"), NameKey("Desserts"))
}

func TestListCategoriesPaginates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for i, name := range []string{"Mains", "Drinks", "Desserts", "Sides", "Soups"} {
		_, err := svc.CreateCategory(ctx, CategoryInput{Name: name, DisplayOrder: 5 - i})
		require.NoError(t, err)
	}

	page, err := svc.ListCategories(ctx, shared.PageQuery{Page: 1, Limit: 2, SortBy: "displayOrder", SortOrder: shared.SortAsc})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	require.Equal(t, "Soups", page.Data[0].Name)
	require.Equal(t, shared.Pagination{Page: 1, Limit: 2, Total: 5, TotalPages: 3}, page.Pagination)

	page, err = svc.ListCategories(ctx, shared.PageQuery{Page: 3, Limit: 2, SortBy: "name", SortOrder: shared.SortDesc})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, "Desserts", page.Data[0].Name)
}

func TestListCategoriesIgnoresUnknownSortKey(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, CategoryInput{Name: "B", DisplayOrder: 2})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "A", DisplayOrder: 1})
	require.NoError(t, err)

	page, err := svc.ListCategories(ctx, shared.PageQuery{Page: 1, Limit: 10, SortBy: "name; DROP TABLE menu_categories", SortOrder: shared.SortAsc})
	require.NoError(t, err)
	require.Equal(t, "A", page.Data[0].Name)
}

func TestCategoryNamesUniqueIgnoringCase(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, CategoryInput{Name: "Drinks"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "drinks"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	_, err = svc.CreateCategory(ctx, CategoryInput{})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestFinishedGoodCategoryNameFindsOrCreates(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	existing, err := svc.CreateCategory(ctx, CategoryInput{Name: "Drinks"})
	require.NoError(t, err)

	fg, err := svc.CreateFinishedGood(ctx, FinishedGoodInput{Name: "Latte", CategoryName: "DRINKS", Price: 4.5})
	require.NoError(t, err)
	require.NotNil(t, fg.Category)
	require.Equal(t, existing.ID, fg.Category.ID)
	require.Equal(t, "Drinks", fg.Category.Name)
	require.Len(t, repo.categories, 1)
	require.NotNil(t, fg.RawIngredients)

	fg, err = svc.CreateFinishedGood(ctx, FinishedGoodInput{
		Name:           "Brownie",
		CategoryName:   "Desserts",
		RawIngredients: []Ingredient{{RawID: "R1", Name: "Cocoa", Quantity: 0.2, Unit: "kg"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Desserts", fg.Category.Name)
	require.Len(t, repo.categories, 2)
	require.Len(t, fg.RawIngredients, 1)
}

func TestFinishedGoodUnknownCategoryID(t *testing.T) {
	svc, _, _ := newTestService()
	missing := int64(99)
	_, err := svc.CreateFinishedGood(context.Background(), FinishedGoodInput{Name: "Latte", CategoryID: &missing})
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestDeleteCategoryDetachesFinishedGoods(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := context.Background()
	fg, err := svc.CreateFinishedGood(ctx, FinishedGoodInput{Name: "Latte", CategoryName: "Drinks"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, *fg.CategoryID))
	got, err := svc.GetFinishedGood(ctx, fg.ID)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID)
	require.Nil(t, got.Category)
	require.Equal(t, "MENU_CATEGORY_DELETE", audit.logs[len(audit.logs)-1].Action)

	require.ErrorIs(t, svc.DeleteCategory(ctx, 12345), ErrCategoryNotFound)
}

func TestUpdateFinishedGoodKeepsCreatedAt(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	fg, err := svc.CreateFinishedGood(ctx, FinishedGoodInput{Name: "Latte", Price: 4})
	require.NoError(t, err)

	later := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return later }
	updated, err := svc.UpdateFinishedGood(ctx, fg.ID, FinishedGoodInput{Name: "Oat latte", Price: 4.8})
	require.NoError(t, err)
	require.Equal(t, "Oat latte", updated.Name)
	require.Equal(t, 4.8, updated.Price)
	require.Equal(t, fg.CreatedAt, updated.CreatedAt)
	require.Equal(t, later, updated.UpdatedAt)

	_, err = svc.UpdateFinishedGood(ctx, 999, FinishedGoodInput{Name: "x"})
	require.ErrorIs(t, err, ErrFinishedGoodNotFound)
}
