package menu

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListCategories(ctx context.Context, q shared.PageQuery) ([]Category, int, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	InsertCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	EnsureCategory(ctx context.Context, name string, at time.Time) (Category, error)

	ListFinishedGoods(ctx context.Context, categoryID *int64) ([]FinishedGood, error)
	GetFinishedGood(ctx context.Context, id int64) (FinishedGood, error)
	InsertFinishedGood(ctx context.Context, fg FinishedGood) (int64, error)
	UpdateFinishedGood(ctx context.Context, fg FinishedGood) error
	DeleteFinishedGood(ctx context.Context, id int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates menu catalogue operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds menu service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CategoryPage is one page of categories.
type CategoryPage struct {
	Data       []Category        `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListCategories returns a page of categories ordered by an allow-listed column.
func (s *Service) ListCategories(ctx context.Context, q shared.PageQuery) (CategoryPage, error) {
	q.SortBy = sortColumn(q.SortBy)
	items, total, err := s.repo.ListCategories(ctx, q)
	if err != nil {
		return CategoryPage{}, err
	}
	return CategoryPage{Data: items, Pagination: shared.NewPagination(q.Page, q.Limit, total)}, nil
}

// GetCategory returns a category by id.
func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	if err := httpx.Validate(input); err != nil {
		return Category{}, err
	}
	now := s.now()
	c, err := s.repo.InsertCategory(ctx, Category{
		Name:         strings.TrimSpace(input.Name),
		DisplayOrder: input.DisplayOrder,
		ColumnCount:  input.ColumnCount,
		SmallText:    input.SmallText,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Category{}, err
	}
	s.recordAudit(ctx, "MENU_CATEGORY_CREATE", "menu_category", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// UpdateCategory overwrites a category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (Category, error) {
	if err := httpx.Validate(input); err != nil {
		return Category{}, err
	}
	current, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	current.Name = strings.TrimSpace(input.Name)
	current.DisplayOrder = input.DisplayOrder
	current.ColumnCount = input.ColumnCount
	current.SmallText = input.SmallText
	current.UpdatedAt = s.now()
	return s.repo.UpdateCategory(ctx, current)
}

// DeleteCategory removes a category; its finished goods become uncategorised.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "MENU_CATEGORY_DELETE", "menu_category", id, nil)
	return nil
}

// ListFinishedGoods returns finished goods with their category populated.
func (s *Service) ListFinishedGoods(ctx context.Context, categoryID *int64) ([]FinishedGood, error) {
	return s.repo.ListFinishedGoods(ctx, categoryID)
}

// GetFinishedGood returns a finished good by id.
func (s *Service) GetFinishedGood(ctx context.Context, id int64) (FinishedGood, error) {
	return s.repo.GetFinishedGood(ctx, id)
}

// CreateFinishedGood stores a finished good, resolving its category first.
func (s *Service) CreateFinishedGood(ctx context.Context, input FinishedGoodInput) (FinishedGood, error) {
	if err := httpx.Validate(input); err != nil {
		return FinishedGood{}, err
	}
	now := s.now()
	fg := FinishedGood{
		Name:           strings.TrimSpace(input.Name),
		Price:          input.Price,
		Description:    input.Description,
		RawIngredients: ingredients(input.RawIngredients),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	categoryID, err := s.resolveCategory(ctx, input, now)
	if err != nil {
		return FinishedGood{}, err
	}
	fg.CategoryID = categoryID
	id, err := s.repo.InsertFinishedGood(ctx, fg)
	if err != nil {
		return FinishedGood{}, err
	}
	s.recordAudit(ctx, "FINISHED_GOOD_CREATE", "finished_good", id, map[string]any{"name": fg.Name})
	return s.repo.GetFinishedGood(ctx, id)
}

// UpdateFinishedGood overwrites a finished good.
func (s *Service) UpdateFinishedGood(ctx context.Context, id int64, input FinishedGoodInput) (FinishedGood, error) {
	if err := httpx.Validate(input); err != nil {
		return FinishedGood{}, err
	}
	fg, err := s.repo.GetFinishedGood(ctx, id)
	if err != nil {
		return FinishedGood{}, err
	}
	now := s.now()
	categoryID, err := s.resolveCategory(ctx, input, now)
	if err != nil {
		return FinishedGood{}, err
	}
	fg.Name = strings.TrimSpace(input.Name)
	fg.CategoryID = categoryID
	fg.Price = input.Price
	fg.Description = input.Description
	fg.RawIngredients = ingredients(input.RawIngredients)
	fg.UpdatedAt = now
	if err := s.repo.UpdateFinishedGood(ctx, fg); err != nil {
		return FinishedGood{}, err
	}
	return s.repo.GetFinishedGood(ctx, id)
}

// DeleteFinishedGood removes a finished good.
func (s *Service) DeleteFinishedGood(ctx context.Context, id int64) error {
	if err := s.repo.DeleteFinishedGood(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "FINISHED_GOOD_DELETE", "finished_good", id, nil)
	return nil
}

func (s *Service) resolveCategory(ctx context.Context, input FinishedGoodInput, at time.Time) (*int64, error) {
	if name := strings.TrimSpace(input.CategoryName); name != "" {
		c, err := s.repo.EnsureCategory(ctx, name, at)
		if err != nil {
			return nil, err
		}
		return &c.ID, nil
	}
	if input.CategoryID == nil {
		return nil, nil
	}
	if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
		return nil, err
	}
	id := *input.CategoryID
	return &id, nil
}

func ingredients(in []Ingredient) []Ingredient {
	if in == nil {
		return []Ingredient{}
	}
	return in
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: entity, EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
