package sales

import (
	"context"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Transaction, error)
}

// Service serves read access to transactions.
type Service struct {
	repo RepositoryPort
}

// NewService builds sales service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns transactions newest first. To is exclusive.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.To.After(filter.From) {
		return nil, httpx.Invalid("to", "must not be before from")
	}
	return s.repo.List(ctx, filter)
}
