package banks

import (
	"context"
	"strconv"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, activeOnly bool) ([]Bank, error)
	Get(ctx context.Context, id int64) (Bank, error)
	Insert(ctx context.Context, b Bank) (Bank, error)
	Update(ctx context.Context, b Bank) (Bank, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates bank account operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds banks service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// List returns bank accounts ordered by bank name.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Bank, error) {
	return s.repo.List(ctx, activeOnly)
}

// Get returns a bank account by id.
func (s *Service) Get(ctx context.Context, id int64) (Bank, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a bank account.
func (s *Service) Create(ctx context.Context, input Input) (Bank, error) {
	if err := httpx.Validate(input); err != nil {
		return Bank{}, err
	}
	now := s.now()
	b := Bank{CreatedAt: now, UpdatedAt: now}
	input.apply(&b)
	created, err := s.repo.Insert(ctx, b)
	if err != nil {
		return Bank{}, err
	}
	s.recordAudit(ctx, "BANK_CREATE", created.ID, map[string]any{"account_number": created.AccountNumber})
	return created, nil
}

// Update overwrites a bank account.
func (s *Service) Update(ctx context.Context, id int64, input Input) (Bank, error) {
	if err := httpx.Validate(input); err != nil {
		return Bank{}, err
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bank{}, err
	}
	input.apply(&b)
	b.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, b)
	if err != nil {
		return Bank{}, err
	}
	s.recordAudit(ctx, "BANK_UPDATE", id, nil)
	return updated, nil
}

// Delete removes a bank account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "BANK_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "bank", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
