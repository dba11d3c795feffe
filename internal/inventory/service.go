package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]RawMaterial, error)
	Get(ctx context.Context, id int64) (RawMaterial, error)
	InsertMany(ctx context.Context, items []RawMaterial) ([]RawMaterial, error)
	Replace(ctx context.Context, item RawMaterial) (RawMaterial, error)
	Delete(ctx context.Context, id int64) error
	SetQuantities(ctx context.Context, updates []QuantityUpdate) (int64, error)
}

// TxRepository exposes row-locked operations used by transfers.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (RawMaterial, error)
	FindAtLocationForUpdate(ctx context.Context, rawID, branchID, shelfID string) (RawMaterial, error)
	Insert(ctx context.Context, item RawMaterial) (RawMaterial, error)
	SetQuantity(ctx context.Context, id int64, quantity float64, at time.Time) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates BOM stock operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds inventory service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

type bulkPayload struct {
	Items []QuantityUpdate `json:"items" validate:"min=1,dive"`
}

type createPayload struct {
	Items []RawMaterialInput `json:"items" validate:"min=1,dive"`
}

// List returns BOM records.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]RawMaterial, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one record by database id.
func (s *Service) Get(ctx context.Context, id int64) (RawMaterial, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts records as given. Duplicate RawIDs are allowed.
func (s *Service) Create(ctx context.Context, inputs []RawMaterialInput) ([]RawMaterial, error) {
	if err := httpx.Validate(createPayload{Items: inputs}); err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]RawMaterial, 0, len(inputs))
	for _, in := range inputs {
		item := in.toRecord()
		item.CreatedAt = now
		item.UpdatedAt = now
		items = append(items, item)
	}
	return s.repo.InsertMany(ctx, items)
}

// Replace overwrites every field of the record with id.
func (s *Service) Replace(ctx context.Context, id int64, input RawMaterialInput) (RawMaterial, error) {
	if err := httpx.Validate(input); err != nil {
		return RawMaterial{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return RawMaterial{}, err
	}
	item := input.toRecord()
	item.ID = id
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = s.now()
	return s.repo.Replace(ctx, item)
}

// Delete removes the record with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// BulkSetQuantity sets absolute quantities keyed by RawID and returns how many
// records changed. Unknown RawIDs are skipped; nothing is created.
func (s *Service) BulkSetQuantity(ctx context.Context, updates []QuantityUpdate) (int64, error) {
	if err := httpx.Validate(bulkPayload{Items: updates}); err != nil {
		return 0, err
	}
	modified, err := s.repo.SetQuantities(ctx, updates)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "BOM_BULK_QUANTITY", "bulk", map[string]any{"requested": len(updates), "modified": modified})
	return modified, nil
}

// Transfer moves quantity from the source record to the record holding the
// same RawID at the destination branch and shelf, creating it when missing.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if err := httpx.Validate(input); err != nil {
		return TransferResult{}, err
	}
	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		src, err := tx.GetForUpdate(ctx, input.SourceID)
		if err != nil {
			return err
		}
		if src.BranchID == input.BranchID && src.ShelfID == input.ShelfID {
			return ErrSameLocation
		}
		moved := decimal.NewFromFloat(input.Quantity)
		available := decimal.NewFromFloat(src.Quantity)
		if available.LessThan(moved) {
			return ErrInsufficientStock
		}
		now := s.now()
		dst, err := tx.FindAtLocationForUpdate(ctx, src.RawID, input.BranchID, input.ShelfID)
		if errors.Is(err, ErrNotFound) {
			dst = src
			dst.ID = 0
			dst.Quantity = 0
			dst.BranchID = input.BranchID
			dst.ShelfID = input.ShelfID
			dst.CreatedAt = now
			dst.UpdatedAt = now
			dst, err = tx.Insert(ctx, dst)
		}
		if err != nil {
			return err
		}
		src.Quantity = available.Sub(moved).InexactFloat64()
		dst.Quantity = decimal.NewFromFloat(dst.Quantity).Add(moved).InexactFloat64()
		src.UpdatedAt, dst.UpdatedAt = now, now
		if err := tx.SetQuantity(ctx, src.ID, src.Quantity, now); err != nil {
			return err
		}
		if err := tx.SetQuantity(ctx, dst.ID, dst.Quantity, now); err != nil {
			return err
		}
		result = TransferResult{Source: src, Destination: dst}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.recordAudit(ctx, "BOM_TRANSFER", strconv.FormatInt(result.Source.ID, 10), map[string]any{
		"raw_id":      result.Source.RawID,
		"destination": result.Destination.ID,
		"quantity":    input.Quantity,
	})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "raw_material", EntityID: entityID, Meta: meta})
}
