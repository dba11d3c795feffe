package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the raw material record does not exist.
	ErrNotFound = errors.New("inventory: raw material not found")
	// ErrInsufficientStock indicates a transfer larger than the source quantity.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", httpx.ErrValidation)
	// ErrSameLocation indicates a transfer whose destination equals its source.
	ErrSameLocation = fmt.Errorf("inventory: source and destination must differ: %w", httpx.ErrValidation)
)

// RawMaterial is one BOM stock record. RawID is an external key and may repeat.
type RawMaterial struct {
	ID            int64      `json:"id"`
	RawID         string     `json:"RawID"`
	Name          string     `json:"Name"`
	UnitMeasure   string     `json:"UnitMeasure"`
	Unit          string     `json:"Unit"`
	Quantity      float64    `json:"Quantity"`
	Category      string     `json:"Category"`
	Location      string     `json:"Location"`
	ShelfLife     string     `json:"ShelfLife"`
	BatchNumber   string     `json:"BatchNumber"`
	SupplierID    string     `json:"SupplierID"`
	CostPerUnit   float64    `json:"CostPerUnit"`
	DateReceived  *time.Time `json:"DateReceived,omitempty"`
	BranchID      string     `json:"BranchID"`
	ShelfID       string     `json:"ShelfID"`
	ExpiryDate    *time.Time `json:"ExpiryDate,omitempty"`
	QualityStatus string     `json:"QualityStatus"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// RawMaterialInput is the create/replace payload.
type RawMaterialInput struct {
	RawID         string     `json:"RawID" validate:"required"`
	Name          string     `json:"Name" validate:"required"`
	UnitMeasure   string     `json:"UnitMeasure"`
	Unit          string     `json:"Unit"`
	Quantity      float64    `json:"Quantity" validate:"gte=0"`
	Category      string     `json:"Category"`
	Location      string     `json:"Location"`
	ShelfLife     string     `json:"ShelfLife"`
	BatchNumber   string     `json:"BatchNumber"`
	SupplierID    string     `json:"SupplierID"`
	CostPerUnit   float64    `json:"CostPerUnit" validate:"gte=0"`
	DateReceived  *time.Time `json:"DateReceived"`
	BranchID      string     `json:"BranchID"`
	ShelfID       string     `json:"ShelfID"`
	ExpiryDate    *time.Time `json:"ExpiryDate"`
	QualityStatus string     `json:"QualityStatus"`
}

func (in RawMaterialInput) toRecord() RawMaterial {
	return RawMaterial{
		RawID:         in.RawID,
		Name:          in.Name,
		UnitMeasure:   in.UnitMeasure,
		Unit:          in.Unit,
		Quantity:      in.Quantity,
		Category:      in.Category,
		Location:      in.Location,
		ShelfLife:     in.ShelfLife,
		BatchNumber:   in.BatchNumber,
		SupplierID:    in.SupplierID,
		CostPerUnit:   in.CostPerUnit,
		DateReceived:  in.DateReceived,
		BranchID:      in.BranchID,
		ShelfID:       in.ShelfID,
		ExpiryDate:    in.ExpiryDate,
		QualityStatus: in.QualityStatus,
	}
}

// QuantityUpdate sets the absolute quantity of the record keyed by RawID.
type QuantityUpdate struct {
	RawID    string   `json:"RawID" validate:"required"`
	Quantity *float64 `json:"Quantity" validate:"required,gte=0"`
}

// ListFilter narrows the BOM listing.
type ListFilter struct {
	Category      string
	BranchID      string
	BelowQuantity *float64
}

// TransferInput moves stock from one record to the same RawID at another branch/shelf.
type TransferInput struct {
	SourceID int64   `json:"sourceId" validate:"required,gt=0"`
	BranchID string  `json:"BranchID" validate:"required"`
	ShelfID  string  `json:"ShelfID"`
	Quantity float64 `json:"Quantity" validate:"gt=0"`
}

// TransferResult holds both sides after a transfer.
type TransferResult struct {
	Source      RawMaterial `json:"source"`
	Destination RawMaterial `json:"destination"`
}
