package procurement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusOpenOrder Status = "Open order"
	StatusReceived  Status = "Received"
	StatusInvoiced  Status = "Invoiced"
	StatusClosed    Status = "Closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusOpenOrder, StatusReceived, StatusInvoiced, StatusClosed:
		return true
	}
	return false
}

// Confirmation is the approval state of a purchase order.
type Confirmation string

const (
	ConfirmationDraft     Confirmation = "Draft"
	ConfirmationInReview  Confirmation = "In review"
	ConfirmationConfirmed Confirmation = "Confirmed"
	ConfirmationApproved  Confirmation = "Approved"
	ConfirmationRejected  Confirmation = "Rejected"
)

// Valid reports whether c is a known confirmation state.
func (c Confirmation) Valid() bool {
	switch c {
	case ConfirmationDraft, ConfirmationInReview, ConfirmationConfirmed, ConfirmationApproved, ConfirmationRejected:
		return true
	}
	return false
}

// Line item defaults.
const (
	DefaultUnit                = "JOB"
	DefaultPRAccount           = "SERVICES RENOVATION"
	DefaultProcurementCategory = "SERVICES RENOVATION"

	// en-US short date, e.g. 3/7/2025.
	lastPurchaseDateLayout = "1/2/2006"
)

var (
	// ErrNotFound indicates the purchase order does not exist.
	ErrNotFound = errors.New("procurement: purchase order not found")
	// ErrLineItemNotFound indicates the line item is not part of the order.
	ErrLineItemNotFound = errors.New("procurement: line item not found")
	// ErrDuplicateNumber indicates the order number is already taken.
	ErrDuplicateNumber = fmt.Errorf("procurement: order number already used: %w", httpx.ErrDuplicate)
	// ErrOrderNumbersExhausted indicates the six-digit order number range is used up.
	ErrOrderNumbersExhausted = errors.New("procurement: order number sequence exhausted")
)

// PurchaseOrder is a supplier order with its embedded line items.
type PurchaseOrder struct {
	ID              int64        `json:"id"`
	OrderNumber     string       `json:"orderNumber"`
	VendorID        string       `json:"vendorId"`
	VendorName      string       `json:"vendorName"`
	VendorContact   string       `json:"vendorContact"`
	DeliveryName    string       `json:"deliveryName"`
	DeliveryAddress string       `json:"deliveryAddress"`
	DeliveryDate    *time.Time   `json:"deliveryDate,omitempty"`
	Currency        string       `json:"currency"`
	CurrencyName    string       `json:"currencyName"`
	InvoiceAccount  string       `json:"invoiceAccount"`
	InvoiceName     string       `json:"invoiceName"`
	RequestedDate   *time.Time   `json:"requestedDate,omitempty"`
	Status          Status       `json:"status"`
	Confirmation    Confirmation `json:"confirmation"`
	LineItems       []LineItem   `json:"lineItems"`
	TotalAmount     float64      `json:"totalAmount"`
	TotalReceipt    float64      `json:"totalReceipt"`
	ModeOfDelivery  string       `json:"modeOfDelivery"`
	TermsOfPayment  string       `json:"termsOfPayment"`
	CreatedBy       string       `json:"createdBy"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// LineItem is one priced row of a purchase order.
type LineItem struct {
	ID                  string  `json:"id"`
	ItemNumber          string  `json:"itemNumber"`
	ProductName         string  `json:"productName"`
	PRAccount           string  `json:"prAccount"`
	ProcurementCategory string  `json:"procurementCategory"`
	Quantity            float64 `json:"quantity"`
	Unit                string  `json:"unit"`
	UnitPrice           float64 `json:"unitPrice"`
	LastPurchPrice      float64 `json:"lastPurchPrice"`
	Percentage          float64 `json:"percentage"`
	LastPurchaseDate    string  `json:"lastPurchaseDate"`
	AdjustedUnitCost    float64 `json:"adjustedUnitCost"`
	Discount            float64 `json:"discount"`
	// LineAmount is fixed when the item is built and is not re-derived on edits.
	LineAmount float64 `json:"lineAmount"`
}

// LineItemInput is the payload used to build a new line item.
type LineItemInput struct {
	ID                  string   `json:"id"`
	ItemNumber          string   `json:"itemNumber" validate:"required"`
	ProductName         string   `json:"productName" validate:"required"`
	PRAccount           string   `json:"prAccount"`
	ProcurementCategory string   `json:"procurementCategory"`
	Quantity            *float64 `json:"quantity" validate:"required,gte=0"`
	Unit                string   `json:"unit"`
	UnitPrice           *float64 `json:"unitPrice" validate:"required,gte=0"`
	LastPurchPrice      *float64 `json:"lastPurchPrice" validate:"omitempty,gte=0"`
	Percentage          float64  `json:"percentage"`
	LastPurchaseDate    string   `json:"lastPurchaseDate"`
	AdjustedUnitCost    float64  `json:"adjustedUnitCost"`
	Discount            float64  `json:"discount"`
}

// NewLineItem builds a line item applying construction-time defaults.
func NewLineItem(in LineItemInput, now time.Time) LineItem {
	item := LineItem{
		ID:                  in.ID,
		ItemNumber:          in.ItemNumber,
		ProductName:         in.ProductName,
		PRAccount:           defaultString(in.PRAccount, DefaultPRAccount),
		ProcurementCategory: defaultString(in.ProcurementCategory, DefaultProcurementCategory),
		Unit:                defaultString(in.Unit, DefaultUnit),
		Percentage:          in.Percentage,
		LastPurchaseDate:    defaultString(in.LastPurchaseDate, now.Format(lastPurchaseDateLayout)),
		AdjustedUnitCost:    in.AdjustedUnitCost,
		Discount:            in.Discount,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	if in.UnitPrice != nil {
		item.UnitPrice = *in.UnitPrice
	}
	item.LastPurchPrice = item.UnitPrice
	if in.LastPurchPrice != nil {
		item.LastPurchPrice = *in.LastPurchPrice
	}
	item.LineAmount = lineProduct(item.Quantity, item.UnitPrice).InexactFloat64()
	return item
}

// LineItemPatch lists the line item fields a client may change.
type LineItemPatch struct {
	ItemNumber          *string  `json:"itemNumber" validate:"omitempty,min=1"`
	ProductName         *string  `json:"productName" validate:"omitempty,min=1"`
	PRAccount           *string  `json:"prAccount"`
	ProcurementCategory *string  `json:"procurementCategory"`
	Quantity            *float64 `json:"quantity" validate:"omitempty,gte=0"`
	Unit                *string  `json:"unit"`
	UnitPrice           *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	LastPurchPrice      *float64 `json:"lastPurchPrice" validate:"omitempty,gte=0"`
	Percentage          *float64 `json:"percentage"`
	LastPurchaseDate    *string  `json:"lastPurchaseDate"`
	AdjustedUnitCost    *float64 `json:"adjustedUnitCost"`
	Discount            *float64 `json:"discount"`
	LineAmount          *float64 `json:"lineAmount"`
}

// Apply copies the set fields onto item.
func (p LineItemPatch) Apply(item *LineItem) {
	setString(&item.ItemNumber, p.ItemNumber)
	setString(&item.ProductName, p.ProductName)
	setString(&item.PRAccount, p.PRAccount)
	setString(&item.ProcurementCategory, p.ProcurementCategory)
	setFloat(&item.Quantity, p.Quantity)
	setString(&item.Unit, p.Unit)
	setFloat(&item.UnitPrice, p.UnitPrice)
	setFloat(&item.LastPurchPrice, p.LastPurchPrice)
	setFloat(&item.Percentage, p.Percentage)
	setString(&item.LastPurchaseDate, p.LastPurchaseDate)
	setFloat(&item.AdjustedUnitCost, p.AdjustedUnitCost)
	setFloat(&item.Discount, p.Discount)
	setFloat(&item.LineAmount, p.LineAmount)
}

// RecomputeTotals derives TotalAmount from the current line items.
// It must run before every write of the order.
func (po *PurchaseOrder) RecomputeTotals() {
	if po.LineItems == nil {
		po.LineItems = []LineItem{}
	}
	total := decimal.Zero
	for _, item := range po.LineItems {
		total = total.Add(lineProduct(item.Quantity, item.UnitPrice))
	}
	po.TotalAmount = total.InexactFloat64()
	if po.TotalReceipt < 0 {
		po.TotalReceipt = 0
	}
}

// FindLineItem returns the index of the line item with id, or -1.
func (po *PurchaseOrder) FindLineItem(id string) int {
	for i := range po.LineItems {
		if po.LineItems[i].ID == id {
			return i
		}
	}
	return -1
}

// MaxOrderSequence is the largest sequence value that fits PO-NNNNNN.
const MaxOrderSequence = 999999

// FormatOrderNumber renders a sequence value as PO-NNNNNN.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("PO-%06d", seq)
}

func lineProduct(quantity, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice))
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
