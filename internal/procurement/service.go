package procurement

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	NextOrderSequence(ctx context.Context) (int64, error)
	Insert(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	Delete(ctx context.Context, id int64) error
}

// TxRepository exposes the row-locked operations used for read-modify-write.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	Update(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilter narrows the purchase order listing.
type ListFilter struct {
	Status Status
}

// Service orchestrates purchase order flows.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateInput is the payload for a new purchase order.
type CreateInput struct {
	OrderNumber     string          `json:"orderNumber"`
	VendorID        string          `json:"vendorId" validate:"required"`
	VendorName      string          `json:"vendorName" validate:"required"`
	VendorContact   string          `json:"vendorContact"`
	DeliveryName    string          `json:"deliveryName"`
	DeliveryAddress string          `json:"deliveryAddress"`
	DeliveryDate    *time.Time      `json:"deliveryDate"`
	Currency        string          `json:"currency" validate:"required"`
	CurrencyName    string          `json:"currencyName"`
	InvoiceAccount  string          `json:"invoiceAccount"`
	InvoiceName     string          `json:"invoiceName"`
	RequestedDate   *time.Time      `json:"requestedDate"`
	Status          Status          `json:"status"`
	Confirmation    Confirmation    `json:"confirmation"`
	LineItems       []LineItemInput `json:"lineItems" validate:"dive"`
	TotalReceipt    float64         `json:"totalReceipt" validate:"gte=0"`
	ModeOfDelivery  string          `json:"modeOfDelivery"`
	TermsOfPayment  string          `json:"termsOfPayment"`
	CreatedBy       string          `json:"createdBy"`
}

// UpdateInput lists the header fields that may be changed; nil means unchanged.
// A non-nil LineItems replaces the whole item list.
type UpdateInput struct {
	OrderNumber     *string          `json:"orderNumber" validate:"omitempty,min=1"`
	VendorID        *string          `json:"vendorId" validate:"omitempty,min=1"`
	VendorName      *string          `json:"vendorName" validate:"omitempty,min=1"`
	VendorContact   *string          `json:"vendorContact"`
	DeliveryName    *string          `json:"deliveryName"`
	DeliveryAddress *string          `json:"deliveryAddress"`
	DeliveryDate    *time.Time       `json:"deliveryDate"`
	Currency        *string          `json:"currency" validate:"omitempty,min=1"`
	CurrencyName    *string          `json:"currencyName"`
	InvoiceAccount  *string          `json:"invoiceAccount"`
	InvoiceName     *string          `json:"invoiceName"`
	RequestedDate   *time.Time       `json:"requestedDate"`
	Status          *Status          `json:"status"`
	Confirmation    *Confirmation    `json:"confirmation"`
	LineItems       *[]LineItemInput `json:"lineItems" validate:"omitempty,dive"`
	TotalReceipt    *float64         `json:"totalReceipt" validate:"omitempty,gte=0"`
	ModeOfDelivery  *string          `json:"modeOfDelivery"`
	TermsOfPayment  *string          `json:"termsOfPayment"`
}

// List returns purchase orders, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, httpx.Invalid("status", "is not a known status")
	}
	return s.repo.List(ctx, filter)
}

// Get returns one purchase order.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// Create persists a new purchase order, allocating an order number when none is given.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if err := httpx.Validate(input); err != nil {
		return PurchaseOrder{}, err
	}
	if err := validateStates(input.Status, input.Confirmation); err != nil {
		return PurchaseOrder{}, err
	}
	now := s.now()
	po := PurchaseOrder{
		OrderNumber:     strings.TrimSpace(input.OrderNumber),
		VendorID:        input.VendorID,
		VendorName:      input.VendorName,
		VendorContact:   input.VendorContact,
		DeliveryName:    input.DeliveryName,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryDate:    input.DeliveryDate,
		Currency:        input.Currency,
		CurrencyName:    input.CurrencyName,
		InvoiceAccount:  defaultString(input.InvoiceAccount, input.VendorID),
		InvoiceName:     defaultString(input.InvoiceName, input.VendorName),
		RequestedDate:   input.RequestedDate,
		Status:          Status(defaultString(string(input.Status), string(StatusDraft))),
		Confirmation:    Confirmation(defaultString(string(input.Confirmation), string(ConfirmationDraft))),
		LineItems:       make([]LineItem, 0, len(input.LineItems)),
		TotalReceipt:    input.TotalReceipt,
		ModeOfDelivery:  input.ModeOfDelivery,
		TermsOfPayment:  input.TermsOfPayment,
		CreatedBy:       defaultString(input.CreatedBy, shared.ActorID(ctx)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, in := range input.LineItems {
		po.LineItems = append(po.LineItems, NewLineItem(in, now))
	}
	if po.OrderNumber == "" {
		seq, err := s.repo.NextOrderSequence(ctx)
		if err != nil {
			return PurchaseOrder{}, fmt.Errorf("procurement: allocate order number: %w", err)
		}
		if seq < 0 || seq > MaxOrderSequence {
			return PurchaseOrder{}, ErrOrderNumbersExhausted
		}
		po.OrderNumber = FormatOrderNumber(seq)
	}
	po.RecomputeTotals()
	created, err := s.repo.Insert(ctx, po)
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", created.ID, map[string]any{"number": created.OrderNumber, "total": created.TotalAmount})
	return created, nil
}

// Update applies header changes and optionally replaces the line items.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (PurchaseOrder, error) {
	if err := httpx.Validate(input); err != nil {
		return PurchaseOrder{}, err
	}
	var status Status
	var confirmation Confirmation
	if input.Status != nil {
		status = *input.Status
	}
	if input.Confirmation != nil {
		confirmation = *input.Confirmation
	}
	if err := validateStates(status, confirmation); err != nil {
		return PurchaseOrder{}, err
	}
	updated, err := s.mutate(ctx, id, func(po *PurchaseOrder, now time.Time) error {
		input.apply(po, now)
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_UPDATE", updated.ID, map[string]any{"total": updated.TotalAmount})
	return updated, nil
}

// Delete removes a purchase order.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_DELETE", id, nil)
	return nil
}

// AddLineItem appends a new line item and returns the updated order.
func (s *Service) AddLineItem(ctx context.Context, orderID int64, input LineItemInput) (PurchaseOrder, error) {
	if err := httpx.Validate(input); err != nil {
		return PurchaseOrder{}, err
	}
	return s.mutate(ctx, orderID, func(po *PurchaseOrder, now time.Time) error {
		input.ID = ""
		po.LineItems = append(po.LineItems, NewLineItem(input, now))
		return nil
	})
}

// UpdateLineItem applies an allow-listed patch to one line item.
// The item's LineAmount keeps its stored value unless the patch sets it.
func (s *Service) UpdateLineItem(ctx context.Context, orderID int64, lineItemID string, patch LineItemPatch) (PurchaseOrder, error) {
	if err := httpx.Validate(patch); err != nil {
		return PurchaseOrder{}, err
	}
	return s.mutate(ctx, orderID, func(po *PurchaseOrder, _ time.Time) error {
		idx := po.FindLineItem(lineItemID)
		if idx < 0 {
			return ErrLineItemNotFound
		}
		patch.Apply(&po.LineItems[idx])
		return nil
	})
}

// RemoveLineItem deletes one line item and returns the updated order.
func (s *Service) RemoveLineItem(ctx context.Context, orderID int64, lineItemID string) (PurchaseOrder, error) {
	return s.mutate(ctx, orderID, func(po *PurchaseOrder, _ time.Time) error {
		idx := po.FindLineItem(lineItemID)
		if idx < 0 {
			return ErrLineItemNotFound
		}
		po.LineItems = append(po.LineItems[:idx], po.LineItems[idx+1:]...)
		return nil
	})
}

// mutate loads the order under a row lock, applies fn and saves it with fresh totals.
func (s *Service) mutate(ctx context.Context, id int64, fn func(*PurchaseOrder, time.Time) error) (PurchaseOrder, error) {
	var saved PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if err := fn(&po, now); err != nil {
			return err
		}
		po.RecomputeTotals()
		po.UpdatedAt = now
		saved, err = tx.Update(ctx, po)
		return err
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return saved, nil
}

func (in UpdateInput) apply(po *PurchaseOrder, now time.Time) {
	setString(&po.OrderNumber, in.OrderNumber)
	setString(&po.VendorID, in.VendorID)
	setString(&po.VendorName, in.VendorName)
	setString(&po.VendorContact, in.VendorContact)
	setString(&po.DeliveryName, in.DeliveryName)
	setString(&po.DeliveryAddress, in.DeliveryAddress)
	setString(&po.Currency, in.Currency)
	setString(&po.CurrencyName, in.CurrencyName)
	setString(&po.InvoiceAccount, in.InvoiceAccount)
	setString(&po.InvoiceName, in.InvoiceName)
	setString(&po.ModeOfDelivery, in.ModeOfDelivery)
	setString(&po.TermsOfPayment, in.TermsOfPayment)
	setFloat(&po.TotalReceipt, in.TotalReceipt)
	if in.DeliveryDate != nil {
		po.DeliveryDate = in.DeliveryDate
	}
	if in.RequestedDate != nil {
		po.RequestedDate = in.RequestedDate
	}
	if in.Status != nil {
		po.Status = *in.Status
	}
	if in.Confirmation != nil {
		po.Confirmation = *in.Confirmation
	}
	if in.LineItems != nil {
		items := make([]LineItem, 0, len(*in.LineItems))
		for _, item := range *in.LineItems {
			items = append(items, NewLineItem(item, now))
		}
		po.LineItems = items
	}
}

func validateStates(status Status, confirmation Confirmation) error {
	if status != "" && !status.Valid() {
		return httpx.Invalid("status", "is not a known status")
	}
	if confirmation != "" && !confirmation.Valid() {
		return httpx.Invalid("confirmation", "is not a known confirmation state")
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "purchase_order", EntityID: strconv.FormatInt(entityID, 10), Meta: meta})
}
