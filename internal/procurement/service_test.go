package procurement

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryProcRepo struct {
	mu     sync.Mutex
	orders map[int64]PurchaseOrder
	nextID int64
	seq    int64
	failOn string
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{orders: make(map[int64]PurchaseOrder)}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[int64]PurchaseOrder, len(r.orders))
	for id, po := range r.orders {
		snapshot[id] = clonePO(po)
	}
	if err := fn(ctx, &memoryProcTx{repo: r}); err != nil {
		r.orders = snapshot
		return err
	}
	return nil
}

func (r *memoryProcRepo) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PurchaseOrder, 0, len(r.orders))
	for id := r.nextID; id > 0; id-- {
		po, ok := r.orders[id]
		if !ok || (filter.Status != "" && po.Status != filter.Status) {
			continue
		}
		out = append(out, clonePO(po))
	}
	return out, nil
}

func (r *memoryProcRepo) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return clonePO(po), nil
}

func (r *memoryProcRepo) NextOrderSequence(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "sequence" {
		return 0, errors.New("sequence unavailable")
	}
	seq := r.seq
	r.seq++
	return seq, nil
}

func (r *memoryProcRepo) Insert(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.OrderNumber == po.OrderNumber {
			return PurchaseOrder{}, ErrDuplicateNumber
		}
	}
	r.nextID++
	po.ID = r.nextID
	r.orders[po.ID] = clonePO(po)
	return po, nil
}

func (r *memoryProcRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (tx *memoryProcTx) GetForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := tx.repo.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return clonePO(po), nil
}

func (tx *memoryProcTx) Update(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	if tx.repo.failOn == "update" {
		return PurchaseOrder{}, errors.New("write conflict")
	}
	if _, ok := tx.repo.orders[po.ID]; !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	tx.repo.orders[po.ID] = clonePO(po)
	return po, nil
}

func clonePO(po PurchaseOrder) PurchaseOrder {
	po.LineItems = append([]LineItem(nil), po.LineItems...)
	if po.LineItems == nil {
		po.LineItems = []LineItem{}
	}
	return po
}

type stubAudit struct {
	logs []shared.AuditLog
}

func (s *stubAudit) Record(ctx context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func float(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func newTestService() (*Service, *memoryProcRepo, *stubAudit) {
	repo := newMemoryProcRepo()
	audit := &stubAudit{}
	svc := NewService(repo, audit)
	svc.now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }
	return svc, repo, audit
}

func baseInput() CreateInput {
	return CreateInput{VendorID: "V1", VendorName: "Acme", Currency: "USD"}
}

func TestCreateAllocatesSequentialOrderNumbers(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := context.Background()
	pattern := regexp.MustCompile(`^PO-\d{6}$`)

	first, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	require.Regexp(t, pattern, first.OrderNumber)
	require.Regexp(t, pattern, second.OrderNumber)
	require.Equal(t, "PO-000000", first.OrderNumber)
	require.Equal(t, "PO-000001", second.OrderNumber)
	require.Len(t, audit.logs, 2)
	require.Equal(t, "PO_CREATE", audit.logs[0].Action)
}

func TestCreateAppliesHeaderDefaults(t *testing.T) {
	svc, _, _ := newTestService()
	po, err := svc.Create(context.Background(), baseInput())
	require.NoError(t, err)

	require.Equal(t, StatusDraft, po.Status)
	require.Equal(t, ConfirmationDraft, po.Confirmation)
	require.Equal(t, "V1", po.InvoiceAccount)
	require.Equal(t, "Acme", po.InvoiceName)
	require.Empty(t, po.LineItems)
	require.NotNil(t, po.LineItems)
	require.Zero(t, po.TotalAmount)
	require.Zero(t, po.TotalReceipt)
}

func TestCreateKeepsExplicitOrderNumber(t *testing.T) {
	svc, repo, _ := newTestService()
	input := baseInput()
	input.OrderNumber = "PO-CUSTOM-9"

	po, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "PO-CUSTOM-9", po.OrderNumber)
	require.Zero(t, repo.seq, "explicit numbers must not consume the sequence")

	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateStopsWhenOrderNumbersRunOut(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.seq = MaxOrderSequence

	po, err := svc.Create(context.Background(), baseInput())
	require.NoError(t, err)
	require.Equal(t, "PO-999999", po.OrderNumber)

	_, err = svc.Create(context.Background(), baseInput())
	require.ErrorIs(t, err, ErrOrderNumbersExhausted)
	require.Len(t, repo.orders, 1)
}

func TestCreateRejectsMissingVendor(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{Currency: "USD"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "vendorId")
	require.Contains(t, verr.Fields, "vendorName")
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService()
	input := baseInput()
	input.Status = "Shipped"
	_, err := svc.Create(context.Background(), input)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateWithLineItemsComputesTotal(t *testing.T) {
	svc, _, _ := newTestService()
	input := baseInput()
	input.LineItems = []LineItemInput{
		{ItemNumber: "A", ProductName: "Paint", Quantity: float(3), UnitPrice: float(0.1)},
		{ItemNumber: "B", ProductName: "Brush", Quantity: float(2), UnitPrice: float(12.5)},
	}
	po, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, po.LineItems, 2)
	require.Equal(t, 25.3, po.TotalAmount)
}

func TestCreateAllocationFailureIsReported(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failOn = "sequence"
	_, err := svc.Create(context.Background(), baseInput())
	require.Error(t, err)
	require.True(t, httpx.IsInternal(err))
}

func TestLineItemLifecycleKeepsTotalInvariant(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	po, err = svc.AddLineItem(ctx, po.ID, LineItemInput{ItemNumber: "I1", ProductName: "Tiles", Quantity: float(2), UnitPrice: float(15)})
	require.NoError(t, err)
	require.Equal(t, 30.0, po.TotalAmount)
	itemID := po.LineItems[0].ID

	po, err = svc.UpdateLineItem(ctx, po.ID, itemID, LineItemPatch{Quantity: float(4), UnitPrice: float(10)})
	require.NoError(t, err)
	require.Equal(t, 40.0, po.TotalAmount)
	require.Equal(t, 30.0, po.LineItems[0].LineAmount, "lineAmount is fixed at construction")

	po, err = svc.AddLineItem(ctx, po.ID, LineItemInput{ItemNumber: "I2", ProductName: "Grout", Quantity: float(1), UnitPrice: float(5)})
	require.NoError(t, err)
	require.Equal(t, 45.0, po.TotalAmount)

	po, err = svc.RemoveLineItem(ctx, po.ID, itemID)
	require.NoError(t, err)
	require.Len(t, po.LineItems, 1)
	require.Equal(t, 5.0, po.TotalAmount)

	stored, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, 5.0, stored.TotalAmount)
	require.Equal(t, time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC), stored.UpdatedAt)
}

func TestLineItemOperationsReportMissingTargets(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	item := LineItemInput{ItemNumber: "I1", ProductName: "Tiles", Quantity: float(1), UnitPrice: float(1)}

	_, err := svc.AddLineItem(ctx, 404, item)
	require.ErrorIs(t, err, ErrNotFound)

	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	_, err = svc.UpdateLineItem(ctx, po.ID, "missing", LineItemPatch{Quantity: float(2)})
	require.ErrorIs(t, err, ErrLineItemNotFound)

	_, err = svc.RemoveLineItem(ctx, po.ID, "missing")
	require.ErrorIs(t, err, ErrLineItemNotFound)
}

func TestAddLineItemValidatesInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	_, err = svc.AddLineItem(ctx, po.ID, LineItemInput{ItemNumber: "I1", ProductName: "Tiles", Quantity: float(-1), UnitPrice: float(1)})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.AddLineItem(ctx, po.ID, LineItemInput{ItemNumber: "I1", ProductName: "Tiles", Quantity: float(1)})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestFailedSaveLeavesOrderUntouched(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	repo.failOn = "update"
	_, err = svc.AddLineItem(ctx, po.ID, LineItemInput{ItemNumber: "I1", ProductName: "Tiles", Quantity: float(1), UnitPrice: float(9)})
	require.Error(t, err)

	stored, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	require.Empty(t, stored.LineItems)
	require.Zero(t, stored.TotalAmount)
}

func TestUpdateReplacesLineItemsAndIgnoresSuppliedTotal(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	items := []LineItemInput{{ItemNumber: "X", ProductName: "Cement", Quantity: float(5), UnitPrice: float(8)}}
	status := StatusOpenOrder
	po, err = svc.Update(ctx, po.ID, UpdateInput{VendorName: str("Acme Ltd"), Status: &status, LineItems: &items})
	require.NoError(t, err)

	require.Equal(t, "Acme Ltd", po.VendorName)
	require.Equal(t, "Acme", po.InvoiceName, "invoice name defaults only at creation")
	require.Equal(t, StatusOpenOrder, po.Status)
	require.Equal(t, 40.0, po.TotalAmount)
	require.Equal(t, 40.0, po.LineItems[0].LineAmount)

	_, err = svc.Update(ctx, 999, UpdateInput{VendorName: str("x")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)
	input := baseInput()
	input.Status = StatusClosed
	closed, err := svc.Create(ctx, input)
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, closed.ID, all[0].ID, "newest first")

	onlyClosed, err := svc.List(ctx, ListFilter{Status: StatusClosed})
	require.NoError(t, err)
	require.Len(t, onlyClosed, 1)

	_, err = svc.List(ctx, ListFilter{Status: "bogus"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteOrder(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := context.Background()
	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, po.ID))
	require.ErrorIs(t, svc.Delete(ctx, po.ID), ErrNotFound)
	require.Equal(t, "PO_DELETE", audit.logs[len(audit.logs)-1].Action)

	_, err = svc.Get(ctx, po.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatedByFallsBackToActor(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: "42", Username: "alice"})

	po, err := svc.Create(ctx, baseInput())
	require.NoError(t, err)
	require.Equal(t, "42", po.CreatedBy)
	require.Equal(t, "42", audit.logs[0].ActorID)
}
