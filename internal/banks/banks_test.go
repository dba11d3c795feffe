package banks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryBankRepo struct {
	banks  map[int64]Bank
	nextID int64
}

func newMemoryBankRepo() *memoryBankRepo {
	return &memoryBankRepo{banks: make(map[int64]Bank)}
}

func (r *memoryBankRepo) List(ctx context.Context, activeOnly bool) ([]Bank, error) {
	out := make([]Bank, 0, len(r.banks))
	for _, b := range r.banks {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BankName < out[j].BankName })
	return out, nil
}

func (r *memoryBankRepo) Get(ctx context.Context, id int64) (Bank, error) {
	b, ok := r.banks[id]
	if !ok {
		return Bank{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryBankRepo) accountTaken(number string, except int64) bool {
	for id, b := range r.banks {
		if id != except && b.AccountNumber == number {
			return true
		}
	}
	return false
}

func (r *memoryBankRepo) Insert(ctx context.Context, b Bank) (Bank, error) {
	if r.accountTaken(b.AccountNumber, 0) {
		return Bank{}, ErrDuplicateAccount
	}
	r.nextID++
	b.ID = r.nextID
	r.banks[b.ID] = b
	return b, nil
}

func (r *memoryBankRepo) Update(ctx context.Context, b Bank) (Bank, error) {
	if _, ok := r.banks[b.ID]; !ok {
		return Bank{}, ErrNotFound
	}
	if r.accountTaken(b.AccountNumber, b.ID) {
		return Bank{}, ErrDuplicateAccount
	}
	r.banks[b.ID] = b
	return b, nil
}

func (r *memoryBankRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.banks[id]; !ok {
		return ErrNotFound
	}
	delete(r.banks, id)
	return nil
}

type stubAudit struct {
	actions []string
}

func (s *stubAudit) Record(ctx context.Context, log shared.AuditLog) error {
	s.actions = append(s.actions, log.Action)
	return nil
}

func newTestService() (*Service, *stubAudit) {
	audit := &stubAudit{}
	svc := NewService(newMemoryBankRepo(), audit)
	svc.now = func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }
	return svc, audit
}

func TestCreateDefaultsAndNormalises(t *testing.T) {
	svc, audit := newTestService()
	b, err := svc.Create(context.Background(), Input{BankName: " BCA ", AccountName: "Ops", AccountNumber: "0012", Currency: "idr"})
	require.NoError(t, err)
	require.Equal(t, "BCA", b.BankName)
	require.Equal(t, "IDR", b.Currency)
	require.True(t, b.IsActive)
	require.Equal(t, []string{"BANK_CREATE"}, audit.actions)
}

func TestDuplicateAccountNumber(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, Input{BankName: "BCA", AccountName: "Ops", AccountNumber: "0012"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{BankName: "Mandiri", AccountName: "Payroll", AccountNumber: "0012"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestUpdateCanDeactivate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, Input{BankName: "BCA", AccountName: "Ops", AccountNumber: "0012"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, b.ID, Input{BankName: "BCA", AccountName: "Ops", AccountNumber: "0012", IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, b.CreatedAt, updated.CreatedAt)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestBankEndpoints(t *testing.T) {
	svc, _ := newTestService()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/api/banks", handler.MountRoutes)
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := srv.URL + "/api/banks"

	do := func(method, url string, body any) (int, map[string]any) {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(method, url, reader)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	payload := map[string]any{"bankName": "BCA", "accountName": "Ops", "accountNumber": "0012", "balance": 1500.25}
	status, body := do(http.MethodPost, base, payload)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 1500.25, body["balance"])
	bankURL := base + "/" + strconv.FormatFloat(body["id"].(float64), 'f', -1, 64)

	status, body = do(http.MethodPost, base, payload)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Bank account already exists", body["error"])

	status, body = do(http.MethodPost, base, map[string]any{"bankName": "BCA"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["fields"], "accountNumber")

	status, body = do(http.MethodPut, bankURL, map[string]any{"bankName": "BCA", "accountName": "Main", "accountNumber": "0012"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Main", body["accountName"])

	status, _ = do(http.MethodDelete, bankURL, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = do(http.MethodGet, bankURL, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Bank not found", body["error"])
}
