package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-backend/internal/models"
	"clinic-backend/internal/services"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// stubInvoiceStore keeps invoices in a map, enforcing the same overpayment
// and terminal rules as the SQL store.
type stubInvoiceStore struct {
	invoices map[int]*models.Invoice
	nextID   int
}

func newStubInvoiceStore() *stubInvoiceStore {
	return &stubInvoiceStore{invoices: make(map[int]*models.Invoice), nextID: 1}
}

func (s *stubInvoiceStore) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	inv.ID = s.nextID
	s.nextID++
	issued := timeutil.ToIST(inv.IssueDate)
	inv.InvoiceNumber = models.FormatInvoiceNumber(inv.Type, issued.Year(), issued.Month(), inv.ID)
	s.invoices[inv.ID] = inv
	return inv, nil
}

func (s *stubInvoiceStore) Get(ctx context.Context, id int) (*models.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "invoice", ID: id}
	}
	return inv, nil
}

func (s *stubInvoiceStore) List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for _, inv := range s.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (s *stubInvoiceStore) ListForRevenue(ctx context.Context, filter *models.RevenueFilter) ([]*models.Invoice, error) {
	return nil, nil
}

func (s *stubInvoiceStore) AddPayment(ctx context.Context, invoiceID int, p *models.Payment) (*models.Invoice, error) {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if inv.Status.IsTerminal() {
		return nil, models.NewValidationError("status", "invoice is "+string(inv.Status))
	}
	newPaid := utils.Round2(inv.AmountPaid + p.Amount)
	if newPaid > inv.Total {
		return nil, &models.OverpaymentError{InvoiceID: invoiceID, Total: inv.Total, AmountPaid: inv.AmountPaid, Attempted: p.Amount}
	}
	inv.Payments = append(inv.Payments, *p)
	inv.AmountPaid = newPaid
	inv.BalanceDue = utils.Round2(inv.Total - newPaid)
	inv.Status = models.DeriveStatus(inv.Total, newPaid, inv.DueDate, timeutil.Now())
	return inv, nil
}

func (s *stubInvoiceStore) SetTerminalStatus(ctx context.Context, invoiceID int, status models.InvoiceStatus) (*models.Invoice, error) {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if inv.Status.IsTerminal() {
		return nil, models.NewValidationError("status", "invoice is already in a terminal state")
	}
	inv.Status = status
	return inv, nil
}

func (s *stubInvoiceStore) MarkOverdue(ctx context.Context) (int, error) { return 0, nil }

type stubPractitionerStore struct{}

func (stubPractitionerStore) Get(ctx context.Context, id int) (*models.Practitioner, error) {
	return nil, &models.NotFoundError{Resource: "practitioner", ID: id}
}

func (stubPractitionerStore) GetMany(ctx context.Context, ids []int) (map[int]*models.Practitioner, error) {
	return map[int]*models.Practitioner{}, nil
}

func newTestInvoiceHandler() (*InvoiceHandler, *stubInvoiceStore) {
	store := newStubInvoiceStore()
	invoices := services.NewInvoiceService(store, stubPractitionerStore{}, 7)
	payments := services.NewPaymentService(store)
	return NewInvoiceHandler(invoices, payments, nil), store
}

func testRouter(h *InvoiceHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/invoices/{type:[a-z_]+}", h.Create).Methods("POST")
	r.HandleFunc("/api/invoices/{id:[0-9]+}", h.Get).Methods("GET")
	r.HandleFunc("/api/invoices/{id:[0-9]+}/payments", h.RecordPayment).Methods("POST")
	r.HandleFunc("/api/invoices/{id:[0-9]+}/cancel", h.Cancel).Methods("POST")
	return r
}

func postJSON(t *testing.T, router *mux.Router, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"customer_name": "Asha Verma",
		"items": []map[string]interface{}{
			{"kind": "service", "description": "Consultation", "quantity": 1, "unit_price": 500, "tax_rate": 18},
		},
	}
}

func TestCreateInvoiceEndpoint(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	rec := postJSON(t, router, "/api/invoices/appointment", createRequestBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var inv models.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if inv.InvoiceNumber == "" {
		t.Fatalf("expected an invoice number")
	}
	if inv.Total != 590 {
		t.Fatalf("expected total 590, got %.2f", inv.Total)
	}
}

func TestCreateInvoiceUnknownType(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	rec := postJSON(t, router, "/api/invoices/grooming", createRequestBody())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateInvoiceRejectsEmptyItems(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	rec := postJSON(t, router, "/api/invoices/appointment", map[string]interface{}{
		"customer_name": "Asha Verma",
		"items":         []map[string]interface{}{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRecordPaymentEndpoint(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	rec := postJSON(t, router, "/api/invoices/appointment", createRequestBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rec.Code)
	}
	var inv models.Invoice
	json.Unmarshal(rec.Body.Bytes(), &inv)

	rec = postJSON(t, router, "/api/invoices/1/payments", map[string]interface{}{
		"amount": 590, "method": "cash",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	json.Unmarshal(rec.Body.Bytes(), &inv)
	if inv.Status != models.StatusPaid {
		t.Fatalf("expected paid, got %s", inv.Status)
	}
}

func TestOverpaymentMapsToConflict(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	if rec := postJSON(t, router, "/api/invoices/appointment", createRequestBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rec.Code)
	}

	rec := postJSON(t, router, "/api/invoices/1/payments", map[string]interface{}{
		"amount": 10000, "method": "cash",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPaymentOnCancelledInvoiceMapsToBadRequest(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	if rec := postJSON(t, router, "/api/invoices/appointment", createRequestBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/1/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d", rec.Code)
	}

	rec = postJSON(t, router, "/api/invoices/1/payments", map[string]interface{}{
		"amount": 100, "method": "cash",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetMissingInvoiceMapsToNotFound(t *testing.T) {
	h, _ := newTestInvoiceHandler()
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
