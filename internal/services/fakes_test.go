package services

import (
	"context"

	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"
)

// memInvoiceStore mirrors the repository's transactional semantics in memory:
// sequential numbering per type, row-level overpayment and terminal checks.
type memInvoiceStore struct {
	invoices map[int]*models.Invoice
	nextID   int
	seq      map[models.InvoiceType]int
}

func newMemInvoiceStore() *memInvoiceStore {
	return &memInvoiceStore{
		invoices: make(map[int]*models.Invoice),
		nextID:   1,
		seq:      make(map[models.InvoiceType]int),
	}
}

func (m *memInvoiceStore) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	m.seq[inv.Type]++
	issued := timeutil.ToIST(inv.IssueDate)
	inv.ID = m.nextID
	m.nextID++
	inv.InvoiceNumber = models.FormatInvoiceNumber(inv.Type, issued.Year(), issued.Month(), m.seq[inv.Type])
	for i := range inv.Items {
		inv.Items[i].ID = i + 1
		inv.Items[i].InvoiceID = inv.ID
	}
	for i := range inv.Payments {
		inv.Payments[i].ID = i + 1
		inv.Payments[i].InvoiceID = inv.ID
	}
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memInvoiceStore) Get(ctx context.Context, id int) (*models.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "invoice", ID: id}
	}
	return inv, nil
}

func (m *memInvoiceStore) List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for _, inv := range m.invoices {
		if filter != nil && filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		if filter != nil && filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (m *memInvoiceStore) ListForRevenue(ctx context.Context, filter *models.RevenueFilter) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for _, inv := range m.invoices {
		if inv.Status.IsTerminal() {
			continue
		}
		if inv.IssueDate.Before(filter.Start) || !inv.IssueDate.Before(filter.End) {
			continue
		}
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (m *memInvoiceStore) AddPayment(ctx context.Context, invoiceID int, p *models.Payment) (*models.Invoice, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if inv.Status.IsTerminal() {
		return nil, models.NewValidationError("status", "invoice is "+string(inv.Status))
	}
	newPaid := utils.Round2(inv.AmountPaid + p.Amount)
	if newPaid > inv.Total {
		return nil, &models.OverpaymentError{
			InvoiceID:  invoiceID,
			Total:      inv.Total,
			AmountPaid: inv.AmountPaid,
			Attempted:  p.Amount,
		}
	}
	p.ID = len(inv.Payments) + 1
	p.InvoiceID = invoiceID
	inv.Payments = append(inv.Payments, *p)
	inv.AmountPaid = newPaid
	inv.BalanceDue = utils.Round2(inv.Total - newPaid)
	inv.Status = models.DeriveStatus(inv.Total, newPaid, inv.DueDate, timeutil.Now())
	return inv, nil
}

func (m *memInvoiceStore) SetTerminalStatus(ctx context.Context, invoiceID int, status models.InvoiceStatus) (*models.Invoice, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if inv.Status.IsTerminal() {
		return nil, models.NewValidationError("status", "invoice is already in a terminal state")
	}
	inv.Status = status
	return inv, nil
}

func (m *memInvoiceStore) MarkOverdue(ctx context.Context) (int, error) {
	n := 0
	now := timeutil.Now()
	for _, inv := range m.invoices {
		if now.After(inv.DueDate) && (inv.Status == models.StatusIssued || inv.Status == models.StatusPartial) {
			inv.Status = models.StatusOverdue
			n++
		}
	}
	return n, nil
}

type memPractitionerStore struct {
	practitioners map[int]*models.Practitioner
}

func (m *memPractitionerStore) Get(ctx context.Context, id int) (*models.Practitioner, error) {
	p, ok := m.practitioners[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "practitioner", ID: id}
	}
	return p, nil
}

func (m *memPractitionerStore) GetMany(ctx context.Context, ids []int) (map[int]*models.Practitioner, error) {
	out := make(map[int]*models.Practitioner)
	for _, id := range ids {
		if p, ok := m.practitioners[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memPrescriptionStore struct {
	prescriptions map[int]*models.Prescription
	nextID        int
}

func newMemPrescriptionStore() *memPrescriptionStore {
	return &memPrescriptionStore{prescriptions: make(map[int]*models.Prescription), nextID: 1}
}

func (m *memPrescriptionStore) Create(ctx context.Context, p *models.Prescription) (*models.Prescription, error) {
	p.ID = m.nextID
	m.nextID++
	for i := range p.Items {
		p.Items[i].ID = p.ID*100 + i
		p.Items[i].PrescriptionID = p.ID
	}
	m.prescriptions[p.ID] = p
	return p, nil
}

func (m *memPrescriptionStore) Get(ctx context.Context, id int) (*models.Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "prescription", ID: id}
	}
	return p, nil
}

func (m *memPrescriptionStore) ListActive(ctx context.Context, limit, offset int) ([]*models.Prescription, error) {
	var out []*models.Prescription
	for _, p := range m.prescriptions {
		if p.Status == models.PrescriptionActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPrescriptionStore) ExpireLapsed(ctx context.Context) (int, error) {
	n := 0
	now := timeutil.Now()
	for _, p := range m.prescriptions {
		if p.Status == models.PrescriptionActive && now.After(p.ValidUntil) {
			p.Status = models.PrescriptionExpired
			n++
		}
	}
	return n, nil
}

type memBatchReader struct {
	batches map[int]*models.Batch
}

func (m *memBatchReader) Get(ctx context.Context, id int) (*models.Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "batch", ID: id}
	}
	return b, nil
}

type memMedicineReader struct {
	medicines map[int]*models.Medicine
}

func (m *memMedicineReader) Get(ctx context.Context, id int) (*models.Medicine, error) {
	med, ok := m.medicines[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "medicine", ID: id}
	}
	return med, nil
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
