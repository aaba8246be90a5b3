package services

import (
	"context"

	"clinic-backend/internal/models"
)

// The billing services depend on narrow store interfaces rather than the
// concrete repositories so the transactional SQL can be swapped for in-memory
// implementations in tests. The repositories package satisfies all of them.

type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
	Get(ctx context.Context, id int) (*models.Invoice, error)
	List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, error)
	ListForRevenue(ctx context.Context, filter *models.RevenueFilter) ([]*models.Invoice, error)
	AddPayment(ctx context.Context, invoiceID int, p *models.Payment) (*models.Invoice, error)
	SetTerminalStatus(ctx context.Context, invoiceID int, status models.InvoiceStatus) (*models.Invoice, error)
	MarkOverdue(ctx context.Context) (int, error)
}

type PractitionerStore interface {
	Get(ctx context.Context, id int) (*models.Practitioner, error)
	GetMany(ctx context.Context, ids []int) (map[int]*models.Practitioner, error)
}

type PrescriptionStore interface {
	Create(ctx context.Context, p *models.Prescription) (*models.Prescription, error)
	Get(ctx context.Context, id int) (*models.Prescription, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.Prescription, error)
	ExpireLapsed(ctx context.Context) (int, error)
}

type BatchReader interface {
	Get(ctx context.Context, id int) (*models.Batch, error)
}

type MedicineCatalog interface {
	Create(ctx context.Context, m *models.Medicine) error
	Get(ctx context.Context, id int) (*models.Medicine, error)
	List(ctx context.Context) ([]*models.Medicine, error)
	ListBelowReorderLevel(ctx context.Context) ([]*models.Medicine, error)
}

type BatchLedger interface {
	ListByMedicine(ctx context.Context, medicineID int) ([]*models.Batch, error)
	Receive(ctx context.Context, medicineID int, req *models.ReceiveBatchRequest, actorID int) (*models.BatchSnapshot, error)
	Deduct(ctx context.Context, medicineID, batchID, quantity, actorID int) (*models.BatchSnapshot, error)
	Adjust(ctx context.Context, batchID, delta int, reason models.AdjustmentReason, actorID int, notes string) (*models.BatchSnapshot, error)
	ListAdjustments(ctx context.Context, batchID int) ([]models.StockAdjustment, error)
}

type MedicineReader interface {
	Get(ctx context.Context, id int) (*models.Medicine, error)
}
