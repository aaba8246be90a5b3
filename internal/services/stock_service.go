package services

import (
	"context"
	"errors"
	"log"

	"clinic-backend/internal/metrics"
	"clinic-backend/internal/models"
)

// StockService fronts the medicine catalogue and the batch ledger.
type StockService struct {
	Medicines MedicineCatalog
	Batches   BatchLedger
}

func NewStockService(medicines MedicineCatalog, batches BatchLedger) *StockService {
	return &StockService{Medicines: medicines, Batches: batches}
}

func (s *StockService) CreateMedicine(ctx context.Context, req *models.CreateMedicineRequest) (*models.Medicine, error) {
	m := &models.Medicine{
		Name:                 req.Name,
		GenericName:          req.GenericName,
		Category:             req.Category,
		Unit:                 req.Unit,
		ReorderLevel:         req.ReorderLevel,
		PrescriptionRequired: req.PrescriptionRequired,
	}
	if err := s.Medicines.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *StockService) GetMedicine(ctx context.Context, id int) (*models.Medicine, error) {
	return s.Medicines.Get(ctx, id)
}

func (s *StockService) ListMedicines(ctx context.Context) ([]*models.Medicine, error) {
	return s.Medicines.List(ctx)
}

func (s *StockService) ListLowStock(ctx context.Context) ([]*models.Medicine, error) {
	return s.Medicines.ListBelowReorderLevel(ctx)
}

func (s *StockService) ListBatches(ctx context.Context, medicineID int) ([]*models.Batch, error) {
	if _, err := s.Medicines.Get(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.Batches.ListByMedicine(ctx, medicineID)
}

// RecommendBatch suggests the earliest-expiring batch with stock on hand.
// Advisory only: the caller still names the batch on deduction.
func (s *StockService) RecommendBatch(ctx context.Context, medicineID int) (*models.Batch, error) {
	if _, err := s.Medicines.Get(ctx, medicineID); err != nil {
		return nil, err
	}
	batches, err := s.Batches.ListByMedicine(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	b := nextExpiring(batches)
	if b == nil {
		return nil, &models.NotFoundError{Resource: "medicine stock", ID: medicineID}
	}
	return b, nil
}

// nextExpiring picks the batch with the nearest expiry among those still
// holding stock, ties broken by earliest receipt.
func nextExpiring(batches []*models.Batch) *models.Batch {
	var best *models.Batch
	for _, b := range batches {
		if b.QuantityOnHand <= 0 {
			continue
		}
		if best == nil ||
			b.ExpiryDate.Before(best.ExpiryDate) ||
			(b.ExpiryDate.Equal(best.ExpiryDate) && b.ReceivedAt.Before(best.ReceivedAt)) {
			best = b
		}
	}
	return best
}

func (s *StockService) ReceiveBatch(ctx context.Context, medicineID int, req *models.ReceiveBatchRequest, actorID int) (*models.BatchSnapshot, error) {
	if _, err := s.Medicines.Get(ctx, medicineID); err != nil {
		return nil, err
	}
	snap, err := s.Batches.Receive(ctx, medicineID, req, actorID)
	if err != nil {
		return nil, err
	}
	log.Printf("[Stock] Received batch %s for medicine %d: %d units", snap.BatchNumber, medicineID, snap.QuantityOnHand)
	return snap, nil
}

func (s *StockService) Deduct(ctx context.Context, medicineID, batchID, quantity, actorID int) (*models.BatchSnapshot, error) {
	snap, err := s.Batches.Deduct(ctx, medicineID, batchID, quantity, actorID)
	if err != nil {
		observeDeductFailure(err)
		return nil, err
	}
	metrics.StockDeductions.Inc()
	log.Printf("[Stock] Deducted %d units from batch %d, %d on hand", quantity, batchID, snap.QuantityOnHand)
	return snap, nil
}

func (s *StockService) Adjust(ctx context.Context, batchID int, req *models.AdjustStockRequest, actorID int) (*models.BatchSnapshot, error) {
	if !models.ValidAdjustmentReason(req.Reason) {
		return nil, models.NewValidationError("reason", "unknown adjustment reason")
	}
	snap, err := s.Batches.Adjust(ctx, batchID, req.Delta, req.Reason, actorID, req.Notes)
	if err != nil {
		return nil, err
	}
	log.Printf("[Stock] Adjusted batch %d by %d (%s), now %d on hand", batchID, req.Delta, req.Reason, snap.QuantityOnHand)
	return snap, nil
}

func (s *StockService) ListAdjustments(ctx context.Context, batchID int) ([]models.StockAdjustment, error) {
	return s.Batches.ListAdjustments(ctx, batchID)
}

func observeDeductFailure(err error) {
	var insufficient *models.InsufficientStockError
	var notFound *models.NotFoundError
	switch {
	case errors.As(err, &insufficient):
		metrics.StockRejections.WithLabelValues("insufficient").Inc()
	case errors.As(err, &notFound):
		metrics.StockRejections.WithLabelValues("not_found").Inc()
	default:
		metrics.StockRejections.WithLabelValues("error").Inc()
	}
}
