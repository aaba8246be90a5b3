package services

import (
	"context"
	"fmt"
	"log"

	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
)

// PrescriptionService records prescriptions and converts them into pharmacy
// invoices. Conversion dispenses against caller-chosen batches; prices come
// from the batch, so the same prescription dispensed from different
// deliveries can bill differently.
type PrescriptionService struct {
	Store     PrescriptionStore
	Batches   BatchReader
	Medicines MedicineReader
	Invoices  *InvoiceService

	DefaultValidDays int
}

func NewPrescriptionService(store PrescriptionStore, batches BatchReader, medicines MedicineReader, invoices *InvoiceService, defaultValidDays int) *PrescriptionService {
	return &PrescriptionService{
		Store:            store,
		Batches:          batches,
		Medicines:        medicines,
		Invoices:         invoices,
		DefaultValidDays: defaultValidDays,
	}
}

func (s *PrescriptionService) Create(ctx context.Context, req *models.CreatePrescriptionRequest, actorID int) (*models.Prescription, error) {
	now := timeutil.Now()

	items := make([]models.PrescriptionItem, 0, len(req.Items))
	for _, r := range req.Items {
		if _, err := s.Medicines.Get(ctx, r.MedicineID); err != nil {
			return nil, err
		}
		items = append(items, models.PrescriptionItem{
			MedicineID:   r.MedicineID,
			Dosage:       r.Dosage,
			DurationDays: r.DurationDays,
			Quantity:     r.Quantity,
		})
	}

	validDays := req.ValidDays
	if validDays == 0 {
		validDays = s.DefaultValidDays
	}

	p := &models.Prescription{
		PatientID:      req.PatientID,
		PatientName:    req.PatientName,
		PatientPhone:   req.PatientPhone,
		PractitionerID: req.PractitionerID,
		Status:         models.PrescriptionActive,
		ValidUntil:     timeutil.EndOfDay(now.AddDate(0, 0, validDays)),
		Items:          items,
		CreatedBy:      actorID,
	}
	return s.Store.Create(ctx, p)
}

func (s *PrescriptionService) Get(ctx context.Context, id int) (*models.Prescription, error) {
	return s.Store.Get(ctx, id)
}

func (s *PrescriptionService) ListActive(ctx context.Context, limit, offset int) ([]*models.Prescription, error) {
	return s.Store.ListActive(ctx, limit, offset)
}

// Convert dispenses the selected prescription lines as a pharmacy invoice.
// Each selection pins a line to a batch; the line is priced at that batch's
// selling price. Unselected lines stay open for a later partial conversion.
func (s *PrescriptionService) Convert(ctx context.Context, prescriptionID int, req *models.ConvertPrescriptionRequest, actorID int) (*models.Invoice, error) {
	p, err := s.Store.Get(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PrescriptionActive {
		return nil, models.NewValidationError("prescription", fmt.Sprintf("prescription is %s", p.Status))
	}
	if timeutil.Now().After(p.ValidUntil) {
		return nil, models.NewValidationError("prescription", "prescription validity has lapsed")
	}

	byID := make(map[int]*models.PrescriptionItem, len(p.Items))
	for i := range p.Items {
		byID[p.Items[i].ID] = &p.Items[i]
	}

	lineReqs := make([]models.LineItemRequest, 0, len(req.Selections))
	for _, sel := range req.Selections {
		item, ok := byID[sel.PrescriptionItemID]
		if !ok {
			return nil, &models.NotFoundError{Resource: "prescription item", ID: sel.PrescriptionItemID}
		}
		if item.IsBilled {
			return nil, models.NewValidationError("selections", fmt.Sprintf("prescription item %d is already billed", item.ID))
		}

		batch, err := s.Batches.Get(ctx, sel.BatchID)
		if err != nil {
			return nil, err
		}
		if batch.MedicineID != item.MedicineID {
			return nil, models.NewValidationError("selections", fmt.Sprintf("batch %d does not hold medicine %d", batch.ID, item.MedicineID))
		}

		medicine, err := s.Medicines.Get(ctx, item.MedicineID)
		if err != nil {
			return nil, err
		}

		medicineID := item.MedicineID
		batchID := batch.ID
		itemID := item.ID
		lineReqs = append(lineReqs, models.LineItemRequest{
			Kind:        models.ItemMedicine,
			Description: fmt.Sprintf("%s (%s)", medicine.Name, batch.BatchNumber),
			ReferenceID: &itemID,
			MedicineID:  &medicineID,
			BatchID:     &batchID,
			Quantity:    item.Quantity,
			UnitPrice:   batch.SellingPrice,
		})
	}

	invReq := &models.CreateInvoiceRequest{
		PatientID:        p.PatientID,
		CustomerName:     p.PatientName,
		CustomerPhone:    p.PatientPhone,
		PractitionerID:   p.PractitionerID,
		PrescriptionID:   &prescriptionID,
		Discount:         req.Discount,
		Items:            lineReqs,
		ImmediatePayment: req.ImmediatePayment,
	}

	inv, err := s.Invoices.Create(ctx, models.InvoiceTypePharmacy, invReq, actorID)
	if err != nil {
		return nil, err
	}
	log.Printf("[Prescription] Converted prescription %d into %s (%d items)", prescriptionID, inv.InvoiceNumber, len(lineReqs))
	return inv, nil
}

// SweepExpired lapses overdue prescriptions. Run periodically.
func (s *PrescriptionService) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.Store.ExpireLapsed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[Prescription] Expired %d lapsed prescriptions", n)
	}
	return n, nil
}
