package models

import "time"

// PrescriptionStatus tracks a prescription's lifecycle. Active prescriptions
// lapse to Expired by the periodic sweep once valid_until passes.
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionExpired   PrescriptionStatus = "expired"
	PrescriptionDispensed PrescriptionStatus = "dispensed"
)

// Prescription is the clinical source of a pharmacy invoice.
type Prescription struct {
	ID             int                `json:"id"`
	PatientID      *int               `json:"patient_id"`
	PatientName    string             `json:"patient_name"`
	PatientPhone   string             `json:"patient_phone"`
	PractitionerID *int               `json:"practitioner_id"`
	Status         PrescriptionStatus `json:"status"`
	ValidUntil     time.Time          `json:"valid_until"`
	Items          []PrescriptionItem `json:"items"`
	CreatedBy      int                `json:"created_by"`
	CreatedAt      time.Time          `json:"created_at"`
}

// PrescriptionItem is one prescribed medicine line. Conversion to an invoice
// stamps IsBilled and InvoiceID.
type PrescriptionItem struct {
	ID             int    `json:"id"`
	PrescriptionID int    `json:"-"`
	MedicineID     int    `json:"medicine_id"`
	Dosage         string `json:"dosage"`
	DurationDays   int    `json:"duration_days"`
	Quantity       int    `json:"quantity"`
	IsBilled       bool   `json:"is_billed"`
	InvoiceID      *int   `json:"invoice_id,omitempty"`
}

// CreatePrescriptionRequest is the payload for recording a prescription.
type CreatePrescriptionRequest struct {
	PatientID      *int                      `json:"patient_id"`
	PatientName    string                    `json:"patient_name" validate:"required"`
	PatientPhone   string                    `json:"patient_phone"`
	PractitionerID *int                      `json:"practitioner_id"`
	ValidDays      int                       `json:"valid_days" validate:"gte=0"`
	Items          []PrescriptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PrescriptionItemRequest is one requested prescription line.
type PrescriptionItemRequest struct {
	MedicineID   int    `json:"medicine_id" validate:"required"`
	Dosage       string `json:"dosage"`
	DurationDays int    `json:"duration_days" validate:"gte=0"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// ConvertPrescriptionRequest carries the batch each dispensed line should be
// drawn from. Batch selection stays with the caller; the FEFO endpoint only
// recommends.
type ConvertPrescriptionRequest struct {
	Selections       []DispenseSelection   `json:"selections" validate:"required,min=1,dive"`
	Discount         float64               `json:"discount" validate:"gte=0"`
	ImmediatePayment *RecordPaymentRequest `json:"immediate_payment"`
}

// DispenseSelection pins one prescription item to a batch.
type DispenseSelection struct {
	PrescriptionItemID int `json:"prescription_item_id" validate:"required"`
	BatchID            int `json:"batch_id" validate:"required"`
}
