package models

import "time"

// Medicine is a catalogue entry. StockQuantity is the denormalized sum of its
// batches' quantity_on_hand, maintained in the same transaction as every
// batch change.
type Medicine struct {
	ID                   int       `json:"id"`
	Name                 string    `json:"name"`
	GenericName          string    `json:"generic_name,omitempty"`
	Category             string    `json:"category,omitempty"`
	Unit                 string    `json:"unit,omitempty"`
	ReorderLevel         int       `json:"reorder_level"`
	PrescriptionRequired bool      `json:"prescription_required"`
	StockQuantity        int       `json:"stock_quantity"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Batch is one supplier delivery of a medicine. Quantity lives here, not on
// the medicine; the catalogue counter is derived.
type Batch struct {
	ID             int       `json:"id"`
	MedicineID     int       `json:"medicine_id"`
	BatchNumber    string    `json:"batch_number"`
	ExpiryDate     time.Time `json:"expiry_date"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	PurchasePrice  float64   `json:"purchase_price"`
	SellingPrice   float64   `json:"selling_price"`
	SupplierID     *int      `json:"supplier_id,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// BatchSnapshot is the post-mutation view returned by every stock write: the
// batch's remaining quantity plus the medicine's updated aggregate.
type BatchSnapshot struct {
	BatchID        int    `json:"batch_id"`
	MedicineID     int    `json:"medicine_id"`
	BatchNumber    string `json:"batch_number"`
	QuantityOnHand int    `json:"quantity_on_hand"`
	MedicineStock  int    `json:"medicine_stock"`
}

// AdjustmentReason classifies a stock movement in the audit trail.
type AdjustmentReason string

const (
	AdjustmentAddition   AdjustmentReason = "addition"
	AdjustmentCorrection AdjustmentReason = "correction"
	AdjustmentDamage     AdjustmentReason = "damage"
	AdjustmentExpiry     AdjustmentReason = "expiry"
	AdjustmentDeduction  AdjustmentReason = "deduction"
)

// ValidAdjustmentReason reports whether r is a known reason.
func ValidAdjustmentReason(r AdjustmentReason) bool {
	switch r {
	case AdjustmentAddition, AdjustmentCorrection, AdjustmentDamage, AdjustmentExpiry, AdjustmentDeduction:
		return true
	}
	return false
}

// StockAdjustment is one audit-trail entry. Delta is the applied change,
// signed.
type StockAdjustment struct {
	ID          int              `json:"id"`
	BatchID     int              `json:"batch_id"`
	MedicineID  int              `json:"medicine_id"`
	Delta       int              `json:"delta"`
	Reason      AdjustmentReason `json:"reason"`
	PerformedBy int              `json:"performed_by"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CreateMedicineRequest is the payload for adding a catalogue entry.
type CreateMedicineRequest struct {
	Name                 string `json:"name" validate:"required"`
	GenericName          string `json:"generic_name"`
	Category             string `json:"category"`
	Unit                 string `json:"unit"`
	ReorderLevel         int    `json:"reorder_level" validate:"gte=0"`
	PrescriptionRequired bool   `json:"prescription_required"`
}

// ReceiveBatchRequest is the payload for recording a supplier delivery.
type ReceiveBatchRequest struct {
	BatchNumber   string    `json:"batch_number" validate:"required"`
	ExpiryDate    time.Time `json:"expiry_date" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	PurchasePrice float64   `json:"purchase_price" validate:"gte=0"`
	SellingPrice  float64   `json:"selling_price" validate:"gte=0"`
	SupplierID    *int      `json:"supplier_id"`
}

// AdjustStockRequest is the payload for a manual stock correction.
type AdjustStockRequest struct {
	Delta  int              `json:"delta" validate:"required"`
	Reason AdjustmentReason `json:"reason" validate:"required"`
	Notes  string           `json:"notes"`
}

// DeductStockRequest is the payload for dispensing stock outside the invoice
// path, e.g. ward issues or internal consumption.
type DeductStockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}
