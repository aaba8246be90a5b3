package models

import (
	"fmt"
	"time"

	"clinic-backend/pkg/utils"
)

// InvoiceType determines the number prefix and which line-item kinds are
// expected on the invoice.
type InvoiceType string

const (
	InvoiceTypeAppointment InvoiceType = "appointment"
	InvoiceTypePharmacy    InvoiceType = "pharmacy"
	InvoiceTypeProcedure   InvoiceType = "procedure"
	InvoiceTypeLabTest     InvoiceType = "lab_test"
	InvoiceTypePurchase    InvoiceType = "purchase"
	InvoiceTypeMixed       InvoiceType = "mixed"
)

var invoicePrefixes = map[InvoiceType]string{
	InvoiceTypeAppointment: "APT",
	InvoiceTypePharmacy:    "PHR",
	InvoiceTypeProcedure:   "PRC",
	InvoiceTypeLabTest:     "LAB",
	InvoiceTypePurchase:    "PUR",
	InvoiceTypeMixed:       "MIX",
}

// ParseInvoiceType maps a URL segment to an InvoiceType.
func ParseInvoiceType(s string) (InvoiceType, bool) {
	t := InvoiceType(s)
	_, ok := invoicePrefixes[t]
	return t, ok
}

// Prefix returns the invoice-number prefix for the type.
func (t InvoiceType) Prefix() string {
	return invoicePrefixes[t]
}

// FormatInvoiceNumber builds the structured invoice number
// {PREFIX}-{YYYYMM}-{zero-padded sequence}.
func FormatInvoiceNumber(t InvoiceType, year int, month time.Month, seq int) string {
	return fmt.Sprintf("%s-%04d%02d-%04d", t.Prefix(), year, int(month), seq)
}

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusIssued    InvoiceStatus = "issued"
	StatusPartial   InvoiceStatus = "partial"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
	StatusRefunded  InvoiceStatus = "refunded"
)

// IsTerminal reports whether the status is a terminal operator override.
// Terminal statuses are never re-derived from the financial fields.
func (s InvoiceStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// DeriveStatus recomputes the invoice status from its financial fields. It is
// the only place status is decided outside the Cancel/Refund overrides, so the
// status can never drift from the numbers that justify it.
func DeriveStatus(total, amountPaid float64, dueDate, now time.Time) InvoiceStatus {
	var s InvoiceStatus
	switch {
	case total > 0 && amountPaid >= total:
		s = StatusPaid
	case amountPaid > 0:
		s = StatusPartial
	default:
		s = StatusIssued
	}
	if s != StatusPaid && now.After(dueDate) {
		return StatusOverdue
	}
	return s
}

// LineItemKind is the discriminant of the line-item tagged union.
type LineItemKind string

const (
	ItemService   LineItemKind = "service"
	ItemMedicine  LineItemKind = "medicine"
	ItemProcedure LineItemKind = "procedure"
	ItemLabTest   LineItemKind = "lab_test"
)

// ValidLineItemKind reports whether k is a known discriminant.
func ValidLineItemKind(k LineItemKind) bool {
	switch k {
	case ItemService, ItemMedicine, ItemProcedure, ItemLabTest:
		return true
	}
	return false
}

// LineItem is one priced entry on an invoice. Kind decides which optional
// fields are meaningful: medicine items carry MedicineID/BatchID, the other
// kinds carry ReferenceID pointing at the appointment/procedure/lab record.
type LineItem struct {
	ID          int          `json:"id"`
	InvoiceID   int          `json:"-"`
	Kind        LineItemKind `json:"kind"`
	Description string       `json:"description"`
	ReferenceID *int         `json:"reference_id,omitempty"`
	MedicineID  *int         `json:"medicine_id,omitempty"`
	BatchID     *int         `json:"batch_id,omitempty"`
	Quantity    int          `json:"quantity"`
	UnitPrice   float64      `json:"unit_price"`
	TaxRate     float64      `json:"tax_rate"`
	TaxAmount   float64      `json:"tax_amount"`
	TotalPrice  float64      `json:"total_price"`
}

// PaymentMethod is the enumerated settlement channel of a payment.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodUPI    PaymentMethod = "upi"
	MethodOnline PaymentMethod = "online"
	MethodBank   PaymentMethod = "bank_transfer"
)

// ValidPaymentMethod reports whether m is a known method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI, MethodOnline, MethodBank:
		return true
	}
	return false
}

// Payment is one append-only settlement record against an invoice. Payments
// are never edited or removed; corrections are new records.
type Payment struct {
	ID          int           `json:"id"`
	InvoiceID   int           `json:"invoice_id"`
	Amount      float64       `json:"amount"`
	Method      PaymentMethod `json:"method"`
	Reference   string        `json:"reference,omitempty"`
	CollectedBy int           `json:"collected_by"`
	PaidAt      time.Time     `json:"paid_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Invoice is the aggregate root of the billing engine.
type Invoice struct {
	ID             int           `json:"id"`
	InvoiceNumber  string        `json:"invoice_number"`
	Type           InvoiceType   `json:"type"`
	Status         InvoiceStatus `json:"status"`
	PatientID      *int          `json:"patient_id,omitempty"`
	CustomerName   string        `json:"customer_name"`
	CustomerPhone  string        `json:"customer_phone"`
	PractitionerID *int          `json:"practitioner_id,omitempty"`
	DepartmentID   *int          `json:"department_id,omitempty"`
	PrescriptionID *int          `json:"prescription_id,omitempty"`
	AppointmentID  *int          `json:"appointment_id,omitempty"`
	SourceSaleID   *int          `json:"source_sale_id,omitempty"`
	IssueDate      time.Time     `json:"issue_date"`
	DueDate        time.Time     `json:"due_date"`
	Items          []LineItem    `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	Discount       float64       `json:"discount"`
	Tax            float64       `json:"tax"`
	Total          float64       `json:"total"`
	AmountPaid     float64       `json:"amount_paid"`
	BalanceDue     float64       `json:"balance_due"`
	Payments       []Payment     `json:"payments"`
	CreatedBy      int           `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// PriceItem fills the computed money fields of a line item from its quantity,
// unit price and tax rate.
func PriceItem(it *LineItem) {
	net := utils.Round2(it.UnitPrice * float64(it.Quantity))
	it.TaxAmount = utils.Round2(net * it.TaxRate / 100)
	it.TotalPrice = net
}

// ComputeTotals folds the priced line items into subtotal, tax and total.
// total = subtotal - discount + tax.
func ComputeTotals(items []LineItem, discount float64) (subtotal, tax, total float64) {
	for _, it := range items {
		subtotal += it.TotalPrice
		tax += it.TaxAmount
	}
	subtotal = utils.Round2(subtotal)
	tax = utils.Round2(tax)
	total = utils.Round2(subtotal - discount + tax)
	return subtotal, tax, total
}

// LineItemRequest is one requested entry on a new invoice.
type LineItemRequest struct {
	Kind        LineItemKind `json:"kind" validate:"required"`
	Description string       `json:"description" validate:"required"`
	ReferenceID *int         `json:"reference_id"`
	MedicineID  *int         `json:"medicine_id"`
	BatchID     *int         `json:"batch_id"`
	Quantity    int          `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64      `json:"unit_price" validate:"gte=0"`
	TaxRate     float64      `json:"tax_rate" validate:"gte=0,lte=100"`
}

// CreateInvoiceRequest is the payload for creating an invoice. Type comes
// from the URL, the actor from the auth context.
type CreateInvoiceRequest struct {
	PatientID        *int                  `json:"patient_id"`
	CustomerName     string                `json:"customer_name" validate:"required"`
	CustomerPhone    string                `json:"customer_phone"`
	PractitionerID   *int                  `json:"practitioner_id"`
	DepartmentID     *int                  `json:"department_id"`
	PrescriptionID   *int                  `json:"prescription_id"`
	AppointmentID    *int                  `json:"appointment_id"`
	SourceSaleID     *int                  `json:"source_sale_id"`
	DueInDays        int                   `json:"due_in_days" validate:"gte=0"`
	Discount         float64               `json:"discount" validate:"gte=0"`
	Items            []LineItemRequest     `json:"items" validate:"required,min=1,dive"`
	ImmediatePayment *RecordPaymentRequest `json:"immediate_payment"`
}

// RecordPaymentRequest is the payload for recording a payment.
type RecordPaymentRequest struct {
	Amount    float64       `json:"amount" validate:"required,gt=0"`
	Method    PaymentMethod `json:"method" validate:"required"`
	Reference string        `json:"reference"`
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Type           InvoiceType
	Status         InvoiceStatus
	PractitionerID *int
	DepartmentID   *int
	PatientID      *int
	Start          *time.Time
	End            *time.Time
	Limit          int
	Offset         int
}
