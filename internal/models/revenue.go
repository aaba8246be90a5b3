package models

import "time"

// RevenueFilter narrows the invoice set the aggregator replays.
type RevenueFilter struct {
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	PractitionerID *int          `json:"practitioner_id,omitempty"`
	DepartmentID   *int          `json:"department_id,omitempty"`
	Type           InvoiceType   `json:"type,omitempty"`
	Method         PaymentMethod `json:"method,omitempty"`
}

// DailyRevenue is one day's bucket in a revenue report.
type DailyRevenue struct {
	Date         string  `json:"date"`
	Revenue      float64 `json:"revenue"`
	Collected    float64 `json:"collected"`
	InvoiceCount int     `json:"invoice_count"`
}

// PractitionerRevenue is one practitioner's slice of a revenue report.
type PractitionerRevenue struct {
	PractitionerID int     `json:"practitioner_id"`
	Name           string  `json:"name"`
	GrossAmount    float64 `json:"gross_amount"`
	Commission     float64 `json:"commission"`
	FacilityShare  float64 `json:"facility_share"`
	InvoiceCount   int     `json:"invoice_count"`
}

// DepartmentRevenue is one department's slice of a revenue report.
type DepartmentRevenue struct {
	DepartmentID int     `json:"department_id"`
	Revenue      float64 `json:"revenue"`
	InvoiceCount int     `json:"invoice_count"`
}

// RevenueReport is the read-only fold over a filtered invoice set. It holds
// no hidden accumulator state; recomputing over the same set yields the same
// numbers.
type RevenueReport struct {
	Start               time.Time               `json:"start"`
	End                 time.Time               `json:"end"`
	TotalRevenue        float64                 `json:"total_revenue"`
	PractitionerEarning float64                 `json:"practitioner_earnings"`
	FacilityShare       float64                 `json:"facility_share"`
	UnattributedRevenue float64                 `json:"unattributed_revenue"`
	Collected           float64                 `json:"collected"`
	Outstanding         float64                 `json:"outstanding"`
	InvoiceCount        int                     `json:"invoice_count"`
	ByDay               []DailyRevenue          `json:"by_day"`
	ByType              map[InvoiceType]float64 `json:"by_type"`
	ByPractitioner      []PractitionerRevenue   `json:"by_practitioner"`
	ByDepartment        []DepartmentRevenue     `json:"by_department"`
}
