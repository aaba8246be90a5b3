package models

import "time"

// EmploymentType decides how a practitioner is compensated. Full-time staff
// are salaried and take no per-invoice cut.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentVisiting EmploymentType = "visiting"
)

// Practitioner is a treating professional attributable on invoices.
type Practitioner struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	DepartmentID      *int           `json:"department_id"`
	Specialization    string         `json:"specialization"`
	EmploymentType    EmploymentType `json:"employment_type"`
	RevenuePercentage *float64       `json:"revenue_percentage,omitempty"`
	IsActive          bool           `json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
}

// CommissionBreakdown is the derived split of one invoice's attributable
// revenue. It is recomputed on demand and never persisted, so a rule change
// applies retroactively; consumers needing point-in-time numbers must
// snapshot it themselves.
type CommissionBreakdown struct {
	PractitionerID   *int    `json:"practitioner_id,omitempty"`
	GrossAmount      float64 `json:"gross_amount"`
	RateApplied      float64 `json:"rate_applied"`
	CommissionAmount float64 `json:"commission_amount"`
	FacilityShare    float64 `json:"facility_share"`
	Unattributed     bool    `json:"unattributed"`
}
