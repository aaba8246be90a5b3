package services

import (
	"clinic-backend/internal/models"
	"clinic-backend/pkg/utils"
)

// CommissionService derives practitioner revenue splits. It holds no state
// beyond the default rate and never writes: breakdowns are recomputed from
// the invoice on every call, so a rate change applies retroactively.
type CommissionService struct {
	DefaultRate float64
}

func NewCommissionService(defaultRate float64) *CommissionService {
	return &CommissionService{DefaultRate: defaultRate}
}

// Split computes the commission breakdown for one invoice. The gross is the
// invoice total minus its pharmacy (medicine-item) portion, which always
// belongs to the facility. practitioner may be nil when the invoice carries
// no attribution.
func (s *CommissionService) Split(inv *models.Invoice, practitioner *models.Practitioner) models.CommissionBreakdown {
	gross := attributableAmount(inv)
	b := models.CommissionBreakdown{
		GrossAmount:   gross,
		FacilityShare: gross,
	}

	if practitioner == nil {
		b.Unattributed = true
		return b
	}
	b.PractitionerID = &practitioner.ID

	rate := s.rateFor(practitioner)
	if rate <= 0 {
		return b
	}

	b.RateApplied = rate
	b.CommissionAmount = utils.Round2(gross * rate / 100)
	b.FacilityShare = utils.Round2(gross - b.CommissionAmount)
	return b
}

// rateFor resolves the percentage for a practitioner. Salaried full-time
// staff earn no per-invoice cut; others use their override or the default.
func (s *CommissionService) rateFor(p *models.Practitioner) float64 {
	if p.EmploymentType == models.EmploymentFullTime {
		return 0
	}
	if p.RevenuePercentage != nil {
		return *p.RevenuePercentage
	}
	return s.DefaultRate
}

// attributableAmount is the invoice total excluding medicine line items.
// Pharmacy revenue is facility revenue regardless of who prescribed.
func attributableAmount(inv *models.Invoice) float64 {
	if inv.Type == models.InvoiceTypePharmacy {
		return 0
	}
	medicine := 0.0
	for _, it := range inv.Items {
		if it.Kind == models.ItemMedicine {
			medicine += it.TotalPrice + it.TaxAmount
		}
	}
	return utils.Round2(inv.Total - medicine)
}
