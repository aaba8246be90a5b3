package services

import (
	"context"
	"log"
	"sort"

	"clinic-backend/internal/cache"
	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"
)

// RevenueService replays invoices into reports. It never writes; the same
// invoice set always folds to the same report, so results are cacheable until
// the next billing write invalidates them.
type RevenueService struct {
	Invoices      InvoiceStore
	Practitioners PractitionerStore
	Commission    *CommissionService
}

func NewRevenueService(invoices InvoiceStore, practitioners PractitionerStore, commission *CommissionService) *RevenueService {
	return &RevenueService{Invoices: invoices, Practitioners: practitioners, Commission: commission}
}

// Report builds the revenue report for the filter window.
func (s *RevenueService) Report(ctx context.Context, filter *models.RevenueFilter) (*models.RevenueReport, error) {
	if !filter.End.After(filter.Start) {
		return nil, models.NewValidationError("end", "window end must be after start")
	}

	if report, ok := cache.GetCachedRevenueReport(ctx, filter); ok {
		return report, nil
	}

	invoices, err := s.Invoices.ListForRevenue(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := practitionerIDs(invoices)
	practitioners, err := s.Practitioners.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := BuildRevenueReport(filter, invoices, practitioners, s.Commission)
	cache.CacheRevenueReport(ctx, filter, report)
	log.Printf("[Revenue] Report %s to %s: %d invoices, total %.2f",
		filter.Start.Format("2006-01-02"), filter.End.Format("2006-01-02"),
		report.InvoiceCount, report.TotalRevenue)
	return report, nil
}

// BuildRevenueReport is the pure fold. Cancelled and refunded invoices are
// excluded upstream; payment-method filtering happens here because it scopes
// the collected figures, not the invoice set.
func BuildRevenueReport(filter *models.RevenueFilter, invoices []*models.Invoice,
	practitioners map[int]*models.Practitioner, commission *CommissionService) *models.RevenueReport {

	report := &models.RevenueReport{
		Start:  filter.Start,
		End:    filter.End,
		ByType: make(map[models.InvoiceType]float64),
	}

	days := make(map[string]*models.DailyRevenue)
	byPractitioner := make(map[int]*models.PractitionerRevenue)
	byDepartment := make(map[int]*models.DepartmentRevenue)

	for _, inv := range invoices {
		collected := collectedAmount(inv, filter.Method)

		report.TotalRevenue += inv.Total
		report.Collected += collected
		report.Outstanding += inv.BalanceDue
		report.InvoiceCount++
		report.ByType[inv.Type] += inv.Total

		day := timeutil.ToIST(inv.IssueDate).Format("2006-01-02")
		d, ok := days[day]
		if !ok {
			d = &models.DailyRevenue{Date: day}
			days[day] = d
		}
		d.Revenue = utils.Round2(d.Revenue + inv.Total)
		d.Collected = utils.Round2(d.Collected + collected)
		d.InvoiceCount++

		var practitioner *models.Practitioner
		if inv.PractitionerID != nil {
			practitioner = practitioners[*inv.PractitionerID]
		}
		split := commission.Split(inv, practitioner)
		if split.Unattributed {
			report.UnattributedRevenue += split.GrossAmount
		} else {
			report.PractitionerEarning += split.CommissionAmount
			p := byPractitioner[*split.PractitionerID]
			if p == nil {
				p = &models.PractitionerRevenue{PractitionerID: *split.PractitionerID}
				if pr := practitioners[*split.PractitionerID]; pr != nil {
					p.Name = pr.Name
				}
				byPractitioner[*split.PractitionerID] = p
			}
			p.GrossAmount = utils.Round2(p.GrossAmount + split.GrossAmount)
			p.Commission = utils.Round2(p.Commission + split.CommissionAmount)
			p.FacilityShare = utils.Round2(p.FacilityShare + split.FacilityShare)
			p.InvoiceCount++
		}
		report.FacilityShare += inv.Total - split.CommissionAmount

		if inv.DepartmentID != nil {
			dep := byDepartment[*inv.DepartmentID]
			if dep == nil {
				dep = &models.DepartmentRevenue{DepartmentID: *inv.DepartmentID}
				byDepartment[*inv.DepartmentID] = dep
			}
			dep.Revenue = utils.Round2(dep.Revenue + inv.Total)
			dep.InvoiceCount++
		}
	}

	report.TotalRevenue = utils.Round2(report.TotalRevenue)
	report.PractitionerEarning = utils.Round2(report.PractitionerEarning)
	report.FacilityShare = utils.Round2(report.FacilityShare)
	report.UnattributedRevenue = utils.Round2(report.UnattributedRevenue)
	report.Collected = utils.Round2(report.Collected)
	report.Outstanding = utils.Round2(report.Outstanding)
	for t, v := range report.ByType {
		report.ByType[t] = utils.Round2(v)
	}

	for _, d := range days {
		report.ByDay = append(report.ByDay, *d)
	}
	sort.Slice(report.ByDay, func(i, j int) bool { return report.ByDay[i].Date < report.ByDay[j].Date })

	for _, p := range byPractitioner {
		report.ByPractitioner = append(report.ByPractitioner, *p)
	}
	sort.Slice(report.ByPractitioner, func(i, j int) bool {
		return report.ByPractitioner[i].GrossAmount > report.ByPractitioner[j].GrossAmount
	})

	for _, d := range byDepartment {
		report.ByDepartment = append(report.ByDepartment, *d)
	}
	sort.Slice(report.ByDepartment, func(i, j int) bool {
		return report.ByDepartment[i].Revenue > report.ByDepartment[j].Revenue
	})

	return report
}

func collectedAmount(inv *models.Invoice, method models.PaymentMethod) float64 {
	if method == "" {
		return inv.AmountPaid
	}
	sum := 0.0
	for _, p := range inv.Payments {
		if p.Method == method {
			sum += p.Amount
		}
	}
	return sum
}

func practitionerIDs(invoices []*models.Invoice) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, inv := range invoices {
		if inv.PractitionerID != nil && !seen[*inv.PractitionerID] {
			seen[*inv.PractitionerID] = true
			ids = append(ids, *inv.PractitionerID)
		}
	}
	return ids
}
