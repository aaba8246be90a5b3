package handlers

import (
	"net/http"
	"strconv"
	"time"

	"clinic-backend/internal/models"
	"clinic-backend/internal/services"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"
)

type RevenueHandler struct {
	Service   *services.RevenueService
	Documents *services.DocumentService
}

func NewRevenueHandler(service *services.RevenueService, documents *services.DocumentService) *RevenueHandler {
	return &RevenueHandler{Service: service, Documents: documents}
}

// Report handles GET /api/revenue/report
func (h *RevenueHandler) Report(w http.ResponseWriter, r *http.Request) {
	filter, err := revenueFilterFromQuery(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.Service.Report(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// Export streams the daily buckets as CSV
func (h *RevenueHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := revenueFilterFromQuery(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.Service.Report(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	csvBytes, err := h.Documents.RevenueCSV(report)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=revenue_report.csv")
	w.Write(csvBytes)
}

// revenueFilterFromQuery parses the window and optional dimensions. Dates are
// interpreted as IST calendar days; an omitted window defaults to the last 30
// days.
func revenueFilterFromQuery(r *http.Request) (*models.RevenueFilter, error) {
	q := r.URL.Query()
	now := timeutil.Now()

	filter := &models.RevenueFilter{
		Start:  timeutil.StartOfDay(now.AddDate(0, 0, -30)),
		End:    timeutil.EndOfDay(now),
		Type:   models.InvoiceType(q.Get("type")),
		Method: models.PaymentMethod(q.Get("method")),
	}

	if s := q.Get("start"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, timeutil.IST)
		if err != nil {
			return nil, models.NewValidationError("start", "expected YYYY-MM-DD")
		}
		filter.Start = timeutil.StartOfDay(t)
	}
	if s := q.Get("end"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, timeutil.IST)
		if err != nil {
			return nil, models.NewValidationError("end", "expected YYYY-MM-DD")
		}
		filter.End = timeutil.EndOfDay(t)
	}

	if v, err := strconv.Atoi(q.Get("practitioner_id")); err == nil && v > 0 {
		filter.PractitionerID = &v
	}
	if v, err := strconv.Atoi(q.Get("department_id")); err == nil && v > 0 {
		filter.DepartmentID = &v
	}
	return filter, nil
}
