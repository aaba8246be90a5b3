package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"clinic-backend/internal/middleware"
	"clinic-backend/internal/models"
	"clinic-backend/internal/services"
	"clinic-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type InvoiceHandler struct {
	Invoices  *services.InvoiceService
	Payments  *services.PaymentService
	Documents *services.DocumentService
}

func NewInvoiceHandler(invoices *services.InvoiceService, payments *services.PaymentService, documents *services.DocumentService) *InvoiceHandler {
	return &InvoiceHandler{Invoices: invoices, Payments: payments, Documents: documents}
}

// Create handles POST /api/invoices/{type}
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := models.ParseInvoiceType(mux.Vars(r)["type"])
	if !ok {
		utils.Error(w, http.StatusBadRequest, "Unknown invoice type")
		return
	}

	var req models.CreateInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	inv, err := h.Invoices.Create(r.Context(), t, &req, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Invoices.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := invoiceFilterFromQuery(r)
	invoices, err := h.Invoices.List(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.RecordPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	inv, err := h.Payments.Record(r.Context(), id, &req, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Invoices.Cancel(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Invoices.Refund(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

// Download streams the invoice as a PDF
func (h *InvoiceHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pdfBytes, err := h.Documents.InvoicePDF(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%d.pdf", id))
	w.Write(pdfBytes)
}

func invoiceFilterFromQuery(r *http.Request) *models.InvoiceFilter {
	q := r.URL.Query()
	filter := &models.InvoiceFilter{
		Type:   models.InvoiceType(q.Get("type")),
		Status: models.InvoiceStatus(q.Get("status")),
	}
	if v, err := strconv.Atoi(q.Get("practitioner_id")); err == nil && v > 0 {
		filter.PractitionerID = &v
	}
	if v, err := strconv.Atoi(q.Get("department_id")); err == nil && v > 0 {
		filter.DepartmentID = &v
	}
	if v, err := strconv.Atoi(q.Get("patient_id")); err == nil && v > 0 {
		filter.PatientID = &v
	}
	if t, err := time.Parse("2006-01-02", q.Get("start")); err == nil {
		filter.Start = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("end")); err == nil {
		filter.End = &t
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	return filter
}
