package handlers

import (
	"net/http"
	"strconv"

	"clinic-backend/internal/middleware"
	"clinic-backend/internal/models"
	"clinic-backend/internal/services"
	"clinic-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type StockHandler struct {
	Service *services.StockService
}

func NewStockHandler(service *services.StockService) *StockHandler {
	return &StockHandler{Service: service}
}

func (h *StockHandler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMedicineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.Service.CreateMedicine(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, m)
}

func (h *StockHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.Service.GetMedicine(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, m)
}

func (h *StockHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.Service.ListMedicines(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, medicines)
}

func (h *StockHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.Service.ListLowStock(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, medicines)
}

func (h *StockHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	batches, err := h.Service.ListBatches(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, batches)
}

// RecommendBatch returns the earliest-expiring batch with stock
func (h *StockHandler) RecommendBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	batch, err := h.Service.RecommendBatch(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, batch)
}

func (h *StockHandler) ReceiveBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ReceiveBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	snap, err := h.Service.ReceiveBatch(r.Context(), id, &req, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, snap)
}

// DeductBatch dispenses stock from a named batch outside the invoice path.
func (h *StockHandler) DeductBatch(w http.ResponseWriter, r *http.Request) {
	medicineID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	batchID, ok := pathID(w, r, "batchID")
	if !ok {
		return
	}
	var req models.DeductStockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	snap, err := h.Service.Deduct(r.Context(), medicineID, batchID, req.Quantity, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, snap)
}

func (h *StockHandler) AdjustBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.AdjustStockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	snap, err := h.Service.Adjust(r.Context(), id, &req, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, snap)
}

func (h *StockHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.Service.ListAdjustments(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		utils.Error(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
