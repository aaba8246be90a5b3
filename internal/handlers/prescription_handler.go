package handlers

import (
	"net/http"
	"strconv"

	"clinic-backend/internal/middleware"
	"clinic-backend/internal/models"
	"clinic-backend/internal/services"
	"clinic-backend/pkg/utils"
)

type PrescriptionHandler struct {
	Service *services.PrescriptionService
}

func NewPrescriptionHandler(service *services.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{Service: service}
}

func (h *PrescriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePrescriptionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	p, err := h.Service.Create(r.Context(), &req, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, p)
}

func (h *PrescriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}

func (h *PrescriptionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	prescriptions, err := h.Service.ListActive(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, prescriptions)
}

// Convert dispenses selected prescription lines as a pharmacy invoice
func (h *PrescriptionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ConvertPrescriptionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	inv, err := h.Service.Convert(r.Context(), id, &req, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, inv)
}
