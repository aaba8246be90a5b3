package handlers

import (
	"net/http"

	"clinic-backend/internal/models"
	"clinic-backend/internal/repositories"
	"clinic-backend/pkg/utils"
)

type PractitionerHandler struct {
	Repo *repositories.PractitionerRepository
}

func NewPractitionerHandler(repo *repositories.PractitionerRepository) *PractitionerHandler {
	return &PractitionerHandler{Repo: repo}
}

type createPractitionerRequest struct {
	Name              string                `json:"name" validate:"required"`
	DepartmentID      *int                  `json:"department_id"`
	Specialization    string                `json:"specialization"`
	EmploymentType    models.EmploymentType `json:"employment_type" validate:"required,oneof=full_time part_time visiting"`
	RevenuePercentage *float64              `json:"revenue_percentage" validate:"omitempty,gte=0,lte=100"`
}

func (h *PractitionerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPractitionerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p := &models.Practitioner{
		Name:              req.Name,
		DepartmentID:      req.DepartmentID,
		Specialization:    req.Specialization,
		EmploymentType:    req.EmploymentType,
		RevenuePercentage: req.RevenuePercentage,
	}
	created, err := h.Repo.Create(r.Context(), p)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, created)
}

func (h *PractitionerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}

func (h *PractitionerHandler) List(w http.ResponseWriter, r *http.Request) {
	practitioners, err := h.Repo.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, practitioners)
}
