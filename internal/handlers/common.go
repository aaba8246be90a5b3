package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinic-backend/internal/models"
	"clinic-backend/pkg/utils"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodeAndValidate reads the JSON body into dst and runs its validation
// tags. A false return means the response is already written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP statuses. Stock shortages and
// overpayments are conflicts: the request was well-formed but lost to the
// current state.
func respondError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	var insufficient *models.InsufficientStockError
	var overpayment *models.OverpaymentError

	switch {
	case errors.As(err, &validation):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case models.IsNotFound(err):
		utils.Error(w, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficient), errors.As(err, &overpayment),
		errors.Is(err, models.ErrConcurrencyConflict):
		utils.Error(w, http.StatusConflict, err.Error())
	default:
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
