package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"clinic-backend/internal/middleware"
	"clinic-backend/internal/services"
	"clinic-backend/pkg/utils"
)

type RazorpayHandler struct {
	Service *services.RazorpayService
}

func NewRazorpayHandler(service *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Service: service}
}

// CreateOrder opens a gateway order for an invoice's outstanding balance
func (h *RazorpayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	resp, err := h.Service.CreateOrder(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string  `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string  `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string  `json:"razorpay_signature" validate:"required"`
	Amount            float64 `json:"amount" validate:"required,gt=0"`
}

// Verify records a checkout payment after signature verification
func (h *RazorpayHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	inv, err := h.Service.VerifyAndRecord(r.Context(), id,
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature, req.Amount, actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

// Webhook handles gateway callbacks. Always returns 200 on processing errors
// so Razorpay does not retry a payload we have already rejected for cause.
func (h *RazorpayHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Cannot read body")
		return
	}

	if !h.Service.VerifyWebhookSignature(body, r.Header.Get("X-Razorpay-Signature")) {
		utils.Error(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var payload struct {
		Event   string                 `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if err := h.Service.ProcessWebhook(r.Context(), payload.Event, payload.Payload); err != nil {
		log.Printf("[Razorpay] Webhook %s failed: %v", payload.Event, err)
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
