package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"clinic-backend/internal/models"
	"clinic-backend/pkg/utils"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayService collects invoice balances through Razorpay. A captured
// payment lands in the ledger as a regular online payment, so the invoice
// state machine treats gateway money like cash.
type RazorpayService struct {
	keyID         string
	keySecret     string
	webhookSecret string

	invoices *InvoiceService
	payments *PaymentService
}

func NewRazorpayService(keyID, keySecret, webhookSecret string, invoices *InvoiceService, payments *PaymentService) *RazorpayService {
	return &RazorpayService{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		invoices:      invoices,
		payments:      payments,
	}
}

// Enabled reports whether gateway credentials are configured.
func (s *RazorpayService) Enabled() bool {
	return s.keyID != "" && s.keySecret != ""
}

// OrderResponse is what the checkout frontend needs to open the widget.
type OrderResponse struct {
	OrderID       string  `json:"order_id"`
	AmountPaise   int     `json:"amount"`
	Currency      string  `json:"currency"`
	KeyID         string  `json:"key_id"`
	InvoiceNumber string  `json:"invoice_number"`
	BalanceDue    float64 `json:"balance_due"`
}

// CreateOrder opens a gateway order for the invoice's outstanding balance.
func (s *RazorpayService) CreateOrder(ctx context.Context, invoiceID int) (*OrderResponse, error) {
	if !s.Enabled() {
		return nil, models.NewValidationError("gateway", "online payments are not configured")
	}

	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status.IsTerminal() {
		return nil, models.NewValidationError("status", fmt.Sprintf("invoice is %s", inv.Status))
	}
	if inv.BalanceDue <= 0 {
		return nil, models.NewValidationError("balance", "invoice has no outstanding balance")
	}

	client := razorpay.NewClient(s.keyID, s.keySecret)
	amountPaise := utils.ToPaise(inv.BalanceDue)
	order, err := client.Order.Create(map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  inv.InvoiceNumber,
		"notes": map[string]interface{}{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	orderID, _ := order["id"].(string)
	return &OrderResponse{
		OrderID:       orderID,
		AmountPaise:   amountPaise,
		Currency:      "INR",
		KeyID:         s.keyID,
		InvoiceNumber: inv.InvoiceNumber,
		BalanceDue:    inv.BalanceDue,
	}, nil
}

// VerifyAndRecord checks the checkout callback signature and records the
// payment against the invoice.
func (s *RazorpayService) VerifyAndRecord(ctx context.Context, invoiceID int, orderID, paymentID, signature string, amount float64, actorID int) (*models.Invoice, error) {
	if !s.verifyCheckoutSignature(orderID, paymentID, signature) {
		return nil, models.NewValidationError("signature", "invalid payment signature")
	}

	return s.payments.Record(ctx, invoiceID, &models.RecordPaymentRequest{
		Amount:    amount,
		Method:    models.MethodOnline,
		Reference: paymentID,
	}, actorID)
}

func (s *RazorpayService) verifyCheckoutSignature(orderID, paymentID, signature string) bool {
	if s.keySecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(s.keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the webhook body against the configured
// secret. An unset secret skips verification.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return true
	}
	h := hmac.New(sha256.New, []byte(s.webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook handles gateway events. Only payment.captured moves money;
// everything else is logged and dropped.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	switch event {
	case "payment.captured":
		return s.handleCaptured(ctx, payload)
	default:
		log.Printf("[Razorpay] Unhandled webhook event: %s", event)
		return nil
	}
}

func (s *RazorpayService) handleCaptured(ctx context.Context, payload map[string]interface{}) error {
	entity := webhookEntity(payload)

	paymentID, _ := entity["id"].(string)
	amountPaise, _ := entity["amount"].(float64)
	notes, _ := entity["notes"].(map[string]interface{})
	invoiceIDRaw, _ := notes["invoice_id"].(float64)
	invoiceID := int(invoiceIDRaw)

	if invoiceID == 0 || paymentID == "" {
		return fmt.Errorf("webhook payment missing invoice reference")
	}

	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	for _, p := range inv.Payments {
		if p.Reference == paymentID {
			log.Printf("[Razorpay] Payment %s already recorded on %s", paymentID, inv.InvoiceNumber)
			return nil
		}
	}

	_, err = s.payments.Record(ctx, invoiceID, &models.RecordPaymentRequest{
		Amount:    utils.Round2(amountPaise / 100),
		Method:    models.MethodOnline,
		Reference: paymentID,
	}, 0)
	return err
}

func webhookEntity(payload map[string]interface{}) map[string]interface{} {
	if p, ok := payload["payment"].(map[string]interface{}); ok {
		if e, ok := p["entity"].(map[string]interface{}); ok {
			return e
		}
		return p
	}
	return payload
}
