package http

import (
	"net/http"

	"clinic-backend/internal/handlers"
	"clinic-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	stockHandler *handlers.StockHandler,
	invoiceHandler *handlers.InvoiceHandler,
	prescriptionHandler *handlers.PrescriptionHandler,
	practitionerHandler *handlers.PractitionerHandler,
	revenueHandler *handlers.RevenueHandler,
	razorpayHandler *handlers.RazorpayHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Gateway webhook authenticates by signature, not by token
	r.HandleFunc("/api/razorpay/webhook", razorpayHandler.Webhook).Methods("POST")

	// Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.Handle("", authMiddleware.RequireAdmin(http.HandlerFunc(authHandler.CreateUser))).Methods("POST")

	// Medicines and stock
	medicinesAPI := r.PathPrefix("/api/medicines").Subrouter()
	medicinesAPI.Use(authMiddleware.Authenticate)
	medicinesAPI.HandleFunc("", stockHandler.ListMedicines).Methods("GET")
	medicinesAPI.HandleFunc("", stockHandler.CreateMedicine).Methods("POST")
	medicinesAPI.HandleFunc("/low-stock", stockHandler.ListLowStock).Methods("GET")
	medicinesAPI.HandleFunc("/{id}", stockHandler.GetMedicine).Methods("GET")
	medicinesAPI.HandleFunc("/{id}/batches", stockHandler.ListBatches).Methods("GET")
	medicinesAPI.HandleFunc("/{id}/batches", stockHandler.ReceiveBatch).Methods("POST")
	medicinesAPI.HandleFunc("/{id}/batches/recommend", stockHandler.RecommendBatch).Methods("GET")
	medicinesAPI.HandleFunc("/{id}/batches/{batchID}/deduct", stockHandler.DeductBatch).Methods("POST")

	batchesAPI := r.PathPrefix("/api/batches").Subrouter()
	batchesAPI.Use(authMiddleware.Authenticate)
	batchesAPI.HandleFunc("/{id}/adjust", stockHandler.AdjustBatch).Methods("POST")
	batchesAPI.HandleFunc("/{id}/adjustments", stockHandler.ListAdjustments).Methods("GET")

	// Invoices and payments
	invoicesAPI := r.PathPrefix("/api/invoices").Subrouter()
	invoicesAPI.Use(authMiddleware.Authenticate)
	invoicesAPI.HandleFunc("", invoiceHandler.List).Methods("GET")
	invoicesAPI.HandleFunc("/{type:[a-z_]+}", invoiceHandler.Create).Methods("POST")
	invoicesAPI.HandleFunc("/{id:[0-9]+}", invoiceHandler.Get).Methods("GET")
	invoicesAPI.HandleFunc("/{id:[0-9]+}/payments", invoiceHandler.RecordPayment).Methods("POST")
	invoicesAPI.HandleFunc("/{id:[0-9]+}/cancel", invoiceHandler.Cancel).Methods("POST")
	invoicesAPI.HandleFunc("/{id:[0-9]+}/refund", invoiceHandler.Refund).Methods("POST")
	invoicesAPI.HandleFunc("/{id:[0-9]+}/download", invoiceHandler.Download).Methods("GET")
	invoicesAPI.HandleFunc("/{id:[0-9]+}/razorpay/order", razorpayHandler.CreateOrder).Methods("POST")
	invoicesAPI.HandleFunc("/{id:[0-9]+}/razorpay/verify", razorpayHandler.Verify).Methods("POST")

	// Prescriptions
	prescriptionsAPI := r.PathPrefix("/api/prescriptions").Subrouter()
	prescriptionsAPI.Use(authMiddleware.Authenticate)
	prescriptionsAPI.HandleFunc("", prescriptionHandler.ListActive).Methods("GET")
	prescriptionsAPI.HandleFunc("", prescriptionHandler.Create).Methods("POST")
	prescriptionsAPI.HandleFunc("/{id}", prescriptionHandler.Get).Methods("GET")
	prescriptionsAPI.HandleFunc("/{id}/convert", prescriptionHandler.Convert).Methods("POST")

	// Practitioners
	practitionersAPI := r.PathPrefix("/api/practitioners").Subrouter()
	practitionersAPI.Use(authMiddleware.Authenticate)
	practitionersAPI.HandleFunc("", practitionerHandler.List).Methods("GET")
	practitionersAPI.Handle("", authMiddleware.RequireAdmin(http.HandlerFunc(practitionerHandler.Create))).Methods("POST")
	practitionersAPI.HandleFunc("/{id}", practitionerHandler.Get).Methods("GET")

	// Revenue reports (admins and accountants)
	revenueAPI := r.PathPrefix("/api/revenue").Subrouter()
	revenueAPI.Use(authMiddleware.Authenticate)
	revenueAPI.Handle("/report", authMiddleware.RequireRole("admin", "accountant")(http.HandlerFunc(revenueHandler.Report))).Methods("GET")
	revenueAPI.Handle("/export", authMiddleware.RequireRole("admin", "accountant")(http.HandlerFunc(revenueHandler.Export))).Methods("GET")

	return r
}
