package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"clinic-backend/internal/auth"
	"clinic-backend/internal/cache"
	"clinic-backend/internal/config"
	"clinic-backend/internal/database"
	"clinic-backend/internal/db"
	"clinic-backend/internal/handlers"
	"clinic-backend/internal/health"
	h "clinic-backend/internal/http"
	"clinic-backend/internal/middleware"
	"clinic-backend/internal/monitoring"
	"clinic-backend/internal/repositories"
	"clinic-backend/internal/services"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	// Redis is optional; login falls back to bcrypt and reports skip the cache
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v", err)
	} else {
		log.Println("[Redis] Cache connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	migrator := database.NewMigrator(pool)
	if err := migrator.RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cancel()

	healthChecker := health.NewHealthChecker(pool)
	go monitoring.NewMonitoringServer(pool, cfg.Server.MonitoringPort).Start()

	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	medicineRepo := repositories.NewMedicineRepository(pool)
	batchRepo := repositories.NewBatchRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool, batchRepo)
	practitionerRepo := repositories.NewPractitionerRepository(pool)
	prescriptionRepo := repositories.NewPrescriptionRepository(pool)

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	stockService := services.NewStockService(medicineRepo, batchRepo)
	invoiceService := services.NewInvoiceService(invoiceRepo, practitionerRepo, cfg.Billing.DefaultDueDays)
	paymentService := services.NewPaymentService(invoiceRepo)
	commissionService := services.NewCommissionService(cfg.Billing.DefaultCommissionRate)
	revenueService := services.NewRevenueService(invoiceRepo, practitionerRepo, commissionService)
	prescriptionService := services.NewPrescriptionService(prescriptionRepo, batchRepo, medicineRepo, invoiceService, cfg.Billing.PrescriptionValidDays)
	documentService := services.NewDocumentService(invoiceService, cfg.Billing.ClinicName)
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		invoiceService, paymentService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	stockHandler := handlers.NewStockHandler(stockService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, paymentService, documentService)
	prescriptionHandler := handlers.NewPrescriptionHandler(prescriptionService)
	practitionerHandler := handlers.NewPractitionerHandler(practitionerRepo)
	revenueHandler := handlers.NewRevenueHandler(revenueService, documentService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	router := h.NewRouter(
		authHandler,
		stockHandler,
		invoiceHandler,
		prescriptionHandler,
		practitionerHandler,
		revenueHandler,
		razorpayHandler,
		healthHandler,
		authMiddleware,
	)

	// Background sweeps: overdue invoices and lapsed prescriptions
	go runSweeps(invoiceService, prescriptionService)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// runSweeps drives the periodic status transitions. Both sweeps are
// idempotent, so the interval only affects how quickly a lapse is observed.
func runSweeps(invoices *services.InvoiceService, prescriptions *services.PrescriptionService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := invoices.SweepOverdue(ctx); err != nil {
			log.Printf("[Sweep] Overdue sweep failed: %v", err)
		}
		if _, err := prescriptions.SweepExpired(ctx); err != nil {
			log.Printf("[Sweep] Prescription sweep failed: %v", err)
		}
		cancel()

		<-ticker.C
	}
}
