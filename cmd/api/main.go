package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/solamate/fundpool/docs"
	"github.com/solamate/fundpool/internal/application"
	"github.com/solamate/fundpool/internal/audit"
	"github.com/solamate/fundpool/internal/config"
	"github.com/solamate/fundpool/internal/database"
	"github.com/solamate/fundpool/internal/disbursement"
	"github.com/solamate/fundpool/internal/event"
	"github.com/solamate/fundpool/internal/memstore"
	"github.com/solamate/fundpool/internal/split"
	"github.com/solamate/fundpool/internal/wallet"
	mw "github.com/solamate/fundpool/pkg/middleware"
)

// @title           Fundpool API
// @version         1.0
// @description     Pooled fund custody and disbursement ledger with group expense splits
// @BasePath        /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	var (
		walletStore       wallet.Store
		eventStore        event.Store
		applicationStore  application.Store
		disbursementStore disbursement.Store
		splitStore        split.Store
		recorder          audit.Recorder
	)

	switch cfg.StorageDriver {
	case "memory":
		ms := memstore.New()
		walletStore = ms.Wallets()
		eventStore = ms.Events()
		applicationStore = ms.Applications()
		disbursementStore = ms.Disbursements()
		splitStore = ms.Splits()
		recorder = audit.NewMemoryRecorder()
		log.Println("Using in-memory storage")
	default:
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Connected to database successfully")

		walletStore = wallet.NewRepository(db)
		eventStore = event.NewRepository(db)
		applicationStore = application.NewRepository(db)
		disbursementStore = disbursement.NewRepository(db)
		splitStore = split.NewRepository(db)
		recorder = audit.NewSQLRecorder(db)
	}

	// Audit trail worker
	auditWorker := audit.NewWorker(recorder, cfg.AuditBuffer)
	auditWorker.Start()
	defer auditWorker.Shutdown()

	// Wallet feature
	walletService := wallet.NewService(walletStore)
	walletHandler := wallet.NewHandler(walletService)

	// Event ledger
	eventService := event.NewService(eventStore, auditWorker)
	eventHandler := event.NewHandler(eventService)

	// Application feature
	applicationService := application.NewService(applicationStore, eventStore, cfg.ReserveOnApprove, auditWorker)
	applicationHandler := application.NewHandler(applicationService)

	// Disbursement feature
	disbursementService := disbursement.NewService(disbursementStore, eventStore, applicationStore, cfg.ReserveOnApprove, auditWorker)
	disbursementHandler := disbursement.NewHandler(disbursementService)

	// Split ledger
	splitService := split.NewService(splitStore, auditWorker)
	splitHandler := split.NewHandler(splitService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(mw.CallerIdentity)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Mount feature routers
		r.Mount("/wallets", walletHandler.Routes())
		r.Mount("/events", eventHandler.Routes())
		r.Mount("/applications", applicationHandler.Routes())
		r.Mount("/disbursements", disbursementHandler.Routes())
		r.Mount("/splits", splitHandler.Routes())
	})

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
