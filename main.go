package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/investidor2021/notas-corretagem/src/config"
	"github.com/investidor2021/notas-corretagem/src/database"
	"github.com/investidor2021/notas-corretagem/src/handlers"
	"github.com/investidor2021/notas-corretagem/src/logger"
	_ "github.com/investidor2021/notas-corretagem/src/model"
	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/parsers"
	"github.com/investidor2021/notas-corretagem/src/processors"
	"github.com/investidor2021/notas-corretagem/src/security"
	"github.com/investidor2021/notas-corretagem/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateTableFromConfig starts from the default Brazilian rules and applies
// the configured overrides.
func rateTableFromConfig(cfg *config.AppConfig) processors.RateTable {
	rt := processors.DefaultRateTable()
	rt.DarfMinimum = cfg.DarfMinimum
	for _, cat := range []models.Category{
		models.CategoryStockSwing,
		models.CategoryETFSwing,
		models.CategoryBDRSwing,
		models.CategoryTerm,
	} {
		rt.Rates[cat] = processors.CategoryRate{Rate: cfg.TaxRateSwing, ExemptionLimit: cfg.SwingExemptionLimit}
	}
	rt.Rates[models.CategoryDayTrade] = processors.CategoryRate{Rate: cfg.TaxRateDayTrade}
	rt.Rates[models.CategoryOptionsSwing] = processors.CategoryRate{Rate: cfg.TaxRateOptions}
	rt.Rates[models.CategoryRealEstateFund] = processors.CategoryRate{Rate: cfg.TaxRateRealEstate}
	return rt
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Notas-corretagem backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	rateTable := rateTableFromConfig(config.Cfg)
	if err := rateTable.Validate(); err != nil {
		logger.L.Error("Invalid tax rate configuration", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	logger.L.Info("Report cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(authService)

	csvParser := parsers.NewCSVParser()
	normalizer := parsers.NewTradeNormalizer()
	classifier := processors.NewTradeClassifier()
	positionProcessor := processors.NewPositionProcessor()
	optionProcessor := processors.NewOptionProcessor()
	taxProcessor := processors.NewTaxProcessor(rateTable)

	reportService := services.NewReportService(
		normalizer, classifier, positionProcessor, optionProcessor, taxProcessor,
		reportCache,
	)
	uploadService := services.NewUploadService(csvParser, normalizer, reportService)

	uploadHandler := handlers.NewUploadHandler(uploadService)
	reportHandler := handlers.NewReportHandler(reportService)
	txHandler := handlers.NewTransactionHandler(uploadService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/auth/register", userHandler.RegisterUserHandler)
	apiRouter.HandleFunc("POST /api/auth/login", userHandler.LoginUserHandler)

	apiRouter.HandleFunc("POST /api/upload", userHandler.AuthMiddleware(uploadHandler.HandleUpload))
	apiRouter.HandleFunc("GET /api/custody", userHandler.AuthMiddleware(reportHandler.HandleGetCustody))
	apiRouter.HandleFunc("GET /api/tax-report", userHandler.AuthMiddleware(reportHandler.HandleGetTaxReport))
	apiRouter.HandleFunc("GET /api/operations", userHandler.AuthMiddleware(txHandler.HandleGetOperations))
	apiRouter.HandleFunc("DELETE /api/operations/all", userHandler.AuthMiddleware(txHandler.HandleDeleteAllOperations))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Notas-corretagem backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
