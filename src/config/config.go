package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	JWTSecret          string
	Port               string
	DatabasePath       string
	LogLevel           string
	AccessTokenExpiry  time.Duration
	MaxUploadSizeBytes int64

	// Tax parameters. Defaults follow the current Brazilian equity rules;
	// overriding them is only meant for what-if runs, not production use.
	SwingExemptionLimit float64 // monthly sales below this are exempt (swing stock-like categories)
	DarfMinimum         float64 // DARF is only due once the accumulated tax crosses this
	TaxRateSwing        float64 // stock/ETF/BDR/term swing
	TaxRateDayTrade     float64
	TaxRateOptions      float64
	TaxRateRealEstate   float64
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	accessTokenExpiryStr := getEnv("ACCESS_TOKEN_EXPIRY", "60m")
	accessTokenExpiry, err := time.ParseDuration(accessTokenExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid ACCESS_TOKEN_EXPIRY format '%s'. Using default 60m. Error: %v", accessTokenExpiryStr, err)
		accessTokenExpiry = 60 * time.Minute
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		JWTSecret:          jwtSecret,
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./notas_corretagem.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AccessTokenExpiry:  accessTokenExpiry,
		MaxUploadSizeBytes: maxUploadSizeBytes,

		SwingExemptionLimit: getEnvAsFloat("TAX_SWING_EXEMPTION_LIMIT", 20000.0),
		DarfMinimum:         getEnvAsFloat("TAX_DARF_MINIMUM", 10.0),
		TaxRateSwing:        getEnvAsFloat("TAX_RATE_SWING", 0.15),
		TaxRateDayTrade:     getEnvAsFloat("TAX_RATE_DAY_TRADE", 0.20),
		TaxRateOptions:      getEnvAsFloat("TAX_RATE_OPTIONS", 0.15),
		TaxRateRealEstate:   getEnvAsFloat("TAX_RATE_REAL_ESTATE_FUND", 0.20),
	}

	if Cfg.SwingExemptionLimit < 0 || Cfg.DarfMinimum < 0 {
		log.Fatalf("FATAL: tax thresholds must not be negative (exemption=%.2f, darf=%.2f)",
			Cfg.SwingExemptionLimit, Cfg.DarfMinimum)
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}
