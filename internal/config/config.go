package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBDSN         string
	LogFile       string
	EngravingRate float64 // per engraved character
}

func Load() Config {
	// Optional .env in the working directory; real env wins.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "gravado.db" // sqlite file in project root
	}
	logFile := os.Getenv("LOG_FILE")

	rate := 5.0
	if v := os.Getenv("ENGRAVING_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			rate = f
		}
	}

	cfg := Config{Port: port, DBDSN: dsn, LogFile: logFile, EngravingRate: rate}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s ENGRAVING_RATE=%.2f", cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.EngravingRate)
	return cfg
}
