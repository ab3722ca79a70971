package utils

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env and then .env.local, which wins over .env. Missing
// files are skipped.
func LoadEnv(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, continuing")
	}
	if err := godotenv.Overload(".env.local"); err == nil {
		logger.Debug("loaded .env.local")
	}
}
