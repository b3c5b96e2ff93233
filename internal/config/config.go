package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings. The input file and output paths
// come from the command line; the environment supplies the knobs that rarely
// change between runs.
type Config struct {
	LogLevel        string
	HistoryDBPath   string
	ReportOptions   string
	BadRecordPolicy string
}

// Load reads configuration from the environment and an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		LogLevel:        getenv("LOG_LEVEL", "info"),
		HistoryDBPath:   getenv("HISTORY_DB", ""),
		ReportOptions:   getenv("REPORT_OPTIONS", ""),
		BadRecordPolicy: getenv("BAD_RECORD_POLICY", "skip"),
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
