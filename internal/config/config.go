// Package config reads the process configuration from the environment,
// optionally seeded from a .env file. Run parameters that change per
// invocation (date, broker, tolerance) come from flags, not from here.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the environment-level settings of one deployment.
type Config struct {
	// ArchiveRoot is the directory tree the broker reports land in,
	// laid out as <root>/<YYYYMMDD>/<broker>/.
	ArchiveRoot string

	// OutputDir receives the per-run CSV files.
	OutputDir string

	// PostgresDSN connects to the ledger warehouse.
	PostgresDSN string

	// TicketsTable and TickerMapTable override the default warehouse
	// table names when set.
	TicketsTable   string
	TickerMapTable string
}

// Load reads the configuration, loading a .env file first if one
// exists. The archive root, output directory and DSN are required.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		ArchiveRoot:    os.Getenv("CASHREC_ARCHIVE"),
		OutputDir:      os.Getenv("CASHREC_OUTPUT"),
		PostgresDSN:    os.Getenv("CASHREC_PG_DSN"),
		TicketsTable:   os.Getenv("CASHREC_TICKETS_TABLE"),
		TickerMapTable: os.Getenv("CASHREC_TICKERMAP_TABLE"),
	}

	if cfg.ArchiveRoot == "" {
		return nil, fmt.Errorf("CASHREC_ARCHIVE is not set")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("CASHREC_OUTPUT is not set")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("CASHREC_PG_DSN is not set")
	}
	return cfg, nil
}
