package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/logishift/viewrank/internal/db"
	"github.com/logishift/viewrank/pkg/config"
	"github.com/logishift/viewrank/pkg/logging"
)

var (
	envFile string
	output  = "table" // "table" or "json"
)

// env is the runtime shared by every subcommand
type env struct {
	cfg *config.Config
	db  *db.DB
	loc *time.Location
}

var rootCmd = &cobra.Command{
	Use:   "viewctl",
	Short: "Inspect and maintain post view counters",
	Long: `viewctl works directly against the view counter store.
It reads the same LOGISHIFT_* environment and config.yaml as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file before reading configuration")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: table or json")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(recordCmd)
}

// setup loads configuration and opens the database. The returned cleanup
// closes it.
func setup() (*env, func(), error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// Keep stdout for command output.
	cfg.Logging.Format = "text"
	if cfg.Logging.Level == "INFO" {
		cfg.Logging.Level = "WARN"
	}
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	loc, err := cfg.Site.Location()
	if err != nil {
		return nil, nil, err
	}

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = database.Close()
		_ = logging.GetLogger().Sync()
	}
	return &env{cfg: cfg, db: database, loc: loc}, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
