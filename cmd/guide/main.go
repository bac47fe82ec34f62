// Command guide runs the guidance engine. `guide serve` exposes the HTTP API;
// `guide seed` and `guide ask` work directly against the database.
//
//	@title			Guide API
//	@version		1.0
//	@description	Project guidance engine: mode-aware conversations, streaming replies and non-repeating hints.
//	@BasePath		/api/v1
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/config"
	"github.com/tbourn/go-guide-backend/internal/llm"
	"github.com/tbourn/go-guide-backend/internal/repo"
	"github.com/tbourn/go-guide-backend/internal/services"
	"github.com/tbourn/go-guide-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "guide",
	Short: "AI guidance engine for project-based learning",
	Long: `guide answers learner questions with mentor-style guidance.

Conversations are kept per user and per project, the project's difficulty
mode shapes every reply, and milestone hints are never handed out twice.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadEnv(envFile)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnv reads a dotenv file into the process environment. Variables that
// are already set win.
func loadEnv(path string) {
	var err error
	if path != "" {
		err = godotenv.Load(path)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Info().Str("path", path).Msg("No .env file found, using environment variables")
	}
}

// loadConfig reads the environment configuration and installs the global
// logger on the command's stderr.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	level := sysutil.FirstNonEmpty(logLevel, cfg.LogLevel)
	sysutil.SetupLogger(cmd.ErrOrStderr(), level, cfg.LogPretty, cfg.OTEL.ServiceName)
	return cfg, nil
}

// openDB opens the SQLite database and brings the schema up to date.
func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// closeDB releases the connection pool behind db.
func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("close db")
	}
}

// newEngine builds the model gateway and the orchestrator on top of db.
func newEngine(ctx context.Context, cfg config.Config, db *gorm.DB) (*services.Orchestrator, error) {
	gw, err := llm.New(ctx, llm.Config{
		Provider: cfg.Guide.Provider,
		Model:    cfg.Guide.Model,
		APIKey:   cfg.Guide.APIKey,
		BaseURL:  cfg.Guide.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("model gateway: %w", err)
	}
	return services.NewOrchestrator(db, gw, services.Options{
		HistoryLimit:      cfg.Guide.HistoryLimit,
		StreamDelay:       cfg.Guide.StreamDelay,
		NativeStreaming:   cfg.Guide.StreamMode == "native",
		GenerationTimeout: cfg.Guide.GenerationTimeout,
		MaxPromptRunes:    cfg.Guide.MaxPromptRunes,
	}), nil
}
