package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/klasroom/taskintake/internal/audit"
	"github.com/klasroom/taskintake/internal/auth"
	"github.com/klasroom/taskintake/internal/config"
	"github.com/klasroom/taskintake/internal/db"
	"github.com/klasroom/taskintake/internal/intake"
	"github.com/klasroom/taskintake/internal/llm"
	"github.com/klasroom/taskintake/internal/quota"
	"github.com/klasroom/taskintake/internal/server"
	"github.com/klasroom/taskintake/internal/stt"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the task intake server",
	Long:  `Starts the taskintake HTTP server with the parse API, usage endpoint, and intake log browsing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validating config: %w", err)
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		dbPath := filepath.Join(cfg.DataDir, "taskintake.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// AI providers are optional at startup: without an API key the
		// server still runs and answers AI_NOT_CONFIGURED.
		var provider llm.Provider
		var extractor *intake.Extractor
		var transcriber stt.Transcriber
		if apiKey := os.Getenv(config.APIKeyEnvVar(cfg.Provider)); apiKey != "" {
			provider, err = llm.NewProvider(string(cfg.Provider), cfg.Model)
			if err != nil {
				return fmt.Errorf("creating LLM provider: %w", err)
			}
			if cfg.RequestsPerMin > 0 {
				provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMin)
			}
			extractor = intake.NewExtractor(provider, cfg.Model)

			// Whisper transcription always goes through the OpenAI API.
			if whisperKey := os.Getenv("OPENAI_API_KEY"); whisperKey != "" {
				transcriber = stt.NewWhisperTranscriber(
					whisperKey, cfg.WhisperModel,
					cfg.Audio.MaxBytes, cfg.Audio.MaxSeconds,
				)
			}
		} else {
			log.Printf("warning: %s is not set, AI parsing is disabled", config.APIKeyEnvVar(cfg.Provider))
		}

		guard := quota.NewStore(database, intake.ReferenceLocation(), cfg.Quota.DailyLimit, cfg.Quota.MonthlyLimit)
		auditStore := audit.NewStore(database)
		tokenStore := auth.NewStore(database)
		pipeline := intake.NewPipeline(guard, transcriber, extractor, auditStore)

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAll,
		}, database)

		// Register feature routes behind token auth.
		router := srv.Router()
		router.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokenStore))
			intake.RegisterRoutes(r, pipeline, guard)
			audit.RegisterRoutes(r, auditStore)
		})

		// Graceful shutdown on SIGINT/SIGTERM.
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Printf("received %s, shutting down", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override the configured HTTP port")
	rootCmd.AddCommand(serveCmd)
}
