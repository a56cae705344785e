package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"task-marketplace-api/internal/config"
	"task-marketplace-api/internal/database"
	"task-marketplace-api/internal/handlers"
	"task-marketplace-api/internal/routes"

	"github.com/go-pkgz/lgr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task marketplace HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := lgr.New(lgr.Msec, lgr.LevelBraces)

		if err := godotenv.Load(); err != nil {
			logger.Logf("INFO .env file not found, using environment variables")
		}

		cfg := config.Load()

		database.InitDB(cfg.DatabaseDSN, cfg.Debug)
		handlers.Init(cfg, logger)

		ginRouter := routes.SetupRoutes()

		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: ginRouter,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			logger.Logf("INFO HTTP server listening on %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Logf("ERROR server stopped: %v", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)

		logger.Logf("INFO HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
