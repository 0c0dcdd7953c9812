// Package main is the entry point for the PassportView application.
// PassportView renders pet passports from the backend REST API into the
// printable bilingual booklet and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/consts"
	"github.com/petmvp/passportview/internal/api/router"
	"github.com/petmvp/passportview/internal/check"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/database"
	"github.com/petmvp/passportview/internal/server"
	"github.com/petmvp/passportview/internal/shared"
	"github.com/petmvp/passportview/internal/store"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// configPath holds the path to the configuration file
var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "passportview",
	Short: "PassportView - EU pet passport booklet renderer",
	Long: `PassportView fetches pet passports from the backend API and renders them
into the bilingual EU pet passport booklet, as HTML, JSON or PDF.`,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PassportView server",
	Long: `Start the HTTP server that renders passport booklets on request.

On first run, create a configuration interactively:
  passportview check --interactive

After initial setup, simply run:
  passportview serve`,
	Run: runServe,
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Run:   runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), consts.BuildInfo())
	},
}

func init() {
	// Disable auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	// Serve command flags
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")

	// Check command flags
	checkCmd.Flags().Bool("interactive", false, "offer to create a default configuration when missing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCheck validates the configuration file
func runCheck(cmd *cobra.Command, args []string) {
	interactive, _ := cmd.Flags().GetBool("interactive")
	result := check.NewChecker(configPath).Run(cmd.Context(), interactive)

	result.Print(os.Stdout)
	if interactive {
		result.PrintSummary(os.Stdout)
	}
	if !result.OK() {
		os.Exit(errors.ExitCodeConfigValidation)
	}
}

// runServe starts the PassportView server
func runServe(cmd *cobra.Command, args []string) {
	// Non-interactive check blocks startup on errors only
	checker := check.NewChecker(configPath)
	result := checker.Run(cmd.Context(), false)
	if !result.OK() {
		result.Print(os.Stderr)
		os.Exit(errors.ExitCodeConfigValidation)
	}
	for _, warn := range result.Warnings() {
		fmt.Fprintf(os.Stderr, "[WARNING] %s\n", warn.Message)
	}

	consts.MarkStarted(time.Now())

	cfg, err := config.Load(checker.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override config with command line flags
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		fmt.Fprintf(os.Stderr, "\n[ERROR] Configuration validation failed\n")
		fmt.Fprintf(os.Stderr, "Error Code: %s\n", validationErr.Code)
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", validationErr)
		os.Exit(errors.ExitCodeConfigValidation)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting PassportView",
		zap.String("version", consts.Version),
	)

	tel, err := telemetry.New(context.Background(), cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()
	metrics := telemetry.GetMetrics()

	// The view log is optional; views are still served without it
	var dataStore store.Store
	if db, err := database.Open(cfg.Database.Path); err != nil {
		logger.Warn("View log disabled: failed to open database", zap.Error(err))
	} else {
		defer database.Close(db)
		dataStore = store.NewStore(db)

		if cfg.Database.RetentionDays > 0 {
			cleanup := store.NewViewLogCleanupService(dataStore.ViewLog(), cfg.Database.CleanupSchedule, cfg.Database.RetentionDays)
			if err := cleanup.Start(); err != nil {
				logger.Warn("Failed to start view log cleanup service", zap.Error(err))
			} else {
				defer cleanup.Stop()
			}
		}
	}

	services, err := shared.Init(cfg, metrics)
	if err != nil {
		logger.Fatal("Failed to initialize rendering services", zap.Error(err))
	}

	srv := server.New(cfg, router.Deps{
		Renderer:  services.Controller,
		Exporters: services.Exporters,
		Access:    services.Access,
		Store:     dataStore,
		Metrics:   metrics,
	})
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("PassportView server is running",
		zap.String("address", srv.Addr()),
	)
	port := cfg.Server.Port
	logger.Info(fmt.Sprintf("  Local:   http://localhost:%d/passports/{number}", port))
	if lanIP := getLocalIP(); lanIP != "" {
		logger.Info(fmt.Sprintf("  Network: http://%s:%d/passports/{number}", lanIP, port))
	}

	// the first signal starts a graceful shutdown; stop restores default
	// handling so a second one kills the process
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, stop)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("PassportView stopped")
}

// getLocalIP returns the first non-loopback IPv4 address
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
