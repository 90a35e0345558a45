// ABOUTME: Entry point for the MCP gateway server
// ABOUTME: Provides serve, token, and health subcommands

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/mcp-gateway/internal/audit"
	"github.com/2389/mcp-gateway/internal/auth"
	"github.com/2389/mcp-gateway/internal/config"
	"github.com/2389/mcp-gateway/internal/dispatch"
	"github.com/2389/mcp-gateway/internal/metrics"
	"github.com/2389/mcp-gateway/internal/ratelimit"
	"github.com/2389/mcp-gateway/internal/registry"
	"github.com/2389/mcp-gateway/internal/server"
	"github.com/2389/mcp-gateway/internal/tools"
)

// version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _ __ ___   ___ _ __         __ _  __ _| |_ _____      ____ _ _   _
| '_ ' _ \ / __| '_ \ _____/ _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| | | | | | (__| |_) |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
|_| |_| |_|\___| .__/       \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
               |_|          |___/                             |___/
`

var (
	configPath string

	tokenSubject string
	tokenScopes  []string
	tokenTTL     time.Duration

	healthEndpoint string
)

var rootCmd = &cobra.Command{
	Use:     "mcp-gateway",
	Short:   "MCP gateway server",
	Long:    "mcp-gateway serves MCP tools over authenticated, rate-limited JSON-RPC.",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development JWT",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToken()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealth(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "dev", "token subject")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scopes", []string{"tools:execute"}, "scopes to grant")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	healthCmd.Flags().StringVar(&healthEndpoint, "endpoint", "http://localhost:8080", "gateway base URL")

	rootCmd.AddCommand(serveCmd, tokenCmd, healthCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:  %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Audit: %s\n", cfg.Audit.Backend)
	fmt.Println()

	secret, err := auth.ResolveSecret(cfg.Auth.JWTSecret, logger)
	if err != nil {
		return fmt.Errorf("resolving JWT secret: %w", err)
	}
	verifier, err := auth.NewJWTVerifier(secret)
	if err != nil {
		return fmt.Errorf("creating verifier: %w", err)
	}

	reg := registry.New(logger)
	tools.RegisterBuiltins(reg, logger)

	sink, closeSink, err := buildAuditSink(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("creating audit sink: %w", err)
	}
	defer closeSink()

	dispatcher := dispatch.New(dispatch.Config{
		Registry:      reg,
		Audit:         sink,
		Logger:        logger,
		ServerName:    cfg.Server.Name,
		ServerVersion: cfg.Server.Version,
	})

	limiter := ratelimit.New(ratelimit.Config{
		Window:          cfg.RateLimit.Window,
		Limit:           cfg.RateLimit.Limit,
		MaxEntries:      cfg.RateLimit.MaxEntries,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		Logger:          logger,
	})
	limiter.Start(ctx)

	srv, err := server.New(server.Config{
		Dispatcher:    dispatcher,
		Limiter:       limiter,
		Metrics:       metrics.NewRecorder(),
		Verifier:      verifier,
		Logger:        logger,
		RequireAuth:   cfg.Auth.RequireAuth,
		ServerName:    cfg.Server.Name,
		ServerVersion: cfg.Server.Version,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting mcp-gateway",
			"http_addr", cfg.Server.HTTPAddr,
			"tools", reg.Len(),
			"require_auth", cfg.Auth.RequireAuth,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runToken() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	secret, err := auth.ResolveSecret(cfg.Auth.JWTSecret, logger)
	if err != nil {
		return fmt.Errorf("resolving JWT secret: %w", err)
	}
	verifier, err := auth.NewJWTVerifier(secret)
	if err != nil {
		return fmt.Errorf("creating verifier: %w", err)
	}

	token, err := verifier.Generate(tokenSubject, tokenScopes, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthEndpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, string(body))
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("healthy: %s\n", string(body))
	return nil
}

// buildAuditSink returns the configured sink and a close function. The close
// function is a no-op for the log backend.
func buildAuditSink(cfg config.AuditConfig, logger *slog.Logger) (audit.Sink, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		sink, err := audit.NewSQLiteSink(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() {
			if err := sink.Close(); err != nil {
				logger.Warn("closing audit sink", "error", err)
			}
		}, nil
	default:
		return audit.NewLogSink(logger), func() {}, nil
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
