package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/expertfinder/internal/api"
	"github.com/kalambet/expertfinder/internal/config"
	"github.com/kalambet/expertfinder/internal/dialog"
	"github.com/kalambet/expertfinder/internal/directory"
	"github.com/kalambet/expertfinder/internal/usage"
	"github.com/kalambet/expertfinder/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// buildServer wires the clients, the dialog engine and the webhook router.
// The returned dispatcher must be drained after the HTTP server stops.
func buildServer(cfg config.Config) (http.Handler, *api.Dispatcher) {
	dir := directory.New(cfg.Directory)
	gw := workspace.New(cfg.Workspace)

	opts := dialog.Options{
		DirectoryHost: cfg.Directory.Host,
		OrgName:       cfg.Org.Name,
		OrgAvatarURL:  cfg.Org.AvatarURL,
	}
	if rep := usage.New(cfg.Usage); rep.Enabled() {
		opts.Usage = rep
	}

	engine := dialog.NewEngine(dir, gw, opts)
	dispatcher := api.NewDispatcher(engine, cfg.Server.MaxInflight)

	handler := api.NewWebhookHandler(api.WebhookDeps{
		AppID:            cfg.Workspace.AppID,
		WebhookSecret:    cfg.Workspace.WebhookSecret,
		VerifySignatures: cfg.Webhook.VerifySignatures,
		Dispatcher:       dispatcher,
	})
	return handler, dispatcher
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "expertfinder version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	if err := cfg.RequireWorkspace(); err != nil {
		return err
	}
	if err := cfg.RequireDirectory(); err != nil {
		return err
	}
	if !cfg.Webhook.VerifySignatures {
		printWarning("webhook signature verification is disabled")
	}

	healthClient := &http.Client{Timeout: 2 * time.Second}
	if checkHealth(healthClient, localURL(cfg.Server)) == nil {
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, dispatcher := buildServer(cfg)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("expertfinder listening", "addr", addr, "max_inflight", cfg.Server.MaxInflight)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	slog.Info("waiting for in-flight dialog turns")
	dispatcher.Wait()
	return err
}

// localURL is the loopback address of a server bound to cfg.
func localURL(cfg config.ServerConfig) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func showStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	if err := checkHealth(client, localURL(cfg.Server)); err != nil {
		printStatus("Server", "not reachable (%v)", err)
	} else {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	}

	printStatus("Workspace", "%s", cfg.Workspace.BaseURL)
	if err := cfg.RequireWorkspace(); err != nil {
		printWarning("%v", err)
	}
	printStatus("Directory", "%s", cfg.Directory.Host)
	if err := cfg.RequireDirectory(); err != nil {
		printWarning("%v", err)
	}
	printStatus("Signatures", "%s", onOff(cfg.Webhook.VerifySignatures))
	if cfg.Usage.URL != "" {
		printStatus("Usage", "reporting to %s", cfg.Usage.URL)
	} else {
		printStatus("Usage", "off")
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
