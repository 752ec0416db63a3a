package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/inima-app/inima/internal/api"
	"github.com/inima-app/inima/internal/chat"
	"github.com/inima-app/inima/internal/composer"
	"github.com/inima-app/inima/internal/config"
	"github.com/inima-app/inima/internal/conversation"
	"github.com/inima-app/inima/internal/llm"
	"github.com/inima-app/inima/internal/notify"
	"github.com/inima-app/inima/internal/profile"
	"github.com/inima-app/inima/internal/storage"
	"github.com/inima-app/inima/internal/worker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the inima server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running inima server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show inima system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "inima.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// loadOrCreateToken returns the API bearer token: the configured one if set,
// otherwise a persisted random token under the data dir, generated on first
// start so the CLI and server always agree.
func loadOrCreateToken(cfg config.Config) (string, error) {
	if cfg.Server.Token != "" {
		return cfg.Server.Token, nil
	}

	path := filepath.Join(cfg.Storage.DataDir, "api-token")
	if data, err := os.ReadFile(path); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persisting token: %w", err)
	}
	return token, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "inima version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireLLM(); err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken, err := loadOrCreateToken(cfg)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("inima is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("inima is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the chat pipeline.
	model, err := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, llm.Options{
		Model:            cfg.LLM.Model,
		Temperature:      float32(cfg.LLM.Temperature),
		MaxTokens:        cfg.LLM.MaxTokens,
		TopP:             float32(cfg.LLM.TopP),
		FrequencyPenalty: float32(cfg.LLM.FrequencyPenalty),
		PresencePenalty:  float32(cfg.LLM.PresencePenalty),
	})
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}

	convs := conversation.NewService(store)
	profiles := profile.NewManager(store)
	compiler := composer.New(profiles)
	chatSvc := chat.NewService(convs, compiler, model, profiles, store)

	var auth smtp.Auth
	if cfg.Notify.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.Notify.SMTPUser, cfg.Notify.SMTPPassword, cfg.Notify.SMTPHost)
	}
	mailer := notify.NewSMTPMailer(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.From, cfg.Notify.To, auth)

	appHandler := api.NewAppHandler(api.AppDeps{
		Conversations: convs,
		Chat:          chatSvc,
		Profiles:      profiles,
		Compiler:      compiler,
		Mailer:        mailer,
		Token:         apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// Start the analysis worker.
	w := worker.NewWorker(store, profiles, cfg.StaleAfterDuration(), cfg.PollIntervalDuration())
	go w.Run(ctx)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Conversations: convs,
		Profiles:      profiles,
		Compiler:      compiler,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "inima listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("inima is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop inima (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to inima (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.LLM.Model)
	if cfg.LLM.BaseURL != "" {
		printStatus("Model endpoint", "%s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.APIKey == "" {
		printWarning("no LLM API key configured (set INIMA_LLM_API_KEY)")
	}
	if cfg.Notify.SMTPHost == "" {
		printStatus("Notifications", "disabled (no SMTP host)")
	} else {
		printStatus("Notifications", "%s:%d", cfg.Notify.SMTPHost, cfg.Notify.SMTPPort)
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
