// Command spoolbridge keeps Spoolman filament inventory in sync with
// Bambu Lab printers.
//
// It connects to each configured printer's MQTT broker, subscribes to the
// device report topic, watches AMS tray levels for changes, and patches
// the remaining weight of the mapped Spoolman spools.
//
// Usage:
//
//	spoolbridge -config <file.yaml> [flags]
//
// Flags:
//
//	-config string      Configuration file path (required)
//	-log-level string   Override the configured log level: debug, info, warn, error
//	-event-log string   Override the configured event log path
//	-spoolman string    Override the configured Spoolman URL
//
// Examples:
//
//	# Bridge the printers listed in the config file
//	spoolbridge -config /etc/spoolbridge/config.yaml
//
//	# Same, with an event trace for later inspection
//	spoolbridge -config config.yaml -event-log bridge.blog -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spoolbridge/spoolbridge-go/pkg/bridge"
	"github.com/spoolbridge/spoolbridge-go/pkg/config"
	"github.com/spoolbridge/spoolbridge-go/pkg/discovery"
	"github.com/spoolbridge/spoolbridge-go/pkg/eventlog"
	"github.com/spoolbridge/spoolbridge-go/pkg/spoolman"
)

var (
	configPath  = flag.String("config", "", "Configuration file path (required)")
	logLevel    = flag.String("log-level", "", "Override log level: debug, info, warn, error")
	eventLog    = flag.String("event-log", "", "Override event log path")
	spoolmanURL = flag.String("spoolman", "", "Override Spoolman URL")
)

func main() {
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg)

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	events, closeEvents, err := newEventLogger(cfg.EventLog, logger)
	if err != nil {
		logger.Error("event log unavailable", "path", cfg.EventLog, "error", err)
		os.Exit(1)
	}
	defer closeEvents()

	store, err := spoolman.NewClient(spoolman.ClientConfig{
		BaseURL: cfg.Spoolman.URL,
		Timeout: time.Duration(cfg.Spoolman.TimeoutSeconds) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("invalid Spoolman configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("spoolbridge starting",
		"printers", len(cfg.Printers),
		"spoolman", cfg.Spoolman.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := make([]*bridge.Client, 0, len(cfg.Printers))
	for i := range cfg.Printers {
		client, err := buildClient(ctx, &cfg.Printers[i], store, logger, events)
		if err != nil {
			logger.Error("skipping printer",
				"serial", cfg.Printers[i].Serial,
				"error", err,
			)
			continue
		}
		clients = append(clients, client)
	}
	if len(clients) == 0 {
		logger.Error("no usable printers")
		os.Exit(1)
	}

	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(c *bridge.Client) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				logger.Error("bridge exited", "error", err)
			}
		}(client)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	for _, client := range clients {
		client.Stop()
	}
	wg.Wait()

	logger.Info("spoolbridge stopped")
}

// buildClient assembles one printer's bridge client, resolving the broker
// address via mDNS when the entry asks for discovery.
func buildClient(ctx context.Context, p *config.PrinterConfig, store *spoolman.Client, logger *slog.Logger, events eventlog.Logger) (*bridge.Client, error) {
	if p.Host == "" {
		found, err := discoverPrinter(ctx, p.Serial, logger)
		if err != nil {
			return nil, err
		}
		p.Host = found
	}

	return bridge.NewClient(bridge.ClientConfig{
		BrokerURL:         p.BrokerURL(),
		Username:          p.Username,
		Password:          p.AccessCode,
		Serial:            p.Serial,
		VerifyCertificate: p.VerifyCertificate,
		Mapping:           p.Slots,
		Sessions:          store,
		Logger:            logger,
		EventLogger:       events,
	})
}

// discoverPrinter resolves a printer's address by serial over mDNS.
func discoverPrinter(ctx context.Context, serial string, logger *slog.Logger) (string, error) {
	logger.Info("discovering printer", "serial", serial)

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	printer, err := browser.FindBySerial(ctx, serial)
	if err != nil {
		return "", fmt.Errorf("discover %s: %w", serial, err)
	}

	addr := printer.Addr()
	logger.Info("printer discovered", "serial", serial, "addr", addr)
	return addr, nil
}

// newLogger builds the application logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newEventLogger wires the event trace: always mirrored to the application
// logger at debug level, and appended to a CBOR file when a path is set.
func newEventLogger(path string, logger *slog.Logger) (eventlog.Logger, func(), error) {
	adapter := eventlog.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() {}, nil
	}

	file, err := eventlog.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := file.Close(); err != nil {
			logger.Warn("closing event log", "error", err)
		}
	}
	return eventlog.NewMultiLogger(file, adapter), closeFn, nil
}

// applyOverrides layers command-line flags over the file configuration.
func applyOverrides(cfg *config.Config) {
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *eventLog != "" {
		cfg.EventLog = *eventLog
	}
	if *spoolmanURL != "" {
		cfg.Spoolman.URL = *spoolmanURL
	}
}
