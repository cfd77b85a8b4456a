package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alan791205/ohara/api"
	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/event_flow"
	"github.com/alan791205/ohara/event_server"
	"github.com/alan791205/ohara/jars"
	"github.com/alan791205/ohara/jdbc_infos"
	"github.com/alan791205/ohara/pipelines"
	"github.com/alan791205/ohara/state_stores"
	"github.com/alan791205/ohara/workers"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	defaultConfigPath = "./config/configs/default.yaml"
	serviceName       = "ohara"
	shutdownTimeout   = 10 * time.Second
	outletBuffer      = 256
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ohara",
	Short: "Ohara pipeline console backend",
	Long:  `Ohara serves the REST API and live event feed behind the pipeline console.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is fine
		_ = godotenv.Load()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE:  runServe,
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check a config file and its seeded workers and pipelines",
	RunE:  runLint,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config")
	rootCmd.AddCommand(serveCmd, lintCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath applies the precedence ENV > CLI flag > default path.
func resolveConfigPath() string {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return configPath
}

// setupLogging makes the otelslog bridge the default logger when an OTLP
// endpoint is configured. The returned func flushes pending records.
func setupLogging(ctx context.Context) (func(), error) {
	logUrl := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if logUrl == "" {
		return func() {}, nil
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(api.Version),
	)
	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(logUrl),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exporter: %w", err)
	}
	lp := log.NewLoggerProvider(
		log.WithProcessor(
			log.NewBatchProcessor(logExporter),
		),
		log.WithResource(res),
	)
	slog.SetDefault(otelslog.NewLogger(serviceName, otelslog.WithLoggerProvider(lp)))
	return func() {
		if err := lp.Shutdown(context.Background()); err != nil {
			fmt.Printf("failed to shutdown logger provider: %v\n", err)
		}
	}, nil
}

func seed(cfg *config.Config, pipelineSvc *pipelines.Service, registry *workers.Registry) error {
	var errs []error
	for _, w := range cfg.Workers {
		if _, err := registry.Seed(workers.FromConfig(w)); err != nil {
			errs = append(errs, fmt.Errorf("worker %q: %w", w.Name, err))
		}
	}
	for _, p := range cfg.Pipelines {
		if _, err := pipelineSvc.Seed(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func eventFlowConfig(cfg *config.Config) config.EventFlowConfig {
	if cfg.Events != nil {
		return *cfg.Events
	}
	return event_flow.DefaultConfig(true)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownLogging, err := setupLogging(ctx)
	if err != nil {
		return err
	}
	defer shutdownLogging()

	slog.Info("Starting ohara", "version", api.Version)

	path := resolveConfigPath()
	cfg, err := config.ReadConfig(path)
	if err != nil {
		slog.Error("failed to read config", "path", path, "error", err)
		return err
	}

	store, err := state_stores.NewStateStore(ctx, cfg.StateStore)
	if err != nil {
		slog.Error("failed to create state store", "error", err)
		return err
	}
	defer store.Close()

	origin := uuid.New().String()
	eventServerConfig := config.EventServerConfig{}
	if cfg.EventServer != nil {
		eventServerConfig = *cfg.EventServer
	}
	eventServer := event_server.NewEventServer(ctx, eventServerConfig)

	// The outlet only gets a writer when some route reads it; otherwise
	// emitting would block every mutation.
	flowConfig := eventFlowConfig(cfg)
	outlet := make(chan any, outletBuffer)
	pipelineOpts := []pipelines.Option{pipelines.WithOrigin(origin)}
	if flowConfig.Reads(event_flow.OutletID) {
		pipelineOpts = append(pipelineOpts, pipelines.WithOutlet(outlet))
	} else {
		slog.Warn("no event route reads the outlet, pipeline events are not published", "connector", event_flow.OutletID)
	}

	flow, err := event_flow.NewFlow(ctx, flowConfig,
		event_flow.WithConnector(event_flow.OutletID, outlet),
		event_flow.WithEventServer(eventServer),
		event_flow.WithOrigin(origin),
	)
	if err != nil {
		slog.Error("failed to create event flow", "error", err)
		return err
	}
	flow.Run()

	validator := connectors.NewValidator(0)
	pipelineSvc := pipelines.NewService(ctx, store, pipelineOpts...)
	registry := workers.NewRegistry(store, cfg.Server.ConnectorFilters)
	if err := seed(cfg, pipelineSvc, registry); err != nil {
		slog.Error("failed to seed config records", "error", err)
		return err
	}

	jarStore, err := jars.NewStore(ctx, cfg.JarStore)
	if err != nil {
		slog.Error("failed to create jar store", "error", err)
		return err
	}

	server := api.NewServer(cfg.Server, api.Services{
		Pipelines: pipelineSvc,
		Workers:   registry,
		JdbcInfos: jdbc_infos.NewService(store, validator),
		Jars:      jars.NewService(jarStore),
		Checker:   validator,
		Events:    eventServer,
	})
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	// Create channel for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case err := <-serveErr:
		if err != nil {
			slog.Error("api server error", "error", err)
			return err
		}
	}

	// live event streams only end with the event server
	eventServer.Close()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down api server", "error", err)
	}
	// edits still waiting for their debounce land before the store closes
	if err := pipelineSvc.Flush(); err != nil {
		slog.Error("failed to save pending connector edits", "error", err)
	}
	return nil
}

// runLint seeds the configured records into a scratch store, which runs the
// same checks as startup without touching real state.
func runLint(cmd *cobra.Command, args []string) error {
	path := resolveConfigPath()
	cfg, err := config.ReadConfig(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	store := state_stores.NewInMemoryStateStore(config.InMemoryStateStoreConfig{})
	defer store.Close()

	if err := seed(cfg, pipelines.NewService(ctx, store), workers.NewRegistry(store, cfg.Server.ConnectorFilters)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !eventFlowConfig(cfg).Reads(event_flow.OutletID) {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: no event route reads %q\n", event_flow.OutletID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d workers, %d pipelines OK\n", path, len(cfg.Workers), len(cfg.Pipelines))
	return nil
}
