// Command quarterdeck runs the local orchestration service: the event
// bus, state store, and action/signal registries behind the HTTP
// binding.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/quarterdeck/internal/server"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/config"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/observability"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/orchestrator"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/plugin"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/state"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml, json, or toml)")
	flag.Parse()

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		slog.Error("failed to load settings", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := observability.NewLogger(settings.SlogLevel())
	slog.SetDefault(logger)

	logger.Info("starting quarterdeck",
		slog.String("service", settings.ServiceName),
		slog.String("addr", settings.Addr()),
		slog.String("config_file", *configPath),
		slog.String("bindings_file", settings.BindingsFile),
	)

	if err := run(settings, logger); err != nil {
		logger.Error("service stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(settings config.Settings, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetricsRecorder()
	spans := observability.NewSpanManager()

	orch := orchestrator.New(orchestrator.Config{
		Bus: event.BusConfig{
			BufferSize: settings.BusBuffer,
			Policy:     event.DropOldest,
			Logger:     logger,
			OnPublish: func(env event.Envelope, subscribers int) {
				metrics.RecordPublish(context.Background(), env.Type, subscribers)
			},
			OnDrop: func(env event.Envelope, subscriberID string) {
				metrics.RecordDrop(context.Background(), env.Type)
			},
		},
		Store: state.StoreConfig{
			OnWrite: func(key string, expiring bool) {
				metrics.RecordStateWrite(context.Background(), expiring)
				observability.LogStateWrite(logger, key, expiring)
			},
		},
		Logger: logger,
	})
	defer orch.Close()

	if err := orch.RegisterAgent(orchestrator.NewMockAgent("mock-1")); err != nil {
		return err
	}
	if err := orch.RegisterAgent(orchestrator.NewMockAgent("mock-2")); err != nil {
		return err
	}

	if err := plugin.Load(plugin.NewHost(orch), logger, plugin.Builtin); err != nil {
		return err
	}

	bindings, err := config.LoadBindings(settings.BindingsFile)
	if err != nil {
		return err
	}
	logger.Info("bindings loaded", slog.Int("count", len(bindings)))

	go orch.State().Sweep(ctx, settings.SweepInterval)

	srv := server.New(orch,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithSpans(spans),
	)
	return srv.Run(ctx, settings.Addr())
}
