package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"portfolio-chat/internal/config"
	"portfolio-chat/internal/integrations/gemini"
	"portfolio-chat/internal/portfolio"
	"portfolio-chat/internal/session"
	"portfolio-chat/internal/telemetry"
	"portfolio-chat/internal/usecase"
)

// App holds the dependencies shared by subcommands.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Site     *usecase.SiteCache
	Projects *usecase.ProjectService

	logCloser io.Closer
	telemetry *telemetry.Telemetry
}

// newGenerator is swapped in tests to avoid calling the real model.
var newGenerator = func(cfg config.Config) (usecase.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini api key is not set (gemini.api_key or GEMINI_API_KEY)")
	}
	client, err := gemini.NewClient(gemini.StaticKey(cfg.GeminiAPIKey), gemini.WithModel(cfg.GeminiModel))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*App, error) {
	logger, closer, err := telemetry.InitLogger(telemetry.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Writer: logOut,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, logCloser: closer}

	if cfg.TelemetryEnabled {
		tel, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "portfolio-chat",
			TraceFile:   filepath.Join(cfg.TelemetryDir, "traces.log"),
			MetricsFile: filepath.Join(cfg.TelemetryDir, "metrics.log"),
		})
		if err != nil {
			_ = closer.Close()
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		app.telemetry = tel
	}

	app.Site, err = usecase.NewSiteCache(portfolio.Embedded(cfg.Site))
	if err != nil {
		return nil, err
	}
	app.Projects, err = usecase.NewProjectService(app.Site)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// ChatService builds a turn controller backed by an in-memory transcript.
func (a *App) ChatService() (*usecase.ChatService, error) {
	gen, err := newGenerator(a.Config)
	if err != nil {
		return nil, err
	}
	return usecase.NewChatService(a.Site, gen, session.NewMemoryStore(), a.Config.MaxMessageLength)
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
