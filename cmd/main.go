package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-chat/handler"
	"portfolio-chat/internal/integrations/gemini"
	"portfolio-chat/internal/integrations/paramstore"
	"portfolio-chat/internal/portfolio"
	"portfolio-chat/internal/repository"
	"portfolio-chat/internal/session"
	"portfolio-chat/internal/telemetry"
	"portfolio-chat/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	stateTable := os.Getenv("STATE_TABLE")
	siteID := envString("SITE", portfolio.DefaultSiteID)
	siteSource := envString("SITE_SOURCE", "embedded")
	geminiModel := os.Getenv("GEMINI_MODEL")
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 2000)

	if _, _, err := telemetry.InitLogger(telemetry.LogConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "json",
	}); err != nil {
		slog.Error("failed to init logger", "err", err)
		os.Exit(1)
	}

	var tel *telemetry.Telemetry
	if os.Getenv("OTEL_STDOUT") != "" {
		var err error
		tel, err = telemetry.Init(ctx, telemetry.Config{
			ServiceName:    "portfolio-chat",
			ServiceVersion: os.Getenv("AWS_LAMBDA_FUNCTION_VERSION"),
		})
		if err != nil {
			slog.Error("failed to init telemetry", "err", err)
			os.Exit(1)
		}
	}

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	var store usecase.SessionStore
	if stateTable != "" {
		store, err = repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
		if err != nil {
			slog.Error("failed to create state client", "err", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("STATE_TABLE not set, sessions are kept in memory")
		store = session.NewMemoryStore()
	}

	keys, err := gemini.NewParamStoreKey(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Gemini key source", "err", err)
		os.Exit(1)
	}
	geminiClient, err := gemini.NewClient(keys, gemini.WithModel(geminiModel))
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	var loader usecase.SiteLoader
	switch siteSource {
	case "embedded":
		loader = portfolio.Embedded(siteID)
	case "ssm":
		loader, err = paramstore.NewSiteSource(ssmClient, paramPrefix)
		if err != nil {
			slog.Error("failed to create site source", "err", err)
			os.Exit(1)
		}
	default:
		slog.Error("unknown SITE_SOURCE", "value", siteSource)
		os.Exit(1)
	}

	// ---- Handler ----
	site, err := usecase.NewSiteCache(loader)
	if err != nil {
		slog.Error("failed to create site cache", "err", err)
		os.Exit(1)
	}
	chatService, err := usecase.NewChatService(site, geminiClient, store, maxMessageLen)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	projectService, err := usecase.NewProjectService(site)
	if err != nil {
		slog.Error("failed to create project service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService, projectService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if tel == nil {
		lambda.Start(h.Handle)
		return
	}
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := h.Handle(ctx, req)
		// The execution environment may freeze once the response is returned.
		if flushErr := tel.Flush(ctx); flushErr != nil {
			slog.WarnContext(ctx, "telemetry flush failed", "err", flushErr)
		}
		return resp, err
	})
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
