package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/promptdeck/internal/chat"
	"github.com/memohai/promptdeck/internal/config"
	"github.com/memohai/promptdeck/internal/evaluation"
	"github.com/memohai/promptdeck/internal/handlers"
	lmstudiochecker "github.com/memohai/promptdeck/internal/healthcheck/checkers/lmstudio"
	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/logger"
	"github.com/memohai/promptdeck/internal/media"
	"github.com/memohai/promptdeck/internal/models"
	"github.com/memohai/promptdeck/internal/server"
)

func runServe(path string) {
	fx.New(
		fx.Supply(configSource(path)),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLMStudioClient,
			provideMediaService,
			provideModelsService,
			provideChatResolver,
			provideEvaluationService,
			provideServerHandler(providePingHandler),
			provideServerHandler(handlers.NewMetricsHandler),
			provideServerHandler(provideModelsHandler),
			provideServerHandler(provideGenerateHandler),
			provideServerHandler(provideEvaluateHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

type configSource string

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig(path configSource) (config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideLMStudioClient(log *slog.Logger, cfg config.Config) *lmstudio.Client {
	return lmstudio.NewClient(log, cfg.LMStudio)
}

func provideMediaService(log *slog.Logger, cfg config.Config) *media.Service {
	return media.NewService(log, cfg.Limits.MaxAttachmentBytes)
}

func provideModelsService(log *slog.Logger, client *lmstudio.Client) *models.Service {
	return models.NewService(log, client)
}

func provideChatResolver(log *slog.Logger, client *lmstudio.Client) *chat.Resolver {
	return chat.NewResolver(log, client, client)
}

func provideEvaluationService(log *slog.Logger, modelsService *models.Service, resolver *chat.Resolver, cfg config.Config) *evaluation.Service {
	return evaluation.NewService(log, modelsService, resolver, cfg.Evaluation)
}

func providePingHandler(log *slog.Logger, modelsService *models.Service, cfg config.Config) *handlers.PingHandler {
	return handlers.NewPingHandler(log, lmstudiochecker.NewChecker(log, modelsService, cfg.Evaluation.Model))
}

func provideModelsHandler(log *slog.Logger, modelsService *models.Service) *handlers.ModelsHandler {
	return handlers.NewModelsHandler(log, modelsService)
}

func provideGenerateHandler(log *slog.Logger, mediaService *media.Service, modelsService *models.Service, resolver *chat.Resolver, cfg config.Config) *handlers.GenerateHandler {
	return handlers.NewGenerateHandler(log, mediaService, modelsService, resolver, cfg)
}

func provideEvaluateHandler(log *slog.Logger, service *evaluation.Service) *handlers.EvaluateHandler {
	return handlers.NewEvaluateHandler(log, service)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting promptdeck",
				slog.String("addr", srv.Addr()),
				slog.String("lmstudio", cfg.LMStudio.BaseURL),
				slog.String("evaluation_model", cfg.Evaluation.Model),
			)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
