package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/filesummary/internal/channel"
	"github.com/memohai/filesummary/internal/channel/adapters/wechat"
	"github.com/memohai/filesummary/internal/config"
	"github.com/memohai/filesummary/internal/dedup"
	"github.com/memohai/filesummary/internal/downloader"
	"github.com/memohai/filesummary/internal/filesummary"
	"github.com/memohai/filesummary/internal/handlers"
	gatewaychecker "github.com/memohai/filesummary/internal/healthcheck/checkers/gateway"
	storagechecker "github.com/memohai/filesummary/internal/healthcheck/checkers/storage"
	"github.com/memohai/filesummary/internal/linksummary"
	"github.com/memohai/filesummary/internal/logger"
	"github.com/memohai/filesummary/internal/media"
	"github.com/memohai/filesummary/internal/media/providers/localfs"
	"github.com/memohai/filesummary/internal/retention"
	"github.com/memohai/filesummary/internal/server"
	"github.com/memohai/filesummary/internal/summary"
	"github.com/memohai/filesummary/internal/version"
)

const (
	gatewayIdleConns = 8
	webFetchTimeout  = 30 * time.Second
)

func runServe() error {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideHTTPClients,
			provideWechatClient,
			provideReplySender,
			provideAssembler,
			provideMediaService,
			provideSummaryClient,
			provideRedis,
			provideDedupGuard,
			provideController,
			provideLinkHandler,
			wechat.NewWebhook,
			provideChannelRegistry,
			provideChannelManager,
			provideSweeper,
			provideServer,
		),
		fx.Invoke(
			startChannelManager,
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

// httpClients keeps one shared client per destination.
type httpClients struct {
	Gateway *http.Client
	AI      *http.Client
	Web     *http.Client
}

func provideHTTPClients(cfg config.Config) (httpClients, error) {
	ai, err := summary.NewHTTPClient(cfg.AI.HTTPProxy)
	if err != nil {
		return httpClients{}, fmt.Errorf("ai http client: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = gatewayIdleConns
	return httpClients{
		Gateway: &http.Client{Transport: transport},
		AI:      ai,
		Web:     linksummary.NewPublicClient(webFetchTimeout),
	}, nil
}

func provideWechatClient(log *slog.Logger, cfg config.Config, clients httpClients) *wechat.Client {
	return wechat.NewClient(log, clients.Gateway, cfg.Gateway.BaseURL, cfg.Gateway.Wxid)
}

func provideReplySender(log *slog.Logger, client *wechat.Client) *channel.ReplySender {
	return channel.NewReplySender(log, client, channel.OutboundPolicy{})
}

func provideAssembler(log *slog.Logger, cfg config.Config, clients httpClients) *downloader.Assembler {
	fetcher := downloader.NewFetcher(log, clients.Gateway, cfg.Gateway.BaseURL, cfg.Gateway.ChunkTimeoutDuration())
	return downloader.NewAssembler(log, fetcher, cfg.Gateway.ChunkSize, cfg.Gateway.Wxid)
}

func provideMediaService(log *slog.Logger, cfg config.Config) (*media.Service, error) {
	provider, err := localfs.New(cfg.Storage.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("download dir: %w", err)
	}
	return media.NewService(log, provider, cfg.Storage.OnCollision), nil
}

func provideSummaryClient(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, clients httpClients) (*summary.Client, error) {
	config.WarnIncomplete(log, &cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, closeFn, err := buildSummaryClientWith(ctx, log, cfg, clients.AI)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { closeFn(); return nil }})
	return client, nil
}

// buildSummaryClient is used by the one-shot summarize command.
func buildSummaryClient(ctx context.Context, log *slog.Logger, cfg config.Config) (*summary.Client, func(), error) {
	httpClient, err := summary.NewHTTPClient(cfg.AI.HTTPProxy)
	if err != nil {
		return nil, func() {}, fmt.Errorf("ai http client: %w", err)
	}
	return buildSummaryClientWith(ctx, log, cfg, httpClient)
}

func buildSummaryClientWith(ctx context.Context, log *slog.Logger, cfg config.Config, httpClient *http.Client) (*summary.Client, func(), error) {
	noop := func() {}
	if !cfg.AI.Enable {
		log.Warn("ai disabled, files will be downloaded but not summarized")
		return summary.NewClient(log, nil), noop, nil
	}
	switch cfg.AI.Provider {
	case "vertex":
		v, err := summary.NewVertex(ctx, log, summary.VertexConfig{
			Project:     cfg.AI.VertexProject,
			Region:      cfg.AI.VertexRegion,
			Model:       cfg.AI.Model,
			Prompt:      cfg.AI.Prompt,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.TimeoutDuration(),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("vertex client: %w", err)
		}
		return summary.NewClient(log, v), func() { _ = v.Close() }, nil
	default:
		p := summary.NewOpenAI(log, httpClient, summary.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Prompt:      cfg.AI.Prompt,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.TimeoutDuration(),
		})
		return summary.NewClient(log, p), noop, nil
	}
}

func provideRedis(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return rdb.Close() }})
	return rdb
}

func provideDedupGuard(log *slog.Logger, rdb *redis.Client) dedup.Guard {
	if rdb == nil {
		log.Info("redis not configured, using in-process dedup")
		return dedup.NewMemoryGuard()
	}
	return dedup.NewRedisGuard(rdb)
}

func provideController(log *slog.Logger, cfg config.Config, assembler *downloader.Assembler, store *media.Service, summarizer *summary.Client, sender *channel.ReplySender) *filesummary.Controller {
	return filesummary.NewController(log, filesummary.Options{
		Enable:         cfg.Plugin.Enable,
		GroupEnabled:   cfg.Plugin.GroupEnabled,
		NotifyFailures: cfg.Plugin.NotifyFailures,
		SaveOnly:       !cfg.Plugin.AutoSum,
		PartialPolicy:  cfg.Plugin.PartialPolicy,
	}, assembler, store, summarizer, sender)
}

func provideLinkHandler(log *slog.Logger, cfg config.Config, clients httpClients, summarizer *summary.Client, sender *channel.ReplySender) *linksummary.Handler {
	return linksummary.NewHandler(log, clients.Web, cfg.Plugin.SummaryTriggers(), summarizer, sender)
}

func provideChannelRegistry(log *slog.Logger, cfg config.Config, webhook *wechat.Webhook) *channel.Registry {
	registry := channel.NewRegistry()
	registry.MustRegister(webhook)
	if cfg.AMQP.URL != "" {
		registry.MustRegister(wechat.NewConsumer(log, wechat.ConsumerConfig{
			URL:      cfg.AMQP.URL,
			Queue:    cfg.AMQP.Queue,
			Prefetch: cfg.AMQP.Prefetch,
		}))
	}
	return registry
}

func provideChannelManager(log *slog.Logger, cfg config.Config, registry *channel.Registry, guard dedup.Guard, summarizer *summary.Client, controller *filesummary.Controller, link *linksummary.Handler) (*channel.Manager, error) {
	mgr := channel.NewManager(log, registry)
	mgr.Use(
		channel.RecoverMiddleware(log),
		channel.LoggingMiddleware(log),
		dedup.Middleware(log, guard, cfg.Redis.DedupTTLDuration()),
	)
	if err := mgr.Handle("filesummary", filesummary.HandlerPriority, controller.HandleMessage); err != nil {
		return nil, err
	}
	if cfg.Plugin.Enable && summarizer.Enabled() {
		if err := mgr.Handle("linksummary", linksummary.HandlerPriority, link.HandleMessage); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

func provideSweeper(log *slog.Logger, cfg config.Config, store *media.Service) *retention.Sweeper {
	return retention.NewSweeper(log, store, cfg.Storage.CleanupCron, cfg.Storage.RetentionDuration())
}

func provideServer(log *slog.Logger, cfg config.Config, clients httpClients, webhook *wechat.Webhook, rdb *redis.Client, store *media.Service, summarizer *summary.Client) *server.Server {
	if cfg.Server.AdminToken == "" {
		log.Warn("files api has no admin token", slog.String("addr", cfg.Server.Addr))
	}
	health := handlers.NewHealthHandler(log,
		gatewaychecker.NewChecker(log, clients.Gateway, cfg.Gateway.BaseURL),
		storagechecker.NewChecker(log, cfg.Storage.DownloadDir, rdb),
	)
	return server.NewServer(log, cfg.Server.Addr,
		handlers.NewPingHandler(log, version.Version),
		handlers.NewEventsHandler(log, webhook),
		health,
		handlers.NewFilesHandler(log, store, summarizer, cfg.Server.AdminToken),
	)
}

func startChannelManager(lc fx.Lifecycle, channelManager *channel.Manager) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return channelManager.Start(ctx) },
		OnStop:  func(stopCtx context.Context) error { cancel(); return channelManager.Shutdown(stopCtx) },
	})
}

func startSweeper(lc fx.Lifecycle, log *slog.Logger, sweeper *retention.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := sweeper.Start(); err != nil {
				if errors.Is(err, retention.ErrDisabled) {
					log.Info("retention disabled, downloads are kept")
					return nil
				}
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error { return sweeper.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	logger.Info("starting filesummary", slog.String("version", version.GetInfo()))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
