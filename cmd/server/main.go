package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"logstream-srv/config"
	configMinio "logstream-srv/config/minio"
	configNATS "logstream-srv/config/nats"
	configPostgre "logstream-srv/config/postgre"
	configRedis "logstream-srv/config/redis"
	alertPostgre "logstream-srv/internal/alert/repository/postgre"
	alertUsecase "logstream-srv/internal/alert/usecase"
	"logstream-srv/internal/archive"
	archiveMinio "logstream-srv/internal/archive/minio"
	"logstream-srv/internal/auth"
	"logstream-srv/internal/httpserver"
	"logstream-srv/internal/indexing"
	indexingNATS "logstream-srv/internal/indexing/nats"
	logeventPostgre "logstream-srv/internal/logevent/repository/postgre"
	notificationUsecase "logstream-srv/internal/notification/usecase"
	processorUsecase "logstream-srv/internal/processor/usecase"
	"logstream-srv/internal/source"
	"logstream-srv/internal/source/httpjson"
	streamPostgre "logstream-srv/internal/stream/repository/postgre"
	streamUsecase "logstream-srv/internal/stream/usecase"
	ws "logstream-srv/internal/websocket"
	wsNATS "logstream-srv/internal/websocket/delivery/nats"
	wsRedis "logstream-srv/internal/websocket/delivery/redis"
	wsUsecase "logstream-srv/internal/websocket/usecase"
	"logstream-srv/pkg/discord"
	"logstream-srv/pkg/encrypter"
	pkgJwt "logstream-srv/pkg/jwt"
	pkgLog "logstream-srv/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	logger := pkgLog.Init(pkgLog.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
		Service:      "logstream-srv",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf(ctx, "cmd.server.main: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger pkgLog.Logger) error {
	logger.Info(ctx, "Starting log stream service...")

	// PostgreSQL
	db, err := configPostgre.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer configPostgre.Disconnect()
	checks := map[string]httpserver.Check{"postgres": configPostgre.HealthCheck}

	// Discord (optional default webhook)
	var discordClient discord.IDiscord
	if cfg.Discord.WebhookURL != "" {
		if discordClient, err = discord.New(logger, cfg.Discord.WebhookURL); err != nil {
			logger.Warnf(ctx, "Discord webhook not configured (optional): %v", err)
			discordClient = nil
		} else {
			defer discordClient.Close()
		}
	}

	// Credential sealing
	var enc encrypter.Encrypter
	if cfg.Encrypter.Key != "" {
		if enc, err = encrypter.New(cfg.Encrypter.Key); err != nil {
			return fmt.Errorf("encrypter: %w", err)
		}
	}

	jwtMgr, err := pkgJwt.New(pkgJwt.Config{SecretKey: cfg.JWT.SecretKey, Issuer: cfg.JWT.Issuer})
	if err != nil {
		return err
	}

	// NATS (optional): indexing hand-off and, when selected, the fan-out broker
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		if nc, err = configNATS.Connect(cfg.NATS); err != nil {
			logger.Warnf(ctx, "NATS unavailable, indexing disabled: %v", err)
			nc = nil
		} else {
			defer configNATS.Disconnect()
			checks["nats"] = func(context.Context) error {
				if !nc.IsConnected() {
					return errors.New("nats: not connected")
				}
				return nil
			}
		}
	}

	broker := selectBroker(ctx, logger, cfg, nc, checks)
	defer configRedis.Disconnect()
	if broker != nil {
		defer broker.Close()
	}

	// Fan-out hub
	hub := wsUsecase.New(logger, wsUsecase.Config{
		NodeID:               cfg.Fanout.NodeID,
		Channel:              cfg.Fanout.Channel,
		PingInterval:         cfg.WebSocket.PingInterval,
		PongWait:             cfg.WebSocket.PongWait,
		WriteWait:            cfg.WebSocket.WriteWait,
		MaxMessageSize:       cfg.WebSocket.MaxMessageSize,
		MaxConnections:       cfg.WebSocket.MaxConnections,
		CompressionThreshold: cfg.WebSocket.CompressionThreshold,
		QueueMax:             cfg.WebSocket.QueueMax,
		QueueDropThreshold:   cfg.WebSocket.QueueDropThreshold,
		BatchSize:            cfg.WebSocket.BatchSize,
		BatchTimeout:         cfg.WebSocket.BatchTimeout,
		HeartbeatTimeout:     cfg.WebSocket.HeartbeatTimeout,
		ReapInterval:         cfg.WebSocket.ReapInterval,
	}, wsUsecase.Dependencies{
		Broker:     broker,
		Authorizer: auth.NewPermissiveAuthorizer(logger),
		Tracker: auth.NewConnectionTracker(auth.RateLimitConfig{
			MaxConnectionsPerUser: cfg.WebSocket.MaxConnectionsPerUser,
			ConnectionRateLimit:   cfg.WebSocket.ConnectRateLimit,
			MessageRateLimit:      cfg.WebSocket.MessageRateLimit,
			RateLimitWindow:       cfg.WebSocket.RateLimitWindow,
		}, logger),
		Limiter:  auth.NewMessageLimiter(cfg.WebSocket.MessageRateLimit, cfg.WebSocket.RateLimitWindow),
		Security: auth.NewSecurityLogger(logger),
	})

	// Repositories
	eventRepo := logeventPostgre.New(logger, db)
	alertRepo := alertPostgre.New(logger, db)
	streamRepo := streamPostgre.New(logger, db)

	// Alert engine
	notifier := notificationUsecase.New(logger, notificationUsecase.Config{
		SMTP: notificationUsecase.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		},
		WebhookRetries: cfg.Alert.WebhookRetries,
	}, notificationUsecase.Dependencies{
		Broadcaster: hub,
		Discord:     discordClient,
	})
	alertUC := alertUsecase.New(logger, alertRepo, eventRepo, notifier, alertUsecase.Config{
		RuleCacheTTL:    cfg.Alert.RuleCacheTTL,
		DispatchTimeout: cfg.Alert.DispatchTimeout,
	})
	hub.SetAlertReader(alertUC)

	// Batch consumers
	indexer := indexing.NewNop()
	if nc != nil {
		indexer = indexingNATS.New(logger, nc, cfg.NATS.IndexSubject, 0)
	}

	var archiver archive.Archiver
	if cfg.MinIO.Endpoint != "" {
		store, err := configMinio.Connect(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf(ctx, "MinIO unavailable, archiving disabled: %v", err)
		} else {
			defer configMinio.Disconnect()
			archiver = archiveMinio.New(logger, store, cfg.MinIO.Bucket)
			checks["minio"] = store.HealthCheck
		}
	}

	processor := processorUsecase.New(logger, processorUsecase.Config{
		FanoutTimeout: cfg.Stream.FanoutTimeout,
	}, processorUsecase.Dependencies{
		Events:      eventRepo,
		Indexer:     indexer,
		Alerts:      alertUC,
		Broadcaster: hub,
		Archiver:    archiver,
	})

	// Stream manager
	sources := source.NewRegistry()
	sources.Register(httpjson.Kind, httpjson.Factory(httpjson.Options{}))

	streams := streamUsecase.New(logger, streamUsecase.Config{
		PollInterval:   cfg.Stream.PollInterval,
		BaseBackoff:    cfg.Stream.BaseBackoff,
		MaxBackoff:     cfg.Stream.MaxBackoff,
		BackoffJitter:  cfg.Stream.BackoffJitter,
		ErrorCeiling:   cfg.Stream.ErrorCeiling,
		AdapterTimeout: cfg.Stream.AdapterTimeout,
		BatchSize:      cfg.Stream.BatchSize,
		PauseRecheck:   cfg.Stream.PauseRecheck,
	}, streamUsecase.Dependencies{
		Repo:        streamRepo,
		Sources:     sources,
		Processor:   processor,
		Encrypter:   enc,
		Broadcaster: hub,
	})

	srv, err := httpserver.New(logger, httpserver.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Environment:   cfg.Environment.Name,
		Mode:          cfg.Server.Mode,
		WebSocket:     hub,
		Streams:       streams,
		Alerts:        alertUC,
		Processor:     processor,
		WSConfig:      cfg.WebSocket,
		RestoreOnBoot: cfg.Stream.RestoreOnBoot,
		JWTManager:    jwtMgr,
		Cookie:        cfg.Cookie,
		Checks:        checks,
		Discord:       discordClient,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// selectBroker returns the configured cross-process broker, or nil to run
// the hub in local-only mode when none is configured or reachable.
func selectBroker(ctx context.Context, logger pkgLog.Logger, cfg *config.Config, nc *nats.Conn, checks map[string]httpserver.Check) ws.Broker {
	switch cfg.Fanout.Broker {
	case config.BrokerRedis:
		client, err := configRedis.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Warnf(ctx, "Redis unavailable, fan-out is local-only: %v", err)
			return nil
		}
		checks["redis"] = func(ctx context.Context) error {
			_, err := client.Ping(ctx)
			return err
		}
		logger.Info(ctx, "Fan-out broker: redis")
		return wsRedis.New(logger, client)
	case config.BrokerNATS:
		if nc == nil {
			logger.Warn(ctx, "NATS unavailable, fan-out is local-only")
			return nil
		}
		logger.Info(ctx, "Fan-out broker: nats")
		return wsNATS.New(logger, nc)
	default:
		logger.Info(ctx, "Fan-out broker: none")
		return nil
	}
}
