package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"logstream-srv/internal/auth"
	ws "logstream-srv/internal/websocket"
	pkgLog "logstream-srv/pkg/log"
)

// Config tunes the hub. Zero values fall back to defaults in New.
type Config struct {
	NodeID  string
	Channel string

	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	MaxConnections       int
	CompressionThreshold int
	QueueMax             int
	QueueDropThreshold   int
	BatchSize            int
	BatchTimeout         time.Duration
	HeartbeatTimeout     time.Duration
	ReapInterval         time.Duration
}

// Dependencies are the optional collaborators of the hub.
type Dependencies struct {
	// Broker is nil for single-process deployments.
	Broker     ws.Broker
	Authorizer ws.TopicAuthorizer
	Chat       ws.ChatHandler
	Alerts     ws.AlertReader
	Tracker    *auth.ConnectionTracker
	Limiter    *auth.MessageLimiter
	Security   *auth.SecurityLogger
}

type implUseCase struct {
	l   pkgLog.Logger
	cfg Config

	broker     ws.Broker
	authorizer ws.TopicAuthorizer
	chat       ws.ChatHandler
	alerts     atomic.Value // ws.AlertReader
	tracker    *auth.ConnectionTracker
	limiter    *auth.MessageLimiter
	security   *auth.SecurityLogger

	mu      sync.RWMutex
	conns   map[string]*connection
	topics  map[string]map[string]*connection
	users   map[string]map[string]*connection
	closing bool
	// closed is closed when Shutdown starts.
	closed chan struct{}

	batcher  *batcher
	handlers map[ws.MessageType]handler
	steps    []inboundStep

	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	now func() time.Time
}

var _ ws.UseCase = &implUseCase{}

// New creates the fan-out hub.
func New(l pkgLog.Logger, cfg Config, deps Dependencies) ws.UseCase {
	return newUseCase(l, cfg, deps)
}

func newUseCase(l pkgLog.Logger, cfg Config, deps Dependencies) *implUseCase {
	cfg = withDefaults(cfg)
	uc := &implUseCase{
		l:          l,
		cfg:        cfg,
		broker:     deps.Broker,
		authorizer: deps.Authorizer,
		chat:       deps.Chat,
		tracker:    deps.Tracker,
		limiter:    deps.Limiter,
		security:   deps.Security,
		conns:      make(map[string]*connection),
		topics:     make(map[string]map[string]*connection),
		users:      make(map[string]map[string]*connection),
		closed:     make(chan struct{}),
		now:        time.Now,
	}
	if uc.security == nil {
		uc.security = auth.NewSecurityLogger(l)
	}
	if deps.Alerts != nil {
		uc.SetAlertReader(deps.Alerts)
	}
	if cfg.BatchSize > 1 {
		uc.batcher = newBatcher(cfg.BatchSize, cfg.BatchTimeout, uc.flushBatch)
	}
	uc.handlers = uc.buildHandlers()
	uc.steps = []inboundStep{uc.parseStep, uc.validateStep, uc.sanitizeStep, uc.rateLimitStep}
	return uc
}

func withDefaults(cfg Config) Config {
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	if cfg.Channel == "" {
		cfg.Channel = "logstream:fanout"
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	if cfg.QueueMax <= 0 {
		cfg.QueueMax = 256
	}
	if cfg.QueueDropThreshold <= 0 || cfg.QueueDropThreshold > cfg.QueueMax {
		cfg.QueueDropThreshold = cfg.QueueMax
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 250 * time.Millisecond
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 90 * time.Second
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = 30 * time.Second
	}
	return cfg
}

func (uc *implUseCase) SetAlertReader(r ws.AlertReader) {
	if r != nil {
		uc.alerts.Store(alertReaderBox{r})
	}
}

type alertReaderBox struct{ ws.AlertReader }

func (uc *implUseCase) alertReader() ws.AlertReader {
	if b, ok := uc.alerts.Load().(alertReaderBox); ok {
		return b.AlertReader
	}
	return nil
}

// Run starts the heartbeat reaper and, when a broker is configured, the
// relay listener. It returns once ctx is done or Shutdown has started, and
// both have exited.
func (uc *implUseCase) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-uc.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		uc.reapLoop(ctx)
	}()

	if uc.broker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uc.relayLoop(ctx)
		}()
	} else {
		uc.l.Infof(ctx, "internal.websocket.usecase.Run: no broker configured, delivery is local only")
	}

	wg.Wait()
}

// Shutdown flushes pending batches and closes every connection.
func (uc *implUseCase) Shutdown(ctx context.Context) error {
	uc.mu.Lock()
	if uc.closing {
		uc.mu.Unlock()
		return nil
	}
	uc.closing = true
	close(uc.closed)
	ids := make([]string, 0, len(uc.conns))
	for id := range uc.conns {
		ids = append(ids, id)
	}
	uc.mu.Unlock()

	if uc.batcher != nil {
		uc.batcher.close()
	}
	for _, id := range ids {
		uc.Disconnect(ctx, id)
	}

	if uc.broker != nil {
		if err := uc.broker.Close(); err != nil {
			uc.l.Warnf(ctx, "internal.websocket.usecase.Shutdown.CloseBroker: %v", err)
		}
	}
	uc.l.Infof(ctx, "internal.websocket.usecase.Shutdown: closed %d connections", len(ids))
	return nil
}

func (uc *implUseCase) GetStats(ctx context.Context) ws.HubStats {
	uc.mu.RLock()
	stats := ws.HubStats{
		ActiveConnections: len(uc.conns),
		TotalUniqueUsers:  len(uc.users),
		Topics:            len(uc.topics),
	}
	uc.mu.RUnlock()

	stats.MessagesSent = uc.sent.Load()
	stats.MessagesDropped = uc.dropped.Load()
	stats.MessagesFailed = uc.failed.Load()
	stats.Broker = "local_only"
	if uc.broker != nil {
		stats.Broker = uc.broker.Name()
	}
	if uc.tracker != nil {
		stats.RateWindowUsers = uc.tracker.GetStats().RateWindowUsers
	}
	return stats
}
