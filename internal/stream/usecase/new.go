package usecase

import (
	"sync"
	"time"

	"logstream-srv/internal/processor"
	"logstream-srv/internal/source"
	"logstream-srv/internal/stream"
	"logstream-srv/internal/stream/repository"
	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/encrypter"
	pkgLog "logstream-srv/pkg/log"
	"logstream-srv/pkg/retry"
)

type Config struct {
	PollInterval   time.Duration
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	BackoffJitter  float64
	ErrorCeiling   int
	AdapterTimeout time.Duration
	BatchSize      int
	PauseRecheck   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = 5 * time.Minute
	}
	if c.ErrorCeiling <= 0 {
		c.ErrorCeiling = 10
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.PauseRecheck <= 0 {
		c.PauseRecheck = 5 * time.Second
	}
	return c
}

// Dependencies of the stream manager. Encrypter may be nil when no
// connection carries credentials; Broadcaster may be nil to skip
// stream_status frames.
type Dependencies struct {
	Repo        repository.Repository
	Sources     *source.Registry
	Processor   processor.UseCase
	Encrypter   encrypter.Encrypter
	Broadcaster ws.Broadcaster
}

type implUseCase struct {
	l       pkgLog.Logger
	cfg     Config
	deps    Dependencies
	backoff retry.Exponential
	now     func() time.Time

	mu       sync.Mutex
	runtimes map[string]*runtime
	closing  bool
	starts   sync.WaitGroup
}

var _ stream.UseCase = &implUseCase{}

func New(l pkgLog.Logger, cfg Config, deps Dependencies) stream.UseCase {
	return newUseCase(l, cfg, deps)
}

func newUseCase(l pkgLog.Logger, cfg Config, deps Dependencies) *implUseCase {
	cfg = cfg.withDefaults()
	return &implUseCase{
		l:    l,
		cfg:  cfg,
		deps: deps,
		backoff: retry.Exponential{
			Base:   cfg.BaseBackoff,
			Max:    cfg.MaxBackoff,
			Jitter: cfg.BackoffJitter,
		},
		now:      time.Now,
		runtimes: make(map[string]*runtime),
	}
}
