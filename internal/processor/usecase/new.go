package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/archive"
	"logstream-srv/internal/indexing"
	logeventRepo "logstream-srv/internal/logevent/repository"
	"logstream-srv/internal/processor"
	ws "logstream-srv/internal/websocket"
	pkgLog "logstream-srv/pkg/log"
)

const defaultFanoutTimeout = 30 * time.Second

type Config struct {
	FanoutTimeout time.Duration
}

// Dependencies are the batch consumers. Only Events is required; a nil
// consumer is skipped.
type Dependencies struct {
	Events      logeventRepo.Repository
	Indexer     indexing.Indexer
	Alerts      alert.UseCase
	Broadcaster ws.Broadcaster
	Archiver    archive.Archiver
}

type counters struct {
	batches      atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	fanoutErrors atomic.Int64
	inFlight     atomic.Int64
}

type implUseCase struct {
	l    pkgLog.Logger
	cfg  Config
	deps Dependencies
	now  func() time.Time

	wg      sync.WaitGroup
	metrics counters
}

var _ processor.UseCase = &implUseCase{}

func New(l pkgLog.Logger, cfg Config, deps Dependencies) processor.UseCase {
	return newUseCase(l, cfg, deps)
}

func newUseCase(l pkgLog.Logger, cfg Config, deps Dependencies) *implUseCase {
	if cfg.FanoutTimeout <= 0 {
		cfg.FanoutTimeout = defaultFanoutTimeout
	}
	return &implUseCase{
		l:    l,
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
	}
}

func (uc *implUseCase) Stats() processor.Stats {
	return processor.Stats{
		Batches:      uc.metrics.batches.Load(),
		Processed:    uc.metrics.processed.Load(),
		Failed:       uc.metrics.failed.Load(),
		FanoutErrors: uc.metrics.fanoutErrors.Load(),
		InFlight:     uc.metrics.inFlight.Load(),
	}
}
