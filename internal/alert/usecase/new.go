package usecase

import (
	"regexp"
	"sync"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/alert/repository"
	"logstream-srv/internal/model"
	pkgLog "logstream-srv/pkg/log"

	"golang.org/x/sync/singleflight"
)

const (
	defaultRuleCacheTTL    = time.Minute
	defaultDispatchTimeout = 15 * time.Second
)

type Config struct {
	RuleCacheTTL    time.Duration
	DispatchTimeout time.Duration
}

type ruleCacheEntry struct {
	rules   []model.AlertRule
	expires time.Time
}

type patternEntry struct {
	re  *regexp.Regexp
	err error
}

type implUseCase struct {
	l        pkgLog.Logger
	repo     repository.Repository
	counter  alert.EventCounter
	notifier alert.Notifier
	cfg      Config
	now      func() time.Time

	evaluators map[model.AlertType]evaluator

	rulesMu sync.Mutex
	rules   map[string]ruleCacheEntry
	loads   singleflight.Group

	cooldownMu sync.Mutex
	lastFired  map[string]time.Time

	patternMu sync.RWMutex
	patterns  map[string]patternEntry
}

var _ alert.UseCase = &implUseCase{}

// New builds the alert engine. notifier may be nil, in which case alerts
// are persisted but not dispatched.
func New(l pkgLog.Logger, repo repository.Repository, counter alert.EventCounter, notifier alert.Notifier, cfg Config) alert.UseCase {
	return newUseCase(l, repo, counter, notifier, cfg)
}

func newUseCase(l pkgLog.Logger, repo repository.Repository, counter alert.EventCounter, notifier alert.Notifier, cfg Config) *implUseCase {
	if cfg.RuleCacheTTL <= 0 {
		cfg.RuleCacheTTL = defaultRuleCacheTTL
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	uc := &implUseCase{
		l:         l,
		repo:      repo,
		counter:   counter,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
		rules:     make(map[string]ruleCacheEntry),
		lastFired: make(map[string]time.Time),
		patterns:  make(map[string]patternEntry),
	}
	uc.evaluators = buildEvaluators(uc)
	return uc
}
