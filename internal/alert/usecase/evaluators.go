package usecase

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"logstream-srv/internal/alert"
	logeventRepo "logstream-srv/internal/logevent/repository"
	"logstream-srv/internal/model"
)

const (
	defaultWindowMinutes   = 5
	defaultBaselineWindows = 6
	defaultMultiplier      = 3.0
	maxMessageExcerpt      = 200
)

// evaluator decides whether one event fires one rule.
type evaluator interface {
	evaluate(ctx context.Context, sc *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error)
}

type evaluatorFunc func(ctx context.Context, sc *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error)

func (f evaluatorFunc) evaluate(ctx context.Context, sc *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error) {
	return f(ctx, sc, rule, ev)
}

func buildEvaluators(uc *implUseCase) map[model.AlertType]evaluator {
	return map[model.AlertType]evaluator{
		model.AlertTypeErrorRate:    evaluatorFunc(uc.evalErrorRate),
		model.AlertTypePatternMatch: evaluatorFunc(uc.evalPatternMatch),
		model.AlertTypeLogLevel:     evaluatorFunc(evalLogLevel),
		model.AlertTypeKeyword:      evaluatorFunc(evalKeyword),
		model.AlertTypeAnomaly:      evaluatorFunc(uc.evalAnomaly),
	}
}

// evalScope memoizes persistence counts for the duration of one batch so a
// window is queried once per batch rather than once per event.
type evalScope struct {
	now    time.Time
	counts map[string]int
}

func newEvalScope(now time.Time) *evalScope {
	return &evalScope{now: now, counts: make(map[string]int)}
}

func (uc *implUseCase) count(ctx context.Context, sc *evalScope, opts logeventRepo.CountOptions) (int, error) {
	key := fmt.Sprintf("%s|%v|%d|%d", opts.ProjectID, opts.Levels, opts.From.UnixNano(), opts.To.UnixNano())
	if n, ok := sc.counts[key]; ok {
		return n, nil
	}
	if uc.counter == nil {
		return 0, nil
	}
	n, err := uc.counter.CountEvents(ctx, opts)
	if err != nil {
		return 0, err
	}
	sc.counts[key] = n
	return n, nil
}

func windowOf(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = defaultWindowMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (uc *implUseCase) evalErrorRate(ctx context.Context, sc *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error) {
	if !ev.Level.IsError() {
		return alert.Match{}, false, nil
	}
	cond := rule.Conditions
	window := windowOf(cond.WindowMinutes)
	n, err := uc.count(ctx, sc, logeventRepo.CountOptions{
		ProjectID: rule.ProjectID,
		Levels:    []model.Level{model.LevelError, model.LevelCritical},
		From:      sc.now.Add(-window),
	})
	if err != nil {
		return alert.Match{}, false, err
	}
	if cond.Threshold <= 0 || n < cond.Threshold {
		return alert.Match{}, false, nil
	}
	minutes := int(window / time.Minute)
	return alert.Match{
		Event:   ev,
		Message: errorRateMessage(n, minutes, cond.Threshold),
		Metadata: map[string]any{
			"errorCount":    n,
			"windowMinutes": minutes,
			"threshold":     cond.Threshold,
		},
	}, true, nil
}

func (uc *implUseCase) evalPatternMatch(_ context.Context, _ *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error) {
	pattern := rule.Conditions.Pattern
	if pattern == "" {
		return alert.Match{}, false, nil
	}
	re, err := uc.compilePattern(pattern, rule.Conditions.CaseSensitive)
	if err != nil {
		return alert.Match{}, false, err
	}
	text := searchText(ev)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return alert.Match{}, false, nil
	}
	return alert.Match{
		Event:   ev,
		Message: patternMessage(pattern, ev.Message),
		Metadata: map[string]any{
			"pattern": pattern,
			"matched": text[loc[0]:loc[1]],
		},
	}, true, nil
}

func evalLogLevel(_ context.Context, _ *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error) {
	if !slices.Contains(rule.Conditions.Levels, ev.Level) {
		return alert.Match{}, false, nil
	}
	return alert.Match{
		Event:    ev,
		Message:  logLevelMessage(ev.Level, ev.Message),
		Metadata: map[string]any{"level": string(ev.Level)},
	}, true, nil
}

func evalKeyword(_ context.Context, _ *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error) {
	text := strings.ToLower(searchText(ev))
	for _, kw := range rule.Conditions.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || !strings.Contains(text, strings.ToLower(kw)) {
			continue
		}
		return alert.Match{
			Event:    ev,
			Message:  keywordMessage(kw, ev.Message),
			Metadata: map[string]any{"keyword": kw},
		}, true, nil
	}
	return alert.Match{}, false, nil
}

// evalAnomaly compares the event volume of the current window with the
// average of the preceding windows.
func (uc *implUseCase) evalAnomaly(ctx context.Context, sc *evalScope, rule model.AlertRule, ev model.LogEvent) (alert.Match, bool, error) {
	cond := rule.Conditions
	window := windowOf(cond.WindowMinutes)
	windows := cond.BaselineWindows
	if windows <= 0 {
		windows = defaultBaselineWindows
	}
	multiplier := cond.Multiplier
	if multiplier <= 0 {
		multiplier = defaultMultiplier
	}

	start := sc.now.Add(-window)
	current, err := uc.count(ctx, sc, logeventRepo.CountOptions{ProjectID: rule.ProjectID, From: start})
	if err != nil {
		return alert.Match{}, false, err
	}
	if current < cond.MinEvents || current == 0 {
		return alert.Match{}, false, nil
	}

	total := 0
	for i := 1; i <= windows; i++ {
		to := start.Add(-time.Duration(i-1) * window)
		n, err := uc.count(ctx, sc, logeventRepo.CountOptions{
			ProjectID: rule.ProjectID,
			From:      to.Add(-window),
			To:        to,
		})
		if err != nil {
			return alert.Match{}, false, err
		}
		total += n
	}
	baseline := float64(total) / float64(windows)
	if float64(current) <= baseline*multiplier {
		return alert.Match{}, false, nil
	}

	minutes := int(window / time.Minute)
	return alert.Match{
		Event:   ev,
		Message: anomalyMessage(current, minutes, baseline),
		Metadata: map[string]any{
			"eventCount":    current,
			"windowMinutes": minutes,
			"baseline":      baseline,
			"multiplier":    multiplier,
		},
	}, true, nil
}

// compilePattern caches one regexp per pattern and case flag. Invalid
// patterns are cached too so they are reported once per process.
func (uc *implUseCase) compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	key := pattern
	if !caseSensitive {
		key = "(?i)" + pattern
	}

	uc.patternMu.RLock()
	entry, ok := uc.patterns[key]
	uc.patternMu.RUnlock()
	if ok {
		return entry.re, entry.err
	}

	re, err := regexp.Compile(key)
	if err != nil {
		err = fmt.Errorf("%w: pattern %q: %v", alert.ErrInvalidInput, pattern, err)
	}
	uc.patternMu.Lock()
	uc.patterns[key] = patternEntry{re: re, err: err}
	uc.patternMu.Unlock()
	return re, err
}

func searchText(ev model.LogEvent) string {
	if len(ev.Raw) == 0 {
		return ev.Message
	}
	return ev.Message + " " + ev.RawText()
}
