package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"logstream-srv/internal/alert"
	"logstream-srv/internal/alert/repository"
	logeventRepo "logstream-srv/internal/logevent/repository"
	"logstream-srv/internal/model"
	pkgLog "logstream-srv/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	rules     []model.AlertRule
	listCalls int
	inserted  []model.Alert
	insertErr error
	triggered map[string]time.Time
	read      map[string]string
}

func newFakeRepo(rules ...model.AlertRule) *fakeRepo {
	return &fakeRepo{rules: rules, triggered: map[string]time.Time{}, read: map[string]string{}}
}

func (r *fakeRepo) ListRules(_ context.Context, opts repository.ListRulesOptions) ([]model.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []model.AlertRule
	for _, rule := range r.rules {
		if rule.ProjectID == opts.ProjectID && (!opts.EnabledOnly || rule.Enabled) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateRuleTriggered(_ context.Context, ruleID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggered[ruleID] = at
	return nil
}

func (r *fakeRepo) InsertAlert(_ context.Context, a model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, a)
	return nil
}

func (r *fakeRepo) MarkRead(_ context.Context, alertID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.read[alertID]; ok && owner == userID {
		delete(r.read, alertID)
		return true, nil
	}
	return false, nil
}

func (r *fakeRepo) alerts() []model.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Alert(nil), r.inserted...)
}

// fakeCounter answers counts by window start offset from now.
type fakeCounter struct {
	mu    sync.Mutex
	calls int
	fn    func(opts logeventRepo.CountOptions) int
}

func (c *fakeCounter) CountEvents(_ context.Context, opts logeventRepo.CountOptions) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.fn(opts), nil
}

type sentNotification struct {
	channel model.Channel
	alertID string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail map[model.Channel]error
}

func (n *fakeNotifier) Notify(_ context.Context, ch model.Channel, in alert.NotifyInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[ch]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentNotification{channel: ch, alertID: in.Alert.ID})
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestUseCase(repo *fakeRepo, counter alert.EventCounter, notifier alert.Notifier) (*implUseCase, *testClock) {
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	uc := newUseCase(pkgLog.NewNop(), repo, counter, notifier, Config{RuleCacheTTL: time.Minute})
	uc.now = clock.Now
	return uc, clock
}

func event(level model.Level, msg string) model.LogEvent {
	return model.LogEvent{
		ID:           "ev-" + msg,
		ProjectID:    "p1",
		UserID:       "u1",
		ConnectionID: "c1",
		Level:        level,
		Message:      msg,
		Source:       "api",
	}
}

func patternRule() model.AlertRule {
	return model.AlertRule{
		ID:              "r-pattern",
		ProjectID:       "p1",
		UserID:          "owner",
		Name:            "db timeouts",
		Type:            model.AlertTypePatternMatch,
		Severity:        model.SeverityHigh,
		Enabled:         true,
		Conditions:      model.AlertConditions{Pattern: "(?i)db.*timeout"},
		CooldownMinutes: 10,
		Channels:        []model.Channel{model.ChannelInApp},
	}
}

func TestCheckBatchPatternMatch(t *testing.T) {
	repo := newFakeRepo(patternRule())
	uc, _ := newTestUseCase(repo, nil, nil)

	alerts, err := uc.CheckBatch(context.Background(), alert.CheckBatchInput{
		ProjectID: "p1",
		Events:    []model.LogEvent{event(model.LevelError, "db timeout")},
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.SeverityHigh, a.Severity)
	assert.Contains(t, a.Message, "db timeout")
	assert.Equal(t, `Pattern "(?i)db.*timeout" matched: db timeout`, a.Message)
	assert.Equal(t, "r-pattern", a.RuleID)
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "c1", a.ConnectionID)
	assert.Equal(t, "db timeouts", a.Metadata["ruleName"])
	assert.Equal(t, "db timeout", a.Metadata["matched"])
	assert.Equal(t, []model.Channel{model.ChannelInApp}, a.NotifiedVia)
	assert.Len(t, repo.alerts(), 1)
}

func TestCooldownSuppressesRepeatTriggers(t *testing.T) {
	repo := newFakeRepo(patternRule())
	uc, clock := newTestUseCase(repo, nil, nil)
	ctx := context.Background()

	batch := alert.CheckBatchInput{ProjectID: "p1"}
	for i := 0; i < 20; i++ {
		batch.Events = append(batch.Events, event(model.LevelError, "db connect timeout"))
	}

	alerts, err := uc.CheckBatch(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	clock.Advance(5 * time.Minute)
	alerts, err = uc.CheckBatch(ctx, batch)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Len(t, repo.alerts(), 1)

	clock.Advance(6 * time.Minute)
	alerts, err = uc.CheckBatch(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Len(t, repo.alerts(), 2)
}

func TestCooldownHonoursPersistedTriggerTime(t *testing.T) {
	rule := patternRule()
	uc, clock := newTestUseCase(newFakeRepo(), nil, nil)
	last := clock.Now().Add(-time.Minute)
	rule.LastTriggeredAt = &last

	alerts, err := uc.CheckLog(context.Background(), event(model.LevelError, "db timeout"), []model.AlertRule{rule})
	require.NoError(t, err)
	assert.Empty(t, alerts)

	_, err = uc.TriggerAlert(context.Background(), rule, alert.Match{Message: "manual"})
	assert.ErrorIs(t, err, alert.ErrInCooldown)
}

func TestFailedInsertReleasesCooldown(t *testing.T) {
	repo := newFakeRepo(patternRule())
	repo.insertErr = errors.New("db down")
	uc, _ := newTestUseCase(repo, nil, nil)
	ctx := context.Background()
	input := alert.CheckBatchInput{ProjectID: "p1", Events: []model.LogEvent{event(model.LevelError, "db timeout")}}

	alerts, err := uc.CheckBatch(ctx, input)
	assert.Error(t, err)
	assert.Empty(t, alerts)

	repo.mu.Lock()
	repo.insertErr = nil
	repo.mu.Unlock()

	alerts, err = uc.CheckBatch(ctx, input)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestRuleMessages(t *testing.T) {
	ctx := context.Background()
	base := model.AlertRule{ProjectID: "p1", Enabled: true, Severity: model.SeverityMedium}

	errRate := base
	errRate.ID, errRate.Type = "r-rate", model.AlertTypeErrorRate
	errRate.Conditions = model.AlertConditions{Threshold: 5, WindowMinutes: 10}

	level := base
	level.ID, level.Type = "r-level", model.AlertTypeLogLevel
	level.Conditions = model.AlertConditions{Levels: []model.Level{model.LevelCritical}}

	keyword := base
	keyword.ID, keyword.Type = "r-kw", model.AlertTypeKeyword
	keyword.Conditions = model.AlertConditions{Keywords: []string{"OutOfMemory"}}

	counter := &fakeCounter{fn: func(logeventRepo.CountOptions) int { return 7 }}
	uc, _ := newTestUseCase(newFakeRepo(), counter, nil)

	alerts, err := uc.CheckLog(ctx, event(model.LevelCritical, "java.lang.outofmemory in worker"),
		[]model.AlertRule{errRate, level, keyword})
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	byRule := map[string]string{}
	for _, a := range alerts {
		byRule[a.RuleID] = a.Message
	}
	assert.Equal(t, "High error rate: 7 errors in 10 minutes (threshold 5)", byRule["r-rate"])
	assert.Equal(t, "CRITICAL log detected: java.lang.outofmemory in worker", byRule["r-level"])
	assert.Equal(t, `Keyword "OutOfMemory" detected: java.lang.outofmemory in worker`, byRule["r-kw"])
}

func TestErrorRateCountsOncePerBatch(t *testing.T) {
	rule := model.AlertRule{
		ID: "r-rate", ProjectID: "p1", Enabled: true, Type: model.AlertTypeErrorRate,
		Conditions: model.AlertConditions{Threshold: 100, WindowMinutes: 5},
	}
	counter := &fakeCounter{fn: func(logeventRepo.CountOptions) int { return 3 }}
	uc, _ := newTestUseCase(newFakeRepo(rule), counter, nil)

	var events []model.LogEvent
	for i := 0; i < 10; i++ {
		events = append(events, event(model.LevelError, "boom"))
	}
	events = append(events, event(model.LevelInfo, "fine"))

	alerts, err := uc.CheckBatch(context.Background(), alert.CheckBatchInput{ProjectID: "p1", Events: events})
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 1, counter.calls)
}

func TestAnomaly(t *testing.T) {
	rule := model.AlertRule{
		ID: "r-anomaly", ProjectID: "p1", Enabled: true, Type: model.AlertTypeAnomaly,
		Conditions: model.AlertConditions{WindowMinutes: 5, BaselineWindows: 2, Multiplier: 2, MinEvents: 10},
	}
	var current int
	uc, _ := newTestUseCase(newFakeRepo(), nil, nil)
	uc.counter = &fakeCounter{fn: func(opts logeventRepo.CountOptions) int {
		if opts.To.IsZero() {
			return current
		}
		return 10
	}}
	ctx := context.Background()

	current = 15
	alerts, err := uc.CheckLog(ctx, event(model.LevelInfo, "x"), []model.AlertRule{rule})
	require.NoError(t, err)
	assert.Empty(t, alerts)

	current = 45
	alerts, err = uc.CheckLog(ctx, event(model.LevelInfo, "x"), []model.AlertRule{rule})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Anomalous log volume: 45 events in 5 minutes (baseline 10.0)", alerts[0].Message)
}

func TestInvalidPatternDoesNotTrigger(t *testing.T) {
	rule := patternRule()
	rule.Conditions.Pattern = "(["
	uc, _ := newTestUseCase(newFakeRepo(), nil, nil)

	alerts, err := uc.CheckLog(context.Background(), event(model.LevelError, "(["), []model.AlertRule{rule})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCaseSensitivePattern(t *testing.T) {
	rule := patternRule()
	rule.Conditions = model.AlertConditions{Pattern: "Timeout", CaseSensitive: true}
	uc, _ := newTestUseCase(newFakeRepo(), nil, nil)
	ctx := context.Background()

	alerts, err := uc.CheckLog(ctx, event(model.LevelError, "timeout"), []model.AlertRule{rule})
	require.NoError(t, err)
	assert.Empty(t, alerts)

	ev := event(model.LevelError, "request failed")
	ev.Raw = []byte(`{"err":"Timeout"}`)
	alerts, err = uc.CheckLog(ctx, ev, []model.AlertRule{rule})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestDispatchFailuresKeepAlert(t *testing.T) {
	rule := patternRule()
	rule.Channels = []model.Channel{model.ChannelInApp, model.ChannelWebhook, model.ChannelEmail}
	repo := newFakeRepo(rule)
	notifier := &fakeNotifier{fail: map[model.Channel]error{model.ChannelWebhook: errors.New("502")}}
	uc, _ := newTestUseCase(repo, nil, notifier)

	alerts, err := uc.CheckBatch(context.Background(), alert.CheckBatchInput{
		ProjectID: "p1",
		Events:    []model.LogEvent{event(model.LevelError, "db timeout")},
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Len(t, repo.alerts(), 1)

	var channels []model.Channel
	for _, s := range notifier.sent {
		channels = append(channels, s.channel)
		assert.Equal(t, alerts[0].ID, s.alertID)
	}
	assert.ElementsMatch(t, []model.Channel{model.ChannelInApp, model.ChannelEmail}, channels)

	repo.mu.Lock()
	_, touched := repo.triggered[rule.ID]
	repo.mu.Unlock()
	assert.True(t, touched)
}

func TestRuleCache(t *testing.T) {
	repo := newFakeRepo(patternRule())
	uc, clock := newTestUseCase(repo, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rules, err := uc.GetRules(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	}
	assert.Equal(t, 1, repo.listCalls)

	clock.Advance(2 * time.Minute)
	_, err := uc.GetRules(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	uc.InvalidateRules("p1")
	_, err = uc.GetRules(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.listCalls)
}

func TestTriggerUpdatesCachedRule(t *testing.T) {
	repo := newFakeRepo(patternRule())
	uc, clock := newTestUseCase(repo, nil, nil)
	ctx := context.Background()

	_, err := uc.CheckBatch(ctx, alert.CheckBatchInput{ProjectID: "p1", Events: []model.LogEvent{event(model.LevelError, "db timeout")}})
	require.NoError(t, err)

	rules, err := uc.GetRules(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, rules[0].LastTriggeredAt)
	assert.Equal(t, clock.Now(), *rules[0].LastTriggeredAt)
}

func TestMarkRead(t *testing.T) {
	repo := newFakeRepo()
	repo.read["a1"] = "u1"
	uc, _ := newTestUseCase(repo, nil, nil)
	ctx := context.Background()

	ok, err := uc.MarkRead(ctx, "a1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = uc.MarkRead(ctx, "a1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = uc.MarkRead(ctx, "", "u1")
	assert.ErrorIs(t, err, alert.ErrInvalidInput)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", truncateText("abc", 5))
	assert.Equal(t, "ab...", truncateText("abcdefgh", 5))
}
