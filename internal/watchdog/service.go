package watchdog

import (
	"context"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	trophyentity "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy/entity"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog/entity"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/pkg/utilities"
)

const DefaultInterval = 30 * time.Second

type Config struct {
	AccountID string
	Interval  time.Duration
}

// ConfigFromEnv reads WATCH_ACCOUNT_ID and WATCH_INTERVAL_SECONDS. An empty
// account id disables the watchdog.
func ConfigFromEnv() Config {
	cfg := Config{AccountID: os.Getenv("WATCH_ACCOUNT_ID"), Interval: DefaultInterval}
	if v := os.Getenv("WATCH_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Interval = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// SummaryFunc fetches the current trophy summary of an account.
type SummaryFunc func(ctx context.Context, accountID string) (*trophyentity.Summary, error)

// Watchdog polls the summary endpoint and notifies subscribers once per
// increase of the earned total.
type Watchdog struct {
	fetch    SummaryFunc
	cfg      Config
	logger   *zap.SugaredLogger
	now      func() time.Time
	inFlight atomic.Bool

	mu          sync.Mutex
	hasBaseline bool
	baseline    int
	lastPoll    time.Time
	lastErr     error
	lastEvent   *entity.Event
	subscribers []func(entity.Event)
}

func New(fetch SummaryFunc, cfg Config, logger *zap.SugaredLogger) *Watchdog {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Watchdog{fetch: fetch, cfg: cfg, logger: logger, now: time.Now}
}

// Subscribe registers fn for every future event. Subscribers run synchronously
// on the polling goroutine.
func (w *Watchdog) Subscribe(fn func(entity.Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Run polls immediately and then on every tick until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Infow("watchdog started", "account_id", w.cfg.AccountID, "interval", w.cfg.Interval)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := w.poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warnw("watchdog poll failed", "account_id", w.cfg.AccountID, "err", err)
		}
		select {
		case <-ctx.Done():
			w.logger.Infow("watchdog stopped", "account_id", w.cfg.AccountID)
			return
		case <-ticker.C:
		}
	}
}

// Trigger runs one poll now. It reports false when another poll was already
// in flight, in which case nothing was fetched.
func (w *Watchdog) Trigger(ctx context.Context) (bool, error) {
	return w.poll(ctx)
}

func (w *Watchdog) poll(ctx context.Context) (bool, error) {
	if !w.inFlight.CompareAndSwap(false, true) {
		return false, nil
	}
	defer w.inFlight.Store(false)

	sum, err := w.fetch(ctx, w.cfg.AccountID)

	w.mu.Lock()
	w.lastPoll = w.now()
	w.lastErr = err
	if err != nil {
		w.mu.Unlock()
		return true, err
	}
	total := sum.TotalEarned()
	if !w.hasBaseline {
		w.hasBaseline = true
		w.baseline = total
		w.mu.Unlock()
		w.logger.Debugw("watchdog baseline", "account_id", w.cfg.AccountID, "total", total)
		return true, nil
	}
	if total <= w.baseline {
		w.mu.Unlock()
		return true, nil
	}
	ev := entity.Event{
		ID:        utilities.NewEventID(),
		AccountID: w.cfg.AccountID,
		Previous:  w.baseline,
		Current:   total,
		Delta:     total - w.baseline,
		At:        w.lastPoll,
	}
	w.baseline = total
	w.lastEvent = &ev
	subs := slices.Clone(w.subscribers)
	w.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return true, nil
}

// Status is a snapshot of the current baseline and last event.
func (w *Watchdog) Status() entity.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := entity.Status{
		AccountID:   w.cfg.AccountID,
		Interval:    w.cfg.Interval.String(),
		HasBaseline: w.hasBaseline,
		Baseline:    w.baseline,
		LastPoll:    w.lastPoll,
	}
	if w.lastErr != nil {
		st.LastError = w.lastErr.Error()
	}
	if w.lastEvent != nil {
		ev := *w.lastEvent
		st.LastEvent = &ev
	}
	return st
}
