// Package monitor runs the observe-decide-act loop that buys an offer when
// the watched quota runs low, or on a fixed timer.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/quota-autopay/internal/clock"
	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/notify"
	"github.com/j-veylop/quota-autopay/internal/services/purchase"
	"github.com/j-veylop/quota-autopay/internal/services/quota"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

// ErrNoEntries is returned by Prepare when the account has no active quota.
var ErrNoEntries = errors.New("no active quota entries")

// Gate blocks until the network is reachable. onOffline runs once before a
// recovery wait starts.
type Gate interface {
	Ensure(ctx context.Context, interval time.Duration, onOffline func()) bool
}

// QuotaSource fetches snapshots and the balance.
type QuotaSource interface {
	FetchQuotas(ctx context.Context) ([]models.QuotaEntry, error)
	FetchBalance(ctx context.Context) (int64, error)
}

// Purchaser fires a purchase of a named offer.
type Purchaser interface {
	Fire(ctx context.Context, offerName string) (*purchase.Outcome, error)
}

// Recorder persists polls and purchase attempts.
type Recorder interface {
	InsertPoll(p *models.PollRecord) error
	InsertPurchase(p *models.PurchaseRecord) error
}

// Projector estimates depletion from the recorded polls of a run.
type Projector interface {
	Calculate(runID string, threshold int64, now time.Time) (*models.DepletionProjection, error)
}

// Config holds the timing and target of the engine.
type Config struct {
	OfferName            string
	RefreshInterval      time.Duration
	RecoveryPollInterval time.Duration
	PostTriggerPause     time.Duration
	Cooldown             time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		OfferName:            "Masa Aktif 30 Hari + 100MB",
		RefreshInterval:      20 * time.Second,
		RecoveryPollInterval: 3 * time.Second,
		PostTriggerPause:     400 * time.Millisecond,
		Cooldown:             3 * time.Minute,
	}
}

// Deps are the collaborators of the engine. Recorder, Projector, Notifier and
// Clock are optional.
type Deps struct {
	Gate      Gate
	Sessions  session.Provider
	Quotas    QuotaSource
	Purchaser Purchaser
	Recorder  Recorder
	Projector Projector
	Notifier  notify.Notifier
	Clock     clock.Clock
}

// Engine drives one monitoring run at a time. Run blocks; events are
// published on a buffered channel that drops the oldest event when full.
type Engine struct {
	deps      Deps
	eventChan chan Event
	cfg       Config

	mu    sync.RWMutex
	runID string
}

// New creates an engine.
func New(cfg Config, deps Deps) *Engine {
	def := DefaultConfig()
	if cfg.OfferName == "" {
		cfg.OfferName = def.OfferName
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.RecoveryPollInterval <= 0 {
		cfg.RecoveryPollInterval = def.RecoveryPollInterval
	}
	if cfg.PostTriggerPause < 0 {
		cfg.PostTriggerPause = 0
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	return &Engine{
		cfg:       cfg,
		deps:      deps,
		eventChan: make(chan Event, 100),
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventChan
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// RunID returns the identifier of the current or last run.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// Prepare checks connectivity and the session, then fetches the snapshot the
// operator picks a target from.
func (e *Engine) Prepare(ctx context.Context) ([]models.QuotaEntry, error) {
	if !e.ensureOnline(ctx) {
		return nil, context.Canceled
	}
	if err := session.Acquire(e.deps.Sessions).Err(); err != nil {
		return nil, err
	}

	entries, err := e.deps.Quotas.FetchQuotas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quota details: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

// Run monitors until ctx is cancelled or the session expires. The returned
// error is nil for cancellation and session.ErrExpired for session loss.
func (e *Engine) Run(ctx context.Context, plan models.MonitorPlan) (StopReason, error) {
	e.mu.Lock()
	e.runID = uuid.NewString()
	e.mu.Unlock()

	logger.Info("monitor started",
		"run", e.runID,
		"mode", plan.Mode.String(),
		"target", plan.Target.Name,
		"offer", e.cfg.OfferName,
	)
	e.sendEvent(Event{Type: EventStarted, Mode: plan.Mode})

	var err error
	switch plan.Mode {
	case models.ModeTimer:
		err = e.runTimer(ctx, plan)
	default:
		err = e.runQuota(ctx, plan)
	}

	reason := StopCancelled
	if errors.Is(err, session.ErrExpired) {
		reason = StopSessionExpired
		err = session.ErrExpired
		notify.Send(e.deps.Notifier, "Auto payment stopped", "Session expired, please log in again.")
	} else {
		err = nil
	}

	logger.Info("monitor stopped", "run", e.runID, "reason", reason.String())
	e.sendEvent(Event{Type: EventStopped, Reason: reason, Err: err, Mode: plan.Mode})
	return reason, err
}

// errCancelled signals that a suspension point observed cancellation.
var errCancelled = errors.New("cancelled")

func (e *Engine) runQuota(ctx context.Context, plan models.MonitorPlan) error {
	threshold := plan.ThresholdBytes()
	var cooldownUntil time.Time

	for {
		if !e.ensureOnline(ctx) {
			return errCancelled
		}
		if err := session.Acquire(e.deps.Sessions).Err(); err != nil {
			return err
		}

		snap, err := e.poll(ctx, func(entries []models.QuotaEntry) (models.QuotaEntry, models.MatchKind) {
			return plan.Target.Locate(entries)
		})
		if err != nil {
			return err
		}
		snap.Threshold = threshold
		snap.Low = snap.Benefit.Remaining < threshold
		snap.CooldownUntil = cooldownUntil

		status := StatusHealthy
		switch {
		case snap.Low && !snap.At.Before(cooldownUntil):
			status = StatusTriggering
		case snap.Low:
			status = StatusCooldown
		}
		e.record(snap, plan, status)
		e.sendEvent(Event{Type: EventPoll, Snapshot: snap, Mode: plan.Mode})
		e.sendEvent(Event{Type: EventStatus, Status: status, Mode: plan.Mode})

		if status == StatusTriggering {
			if !e.ensureOnline(ctx) {
				return errCancelled
			}
			if err := session.Acquire(e.deps.Sessions).Err(); err != nil {
				return err
			}
			resolved, err := e.trigger(ctx, plan)
			if err != nil {
				return err
			}
			// A plan that never resolved bought nothing, so the next
			// iteration may retry.
			if resolved {
				cooldownUntil = snap.At.Add(e.cfg.Cooldown)
				if !e.sleep(ctx, e.cfg.PostTriggerPause, false) {
					return errCancelled
				}
				continue
			}
		}

		if !e.sleep(ctx, e.cfg.RefreshInterval, true) {
			return errCancelled
		}
	}
}

func (e *Engine) runTimer(ctx context.Context, plan models.MonitorPlan) error {
	for {
		if !e.ensureOnline(ctx) {
			return errCancelled
		}
		if err := session.Acquire(e.deps.Sessions).Err(); err != nil {
			return err
		}

		snap, err := e.poll(ctx, func(entries []models.QuotaEntry) (models.QuotaEntry, models.MatchKind) {
			return locateByOrdinal(plan.Target, entries)
		})
		if err != nil {
			return err
		}
		e.record(snap, plan, StatusTimer)
		e.sendEvent(Event{Type: EventPoll, Snapshot: snap, Mode: plan.Mode})
		e.sendEvent(Event{Type: EventStatus, Status: StatusTimer, Mode: plan.Mode})

		if !e.sleep(ctx, plan.TimerDuration, true) {
			return errCancelled
		}

		if !e.ensureOnline(ctx) {
			return errCancelled
		}
		if err := session.Acquire(e.deps.Sessions).Err(); err != nil {
			return err
		}

		e.sendEvent(Event{Type: EventStatus, Status: StatusTriggering, Mode: plan.Mode})
		if _, err := e.trigger(ctx, plan); err != nil {
			return err
		}
		if !e.sleep(ctx, e.cfg.PostTriggerPause, false) {
			return errCancelled
		}
	}
}

// locateByOrdinal matches by captured position, falling back to the first entry.
func locateByOrdinal(t models.MonitorTarget, entries []models.QuotaEntry) (models.QuotaEntry, models.MatchKind) {
	if idx := t.Ordinal - 1; idx >= 0 && idx < len(entries) {
		return entries[idx], models.MatchByOrdinal
	}
	if len(entries) > 0 {
		return entries[0], models.MatchByOrdinal
	}
	return models.QuotaEntry{}, models.MatchNone
}

// poll fetches the balance and a snapshot and locates the target. A failed
// fetch reads as an empty snapshot; only session loss is returned.
func (e *Engine) poll(ctx context.Context, locate func([]models.QuotaEntry) (models.QuotaEntry, models.MatchKind)) (*Snapshot, error) {
	balance, err := e.deps.Quotas.FetchBalance(ctx)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			return nil, err
		}
		logger.Debug("balance unavailable", "error", err)
		balance = 0
	}

	entries, err := e.deps.Quotas.FetchQuotas(ctx)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			return nil, err
		}
		logger.Warn("failed to fetch quota details", "error", err)
		entries = nil
	}

	entry, match := locate(entries)
	if match == models.MatchNone {
		logger.Warn("target not found in snapshot", "entries", len(entries))
	}

	return &Snapshot{
		At:      e.deps.Clock.Now(),
		Entry:   entry,
		Match:   match,
		Benefit: quota.SelectMain(entry),
		Balance: balance,
	}, nil
}

// trigger fires a purchase. It reports whether a plan was resolved; only
// session loss is returned as an error.
func (e *Engine) trigger(ctx context.Context, plan models.MonitorPlan) (bool, error) {
	outcome, err := e.deps.Purchaser.Fire(ctx, e.cfg.OfferName)
	if errors.Is(err, session.ErrExpired) {
		return false, err
	}

	rec := &models.PurchaseRecord{
		Timestamp: e.deps.Clock.Now(),
		RunID:     e.runID,
		Mode:      plan.Mode.String(),
		OfferName: e.cfg.OfferName,
	}
	switch {
	case err != nil:
		rec.Status = models.PurchaseResolveFailed
		rec.Error = err.Error()
	case outcome.Submitted():
		rec.Status = models.PurchaseSubmitted
	default:
		rec.Status = models.PurchaseSettleFailed
		rec.Error = outcome.SettleErr.Error()
	}
	if outcome != nil && outcome.Plan != nil {
		rec.OfferName = outcome.Plan.SelectedName
		rec.ItemCodes = outcome.ItemCodes()
		rec.ItemCount = len(outcome.Plan.Items)
		rec.TotalPrice = outcome.Plan.TotalPrice()
	}
	if e.deps.Recorder != nil {
		if err := e.deps.Recorder.InsertPurchase(rec); err != nil {
			logger.Error("failed to record purchase", "error", err)
		}
	}

	e.sendEvent(Event{Type: EventTrigger, Outcome: outcome, Err: err, Mode: plan.Mode})
	return err == nil, nil
}

// record persists a poll and refreshes the projection.
func (e *Engine) record(snap *Snapshot, plan models.MonitorPlan, status Status) {
	if e.deps.Recorder == nil {
		return
	}

	poll := &models.PollRecord{
		Timestamp:   snap.At,
		RunID:       e.runID,
		EntryName:   snap.Entry.Name,
		BenefitName: snap.Benefit.Name,
		Remaining:   snap.Benefit.Remaining,
		Total:       snap.Benefit.Total,
		Balance:     snap.Balance,
		Threshold:   snap.Threshold,
		Status:      string(status),
	}
	if err := e.deps.Recorder.InsertPoll(poll); err != nil {
		logger.Error("failed to record poll", "error", err)
		return
	}

	if e.deps.Projector == nil || plan.Mode != models.ModeQuota {
		return
	}
	proj, err := e.deps.Projector.Calculate(e.runID, snap.Threshold, snap.At)
	if err == nil {
		snap.Projection = proj
	}
}

// ensureOnline passes straight through when reachable and otherwise waits for
// recovery. It returns false once ctx is cancelled.
func (e *Engine) ensureOnline(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if e.deps.Gate == nil {
		return true
	}
	return e.deps.Gate.Ensure(ctx, e.cfg.RecoveryPollInterval, func() {
		e.sendEvent(Event{Type: EventStatus, Status: StatusOffline})
	})
}

// sleep waits d in one-second steps, publishing a countdown when asked.
func (e *Engine) sleep(ctx context.Context, d time.Duration, countdown bool) bool {
	var tick func(time.Duration)
	if countdown {
		tick = func(remaining time.Duration) {
			e.sendEvent(Event{Type: EventCountdown, Remaining: remaining})
		}
	}
	return clock.SleepTick(ctx, e.deps.Clock, d, tick)
}

// sendEvent sends an event to the event channel non-blocking.
func (e *Engine) sendEvent(event Event) {
	if event.Time.IsZero() {
		event.Time = e.deps.Clock.Now()
	}
	event.RunID = e.runID

	select {
	case e.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-e.eventChan:
		default:
		}
		select {
		case e.eventChan <- event:
		default:
		}
	}
}
