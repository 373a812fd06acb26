// Package engine is the central orchestrator of the breakout
// evaluation engine (C9). It wires together ingest (C2), the
// per-instrument store (C3), the metrics calculator (C4), plan runtime
// state (C5), the breakout evaluator (C6), the transition applier (C7)
// and the signal emitter (C8) into the single per-tick entry point the
// spec names: evaluate_tick.
//
// Lifecycle: New() → AddPlan()/RemovePlan() as plans are admitted or
// retired → EvaluateTick() once per incoming candle/book payload.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/internal/errs"
	"breakoutengine/internal/evaluator"
	"breakoutengine/internal/ingest"
	"breakoutengine/internal/metrics"
	"breakoutengine/internal/planstate"
	"breakoutengine/internal/signal"
	"breakoutengine/internal/stats"
	"breakoutengine/internal/store"
	"breakoutengine/pkg/types"
)

// TickInput is the per-tick payload evaluate_tick accepts (§6). Candle,
// Book or both may be set; a tick with neither is a no-op.
type TickInput struct {
	InstrumentID string
	Timeframe    string // candle timeframe; empty means the engine's timeframe
	Candle       *types.Candle
	Book         *types.BookSnap
}

// DashboardEvent is the event shape pushed to an optional dashboard
// consumer (adapted from the reference engine's dashboard channel,
// §9 "no process-wide singleton" — this channel is a field of the
// engine instance, not a package global).
type DashboardEvent struct {
	Type         string      `json:"type"` // "transition" | "signal"
	Timestamp    time.Time   `json:"timestamp"`
	PlanID       string      `json:"plan_id"`
	InstrumentID string      `json:"instrument_id"`
	Data         interface{} `json:"data"`
}

// Engine is the C9 coordinator. It owns the plan table, the per-plan
// runtime map, and the per-instrument store manager exclusively — no
// other package mutates them (§5 shared-resource policy).
type Engine struct {
	cfg config.Config

	stores    *store.Manager
	calc      *metrics.Calculator
	emitter   *signal.Emitter
	counters  *stats.Counters
	logger    *slog.Logger
	timeframe string // primary timeframe plans evaluate against

	mu        sync.RWMutex
	plans     map[string]types.Plan
	runtimes  map[string]types.PlanRuntimeState
	byInstr   map[string]map[string]bool // instrument_id -> set of plan ids

	dashboardEvents chan DashboardEvent
}

// New constructs an Engine. timeframe is the candle timeframe plans
// are evaluated against (e.g. "1m"); dashboardEnabled allocates the
// event channel DashboardEvents() exposes.
func New(cfg config.Config, emitter *signal.Emitter, logger *slog.Logger, timeframe string, dashboardEnabled bool) *Engine {
	if timeframe == "" {
		timeframe = "1m"
	}

	calc := metrics.NewCalculator(metrics.Params{
		ATRPeriod:  cfg.ATR.Period,
		RVOLPeriod: cfg.Volume.RVOLPeriod,
		Orderbook: metrics.OrderbookParams{
			MaxLevels:            cfg.Orderbook.MaxLevels,
			DepletionThreshold:   cfg.Orderbook.DepletionThreshold,
			ImbalanceThreshold:   cfg.Orderbook.ImbalanceThreshold,
			MinDepletionNotional: cfg.Orderbook.MinDepletionNotional,
		},
	})

	var dashEvents chan DashboardEvent
	if dashboardEnabled {
		dashEvents = make(chan DashboardEvent, 256)
	}

	return &Engine{
		cfg:             cfg,
		stores:          store.NewManager(cfg.Datastore.BarsWindowSize, cfg.Datastore.VolumeWindowSize),
		calc:            calc,
		emitter:         emitter,
		counters:        stats.New(),
		logger:          logger.With("component", "engine"),
		timeframe:       timeframe,
		plans:           make(map[string]types.Plan),
		runtimes:        make(map[string]types.PlanRuntimeState),
		byInstr:         make(map[string]map[string]bool),
		dashboardEvents: dashEvents,
	}
}

// DashboardEvents returns the dashboard event channel (nil if
// dashboarding is disabled).
func (e *Engine) DashboardEvents() <-chan DashboardEvent {
	return e.dashboardEvents
}

// AddPlan validates and admits a plan (§4.8, §6 add_plan): required
// fields, direction/entry_type shape, invalidation conditions, and
// parameter-override ranges. It lazily allocates the instrument's
// store and a fresh runtime record.
func (e *Engine) AddPlan(plan types.Plan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("add_plan: %w", err)
	}
	if err := config.ValidatePlanOverrides(plan.ParamOverrides); err != nil {
		return fmt.Errorf("add_plan: invalid breakout_params override: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.plans[plan.ID] = plan
	e.runtimes[plan.ID] = types.NewPlanRuntimeState(plan.ID)

	if e.byInstr[plan.InstrumentID] == nil {
		e.byInstr[plan.InstrumentID] = make(map[string]bool)
	}
	e.byInstr[plan.InstrumentID][plan.ID] = true

	e.stores.Get(plan.InstrumentID) // allocate lazily

	e.logger.Info("plan admitted", "plan_id", plan.ID, "instrument_id", plan.InstrumentID, "direction", plan.Direction)
	return nil
}

// RemovePlan frees a plan's runtime and parameter state (§4.8). The
// instrument store is left in place — other plans may still reference
// it.
func (e *Engine) RemovePlan(planID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan, ok := e.plans[planID]
	if !ok {
		return
	}
	delete(e.plans, planID)
	delete(e.runtimes, planID)
	if set := e.byInstr[plan.InstrumentID]; set != nil {
		delete(set, planID)
	}
	e.logger.Info("plan removed", "plan_id", planID)
}

// GetPlanState returns a read-only snapshot of a plan's runtime state.
func (e *Engine) GetPlanState(planID string) (types.PlanRuntimeState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.runtimes[planID]
	return r, ok
}

// ListPlans returns every admitted plan for an instrument.
func (e *Engine) ListPlans(instrumentID string) []types.Plan {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []types.Plan
	for id := range e.byInstr[instrumentID] {
		out = append(out, e.plans[id])
	}
	return out
}

// AllPlans returns every admitted plan across every instrument, for the
// read-only dashboard snapshot.
func (e *Engine) AllPlans() []types.Plan {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Plan, 0, len(e.plans))
	for _, p := range e.plans {
		out = append(out, p)
	}
	return out
}

// GetRuntimeStats returns a point-in-time snapshot of engine counters
// (§6 get_runtime_stats).
func (e *Engine) GetRuntimeStats() stats.Snapshot {
	return e.counters.Snapshot()
}

// EvaluateTick is the per-tick entry point (§4.8, §6 evaluate_tick). It
// never returns an error: data-quality and per-plan faults are
// recorded and the tick proceeds using whatever state already exists.
func (e *Engine) EvaluateTick(in TickInput) []types.Signal {
	e.counters.Tick()

	if in.Candle == nil && in.Book == nil {
		return nil
	}

	st := e.stores.Get(in.InstrumentID)

	if in.Candle != nil {
		timeframe := in.Timeframe
		if timeframe == "" {
			timeframe = e.timeframe
		}
		outcome := ingest.IngestCandle(st, timeframe, *in.Candle, e.ingestConfig(), time.Now())
		e.counters.RecordCandleOutcome(outcome)
		if outcome.Kind == types.OutcomeRejected {
			e.logger.Warn("candle rejected", "instrument_id", in.InstrumentID, "reason", outcome.RejectKind)
		}
	}

	if in.Book != nil {
		outcome := ingest.IngestBook(st, *in.Book)
		e.counters.RecordBookOutcome(outcome)
		if outcome.Kind == types.OutcomeRejected {
			e.logger.Warn("book rejected", "instrument_id", in.InstrumentID, "reason", outcome.RejectKind)
		}
	}

	planIDs := e.plansForInstrument(in.InstrumentID)
	if len(planIDs) == 0 {
		return nil
	}

	market, snap, ok := e.buildMarketContext(st, e.timeframe)
	if !ok {
		return nil
	}

	var signals []types.Signal
	for _, planID := range planIDs {
		if sig, emitted := e.evaluatePlanSafely(planID, market, snap); emitted {
			signals = append(signals, sig)
		}
	}
	return signals
}

func (e *Engine) plansForInstrument(instrumentID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := e.byInstr[instrumentID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// buildMarketContext derives the fresh MetricsSnapshot and the
// MarketContext shared by every plan on this tick (§4.8 step 4-5).
func (e *Engine) buildMarketContext(st *store.InstrumentStore, timeframe string) (evaluator.MarketContext, types.MetricsSnapshot, bool) {
	lastPrice, lastTS := st.LastPrice()
	if lastPrice <= 0 {
		return evaluator.MarketContext{}, types.MetricsSnapshot{}, false
	}

	ring := st.CandleRing(timeframe)
	if ring.Len() == 0 {
		return evaluator.MarketContext{}, types.MetricsSnapshot{}, false
	}
	current, _ := ring.Last()

	closed := closedCandles(ring)
	volumes := st.VolumeRing(timeframe).Items()

	var currentVolume float64
	if current.IsClosed {
		currentVolume = current.Volume
	}

	prevBook, currBook := st.Books()

	snap, err := e.calc.Compute(current, closed, volumes, currentVolume, prevBook, currBook)
	if err != nil {
		e.counters.RecordFault(errs.FaultMetrics)
		e.logger.Warn("metrics computation faulted", "error", err)
		return evaluator.MarketContext{}, types.MetricsSnapshot{}, false
	}

	lastClosed, hasClosed := st.LastClosedCandle(timeframe)
	var lastClosedPtr *types.Candle
	var barRange float64
	if hasClosed {
		c := lastClosed
		lastClosedPtr = &c
		barRange = c.Range()
	}

	market := evaluator.MarketContext{
		LastPrice:     lastPrice,
		Timestamp:     lastTS,
		LastClosedBar: lastClosedPtr,
		BarRange:      barRange,
		CurrBook:      currBook,
		PrevBook:      prevBook,
	}
	return market, snap, true
}

func closedCandles(r *store.Ring[types.Candle]) []types.Candle {
	items := r.Items()
	out := make([]types.Candle, 0, len(items))
	for _, c := range items {
		if c.IsClosed {
			out = append(out, c)
		}
	}
	return out
}

// evaluatePlanSafely runs one plan through the evaluator/applier/
// emitter chain, recovering from any panic at the plan boundary so a
// single plan's fault never aborts the tick for the others (§4.8 step
// 6, §7 "unexpected exceptions... caught at the plan boundary").
func (e *Engine) evaluatePlanSafely(planID string, market evaluator.MarketContext, snap types.MetricsSnapshot) (sig types.Signal, emitted bool) {
	defer func() {
		if r := recover(); r != nil {
			e.counters.RecordFault(errs.FaultStateTransition)
			e.logger.Error("plan evaluation panicked", "plan_id", planID, "recover", r)
		}
	}()

	e.mu.RLock()
	plan, okPlan := e.plans[planID]
	runtime, okRuntime := e.runtimes[planID]
	e.mu.RUnlock()
	if !okPlan {
		return types.Signal{}, false
	}
	if !okRuntime {
		runtime = types.NewPlanRuntimeState(planID)
	}

	cfg := config.Merge(e.cfg.Breakout, e.instrumentOverride(plan.InstrumentID), plan.ParamOverrides)

	transition, ok := evaluator.Evaluate(runtime, plan, market, snap, cfg)
	if !ok {
		return types.Signal{}, false
	}

	next, err := planstate.Apply(runtime, transition)
	if err != nil {
		e.counters.RecordFault(errs.FaultStateTransition)
		e.logger.Error("illegal transition rejected", "plan_id", planID, "error", err)
		return types.Signal{}, false
	}

	e.mu.Lock()
	e.runtimes[planID] = next
	e.mu.Unlock()

	e.emitDashboard(DashboardEvent{
		Type:         "transition",
		Timestamp:    transition.Timestamp,
		PlanID:       planID,
		InstrumentID: plan.InstrumentID,
		Data:         next,
	})

	if !transition.EmitSignal {
		return types.Signal{}, false
	}

	formatted := signal.Format(plan, next, transition)
	delivered, err := e.emitter.Emit(formatted)
	if err != nil {
		e.counters.RecordFault(errs.FaultDelivery)
		e.logger.Error("signal emission failed", "plan_id", planID, "error", err)
	}
	e.counters.RecordSignal(next.State)

	if !delivered {
		return types.Signal{}, false
	}

	e.emitDashboard(DashboardEvent{
		Type:         "signal",
		Timestamp:    formatted.Timestamp,
		PlanID:       planID,
		InstrumentID: plan.InstrumentID,
		Data:         formatted,
	})

	return formatted, true
}

func (e *Engine) instrumentOverride(instrumentID string) *config.BreakoutOverrides {
	if ov, ok := e.cfg.Instruments[instrumentID]; ok {
		o := ov
		return &o
	}
	return nil
}

func (e *Engine) ingestConfig() ingest.Config {
	return ingest.Config{
		SpikeFilterEnable:  e.cfg.SpikeFilter.Enable,
		SpikeATRMultiplier: e.cfg.SpikeFilter.ATRMultiplier,
		ATRPeriod:          e.cfg.ATR.Period,
		MaxAge:             5 * time.Minute,
		ClockSkewGrace:     60 * time.Second,
	}
}

func (e *Engine) emitDashboard(evt DashboardEvent) {
	if e.dashboardEvents == nil {
		return
	}
	select {
	case e.dashboardEvents <- evt:
	default:
		e.logger.Warn("dashboard event channel full, dropping event", "type", evt.Type)
	}
}
