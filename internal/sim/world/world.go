package world

import (
	"log"
	"sync/atomic"

	"caravanrequest/internal/persistence/snapshot"
	"caravanrequest/internal/protocol"
	"caravanrequest/internal/sim/content"
	"caravanrequest/internal/sim/tuning"
	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
	runtimepkg "caravanrequest/internal/sim/world/feature/caravan/runtime"
	arrivalpkg "caravanrequest/internal/sim/world/feature/requests/arrival"
	catalogpkg "caravanrequest/internal/sim/world/feature/requests/catalog"
	"caravanrequest/internal/sim/world/feature/requests/pricing"
	sessionpkg "caravanrequest/internal/sim/world/feature/requests/session"
	"caravanrequest/internal/sim/world/kernel/model"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	PlayerTile  int
	StartSilver int

	// CaravanSpot is the map-local position arriving caravans wait at.
	CaravanSpot     [3]int
	SpotTravelTicks uint64

	SnapshotEveryTicks int
}

type ObserverJoinReq struct {
	Name string
	Out  chan []byte
	Resp chan ObserverJoinResp
}

type ObserverJoinResp struct {
	ID      string
	Welcome protocol.WelcomeMsg
}

// World is a single-threaded authoritative simulation of the
// faction-request subsystem. All state must be accessed only from the
// world loop goroutine.
type World struct {
	cfg    WorldConfig
	tun    tuning.Tuning
	db     *content.Database
	logger *log.Logger

	tick atomic.Uint64

	factions    map[string]*model.Faction
	pawns       map[string]*model.Pawn
	settlements map[string][]model.Settlement

	silver     int
	playerTile int

	catalog  *catalogpkg.Builder
	deals    *sessionpkg.Session
	arrivals *arrivalpkg.Estimator

	caravans map[string]*runtimepkg.Caravan
	spotETA  map[string]uint64
	exitETA  map[string]uint64

	nextCaravanNum  atomic.Uint64
	nextObserverNum atomic.Uint64

	inbox         chan protocol.CommandReq
	observerJoin  chan ObserverJoinReq
	observerLeave chan string
	stop          chan struct{}

	observers map[string]chan []byte

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	eventLogger EventLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing is off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	// EndJobsHook lets the host cancel a departing caravan's map jobs.
	EndJobsHook func(caravanID string)

	eventsThisTick []protocol.Event
}

type EventLogger interface {
	WriteEvent(entry EventLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type EventLogEntry struct {
	Tick  uint64         `json:"tick"`
	Event protocol.Event `json:"event"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "GOODWILL_CHANGE"
	Faction string         `json:"faction,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(cfg WorldConfig, tun tuning.Tuning, db *content.Database, logger *log.Logger) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 60
	}
	if cfg.SpotTravelTicks == 0 {
		cfg.SpotTravelTicks = 500
	}
	w := &World{
		cfg:    cfg,
		tun:    tun,
		db:     db,
		logger: logger,

		factions:    map[string]*model.Faction{},
		pawns:       map[string]*model.Pawn{},
		settlements: map[string][]model.Settlement{},

		silver:     cfg.StartSilver,
		playerTile: cfg.PlayerTile,

		caravans: map[string]*runtimepkg.Caravan{},
		spotETA:  map[string]uint64{},
		exitETA:  map[string]uint64{},

		inbox:         make(chan protocol.CommandReq, 256),
		observerJoin:  make(chan ObserverJoinReq, 8),
		observerLeave: make(chan string, 8),
		stop:          make(chan struct{}),

		observers: map[string]chan []byte{},
	}
	w.catalog = catalogpkg.NewBuilder(db, catalogpkg.BuilderConfig{
		BatchPerTick: tun.Catalog.BatchPerTick,
		Restricted:   tun.Catalog.Restricted,
		CostMults: catalogpkg.CostMults{
			Apparel: tun.Pricing.ApparelCostMult,
			Weapon:  tun.Pricing.WeaponCostMult,
			Generic: tun.Pricing.GenericCostMult,
		},
	}, logger)
	w.deals = sessionpkg.New(tun.Session.CooldownTicks, logger)
	w.arrivals = arrivalpkg.NewEstimator(arrivalpkg.Config{
		SettlementRadius: tun.Arrival.SettlementRadius,
		DefaultTicks:     uint64(tun.Arrival.DefaultJourneyDays * float64(tun.DayTicks)),
	}, w, tileCoster{ticksPerTile: uint64(tun.DayTicks / 30)}, logger)
	return w
}

// SetLoggers wires the persistence sinks; call before Run.
func (w *World) SetLoggers(events EventLogger, audits AuditLogger) {
	w.eventLogger = events
	w.auditLogger = audits
}

func (w *World) SetSnapshotSink(sink chan<- snapshot.SnapshotV1) { w.snapshotSink = sink }

func (w *World) ID() string           { return w.cfg.ID }
func (w *World) Tick() uint64         { return w.tick.Load() }
func (w *World) TickRateHz() int      { return w.cfg.TickRateHz }
func (w *World) DayTicks() int        { return w.tun.DayTicks }
func (w *World) SilverAvailable() int { return w.silver }

func (w *World) Catalog() *catalogpkg.Builder { return w.catalog }
func (w *World) Deals() *sessionpkg.Session   { return w.deals }

func (w *World) FactionByID(id string) *model.Faction { return w.factions[id] }
func (w *World) PawnByID(id string) *model.Pawn       { return w.pawns[id] }

// AddFaction, AddPawn and AddSettlement seed host state; world-loop only.
func (w *World) AddFaction(f *model.Faction) { w.factions[f.ID] = f }
func (w *World) AddPawn(p *model.Pawn)       { w.pawns[p.ID] = p }

func (w *World) AddSettlement(s model.Settlement) {
	w.settlements[s.FactionID] = append(w.settlements[s.FactionID], s)
	w.arrivals.ResetTravelTimeCache()
}

// SettlementsOf and TileDistance implement the arrival estimator's map
// surface. Tiles are 1-D indices here; the host substitutes its own
// geometry through the same interface.
func (w *World) SettlementsOf(factionID string) []model.Settlement {
	return w.settlements[factionID]
}

func (w *World) TileDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

type tileCoster struct {
	ticksPerTile uint64
}

func (c tileCoster) CaravanTicksEstimate(fromTile, toTile int) (uint64, error) {
	d := fromTile - toTile
	if d < 0 {
		d = -d
	}
	return uint64(d) * c.ticksPerTile, nil
}

func (w *World) JourneyTicks(factionID string) uint64 {
	return w.arrivals.DetermineJourneyTime(factionID, w.playerTile)
}

func (w *World) QuoteUnitPrice(a catalogpkg.Archetype, f *model.Faction, negotiator *model.Pawn) float64 {
	in := pricing.Input{
		BaseValue:    a.UnitCost,
		IsCurrency:   a.IsCurrency,
		JourneyTicks: w.JourneyTicks(f.ID),
		DayTicks:     w.tun.DayTicks,
		Goodwill:     f.Goodwill,
	}
	if negotiator != nil {
		in.SkillDiscount = negotiator.TradePriceImprovement
	}
	return pricing.UnitPrice(in, w.tun.Pricing)
}

func (w *World) SpendSilver(n int) bool {
	if n < 0 || n > w.silver {
		return false
	}
	w.silver -= n
	return true
}

func (w *World) AddSilver(n int) {
	if n > 0 {
		w.silver += n
	}
}

// Emit queues an event for this tick's flush to loggers and observers.
func (w *World) Emit(ev protocol.Event) {
	w.eventsThisTick = append(w.eventsThisTick, ev)
}

func (w *World) audit(action, factionID string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    w.tick.Load(),
		Actor:   "world",
		Action:  action,
		Faction: factionID,
		Details: details,
	})
}

// Caravan runtime environment.

func (w *World) Relation(factionID string) model.RelationKind {
	if f := w.factions[factionID]; f != nil {
		return f.Relation()
	}
	return model.RelationNeutral
}

func (w *World) GoodwillChange(factionID string, delta int) {
	f := w.factions[factionID]
	if f == nil {
		return
	}
	f.ApplyGoodwill(delta)
	w.audit("GOODWILL_CHANGE", factionID, map[string]any{"delta": delta, "goodwill": f.Goodwill})
}

func (w *World) SetHostile(factionID string) {
	f := w.factions[factionID]
	if f == nil {
		return
	}
	f.SetHostile()
	w.audit("FACTION_HOSTILE", factionID, nil)
}

func (w *World) Message(kind corepkg.MessageKind, factionID string) {
	w.Emit(protocol.PlayerMessage(w.tick.Load(), string(kind), factionID, messageText(kind)))
}

func (w *World) CloseOpenDeal(factionID string) {
	w.deals.CloseOpenDealWith(factionID, w.tick.Load())
}

func (w *World) EndCaravanJobs(caravanID string) {
	if w.EndJobsHook != nil {
		w.EndJobsHook(caravanID)
	}
}

func (w *World) Transition(caravanID, factionID string, from, to corepkg.State, cause corepkg.EventKind) {
	tick := w.tick.Load()
	w.Emit(protocol.CaravanTransition(tick, caravanID, factionID, string(from), string(to), string(cause)))
	w.audit("CARAVAN_TRANSITION", factionID, map[string]any{
		"caravan": caravanID, "from": string(from), "to": string(to), "cause": string(cause),
	})
	if exiting(to) && w.exitETA[caravanID] == 0 {
		w.exitETA[caravanID] = tick + w.cfg.SpotTravelTicks
	}
}

// DeliverMemo routes a fulfillment-review outcome into the waiting
// caravan's state machine.
func (w *World) DeliverMemo(factionID string, kind corepkg.EventKind, tier corepkg.PartialTier) {
	for _, id := range w.caravanOrder() {
		c := w.caravans[id]
		if c.FactionID == factionID && !c.Done() {
			c.Signal(w, w.tick.Load(), kind, runtimepkg.SignalContext{Tier: tier})
			return
		}
	}
	if w.logger != nil {
		w.logger.Printf("world: memo %s for %s had no caravan to deliver to", kind, factionID)
	}
}

func exiting(s corepkg.State) bool {
	switch s {
	case corepkg.StateEscortingExit, corepkg.StateExitingPassive, corepkg.StateExitingFighting:
		return true
	default:
		return false
	}
}

func messageText(kind corepkg.MessageKind) string {
	switch kind {
	case corepkg.MsgArrived:
		return "a caravan has arrived with your requested goods"
	case corepkg.MsgFulfilled:
		return "the caravan has been paid in full and is leaving satisfied"
	case corepkg.MsgPartialSmall:
		return "the caravan leaves mildly disappointed by the reduced request"
	case corepkg.MsgPartialMedium:
		return "the caravan leaves annoyed at how much of the request was dropped"
	case corepkg.MsgPartialLarge:
		return "the caravan leaves insulted by the gutted request"
	case corepkg.MsgUnfulfilledAttack:
		return "the caravan has lost patience and turned on you"
	case corepkg.MsgUnfulfilledLeave:
		return "the caravan gave up waiting and is heading home"
	case corepkg.MsgCaravanLeaving:
		return "the caravan is leaving"
	default:
		return string(kind)
	}
}
