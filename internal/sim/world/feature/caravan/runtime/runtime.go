package runtime

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
	"caravanrequest/internal/sim/world/kernel/model"
)

// Env is what a caravan needs from the surrounding world. The world
// implements it; tests stub it.
type Env interface {
	Relation(factionID string) model.RelationKind
	GoodwillChange(factionID string, delta int)
	SetHostile(factionID string)
	Message(kind corepkg.MessageKind, factionID string)
	CloseOpenDeal(factionID string)
	EndCaravanJobs(caravanID string)
	Transition(caravanID, factionID string, from, to corepkg.State, cause corepkg.EventKind)
}

type Config struct {
	HarmCooldownTicks uint64
	WaitMinTicks      uint64
	WaitMaxTicks      uint64
	AttackDelayTicks  uint64

	CasualtyExitFraction float64

	Penalties corepkg.Penalties
}

// Caravan is the runtime of one dispatched group: current state plus the
// timer parameters driving the transition table. Behavior is data plus
// free update functions, not a class hierarchy.
type Caravan struct {
	ID        string
	FactionID string
	Spot      [3]int

	State corepkg.State

	Members int
	Lost    int

	cfg Config
	rng *rand.Rand

	// prior is the state Defending reverts to once harm quiets down.
	prior corepkg.State

	harmQuietAt    uint64
	waitDeadline   uint64
	attackDeadline uint64
	memoSeen       bool
}

// CaravanID derives the counter-based runtime ID.
func CaravanID(n uint64) string {
	return fmt.Sprintf("CV%06d", n)
}

// New starts a caravan in the traveling state, headed for its designated
// wait spot. Timers are seeded per-caravan; tests assert bounded ranges,
// not exact values.
func New(id, factionID string, spot [3]int, members int, seed int64, cfg Config) *Caravan {
	return &Caravan{
		ID:        id,
		FactionID: factionID,
		Spot:      spot,
		State:     corepkg.StateTraveling,
		Members:   members,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(seedWord(seed, id+"a"), seedWord(seed, id+"b"))),
		prior:     corepkg.StateTraveling,
	}
}

// Restore rebuilds a caravan from persisted state. Timer deadlines are
// not persisted; restored attack and defend phases re-arm their delays
// from now so the caravan can never hang in a timed state.
func Restore(id, factionID string, spot [3]int, st corepkg.State, members, lost int, seed int64, now uint64, cfg Config) (*Caravan, error) {
	switch st {
	case corepkg.StateTraveling, corepkg.StateWaiting, corepkg.StateDefending,
		corepkg.StateAttacking, corepkg.StateEscortingExit,
		corepkg.StateExitingPassive, corepkg.StateExitingFighting, corepkg.StateDeparted:
	default:
		return nil, fmt.Errorf("unknown caravan state %q", st)
	}
	c := New(id, factionID, spot, members, seed, cfg)
	c.State = st
	c.Lost = lost
	switch st {
	case corepkg.StateDefending:
		c.prior = corepkg.StateWaiting
		c.harmQuietAt = now + cfg.HarmCooldownTicks
	case corepkg.StateAttacking:
		c.memoSeen = true
		c.attackDeadline = now + cfg.AttackDelayTicks
	case corepkg.StateEscortingExit, corepkg.StateExitingPassive, corepkg.StateExitingFighting:
		c.memoSeen = true
	}
	return c, nil
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}

func (c *Caravan) Done() bool { return c.State == corepkg.StateDeparted }

// Tick advances timer-driven transitions for the current tick.
func (c *Caravan) Tick(env Env, now uint64) {
	if c.Done() {
		return
	}
	if c.State == corepkg.StateDefending && c.harmQuietAt != 0 && now >= c.harmQuietAt {
		c.Signal(env, now, corepkg.EvHarmQuietElapsed, SignalContext{})
	}
	if c.waitDeadline != 0 && now >= c.waitDeadline {
		c.waitDeadline = 0
		c.Signal(env, now, corepkg.EvWaitExpired, SignalContext{})
	}
	if c.attackDeadline != 0 && now >= c.attackDeadline {
		c.attackDeadline = 0
		c.Signal(env, now, corepkg.EvAttackDelayDone, SignalContext{})
	}
}

// SignalContext carries per-event context for externally raised events.
type SignalContext struct {
	Tier         corepkg.PartialTier
	CanReachEdge bool
}

// Signal feeds one event through the transition table and applies the
// resulting action plan.
func (c *Caravan) Signal(env Env, now uint64, ev corepkg.EventKind, sc SignalContext) {
	if ev == corepkg.EvMemoFulfilled || ev == corepkg.EvMemoUnfulfilled || ev == corepkg.EvMemoPartial {
		// A deal resolves exactly once.
		if c.memoSeen {
			return
		}
		c.memoSeen = true
	}

	in := corepkg.TransitionInput{
		State:        c.State,
		Event:        ev,
		Tier:         sc.Tier,
		Relation:     env.Relation(c.FactionID),
		CanReachEdge: sc.CanReachEdge,
		Fighting:     c.State == corepkg.StateDefending || c.State == corepkg.StateAttacking,
	}
	tr, ok := corepkg.Decide(in, c.cfg.Penalties)
	if !ok {
		return
	}
	c.apply(env, now, ev, tr)
}

// NoteMemberLost records a casualty and raises the appropriate exit
// trigger when the loss crosses a threshold.
func (c *Caravan) NoteMemberLost(env Env, now uint64, important bool) {
	if c.Done() || c.Members <= 0 {
		return
	}
	c.Lost++
	if important {
		c.Signal(env, now, corepkg.EvImportantCasualty, SignalContext{})
		return
	}
	if float64(c.Lost)/float64(c.Members) > c.cfg.CasualtyExitFraction {
		c.Signal(env, now, corepkg.EvHeavyCasualties, SignalContext{})
	}
}

func (c *Caravan) apply(env Env, now uint64, ev corepkg.EventKind, tr corepkg.Transition) {
	from := c.State
	next := tr.Next

	switch ev {
	case corepkg.EvMemberHarmed:
		if from != corepkg.StateDefending {
			c.prior = from
		}
	case corepkg.EvHarmQuietElapsed:
		// Revert to whatever the caravan was doing before the attack.
		next = c.prior
		c.harmQuietAt = 0
	}

	if tr.StartHarmCooldown {
		c.harmQuietAt = now + c.cfg.HarmCooldownTicks
	}
	if tr.StartWaitWindow {
		c.waitDeadline = now + c.randRange(c.cfg.WaitMinTicks, c.cfg.WaitMaxTicks)
	}
	if tr.StartAttackDelay {
		c.attackDeadline = now + c.cfg.AttackDelayTicks
	}

	c.State = next

	if tr.FlipHostile {
		env.SetHostile(c.FactionID)
	}
	if tr.GoodwillDelta != 0 {
		env.GoodwillChange(c.FactionID, tr.GoodwillDelta)
	}
	if tr.Message != corepkg.MsgNone {
		env.Message(tr.Message, c.FactionID)
	}
	if tr.CloseDeal {
		env.CloseOpenDeal(c.FactionID)
	}
	if tr.EndJobs {
		env.EndCaravanJobs(c.ID)
	}
	if from != c.State {
		env.Transition(c.ID, c.FactionID, from, c.State, ev)
	}
}

func (c *Caravan) randRange(min, max uint64) uint64 {
	if max <= min {
		return min
	}
	return min + c.rng.Uint64N(max-min+1)
}

// WaitDeadline exposes the pending unfulfilled-wait deadline for
// bounded-range assertions and snapshots.
func (c *Caravan) WaitDeadline() uint64 { return c.waitDeadline }

// MemoSeen reports whether the visit's deal has already resolved.
func (c *Caravan) MemoSeen() bool { return c.memoSeen }

// RestoreMemo reapplies persisted memo state on top of Restore, so a
// caravan saved mid-wait after an unfulfilled review resumes its
// patience window instead of reverting to pre-memo waiting.
func (c *Caravan) RestoreMemo(waitDeadline uint64, memoSeen bool) {
	if memoSeen {
		c.memoSeen = true
	}
	if waitDeadline != 0 {
		c.waitDeadline = waitDeadline
	}
}
