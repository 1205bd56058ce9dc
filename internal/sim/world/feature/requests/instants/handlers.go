package instants

import (
	"fmt"

	"caravanrequest/internal/protocol"
	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
	catalogpkg "caravanrequest/internal/sim/world/feature/requests/catalog"
	sessionpkg "caravanrequest/internal/sim/world/feature/requests/session"
	modelpkg "caravanrequest/internal/sim/world/kernel/model"
)

type ActionResultFn func(tick uint64, ref string, ok bool, code string, message string) protocol.Event

// NegotiateEnv is what the open/adjust/cancel handlers need from the world.
type NegotiateEnv interface {
	FactionByID(id string) *modelpkg.Faction
	PawnByID(id string) *modelpkg.Pawn
	Catalog() *catalogpkg.Builder
	Deals() *sessionpkg.Session
	QuoteUnitPrice(a catalogpkg.Archetype, f *modelpkg.Faction, negotiator *modelpkg.Pawn) float64
	Emit(ev protocol.Event)
}

// ConfirmEnv adds arrival scheduling on top of the negotiation surface.
type ConfirmEnv interface {
	NegotiateEnv
	JourneyTicks(factionID string) uint64
	DayTicks() int
}

// ReviewEnv is the fulfillment-review surface: the silver ledger plus
// memo delivery into the waiting caravan's state machine.
type ReviewEnv interface {
	FactionByID(id string) *modelpkg.Faction
	Catalog() *catalogpkg.Builder
	Deals() *sessionpkg.Session
	SilverAvailable() int
	SpendSilver(n int) bool
	DeliverMemo(factionID string, kind corepkg.EventKind, tier corepkg.PartialTier)
	Emit(ev protocol.Event)
}

func HandleOpenNegotiation(env NegotiateEnv, ar ActionResultFn, cmd protocol.CommandReq, nowTick uint64) {
	if ok, code, msg := ValidateOpenInput(cmd.Faction, cmd.Negotiator); !ok {
		env.Emit(ar(nowTick, cmd.ID, false, code, msg))
		return
	}
	f := env.FactionByID(cmd.Faction)
	if f == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "faction not found"))
		return
	}
	if f.Relation() == modelpkg.RelationHostile {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "faction is hostile"))
		return
	}
	neg := env.PawnByID(cmd.Negotiator)
	if neg == nil || neg.Lost {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "negotiator unavailable"))
		return
	}
	if !env.Catalog().Loaded() {
		done, total := env.Catalog().Progress()
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNotLoaded,
			fmt.Sprintf("item catalog still loading (%d/%d)", done, total)))
		return
	}
	if ok, code, msg := env.Deals().SetupWith(cmd.Faction, cmd.Negotiator, nowTick); !ok {
		env.Emit(ar(nowTick, cmd.ID, false, code, msg))
		return
	}

	listing := map[string][]protocol.Event{}
	for cat, items := range env.Catalog().RequestableFor(f) {
		for _, a := range items {
			listing[string(cat)] = append(listing[string(cat)], protocol.Event{
				"def":        a.DefID,
				"stuff":      a.StuffID,
				"gender":     string(a.Gender),
				"label":      a.Label,
				"unit_price": env.QuoteUnitPrice(a, f, neg),
			})
		}
	}
	ev := ar(nowTick, cmd.ID, true, "", "")
	ev["faction"] = cmd.Faction
	ev["catalog"] = listing
	env.Emit(ev)
}

func HandleAdjustItem(env NegotiateEnv, ar ActionResultFn, cmd protocol.CommandReq, nowTick uint64) {
	if ok, code, msg := ValidateItemInput(cmd.Faction, cmd.DefID); !ok {
		env.Emit(ar(nowTick, cmd.ID, false, code, msg))
		return
	}
	d := env.Deals().GetOpenDealWith(cmd.Faction)
	if d == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoDeal, "no open deal with this faction"))
		return
	}
	if env.Deals().Confirmed(cmd.Faction) {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrConfirmed, "request already confirmed; the caravan is committed"))
		return
	}
	f := env.FactionByID(cmd.Faction)
	if f == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "faction not found"))
		return
	}
	key := catalogpkg.Key{DefID: cmd.DefID, StuffID: cmd.StuffID, Gender: modelpkg.Gender(cmd.Gender)}
	a, ok := env.Catalog().ByKey(key)
	if !ok || !env.Catalog().IsBuyableItem(key, f) {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "item not requestable from this faction"))
		return
	}

	// The price locks in when the line is first added; count changes keep
	// the quoted price.
	price, locked := d.UnitPriceFor(a.Category, key)
	if !locked {
		price = env.QuoteUnitPrice(a, f, env.PawnByID(d.NegotiatorID))
	}
	d.AdjustItemRequest(a, cmd.Count, price)

	ev := ar(nowTick, cmd.ID, true, "", "")
	ev["faction"] = cmd.Faction
	ev["def"] = a.DefID
	ev["count"] = d.CountFor(a.Category, key)
	ev["unit_price"] = price
	ev["total"] = d.TotalRequestedValue()
	env.Emit(ev)
}

func HandleConfirmDeal(env ConfirmEnv, ar ActionResultFn, cmd protocol.CommandReq, nowTick uint64) {
	d := env.Deals().GetOpenDealWith(cmd.Faction)
	if d == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoDeal, "no open deal with this faction"))
		return
	}
	// Empty confirmation is refused, not crashed on; the deal stays open.
	if d.Empty() {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrEmptyRequest, "nothing requested"))
		return
	}
	// A deal confirms once. Re-confirming would reschedule the occurrence
	// and spawn a second caravan for the same faction, which no memo could
	// ever resolve.
	if env.Deals().Confirmed(cmd.Faction) {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrConfirmed, "request already confirmed"))
		return
	}

	journey := env.JourneyTicks(cmd.Faction)
	occur := nowTick + journey
	env.Deals().SetTimeOfOccurence(cmd.Faction, occur)

	days := 0.0
	if env.DayTicks() > 0 {
		days = float64(journey) / float64(env.DayTicks())
	}
	ev := ar(nowTick, cmd.ID, true, "", "")
	ev["faction"] = cmd.Faction
	ev["total"] = d.TotalRequestedValue()
	ev["arrival_tick"] = occur
	ev["eta_days"] = days
	env.Emit(ev)
	env.Emit(protocol.PlayerMessage(nowTick, "REQUEST_CONFIRMED", cmd.Faction,
		fmt.Sprintf("a caravan will arrive in about %.1f days", days)))
}

func HandleCancelDeal(env NegotiateEnv, ar ActionResultFn, cmd protocol.CommandReq, nowTick uint64) {
	if env.Deals().GetOpenDealWith(cmd.Faction) == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoDeal, "no open deal with this faction"))
		return
	}
	env.Deals().CloseOpenDealWith(cmd.Faction, nowTick)
	env.Emit(ar(nowTick, cmd.ID, true, "", "request withdrawn"))
}

func HandleReviewItem(env ReviewEnv, ar ActionResultFn, cmd protocol.CommandReq, nowTick uint64) {
	if ok, code, msg := ValidateItemInput(cmd.Faction, cmd.DefID); !ok {
		env.Emit(ar(nowTick, cmd.ID, false, code, msg))
		return
	}
	d := env.Deals().GetOpenDealWith(cmd.Faction)
	if d == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoDeal, "no open deal with this faction"))
		return
	}
	key := catalogpkg.Key{DefID: cmd.DefID, StuffID: cmd.StuffID, Gender: modelpkg.Gender(cmd.Gender)}
	a, ok := env.Catalog().ByKey(key)
	if !ok || !d.SetRemoved(a.Category, key, cmd.Removed) {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no such line in the deal"))
		return
	}
	ev := ar(nowTick, cmd.ID, true, "", "")
	ev["faction"] = cmd.Faction
	ev["def"] = cmd.DefID
	ev["removed"] = cmd.Removed
	ev["total"] = d.TotalRequestedValue()
	ev["removed_value"] = d.RemovedValue()
	env.Emit(ev)
}

func HandleReviewPayment(env ReviewEnv, ar ActionResultFn, cmd protocol.CommandReq, smallMax, largeMin float64, nowTick uint64) {
	d := env.Deals().GetOpenDealWith(cmd.Faction)
	if d == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoDeal, "no open deal with this faction"))
		return
	}

	kind, tier, cost := PaymentOutcome(
		d.TotalRequestedValue(), d.RemovedValue(), env.SilverAvailable(), smallMax, largeMin)

	if kind == corepkg.EvMemoUnfulfilled {
		env.DeliverMemo(cmd.Faction, kind, tier)
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoSilver,
			fmt.Sprintf("payment of %d silver exceeds available funds", cost)))
		return
	}
	if cost > 0 && !env.SpendSilver(cost) {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrInternal, "silver ledger refused the payment"))
		return
	}
	env.DeliverMemo(cmd.Faction, kind, tier)

	ev := ar(nowTick, cmd.ID, true, "", "")
	ev["faction"] = cmd.Faction
	ev["paid"] = cost
	ev["outcome"] = string(kind)
	if tier != corepkg.TierNone {
		ev["tier"] = string(tier)
	}
	env.Emit(ev)
}

func HandlePostponePayment(env ReviewEnv, ar ActionResultFn, cmd protocol.CommandReq, nowTick uint64) {
	if env.Deals().GetOpenDealWith(cmd.Faction) == nil {
		env.Emit(ar(nowTick, cmd.ID, false, protocol.ErrNoDeal, "no open deal with this faction"))
		return
	}
	// No memo and no timer: the caravan stays at the spot until the player
	// reviews again or something else (harm, casualties) ends the visit.
	env.Emit(ar(nowTick, cmd.ID, true, "", "payment postponed"))
}
