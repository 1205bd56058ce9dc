package world

import (
	"testing"

	"caravanrequest/internal/protocol"
	"caravanrequest/internal/sim/content"
	"caravanrequest/internal/sim/tuning"
	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
	"caravanrequest/internal/sim/world/kernel/model"
)

func testDB() *content.Database {
	return &content.Database{
		Things: map[string]content.ThingDef{
			"STEEL": {ID: "STEEL", Label: "steel", Kind: "ITEM", BaseMarketValue: 2.0, CountAsResource: true, Stackable: true},
			"WOOD":  {ID: "WOOD", Label: "wood", Kind: "ITEM", BaseMarketValue: 1.0, CountAsResource: true, Stackable: true},
		},
		ThingOrder:   []string{"STEEL", "WOOD"},
		ThingsDigest: "test-things",
	}
}

func newTestWorld(t *testing.T, silver int) *World {
	t.Helper()
	tun := tuning.Default()
	tun.Caravan.UnfulfilledWaitMinTicks = 100
	tun.Caravan.UnfulfilledWaitMaxTicks = 200
	tun.Caravan.AttackEscortDelayTicks = 50
	tun.Caravan.HarmCooldownTicks = 30

	w := New(WorldConfig{
		ID:              "w1",
		Seed:            42,
		PlayerTile:      0,
		StartSilver:     silver,
		CaravanSpot:     [3]int{8, 64, 8},
		SpotTravelTicks: 10,
	}, tun, testDB(), nil)
	w.AddFaction(&model.Faction{ID: "F1", Name: "Outlanders", TechLevel: 4})
	w.AddPawn(&model.Pawn{ID: "N1", Name: "negotiator"})
	w.AddSettlement(model.Settlement{ID: "S1", FactionID: "F1", Tile: 1})
	return w
}

func (w *World) advanceTo(tick uint64) {
	for w.Tick() < tick {
		w.StepOnce(nil)
	}
}

func openConfirmedDeal(t *testing.T, w *World) {
	t.Helper()
	w.StepOnce(nil) // catalog batch
	w.StepOnce([]protocol.CommandReq{{ID: "c1", Type: protocol.CmdOpenNegotiation, Faction: "F1", Negotiator: "N1"}})
	w.StepOnce([]protocol.CommandReq{
		{ID: "c2", Type: protocol.CmdAdjustItem, Faction: "F1", DefID: "STEEL", Count: 200},
		{ID: "c3", Type: protocol.CmdAdjustItem, Faction: "F1", DefID: "WOOD", Count: 25},
		{ID: "c4", Type: protocol.CmdConfirmDeal, Faction: "F1"},
	})
	if _, ok := w.Deals().TimeOfOccurence("F1"); !ok {
		t.Fatalf("confirm did not schedule an arrival")
	}
}

func waitingCaravan(t *testing.T, w *World) string {
	t.Helper()
	occur, _ := w.Deals().TimeOfOccurence("F1")
	w.advanceTo(occur + 1)
	ids := w.caravanOrder()
	if len(ids) != 1 {
		t.Fatalf("expected one caravan, got %v", ids)
	}
	w.advanceTo(occur + w.cfg.SpotTravelTicks + 1)
	if st := w.CaravanByID(ids[0]).State; st != corepkg.StateWaiting {
		t.Fatalf("caravan should be waiting, got %s", st)
	}
	return ids[0]
}

func TestRequestFulfilledEndToEnd(t *testing.T) {
	w := newTestWorld(t, 10000)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	// STEEL 200 @ 3.0 + WOOD 25 @ 1.5 = 637.5, ceil 638.
	w.StepOnce([]protocol.CommandReq{{ID: "c5", Type: protocol.CmdReviewPayment, Faction: "F1"}})
	if w.SilverAvailable() != 10000-638 {
		t.Fatalf("silver: %d", w.SilverAvailable())
	}
	c := w.CaravanByID(id)
	if c.State != corepkg.StateEscortingExit {
		t.Fatalf("state: %s", c.State)
	}
	if w.Deals().GetOpenDealWith("F1") != nil {
		t.Fatalf("deal should be closed on fulfillment")
	}

	w.advanceTo(w.Tick() + w.cfg.SpotTravelTicks + 1)
	if w.CaravanByID(id) != nil {
		t.Fatalf("caravan should have departed")
	}
	if w.FactionByID("F1").Goodwill != 0 {
		t.Fatalf("full payment costs no goodwill: %d", w.FactionByID("F1").Goodwill)
	}
}

func TestNotEnoughSilverGoesUnfulfilled(t *testing.T) {
	w := newTestWorld(t, 300)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	w.StepOnce([]protocol.CommandReq{{ID: "c5", Type: protocol.CmdReviewPayment, Faction: "F1"}})
	if w.SilverAvailable() != 300 {
		t.Fatalf("no partial spend on refusal: %d", w.SilverAvailable())
	}
	c := w.CaravanByID(id)
	if c.State != corepkg.StateWaiting || c.WaitDeadline() == 0 {
		t.Fatalf("caravan should linger: %s deadline=%d", c.State, c.WaitDeadline())
	}

	// Neutral faction: patience runs out, they turn hostile and attack.
	w.advanceTo(c.WaitDeadline() + 1)
	f := w.FactionByID("F1")
	if c.State != corepkg.StateAttacking || f.Relation() != model.RelationHostile {
		t.Fatalf("expiry: %s relation=%s", c.State, f.Relation())
	}
	if w.Deals().GetOpenDealWith("F1") != nil {
		t.Fatalf("deal must close when the caravan gives up")
	}

	w.advanceTo(w.Tick() + 50 + w.cfg.SpotTravelTicks + 2)
	if w.CaravanByID(id) != nil {
		t.Fatalf("caravan should be gone after the attack winds down")
	}
}

func TestUnfulfilledAllyLeavesPeacefully(t *testing.T) {
	w := newTestWorld(t, 300)
	w.FactionByID("F1").Goodwill = 90
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	w.StepOnce([]protocol.CommandReq{{ID: "c5", Type: protocol.CmdReviewPayment, Faction: "F1"}})
	c := w.CaravanByID(id)
	w.advanceTo(c.WaitDeadline() + 1)
	f := w.FactionByID("F1")
	if c.State != corepkg.StateExitingPassive || f.Hostile {
		t.Fatalf("ally should leave: %s hostile=%v", c.State, f.Hostile)
	}
	if f.Goodwill != 90-30 {
		t.Fatalf("goodwill: %d", f.Goodwill)
	}
}

func TestPartialTierFollowsRemovedValue(t *testing.T) {
	w := newTestWorld(t, 10000)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	// Drop the small WOOD line (37.5 removed) and pay the 600 remainder:
	// the penalty tier tracks the removed 37.5, not the 600 paid.
	w.StepOnce([]protocol.CommandReq{
		{ID: "c5", Type: protocol.CmdReviewItem, Faction: "F1", DefID: "WOOD", Removed: true},
		{ID: "c6", Type: protocol.CmdReviewPayment, Faction: "F1"},
	})
	if w.SilverAvailable() != 10000-600 {
		t.Fatalf("silver: %d", w.SilverAvailable())
	}
	c := w.CaravanByID(id)
	if c.State != corepkg.StateExitingPassive {
		t.Fatalf("state: %s", c.State)
	}
	if got := w.FactionByID("F1").Goodwill; got != -5 {
		t.Fatalf("small-tier penalty expected, goodwill %d", got)
	}
}

func TestHarmWhileWaitingDefendsThenResumes(t *testing.T) {
	w := newTestWorld(t, 10000)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	w.NoteCaravanHarm(id)
	c := w.CaravanByID(id)
	if c.State != corepkg.StateDefending {
		t.Fatalf("state: %s", c.State)
	}
	w.advanceTo(w.Tick() + 31)
	if c.State != corepkg.StateWaiting {
		t.Fatalf("should resume waiting: %s", c.State)
	}
}

func TestSnapshotRoundTripRestoresVisit(t *testing.T) {
	w := newTestWorld(t, 5000)
	w.FactionByID("F1").Goodwill = 40
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	snap := w.ExportSnapshot(w.Tick())

	w2 := newTestWorld(t, 0)
	w2.ImportSnapshot(snap)
	if w2.SilverAvailable() != 5000 || w2.FactionByID("F1").Goodwill != 40 {
		t.Fatalf("scalar state lost")
	}
	d := w2.Deals().GetOpenDealWith("F1")
	if d == nil || d.TotalRequestedValue() != 637.5 {
		t.Fatalf("deal lost: %v", d)
	}
	c := w2.CaravanByID(id)
	if c == nil || c.State != corepkg.StateWaiting {
		t.Fatalf("caravan lost: %v", c)
	}

	// The restored visit still resolves normally.
	w2.StepOnce([]protocol.CommandReq{{ID: "c9", Type: protocol.CmdReviewPayment, Faction: "F1"}})
	if c.State != corepkg.StateEscortingExit {
		t.Fatalf("restored caravan should accept payment: %s", c.State)
	}
}

func TestReconfirmDuringVisitSpawnsNoSecondCaravan(t *testing.T) {
	w := newTestWorld(t, 10000)
	openConfirmedDeal(t, w)
	waitingCaravan(t, w)

	// The deal is still open while the caravan waits; a repeated confirm
	// must not reschedule the occurrence and book a second caravan.
	w.StepOnce([]protocol.CommandReq{{ID: "c5", Type: protocol.CmdConfirmDeal, Faction: "F1"}})
	w.advanceTo(w.Tick() + 2500)
	if n := len(w.caravanOrder()); n != 1 {
		t.Fatalf("expected one caravan, got %d", n)
	}

	// The lone visit still resolves and nothing is left stranded.
	w.StepOnce([]protocol.CommandReq{{ID: "c6", Type: protocol.CmdReviewPayment, Faction: "F1"}})
	w.advanceTo(w.Tick() + w.cfg.SpotTravelTicks + 1)
	if n := len(w.caravanOrder()); n != 0 {
		t.Fatalf("stranded caravans: %d", n)
	}
}

func TestHostHazardHooksEndTheVisit(t *testing.T) {
	w := newTestWorld(t, 10000)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)
	w.NoteDangerousTemperature(id)
	if st := w.CaravanByID(id).State; st != corepkg.StateEscortingExit {
		t.Fatalf("temperature exit: %s", st)
	}
	if w.Deals().GetOpenDealWith("F1") != nil {
		t.Fatalf("deal must close on a weather exit")
	}

	w2 := newTestWorld(t, 10000)
	openConfirmedDeal(t, w2)
	id2 := waitingCaravan(t, w2)
	w2.NoteTrapped(id2, false)
	if st := w2.CaravanByID(id2).State; st != corepkg.StateExitingPassive {
		t.Fatalf("trapped exit: %s", st)
	}
}

func TestSnapshotKeepsUnfulfilledWait(t *testing.T) {
	w := newTestWorld(t, 300)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)
	w.StepOnce([]protocol.CommandReq{{ID: "c5", Type: protocol.CmdReviewPayment, Faction: "F1"}})
	deadline := w.CaravanByID(id).WaitDeadline()
	if deadline == 0 {
		t.Fatalf("no wait window armed")
	}

	w2 := newTestWorld(t, 0)
	w2.ImportSnapshot(w.ExportSnapshot(w.Tick()))
	c := w2.CaravanByID(id)
	if c == nil || c.WaitDeadline() != deadline || !c.MemoSeen() {
		t.Fatalf("wait state lost: %+v", c)
	}

	// Patience still runs out at the original deadline after a reload.
	w2.advanceTo(deadline + 1)
	if c.State != corepkg.StateAttacking {
		t.Fatalf("restored wait should expire: %s", c.State)
	}
}

func TestCasualtiesEndTheVisit(t *testing.T) {
	w := newTestWorld(t, 10000)
	openConfirmedDeal(t, w)
	id := waitingCaravan(t, w)

	c := w.CaravanByID(id)
	for i := 0; i < c.Members; i++ {
		w.NoteCaravanLoss(id, false)
	}
	if c.State == corepkg.StateWaiting {
		t.Fatalf("losses should force an exit")
	}
	if w.Deals().GetOpenDealWith("F1") != nil {
		t.Fatalf("deal must close when the visit collapses")
	}
}
