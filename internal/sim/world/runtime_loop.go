package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"caravanrequest/internal/protocol"
	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
	runtimepkg "caravanrequest/internal/sim/world/feature/caravan/runtime"
	"caravanrequest/internal/sim/world/feature/requests/instants"
	sessionpkg "caravanrequest/internal/sim/world/feature/requests/session"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []protocol.CommandReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			delete(w.observers, id)
		case cmd := <-w.inbox:
			pending = append(pending, cmd)
		case <-ticker.C:
			w.stepInternal(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// SubmitCommand queues a player command for the next tick boundary.
func (w *World) SubmitCommand(cmd protocol.CommandReq) {
	select {
	case w.inbox <- cmd:
	default:
		if w.logger != nil {
			w.logger.Printf("world: inbox full, dropping command %s", cmd.Type)
		}
	}
}

// AttachObserver registers a read-only event stream consumer. Blocks
// until the world loop admits it.
func (w *World) AttachObserver(name string, out chan []byte) ObserverJoinResp {
	resp := make(chan ObserverJoinResp, 1)
	w.observerJoin <- ObserverJoinReq{Name: name, Out: out, Resp: resp}
	return <-resp
}

func (w *World) DetachObserver(id string) {
	w.observerLeave <- id
}

func (w *World) handleObserverJoin(req ObserverJoinReq) {
	id := fmt.Sprintf("OB%04d", w.nextObserverNum.Add(1))
	w.observers[id] = req.Out
	if req.Resp != nil {
		req.Resp <- ObserverJoinResp{
			ID: id,
			Welcome: protocol.WelcomeMsg{
				Type:            protocol.TypeWelcome,
				ProtocolVersion: protocol.Version,
				WorldID:         w.cfg.ID,
				Tick:            w.tick.Load(),
				DayTicks:        w.tun.DayTicks,
				ThingsDigest:    w.db.ThingsDigest,
				ResearchDigest:  w.db.ResearchDigest,
			},
		}
	}
}

// StepOnce advances the world by a single tick with the same ordering
// semantics as the server loop. Intended for tests and replays.
func (w *World) StepOnce(cmds []protocol.CommandReq) uint64 {
	tick := w.tick.Load()
	w.stepInternal(cmds)
	return tick
}

func (w *World) stepInternal(cmds []protocol.CommandReq) {
	nowTick := w.tick.Load()
	w.eventsThisTick = w.eventsThisTick[:0]

	// Catalog population is cooperative: one batch per tick until done.
	if !w.catalog.Loaded() {
		w.catalog.ProcessBatch()
	}

	for _, cmd := range cmds {
		w.applyCommand(cmd, nowTick)
	}

	for _, factionID := range w.deals.DueArrivals(nowTick) {
		w.spawnCaravan(factionID, nowTick)
		// The visit keeps the deal open; the occurrence must not refire.
		w.deals.SetTimeOfOccurence(factionID, sessionpkg.OccurNever)
	}

	for _, id := range w.caravanOrder() {
		c := w.caravans[id]
		if eta := w.spotETA[id]; eta != 0 && nowTick >= eta && c.State == corepkg.StateTraveling {
			delete(w.spotETA, id)
			c.Signal(w, nowTick, corepkg.EvArrivedAtSpot, runtimepkg.SignalContext{})
		}
		if eta := w.exitETA[id]; eta != 0 && nowTick >= eta {
			delete(w.exitETA, id)
			c.Signal(w, nowTick, corepkg.EvExitedMap, runtimepkg.SignalContext{})
		}
		c.Tick(w, nowTick)
		if c.Done() {
			delete(w.caravans, id)
			delete(w.spotETA, id)
			delete(w.exitETA, id)
		}
	}

	w.flushEvents(nowTick)

	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			select {
			case w.snapshotSink <- w.ExportSnapshot(nowTick):
			default:
				// Drop snapshot if the sink is backed up.
			}
		}
	}

	w.tick.Add(1)
}

func (w *World) applyCommand(cmd protocol.CommandReq, nowTick uint64) {
	ar := protocol.ActionResult
	switch cmd.Type {
	case protocol.CmdOpenNegotiation:
		instants.HandleOpenNegotiation(w, ar, cmd, nowTick)
	case protocol.CmdAdjustItem:
		instants.HandleAdjustItem(w, ar, cmd, nowTick)
	case protocol.CmdConfirmDeal:
		instants.HandleConfirmDeal(w, ar, cmd, nowTick)
	case protocol.CmdCancelDeal:
		instants.HandleCancelDeal(w, ar, cmd, nowTick)
	case protocol.CmdReviewItem:
		instants.HandleReviewItem(w, ar, cmd, nowTick)
	case protocol.CmdReviewPayment:
		instants.HandleReviewPayment(w, ar, cmd,
			w.tun.Caravan.PartialSmallMaxValue, w.tun.Caravan.PartialLargeMinValue, nowTick)
	case protocol.CmdPostponePayment:
		instants.HandlePostponePayment(w, ar, cmd, nowTick)
	default:
		w.Emit(ar(nowTick, cmd.ID, false, protocol.ErrBadRequest, "unknown command type"))
	}
}

func (w *World) spawnCaravan(factionID string, nowTick uint64) {
	members := 4
	if d := w.deals.GetOpenDealWith(factionID); d != nil {
		members += len(d.RequestedItems()) / 2
		if members > 12 {
			members = 12
		}
	}
	id := runtimepkg.CaravanID(w.nextCaravanNum.Add(1))
	c := runtimepkg.New(id, factionID, w.cfg.CaravanSpot, members, w.cfg.Seed, w.caravanConfig())
	w.caravans[id] = c
	w.spotETA[id] = nowTick + w.cfg.SpotTravelTicks

	w.Emit(protocol.Event{
		"t":       nowTick,
		"type":    "CARAVAN_SPAWNED",
		"caravan": id,
		"faction": factionID,
		"members": members,
	})
	w.audit("CARAVAN_SPAWNED", factionID, map[string]any{"caravan": id, "members": members})
}

func (w *World) caravanConfig() runtimepkg.Config {
	c := w.tun.Caravan
	return runtimepkg.Config{
		HarmCooldownTicks:    c.HarmCooldownTicks,
		WaitMinTicks:         c.UnfulfilledWaitMinTicks,
		WaitMaxTicks:         c.UnfulfilledWaitMaxTicks,
		AttackDelayTicks:     c.AttackEscortDelayTicks,
		CasualtyExitFraction: c.CasualtyExitFraction,
		Penalties: corepkg.Penalties{
			PartialSmall:    c.PartialPenaltySmall,
			PartialMedium:   c.PartialPenaltyMedium,
			PartialLarge:    c.PartialPenaltyLarge,
			UnfulfilledAlly: c.UnfulfilledAllyPenalty,
		},
	}
}

// NoteCaravanHarm and NoteCaravanLoss are the host's combat hooks.
func (w *World) NoteCaravanHarm(caravanID string) {
	if c := w.caravans[caravanID]; c != nil {
		c.Signal(w, w.tick.Load(), corepkg.EvMemberHarmed, runtimepkg.SignalContext{})
	}
}

func (w *World) NoteCaravanLoss(caravanID string, important bool) {
	if c := w.caravans[caravanID]; c != nil {
		c.NoteMemberLost(w, w.tick.Load(), important)
	}
}

func (w *World) NoteDangerousTemperature(caravanID string) {
	if c := w.caravans[caravanID]; c != nil {
		c.Signal(w, w.tick.Load(), corepkg.EvDangerTemperature, runtimepkg.SignalContext{})
	}
}

func (w *World) NoteTrapped(caravanID string, canReachEdge bool) {
	if c := w.caravans[caravanID]; c != nil {
		c.Signal(w, w.tick.Load(), corepkg.EvTrapped, runtimepkg.SignalContext{CanReachEdge: canReachEdge})
	}
}

func (w *World) CaravanByID(id string) *runtimepkg.Caravan { return w.caravans[id] }

func (w *World) caravanOrder() []string {
	out := make([]string, 0, len(w.caravans))
	for id := range w.caravans {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (w *World) flushEvents(nowTick uint64) {
	if len(w.eventsThisTick) == 0 {
		return
	}
	for _, ev := range w.eventsThisTick {
		if w.eventLogger != nil {
			_ = w.eventLogger.WriteEvent(EventLogEntry{Tick: nowTick, Event: ev})
		}
	}
	if len(w.observers) == 0 {
		return
	}
	for _, ev := range w.eventsThisTick {
		b, err := json.Marshal(protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Event:           ev,
		})
		if err != nil {
			continue
		}
		for _, out := range w.observers {
			sendLatest(out, b)
		}
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
