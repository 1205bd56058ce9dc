package world

import (
	"sort"

	"caravanrequest/internal/persistence/snapshot"
	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
	runtimepkg "caravanrequest/internal/sim/world/feature/caravan/runtime"
	"caravanrequest/internal/sim/world/kernel/model"
)

func (w *World) ExportSnapshot(tick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: 1, WorldID: w.cfg.ID, Tick: tick},
		DayTicks:   w.tun.DayTicks,
		Seed:       w.cfg.Seed,
		Silver:     w.silver,
		PlayerTile: w.playerTile,
		Counters:   snapshot.CountersV1{NextCaravan: w.nextCaravanNum.Load()},
	}

	ids := make([]string, 0, len(w.factions))
	for id := range w.factions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := w.factions[id]
		snap.Factions = append(snap.Factions, snapshot.FactionV1{
			ID:        f.ID,
			Name:      f.Name,
			TechLevel: f.TechLevel,
			Goodwill:  f.Goodwill,
			Hostile:   f.Hostile,
		})
	}

	snap.Deals, snap.Cooldowns = w.deals.ExportV1()

	for _, id := range w.caravanOrder() {
		c := w.caravans[id]
		snap.Caravans = append(snap.Caravans, snapshot.CaravanV1{
			ID:           c.ID,
			FactionID:    c.FactionID,
			Spot:         c.Spot,
			State:        string(c.State),
			Members:      c.Members,
			Lost:         c.Lost,
			MemoSeen:     c.MemoSeen(),
			WaitDeadline: c.WaitDeadline(),
		})
	}
	return snap
}

// ImportSnapshot rebuilds world state from a save. Incompatible entries
// are discarded with a warning; a partially readable save loads rather
// than failing.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) {
	w.tick.Store(snap.Header.Tick)
	w.silver = snap.Silver
	if snap.PlayerTile != 0 {
		w.playerTile = snap.PlayerTile
	}
	w.nextCaravanNum.Store(snap.Counters.NextCaravan)

	w.factions = map[string]*model.Faction{}
	for _, fv := range snap.Factions {
		if fv.ID == "" {
			continue
		}
		w.factions[fv.ID] = &model.Faction{
			ID:        fv.ID,
			Name:      fv.Name,
			TechLevel: fv.TechLevel,
			Goodwill:  fv.Goodwill,
			Hostile:   fv.Hostile,
		}
	}

	// Deal lines resolve against the catalog, so it must be fully
	// populated before import; batching only matters during play.
	w.catalog.Reset()
	for !w.catalog.ProcessBatch() {
	}
	w.deals.ImportV1(snap.Deals, snap.Cooldowns, w.catalog)

	w.caravans = map[string]*runtimepkg.Caravan{}
	w.spotETA = map[string]uint64{}
	w.exitETA = map[string]uint64{}
	now := snap.Header.Tick
	for _, cv := range snap.Caravans {
		if cv.ID == "" || cv.FactionID == "" {
			continue
		}
		c, err := runtimepkg.Restore(cv.ID, cv.FactionID, cv.Spot, corepkg.State(cv.State),
			cv.Members, cv.Lost, w.cfg.Seed, now, w.caravanConfig())
		if err != nil {
			if w.logger != nil {
				w.logger.Printf("world: discarding caravan %s from save: %v", cv.ID, err)
			}
			continue
		}
		if c.Done() {
			continue
		}
		c.RestoreMemo(cv.WaitDeadline, cv.MemoSeen)
		w.caravans[cv.ID] = c
		switch c.State {
		case corepkg.StateTraveling:
			w.spotETA[cv.ID] = now + w.cfg.SpotTravelTicks
		case corepkg.StateEscortingExit, corepkg.StateExitingPassive, corepkg.StateExitingFighting:
			w.exitETA[cv.ID] = now + w.cfg.SpotTravelTicks
		}
	}

	w.arrivals.ResetTravelTimeCache()
}
