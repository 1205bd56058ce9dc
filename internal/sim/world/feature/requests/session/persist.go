package session

import (
	snapv1 "caravanrequest/internal/persistence/snapshot"
	catalogpkg "caravanrequest/internal/sim/world/feature/requests/catalog"
	dealpkg "caravanrequest/internal/sim/world/feature/requests/deal"
	"caravanrequest/internal/sim/world/kernel/model"
)

// ExportV1 renders the open-deal map as parallel keyed collections.
func (s *Session) ExportV1() (deals []snapv1.DealV1, cooldowns []snapv1.CooldownV1) {
	for _, factionID := range s.openFactions() {
		d := s.deals[factionID]
		out := snapv1.DealV1{
			FactionID:    factionID,
			NegotiatorID: d.NegotiatorID,
			OccurTick:    s.occur[factionID],
			Confirmed:    s.confirmed[factionID],
		}
		for _, l := range d.RequestedItems() {
			out.Lines = append(out.Lines, snapv1.LineV1{
				Category:  string(l.Archetype.Category),
				DefID:     l.Archetype.DefID,
				StuffID:   l.Archetype.StuffID,
				Gender:    string(l.Archetype.Gender),
				Count:     l.Count,
				UnitPrice: l.UnitPrice,
				Removed:   l.Removed,
				IsPawn:    l.IsPawn,
			})
		}
		deals = append(deals, out)
	}
	for factionID, until := range s.cooldownUntil {
		cooldowns = append(cooldowns, snapv1.CooldownV1{FactionID: factionID, UntilTick: until})
	}
	return deals, cooldowns
}

// ImportV1 rebuilds session state from a snapshot. Malformed deals and
// lines whose archetypes no longer resolve against the catalog are
// discarded with a warning; the session self-heals to an empty map rather
// than failing the load.
func (s *Session) ImportV1(deals []snapv1.DealV1, cooldowns []snapv1.CooldownV1, cat *catalogpkg.Builder) {
	s.deals = map[string]*dealpkg.Deal{}
	s.occur = map[string]uint64{}
	s.confirmed = map[string]bool{}
	s.cooldownUntil = map[string]uint64{}

	warned := false
	warn := func(format string, args ...any) {
		if s.logger != nil && !warned {
			s.logger.Printf("session: discarding incompatible save data (first: "+format+")", args...)
			warned = true
		}
	}

	for _, dv := range deals {
		if dv.FactionID == "" {
			warn("deal without faction")
			continue
		}
		if s.deals[dv.FactionID] != nil {
			warn("duplicate deal for %s", dv.FactionID)
			continue
		}
		d := dealpkg.New(dv.FactionID, dv.NegotiatorID)
		for _, lv := range dv.Lines {
			if lv.Count <= 0 || lv.DefID == "" {
				warn("bad line %s/%s", dv.FactionID, lv.DefID)
				continue
			}
			key := catalogpkg.Key{DefID: lv.DefID, StuffID: lv.StuffID, Gender: model.Gender(lv.Gender)}
			a, ok := cat.ByKey(key)
			if !ok {
				warn("unknown archetype %s", key)
				continue
			}
			d.AdjustItemRequest(a, lv.Count, lv.UnitPrice)
			if lv.Removed {
				d.SetRemoved(a.Category, key, true)
			}
		}
		s.deals[dv.FactionID] = d
		occur := dv.OccurTick
		if occur == 0 {
			occur = OccurNever
		}
		s.occur[dv.FactionID] = occur
		// Older saves lack the flag; a scheduled occurrence implies it.
		if dv.Confirmed || occur != OccurNever {
			s.confirmed[dv.FactionID] = true
		}
	}

	for _, cv := range cooldowns {
		if cv.FactionID == "" {
			warn("cooldown without faction")
			continue
		}
		s.cooldownUntil[cv.FactionID] = cv.UntilTick
	}
}
