package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"caravanrequest/internal/persistence/indexdb"
	"caravanrequest/internal/persistence/snapshot"
)

// Inspects a world's persisted state: a snapshot's deals and caravans,
// and (optionally) the sqlite index for audit trails and event ranges.
func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to .snap.zst")
		dbPath   = flag.String("index", "", "path to index.db (optional)")
		faction  = flag.String("faction", "", "print this faction's audit trail")
		fromTick = flag.Uint64("from_tick", 0, "print events from tick (inclusive)")
		toTick   = flag.Uint64("to_tick", 0, "print events up to tick (inclusive)")
		limit    = flag.Int("limit", 200, "max rows per query")
	)
	flag.Parse()

	if *snapPath == "" && *dbPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -index")
		os.Exit(2)
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		printSnapshot(snap)
	}

	if *dbPath == "" {
		return
	}
	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()

	snaps, err := idx.ListSnapshots()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list snapshots:", err)
		os.Exit(1)
	}
	fmt.Printf("index: %d snapshot(s)\n", len(snaps))
	for _, s := range snaps {
		fmt.Printf("  tick=%d silver=%d deals=%d caravans=%d %s\n", s.Tick, s.Silver, s.Deals, s.Caravans, s.Path)
	}

	if *faction != "" {
		audits, err := idx.AuditsForFaction(*faction, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "audits:", err)
			os.Exit(1)
		}
		fmt.Printf("audit trail for %s: %d row(s)\n", *faction, len(audits))
		for _, a := range audits {
			fmt.Printf("  t=%d %s %s %s\n", a.Tick, a.Actor, a.Action, a.Raw)
		}
	}

	if *toTick > 0 {
		events, err := idx.EventsBetween(*fromTick, *toTick, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "events:", err)
			os.Exit(1)
		}
		fmt.Printf("events in [%d,%d]: %d row(s)\n", *fromTick, *toTick, len(events))
		for _, e := range events {
			fmt.Printf("  t=%d %s %s\n", e.Tick, e.Type, e.Raw)
		}
	}
}

func printSnapshot(snap snapshot.SnapshotV1) {
	fmt.Printf("snapshot v%d world=%s tick=%d seed=%d silver=%d factions=%d deals=%d cooldowns=%d caravans=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Silver,
		len(snap.Factions), len(snap.Deals), len(snap.Cooldowns), len(snap.Caravans))

	for _, f := range snap.Factions {
		hostile := ""
		if f.Hostile {
			hostile = " HOSTILE"
		}
		fmt.Printf("faction %s (%s) tech=%d goodwill=%d%s\n", f.ID, f.Name, f.TechLevel, f.Goodwill, hostile)
	}
	for _, d := range snap.Deals {
		occur := "unscheduled"
		if d.OccurTick != 0 && d.OccurTick != math.MaxUint64 {
			occur = fmt.Sprintf("occur=%d", d.OccurTick)
		}
		fmt.Printf("deal faction=%s negotiator=%s %s lines=%d\n", d.FactionID, d.NegotiatorID, occur, len(d.Lines))
		var total float64
		for _, l := range d.Lines {
			removed := ""
			if l.Removed {
				removed = " (removed)"
			} else {
				total += float64(l.Count) * l.UnitPrice
			}
			fmt.Printf("  %-10s %s x%d @ %.2f%s\n", l.Category, lineName(l), l.Count, l.UnitPrice, removed)
		}
		fmt.Printf("  total due: %.2f\n", total)
	}
	for _, c := range snap.Caravans {
		fmt.Printf("caravan %s faction=%s state=%s members=%d lost=%d spot=%v\n",
			c.ID, c.FactionID, c.State, c.Members, c.Lost, c.Spot)
	}
}

func lineName(l snapshot.LineV1) string {
	name := l.DefID
	if l.StuffID != "" {
		name = l.StuffID + "/" + name
	}
	if l.Gender != "" {
		name += ":" + l.Gender
	}
	return name
}
