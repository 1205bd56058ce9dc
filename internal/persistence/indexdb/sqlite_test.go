package indexdb

import (
	"path/filepath"
	"testing"

	"caravanrequest/internal/persistence/snapshot"
	"caravanrequest/internal/protocol"
	"caravanrequest/internal/sim/world"
)

func TestIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteEvent(world.EventLogEntry{Tick: 10, Event: protocol.Event{
		"t": uint64(10), "type": "MESSAGE", "faction": "F1", "kind": "CARAVAN_ARRIVED",
	}})
	_ = idx.WriteEvent(world.EventLogEntry{Tick: 10, Event: protocol.Event{
		"t": uint64(10), "type": "CARAVAN_TRANSITION", "faction": "F1",
	}})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 11, Actor: "world", Action: "GOODWILL_CHANGE", Faction: "F1"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 11, Actor: "world", Action: "FACTION_HOSTILE", Faction: "F2"})
	idx.RecordSnapshot("/tmp/snap-100.bin.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "w1", Tick: 100},
		Silver: 750,
		Deals:  []snapshot.DealV1{{FactionID: "F1"}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	events, err := idx2.EventsBetween(0, 100, 0)
	if err != nil || len(events) != 2 {
		t.Fatalf("events: %v %v", events, err)
	}
	if events[0].Type != "MESSAGE" || events[0].Faction != "F1" {
		t.Fatalf("event row: %+v", events[0])
	}

	audits, err := idx2.AuditsForFaction("F1", 0)
	if err != nil || len(audits) != 1 || audits[0].Action != "GOODWILL_CHANGE" {
		t.Fatalf("audits: %v %v", audits, err)
	}

	snaps, err := idx2.ListSnapshots()
	if err != nil || len(snaps) != 1 || snaps[0].Tick != 100 || snaps[0].Silver != 750 || snaps[0].Deals != 1 {
		t.Fatalf("snapshots: %v %v", snaps, err)
	}
}

func TestWriteAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.Close()
	if err := idx.WriteAudit(world.AuditEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close should be silent: %v", err)
	}
}
