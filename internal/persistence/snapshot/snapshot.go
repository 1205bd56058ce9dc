package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is the versioned per-save blob of the request subsystem:
// open deals as parallel keyed collections, cooldowns, live caravans and
// counters. Missing fields default on import; unparseable entries are
// discarded rather than failing the load.
type SnapshotV1 struct {
	Header Header `json:"header"`

	DayTicks   int   `json:"day_ticks"`
	Seed       int64 `json:"seed"`
	Silver     int   `json:"silver"`
	PlayerTile int   `json:"player_tile"`

	Factions  []FactionV1  `json:"factions"`
	Deals     []DealV1     `json:"deals"`
	Cooldowns []CooldownV1 `json:"cooldowns,omitempty"`
	Caravans  []CaravanV1  `json:"caravans,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type FactionV1 struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TechLevel int    `json:"tech_level"`
	Goodwill  int    `json:"goodwill"`
	Hostile   bool   `json:"hostile,omitempty"`
}

type DealV1 struct {
	FactionID    string   `json:"faction_id"`
	NegotiatorID string   `json:"negotiator_id,omitempty"`
	OccurTick    uint64   `json:"occur_tick"`
	Confirmed    bool     `json:"confirmed,omitempty"`
	Lines        []LineV1 `json:"lines"`
}

type LineV1 struct {
	Category  string  `json:"category"`
	DefID     string  `json:"def_id"`
	StuffID   string  `json:"stuff_id,omitempty"`
	Gender    string  `json:"gender,omitempty"`
	Count     int     `json:"count"`
	UnitPrice float64 `json:"unit_price"`
	Removed   bool    `json:"removed,omitempty"`
	IsPawn    bool    `json:"is_pawn,omitempty"`
}

type CooldownV1 struct {
	FactionID string `json:"faction_id"`
	UntilTick uint64 `json:"until_tick"`
}

type CaravanV1 struct {
	ID        string `json:"id"`
	FactionID string `json:"faction_id"`
	Spot      [3]int `json:"spot"`
	State     string `json:"state"`
	Members   int    `json:"members"`
	Lost      int    `json:"lost,omitempty"`

	MemoSeen     bool   `json:"memo_seen,omitempty"`
	WaitDeadline uint64 `json:"wait_deadline,omitempty"`
}

type CountersV1 struct {
	NextCaravan uint64 `json:"next_caravan"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Header line is informational; the gob body carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
