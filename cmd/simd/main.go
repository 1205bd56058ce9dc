package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"caravanrequest/internal/persistence/indexdb"
	persistlog "caravanrequest/internal/persistence/log"
	"caravanrequest/internal/persistence/snapshot"
	"caravanrequest/internal/sim/content"
	"caravanrequest/internal/sim/tuning"
	"caravanrequest/internal/sim/world"
	"caravanrequest/internal/sim/world/kernel/model"
	"caravanrequest/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting fresh)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present")

		startSilver = flag.Int("silver", 2000, "starting silver for a fresh world")
		snapEvery   = flag.Int("snapshot_every", 3000, "snapshot interval in ticks (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[simd] ", log.LstdFlags|log.Lmicroseconds)

	db, err := content.Load(*configDir)
	if err != nil {
		logger.Fatalf("load content: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertContent(*configDir, db, tune); err != nil {
			logger.Printf("index: upsert content: %v", err)
		}
	}

	sc, scErr := loadScenario(*configDir)

	w := world.New(world.WorldConfig{
		ID:                 *worldID,
		Seed:               *seed,
		PlayerTile:         sc.PlayerTile,
		StartSilver:        *startSilver,
		CaravanSpot:        [3]int{0, 64, 0},
		SnapshotEveryTicks: *snapEvery,
	}, tune, db, logger)

	eventLog := persistlog.NewEventLogger(worldDir)
	defer eventLog.Close()
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()
	w.SetLoggers(
		teeEventLogger{eventLog, idx},
		teeAuditLogger{auditLog, idx},
	)

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		w.ImportSnapshot(snap)
		logger.Printf("resumed world %s at tick %d", *worldID, snap.Header.Tick)
	} else {
		if scErr != nil {
			logger.Fatalf("seed scenario: %v", scErr)
		}
		seedScenario(w, sc)
		logger.Printf("fresh world %s (seed %d)", *worldID, *seed)
	}

	// Snapshot writer runs off the sim thread.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for snap := range snapCh {
			path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("snap-%012d.snap.zst", snap.Header.Tick))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("write snapshot: %v", err)
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := ws.NewServer(w, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", server.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)

	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	err = w.Run(ctx)
	_ = httpSrv.Shutdown(context.Background())
	close(snapCh)
	if err != nil && err != context.Canceled {
		logger.Fatalf("world loop: %v", err)
	}
}

// scenarioFile seeds a fresh world: factions, their settlements and the
// player's negotiators.
type scenarioFile struct {
	PlayerTile int `json:"player_tile"`

	Factions []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		TechLevel   int    `json:"tech_level"`
		Goodwill    int    `json:"goodwill"`
		Settlements []struct {
			ID   string `json:"id"`
			Tile int    `json:"tile"`
		} `json:"settlements"`
	} `json:"factions"`

	Pawns []struct {
		ID                    string  `json:"id"`
		Name                  string  `json:"name"`
		TradePriceImprovement float64 `json:"trade_price_improvement"`
	} `json:"pawns"`
}

func loadScenario(configDir string) (scenarioFile, error) {
	var sc scenarioFile
	raw, err := os.ReadFile(filepath.Join(configDir, "scenario.json"))
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("scenario.json: %w", err)
	}
	return sc, nil
}

func seedScenario(w *world.World, sc scenarioFile) {
	for _, f := range sc.Factions {
		w.AddFaction(&model.Faction{ID: f.ID, Name: f.Name, TechLevel: f.TechLevel, Goodwill: f.Goodwill})
		for _, s := range f.Settlements {
			w.AddSettlement(model.Settlement{ID: s.ID, FactionID: f.ID, Tile: s.Tile})
		}
	}
	for _, p := range sc.Pawns {
		w.AddPawn(&model.Pawn{ID: p.ID, Name: p.Name, TradePriceImprovement: p.TradePriceImprovement})
	}
}

func latestSnapshot(worldDir string) string {
	entries, err := os.ReadDir(filepath.Join(worldDir, "snapshots"))
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".snap.zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(worldDir, "snapshots", names[len(names)-1])
}

// teeEventLogger and teeAuditLogger fan entries out to the JSONL log and
// the sqlite index; nil receivers are skipped.
type teeEventLogger struct {
	jsonl *persistlog.EventLogger
	idx   *indexdb.SQLiteIndex
}

func (t teeEventLogger) WriteEvent(e world.EventLogEntry) error {
	if t.idx != nil {
		_ = t.idx.WriteEvent(e)
	}
	return t.jsonl.WriteEvent(e)
}

type teeAuditLogger struct {
	jsonl *persistlog.AuditLogger
	idx   *indexdb.SQLiteIndex
}

func (t teeAuditLogger) WriteAudit(e world.AuditEntry) error {
	if t.idx != nil {
		_ = t.idx.WriteAudit(e)
	}
	return t.jsonl.WriteAudit(e)
}
