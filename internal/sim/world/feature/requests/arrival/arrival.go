package arrival

import (
	"log"

	"caravanrequest/internal/sim/world/kernel/model"
)

// PathCoster estimates caravan travel ticks between two world tiles using
// the host's path/terrain model.
type PathCoster interface {
	CaravanTicksEstimate(fromTile, toTile int) (uint64, error)
}

// SettlementSource exposes the host's world map: faction settlements and
// straight-line tile distance for the radius pre-filter.
type SettlementSource interface {
	SettlementsOf(factionID string) []model.Settlement
	TileDistance(a, b int) int
}

type Config struct {
	SettlementRadius int
	DefaultTicks     uint64
}

// Estimator memoizes journey times per faction. Single-writer under the
// world's one update thread; no locking.
type Estimator struct {
	cfg    Config
	source SettlementSource
	coster PathCoster
	logger *log.Logger

	cache map[string]uint64
}

func NewEstimator(cfg Config, source SettlementSource, coster PathCoster, logger *log.Logger) *Estimator {
	return &Estimator{
		cfg:    cfg,
		source: source,
		coster: coster,
		logger: logger,
		cache:  map[string]uint64{},
	}
}

// DetermineJourneyTime returns the estimated travel ticks from the
// faction's nearest reachable settlement to the player. Failures fall
// back to the configured default and are never fatal.
func (e *Estimator) DetermineJourneyTime(factionID string, playerTile int) uint64 {
	if ticks, ok := e.cache[factionID]; ok {
		return ticks
	}
	ticks := e.compute(factionID, playerTile)
	e.cache[factionID] = ticks
	return ticks
}

func (e *Estimator) compute(factionID string, playerTile int) uint64 {
	best := uint64(0)
	found := false
	for _, s := range e.source.SettlementsOf(factionID) {
		if e.source.TileDistance(s.Tile, playerTile) > e.cfg.SettlementRadius {
			continue
		}
		ticks, err := e.coster.CaravanTicksEstimate(s.Tile, playerTile)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("arrival: path estimate %s->player failed: %v", s.ID, err)
			}
			continue
		}
		if !found || ticks < best {
			best = ticks
			found = true
		}
	}
	if !found {
		if e.logger != nil {
			e.logger.Printf("arrival: no reachable settlement for faction %s, using default %d ticks", factionID, e.cfg.DefaultTicks)
		}
		return e.cfg.DefaultTicks
	}
	return best
}

// ResetTravelTimeCache drops all memoized journey times, e.g. on new game.
func (e *Estimator) ResetTravelTimeCache() {
	e.cache = map[string]uint64{}
}
