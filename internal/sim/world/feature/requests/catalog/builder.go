package catalog

import (
	"log"
	"math"

	"caravanrequest/internal/sim/content"
	"caravanrequest/internal/sim/world/kernel/model"
)

type CostMults struct {
	Apparel float64
	Weapon  float64
	Generic float64
}

type BuilderConfig struct {
	BatchPerTick int
	Restricted   []string
	CostMults    CostMults

	// FallbackCost synthesizes a value for defs without a base market
	// value (the host does this by instantiating a throwaway thing).
	// Optional; defs that still have no cost are excluded.
	FallbackCost func(def content.ThingDef) (float64, error)
}

// Builder populates the requestable-archetype catalog incrementally, a
// fixed number of definitions per tick, so classification of thousands of
// defs never stalls the host frame. Between batches the catalog is always
// internally consistent: a def's archetypes are appended atomically.
type Builder struct {
	db     *content.Database
	cfg    BuilderConfig
	logger *log.Logger

	restricted map[string]bool

	next      int
	entries   map[Category][]Archetype
	byKey     map[Key]Archetype
	processed int
	discarded int
	loaded    bool
}

func NewBuilder(db *content.Database, cfg BuilderConfig, logger *log.Logger) *Builder {
	if cfg.BatchPerTick <= 0 {
		cfg.BatchPerTick = 50
	}
	if cfg.CostMults.Apparel <= 0 {
		cfg.CostMults.Apparel = 1.0
	}
	if cfg.CostMults.Weapon <= 0 {
		cfg.CostMults.Weapon = 1.0
	}
	if cfg.CostMults.Generic <= 0 {
		cfg.CostMults.Generic = 1.0
	}
	restricted := make(map[string]bool, len(cfg.Restricted))
	for _, id := range cfg.Restricted {
		restricted[id] = true
	}
	return &Builder{
		db:         db,
		cfg:        cfg,
		logger:     logger,
		restricted: restricted,
		entries:    map[Category][]Archetype{},
		byKey:      map[Key]Archetype{},
	}
}

func (b *Builder) Loaded() bool { return b.loaded }

func (b *Builder) Progress() (done, total int) {
	return b.next, len(b.db.ThingOrder)
}

// Reset rewinds the phase pointer and discards partial classification.
func (b *Builder) Reset() {
	b.next = 0
	b.processed = 0
	b.discarded = 0
	b.loaded = false
	b.entries = map[Category][]Archetype{}
	b.byKey = map[Key]Archetype{}
}

// ProcessBatch advances population by one batch. Returns true once the
// whole content database has been classified; callers re-trigger each
// tick until then.
func (b *Builder) ProcessBatch() bool {
	if b.loaded {
		return true
	}
	order := b.db.ThingOrder
	end := b.next + b.cfg.BatchPerTick
	if end > len(order) {
		end = len(order)
	}
	for ; b.next < end; b.next++ {
		def, ok := b.db.ThingByID(order[b.next])
		if !ok {
			continue
		}
		b.addDef(def)
	}
	if b.next >= len(order) {
		b.loaded = true
	}
	return b.loaded
}

func (b *Builder) addDef(def content.ThingDef) {
	b.processed++
	cat := Classify(def)
	if cat == CategoryDiscard || b.restricted[def.ID] {
		b.discarded++
		return
	}
	base, ok := b.cost(def)
	if !ok {
		b.discarded++
		return
	}

	switch {
	case len(def.Stuff) > 0:
		for _, stuffID := range def.Stuff {
			stuff, ok := b.db.ThingByID(stuffID)
			if !ok {
				if b.logger != nil {
					b.logger.Printf("catalog: %s references unknown stuff %s, skipping variant", def.ID, stuffID)
				}
				continue
			}
			factor := stuff.StuffCostFactor
			if factor <= 0 {
				factor = 1.0
			}
			tech := b.db.RequiredTechLevel(def)
			if st := b.db.RequiredTechLevel(stuff); st > tech {
				tech = st
			}
			b.add(def, cat, Archetype{
				DefID:        def.ID,
				StuffID:      stuffID,
				Category:     cat,
				Label:        label(def, &stuff, model.GenderNone),
				UnitCost:     roundCost(base * factor * b.mult(cat)),
				Stacks:       def.Stackable,
				IsGear:       def.IsGear,
				RequiredTech: tech,
			})
		}
	case def.Kind == "ANIMAL" && def.Gendered:
		for _, g := range []model.Gender{model.GenderMale, model.GenderFemale} {
			b.add(def, cat, Archetype{
				DefID:            def.ID,
				Gender:           g,
				Category:         cat,
				Label:            label(def, nil, g),
				UnitCost:         roundCost(base * b.mult(cat)),
				IsAnimal:         true,
				HideFromPortrait: true,
				RequiredTech:     b.db.RequiredTechLevel(def),
			})
		}
	default:
		b.add(def, cat, Archetype{
			DefID:        def.ID,
			Category:     cat,
			Label:        label(def, nil, model.GenderNone),
			UnitCost:     roundCost(base * b.mult(cat)),
			Stacks:       def.Stackable,
			IsGear:       def.IsGear,
			IsAnimal:     def.Kind == "ANIMAL",
			IsCurrency:   def.IsCurrency,
			RequiredTech: b.db.RequiredTechLevel(def),
		})
	}
}

func (b *Builder) add(def content.ThingDef, cat Category, a Archetype) {
	b.entries[cat] = append(b.entries[cat], a)
	b.byKey[a.Key()] = a
}

func (b *Builder) cost(def content.ThingDef) (float64, bool) {
	if def.BaseMarketValue > 0 {
		return def.BaseMarketValue, true
	}
	if b.cfg.FallbackCost != nil {
		v, err := b.cfg.FallbackCost(def)
		if err == nil && v > 0 {
			return v, true
		}
		if err != nil && b.logger != nil {
			b.logger.Printf("catalog: cost synthesis for %s failed: %v", def.ID, err)
		}
	}
	return 0, false
}

func (b *Builder) mult(cat Category) float64 {
	switch cat {
	case CategoryApparel:
		return b.cfg.CostMults.Apparel
	case CategoryWeapons:
		return b.cfg.CostMults.Weapon
	default:
		return b.cfg.CostMults.Generic
	}
}

func roundCost(v float64) float64 {
	return math.Round(v*10) / 10
}

// RequestableFor returns the archetypes the given faction can supply:
// restriction-filtered (already excluded at population) and tech-gated.
// Entries are copies; callers may annotate them freely.
func (b *Builder) RequestableFor(f *model.Faction) map[Category][]Archetype {
	out := map[Category][]Archetype{}
	for _, cat := range Categories {
		for _, a := range b.entries[cat] {
			if f != nil && a.RequiredTech > f.TechLevel {
				continue
			}
			out[cat] = append(out[cat], a)
		}
	}
	return out
}

// IsBuyableItem reports whether the archetype exists in the catalog and
// the faction clears its tech requirement. Restricted defs never appear.
func (b *Builder) IsBuyableItem(key Key, f *model.Faction) bool {
	a, ok := b.byKey[key]
	if !ok {
		return false
	}
	return f == nil || a.RequiredTech <= f.TechLevel
}

func (b *Builder) ByKey(key Key) (Archetype, bool) {
	a, ok := b.byKey[key]
	return a, ok
}
