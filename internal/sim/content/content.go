package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Tech levels, ordered. A faction can only supply things at or below its
// own level.
const (
	TechUndefined = iota
	TechAnimal
	TechNeolithic
	TechMedieval
	TechIndustrial
	TechSpacer
	TechUltra
)

// ThingDef is one entry of the host content database: a kind of item,
// creature or building the game knows about.
type ThingDef struct {
	ID    string `json:"id"`
	Label string `json:"label"`

	// Kind is the coarse definition class:
	// "ITEM","ANIMAL","BUILDING","CORPSE","CHUNK","BLUEPRINT","FRAME","MOTE".
	Kind string `json:"kind"`

	// Categories are the host's category tags, e.g. "Weapons","Apparel",
	// "Foods","Medicine","Manufactured","ResourcesRaw".
	Categories []string `json:"categories,omitempty"`

	BaseMarketValue float64 `json:"base_market_value,omitempty"`

	// Stuff lists compatible material def IDs for stuffable things.
	Stuff []string `json:"stuff,omitempty"`

	// IsStuff marks material defs (wood, steel, cloth...).
	IsStuff         bool    `json:"is_stuff,omitempty"`
	StuffCostFactor float64 `json:"stuff_cost_factor,omitempty"`

	Stackable bool `json:"stackable,omitempty"`
	IsGear    bool `json:"is_gear,omitempty"`
	Gendered  bool `json:"gendered,omitempty"`

	// IsCurrency marks the trade currency (silver); requested at face value.
	IsCurrency bool `json:"is_currency,omitempty"`

	CountAsResource bool `json:"count_as_resource,omitempty"`

	TechLevel       int      `json:"tech_level,omitempty"`
	ResearchPrereqs []string `json:"research_prereqs,omitempty"`
}

type ResearchDef struct {
	ID        string   `json:"id"`
	TechLevel int      `json:"tech_level,omitempty"`
	Prereqs   []string `json:"prereqs,omitempty"`
}

// Database is the loaded content database plus the derived tech-level
// cache for research chains, computed once at load.
type Database struct {
	Things         map[string]ThingDef
	ThingOrder     []string
	ThingsDigest   string
	Research       map[string]ResearchDef
	ResearchDigest string

	researchTech map[string]int
}

func Load(configDir string) (*Database, error) {
	var db Database
	if err := loadThings(filepath.Join(configDir, "things.json"), &db); err != nil {
		return nil, err
	}
	if err := loadResearch(filepath.Join(configDir, "research.json"), &db); err != nil {
		return nil, err
	}
	db.buildResearchTechCache()
	return &db, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadThings(path string, db *Database) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	db.ThingsDigest = sha256Hex(raw)

	var defs []ThingDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("things.json: %w", err)
	}
	db.Things = map[string]ThingDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("things.json: empty id")
		}
		db.Things[d.ID] = d
	}
	ids := make([]string, 0, len(db.Things))
	for id := range db.Things {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	db.ThingOrder = ids
	return nil
}

func loadResearch(path string, db *Database) error {
	db.Research = map[string]ResearchDef{}
	raw, err := os.ReadFile(path)
	if err != nil {
		// Content packs without research metadata are allowed.
		if os.IsNotExist(err) {
			db.ResearchDigest = sha256Hex(nil)
			return nil
		}
		return err
	}
	db.ResearchDigest = sha256Hex(raw)

	var defs []ResearchDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("research.json: %w", err)
	}
	for _, r := range defs {
		if r.ID == "" {
			return fmt.Errorf("research.json: empty id")
		}
		db.Research[r.ID] = r
	}
	return nil
}

// buildResearchTechCache walks each research chain once and records the
// highest tech level reachable through prerequisites.
func (db *Database) buildResearchTechCache() {
	db.researchTech = make(map[string]int, len(db.Research))
	var walk func(id string, seen map[string]bool) int
	walk = func(id string, seen map[string]bool) int {
		if v, ok := db.researchTech[id]; ok {
			return v
		}
		if seen[id] {
			return TechUndefined
		}
		seen[id] = true
		r, ok := db.Research[id]
		if !ok {
			return TechUndefined
		}
		tech := r.TechLevel
		for _, pre := range r.Prereqs {
			if v := walk(pre, seen); v > tech {
				tech = v
			}
		}
		db.researchTech[id] = tech
		return tech
	}
	for id := range db.Research {
		walk(id, map[string]bool{})
	}
}

// RequiredTechLevel is the tech level a supplying faction must have for
// the given def: the def's own level, raised by any research prerequisite
// chain.
func (db *Database) RequiredTechLevel(def ThingDef) int {
	tech := def.TechLevel
	for _, pre := range def.ResearchPrereqs {
		if v, ok := db.researchTech[pre]; ok && v > tech {
			tech = v
		}
	}
	return tech
}

func (db *Database) ThingByID(id string) (ThingDef, bool) {
	d, ok := db.Things[id]
	return d, ok
}

func (def ThingDef) HasCategory(tag string) bool {
	for _, c := range def.Categories {
		if c == tag {
			return true
		}
	}
	return false
}
