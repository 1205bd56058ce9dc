package content

import (
	"path/filepath"
	"testing"
)

func loadTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	return db
}

func TestLoadThingsAndDigests(t *testing.T) {
	db := loadTestDB(t)
	if len(db.Things) == 0 || db.ThingsDigest == "" {
		t.Fatalf("expected things with digest, got %d defs", len(db.Things))
	}
	if len(db.ThingOrder) != len(db.Things) {
		t.Fatalf("order/defs mismatch: %d vs %d", len(db.ThingOrder), len(db.Things))
	}
	silver, ok := db.ThingByID("SILVER")
	if !ok || !silver.IsCurrency {
		t.Fatalf("silver def missing or not currency: %+v", silver)
	}
}

func TestRequiredTechLevelFollowsResearchChain(t *testing.T) {
	db := loadTestDB(t)
	rifle, _ := db.ThingByID("BOLT_RIFLE")
	if got := db.RequiredTechLevel(rifle); got != TechIndustrial {
		t.Fatalf("bolt rifle tech: %d", got)
	}
	charge, _ := db.ThingByID("CHARGE_RIFLE")
	if got := db.RequiredTechLevel(charge); got != TechSpacer {
		t.Fatalf("charge rifle tech: %d", got)
	}
	// Prereq chain raises level above the def's own declaration.
	turret, _ := db.ThingByID("TURRET_GUN")
	if got := db.RequiredTechLevel(turret); got < TechIndustrial {
		t.Fatalf("turret tech via GUN_TURRETS chain: %d", got)
	}
	wood, _ := db.ThingByID("WOOD")
	if got := db.RequiredTechLevel(wood); got != TechUndefined {
		t.Fatalf("wood should need no tech: %d", got)
	}
}

func TestResearchCacheToleratesMissingPrereq(t *testing.T) {
	db := &Database{Research: map[string]ResearchDef{
		"A": {ID: "A", TechLevel: 3, Prereqs: []string{"GONE"}},
	}}
	db.buildResearchTechCache()
	if got := db.RequiredTechLevel(ThingDef{ResearchPrereqs: []string{"A"}}); got != 3 {
		t.Fatalf("missing prereq should not lower level: %d", got)
	}
}
