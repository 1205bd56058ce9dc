package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"caravanrequest/internal/sim/content"
	"caravanrequest/internal/sim/world/kernel/model"
)

func loadDB(t *testing.T) *content.Database {
	t.Helper()
	db, err := content.Load(filepath.Join("..", "..", "..", "..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	return db
}

func builtCatalog(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder(loadDB(t), BuilderConfig{BatchPerTick: 5, Restricted: []string{"THRUMBO"}}, nil)
	for i := 0; i < 1000 && !b.ProcessBatch(); i++ {
	}
	if !b.Loaded() {
		t.Fatalf("catalog never finished loading")
	}
	return b
}

func TestIncrementalPopulation(t *testing.T) {
	b := NewBuilder(loadDB(t), BuilderConfig{BatchPerTick: 5}, nil)
	if b.Loaded() {
		t.Fatalf("fresh builder should not be loaded")
	}
	steps := 0
	for !b.ProcessBatch() {
		steps++
		done, total := b.Progress()
		if done > total {
			t.Fatalf("progress overflow: %d/%d", done, total)
		}
	}
	if steps == 0 {
		t.Fatalf("expected multiple batches with batch size 5")
	}
	// Re-triggering after load is a no-op.
	if !b.ProcessBatch() {
		t.Fatalf("loaded builder should stay loaded")
	}
}

func TestClassificationRules(t *testing.T) {
	cases := []struct {
		id   string
		want Category
	}{
		{"STEEL", CategoryResources},
		{"SIMPLE_MEAL", CategoryFood},
		{"KNIFE", CategoryWeapons},
		{"PARKA", CategoryApparel},
		{"MEDICINE", CategoryMedical},
		{"STOOL", CategoryBuildings},
		{"MUFFALO", CategoryAnimals},
		{"MUFFALO_CORPSE", CategoryDiscard},
		{"CHUNK_GRANITE", CategoryDiscard},
		{"BLUEPRINT_WALL", CategoryDiscard},
		{"MOTE_SMOKE", CategoryDiscard},
		{"GOLD_IDOL", CategoryDiscard},
	}
	db := loadDB(t)
	for _, c := range cases {
		def, ok := db.ThingByID(c.id)
		if !ok {
			t.Fatalf("missing def %s", c.id)
		}
		if got := Classify(def); got != c.want {
			t.Fatalf("%s: got %s want %s", c.id, got, c.want)
		}
	}
}

func TestStuffAndGenderExpansion(t *testing.T) {
	b := builtCatalog(t)
	// KNIFE expands per material, no plain entry.
	if _, ok := b.ByKey(Key{DefID: "KNIFE"}); ok {
		t.Fatalf("stuffable def should not have a stuffless entry")
	}
	steelKnife, ok := b.ByKey(Key{DefID: "KNIFE", StuffID: "STEEL"})
	if !ok {
		t.Fatalf("missing steel knife variant")
	}
	woodKnife, ok := b.ByKey(Key{DefID: "KNIFE", StuffID: "WOOD"})
	if !ok {
		t.Fatalf("missing wooden knife variant")
	}
	if woodKnife.UnitCost >= steelKnife.UnitCost {
		t.Fatalf("wood factor 0.7 should undercut steel: %v vs %v", woodKnife.UnitCost, steelKnife.UnitCost)
	}
	// Animals expand per gender and hide from the portrait strip.
	male, ok := b.ByKey(Key{DefID: "MUFFALO", Gender: model.GenderMale})
	if !ok || !male.HideFromPortrait || !male.IsAnimal {
		t.Fatalf("male muffalo wrong: %+v", male)
	}
	if _, ok := b.ByKey(Key{DefID: "MUFFALO", Gender: model.GenderFemale}); !ok {
		t.Fatalf("missing female muffalo")
	}
}

func TestCostRoundingAndMultipliers(t *testing.T) {
	db := loadDB(t)
	b := NewBuilder(db, BuilderConfig{BatchPerTick: 100, CostMults: CostMults{Weapon: 2.0, Apparel: 1.0, Generic: 1.0}}, nil)
	for !b.ProcessBatch() {
	}
	rifle, ok := b.ByKey(Key{DefID: "BOLT_RIFLE"})
	if !ok {
		t.Fatalf("missing rifle")
	}
	if rifle.UnitCost != 420 {
		t.Fatalf("weapon multiplier not applied: %v", rifle.UnitCost)
	}
	// Stuff factor 0.7 on a 30-value knife: 30*0.7*2.0 = 42.0, one decimal.
	knife, _ := b.ByKey(Key{DefID: "KNIFE", StuffID: "WOOD"})
	if knife.UnitCost != 42 {
		t.Fatalf("stuff-adjusted cost: %v", knife.UnitCost)
	}
}

func TestRestrictionListAlwaysWins(t *testing.T) {
	b := builtCatalog(t)
	spacer := &model.Faction{ID: "F", TechLevel: content.TechSpacer}
	if b.IsBuyableItem(Key{DefID: "THRUMBO", Gender: model.GenderMale}, spacer) {
		t.Fatalf("restricted archetype must never be buyable")
	}
	for _, entries := range b.RequestableFor(spacer) {
		for _, a := range entries {
			if a.DefID == "THRUMBO" {
				t.Fatalf("restricted archetype surfaced in requestables")
			}
		}
	}
}

func TestTechGating(t *testing.T) {
	b := builtCatalog(t)
	tribal := &model.Faction{ID: "T", TechLevel: content.TechNeolithic}
	industrial := &model.Faction{ID: "I", TechLevel: content.TechIndustrial}

	rifleKey := Key{DefID: "BOLT_RIFLE"}
	if b.IsBuyableItem(rifleKey, tribal) {
		t.Fatalf("tribal faction should not supply industrial rifles")
	}
	if !b.IsBuyableItem(rifleKey, industrial) {
		t.Fatalf("industrial faction should supply rifles")
	}
	chargeKey := Key{DefID: "CHARGE_RIFLE"}
	if b.IsBuyableItem(chargeKey, industrial) {
		t.Fatalf("charge rifle needs spacer tech via research chain")
	}
	// Material tech raises the variant requirement: plasteel knife needs spacer.
	if b.IsBuyableItem(Key{DefID: "KNIFE", StuffID: "PLASTEEL"}, industrial) {
		t.Fatalf("plasteel variant should inherit material tech level")
	}
	if !b.IsBuyableItem(Key{DefID: "KNIFE", StuffID: "STEEL"}, tribal) {
		t.Fatalf("steel knife has no tech requirement")
	}
}

func TestFallbackCostSynthesisAndSkip(t *testing.T) {
	db := &content.Database{
		Things: map[string]content.ThingDef{
			"ODD":  {ID: "ODD", Label: "odd", Kind: "ITEM", CountAsResource: true},
			"BAD":  {ID: "BAD", Label: "bad", Kind: "ITEM", CountAsResource: true},
			"FINE": {ID: "FINE", Label: "fine", Kind: "ITEM", CountAsResource: true, BaseMarketValue: 3},
		},
		ThingOrder: []string{"BAD", "FINE", "ODD"},
	}
	b := NewBuilder(db, BuilderConfig{
		BatchPerTick: 10,
		FallbackCost: func(def content.ThingDef) (float64, error) {
			if def.ID == "BAD" {
				return 0, errors.New("cannot instantiate")
			}
			return 7, nil
		},
	}, nil)
	for !b.ProcessBatch() {
	}
	if _, ok := b.ByKey(Key{DefID: "BAD"}); ok {
		t.Fatalf("defs without a computable cost must be excluded")
	}
	odd, ok := b.ByKey(Key{DefID: "ODD"})
	if !ok || odd.UnitCost != 7 {
		t.Fatalf("fallback cost not applied: %+v", odd)
	}
}
