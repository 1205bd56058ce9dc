package deal

import (
	"testing"

	catalogpkg "caravanrequest/internal/sim/world/feature/requests/catalog"
)

func arch(defID, stuffID string, cat catalogpkg.Category) catalogpkg.Archetype {
	return catalogpkg.Archetype{DefID: defID, StuffID: stuffID, Category: cat, Label: defID}
}

func TestAdjustUpsertsAndLocksPrice(t *testing.T) {
	d := New("F1", "N1")
	steel := arch("STEEL", "", catalogpkg.CategoryResources)

	d.AdjustItemRequest(steel, 10, 2.5)
	if got := d.CountFor(steel.Category, steel.Key()); got != 10 {
		t.Fatalf("count: %d", got)
	}
	// A later global price change must not touch the stored line; only an
	// explicit re-adjust does.
	if got := d.TotalRequestedValue(); got != 25 {
		t.Fatalf("total: %v", got)
	}
	d.AdjustItemRequest(steel, 10, 3.00)
	if got := d.TotalRequestedValue(); got != 30 {
		t.Fatalf("explicit re-adjust should reprice: %v", got)
	}
}

func TestZeroCountDeletesIdempotently(t *testing.T) {
	d := New("F1", "N1")
	steel := arch("STEEL", "", catalogpkg.CategoryResources)

	// Zeroing an absent line is a no-op.
	d.AdjustItemRequest(steel, 0, 2.85)
	if !d.Empty() {
		t.Fatalf("deal should be empty")
	}

	d.AdjustItemRequest(steel, 5, 2.85)
	d.AdjustItemRequest(steel, 0, 2.85)
	d.AdjustItemRequest(steel, 0, 2.85)
	if !d.Empty() || d.CountFor(steel.Category, steel.Key()) != 0 {
		t.Fatalf("double zeroing should equal single zeroing")
	}
}

func TestOneLinePerCategoryAndKey(t *testing.T) {
	d := New("F1", "N1")
	steelKnife := arch("KNIFE", "STEEL", catalogpkg.CategoryWeapons)
	woodKnife := arch("KNIFE", "WOOD", catalogpkg.CategoryWeapons)

	d.AdjustItemRequest(steelKnife, 1, 60)
	d.AdjustItemRequest(steelKnife, 3, 60)
	d.AdjustItemRequest(woodKnife, 2, 42)

	items := d.RequestedItems()
	if len(items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(items))
	}
	if got := d.CountFor(steelKnife.Category, steelKnife.Key()); got != 3 {
		t.Fatalf("re-adjust should replace, not append: %d", got)
	}
}

func TestTotalTracksRemovedFlag(t *testing.T) {
	d := New("F1", "N1")
	steel := arch("STEEL", "", catalogpkg.CategoryResources)
	meal := arch("SIMPLE_MEAL", "", catalogpkg.CategoryFood)

	d.AdjustItemRequest(steel, 100, 3)  // 300
	d.AdjustItemRequest(meal, 10, 22.5) // 225
	if got := d.TotalRequestedValue(); got != 525 {
		t.Fatalf("total: %v", got)
	}

	if !d.SetRemoved(meal.Category, meal.Key(), true) {
		t.Fatalf("line should exist")
	}
	if got := d.TotalRequestedValue(); got != 300 {
		t.Fatalf("removed line must leave the total by exactly its value: %v", got)
	}
	if got := d.RemovedValue(); got != 225 {
		t.Fatalf("removed value: %v", got)
	}
	// Unchecking restores the exact contribution and the original count.
	d.SetRemoved(meal.Category, meal.Key(), false)
	if got := d.TotalRequestedValue(); got != 525 {
		t.Fatalf("restore: %v", got)
	}
	if got := d.CountFor(meal.Category, meal.Key()); got != 10 {
		t.Fatalf("soft delete must not mutate count: %d", got)
	}

	if d.SetRemoved(catalogpkg.CategoryAnimals, catalogpkg.Key{DefID: "HUSKY"}, true) {
		t.Fatalf("absent line cannot be removed")
	}
}

func TestPawnFlagFollowsAnimals(t *testing.T) {
	d := New("F1", "N1")
	muffalo := catalogpkg.Archetype{DefID: "MUFFALO", Gender: "F", Category: catalogpkg.CategoryAnimals, IsAnimal: true}
	d.AdjustItemRequest(muffalo, 2, 450)
	items := d.RequestedItems()
	if len(items) != 1 || !items[0].IsPawn {
		t.Fatalf("animal lines should carry the pawn flag: %+v", items)
	}
}
