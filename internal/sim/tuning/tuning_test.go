package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsFillEverything(t *testing.T) {
	tun := Default()
	if tun.DayTicks != 60000 {
		t.Fatalf("day ticks: %d", tun.DayTicks)
	}
	if tun.Pricing.RequestMarkup != 1.5 || len(tun.Pricing.DistanceTiers) != 3 {
		t.Fatalf("pricing defaults: %+v", tun.Pricing)
	}
	if tun.Caravan.UnfulfilledWaitMinTicks != 30000 || tun.Caravan.UnfulfilledWaitMaxTicks != 75000 {
		t.Fatalf("wait window defaults: %+v", tun.Caravan)
	}
	if tun.Caravan.PartialPenaltyLarge != -20 || tun.Caravan.UnfulfilledAllyPenalty != -30 {
		t.Fatalf("penalty defaults: %+v", tun.Caravan)
	}
}

func TestLoadSparseFileKeepsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	raw := []byte("day_ticks: 1000\npricing:\n  request_markup: 2.0\ncatalog:\n  restricted: [\"THRUMBO\"]\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	tun, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tun.DayTicks != 1000 || tun.Pricing.RequestMarkup != 2.0 {
		t.Fatalf("explicit values lost: %+v", tun)
	}
	if tun.Session.CooldownTicks != 4000 {
		t.Fatalf("cooldown should derive from day ticks: %d", tun.Session.CooldownTicks)
	}
	if len(tun.Catalog.Restricted) != 1 || tun.Catalog.Restricted[0] != "THRUMBO" {
		t.Fatalf("restricted list lost: %+v", tun.Catalog)
	}
}
