package deal

import (
	"sort"

	catalogpkg "caravanrequest/internal/sim/world/feature/requests/catalog"
)

// Line is one requested archetype in a deal. UnitPrice is locked in at
// request time and never repriced implicitly. Removed is a soft-delete
// used only during fulfillment review; it leaves Count untouched.
type Line struct {
	Archetype catalogpkg.Archetype
	Count     int
	UnitPrice float64
	Removed   bool
	IsPawn    bool
}

func (l *Line) Value() float64 {
	return l.UnitPrice * float64(l.Count)
}

// Deal is the priced cart for one faction negotiation. At most one line
// per (category, archetype key) pair.
type Deal struct {
	FactionID    string
	NegotiatorID string

	lines map[catalogpkg.Category]map[catalogpkg.Key]*Line
}

func New(factionID, negotiatorID string) *Deal {
	return &Deal{
		FactionID:    factionID,
		NegotiatorID: negotiatorID,
		lines:        map[catalogpkg.Category]map[catalogpkg.Key]*Line{},
	}
}

// AdjustItemRequest upserts the line for the archetype. Count <= 0
// deletes the line (no-op when absent). Count > 0 locks in unitPrice at
// call time; existing lines are repriced only by an explicit re-adjust.
func (d *Deal) AdjustItemRequest(a catalogpkg.Archetype, count int, unitPrice float64) {
	key := a.Key()
	byKey := d.lines[a.Category]
	if count <= 0 {
		if byKey != nil {
			delete(byKey, key)
			if len(byKey) == 0 {
				delete(d.lines, a.Category)
			}
		}
		return
	}
	if byKey == nil {
		byKey = map[catalogpkg.Key]*Line{}
		d.lines[a.Category] = byKey
	}
	byKey[key] = &Line{
		Archetype: a,
		Count:     count,
		UnitPrice: unitPrice,
		IsPawn:    a.IsAnimal,
	}
}

func (d *Deal) CountFor(cat catalogpkg.Category, key catalogpkg.Key) int {
	if l := d.line(cat, key); l != nil {
		return l.Count
	}
	return 0
}

// UnitPriceFor returns the locked-in price of an existing line.
func (d *Deal) UnitPriceFor(cat catalogpkg.Category, key catalogpkg.Key) (float64, bool) {
	if l := d.line(cat, key); l != nil {
		return l.UnitPrice, true
	}
	return 0, false
}

// SetRemoved toggles the fulfillment-review soft-delete flag. Returns
// false when the line does not exist.
func (d *Deal) SetRemoved(cat catalogpkg.Category, key catalogpkg.Key, removed bool) bool {
	l := d.line(cat, key)
	if l == nil {
		return false
	}
	l.Removed = removed
	return true
}

func (d *Deal) line(cat catalogpkg.Category, key catalogpkg.Key) *Line {
	if byKey := d.lines[cat]; byKey != nil {
		return byKey[key]
	}
	return nil
}

// RequestedItems flattens all lines across categories in a deterministic
// order (category display order, then key).
func (d *Deal) RequestedItems() []*Line {
	var out []*Line
	for _, cat := range catalogpkg.Categories {
		byKey := d.lines[cat]
		if len(byKey) == 0 {
			continue
		}
		keys := make([]catalogpkg.Key, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			out = append(out, byKey[k])
		}
	}
	return out
}

// TotalRequestedValue sums price*count over non-removed lines.
func (d *Deal) TotalRequestedValue() float64 {
	var total float64
	for _, byKey := range d.lines {
		for _, l := range byKey {
			if l.Removed {
				continue
			}
			total += l.Value()
		}
	}
	return total
}

// RemovedValue sums the value flagged out during fulfillment review; it
// selects the partial-fulfillment severity tier.
func (d *Deal) RemovedValue() float64 {
	var total float64
	for _, byKey := range d.lines {
		for _, l := range byKey {
			if l.Removed {
				total += l.Value()
			}
		}
	}
	return total
}

func (d *Deal) Empty() bool {
	for _, byKey := range d.lines {
		if len(byKey) > 0 {
			return false
		}
	}
	return true
}
