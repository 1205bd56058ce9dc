package model

type RelationKind string

const (
	RelationAlly    RelationKind = "ALLY"
	RelationNeutral RelationKind = "NEUTRAL"
	RelationHostile RelationKind = "HOSTILE"
)

const (
	GoodwillMin = -100
	GoodwillMax = 100

	allyGoodwill    = 75
	hostileGoodwill = -75
)

// Faction is an AI-controlled group with a standing toward the player.
type Faction struct {
	ID   string
	Name string

	TechLevel int
	Goodwill  int

	// Hostile is sticky: a faction flipped hostile stays hostile even if
	// goodwill later drifts above the threshold.
	Hostile bool
}

func (f *Faction) Relation() RelationKind {
	switch {
	case f.Hostile || f.Goodwill <= hostileGoodwill:
		return RelationHostile
	case f.Goodwill >= allyGoodwill:
		return RelationAlly
	default:
		return RelationNeutral
	}
}

func (f *Faction) ApplyGoodwill(delta int) {
	f.Goodwill += delta
	if f.Goodwill > GoodwillMax {
		f.Goodwill = GoodwillMax
	}
	if f.Goodwill < GoodwillMin {
		f.Goodwill = GoodwillMin
	}
}

func (f *Faction) SetHostile() {
	f.Hostile = true
}
