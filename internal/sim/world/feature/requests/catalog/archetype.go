package catalog

import (
	"fmt"

	"caravanrequest/internal/sim/content"
	"caravanrequest/internal/sim/world/kernel/model"
)

type Category string

const (
	CategoryResources Category = "RESOURCES"
	CategoryFood      Category = "FOOD"
	CategoryWeapons   Category = "WEAPONS"
	CategoryApparel   Category = "APPAREL"
	CategoryMedical   Category = "MEDICAL"
	CategoryBuildings Category = "BUILDINGS"
	CategoryAnimals   Category = "ANIMALS"
	CategoryDiscard   Category = "DISCARD"
)

// Categories lists the requestable categories in display order.
var Categories = []Category{
	CategoryResources, CategoryFood, CategoryWeapons, CategoryApparel,
	CategoryMedical, CategoryBuildings, CategoryAnimals,
}

// Key is the content-stable identity of an archetype: definition plus
// material variant plus gender. Stable across sessions and serialization.
type Key struct {
	DefID   string
	StuffID string
	Gender  model.Gender
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DefID, k.StuffID, k.Gender)
}

// Archetype is one requestable kind of item or creature. Immutable after
// the builder computes its cost and classification.
type Archetype struct {
	DefID   string
	StuffID string
	Gender  model.Gender

	Category Category
	Label    string
	UnitCost float64

	Stacks           bool
	IsGear           bool
	IsAnimal         bool
	IsCurrency       bool
	HideFromPortrait bool

	RequiredTech int
}

func (a Archetype) Key() Key {
	return Key{DefID: a.DefID, StuffID: a.StuffID, Gender: a.Gender}
}

func label(def content.ThingDef, stuff *content.ThingDef, gender model.Gender) string {
	out := def.Label
	if stuff != nil {
		out = stuff.Label + " " + out
	}
	switch gender {
	case model.GenderMale:
		out += " (male)"
	case model.GenderFemale:
		out += " (female)"
	}
	return out
}
