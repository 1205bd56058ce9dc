package catalog

import "caravanrequest/internal/sim/content"

// Classify routes a definition into a requestable category. Rules are a
// prioritized decision list; the first match wins and anything left over
// is discarded from the requestable set.
func Classify(def content.ThingDef) Category {
	switch def.Kind {
	case "CORPSE", "CHUNK", "BLUEPRINT", "FRAME", "MOTE":
		return CategoryDiscard
	case "ANIMAL":
		return CategoryAnimals
	case "BUILDING":
		return CategoryBuildings
	}
	switch {
	case def.HasCategory("Weapons"):
		return CategoryWeapons
	case def.HasCategory("Apparel"):
		return CategoryApparel
	case def.HasCategory("Foods"):
		return CategoryFood
	case def.HasCategory("Medicine"):
		return CategoryMedical
	case def.HasCategory("Corpses"), def.HasCategory("Chunks"):
		return CategoryDiscard
	case def.IsCurrency, def.IsStuff, def.CountAsResource,
		def.HasCategory("ResourcesRaw"), def.HasCategory("Manufactured"), def.HasCategory("Textiles"):
		return CategoryResources
	default:
		return CategoryDiscard
	}
}
