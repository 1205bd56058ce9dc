package model

type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Pawn is a character the core cares about: either the player's
// negotiator or a member of a dispatched caravan.
type Pawn struct {
	ID   string
	Name string

	// TradePriceImprovement is the negotiator's fractional price discount,
	// already derived from skills by the host.
	TradePriceImprovement float64

	// Important marks pawns whose loss ends a caravan stay early
	// (the trader, pack animals carrying the goods).
	Important bool

	Lost bool
}
