package pricing

import "caravanrequest/internal/sim/tuning"

// Input describes one archetype being priced for one negotiation.
type Input struct {
	BaseValue  float64
	IsCurrency bool

	JourneyTicks uint64
	DayTicks     int

	// SkillDiscount is the negotiator's fractional trade-price bonus.
	SkillDiscount float64

	// Goodwill is the requested faction's goodwill toward the player.
	Goodwill int
}

// DistanceMultiplier is a step function of estimated travel days; the
// highest applicable tier wins.
func DistanceMultiplier(journeyDays float64, tiers []tuning.DistanceTier) float64 {
	mult := 1.0
	for _, tier := range tiers {
		if journeyDays >= tier.MinDays && tier.Mult > mult {
			mult = tier.Mult
		}
	}
	return mult
}

// RelationDiscount is linear in goodwill and capped at the ally threshold.
func RelationDiscount(goodwill int, p tuning.Pricing) float64 {
	if goodwill <= 0 || p.AllyGoodwill <= 0 {
		return 0
	}
	if goodwill > p.AllyGoodwill {
		goodwill = p.AllyGoodwill
	}
	return float64(goodwill) / float64(p.AllyGoodwill) * p.MaxRelationDiscount
}

// UnitPrice computes the request price for a single unit. The result is
// the exact stored price; rounding is a display concern.
func UnitPrice(in Input, p tuning.Pricing) float64 {
	if in.BaseValue <= 0 {
		return 0
	}
	// Currency moves at face value, no markup or discounts.
	if in.IsCurrency {
		return in.BaseValue
	}

	days := 0.0
	if in.DayTicks > 0 {
		days = float64(in.JourneyTicks) / float64(in.DayTicks)
	}

	skill := in.SkillDiscount
	if skill < 0 {
		skill = 0
	}
	if skill > p.MaxSkillDiscount {
		skill = p.MaxSkillDiscount
	}

	discount := skill + RelationDiscount(in.Goodwill, p)
	if discount > 1 {
		discount = 1
	}

	price := in.BaseValue * p.RequestMarkup * DistanceMultiplier(days, p.DistanceTiers) * (1 - discount)
	if price < 0 {
		price = 0
	}
	return price
}
