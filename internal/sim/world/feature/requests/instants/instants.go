package instants

import (
	"math"
	"strings"

	"caravanrequest/internal/protocol"
	corepkg "caravanrequest/internal/sim/world/feature/caravan/core"
)

func ValidateOpenInput(factionID, negotiatorID string) (ok bool, code string, msg string) {
	if strings.TrimSpace(factionID) == "" {
		return false, protocol.ErrBadRequest, "missing faction"
	}
	if strings.TrimSpace(negotiatorID) == "" {
		return false, protocol.ErrBadRequest, "missing negotiator"
	}
	return true, "", ""
}

func ValidateItemInput(factionID, defID string) (ok bool, code string, msg string) {
	if strings.TrimSpace(factionID) == "" {
		return false, protocol.ErrBadRequest, "missing faction"
	}
	if strings.TrimSpace(defID) == "" {
		return false, protocol.ErrBadRequest, "missing def"
	}
	return true, "", ""
}

// PaymentOutcome decides how the fulfillment review resolves. The
// severity tier of a partial payment follows the value *removed* from
// the deal, not the amount paid. Insufficient silver costs nothing and
// resolves as unfulfilled.
func PaymentOutcome(totalDue, removedValue float64, silver int, smallMax, largeMin float64) (kind corepkg.EventKind, tier corepkg.PartialTier, cost int) {
	cost = int(math.Ceil(totalDue))
	if silver < cost {
		return corepkg.EvMemoUnfulfilled, corepkg.TierNone, 0
	}
	if removedValue > 0 {
		return corepkg.EvMemoPartial, corepkg.PartialTierFor(removedValue, smallMax, largeMin), cost
	}
	return corepkg.EvMemoFulfilled, corepkg.TierNone, cost
}
