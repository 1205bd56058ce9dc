package session

import (
	"log"
	"math"
	"sort"

	"caravanrequest/internal/protocol"
	dealpkg "caravanrequest/internal/sim/world/feature/requests/deal"
)

// OccurNever marks a deal that has been opened but not confirmed yet.
const OccurNever = uint64(math.MaxUint64)

// Session is the per-game-world registry of open deals, at most one per
// faction, with a post-close cooldown before the faction can be
// solicited again. Single-writer under the world's update thread.
type Session struct {
	cooldownTicks uint64
	logger        *log.Logger

	deals         map[string]*dealpkg.Deal
	occur         map[string]uint64
	confirmed     map[string]bool
	cooldownUntil map[string]uint64
}

func New(cooldownTicks uint64, logger *log.Logger) *Session {
	return &Session{
		cooldownTicks: cooldownTicks,
		logger:        logger,
		deals:         map[string]*dealpkg.Deal{},
		occur:         map[string]uint64{},
		confirmed:     map[string]bool{},
		cooldownUntil: map[string]uint64{},
	}
}

// SetupWith opens a deal with the faction. It refuses (never panics)
// when an open deal exists or the cooldown has not elapsed; the returned
// code/message are user-facing.
func (s *Session) SetupWith(factionID, negotiatorID string, now uint64) (ok bool, code string, msg string) {
	if factionID == "" {
		return false, protocol.ErrBadRequest, "no faction"
	}
	if s.deals[factionID] != nil {
		return false, protocol.ErrOpenDeal, "a request to this faction is already underway"
	}
	if until := s.cooldownUntil[factionID]; now < until {
		return false, protocol.ErrCooldown, "this faction is not ready for another request yet"
	}
	s.deals[factionID] = dealpkg.New(factionID, negotiatorID)
	s.occur[factionID] = OccurNever
	return true, "", ""
}

// GetOpenDealWith returns the open deal for the faction, or nil.
func (s *Session) GetOpenDealWith(factionID string) *dealpkg.Deal {
	if factionID == "" {
		return nil
	}
	return s.deals[factionID]
}

// SetTimeOfOccurence schedules the caravan arrival tick and marks the
// deal confirmed. Warns, does not fail, when no deal is open.
func (s *Session) SetTimeOfOccurence(factionID string, tick uint64) {
	if s.deals[factionID] == nil {
		if s.logger != nil {
			s.logger.Printf("session: SetTimeOfOccurence for %s without an open deal", factionID)
		}
		return
	}
	s.occur[factionID] = tick
	s.confirmed[factionID] = true
}

// Confirmed reports whether the faction's open deal has been confirmed.
// The flag survives the arrival itself (the occurrence is parked at
// OccurNever during the visit) and clears only when the deal closes.
func (s *Session) Confirmed(factionID string) bool {
	return s.confirmed[factionID]
}

func (s *Session) TimeOfOccurence(factionID string) (uint64, bool) {
	t, ok := s.occur[factionID]
	return t, ok
}

// CloseOpenDealWith removes the faction's deal and starts the cooldown.
// Idempotent: closing an absent deal is a no-op.
func (s *Session) CloseOpenDealWith(factionID string, now uint64) {
	if s.deals[factionID] == nil {
		return
	}
	delete(s.deals, factionID)
	delete(s.occur, factionID)
	delete(s.confirmed, factionID)
	s.cooldownUntil[factionID] = now + s.cooldownTicks
}

// DueArrivals returns factions whose scheduled occurrence tick has come,
// sorted for determinism.
func (s *Session) DueArrivals(now uint64) []string {
	var out []string
	for factionID, tick := range s.occur {
		if tick != OccurNever && tick <= now {
			out = append(out, factionID)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Session) OpenDealCount() int { return len(s.deals) }

func (s *Session) openFactions() []string {
	out := make([]string, 0, len(s.deals))
	for id := range s.deals {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
