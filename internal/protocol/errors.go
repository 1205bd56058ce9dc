package protocol

const (
	// Request/negotiation layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrOpenDeal     = "E_OPEN_DEAL"
	ErrCooldown     = "E_COOLDOWN"
	ErrEmptyRequest = "E_EMPTY_REQUEST"
	ErrConfirmed    = "E_CONFIRMED"
	ErrNoSilver     = "E_NO_SILVER"
	ErrNotLoaded    = "E_NOT_LOADED"

	// Lookup/state.
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNoDeal        = "E_NO_DEAL"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:    {},
	ErrOpenDeal:      {},
	ErrCooldown:      {},
	ErrEmptyRequest:  {},
	ErrConfirmed:     {},
	ErrNoSilver:      {},
	ErrNotLoaded:     {},
	ErrInvalidTarget: {},
	ErrNoDeal:        {},
	ErrInternal:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
