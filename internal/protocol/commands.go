package protocol

// Command types.
const (
	CmdOpenNegotiation = "OPEN_NEGOTIATION"
	CmdAdjustItem      = "ADJUST_ITEM"
	CmdConfirmDeal     = "CONFIRM_DEAL"
	CmdCancelDeal      = "CANCEL_DEAL"
	CmdReviewItem      = "REVIEW_ITEM"
	CmdReviewPayment   = "REVIEW_PAYMENT"
	CmdPostponePayment = "POSTPONE_PAYMENT"
)

// CommandReq is one player command against the negotiation layer. Fields
// beyond ID/Type are command-specific; unused ones stay zero.
type CommandReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Faction    string `json:"faction,omitempty"`
	Negotiator string `json:"negotiator,omitempty"`

	DefID   string `json:"def,omitempty"`
	StuffID string `json:"stuff,omitempty"`
	Gender  string `json:"gender,omitempty"`

	Count   int  `json:"count,omitempty"`
	Removed bool `json:"removed,omitempty"`
}
