package core

import "caravanrequest/internal/sim/world/kernel/model"

type State string

const (
	StateTraveling       State = "TRAVELING"
	StateWaiting         State = "WAITING_AT_SPOT"
	StateDefending       State = "DEFENDING"
	StateAttacking       State = "ATTACKING"
	StateEscortingExit   State = "ESCORTING_EXIT"
	StateExitingPassive  State = "EXITING_PASSIVELY"
	StateExitingFighting State = "EXITING_WHILE_FIGHTING"
	StateDeparted        State = "DEPARTED"
)

// EventKind is the typed FSM trigger set; no stringly-typed memos.
type EventKind string

const (
	EvArrivedAtSpot     EventKind = "ARRIVED_AT_SPOT"
	EvMemberHarmed      EventKind = "MEMBER_HARMED"
	EvHarmQuietElapsed  EventKind = "HARM_QUIET_ELAPSED"
	EvDangerTemperature EventKind = "DANGER_TEMPERATURE"
	EvMemoFulfilled     EventKind = "MEMO_FULFILLED"
	EvMemoUnfulfilled   EventKind = "MEMO_UNFULFILLED"
	EvMemoPartial       EventKind = "MEMO_PARTIAL"
	EvTrapped           EventKind = "TRAPPED"
	EvHeavyCasualties   EventKind = "HEAVY_CASUALTIES"
	EvImportantCasualty EventKind = "IMPORTANT_CASUALTY"
	EvWaitExpired       EventKind = "WAIT_EXPIRED"
	EvAttackDelayDone   EventKind = "ATTACK_DELAY_DONE"
	EvExitedMap         EventKind = "EXITED_MAP"
)

type PartialTier string

const (
	TierNone   PartialTier = ""
	TierSmall  PartialTier = "S"
	TierMedium PartialTier = "M"
	TierLarge  PartialTier = "L"
)

// PartialTierFor buckets the *removed* value of a reviewed deal, not the
// paid amount.
func PartialTierFor(removedValue, smallMax, largeMin float64) PartialTier {
	switch {
	case removedValue <= 0:
		return TierNone
	case removedValue < smallMax:
		return TierSmall
	case removedValue < largeMin:
		return TierMedium
	default:
		return TierLarge
	}
}

type MessageKind string

const (
	MsgNone              MessageKind = ""
	MsgArrived           MessageKind = "CARAVAN_ARRIVED"
	MsgFulfilled         MessageKind = "REQUEST_FULFILLED"
	MsgPartialSmall      MessageKind = "REQUEST_PARTIAL_S"
	MsgPartialMedium     MessageKind = "REQUEST_PARTIAL_M"
	MsgPartialLarge      MessageKind = "REQUEST_PARTIAL_L"
	MsgUnfulfilledAttack MessageKind = "REQUEST_UNFULFILLED_ATTACK"
	MsgUnfulfilledLeave  MessageKind = "REQUEST_UNFULFILLED_LEAVE"
	MsgCaravanLeaving    MessageKind = "CARAVAN_LEAVING"
)

// TransitionInput is the full (state, event) context the table needs.
type TransitionInput struct {
	State State
	Event EventKind

	Tier     PartialTier
	Relation model.RelationKind

	CanReachEdge bool
	Fighting     bool
}

// Penalties parameterizes the goodwill costs of the departure branches.
type Penalties struct {
	PartialSmall    int
	PartialMedium   int
	PartialLarge    int
	UnfulfilledAlly int
}

// Transition is the action plan for one step: next state plus the
// compensating effects the runtime must apply.
type Transition struct {
	Next State

	GoodwillDelta int
	FlipHostile   bool
	Message       MessageKind
	CloseDeal     bool
	EndJobs       bool

	StartHarmCooldown bool
	StartWaitWindow   bool
	StartAttackDelay  bool
}

func active(s State) bool {
	switch s {
	case StateTraveling, StateWaiting, StateDefending, StateAttacking:
		return true
	default:
		return false
	}
}

func exiting(s State) bool {
	switch s {
	case StateEscortingExit, StateExitingPassive, StateExitingFighting:
		return true
	default:
		return false
	}
}

// Decide is the transition table. The second return is false when the
// (state, event) pair is not a defined transition.
func Decide(in TransitionInput, p Penalties) (Transition, bool) {
	if in.State == StateDeparted {
		return Transition{}, false
	}
	if in.Event == EvExitedMap {
		if !exiting(in.State) {
			return Transition{}, false
		}
		// Deal close on departure is idempotent; repeating it here covers
		// caravans destroyed or abandoned mid-exit.
		return Transition{Next: StateDeparted, CloseDeal: true}, true
	}
	if !active(in.State) {
		return Transition{}, false
	}

	switch in.Event {
	case EvArrivedAtSpot:
		if in.State != StateTraveling {
			return Transition{}, false
		}
		return Transition{Next: StateWaiting, Message: MsgArrived}, true

	case EvMemberHarmed:
		if in.State == StateAttacking {
			return Transition{}, false
		}
		return Transition{Next: StateDefending, StartHarmCooldown: true}, true

	case EvHarmQuietElapsed:
		if in.State != StateDefending {
			return Transition{}, false
		}
		return Transition{Next: StateWaiting}, true

	case EvDangerTemperature:
		return Transition{Next: StateEscortingExit, Message: MsgCaravanLeaving, CloseDeal: true, EndJobs: true}, true

	case EvMemoFulfilled:
		return Transition{Next: StateEscortingExit, Message: MsgFulfilled, CloseDeal: true, EndJobs: true}, true

	case EvMemoPartial:
		t := Transition{Next: StateExitingPassive, CloseDeal: true, EndJobs: true}
		switch in.Tier {
		case TierSmall:
			t.GoodwillDelta = p.PartialSmall
			t.Message = MsgPartialSmall
		case TierMedium:
			t.GoodwillDelta = p.PartialMedium
			t.Message = MsgPartialMedium
		default:
			t.GoodwillDelta = p.PartialLarge
			t.Message = MsgPartialLarge
		}
		return t, true

	case EvMemoUnfulfilled:
		// The caravan lingers for a randomized window before reacting.
		return Transition{Next: in.State, StartWaitWindow: true}, true

	case EvWaitExpired:
		if in.Relation == model.RelationNeutral {
			return Transition{
				Next:             StateAttacking,
				FlipHostile:      true,
				Message:          MsgUnfulfilledAttack,
				CloseDeal:        true,
				StartAttackDelay: true,
			}, true
		}
		return Transition{
			Next:          StateExitingPassive,
			GoodwillDelta: p.UnfulfilledAlly,
			Message:       MsgUnfulfilledLeave,
			CloseDeal:     true,
			EndJobs:       true,
		}, true

	case EvAttackDelayDone:
		if in.State != StateAttacking {
			return Transition{}, false
		}
		return Transition{Next: StateEscortingExit, CloseDeal: true, EndJobs: true}, true

	case EvTrapped:
		if !in.CanReachEdge {
			return Transition{Next: StateExitingPassive, CloseDeal: true, EndJobs: true}, true
		}
		if in.Fighting {
			return Transition{Next: StateExitingFighting, CloseDeal: true, EndJobs: true}, true
		}
		return Transition{}, false

	case EvHeavyCasualties, EvImportantCasualty:
		next := StateExitingPassive
		if in.Fighting {
			next = StateExitingFighting
		}
		return Transition{Next: next, Message: MsgCaravanLeaving, CloseDeal: true, EndJobs: true}, true
	}
	return Transition{}, false
}
