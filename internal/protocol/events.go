package protocol

// Event is a loosely-typed JSON object delivered to the player UI and to
// observer stream clients.
type Event map[string]any

func ActionResult(tick uint64, ref string, ok bool, code string, message string) Event {
	ev := Event{"t": tick, "type": "ACTION_RESULT", "ref": ref, "ok": ok}
	if code != "" {
		ev["code"] = code
	}
	if message != "" {
		ev["message"] = message
	}
	return ev
}

func PlayerMessage(tick uint64, kind string, factionID string, text string) Event {
	return Event{
		"t":       tick,
		"type":    "MESSAGE",
		"kind":    kind,
		"faction": factionID,
		"text":    text,
	}
}

func CaravanTransition(tick uint64, caravanID string, factionID string, from string, to string, cause string) Event {
	return Event{
		"t":       tick,
		"type":    "CARAVAN_TRANSITION",
		"caravan": caravanID,
		"faction": factionID,
		"from":    from,
		"to":      to,
		"cause":   cause,
	}
}
