package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	for _, code := range []string{
		ErrBadRequest, ErrOpenDeal, ErrCooldown, ErrEmptyRequest,
		ErrNoSilver, ErrNotLoaded, ErrInvalidTarget, ErrNoDeal, ErrInternal,
	} {
		if !IsKnownCode(code) {
			t.Fatalf("expected %q to be known", code)
		}
	}
	if !IsKnownCode("") {
		t.Fatalf("empty code should be accepted")
	}
	if IsKnownCode("E_NOPE") {
		t.Fatalf("unknown code should be rejected")
	}
}

func TestActionResultShape(t *testing.T) {
	ev := ActionResult(7, "r1", false, ErrNoSilver, "not enough silver")
	if ev["type"] != "ACTION_RESULT" || ev["ok"] != false {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if ev["code"] != ErrNoSilver {
		t.Fatalf("unexpected code: %#v", ev["code"])
	}
	ok := ActionResult(7, "r2", true, "", "")
	if _, present := ok["code"]; present {
		t.Fatalf("ok result should omit code")
	}
}
