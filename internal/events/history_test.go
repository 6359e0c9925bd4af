package events

import (
	"testing"
	"time"
)

func TestHistoryRecent(t *testing.T) {
	h := NewHistory()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		h.Record(id, at(0), 0)
	}
	if h.Len() != 6 {
		t.Fatalf("expected 6 entries, got %d", h.Len())
	}
	recent := h.Recent(5)
	if len(recent) != 5 || recent[0] != "b" || recent[4] != "f" {
		t.Fatalf("expected [b..f], got %v", recent)
	}
	if h.InRecent("a", 5) {
		t.Fatal("a should have left the recent window")
	}
	if !h.InRecent("b", 5) {
		t.Fatal("b should be in the recent window")
	}
	if !h.Has("a") {
		t.Fatal("a should remain in the history")
	}
	if got := h.Recent(50); len(got) != 6 {
		t.Fatalf("expected the whole log, got %v", got)
	}
}

func TestHistoryCooldown(t *testing.T) {
	h := NewHistory()
	h.Record("strike", at(0), time.Hour)
	h.Record("protest", at(0), 0)

	if !h.InCooldown("strike", at(59)) {
		t.Fatal("expected strike to be cooling down")
	}
	if h.InCooldown("strike", at(60)) {
		t.Fatal("expected cooldown to end at expiry")
	}
	if _, ok := h.Cooldowns()["strike"]; ok {
		t.Fatal("expected the expired entry to be removed")
	}
	if h.InCooldown("protest", at(0)) {
		t.Fatal("zero cooldown must not register")
	}
}

func TestHistoryPrune(t *testing.T) {
	h := NewHistory()
	h.Record("a", at(0), 10*time.Minute)
	h.Record("b", at(0), 2*time.Hour)
	h.Prune(at(30))

	cd := h.Cooldowns()
	if _, ok := cd["a"]; ok {
		t.Fatal("expected a pruned")
	}
	if _, ok := cd["b"]; !ok {
		t.Fatal("expected b kept")
	}
}

func TestHistoryRestoreAndReset(t *testing.T) {
	h := RestoreHistory([]string{"a", "b", "a"}, map[string]time.Time{"a": at(90)})
	if h.Len() != 3 || !h.Has("b") {
		t.Fatalf("unexpected restored log %v", h.Fired())
	}
	if !h.InCooldown("a", at(30)) {
		t.Fatal("expected restored cooldown")
	}

	h.Reset()
	if h.Len() != 0 || h.Has("a") || h.InCooldown("a", at(30)) {
		t.Fatal("expected empty history after reset")
	}
}

func TestHasDecision(t *testing.T) {
	log := []DecisionResult{{EventID: "e", ChoiceID: "c"}}
	if !HasDecision(log, ChoiceRef{EventID: "e", ChoiceID: "c"}) {
		t.Fatal("expected decision found")
	}
	if HasDecision(log, ChoiceRef{EventID: "e", ChoiceID: "d"}) {
		t.Fatal("unexpected decision match")
	}
}
