package schedule

import (
	"testing"
	"time"
)

func TestRuleEvaluator_UnknownScanTypeAllowed(t *testing.T) {
	e := NewRuleEvaluator(nil)
	if !e.Check("wifi", time.Now()) {
		t.Fatal("expected an unconfigured scan type to be allowed")
	}
}

func TestRuleEvaluator_DisabledRuleBlocks(t *testing.T) {
	e := NewRuleEvaluator(map[string]Rule{"wifi": {Enabled: false}})
	if e.Check("wifi", time.Now()) {
		t.Fatal("expected a disabled rule to block")
	}
}

func TestRuleEvaluator_DayRestriction(t *testing.T) {
	e := NewRuleEvaluator(map[string]Rule{
		"wifi": {Enabled: true, Days: []time.Weekday{time.Monday, time.Tuesday}},
	})
	monday := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC) // a Monday
	friday := time.Date(2026, 8, 7, 10, 0, 0, 0, time.UTC) // a Friday

	if !e.Check("wifi", monday) {
		t.Error("expected Monday to be allowed")
	}
	if e.Check("wifi", friday) {
		t.Error("expected Friday to be blocked")
	}
}

func TestRuleEvaluator_TimeWindow(t *testing.T) {
	e := NewRuleEvaluator(map[string]Rule{
		"bluetooth": {Enabled: true, StartTime: "09:00", EndTime: "17:00"},
	})
	morning := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	night := time.Date(2026, 8, 3, 23, 0, 0, 0, time.UTC)

	if !e.Check("bluetooth", morning) {
		t.Error("expected 10:00 to be within the 09:00-17:00 window")
	}
	if e.Check("bluetooth", night) {
		t.Error("expected 23:00 to be outside the 09:00-17:00 window")
	}
}

func TestRuleEvaluator_SetRuleReplaces(t *testing.T) {
	e := NewRuleEvaluator(map[string]Rule{"wifi": {Enabled: false}})
	if e.Check("wifi", time.Now()) {
		t.Fatal("expected initial rule to block")
	}
	e.SetRule("wifi", Rule{Enabled: true})
	if !e.Check("wifi", time.Now()) {
		t.Fatal("expected updated rule to allow")
	}
}
