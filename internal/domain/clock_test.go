package domain

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 5, 999, time.FixedZone("x", 3600))
	if got := FormatTime(ts); got != "2026-03-01T11:30:05Z" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestInDaysCrossesMonth(t *testing.T) {
	ts := time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC)
	if got := FormatTime(InDays(ts, 7)); got != "2026-03-04T00:00:00Z" {
		t.Errorf("InDays = %q", got)
	}
}

func TestParseTimeRoundTrip(t *testing.T) {
	ts, err := ParseTime("2026-01-02T03:04:05Z")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if FormatTime(ts) != "2026-01-02T03:04:05Z" {
		t.Errorf("round trip mismatch: %s", FormatTime(ts))
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewID(t *testing.T) {
	id := NewID(PrefixMemory)
	if !strings.HasPrefix(id, "mem_") || len(id) != len("mem_")+12 {
		t.Errorf("unexpected id %q", id)
	}
	if !HasPrefix(id, PrefixMemory) || HasPrefix(id, PrefixExperience) {
		t.Errorf("HasPrefix mismatch for %q", id)
	}
	if NewID(PrefixMemory) == id {
		t.Error("ids should be unique")
	}
}

func TestDefaultIdempotencyKey(t *testing.T) {
	runAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := DefaultIdempotencyKey("cg_1", JobActionVerify, runAt)
	if got != "cg_1:verify:2026-01-02T03:04:05Z" {
		t.Errorf("key = %q", got)
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityHigh.Rank() > PriorityMedium.Rank() && PriorityMedium.Rank() > PriorityLow.Rank()) {
		t.Error("priority ranks out of order")
	}
}
