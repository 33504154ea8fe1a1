package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("Now() = %v, expected reference time", clock.Now())
	}
}

func TestClockSetAndAdvance(t *testing.T) {
	start := time.Date(2025, 10, 6, 8, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("Advance returned %v", got)
	}
	if !clock.Now().Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("Now() = %v after advance", clock.Now())
	}

	later := start.Add(24 * time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Fatalf("Now() = %v after Set", clock.Now())
	}
}

func TestClockNowFuncNilReceiver(t *testing.T) {
	var clock *Clock
	nowFunc := clock.NowFunc()
	if nowFunc == nil {
		t.Fatal("NowFunc returned nil for nil clock")
	}
	if nowFunc().IsZero() {
		t.Fatal("fallback NowFunc returned zero time")
	}
}
