package engine

import (
	"testing"
	"time"

	"github.com/anabananasophia/Talia-bot/internal/config"
)

func newUTCGate(t *testing.T) *HoursGate {
	t.Helper()
	g, err := NewHoursGate(config.WorkingHoursCfg{Cron: "* 9-17 * * 1-5", Timezone: "UTC"}, "U02FOUNDER")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestHoursGate_Window(t *testing.T) {
	g := newUTCGate(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"tuesday mid-morning", time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC), true},
		{"wednesday late evening", time.Date(2025, 8, 6, 22, 0, 0, 0, time.UTC), false},
		{"weekday start of window", time.Date(2025, 8, 5, 9, 0, 0, 0, time.UTC), true},
		{"weekday just before window", time.Date(2025, 8, 5, 8, 59, 0, 0, time.UTC), false},
		{"weekday end of window", time.Date(2025, 8, 5, 17, 59, 0, 0, time.UTC), true},
		{"weekday just after window", time.Date(2025, 8, 5, 18, 0, 0, 0, time.UTC), false},
		{"saturday mid-morning", time.Date(2025, 8, 9, 10, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.InWindow(tt.at); got != tt.want {
				t.Errorf("InWindow(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestHoursGate_FounderBypass(t *testing.T) {
	g := newUTCGate(t)
	lateNight := time.Date(2025, 8, 6, 23, 30, 0, 0, time.UTC)

	if !g.Allows("U02FOUNDER", lateNight) {
		t.Error("founder must bypass the gate at any hour")
	}
	if g.Allows("U0SOMEONE", lateNight) {
		t.Error("non-founder must be gated after hours")
	}
	if g.Allows("", lateNight) {
		t.Error("missing sender must not match an empty founder ID")
	}
}

func TestHoursGate_TimezoneConversion(t *testing.T) {
	g, err := NewHoursGate(config.WorkingHoursCfg{Cron: "* 9-17 * * 1-5", Timezone: "America/Toronto"}, "")
	if err != nil {
		t.Fatal(err)
	}

	// 14:00 UTC on a Tuesday in August is 10:00 in Toronto (EDT): in window.
	if !g.InWindow(time.Date(2025, 8, 5, 14, 0, 0, 0, time.UTC)) {
		t.Error("14:00 UTC should be inside Toronto working hours")
	}
	// 02:00 UTC is 22:00 the previous evening in Toronto: out of window.
	if g.InWindow(time.Date(2025, 8, 6, 2, 0, 0, 0, time.UTC)) {
		t.Error("02:00 UTC should be outside Toronto working hours")
	}
}

func TestNewHoursGate_Invalid(t *testing.T) {
	if _, err := NewHoursGate(config.WorkingHoursCfg{Timezone: "Not/AZone"}, ""); err == nil {
		t.Error("want error for unknown timezone")
	}
	if _, err := NewHoursGate(config.WorkingHoursCfg{Cron: "not a cron", Timezone: "UTC"}, ""); err == nil {
		t.Error("want error for invalid cron expression")
	}
}
