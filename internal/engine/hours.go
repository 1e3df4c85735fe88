package engine

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/anabananasophia/Talia-bot/internal/config"
)

// HoursGate restricts non-founder replies to a configured working-hours
// window. The window is a cron expression evaluated against wall-clock time
// in the configured zone; the founder bypasses the gate entirely.
type HoursGate struct {
	expr      string
	loc       *time.Location
	founderID string
	gron      *gronx.Gronx
}

// NewHoursGate builds the gate from config. An unknown timezone is a
// startup error rather than a silent UTC fallback.
func NewHoursGate(cfg config.WorkingHoursCfg, founderID string) (*HoursGate, error) {
	expr := cfg.Cron
	if expr == "" {
		expr = "* 9-17 * * 1-5"
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "America/Toronto"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("working hours timezone %q: %w", tz, err)
	}

	g := gronx.New()
	if !g.IsValid(expr) {
		return nil, fmt.Errorf("working hours cron %q is not a valid expression", expr)
	}

	return &HoursGate{expr: expr, loc: loc, founderID: founderID, gron: g}, nil
}

// Allows reports whether the agent may reply to senderID at now. It gates
// reply initiation only; observation and state recording are unaffected.
func (h *HoursGate) Allows(senderID string, now time.Time) bool {
	if senderID != "" && senderID == h.founderID {
		return true
	}
	return h.InWindow(now)
}

// InWindow reports whether now falls inside the working-hours window,
// ignoring any founder bypass. The revival loop uses this directly since
// self-initiated posts have no sender.
func (h *HoursGate) InWindow(now time.Time) bool {
	due, err := h.gron.IsDue(h.expr, now.In(h.loc))
	if err != nil {
		return false
	}
	return due
}
