package engine

import (
	"testing"

	"github.com/anabananasophia/Talia-bot/internal/bus"
)

func TestResolveThread(t *testing.T) {
	tests := []struct {
		name string
		ev   bus.InboundEvent
		want ThreadContext
	}{
		{
			"root message",
			bus.InboundEvent{Timestamp: "100.000"},
			ThreadContext{ThreadID: "100.000", IsRoot: true},
		},
		{
			"threaded reply",
			bus.InboundEvent{Timestamp: "105.000", ThreadRootTS: "100.000"},
			ThreadContext{ThreadID: "100.000", IsRoot: false},
		},
		{
			"root echoed with thread_ts",
			bus.InboundEvent{Timestamp: "100.000", ThreadRootTS: "100.000"},
			ThreadContext{ThreadID: "100.000", IsRoot: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveThread(tt.ev); got != tt.want {
				t.Errorf("ResolveThread(%+v) = %+v, want %+v", tt.ev, got, tt.want)
			}
		})
	}
}
