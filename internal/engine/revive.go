package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/anabananasophia/Talia-bot/internal/config"
	"github.com/anabananasophia/Talia-bot/internal/store"
)

const defaultRevivalPrompt = "The workspace has been quiet for a while. " +
	"Post a short, natural check-in to your team channel: surface one open item " +
	"from your domain worth discussing, or ask a pointed question. Do not mention " +
	"that you were prompted to do this."

// Reviver nudges a dormant workspace back to life. A single background loop
// per process compares the time since the last observed activity against
// the dormancy threshold and, when exceeded, posts an agent-composed
// check-in to the home channel.
type Reviver struct {
	id        Identity
	store     store.StateStore
	platform  Platform
	completer Completer
	hours     *HoursGate
	logger    *slog.Logger

	every        time.Duration
	dormantAfter time.Duration
	prompt       string
	timeout      time.Duration

	now func() time.Time
}

// NewReviver wires the loop. A zero "every" interval disables it; callers
// check Enabled before starting.
func NewReviver(id Identity, cfg config.RevivalCfg, st store.StateStore, platform Platform, completer Completer, hours *HoursGate, logger *slog.Logger) *Reviver {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultRevivalPrompt
	}
	return &Reviver{
		id:           id,
		store:        st,
		platform:     platform,
		completer:    completer,
		hours:        hours,
		logger:       logger,
		every:        config.Duration(cfg.Every, 5*time.Minute),
		dormantAfter: config.Duration(cfg.DormantAfter, 4*time.Hour),
		prompt:       prompt,
		timeout:      60 * time.Second,
		now:          time.Now,
	}
}

// Enabled reports whether the loop should run at all.
func (r *Reviver) Enabled() bool {
	return r.every > 0 && r.id.HomeChannel != ""
}

// Run ticks until ctx is canceled. Tick errors are logged and the loop
// continues; nothing here may take the process down.
func (r *Reviver) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reviver) tick(ctx context.Context) {
	log := r.logger.With("agent", r.id.Name)

	last, err := r.store.LastActivity(r.id.Name)
	if err != nil {
		log.Warn("revival: read last activity failed", "error", err)
		return
	}
	now := r.now()
	if last.IsZero() {
		// Fresh state: seed the clock instead of reviving immediately.
		if err := r.store.TouchActivity(r.id.Name, now); err != nil {
			log.Warn("revival: seed activity failed", "error", err)
		}
		return
	}
	if now.Sub(last) < r.dormantAfter {
		return
	}
	// Self-initiated posts have no sender; the founder bypass never applies.
	if !r.hours.InWindow(now) {
		return
	}

	if err := r.revive(ctx); err != nil {
		log.Warn("revival failed", "error", err)
		return
	}
	// Reset so the next check-in waits a full dormancy window.
	if err := r.store.TouchActivity(r.id.Name, now); err != nil {
		log.Warn("revival: reset activity failed", "error", err)
	}
	log.Info("revived dormant channel", "channel", r.id.HomeChannel)
}

func (r *Reviver) revive(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	text, err := r.completer.Complete(cctx, r.id.Persona, r.prompt)
	cancel()
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.platform.PostMessage(pctx, r.id.HomeChannel, "", text)
}
