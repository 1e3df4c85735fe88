package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunEscalationSweeper drives the escalation detector until ctx is
// canceled. Each tick transitions overdue records and, when this agent is
// the designated reporter, delivers the escalation note to the founder.
func (e *Engine) RunEscalationSweeper(ctx context.Context) error {
	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.sweepEscalations(ctx)
		}
	}
}

func (e *Engine) sweepEscalations(ctx context.Context) {
	for _, rec := range e.esc.Sweep(e.now()) {
		log := e.logger.With("agent", e.id.Name, "escalation", rec.ID, "thread", rec.ThreadID)
		if rec.Reporter() != e.id.Name {
			log.Debug("escalation detected, peer reports", "reporter", rec.Reporter())
			continue
		}
		if err := e.reportEscalation(ctx, rec); err != nil {
			log.Error("escalation report failed", "error", err)
			continue
		}
		log.Info("escalated to founder", "participants", strings.Join(rec.Participants, ","))
	}
}

// reportEscalation composes the structured what-is-stuck / what-is-proposed
// / why note and DMs it to the founder. Exactly one participant process
// runs this per record.
func (e *Engine) reportEscalation(ctx context.Context, rec EscalationRecord) error {
	if e.id.FounderID == "" {
		return fmt.Errorf("no founder configured")
	}

	instruction := fmt.Sprintf(
		"A cross-functional decision involving %s has been stuck without resolution for over %d minutes. "+
			"Write a short escalation note to the founder with exactly three parts: "+
			"(1) what is stuck, (2) what you propose, (3) why. "+
			"The message that started the debate:\n\n%s",
		strings.Join(rec.Participants, ", "),
		int(e.now().Sub(rec.OpenedAt).Minutes()),
		rec.Topic,
	)

	cctx, cancel := context.WithTimeout(ctx, e.completeTimeout)
	note, err := e.completer.Complete(cctx, e.id.Persona, instruction)
	cancel()
	if err != nil {
		return fmt.Errorf("compose escalation: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, e.postTimeout)
	defer cancel()
	dm, err := e.platform.OpenDM(pctx, e.id.FounderID)
	if err != nil {
		return fmt.Errorf("open founder dm: %w", err)
	}
	if err := e.platform.PostMessage(pctx, dm, "", note); err != nil {
		return fmt.Errorf("post escalation: %w", err)
	}
	return nil
}
