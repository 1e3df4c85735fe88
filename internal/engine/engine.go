package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anabananasophia/Talia-bot/internal/bus"
	"github.com/anabananasophia/Talia-bot/internal/config"
	"github.com/anabananasophia/Talia-bot/internal/store"
)

// Platform is the messaging-platform surface the engine needs. Implemented
// by slack.Client; faked in tests.
type Platform interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
	LatestThreadTimestamp(ctx context.Context, channelID, threadTS string) (string, error)
	OpenDM(ctx context.Context, userID string) (string, error)
}

// Completer turns a persona plus user text into reply text. Implemented by
// providers.OpenAIProvider.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const founderNote = "\n\nThe current message is from the founder. Treat it as top priority and answer directly."

// Engine is the response-admission core for one agent. HandleEvent performs
// the fast synchronous admission checks and spawns the slow path
// (stagger, staleness, compose, post) as an independent goroutine.
type Engine struct {
	id        Identity
	store     store.StateStore
	platform  Platform
	completer Completer
	hours     *HoursGate
	stagger   Stagger
	esc       *Escalations
	logger    *slog.Logger

	cooldown        time.Duration
	maxTurns        int
	completeTimeout time.Duration
	postTimeout     time.Duration
	sweepEvery      time.Duration

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	ctx context.Context
	wg  sync.WaitGroup
}

// New wires the engine. ctx bounds all dispatched work; cancel it to stop
// in-flight handlers at their next suspension point.
func New(ctx context.Context, id Identity, cfg config.EngineConfig, st store.StateStore, platform Platform, completer Completer, hours *HoursGate, logger *slog.Logger) *Engine {
	return &Engine{
		id:              id,
		store:           st,
		platform:        platform,
		completer:       completer,
		hours:           hours,
		stagger:         NewStagger(cfg.Stagger, id.Name),
		esc:             NewEscalations(config.Duration(cfg.Escalation.Window, 30*time.Minute)),
		logger:          logger,
		cooldown:        config.Duration(cfg.Cooldown, 45*time.Second),
		maxTurns:        defaultInt(cfg.MaxTurnsPerThread, 5),
		completeTimeout: config.Duration(cfg.CompleteTimeout, 60*time.Second),
		postTimeout:     config.Duration(cfg.PostTimeout, 15*time.Second),
		sweepEvery:      config.Duration(cfg.Escalation.Sweep, time.Minute),
		now:             time.Now,
		sleep:           ctxSleep,
		ctx:             ctx,
	}
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func ctxSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Escalations exposes the detector for the background sweeper.
func (e *Engine) Escalations() *Escalations { return e.esc }

// Wait blocks until all spawned dispatch goroutines finish. Used by
// shutdown and tests.
func (e *Engine) Wait() { e.wg.Wait() }

// HandleEvent runs the synchronous admission pipeline for one inbound
// event and returns the decision for the ingress ack. Rejections are
// deliberate no-ops; nothing here surfaces to the sender.
func (e *Engine) HandleEvent(ev bus.InboundEvent) bus.Decision {
	log := e.logger.With("agent", e.id.Name, "channel", ev.ChannelID, "ts", ev.Timestamp)

	if ev.Type != bus.EventMessage && ev.Type != bus.EventMention {
		return bus.DecisionIgnoredType
	}
	if ev.Subtype != "" {
		log.Debug("event suppressed", "reason", bus.DecisionSubtype, "subtype", ev.Subtype)
		return bus.DecisionSubtype
	}
	if ev.IsFromBot() || ev.AuthorID == "" || ev.AuthorID == e.id.UserID {
		log.Debug("event suppressed", "reason", bus.DecisionBotOrigin)
		return bus.DecisionBotOrigin
	}

	tc := ResolveThread(ev)

	// Any human message counts as workspace activity for dormancy tracking.
	if err := e.store.TouchActivity(e.id.Name, e.now()); err != nil {
		log.Warn("touch activity failed", "error", err)
	}

	isFounder := ev.AuthorID == e.id.FounderID
	if isFounder && !tc.IsRoot {
		// Founder weighing in on a thread settles any stuck debate there.
		e.esc.Resolve(tc.ThreadID)
	}

	outcome := classifyMentions(ev.Text, e.id.UserID)

	if ev.Type == bus.EventMention && outcome != mentionMe {
		log.Debug("event suppressed", "reason", bus.DecisionNotMyMention)
		return bus.DecisionNotMyMention
	}
	if outcome == mentionOthers {
		// Someone else was addressed by name. Stay out of it, founder
		// included.
		e.observeDebate(ev, tc)
		log.Debug("event suppressed", "reason", bus.DecisionWrongMention)
		return bus.DecisionWrongMention
	}

	if !isFounder && outcome != mentionMe && !IsRelevant(ev.Text, e.id.Keywords) {
		return bus.DecisionIrrelevant
	}

	e.observeDebate(ev, tc)

	if !e.hours.Allows(ev.AuthorID, e.now()) {
		log.Debug("event suppressed", "reason", bus.DecisionAfterHours)
		return bus.DecisionAfterHours
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.dispatch(ev, tc)
	}()
	return bus.DecisionDispatch
}

// observeDebate opens or extends an escalation record when the message
// drags a fellow executive into a thread this agent is engaged in. Founder
// messages never open debates; the founder assigning work is not a stuck
// decision.
func (e *Engine) observeDebate(ev bus.InboundEvent, tc ThreadContext) {
	if ev.AuthorID == e.id.FounderID {
		return
	}
	var peers []string
	for _, id := range ParseMentions(ev.Text) {
		if name, ok := e.id.IsPeerUser(id); ok {
			peers = append(peers, name)
		}
	}
	if name, ok := e.id.IsPeerUser(ev.AuthorID); ok {
		// A peer speaking in the thread is a participant too.
		peers = append(peers, name)
	}
	if len(peers) == 0 {
		return
	}
	if !e.engaged(ev, tc) {
		return
	}
	participants := append(peers, e.id.Name)
	e.esc.Observe(ev.ChannelID, tc.ThreadID, ev.Text, e.now(), participants)
}

// engaged reports whether this agent has a stake in the conversation: the
// message is in-domain, or the agent already replied in the thread.
// Off-topic chatter that happens to name a peer is not a debate.
func (e *Engine) engaged(ev bus.InboundEvent, tc ThreadContext) bool {
	if IsRelevant(ev.Text, e.id.Keywords) {
		return true
	}
	n, err := e.store.TurnCount(e.id.Name, tc.ThreadID)
	return err == nil && n > 0
}

// dispatch is the slow path: admission against the tracker, stagger delay,
// staleness re-check, compose, post, commit. Every failure degrades to
// silence with a log line.
func (e *Engine) dispatch(ev bus.InboundEvent, tc ThreadContext) {
	runID := uuid.NewString()[:8]
	log := e.logger.With("agent", e.id.Name, "run", runID, "thread", tc.ThreadID)

	verdict, err := e.store.Admit(e.id.Name, tc.ThreadID, e.now(), e.cooldown, e.maxTurns)
	if err != nil {
		log.Error("admission check failed", "error", err)
		return
	}
	if verdict != store.VerdictAdmit {
		log.Debug("admission rejected", "reason", verdict)
		return
	}

	if !e.sleep(e.ctx, e.stagger.Delay()) {
		return
	}

	// Staleness: only the handler for the newest message in the thread
	// proceeds. A read failure counts as still-current; posting a possibly
	// superseded reply beats going silent on every transient API error.
	latest, err := e.platform.LatestThreadTimestamp(e.ctx, ev.ChannelID, tc.ThreadID)
	if err != nil {
		log.Warn("thread read failed, assuming current", "error", err)
	} else if latest != "" && latest != ev.Timestamp {
		log.Debug("admission rejected", "reason", "stale_message", "latest", latest)
		return
	}

	system := e.id.Persona
	if ev.AuthorID == e.id.FounderID {
		system += founderNote
	}

	cctx, cancel := context.WithTimeout(e.ctx, e.completeTimeout)
	reply, err := e.completer.Complete(cctx, system, ev.Text)
	cancel()
	if err != nil {
		log.Error("completion failed", "error", err)
		return
	}
	if reply == "" {
		log.Warn("empty completion, nothing to post")
		return
	}

	pctx, cancel := context.WithTimeout(e.ctx, e.postTimeout)
	err = e.platform.PostMessage(pctx, ev.ChannelID, tc.ThreadID, reply)
	cancel()
	if err != nil {
		log.Error("post failed", "error", err)
		return
	}

	if err := e.store.RecordTurn(e.id.Name, tc.ThreadID, e.maxTurns); err != nil {
		log.Error("record turn failed", "error", err)
	}
	log.Info("replied", "channel", ev.ChannelID)
}
