package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studiolens/whatsapp-relay/internal/conversation"
	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

// Turn statuses reported back to the webhook
const (
	StatusProcessed = "processed"
	StatusIgnored   = "ignored"
	StatusError     = "error"
)

// ConversationEngine computes the next transition for a session
type ConversationEngine interface {
	Handle(ctx context.Context, sess *models.Session, raw string) *conversation.Transition
}

// Result describes what happened to one inbound delivery
type Result struct {
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Step    string `json:"step,omitempty"`
	Replied bool   `json:"replied"`
}

// Relay runs one conversation turn per inbound message:
// guard, load session, compute, persist, send.
type Relay struct {
	guard      *Guard
	sessions   *SessionManager
	engine     ConversationEngine
	dispatcher *Dispatcher
}

// NewRelay wires the relay
func NewRelay(guard *Guard, sessions *SessionManager, engine ConversationEngine, dispatcher *Dispatcher) *Relay {
	return &Relay{
		guard:      guard,
		sessions:   sessions,
		engine:     engine,
		dispatcher: dispatcher,
	}
}

// HandleInbound processes a normalized webhook delivery. It never returns an error;
// the provider always gets a 200.
func (r *Relay) HandleInbound(ctx context.Context, ev messaging.InboundEvent) (res Result) {
	ev.Phone = utils.NormalizePhone(ev.Phone)

	verdict, release := r.guard.Admit(ctx, ev)
	defer release()
	if verdict != VerdictAdmit {
		slog.Debug("inbound message ignored", "phone", utils.MaskPhone(ev.Phone), "message_id", ev.MessageID, "reason", verdict)
		return Result{Status: StatusIgnored, Reason: string(verdict)}
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("conversation turn panicked", "phone", utils.MaskPhone(ev.Phone), "panic", fmt.Sprint(p))
			res = Result{Status: StatusError}
		}
	}()

	r.dispatcher.LogIncoming(ctx, ev)

	content := ev.Content()
	sess := r.sessions.GetOrCreate(ctx, ev.Phone)
	t := r.engine.Handle(ctx, sess, content)

	if t == nil {
		// Nothing to say: keep the step, remember what was typed
		r.sessions.Update(ctx, ev.Phone, sess.CurrentStep, content, models.DataPatch{})
		return Result{Status: StatusProcessed, Step: sess.CurrentStep}
	}

	r.sessions.Update(ctx, ev.Phone, string(t.Step), content, t.Patch)
	r.dispatcher.Send(ctx, ev.Phone, t)

	slog.Info("conversation turn processed",
		"phone", utils.MaskPhone(ev.Phone),
		"from", sess.CurrentStep,
		"to", t.Step,
	)
	return Result{Status: StatusProcessed, Step: string(t.Step), Replied: true}
}
