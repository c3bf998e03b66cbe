package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studiolens/whatsapp-relay/internal/conversation"
	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/storage"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

// Dispatcher sends replies through the messaging gateway and keeps the message log.
// Nothing it does fails a turn.
type Dispatcher struct {
	gateway messaging.Gateway
	store   storage.Store
	now     func() time.Time
}

// NewDispatcher creates a dispatcher
func NewDispatcher(gateway messaging.Gateway, store storage.Store) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		store:   store,
		now:     time.Now,
	}
}

// Send delivers a transition using the richest shape it carries
func (d *Dispatcher) Send(ctx context.Context, phone string, t *conversation.Transition) {
	if t == nil || t.Message == "" {
		return
	}

	var (
		err     error
		msgType string
	)
	switch {
	case len(t.Buttons) > 0:
		msgType = models.MessageTypeButtons
		err = d.gateway.SendButtons(ctx, phone, t.Message, t.Buttons)
	case t.List != nil:
		msgType = models.MessageTypeList
		err = d.gateway.SendList(ctx, phone, t.Message, *t.List)
	case t.Options != nil:
		msgType = models.MessageTypeOptionList
		err = d.gateway.SendOptionList(ctx, phone, t.Message, *t.Options)
	default:
		msgType = models.MessageTypeText
		err = d.gateway.SendText(ctx, phone, t.Message)
	}

	d.record(ctx, phone, t.Message, msgType, string(t.Step), err)
}

// SendText delivers a plain text outside of a conversation turn
func (d *Dispatcher) SendText(ctx context.Context, phone, text, msgType string) error {
	err := d.gateway.SendText(ctx, phone, text)
	d.record(ctx, phone, text, msgType, "", err)
	return err
}

// LogIncoming appends the inbound message to the log
func (d *Dispatcher) LogIncoming(ctx context.Context, ev messaging.InboundEvent) {
	meta := map[string]string{"type": ev.Type}
	if ev.MessageID != "" {
		meta["message_id"] = ev.MessageID
	}
	if ev.SelectionID != "" && ev.Text != "" {
		meta["label"] = ev.Text
	}
	d.append(ctx, &models.MessageLog{
		Phone:       ev.Phone,
		Message:     ev.Content(),
		Direction:   models.DirectionIncoming,
		MessageType: ev.Type,
		Metadata:    encodeMetadata(meta),
	})
}

func (d *Dispatcher) record(ctx context.Context, phone, text, msgType, step string, sendErr error) {
	meta := map[string]string{}
	if step != "" {
		meta["step"] = step
	}
	if sendErr != nil {
		slog.Error("failed to send message", "phone", utils.MaskPhone(phone), "type", msgType, "error", sendErr)
		meta["error"] = sendErr.Error()
	}
	d.append(ctx, &models.MessageLog{
		Phone:       phone,
		Message:     text,
		Direction:   models.DirectionOutgoing,
		MessageType: msgType,
		Metadata:    encodeMetadata(meta),
	})
}

func (d *Dispatcher) append(ctx context.Context, entry *models.MessageLog) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = d.now()
	if err := d.store.AppendMessageLog(ctx, entry); err != nil {
		slog.Warn("message log write failed", "phone", utils.MaskPhone(entry.Phone), "direction", entry.Direction, "error", err)
	}
}

func encodeMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(raw)
}
