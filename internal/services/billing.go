package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/studiolens/whatsapp-relay/internal/conversation"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/storage"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

// ErrInvalidNotice is returned for notices missing the fields needed to deliver them
var ErrInvalidNotice = errors.New("invalid billing notice")

// BillingNotifier turns due-date notices from the partner backend into WhatsApp reminders
type BillingNotifier struct {
	store      storage.Store
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewBillingNotifier creates a billing notifier
func NewBillingNotifier(store storage.Store, dispatcher *Dispatcher) *BillingNotifier {
	return &BillingNotifier{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Notify sends the reminder for a (charge, bucket) pair once. It reports false
// when the pair was already handled.
func (b *BillingNotifier) Notify(ctx context.Context, n models.BillingDueNotice) (bool, error) {
	phone := utils.NormalizePhone(n.Phone)
	if n.ChargeID == "" || n.Bucket == "" || phone == "" {
		return false, fmt.Errorf("%w: chargeId, bucket and phone are required", ErrInvalidNotice)
	}
	if _, ok := bucketOffset(n.Bucket); !ok {
		return false, fmt.Errorf("%w: unknown bucket %q", ErrInvalidNotice, n.Bucket)
	}

	first, err := b.store.RecordBillingNotification(ctx, &models.BillingNotification{
		ChargeID:     n.ChargeID,
		Bucket:       n.Bucket,
		CustomerID:   n.CustomerID,
		CustomerName: n.CustomerName,
		Phone:        phone,
		ChargeType:   n.ChargeType,
		Amount:       n.Amount,
		DueDate:      n.DueDate,
		CreatedAt:    b.now(),
	})
	if err != nil {
		return false, err
	}
	if !first {
		slog.Info("billing notice already sent", "charge_id", n.ChargeID, "bucket", n.Bucket)
		return false, nil
	}

	if err := b.dispatcher.SendText(ctx, phone, BillingMessage(n), models.MessageTypeNotification); err != nil {
		// recorded already; the partner will not get a second reminder for this bucket
		return true, fmt.Errorf("send billing notice %s/%s: %w", n.ChargeID, n.Bucket, err)
	}
	slog.Info("billing notice sent", "charge_id", n.ChargeID, "bucket", n.Bucket, "phone", utils.MaskPhone(phone))
	return true, nil
}

// bucketOffset parses D-5 / D0 / D+3 into days relative to the due date
func bucketOffset(bucket string) (int, bool) {
	b := strings.ToUpper(strings.TrimSpace(bucket))
	if !strings.HasPrefix(b, "D") {
		return 0, false
	}
	rest := b[1:]
	if rest == "0" || rest == "" {
		return 0, true
	}
	days, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return days, true
}

// BillingMessage renders the reminder text for a notice
func BillingMessage(n models.BillingDueNotice) string {
	offset, _ := bucketOffset(n.Bucket)

	var when string
	switch {
	case offset < -1:
		when = fmt.Sprintf("vence em %d dias", -offset)
	case offset == -1:
		when = "vence amanhã"
	case offset == 0:
		when = "vence hoje"
	case offset == 1:
		when = "venceu ontem"
	default:
		when = fmt.Sprintf("venceu há %d dias", offset)
	}

	var b strings.Builder
	b.WriteString("Olá")
	if name := utils.FirstName(n.CustomerName); name != "" {
		b.WriteString(", " + name)
	}
	b.WriteString("! 📸\n\n")
	fmt.Fprintf(&b, "Sua cobrança de %s %s", conversation.FormatBRL(n.Amount), when)
	if due := formatDueDate(n.DueDate); due != "" {
		fmt.Fprintf(&b, " (vencimento %s)", due)
	}
	b.WriteString(".\n\nPara receber a segunda via, responda *2* no menu principal ou digite *menu*.")
	return b.String()
}

func formatDueDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
