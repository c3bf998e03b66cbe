package storage

import (
	"context"
	"errors"

	"github.com/studiolens/whatsapp-relay/internal/models"
)

// ErrNotFound is returned when a session does not exist in durable storage
var ErrNotFound = errors.New("not found")

// Store is the durable side of the relay: sessions, message logs and billing notices.
// It has no TTLs; whatever is written here is authoritative.
type Store interface {
	// Session operations
	GetSession(ctx context.Context, phone string) (*models.Session, error)
	CreateSession(ctx context.Context, sess *models.Session) error
	// UpdateSession upserts step and last message and merges patch into the stored data
	UpdateSession(ctx context.Context, phone, step, lastMessage string, patch models.DataPatch) error
	// DeleteSession removes the session together with its message logs
	DeleteSession(ctx context.Context, phone string) error

	// Message log operations
	AppendMessageLog(ctx context.Context, entry *models.MessageLog) error
	ListMessageLogs(ctx context.Context, phone string, limit int) ([]models.MessageLog, error)

	// RecordBillingNotification inserts the notice once per (charge, bucket).
	// It reports false when the pair was already recorded.
	RecordBillingNotification(ctx context.Context, n *models.BillingNotification) (bool, error)

	Ping(ctx context.Context) error
}
