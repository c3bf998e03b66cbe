package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/studiolens/whatsapp-relay/internal/models"
)

// MemoryStore keeps everything in process memory. Used for local runs and tests.
type MemoryStore struct {
	sessions map[string]*models.Session
	logs     map[string][]models.MessageLog
	billing  map[string]models.BillingNotification

	// Mutexes for thread safety
	sessionMu sync.RWMutex
	logMu     sync.RWMutex
	billingMu sync.Mutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		logs:     make(map[string][]models.MessageLog),
		billing:  make(map[string]models.BillingNotification),
	}
}

// Session operations
func (m *MemoryStore) GetSession(_ context.Context, phone string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	sess, exists := m.sessions[phone]
	if !exists {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (m *MemoryStore) CreateSession(_ context.Context, sess *models.Session) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	m.sessions[sess.Phone] = sess.Clone()
	return nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, phone, step, lastMessage string, patch models.DataPatch) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	now := time.Now().UTC()
	sess, exists := m.sessions[phone]
	if !exists {
		sess = models.NewSession(phone, now)
		m.sessions[phone] = sess
	}
	sess.CurrentStep = step
	sess.LastMessage = lastMessage
	sess.Data = sess.Data.Apply(patch)
	sess.UpdatedAt = now
	return nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, phone string) error {
	m.sessionMu.Lock()
	_, exists := m.sessions[phone]
	delete(m.sessions, phone)
	m.sessionMu.Unlock()

	m.logMu.Lock()
	delete(m.logs, phone)
	m.logMu.Unlock()

	if !exists {
		return ErrNotFound
	}
	return nil
}

// Message log operations
func (m *MemoryStore) AppendMessageLog(_ context.Context, entry *models.MessageLog) error {
	m.logMu.Lock()
	defer m.logMu.Unlock()

	m.logs[entry.Phone] = append(m.logs[entry.Phone], *entry)
	return nil
}

func (m *MemoryStore) ListMessageLogs(_ context.Context, phone string, limit int) ([]models.MessageLog, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	logs := append([]models.MessageLog(nil), m.logs[phone]...)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (m *MemoryStore) RecordBillingNotification(_ context.Context, n *models.BillingNotification) (bool, error) {
	m.billingMu.Lock()
	defer m.billingMu.Unlock()

	key := n.ChargeID + "|" + n.Bucket
	if _, exists := m.billing[key]; exists {
		return false, nil
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	m.billing[key] = *n
	return true, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
