package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/studiolens/whatsapp-relay/internal/cache"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/storage"
)

// SessionManager keeps conversation state in the cache with the durable store behind it.
// Reads try the cache first; writes go to the durable store and then refresh the cache.
// Neither side failing is fatal: the manager logs and keeps the conversation moving.
type SessionManager struct {
	store storage.Store
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionManager creates a session manager
func NewSessionManager(store storage.Store, c cache.Cache, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionManager{
		store: store,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

func sessionKey(phone string) string {
	return "session:" + phone
}

// GetOrCreate returns the session for a phone, creating a default one on first contact
func (sm *SessionManager) GetOrCreate(ctx context.Context, phone string) *models.Session {
	if sess := sm.readCache(ctx, phone); sess != nil {
		return sess
	}

	sess, err := sm.store.GetSession(ctx, phone)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		sess = models.NewSession(phone, sm.now())
		if err := sm.store.CreateSession(ctx, sess); err != nil {
			slog.Warn("create durable session failed, continuing from cache", "phone", phone, "error", err)
		}
	default:
		slog.Warn("durable store unavailable, using ephemeral session", "phone", phone, "error", err)
		sess = models.NewSession(phone, sm.now())
	}

	sm.writeCache(ctx, sess)
	return sess
}

// Update persists the result of one turn. The patch is merged into the stored data;
// keys it does not mention are left alone.
func (sm *SessionManager) Update(ctx context.Context, phone, step, lastMessage string, patch models.DataPatch) {
	var base *models.Session

	if err := sm.store.UpdateSession(ctx, phone, step, lastMessage, patch); err != nil {
		slog.Warn("durable session update failed, cache only", "phone", phone, "step", step, "error", err)
	} else if fresh, err := sm.store.GetSession(ctx, phone); err == nil {
		base = fresh
	} else {
		slog.Warn("reload durable session failed", "phone", phone, "error", err)
	}

	if base == nil {
		base = sm.readCache(ctx, phone)
	}
	if base == nil {
		base = models.NewSession(phone, sm.now())
	}

	// Merging is idempotent, so applying the patch on top of a reloaded row is harmless
	// and covers the case where the row came from the cache.
	base.CurrentStep = step
	base.LastMessage = lastMessage
	base.Data = base.Data.Apply(patch)
	base.UpdatedAt = sm.now()

	if err := sm.cache.Delete(ctx, sessionKey(phone)); err != nil {
		slog.Warn("invalidate cached session failed", "phone", phone, "error", err)
	}
	sm.writeCache(ctx, base)
}

// Delete drops the session everywhere, message logs included
func (sm *SessionManager) Delete(ctx context.Context, phone string) error {
	if err := sm.cache.Delete(ctx, sessionKey(phone)); err != nil {
		slog.Warn("delete cached session failed", "phone", phone, "error", err)
	}
	return sm.store.DeleteSession(ctx, phone)
}

// Invalidate drops only the cached copy; the next turn reloads from the durable store
func (sm *SessionManager) Invalidate(ctx context.Context, phone string) error {
	return sm.cache.Delete(ctx, sessionKey(phone))
}

// Peek returns the cached and durable copies without creating anything.
// Either may be nil.
func (sm *SessionManager) Peek(ctx context.Context, phone string) (cached, durable *models.Session, err error) {
	cached = sm.readCache(ctx, phone)
	durable, err = sm.store.GetSession(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return cached, nil, nil
	}
	if err != nil {
		return cached, nil, err
	}
	return cached, durable, nil
}

func (sm *SessionManager) readCache(ctx context.Context, phone string) *models.Session {
	raw, err := sm.cache.Get(ctx, sessionKey(phone))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("session cache read failed", "phone", phone, "error", err)
		}
		return nil
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		slog.Warn("discarding undecodable cached session", "phone", phone, "error", err)
		return nil
	}
	return &sess
}

func (sm *SessionManager) writeCache(ctx context.Context, sess *models.Session) {
	raw, err := json.Marshal(sess)
	if err != nil {
		slog.Error("encode session for cache failed", "phone", sess.Phone, "error", err)
		return
	}
	if err := sm.cache.Set(ctx, sessionKey(sess.Phone), raw, sm.ttl); err != nil {
		slog.Warn("session cache write failed", "phone", sess.Phone, "error", err)
	}
}
