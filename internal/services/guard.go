package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studiolens/whatsapp-relay/internal/cache"
	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

// Verdict is the guard's decision about an inbound delivery
type Verdict string

const (
	VerdictAdmit     Verdict = "admit"
	VerdictEmpty     Verdict = "empty"
	VerdictSelfEcho  Verdict = "self_echo"
	VerdictDuplicate Verdict = "duplicate"
	VerdictDebounced Verdict = "debounced"
	VerdictBusy      Verdict = "already_processing"
)

// GuardConfig holds the guard windows
type GuardConfig struct {
	OwnNumber    string
	DedupTTL     time.Duration
	DebounceTTL  time.Duration
	LockTTL      time.Duration
	LockWait     time.Duration
	PollInterval time.Duration
}

// Guard filters redelivered, echoed and repeated messages and serializes turns per phone
type Guard struct {
	cache cache.Cache
	cfg   GuardConfig
}

// NewGuard creates a guard over the shared cache
func NewGuard(c cache.Cache, cfg GuardConfig) *Guard {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	if cfg.DebounceTTL <= 0 {
		cfg.DebounceTTL = 3 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.LockWait < 0 {
		cfg.LockWait = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	return &Guard{cache: c, cfg: cfg}
}

// Admit runs the checks in order and, when the event may be processed, holds the
// phone's lock. The returned release func must be called on every exit path; it is
// a no-op unless the verdict is VerdictAdmit.
func (g *Guard) Admit(ctx context.Context, ev messaging.InboundEvent) (Verdict, func()) {
	noop := func() {}

	if ev.Empty() {
		return VerdictEmpty, noop
	}
	if ev.FromMe || (g.cfg.OwnNumber != "" && utils.SamePhone(ev.Phone, g.cfg.OwnNumber)) {
		return VerdictSelfEcho, noop
	}

	if ev.MessageID != "" {
		if !g.claim(ctx, "msg:"+ev.MessageID, g.cfg.DedupTTL) {
			return VerdictDuplicate, noop
		}
	}

	if !g.claim(ctx, debounceKey(ev), g.cfg.DebounceTTL) {
		return VerdictDebounced, noop
	}

	release, ok := g.lock(ctx, ev.Phone)
	if !ok {
		return VerdictBusy, noop
	}
	return VerdictAdmit, release
}

// claim sets key if absent. Cache errors let the message through.
func (g *Guard) claim(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := g.cache.SetNX(ctx, key, []byte("1"), ttl)
	if err != nil {
		slog.Warn("guard cache unavailable, admitting", "key", key, "error", err)
		return true
	}
	return ok
}

func debounceKey(ev messaging.InboundEvent) string {
	sum := sha1.Sum([]byte(ev.Phone + "|" + ev.Type + "|" + ev.Content()))
	return "debounce:" + hex.EncodeToString(sum[:])
}

// lock polls for the per-phone lock until LockWait elapses
func (g *Guard) lock(ctx context.Context, phone string) (func(), bool) {
	key := "lock:" + phone
	token := []byte(uuid.NewString())
	deadline := time.Now().Add(g.cfg.LockWait)

	for {
		ok, err := g.cache.SetNX(ctx, key, token, g.cfg.LockTTL)
		if err != nil {
			slog.Warn("lock unavailable, processing unlocked", "phone", phone, "error", err)
			return func() {}, true
		}
		if ok {
			return func() { g.unlock(ctx, key, token) }, true
		}
		if !time.Now().Before(deadline) {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(g.cfg.PollInterval):
		}
	}
}

func (g *Guard) unlock(ctx context.Context, key string, token []byte) {
	// the request context may already be gone when the turn ends
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	released, err := g.cache.CompareAndDelete(ctx, key, token)
	if err != nil {
		slog.Warn("lock release failed", "key", key, "error", err)
		return
	}
	if !released {
		slog.Warn("lock expired before release", "key", key)
	}
}
