package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/studiolens/whatsapp-relay/internal/cache"
	"github.com/studiolens/whatsapp-relay/internal/conversation"
	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/storage"
)

var errDown = errors.New("connection refused")

type sentMessage struct {
	Kind  string
	Phone string
	Text  string
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (g *fakeGateway) record(kind, phone, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{Kind: kind, Phone: phone, Text: text})
	return g.err
}

func (g *fakeGateway) SendText(_ context.Context, phone, text string) error {
	return g.record("text", phone, text)
}

func (g *fakeGateway) SendButtons(_ context.Context, phone, text string, _ []messaging.Button) error {
	return g.record("buttons", phone, text)
}

func (g *fakeGateway) SendList(_ context.Context, phone, text string, _ messaging.List) error {
	return g.record("list", phone, text)
}

func (g *fakeGateway) SendOptionList(_ context.Context, phone, text string, _ messaging.OptionList) error {
	return g.record("option_list", phone, text)
}

func (g *fakeGateway) Sent() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

// downCache fails every operation
type downCache struct{}

func (downCache) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (downCache) Set(context.Context, string, []byte, time.Duration) error {
	return errDown
}
func (downCache) Delete(context.Context, string) error { return errDown }
func (downCache) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errDown
}
func (downCache) CompareAndDelete(context.Context, string, []byte) (bool, error) {
	return false, errDown
}
func (downCache) Ping(context.Context) error { return errDown }
func (downCache) Close() error               { return nil }

var _ cache.Cache = downCache{}

// downStore fails session and log writes but still records billing notices in memory
type downStore struct {
	*storage.MemoryStore
}

func (downStore) GetSession(context.Context, string) (*models.Session, error) { return nil, errDown }
func (downStore) CreateSession(context.Context, *models.Session) error        { return errDown }
func (downStore) UpdateSession(context.Context, string, string, string, models.DataPatch) error {
	return errDown
}
func (downStore) AppendMessageLog(context.Context, *models.MessageLog) error { return errDown }

// scriptedEngine replies with a fixed transition and records how often and how
// concurrently it was called
type scriptedEngine struct {
	mu        sync.Mutex
	calls     int
	running   int
	maxActive int
	delay     time.Duration
	reply     func(sess *models.Session, raw string) *conversation.Transition
}

func (e *scriptedEngine) Handle(_ context.Context, sess *models.Session, raw string) *conversation.Transition {
	e.mu.Lock()
	e.calls++
	e.running++
	if e.running > e.maxActive {
		e.maxActive = e.running
	}
	e.mu.Unlock()

	time.Sleep(e.delay)

	e.mu.Lock()
	e.running--
	e.mu.Unlock()

	if e.reply == nil {
		return &conversation.Transition{Step: conversation.StepMainMenu, Message: "ok: " + raw}
	}
	return e.reply(sess, raw)
}

func (e *scriptedEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *scriptedEngine) MaxActive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}
