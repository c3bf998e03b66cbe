package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/studiolens/whatsapp-relay/internal/httpclient"
	"github.com/studiolens/whatsapp-relay/internal/retry"
)

func TestParseZAPI(t *testing.T) {
	tests := []struct {
		name string
		body string
		want InboundEvent
	}{
		{
			name: "text",
			body: `{"type":"ReceivedCallback","phone":"5511999990000","messageId":"A1","fromMe":false,"text":{"message":"oi"}}`,
			want: InboundEvent{Phone: "5511999990000", MessageID: "A1", Type: TypeText, Text: "oi"},
		},
		{
			name: "button reply",
			body: `{"type":"ReceivedCallback","phone":"5511999990000","messageId":"A2","buttonsResponseMessage":{"buttonId":"1","message":"Confirmar"}}`,
			want: InboundEvent{Phone: "5511999990000", MessageID: "A2", Type: TypeButton, Text: "Confirmar", SelectionID: "1"},
		},
		{
			name: "list reply",
			body: `{"type":"ReceivedCallback","phone":"5511999990000","messageId":"A3","listResponseMessage":{"selectedRowId":"2","title":"Boleto"}}`,
			want: InboundEvent{Phone: "5511999990000", MessageID: "A3", Type: TypeList, Text: "Boleto", SelectionID: "2"},
		},
		{
			name: "echo of our own message",
			body: `{"type":"ReceivedCallback","phone":"5511999990000","messageId":"A4","fromMe":true,"text":{"message":"Menu"}}`,
			want: InboundEvent{Phone: "5511999990000", MessageID: "A4", FromMe: true, Type: TypeText, Text: "Menu"},
		},
		{
			name: "group message ignored",
			body: `{"type":"ReceivedCallback","phone":"120363-group","isGroup":true,"text":{"message":"oi"}}`,
			want: InboundEvent{},
		},
		{
			name: "status callback ignored",
			body: `{"type":"MessageStatusCallback","phone":"5511999990000","status":"READ"}`,
			want: InboundEvent{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseZAPI([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseZAPI_InvalidJSON(t *testing.T) {
	_, err := ParseZAPI([]byte(`{`))
	assert.Error(t, err)
}

func TestParseTwilio(t *testing.T) {
	ev := ParseTwilio(map[string]string{
		"From":       "whatsapp:+5511999990000",
		"Body":       "2",
		"MessageSid": "SM123",
	})
	assert.Equal(t, InboundEvent{Phone: "5511999990000", MessageID: "SM123", Type: TypeText, Text: "2"}, ev)

	ev = ParseTwilio(map[string]string{"From": "whatsapp:+5511999990000", "Body": "Confirmar", "ButtonPayload": "1"})
	assert.Equal(t, TypeButton, ev.Type)
	assert.Equal(t, "1", ev.Content())

	ev = ParseTwilio(map[string]string{"From": "whatsapp:+5511999990000", "ListId": "pix"})
	assert.Equal(t, TypeList, ev.Type)
	assert.Equal(t, "pix", ev.Content())
}

func TestInboundEvent_Empty(t *testing.T) {
	assert.True(t, InboundEvent{}.Empty())
	assert.True(t, InboundEvent{Phone: "55", Text: "  "}.Empty())
	assert.False(t, InboundEvent{Phone: "55", SelectionID: "1"}.Empty())
}

func TestRender(t *testing.T) {
	got := RenderButtons("Confirma?", []Button{{ID: "1", Label: "Confirmar"}, {ID: "2", Label: "Alterar"}})
	assert.Equal(t, "Confirma?\n\n1. Confirmar\n2. Alterar", got)

	got = RenderList("Forma de pagamento:", List{Rows: []ListRow{{ID: "1", Title: "Boleto/PIX"}}})
	assert.Equal(t, "Forma de pagamento:\n\n1. Boleto/PIX", got)

	got = RenderOptionList("Estado inválido.", OptionList{Title: "Estados:", Options: []string{"SP", "RJ"}})
	assert.Equal(t, "Estado inválido.\n\nEstados:\nSP | RJ", got)
}

type zapiCall struct {
	path        string
	clientToken string
	body        map[string]any
}

func newZAPIServer(t *testing.T, calls *[]zapiCall) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, zapiCall{path: r.URL.Path, clientToken: r.Header.Get("Client-Token"), body: body})
		_, _ = w.Write([]byte(`{"zaapId":"z1","messageId":"m1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestZAPIGateway_Shapes(t *testing.T) {
	var calls []zapiCall
	srv := newZAPIServer(t, &calls)
	gw := NewZAPIGateway(ZAPIConfig{BaseURL: srv.URL, Instance: "inst", Token: "tok", ClientToken: "ct"})
	ctx := context.Background()

	require.NoError(t, gw.SendText(ctx, "5511999990000", "olá"))
	require.NoError(t, gw.SendButtons(ctx, "5511999990000", "Confirma?", []Button{{ID: "1", Label: "Confirmar"}}))
	require.NoError(t, gw.SendList(ctx, "5511999990000", "Escolha", List{Title: "Pagamento", Rows: []ListRow{{ID: "1", Title: "Boleto"}}}))
	require.NoError(t, gw.SendOptionList(ctx, "5511999990000", "UF?", OptionList{Options: []string{"SP", "RJ"}}))

	require.Len(t, calls, 4)
	assert.Equal(t, "/instances/inst/token/tok/send-text", calls[0].path)
	assert.Equal(t, "ct", calls[0].clientToken)
	assert.Equal(t, "olá", calls[0].body["message"])

	assert.Equal(t, "/instances/inst/token/tok/send-button-list", calls[1].path)
	buttons := calls[1].body["buttonList"].(map[string]any)["buttons"].([]any)
	assert.Equal(t, "Confirmar", buttons[0].(map[string]any)["label"])

	assert.Equal(t, "/instances/inst/token/tok/send-option-list", calls[2].path)
	optionList := calls[2].body["optionList"].(map[string]any)
	assert.Equal(t, "Pagamento", optionList["title"])
	assert.Equal(t, "Ver opções", optionList["buttonLabel"])

	assert.Equal(t, "/instances/inst/token/tok/send-text", calls[3].path)
	assert.Contains(t, calls[3].body["message"], "SP | RJ")
}

func TestZAPIGateway_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	gw := NewZAPIGateway(ZAPIConfig{BaseURL: srv.URL, Instance: "i", Token: "t"})
	assert.Error(t, gw.SendText(context.Background(), "5511", "x"))
}

func TestZAPIGateway_FailedSendIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	// a retrying policy passed in by the caller must not apply to sends
	gw := NewZAPIGateway(ZAPIConfig{BaseURL: srv.URL, Instance: "i", Token: "t"},
		httpclient.WithRetryPolicy(retry.DefaultPolicy().WithMaxRetries(3)))

	err := gw.SendText(context.Background(), "5511999990000", "oi")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, retry.StatusOf(err))
	assert.Equal(t, int32(1), requests.Load())
}

type fakeTwilio struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM1"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioGateway_SendsNumberedText(t *testing.T) {
	fake := &fakeTwilio{}
	gw := newTwilioGateway(fake, "+14155238886")

	require.NoError(t, gw.SendButtons(context.Background(), "5511999990000", "Confirma?",
		[]Button{{ID: "1", Label: "Confirmar"}, {ID: "2", Label: "Alterar"}}))

	require.Len(t, fake.params, 1)
	p := fake.params[0]
	assert.Equal(t, "whatsapp:+14155238886", *p.From)
	assert.Equal(t, "whatsapp:+5511999990000", *p.To)
	assert.Equal(t, "Confirma?\n\n1. Confirmar\n2. Alterar", *p.Body)
}

func TestTwilioGateway_Error(t *testing.T) {
	gw := newTwilioGateway(&fakeTwilio{err: errors.New("boom")}, "whatsapp:+1")
	assert.Error(t, gw.SendText(context.Background(), "5511", "x"))
}

func TestNewTwilioGateway_MissingCredentials(t *testing.T) {
	_, err := NewTwilioGateway("", "tok", "whatsapp:+1")
	assert.Error(t, err)
}
