package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/studiolens/whatsapp-relay/internal/httpclient"
	"github.com/studiolens/whatsapp-relay/internal/retry"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

// ZAPIConfig holds the Z-API instance credentials
type ZAPIConfig struct {
	BaseURL     string
	Instance    string
	Token       string
	ClientToken string
}

// ZAPIGateway sends messages through a Z-API instance
type ZAPIGateway struct {
	http *httpclient.Client
}

// NewZAPIGateway builds the gateway. Extra options go to the underlying HTTP client,
// except retries: a send that timed out may still have been delivered, so every
// send is attempted exactly once whatever policy the options carry.
func NewZAPIGateway(cfg ZAPIConfig, opts ...httpclient.Option) *ZAPIGateway {
	base := fmt.Sprintf("%s/instances/%s/token/%s",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.Instance, cfg.Token)
	opts = append([]httpclient.Option{httpclient.WithHeader("Client-Token", cfg.ClientToken)}, opts...)
	opts = append(opts, httpclient.WithRetryPolicy(retry.DefaultPolicy().WithMaxRetries(0)))
	return &ZAPIGateway{http: httpclient.New("zapi", base, opts...)}
}

type zapiSendResponse struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
}

type zapiOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (g *ZAPIGateway) SendText(ctx context.Context, phone, text string) error {
	return g.send(ctx, "/send-text", map[string]any{
		"phone":   phone,
		"message": text,
	})
}

func (g *ZAPIGateway) SendButtons(ctx context.Context, phone, text string, buttons []Button) error {
	return g.send(ctx, "/send-button-list", map[string]any{
		"phone":      phone,
		"message":    text,
		"buttonList": map[string]any{"buttons": buttons},
	})
}

func (g *ZAPIGateway) SendList(ctx context.Context, phone, text string, list List) error {
	options := make([]zapiOption, len(list.Rows))
	for i, r := range list.Rows {
		options[i] = zapiOption{ID: r.ID, Title: r.Title, Description: r.Description}
	}
	label := list.ButtonLabel
	if label == "" {
		label = "Ver opções"
	}
	return g.send(ctx, "/send-option-list", map[string]any{
		"phone":   phone,
		"message": text,
		"optionList": map[string]any{
			"title":       list.Title,
			"buttonLabel": label,
			"options":     options,
		},
	})
}

// SendOptionList sends plain text: Z-API list messages cannot hold more than 10 rows
func (g *ZAPIGateway) SendOptionList(ctx context.Context, phone, text string, options OptionList) error {
	return g.SendText(ctx, phone, RenderOptionList(text, options))
}

func (g *ZAPIGateway) send(ctx context.Context, path string, payload map[string]any) error {
	var resp zapiSendResponse
	err := g.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   payload,
	}, &resp)
	if err != nil {
		return fmt.Errorf("zapi %s: %w", path, err)
	}
	slog.Debug("zapi message sent", "path", path, "message_id", resp.MessageID)
	return nil
}

type zapiWebhook struct {
	Type      string `json:"type"`
	Phone     string `json:"phone"`
	MessageID string `json:"messageId"`
	FromMe    bool   `json:"fromMe"`
	IsGroup   bool   `json:"isGroup"`
	Text      *struct {
		Message string `json:"message"`
	} `json:"text"`
	ButtonsResponseMessage *struct {
		ButtonID string `json:"buttonId"`
		Message  string `json:"message"`
	} `json:"buttonsResponseMessage"`
	ListResponseMessage *struct {
		SelectedRowID string `json:"selectedRowId"`
		Title         string `json:"title"`
		Message       string `json:"message"`
	} `json:"listResponseMessage"`
}

// ParseZAPI decodes a Z-API "on message received" webhook body.
// Group messages and callbacks other than received messages come back empty.
func ParseZAPI(body []byte) (InboundEvent, error) {
	var hook zapiWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return InboundEvent{}, fmt.Errorf("decode zapi webhook: %w", err)
	}
	if hook.IsGroup || (hook.Type != "" && hook.Type != "ReceivedCallback") {
		return InboundEvent{}, nil
	}

	ev := InboundEvent{
		Phone:     utils.NormalizePhone(hook.Phone),
		MessageID: hook.MessageID,
		FromMe:    hook.FromMe,
		Type:      TypeText,
	}
	switch {
	case hook.ListResponseMessage != nil:
		ev.Type = TypeList
		ev.SelectionID = hook.ListResponseMessage.SelectedRowID
		ev.Text = hook.ListResponseMessage.Title
	case hook.ButtonsResponseMessage != nil:
		ev.Type = TypeButton
		ev.SelectionID = hook.ButtonsResponseMessage.ButtonID
		ev.Text = hook.ButtonsResponseMessage.Message
	case hook.Text != nil:
		ev.Text = hook.Text.Message
	}
	return ev, nil
}

var _ Gateway = (*ZAPIGateway)(nil)
