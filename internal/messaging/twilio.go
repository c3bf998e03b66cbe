package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/studiolens/whatsapp-relay/internal/utils"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioGateway sends WhatsApp messages through Twilio. Twilio has no free-form
// interactive messages, so buttons and lists go out as numbered text.
type TwilioGateway struct {
	api  messageCreator
	from string // "whatsapp:+14155238886"
}

// NewTwilioGateway creates a gateway from account credentials
func NewTwilioGateway(accountSID, authToken, from string) (*TwilioGateway, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioGateway(client.Api, from), nil
}

func newTwilioGateway(api messageCreator, from string) *TwilioGateway {
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return &TwilioGateway{api: api, from: from}
}

func (t *TwilioGateway) SendText(_ context.Context, phone, text string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo("whatsapp:+" + utils.NormalizePhone(phone))
	params.SetBody(text)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	if resp.Sid != nil {
		slog.Debug("twilio message sent", "sid", *resp.Sid)
	}
	return nil
}

func (t *TwilioGateway) SendButtons(ctx context.Context, phone, text string, buttons []Button) error {
	return t.SendText(ctx, phone, RenderButtons(text, buttons))
}

func (t *TwilioGateway) SendList(ctx context.Context, phone, text string, list List) error {
	return t.SendText(ctx, phone, RenderList(text, list))
}

func (t *TwilioGateway) SendOptionList(ctx context.Context, phone, text string, options OptionList) error {
	return t.SendText(ctx, phone, RenderOptionList(text, options))
}

// ParseTwilio maps the form fields of a Twilio WhatsApp webhook
func ParseTwilio(form map[string]string) InboundEvent {
	ev := InboundEvent{
		Phone:     utils.NormalizePhone(form["From"]),
		MessageID: form["MessageSid"],
		Type:      TypeText,
		Text:      form["Body"],
	}
	switch {
	case form["ListId"] != "":
		ev.Type = TypeList
		ev.SelectionID = form["ListId"]
	case form["ButtonPayload"] != "":
		ev.Type = TypeButton
		ev.SelectionID = form["ButtonPayload"]
	}
	return ev
}

var _ Gateway = (*TwilioGateway)(nil)
