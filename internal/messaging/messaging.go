// Package messaging talks to the WhatsApp provider: outbound sends through a
// Gateway and inbound webhook payloads parsed into InboundEvent.
package messaging

import (
	"context"
	"fmt"
	"strings"
)

// Button is a quick-reply button
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ListRow is one selectable row of a single-select list
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// List is a single-select list message (WhatsApp caps it at 10 rows)
type List struct {
	Title       string
	ButtonLabel string
	Rows        []ListRow
}

// OptionList is a fixed set of short choices too long for a list message,
// such as the 27 state codes
type OptionList struct {
	Title   string
	Options []string
}

// Gateway sends the four outbound message shapes
type Gateway interface {
	SendText(ctx context.Context, phone, text string) error
	SendButtons(ctx context.Context, phone, text string, buttons []Button) error
	SendList(ctx context.Context, phone, text string, list List) error
	SendOptionList(ctx context.Context, phone, text string, options OptionList) error
}

// Inbound message types
const (
	TypeText   = "text"
	TypeButton = "button"
	TypeList   = "list"
)

// InboundEvent is a provider-agnostic inbound webhook delivery
type InboundEvent struct {
	Phone       string
	MessageID   string
	FromMe      bool
	Type        string
	Text        string
	SelectionID string
}

// Content is what the conversation engine reads: the selection id when the
// customer tapped a button or list row, the typed text otherwise
func (e InboundEvent) Content() string {
	if e.SelectionID != "" {
		return e.SelectionID
	}
	return e.Text
}

// Empty reports whether the event carries nothing to process (status callbacks, media without caption)
func (e InboundEvent) Empty() bool {
	return e.Phone == "" || strings.TrimSpace(e.Content()) == ""
}

// RenderButtons renders buttons as a numbered text block for providers without interactive messages
func RenderButtons(text string, buttons []Button) string {
	labels := make([]string, len(buttons))
	for i, b := range buttons {
		labels[i] = b.Label
	}
	return renderNumbered(text, labels)
}

// RenderList renders a list the same way
func RenderList(text string, list List) string {
	labels := make([]string, len(list.Rows))
	for i, r := range list.Rows {
		labels[i] = r.Title
	}
	return renderNumbered(text, labels)
}

// RenderOptionList appends the options on a single line
func RenderOptionList(text string, options OptionList) string {
	var b strings.Builder
	b.WriteString(text)
	if options.Title != "" {
		b.WriteString("\n\n")
		b.WriteString(options.Title)
	}
	if len(options.Options) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(options.Options, " | "))
	}
	return b.String()
}

func renderNumbered(text string, labels []string) string {
	var b strings.Builder
	b.WriteString(text)
	if len(labels) > 0 {
		b.WriteString("\n")
	}
	for i, l := range labels {
		fmt.Fprintf(&b, "\n%d. %s", i+1, l)
	}
	return b.String()
}
