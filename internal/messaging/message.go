package messaging

import (
	"context"
	"errors"
	"strings"
)

// Button is a quick-reply button. ID comes back verbatim in the reply event.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is a single outbound WhatsApp message. When ImageURL is set the
// message is sent as an image with Caption, otherwise as text (with buttons
// when any are given).
type Message struct {
	To       string
	Body     string
	ImageURL string
	Caption  string
	Buttons  []Button
}

// Messenger delivers outbound messages.
type Messenger interface {
	Send(ctx context.Context, msg Message) error
}

var (
	errRecipientRequired = errors.New("messaging: to required")
	errBodyRequired      = errors.New("messaging: body required")
)

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	if Digits(m.To) == "" {
		return errRecipientRequired
	}
	if m.ImageURL == "" && strings.TrimSpace(m.Body) == "" {
		return errBodyRequired
	}
	return nil
}
