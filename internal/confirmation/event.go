package confirmation

import (
	"strings"

	"github.com/wolfman30/studio-scheduler/internal/notify"
)

// EventKind discriminates inbound WhatsApp payloads.
type EventKind string

const (
	EventButton      EventKind = "button"
	EventText        EventKind = "text"
	EventUnsupported EventKind = "unsupported"
)

// Event is an inbound message reduced to the fields the machine reads.
type Event struct {
	Kind      EventKind
	ButtonID  string
	Phone     string
	Text      string
	MessageID string
	FromMe    bool
}

// Action is the intent carried by an operator button.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDeny    Action = "deny"
)

// ParseActionToken extracts the action and booking id from a button id such
// as confirm_payment_<id>. Any other shape returns ok false.
func ParseActionToken(id string) (Action, string, bool) {
	id = strings.TrimSpace(id)
	for _, candidate := range []struct {
		prefix string
		action Action
	}{
		{notify.ConfirmPaymentPrefix, ActionConfirm},
		{notify.DenyPaymentPrefix, ActionDeny},
	} {
		if rest, found := strings.CutPrefix(id, candidate.prefix); found {
			if rest == "" {
				return "", "", false
			}
			return candidate.action, rest, true
		}
	}
	return "", "", false
}
