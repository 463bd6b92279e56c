// Package schedule holds business hours, service definitions and the stores
// that serve them to the availability resolver.
package schedule

import (
	"time"
)

// DefaultTimezone is used when a business has no valid timezone configured.
const DefaultTimezone = "America/Sao_Paulo"

// NotificationPrefs controls outbound messages for a business.
type NotificationPrefs struct {
	// Enabled gates every booking/reschedule notification.
	Enabled bool `json:"enabled"`

	// WelcomeEnabled sends the welcome message to first-time clients.
	WelcomeEnabled bool `json:"welcome_enabled"`

	OperatorPhone  string   `json:"operator_phone,omitempty"`  // Legacy: single operator phone
	OperatorPhones []string `json:"operator_phones,omitempty"` // Operator WhatsApp numbers
	OperatorEmails []string `json:"operator_emails,omitempty"` // Optional e-mail copies of operator messages
}

// GetOperatorPhones merges the legacy single phone with the list, dropping
// blanks and duplicates.
func (n *NotificationPrefs) GetOperatorPhones() []string {
	seen := make(map[string]struct{})
	var phones []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		phones = append(phones, p)
	}
	add(n.OperatorPhone)
	for _, p := range n.OperatorPhones {
		add(p)
	}
	return phones
}

// AssetCard is the access/location card sent after a booking is confirmed.
type AssetCard struct {
	ImageURL string `json:"image_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Configured reports whether there is anything to send.
func (a AssetCard) Configured() bool {
	return a.ImageURL != "" || a.Caption != ""
}

// Business is the per-studio configuration read by the resolver and the dispatcher.
type Business struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Timezone      string            `json:"timezone"`
	Hours         WeeklySlots       `json:"hours"`
	Notifications NotificationPrefs `json:"notifications"`
	Asset         AssetCard         `json:"asset"`
	// Templates overrides default message texts, keyed by notification kind.
	Templates map[string]string `json:"templates,omitempty"`
}

// DefaultBusiness returns the configuration used before an operator saves one.
// It has no hours, so nothing is offered until the schedule is configured.
func DefaultBusiness(id string) *Business {
	return &Business{
		ID:       id,
		Name:     "Studio",
		Timezone: DefaultTimezone,
		Notifications: NotificationPrefs{
			Enabled:        false,
			WelcomeEnabled: true,
		},
	}
}

// Location resolves the business timezone, falling back to DefaultTimezone and then UTC.
func (b *Business) Location() *time.Location {
	for _, name := range []string{b.Timezone, DefaultTimezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Today returns the current calendar date in the business timezone.
func (b *Business) Today(now time.Time) time.Time {
	return DateOf(now.In(b.Location()))
}

// Template returns the override text for a kind, if any.
func (b *Business) Template(kind string) (string, bool) {
	if b == nil || b.Templates == nil {
		return "", false
	}
	text, ok := b.Templates[kind]
	return text, ok && text != ""
}
