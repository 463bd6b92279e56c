package notify

import (
	"time"
)

const dateLayoutBR = "02/01/2006"

// Vars are the values available to notification templates.
type Vars struct {
	BusinessName string
	BookingID    string
	ClientName   string
	ClientPhone  string
	ServiceName  string
	Date         time.Time
	Slot         string
	PriceCents   int64
	OldDate      time.Time
	OldSlot      string
}

// DateBR renders Date as dd/mm/yyyy.
func (v Vars) DateBR() string {
	return formatDateBR(v.Date)
}

// OldDateBR renders OldDate as dd/mm/yyyy.
func (v Vars) OldDateBR() string {
	return formatDateBR(v.OldDate)
}

func formatDateBR(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayoutBR)
}
