package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

type recordingMessenger struct {
	mu     sync.Mutex
	sent   []messaging.Message
	failTo map[string]bool
}

func (m *recordingMessenger) Send(ctx context.Context, msg messaging.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return errors.New("instance offline")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingEmail struct {
	sent []EmailMessage
	err  error
}

func (e *recordingEmail) Send(ctx context.Context, msg EmailMessage) error {
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, msg)
	return nil
}

const (
	operatorPhone = "+5561999990000"
	clientPhone   = "+5561992415188"
)

func testBusiness() *schedule.Business {
	b := schedule.DefaultBusiness("studio-1")
	b.Name = "Sol & Bronze"
	b.Notifications.Enabled = true
	b.Notifications.OperatorPhones = []string{operatorPhone}
	return b
}

func testVars() Vars {
	return Vars{
		BookingID:   "b-1",
		ClientName:  "Ana",
		ClientPhone: clientPhone,
		ServiceName: "Bronze natural",
		Date:        time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
		Slot:        "09:00",
		PriceCents:  9000,
		OldDate:     time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		OldSlot:     "14:00",
	}
}

func newTestDispatcher(m messaging.Messenger, email EmailSender) *Dispatcher {
	return NewDispatcher(m, email, nil, logging.Discard())
}
