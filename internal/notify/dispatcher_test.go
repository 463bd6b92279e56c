package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplatesRender(t *testing.T) {
	d := newTestDispatcher(&recordingMessenger{}, nil)
	for _, kind := range Kinds {
		text, err := d.Render(testBusiness(), kind, testVars())
		require.NoError(t, err, kind)
		assert.NotEmpty(t, text, kind)
	}
}

func TestRenderNewBookingOperator(t *testing.T) {
	d := newTestDispatcher(&recordingMessenger{}, nil)
	text, err := d.Render(testBusiness(), KindNewBookingOperator, testVars())
	require.NoError(t, err)
	assert.Contains(t, text, "Sol & Bronze")
	assert.Contains(t, text, "24/10/2026 às 09:00")
	assert.Contains(t, text, "R$ 90,00")
}

func TestRenderRescheduleShowsOldAndNew(t *testing.T) {
	d := newTestDispatcher(&recordingMessenger{}, nil)
	text, err := d.Render(testBusiness(), KindRescheduleOperator, testVars())
	require.NoError(t, err)
	assert.Contains(t, text, "De: 19/10/2026 às 14:00")
	assert.Contains(t, text, "Para: 24/10/2026 às 09:00")
}

func TestRenderBusinessOverride(t *testing.T) {
	b := testBusiness()
	b.Templates = map[string]string{string(KindWelcomeClient): "Oi {{.ClientName}}, tudo certo!"}
	d := newTestDispatcher(&recordingMessenger{}, nil)

	text, err := d.Render(b, KindWelcomeClient, testVars())
	require.NoError(t, err)
	assert.Equal(t, "Oi Ana, tudo certo!", text)
}

func TestRenderUnknownKind(t *testing.T) {
	d := newTestDispatcher(&recordingMessenger{}, nil)
	_, err := d.Render(testBusiness(), Kind("promo"), testVars())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSendTemplateOperatorButtons(t *testing.T) {
	m := &recordingMessenger{}
	d := newTestDispatcher(m, nil)

	require.NoError(t, d.SendTemplate(context.Background(), testBusiness(), KindNewBookingOperator, operatorPhone, testVars()))
	require.Len(t, m.sent, 1)
	require.Len(t, m.sent[0].Buttons, 2)
	assert.Equal(t, "confirm_payment_b-1", m.sent[0].Buttons[0].ID)
	assert.Equal(t, "deny_payment_b-1", m.sent[0].Buttons[1].ID)
}

func TestSendTemplateClientHasNoButtons(t *testing.T) {
	m := &recordingMessenger{}
	d := newTestDispatcher(m, nil)

	require.NoError(t, d.SendTemplate(context.Background(), testBusiness(), KindBookingConfirmationClient, clientPhone, testVars()))
	require.Len(t, m.sent, 1)
	assert.Empty(t, m.sent[0].Buttons)
	assert.Equal(t, clientPhone, m.sent[0].To)
}

func TestSendTemplateAssetCard(t *testing.T) {
	m := &recordingMessenger{}
	d := newTestDispatcher(m, nil)
	b := testBusiness()

	err := d.SendTemplate(context.Background(), b, KindAccessCard, clientPhone, testVars())
	assert.ErrorIs(t, err, ErrAssetNotConfigured)

	b.Asset.ImageURL = "https://cdn.example/card.png"
	b.Asset.Caption = "Cartão {{.ClientName}} - {{.Slot}}"
	require.NoError(t, d.SendTemplate(context.Background(), b, KindAccessCard, clientPhone, testVars()))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "https://cdn.example/card.png", m.sent[0].ImageURL)
	assert.Equal(t, "Cartão Ana - 09:00", m.sent[0].Caption)
}

func TestSendTemplateWrapsMessengerError(t *testing.T) {
	m := &recordingMessenger{failTo: map[string]bool{clientPhone: true}}
	d := newTestDispatcher(m, nil)

	err := d.SendTemplate(context.Background(), testBusiness(), KindBookingConfirmationClient, clientPhone, testVars())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify: send booking_confirmation_client")
}

func TestEmailOperators(t *testing.T) {
	email := &recordingEmail{}
	d := newTestDispatcher(&recordingMessenger{}, email)
	b := testBusiness()

	require.NoError(t, d.EmailOperators(context.Background(), b, KindNewBookingOperator, testVars()))
	assert.Empty(t, email.sent, "no addresses configured")

	b.Notifications.OperatorEmails = []string{"dona@studio.example", "caixa@studio.example"}
	require.NoError(t, d.EmailOperators(context.Background(), b, KindNewBookingOperator, testVars()))
	require.Len(t, email.sent, 2)
	assert.Equal(t, "Novo agendamento - Sol & Bronze", email.sent[0].Subject)

	email.err = errors.New("quota")
	assert.Error(t, d.EmailOperators(context.Background(), b, KindNewBookingOperator, testVars()))
}
