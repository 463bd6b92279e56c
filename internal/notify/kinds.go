package notify

// Kind names an outbound notification template.
type Kind string

const (
	KindNewBookingOperator           Kind = "new_booking_operator"
	KindBookingConfirmationClient    Kind = "booking_confirmation_client"
	KindWelcomeClient                Kind = "welcome_client"
	KindRescheduleOperator           Kind = "reschedule_operator"
	KindRescheduleConfirmationClient Kind = "reschedule_confirmation_client"
	KindAccessCard                   Kind = "access_card"
	KindAssetResend                  Kind = "asset_resend"
)

// Kinds lists every notification kind.
var Kinds = []Kind{
	KindNewBookingOperator,
	KindBookingConfirmationClient,
	KindWelcomeClient,
	KindRescheduleOperator,
	KindRescheduleConfirmationClient,
	KindAccessCard,
	KindAssetResend,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := defaultTemplates[k]
	return ok
}

// OperatorFacing reports whether the kind goes to the studio operator.
func (k Kind) OperatorFacing() bool {
	return k == KindNewBookingOperator || k == KindRescheduleOperator
}

// Asset reports whether the kind carries the business access card.
func (k Kind) Asset() bool {
	return k == KindAccessCard || k == KindAssetResend
}

func (k Kind) String() string { return string(k) }
