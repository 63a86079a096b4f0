package common

// PaymentStatus is the one status vocabulary shared by the server responses
// and the client controller. Server transaction statuses and client
// lifecycle states both map onto it.
type PaymentStatus int

const (
	PaymentStatusUnknown PaymentStatus = iota
	PaymentStatusCreating
	PaymentStatusAwaitingPayment
	PaymentStatusVerifying
	PaymentStatusSettled
	PaymentStatusRejected
	PaymentStatusCancelled
	PaymentStatusExpired
	PaymentStatusError
)

type StatusTone string

const (
	ToneNeutral StatusTone = "neutral"
	TonePending StatusTone = "pending"
	ToneSuccess StatusTone = "success"
	ToneDanger  StatusTone = "danger"
	ToneWarning StatusTone = "warning"
)

// StatusDisplay is what a surface needs to render a status badge.
type StatusDisplay struct {
	Code  string     `json:"code"`
	Label string     `json:"label"`
	Tone  StatusTone `json:"tone"`
	Final bool       `json:"final"`
}

var statusDisplays = map[PaymentStatus]StatusDisplay{
	PaymentStatusUnknown:         {Code: "UNKNOWN", Label: "Unknown", Tone: ToneNeutral},
	PaymentStatusCreating:        {Code: "CREATING", Label: "Creating payment", Tone: TonePending},
	PaymentStatusAwaitingPayment: {Code: "AWAITING_PAYMENT", Label: "Waiting for payment", Tone: TonePending},
	PaymentStatusVerifying:       {Code: "VERIFYING", Label: "Checking payment", Tone: TonePending},
	PaymentStatusSettled:         {Code: "SETTLED", Label: "Paid", Tone: ToneSuccess, Final: true},
	PaymentStatusRejected:        {Code: "REJECTED", Label: "Rejected", Tone: ToneDanger, Final: true},
	PaymentStatusCancelled:       {Code: "CANCELLED", Label: "Cancelled", Tone: ToneNeutral, Final: true},
	PaymentStatusExpired:         {Code: "EXPIRED", Label: "Expired", Tone: ToneWarning, Final: true},
	PaymentStatusError:           {Code: "ERROR", Label: "Connection problem, retrying", Tone: ToneWarning},
}

// FormatStatus renders a PaymentStatus. Every listing and client surface uses
// this instead of switching on status strings.
func FormatStatus(s PaymentStatus) StatusDisplay {
	if d, ok := statusDisplays[s]; ok {
		return d
	}
	return statusDisplays[PaymentStatusUnknown]
}

func (s PaymentStatus) String() string {
	return FormatStatus(s).Code
}

// IsFinal reports whether no further transition can happen from s.
func (s PaymentStatus) IsFinal() bool {
	return FormatStatus(s).Final
}

// PaymentStatusFromTransaction maps a stored transaction status (and failure
// reason for FAILED) onto the shared vocabulary.
func PaymentStatusFromTransaction(status, failureReason string) PaymentStatus {
	switch status {
	case TransactionStatusUnpaid:
		return PaymentStatusAwaitingPayment
	case TransactionStatusPaid:
		return PaymentStatusSettled
	case TransactionStatusExpired:
		return PaymentStatusExpired
	case TransactionStatusFailed:
		if failureReason == FailureReasonCancelled {
			return PaymentStatusCancelled
		}
		return PaymentStatusRejected
	}
	return PaymentStatusUnknown
}

// IsTerminalTransactionStatus reports whether a stored status accepts no
// further transitions.
func IsTerminalTransactionStatus(status string) bool {
	switch status {
	case TransactionStatusPaid, TransactionStatusExpired, TransactionStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a stored transaction may move from one
// status to another. Only UNPAID is a source state.
func CanTransition(from, to string) bool {
	if from != TransactionStatusUnpaid {
		return false
	}
	return IsTerminalTransactionStatus(to)
}
