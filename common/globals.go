package common

const (
	TransactionStatusUnpaid  = "UNPAID"
	TransactionStatusPaid    = "PAID"
	TransactionStatusExpired = "EXPIRED"
	TransactionStatusFailed  = "FAILED"

	FailureReasonRejected      = "rejected"
	FailureReasonCancelled     = "cancelled"
	FailureReasonGatewayFailed = "gateway_failed"

	PaymentTypeManual = "manual"
	PaymentTypeTripay = "tripay"

	PaymentMethodQris = "QRIS"

	VerifyActionApprove = "approve"
	VerifyActionReject  = "reject"

	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"

	RoleUser  = "user"
	RoleAdmin = "admin"

	TransactionEventCreated       = "created"
	TransactionEventProofUploaded = "proof_uploaded"
	TransactionEventStatusChanged = "status_changed"

	// MaxProofSize is the single upload ceiling for payment proofs (5 MiB).
	MaxProofSize = 5 << 20

	IdempotencyKeyHeader    = "Idempotency-Key"
	CallbackSignatureHeader = "X-Callback-Signature"
)
