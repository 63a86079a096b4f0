package service

import "errors"

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionFinalized = errors.New("transaction is already finalized")
	ErrTransactionExpired   = errors.New("transaction expired")
	ErrPlanNotFound         = errors.New("plan not found or inactive")
	ErrManualPaymentOnly    = errors.New("only manual payments accept a proof")
	ErrInvalidProof         = errors.New("invalid payment proof")
	ErrProofTooLarge        = errors.New("payment proof too large")
	ErrIdempotencyInFlight  = errors.New("a transaction for this idempotency key is being created")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrGatewayFailure       = errors.New("payment gateway failure")
	ErrInvalidSignature     = errors.New("invalid callback signature")
	ErrInvalidAction        = errors.New("invalid verification action")
	ErrBadAuth              = errors.New("bad auth")
	ErrUserDeleted          = errors.New("user deleted")
	ErrPasswordTooWeak      = errors.New("password entropy too low")
)
