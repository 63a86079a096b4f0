package paymentclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindNetwork             ErrorKind = "NETWORK"
	KindAuthExpired         ErrorKind = "AUTH_EXPIRED"
	KindSubscriptionExpired ErrorKind = "SUBSCRIPTION_EXPIRED"
	KindValidation          ErrorKind = "VALIDATION"
	KindServer              ErrorKind = "SERVER"
)

const codeUserDeleted = "USER_DELETED"

// Error is the only error type the client hands out.
type Error struct {
	Kind    ErrorKind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable is true for transport failures and 5xx answers.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// UserDeleted reports a 401 that must end the session without a refresh.
func (e *Error) UserDeleted() bool {
	return e.Kind == KindAuthExpired && e.Code == codeUserDeleted
}

// KindOf returns the kind of err, SERVER for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindServer, Message: err.Error(), Err: err}
}

func validationError(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "network request failed", Err: err}
}

// errorBody covers both server error shapes: numeric codes and the string
// marked codes.
type errorBody struct {
	Code                 json.RawMessage `json:"code"`
	Message              string          `json:"message"`
	SubscriptionRequired bool            `json:"subscriptionRequired"`
}

func classifyResponse(status int, body []byte) *Error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)
	e := &Error{Status: status, Message: parsed.Message}
	var code string
	if json.Unmarshal(parsed.Code, &code) == nil {
		e.Code = code
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	switch {
	case status == http.StatusForbidden && parsed.SubscriptionRequired:
		e.Kind = KindSubscriptionExpired
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuthExpired
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindValidation
	}
	return e
}
