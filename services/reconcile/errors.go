package reconcile

import (
	"errors"
	"fmt"
)

const (
	CodeFetchFailure        = "fetchFailure"
	CodeRelationNotFound    = "relationNotFound"
	CodeInvalidPaymentIntID = "invalidPaymentIntentId"
	CodeInvalidState        = "invalidState"
	CodeGateway             = "gatewayError"
	CodeStore               = "storeError"
	CodeUserNotFound        = "userNotFound"
)

// ReconcileError is the typed failure returned by the reconciliation engine.
// Two errors match under errors.Is when their codes are equal.
type ReconcileError struct {
	Code    string
	Message string
	Err     error
}

func (e *ReconcileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

func (e *ReconcileError) Is(target error) bool {
	t, ok := target.(*ReconcileError)
	return ok && t.Code == e.Code
}

var (
	ErrFetchFailure           = &ReconcileError{Code: CodeFetchFailure, Message: "failed to fetch bookings"}
	ErrRelationNotFound       = &ReconcileError{Code: CodeRelationNotFound, Message: "no payment relation for booking"}
	ErrInvalidPaymentIntentID = &ReconcileError{Code: CodeInvalidPaymentIntID, Message: "malformed payment intent id"}
	ErrInvalidState           = &ReconcileError{Code: CodeInvalidState, Message: "invalid booking state"}
	ErrGateway                = &ReconcileError{Code: CodeGateway, Message: "payment gateway failure"}
	ErrStore                  = &ReconcileError{Code: CodeStore, Message: "store failure"}
	ErrUserNotFound           = &ReconcileError{Code: CodeUserNotFound, Message: "user not found"}
)

// ErrRefundRejected marks a gateway failure that repeating cannot fix, such
// as a 4xx answer from the payments provider. Gateways wrap it into the error
// they return; it stays a gatewayError but is not retryable.
var ErrRefundRejected = errors.New("refund rejected by payment provider")

func newError(code, msg string, err error) error {
	return &ReconcileError{Code: code, Message: msg, Err: err}
}

// IsRetryable reports whether repeating the same dispatch may succeed later.
// Missing relations, malformed ids, unknown users and rejected refunds need a
// human, not a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRefundRejected) {
		return false
	}
	return errors.Is(err, ErrGateway) || errors.Is(err, ErrStore)
}

// ErrorCode extracts the code of a ReconcileError, or "" for foreign errors.
func ErrorCode(err error) string {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
