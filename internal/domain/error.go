package domain

import "errors"

// Kind is the stable, machine-checkable category of a domain error.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindInvalidSignature Kind = "invalid_signature"
	KindConflict         Kind = "conflict"
	KindUpstream         Kind = "upstream_failure"
	KindInternal         Kind = "internal"
)

// Error pairs a Kind with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// KindOf resolves the kind of err through wrapping. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// Message returns the human message of the outermost domain error, or a generic one.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "internal error"
}

var (
	// Common domain errors
	ErrNotFound           = newErr(KindNotFound, "entity not found")
	ErrAlreadyExists      = newErr(KindConflict, "entity already exists")
	ErrInvalidArgument    = newErr(KindValidation, "invalid argument")
	ErrForbidden          = newErr(KindForbidden, "not allowed to access this resource")
	ErrOperationFailed    = newErr(KindInternal, "storage operation failed")
	ErrReadDatabaseRow    = newErr(KindInternal, "failed to read database row")
	ErrInvalidExecContext = newErr(KindInternal, "invalid execution context")
	ErrUpstream           = newErr(KindUpstream, "upstream service failed")

	ErrPlanNotFound         = newErr(KindNotFound, "plan not found")
	ErrPlanInactive         = newErr(KindValidation, "plan is not active")
	ErrInvalidDeliveryCount = newErr(KindValidation, "plan delivery count must be positive")

	ErrSubscriptionNotFound = newErr(KindNotFound, "subscription not found")
	ErrInvalidTransition    = newErr(KindConflict, "subscription status does not allow this operation")
	ErrNoActiveSubscription = newErr(KindNotFound, "no active subscription")

	ErrDeliveryNotFound     = newErr(KindNotFound, "delivery not found")
	ErrDeliverySlotTaken    = newErr(KindConflict, "a delivery already exists for this date")
	ErrDeliveryNotSkippable = newErr(KindConflict, "delivery can no longer be skipped")

	ErrPaymentNotFound     = newErr(KindNotFound, "payment not found")
	ErrInvalidSignature    = newErr(KindInvalidSignature, "payment signature mismatch")
	ErrVerifyInProgress    = newErr(KindConflict, "payment verification already in progress")
	ErrNoSuccessfulPayment = newErr(KindNotFound, "no successful payment found")

	ErrCouponCodeRequired  = newErr(KindValidation, "coupon code is required")
	ErrInvalidAmount       = newErr(KindValidation, "amount must be positive")
	ErrCouponNotFound      = newErr(KindNotFound, "invalid coupon code")
	ErrCouponInactive      = newErr(KindValidation, "coupon is not active")
	ErrCouponNotStarted    = newErr(KindValidation, "coupon is not valid yet")
	ErrCouponExpired       = newErr(KindValidation, "coupon has expired")
	ErrCouponExhausted     = newErr(KindConflict, "coupon usage limit reached")
	ErrCouponMinAmount     = newErr(KindValidation, "order amount is below the coupon minimum")
	ErrCouponPlanMismatch  = newErr(KindValidation, "coupon is not valid for this plan")
	ErrCouponUserLimit     = newErr(KindConflict, "you have already used this coupon the maximum number of times")
	ErrCouponNoBenefit     = newErr(KindValidation, "coupon gives no discount on this order")
	ErrCouponUsageLimitBad = newErr(KindValidation, "usage limit must be positive when set")
)
