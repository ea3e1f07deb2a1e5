package models

import (
	"errors"
	"fmt"
)

var (
	ErrConflictData = errors.New("data conflicts with existing data")
	ErrDataNotFound = errors.New("data not found")
	// ErrIdempotencyKeyConflict is a conflict on (user, idempotency key) only
	ErrIdempotencyKeyConflict = fmt.Errorf("%w: idempotency key is taken", ErrConflictData)

	ErrInvalidOrderDetails  = errors.New("order details are required")
	ErrInvalidPrice         = errors.New("product price must be a number")
	ErrUserIDRequired       = errors.New("user id is required")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidTransition   = errors.New("transition is not allowed")
	ErrInvalidDeliveryDate = errors.New("invalid delivery date")

	ErrInvalidToken = errors.New("invalid token")

	ErrInvalidCallback     = errors.New("invalid callback payload")
	ErrChecksumMismatch    = errors.New("checksum validation failed")
	ErrAmountMismatch      = errors.New("callback amount does not match order")
	ErrCallbackUnsupported = errors.New("payment method does not support callbacks")
)
