// Package fulfillment holds the order delivery lifecycle rules: the status
// transition graph, ETA phrase parsing, order reference generation, and
// delivery code generation.
package fulfillment

import (
	"errors"
	"fmt"

	"github.com/veloracart/velora/internal/models"
)

var (
	ErrUnknownStatus      = errors.New("unknown delivery status")
	ErrETAAlreadySet      = errors.New("ETA already set")
	ErrDeliveredIsFinal   = errors.New("delivered orders cannot change status")
	ErrDeliveredViaRedeem = errors.New("delivered is set through code redemption only")
)

// CheckTransition validates a requested status change against the current
// order state. It never mutates anything; the store repeats the same
// conditions inside the guarded UPDATE so a concurrent writer cannot slip an
// illegal transition through.
func CheckTransition(order *models.Order, next models.DeliveryStatus) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if order.DeliveryStatus == models.StatusDelivered {
		return ErrDeliveredIsFinal
	}

	switch next {
	case models.StatusDelivered:
		return ErrDeliveredViaRedeem
	case models.StatusOnTheWay:
		if order.ETA != nil {
			return ErrETAAlreadySet
		}
	}

	return nil
}
