package orders

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// ReturnWindow is how long after delivery a return request is accepted.
const ReturnWindow = 5 * 24 * time.Hour

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// Transition validates a status change against the table. Delivered and
// cancelled are terminal.
func Transition(from, to string) error {
	next, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	if !IsValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	for _, s := range next {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func CancelAllowed(status string) bool {
	return status == StatusPending || status == StatusProcessing
}

func ReturnAllowed(deliveredAt *time.Time, now time.Time) bool {
	if deliveredAt == nil {
		return false
	}
	return now.Sub(*deliveredAt) <= ReturnWindow
}
