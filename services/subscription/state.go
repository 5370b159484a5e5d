package subscription

import (
	"time"

	"github.com/bimbelkita/bimbel-api/model"
)

// State is the derived subscription state of a user, evaluated over their
// most-recently-created invoice only.
type State string

const (
	StateNone    State = "none"
	StateUnpaid  State = "unpaid"
	StateWaiting State = "waiting"
	StateActive  State = "active"
	StateExpired State = "expired"
)

// Status is what the feature gate consumes: the derived state plus the lock
// flag. IsLocked is false only for StateActive.
type Status struct {
	State    State          `json:"state"`
	IsLocked bool           `json:"is_locked"`
	Invoice  *model.Invoice `json:"invoice,omitempty"`
}

// DeriveState computes the state for an invoice at a given instant. The
// active/expired split is purely time-based: no stored field changes when a
// subscription lapses.
func DeriveState(invoice *model.Invoice, now time.Time) State {
	if invoice == nil {
		return StateNone
	}
	switch invoice.Status {
	case model.InvoiceStatusWaiting:
		return StateWaiting
	case model.InvoiceStatusPaid:
		if invoice.ExpiresAt != nil && now.After(*invoice.ExpiresAt) {
			return StateExpired
		}
		return StateActive
	default:
		return StateUnpaid
	}
}

// StatusOf wraps DeriveState with the lock flag and the invoice itself.
func StatusOf(invoice *model.Invoice, now time.Time) Status {
	state := DeriveState(invoice, now)
	return Status{
		State:    state,
		IsLocked: state != StateActive,
		Invoice:  invoice,
	}
}
