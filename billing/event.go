package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

/* Event is the persisted record of one provider notification, keyed
 * by the provider-assigned event id. Lifecycle:
 *
 *   Received -> SignatureVerified -> Recorded(unprocessed)
 *     -> Processing -> Processed
 *     -> Recorded(unprocessed, attempts+1, last error) on failure
 *
 * Processed is terminal; an unprocessed record is revisited on every
 * redelivery. Records are never deleted here; retention is an
 * external, time-boxed job.
 */
type Event struct {
	EventID            string
	EventType          string
	Processed          bool
	ProcessingAttempts int
	LastError          string
	Payload            []byte
	CreatedAt          time.Time
	ProcessedAt        time.Time // zero until processed
}

/* Kind is the closed set of event types this processor understands.
 * New provider event types are a compile-time-visible addition here,
 * not a silent string match; anything else maps to KindUnhandled and
 * is acknowledged without processing.
 */
type Kind int

const (
	KindUnhandled Kind = iota
	KindCheckoutCompleted
	KindSubscriptionUpdated
	KindSubscriptionDeleted
	KindInvoicePaid
	KindInvoicePaymentFailed
)

// String returns the provider's event type string.
func (k Kind) String() string {
	switch k {
	case KindCheckoutCompleted:
		return "checkout.session.completed"
	case KindSubscriptionUpdated:
		return "customer.subscription.updated"
	case KindSubscriptionDeleted:
		return "customer.subscription.deleted"
	case KindInvoicePaid:
		return "invoice.paid"
	case KindInvoicePaymentFailed:
		return "invoice.payment_failed"
	default:
		return "unhandled"
	}
}

// KindFromType maps a provider event type string to a Kind.
func KindFromType(eventType string) Kind {
	switch eventType {
	case "checkout.session.completed":
		return KindCheckoutCompleted
	case "customer.subscription.updated":
		return KindSubscriptionUpdated
	case "customer.subscription.deleted":
		return KindSubscriptionDeleted
	case "invoice.paid":
		return KindInvoicePaid
	case "invoice.payment_failed":
		return KindInvoicePaymentFailed
	default:
		return KindUnhandled
	}
}

// Envelope is the outer shape of a provider notification.
type Envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEnvelope decodes and minimally validates a notification body.
func ParseEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshaling event envelope: %w", err)
	}
	if env.ID == "" {
		return Envelope{}, fmt.Errorf("event id is required")
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("event type is required")
	}
	return env, nil
}
