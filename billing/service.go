package billing

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixshift/gateway/billing/signature"
)

// DefaultHandlerTimeout bounds one handler execution.
const DefaultHandlerTimeout = 30 * time.Second

/* Handler executes the side effects for one event kind. The processor
 * owns dedup, timeout and persistence; the handler owns only the
 * domain writes, which must themselves be idempotent upserts.
 */
type Handler interface {
	Handle(ctx context.Context, kind Kind, object []byte) error
}

// Processor drives the per-event state machine:
// verify -> record -> dispatch under timeout -> persist outcome.
type Processor struct {
	events        EventStore
	handler       Handler
	secret        signature.Secret
	operatorToken string
	timeout       time.Duration
	tolerance     time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithTimeout overrides the handler execution timeout.
func WithTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.timeout = d }
}

// WithTolerance overrides the signature timestamp tolerance.
func WithTolerance(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.tolerance = d }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

/* NewProcessor wires a processor. operatorToken guards the manual
 * replay path: signature verification can only be skipped when the
 * caller presents this credential, never on a header flag alone.
 */
func NewProcessor(events EventStore, handler Handler, secret signature.Secret, operatorToken string, log *slog.Logger, opts ...ProcessorOption) *Processor {
	if log == nil {
		log = slog.Default()
	}
	p := &Processor{
		events:        events,
		handler:       handler,
		secret:        secret,
		operatorToken: operatorToken,
		timeout:       DefaultHandlerTimeout,
		tolerance:     signature.DefaultTolerance,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Replay describes an operator-triggered manual redelivery.
type Replay struct {
	Requested     bool
	OperatorToken string
}

// Outcome tells the delivery system what happened and whether to
// retry, via the suggested HTTP status.
type Outcome struct {
	Status    int
	Duplicate bool
	Attempts  int
	Error     string
}

// Process consumes one signed notification.
func (p *Processor) Process(ctx context.Context, payload []byte, sigHeader string, replay Replay) Outcome {
	// Received -> SignatureVerified. Failure is a hard 400 and is
	// never retried automatically; the replay path requires the
	// operator credential on top of the header flag.
	if replay.Requested {
		if p.operatorToken == "" ||
			subtle.ConstantTimeCompare([]byte(replay.OperatorToken), []byte(p.operatorToken)) != 1 {
			p.log.Warn("replay rejected: invalid operator credential")
			return Outcome{Status: http.StatusForbidden, Error: "invalid operator credential"}
		}
		p.log.Info("signature verification skipped for operator replay")
	} else {
		if err := signature.Verify(p.secret, sigHeader, payload, p.tolerance, p.now()); err != nil {
			p.log.Warn("webhook signature verification failed", "error", err)
			return Outcome{Status: http.StatusBadRequest, Error: "invalid signature"}
		}
	}

	env, err := ParseEnvelope(payload)
	if err != nil {
		p.log.Warn("malformed webhook payload", "error", err)
		return Outcome{Status: http.StatusBadRequest, Error: "malformed payload"}
	}

	// SignatureVerified -> Recorded. Atomic upsert-or-increment: two
	// concurrent deliveries of the same id serialize in the store.
	record, err := p.events.Record(ctx, env.ID, env.Type, payload)
	if err != nil {
		p.log.Error("recording webhook event", "event_id", env.ID, "error", err)
		return Outcome{Status: http.StatusInternalServerError, Error: "storage unavailable"}
	}

	if record.Processed {
		// idempotent no-op: the handler already succeeded once
		p.log.Info("duplicate webhook event acknowledged",
			"event_id", env.ID, "event_type", env.Type)
		return Outcome{Status: http.StatusOK, Duplicate: true, Attempts: record.ProcessingAttempts}
	}

	kind := KindFromType(env.Type)
	if kind == KindUnhandled {
		// forward compatible: acknowledge new provider event types
		p.log.Info("unhandled webhook event type acknowledged",
			"event_id", env.ID, "event_type", env.Type)
		if err := p.events.MarkProcessed(ctx, env.ID, p.now()); err != nil {
			p.log.Error("marking unhandled event processed", "event_id", env.ID, "error", err)
			return Outcome{Status: http.StatusInternalServerError, Error: "storage unavailable"}
		}
		return Outcome{Status: http.StatusOK, Attempts: record.ProcessingAttempts}
	}

	// Recorded -> Processing
	handlerErr := p.dispatch(ctx, kind, env.Data.Object)
	if handlerErr == nil {
		if err := p.events.MarkProcessed(ctx, env.ID, p.now()); err != nil {
			p.log.Error("marking event processed", "event_id", env.ID, "error", err)
			return Outcome{Status: http.StatusInternalServerError, Error: "storage unavailable"}
		}
		p.log.Info("webhook event processed",
			"event_id", env.ID, "event_type", env.Type, "attempts", record.ProcessingAttempts)
		return Outcome{Status: http.StatusOK, Attempts: record.ProcessingAttempts}
	}

	// Processing -> Recorded(unprocessed, last error set)
	if err := p.events.MarkFailed(ctx, env.ID, handlerErr.Error()); err != nil {
		p.log.Error("persisting handler failure", "event_id", env.ID, "error", err)
	}

	status := http.StatusBadRequest
	if IsRetryable(handlerErr) {
		status = http.StatusInternalServerError
	}
	p.log.Warn("webhook handler failed",
		"event_id", env.ID,
		"event_type", env.Type,
		"attempts", record.ProcessingAttempts,
		"retryable", IsRetryable(handlerErr),
		"error", handlerErr,
	)
	return Outcome{Status: status, Attempts: record.ProcessingAttempts, Error: handlerErr.Error()}
}

/* dispatch runs the handler under the execution timeout. A timeout is
 * transient: the delivery system should redeliver. The goroutine is
 * abandoned rather than killed, which is safe because handlers only
 * perform idempotent upserts.
 */
func (p *Processor) dispatch(ctx context.Context, kind Kind, object []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.handler.Handle(ctx, kind, object)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return Transient(fmt.Errorf("handler timed out after %s", p.timeout))
	}
}
