package chi

import (
	"io"
	"net/http"

	"github.com/pixshift/gateway/billing"
)

const (
	// maxWebhookBody bounds provider notifications; real events are a
	// few KB.
	maxWebhookBody = 1 << 20

	signatureHeader     = "Webhook-Signature"
	replayHeader        = "X-Webhook-Replay"
	operatorTokenHeader = "X-Operator-Token"
)

// postBillingWebhook handles POST /api/v1/billing/webhook
func postBillingWebhook(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()
		if len(body) > maxWebhookBody {
			writeError(w, http.StatusRequestEntityTooLarge, "webhook payload too large")
			return
		}

		replay := billing.Replay{
			Requested:     r.Header.Get(replayHeader) == "true",
			OperatorToken: r.Header.Get(operatorTokenHeader),
		}

		outcome := deps.Processor.Process(r.Context(), body, r.Header.Get(signatureHeader), replay)

		if deps.Metrics != nil {
			result := "processed"
			switch {
			case outcome.Duplicate:
				result = "duplicate"
			case outcome.Status >= 500:
				result = "retryable_failure"
			case outcome.Status >= 400:
				result = "rejected"
			}
			deps.Metrics.RecordWebhook(r.Context(), eventType(body), result)
		}

		if outcome.Status >= 400 {
			writeError(w, outcome.Status, outcome.Error)
			return
		}
		writeJSON(w, outcome.Status, response{Success: true})
	})
}

// eventType extracts the provider event type for metric labels; the
// processor re-validates the envelope itself.
func eventType(body []byte) string {
	env, err := billing.ParseEnvelope(body)
	if err != nil {
		return "malformed"
	}
	return env.Type
}
