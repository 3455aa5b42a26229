package chi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/pixshift/gateway/billing"
	"github.com/pixshift/gateway/gateway"
	"github.com/pixshift/gateway/policies"
	"github.com/pixshift/gateway/usage"
)

// Metrics is the recording side of the metrics exporter the handlers
// depend on.
type Metrics interface {
	RecordRequest(ctx context.Context, endpoint, outcome, reason string)
	RecordThreat(ctx context.Context, kind, severity string)
	RecordWebhook(ctx context.Context, eventType, result string)
	RecordScanDuration(ctx context.Context, d time.Duration)
	ServeHTTP() http.Handler
}

// Deps are the collaborators the HTTP layer wires together.
type Deps struct {
	Guard     *gateway.Guard
	Policies  *policies.Loader
	Quota     usage.Quota
	Recorder  usage.Recorder
	Processor *billing.Processor
	Metrics   Metrics
	Log       *slog.Logger
}

// Handlers sets up the API routes
func Handlers(ctx context.Context, deps Deps) *chi.Mux {
	logger := httplog.NewLogger("pixshift-gateway", httplog.Options{
		JSON: true,
	})
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.ServeHTTP())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/convert", postConvert(deps).ServeHTTP)
		r.Post("/usage/track", postUsage(deps).ServeHTTP)
		r.Post("/billing/webhook", postBillingWebhook(deps).ServeHTTP)
	})

	return r
}

// recordRequest counts one gateway decision, nil-safe for tests that
// run without an exporter.
func (d Deps) recordRequest(ctx context.Context, endpoint, outcome, reason string) {
	if d.Metrics != nil {
		d.Metrics.RecordRequest(ctx, endpoint, outcome, reason)
	}
}

// authorize looks up the endpoint policy and runs the gateway. The
// bool reports whether the request may proceed; denials are already
// written.
func (d Deps) authorize(w http.ResponseWriter, r *http.Request, endpoint string) (gateway.Decision, bool) {
	policy, err := d.Policies.Get(endpoint)
	if err != nil {
		d.Log.Error("missing endpoint policy", "endpoint", endpoint, "error", err)
		writeError(w, http.StatusInternalServerError, "endpoint misconfigured")
		return gateway.Decision{}, false
	}

	decision := d.Guard.Authorize(r, policy)
	if d.Metrics != nil {
		for _, th := range decision.Threats {
			d.Metrics.RecordThreat(r.Context(), th.Kind.String(), th.Severity.String())
		}
	}
	if !decision.Allowed {
		d.recordRequest(r.Context(), endpoint, "denied", decision.Reason)
		writeDenial(w, decision)
		return decision, false
	}

	d.recordRequest(r.Context(), endpoint, "allowed", "")
	applyHeaders(w, decision)
	return decision, true
}
