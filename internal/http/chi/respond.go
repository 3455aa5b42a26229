package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pixshift/gateway/gateway"
)

/* HTTP layer DTOs. Every response is the same JSON envelope so
 * clients parse one shape for success and failure alike.
 */

type response struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Error: message})
}

// writeDenial renders a gateway denial, applying its rate limit
// headers before the status line is written.
func writeDenial(w http.ResponseWriter, d gateway.Decision) {
	for name, value := range d.Headers {
		w.Header().Set(name, value)
	}

	body := response{Success: false, Error: d.Reason}
	if retryAfter, ok := d.Headers["Retry-After"]; ok {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			body.RetryAfter = seconds
		}
	}
	writeJSON(w, d.Status, body)
}

// applyHeaders sets the gateway's advisory headers on allowed
// responses too, so clients can pace themselves.
func applyHeaders(w http.ResponseWriter, d gateway.Decision) {
	for name, value := range d.Headers {
		w.Header().Set(name, value)
	}
}
