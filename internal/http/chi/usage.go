package chi

import (
	"net/http"

	"github.com/pixshift/gateway/security/validation"
	"github.com/pixshift/gateway/usage"
)

// postUsage handles POST /api/v1/usage/track
func postUsage(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, ok := deps.authorize(w, r, "usage")
		if !ok {
			return
		}

		req, isRequest := decision.Params["request"].(validation.UsageRequest)
		if !isRequest {
			writeError(w, http.StatusBadRequest, "missing request body")
			return
		}

		if deps.Recorder != nil {
			err := deps.Recorder.Record(r.Context(), usage.Event{
				UserID:       decision.UserKey,
				Action:       req.Action,
				ConversionID: req.ConversionID,
			})
			if err != nil {
				deps.Log.Error("recording usage event", "user", decision.UserKey, "error", err)
				writeError(w, http.StatusInternalServerError, "usage store unavailable")
				return
			}
		}

		writeJSON(w, http.StatusAccepted, response{Success: true})
	})
}
