package chi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixshift/gateway/security/validation"
	"github.com/pixshift/gateway/usage"
)

// convertResponse is returned when a conversion request is accepted.
type convertResponse struct {
	ConversionID string   `json:"conversion_id"`
	OutputFormat string   `json:"output_format"`
	Quality      int      `json:"quality"`
	Filename     string   `json:"filename"`
	Remaining    int      `json:"quota_remaining"`
	Warnings     []string `json:"warnings,omitempty"`
}

// postConvert handles POST /api/v1/convert
func postConvert(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, ok := deps.authorize(w, r, "convert")
		if !ok {
			return
		}

		params, isParams := decision.Params["request"].(validation.ConvertParams)
		if !isParams {
			writeError(w, http.StatusBadRequest, "missing params part")
			return
		}
		if len(decision.Files) == 0 {
			writeError(w, http.StatusBadRequest, "missing file part")
			return
		}

		remaining, err := deps.Quota.CheckAndIncrement(r.Context(), decision.UserKey)
		if errors.Is(err, usage.ErrQuotaExceeded) {
			writeError(w, http.StatusTooManyRequests, "conversion quota exceeded for this period")
			return
		}
		if err != nil {
			deps.Log.Error("quota check failed", "user", decision.UserKey, "error", err)
			writeError(w, http.StatusInternalServerError, "quota service unavailable")
			return
		}

		file := decision.Files[0]
		conversionID := uuid.New().String()

		if deps.Metrics != nil {
			deps.Metrics.RecordScanDuration(r.Context(), file.Scan.ScanDuration)
		}

		if deps.Recorder != nil {
			err := deps.Recorder.Record(r.Context(), usage.Event{
				UserID:       decision.UserKey,
				Action:       "conversion_started",
				ConversionID: conversionID,
			})
			if err != nil {
				// metering must not block an already-authorized request
				deps.Log.Error("recording usage event", "user", decision.UserKey, "error", err)
			}
		}

		writeJSON(w, http.StatusAccepted, response{
			Success: true,
			Data: convertResponse{
				ConversionID: conversionID,
				OutputFormat: params.OutputFormat,
				Quality:      params.Quality,
				Filename:     file.Filename,
				Remaining:    remaining,
				Warnings:     decision.Warnings,
			},
		})
	})
}
