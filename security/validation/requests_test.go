package validation_test

import (
	"testing"

	"github.com/pixshift/gateway/security/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsageRequest(t *testing.T) {
	v := newValidator(t)

	t.Run("complete request", func(t *testing.T) {
		res := v.ValidateUsageRequest(map[string]any{
			"action":        "conversion_completed",
			"conversion_id": "3b241101-e2bb-4255-8caf-4136c566a962",
			"conversion_details": map[string]any{
				"filename":   "holiday.png",
				"format":     "webp",
				"size_bytes": 123456.0,
			},
		})

		require.True(t, res.Valid, "errors: %v", res.Errors)
		req := res.Sanitized.(validation.UsageRequest)
		assert.Equal(t, "conversion_completed", req.Action)
		assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", req.ConversionID)
		require.NotNil(t, req.Details)
		assert.Equal(t, "webp", req.Details.Format)
		assert.Equal(t, int64(123456), req.Details.SizeBytes)
	})

	t.Run("out-of-enum action is a hard error", func(t *testing.T) {
		res := v.ValidateUsageRequest(map[string]any{"action": "mine_bitcoin"})
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "action must be one of")
	})

	t.Run("unknown fields are hard errors", func(t *testing.T) {
		res := v.ValidateUsageRequest(map[string]any{
			"action": "file_downloaded",
			"admin":  true,
		})
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], `unknown field "admin"`)
	})

	t.Run("details without format fail", func(t *testing.T) {
		res := v.ValidateUsageRequest(map[string]any{
			"action": "conversion_started",
			"conversion_details": map[string]any{
				"filename":   "a.png",
				"size_bytes": 10.0,
			},
		})
		require.False(t, res.Valid)
	})
}

func TestValidateConvertParams(t *testing.T) {
	v := newValidator(t)

	t.Run("defaults quality", func(t *testing.T) {
		res := v.ValidateConvertParams(map[string]any{"output_format": "png"})
		require.True(t, res.Valid, "errors: %v", res.Errors)
		params := res.Sanitized.(validation.ConvertParams)
		assert.Equal(t, "png", params.OutputFormat)
		assert.Equal(t, 85, params.Quality)
	})

	t.Run("quality as numeric string warns", func(t *testing.T) {
		res := v.ValidateConvertParams(map[string]any{
			"output_format": "jpeg",
			"quality":       "90",
		})
		require.True(t, res.Valid, "errors: %v", res.Errors)
		assert.NotEmpty(t, res.Warnings)
		assert.Equal(t, 90, res.Sanitized.(validation.ConvertParams).Quality)
	})

	t.Run("unsupported format", func(t *testing.T) {
		res := v.ValidateConvertParams(map[string]any{"output_format": "exe"})
		require.False(t, res.Valid)
	})

	t.Run("quality out of range", func(t *testing.T) {
		res := v.ValidateConvertParams(map[string]any{
			"output_format": "png",
			"quality":       150.0,
		})
		require.False(t, res.Valid)
	})
}
