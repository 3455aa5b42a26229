package validation

import (
	"fmt"
	"sort"
	"strings"
)

/* Endpoint request validators compose the typed primitives into named
 * shapes. Out-of-enum and unknown values are hard errors, never
 * silently dropped.
 */

// UsageActions is the closed set of actions the metering endpoint
// accepts.
var UsageActions = map[string]struct{}{
	"conversion_started":   {},
	"conversion_completed": {},
	"conversion_failed":    {},
	"file_downloaded":      {},
}

// ConversionFormats is the closed set of output formats.
var ConversionFormats = map[string]struct{}{
	"png":  {},
	"jpeg": {},
	"webp": {},
	"pdf":  {},
}

// UsageRequest is the sanitized shape of a usage-tracking request.
type UsageRequest struct {
	Action       string
	ConversionID string
	Details      *ConversionDetails
}

// ConversionDetails describes the conversion a usage event refers to.
type ConversionDetails struct {
	Filename  string
	Format    string
	SizeBytes int64
}

// ValidateUsageRequest validates the body of the usage-tracking
// endpoint.
func (v *Validator) ValidateUsageRequest(body map[string]any) Result {
	var (
		errs, warnings []string
		req            UsageRequest
	)

	actionRes := v.String(body["action"], "action", StringOptions{Required: true, MaxLength: 64})
	errs = append(errs, actionRes.Errors...)
	warnings = append(warnings, actionRes.Warnings...)
	if actionRes.Valid {
		action := strings.ToLower(actionRes.String())
		if _, known := UsageActions[action]; !known {
			errs = append(errs, fmt.Sprintf("action must be one of: %s", enumList(UsageActions)))
		} else {
			req.Action = action
		}
	}

	if rawID, present := body["conversion_id"]; present && rawID != nil {
		idRes := v.UUID(rawID, "conversion_id")
		errs = append(errs, idRes.Errors...)
		req.ConversionID = idRes.String()
	}

	if rawDetails, present := body["conversion_details"]; present && rawDetails != nil {
		detailsRes := v.validateConversionDetails(rawDetails)
		errs = append(errs, detailsRes.Errors...)
		warnings = append(warnings, detailsRes.Warnings...)
		if details, isDetails := detailsRes.Sanitized.(ConversionDetails); isDetails {
			req.Details = &details
		}
	}

	for key := range body {
		switch key {
		case "action", "conversion_id", "conversion_details":
		default:
			errs = append(errs, fmt.Sprintf("unknown field %q", key))
		}
	}

	return newResult(req, errs, warnings)
}

func (v *Validator) validateConversionDetails(raw any) Result {
	objRes := v.JSONObject(raw, "conversion_details", ObjectOptions{MaxDepth: 3, MaxKeys: 10})
	if !objRes.Valid {
		return objRes
	}
	obj := raw.(map[string]any)

	var (
		errs, warnings []string
		details        ConversionDetails
	)

	nameRes := v.Filename(obj["filename"], "conversion_details.filename")
	errs = append(errs, nameRes.Errors...)
	warnings = append(warnings, nameRes.Warnings...)
	details.Filename = nameRes.String()

	formatRes := v.String(obj["format"], "conversion_details.format", StringOptions{Required: true, MaxLength: 16})
	errs = append(errs, formatRes.Errors...)
	if formatRes.Valid {
		format := strings.ToLower(formatRes.String())
		if _, known := ConversionFormats[format]; !known {
			errs = append(errs, fmt.Sprintf("conversion_details.format must be one of: %s", enumList(ConversionFormats)))
		} else {
			details.Format = format
		}
	}

	maxSize := float64(DefaultMaxFileSize)
	sizeRes := v.Number(obj["size_bytes"], "conversion_details.size_bytes", NumberOptions{
		Required: true,
		Min:      ptr(1.0),
		Max:      &maxSize,
		Integer:  true,
	})
	errs = append(errs, sizeRes.Errors...)
	warnings = append(warnings, sizeRes.Warnings...)
	if size, isNumber := sizeRes.Sanitized.(float64); isNumber {
		details.SizeBytes = int64(size)
	}

	return newResult(details, errs, warnings)
}

// ConvertParams is the sanitized shape of the conversion endpoint's
// JSON parameters part.
type ConvertParams struct {
	OutputFormat string
	Quality      int
}

// ValidateConvertParams validates the parameters part of a conversion
// request.
func (v *Validator) ValidateConvertParams(body map[string]any) Result {
	var (
		errs, warnings []string
		params         ConvertParams
	)

	formatRes := v.String(body["output_format"], "output_format", StringOptions{Required: true, MaxLength: 16})
	errs = append(errs, formatRes.Errors...)
	if formatRes.Valid {
		format := strings.ToLower(formatRes.String())
		if _, known := ConversionFormats[format]; !known {
			errs = append(errs, fmt.Sprintf("output_format must be one of: %s", enumList(ConversionFormats)))
		} else {
			params.OutputFormat = format
		}
	}

	params.Quality = 85 // default
	if rawQuality, present := body["quality"]; present && rawQuality != nil {
		qualityRes := v.Number(rawQuality, "quality", NumberOptions{
			Min:     ptr(1.0),
			Max:     ptr(100.0),
			Integer: true,
		})
		errs = append(errs, qualityRes.Errors...)
		warnings = append(warnings, qualityRes.Warnings...)
		if q, isNumber := qualityRes.Sanitized.(float64); isNumber && qualityRes.Valid {
			params.Quality = int(q)
		}
	}

	for key := range body {
		switch key {
		case "output_format", "quality":
		default:
			errs = append(errs, fmt.Sprintf("unknown field %q", key))
		}
	}

	return newResult(params, errs, warnings)
}

func enumList(set map[string]struct{}) string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}

func ptr[T any](v T) *T { return &v }
