package validation

import "fmt"

/* Structured-value validation: JSON objects and arrays as decoded by
 * encoding/json (map[string]any, []any, float64, string, bool, nil).
 */

// ObjectOptions configures JSONObject validation.
type ObjectOptions struct {
	MaxDepth int // 0 means DefaultMaxDepth
	MaxKeys  int // 0 means DefaultMaxKeys
}

/* JSONObject enforces structural bounds on a decoded JSON object and
 * returns a recursively sanitized copy. Sanitization happens whether
 * or not validation passes: string leaves run through SanitizeString
 * and arrays are truncated to DefaultMaxArrayLength.
 */
func (v *Validator) JSONObject(raw any, field string, opts ObjectOptions) Result {
	obj, isObject := raw.(map[string]any)
	if !isObject {
		return newResult(nil, []string{fmt.Sprintf("%s must be a JSON object", field)}, nil)
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	var errs []string
	if depth := jsonDepth(obj, 1); depth > maxDepth {
		errs = append(errs, fmt.Sprintf("%s exceeds maximum nesting depth of %d", field, maxDepth))
	}
	if keys := countKeys(obj); keys > maxKeys {
		errs = append(errs, fmt.Sprintf("%s exceeds maximum of %d keys", field, maxKeys))
	}

	return newResult(v.sanitizeValue(obj), errs, nil)
}

// ArrayOptions configures Array validation.
type ArrayOptions struct {
	MinLength int
	MaxLength int // 0 means DefaultMaxArrayLength
	// Item validates one element; the index-qualified field name is
	// passed through so error messages pinpoint the position.
	Item func(item any, field string) Result
}

// Array validates a decoded JSON array, invoking the per-item
// validator positionally when one is supplied.
func (v *Validator) Array(raw any, field string, opts ArrayOptions) Result {
	arr, isArray := raw.([]any)
	if !isArray {
		return newResult(nil, []string{fmt.Sprintf("%s must be an array", field)}, nil)
	}

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxArrayLength
	}

	var errs, warnings []string
	if len(arr) < opts.MinLength {
		errs = append(errs, fmt.Sprintf("%s must have at least %d items", field, opts.MinLength))
	}
	if len(arr) > maxLen {
		errs = append(errs, fmt.Sprintf("%s exceeds maximum of %d items", field, maxLen))
	}

	sanitized := make([]any, 0, min(len(arr), maxLen))
	for i, item := range arr {
		if i >= maxLen {
			break
		}
		if opts.Item == nil {
			sanitized = append(sanitized, v.sanitizeValue(item))
			continue
		}
		itemResult := opts.Item(item, fmt.Sprintf("%s[%d]", field, i))
		errs = append(errs, itemResult.Errors...)
		warnings = append(warnings, itemResult.Warnings...)
		sanitized = append(sanitized, itemResult.Sanitized)
	}

	return newResult(sanitized, errs, warnings)
}

// jsonDepth returns the nesting depth of a decoded JSON value.
func jsonDepth(value any, depth int) int {
	deepest := depth
	switch t := value.(type) {
	case map[string]any:
		for _, child := range t {
			if d := jsonDepth(child, depth+1); d > deepest {
				deepest = d
			}
		}
	case []any:
		for _, child := range t {
			if d := jsonDepth(child, depth+1); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

// countKeys counts keys recursively across nested objects.
func countKeys(value any) int {
	total := 0
	switch t := value.(type) {
	case map[string]any:
		total += len(t)
		for _, child := range t {
			total += countKeys(child)
		}
	case []any:
		for _, child := range t {
			total += countKeys(child)
		}
	}
	return total
}

// sanitizeValue deep-copies a decoded JSON value, sanitizing string
// leaves and truncating arrays.
func (v *Validator) sanitizeValue(value any) any {
	switch t := value.(type) {
	case string:
		return v.SanitizeString(t, DefaultMaxStringLength)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[v.SanitizeString(k, DefaultMaxStringLength)] = v.sanitizeValue(child)
		}
		return out
	case []any:
		n := min(len(t), DefaultMaxArrayLength)
		out := make([]any, 0, n)
		for _, child := range t[:n] {
			out = append(out, v.sanitizeValue(child))
		}
		return out
	default:
		return value
	}
}
