package policies

import "github.com/pixshift/gateway/security/validation"

/* schemas maps YAML schema names to request validators. Declared here
 * rather than inferred so a typo in policies.yaml fails at load time.
 */
var schemas = map[string]func(v *validation.Validator, body map[string]any) validation.Result{
	"convert_params": func(v *validation.Validator, body map[string]any) validation.Result {
		return v.ValidateConvertParams(body)
	},
	"usage_request": func(v *validation.Validator, body map[string]any) validation.Result {
		return v.ValidateUsageRequest(body)
	},
}
