package validation

/* Result is the outcome of validating one field. Value semantics: it
 * is produced once and never mutated afterwards; callers compose
 * per-field results into aggregate ones.
 *
 * Invariant: Valid == (len(Errors) == 0).
 */
type Result struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	Sanitized any
}

// newResult builds a Result, deriving Valid from the error list.
func newResult(sanitized any, errs, warnings []string) Result {
	return Result{
		Valid:     len(errs) == 0,
		Errors:    errs,
		Warnings:  warnings,
		Sanitized: sanitized,
	}
}

// ok returns a passing result with an optional warning list.
func ok(sanitized any, warnings ...string) Result {
	return newResult(sanitized, nil, warnings)
}

// Merge folds another result into an aggregate error/warning list.
// The receiver keeps its own Sanitized value.
func (r Result) Merge(other Result) Result {
	return newResult(r.Sanitized,
		append(append([]string{}, r.Errors...), other.Errors...),
		append(append([]string{}, r.Warnings...), other.Warnings...),
	)
}

// String returns the sanitized value as a string when it is one.
func (r Result) String() string {
	s, _ := r.Sanitized.(string)
	return s
}
