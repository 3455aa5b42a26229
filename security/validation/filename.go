package validation

import (
	"fmt"
	"path"
	"strings"
)

/* Filename security checks. These run on the client-supplied filename
 * only; the stored object name is always server-generated, so this is
 * purely about refusing hostile metadata.
 */

// forbiddenFilenameChars are rejected anywhere in a filename, on top
// of the control range.
const forbiddenFilenameChars = `<>:"|?*`

// Filename validates a client-supplied filename.
func (v *Validator) Filename(raw any, field string) Result {
	name, isString := raw.(string)
	if !isString || name == "" {
		return newResult("", []string{fmt.Sprintf("%s is required", field)}, nil)
	}

	var errs, warnings []string

	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		errs = append(errs, fmt.Sprintf("%s contains path traversal characters", field))
	}
	if strings.ContainsAny(name, forbiddenFilenameChars) {
		errs = append(errs, fmt.Sprintf("%s contains forbidden characters", field))
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7F {
			errs = append(errs, fmt.Sprintf("%s contains control characters", field))
			break
		}
	}

	base := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	if _, reserved := v.lib.ReservedDeviceNames[base]; reserved {
		errs = append(errs, fmt.Sprintf("%s is a reserved device name", field))
	}

	for _, p := range v.lib.SuspiciousFilenames {
		if p.MatchString(name) {
			errs = append(errs, fmt.Sprintf("%s matches a denylisted filename pattern", field))
			break
		}
	}

	// Hidden files are unusual for uploads but not hostile by
	// themselves.
	if strings.HasPrefix(name, ".") {
		warnings = append(warnings, fmt.Sprintf("%s is a hidden file", field))
	}

	return newResult(name, errs, warnings)
}

// FileMeta describes an uploaded file for metadata validation. The
// byte-level scan lives in security/filescan.
type FileMeta struct {
	Filename  string
	SizeBytes int64
	MIME      string
	Extension string
}

// FileOptions configures File validation.
type FileOptions struct {
	MaxSizeBytes   int64 // 0 means DefaultMaxFileSize
	AllowedMIME    []string
	MaxFilenameLen int // 0 means DefaultMaxFilenameLen
}

// File validates upload metadata: size bound, MIME allow-list,
// filename length and filename security.
func (v *Validator) File(meta FileMeta, field string, opts FileOptions) Result {
	maxSize := opts.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	maxName := opts.MaxFilenameLen
	if maxName <= 0 {
		maxName = DefaultMaxFilenameLen
	}

	var errs, warnings []string

	if meta.SizeBytes <= 0 {
		errs = append(errs, fmt.Sprintf("%s is empty", field))
	}
	if meta.SizeBytes > maxSize {
		errs = append(errs, fmt.Sprintf("%s exceeds maximum size of %d bytes", field, maxSize))
	}
	if len(meta.Filename) > maxName {
		errs = append(errs, fmt.Sprintf("%s filename exceeds %d characters", field, maxName))
	}

	if len(opts.AllowedMIME) > 0 {
		declared := strings.ToLower(strings.TrimSpace(meta.MIME))
		allowed := false
		for _, m := range opts.AllowedMIME {
			if declared == strings.ToLower(m) {
				allowed = true
				break
			}
		}
		if !allowed {
			errs = append(errs, fmt.Sprintf("%s has unsupported type %q", field, meta.MIME))
		}
	}

	nameResult := v.Filename(meta.Filename, field)
	errs = append(errs, nameResult.Errors...)
	warnings = append(warnings, nameResult.Warnings...)

	meta.Extension = strings.ToLower(path.Ext(meta.Filename))
	return newResult(meta, errs, warnings)
}
