// Package upload validates uploaded payloads before anything decodes them.
package upload

import (
	"mime"
	"strings"

	"github.com/BaSui01/lokingai/types"
)

const bytesPerMB = 1024 * 1024

// Validator checks a declared content type against an allow-list and a byte
// size against a ceiling in MB. It never looks at the payload itself.
type Validator struct {
	allowed   map[string]struct{}
	maxSizeMB int
}

// NewValidator builds a Validator for one modality.
func NewValidator(contentTypes []string, maxSizeMB int) *Validator {
	allowed := make(map[string]struct{}, len(contentTypes))
	for _, ct := range contentTypes {
		if n := normalizeContentType(ct); n != "" {
			allowed[n] = struct{}{}
		}
	}
	return &Validator{allowed: allowed, maxSizeMB: maxSizeMB}
}

// Validate fails with invalid-file-type when contentType is not allowed, and
// otherwise with file-too-large when size/(1024*1024) exceeds the ceiling.
// The type check always runs first.
func (v *Validator) Validate(contentType string, size int64) error {
	if !v.Allows(contentType) {
		return types.NewInvalidFileTypeError()
	}
	if float64(size)/bytesPerMB > float64(v.maxSizeMB) {
		return types.NewFileTooLargeError()
	}
	return nil
}

// ValidateFile is Validate applied to a File's metadata.
func (v *Validator) ValidateFile(f *File) error {
	return v.Validate(f.ContentType, f.Size)
}

// Allows reports whether contentType is on the allow-list. Parameters such as
// "; charset=utf-8" and letter case are ignored.
func (v *Validator) Allows(contentType string) bool {
	_, ok := v.allowed[normalizeContentType(contentType)]
	return ok
}

// MaxBytes is the ceiling expressed in bytes.
func (v *Validator) MaxBytes() int64 {
	return int64(v.maxSizeMB) * bytesPerMB
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
