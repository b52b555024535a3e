package upload

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/BaSui01/lokingai/types"
)

// maxFieldBytes caps each plain (non-file) form value.
const maxFieldBytes = 64 << 10

// File is one uploaded payload that already passed validation.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// NewFile wraps an in-memory payload.
func NewFile(filename, contentType string, data []byte) *File {
	return &File{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}
}

// Form is a streamed multipart body: the upload plus the plain form values.
type Form struct {
	File   *File
	Values map[string]string
}

// Value returns the first value sent for name, or "".
func (f *Form) Value(name string) string {
	return f.Values[name]
}

// ReadMultipart streams a multipart request part by part. The part named
// field is checked against v by its declared content type before any of its
// content is read, then read up to one byte past the ceiling so that an
// oversized part fails with file-too-large. maxBody caps the whole request.
// A request without the part yields no-file-sent.
func ReadMultipart(w http.ResponseWriter, r *http.Request, field string, v *Validator, maxBody int64) (*Form, error) {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, types.NewNoFileError().WithCause(err)
		}
		return nil, types.NewInvalidRequestError("invalid multipart body").WithCause(err)
	}

	form := &Form{Values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, multipartError(err)
		}

		name := part.FormName()
		switch {
		case name == field && form.File == nil:
			file, err := readFilePart(part, v)
			part.Close()
			if err != nil {
				return nil, err
			}
			form.File = file
		case name != "" && part.FileName() == "":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			part.Close()
			if err != nil {
				return nil, multipartError(err)
			}
			if len(value) > maxFieldBytes {
				return nil, types.NewInvalidRequestError("form field " + name + " too large")
			}
			if _, seen := form.Values[name]; !seen {
				form.Values[name] = string(value)
			}
		default:
			part.Close()
		}
	}

	if form.File == nil {
		return nil, types.NewNoFileError()
	}
	return form, nil
}

func readFilePart(part *multipart.Part, v *Validator) (*File, error) {
	contentType := part.Header.Get("Content-Type")
	if !v.Allows(contentType) {
		return nil, types.NewInvalidFileTypeError()
	}
	data, err := io.ReadAll(io.LimitReader(part, v.MaxBytes()+1))
	if err != nil {
		return nil, multipartError(err)
	}
	if err := v.Validate(contentType, int64(len(data))); err != nil {
		return nil, err
	}
	return NewFile(part.FileName(), contentType, data), nil
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return types.NewFileTooLargeError().WithCause(err)
	}
	return types.NewInvalidRequestError("invalid multipart body").WithCause(err)
}

// FromBase64 decodes a base64 payload, optionally given as a data URI
// ("data:image/png;base64,..."). Without a data URI the content type is
// sniffed from the decoded bytes.
func FromBase64(encoded string) (*File, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, types.NewNoFileError()
	}

	declared := ""
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, types.NewInvalidRequestError("invalid data uri")
		}
		declared = strings.TrimSuffix(meta, ";base64")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// 兼容无填充的编码
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, types.NewInvalidRequestError("invalid base64 content").WithCause(err)
		}
	}
	if len(data) == 0 {
		return nil, types.NewNoFileError()
	}
	if declared == "" {
		declared = http.DetectContentType(data)
	}
	return NewFile("", declared, data), nil
}
