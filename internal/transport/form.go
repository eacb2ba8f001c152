package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// Form is a multipart/form-data payload. Parts are written in insertion order.
type Form struct {
	parts []formPart
}

type formPart struct {
	name   string
	value  string
	upload *domain.Upload
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// Field appends a text part.
func (f *Form) Field(name, value string) *Form {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// File appends a file part. A nil upload is omitted, which the backend reads as "unchanged".
func (f *Form) File(name string, upload *domain.Upload) *Form {
	if upload == nil || upload.Open == nil {
		return f
	}
	f.parts = append(f.parts, formPart{name: name, upload: upload})
	return f
}

// Has reports whether a part with the given name was added.
func (f *Form) Has(name string) bool {
	for _, p := range f.parts {
		if p.name == name {
			return true
		}
	}
	return false
}

// Encode renders the form and returns the body and its content type. Each
// upload is reopened, so encoding the same form twice yields the same body.
func (f *Form) Encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for _, p := range f.parts {
		if p.upload == nil {
			if err := mw.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", p.name, err)
			}
			continue
		}
		contentType := p.upload.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.name), quoteEscaper.Replace(p.upload.FileName)))
		header.Set("Content-Type", contentType)
		w, err := mw.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", p.name, err)
		}
		if err := copyUpload(w, p.upload); err != nil {
			return nil, "", fmt.Errorf("copy part %s: %w", p.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

func copyUpload(w io.Writer, upload *domain.Upload) error {
	body, err := upload.Open()
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(w, body)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
