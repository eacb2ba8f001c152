package domain

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Upload is a file selected for a multipart request. Open is called once per
// send, so a retried request carries the full content again.
type Upload struct {
	FileName    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BytesUpload wraps in-memory content.
func BytesUpload(fileName, contentType string, data []byte) *Upload {
	return &Upload{
		FileName:    fileName,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileUpload reopens the file at path on every send.
func FileUpload(path, contentType string) *Upload {
	return &Upload{
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}
