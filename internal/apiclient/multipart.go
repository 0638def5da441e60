package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Field is a plain multipart form value. Order is preserved on the wire.
type Field struct {
	Name  string
	Value string
}

// Upload is a file selected for upload.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// BytesUpload wraps in-memory content as an Upload.
func BytesUpload(name string, data []byte) Upload {
	return Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileUpload describes a file on disk without reading it.
func FileUpload(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, err
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%s is a directory", path)
	}
	return Upload{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// PostMultipart uploads fields and files as multipart/form-data; each file is
// sent under fileField.
func (c *Client) PostMultipart(ctx context.Context, path string, fields []Field, fileField string, files []Upload, fallback string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, field := range fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return errorutil.NewInternalError(err)
		}
	}
	for _, file := range files {
		if err := writeFilePart(writer, fileField, file); err != nil {
			return errorutil.NewTransportError(fallback, err)
		}
	}
	if err := writer.Close(); err != nil {
		return errorutil.NewInternalError(err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return errorutil.NewTransportError(fallback, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, fallback, out)
}

func writeFilePart(writer *multipart.Writer, fieldName string, file Upload) error {
	if file.Open == nil {
		return fmt.Errorf("upload %s has no content", file.Name)
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	part, err := writer.CreateFormFile(fieldName, file.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}
