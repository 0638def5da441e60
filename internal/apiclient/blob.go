package apiclient

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Blob is a fetched binary payload.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// FetchBlob downloads a binary resource with the bearer token in the header.
// Filename is empty when the response names none.
func (c *Client) FetchBlob(ctx context.Context, path, fallback string) (Blob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Blob{}, errorutil.NewTransportError(fallback, err)
	}
	resp, err := c.do(req, fallback)
	if err != nil {
		return Blob{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Blob{}, errorutil.NewTransportError(fallback, err)
	}
	return Blob{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}, nil
}

// FilenameFromDisposition returns the attachment filename. An RFC 2231
// filename* parameter wins over a plain filename when it decodes.
func FilenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
