package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
)

// Get decodes the JSON response of GET path?query into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends in as JSON and decodes the response into out. Either may be nil.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPatch, path, nil, in, out)
}

// Delete tolerates an empty 204 response.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

// FilePart is a file field of a multipart request.
type FilePart struct {
	Field    string
	FileName string
	Content  io.Reader
}

// PatchMultipart sends fields and file as multipart/form-data. The body is buffered so it can be
// replayed if the request has to be retried after a refresh.
func (c *Client) PatchMultipart(ctx context.Context, path string, fields map[string]string, file FilePart, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return errors.Classify(errors.Wrapf(err, "[apiclient PatchMultipart] write field %s", k))
		}
	}
	if file.Content != nil {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return errors.Classify(errors.Wrapf(err, "[apiclient PatchMultipart] create file part"))
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return errors.Classify(errors.Wrapf(err, "[apiclient PatchMultipart] copy file"))
		}
	}
	if err := w.Close(); err != nil {
		return errors.Classify(errors.Wrapf(err, "[apiclient PatchMultipart] close writer"))
	}

	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, buf.Bytes(), w.FormDataContentType())
	if err != nil {
		return err
	}
	return c.roundTrip(req, out)
}
