// Package resource maps inventory entities onto the REST API and keeps client-side
// collections of them.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-inventory-client/apiclient"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/inventory"
)

// Requester is the part of *apiclient.Client the repositories use.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Patch(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
	PatchMultipart(ctx context.Context, path string, fields map[string]string, file apiclient.FilePart, out any) error
}

var _ Requester = (*apiclient.Client)(nil)

// Repository is the CRUD contract shared by every entity type. Each method is exactly one API
// call and every error is an *errors.APIError.
type Repository[T inventory.Entity] interface {
	FetchAll(ctx context.Context, query url.Values) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id int64, entity T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Page is one page of a paginated list.
type Page[T inventory.Entity] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HTTPRepository serves a collection at /<path>/ and its items at /<path>/<id>/.
type HTTPRepository[T inventory.Entity] struct {
	client Requester
	path   string
}

var _ Repository[inventory.Product] = (*HTTPRepository[inventory.Product])(nil)

// NewHTTPRepository creates a repository for the collection named path, e.g. "products".
func NewHTTPRepository[T inventory.Entity](client Requester, path string) *HTTPRepository[T] {
	return &HTTPRepository[T]{client: client, path: strings.Trim(path, "/")}
}

func (r *HTTPRepository[T]) collectionPath() string {
	return r.path + "/"
}

func (r *HTTPRepository[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10) + "/"
}

// FetchAll lists the collection. query is passed through untouched (filters, search, ordering,
// page). Both a bare array and a paginated envelope are accepted; only the returned page is read.
func (r *HTTPRepository[T]) FetchAll(ctx context.Context, query url.Values) ([]T, error) {
	page, err := r.FetchPage(ctx, query)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// FetchPage lists the collection and keeps the pagination links. A bare array response is
// reported as a single page.
func (r *HTTPRepository[T]) FetchPage(ctx context.Context, query url.Values) (Page[T], error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, r.collectionPath(), query, &raw); err != nil {
		return Page[T]{}, err
	}
	return decodeList[T](raw)
}

func (r *HTTPRepository[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	err := r.client.Get(ctx, r.itemPath(id), nil, &out)
	return out, err
}

func (r *HTTPRepository[T]) Create(ctx context.Context, entity T) (T, error) {
	var out T
	err := r.client.Post(ctx, r.collectionPath(), entity, &out)
	return out, err
}

func (r *HTTPRepository[T]) Update(ctx context.Context, id int64, entity T) (T, error) {
	var out T
	err := r.client.Put(ctx, r.itemPath(id), entity, &out)
	return out, err
}

// Patch sends a partial update, e.g. map[string]any{"quantity": 4}.
func (r *HTTPRepository[T]) Patch(ctx context.Context, id int64, fields map[string]any) (T, error) {
	var out T
	err := r.client.Patch(ctx, r.itemPath(id), fields, &out)
	return out, err
}

func (r *HTTPRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, r.itemPath(id))
}

// Upload replaces a file field of an item with a multipart PATCH.
func (r *HTTPRepository[T]) Upload(ctx context.Context, id int64, field, fileName string, content io.Reader) (T, error) {
	var out T
	err := r.client.PatchMultipart(ctx, r.itemPath(id), nil, apiclient.FilePart{
		Field:    field,
		FileName: fileName,
		Content:  content,
	}, &out)
	return out, err
}

func decodeList[T inventory.Entity](raw json.RawMessage) (Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page[T]{Results: []T{}}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, errors.Classify(errors.Wrapf(err, "[resource decodeList] decode list"))
		}
		return Page[T]{Count: len(items), Results: items}, nil
	}

	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return Page[T]{}, errors.Classify(errors.Wrapf(err, "[resource decodeList] decode page"))
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page, nil
}
