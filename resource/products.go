package resource

import (
	"context"
	"io"

	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/rs/zerolog"
)

const lowStockPath = "products/low_stock/"

// ProductStore adds the product-only endpoints to a Store.
type ProductStore struct {
	*Store[inventory.Product]
	repo   *HTTPRepository[inventory.Product]
	client Requester
}

func NewProductStore(client Requester, logger zerolog.Logger) *ProductStore {
	repo := NewHTTPRepository[inventory.Product](client, PathProducts)
	return &ProductStore{
		Store:  NewStore[inventory.Product](repo, logger),
		repo:   repo,
		client: client,
	}
}

// LowStock lists products at or below their reorder level. The collection is not changed.
func (p *ProductStore) LowStock(ctx context.Context) ([]inventory.Product, error) {
	p.begin()
	var products []inventory.Product
	err := p.client.Get(ctx, lowStockPath, nil, &products)
	return products, p.finish(err, nil)
}

// UploadImage replaces a product's image. The updated product replaces the store entry.
func (p *ProductStore) UploadImage(ctx context.Context, id int64, fileName string, content io.Reader) (inventory.Product, error) {
	p.begin()
	updated, err := p.repo.Upload(ctx, id, "image", fileName, content)
	return updated, p.finish(err, func() {
		p.replaceLocked(updated)
	})
}
