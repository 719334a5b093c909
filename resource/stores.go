package resource

import (
	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/rs/zerolog"
)

// Collection paths, relative to the API base URL.
const (
	PathCategories     = "categories"
	PathSuppliers      = "suppliers"
	PathProducts       = "products"
	PathStockMovements = "stock-movements"
	PathSales          = "sales"
)

// Stores bundles one store per resource.
type Stores struct {
	Categories     *Store[inventory.Category]
	Suppliers      *Store[inventory.Supplier]
	Products       *ProductStore
	StockMovements *Store[inventory.StockMovement]
	Sales          *Store[inventory.Sale]
	Dashboard      *DashboardStore
}

func NewStores(client Requester, logger zerolog.Logger) *Stores {
	return &Stores{
		Categories:     NewStore[inventory.Category](NewHTTPRepository[inventory.Category](client, PathCategories), logger),
		Suppliers:      NewStore[inventory.Supplier](NewHTTPRepository[inventory.Supplier](client, PathSuppliers), logger),
		Products:       NewProductStore(client, logger),
		StockMovements: NewStore[inventory.StockMovement](NewHTTPRepository[inventory.StockMovement](client, PathStockMovements), logger),
		Sales:          NewStore[inventory.Sale](NewHTTPRepository[inventory.Sale](client, PathSales), logger),
		Dashboard:      NewDashboardStore(client, logger),
	}
}
