// Package inventory holds the records the API serves. All business rules (stock levels,
// totals, pricing) live on the server; these types only carry what it returns.
package inventory

import (
	"strconv"
	"time"
)

// Entity is any record keyed by a server-assigned id.
type Entity interface {
	GetID() int64
}

type Category struct {
	ID          int64      `json:"id,omitempty" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func (c Category) GetID() int64 { return c.ID }

type Supplier struct {
	ID            int64      `json:"id,omitempty" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	ContactPerson string     `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
	Email         string     `json:"email,omitempty" yaml:"email,omitempty"`
	Phone         string     `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address       string     `json:"address,omitempty" yaml:"address,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func (s Supplier) GetID() int64 { return s.ID }

// Product prices are decimal strings as sent by the server.
type Product struct {
	ID           int64      `json:"id,omitempty" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category     int64      `json:"category,omitempty" yaml:"category,omitempty"`
	Supplier     int64      `json:"supplier,omitempty" yaml:"supplier,omitempty"`
	CategoryName string     `json:"category_name,omitempty" yaml:"category_name,omitempty"`
	SupplierName string     `json:"supplier_name,omitempty" yaml:"supplier_name,omitempty"`
	SKU          string     `json:"sku" yaml:"sku"`
	Price        string     `json:"price" yaml:"price"`
	CostPrice    string     `json:"cost_price" yaml:"cost_price"`
	Quantity     int64      `json:"quantity" yaml:"quantity"`
	ReorderLevel int64      `json:"reorder_level" yaml:"reorder_level"`
	Image        string     `json:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func (p Product) GetID() int64 { return p.ID }

// IsLowStock flags products at or below their reorder level for display.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.ReorderLevel
}

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJ"
)

func (m MovementType) Valid() bool {
	switch m {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

type StockMovement struct {
	ID                int64        `json:"id,omitempty" yaml:"id"`
	Product           int64        `json:"product" yaml:"product"`
	ProductName       string       `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	MovementType      MovementType `json:"movement_type" yaml:"movement_type"`
	Quantity          int64        `json:"quantity" yaml:"quantity"`
	ReferenceNumber   string       `json:"reference_number,omitempty" yaml:"reference_number,omitempty"`
	Notes             string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedBy         *int64       `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedByUsername string       `json:"created_by_username,omitempty" yaml:"created_by_username,omitempty"`
	CreatedAt         *time.Time   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

func (m StockMovement) GetID() int64 { return m.ID }

// Sale.TotalAmount is computed by the server.
type Sale struct {
	ID                int64      `json:"id,omitempty" yaml:"id"`
	Product           int64      `json:"product" yaml:"product"`
	ProductName       string     `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	Quantity          int64      `json:"quantity" yaml:"quantity"`
	UnitPrice         string     `json:"unit_price" yaml:"unit_price"`
	TotalAmount       string     `json:"total_amount,omitempty" yaml:"total_amount,omitempty"`
	SaleDate          *time.Time `json:"sale_date,omitempty" yaml:"sale_date,omitempty"`
	CreatedBy         *int64     `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedByUsername string     `json:"created_by_username,omitempty" yaml:"created_by_username,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

func (s Sale) GetID() int64 { return s.ID }

// Dashboard is the summary returned by GET /dashboard/.
type Dashboard struct {
	TotalProducts    int64           `json:"total_products" yaml:"total_products"`
	TotalCategories  int64           `json:"total_categories" yaml:"total_categories"`
	TotalSuppliers   int64           `json:"total_suppliers" yaml:"total_suppliers"`
	LowStockProducts int64           `json:"low_stock_products" yaml:"low_stock_products"`
	TotalSales       Decimal         `json:"total_sales" yaml:"total_sales"`
	RecentSales      []Sale          `json:"recent_sales" yaml:"recent_sales"`
	RecentMovements  []StockMovement `json:"recent_movements" yaml:"recent_movements"`
}

// Decimal accepts a decimal sent either as a JSON string or a JSON number and keeps its text.
type Decimal string

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*d = Decimal(s)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte(`"0"`), nil
	}
	return []byte(strconv.Quote(string(d))), nil
}

// Float parses the decimal, returning 0 if it is not a number.
func (d Decimal) Float() float64 {
	f, err := strconv.ParseFloat(string(d), 64)
	if err != nil {
		return 0
	}
	return f
}
