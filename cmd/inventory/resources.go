package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/jrsteele09/go-inventory-client/resource"
)

// resourceCmd exposes list/get/create/update/delete for one resource store.
type resourceCmd[T inventory.Entity] struct {
	store    *resource.Store[T]
	required []string
	validate func(T) error
	headers  []string
	row      func(T) []string
}

func categoryCmd(store *resource.Store[inventory.Category]) resourceCmd[inventory.Category] {
	return resourceCmd[inventory.Category]{
		store:    store,
		required: []string{"name"},
		headers:  []string{"ID", "NAME", "DESCRIPTION"},
		row: func(c inventory.Category) []string {
			return []string{id(c), c.Name, c.Description}
		},
	}
}

func supplierCmd(store *resource.Store[inventory.Supplier]) resourceCmd[inventory.Supplier] {
	return resourceCmd[inventory.Supplier]{
		store:    store,
		required: []string{"name"},
		headers:  []string{"ID", "NAME", "CONTACT", "EMAIL", "PHONE"},
		row: func(s inventory.Supplier) []string {
			return []string{id(s), s.Name, s.ContactPerson, s.Email, s.Phone}
		},
	}
}

func productCmd(store *resource.Store[inventory.Product]) resourceCmd[inventory.Product] {
	return resourceCmd[inventory.Product]{
		store:    store,
		required: []string{"name", "sku", "price", "cost_price"},
		headers:  []string{"ID", "SKU", "NAME", "CATEGORY", "PRICE", "QTY", "REORDER", "LOW"},
		row: func(p inventory.Product) []string {
			low := ""
			if p.IsLowStock() {
				low = "!"
			}
			return []string{id(p), p.SKU, p.Name, p.CategoryName, p.Price,
				strconv.FormatInt(p.Quantity, 10), strconv.FormatInt(p.ReorderLevel, 10), low}
		},
	}
}

func movementCmd(store *resource.Store[inventory.StockMovement]) resourceCmd[inventory.StockMovement] {
	return resourceCmd[inventory.StockMovement]{
		store:    store,
		required: []string{"product", "movement_type", "quantity"},
		validate: func(m inventory.StockMovement) error {
			if !m.MovementType.Valid() {
				return &errors.ValidationError{Field: "movement_type", Message: fmt.Sprintf("must be one of IN, OUT, ADJ, got %q", m.MovementType)}
			}
			return nil
		},
		headers: []string{"ID", "PRODUCT", "TYPE", "QTY", "REFERENCE", "BY"},
		row: func(m inventory.StockMovement) []string {
			return []string{id(m), m.ProductName, string(m.MovementType),
				strconv.FormatInt(m.Quantity, 10), m.ReferenceNumber, m.CreatedByUsername}
		},
	}
}

func saleCmd(store *resource.Store[inventory.Sale]) resourceCmd[inventory.Sale] {
	return resourceCmd[inventory.Sale]{
		store:    store,
		required: []string{"product", "quantity", "unit_price"},
		validate: func(s inventory.Sale) error {
			if s.Quantity <= 0 {
				return &errors.ValidationError{Field: "quantity", Message: "must be positive"}
			}
			return nil
		},
		headers: []string{"ID", "PRODUCT", "QTY", "UNIT PRICE", "TOTAL", "BY"},
		row: func(s inventory.Sale) []string {
			return []string{id(s), s.ProductName, strconv.FormatInt(s.Quantity, 10),
				s.UnitPrice, s.TotalAmount, s.CreatedByUsername}
		},
	}
}

func (r resourceCmd[T]) rows(items []T) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, r.row(item))
	}
	return rows
}

func (r resourceCmd[T]) show(c *cli, items []T) error {
	return c.render(items, r.headers, func() [][]string { return r.rows(items) })
}

func (r resourceCmd[T]) run(c *cli) command {
	return func(ctx context.Context, args []string) error {
		action := "list"
		if len(args) > 0 {
			action, args = args[0], args[1:]
		}

		switch action {
		case "list":
			query, err := c.query()
			if err != nil {
				return err
			}
			if err := r.store.FetchAll(ctx, query); err != nil {
				return err
			}
			return r.show(c, r.store.Items())

		case "get":
			entityID, err := singleID(args)
			if err != nil {
				return err
			}
			item, err := r.store.Get(ctx, entityID)
			if err != nil {
				return err
			}
			return r.show(c, singleItem(item))

		case "create":
			var entity T
			if err := r.decode(c, &entity, true); err != nil {
				return err
			}
			created, err := r.store.Create(ctx, entity)
			if err != nil {
				return err
			}
			return r.show(c, singleItem(created))

		case "update":
			entityID, err := singleID(args)
			if err != nil {
				return err
			}
			entity, err := r.store.Get(ctx, entityID)
			if err != nil {
				return err
			}
			if err := r.decode(c, &entity, false); err != nil {
				return err
			}
			updated, err := r.store.Update(ctx, entityID, entity)
			if err != nil {
				return err
			}
			return r.show(c, singleItem(updated))

		case "delete":
			entityID, err := singleID(args)
			if err != nil {
				return err
			}
			if err := r.store.Delete(ctx, entityID); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted %d\n", entityID)
			return nil

		default:
			return &errors.ValidationError{Message: fmt.Sprintf("unknown action %q", action)}
		}
	}
}

// decode applies the --file payload onto entity. On create the payload itself must carry every
// required field; on update the merged entity must.
func (r resourceCmd[T]) decode(c *cli, entity *T, create bool) error {
	data, err := c.payload()
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return &errors.ValidationError{Field: "file", Message: "must be a JSON object"}
	}
	if err := json.Unmarshal(data, entity); err != nil {
		return &errors.ValidationError{Field: "file", Message: err.Error()}
	}

	if !create {
		merged, err := json.Marshal(entity)
		if err != nil {
			return errors.Wrapf(err, "encode %T", *entity)
		}
		fields = nil
		if err := json.Unmarshal(merged, &fields); err != nil {
			return errors.Wrapf(err, "decode %T", *entity)
		}
	}
	if err := errors.RequireFields(fields, r.required...); err != nil {
		return err
	}
	if r.validate != nil {
		return r.validate(*entity)
	}
	return nil
}

func singleID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, &errors.ValidationError{Field: "id", Message: "exactly one id is required"}
	}
	return parseID(args[0])
}

func parseID(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, &errors.ValidationError{Field: "id", Message: fmt.Sprintf("%q is not a valid id", raw)}
	}
	return v, nil
}

func singleItem[T any](item T) []T {
	return []T{item}
}

func id(e inventory.Entity) string {
	return strconv.FormatInt(e.GetID(), 10)
}
