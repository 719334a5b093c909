package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type record map[string]any

// requiredFields lists, per resource, the fields a create must carry.
var requiredFields = map[string][]string{
	"categories":      {"name"},
	"suppliers":       {"name"},
	"products":        {"name", "sku", "price", "cost_price"},
	"stock-movements": {"product", "movement_type", "quantity"},
	"sales":           {"product", "quantity", "unit_price"},
}

// searchFields lists the fields matched by ?search=.
var searchFields = map[string][]string{
	"categories":      {"name", "description"},
	"suppliers":       {"name", "contact_person", "email", "phone"},
	"products":        {"name", "description", "sku"},
	"stock-movements": {"product_name", "reference_number", "notes"},
	"sales":           {"product_name"},
}

func (s *Server) list(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		items := s.sortedLocked(name)
		s.mu.Unlock()

		items = filter(items, c.Request.URL.Query(), searchFields[name])
		respondList(c, items)
	}
}

func (s *Server) lowStock(c *gin.Context) {
	s.mu.Lock()
	items := s.sortedLocked("products")
	s.mu.Unlock()

	low := make([]record, 0, len(items))
	for _, p := range items {
		if number(p["quantity"]) <= number(p["reorder_level"]) {
			low = append(low, p)
		}
	}
	c.JSON(http.StatusOK, low)
}

func (s *Server) get(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		s.mu.Lock()
		rec, found := s.records[name][id]
		s.mu.Unlock()
		if !found {
			detail(c, http.StatusNotFound, "Not found.")
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) create(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := bindRecord(c)
		if !ok {
			return
		}
		if missing := missingFields(body, requiredFields[name]); len(missing) > 0 {
			c.JSON(http.StatusBadRequest, missing)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if errs := s.validateLocked(name, body); len(errs) > 0 {
			c.JSON(http.StatusBadRequest, errs)
			return
		}

		s.nextID[name]++
		now := time.Now().UTC()
		body["id"] = s.nextID[name]
		body["created_at"] = now
		if name != "stock-movements" && name != "sales" {
			body["updated_at"] = now
		}
		u, _ := c.Get("user")
		s.applyCreateLocked(name, body, u.(user))
		s.records[name][s.nextID[name]] = body
		c.JSON(http.StatusCreated, body)
	}
}

func (s *Server) update(name string, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		var body record
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			form, err := c.MultipartForm()
			if err != nil {
				detail(c, http.StatusBadRequest, err.Error())
				return
			}
			body = formRecord(name, form)
		} else if body, ok = bindRecord(c); !ok {
			return
		}

		if !partial {
			if missing := missingFields(body, requiredFields[name]); len(missing) > 0 {
				c.JSON(http.StatusBadRequest, missing)
				return
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		existing, found := s.records[name][id]
		if !found {
			detail(c, http.StatusNotFound, "Not found.")
			return
		}
		if errs := s.validateLocked(name, body); len(errs) > 0 {
			c.JSON(http.StatusBadRequest, errs)
			return
		}

		updated := record{}
		for k, v := range existing {
			updated[k] = v
		}
		for k, v := range body {
			updated[k] = v
		}
		updated["id"] = id
		updated["created_at"] = existing["created_at"]
		if _, ok := existing["updated_at"]; ok {
			updated["updated_at"] = time.Now().UTC()
		}
		s.denormalizeLocked(name, updated)
		s.records[name][id] = updated
		c.JSON(http.StatusOK, updated)
	}
}

func (s *Server) remove(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, found := s.records[name][id]; !found {
			detail(c, http.StatusNotFound, "Not found.")
			return
		}
		delete(s.records[name], id)
		c.Status(http.StatusNoContent)
	}
}

// validateLocked checks that referenced records exist.
func (s *Server) validateLocked(name string, body record) map[string][]string {
	refs := map[string]string{}
	switch name {
	case "products":
		refs["category"] = "categories"
		refs["supplier"] = "suppliers"
	case "stock-movements", "sales":
		refs["product"] = "products"
	}

	errs := map[string][]string{}
	for field, target := range refs {
		v, ok := body[field]
		if !ok || v == nil {
			continue
		}
		if _, found := s.records[target][int64(number(v))]; !found {
			errs[field] = []string{fmt.Sprintf("Invalid pk \"%v\" - object does not exist.", v)}
		}
	}
	if name == "stock-movements" {
		if mt, _ := body["movement_type"].(string); mt != "" && mt != "IN" && mt != "OUT" && mt != "ADJ" {
			errs["movement_type"] = []string{fmt.Sprintf("\"%s\" is not a valid choice.", mt)}
		}
	}
	return errs
}

// applyCreateLocked fills server-computed fields and adjusts stock for movements and sales.
func (s *Server) applyCreateLocked(name string, body record, u user) {
	switch name {
	case "stock-movements", "sales":
		body["created_by"] = u.id
		body["created_by_username"] = u.username
	}
	if name == "sales" {
		body["total_amount"] = strconv.FormatFloat(number(body["unit_price"])*number(body["quantity"]), 'f', 2, 64)
		if _, ok := body["sale_date"]; !ok {
			body["sale_date"] = body["created_at"]
		}
	}

	if name == "stock-movements" || name == "sales" {
		pid := int64(number(body["product"]))
		if product, ok := s.records["products"][pid]; ok {
			qty := number(body["quantity"])
			switch {
			case name == "sales", body["movement_type"] == "OUT":
				product["quantity"] = number(product["quantity"]) - qty
			case body["movement_type"] == "IN":
				product["quantity"] = number(product["quantity"]) + qty
			}
		}
	}
	s.denormalizeLocked(name, body)
}

// denormalizeLocked fills the *_name fields the real API adds to its responses.
func (s *Server) denormalizeLocked(name string, body record) {
	lookup := func(field, target string) string {
		if rec, ok := s.records[target][int64(number(body[field]))]; ok {
			n, _ := rec["name"].(string)
			return n
		}
		return ""
	}
	switch name {
	case "products":
		body["category_name"] = lookup("category", "categories")
		body["supplier_name"] = lookup("supplier", "suppliers")
	case "stock-movements", "sales":
		body["product_name"] = lookup("product", "products")
	}
}

func (s *Server) sortedLocked(name string) []record {
	items := make([]record, 0, len(s.records[name]))
	for _, rec := range s.records[name] {
		items = append(items, rec)
	}
	slices.SortFunc(items, func(a, b record) int {
		return int(number(a["id"]) - number(b["id"]))
	})
	return items
}

// filter applies exact-match field filters and ?search=. page and page_size are handled by
// respondList; ordering is ignored.
func filter(items []record, query map[string][]string, search []string) []record {
	out := make([]record, 0, len(items))
next:
	for _, rec := range items {
		for key, values := range query {
			if len(values) == 0 {
				continue
			}
			switch key {
			case "page", "page_size", "ordering":
				continue
			case "search":
				if !matchesSearch(rec, search, values[0]) {
					continue next
				}
			default:
				if fmt.Sprint(rec[key]) != values[0] {
					continue next
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

func matchesSearch(rec record, fields []string, term string) bool {
	term = strings.ToLower(term)
	for _, f := range fields {
		if v, ok := rec[f].(string); ok && strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// respondList returns a bare array, or the paginated envelope when ?page= is present.
func respondList(c *gin.Context, items []record) {
	pageParam := c.Query("page")
	if pageParam == "" {
		c.JSON(http.StatusOK, items)
		return
	}
	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 {
		detail(c, http.StatusNotFound, "Invalid page.")
		return
	}
	size := 10
	if ps, err := strconv.Atoi(c.Query("page_size")); err == nil && ps > 0 {
		size = ps
	}

	start := (page - 1) * size
	if start > len(items) {
		detail(c, http.StatusNotFound, "Invalid page.")
		return
	}
	end := min(start+size, len(items))

	var next, previous any
	if end < len(items) {
		next = fmt.Sprintf("%s?page=%d", c.Request.URL.Path, page+1)
	}
	if page > 1 {
		previous = fmt.Sprintf("%s?page=%d", c.Request.URL.Path, page-1)
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(items),
		"next":     next,
		"previous": previous,
		"results":  items[start:end],
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func bindRecord(c *gin.Context) (record, bool) {
	b, err := io.ReadAll(c.Request.Body)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	body := record{}
	if err := json.Unmarshal(b, &body); err != nil {
		detail(c, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return nil, false
	}
	for k := range body {
		switch k {
		case "id", "created_at", "updated_at", "created_by", "created_by_username",
			"category_name", "supplier_name", "product_name", "total_amount":
			delete(body, k)
		}
	}
	return body, true
}

func formRecord(name string, form *multipart.Form) record {
	body := record{}
	for k, v := range form.Value {
		if len(v) > 0 {
			body[k] = v[0]
		}
	}
	for field, files := range form.File {
		if len(files) > 0 {
			body[field] = fmt.Sprintf("/media/%s/%s", name, files[0].Filename)
		}
	}
	return body
}

func missingFields(body record, fields []string) map[string][]string {
	missing := map[string][]string{}
	for _, f := range fields {
		v, ok := body[f]
		if !ok || v == nil || v == "" {
			missing[f] = []string{"This field is required."}
		}
	}
	return missing
}

// number reads JSON numbers and numeric strings.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
