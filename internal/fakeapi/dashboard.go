package fakeapi

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const recentLimit = 5

func (s *Server) dashboard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lowStock := 0
	for _, p := range s.records["products"] {
		if number(p["quantity"]) <= number(p["reorder_level"]) {
			lowStock++
		}
	}
	total := 0.0
	for _, sale := range s.records["sales"] {
		total += number(sale["total_amount"])
	}

	c.JSON(http.StatusOK, gin.H{
		"total_products":     len(s.records["products"]),
		"total_categories":   len(s.records["categories"]),
		"total_suppliers":    len(s.records["suppliers"]),
		"low_stock_products": lowStock,
		"total_sales":        strconv.FormatFloat(total, 'f', 2, 64),
		"recent_sales":       s.recentLocked("sales"),
		"recent_movements":   s.recentLocked("stock-movements"),
	})
}

// analytics reports sales per day over the last ?days= days (default 30).
func (s *Server) analytics(c *gin.Context) {
	days := 30
	if d, err := strconv.Atoi(c.Query("days")); err == nil && d > 0 {
		days = d
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	s.mu.Lock()
	defer s.mu.Unlock()

	byDay := map[string]float64{}
	byProduct := map[string]float64{}
	for _, sale := range s.records["sales"] {
		created, _ := sale["created_at"].(time.Time)
		if created.Before(since) {
			continue
		}
		amount := number(sale["total_amount"])
		byDay[created.Format(time.DateOnly)] += amount
		name, _ := sale["product_name"].(string)
		byProduct[name] += number(sale["quantity"])
	}

	dates := make([]string, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	salesByDay := make([]gin.H, 0, len(dates))
	for _, d := range dates {
		salesByDay = append(salesByDay, gin.H{"date": d, "total": strconv.FormatFloat(byDay[d], 'f', 2, 64)})
	}

	topProducts := make([]gin.H, 0, len(byProduct))
	for name, qty := range byProduct {
		topProducts = append(topProducts, gin.H{"product_name": name, "quantity": qty})
	}
	slices.SortFunc(topProducts, func(a, b gin.H) int {
		return int(b["quantity"].(float64) - a["quantity"].(float64))
	})

	c.JSON(http.StatusOK, gin.H{
		"days":         days,
		"sales_by_day": salesByDay,
		"top_products": topProducts,
	})
}

// recentLocked returns the newest records first.
func (s *Server) recentLocked(name string) []record {
	items := s.sortedLocked(name)
	slices.Reverse(items)
	if len(items) > recentLimit {
		items = items[:recentLimit]
	}
	return items
}
