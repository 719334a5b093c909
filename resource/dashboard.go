package resource

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/rs/zerolog"
)

const (
	dashboardPath = "dashboard/"
	analyticsPath = "dashboard/analytics/"
)

// DashboardStore holds the latest summary with the same loading and error rules as Store.
type DashboardStore struct {
	client Requester
	logger zerolog.Logger

	mu        sync.RWMutex
	dashboard *inventory.Dashboard
	pending   int
	err       *errors.APIError
}

func NewDashboardStore(client Requester, logger zerolog.Logger) *DashboardStore {
	return &DashboardStore{client: client, logger: logger}
}

// Fetch replaces the summary. On failure the previous summary is kept.
func (d *DashboardStore) Fetch(ctx context.Context) error {
	d.begin()
	var summary inventory.Dashboard
	err := d.client.Get(ctx, dashboardPath, nil, &summary)
	return d.finish(err, func() {
		d.dashboard = &summary
	})
}

// Analytics returns the server's analytics document as decoded JSON. query is passed through.
func (d *DashboardStore) Analytics(ctx context.Context, query url.Values) (map[string]any, error) {
	d.begin()
	var out map[string]any
	err := d.client.Get(ctx, analyticsPath, query, &out)
	return out, d.finish(err, nil)
}

func (d *DashboardStore) begin() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending++
	d.err = nil
}

func (d *DashboardStore) finish(err error, mutate func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending--
	if err != nil {
		d.err = errors.Classify(err)
		d.logger.Debug().Err(d.err).Msg("dashboard call failed")
		return d.err
	}
	if mutate != nil {
		mutate()
	}
	return nil
}

// Dashboard returns the last fetched summary, or nil.
func (d *DashboardStore) Dashboard() *inventory.Dashboard {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dashboard
}

func (d *DashboardStore) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pending > 0
}

func (d *DashboardStore) Err() *errors.APIError {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

func (d *DashboardStore) ClearError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = nil
}
