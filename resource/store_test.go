package resource_test

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-inventory-client/apiclient"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/internal/fakeapi"
	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/jrsteele09/go-inventory-client/resource"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/jrsteele09/go-inventory-client/tokenstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *fakeapi.Server
	store   *tokenstore.MemoryStore
	client  *apiclient.Client
	stores  *resource.Stores
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := fakeapi.New(fakeapi.WithUser("a", "b"))
	server := backend.Start()
	t.Cleanup(server.Close)

	store := tokenstore.NewMemoryStore()
	client := apiclient.New(server.URL+"/api", store)
	pair, err := client.ObtainToken(context.Background(), token.Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), pair))

	return &fixture{
		backend: backend,
		store:   store,
		client:  client,
		stores:  resource.NewStores(client, zerolog.Nop()),
	}
}

func (f *fixture) seedProducts(t *testing.T) (inventory.Category, []inventory.Product) {
	t.Helper()
	ctx := context.Background()
	dairy, err := f.stores.Categories.Create(ctx, inventory.Category{Name: "Dairy"})
	require.NoError(t, err)

	var products []inventory.Product
	for _, p := range []inventory.Product{
		{Name: "Milk", SKU: "MLK-1", Price: "1.20", CostPrice: "0.80", Quantity: 3, ReorderLevel: 5, Category: dairy.ID},
		{Name: "Cheese", SKU: "CHS-1", Price: "4.50", CostPrice: "3.00", Quantity: 40, ReorderLevel: 5, Category: dairy.ID},
		{Name: "Yoghurt", SKU: "YOG-1", Price: "0.90", CostPrice: "0.40", Quantity: 10, ReorderLevel: 10, Category: dairy.ID},
	} {
		created, err := f.stores.Products.Create(ctx, p)
		require.NoError(t, err)
		products = append(products, created)
	}
	return dairy, products
}

func TestStore_CreateThenFetchAllContainsEntityOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	categories := f.stores.Categories

	created, err := categories.Create(ctx, inventory.Category{Name: "Bakery", Description: "Bread and cakes"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Len(t, categories.Items(), 1)

	require.NoError(t, categories.FetchAll(ctx, nil))
	count := 0
	for _, c := range categories.Items() {
		if c.ID == created.ID {
			count++
			require.Equal(t, "Bakery", c.Name)
		}
	}
	require.Equal(t, 1, count)
	require.False(t, categories.Loading())
	require.Nil(t, categories.Err())
}

func TestStore_StaleAccessTokenIsRefreshedAndItemsPopulated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProducts(t)
	before, _, err := f.store.Load(ctx)
	require.NoError(t, err)

	f.backend.ExpireAccessTokens()

	products := resource.NewStores(f.client, zerolog.Nop()).Products
	require.NoError(t, products.FetchAll(ctx, nil))
	require.Len(t, products.Items(), 3)
	require.Equal(t, 1, f.backend.RefreshCalls())
	require.Equal(t, 2, f.backend.Requests("GET /api/products/"))

	after, _, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.Access, after.Access)
	require.Equal(t, before.Refresh, after.Refresh)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, seeded := f.seedProducts(t)
	products := f.stores.Products

	milk := seeded[0]
	milk.Quantity = 25
	updated, err := products.Update(ctx, milk.ID, milk)
	require.NoError(t, err)
	require.Equal(t, int64(25), updated.Quantity)

	found, ok := products.Find(milk.ID)
	require.True(t, ok)
	require.Equal(t, int64(25), found.Quantity)
	require.Len(t, products.Items(), 3)

	require.NoError(t, products.Delete(ctx, milk.ID))
	_, ok = products.Find(milk.ID)
	require.False(t, ok)
	require.Len(t, products.Items(), 2)

	_, err = products.Get(ctx, milk.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.Equal(t, http.StatusNotFound, products.Err().Status)
	require.Len(t, products.Items(), 2)
}

func TestStore_ServerValidationErrorLeavesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProducts(t)
	products := f.stores.Products
	before := products.Items()

	_, err := products.Create(ctx, inventory.Product{Name: "No SKU"})
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "An error occurred", apiErr.Message)

	data, ok := apiErr.Data.(map[string]any)
	require.True(t, ok)
	require.Contains(t, data, "sku")

	require.Equal(t, before, products.Items())
	require.Same(t, apiErr, products.Err())

	products.ClearError()
	require.Nil(t, products.Snapshot().Error)
}

func TestStore_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dairy, _ := f.seedProducts(t)
	products := f.stores.Products

	require.NoError(t, products.FetchAll(ctx, url.Values{"search": {"milk"}}))
	require.Len(t, products.Items(), 1)
	require.Equal(t, "Dairy", products.Items()[0].CategoryName)

	require.NoError(t, products.FetchAll(ctx, url.Values{"category": {"999"}}))
	require.Empty(t, products.Items())

	require.NoError(t, products.FetchAll(ctx, url.Values{"category": {strconv.FormatInt(dairy.ID, 10)}}))
	require.Len(t, products.Items(), 3)
}

func TestHTTPRepository_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProducts(t)

	repo := resource.NewHTTPRepository[inventory.Product](f.client, resource.PathProducts)
	page, err := repo.FetchPage(ctx, url.Values{"page": {"1"}, "page_size": {"2"}})
	require.NoError(t, err)
	require.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	require.Nil(t, page.Previous)

	items, err := repo.FetchAll(ctx, url.Values{"page": {"2"}, "page_size": {"2"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Yoghurt", items[0].Name)

	patched, err := repo.Patch(ctx, items[0].ID, map[string]any{"quantity": 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), patched.Quantity)
	require.True(t, patched.IsLowStock())
}

func TestProductStore_LowStockAndUploadImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, seeded := f.seedProducts(t)
	products := f.stores.Products

	low, err := products.LowStock(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, p := range low {
		names = append(names, p.Name)
	}
	require.ElementsMatch(t, []string{"Milk", "Yoghurt"}, names)
	require.Len(t, products.Items(), 3, "low stock does not replace the collection")

	updated, err := products.UploadImage(ctx, seeded[1].ID, "cheese.png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Equal(t, "/media/products/cheese.png", updated.Image)

	found, ok := products.Find(seeded[1].ID)
	require.True(t, ok)
	require.Equal(t, "/media/products/cheese.png", found.Image)
}

func TestStockMovementsAndSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, seeded := f.seedProducts(t)
	milk := seeded[0]

	movement, err := f.stores.StockMovements.Create(ctx, inventory.StockMovement{
		Product:         milk.ID,
		MovementType:    inventory.MovementIn,
		Quantity:        20,
		ReferenceNumber: "PO-1",
	})
	require.NoError(t, err)
	require.Equal(t, "Milk", movement.ProductName)
	require.Equal(t, "a", movement.CreatedByUsername)

	sale, err := f.stores.Sales.Create(ctx, inventory.Sale{Product: milk.ID, Quantity: 2, UnitPrice: "1.20"})
	require.NoError(t, err)
	require.Equal(t, "2.40", sale.TotalAmount)

	refreshed, err := f.stores.Products.Get(ctx, milk.ID)
	require.NoError(t, err)
	require.Equal(t, int64(21), refreshed.Quantity)

	_, err = f.stores.StockMovements.Create(ctx, inventory.StockMovement{Product: milk.ID, MovementType: "MOVE", Quantity: 1})
	require.ErrorIs(t, err, errors.ErrHTTP)
	require.Len(t, f.stores.StockMovements.Items(), 1)
}

func TestDashboardStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, seeded := f.seedProducts(t)
	_, err := f.stores.Sales.Create(ctx, inventory.Sale{Product: seeded[1].ID, Quantity: 3, UnitPrice: "4.50"})
	require.NoError(t, err)

	dashboard := f.stores.Dashboard
	require.Nil(t, dashboard.Dashboard())
	require.NoError(t, dashboard.Fetch(ctx))

	summary := dashboard.Dashboard()
	require.NotNil(t, summary)
	require.Equal(t, int64(3), summary.TotalProducts)
	require.Equal(t, int64(1), summary.TotalCategories)
	require.Equal(t, int64(2), summary.LowStockProducts)
	require.Equal(t, inventory.Decimal("13.50"), summary.TotalSales)
	require.Len(t, summary.RecentSales, 1)

	analytics, err := dashboard.Analytics(ctx, url.Values{"days": {"7"}})
	require.NoError(t, err)
	require.EqualValues(t, 7, analytics["days"])

	require.NoError(t, f.store.Clear(ctx))
	require.ErrorIs(t, dashboard.Fetch(ctx), errors.ErrUnauthorized)
	require.Same(t, summary, dashboard.Dashboard(), "the last good summary is kept")
	require.Equal(t, http.StatusUnauthorized, dashboard.Err().Status)
	dashboard.ClearError()
	require.Nil(t, dashboard.Err())
}

// blockingRepo holds every call until release is closed, then fails or succeeds.
type blockingRepo struct {
	release chan struct{}
	fail    bool
	items   []inventory.Supplier
}

func (r *blockingRepo) wait() error {
	<-r.release
	if r.fail {
		return errors.ClassifyNetwork(errors.New("connection reset"))
	}
	return nil
}

func (r *blockingRepo) FetchAll(context.Context, url.Values) ([]inventory.Supplier, error) {
	if err := r.wait(); err != nil {
		return nil, err
	}
	return r.items, nil
}

func (r *blockingRepo) Get(_ context.Context, id int64) (inventory.Supplier, error) {
	return inventory.Supplier{ID: id}, r.wait()
}

func (r *blockingRepo) Create(_ context.Context, s inventory.Supplier) (inventory.Supplier, error) {
	s.ID = 99
	return s, r.wait()
}

func (r *blockingRepo) Update(_ context.Context, id int64, s inventory.Supplier) (inventory.Supplier, error) {
	s.ID = id
	return s, r.wait()
}

func (r *blockingRepo) Delete(context.Context, int64) error {
	return r.wait()
}

func TestStore_LoadingAndFailureDiscipline(t *testing.T) {
	ctx := context.Background()
	repo := &blockingRepo{release: make(chan struct{}), items: []inventory.Supplier{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Globex"}}}
	store := resource.NewStore[inventory.Supplier](repo, zerolog.Nop())

	done := make(chan error)
	go func() { done <- store.FetchAll(ctx, nil) }()
	require.Eventually(t, store.Loading, time.Second, time.Millisecond)
	close(repo.release)
	require.NoError(t, <-done)
	require.False(t, store.Loading())
	require.Len(t, store.Items(), 2)

	repo.fail = true
	for name, op := range map[string]func() error{
		"create": func() error { _, err := store.Create(ctx, inventory.Supplier{Name: "Initech"}); return err },
		"update": func() error { _, err := store.Update(ctx, 1, inventory.Supplier{Name: "Acme Ltd"}); return err },
		"delete": func() error { return store.Delete(ctx, 2) },
		"fetch":  func() error { return store.FetchAll(ctx, nil) },
	} {
		err := op()
		require.ErrorIs(t, err, errors.ErrNetwork, name)
		snap := store.Snapshot()
		require.False(t, snap.Loading, name)
		require.Equal(t, 0, snap.Error.Status, name)
		require.Equal(t, repo.items, snap.Items, "%s leaves the items unchanged", name)
	}

	repo.fail = false
	created, err := store.Create(ctx, inventory.Supplier{Name: "Initech"})
	require.NoError(t, err)
	require.Nil(t, store.Err(), "a new call clears the previous error")
	require.Len(t, store.Items(), 3)
	require.Equal(t, created, store.Items()[2])

	_, err = store.Update(ctx, 1, inventory.Supplier{Name: "Acme Ltd"})
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", store.Items()[0].Name)

	require.NoError(t, store.Delete(ctx, 2))
	require.Len(t, store.Items(), 2)
}
