package catalog

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewise/pricewise/internal/domain"

	_ "modernc.org/sqlite"
)

func setupCatalogDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			base_price TEXT NOT NULL,
			max_price TEXT NOT NULL,
			selling_price TEXT NOT NULL,
			price_adjustment_step TEXT NOT NULL DEFAULT '0.50',
			stock_count TEXT DEFAULT '10',
			in_stock INTEGER NOT NULL DEFAULT 1,
			weekly_sales INTEGER NOT NULL DEFAULT 0,
			last_week_sales INTEGER NOT NULL DEFAULT 0,
			demand_threshold_high INTEGER NOT NULL DEFAULT 20,
			demand_threshold_low INTEGER NOT NULL DEFAULT 5,
			demand_high INTEGER NOT NULL DEFAULT 100,
			demand_low INTEGER NOT NULL DEFAULT 20,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func newTestRepo(t *testing.T) *ProductRepository {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewProductRepository(setupCatalogDB(t), log)
}

func TestProductRepository_Create_Defaults(t *testing.T) {
	repo := newTestRepo(t)

	p := &domain.Product{
		Title:     "Widget",
		BasePrice: decimal.RequireFromString("8.00"),
		MaxPrice:  decimal.RequireFromString("12.00"),
		InStock:   true,
	}

	require.NoError(t, repo.Create(p))

	assert.NotEmpty(t, p.ID)
	// Selling price defaults to the midpoint of base and max.
	assert.Equal(t, "10", p.SellingPrice.String())
	assert.Equal(t, "0.5", p.PriceAdjustmentStep.String())
	assert.Equal(t, 20, p.DemandThresholdHigh)
	assert.Equal(t, 5, p.DemandThresholdLow)

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Title)
	assert.Equal(t, "10", got.SellingPrice.String())
	assert.True(t, got.InStock)
}

func TestProductRepository_Create_InvalidBounds(t *testing.T) {
	repo := newTestRepo(t)

	p := &domain.Product{
		Title:     "Backwards",
		BasePrice: decimal.RequireFromString("12.00"),
		MaxPrice:  decimal.RequireFromString("8.00"),
	}

	err := repo.Create(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_price")
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepository_GetAllInStock(t *testing.T) {
	repo := newTestRepo(t)

	inStock := &domain.Product{
		Title:     "Available",
		BasePrice: decimal.RequireFromString("5.00"),
		MaxPrice:  decimal.RequireFromString("9.00"),
		InStock:   true,
	}
	outOfStock := &domain.Product{
		Title:     "Sold Out",
		BasePrice: decimal.RequireFromString("5.00"),
		MaxPrice:  decimal.RequireFromString("9.00"),
		InStock:   false,
	}
	require.NoError(t, repo.Create(inStock))
	require.NoError(t, repo.Create(outOfStock))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	available, err := repo.GetAllInStock()
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Available", available[0].Title)
}

func TestProductRepository_UpdateSellingPrice(t *testing.T) {
	repo := newTestRepo(t)

	p := &domain.Product{
		Title:     "Widget",
		BasePrice: decimal.RequireFromString("8.00"),
		MaxPrice:  decimal.RequireFromString("12.00"),
		InStock:   true,
	}
	require.NoError(t, repo.Create(p))

	require.NoError(t, repo.UpdateSellingPrice(p.ID, decimal.RequireFromString("11.50")))

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "11.5", got.SellingPrice.String())

	err = repo.UpdateSellingPrice("missing", decimal.RequireFromString("11.50"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepository_RotateSalesCounters(t *testing.T) {
	repo := newTestRepo(t)

	p := &domain.Product{
		Title:         "Widget",
		BasePrice:     decimal.RequireFromString("8.00"),
		MaxPrice:      decimal.RequireFromString("12.00"),
		InStock:       true,
		WeeklySales:   14,
		LastWeekSales: 9,
	}
	require.NoError(t, repo.Create(p))

	require.NoError(t, repo.RotateSalesCounters(p.ID))

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.WeeklySales)
	assert.Equal(t, 14, got.LastWeekSales)
}

func TestProductRepository_RecordSale(t *testing.T) {
	repo := newTestRepo(t)

	p := &domain.Product{
		Title:     "Widget",
		BasePrice: decimal.RequireFromString("8.00"),
		MaxPrice:  decimal.RequireFromString("12.00"),
		InStock:   true,
	}
	require.NoError(t, repo.Create(p))

	require.NoError(t, repo.RecordSale(p.ID, 3))
	require.NoError(t, repo.RecordSale(p.ID, 2))

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.WeeklySales)

	err = repo.RecordSale(p.ID, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive")

	err = repo.RecordSale("missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
