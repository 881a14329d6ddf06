package history

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupHistoryDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sales_history (
			id INTEGER PRIMARY KEY,
			product_id TEXT NOT NULL,
			date TEXT NOT NULL,
			weekly_sales INTEGER NOT NULL,
			selling_price TEXT NOT NULL,
			stock_count INTEGER NOT NULL DEFAULT 0,
			demand_score REAL NOT NULL DEFAULT 1.0
		)
	`)
	require.NoError(t, err)

	return db
}

func newTestHistoryRepo(t *testing.T) *Repository {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(setupHistoryDB(t), log)
}

func TestRepository_AppendAndList(t *testing.T) {
	repo := newTestHistoryRepo(t)

	err := repo.Append(Record{
		ProductID:    "prod-1",
		WeeklySales:  14,
		SellingPrice: decimal.RequireFromString("10.50"),
		StockCount:   25,
		DemandScore:  1.4,
	})
	require.NoError(t, err)

	records, err := repo.ListByProduct("prod-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "prod-1", rec.ProductID)
	assert.Equal(t, 14, rec.WeeklySales)
	assert.Equal(t, "10.5", rec.SellingPrice.String())
	assert.Equal(t, 25, rec.StockCount)
	assert.Equal(t, 1.4, rec.DemandScore)

	// The date is stamped at append time.
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), rec.Date.Format("2006-01-02"))
}

func TestRepository_ListAll_NewestFirst(t *testing.T) {
	repo := newTestHistoryRepo(t)

	// Same-day appends order by insertion ID, newest first.
	for i := 0; i < 3; i++ {
		err := repo.Append(Record{
			ProductID:    "prod-1",
			WeeklySales:  i,
			SellingPrice: decimal.NewFromInt(10),
		})
		require.NoError(t, err)
	}

	records, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 2, records[0].WeeklySales)
	assert.Equal(t, 0, records[2].WeeklySales)

	count, err := repo.CountAll()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
