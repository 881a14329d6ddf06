// Package history provides the append-only sales history store and the
// weekly rollup that feeds it. History records are the model trainer's input;
// they are created once per rollup cycle and never mutated or deleted.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Record is one immutable weekly snapshot of a product's sales state.
// Date is stamped at creation and never backdated.
type Record struct {
	ID           int64           `json:"id"`
	ProductID    string          `json:"product_id"`
	Date         time.Time       `json:"date"`
	WeeklySales  int             `json:"weekly_sales"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	StockCount   int             `json:"stock_count"`
	DemandScore  float64         `json:"demand_score"`
}

// Repository handles the sales_history table in history.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new sales history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "sales_history").Logger(),
	}
}

const dateLayout = "2006-01-02"

// Append writes one snapshot. The date is always stamped at append time.
func (r *Repository) Append(rec Record) error {
	_, err := r.db.Exec(
		`INSERT INTO sales_history (product_id, date, weekly_sales, selling_price, stock_count, demand_score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ProductID,
		time.Now().UTC().Format(dateLayout),
		rec.WeeklySales,
		rec.SellingPrice.String(),
		rec.StockCount,
		rec.DemandScore,
	)
	if err != nil {
		return fmt.Errorf("failed to append sales history for %s: %w", rec.ProductID, err)
	}

	return nil
}

// ListByProduct returns a product's snapshots, newest first
func (r *Repository) ListByProduct(productID string, limit int) ([]Record, error) {
	return r.queryRecords(
		`SELECT id, product_id, date, weekly_sales, selling_price, stock_count, demand_score
		 FROM sales_history WHERE product_id = ? ORDER BY date DESC, id DESC LIMIT ?`,
		productID, limit,
	)
}

// ListAll returns every snapshot, newest first. The trainer consumes this
// and re-sorts chronologically per product.
func (r *Repository) ListAll() ([]Record, error) {
	return r.queryRecords(
		`SELECT id, product_id, date, weekly_sales, selling_price, stock_count, demand_score
		 FROM sales_history ORDER BY date DESC, id DESC`,
	)
}

// CountAll returns the total number of snapshots
func (r *Repository) CountAll() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM sales_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sales history: %w", err)
	}
	return count, nil
}

func (r *Repository) queryRecords(query string, args ...interface{}) ([]Record, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var date, price string

		if err := rows.Scan(&rec.ID, &rec.ProductID, &date, &rec.WeeklySales, &price, &rec.StockCount, &rec.DemandScore); err != nil {
			return nil, fmt.Errorf("failed to scan sales history record: %w", err)
		}

		if rec.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", date, err)
		}
		if rec.SellingPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid selling_price %q: %w", price, err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales history: %w", err)
	}

	return records, nil
}
