package pricing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceChange is one immutable audit record of a price update. An entry is
// written for every successful update, including no-ops where old equals new,
// since a no-op still confirms the engine ran.
type PriceChange struct {
	ID          int64           `json:"id"`
	ProductID   string          `json:"product_id"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
	WeeklySales int             `json:"weekly_sales"`
	DemandScore float64         `json:"demand_score"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Delta returns the signed price change amount
func (c PriceChange) Delta() decimal.Decimal {
	return c.NewPrice.Sub(c.OldPrice)
}

// ChangeLogRepository handles the price_changes audit trail in ledger.db.
// Append-only: nothing is ever updated or deleted.
type ChangeLogRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewChangeLogRepository creates a new price-change log repository
func NewChangeLogRepository(db *sql.DB, log zerolog.Logger) *ChangeLogRepository {
	return &ChangeLogRepository{
		db:  db,
		log: log.With().Str("repo", "price_change_log").Logger(),
	}
}

// Append writes one audit entry. Timestamp is stamped at append time when unset.
func (r *ChangeLogRepository) Append(entry PriceChange) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO price_changes (product_id, old_price, new_price, weekly_sales, demand_score, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ProductID,
		entry.OldPrice.String(), entry.NewPrice.String(),
		entry.WeeklySales, entry.DemandScore,
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append price change for %s: %w", entry.ProductID, err)
	}

	return nil
}

// ListByProduct returns a product's price changes, newest first
func (r *ChangeLogRepository) ListByProduct(productID string, limit int) ([]PriceChange, error) {
	return r.queryChanges(
		`SELECT id, product_id, old_price, new_price, weekly_sales, demand_score, timestamp
		 FROM price_changes WHERE product_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		productID, limit,
	)
}

// ListRecent returns the most recent price changes across all products
func (r *ChangeLogRepository) ListRecent(limit int) ([]PriceChange, error) {
	return r.queryChanges(
		`SELECT id, product_id, old_price, new_price, weekly_sales, demand_score, timestamp
		 FROM price_changes ORDER BY timestamp DESC, id DESC LIMIT ?`,
		limit,
	)
}

func (r *ChangeLogRepository) queryChanges(query string, args ...interface{}) ([]PriceChange, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price changes: %w", err)
	}
	defer rows.Close()

	var changes []PriceChange
	for rows.Next() {
		var c PriceChange
		var oldPrice, newPrice, ts string

		if err := rows.Scan(&c.ID, &c.ProductID, &oldPrice, &newPrice, &c.WeeklySales, &c.DemandScore, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan price change: %w", err)
		}

		if c.OldPrice, err = decimal.NewFromString(oldPrice); err != nil {
			return nil, fmt.Errorf("invalid old_price %q: %w", oldPrice, err)
		}
		if c.NewPrice, err = decimal.NewFromString(newPrice); err != nil {
			return nil, fmt.Errorf("invalid new_price %q: %w", newPrice, err)
		}
		if c.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}

		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price changes: %w", err)
	}

	return changes, nil
}
