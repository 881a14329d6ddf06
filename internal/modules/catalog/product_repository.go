// Package catalog provides product storage for the pricing engine.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
)

// ErrNotFound is returned when a product ID does not exist
var ErrNotFound = errors.New("product not found")

// ProductRepository handles product database operations against catalog.db.
// The pricing engine mutates selling_price and the weekly sales counters only;
// every other column belongs to the catalog collaborators.
type ProductRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, log zerolog.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: log.With().Str("repo", "product").Logger(),
	}
}

const productColumns = `id, title, base_price, max_price, selling_price,
	price_adjustment_step, stock_count, in_stock, weekly_sales, last_week_sales,
	demand_threshold_high, demand_threshold_low, demand_high, demand_low,
	created_at, updated_at`

// Create inserts a new product. Assigns an ID if missing and defaults the
// selling price to the midpoint of base and max when unset.
func (r *ProductRepository) Create(p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.SellingPrice.IsZero() {
		p.SellingPrice = p.BasePrice.Add(p.MaxPrice).Div(decimal.NewFromInt(2))
	}
	if p.PriceAdjustmentStep.IsZero() {
		p.PriceAdjustmentStep = decimal.RequireFromString("0.50")
	}
	if p.DemandThresholdHigh == 0 {
		p.DemandThresholdHigh = 20
	}
	if p.DemandThresholdLow == 0 {
		p.DemandThresholdLow = 5
	}
	if p.DemandHigh == 0 {
		p.DemandHigh = 100
	}
	if p.DemandLow == 0 {
		p.DemandLow = 20
	}
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(`INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title,
		p.BasePrice.String(), p.MaxPrice.String(), p.SellingPrice.String(),
		p.PriceAdjustmentStep.String(),
		p.StockCount, boolToInt(p.InStock), p.WeeklySales, p.LastWeekSales,
		p.DemandThresholdHigh, p.DemandThresholdLow, p.DemandHigh, p.DemandLow,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.Title, err)
	}

	return nil
}

// GetByID returns a single product by ID
func (r *ProductRepository) GetByID(id string) (*domain.Product, error) {
	row := r.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	return p, nil
}

// GetAll returns all products
func (r *ProductRepository) GetAll() ([]domain.Product, error) {
	return r.queryProducts(`SELECT ` + productColumns + ` FROM products ORDER BY title`)
}

// GetAllInStock returns all products currently marked in stock.
// These are the products the batch price update operates on.
func (r *ProductRepository) GetAllInStock() ([]domain.Product, error) {
	return r.queryProducts(`SELECT ` + productColumns + ` FROM products WHERE in_stock = 1 ORDER BY title`)
}

func (r *ProductRepository) queryProducts(query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// UpdateSellingPrice persists a new selling price for a product.
// This is the only product mutation the pricing path performs.
func (r *ProductRepository) UpdateSellingPrice(id string, price decimal.Decimal) error {
	result, err := r.db.Exec(
		`UPDATE products SET selling_price = ?, updated_at = ? WHERE id = ?`,
		price.String(), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update selling price for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return nil
}

// RotateSalesCounters shifts the weekly counter into last week's slot and
// resets the current week. Called by the history rollup after snapshotting.
func (r *ProductRepository) RotateSalesCounters(id string) error {
	result, err := r.db.Exec(
		`UPDATE products SET last_week_sales = weekly_sales, weekly_sales = 0, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate sales counters for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rotate result for %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return nil
}

// RecordSale increments the weekly sales counter. Called by the order
// collaborators; present here so tests can build realistic sales sequences.
func (r *ProductRepository) RecordSale(id string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("sale quantity must be positive, got %d", quantity)
	}

	result, err := r.db.Exec(
		`UPDATE products SET weekly_sales = weekly_sales + ?, updated_at = ? WHERE id = ?`,
		quantity, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record sale for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check sale result for %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	var p domain.Product
	var basePrice, maxPrice, sellingPrice, step string
	var stockCount sql.NullString
	var inStock int
	var createdAt, updatedAt string

	err := s.Scan(
		&p.ID, &p.Title, &basePrice, &maxPrice, &sellingPrice, &step,
		&stockCount, &inStock, &p.WeeklySales, &p.LastWeekSales,
		&p.DemandThresholdHigh, &p.DemandThresholdLow, &p.DemandHigh, &p.DemandLow,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, fmt.Errorf("invalid base_price %q: %w", basePrice, err)
	}
	if p.MaxPrice, err = decimal.NewFromString(maxPrice); err != nil {
		return nil, fmt.Errorf("invalid max_price %q: %w", maxPrice, err)
	}
	if p.SellingPrice, err = decimal.NewFromString(sellingPrice); err != nil {
		return nil, fmt.Errorf("invalid selling_price %q: %w", sellingPrice, err)
	}
	if p.PriceAdjustmentStep, err = decimal.NewFromString(step); err != nil {
		return nil, fmt.Errorf("invalid price_adjustment_step %q: %w", step, err)
	}

	p.StockCount = stockCount.String
	p.InStock = inStock != 0

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
