package pricing

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
)

// ProductStore defines the catalog operations the coordinator needs.
// Satisfied by catalog.ProductRepository; mocked in tests.
type ProductStore interface {
	GetByID(id string) (*domain.Product, error)
	GetAllInStock() ([]domain.Product, error)
	UpdateSellingPrice(id string, price decimal.Decimal) error
}

// ChangeLog defines the audit-trail append the coordinator needs.
// Satisfied by ChangeLogRepository; mocked in tests.
type ChangeLog interface {
	Append(entry PriceChange) error
}

// PriceUpdate is the outcome of a single successful price update
type PriceUpdate struct {
	ProductID   string          `json:"product_id"`
	Title       string          `json:"title"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
	DemandScore float64         `json:"demand_score"`
}

// Changed reports whether the update actually moved the price
func (u PriceUpdate) Changed() bool {
	return !u.OldPrice.Equal(u.NewPrice)
}

// ProductResult is one product's outcome within a batch update
type ProductResult struct {
	ProductID string          `json:"product_id"`
	Success   bool            `json:"success"`
	OldPrice  decimal.Decimal `json:"old_price,omitempty"`
	NewPrice  decimal.Decimal `json:"new_price,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// BatchResult aggregates per-product outcomes of a batch update.
// Partial success is the expected terminal state of a batch run.
// Processed counts every successful update including no-ops, so
// Processed + Failed always equals len(Results).
type BatchResult struct {
	Processed int             `json:"processed"`
	Updated   int             `json:"updated"` // Products whose price actually changed
	Failed    int             `json:"failed"`
	Results   []ProductResult `json:"results"`
}

// Coordinator orchestrates one price update cycle per product:
// demand scoring, strategy prediction, clamping, persistence, audit logging.
// A per-product lock keeps concurrent updates to the same product from
// interleaving; different products never share mutable state.
type Coordinator struct {
	products ProductStore
	changes  ChangeLog
	scorer   *DemandScorer
	strategy Strategy
	log      zerolog.Logger

	locks sync.Map // product ID -> *sync.Mutex
}

// NewCoordinator creates a price update coordinator
func NewCoordinator(products ProductStore, changes ChangeLog, scorer *DemandScorer, strategy Strategy, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		products: products,
		changes:  changes,
		scorer:   scorer,
		strategy: strategy,
		log:      log.With().Str("component", "price_coordinator").Logger(),
	}
}

// UpdateOne recalculates and persists one product's selling price, appending
// exactly one audit entry. The entry is written even when the price did not
// move. Persistence failures are surfaced to the caller.
func (c *Coordinator) UpdateOne(productID string) (*PriceUpdate, error) {
	lock := c.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := c.products.GetByID(productID)
	if err != nil {
		return nil, err
	}

	return c.update(product)
}

// UpdateMany updates each product independently. One product's failure never
// aborts the rest; outcomes are aggregated per product.
func (c *Coordinator) UpdateMany(productIDs []string) *BatchResult {
	result := &BatchResult{Results: make([]ProductResult, 0, len(productIDs))}

	for _, id := range productIDs {
		update, err := c.UpdateOne(id)
		if err != nil {
			c.log.Error().Err(err).Str("product_id", id).Msg("Price update failed")
			result.Failed++
			result.Results = append(result.Results, ProductResult{
				ProductID: id,
				Success:   false,
				Error:     err.Error(),
			})
			continue
		}

		result.Processed++
		if update.Changed() {
			result.Updated++
		}
		result.Results = append(result.Results, ProductResult{
			ProductID: id,
			Success:   true,
			OldPrice:  update.OldPrice,
			NewPrice:  update.NewPrice,
		})
	}

	return result
}

// UpdateAll updates every in-stock product
func (c *Coordinator) UpdateAll() (*BatchResult, error) {
	products, err := c.products.GetAllInStock()
	if err != nil {
		return nil, fmt.Errorf("failed to list in-stock products: %w", err)
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	result := c.UpdateMany(ids)
	c.log.Info().
		Int("processed", result.Processed).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Int("total", len(ids)).
		Msg("Batch price update complete")

	return result, nil
}

// update runs the score -> predict -> clamp -> persist -> log pipeline for a
// product already under its lock.
func (c *Coordinator) update(product *domain.Product) (*PriceUpdate, error) {
	// Contract violations fail fast; they are bugs upstream, never clamped.
	if err := product.Validate(); err != nil {
		return nil, err
	}

	demandScore := c.scorer.Score(product.WeeklySales, product.LastWeekSales)

	candidate, err := c.strategy.Predict(product, demandScore)
	if err != nil {
		// The dispatcher absorbs prediction failures; an error here means the
		// rule-based floor itself failed, which is a bug.
		return nil, fmt.Errorf("prediction failed for %s: %w", product.ID, err)
	}

	oldPrice := product.EffectivePrice()
	newPrice := product.ClampPrice(candidate)

	if err := c.products.UpdateSellingPrice(product.ID, newPrice); err != nil {
		return nil, fmt.Errorf("failed to persist price for %s: %w", product.ID, err)
	}

	if err := c.changes.Append(PriceChange{
		ProductID:   product.ID,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		WeeklySales: product.WeeklySales,
		DemandScore: demandScore,
	}); err != nil {
		return nil, fmt.Errorf("failed to log price change for %s: %w", product.ID, err)
	}

	c.log.Debug().
		Str("product_id", product.ID).
		Str("old_price", oldPrice.String()).
		Str("new_price", newPrice.String()).
		Float64("demand_score", demandScore).
		Msg("Price updated")

	return &PriceUpdate{
		ProductID:   product.ID,
		Title:       product.Title,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		DemandScore: demandScore,
	}, nil
}

func (c *Coordinator) lockFor(productID string) *sync.Mutex {
	lock, _ := c.locks.LoadOrStore(productID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
