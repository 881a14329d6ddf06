package pricing

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pricewise/pricewise/internal/domain"
)

type mockProductStore struct {
	mock.Mock
}

func (m *mockProductStore) GetByID(id string) (*domain.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductStore) GetAllInStock() ([]domain.Product, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductStore) UpdateSellingPrice(id string, price decimal.Decimal) error {
	args := m.Called(id, price)
	return args.Error(0)
}

type mockChangeLog struct {
	mock.Mock
}

func (m *mockChangeLog) Append(entry PriceChange) error {
	args := m.Called(entry)
	return args.Error(0)
}

func newTestCoordinator(store *mockProductStore, changes *mockChangeLog) *Coordinator {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewCoordinator(store, changes, NewDemandScorer(), NewRuleBasedStrategy(), log)
}

func priceEquals(expected string) interface{} {
	want := decimal.RequireFromString(expected)
	return mock.MatchedBy(func(p decimal.Decimal) bool {
		return p.Equal(want)
	})
}

func TestCoordinator_UpdateOne(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	p := testProduct()
	p.WeeklySales = 33
	p.LastWeekSales = 20

	store.On("GetByID", "prod-1").Return(p, nil)
	store.On("UpdateSellingPrice", "prod-1", priceEquals("11.50")).Return(nil)
	changes.On("Append", mock.MatchedBy(func(e PriceChange) bool {
		return e.ProductID == "prod-1" &&
			e.OldPrice.Equal(decimal.RequireFromString("10.00")) &&
			e.NewPrice.Equal(decimal.RequireFromString("11.50")) &&
			e.WeeklySales == 33
	})).Return(nil)

	update, err := coordinator.UpdateOne("prod-1")
	require.NoError(t, err)
	assert.True(t, update.Changed())
	assert.Equal(t, "11.5", update.NewPrice.String())
	assert.Equal(t, 1.65, update.DemandScore)

	store.AssertExpectations(t)
	changes.AssertExpectations(t)
}

func TestCoordinator_UpdateOne_NoOpStillLogged(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	// Moderate regime with a neutral demand score: the price holds, but the
	// audit trail still records that the engine ran.
	p := testProduct()
	p.WeeklySales = 10
	p.LastWeekSales = 10

	store.On("GetByID", "prod-1").Return(p, nil)
	store.On("UpdateSellingPrice", "prod-1", priceEquals("10.00")).Return(nil)
	changes.On("Append", mock.MatchedBy(func(e PriceChange) bool {
		return e.OldPrice.Equal(e.NewPrice)
	})).Return(nil)

	update, err := coordinator.UpdateOne("prod-1")
	require.NoError(t, err)
	assert.False(t, update.Changed())

	changes.AssertExpectations(t)
}

func TestCoordinator_UpdateOne_InvalidProductFailsFast(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	p := testProduct()
	p.PriceAdjustmentStep = decimal.Zero

	store.On("GetByID", "prod-1").Return(p, nil)

	_, err := coordinator.UpdateOne("prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_adjustment_step")

	store.AssertNotCalled(t, "UpdateSellingPrice", mock.Anything, mock.Anything)
	changes.AssertNotCalled(t, "Append", mock.Anything)
}

func TestCoordinator_UpdateOne_PersistenceFailureSurfaces(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	p := testProduct()
	p.WeeklySales = 33

	store.On("GetByID", "prod-1").Return(p, nil)
	store.On("UpdateSellingPrice", "prod-1", mock.Anything).Return(errors.New("disk full"))

	_, err := coordinator.UpdateOne("prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// No audit entry for an update that was never persisted.
	changes.AssertNotCalled(t, "Append", mock.Anything)
}

func TestCoordinator_UpdateMany_PartialFailure(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	broken := testProduct()
	broken.ID = "broken"
	broken.WeeklySales = 33

	healthy := testProduct()
	healthy.ID = "healthy"
	healthy.WeeklySales = 33

	store.On("GetByID", "broken").Return(broken, nil)
	store.On("GetByID", "healthy").Return(healthy, nil)
	store.On("UpdateSellingPrice", "broken", mock.Anything).Return(errors.New("disk full"))
	store.On("UpdateSellingPrice", "healthy", mock.Anything).Return(nil)
	changes.On("Append", mock.Anything).Return(nil)

	result := coordinator.UpdateMany([]string{"broken", "healthy"})

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Success)
	assert.Contains(t, result.Results[0].Error, "disk full")
	assert.True(t, result.Results[1].Success)
	assert.Equal(t, "11.5", result.Results[1].NewPrice.String())
}

func TestCoordinator_UpdateAll(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	p1 := testProduct()
	p1.ID = "p1"
	p1.WeeklySales = 33
	p2 := testProduct()
	p2.ID = "p2"
	p2.WeeklySales = 10

	store.On("GetAllInStock").Return([]domain.Product{*p1, *p2}, nil)
	store.On("GetByID", "p1").Return(p1, nil)
	store.On("GetByID", "p2").Return(p2, nil)
	store.On("UpdateSellingPrice", mock.Anything, mock.Anything).Return(nil)
	changes.On("Append", mock.Anything).Return(nil)

	result, err := coordinator.UpdateAll()
	require.NoError(t, err)

	// p1 moves, p2 holds; both succeed and both are audited. The no-op
	// counts as processed even though it is not an update.
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, len(result.Results), result.Processed+result.Failed)
	changes.AssertNumberOfCalls(t, "Append", 2)
}

func TestCoordinator_UpdateAll_ListFailure(t *testing.T) {
	store := &mockProductStore{}
	changes := &mockChangeLog{}
	coordinator := newTestCoordinator(store, changes)

	store.On("GetAllInStock").Return(nil, errors.New("catalog unavailable"))

	_, err := coordinator.UpdateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog unavailable")
}
