package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investidor2021/notas-corretagem/src/models"
)

func TestRateTableValidation(t *testing.T) {
	rt := DefaultRateTable()
	require.NoError(t, rt.Validate())

	missing := DefaultRateTable()
	delete(missing.Rates, models.CategoryDayTrade)
	err := missing.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRateTable)

	bogus := DefaultRateTable()
	bogus.Rates[models.CategoryStockSwing] = CategoryRate{Rate: 1.5}
	assert.ErrorIs(t, bogus.Validate(), ErrInvalidRateTable)

	var empty RateTable
	assert.ErrorIs(t, empty.Validate(), ErrInvalidRateTable)
}

func TestAggregateRejectsInvalidRateTable(t *testing.T) {
	p := NewTaxProcessor(RateTable{})
	_, err := p.Aggregate([]models.TaxEvent{{Month: "2024-01", Category: models.CategoryDayTrade}})
	assert.ErrorIs(t, err, ErrInvalidRateTable)
}

func TestAggregateEmptyInput(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	rows, err := p.Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDarfAccumulatesBelowMinimum(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	// day trade at 20%: profits of 15, 20, 25 yield taxes of 3, 4, 5
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: 15},
		{Month: "2024-02", Category: models.CategoryDayTrade, GrossProfit: 20},
		{Month: "2024-03", Category: models.CategoryDayTrade, GrossProfit: 25},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.InDelta(t, 0.0, rows[0].TaxDue, 1e-9)
	assert.InDelta(t, 3.0, rows[0].AccumulatedBalance, 1e-9)
	assert.InDelta(t, 0.0, rows[1].TaxDue, 1e-9)
	assert.InDelta(t, 7.0, rows[1].AccumulatedBalance, 1e-9)
	assert.InDelta(t, 12.0, rows[2].TaxDue, 1e-9)
	assert.InDelta(t, 0.0, rows[2].AccumulatedBalance, 1e-9)
}

func TestLossCarryforwardConsumedByLaterProfit(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: -100},
		{Month: "2024-02", Category: models.CategoryDayTrade, GrossProfit: 150},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.InDelta(t, 0.0, rows[0].NetProfit, 1e-9)
	assert.InDelta(t, -100.0, rows[0].LossCarryforward, 1e-9)
	assert.InDelta(t, 0.0, rows[0].TaxDue, 1e-9)

	assert.InDelta(t, 50.0, rows[1].NetProfit, 1e-9)
	assert.InDelta(t, 0.0, rows[1].LossCarryforward, 1e-9)
	assert.InDelta(t, 10.0, rows[1].TaxDue, 1e-9) // 20% of 50
}

func TestLossCarryforwardDeepensAcrossMonths(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: -100},
		{Month: "2024-02", Category: models.CategoryDayTrade, GrossProfit: -50},
		{Month: "2024-03", Category: models.CategoryDayTrade, GrossProfit: 120},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.InDelta(t, -100.0, rows[0].LossCarryforward, 1e-9)
	assert.InDelta(t, -150.0, rows[1].LossCarryforward, 1e-9)
	// 120 against a 150 loss: still 30 carried, no tax
	assert.InDelta(t, -30.0, rows[2].LossCarryforward, 1e-9)
	assert.InDelta(t, 0.0, rows[2].NetProfit, 1e-9)
	assert.InDelta(t, 0.0, rows[2].TaxDue, 1e-9)
}

func TestCarryforwardDoesNotCrossCategories(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: -100},
		{Month: "2024-02", Category: models.CategoryOptionsSwing, GrossProfit: 200},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.CategoryOptionsSwing, rows[1].Category)
	assert.InDelta(t, 200.0, rows[1].NetProfit, 1e-9)
	assert.InDelta(t, 30.0, rows[1].TaxDue, 1e-9) // 15%, untouched by the day-trade loss
}

func TestSwingExemptionUnderSalesLimit(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryStockSwing, SalesTotal: 15000, GrossProfit: 1000},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 1000.0, rows[0].NetProfit, 1e-9)
	assert.InDelta(t, 0.0, rows[0].TaxDue, 1e-9)
	// exemption never converts the profit into a loss to carry
	assert.InDelta(t, 0.0, rows[0].LossCarryforward, 1e-9)
}

func TestSwingTaxedAboveSalesLimit(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryStockSwing, SalesTotal: 25000, GrossProfit: 1000},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 150.0, rows[0].TaxDue, 1e-9) // 15% of 1000
}

func TestWithheldTaxOffsetsDarf(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: 100, WithheldTax: 1},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 19.0, rows[0].TaxDue, 1e-9) // 20 due minus 1 withheld
}

func TestWithheldTaxNeverGoesNegative(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: 10, WithheldTax: 5},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// 2 due, 5 withheld: clamps at zero, no refund modelled here
	assert.InDelta(t, 0.0, rows[0].TaxDue, 1e-9)
	assert.InDelta(t, 0.0, rows[0].AccumulatedBalance, 1e-9)
}

func TestEventsOfSameMonthAndCategoryMerge(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: 60, SalesTotal: 500},
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: 40, SalesTotal: 300},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 100.0, rows[0].GrossProfit, 1e-9)
	assert.InDelta(t, 800.0, rows[0].SalesTotal, 1e-9)
	assert.InDelta(t, 20.0, rows[0].TaxDue, 1e-9)
}

func TestRowsSortedByMonthThenCategory(t *testing.T) {
	p := NewTaxProcessor(DefaultRateTable())
	events := []models.TaxEvent{
		{Month: "2024-02", Category: models.CategoryDayTrade, GrossProfit: 10},
		{Month: "2024-01", Category: models.CategoryStockSwing, GrossProfit: 10, SalesTotal: 100},
		{Month: "2024-01", Category: models.CategoryDayTrade, GrossProfit: 10},
	}

	rows, err := p.Aggregate(events)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01", rows[0].Month)
	assert.Equal(t, models.CategoryStockSwing, rows[0].Category)
	assert.Equal(t, "2024-01", rows[1].Month)
	assert.Equal(t, models.CategoryDayTrade, rows[1].Category)
	assert.Equal(t, "2024-02", rows[2].Month)
}
