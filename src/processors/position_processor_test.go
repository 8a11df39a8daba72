package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investidor2021/notas-corretagem/src/models"
)

func ledgerTrade(day string, lineNo int, asset string, op models.Operation, qty int, value, fees float64, cat models.Category) models.TradeRecord {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return models.TradeRecord{
		Broker:     "CORRETORA XP",
		Asset:      asset,
		MarketType: models.MarketCash,
		Operation:  op,
		Category:   cat,
		Quantity:   qty,
		Value:      value,
		Fees:       fees,
		TradeDate:  d,
		LineNo:     lineNo,
	}
}

func TestPartialSaleRealizesProportionalGain(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 100, 1000, 0, models.CategoryStockSwing),
		ledgerTrade("2024-02-15", 2, "PETR4", models.OperationSell, 40, 600, 0, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-02", events[0].Month)
	assert.Equal(t, models.CategoryStockSwing, events[0].Category)
	assert.InDelta(t, 600.0, events[0].SalesTotal, 1e-9)
	assert.InDelta(t, 200.0, events[0].GrossProfit, 1e-9)

	custody := p.Custody(trades)
	require.Len(t, custody, 1)
	assert.Equal(t, "PETR4", custody[0].Asset)
	assert.Equal(t, 60, custody[0].Quantity)
	assert.InDelta(t, 10.0, custody[0].AveragePrice, 1e-9)
	assert.InDelta(t, 600.0, custody[0].TotalCost, 1e-9)
}

func TestBuysAccumulateWeightedAverage(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "VALE3", models.OperationBuy, 100, 1000, 0, models.CategoryStockSwing),
		ledgerTrade("2024-01-20", 2, "VALE3", models.OperationBuy, 50, 800, 0, models.CategoryStockSwing),
	}

	custody := p.Custody(trades)
	require.Len(t, custody, 1)
	assert.Equal(t, 150, custody[0].Quantity)
	assert.InDelta(t, 12.0, custody[0].AveragePrice, 1e-9)
	assert.InDelta(t, 1800.0, custody[0].TotalCost, 1e-9)
	assert.Empty(t, p.RealizedEvents(trades))
}

func TestFeesFoldIntoCostAndProceeds(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "ITUB4", models.OperationBuy, 100, 1000, 10, models.CategoryStockSwing),
		ledgerTrade("2024-03-05", 2, "ITUB4", models.OperationSell, 100, 1200, 5, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	// cost 1010, proceeds 1195
	assert.InDelta(t, 1195.0, events[0].SalesTotal, 1e-9)
	assert.InDelta(t, 185.0, events[0].GrossProfit, 1e-9)
	assert.Empty(t, p.Custody(trades))
}

func TestFullCloseLeavesNoResidual(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "BBAS3", models.OperationBuy, 300, 1000.37, 2.51, models.CategoryStockSwing),
		ledgerTrade("2024-02-11", 2, "BBAS3", models.OperationSell, 100, 350, 1.1, models.CategoryStockSwing),
		ledgerTrade("2024-03-12", 3, "BBAS3", models.OperationSell, 200, 820, 1.9, models.CategoryStockSwing),
	}
	assert.Empty(t, p.Custody(trades))
}

func TestShortPositionCoveredByBuy(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationSell, 10, 500, 0, models.CategoryStockSwing),
		ledgerTrade("2024-01-20", 2, "PETR4", models.OperationBuy, 10, 400, 0, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-01", events[0].Month)
	assert.InDelta(t, 100.0, events[0].GrossProfit, 1e-9)
	// the covering buy is not a sale, nothing counts towards monthly sales
	assert.InDelta(t, 0.0, events[0].SalesTotal, 1e-9)

	// an uncovered short is not custody either
	assert.Empty(t, p.Custody(trades))
}

func TestSaleBeyondPositionOpensShort(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 10, 100, 0, models.CategoryStockSwing),
		ledgerTrade("2024-02-10", 2, "PETR4", models.OperationSell, 15, 300, 0, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	// 10 of the 15 close the long at proportional proceeds 200
	assert.InDelta(t, 200.0, events[0].SalesTotal, 1e-9)
	assert.InDelta(t, 100.0, events[0].GrossProfit, 1e-9)
	assert.Empty(t, p.Custody(trades))
}

func TestTradesReplayInDateOrderRegardlessOfInput(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-02-15", 2, "PETR4", models.OperationSell, 40, 600, 0, models.CategoryStockSwing),
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 100, 1000, 0, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	assert.InDelta(t, 200.0, events[0].GrossProfit, 1e-9)
}

func TestSameAssetDifferentCategoriesKeepSeparateLedgers(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 100, 1000, 0, models.CategoryDayTrade),
		ledgerTrade("2024-01-10", 2, "PETR4", models.OperationSell, 100, 1100, 0, models.CategoryDayTrade),
		ledgerTrade("2024-01-12", 3, "PETR4", models.OperationSell, 50, 700, 0, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	// the swing sale found no swing position; only the day trade realized
	assert.Equal(t, models.CategoryDayTrade, events[0].Category)
	assert.InDelta(t, 100.0, events[0].GrossProfit, 1e-9)
}

func TestNonPositiveQuantitySkipped(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 0, 1000, 0, models.CategoryStockSwing),
	}
	assert.Empty(t, p.Custody(trades))
	assert.Empty(t, p.RealizedEvents(trades))
}

func TestSwingSaleWithholding(t *testing.T) {
	p := NewPositionProcessor()
	trades := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 100, 8000, 0, models.CategoryStockSwing),
		ledgerTrade("2024-02-10", 2, "PETR4", models.OperationSell, 100, 10000, 0, models.CategoryStockSwing),
	}

	events := p.RealizedEvents(trades)
	require.Len(t, events, 1)
	assert.InDelta(t, 0.5, events[0].WithheldTax, 1e-9) // 0.005% of 10000
}

func TestDayTradeWithholdingOnlyOnProfit(t *testing.T) {
	p := NewPositionProcessor()

	winning := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 100, 1000, 0, models.CategoryDayTrade),
		ledgerTrade("2024-01-10", 2, "PETR4", models.OperationSell, 100, 1100, 0, models.CategoryDayTrade),
	}
	events := p.RealizedEvents(winning)
	require.Len(t, events, 1)
	assert.InDelta(t, 1.0, events[0].WithheldTax, 1e-9) // 1% of the 100 profit

	losing := []models.TradeRecord{
		ledgerTrade("2024-01-10", 1, "PETR4", models.OperationBuy, 100, 1000, 0, models.CategoryDayTrade),
		ledgerTrade("2024-01-10", 2, "PETR4", models.OperationSell, 100, 900, 0, models.CategoryDayTrade),
	}
	events = p.RealizedEvents(losing)
	require.Len(t, events, 1)
	assert.InDelta(t, 0.0, events[0].WithheldTax, 1e-9)
}

func TestCustodySortedByBrokerAssetExpiry(t *testing.T) {
	p := NewPositionProcessor()
	a := ledgerTrade("2024-01-10", 1, "VALE3", models.OperationBuy, 10, 100, 0, models.CategoryStockSwing)
	b := ledgerTrade("2024-01-10", 2, "PETR4", models.OperationBuy, 10, 100, 0, models.CategoryStockSwing)
	b.Broker = "CORRETORA RICO"

	custody := p.Custody([]models.TradeRecord{a, b})
	require.Len(t, custody, 2)
	assert.Equal(t, "CORRETORA RICO", custody[0].Broker)
	assert.Equal(t, "PETR4", custody[0].Asset)
	assert.Equal(t, "CORRETORA XP", custody[1].Broker)
	assert.Equal(t, "VALE3", custody[1].Asset)
}
