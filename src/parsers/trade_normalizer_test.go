package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investidor2021/notas-corretagem/src/models"
)

func validRaw() models.RawTrade {
	return models.RawTrade{
		NoteNumber:  "12345",
		Broker:      "CORRETORA XP",
		TradeDate:   "15/03/2024",
		Asset:       "PETR4",
		MarketType:  "VISTA",
		BuySell:     "C",
		Quantity:    "100",
		Price:       "32,50",
		Value:       "3.250,00",
		Fees:        "4,90",
	}
}

func TestNormalizeValidTrade(t *testing.T) {
	n := NewTradeNormalizer()
	records, diagnostics := n.Normalize([]models.RawTrade{validRaw()})

	require.Len(t, records, 1)
	assert.Empty(t, diagnostics)

	rec := records[0]
	assert.Equal(t, "PETR4", rec.Asset)
	assert.Equal(t, models.OperationBuy, rec.Operation)
	assert.Equal(t, models.MarketCash, rec.MarketType)
	assert.Equal(t, 100, rec.Quantity)
	assert.InDelta(t, 32.50, rec.Price, 1e-9)
	assert.InDelta(t, 3250.00, rec.Value, 1e-9)
	assert.InDelta(t, 4.90, rec.Fees, 1e-9)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), rec.TradeDate)
	assert.Equal(t, 1, rec.LineNo)
}

func TestNormalizeExplicitSell(t *testing.T) {
	n := NewTradeNormalizer()
	raw := validRaw()
	raw.BuySell = "V"
	records, _ := n.Normalize([]models.RawTrade{raw})
	require.Len(t, records, 1)
	assert.Equal(t, models.OperationSell, records[0].Operation)
}

func TestNormalizeListadvObservationForcesSell(t *testing.T) {
	n := NewTradeNormalizer()
	raw := validRaw()
	raw.BuySell = ""
	raw.DebitCredit = "D" // the observation marker must win over D/C
	raw.Observation = "LISTADV"
	records, diagnostics := n.Normalize([]models.RawTrade{raw})
	require.Len(t, records, 1)
	assert.Empty(t, diagnostics)
	assert.Equal(t, models.OperationSell, records[0].Operation)
}

func TestNormalizeDebitCreditFallback(t *testing.T) {
	n := NewTradeNormalizer()

	debit := validRaw()
	debit.BuySell = ""
	debit.DebitCredit = "D"
	records, _ := n.Normalize([]models.RawTrade{debit})
	require.Len(t, records, 1)
	assert.Equal(t, models.OperationBuy, records[0].Operation)

	credit := validRaw()
	credit.BuySell = ""
	credit.DebitCredit = "C"
	records, _ = n.Normalize([]models.RawTrade{credit})
	require.Len(t, records, 1)
	assert.Equal(t, models.OperationSell, records[0].Operation)
}

func TestNormalizeUndecidableOperation(t *testing.T) {
	n := NewTradeNormalizer()
	raw := validRaw()
	raw.BuySell = ""
	raw.DebitCredit = ""
	records, diagnostics := n.Normalize([]models.RawTrade{raw})
	assert.Empty(t, records)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, models.DiagnosticMalformedRecord, diagnostics[0].Kind)
	assert.Contains(t, diagnostics[0].Message, "cannot determine operation")
}

func TestNormalizeValueRecoveredFromPrice(t *testing.T) {
	n := NewTradeNormalizer()
	raw := validRaw()
	raw.Value = "0"
	raw.Price = "10,00"
	records, _ := n.Normalize([]models.RawTrade{raw})
	require.Len(t, records, 1)
	assert.InDelta(t, 1000.0, records[0].Value, 1e-9)
}

func TestNormalizeMalformedLinesBecomeDiagnostics(t *testing.T) {
	n := NewTradeNormalizer()

	noAsset := validRaw()
	noAsset.Asset = "  "

	badDate := validRaw()
	badDate.TradeDate = "2024-03-15"

	badQty := validRaw()
	badQty.Quantity = "-5"

	good := validRaw()

	records, diagnostics := n.Normalize([]models.RawTrade{noAsset, badDate, badQty, good})
	require.Len(t, records, 1)
	require.Len(t, diagnostics, 3)
	// line numbers follow input order, skipped lines included
	assert.Equal(t, 1, diagnostics[0].LineNo)
	assert.Equal(t, 2, diagnostics[1].LineNo)
	assert.Equal(t, 3, diagnostics[2].LineNo)
	assert.Equal(t, 4, records[0].LineNo)
}

func TestNormalizeOptionExpiry(t *testing.T) {
	n := NewTradeNormalizer()
	raw := validRaw()
	raw.Asset = "petrj250"
	raw.MarketType = "OPCAO DE COMPRA"
	raw.Expiry = "10/2024"

	records, diagnostics := n.Normalize([]models.RawTrade{raw})
	require.Len(t, records, 1)
	assert.Empty(t, diagnostics)
	assert.Equal(t, "PETRJ250", records[0].Asset)
	assert.Equal(t, models.MarketOptionCall, records[0].MarketType)
	assert.True(t, records[0].HasExpiry())
	assert.Equal(t, time.October, records[0].Expiry.Month())
	assert.Equal(t, 2024, records[0].Expiry.Year())
}

func TestNormalizeMarketTypeVariants(t *testing.T) {
	testCases := []struct {
		in       string
		expected models.MarketType
	}{
		{"VISTA", models.MarketCash},
		{"Mercado a Vista", models.MarketCash},
		{"", models.MarketCash},
		{"OPÇÃO DE COMPRA", models.MarketOptionCall},
		{"opcao de venda", models.MarketOptionPut},
		{"MERCADO A TERMO", models.MarketTerm},
		{"FRACIONARIO", models.MarketType("FRACIONARIO")},
	}
	n := NewTradeNormalizer()
	for _, tc := range testCases {
		raw := validRaw()
		raw.MarketType = tc.in
		records, _ := n.Normalize([]models.RawTrade{raw})
		require.Len(t, records, 1, "market %q", tc.in)
		assert.Equal(t, tc.expected, records[0].MarketType, "market %q", tc.in)
	}
}
