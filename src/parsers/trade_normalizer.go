package parsers

import (
	"fmt"
	"strings"

	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

// tradeNormalizerImpl implements the TradeNormalizer interface. It owns the
// broker-specific quirks: the explicit C/V column wins when present, a
// "LISTADV" marker in the observation column forces a sell, and otherwise
// the debit/credit column decides (a debit is a buy).
type tradeNormalizerImpl struct{}

// NewTradeNormalizer creates a new instance of TradeNormalizer.
func NewTradeNormalizer() TradeNormalizer {
	return &tradeNormalizerImpl{}
}

func (n *tradeNormalizerImpl) Normalize(raws []models.RawTrade) ([]models.TradeRecord, []models.Diagnostic) {
	var records []models.TradeRecord
	var diagnostics []models.Diagnostic

	for i, raw := range raws {
		lineNo := i + 1
		record, err := normalizeTrade(raw)
		if err != nil {
			diagnostics = append(diagnostics, models.Diagnostic{
				Kind:    models.DiagnosticMalformedRecord,
				Message: err.Error(),
				Asset:   raw.Asset,
				LineNo:  lineNo,
			})
			continue
		}
		record.LineNo = lineNo
		records = append(records, record)
	}
	return records, diagnostics
}

func normalizeTrade(raw models.RawTrade) (models.TradeRecord, error) {
	var zero models.TradeRecord

	if strings.TrimSpace(raw.Asset) == "" {
		return zero, fmt.Errorf("missing asset")
	}

	tradeDate, err := utils.ParseDate(raw.TradeDate)
	if err != nil {
		return zero, fmt.Errorf("trade date: %w", err)
	}

	operation, err := resolveOperation(raw)
	if err != nil {
		return zero, err
	}

	quantity, err := utils.ParseBRInt(raw.Quantity)
	if err != nil {
		return zero, fmt.Errorf("quantity: %w", err)
	}
	if quantity <= 0 {
		return zero, fmt.Errorf("non-positive quantity %d", quantity)
	}

	value, err := utils.ParseBRFloat(raw.Value)
	if err != nil {
		return zero, fmt.Errorf("value: %w", err)
	}

	price := 0.0
	if strings.TrimSpace(raw.Price) != "" {
		if price, err = utils.ParseBRFloat(raw.Price); err != nil {
			return zero, fmt.Errorf("price: %w", err)
		}
	}
	// Some notes only print the unit price; recover the gross value from it.
	if value == 0 && price != 0 {
		value = price * float64(quantity)
	}

	fees := 0.0
	if strings.TrimSpace(raw.Fees) != "" {
		if fees, err = utils.ParseBRFloat(raw.Fees); err != nil {
			return zero, fmt.Errorf("fees: %w", err)
		}
	}

	expiry, err := utils.ParseExpiry(raw.Expiry)
	if err != nil {
		return zero, err
	}

	return models.TradeRecord{
		Asset:      strings.ToUpper(strings.TrimSpace(raw.Asset)),
		Broker:     strings.TrimSpace(raw.Broker),
		MarketType: normalizeMarketType(raw.MarketType),
		Operation:  operation,
		Quantity:   quantity,
		Price:      price,
		Value:      value,
		Fees:       fees,
		TradeDate:  tradeDate,
		Expiry:     expiry,
	}, nil
}

// resolveOperation decides the trade direction. Priority: the explicit
// compra/venda column, then the LISTADV observation marker, then the D/C
// debit/credit fallback.
func resolveOperation(raw models.RawTrade) (models.Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(raw.BuySell)) {
	case "C":
		return models.OperationBuy, nil
	case "V":
		return models.OperationSell, nil
	case "":
		// fall through to the heuristics below
	default:
		return "", fmt.Errorf("unknown compra/venda marker %q", raw.BuySell)
	}

	if strings.Contains(strings.ToUpper(raw.Observation), "LISTADV") {
		return models.OperationSell, nil
	}

	switch strings.ToUpper(strings.TrimSpace(raw.DebitCredit)) {
	case "D":
		return models.OperationBuy, nil
	case "C":
		return models.OperationSell, nil
	}
	return "", fmt.Errorf("cannot determine operation: no compra/venda and no D/C marker")
}

// normalizeMarketType maps the free-form market column onto the known
// segments, passing unknown values through uppercased so the classifier can
// still apply its substring rules.
func normalizeMarketType(s string) models.MarketType {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case upper == "":
		return models.MarketCash
	case strings.Contains(upper, "OPCAO DE COMPRA") || strings.Contains(upper, "OPÇÃO DE COMPRA"):
		return models.MarketOptionCall
	case strings.Contains(upper, "OPCAO DE VENDA") || strings.Contains(upper, "OPÇÃO DE VENDA"):
		return models.MarketOptionPut
	case strings.Contains(upper, "TERMO"):
		return models.MarketTerm
	case upper == "VISTA" || strings.Contains(upper, "A VISTA") || strings.Contains(upper, "À VISTA"):
		return models.MarketCash
	default:
		return models.MarketType(upper)
	}
}
