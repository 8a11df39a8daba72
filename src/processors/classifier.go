package processors

import (
	"strings"

	"github.com/investidor2021/notas-corretagem/src/models"
)

// classifierImpl implements the TradeClassifier interface.
type classifierImpl struct{}

// NewTradeClassifier creates a new instance of TradeClassifier.
func NewTradeClassifier() TradeClassifier {
	return &classifierImpl{}
}

type assetDay struct {
	asset string
	day   string
}

type dayActivity struct {
	hasBuy  bool
	hasSell bool
}

// Classify returns a copy of the batch with Category set on every trade.
// Rules are evaluated in priority order; the same-day buy+sell rule wins
// over everything else, including the instrument-type rules.
func (c *classifierImpl) Classify(trades []models.TradeRecord) []models.TradeRecord {
	activity := make(map[assetDay]*dayActivity)
	for _, t := range trades {
		key := assetDay{asset: t.Asset, day: t.TradeDate.Format("2006-01-02")}
		a := activity[key]
		if a == nil {
			a = &dayActivity{}
			activity[key] = a
		}
		switch t.Operation {
		case models.OperationBuy:
			a.hasBuy = true
		case models.OperationSell:
			a.hasSell = true
		}
	}

	classified := make([]models.TradeRecord, len(trades))
	for i, t := range trades {
		t.Category = c.categoryFor(t, activity)
		classified[i] = t
	}
	return classified
}

func (c *classifierImpl) categoryFor(t models.TradeRecord, activity map[assetDay]*dayActivity) models.Category {
	key := assetDay{asset: t.Asset, day: t.TradeDate.Format("2006-01-02")}
	if a := activity[key]; a != nil && a.hasBuy && a.hasSell {
		return models.CategoryDayTrade
	}

	market := strings.ToUpper(string(t.MarketType))
	asset := strings.ToUpper(t.Asset)
	switch {
	case strings.Contains(market, "OPCAO"):
		return models.CategoryOptionsSwing
	case strings.Contains(asset, "FII") || strings.Contains(market, "FUNDO IMOB"):
		return models.CategoryRealEstateFund
	case strings.Contains(asset, "ETF"):
		return models.CategoryETFSwing
	case strings.Contains(asset, "BDR"):
		return models.CategoryBDRSwing
	case strings.Contains(market, "TERMO"):
		return models.CategoryTerm
	default:
		return models.CategoryStockSwing
	}
}
