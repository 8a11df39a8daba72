package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

// optionProcessorImpl implements the OptionProcessor interface.
type optionProcessorImpl struct{}

// NewOptionProcessor creates a new instance of OptionProcessor.
func NewOptionProcessor() OptionProcessor {
	return &optionProcessorImpl{}
}

type optionGroupKey struct {
	asset       string
	expiryMonth string
	category    models.Category
}

// optionGroup accumulates every buy and sell of one (asset, expiry month,
// category) key across the batch. Transient: lives only inside one Resolve
// call.
type optionGroup struct {
	expiry      time.Time
	boughtQty   int
	soldQty     int
	boughtValue float64 // cost including fees
	soldValue   float64 // proceeds net of fees
	lastTrade   time.Time
}

// Resolve settles option trades against the reference date. A group whose
// bought and sold quantities match realizes at the month of its last trade.
// A mismatched group realizes its entire accumulated result at the expiry
// month once the reference month has moved past it: whatever was not matched
// was exercised into nothing, so the group's full cost and proceeds settle.
// A mismatched group that has not expired yet stays open and emits nothing.
func (p *optionProcessorImpl) Resolve(trades []models.TradeRecord, reference time.Time) ([]models.TaxEvent, []models.Diagnostic) {
	var diagnostics []models.Diagnostic

	groups := make(map[optionGroupKey]*optionGroup)
	for _, t := range trades {
		if !t.HasExpiry() {
			diagnostics = append(diagnostics, models.Diagnostic{
				Kind:    models.DiagnosticMalformedRecord,
				Message: fmt.Sprintf("option trade on %s has no expiry and cannot be settled", t.TradeDate.Format(utils.DefaultDateFormat)),
				Asset:   t.Asset,
				LineNo:  t.LineNo,
			})
			continue
		}
		key := optionGroupKey{asset: t.Asset, expiryMonth: utils.MonthKey(t.Expiry), category: t.Category}
		g := groups[key]
		if g == nil {
			g = &optionGroup{expiry: utils.MonthStart(t.Expiry)}
			groups[key] = g
		}
		switch t.Operation {
		case models.OperationBuy:
			g.boughtQty += t.Quantity
			g.boughtValue += t.Value + t.Fees
		case models.OperationSell:
			g.soldQty += t.Quantity
			g.soldValue += t.Value - t.Fees
		}
		if t.TradeDate.After(g.lastTrade) {
			g.lastTrade = t.TradeDate
		}
	}

	keys := make([]optionGroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].asset != keys[j].asset {
			return keys[i].asset < keys[j].asset
		}
		if keys[i].expiryMonth != keys[j].expiryMonth {
			return keys[i].expiryMonth < keys[j].expiryMonth
		}
		return keys[i].category < keys[j].category
	})

	var events []models.TaxEvent
	for _, key := range keys {
		g := groups[key]
		withheld := optionWithholding(key.category, g)

		switch {
		case g.boughtQty == g.soldQty:
			events = append(events, models.TaxEvent{
				Month:       utils.MonthKey(g.lastTrade),
				Category:    key.category,
				SalesTotal:  g.soldValue,
				GrossProfit: g.soldValue - g.boughtValue,
				WithheldTax: withheld,
			})
		case utils.MonthBefore(g.expiry, reference):
			events = append(events, models.TaxEvent{
				Month:       key.expiryMonth,
				Category:    key.category,
				SalesTotal:  g.soldValue,
				GrossProfit: g.soldValue - g.boughtValue,
				WithheldTax: withheld,
			})
			diagnostics = append(diagnostics, models.Diagnostic{
				Kind: models.DiagnosticUnresolvedOption,
				Message: fmt.Sprintf("expired with mismatched quantities (bought %d, sold %d); input data may be incomplete",
					g.boughtQty, g.soldQty),
				Asset: key.asset,
			})
		}
		// mismatched and not yet expired: position still open, nothing realizes
	}
	return events, diagnostics
}

// optionWithholding mirrors the IRRF retained on option operations: 1% of
// the profit for a winning day-trade group, 0.005% of total proceeds
// otherwise.
func optionWithholding(category models.Category, g *optionGroup) float64 {
	if category == models.CategoryDayTrade {
		if g.soldValue > g.boughtValue {
			return (g.soldValue - g.boughtValue) * irrfDayTradeRate
		}
		return 0
	}
	return g.soldValue * irrfSwingRate
}
