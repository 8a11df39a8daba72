package processors

import (
	"log"
	"sort"
	"time"

	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

// IRRF rates retained at source: 1% of the day-trade profit on a sale,
// 0.005% of gross proceeds for everything else.
const (
	irrfDayTradeRate = 0.01
	irrfSwingRate    = 0.00005
)

// positionProcessorImpl implements the PositionProcessor interface.
type positionProcessorImpl struct{}

// NewPositionProcessor creates a new instance of PositionProcessor.
func NewPositionProcessor() PositionProcessor {
	return &positionProcessorImpl{}
}

// sideState is one side of a position: accumulated cost for the long side,
// accumulated proceeds for the short side.
type sideState struct {
	Quantity int
	Total    float64
}

type positionState struct {
	long     sideState
	short    sideState
	lastDate time.Time

	// display metadata captured on first touch
	broker     string
	marketType models.MarketType
	expiry     time.Time
	seeded     bool
}

type ledgerKey struct {
	asset    string
	category models.Category
}

// Custody replays the whole batch keyed by asset and reports the open long
// positions. An uncovered short is not custody and is omitted.
func (p *positionProcessorImpl) Custody(trades []models.TradeRecord) []models.CustodyPosition {
	sorted := sortTradesByDate(trades)

	states := make(map[string]*positionState)
	order := make([]string, 0)
	for i := range sorted {
		t := &sorted[i]
		st := states[t.Asset]
		if st == nil {
			st = &positionState{}
			states[t.Asset] = st
			order = append(order, t.Asset)
		}
		applyTrade(st, *t)
	}

	var positions []models.CustodyPosition
	for _, asset := range order {
		st := states[asset]
		if st.long.Quantity <= 0 {
			continue
		}
		avg := st.long.Total / float64(st.long.Quantity)
		positions = append(positions, models.CustodyPosition{
			Broker:        st.broker,
			Asset:         asset,
			MarketType:    st.marketType,
			Expiry:        st.expiry,
			Quantity:      st.long.Quantity,
			AveragePrice:  utils.RoundFloat(avg, 4),
			TotalCost:     utils.RoundCurrency(st.long.Total),
			LastTradeDate: st.lastDate,
		})
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Broker != positions[j].Broker {
			return positions[i].Broker < positions[j].Broker
		}
		if positions[i].Asset != positions[j].Asset {
			return positions[i].Asset < positions[j].Asset
		}
		return positions[i].Expiry.Before(positions[j].Expiry)
	})
	return positions
}

// RealizedEvents replays the batch keyed by (asset, category) and emits one
// tax event per position close. Option-category trades are settled by the
// option processor instead and must not be passed here.
func (p *positionProcessorImpl) RealizedEvents(trades []models.TradeRecord) []models.TaxEvent {
	sorted := sortTradesByDate(trades)

	states := make(map[ledgerKey]*positionState)
	var events []models.TaxEvent
	for i := range sorted {
		t := &sorted[i]
		key := ledgerKey{asset: t.Asset, category: t.Category}
		st := states[key]
		if st == nil {
			st = &positionState{}
			states[key] = st
		}
		if evt := applyTrade(st, *t); evt != nil {
			events = append(events, *evt)
		}
	}
	return events
}

// applyTrade updates one position with one trade and returns the realized
// event when the trade closed (part of) the opposite side. Fees are folded
// in here: buys cost value+fees, sells return value-fees, for both the
// custody and the tax passes.
func applyTrade(st *positionState, t models.TradeRecord) *models.TaxEvent {
	if !st.seeded {
		st.broker = t.Broker
		st.marketType = t.MarketType
		st.expiry = t.Expiry
		st.seeded = true
	}
	st.lastDate = t.TradeDate

	qty := t.Quantity
	if qty <= 0 {
		log.Printf("Warning: trade for %s on %s has non-positive quantity %d. Skipping.",
			t.Asset, t.TradeDate.Format(utils.DefaultDateFormat), qty)
		return nil
	}

	switch t.Operation {
	case models.OperationBuy:
		cost := t.Value + t.Fees
		if st.short.Quantity == 0 {
			st.long.Quantity += qty
			st.long.Total += cost
			return nil
		}
		// a buy first covers the open short at its average proceeds
		closeQty := min(qty, st.short.Quantity)
		avgProceeds := st.short.Total / float64(st.short.Quantity)
		closeCost := cost / float64(qty) * float64(closeQty)
		evt := &models.TaxEvent{
			Month:       utils.MonthKey(t.TradeDate),
			Category:    t.Category,
			GrossProfit: avgProceeds*float64(closeQty) - closeCost,
		}
		st.short.Quantity -= closeQty
		st.short.Total -= avgProceeds * float64(closeQty)
		if remaining := qty - closeQty; remaining > 0 {
			st.long.Quantity += remaining
			st.long.Total += cost / float64(qty) * float64(remaining)
		}
		return evt

	case models.OperationSell:
		proceeds := t.Value - t.Fees
		withheld := sellWithholding(st, t)
		if st.long.Quantity == 0 {
			st.short.Quantity += qty
			st.short.Total += proceeds
			return nil
		}
		closeQty := min(qty, st.long.Quantity)
		avgCost := st.long.Total / float64(st.long.Quantity)
		closedCost := avgCost * float64(closeQty)
		saleValue := proceeds / float64(qty) * float64(closeQty)
		evt := &models.TaxEvent{
			Month:       utils.MonthKey(t.TradeDate),
			Category:    t.Category,
			SalesTotal:  saleValue,
			GrossProfit: saleValue - closedCost,
			WithheldTax: withheld,
		}
		st.long.Quantity -= closeQty
		st.long.Total -= closedCost
		if remaining := qty - closeQty; remaining > 0 {
			st.short.Quantity += remaining
			st.short.Total += proceeds / float64(qty) * float64(remaining)
		}
		return evt
	}

	log.Printf("Warning: trade for %s has unknown operation %q. Skipping.", t.Asset, t.Operation)
	return nil
}

// sellWithholding computes the IRRF retained on a sale, against the position
// as it stands before the sale is applied. Day-trade IRRF only applies to a
// positive result.
func sellWithholding(st *positionState, t models.TradeRecord) float64 {
	if t.Category != models.CategoryDayTrade {
		return t.Value * irrfSwingRate
	}
	if st.long.Quantity == 0 {
		return 0
	}
	avgCost := st.long.Total / float64(st.long.Quantity)
	profit := t.Value - avgCost*float64(t.Quantity)
	if profit <= 0 {
		return 0
	}
	return profit * irrfDayTradeRate
}

func sortTradesByDate(trades []models.TradeRecord) []models.TradeRecord {
	sorted := make([]models.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		// secondary sort by input order keeps same-day sequences deterministic
		if sorted[i].TradeDate.Equal(sorted[j].TradeDate) {
			return sorted[i].LineNo < sorted[j].LineNo
		}
		return sorted[i].TradeDate.Before(sorted[j].TradeDate)
	})
	return sorted
}
