package processors

import (
	"errors"
	"fmt"
	"sort"

	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

// ErrInvalidRateTable is returned when the configured rate table does not
// cover every tax category. Computing with a hole in the table would
// silently produce a wrong ledger, so the whole computation aborts.
var ErrInvalidRateTable = errors.New("invalid tax rate table")

// CategoryRate holds the tax parameters of one category. ExemptionLimit 0
// means the category has no monthly sales exemption.
type CategoryRate struct {
	Rate           float64
	ExemptionLimit float64
}

// RateTable maps every category to its rate and carries the DARF minimum.
type RateTable struct {
	Rates       map[models.Category]CategoryRate
	DarfMinimum float64
}

// DefaultRateTable returns the current Brazilian equity/derivatives rules:
// 15% for swing categories (stock-like ones exempt under R$ 20.000 of
// monthly sales), 20% for day-trade and real-estate funds, DARF due from
// R$ 10,00.
func DefaultRateTable() RateTable {
	const swingExemption = 20000.0
	return RateTable{
		Rates: map[models.Category]CategoryRate{
			models.CategoryStockSwing:     {Rate: 0.15, ExemptionLimit: swingExemption},
			models.CategoryETFSwing:       {Rate: 0.15, ExemptionLimit: swingExemption},
			models.CategoryBDRSwing:       {Rate: 0.15, ExemptionLimit: swingExemption},
			models.CategoryTerm:           {Rate: 0.15, ExemptionLimit: swingExemption},
			models.CategoryDayTrade:       {Rate: 0.20},
			models.CategoryOptionsSwing:   {Rate: 0.15},
			models.CategoryRealEstateFund: {Rate: 0.20},
		},
		DarfMinimum: 10.0,
	}
}

// Validate checks that the table covers the whole category enumeration.
func (rt RateTable) Validate() error {
	if rt.Rates == nil {
		return fmt.Errorf("%w: no rates configured", ErrInvalidRateTable)
	}
	for _, cat := range models.AllCategories() {
		r, ok := rt.Rates[cat]
		if !ok {
			return fmt.Errorf("%w: missing category %q", ErrInvalidRateTable, cat)
		}
		if r.Rate <= 0 || r.Rate >= 1 {
			return fmt.Errorf("%w: category %q has rate %g outside (0,1)", ErrInvalidRateTable, cat, r.Rate)
		}
		if r.ExemptionLimit < 0 {
			return fmt.Errorf("%w: category %q has negative exemption limit", ErrInvalidRateTable, cat)
		}
	}
	if rt.DarfMinimum < 0 {
		return fmt.Errorf("%w: negative DARF minimum", ErrInvalidRateTable)
	}
	return nil
}

// taxProcessorImpl implements the TaxProcessor interface.
type taxProcessorImpl struct {
	rates RateTable
}

// NewTaxProcessor creates a TaxProcessor computing with the given rates.
func NewTaxProcessor(rates RateTable) TaxProcessor {
	return &taxProcessorImpl{rates: rates}
}

// categoryTaxState is the running state threaded month to month within one
// category: the loss still deductible and the tax accumulated below the
// DARF minimum.
type categoryTaxState struct {
	lossCarryforward float64
	darfAccumulated  float64
}

type monthCategoryKey struct {
	month    string
	category models.Category
}

// Aggregate groups realized events by (month, category) and folds them in
// chronological order into the monthly tax ledger.
func (p *taxProcessorImpl) Aggregate(events []models.TaxEvent) ([]models.MonthlyTaxRow, error) {
	if err := p.rates.Validate(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	grouped := make(map[monthCategoryKey]*models.MonthlyTaxRow)
	for _, evt := range events {
		key := monthCategoryKey{month: evt.Month, category: evt.Category}
		row := grouped[key]
		if row == nil {
			row = &models.MonthlyTaxRow{Month: evt.Month, Category: evt.Category}
			grouped[key] = row
		}
		row.SalesTotal += evt.SalesTotal
		row.GrossProfit += evt.GrossProfit
		row.WithheldTax += evt.WithheldTax
	}

	rows := make([]models.MonthlyTaxRow, 0, len(grouped))
	for _, row := range grouped {
		rows = append(rows, *row)
	}
	// The carryforward fold below is order-dependent: rows of one category
	// must be visited in ascending month order.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].Category < rows[j].Category
	})

	state := make(map[models.Category]*categoryTaxState)
	for i := range rows {
		row := &rows[i]
		st := state[row.Category]
		if st == nil {
			st = &categoryTaxState{}
			state[row.Category] = st
		}

		netBeforeLoss := row.GrossProfit - st.lossCarryforward
		st.lossCarryforward = 0
		if netBeforeLoss < 0 {
			st.lossCarryforward = -netBeforeLoss
		} else {
			row.NetProfit = netBeforeLoss
		}
		row.LossCarryforward = -st.lossCarryforward

		grossTax := 0.0
		if row.NetProfit > 0 {
			rate := p.rates.Rates[row.Category]
			if rate.ExemptionLimit == 0 || row.SalesTotal > rate.ExemptionLimit {
				grossTax = utils.RoundCurrency(row.NetProfit * rate.Rate)
			}
		}

		taxThisPeriod := grossTax - row.WithheldTax
		if taxThisPeriod < 0 {
			taxThisPeriod = 0
		}

		st.darfAccumulated += taxThisPeriod
		if st.darfAccumulated >= p.rates.DarfMinimum {
			row.TaxDue = utils.RoundCurrency(st.darfAccumulated)
			st.darfAccumulated = 0
		}
		row.AccumulatedBalance = utils.RoundCurrency(st.darfAccumulated)
	}
	return rows, nil
}
