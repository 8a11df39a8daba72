package processors

import (
	"time"

	"github.com/investidor2021/notas-corretagem/src/models"
)

// TradeClassifier assigns a tax category to every trade in a batch. It needs
// the whole batch at once: day-trade detection looks for a buy and a sell of
// the same asset on the same calendar day anywhere in the input.
type TradeClassifier interface {
	Classify(trades []models.TradeRecord) []models.TradeRecord
}

// PositionProcessor is the weighted-average-cost position ledger. Custody
// computes the currently held long positions; RealizedEvents replays the same
// ledger keyed by (asset, category) and emits one tax event per close.
type PositionProcessor interface {
	Custody(trades []models.TradeRecord) []models.CustodyPosition
	RealizedEvents(trades []models.TradeRecord) []models.TaxEvent
}

// OptionProcessor settles option trades grouped by (asset, expiry month,
// category): fully matched groups realize at the last trade, mismatched
// groups realize at expiry once the reference month has moved past it.
type OptionProcessor interface {
	Resolve(trades []models.TradeRecord, reference time.Time) ([]models.TaxEvent, []models.Diagnostic)
}

// TaxProcessor folds realized events into the monthly tax ledger, applying
// loss carryforward, exemption thresholds, withheld-tax credit and the DARF
// minimum-payable rule per category.
type TaxProcessor interface {
	Aggregate(events []models.TaxEvent) ([]models.MonthlyTaxRow, error)
}
