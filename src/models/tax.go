package models

import "time"

// TaxEvent is one realized gain/loss, emitted by the position ledger when a
// position is reduced or by the option resolver when a group settles.
// Immutable once emitted.
type TaxEvent struct {
	Month       string   `json:"ano_mes"` // "2006-01"
	Category    Category `json:"categoria"`
	SalesTotal  float64  `json:"vendas_totais"`
	GrossProfit float64  `json:"lucro_bruto"`
	WithheldTax float64  `json:"irrf"` // IRRF retained at source
}

// MonthlyTaxRow is one line of the monthly tax ledger: the netted result for
// a (month, category) pair after loss carryforward, exemption and the DARF
// minimum-payable rule were applied.
type MonthlyTaxRow struct {
	Month              string   `json:"ano_mes"`
	Category           Category `json:"categoria"`
	SalesTotal         float64  `json:"vendas_totais"`
	GrossProfit        float64  `json:"lucro_bruto"`
	NetProfit          float64  `json:"lucro_liquido"`
	LossCarryforward   float64  `json:"prejuizo_acumulado"` // negative convention, 0 when none
	WithheldTax        float64  `json:"irrf"`
	TaxDue             float64  `json:"ir_a_pagar"`      // becomes nonzero when the DARF minimum is crossed
	AccumulatedBalance float64  `json:"darf_acumulada"`  // not-yet-due balance carried forward
}

// CustodyPosition is one row of the custody snapshot: an open long position
// with its weighted-average cost basis. Uncovered shorts are not custody and
// are never reported here.
type CustodyPosition struct {
	Broker        string     `json:"corretora"`
	Asset         string     `json:"ativo"`
	MarketType    MarketType `json:"tipo_mercado"`
	Expiry        time.Time  `json:"vencimento,omitempty"`
	Quantity      int        `json:"quantidade"`
	AveragePrice  float64    `json:"preco_medio"`
	TotalCost     float64    `json:"custo_total"`
	LastTradeDate time.Time  `json:"ultima_data_pregao"`
}
