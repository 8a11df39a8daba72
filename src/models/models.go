package models

import "time"

// Operation is the direction of a trade line, using the broker note
// convention: C (compra/buy) or V (venda/sell).
type Operation string

const (
	OperationBuy  Operation = "C"
	OperationSell Operation = "V"
)

// MarketType identifies the market segment printed on the note line.
type MarketType string

const (
	MarketCash       MarketType = "VISTA"
	MarketOptionCall MarketType = "OPCAO DE COMPRA"
	MarketOptionPut  MarketType = "OPCAO DE VENDA"
	MarketTerm       MarketType = "TERMO"
)

// IsOption reports whether the market type is an option series.
func (m MarketType) IsOption() bool {
	return m == MarketOptionCall || m == MarketOptionPut
}

// RawTrade is a single trade line as stored or uploaded, all fields still
// strings in the Brazilian note format. Produced by the parsing subsystem,
// consumed by the trade normalizer.
type RawTrade struct {
	ID          int64  `json:"id,omitempty"`
	NoteNumber  string `json:"numero_nota"`
	Broker      string `json:"corretora"`
	BrokerCNPJ  string `json:"cnpj"`
	TradeDate   string `json:"data_pregao"` // dd/mm/yyyy
	Asset       string `json:"ativo"`
	MarketType  string `json:"tipo_mercado"`
	BuySell     string `json:"compra_venda"` // explicit C/V when the source provides it
	DebitCredit string `json:"d_c"`          // D (debit) or C (credit) fallback
	Quantity    string `json:"quantidade"`
	Price       string `json:"preco"`
	Value       string `json:"valor"`
	Fees        string `json:"taxas"`
	Expiry      string `json:"vencimento"` // MM/YYYY or MM/YY, options only
	Observation string `json:"obs"`        // negotiation/obs column, e.g. "B3 RV LISTADV"
}

// TradeRecord is the canonical, normalized trade consumed by the engine.
// Created once per valid line and never mutated afterwards; Category is
// assigned by the classifier before any aggregation runs.
type TradeRecord struct {
	Asset      string     `json:"ativo"`
	Broker     string     `json:"corretora"`
	MarketType MarketType `json:"tipo_mercado"`
	Operation  Operation  `json:"operacao"`
	Category   Category   `json:"categoria,omitempty"`
	Quantity   int        `json:"quantidade"`
	Price      float64    `json:"preco"`
	Value      float64    `json:"valor"` // gross value, positive magnitude
	Fees       float64    `json:"taxas"`
	TradeDate  time.Time  `json:"data_pregao"`
	Expiry     time.Time  `json:"vencimento,omitempty"` // first day of expiry month, zero when absent
	LineNo     int        `json:"-"`                    // original input order, sort tiebreak
}

// HasExpiry reports whether the trade carries an expiry month.
func (t TradeRecord) HasExpiry() bool {
	return !t.Expiry.IsZero()
}

// Month returns the trade's calendar month key, e.g. "2024-03".
func (t TradeRecord) Month() string {
	return t.TradeDate.Format("2006-01")
}

// NoteHeader identifies one brokerage note. Used by the upload service to
// detect documents that were already ingested.
type NoteHeader struct {
	NoteNumber string `json:"numero_nota"`
	TradeDate  string `json:"data_pregao"`
	Broker     string `json:"corretora"`
	BrokerCNPJ string `json:"cnpj"`
}
