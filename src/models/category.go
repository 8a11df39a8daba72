package models

// Category is the tax category a trade belongs to. The set is closed: the
// monthly aggregator keys its carryforward and DARF state by this value, so
// every trade must map to exactly one of these.
type Category string

const (
	CategoryDayTrade       Category = "Day Trade"
	CategoryOptionsSwing   Category = "Opções Swing"
	CategoryRealEstateFund Category = "Fundos Imobiliários"
	CategoryETFSwing       Category = "ETFs Swing"
	CategoryBDRSwing       Category = "BDRs Swing"
	CategoryTerm           Category = "Operações a Termo"
	CategoryStockSwing     Category = "Ações Swing"
)

// AllCategories lists every tax category. Used to validate that the
// configured rate table covers the whole enumeration.
func AllCategories() []Category {
	return []Category{
		CategoryDayTrade,
		CategoryOptionsSwing,
		CategoryRealEstateFund,
		CategoryETFSwing,
		CategoryBDRSwing,
		CategoryTerm,
		CategoryStockSwing,
	}
}

// IsOptionCategory reports whether realized results for the category are
// produced by the option expiry resolver rather than the position ledger.
func (c Category) IsOptionCategory() bool {
	return c == CategoryOptionsSwing
}
