package parsers

import (
	"io"

	"github.com/investidor2021/notas-corretagem/src/models"
)

// CSVParser reads an uploaded file of brokerage-note trade lines.
type CSVParser interface {
	Parse(file io.Reader) ([]models.RawTrade, error)
}

// TradeNormalizer converts raw trade lines into canonical trade records.
// Lines that fail normalization are skipped and reported as diagnostics;
// one bad line never rejects the batch.
type TradeNormalizer interface {
	Normalize(raws []models.RawTrade) ([]models.TradeRecord, []models.Diagnostic)
}
