package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/investidor2021/notas-corretagem/src/models"
)

// csvParserImpl reads the semicolon-separated interchange format produced by
// the PDF extraction subsystem. Columns are matched by header name, so column
// order does not matter and unknown columns are ignored.
type csvParserImpl struct{}

// NewCSVParser creates a new instance of CSVParser.
func NewCSVParser() CSVParser {
	return &csvParserImpl{}
}

func (p *csvParserImpl) Parse(file io.Reader) ([]models.RawTrade, error) {
	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}
	if _, ok := columns["ativo"]; !ok {
		// some exports still use the older "titulo" column name
		if idx, ok := columns["titulo"]; ok {
			columns["ativo"] = idx
		}
	}
	for _, required := range []string{"data_pregao", "ativo", "quantidade", "valor"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var raws []models.RawTrade
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		raws = append(raws, models.RawTrade{
			NoteNumber:  field(record, "numero_nota"),
			Broker:      field(record, "corretora"),
			BrokerCNPJ:  field(record, "cnpj"),
			TradeDate:   field(record, "data_pregao"),
			Asset:       field(record, "ativo"),
			MarketType:  field(record, "tipo_mercado"),
			BuySell:     field(record, "compra_venda"),
			DebitCredit: field(record, "d_c"),
			Quantity:    field(record, "quantidade"),
			Price:       field(record, "preco"),
			Value:       field(record, "valor"),
			Fees:        field(record, "taxas"),
			Expiry:      field(record, "vencimento"),
			Observation: field(record, "obs"),
		})
	}
	return raws, nil
}

// normalizeHeader lowercases a header cell and strips the accents and
// spacing variants seen across exports ("Data Pregão" -> "data_pregao").
func normalizeHeader(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(
		"ã", "a", "á", "a", "â", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "õ", "o", "ô", "o",
		"ú", "u", "ç", "c",
		" ", "_", "/", "_", "-", "_",
	)
	return replacer.Replace(s)
}
