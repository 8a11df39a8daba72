package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/investidor2021/notas-corretagem/src/database"
	"github.com/investidor2021/notas-corretagem/src/logger"
	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/parsers"
	"github.com/investidor2021/notas-corretagem/src/processors"
)

const (
	ckCustody   = "res_custody_user_%d"
	ckTaxReport = "res_tax_report_user_%d_until_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type reportServiceImpl struct {
	normalizer        parsers.TradeNormalizer
	classifier        processors.TradeClassifier
	positionProcessor processors.PositionProcessor
	optionProcessor   processors.OptionProcessor
	taxProcessor      processors.TaxProcessor
	reportCache       *cache.Cache
}

func NewReportService(
	normalizer parsers.TradeNormalizer,
	classifier processors.TradeClassifier,
	positionProcessor processors.PositionProcessor,
	optionProcessor processors.OptionProcessor,
	taxProcessor processors.TaxProcessor,
	reportCache *cache.Cache,
) ReportService {
	return &reportServiceImpl{
		normalizer:        normalizer,
		classifier:        classifier,
		positionProcessor: positionProcessor,
		optionProcessor:   optionProcessor,
		taxProcessor:      taxProcessor,
		reportCache:       reportCache,
	}
}

func (s *reportServiceImpl) GetCustody(userID int64) (*CustodyReport, error) {
	cacheKey := fmt.Sprintf(ckCustody, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		if report, ok := cached.(*CustodyReport); ok {
			return report, nil
		}
	}

	trades, diagnostics, err := s.loadTrades(userID)
	if err != nil {
		return nil, err
	}

	report := &CustodyReport{
		Positions:   s.positionProcessor.Custody(trades),
		Diagnostics: diagnostics,
	}
	s.reportCache.Set(cacheKey, report, cache.DefaultExpiration)
	return report, nil
}

func (s *reportServiceImpl) GetTaxReport(userID int64, reference time.Time) (*TaxReport, error) {
	trades, diagnostics, err := s.loadTrades(userID)
	if err != nil {
		return nil, err
	}

	if reference.IsZero() {
		reference = defaultReference(trades)
	}
	cacheKey := fmt.Sprintf(ckTaxReport, userID, reference.Format("2006-01-02"))
	if cached, found := s.reportCache.Get(cacheKey); found {
		if report, ok := cached.(*TaxReport); ok {
			return report, nil
		}
	}

	startTime := time.Now()
	trades = s.classifier.Classify(trades)

	var optionTrades, ledgerTrades []models.TradeRecord
	for _, t := range trades {
		if t.Category.IsOptionCategory() {
			optionTrades = append(optionTrades, t)
		} else {
			ledgerTrades = append(ledgerTrades, t)
		}
	}

	events := s.positionProcessor.RealizedEvents(ledgerTrades)
	optionEvents, optionDiagnostics := s.optionProcessor.Resolve(optionTrades, reference)
	events = append(events, optionEvents...)
	diagnostics = append(diagnostics, optionDiagnostics...)

	rows, err := s.taxProcessor.Aggregate(events)
	if err != nil {
		return nil, fmt.Errorf("tax aggregation failed: %w", err)
	}

	report := &TaxReport{
		Reference:   reference,
		Rows:        rows,
		Diagnostics: diagnostics,
	}
	s.reportCache.Set(cacheKey, report, cache.DefaultExpiration)
	logger.L.Debug("Tax report computed", "userID", userID,
		"reference", reference.Format("2006-01-02"), "rows", len(rows),
		"events", len(events), "duration", time.Since(startTime))
	return report, nil
}

func (s *reportServiceImpl) InvalidateUserCache(userID int64) {
	// Tax report keys embed the reference date, so a prefix scan is needed.
	prefix := fmt.Sprintf("res_tax_report_user_%d_", userID)
	for key := range s.reportCache.Items() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.reportCache.Delete(key)
		}
	}
	s.reportCache.Delete(fmt.Sprintf(ckCustody, userID))
	logger.L.Debug("Invalidated report caches", "userID", userID)
}

// loadTrades reads the user's stored lines and normalizes them. Malformed
// lines come back as diagnostics, never as an error.
func (s *reportServiceImpl) loadTrades(userID int64) ([]models.TradeRecord, []models.Diagnostic, error) {
	rows, err := database.DB.Query(`SELECT numero_nota, corretora, cnpj, data_pregao, ativo, tipo_mercado, compra_venda, d_c, quantidade, preco, valor, taxas, vencimento, obs
		FROM operacoes WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying trades: %w", err)
	}
	defer rows.Close()

	var raws []models.RawTrade
	for rows.Next() {
		var t models.RawTrade
		if err := rows.Scan(&t.NoteNumber, &t.Broker, &t.BrokerCNPJ, &t.TradeDate,
			&t.Asset, &t.MarketType, &t.BuySell, &t.DebitCredit, &t.Quantity,
			&t.Price, &t.Value, &t.Fees, &t.Expiry, &t.Observation); err != nil {
			return nil, nil, fmt.Errorf("error scanning trade row: %w", err)
		}
		raws = append(raws, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	trades, diagnostics := s.normalizer.Normalize(raws)
	return trades, diagnostics, nil
}

// defaultReference mirrors the dashboard default: today, or the latest
// stored trade when the data runs ahead of the clock.
func defaultReference(trades []models.TradeRecord) time.Time {
	reference := time.Now()
	for _, t := range trades {
		if t.TradeDate.After(reference) {
			reference = t.TradeDate
		}
	}
	return reference
}
