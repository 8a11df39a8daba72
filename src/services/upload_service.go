package services

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/investidor2021/notas-corretagem/src/database"
	"github.com/investidor2021/notas-corretagem/src/logger"
	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/parsers"
	"github.com/investidor2021/notas-corretagem/src/security/validation"
)

type uploadServiceImpl struct {
	csvParser     parsers.CSVParser
	normalizer    parsers.TradeNormalizer
	reportService ReportService
}

// NewUploadService creates the upload service. reportService may be nil in
// tests; it is only used to invalidate caches after a write.
func NewUploadService(csvParser parsers.CSVParser, normalizer parsers.TradeNormalizer, reportService ReportService) UploadService {
	return &uploadServiceImpl{
		csvParser:     csvParser,
		normalizer:    normalizer,
		reportService: reportService,
	}
}

func (s *uploadServiceImpl) ProcessUpload(fileReader io.Reader, userID int64) (*UploadSummary, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "userID", userID)

	raws, err := s.csvParser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(raws) == 0 {
		return nil, ErrNoTrades
	}

	summary := &UploadSummary{}

	// Group lines per note so a note that was already ingested is skipped
	// whole. Lines without note identification are always inserted; the
	// engine does not depend on note identity.
	type noteGroup struct {
		header models.NoteHeader
		lines  []models.RawTrade
	}
	var groups []*noteGroup
	index := make(map[models.NoteHeader]*noteGroup)
	for _, raw := range raws {
		raw = sanitizeRawTrade(raw)
		header := models.NoteHeader{
			NoteNumber: raw.NoteNumber,
			TradeDate:  raw.TradeDate,
			Broker:     raw.Broker,
			BrokerCNPJ: raw.BrokerCNPJ,
		}
		g := index[header]
		if g == nil {
			g = &noteGroup{header: header}
			index[header] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, raw)
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO operacoes
		(user_id, numero_nota, corretora, cnpj, data_pregao, ativo, tipo_mercado, compra_venda, d_c, quantidade, preco, valor, taxas, vencimento, obs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	var inserted []models.RawTrade
	for _, g := range groups {
		if g.header.NoteNumber != "" {
			exists, err := noteExists(dbTx, userID, g.header)
			if err != nil {
				return nil, fmt.Errorf("error checking for duplicate note: %w", err)
			}
			if exists {
				logger.L.Info("Skipping already ingested note", "userID", userID,
					"noteNumber", g.header.NoteNumber, "tradeDate", g.header.TradeDate)
				summary.NotesSkipped++
				continue
			}
			if _, err := dbTx.Exec(`INSERT INTO notas (user_id, numero_nota, data_pregao, corretora, cnpj) VALUES (?, ?, ?, ?, ?)`,
				userID, g.header.NoteNumber, g.header.TradeDate, g.header.Broker, g.header.BrokerCNPJ); err != nil {
				return nil, fmt.Errorf("error inserting note header: %w", err)
			}
			summary.NotesIngested++
		}
		for _, raw := range g.lines {
			if _, err := stmt.Exec(userID, raw.NoteNumber, raw.Broker, raw.BrokerCNPJ, raw.TradeDate,
				raw.Asset, raw.MarketType, raw.BuySell, raw.DebitCredit, raw.Quantity,
				raw.Price, raw.Value, raw.Fees, raw.Expiry, raw.Observation); err != nil {
				return nil, fmt.Errorf("error inserting trade line for %s: %w", raw.Asset, err)
			}
			summary.LinesInserted++
		}
		inserted = append(inserted, g.lines...)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}

	// Dry-run the normalizer over what was just inserted so the caller
	// learns right away which lines the engine will skip.
	_, diagnostics := s.normalizer.Normalize(inserted)
	summary.Diagnostics = diagnostics
	summary.LinesSkipped = len(diagnostics)

	if s.reportService != nil {
		s.reportService.InvalidateUserCache(userID)
	}

	logger.L.Info("ProcessUpload END", "userID", userID,
		"notesIngested", summary.NotesIngested, "notesSkipped", summary.NotesSkipped,
		"linesInserted", summary.LinesInserted, "duration", time.Since(startTime))
	return summary, nil
}

func (s *uploadServiceImpl) GetRawTrades(userID int64) ([]models.RawTrade, error) {
	rows, err := database.DB.Query(`SELECT id, numero_nota, corretora, cnpj, data_pregao, ativo, tipo_mercado, compra_venda, d_c, quantidade, preco, valor, taxas, vencimento, obs
		FROM operacoes WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying trades: %w", err)
	}
	defer rows.Close()

	var trades []models.RawTrade
	for rows.Next() {
		var t models.RawTrade
		if err := rows.Scan(&t.ID, &t.NoteNumber, &t.Broker, &t.BrokerCNPJ, &t.TradeDate,
			&t.Asset, &t.MarketType, &t.BuySell, &t.DebitCredit, &t.Quantity,
			&t.Price, &t.Value, &t.Fees, &t.Expiry, &t.Observation); err != nil {
			return nil, fmt.Errorf("error scanning trade row: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *uploadServiceImpl) DeleteAllTrades(userID int64) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM operacoes WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting trades: %w", err)
	}
	if _, err := dbTx.Exec(`DELETE FROM notas WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting note headers: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return err
	}

	if s.reportService != nil {
		s.reportService.InvalidateUserCache(userID)
	}
	logger.L.Info("Deleted all trades", "userID", userID)
	return nil
}

func noteExists(dbTx *sql.Tx, userID int64, header models.NoteHeader) (bool, error) {
	var count int
	err := dbTx.QueryRow(`SELECT COUNT(1) FROM notas WHERE user_id = ? AND numero_nota = ? AND data_pregao = ? AND cnpj = ?`,
		userID, header.NoteNumber, header.TradeDate, header.BrokerCNPJ).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func sanitizeRawTrade(raw models.RawTrade) models.RawTrade {
	clean := func(s string) string {
		return validation.SanitizeForFormulaInjection(validation.StripUnprintable(s))
	}
	raw.NoteNumber = clean(raw.NoteNumber)
	raw.Broker = clean(raw.Broker)
	raw.BrokerCNPJ = clean(raw.BrokerCNPJ)
	raw.Asset = clean(raw.Asset)
	raw.MarketType = clean(raw.MarketType)
	raw.Observation = clean(raw.Observation)
	return raw
}
