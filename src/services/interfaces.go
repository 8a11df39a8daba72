package services

import (
	"errors"
	"io"
	"time"

	"github.com/investidor2021/notas-corretagem/src/models"
)

var (
	ErrParsingFailed = errors.New("parsing failed")
	ErrNoTrades      = errors.New("no trade lines found in file")
)

// UploadSummary reports what one upload did: how many notes were ingested,
// how many were skipped as duplicates, and any lines that will not
// normalize cleanly.
type UploadSummary struct {
	NotesIngested int                 `json:"notes_ingested"`
	NotesSkipped  int                 `json:"notes_skipped"`
	LinesInserted int                 `json:"lines_inserted"`
	LinesSkipped  int                 `json:"lines_skipped"`
	Diagnostics   []models.Diagnostic `json:"diagnostics,omitempty"`
}

// UploadService ingests brokerage-note trade lines and owns their storage.
type UploadService interface {
	ProcessUpload(fileReader io.Reader, userID int64) (*UploadSummary, error)
	GetRawTrades(userID int64) ([]models.RawTrade, error)
	DeleteAllTrades(userID int64) error
}

// CustodyReport is the custody snapshot plus the diagnostics collected while
// normalizing the stored trades.
type CustodyReport struct {
	Positions   []models.CustodyPosition `json:"positions"`
	Diagnostics []models.Diagnostic      `json:"diagnostics,omitempty"`
}

// TaxReport is the monthly tax ledger plus diagnostics. Reference is the
// "as of" date option expiries were resolved against.
type TaxReport struct {
	Reference   time.Time             `json:"reference"`
	Rows        []models.MonthlyTaxRow `json:"rows"`
	Diagnostics []models.Diagnostic   `json:"diagnostics,omitempty"`
}

// ReportService runs the position/tax engine over a user's stored trades.
// A zero reference time means "resolve as of today or the latest stored
// trade, whichever is later".
type ReportService interface {
	GetCustody(userID int64) (*CustodyReport, error)
	GetTaxReport(userID int64, reference time.Time) (*TaxReport, error)
	InvalidateUserCache(userID int64)
}
