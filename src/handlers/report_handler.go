package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/investidor2021/notas-corretagem/src/logger"
	"github.com/investidor2021/notas-corretagem/src/services"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) HandleGetCustody(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	report, err := h.reportService.GetCustody(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error computing custody for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}

	if etag, err := utils.GenerateETag(report); err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) HandleGetTaxReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	// "until" is the reference date for option expiry resolution; it
	// defaults to today / the latest stored trade.
	var reference time.Time
	if untilParam := r.URL.Query().Get("until"); untilParam != "" {
		parsed, err := time.Parse("2006-01-02", untilParam)
		if err != nil {
			utils.SendJSONError(w, "invalid 'until' date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		reference = parsed
	}

	report, err := h.reportService.GetTaxReport(userID, reference)
	if err != nil {
		logger.L.Error("Tax report computation failed", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error computing tax report for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
