package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/investidor2021/notas-corretagem/src/logger"
	"github.com/investidor2021/notas-corretagem/src/models"
	"github.com/investidor2021/notas-corretagem/src/services"
	"github.com/investidor2021/notas-corretagem/src/utils"
)

type TransactionHandler struct {
	uploadService services.UploadService
}

func NewTransactionHandler(uploadService services.UploadService) *TransactionHandler {
	return &TransactionHandler{uploadService: uploadService}
}

func (h *TransactionHandler) HandleGetOperations(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	trades, err := h.uploadService.GetRawTrades(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving operations for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.RawTrade{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

func (h *TransactionHandler) HandleDeleteAllOperations(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.uploadService.DeleteAllTrades(userID); err != nil {
		logger.L.Error("Failed to delete operations", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error deleting operations for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
