package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"pilotage-service/internal/models"
	"pilotage-service/internal/report"
	"pilotage-service/internal/services"
	"pilotage-service/internal/storage"
)

// ReconciliationService runs, reads back and exports reconciliations.
type ReconciliationService interface {
	StartReconciliation(ctx context.Context, fromDate, toDate string) (*services.ReconciliationResult, error)
	GetRun(ctx context.Context, runID string) (*services.RunDetails, error)
	GetRunReport(ctx context.Context, runID string) (*report.Report, error)
	ExportRun(ctx context.Context, runID string, refresh bool) (*services.ExportResult, error)
	Evaluate(ctx context.Context, input services.EvaluateInput) (*report.Report, error)
}

type ReconciliationHandler struct {
	reconciliationService ReconciliationService
	processingMutex       sync.Mutex
	activeProcesses       map[string]bool
}

func NewReconciliationHandler(reconciliationService ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		activeProcesses:       make(map[string]bool),
	}
}

func (h *ReconciliationHandler) StartReconciliation(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FromDate string `json:"from_date"`
		ToDate   string `json:"to_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if request.FromDate == "" || request.ToDate == "" {
		respondWithError(w, http.StatusBadRequest, "Both from_date and to_date are required")
		return
	}

	if _, err := time.Parse("2006-01-02", request.FromDate); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid from_date format. Use YYYY-MM-DD")
		return
	}

	if _, err := time.Parse("2006-01-02", request.ToDate); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid to_date format. Use YYYY-MM-DD")
		return
	}

	processKey := request.FromDate + "_" + request.ToDate
	if !h.acquire(processKey) {
		respondWithError(w, http.StatusConflict, "Reconciliation for this date range is already in progress")
		return
	}
	defer h.release(processKey)

	result, err := h.reconciliationService.StartReconciliation(r.Context(), request.FromDate, request.ToDate)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) acquire(key string) bool {
	h.processingMutex.Lock()
	defer h.processingMutex.Unlock()
	if h.activeProcesses[key] {
		return false
	}
	h.activeProcesses[key] = true
	return true
}

func (h *ReconciliationHandler) release(key string) {
	h.processingMutex.Lock()
	delete(h.activeProcesses, key)
	h.processingMutex.Unlock()
}

func (h *ReconciliationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	if runID == "" {
		respondWithError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	result, err := h.reconciliationService.GetRun(r.Context(), runID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) GetRunReport(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	if runID == "" {
		respondWithError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	result, err := h.reconciliationService.GetRunReport(r.Context(), runID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) ExportRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	if runID == "" {
		respondWithError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid refresh parameter")
			return
		}
		refresh = parsed
	}

	result, err := h.reconciliationService.ExportRun(r.Context(), runID, refresh)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reconciliation-%s.xlsx"`, result.RunID))
	w.Header().Set("X-Report-Location", result.Location)
	w.Header().Set("X-Report-Cached", strconv.FormatBool(result.Cached))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

func (h *ReconciliationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var input services.EvaluateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if len(input.Invoices) == 0 {
		respondWithError(w, http.StatusBadRequest, "No invoices provided")
		return
	}

	result, err := h.reconciliationService.Evaluate(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
