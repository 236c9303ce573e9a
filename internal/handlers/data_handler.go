package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pilotage-service/internal/models"
	"pilotage-service/internal/services"
)

// IngestionService stores imported invoices and cost documents.
type IngestionService interface {
	IngestInvoices(ctx context.Context, invoices []models.Invoice) (*services.IngestionResult, error)
	IngestCostDocuments(ctx context.Context, docs []models.CostDocument) (*services.IngestionResult, error)
	GetInvoice(ctx context.Context, invoiceNumber string) (*models.InvoiceRecord, error)
}

type DataHandler struct {
	dataIngestionService IngestionService
}

func NewDataHandler(dataIngestionService IngestionService) *DataHandler {
	return &DataHandler{
		dataIngestionService: dataIngestionService,
	}
}

func (h *DataHandler) IngestInvoices(w http.ResponseWriter, r *http.Request) {
	var request InvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if len(request.Invoices) == 0 {
		respondWithError(w, http.StatusBadRequest, "No invoices provided")
		return
	}

	result, err := h.dataIngestionService.IngestInvoices(r.Context(), request.Invoices)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithIngestion(w, result)
}

func (h *DataHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceNumber := mux.Vars(r)["invoice_number"]
	if invoiceNumber == "" {
		respondWithError(w, http.StatusBadRequest, "Invoice number is required")
		return
	}

	rec, err := h.dataIngestionService.GetInvoice(r.Context(), invoiceNumber)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (h *DataHandler) IngestCostDocuments(w http.ResponseWriter, r *http.Request) {
	var request CostDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if len(request.CostDocuments) == 0 {
		respondWithError(w, http.StatusBadRequest, "No cost documents provided")
		return
	}

	result, err := h.dataIngestionService.IngestCostDocuments(r.Context(), request.CostDocuments)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithIngestion(w, result)
}

func respondWithIngestion(w http.ResponseWriter, result *services.IngestionResult) {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusPartialContent
	}
	respondWithJSON(w, status, result)
}

type InvoicesRequest struct {
	Invoices []models.Invoice `json:"invoices"`
}

type CostDocumentsRequest struct {
	CostDocuments []models.CostDocument `json:"cost_documents"`
}
