package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

func SetupRouter(dataHandler *DataHandler, reconciliationHandler *ReconciliationHandler) *mux.Router {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	// Subrouters report a method mismatch through their own handler only.
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	api.HandleFunc("/invoices", dataHandler.IngestInvoices).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{invoice_number}", dataHandler.GetInvoice).Methods(http.MethodGet)
	api.HandleFunc("/cost-documents", dataHandler.IngestCostDocuments).Methods(http.MethodPost)

	api.HandleFunc("/reconciliations", reconciliationHandler.StartReconciliation).Methods(http.MethodPost)
	api.HandleFunc("/reconciliations/{run_id}", reconciliationHandler.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/reconciliations/{run_id}/report", reconciliationHandler.GetRunReport).Methods(http.MethodGet)
	api.HandleFunc("/reconciliations/{run_id}/export", reconciliationHandler.ExportRun).Methods(http.MethodGet)
	api.HandleFunc("/evaluate", reconciliationHandler.Evaluate).Methods(http.MethodPost)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "healthy",
	}
	respondWithJSON(w, http.StatusOK, response)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

type ErrorResponse struct {
	Error string `json:"error"`
}
