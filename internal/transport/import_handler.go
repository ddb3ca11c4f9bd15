package transport

import (
	"net/http"
	"time"

	"product-importer/internal/domain"
	"product-importer/internal/middleware"
	"product-importer/internal/repository"
	"product-importer/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportJobResponse represents an import job snapshot in API responses
type ImportJobResponse struct {
	ID               string  `json:"id"`
	FileName         string  `json:"file_name"`
	TotalRecords     int     `json:"total_records"`
	ProcessedRecords int     `json:"processed_records"`
	Status           string  `json:"status"`
	ErrorMessage     *string `json:"error_message"`
	CreatedAt        string  `json:"created_at"`
	StartedAt        *string `json:"started_at"`
	CompletedAt      *string `json:"completed_at"`
}

// ImportHandler handles HTTP requests for CSV import operations
type ImportHandler struct {
	importService service.ImportService
	logger        *zap.Logger
	maxFileSize   int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService service.ImportService, maxFileSize int64, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
		maxFileSize:   maxFileSize,
	}
}

// RegisterRoutes registers all import routes
func (h *ImportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/imports", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Get("/", h.List)
		r.Get("/{id}/status", h.Status)
	})
}

// Upload accepts a multipart CSV upload, creates the import job, and
// enqueues the background task. The response carries the pending job.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	job, err := h.importService.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		switch err {
		case service.ErrNotCSV:
			middleware.RespondWithError(w, http.StatusBadRequest, "file must be a CSV file")
		case service.ErrEmptyUpload:
			middleware.RespondWithError(w, http.StatusBadRequest, "file is empty")
		case service.ErrFileTooLarge:
			middleware.RespondWithError(w, http.StatusBadRequest, "file size exceeds the configured maximum")
		default:
			h.logger.Error("Upload failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to start import")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toImportJobResponse(job))
}

// Status returns a point-in-time snapshot of one import job
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid import job ID")
		return
	}

	job, err := h.importService.GetStatus(r.Context(), id)
	if err != nil {
		if err == repository.ErrImportJobNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "import job not found")
			return
		}

		h.logger.Error("Import status lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get import status")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toImportJobResponse(job))
}

// List returns recent import jobs, newest first
func (h *ImportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	jobs, err := h.importService.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Import listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list imports")
		return
	}

	items := make([]ImportJobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, toImportJobResponse(job))
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

func toImportJobResponse(job *domain.ImportJob) ImportJobResponse {
	resp := ImportJobResponse{
		ID:               job.ID.String(),
		FileName:         job.FileName,
		TotalRecords:     job.TotalRecords,
		ProcessedRecords: job.ProcessedRecords,
		Status:           string(job.Status),
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		s := job.StartedAt.UTC().Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if job.CompletedAt != nil {
		s := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
