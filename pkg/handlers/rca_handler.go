package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/services"
)

// maxLogUploadBytes bounds one log upload request.
const maxLogUploadBytes = 32 << 20

// AnalyzeRCARequest for POST /api/rca/analyze
type AnalyzeRCARequest struct {
	IncidentID      string     `json:"incident_id"`
	Description     string     `json:"description"`
	IncidentStart   time.Time  `json:"incident_start"`
	IncidentEnd     *time.Time `json:"incident_end,omitempty"`
	AffectedSystems []string   `json:"affected_systems,omitempty"`
}

// UpdateResolutionRequest for PUT /api/rca/{incident_id}/resolution
type UpdateResolutionRequest struct {
	ResolutionStatus string `json:"resolution_status"`
}

// RCAHistoryResponse for GET /api/rca
type RCAHistoryResponse struct {
	Analyses []*models.RootCauseAnalysis `json:"analyses"`
	Total    int                         `json:"total"`
}

// UploadLogsResponse for POST /api/rca/{incident_id}/logs
type UploadLogsResponse struct {
	Parsed int `json:"parsed"`
	Saved  int `json:"saved"`
}

// RCAHandler handles root-cause analysis HTTP requests.
type RCAHandler struct {
	rcaService services.RCAService
	logService services.LogService
	logger     *zap.Logger
}

// NewRCAHandler creates a new RCA handler.
func NewRCAHandler(rcaService services.RCAService, logService services.LogService, logger *zap.Logger) *RCAHandler {
	return &RCAHandler{rcaService: rcaService, logService: logService, logger: logger}
}

// RegisterRoutes registers the RCA handler's routes on the given mux.
func (h *RCAHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rca/analyze", h.Analyze)
	mux.HandleFunc("GET /api/rca", h.History)
	mux.HandleFunc("GET /api/rca/{incident_id}", h.Get)
	mux.HandleFunc("GET /api/rca/{incident_id}/export", h.Export)
	mux.HandleFunc("DELETE /api/rca/{incident_id}", h.Delete)
	mux.HandleFunc("PUT /api/rca/{incident_id}/resolution", h.UpdateResolution)
	mux.HandleFunc("POST /api/rca/{incident_id}/logs", h.UploadLogs)
}

// Analyze handles POST /api/rca/analyze
func (h *RCAHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRCARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.IncidentID == "" || req.Description == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error",
			"incident_id and description are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.IncidentStart.IsZero() {
		req.IncidentStart = time.Now()
	}

	rca, err := h.rcaService.Analyze(r.Context(), services.AnalyzeRequest{
		IncidentID:      req.IncidentID,
		Description:     req.Description,
		IncidentStart:   req.IncidentStart,
		IncidentEnd:     req.IncidentEnd,
		AffectedSystems: req.AffectedSystems,
	})
	if err != nil {
		h.logger.Error("Root cause analysis failed",
			zap.String("incident_id", req.IncidentID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "rca_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rca}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// History handles GET /api/rca. Optional status, resolution, min_confidence
// and since filters narrow the result.
func (h *RCAHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	analyses, err := h.rcaService.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load analysis history", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "rca_history_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	analyses = filterHistory(analyses, r)
	response := RCAHistoryResponse{Analyses: analyses, Total: len(analyses)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/rca/{incident_id}
func (h *RCAHandler) Get(w http.ResponseWriter, r *http.Request) {
	rca, ok := h.loadRCA(w, r)
	if !ok {
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rca}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles GET /api/rca/{incident_id}/export. The analysis is
// returned as a standalone JSON attachment.
func (h *RCAHandler) Export(w http.ResponseWriter, r *http.Request) {
	rca, ok := h.loadRCA(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "rca-"+rca.IncidentID+".json"))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rca); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
	}
}

// Delete handles DELETE /api/rca/{incident_id}
func (h *RCAHandler) Delete(w http.ResponseWriter, r *http.Request) {
	incidentID := r.PathValue("incident_id")

	if err := h.rcaService.Delete(r.Context(), incidentID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "rca_not_found", "Analysis not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete analysis",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "rca_delete_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Analysis deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateResolution handles PUT /api/rca/{incident_id}/resolution
func (h *RCAHandler) UpdateResolution(w http.ResponseWriter, r *http.Request) {
	incidentID := r.PathValue("incident_id")

	var req UpdateResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.rcaService.UpdateResolution(r.Context(), incidentID, req.ResolutionStatus); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "rca_not_found", "Analysis not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to update resolution",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "resolution_update_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Resolution updated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UploadLogs handles POST /api/rca/{incident_id}/logs. Accepts one or more
// multipart files under the "logs" field.
func (h *RCAHandler) UploadLogs(w http.ResponseWriter, r *http.Request) {
	incidentID := r.PathValue("incident_id")

	if err := r.ParseMultipartForm(maxLogUploadBytes); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Expected multipart form upload"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	files := r.MultipartForm.File["logs"]
	if len(files) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "at least one log file is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var parsed []models.SystemLog
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.logger.Warn("Failed to open uploaded file",
				zap.String("filename", fh.Filename),
				zap.Error(err))
			continue
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			h.logger.Warn("Failed to read uploaded file",
				zap.String("filename", fh.Filename),
				zap.Error(err))
			continue
		}
		parsed = append(parsed, h.logService.ParseFile(content, fh.Filename)...)
	}

	saved, err := h.logService.Save(r.Context(), incidentID, parsed)
	if err != nil {
		h.logger.Error("Failed to save uploaded logs",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "save_logs_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := UploadLogsResponse{Parsed: len(parsed), Saved: saved}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *RCAHandler) loadRCA(w http.ResponseWriter, r *http.Request) (*models.RootCauseAnalysis, bool) {
	incidentID := r.PathValue("incident_id")

	rca, err := h.rcaService.Get(r.Context(), incidentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "rca_not_found", "Analysis not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		h.logger.Error("Failed to load analysis",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "rca_get_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return rca, true
}

// filterHistory applies the optional history query filters in memory.
func filterHistory(analyses []*models.RootCauseAnalysis, r *http.Request) []*models.RootCauseAnalysis {
	q := r.URL.Query()
	status := q.Get("status")
	resolution := q.Get("resolution")
	minConfidence := float64(queryInt(r, "min_confidence_pct", 0)) / 100

	var since time.Time
	if raw := q.Get("since"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			since = ts
		}
	}

	filtered := analyses[:0]
	for _, rca := range analyses {
		if status != "" && rca.Status != status {
			continue
		}
		if resolution != "" && rca.ResolutionStatus != resolution {
			continue
		}
		if rca.ConfidenceScore < minConfidence {
			continue
		}
		if !since.IsZero() && rca.CreatedAt.Before(since) {
			continue
		}
		filtered = append(filtered, rca)
	}
	return filtered
}
