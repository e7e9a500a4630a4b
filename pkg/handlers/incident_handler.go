package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/services"
)

// AnalyzeIncidentRequest for POST /api/analyze
type AnalyzeIncidentRequest struct {
	Description string `json:"description"`
}

// EscalationRequest for POST /api/escalation-summary
type EscalationRequest struct {
	IncidentID  string                   `json:"incident_id"`
	Description string                   `json:"description"`
	Analysis    *models.IncidentAnalysis `json:"analysis,omitempty"`
	Solutions   int                      `json:"solutions_count"`
}

// EscalationResponse for POST /api/escalation-summary
type EscalationResponse struct {
	Summary   *models.EscalationSummary   `json:"escalation_summary"`
	Templates []models.EscalationTemplate `json:"escalation_templates"`
}

// IncidentHandler handles incident intake and solution paging requests.
type IncidentHandler struct {
	incidentService services.IncidentService
	escalation      services.EscalationService
	logger          *zap.Logger
}

// NewIncidentHandler creates a new incident handler.
func NewIncidentHandler(incidentService services.IncidentService, escalation services.EscalationService, logger *zap.Logger) *IncidentHandler {
	return &IncidentHandler{
		incidentService: incidentService,
		escalation:      escalation,
		logger:          logger,
	}
}

// RegisterRoutes registers the incident handler's routes on the given mux.
func (h *IncidentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analyze", h.Analyze)
	mux.HandleFunc("GET /api/solutions/{incident_id}", h.LoadMore)
	mux.HandleFunc("POST /api/escalation-summary", h.Escalation)
}

// Analyze handles POST /api/analyze
func (h *IncidentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Description == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "description is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.incidentService.Analyze(r.Context(), req.Description)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidIncident) {
			if err := ErrorResponse(w, http.StatusUnprocessableEntity, "invalid_incident",
				"Description does not look like an incident report"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Incident analysis failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "analyze_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LoadMore handles GET /api/solutions/{incident_id}
func (h *IncidentHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	incidentID := r.PathValue("incident_id")
	if incidentID == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "incident_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	page, err := h.incidentService.LoadMore(r.Context(), incidentID, offset, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "incident_not_found",
				"Incident data not found. Please refresh the page."); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to load more solutions",
			zap.String("incident_id", incidentID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "load_more_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: page}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Escalation handles POST /api/escalation-summary
func (h *IncidentHandler) Escalation(w http.ResponseWriter, r *http.Request) {
	var req EscalationRequest
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

	summary := h.escalation.Summary(req.IncidentID, req.Description, req.Analysis, req.Solutions)
	response := EscalationResponse{
		Summary:   summary,
		Templates: h.escalation.Templates(req.IncidentID, req.Description, summary),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
