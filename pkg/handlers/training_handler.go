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

// TrainingListResponse for GET /api/training
type TrainingListResponse struct {
	Cases []*models.TrainingCase `json:"cases"`
	Total int                    `json:"total"`
}

// UpsertTrainingRequest for POST and PUT /api/training
type UpsertTrainingRequest struct {
	IncidentDescription string `json:"incident_description"`
	ExpectedType        string `json:"expected_incident_type,omitempty"`
	ExpectedRootCause   string `json:"expected_root_cause,omitempty"`
	ExpectedImpact      string `json:"expected_impact,omitempty"`
	ExpectedUrgency     string `json:"expected_urgency,omitempty"`
	Category            string `json:"category,omitempty"`
	Notes               string `json:"notes,omitempty"`
	IsValidated         bool   `json:"is_validated"`
}

// TrainingHandler handles training data HTTP requests.
type TrainingHandler struct {
	trainingService services.TrainingService
	logger          *zap.Logger
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(trainingService services.TrainingService, logger *zap.Logger) *TrainingHandler {
	return &TrainingHandler{trainingService: trainingService, logger: logger}
}

// RegisterRoutes registers the training handler's routes on the given mux.
func (h *TrainingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/training", h.List)
	mux.HandleFunc("POST /api/training", h.Create)
	mux.HandleFunc("GET /api/training/{id}", h.Get)
	mux.HandleFunc("PUT /api/training/{id}", h.Update)
	mux.HandleFunc("DELETE /api/training/{id}", h.Delete)
}

// List handles GET /api/training. An optional q parameter switches to
// search mode.
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		cases []*models.TrainingCase
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		cases, err = h.trainingService.Search(r.Context(), q, queryInt(r, "limit", 0))
	} else {
		cases, err = h.trainingService.List(r.Context())
	}
	if err != nil {
		h.logger.Error("Failed to list training cases", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_training_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := TrainingListResponse{Cases: cases, Total: len(cases)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/training/{id}
func (h *TrainingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "invalid case id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	tc, err := h.trainingService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "case_not_found", "Training case not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get training case", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_training_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tc}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/training
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.IncidentDescription == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "incident_description is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	tc := req.toCase()
	if err := h.trainingService.Create(r.Context(), tc); err != nil {
		h.logger.Error("Failed to create training case", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "create_training_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: tc}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/training/{id}
func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "invalid case id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req UpsertTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.IncidentDescription == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "incident_description is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	tc := req.toCase()
	tc.ID = id
	if err := h.trainingService.Update(r.Context(), tc); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "case_not_found", "Training case not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to update training case", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "update_training_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tc}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/training/{id}
func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "invalid case id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.trainingService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "case_not_found", "Training case not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete training case", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_training_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Training case deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (r UpsertTrainingRequest) toCase() *models.TrainingCase {
	return &models.TrainingCase{
		IncidentDescription: r.IncidentDescription,
		ExpectedType:        r.ExpectedType,
		ExpectedRootCause:   r.ExpectedRootCause,
		ExpectedImpact:      r.ExpectedImpact,
		ExpectedUrgency:     r.ExpectedUrgency,
		Category:            r.Category,
		Notes:               r.Notes,
		IsValidated:         r.IsValidated,
	}
}
