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

// MarkFeedbackRequest for POST /api/feedback/mark
type MarkFeedbackRequest struct {
	IncidentDescription string `json:"incident_description"`
	SolutionDescription string `json:"solution_description"`
	SolutionOrder       int    `json:"solution_order"`
	KnowledgeBaseID     *int64 `json:"knowledge_base_id,omitempty"`
	TrainingDataID      *int64 `json:"training_data_id,omitempty"`
	RCAID               *int64 `json:"rca_id,omitempty"`
}

// UnmarkFeedbackRequest for POST /api/feedback/unmark
type UnmarkFeedbackRequest struct {
	SolutionDescription string `json:"solution_description"`
	SolutionOrder       int    `json:"solution_order"`
	KnowledgeBaseID     *int64 `json:"knowledge_base_id,omitempty"`
	TrainingDataID      *int64 `json:"training_data_id,omitempty"`
	RCAID               *int64 `json:"rca_id,omitempty"`
}

// MarkFeedbackResponse for POST /api/feedback/mark
type MarkFeedbackResponse struct {
	UsefulnessCount int `json:"usefulness_count"`
}

// VerifiedFeedbackResponse for GET /api/feedback/verified
type VerifiedFeedbackResponse struct {
	Solutions []*models.SolutionFeedback `json:"solutions"`
	Total     int                        `json:"total"`
}

// FeedbackHandler handles solution usefulness HTTP requests.
type FeedbackHandler struct {
	feedbackService services.FeedbackService
	logger          *zap.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(feedbackService services.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService, logger: logger}
}

// RegisterRoutes registers the feedback handler's routes on the given mux.
func (h *FeedbackHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/feedback/mark", h.Mark)
	mux.HandleFunc("POST /api/feedback/unmark", h.Unmark)
	mux.HandleFunc("GET /api/feedback/verified", h.Verified)
}

// Mark handles POST /api/feedback/mark
func (h *FeedbackHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	count, err := h.feedbackService.MarkUseful(r.Context(), &models.SolutionFeedback{
		IncidentDescription: req.IncidentDescription,
		SolutionDescription: req.SolutionDescription,
		SolutionOrder:       req.SolutionOrder,
		KnowledgeBaseID:     req.KnowledgeBaseID,
		TrainingDataID:      req.TrainingDataID,
		RCAID:               req.RCAID,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to mark solution useful", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "mark_feedback_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := MarkFeedbackResponse{UsefulnessCount: count}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Unmark handles POST /api/feedback/unmark
func (h *FeedbackHandler) Unmark(w http.ResponseWriter, r *http.Request) {
	var req UnmarkFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.SolutionDescription == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "solution_description is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	src := models.SolutionSource{
		KnowledgeBaseID: req.KnowledgeBaseID,
		TrainingDataID:  req.TrainingDataID,
		RCAID:           req.RCAID,
	}
	if err := h.feedbackService.UnmarkUseful(r.Context(), req.SolutionDescription, req.SolutionOrder, src); err != nil {
		h.logger.Error("Failed to unmark solution", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "unmark_feedback_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Feedback removed"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Verified handles GET /api/feedback/verified
func (h *FeedbackHandler) Verified(w http.ResponseWriter, r *http.Request) {
	rows, err := h.feedbackService.ListVerified(r.Context())
	if err != nil {
		h.logger.Error("Failed to list verified solutions", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_feedback_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := VerifiedFeedbackResponse{Solutions: rows, Total: len(rows)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
