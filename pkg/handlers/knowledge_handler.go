package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/services"
)

// KnowledgeListResponse for GET /api/knowledge
type KnowledgeListResponse struct {
	Entries []*models.KnowledgeEntry `json:"entries"`
	Total   int                      `json:"total"`
}

// UpsertKnowledgeRequest for POST and PUT /api/knowledge
type UpsertKnowledgeRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	Type     string `json:"type,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Priority int    `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
}

// ImportKnowledgeRequest for POST /api/knowledge/import. Each document is
// plain content; keywords and type are inferred when absent.
type ImportKnowledgeRequest struct {
	Documents []UpsertKnowledgeRequest `json:"documents"`
}

// ImportKnowledgeResponse for POST /api/knowledge/import
type ImportKnowledgeResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

const importKeywordLimit = 20

// KnowledgeHandler handles knowledge base HTTP requests.
type KnowledgeHandler struct {
	knowledgeService services.KnowledgeService
	logger           *zap.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(knowledgeService services.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService, logger: logger}
}

// RegisterRoutes registers the knowledge handler's routes on the given mux.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/knowledge", h.List)
	mux.HandleFunc("POST /api/knowledge", h.Create)
	mux.HandleFunc("POST /api/knowledge/import", h.Import)
	mux.HandleFunc("GET /api/knowledge/{id}", h.Get)
	mux.HandleFunc("PUT /api/knowledge/{id}", h.Update)
	mux.HandleFunc("DELETE /api/knowledge/{id}", h.Delete)
}

// List handles GET /api/knowledge. An optional q parameter switches to
// search mode.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		entries []*models.KnowledgeEntry
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		entries, err = h.knowledgeService.Search(r.Context(), q, queryInt(r, "limit", 0))
	} else {
		entries, err = h.knowledgeService.List(r.Context())
	}
	if err != nil {
		h.logger.Error("Failed to list knowledge entries", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := KnowledgeListResponse{Entries: entries, Total: len(entries)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/knowledge/{id}
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "invalid entry id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry, err := h.knowledgeService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Knowledge entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get knowledge entry", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/knowledge
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Title == "" || req.Content == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "title and content are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry := req.toEntry()
	if err := h.knowledgeService.Create(r.Context(), entry); err != nil {
		h.logger.Error("Failed to create knowledge entry",
			zap.String("title", req.Title),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "create_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/knowledge/{id}
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "invalid entry id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req UpsertKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Title == "" || req.Content == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "title and content are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry := req.toEntry()
	entry.ID = id
	if err := h.knowledgeService.Update(r.Context(), entry); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Knowledge entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to update knowledge entry", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "update_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/knowledge/{id}
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "invalid entry id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.knowledgeService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Knowledge entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete knowledge entry", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Knowledge entry deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Import handles POST /api/knowledge/import
func (h *KnowledgeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if len(req.Documents) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "documents are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entries := make([]*models.KnowledgeEntry, 0, len(req.Documents))
	for _, doc := range req.Documents {
		entries = append(entries, doc.toEntry())
	}

	imported, err := h.knowledgeService.Import(r.Context(), entries)
	if err != nil {
		h.logger.Error("Knowledge import failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "import_knowledge_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ImportKnowledgeResponse{Imported: imported, Skipped: len(entries) - imported}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// toEntry converts the request to a model, inferring keywords and type
// from the content when the caller left them out.
func (r UpsertKnowledgeRequest) toEntry() *models.KnowledgeEntry {
	keywords := r.Keywords
	if keywords == "" {
		harvested := services.ExtractKeywords(r.Title + " " + r.Content)
		if len(harvested) > importKeywordLimit {
			harvested = harvested[:importKeywordLimit]
		}
		keywords = strings.Join(harvested, ", ")
	}

	entryType := r.Type
	if entryType == "" {
		entryType = inferEntryType(r.Content)
	}

	return &models.KnowledgeEntry{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		Type:     entryType,
		Keywords: keywords,
		Priority: r.Priority,
		Status:   r.Status,
	}
}

// inferEntryType classifies content as a step-by-step procedure or plain
// reference material.
func inferEntryType(content string) string {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "step") || strings.Contains(lower, "1.") || strings.Contains(lower, "procedure") {
		return "Procedure"
	}
	return "Reference"
}
