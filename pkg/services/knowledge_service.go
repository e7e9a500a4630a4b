package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// KnowledgeService provides operations for knowledge base entries.
type KnowledgeService interface {
	Create(ctx context.Context, entry *models.KnowledgeEntry) error
	Update(ctx context.Context, entry *models.KnowledgeEntry) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.KnowledgeEntry, error)
	List(ctx context.Context) ([]*models.KnowledgeEntry, error)
	Search(ctx context.Context, term string, limit int) ([]*models.KnowledgeEntry, error)
	Import(ctx context.Context, entries []*models.KnowledgeEntry) (int, error)

	// FindRelevant ranks active entries against a query and returns at
	// most limit of them. Retrieval is advisory: storage failures yield
	// an empty result rather than an error.
	FindRelevant(ctx context.Context, query string, limit int) []*models.KnowledgeEntry
}

type knowledgeService struct {
	repo    repositories.KnowledgeRepository
	scoring config.ScoringConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewKnowledgeService creates a new KnowledgeService.
func NewKnowledgeService(repo repositories.KnowledgeRepository, scoring config.ScoringConfig, logger *zap.Logger) KnowledgeService {
	return &knowledgeService{
		repo:    repo,
		scoring: scoring,
		logger:  logger.Named("knowledge-service"),
		now:     time.Now,
	}
}

var _ KnowledgeService = (*knowledgeService)(nil)

// defaultSearchLimit bounds corpus searches when the caller does not pick a
// page size.
const defaultSearchLimit = 50

func (s *knowledgeService) Create(ctx context.Context, entry *models.KnowledgeEntry) error {
	if entry.Title == "" {
		return fmt.Errorf("knowledge entry title is required")
	}
	if entry.Content == "" {
		return fmt.Errorf("knowledge entry content is required")
	}
	if entry.Status == "" {
		entry.Status = models.KnowledgeStatusActive
	}
	return s.repo.Create(ctx, entry)
}

func (s *knowledgeService) Update(ctx context.Context, entry *models.KnowledgeEntry) error {
	if entry.ID == 0 {
		return fmt.Errorf("knowledge entry id is required")
	}
	if entry.Title == "" {
		return fmt.Errorf("knowledge entry title is required")
	}
	return s.repo.Update(ctx, entry)
}

func (s *knowledgeService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *knowledgeService) Get(ctx context.Context, id int64) (*models.KnowledgeEntry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *knowledgeService) List(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	return s.repo.List(ctx)
}

func (s *knowledgeService) Search(ctx context.Context, term string, limit int) ([]*models.KnowledgeEntry, error) {
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.repo.Search(ctx, term, limit)
}

func (s *knowledgeService) Import(ctx context.Context, entries []*models.KnowledgeEntry) (int, error) {
	imported := 0
	for _, entry := range entries {
		if err := s.Create(ctx, entry); err != nil {
			s.logger.Warn("Skipping knowledge entry during import",
				zap.String("title", entry.Title),
				zap.Error(err))
			continue
		}
		imported++
	}
	if imported == 0 && len(entries) > 0 {
		return 0, fmt.Errorf("no entries could be imported")
	}
	return imported, nil
}

func (s *knowledgeService) FindRelevant(ctx context.Context, query string, limit int) []*models.KnowledgeEntry {
	if query == "" || limit <= 0 {
		return nil
	}

	entries, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load knowledge base for retrieval", zap.Error(err))
		return nil
	}

	now := s.now()
	type scored struct {
		entry *models.KnowledgeEntry
		score float64
	}

	candidates := make([]scored, 0, len(entries))
	for _, entry := range entries {
		base := entry.Relevance(query, now)
		if base <= s.scoring.MinRelevance {
			continue
		}
		combined := base + float64(entry.UsefulnessCount)*s.scoring.UsefulnessBoost
		candidates = append(candidates, scored{entry: entry, score: combined})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]*models.KnowledgeEntry, 0, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.entry)
		ids = append(ids, c.entry.ID)
	}

	if len(ids) > 0 {
		if err := s.repo.TouchUsage(ctx, ids, now); err != nil {
			s.logger.Warn("Failed to record knowledge usage", zap.Error(err))
		}
	}
	return results
}
