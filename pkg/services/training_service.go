package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// TrainingService provides operations for historical incident training cases.
type TrainingService interface {
	Create(ctx context.Context, c *models.TrainingCase) error
	Update(ctx context.Context, c *models.TrainingCase) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.TrainingCase, error)
	List(ctx context.Context) ([]*models.TrainingCase, error)
	Search(ctx context.Context, term string, limit int) ([]*models.TrainingCase, error)

	// FindRelevant ranks validated cases against a query and returns at
	// most limit of them. Storage failures yield an empty result.
	FindRelevant(ctx context.Context, query string, limit int) []*models.TrainingCase
}

type trainingService struct {
	repo    repositories.TrainingRepository
	scoring config.ScoringConfig
	logger  *zap.Logger
}

// NewTrainingService creates a new TrainingService.
func NewTrainingService(repo repositories.TrainingRepository, scoring config.ScoringConfig, logger *zap.Logger) TrainingService {
	return &trainingService{
		repo:    repo,
		scoring: scoring,
		logger:  logger.Named("training-service"),
	}
}

var _ TrainingService = (*trainingService)(nil)

func (s *trainingService) Create(ctx context.Context, c *models.TrainingCase) error {
	if c.IncidentDescription == "" {
		return fmt.Errorf("incident description is required")
	}
	return s.repo.Create(ctx, c)
}

func (s *trainingService) Update(ctx context.Context, c *models.TrainingCase) error {
	if c.ID == 0 {
		return fmt.Errorf("training case id is required")
	}
	if c.IncidentDescription == "" {
		return fmt.Errorf("incident description is required")
	}
	return s.repo.Update(ctx, c)
}

func (s *trainingService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *trainingService) Get(ctx context.Context, id int64) (*models.TrainingCase, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *trainingService) List(ctx context.Context) ([]*models.TrainingCase, error) {
	return s.repo.List(ctx)
}

func (s *trainingService) Search(ctx context.Context, term string, limit int) ([]*models.TrainingCase, error) {
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.repo.Search(ctx, term, limit)
}

func (s *trainingService) FindRelevant(ctx context.Context, query string, limit int) []*models.TrainingCase {
	if query == "" || limit <= 0 {
		return nil
	}

	cases, err := s.repo.ListValidated(ctx)
	if err != nil {
		s.logger.Error("Failed to load training cases for retrieval", zap.Error(err))
		return nil
	}

	type scored struct {
		tc    *models.TrainingCase
		score float64
	}

	candidates := make([]scored, 0, len(cases))
	for _, tc := range cases {
		base := tc.Similarity(query)
		if base <= s.scoring.MinRelevance {
			continue
		}
		combined := base + float64(tc.UsefulnessCount)*s.scoring.UsefulnessBoost
		candidates = append(candidates, scored{tc: tc, score: combined})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]*models.TrainingCase, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.tc)
	}
	return results
}
