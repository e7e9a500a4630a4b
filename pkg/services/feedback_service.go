package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
)

// FeedbackService maintains the usefulness ledger: operators mark solutions
// that worked, and the counters feed back into ranking. Marks against a
// knowledge or training source also adjust that source's own counter.
type FeedbackService interface {
	// MarkUseful increments the counter for a solution identity and
	// returns the new count. Marking the same solution again is allowed
	// and counts every time.
	MarkUseful(ctx context.Context, fb *models.SolutionFeedback) (int, error)

	// UnmarkUseful decrements the counter or removes the row entirely
	// when it would reach zero. Unmarking a solution that was never
	// marked is a no-op.
	UnmarkUseful(ctx context.Context, description string, order int, src models.SolutionSource) error

	ListVerified(ctx context.Context) ([]*models.SolutionFeedback, error)

	// VerifiedMatch finds a positively marked feedback row whose solution
	// text matches the description (either containing the other). Returns
	// false when nothing matches or the ledger cannot be read.
	VerifiedMatch(ctx context.Context, description string) (*models.SolutionFeedback, bool)
}

type feedbackService struct {
	repo      repositories.FeedbackRepository
	knowledge repositories.KnowledgeRepository
	training  repositories.TrainingRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(repo repositories.FeedbackRepository, knowledge repositories.KnowledgeRepository,
	training repositories.TrainingRepository, logger *zap.Logger) FeedbackService {
	return &feedbackService{
		repo:      repo,
		knowledge: knowledge,
		training:  training,
		logger:    logger.Named("feedback-service"),
		now:       time.Now,
	}
}

var _ FeedbackService = (*feedbackService)(nil)

func (s *feedbackService) MarkUseful(ctx context.Context, fb *models.SolutionFeedback) (int, error) {
	if fb.SolutionDescription == "" {
		return 0, fmt.Errorf("solution description is required: %w", apperrors.ErrInvalidInput)
	}
	if fb.MarkedAt.IsZero() {
		fb.MarkedAt = s.now()
	}

	count, err := s.repo.Mark(ctx, fb)
	if err != nil {
		return 0, fmt.Errorf("mark solution useful: %w", err)
	}

	s.adjustSource(ctx, fb.KnowledgeBaseID, fb.TrainingDataID, 1)

	s.logger.Info("Solution marked useful",
		zap.String("solution", fb.SolutionDescription),
		zap.Int("usefulness_count", count))
	return count, nil
}

func (s *feedbackService) UnmarkUseful(ctx context.Context, description string, order int, src models.SolutionSource) error {
	err := s.repo.Unmark(ctx, description, order, src)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// Never marked: nothing to undo.
			s.logger.Debug("Unmark for unknown solution ignored",
				zap.String("solution", description))
			return nil
		}
		return fmt.Errorf("unmark solution: %w", err)
	}

	s.adjustSource(ctx, src.KnowledgeBaseID, src.TrainingDataID, -1)
	return nil
}

func (s *feedbackService) ListVerified(ctx context.Context) ([]*models.SolutionFeedback, error) {
	return s.repo.ListPositive(ctx)
}

func (s *feedbackService) VerifiedMatch(ctx context.Context, description string) (*models.SolutionFeedback, bool) {
	lower := strings.ToLower(strings.TrimSpace(description))
	if lower == "" {
		return nil, false
	}

	rows, err := s.repo.ListPositive(ctx)
	if err != nil {
		s.logger.Warn("Failed to load feedback ledger", zap.Error(err))
		return nil, false
	}
	for _, fb := range rows {
		fbLower := strings.ToLower(fb.SolutionDescription)
		if fbLower == "" {
			continue
		}
		if strings.Contains(fbLower, lower) || strings.Contains(lower, fbLower) {
			return fb, true
		}
	}
	return nil, false
}

// adjustSource forwards a usefulness delta to the originating corpus row.
// Best-effort: the ledger row is already updated and a failed propagation
// only skews the source ordering, so it is logged and not returned.
func (s *feedbackService) adjustSource(ctx context.Context, knowledgeID, trainingID *int64, delta int) {
	if knowledgeID != nil {
		if err := s.knowledge.AdjustUsefulness(ctx, *knowledgeID, delta); err != nil {
			s.logger.Warn("Failed to adjust knowledge usefulness",
				zap.Int64("knowledge_base_id", *knowledgeID),
				zap.Error(err))
		}
	}
	if trainingID != nil {
		if err := s.training.AdjustUsefulness(ctx, *trainingID, delta); err != nil {
			s.logger.Warn("Failed to adjust training usefulness",
				zap.Int64("training_data_id", *trainingID),
				zap.Error(err))
		}
	}
}
