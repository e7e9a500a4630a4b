package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/database"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// FeedbackRepository is the persistence port of the usefulness ledger.
// Identity of a feedback row is the tuple (solution_description,
// solution_order, knowledge_base_id, training_data_id, rca_id); the table
// carries a unique expression index over it so concurrent marks for the
// same tuple collapse into one row.
type FeedbackRepository interface {
	// Mark upserts the identity tuple, incrementing its counter, and
	// returns the new usefulness count.
	Mark(ctx context.Context, fb *models.SolutionFeedback) (int, error)
	// Unmark decrements the counter or deletes the row when it would
	// reach zero. Returns apperrors.ErrNotFound when no row matches.
	Unmark(ctx context.Context, description string, order int, src models.SolutionSource) error
	// Find returns the row for an identity tuple, or ErrNotFound.
	Find(ctx context.Context, description string, order int, src models.SolutionSource) (*models.SolutionFeedback, error)
	// ListPositive returns all rows with a positive usefulness count,
	// used by the fusion engine's verified-solution matching.
	ListPositive(ctx context.Context) ([]*models.SolutionFeedback, error)
}

type feedbackRepository struct {
	db *database.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *database.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

func (r *feedbackRepository) Mark(ctx context.Context, fb *models.SolutionFeedback) (int, error) {
	query := `
		INSERT INTO solution_feedback (
			incident_description, solution_description, solution_order,
			knowledge_base_id, training_data_id, rca_id, usefulness_count, marked_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		ON CONFLICT (solution_description, solution_order,
		             COALESCE(knowledge_base_id, 0), COALESCE(training_data_id, 0), COALESCE(rca_id, 0))
		DO UPDATE SET
			usefulness_count = solution_feedback.usefulness_count + 1,
			marked_at = EXCLUDED.marked_at,
			incident_description = EXCLUDED.incident_description
		RETURNING id, usefulness_count`

	err := r.db.QueryRow(ctx, query,
		fb.IncidentDescription,
		fb.SolutionDescription,
		fb.SolutionOrder,
		fb.KnowledgeBaseID,
		fb.TrainingDataID,
		fb.RCAID,
		time.Now(),
	).Scan(&fb.ID, &fb.UsefulnessCount)
	if err != nil {
		return 0, fmt.Errorf("failed to mark solution useful: %w", err)
	}

	return fb.UsefulnessCount, nil
}

func (r *feedbackRepository) Unmark(ctx context.Context, description string, order int, src models.SolutionSource) error {
	// Decrement and delete must be one atomic decision per identity tuple.
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unmark transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const identity = `
		solution_description = $1 AND solution_order = $2
		AND knowledge_base_id IS NOT DISTINCT FROM $3
		AND training_data_id IS NOT DISTINCT FROM $4
		AND rca_id IS NOT DISTINCT FROM $5`

	result, err := tx.Exec(ctx, `
		UPDATE solution_feedback
		SET usefulness_count = usefulness_count - 1
		WHERE usefulness_count > 1 AND `+identity,
		description, order, src.KnowledgeBaseID, src.TrainingDataID, src.RCAID)
	if err != nil {
		return fmt.Errorf("failed to decrement feedback: %w", err)
	}

	if result.RowsAffected() == 0 {
		result, err = tx.Exec(ctx, `
			DELETE FROM solution_feedback
			WHERE usefulness_count <= 1 AND `+identity,
			description, order, src.KnowledgeBaseID, src.TrainingDataID, src.RCAID)
		if err != nil {
			return fmt.Errorf("failed to delete feedback: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit unmark: %w", err)
	}
	return nil
}

func (r *feedbackRepository) Find(ctx context.Context, description string, order int, src models.SolutionSource) (*models.SolutionFeedback, error) {
	query := `
		SELECT id, incident_description, solution_description, solution_order,
		       knowledge_base_id, training_data_id, rca_id, usefulness_count, marked_at
		FROM solution_feedback
		WHERE solution_description = $1 AND solution_order = $2
		  AND knowledge_base_id IS NOT DISTINCT FROM $3
		  AND training_data_id IS NOT DISTINCT FROM $4
		  AND rca_id IS NOT DISTINCT FROM $5`

	var fb models.SolutionFeedback
	err := r.db.QueryRow(ctx, query, description, order, src.KnowledgeBaseID, src.TrainingDataID, src.RCAID).Scan(
		&fb.ID,
		&fb.IncidentDescription,
		&fb.SolutionDescription,
		&fb.SolutionOrder,
		&fb.KnowledgeBaseID,
		&fb.TrainingDataID,
		&fb.RCAID,
		&fb.UsefulnessCount,
		&fb.MarkedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find feedback: %w", err)
	}
	return &fb, nil
}

func (r *feedbackRepository) ListPositive(ctx context.Context) ([]*models.SolutionFeedback, error) {
	query := `
		SELECT id, incident_description, solution_description, solution_order,
		       knowledge_base_id, training_data_id, rca_id, usefulness_count, marked_at
		FROM solution_feedback
		WHERE usefulness_count > 0
		ORDER BY usefulness_count DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []*models.SolutionFeedback
	for rows.Next() {
		var fb models.SolutionFeedback
		err := rows.Scan(
			&fb.ID,
			&fb.IncidentDescription,
			&fb.SolutionDescription,
			&fb.SolutionOrder,
			&fb.KnowledgeBaseID,
			&fb.TrainingDataID,
			&fb.RCAID,
			&fb.UsefulnessCount,
			&fb.MarkedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, &fb)
	}
	return out, rows.Err()
}
