package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/apperrors"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/database"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// TrainingRepository provides data access for labeled training cases.
type TrainingRepository interface {
	Create(ctx context.Context, c *models.TrainingCase) error
	Update(ctx context.Context, c *models.TrainingCase) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.TrainingCase, error)
	List(ctx context.Context) ([]*models.TrainingCase, error)
	ListValidated(ctx context.Context) ([]*models.TrainingCase, error)
	Search(ctx context.Context, term string, limit int) ([]*models.TrainingCase, error)
	AdjustUsefulness(ctx context.Context, id int64, delta int) error
}

type trainingRepository struct {
	db *database.DB
}

// NewTrainingRepository creates a new TrainingRepository.
func NewTrainingRepository(db *database.DB) TrainingRepository {
	return &trainingRepository{db: db}
}

var _ TrainingRepository = (*trainingRepository)(nil)

const trainingColumns = `id, incident_description, expected_incident_type, expected_root_cause,
	expected_impact, expected_urgency, expected_affected_systems, category, notes,
	is_validated, usefulness_count, created_at, updated_at`

func (r *trainingRepository) Create(ctx context.Context, c *models.TrainingCase) error {
	now := time.Now()

	query := `
		INSERT INTO training_data (
			incident_description, expected_incident_type, expected_root_cause,
			expected_impact, expected_urgency, expected_affected_systems,
			category, notes, is_validated, usefulness_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $10)
		RETURNING id, usefulness_count, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.IncidentDescription,
		c.ExpectedType,
		c.ExpectedRootCause,
		c.ExpectedImpact,
		c.ExpectedUrgency,
		c.AffectedSystemsRaw,
		c.Category,
		c.Notes,
		c.IsValidated,
		now,
	).Scan(&c.ID, &c.UsefulnessCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create training case: %w", err)
	}

	return nil
}

func (r *trainingRepository) Update(ctx context.Context, c *models.TrainingCase) error {
	query := `
		UPDATE training_data
		SET incident_description = $2, expected_incident_type = $3,
		    expected_root_cause = $4, expected_impact = $5, expected_urgency = $6,
		    expected_affected_systems = $7, category = $8, notes = $9,
		    is_validated = $10, updated_at = $11
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		c.ID,
		c.IncidentDescription,
		c.ExpectedType,
		c.ExpectedRootCause,
		c.ExpectedImpact,
		c.ExpectedUrgency,
		c.AffectedSystemsRaw,
		c.Category,
		c.Notes,
		c.IsValidated,
		time.Now(),
	).Scan(&c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update training case: %w", err)
	}

	return nil
}

func (r *trainingRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM training_data WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete training case: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *trainingRepository) GetByID(ctx context.Context, id int64) (*models.TrainingCase, error) {
	query := `SELECT ` + trainingColumns + ` FROM training_data WHERE id = $1`

	c, err := scanTraining(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get training case: %w", err)
	}
	return c, nil
}

func (r *trainingRepository) List(ctx context.Context) ([]*models.TrainingCase, error) {
	query := `SELECT ` + trainingColumns + ` FROM training_data ORDER BY updated_at DESC`
	return r.queryMany(ctx, query)
}

func (r *trainingRepository) ListValidated(ctx context.Context) ([]*models.TrainingCase, error) {
	query := `SELECT ` + trainingColumns + ` FROM training_data WHERE is_validated = TRUE`
	return r.queryMany(ctx, query)
}

// Search matches term case-insensitively against description, root cause,
// notes and category. Only validated cases are returned.
func (r *trainingRepository) Search(ctx context.Context, term string, limit int) ([]*models.TrainingCase, error) {
	query := `
		SELECT ` + trainingColumns + `
		FROM training_data
		WHERE is_validated = TRUE
		  AND (incident_description ILIKE $1 OR expected_root_cause ILIKE $1
		       OR notes ILIKE $1 OR category ILIKE $1)
		ORDER BY usefulness_count DESC, updated_at DESC
		LIMIT $2`

	return r.queryMany(ctx, query, "%"+term+"%", limit)
}

func (r *trainingRepository) AdjustUsefulness(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE training_data
		SET usefulness_count = GREATEST(usefulness_count + $2, 0)
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust training usefulness: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *trainingRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.TrainingCase, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query training cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.TrainingCase
	for rows.Next() {
		c, err := scanTraining(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func scanTraining(row pgx.Row) (*models.TrainingCase, error) {
	var c models.TrainingCase
	err := row.Scan(
		&c.ID,
		&c.IncidentDescription,
		&c.ExpectedType,
		&c.ExpectedRootCause,
		&c.ExpectedImpact,
		&c.ExpectedUrgency,
		&c.AffectedSystemsRaw,
		&c.Category,
		&c.Notes,
		&c.IsValidated,
		&c.UsefulnessCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
