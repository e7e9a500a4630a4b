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

// RCARepository provides data access for persisted root-cause analyses.
type RCARepository interface {
	Create(ctx context.Context, rca *models.RootCauseAnalysis) error
	GetByIncidentID(ctx context.Context, incidentID string) (*models.RootCauseAnalysis, error)
	List(ctx context.Context, limit int) ([]*models.RootCauseAnalysis, error)
	Delete(ctx context.Context, incidentID string) error
	UpdateResolution(ctx context.Context, incidentID, resolutionStatus string, resolvedAt *time.Time) error
}

type rcaRepository struct {
	db *database.DB
}

// NewRCARepository creates a new RCARepository.
func NewRCARepository(db *database.DB) RCARepository {
	return &rcaRepository{db: db}
}

var _ RCARepository = (*rcaRepository)(nil)

const rcaColumns = `id, incident_id, incident_description, incident_start, incident_end,
	affected_systems, root_cause, confidence_score, evidence, contributing_factors,
	similar_incidents, recommended_solutions, sop_references, timeline,
	status, resolution_status, resolved_at, created_at`

func (r *rcaRepository) Create(ctx context.Context, rca *models.RootCauseAnalysis) error {
	query := `
		INSERT INTO root_cause_analyses (
			incident_id, incident_description, incident_start, incident_end,
			affected_systems, root_cause, confidence_score, evidence,
			contributing_factors, similar_incidents, recommended_solutions,
			sop_references, timeline, status, resolution_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		rca.IncidentID,
		rca.IncidentDescription,
		rca.IncidentStart,
		rca.IncidentEnd,
		jsonbValue(rca.AffectedSystems),
		rca.RootCause,
		rca.ConfidenceScore,
		jsonbValue(rca.Evidence),
		jsonbValue(rca.ContributingFactors),
		jsonbSlice(rca.SimilarIncidents),
		jsonbSlice(rca.RecommendedSolutions),
		jsonbValue(rca.SOPReferences),
		jsonbSlice(rca.Timeline),
		rca.Status,
		rca.ResolutionStatus,
		time.Now(),
	).Scan(&rca.ID, &rca.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create root cause analysis: %w", err)
	}

	return nil
}

func (r *rcaRepository) GetByIncidentID(ctx context.Context, incidentID string) (*models.RootCauseAnalysis, error) {
	query := `SELECT ` + rcaColumns + ` FROM root_cause_analyses WHERE incident_id = $1`

	rca, err := scanRCA(r.db.QueryRow(ctx, query, incidentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get root cause analysis: %w", err)
	}
	return rca, nil
}

func (r *rcaRepository) List(ctx context.Context, limit int) ([]*models.RootCauseAnalysis, error) {
	query := `SELECT ` + rcaColumns + ` FROM root_cause_analyses ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list root cause analyses: %w", err)
	}
	defer rows.Close()

	var out []*models.RootCauseAnalysis
	for rows.Next() {
		rca, err := scanRCA(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan root cause analysis: %w", err)
		}
		out = append(out, rca)
	}
	return out, rows.Err()
}

func (r *rcaRepository) Delete(ctx context.Context, incidentID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM root_cause_analyses WHERE incident_id = $1`, incidentID)
	if err != nil {
		return fmt.Errorf("failed to delete root cause analysis: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *rcaRepository) UpdateResolution(ctx context.Context, incidentID, resolutionStatus string, resolvedAt *time.Time) error {
	query := `
		UPDATE root_cause_analyses
		SET resolution_status = $2, resolved_at = $3
		WHERE incident_id = $1`

	result, err := r.db.Exec(ctx, query, incidentID, resolutionStatus, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update resolution status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanRCA(row pgx.Row) (*models.RootCauseAnalysis, error) {
	var rca models.RootCauseAnalysis
	err := row.Scan(
		&rca.ID,
		&rca.IncidentID,
		&rca.IncidentDescription,
		&rca.IncidentStart,
		&rca.IncidentEnd,
		&rca.AffectedSystems,
		&rca.RootCause,
		&rca.ConfidenceScore,
		&rca.Evidence,
		&rca.ContributingFactors,
		&rca.SimilarIncidents,
		&rca.RecommendedSolutions,
		&rca.SOPReferences,
		&rca.Timeline,
		&rca.Status,
		&rca.ResolutionStatus,
		&rca.ResolvedAt,
		&rca.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rca, nil
}

// jsonbValue converts a string slice to JSONB format for database insertion.
// Returns nil for nil/empty slices to store NULL in the database.
func jsonbValue(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

// jsonbSlice converts typed slices to JSONB, storing NULL when empty.
func jsonbSlice[T any](v []T) any {
	if len(v) == 0 {
		return nil
	}
	return v
}
