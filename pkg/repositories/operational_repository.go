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

// OperationalRepository is the read-only port into the terminal's
// operational tables. Schema ownership is external; this engine never
// writes these tables.
type OperationalRepository interface {
	GetContainerVersions(ctx context.Context, containerNumber string) ([]models.Container, error)
	GetVesselByName(ctx context.Context, name string) (*models.Vessel, error)
	GetVesselByIMO(ctx context.Context, imo string) (*models.Vessel, error)
	GetAdvicesByVessel(ctx context.Context, systemName string) ([]models.VesselAdvice, error)
	GetEDIByRef(ctx context.Context, messageRef string) (*models.EDIMessage, error)
	GetEDIErrorsInWindow(ctx context.Context, start, end time.Time, limit int) ([]models.EDIMessage, error)
	GetFailedAPIEvents(ctx context.Context, start, end time.Time) ([]models.APIEvent, error)
	GetAPIEventsByCorrelation(ctx context.Context, correlationID string) ([]models.APIEvent, error)
	GetBerthApplications(ctx context.Context, vesselName string) ([]models.BerthApplication, error)
}

type operationalRepository struct {
	db *database.DB
}

// NewOperationalRepository creates a new OperationalRepository.
func NewOperationalRepository(db *database.DB) OperationalRepository {
	return &operationalRepository{db: db}
}

var _ OperationalRepository = (*operationalRepository)(nil)

// GetContainerVersions returns all versioned rows for a container number,
// oldest first. Multiple rows are expected input for duplication analysis,
// not an error.
func (r *operationalRepository) GetContainerVersions(ctx context.Context, containerNumber string) ([]models.Container, error) {
	query := `
		SELECT id, container_number, status, vessel_name, origin, destination, created_at
		FROM containers
		WHERE UPPER(container_number) = UPPER($1)
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, containerNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query container versions: %w", err)
	}
	defer rows.Close()

	var containers []models.Container
	for rows.Next() {
		var c models.Container
		if err := rows.Scan(&c.ID, &c.ContainerNumber, &c.Status, &c.VesselName, &c.Origin, &c.Destination, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan container: %w", err)
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

// GetVesselByName resolves a free-text vessel mention (for example
// "MV Ever Given") to its registry row via case-insensitive match on either
// the display or system name.
func (r *operationalRepository) GetVesselByName(ctx context.Context, name string) (*models.Vessel, error) {
	query := `
		SELECT id, name, system_name, imo_number, flag, created_at
		FROM vessels
		WHERE name ILIKE $1 OR system_name ILIKE $1
		LIMIT 1`

	return r.scanVessel(r.db.QueryRow(ctx, query, "%"+name+"%"))
}

func (r *operationalRepository) GetVesselByIMO(ctx context.Context, imo string) (*models.Vessel, error) {
	query := `
		SELECT id, name, system_name, imo_number, flag, created_at
		FROM vessels
		WHERE imo_number = $1`

	return r.scanVessel(r.db.QueryRow(ctx, query, imo))
}

// GetAdvicesByVessel returns advisory rows newest first.
func (r *operationalRepository) GetAdvicesByVessel(ctx context.Context, systemName string) ([]models.VesselAdvice, error) {
	query := `
		SELECT id, vessel_name, advice_number, effective_start_datetime, effective_end_datetime, created_at
		FROM vessel_advices
		WHERE UPPER(vessel_name) = UPPER($1)
		ORDER BY effective_start_datetime DESC`

	rows, err := r.db.Query(ctx, query, systemName)
	if err != nil {
		return nil, fmt.Errorf("failed to query vessel advices: %w", err)
	}
	defer rows.Close()

	var advices []models.VesselAdvice
	for rows.Next() {
		var a models.VesselAdvice
		if err := rows.Scan(&a.ID, &a.VesselName, &a.AdviceNumber, &a.EffectiveStart, &a.EffectiveEnd, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vessel advice: %w", err)
		}
		advices = append(advices, a)
	}
	return advices, rows.Err()
}

func (r *operationalRepository) GetEDIByRef(ctx context.Context, messageRef string) (*models.EDIMessage, error) {
	query := `
		SELECT id, message_type, message_ref, status, error_text, container_number, partner, created_at
		FROM edi_messages
		WHERE UPPER(message_ref) = UPPER($1)`

	var m models.EDIMessage
	err := r.db.QueryRow(ctx, query, messageRef).Scan(
		&m.ID, &m.MessageType, &m.MessageRef, &m.Status, &m.ErrorText, &m.ContainerNumber, &m.Partner, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get EDI message: %w", err)
	}
	return &m, nil
}

// GetEDIErrorsInWindow returns messages in ERROR status inside the window,
// newest first.
func (r *operationalRepository) GetEDIErrorsInWindow(ctx context.Context, start, end time.Time, limit int) ([]models.EDIMessage, error) {
	query := `
		SELECT id, message_type, message_ref, status, error_text, container_number, partner, created_at
		FROM edi_messages
		WHERE status = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, models.EDIStatusError, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query EDI errors: %w", err)
	}
	defer rows.Close()

	var messages []models.EDIMessage
	for rows.Next() {
		var m models.EDIMessage
		if err := rows.Scan(&m.ID, &m.MessageType, &m.MessageRef, &m.Status, &m.ErrorText, &m.ContainerNumber, &m.Partner, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan EDI message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetFailedAPIEvents returns events with HTTP status >= 400 inside the
// window, ordered by event time ascending. Cascade grouping relies on this
// ordering.
func (r *operationalRepository) GetFailedAPIEvents(ctx context.Context, start, end time.Time) ([]models.APIEvent, error) {
	query := `
		SELECT id, correlation_id, endpoint, http_status, error_text, event_ts
		FROM api_events
		WHERE http_status >= 400 AND event_ts BETWEEN $1 AND $2
		ORDER BY event_ts ASC`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query API events: %w", err)
	}
	defer rows.Close()

	var events []models.APIEvent
	for rows.Next() {
		var e models.APIEvent
		if err := rows.Scan(&e.ID, &e.CorrelationID, &e.Endpoint, &e.HTTPStatus, &e.ErrorText, &e.EventTS); err != nil {
			return nil, fmt.Errorf("failed to scan API event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetAPIEventsByCorrelation returns the full trace for a correlation ID,
// oldest first.
func (r *operationalRepository) GetAPIEventsByCorrelation(ctx context.Context, correlationID string) ([]models.APIEvent, error) {
	query := `
		SELECT id, correlation_id, endpoint, http_status, error_text, event_ts
		FROM api_events
		WHERE correlation_id = $1
		ORDER BY event_ts ASC`

	rows, err := r.db.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query API events by correlation: %w", err)
	}
	defer rows.Close()

	var events []models.APIEvent
	for rows.Next() {
		var e models.APIEvent
		if err := rows.Scan(&e.ID, &e.CorrelationID, &e.Endpoint, &e.HTTPStatus, &e.ErrorText, &e.EventTS); err != nil {
			return nil, fmt.Errorf("failed to scan API event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *operationalRepository) GetBerthApplications(ctx context.Context, vesselName string) ([]models.BerthApplication, error) {
	query := `
		SELECT id, vessel_name, advice_number, berth_number, status, applied_at
		FROM berth_applications
		WHERE UPPER(vessel_name) = UPPER($1)
		ORDER BY applied_at DESC`

	rows, err := r.db.Query(ctx, query, vesselName)
	if err != nil {
		return nil, fmt.Errorf("failed to query berth applications: %w", err)
	}
	defer rows.Close()

	var apps []models.BerthApplication
	for rows.Next() {
		var b models.BerthApplication
		if err := rows.Scan(&b.ID, &b.VesselName, &b.AdviceNumber, &b.BerthNumber, &b.Status, &b.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan berth application: %w", err)
		}
		apps = append(apps, b)
	}
	return apps, rows.Err()
}

func (r *operationalRepository) scanVessel(row pgx.Row) (*models.Vessel, error) {
	var v models.Vessel
	err := row.Scan(&v.ID, &v.Name, &v.SystemName, &v.IMONumber, &v.Flag, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vessel: %w", err)
	}
	return &v, nil
}
