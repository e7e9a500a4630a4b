package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/database"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/models"
)

// SyslogRepository provides data access for ingested application logs.
type SyslogRepository interface {
	SaveBatch(ctx context.Context, logs []models.SystemLog) error
	FindByIncident(ctx context.Context, incidentID string) ([]models.SystemLog, error)
	FindWindow(ctx context.Context, start, end time.Time) ([]models.SystemLog, error)
	DeleteByIncident(ctx context.Context, incidentID string) error
}

type syslogRepository struct {
	db *database.DB
}

// NewSyslogRepository creates a new SyslogRepository.
func NewSyslogRepository(db *database.DB) SyslogRepository {
	return &syslogRepository{db: db}
}

var _ SyslogRepository = (*syslogRepository)(nil)

func (r *syslogRepository) SaveBatch(ctx context.Context, logs []models.SystemLog) error {
	if len(logs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range logs {
		batch.Queue(`
			INSERT INTO system_logs (incident_id, log_timestamp, level, source, message, raw)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.IncidentID, l.Timestamp, l.Level, l.Source, l.Message, l.Raw)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range logs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save log batch: %w", err)
		}
	}
	return nil
}

func (r *syslogRepository) FindByIncident(ctx context.Context, incidentID string) ([]models.SystemLog, error) {
	query := `
		SELECT id, incident_id, log_timestamp, level, source, message, raw
		FROM system_logs
		WHERE incident_id = $1
		ORDER BY log_timestamp ASC`

	return r.queryMany(ctx, query, incidentID)
}

func (r *syslogRepository) FindWindow(ctx context.Context, start, end time.Time) ([]models.SystemLog, error) {
	query := `
		SELECT id, incident_id, log_timestamp, level, source, message, raw
		FROM system_logs
		WHERE log_timestamp BETWEEN $1 AND $2
		ORDER BY log_timestamp ASC`

	return r.queryMany(ctx, query, start, end)
}

func (r *syslogRepository) DeleteByIncident(ctx context.Context, incidentID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM system_logs WHERE incident_id = $1`, incidentID); err != nil {
		return fmt.Errorf("failed to delete logs: %w", err)
	}
	return nil
}

func (r *syslogRepository) queryMany(ctx context.Context, query string, args ...any) ([]models.SystemLog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []models.SystemLog
	for rows.Next() {
		var l models.SystemLog
		if err := rows.Scan(&l.ID, &l.IncidentID, &l.Timestamp, &l.Level, &l.Source, &l.Message, &l.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
