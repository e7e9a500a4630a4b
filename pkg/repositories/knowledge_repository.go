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

// KnowledgeRepository provides data access for knowledge base entries.
type KnowledgeRepository interface {
	Create(ctx context.Context, entry *models.KnowledgeEntry) error
	Update(ctx context.Context, entry *models.KnowledgeEntry) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.KnowledgeEntry, error)
	List(ctx context.Context) ([]*models.KnowledgeEntry, error)
	ListActive(ctx context.Context) ([]*models.KnowledgeEntry, error)
	Search(ctx context.Context, term string, limit int) ([]*models.KnowledgeEntry, error)
	TouchUsage(ctx context.Context, ids []int64, usedAt time.Time) error
	AdjustUsefulness(ctx context.Context, id int64, delta int) error
}

type knowledgeRepository struct {
	db *database.DB
}

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(db *database.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

const knowledgeColumns = `id, title, content, category, type, keywords, priority, status,
	view_count, usefulness_count, last_used, created_at, updated_at`

func (r *knowledgeRepository) Create(ctx context.Context, entry *models.KnowledgeEntry) error {
	now := time.Now()

	query := `
		INSERT INTO knowledge_base (
			title, content, category, type, keywords, priority, status,
			view_count, usefulness_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $8)
		RETURNING id, view_count, usefulness_count, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		entry.Title,
		entry.Content,
		entry.Category,
		entry.Type,
		entry.Keywords,
		entry.Priority,
		entry.Status,
		now,
	).Scan(&entry.ID, &entry.ViewCount, &entry.UsefulnessCount, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create knowledge entry: %w", err)
	}

	return nil
}

func (r *knowledgeRepository) Update(ctx context.Context, entry *models.KnowledgeEntry) error {
	query := `
		UPDATE knowledge_base
		SET title = $2, content = $3, category = $4, type = $5, keywords = $6,
		    priority = $7, status = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.Title,
		entry.Content,
		entry.Category,
		entry.Type,
		entry.Keywords,
		entry.Priority,
		entry.Status,
		time.Now(),
	).Scan(&entry.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update knowledge entry: %w", err)
	}

	return nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM knowledge_base WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *knowledgeRepository) GetByID(ctx context.Context, id int64) (*models.KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_base WHERE id = $1`

	entry, err := scanKnowledge(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get knowledge entry: %w", err)
	}
	return entry, nil
}

func (r *knowledgeRepository) List(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_base ORDER BY updated_at DESC`
	return r.queryMany(ctx, query)
}

func (r *knowledgeRepository) ListActive(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_base WHERE status = $1`
	return r.queryMany(ctx, query, models.KnowledgeStatusActive)
}

// Search matches term case-insensitively against title, content, keywords
// and category. Only Active entries are returned.
func (r *knowledgeRepository) Search(ctx context.Context, term string, limit int) ([]*models.KnowledgeEntry, error) {
	query := `
		SELECT ` + knowledgeColumns + `
		FROM knowledge_base
		WHERE status = $1
		  AND (title ILIKE $2 OR content ILIKE $2 OR keywords ILIKE $2 OR category ILIKE $2)
		ORDER BY usefulness_count DESC, updated_at DESC
		LIMIT $3`

	return r.queryMany(ctx, query, models.KnowledgeStatusActive, "%"+term+"%", limit)
}

// TouchUsage bumps view counts after a retrieval hit. Best-effort: callers
// log failures but do not propagate them.
func (r *knowledgeRepository) TouchUsage(ctx context.Context, ids []int64, usedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE knowledge_base
		SET view_count = view_count + 1, last_used = $2
		WHERE id = ANY($1)`

	if _, err := r.db.Exec(ctx, query, ids, usedAt); err != nil {
		return fmt.Errorf("failed to touch knowledge usage: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) AdjustUsefulness(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE knowledge_base
		SET usefulness_count = GREATEST(usefulness_count + $2, 0)
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust knowledge usefulness: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *knowledgeRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanKnowledge(row pgx.Row) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Content,
		&entry.Category,
		&entry.Type,
		&entry.Keywords,
		&entry.Priority,
		&entry.Status,
		&entry.ViewCount,
		&entry.UsefulnessCount,
		&entry.LastUsed,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
