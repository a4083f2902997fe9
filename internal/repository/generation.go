package repository

import (
	"context"
	"fmt"

	"github.com/windfall/drill_service/internal/client"
)

// PostgresGenerationRepository implements GenerationRepository on the
// generation_log table.
type PostgresGenerationRepository struct {
	db *client.PostgresClient
}

// NewPostgresGenerationRepository creates a new PostgresGenerationRepository.
func NewPostgresGenerationRepository(db *client.PostgresClient) *PostgresGenerationRepository {
	return &PostgresGenerationRepository{db: db}
}

// Create inserts rec.
func (r *PostgresGenerationRepository) Create(ctx context.Context, rec *GenerationRecord) error {
	if r.db == nil || r.db.Pool == nil {
		return fmt.Errorf("database not configured")
	}
	prepare(rec)

	query := `INSERT INTO generation_log (id, service, user_id, items, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Pool.Exec(ctx, query, rec.ID, rec.Service, rec.UserID, rec.Items, rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}
	return nil
}

// ListRecent returns the newest records of service first.
func (r *PostgresGenerationRepository) ListRecent(ctx context.Context, service string, limit int) ([]*GenerationRecord, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, fmt.Errorf("database not configured")
	}

	query := `
		SELECT id, service, user_id, items, created_at
		FROM generation_log
		WHERE service = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, query, service, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query generation log: %w", err)
	}
	defer rows.Close()

	records := []*GenerationRecord{}
	for rows.Next() {
		rec := &GenerationRecord{}
		if err := rows.Scan(&rec.ID, &rec.Service, &rec.UserID, &rec.Items, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read generation log: %w", err)
	}
	return records, nil
}
