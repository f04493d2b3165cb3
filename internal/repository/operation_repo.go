package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-mod-console/internal/model"
)

type OperationRepository struct {
	pool *pgxpool.Pool
}

func NewOperationRepository(pool *pgxpool.Pool) *OperationRepository {
	return &OperationRepository{pool: pool}
}

func (r *OperationRepository) Insert(ctx context.Context, rec model.OperationRecord) error {
	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return fmt.Errorf("marshal item errors: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO operation_results
		 (operation_id, session_id, kind, attempt, reason, success,
		  processed_count, failed_count, errors,
		  actor_user_id, actor_username, actor_role, actor_ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.OperationID, rec.SessionID, string(rec.Kind), string(rec.Attempt),
		rec.Reason, rec.Success, rec.ProcessedCount, rec.FailedCount, errorsJSON,
		rec.Actor.UserID, rec.Actor.Username, rec.Actor.Role, rec.Actor.IP,
		rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert operation result: %w", err)
	}
	return nil
}

func (r *OperationRepository) ListBySession(ctx context.Context, sessionID string, page int, limit int) ([]model.OperationRecord, model.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM operation_results WHERE session_id = $1`, sessionID).
		Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count operation results: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	meta := model.Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}

	rows, err := r.pool.Query(ctx,
		`SELECT operation_id, session_id, kind, attempt, reason, success,
		        processed_count, failed_count, errors,
		        actor_user_id, actor_username, actor_role, actor_ip, created_at
		 FROM operation_results
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, sessionID, limit, (page-1)*limit)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query operation results: %w", err)
	}
	defer rows.Close()

	records := make([]model.OperationRecord, 0)
	for rows.Next() {
		var rec model.OperationRecord
		var kind, attempt string
		var errorsJSON []byte
		var createdAt time.Time

		if err := rows.Scan(
			&rec.OperationID, &rec.SessionID, &kind, &attempt, &rec.Reason, &rec.Success,
			&rec.ProcessedCount, &rec.FailedCount, &errorsJSON,
			&rec.Actor.UserID, &rec.Actor.Username, &rec.Actor.Role, &rec.Actor.IP,
			&createdAt,
		); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan operation result: %w", err)
		}

		rec.Kind = model.OperationKind(kind)
		rec.Attempt = model.AttemptKind(attempt)
		rec.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
		rec.Errors = make([]model.ItemError, 0)
		if len(errorsJSON) > 0 {
			if jsonErr := json.Unmarshal(errorsJSON, &rec.Errors); jsonErr != nil {
				rec.Errors = make([]model.ItemError, 0)
			}
		}

		records = append(records, rec)
	}

	return records, meta, rows.Err()
}
