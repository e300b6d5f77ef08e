package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/masa/database"
	"github.com/akinalp/masa/models"
	"github.com/google/uuid"
)

type sqliteModerationRepo struct {
	db database.TxQuerier
}

// NewSQLiteModerationRepo, constructor.
func NewSQLiteModerationRepo(db database.TxQuerier) ModerationRepository {
	return &sqliteModerationRepo{db: db}
}

func (r *sqliteModerationRepo) CreateAction(ctx context.Context, action *models.ModerationAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}

	query := `
		INSERT INTO moderation_actions
			(id, type, reason, duration, moderator_id, target_user_id, table_id, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		action.ID, action.Type, action.Reason, action.Duration,
		action.ModeratorID, action.TargetUserID, action.TableID, action.ExpiresAt,
	).Scan(&action.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create moderation action: %w", err)
	}

	return nil
}

func (r *sqliteModerationRepo) GetByTargetUserID(ctx context.Context, targetUserID string, limit int) ([]models.ModerationAction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, type, reason, duration, moderator_id, target_user_id,
		       table_id, expires_at, created_at
		FROM moderation_actions
		WHERE target_user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, targetUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get moderation actions: %w", err)
	}
	defer rows.Close()

	var actions []models.ModerationAction
	for rows.Next() {
		var a models.ModerationAction
		if err := rows.Scan(
			&a.ID, &a.Type, &a.Reason, &a.Duration, &a.ModeratorID,
			&a.TargetUserID, &a.TableID, &a.ExpiresAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan moderation row: %w", err)
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moderation rows: %w", err)
	}

	return actions, nil
}
