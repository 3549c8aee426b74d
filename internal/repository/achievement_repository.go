package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

// AchievementRepository отвечает за достижения пользователей.
type AchievementRepository struct {
	db *sqlx.DB
}

// NewAchievementRepository создаёт новый экземпляр.
func NewAchievementRepository(db *sqlx.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Unlock записывает достижение, если оно ещё не было разблокировано.
// Возвращает true, когда достижение разблокировано именно сейчас.
func (r *AchievementRepository) Unlock(ctx context.Context, a *models.Achievement) (bool, error) {
	query := `
		INSERT INTO achievements (user_id, code, title, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, code) DO NOTHING
		RETURNING id, unlocked_at
	`
	err := r.db.QueryRowxContext(ctx, query, a.UserID, a.Code, a.Title, a.Description).
		Scan(&a.ID, &a.UnlockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("achievement repository: unlock %w", err)
	}
	return true, nil
}

// ListByUser возвращает достижения пользователя по времени разблокировки.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	var achievements []models.Achievement
	query := `SELECT id, user_id, code, title, description, unlocked_at FROM achievements WHERE user_id = $1 ORDER BY unlocked_at`
	if err := r.db.SelectContext(ctx, &achievements, query, userID); err != nil {
		return nil, fmt.Errorf("achievement repository: list by user %w", err)
	}
	return achievements, nil
}
