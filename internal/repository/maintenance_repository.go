package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/repository/common"
)

var ErrMaintenanceTaskNotFound = errors.New("maintenance task not found")

// MaintenanceRepository отвечает за справочник сезонных задач,
// отметки выполнения и настройки отображения по домам.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository создаёт новый экземпляр.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// ListTasks возвращает весь справочник задач по приоритету.
func (r *MaintenanceRepository) ListTasks(ctx context.Context) ([]models.MaintenanceTask, error) {
	var tasks []models.MaintenanceTask
	query := `
		SELECT id, code, title, description, months, climate_zones, home_systems, priority
		FROM maintenance_tasks
		ORDER BY priority DESC, code
	`
	if err := r.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, fmt.Errorf("maintenance repository: list tasks %w", err)
	}
	return tasks, nil
}

// GetTaskByID возвращает задачу справочника.
func (r *MaintenanceRepository) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTask, error) {
	return common.GetByID[models.MaintenanceTask](ctx, r.db, "maintenance_tasks", id, ErrMaintenanceTaskNotFound)
}

// MarkCompleted фиксирует выполнение задачи по дому.
func (r *MaintenanceRepository) MarkCompleted(ctx context.Context, c *models.MaintenanceCompletion) error {
	query := `
		INSERT INTO maintenance_completions (property_id, task_id, completed_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowxContext(ctx, query, c.PropertyID, c.TaskID, c.CompletedAt).
		Scan(&c.ID); err != nil {
		return fmt.Errorf("maintenance repository: mark completed %w", err)
	}
	return nil
}

// ListCompletions возвращает отметки выполнения по дому, свежие сверху.
func (r *MaintenanceRepository) ListCompletions(ctx context.Context, propertyID uuid.UUID) ([]models.MaintenanceCompletion, error) {
	var completions []models.MaintenanceCompletion
	query := `
		SELECT id, property_id, task_id, completed_at
		FROM maintenance_completions
		WHERE property_id = $1
		ORDER BY completed_at DESC
	`
	if err := r.db.SelectContext(ctx, &completions, query, propertyID); err != nil {
		return nil, fmt.Errorf("maintenance repository: list completions %w", err)
	}
	return completions, nil
}

// SetPreference создаёт или обновляет настройку отображения задачи для дома.
func (r *MaintenanceRepository) SetPreference(ctx context.Context, p *models.MaintenancePreference) error {
	query := `
		INSERT INTO maintenance_preferences (property_id, task_id, hidden)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id, task_id) DO UPDATE
		SET hidden = EXCLUDED.hidden, updated_at = NOW()
		RETURNING id, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, p.PropertyID, p.TaskID, p.Hidden).
		Scan(&p.ID, &p.UpdatedAt); err != nil {
		return fmt.Errorf("maintenance repository: set preference %w", err)
	}
	return nil
}

// ListHiddenTaskIDs возвращает скрытые задачи дома.
func (r *MaintenanceRepository) ListHiddenTaskIDs(ctx context.Context, propertyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT task_id FROM maintenance_preferences WHERE property_id = $1 AND hidden`
	if err := r.db.SelectContext(ctx, &ids, query, propertyID); err != nil {
		return nil, fmt.Errorf("maintenance repository: list hidden %w", err)
	}
	return ids, nil
}
