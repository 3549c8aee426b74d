package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// AppointmentRepository отвечает за визиты подрядчиков.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository создаёт новый экземпляр.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `
	id, homeowner_id, contractor_id, proposal_id, property_id, title, notes, scheduled_at, status, created_at, updated_at
`

// Create сохраняет визит.
func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	query := `
		INSERT INTO appointments (homeowner_id, contractor_id, proposal_id, property_id, title, notes, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		a.HomeownerID,
		a.ContractorID,
		a.ProposalID,
		a.PropertyID,
		a.Title,
		a.Notes,
		a.ScheduledAt,
		a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("appointment repository: insert %w", err)
	}
	return nil
}

// GetByID возвращает визит по идентификатору.
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointment repository: get by id %w", err)
	}
	return &a, nil
}

// ListByUser возвращает визиты, где пользователь участвует любой стороной.
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	var appointments []models.Appointment
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE homeowner_id = $1 OR contractor_id = $1
		ORDER BY scheduled_at
	`
	if err := r.db.SelectContext(ctx, &appointments, query, userID); err != nil {
		return nil, fmt.Errorf("appointment repository: list by user %w", err)
	}
	return appointments, nil
}

// ListUpcoming возвращает будущие запланированные визиты пользователя
// по возрастанию времени.
func (r *AppointmentRepository) ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE (homeowner_id = $1 OR contractor_id = $1)
		  AND status = 'scheduled'
		  AND scheduled_at >= $2
		ORDER BY scheduled_at
	`
	if err := r.db.SelectContext(ctx, &appointments, query, userID, now); err != nil {
		return nil, fmt.Errorf("appointment repository: list upcoming %w", err)
	}
	return appointments, nil
}

// UpdateStatus меняет статус визита.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("appointment repository: update status %w", err)
	}
	return requireAffected(res, ErrAppointmentNotFound)
}

// Delete удаляет визит.
func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointment repository: delete %w", err)
	}
	return requireAffected(res, ErrAppointmentNotFound)
}
