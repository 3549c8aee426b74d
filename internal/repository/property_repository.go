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

var (
	ErrPropertyNotFound      = errors.New("property not found")
	ErrServiceRecordNotFound = errors.New("service record not found")
)

// PropertyRepository отвечает за дома и журнал выполненных работ.
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository создаёт новый экземпляр.
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Create сохраняет дом.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (homeowner_id, address, city, climate_zone, year_built, square_footage, home_systems)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		p.HomeownerID,
		p.Address,
		p.City,
		p.ClimateZone,
		p.YearBuilt,
		p.SquareFootage,
		p.HomeSystems,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("property repository: insert %w", err)
	}
	return nil
}

// GetByID возвращает дом по идентификатору.
func (r *PropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	query := `
		SELECT id, homeowner_id, address, city, climate_zone, year_built, square_footage, home_systems, created_at, updated_at
		FROM properties
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("property repository: get by id %w", err)
	}
	return &p, nil
}

// ListByHomeowner возвращает дома владельца.
func (r *PropertyRepository) ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Property, error) {
	var properties []models.Property
	query := `
		SELECT id, homeowner_id, address, city, climate_zone, year_built, square_footage, home_systems, created_at, updated_at
		FROM properties
		WHERE homeowner_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &properties, query, homeownerID); err != nil {
		return nil, fmt.Errorf("property repository: list by homeowner %w", err)
	}
	return properties, nil
}

// Update перезаписывает изменяемые поля дома.
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	query := `
		UPDATE properties
		SET address = $2,
		    city = $3,
		    climate_zone = $4,
		    year_built = $5,
		    square_footage = $6,
		    home_systems = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		p.ID,
		p.Address,
		p.City,
		p.ClimateZone,
		p.YearBuilt,
		p.SquareFootage,
		p.HomeSystems,
	).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPropertyNotFound
		}
		return fmt.Errorf("property repository: update %w", err)
	}
	return nil
}

// Delete удаляет дом.
func (r *PropertyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("property repository: delete %w", err)
	}
	return requireAffected(res, ErrPropertyNotFound)
}

// CreateServiceRecord сохраняет запись о выполненной работе.
func (r *PropertyRepository) CreateServiceRecord(ctx context.Context, rec *models.ServiceRecord) error {
	query := `
		INSERT INTO service_records (property_id, contractor_id, proposal_id, service_type, description, cost, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		rec.PropertyID,
		rec.ContractorID,
		rec.ProposalID,
		rec.ServiceType,
		rec.Description,
		rec.Cost,
		rec.PerformedAt,
	).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("property repository: insert service record %w", err)
	}
	return nil
}

// ListServiceRecords возвращает журнал работ по дому, свежие сверху.
func (r *PropertyRepository) ListServiceRecords(ctx context.Context, propertyID uuid.UUID) ([]models.ServiceRecord, error) {
	var records []models.ServiceRecord
	query := `
		SELECT id, property_id, contractor_id, proposal_id, service_type, description, cost, performed_at, created_at
		FROM service_records
		WHERE property_id = $1
		ORDER BY performed_at DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, propertyID); err != nil {
		return nil, fmt.Errorf("property repository: list service records %w", err)
	}
	return records, nil
}
