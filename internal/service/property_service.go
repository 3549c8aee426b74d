package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/homecare-backend/internal/domain/valueobject"
	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
	"github.com/ignatzorin/homecare-backend/internal/validation"
)

// PropertyRepositoryAPI описывает хранилище домов.
type PropertyRepositoryAPI interface {
	Create(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Property, error)
	Update(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateServiceRecord(ctx context.Context, rec *models.ServiceRecord) error
	ListServiceRecords(ctx context.Context, propertyID uuid.UUID) ([]models.ServiceRecord, error)
}

// PropertyInput данные дома при создании и обновлении.
type PropertyInput struct {
	Address       string
	City          string
	ClimateZone   string
	YearBuilt     *int
	SquareFootage *int
	HomeSystems   []string
}

// ServiceRecordInput данные записи журнала работ.
type ServiceRecordInput struct {
	ContractorID *uuid.UUID
	ProposalID   *uuid.UUID
	ServiceType  string
	Description  string
	Cost         string
	PerformedAt  time.Time
}

// PropertyService ведёт дома владельцев и журнал выполненных работ.
type PropertyService struct {
	repo PropertyRepositoryAPI
}

// NewPropertyService создаёт сервис домов.
func NewPropertyService(repo PropertyRepositoryAPI) *PropertyService {
	return &PropertyService{repo: repo}
}

// Create добавляет дом владельцу.
func (s *PropertyService) Create(ctx context.Context, homeownerID uuid.UUID, in PropertyInput) (*models.Property, error) {
	if err := validation.ValidateAddress(in.Address); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	property := &models.Property{
		HomeownerID:   homeownerID,
		Address:       in.Address,
		City:          in.City,
		ClimateZone:   in.ClimateZone,
		YearBuilt:     in.YearBuilt,
		SquareFootage: in.SquareFootage,
		HomeSystems:   pq.StringArray(in.HomeSystems),
	}
	if property.HomeSystems == nil {
		property.HomeSystems = pq.StringArray{}
	}

	if err := s.repo.Create(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

// Get возвращает дом владельца.
func (s *PropertyService) Get(ctx context.Context, homeownerID, id uuid.UUID) (*models.Property, error) {
	return s.getOwned(ctx, homeownerID, id)
}

// List возвращает дома владельца.
func (s *PropertyService) List(ctx context.Context, homeownerID uuid.UUID) ([]models.Property, error) {
	return s.repo.ListByHomeowner(ctx, homeownerID)
}

// Update обновляет данные дома.
func (s *PropertyService) Update(ctx context.Context, homeownerID, id uuid.UUID, in PropertyInput) (*models.Property, error) {
	property, err := s.getOwned(ctx, homeownerID, id)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateAddress(in.Address); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	property.Address = in.Address
	property.City = in.City
	property.ClimateZone = in.ClimateZone
	property.YearBuilt = in.YearBuilt
	property.SquareFootage = in.SquareFootage
	property.HomeSystems = pq.StringArray(in.HomeSystems)
	if property.HomeSystems == nil {
		property.HomeSystems = pq.StringArray{}
	}

	if err := s.repo.Update(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

// Delete удаляет дом владельца.
func (s *PropertyService) Delete(ctx context.Context, homeownerID, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, homeownerID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddServiceRecord добавляет запись в журнал работ по дому.
func (s *PropertyService) AddServiceRecord(ctx context.Context, homeownerID, propertyID uuid.UUID, in ServiceRecordInput) (*models.ServiceRecord, error) {
	if _, err := s.getOwned(ctx, homeownerID, propertyID); err != nil {
		return nil, err
	}

	if err := validation.ValidateNonEmpty("описание работы", in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidServiceTypes[in.ServiceType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный вид услуг")
	}

	cost, err := valueobject.NewCost(in.Cost)
	if err != nil {
		return nil, err
	}

	performedAt := in.PerformedAt
	if performedAt.IsZero() {
		performedAt = time.Now().UTC()
	}

	record := &models.ServiceRecord{
		PropertyID:   propertyID,
		ContractorID: in.ContractorID,
		ProposalID:   in.ProposalID,
		ServiceType:  in.ServiceType,
		Description:  in.Description,
		Cost:         cost.Decimal(),
		PerformedAt:  performedAt,
	}
	if err := s.repo.CreateServiceRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListServiceRecords возвращает журнал работ по дому.
func (s *PropertyService) ListServiceRecords(ctx context.Context, homeownerID, propertyID uuid.UUID) ([]models.ServiceRecord, error) {
	if _, err := s.getOwned(ctx, homeownerID, propertyID); err != nil {
		return nil, err
	}
	return s.repo.ListServiceRecords(ctx, propertyID)
}

// getOwned загружает дом и проверяет владельца.
func (s *PropertyService) getOwned(ctx context.Context, homeownerID, id uuid.UUID) (*models.Property, error) {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return nil, apperror.ErrPropertyNotFound
		}
		return nil, err
	}
	if property.HomeownerID != homeownerID {
		return nil, apperror.ErrForbidden
	}
	return property, nil
}
