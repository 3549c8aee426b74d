package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
	"github.com/ignatzorin/homecare-backend/internal/validation"
)

// AppointmentRepositoryAPI описывает хранилище визитов.
type AppointmentRepositoryAPI interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AppointmentInput данные нового визита.
type AppointmentInput struct {
	HomeownerID  uuid.UUID
	ContractorID uuid.UUID
	ProposalID   *uuid.UUID
	PropertyID   *uuid.UUID
	Title        string
	Notes        *string
	ScheduledAt  time.Time
}

// AppointmentService ведёт запланированные визиты подрядчиков.
type AppointmentService struct {
	repo     AppointmentRepositoryAPI
	notifier Notifier
	cache    *CacheService
}

// NewAppointmentService создаёт сервис визитов.
func NewAppointmentService(repo AppointmentRepositoryAPI, notifier Notifier, cache *CacheService) *AppointmentService {
	return &AppointmentService{repo: repo, notifier: notifier, cache: cache}
}

// Create планирует визит. Создать визит может любая из сторон,
// вторая сторона получает уведомление.
func (s *AppointmentService) Create(ctx context.Context, creatorID uuid.UUID, in AppointmentInput) (*models.Appointment, error) {
	if creatorID != in.HomeownerID && creatorID != in.ContractorID {
		return nil, apperror.ErrForbidden
	}
	if err := validation.ValidateNonEmpty("название визита", in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.ScheduledAt.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "визит нельзя назначить в прошлом")
	}

	appointment := &models.Appointment{
		HomeownerID:  in.HomeownerID,
		ContractorID: in.ContractorID,
		ProposalID:   in.ProposalID,
		PropertyID:   in.PropertyID,
		Title:        in.Title,
		Notes:        in.Notes,
		ScheduledAt:  in.ScheduledAt,
		Status:       models.AppointmentStatusScheduled,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	s.notifyCounterpart(creatorID, appointment, "appointment.scheduled")
	s.invalidate(appointment)
	return appointment, nil
}

// ListForUser возвращает визиты пользователя.
func (s *AppointmentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus меняет статус визита. Завершить или отменить визит
// может любая из сторон, повторная смена терминального статуса запрещена.
func (s *AppointmentService) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*models.Appointment, error) {
	if _, ok := models.ValidAppointmentStatuses[status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус визита")
	}

	appointment, err := s.getParty(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status != models.AppointmentStatusScheduled && appointment.Status != status {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			"переход "+appointment.Status+" -> "+status+" недопустим")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	appointment.Status = status

	s.notifyCounterpart(userID, appointment, "appointment."+status)
	s.invalidate(appointment)
	return appointment, nil
}

// Delete удаляет визит.
func (s *AppointmentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	appointment, err := s.getParty(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(appointment)
	return nil
}

// getParty загружает визит и проверяет участие пользователя.
func (s *AppointmentService) getParty(ctx context.Context, userID, id uuid.UUID) (*models.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return nil, apperror.ErrAppointmentNotFound
		}
		return nil, err
	}
	if appointment.HomeownerID != userID && appointment.ContractorID != userID {
		return nil, apperror.ErrForbidden
	}
	return appointment, nil
}

// notifyCounterpart уведомляет вторую сторону визита.
func (s *AppointmentService) notifyCounterpart(actorID uuid.UUID, a *models.Appointment, event string) {
	if s.notifier == nil {
		return
	}
	target := a.HomeownerID
	if actorID == a.HomeownerID {
		target = a.ContractorID
	}
	_ = s.notifier.BroadcastToUser(target, event, a)
}

func (s *AppointmentService) invalidate(a *models.Appointment) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateUserCache(a.HomeownerID)
	s.cache.InvalidateUserCache(a.ContractorID)
}
