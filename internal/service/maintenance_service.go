package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
)

// Время жизни кеша плана обслуживания.
const maintenancePlanCacheTTL = 10 * time.Minute

// MaintenanceRepositoryAPI описывает хранилище плана обслуживания.
type MaintenanceRepositoryAPI interface {
	ListTasks(ctx context.Context) ([]models.MaintenanceTask, error)
	GetTaskByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTask, error)
	MarkCompleted(ctx context.Context, c *models.MaintenanceCompletion) error
	ListCompletions(ctx context.Context, propertyID uuid.UUID) ([]models.MaintenanceCompletion, error)
	SetPreference(ctx context.Context, p *models.MaintenancePreference) error
	ListHiddenTaskIDs(ctx context.Context, propertyID uuid.UUID) ([]uuid.UUID, error)
}

// MaintenancePropertySource отдаёт дом для подбора задач.
type MaintenancePropertySource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// PlannedTask задача плана обслуживания с отметкой выполнения
// в текущем месяце.
type PlannedTask struct {
	Task        models.MaintenanceTask `json:"task"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// MaintenanceService строит помесячный план обслуживания дома из
// справочника задач: месяц, климатическая зона и системы дома
// сужают список, скрытые владельцем задачи не показываются.
type MaintenanceService struct {
	repo       MaintenanceRepositoryAPI
	properties MaintenancePropertySource
	cache      *CacheService
}

// NewMaintenanceService создаёт сервис плана обслуживания.
func NewMaintenanceService(repo MaintenanceRepositoryAPI, properties MaintenancePropertySource, cache *CacheService) *MaintenanceService {
	return &MaintenanceService{repo: repo, properties: properties, cache: cache}
}

// PlanForMonth возвращает задачи дома на заданный месяц по убыванию
// приоритета. План кешируется и сбрасывается при отметках выполнения
// и скрытии задач.
func (s *MaintenanceService) PlanForMonth(ctx context.Context, homeownerID, propertyID uuid.UUID, month time.Month) ([]PlannedTask, error) {
	property, err := s.ownedProperty(ctx, homeownerID, propertyID)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.buildPlan(ctx, property, month)
	}

	key := MaintenancePlanCacheKey(propertyID, int(month))
	value, err := s.cache.GetOrSet(ctx, key, maintenancePlanCacheTTL, func() (interface{}, error) {
		return s.buildPlan(ctx, property, month)
	})
	if err != nil {
		return nil, err
	}
	return value.([]PlannedTask), nil
}

func (s *MaintenanceService) buildPlan(ctx context.Context, property *models.Property, month time.Month) ([]PlannedTask, error) {

	propertyID := property.ID

	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	hidden, err := s.repo.ListHiddenTaskIDs(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	hiddenSet := make(map[uuid.UUID]struct{}, len(hidden))
	for _, id := range hidden {
		hiddenSet[id] = struct{}{}
	}

	completions, err := s.repo.ListCompletions(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	completedAt := make(map[uuid.UUID]time.Time)
	for _, c := range completions {
		// Засчитывается только выполнение в запрошенном месяце.
		if c.CompletedAt.Month() != month {
			continue
		}
		if existing, ok := completedAt[c.TaskID]; !ok || c.CompletedAt.After(existing) {
			completedAt[c.TaskID] = c.CompletedAt
		}
	}

	var plan []PlannedTask
	for _, task := range tasks {
		if _, ok := hiddenSet[task.ID]; ok {
			continue
		}
		if !taskApplies(task, property, month) {
			continue
		}
		planned := PlannedTask{Task: task}
		if at, ok := completedAt[task.ID]; ok {
			t := at
			planned.CompletedAt = &t
		}
		plan = append(plan, planned)
	}

	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].Task.Priority > plan[j].Task.Priority
	})

	return plan, nil
}

// taskApplies проверяет применимость задачи к дому в заданном месяце.
// Пустой список зон или систем означает «для всех».
func taskApplies(task models.MaintenanceTask, property *models.Property, month time.Month) bool {
	monthMatches := false
	for _, m := range task.Months {
		if time.Month(m) == month {
			monthMatches = true
			break
		}
	}
	if !monthMatches {
		return false
	}

	if len(task.ClimateZones) > 0 {
		zoneMatches := false
		for _, zone := range task.ClimateZones {
			if zone == property.ClimateZone {
				zoneMatches = true
				break
			}
		}
		if !zoneMatches {
			return false
		}
	}

	if len(task.HomeSystems) > 0 {
		systems := make(map[string]struct{}, len(property.HomeSystems))
		for _, sys := range property.HomeSystems {
			systems[sys] = struct{}{}
		}
		systemMatches := false
		for _, sys := range task.HomeSystems {
			if _, ok := systems[sys]; ok {
				systemMatches = true
				break
			}
		}
		if !systemMatches {
			return false
		}
	}

	return true
}

// MarkCompleted отмечает выполнение задачи по дому.
func (s *MaintenanceService) MarkCompleted(ctx context.Context, homeownerID, propertyID, taskID uuid.UUID) (*models.MaintenanceCompletion, error) {
	if _, err := s.ownedProperty(ctx, homeownerID, propertyID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetTaskByID(ctx, taskID); err != nil {
		return nil, s.mapTaskNotFound(err)
	}

	completion := &models.MaintenanceCompletion{
		PropertyID:  propertyID,
		TaskID:      taskID,
		CompletedAt: time.Now().UTC(),
	}
	if err := s.repo.MarkCompleted(ctx, completion); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateByPrefix("maintenance:plan:" + propertyID.String())
	}
	return completion, nil
}

// SetHidden скрывает или возвращает задачу в план дома. Настройка
// хранится на сервере и переживает смену устройства.
func (s *MaintenanceService) SetHidden(ctx context.Context, homeownerID, propertyID, taskID uuid.UUID, hidden bool) error {
	if _, err := s.ownedProperty(ctx, homeownerID, propertyID); err != nil {
		return err
	}
	if _, err := s.repo.GetTaskByID(ctx, taskID); err != nil {
		return s.mapTaskNotFound(err)
	}

	pref := &models.MaintenancePreference{
		PropertyID: propertyID,
		TaskID:     taskID,
		Hidden:     hidden,
	}
	if err := s.repo.SetPreference(ctx, pref); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateByPrefix("maintenance:plan:" + propertyID.String())
	}
	return nil
}

// ownedProperty загружает дом и проверяет владельца.
func (s *MaintenanceService) ownedProperty(ctx context.Context, homeownerID, propertyID uuid.UUID) (*models.Property, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
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

func (s *MaintenanceService) mapTaskNotFound(err error) error {
	if errors.Is(err, repository.ErrMaintenanceTaskNotFound) {
		return apperror.ErrTaskNotFound
	}
	return err
}
