package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
)

// mockMaintenanceRepository реализует MaintenanceRepositoryAPI для тестов.
type mockMaintenanceRepository struct {
	tasks       []models.MaintenanceTask
	completions map[uuid.UUID][]models.MaintenanceCompletion
	hidden      map[uuid.UUID]map[uuid.UUID]bool
	listCalls   int
}

func newMockMaintenanceRepository() *mockMaintenanceRepository {
	return &mockMaintenanceRepository{
		completions: make(map[uuid.UUID][]models.MaintenanceCompletion),
		hidden:      make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockMaintenanceRepository) addTask(title string, months []int64, zones, systems []string, priority int) uuid.UUID {
	task := models.MaintenanceTask{
		ID:           uuid.New(),
		Code:         title,
		Title:        title,
		Months:       pq.Int64Array(months),
		ClimateZones: pq.StringArray(zones),
		HomeSystems:  pq.StringArray(systems),
		Priority:     priority,
	}
	m.tasks = append(m.tasks, task)
	return task.ID
}

func (m *mockMaintenanceRepository) ListTasks(ctx context.Context) ([]models.MaintenanceTask, error) {
	m.listCalls++
	return m.tasks, nil
}

func (m *mockMaintenanceRepository) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTask, error) {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			return &m.tasks[i], nil
		}
	}
	return nil, repository.ErrMaintenanceTaskNotFound
}

func (m *mockMaintenanceRepository) MarkCompleted(ctx context.Context, c *models.MaintenanceCompletion) error {
	c.ID = uuid.New()
	m.completions[c.PropertyID] = append(m.completions[c.PropertyID], *c)
	return nil
}

func (m *mockMaintenanceRepository) ListCompletions(ctx context.Context, propertyID uuid.UUID) ([]models.MaintenanceCompletion, error) {
	return m.completions[propertyID], nil
}

func (m *mockMaintenanceRepository) SetPreference(ctx context.Context, p *models.MaintenancePreference) error {
	prefs, ok := m.hidden[p.PropertyID]
	if !ok {
		prefs = make(map[uuid.UUID]bool)
		m.hidden[p.PropertyID] = prefs
	}
	prefs[p.TaskID] = p.Hidden
	return nil
}

func (m *mockMaintenanceRepository) ListHiddenTaskIDs(ctx context.Context, propertyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for taskID, hidden := range m.hidden[propertyID] {
		if hidden {
			ids = append(ids, taskID)
		}
	}
	return ids, nil
}

// mockPropertySource реализует MaintenancePropertySource.
type mockPropertySource struct {
	properties map[uuid.UUID]*models.Property
}

func newMockPropertySource() *mockPropertySource {
	return &mockPropertySource{properties: make(map[uuid.UUID]*models.Property)}
}

func (m *mockPropertySource) addProperty(homeownerID uuid.UUID, climateZone string, systems []string) uuid.UUID {
	id := uuid.New()
	m.properties[id] = &models.Property{
		ID:          id,
		HomeownerID: homeownerID,
		ClimateZone: climateZone,
		HomeSystems: pq.StringArray(systems),
	}
	return id
}

func (m *mockPropertySource) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	if p, ok := m.properties[id]; ok {
		return p, nil
	}
	return nil, repository.ErrPropertyNotFound
}

type maintenanceFixture struct {
	service     *MaintenanceService
	repo        *mockMaintenanceRepository
	properties  *mockPropertySource
	homeownerID uuid.UUID
	propertyID  uuid.UUID
}

func newMaintenanceFixture(withCache bool) *maintenanceFixture {
	repo := newMockMaintenanceRepository()
	properties := newMockPropertySource()
	homeownerID := uuid.New()
	propertyID := properties.addProperty(homeownerID, "continental", []string{"hvac", "plumbing"})

	var cache *CacheService
	if withCache {
		cache = NewCacheService()
	}

	return &maintenanceFixture{
		service:     NewMaintenanceService(repo, properties, cache),
		repo:        repo,
		properties:  properties,
		homeownerID: homeownerID,
		propertyID:  propertyID,
	}
}

// План фильтрует задачи по месяцу, климатической зоне и системам дома
// и сортирует по убыванию приоритета.
func TestMaintenancePlanFilters(t *testing.T) {
	f := newMaintenanceFixture(false)
	ctx := context.Background()

	f.repo.addTask("Проверка отопления", []int64{9, 10}, nil, []string{"hvac"}, 5)
	f.repo.addTask("Чистка водостоков", []int64{10}, nil, nil, 8)
	f.repo.addTask("Подготовка бассейна", []int64{10}, nil, []string{"pool"}, 9)
	f.repo.addTask("Проверка кондиционера", []int64{5, 6}, nil, []string{"hvac"}, 7)
	f.repo.addTask("Осмотр крыши в тропиках", []int64{10}, []string{"tropical"}, nil, 6)

	plan, err := f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, time.October)
	if err != nil {
		t.Fatalf("не удалось построить план: %v", err)
	}

	if len(plan) != 2 {
		t.Fatalf("ожидалось 2 задачи на октябрь, получили %d", len(plan))
	}
	if plan[0].Task.Title != "Чистка водостоков" {
		t.Fatalf("задачи должны сортироваться по приоритету, первая %q", plan[0].Task.Title)
	}
	if plan[1].Task.Title != "Проверка отопления" {
		t.Fatalf("вторая задача должна быть проверкой отопления, получили %q", plan[1].Task.Title)
	}
}

// Пустой список зон или систем у задачи означает «для всех домов».
func TestMaintenancePlanEmptyFiltersMatchAll(t *testing.T) {
	f := newMaintenanceFixture(false)
	f.repo.addTask("Проверка детекторов дыма", []int64{1, 4, 7, 10}, nil, nil, 10)

	plan, err := f.service.PlanForMonth(context.Background(), f.homeownerID, f.propertyID, time.April)
	if err != nil {
		t.Fatalf("не удалось построить план: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("задача без ограничений должна попадать в план, получили %d задач", len(plan))
	}
}

func TestMaintenancePlanOwnership(t *testing.T) {
	f := newMaintenanceFixture(false)
	ctx := context.Background()

	stranger := uuid.New()
	if _, err := f.service.PlanForMonth(ctx, stranger, f.propertyID, time.May); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("чужой пользователь не должен видеть план, получили %v", err)
	}

	if _, err := f.service.PlanForMonth(ctx, f.homeownerID, uuid.New(), time.May); !errors.Is(err, apperror.ErrPropertyNotFound) {
		t.Fatalf("ожидалась ошибка отсутствия дома, получили %v", err)
	}
}

// Отметка выполнения попадает в план запрошенного месяца и сбрасывает кеш.
func TestMaintenanceMarkCompleted(t *testing.T) {
	f := newMaintenanceFixture(true)
	ctx := context.Background()
	month := time.Now().UTC().Month()

	taskID := f.repo.addTask("Замена фильтра", []int64{int64(month)}, nil, nil, 5)

	plan, err := f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, month)
	if err != nil {
		t.Fatalf("не удалось построить план: %v", err)
	}
	if plan[0].CompletedAt != nil {
		t.Fatalf("задача ещё не выполнена")
	}

	completion, err := f.service.MarkCompleted(ctx, f.homeownerID, f.propertyID, taskID)
	if err != nil {
		t.Fatalf("не удалось отметить выполнение: %v", err)
	}
	if completion.TaskID != taskID {
		t.Fatalf("отметка должна ссылаться на задачу")
	}

	plan, err = f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, month)
	if err != nil {
		t.Fatalf("не удалось перечитать план: %v", err)
	}
	if plan[0].CompletedAt == nil {
		t.Fatalf("после отметки выполнение должно попасть в план")
	}
}

func TestMaintenanceMarkCompletedUnknownTask(t *testing.T) {
	f := newMaintenanceFixture(false)
	if _, err := f.service.MarkCompleted(context.Background(), f.homeownerID, f.propertyID, uuid.New()); !errors.Is(err, apperror.ErrTaskNotFound) {
		t.Fatalf("ожидалась ошибка отсутствия задачи, получили %v", err)
	}
}

// Скрытая задача исчезает из плана, возврат настройки показывает её снова.
func TestMaintenanceSetHidden(t *testing.T) {
	f := newMaintenanceFixture(true)
	ctx := context.Background()

	taskID := f.repo.addTask("Прочистка дренажа", []int64{6}, nil, nil, 4)

	if err := f.service.SetHidden(ctx, f.homeownerID, f.propertyID, taskID, true); err != nil {
		t.Fatalf("не удалось скрыть задачу: %v", err)
	}

	plan, err := f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, time.June)
	if err != nil {
		t.Fatalf("не удалось построить план: %v", err)
	}
	if len(plan) != 0 {
		t.Fatalf("скрытая задача не должна попадать в план, получили %d задач", len(plan))
	}

	if err := f.service.SetHidden(ctx, f.homeownerID, f.propertyID, taskID, false); err != nil {
		t.Fatalf("не удалось вернуть задачу: %v", err)
	}

	plan, err = f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, time.June)
	if err != nil {
		t.Fatalf("не удалось перечитать план: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("возвращённая задача должна попасть в план")
	}
}

// Повторный запрос плана в пределах TTL обслуживается из кеша.
func TestMaintenancePlanCached(t *testing.T) {
	f := newMaintenanceFixture(true)
	ctx := context.Background()

	f.repo.addTask("Осмотр фундамента", []int64{3}, nil, nil, 3)

	if _, err := f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, time.March); err != nil {
		t.Fatalf("не удалось построить план: %v", err)
	}
	if _, err := f.service.PlanForMonth(ctx, f.homeownerID, f.propertyID, time.March); err != nil {
		t.Fatalf("не удалось перечитать план: %v", err)
	}

	if f.repo.listCalls != 1 {
		t.Fatalf("второй запрос должен идти из кеша, обращений к хранилищу %d", f.repo.listCalls)
	}
}
