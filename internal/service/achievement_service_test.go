package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

// mockAchievementRepository реализует AchievementRepository для тестов.
type mockAchievementRepository struct {
	unlocked map[uuid.UUID]map[string]models.Achievement
}

func newMockAchievementRepository() *mockAchievementRepository {
	return &mockAchievementRepository{unlocked: make(map[uuid.UUID]map[string]models.Achievement)}
}

func (m *mockAchievementRepository) Unlock(ctx context.Context, a *models.Achievement) (bool, error) {
	codes, ok := m.unlocked[a.UserID]
	if !ok {
		codes = make(map[string]models.Achievement)
		m.unlocked[a.UserID] = codes
	}
	if _, exists := codes[a.Code]; exists {
		return false, nil
	}
	a.ID = uuid.New()
	a.UnlockedAt = time.Now()
	codes[a.Code] = *a
	return true, nil
}

func (m *mockAchievementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	var out []models.Achievement
	for _, a := range m.unlocked[userID] {
		out = append(out, a)
	}
	return out, nil
}

// mockProgressSource реализует AchievementProgressSource.
type mockProgressSource struct {
	accepted int
	earned   decimal.Decimal
}

func (m *mockProgressSource) CountByContractorAndStatus(ctx context.Context, contractorID uuid.UUID, status string) (int, error) {
	return m.accepted, nil
}

func (m *mockProgressSource) SumAcceptedCosts(ctx context.Context, contractorID uuid.UUID) (decimal.Decimal, error) {
	return m.earned, nil
}

// Повторная выдача одного кода не создаёт дубликата.
func TestAchievementAwardOnce(t *testing.T) {
	repo := newMockAchievementRepository()
	svc := NewAchievementService(repo, &mockProgressSource{})
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Award(ctx, userID, models.AchievementFirstProposal)
	if err != nil {
		t.Fatalf("выдача не удалась: %v", err)
	}
	if first == nil || first.Title == "" {
		t.Fatalf("достижение должно заполняться из каталога")
	}

	second, err := svc.Award(ctx, userID, models.AchievementFirstProposal)
	if err != nil {
		t.Fatalf("повторная выдача не должна быть ошибкой: %v", err)
	}
	if second != nil {
		t.Fatalf("повторная выдача не должна возвращать достижение")
	}
}

func TestAchievementAwardUnknownCode(t *testing.T) {
	svc := NewAchievementService(newMockAchievementRepository(), &mockProgressSource{})
	a, err := svc.Award(context.Background(), uuid.New(), "time_traveler")
	if err != nil {
		t.Fatalf("неизвестный код не должен быть ошибкой: %v", err)
	}
	if a != nil {
		t.Fatalf("неизвестный код не должен выдаваться")
	}
}

// Пороговые достижения выдаются при достижении счётчиков и только один раз.
func TestAchievementEvaluateContractor(t *testing.T) {
	repo := newMockAchievementRepository()
	progress := &mockProgressSource{accepted: 2, earned: decimal.NewFromInt(500)}
	svc := NewAchievementService(repo, progress)
	ctx := context.Background()
	contractorID := uuid.New()

	unlocked, err := svc.EvaluateContractor(ctx, contractorID)
	if err != nil {
		t.Fatalf("проверка порогов не удалась: %v", err)
	}
	if len(unlocked) != 0 {
		t.Fatalf("пороги не достигнуты, достижений быть не должно")
	}

	progress.accepted = 5
	progress.earned = decimal.NewFromInt(12000)

	unlocked, err = svc.EvaluateContractor(ctx, contractorID)
	if err != nil {
		t.Fatalf("проверка порогов не удалась: %v", err)
	}
	if len(unlocked) != 2 {
		t.Fatalf("ожидались оба пороговых достижения, получили %d", len(unlocked))
	}

	unlocked, err = svc.EvaluateContractor(ctx, contractorID)
	if err != nil {
		t.Fatalf("повторная проверка не удалась: %v", err)
	}
	if len(unlocked) != 0 {
		t.Fatalf("уже выданные достижения не должны возвращаться повторно")
	}
}
