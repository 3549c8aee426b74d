package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

// achievementCatalog сопоставляет код достижения его карточке.
var achievementCatalog = map[string]struct {
	Title       string
	Description string
}{
	models.AchievementFirstProposal: {
		Title:       "Первое предложение",
		Description: "Создано первое коммерческое предложение",
	},
	models.AchievementFirstSent: {
		Title:       "Первая отправка",
		Description: "Предложение впервые отправлено владельцу жилья",
	},
	models.AchievementFirstContract: {
		Title:       "Первый договор",
		Description: "Подписан первый договор с заказчиком",
	},
	models.AchievementFiveAccepted: {
		Title:       "Пять принятых",
		Description: "Пять предложений приняты заказчиками",
	},
	models.AchievementBigEarner: {
		Title:       "Крупный заработок",
		Description: "Сумма принятых предложений превысила 10 000",
	},
}

// Пороговые значения автоматических достижений.
var (
	fiveAcceptedThreshold = 5
	bigEarnerThreshold    = decimal.NewFromInt(10000)
)

// AchievementRepository описывает хранилище достижений.
type AchievementRepository interface {
	Unlock(ctx context.Context, a *models.Achievement) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error)
}

// AchievementProgressSource отдаёт счётчики подрядчика для пороговых достижений.
type AchievementProgressSource interface {
	CountByContractorAndStatus(ctx context.Context, contractorID uuid.UUID, status string) (int, error)
	SumAcceptedCosts(ctx context.Context, contractorID uuid.UUID) (decimal.Decimal, error)
}

// AchievementService разблокирует достижения и отдаёт их список.
// Разблокированные в ходе операции достижения возвращаются вызывающему
// отдельным списком событий, а не подмешиваются в основной ответ.
type AchievementService struct {
	repo     AchievementRepository
	progress AchievementProgressSource
}

// NewAchievementService создаёт сервис достижений.
func NewAchievementService(repo AchievementRepository, progress AchievementProgressSource) *AchievementService {
	return &AchievementService{repo: repo, progress: progress}
}

// Award разблокирует достижение по коду. Повторная выдача не создаёт
// дубликата и возвращает nil.
func (s *AchievementService) Award(ctx context.Context, userID uuid.UUID, code string) (*models.Achievement, error) {
	card, ok := achievementCatalog[code]
	if !ok {
		return nil, nil
	}

	achievement := &models.Achievement{
		UserID:      userID,
		Code:        code,
		Title:       card.Title,
		Description: card.Description,
	}

	unlocked, err := s.repo.Unlock(ctx, achievement)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, nil
	}
	return achievement, nil
}

// EvaluateContractor проверяет пороговые достижения подрядчика и
// возвращает разблокированные только что.
func (s *AchievementService) EvaluateContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Achievement, error) {
	var unlocked []models.Achievement

	accepted, err := s.progress.CountByContractorAndStatus(ctx, contractorID, models.ProposalStatusAccepted)
	if err != nil {
		return nil, err
	}
	if accepted >= fiveAcceptedThreshold {
		if a, err := s.Award(ctx, contractorID, models.AchievementFiveAccepted); err != nil {
			return nil, err
		} else if a != nil {
			unlocked = append(unlocked, *a)
		}
	}

	earned, err := s.progress.SumAcceptedCosts(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	if earned.GreaterThanOrEqual(bigEarnerThreshold) {
		if a, err := s.Award(ctx, contractorID, models.AchievementBigEarner); err != nil {
			return nil, err
		} else if a != nil {
			unlocked = append(unlocked, *a)
		}
	}

	return unlocked, nil
}

// ListByUser возвращает разблокированные достижения пользователя.
func (s *AchievementService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	return s.repo.ListByUser(ctx, userID)
}
