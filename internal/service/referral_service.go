package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/logger"
	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/repository"
)

// Ставки комиссии агента по уровням программы.
var commissionRateByTier = map[string]decimal.Decimal{
	models.ReferralTierBronze: decimal.NewFromFloat(0.05),
	models.ReferralTierSilver: decimal.NewFromFloat(0.07),
	models.ReferralTierGold:   decimal.NewFromFloat(0.10),
}

// ReferralRepositoryAPI описывает хранилище приглашений и комиссий.
type ReferralRepositoryAPI interface {
	Create(ctx context.Context, ref *models.Referral) error
	GetByReferred(ctx context.Context, referredID uuid.UUID) (*models.Referral, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Referral, error)
	CountConvertedByAgent(ctx context.Context, agentID uuid.UUID) (int, error)
	MarkConverted(ctx context.Context, referralID uuid.UUID) error
	CreateCommission(ctx context.Context, c *models.Commission) error
	HasCommissionForProposal(ctx context.Context, proposalID uuid.UUID) (bool, error)
	ListCommissions(ctx context.Context, agentID uuid.UUID) ([]models.Commission, error)
	SumCommissions(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error)
}

// ReferralProgress агрегат реферальной программы агента.
type ReferralProgress struct {
	Tier            string          `json:"tier"`
	Converted       int             `json:"converted"`
	NeededForNext   int             `json:"needed_for_next"`
	ProgressPercent int             `json:"progress_percent"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

// ReferralService ведёт реферальную программу агентов: приглашения,
// уровни и комиссии с подписанных договоров.
type ReferralService struct {
	repo  ReferralRepositoryAPI
	users interface {
		GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	}
}

// NewReferralService создаёт сервис реферальной программы.
func NewReferralService(repo ReferralRepositoryAPI, users AuthRepository) *ReferralService {
	return &ReferralService{repo: repo, users: users}
}

// RecordSignup фиксирует регистрацию пользователя по приглашению агента.
// Приглашение записывается только при существующем пользователе-агенте.
func (s *ReferralService) RecordSignup(ctx context.Context, agentID, referredID uuid.UUID) error {
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.Role != models.RoleAgent {
		return errors.New("referral service: приглашающий не является агентом")
	}

	ref := &models.Referral{
		AgentID:    agentID,
		ReferredID: referredID,
	}
	return s.repo.Create(ctx, ref)
}

// TierForConverted определяет уровень по числу сработавших приглашений.
func TierForConverted(converted int) string {
	switch {
	case converted >= models.ReferralsNeededByTier[models.ReferralTierSilver]:
		return models.ReferralTierGold
	case converted >= models.ReferralsNeededByTier[models.ReferralTierBronze]:
		return models.ReferralTierSilver
	default:
		return models.ReferralTierBronze
	}
}

// OnContractSigned начисляет комиссию агенту, пригласившему подписавшего
// владельца жилья. Повторное начисление по одному предложению исключено.
// Отсутствие приглашения — нормальный случай, не ошибка.
func (s *ReferralService) OnContractSigned(ctx context.Context, proposal *models.Proposal) error {
	if proposal.HomeownerID == nil {
		return nil
	}

	ref, err := s.repo.GetByReferred(ctx, *proposal.HomeownerID)
	if err != nil {
		if errors.Is(err, repository.ErrReferralNotFound) {
			return nil
		}
		return err
	}

	already, err := s.repo.HasCommissionForProposal(ctx, proposal.ID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if err := s.repo.MarkConverted(ctx, ref.ID); err != nil {
		return err
	}

	converted, err := s.repo.CountConvertedByAgent(ctx, ref.AgentID)
	if err != nil {
		return err
	}

	tier := TierForConverted(converted)
	rate := commissionRateByTier[tier]

	commission := &models.Commission{
		AgentID:    ref.AgentID,
		ProposalID: proposal.ID,
		Amount:     proposal.EstimatedCost.Mul(rate).Round(2),
		Rate:       rate,
	}
	if err := s.repo.CreateCommission(ctx, commission); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"agent_id":    ref.AgentID,
		"proposal_id": proposal.ID,
		"amount":      commission.Amount.StringFixed(2),
		"tier":        tier,
	}).Info("referral service: начислена комиссия")

	return nil
}

// Progress возвращает агрегат программы для дашборда агента.
func (s *ReferralService) Progress(ctx context.Context, agentID uuid.UUID) (*ReferralProgress, error) {
	converted, err := s.repo.CountConvertedByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	tier := TierForConverted(converted)
	needed := models.ReferralsNeededByTier[tier]

	percent := 100
	if needed > 0 {
		percent = converted * 100 / needed
		if percent > 100 {
			percent = 100
		}
	}

	total, err := s.repo.SumCommissions(ctx, agentID)
	if err != nil {
		return nil, err
	}

	return &ReferralProgress{
		Tier:            tier,
		Converted:       converted,
		NeededForNext:   needed,
		ProgressPercent: percent,
		TotalCommission: total,
	}, nil
}

// ListReferrals возвращает приглашения агента.
func (s *ReferralService) ListReferrals(ctx context.Context, agentID uuid.UUID) ([]models.Referral, error) {
	return s.repo.ListByAgent(ctx, agentID)
}

// ListCommissions возвращает комиссии агента.
func (s *ReferralService) ListCommissions(ctx context.Context, agentID uuid.UUID) ([]models.Commission, error) {
	return s.repo.ListCommissions(ctx, agentID)
}
