package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

var ErrReferralNotFound = errors.New("referral not found")

// ReferralRepository отвечает за приглашения агентов и комиссии.
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository создаёт новый экземпляр.
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Create сохраняет приглашение.
func (r *ReferralRepository) Create(ctx context.Context, ref *models.Referral) error {
	query := `
		INSERT INTO referrals (agent_id, referred_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, ref.AgentID, ref.ReferredID).
		Scan(&ref.ID, &ref.CreatedAt); err != nil {
		return fmt.Errorf("referral repository: insert %w", err)
	}
	return nil
}

// GetByReferred возвращает приглашение по приглашённому пользователю.
func (r *ReferralRepository) GetByReferred(ctx context.Context, referredID uuid.UUID) (*models.Referral, error) {
	var ref models.Referral
	query := `SELECT id, agent_id, referred_id, converted_at, created_at FROM referrals WHERE referred_id = $1`
	if err := r.db.GetContext(ctx, &ref, query, referredID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("referral repository: get by referred %w", err)
	}
	return &ref, nil
}

// ListByAgent возвращает приглашения агента.
func (r *ReferralRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Referral, error) {
	var referrals []models.Referral
	query := `SELECT id, agent_id, referred_id, converted_at, created_at FROM referrals WHERE agent_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &referrals, query, agentID); err != nil {
		return nil, fmt.Errorf("referral repository: list by agent %w", err)
	}
	return referrals, nil
}

// CountConvertedByAgent считает приглашения, дошедшие до подписанного договора.
func (r *ReferralRepository) CountConvertedByAgent(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM referrals WHERE agent_id = $1 AND converted_at IS NOT NULL`
	if err := r.db.GetContext(ctx, &count, query, agentID); err != nil {
		return 0, fmt.Errorf("referral repository: count converted %w", err)
	}
	return count, nil
}

// MarkConverted отмечает приглашение сработавшим. Повторные вызовы
// не двигают первоначальную дату.
func (r *ReferralRepository) MarkConverted(ctx context.Context, referralID uuid.UUID) error {
	query := `UPDATE referrals SET converted_at = NOW() WHERE id = $1 AND converted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, referralID); err != nil {
		return fmt.Errorf("referral repository: mark converted %w", err)
	}
	return nil
}

// CreateCommission сохраняет начисленную комиссию.
func (r *ReferralRepository) CreateCommission(ctx context.Context, c *models.Commission) error {
	query := `
		INSERT INTO commissions (agent_id, proposal_id, amount, rate)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, c.AgentID, c.ProposalID, c.Amount, c.Rate).
		Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("referral repository: insert commission %w", err)
	}
	return nil
}

// HasCommissionForProposal проверяет, начислялась ли комиссия по предложению.
func (r *ReferralRepository) HasCommissionForProposal(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM commissions WHERE proposal_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, proposalID); err != nil {
		return false, fmt.Errorf("referral repository: has commission %w", err)
	}
	return exists, nil
}

// ListCommissions возвращает комиссии агента, свежие сверху.
func (r *ReferralRepository) ListCommissions(ctx context.Context, agentID uuid.UUID) ([]models.Commission, error) {
	var commissions []models.Commission
	query := `SELECT id, agent_id, proposal_id, amount, rate, created_at FROM commissions WHERE agent_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &commissions, query, agentID); err != nil {
		return nil, fmt.Errorf("referral repository: list commissions %w", err)
	}
	return commissions, nil
}

// SumCommissions суммирует комиссии агента на стороне базы.
func (r *ReferralRepository) SumCommissions(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM commissions WHERE agent_id = $1`
	if err := r.db.GetContext(ctx, &sum, query, agentID); err != nil {
		return decimal.Zero, fmt.Errorf("referral repository: sum commissions %w", err)
	}
	return sum, nil
}
