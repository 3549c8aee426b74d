package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrProposalNotFound = errors.New("proposal not found")
)

const proposalColumns = `
	id, contractor_id, homeowner_id, property_id, title, description, service_type,
	estimated_cost, estimated_duration, scope, materials, warranty_period, valid_until,
	status, customer_notes, internal_notes, attachments, contract_file_path,
	contract_signed_at, customer_signature, contractor_signature, signer_name,
	signature_ip_address, created_at, updated_at
`

// ProposalRepository отвечает за работу с предложениями.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository создаёт новый экземпляр.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create сохраняет новое предложение.
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (
			contractor_id, homeowner_id, property_id, title, description, service_type,
			estimated_cost, estimated_duration, scope, materials, warranty_period,
			valid_until, status, customer_notes, internal_notes, attachments
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		p.ContractorID,
		p.HomeownerID,
		p.PropertyID,
		p.Title,
		p.Description,
		p.ServiceType,
		p.EstimatedCost,
		p.EstimatedDuration,
		p.Scope,
		p.Materials,
		p.WarrantyPeriod,
		p.ValidUntil,
		p.Status,
		p.CustomerNotes,
		p.InternalNotes,
		p.Attachments,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("proposal repository: insert %w", err)
	}

	return nil
}

// GetByID возвращает предложение по идентификатору.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get by id %w", err)
	}
	return &p, nil
}

// ListByContractor возвращает предложения подрядчика, новые сверху.
func (r *ProposalRepository) ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE contractor_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &proposals, query, contractorID); err != nil {
		return nil, fmt.Errorf("proposal repository: list by contractor %w", err)
	}
	return proposals, nil
}

// ListByHomeowner возвращает предложения, адресованные владельцу жилья.
// Черновики без получателя сюда не попадают.
func (r *ProposalRepository) ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE homeowner_id = $1 AND status <> 'draft' ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &proposals, query, homeownerID); err != nil {
		return nil, fmt.Errorf("proposal repository: list by homeowner %w", err)
	}
	return proposals, nil
}

// Update перезаписывает изменяемые поля предложения.
// Поля договора и подписи обновляются отдельными методами.
func (r *ProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	query := `
		UPDATE proposals
		SET homeowner_id = $2,
		    property_id = $3,
		    title = $4,
		    description = $5,
		    service_type = $6,
		    estimated_cost = $7,
		    estimated_duration = $8,
		    scope = $9,
		    materials = $10,
		    warranty_period = $11,
		    valid_until = $12,
		    status = $13,
		    customer_notes = $14,
		    internal_notes = $15,
		    attachments = $16,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		p.ID,
		p.HomeownerID,
		p.PropertyID,
		p.Title,
		p.Description,
		p.ServiceType,
		p.EstimatedCost,
		p.EstimatedDuration,
		p.Scope,
		p.Materials,
		p.WarrantyPeriod,
		p.ValidUntil,
		p.Status,
		p.CustomerNotes,
		p.InternalNotes,
		p.Attachments,
	).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProposalNotFound
		}
		return fmt.Errorf("proposal repository: update %w", err)
	}

	return nil
}

// SetContract сохраняет путь загруженного договора.
func (r *ProposalRepository) SetContract(ctx context.Context, id uuid.UUID, contractFilePath string) error {
	query := `UPDATE proposals SET contract_file_path = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, contractFilePath)
	if err != nil {
		return fmt.Errorf("proposal repository: set contract %w", err)
	}
	return requireAffected(res, ErrProposalNotFound)
}

// SetCustomerSignature сохраняет подпись заказчика и момент подписания.
func (r *ProposalRepository) SetCustomerSignature(
	ctx context.Context,
	id uuid.UUID,
	signatureData string,
	signerName string,
	signedAt time.Time,
	ipAddress *string,
) error {
	query := `
		UPDATE proposals
		SET customer_signature = $2,
		    signer_name = $3,
		    contract_signed_at = $4,
		    signature_ip_address = $5,
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, signatureData, signerName, signedAt, ipAddress)
	if err != nil {
		return fmt.Errorf("proposal repository: set signature %w", err)
	}
	return requireAffected(res, ErrProposalNotFound)
}

// Delete удаляет предложение без возможности восстановления.
func (r *ProposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("proposal repository: delete %w", err)
	}
	return requireAffected(res, ErrProposalNotFound)
}

// ExpireOverdue переводит просроченные отправленные предложения в expired.
// Возвращает количество затронутых строк.
func (r *ProposalRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE proposals
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'sent' AND valid_until IS NOT NULL AND valid_until < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("proposal repository: expire overdue %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("proposal repository: expire overdue rows affected %w", err)
	}
	return affected, nil
}

// CountByContractorAndStatus считает предложения подрядчика в заданном статусе.
func (r *ProposalRepository) CountByContractorAndStatus(ctx context.Context, contractorID uuid.UUID, status string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM proposals WHERE contractor_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &count, query, contractorID, status); err != nil {
		return 0, fmt.Errorf("proposal repository: count by status %w", err)
	}
	return count, nil
}

// CountSignedByContractor считает подписанные договоры подрядчика.
func (r *ProposalRepository) CountSignedByContractor(ctx context.Context, contractorID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM proposals WHERE contractor_id = $1 AND customer_signature IS NOT NULL`
	if err := r.db.GetContext(ctx, &count, query, contractorID); err != nil {
		return 0, fmt.Errorf("proposal repository: count signed %w", err)
	}
	return count, nil
}

// SumAcceptedCosts суммирует стоимость принятых предложений подрядчика.
// Суммирование выполняется базой по NUMERIC колонке, без плавающей точки.
func (r *ProposalRepository) SumAcceptedCosts(ctx context.Context, contractorID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(estimated_cost), 0)
		FROM proposals
		WHERE contractor_id = $1 AND status = 'accepted'
	`
	if err := r.db.GetContext(ctx, &sum, query, contractorID); err != nil {
		return decimal.Zero, fmt.Errorf("proposal repository: sum accepted %w", err)
	}
	return sum, nil
}

// requireAffected переводит нулевое число затронутых строк в notFound ошибку.
func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("proposal repository: rows affected %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
