package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/homecare-backend/internal/domain/valueobject"
	"github.com/ignatzorin/homecare-backend/internal/logger"
	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
	"github.com/ignatzorin/homecare-backend/internal/signature"
	"github.com/ignatzorin/homecare-backend/internal/validation"
)

// События, рассылаемые по WebSocket при смене состояния предложения.
const (
	EventProposalReceived    = "proposal.received"
	EventProposalAccepted    = "proposal.accepted"
	EventProposalRejected    = "proposal.rejected"
	EventProposalSigned      = "proposal.signed"
	EventAchievementUnlocked = "achievement.unlocked"
)

// ProposalRepositoryAPI описывает зависимости сервиса от хранилища предложений.
type ProposalRepositoryAPI interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Proposal, error)
	ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Proposal, error)
	Update(ctx context.Context, p *models.Proposal) error
	SetContract(ctx context.Context, id uuid.UUID, contractFilePath string) error
	SetCustomerSignature(ctx context.Context, id uuid.UUID, signatureData, signerName string, signedAt time.Time, ipAddress *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// UserLookup возвращает пользователя для проверки роли получателя.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier доставляет событие пользователю в реальном времени.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// AchievementAwarder разблокирует достижения по ходу жизненного цикла.
type AchievementAwarder interface {
	Award(ctx context.Context, userID uuid.UUID, code string) (*models.Achievement, error)
	EvaluateContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Achievement, error)
}

// ContractSignedHook вызывается после успешного подписания договора.
type ContractSignedHook interface {
	OnContractSigned(ctx context.Context, proposal *models.Proposal) error
}

// CreateProposalInput содержит данные нового предложения.
// Materials передаётся сырой строкой через запятую и нормализуется сервисом.
type CreateProposalInput struct {
	HomeownerID       *uuid.UUID
	PropertyID        *uuid.UUID
	Title             string
	Description       string
	ServiceType       string
	EstimatedCost     string
	EstimatedDuration *string
	Scope             *string
	Materials         string
	WarrantyPeriod    *string
	ValidUntil        *time.Time
	CustomerNotes     *string
	InternalNotes     *string
}

// ProposalResult несёт предложение и достижения, разблокированные
// в ходе операции, отдельным списком событий.
type ProposalResult struct {
	Proposal *models.Proposal     `json:"proposal"`
	Unlocked []models.Achievement `json:"unlocked,omitempty"`
}

// ProposalService оркестрирует жизненный цикл предложения: черновик,
// отправку, решение заказчика, договор и подпись.
type ProposalService struct {
	repo         ProposalRepositoryAPI
	users        UserLookup
	achievements AchievementAwarder
	notifier     Notifier
	signedHook   ContractSignedHook
	ipResolver   signature.IPResolver
	cache        *CacheService
}

// NewProposalService создаёт сервис предложений.
func NewProposalService(
	repo ProposalRepositoryAPI,
	users UserLookup,
	achievements AchievementAwarder,
	notifier Notifier,
	signedHook ContractSignedHook,
	ipResolver signature.IPResolver,
	cache *CacheService,
) *ProposalService {
	return &ProposalService{
		repo:         repo,
		users:        users,
		achievements: achievements,
		notifier:     notifier,
		signedHook:   signedHook,
		ipResolver:   ipResolver,
		cache:        cache,
	}
}

// Create создаёт черновик предложения.
func (s *ProposalService) Create(ctx context.Context, contractorID uuid.UUID, in CreateProposalInput) (*ProposalResult, error) {
	if err := validation.ValidateProposalTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание", in.Description, 0, validation.MaxDescriptionLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidServiceTypes[in.ServiceType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный вид услуг")
	}

	cost, err := valueobject.NewCost(in.EstimatedCost)
	if err != nil {
		return nil, err
	}

	materials := validation.NormalizeMaterials(in.Materials)
	if err := validation.ValidateMaterials(materials); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if in.HomeownerID != nil {
		if err := s.requireHomeowner(ctx, *in.HomeownerID); err != nil {
			return nil, err
		}
	}

	proposal := &models.Proposal{
		ContractorID:      contractorID,
		HomeownerID:       in.HomeownerID,
		PropertyID:        in.PropertyID,
		Title:             in.Title,
		Description:       in.Description,
		ServiceType:       in.ServiceType,
		EstimatedCost:     cost.Decimal(),
		EstimatedDuration: in.EstimatedDuration,
		Scope:             in.Scope,
		Materials:         pq.StringArray(materials),
		WarrantyPeriod:    in.WarrantyPeriod,
		ValidUntil:        in.ValidUntil,
		Status:            models.ProposalStatusDraft,
		CustomerNotes:     in.CustomerNotes,
		InternalNotes:     in.InternalNotes,
		Attachments:       pq.StringArray{},
	}

	if err := s.repo.Create(ctx, proposal); err != nil {
		return nil, err
	}

	unlocked := s.award(ctx, contractorID, models.AchievementFirstProposal)
	s.invalidate(proposal)

	return &ProposalResult{Proposal: proposal, Unlocked: unlocked}, nil
}

// Get возвращает предложение с проверкой доступа: подрядчик видит свои,
// владелец жилья — адресованные ему, кроме черновиков.
func (s *ProposalService) Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.getChecked(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// ListForUser возвращает предложения пользователя в зависимости от роли.
func (s *ProposalService) ListForUser(ctx context.Context, userID uuid.UUID, role string) ([]models.Proposal, error) {
	switch role {
	case models.RoleContractor:
		return s.repo.ListByContractor(ctx, userID)
	case models.RoleHomeowner:
		return s.repo.ListByHomeowner(ctx, userID)
	default:
		return []models.Proposal{}, nil
	}
}

// Update применяет частичное обновление черновика или отправленного
// предложения. Подписанное предложение неизменяемо.
func (s *ProposalService) Update(ctx context.Context, contractorID, id uuid.UUID, patch models.ProposalPatch) (*ProposalResult, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if proposal.ContractorID != contractorID {
		return nil, apperror.ErrForbidden
	}
	if proposal.CustomerSignature != nil {
		return nil, apperror.ErrAlreadySigned
	}

	if err := s.applyPatch(ctx, proposal, patch); err != nil {
		return nil, err
	}

	var unlocked []models.Achievement
	if patch.Status != nil && *patch.Status == models.ProposalStatusSent && proposal.Status == models.ProposalStatusSent {
		unlocked = s.award(ctx, contractorID, models.AchievementFirstSent)
	}

	if err := s.repo.Update(ctx, proposal); err != nil {
		return nil, s.mapNotFound(err)
	}

	if patch.Status != nil && proposal.Status == models.ProposalStatusSent && proposal.HomeownerID != nil {
		s.notify(*proposal.HomeownerID, EventProposalReceived, proposal)
	}

	s.invalidate(proposal)
	return &ProposalResult{Proposal: proposal, Unlocked: unlocked}, nil
}

// applyPatch накладывает ненулевые поля патча на предложение.
func (s *ProposalService) applyPatch(ctx context.Context, p *models.Proposal, patch models.ProposalPatch) error {
	if patch.HomeownerID != nil {
		if err := s.requireHomeowner(ctx, *patch.HomeownerID); err != nil {
			return err
		}
		p.HomeownerID = patch.HomeownerID
	}
	if patch.PropertyID != nil {
		p.PropertyID = patch.PropertyID
	}
	if patch.Title != nil {
		if err := validation.ValidateProposalTitle(*patch.Title); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		if err := validation.ValidateLength("описание", *patch.Description, 0, validation.MaxDescriptionLength); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		p.Description = *patch.Description
	}
	if patch.ServiceType != nil {
		if _, ok := models.ValidServiceTypes[*patch.ServiceType]; !ok {
			return apperror.New(apperror.ErrCodeValidation, "некорректный вид услуг")
		}
		p.ServiceType = *patch.ServiceType
	}
	if patch.EstimatedCost != nil {
		cost, err := valueobject.NewCost(*patch.EstimatedCost)
		if err != nil {
			return err
		}
		p.EstimatedCost = cost.Decimal()
	}
	if patch.EstimatedDuration != nil {
		p.EstimatedDuration = patch.EstimatedDuration
	}
	if patch.Scope != nil {
		if err := validation.ValidateLength("объём работ", *patch.Scope, 0, validation.MaxScopeLength); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		p.Scope = patch.Scope
	}
	if patch.Materials != nil {
		materials := validation.NormalizeMaterials(*patch.Materials)
		if err := validation.ValidateMaterials(materials); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		p.Materials = pq.StringArray(materials)
	}
	if patch.WarrantyPeriod != nil {
		p.WarrantyPeriod = patch.WarrantyPeriod
	}
	if patch.ValidUntil != nil {
		p.ValidUntil = patch.ValidUntil
	}
	if patch.CustomerNotes != nil {
		p.CustomerNotes = patch.CustomerNotes
	}
	if patch.InternalNotes != nil {
		p.InternalNotes = patch.InternalNotes
	}
	if patch.Attachments != nil {
		p.Attachments = pq.StringArray(patch.Attachments)
	}
	if patch.Status != nil {
		if err := s.transition(p, *patch.Status); err != nil {
			return err
		}
	}
	return nil
}

// transition меняет статус с проверкой допустимости перехода.
// Подрядчик через патч может только отправить черновик.
func (s *ProposalService) transition(p *models.Proposal, newStatus string) error {
	target, err := valueobject.NewProposalStatus(newStatus)
	if err != nil {
		return err
	}

	current := valueobject.ProposalStatus(p.Status)
	if !current.CanTransitionTo(target) {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"переход "+p.Status+" -> "+newStatus+" недопустим")
	}
	if current == target {
		return nil
	}

	if target != valueobject.ProposalStatusSent {
		return apperror.New(apperror.ErrCodeForbidden, "решение по предложению принимает владелец жилья")
	}
	if p.HomeownerID == nil {
		return apperror.ErrHomeownerMissing
	}

	p.Status = string(target)
	return nil
}

// Send отправляет черновик владельцу жилья.
func (s *ProposalService) Send(ctx context.Context, contractorID, id uuid.UUID) (*ProposalResult, error) {
	status := models.ProposalStatusSent
	return s.Update(ctx, contractorID, id, models.ProposalPatch{Status: &status})
}

// Accept фиксирует принятие предложения владельцем жилья.
func (s *ProposalService) Accept(ctx context.Context, homeownerID, id uuid.UUID) (*ProposalResult, error) {
	return s.decide(ctx, homeownerID, id, valueobject.ProposalStatusAccepted, EventProposalAccepted)
}

// Reject фиксирует отклонение предложения владельцем жилья.
func (s *ProposalService) Reject(ctx context.Context, homeownerID, id uuid.UUID) (*ProposalResult, error) {
	return s.decide(ctx, homeownerID, id, valueobject.ProposalStatusRejected, EventProposalRejected)
}

// decide общий путь решения заказчика по отправленному предложению.
func (s *ProposalService) decide(ctx context.Context, homeownerID, id uuid.UUID, target valueobject.ProposalStatus, event string) (*ProposalResult, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if proposal.HomeownerID == nil || *proposal.HomeownerID != homeownerID {
		return nil, apperror.ErrForbidden
	}

	current := valueobject.ProposalStatus(proposal.Status)
	if !current.CanTransitionTo(target) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			"переход "+proposal.Status+" -> "+string(target)+" недопустим")
	}
	if current == target {
		return &ProposalResult{Proposal: proposal}, nil
	}

	proposal.Status = string(target)
	if err := s.repo.Update(ctx, proposal); err != nil {
		return nil, s.mapNotFound(err)
	}

	var unlocked []models.Achievement
	if target == valueobject.ProposalStatusAccepted && s.achievements != nil {
		more, err := s.achievements.EvaluateContractor(ctx, proposal.ContractorID)
		if err != nil {
			logger.Log.WithField("error", err.Error()).Warn("proposal service: не удалось проверить достижения")
		} else {
			unlocked = more
		}
	}

	s.notify(proposal.ContractorID, event, proposal)
	for _, a := range unlocked {
		s.notify(proposal.ContractorID, EventAchievementUnlocked, a)
	}
	s.invalidate(proposal)

	return &ProposalResult{Proposal: proposal, Unlocked: unlocked}, nil
}

// Delete удаляет черновик. Отправленные и решённые предложения
// сохраняются как история.
func (s *ProposalService) Delete(ctx context.Context, contractorID, id uuid.UUID) error {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.mapNotFound(err)
	}
	if proposal.ContractorID != contractorID {
		return apperror.ErrForbidden
	}
	if proposal.Status != models.ProposalStatusDraft {
		return apperror.New(apperror.ErrCodeConflict, "удалить можно только черновик")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapNotFound(err)
	}
	s.invalidate(proposal)
	return nil
}

// SetAttachments заменяет список вложений предложения.
func (s *ProposalService) SetAttachments(ctx context.Context, contractorID, id uuid.UUID, paths []string) (*models.Proposal, error) {
	result, err := s.Update(ctx, contractorID, id, models.ProposalPatch{Attachments: paths})
	if err != nil {
		return nil, err
	}
	return result.Proposal, nil
}

// AttachContract сохраняет путь загруженного договора. Замена договора
// после подписания запрещена.
func (s *ProposalService) AttachContract(ctx context.Context, contractorID, id uuid.UUID, objectPath string) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if proposal.ContractorID != contractorID {
		return nil, apperror.ErrForbidden
	}
	if proposal.CustomerSignature != nil {
		return nil, apperror.ErrAlreadySigned
	}

	if err := s.repo.SetContract(ctx, id, objectPath); err != nil {
		return nil, s.mapNotFound(err)
	}

	proposal.ContractFilePath = &objectPath
	s.invalidate(proposal)
	return proposal, nil
}

// Sign принимает подпись заказчика. Требования: договор загружен,
// подписи ещё нет, получатель назначен и подписывает именно он.
// Подписание отправленного предложения одновременно означает принятие.
func (s *ProposalService) Sign(ctx context.Context, homeownerID, id uuid.UUID, strokes []signature.Stroke, signerName string) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	if proposal.HomeownerID == nil {
		return nil, apperror.ErrHomeownerMissing
	}
	if *proposal.HomeownerID != homeownerID {
		return nil, apperror.ErrForbidden
	}
	if proposal.CustomerSignature != nil {
		return nil, apperror.ErrAlreadySigned
	}
	if proposal.ContractFilePath == nil {
		return nil, apperror.ErrContractMissing
	}

	current := valueobject.ProposalStatus(proposal.Status)
	if current != valueobject.ProposalStatusSent && current != valueobject.ProposalStatusAccepted {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			"подписание из статуса "+proposal.Status+" недопустимо")
	}

	pad := signature.NewPad()
	for _, stroke := range strokes {
		pad.AddStroke(stroke)
	}

	capture, err := pad.Submit(ctx, signerName, s.ipResolver)
	if err != nil {
		return nil, err
	}

	var ip *string
	if capture.IPAddress != "" {
		ip = &capture.IPAddress
	}

	if err := s.repo.SetCustomerSignature(ctx, id, capture.Signature, capture.SignerName, capture.SignedAt, ip); err != nil {
		return nil, s.mapNotFound(err)
	}

	proposal.CustomerSignature = &capture.Signature
	proposal.SignerName = &capture.SignerName
	proposal.ContractSignedAt = &capture.SignedAt
	proposal.SignatureIPAddress = ip

	// Подписание из sent означает принятие.
	if current == valueobject.ProposalStatusSent {
		proposal.Status = models.ProposalStatusAccepted
		if err := s.repo.Update(ctx, proposal); err != nil {
			return nil, s.mapNotFound(err)
		}
	}

	if s.signedHook != nil {
		if err := s.signedHook.OnContractSigned(ctx, proposal); err != nil {
			logger.Log.WithFields(map[string]interface{}{
				"proposal_id": proposal.ID,
				"error":       err.Error(),
			}).Warn("proposal service: не удалось начислить комиссию")
		}
	}

	unlocked := s.award(ctx, proposal.ContractorID, models.AchievementFirstContract)
	if s.achievements != nil {
		if more, err := s.achievements.EvaluateContractor(ctx, proposal.ContractorID); err == nil {
			unlocked = append(unlocked, more...)
		}
	}

	s.notify(proposal.ContractorID, EventProposalSigned, proposal)
	for _, a := range unlocked {
		s.notify(proposal.ContractorID, EventAchievementUnlocked, a)
	}
	s.invalidate(proposal)

	return proposal, nil
}

// ExpireOverdue переводит просроченные предложения в expired.
func (s *ProposalService) ExpireOverdue(ctx context.Context) (int64, error) {
	affected, err := s.repo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		if s.cache != nil {
			s.cache.InvalidateByPrefix("dashboard:")
		}
		logger.Log.WithField("count", affected).Info("proposal service: просроченные предложения закрыты")
	}
	return affected, nil
}

// StartExpirySweep запускает фоновый цикл закрытия просроченных
// предложений. Останавливается по отмене контекста.
func (s *ProposalService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireOverdue(ctx); err != nil {
				logger.Log.WithField("error", err.Error()).Error("proposal service: ошибка фоновой проверки сроков")
			}
		}
	}
}

// getChecked загружает предложение и проверяет доступ стороны.
func (s *ProposalService) getChecked(ctx context.Context, userID, id uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	if proposal.ContractorID == userID {
		return proposal, nil
	}
	if proposal.HomeownerID != nil && *proposal.HomeownerID == userID && proposal.Status != models.ProposalStatusDraft {
		return proposal, nil
	}
	return nil, apperror.ErrForbidden
}

// requireHomeowner проверяет, что получатель существует и владеет жильём.
func (s *ProposalService) requireHomeowner(ctx context.Context, homeownerID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, homeownerID)
	if err != nil {
		return apperror.New(apperror.ErrCodeValidation, "получатель не найден")
	}
	if user.Role != models.RoleHomeowner {
		return apperror.New(apperror.ErrCodeValidation, "получателем может быть только владелец жилья")
	}
	return nil
}

// award разблокирует одно достижение, ошибки не фатальны.
func (s *ProposalService) award(ctx context.Context, userID uuid.UUID, code string) []models.Achievement {
	if s.achievements == nil {
		return nil
	}
	a, err := s.achievements.Award(ctx, userID, code)
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": userID,
			"code":    code,
			"error":   err.Error(),
		}).Warn("proposal service: не удалось выдать достижение")
		return nil
	}
	if a == nil {
		return nil
	}
	return []models.Achievement{*a}
}

// notify шлёт событие по WebSocket, отказ доставки не прерывает операцию.
func (s *ProposalService) notify(userID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": userID,
			"event":   event,
			"error":   err.Error(),
		}).Warn("proposal service: не удалось доставить событие")
	}
}

// invalidate сбрасывает кеши, зависящие от предложения.
func (s *ProposalService) invalidate(p *models.Proposal) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateProposalCache(p.ID)
	s.cache.InvalidateUserCache(p.ContractorID)
	if p.HomeownerID != nil {
		s.cache.InvalidateUserCache(*p.HomeownerID)
	}
}

// mapNotFound переводит ошибку репозитория в доменную.
func (s *ProposalService) mapNotFound(err error) error {
	if errors.Is(err, repository.ErrProposalNotFound) {
		return apperror.ErrProposalNotFound
	}
	return err
}
