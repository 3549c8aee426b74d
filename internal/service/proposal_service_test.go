package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
	"github.com/ignatzorin/homecare-backend/internal/signature"
)

// mockProposalRepository реализует ProposalRepositoryAPI для тестов.
type mockProposalRepository struct {
	proposals map[uuid.UUID]*models.Proposal
}

func newMockProposalRepository() *mockProposalRepository {
	return &mockProposalRepository{proposals: make(map[uuid.UUID]*models.Proposal)}
}

func (m *mockProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	clone := *p
	m.proposals[p.ID] = &clone
	return nil
}

func (m *mockProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	if p, ok := m.proposals[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, repository.ErrProposalNotFound
}

func (m *mockProposalRepository) ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range m.proposals {
		if p.ContractorID == contractorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProposalRepository) ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range m.proposals {
		if p.HomeownerID != nil && *p.HomeownerID == homeownerID && p.Status != models.ProposalStatusDraft {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	if _, ok := m.proposals[p.ID]; !ok {
		return repository.ErrProposalNotFound
	}
	p.UpdatedAt = time.Now()
	clone := *p
	m.proposals[p.ID] = &clone
	return nil
}

func (m *mockProposalRepository) SetContract(ctx context.Context, id uuid.UUID, contractFilePath string) error {
	p, ok := m.proposals[id]
	if !ok {
		return repository.ErrProposalNotFound
	}
	p.ContractFilePath = &contractFilePath
	return nil
}

func (m *mockProposalRepository) SetCustomerSignature(ctx context.Context, id uuid.UUID, signatureData, signerName string, signedAt time.Time, ipAddress *string) error {
	p, ok := m.proposals[id]
	if !ok {
		return repository.ErrProposalNotFound
	}
	p.CustomerSignature = &signatureData
	p.SignerName = &signerName
	p.ContractSignedAt = &signedAt
	p.SignatureIPAddress = ipAddress
	return nil
}

func (m *mockProposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.proposals[id]; !ok {
		return repository.ErrProposalNotFound
	}
	delete(m.proposals, id)
	return nil
}

func (m *mockProposalRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	for _, p := range m.proposals {
		if p.Status == models.ProposalStatusSent && p.ValidUntil != nil && p.ValidUntil.Before(now) {
			p.Status = models.ProposalStatusExpired
			affected++
		}
	}
	return affected, nil
}

// mockUserLookup реализует UserLookup.
type mockUserLookup struct {
	users map[uuid.UUID]*models.User
}

func newMockUserLookup() *mockUserLookup {
	return &mockUserLookup{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserLookup) addUser(role string) uuid.UUID {
	id := uuid.New()
	m.users[id] = &models.User{ID: id, Role: role, IsActive: true}
	return id
}

func (m *mockUserLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

// mockNotifier запоминает отправленные события.
type mockNotifier struct {
	events []notifierEvent
}

type notifierEvent struct {
	userID uuid.UUID
	event  string
}

func (m *mockNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	m.events = append(m.events, notifierEvent{userID: userID, event: event})
	return nil
}

func (m *mockNotifier) eventsFor(userID uuid.UUID) []string {
	var out []string
	for _, e := range m.events {
		if e.userID == userID {
			out = append(out, e.event)
		}
	}
	return out
}

// mockAwarder фиксирует выданные достижения.
type mockAwarder struct {
	awarded map[string]bool
}

func newMockAwarder() *mockAwarder {
	return &mockAwarder{awarded: make(map[string]bool)}
}

func (m *mockAwarder) Award(ctx context.Context, userID uuid.UUID, code string) (*models.Achievement, error) {
	if m.awarded[code] {
		return nil, nil
	}
	m.awarded[code] = true
	return &models.Achievement{ID: uuid.New(), UserID: userID, Code: code, UnlockedAt: time.Now()}, nil
}

func (m *mockAwarder) EvaluateContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Achievement, error) {
	return nil, nil
}

// mockSignedHook фиксирует вызовы после подписания.
type mockSignedHook struct {
	calls int
}

func (m *mockSignedHook) OnContractSigned(ctx context.Context, proposal *models.Proposal) error {
	m.calls++
	return nil
}

type fixedIPResolver struct{}

func (fixedIPResolver) Resolve(ctx context.Context) string { return "198.51.100.1" }

type proposalFixture struct {
	service      *ProposalService
	repo         *mockProposalRepository
	users        *mockUserLookup
	notifier     *mockNotifier
	awarder      *mockAwarder
	hook         *mockSignedHook
	contractorID uuid.UUID
	homeownerID  uuid.UUID
}

func newProposalFixture() *proposalFixture {
	repo := newMockProposalRepository()
	users := newMockUserLookup()
	notifier := &mockNotifier{}
	awarder := newMockAwarder()
	hook := &mockSignedHook{}

	f := &proposalFixture{
		repo:         repo,
		users:        users,
		notifier:     notifier,
		awarder:      awarder,
		hook:         hook,
		contractorID: users.addUser(models.RoleContractor),
		homeownerID:  users.addUser(models.RoleHomeowner),
	}
	f.service = NewProposalService(repo, users, awarder, notifier, hook, fixedIPResolver{}, NewCacheService())
	return f
}

func (f *proposalFixture) createDraft(t *testing.T) *models.Proposal {
	t.Helper()
	result, err := f.service.Create(context.Background(), f.contractorID, CreateProposalInput{
		HomeownerID:   &f.homeownerID,
		Title:         "Замена кровли",
		Description:   "Полная замена кровельного покрытия",
		ServiceType:   models.ServiceTypeRoofing,
		EstimatedCost: "4500.5",
		Materials:     "черепица, гидроизоляция, крепёж",
	})
	if err != nil {
		t.Fatalf("не удалось создать черновик: %v", err)
	}
	return result.Proposal
}

func signStrokes() []signature.Stroke {
	return []signature.Stroke{{{X: 10, Y: 10}, {X: 50, Y: 40}}}
}

func TestProposalCreateNormalizes(t *testing.T) {
	f := newProposalFixture()
	proposal := f.createDraft(t)

	if proposal.Status != models.ProposalStatusDraft {
		t.Fatalf("новое предложение должно быть черновиком, получили %s", proposal.Status)
	}
	if proposal.EstimatedCost.StringFixed(2) != "4500.50" {
		t.Fatalf("стоимость должна нормализоваться до 4500.50, получили %s", proposal.EstimatedCost.StringFixed(2))
	}
	if len(proposal.Materials) != 3 || proposal.Materials[0] != "черепица" {
		t.Fatalf("материалы должны нормализоваться, получили %v", proposal.Materials)
	}
	if !f.awarder.awarded[models.AchievementFirstProposal] {
		t.Fatalf("за первое предложение должно выдаваться достижение")
	}
}

func TestProposalCreateRejectsInvalid(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	cases := []CreateProposalInput{
		{Title: "", ServiceType: models.ServiceTypeGeneral, EstimatedCost: "10"},
		{Title: "Покраска стен", ServiceType: "exorcism", EstimatedCost: "10"},
		{Title: "Покраска стен", ServiceType: models.ServiceTypePainting, EstimatedCost: "-5"},
		{Title: "Покраска стен", ServiceType: models.ServiceTypePainting, EstimatedCost: "дорого"},
	}
	for i, in := range cases {
		if _, err := f.service.Create(ctx, f.contractorID, in); err == nil {
			t.Fatalf("кейс %d: ожидалась ошибка валидации", i)
		}
	}
}

// Получателем предложения может быть только владелец жилья.
func TestProposalCreateRequiresHomeownerRole(t *testing.T) {
	f := newProposalFixture()
	otherContractor := f.users.addUser(models.RoleContractor)

	_, err := f.service.Create(context.Background(), f.contractorID, CreateProposalInput{
		HomeownerID:   &otherContractor,
		Title:         "Покраска стен",
		ServiceType:   models.ServiceTypePainting,
		EstimatedCost: "100",
	})
	if err == nil {
		t.Fatalf("ожидался отказ: получатель не владелец жилья")
	}
}

// Полный жизненный цикл: черновик -> отправка -> договор -> подпись.
// Подписание из sent означает принятие.
func TestProposalLifecycleSignFromSent(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}

	events := f.notifier.eventsFor(f.homeownerID)
	if len(events) == 0 || events[0] != EventProposalReceived {
		t.Fatalf("владелец должен получить событие %s, получили %v", EventProposalReceived, events)
	}

	if _, err := f.service.AttachContract(ctx, f.contractorID, proposal.ID, "/objects/uploads/contract1"); err != nil {
		t.Fatalf("загрузка договора не удалась: %v", err)
	}

	signed, err := f.service.Sign(ctx, f.homeownerID, proposal.ID, signStrokes(), "Мария Иванова")
	if err != nil {
		t.Fatalf("подписание не удалось: %v", err)
	}

	if signed.Status != models.ProposalStatusAccepted {
		t.Fatalf("после подписания из sent статус должен стать accepted, получили %s", signed.Status)
	}
	if signed.CustomerSignature == nil || *signed.SignerName != "Мария Иванова" {
		t.Fatalf("подпись и имя подписанта должны сохраниться")
	}
	if signed.SignatureIPAddress == nil || *signed.SignatureIPAddress != "198.51.100.1" {
		t.Fatalf("IP подписанта должен сохраниться")
	}
	if f.hook.calls != 1 {
		t.Fatalf("хук подписания должен вызываться ровно один раз, вызван %d", f.hook.calls)
	}

	contractorEvents := f.notifier.eventsFor(f.contractorID)
	found := false
	for _, e := range contractorEvents {
		if e == EventProposalSigned {
			found = true
		}
	}
	if !found {
		t.Fatalf("подрядчик должен получить событие %s, получили %v", EventProposalSigned, contractorEvents)
	}
}

// Условия подписания проверяются по порядку: получатель, подписант,
// повторная подпись, наличие договора, статус.
func TestProposalSignGates(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	// Черновик без получателя.
	orphan, err := f.service.Create(ctx, f.contractorID, CreateProposalInput{
		Title:         "Прочистка труб",
		ServiceType:   models.ServiceTypePlumbing,
		EstimatedCost: "200",
	})
	if err != nil {
		t.Fatalf("создание не удалось: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.homeownerID, orphan.Proposal.ID, signStrokes(), "Мария"); !errors.Is(err, apperror.ErrHomeownerMissing) {
		t.Fatalf("ожидалась ошибка отсутствия получателя, получили %v", err)
	}

	proposal := f.createDraft(t)

	// Чужой подписант.
	stranger := f.users.addUser(models.RoleHomeowner)
	if _, err := f.service.Sign(ctx, stranger, proposal.ID, signStrokes(), "Чужой"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("ожидался запрет для чужого подписанта, получили %v", err)
	}

	// Договор ещё не загружен.
	if _, err := f.service.Sign(ctx, f.homeownerID, proposal.ID, signStrokes(), "Мария"); !errors.Is(err, apperror.ErrContractMissing) {
		t.Fatalf("ожидалась ошибка отсутствия договора, получили %v", err)
	}

	// Договор есть, но статус draft: подписание недопустимо.
	if _, err := f.service.AttachContract(ctx, f.contractorID, proposal.ID, "/objects/uploads/c1"); err != nil {
		t.Fatalf("загрузка договора не удалась: %v", err)
	}
	_, err = f.service.Sign(ctx, f.homeownerID, proposal.ID, signStrokes(), "Мария")
	if !apperror.IsInvalidTransition(err) {
		t.Fatalf("подписание черновика должно отклоняться как недопустимый переход, получили %v", err)
	}

	// Подпись без штрихов отклоняется.
	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.homeownerID, proposal.ID, nil, "Мария"); !apperror.IsValidation(err) {
		t.Fatalf("подпись без штрихов должна отклоняться, получили %v", err)
	}

	// Повторная подпись.
	if _, err := f.service.Sign(ctx, f.homeownerID, proposal.ID, signStrokes(), "Мария"); err != nil {
		t.Fatalf("первое подписание не удалось: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.homeownerID, proposal.ID, signStrokes(), "Мария"); !errors.Is(err, apperror.ErrAlreadySigned) {
		t.Fatalf("повторная подпись должна отклоняться, получили %v", err)
	}
}

func TestProposalDecisionFlow(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	// Решение по черновику недопустимо.
	if _, err := f.service.Accept(ctx, f.homeownerID, proposal.ID); !apperror.IsInvalidTransition(err) {
		t.Fatalf("принятие черновика должно отклоняться, получили %v", err)
	}

	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}

	// Чужой пользователь не решает.
	stranger := f.users.addUser(models.RoleHomeowner)
	if _, err := f.service.Accept(ctx, stranger, proposal.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("решение чужого пользователя должно отклоняться, получили %v", err)
	}

	result, err := f.service.Accept(ctx, f.homeownerID, proposal.ID)
	if err != nil {
		t.Fatalf("принятие не удалось: %v", err)
	}
	if result.Proposal.Status != models.ProposalStatusAccepted {
		t.Fatalf("статус должен стать accepted, получили %s", result.Proposal.Status)
	}

	// Повторное принятие — no-op.
	again, err := f.service.Accept(ctx, f.homeownerID, proposal.ID)
	if err != nil {
		t.Fatalf("повторное принятие должно быть no-op: %v", err)
	}
	if again.Proposal.Status != models.ProposalStatusAccepted {
		t.Fatalf("статус не должен меняться")
	}

	// Отклонение принятого недопустимо.
	if _, err := f.service.Reject(ctx, f.homeownerID, proposal.ID); !apperror.IsInvalidTransition(err) {
		t.Fatalf("отклонение принятого должно отклоняться, получили %v", err)
	}

	events := f.notifier.eventsFor(f.contractorID)
	found := false
	for _, e := range events {
		if e == EventProposalAccepted {
			found = true
		}
	}
	if !found {
		t.Fatalf("подрядчик должен получить событие %s, получили %v", EventProposalAccepted, events)
	}
}

// Частичный патч меняет только переданные поля.
func TestProposalPartialUpdate(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	newCost := "9999.9"
	result, err := f.service.Update(ctx, f.contractorID, proposal.ID, models.ProposalPatch{
		EstimatedCost: &newCost,
	})
	if err != nil {
		t.Fatalf("обновление не удалось: %v", err)
	}

	updated := result.Proposal
	if updated.EstimatedCost.StringFixed(2) != "9999.90" {
		t.Fatalf("стоимость должна обновиться до 9999.90, получили %s", updated.EstimatedCost.StringFixed(2))
	}
	if updated.Title != proposal.Title {
		t.Fatalf("заголовок не должен меняться")
	}
	if len(updated.Materials) != len(proposal.Materials) {
		t.Fatalf("материалы не должны меняться")
	}

	// Невалидное поле отклоняет весь патч.
	badCost := "не число"
	if _, err := f.service.Update(ctx, f.contractorID, proposal.ID, models.ProposalPatch{EstimatedCost: &badCost}); err == nil {
		t.Fatalf("невалидная стоимость должна отклоняться")
	}
}

func TestProposalUpdateAfterSignForbidden(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}
	if _, err := f.service.AttachContract(ctx, f.contractorID, proposal.ID, "/objects/uploads/c1"); err != nil {
		t.Fatalf("загрузка договора не удалась: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.homeownerID, proposal.ID, signStrokes(), "Мария"); err != nil {
		t.Fatalf("подписание не удалось: %v", err)
	}

	title := "Новый заголовок"
	if _, err := f.service.Update(ctx, f.contractorID, proposal.ID, models.ProposalPatch{Title: &title}); !errors.Is(err, apperror.ErrAlreadySigned) {
		t.Fatalf("изменение подписанного должно отклоняться, получили %v", err)
	}
	if _, err := f.service.AttachContract(ctx, f.contractorID, proposal.ID, "/objects/uploads/c2"); !errors.Is(err, apperror.ErrAlreadySigned) {
		t.Fatalf("замена договора после подписи должна отклоняться, получили %v", err)
	}
}

// Подрядчик через патч может только отправить; решения принимает владелец.
func TestProposalContractorCannotDecide(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}

	accepted := models.ProposalStatusAccepted
	if _, err := f.service.Update(ctx, f.contractorID, proposal.ID, models.ProposalPatch{Status: &accepted}); err == nil {
		t.Fatalf("подрядчик не должен принимать предложение сам")
	}
}

func TestProposalDeleteOnlyDraft(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}
	if err := f.service.Delete(ctx, f.contractorID, proposal.ID); err == nil {
		t.Fatalf("отправленное предложение нельзя удалять")
	}

	draft := f.createDraft(t)
	if err := f.service.Delete(ctx, f.contractorID, draft.ID); err != nil {
		t.Fatalf("черновик должен удаляться: %v", err)
	}
	if _, err := f.service.Get(ctx, f.contractorID, draft.ID); !errors.Is(err, apperror.ErrProposalNotFound) {
		t.Fatalf("удалённый черновик не должен находиться, получили %v", err)
	}
}

// Владелец не видит чужие черновики, подрядчик не видит чужие предложения.
func TestProposalAccessControl(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	if _, err := f.service.Get(ctx, f.homeownerID, proposal.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("владелец не должен видеть черновик, получили %v", err)
	}

	if _, err := f.service.Send(ctx, f.contractorID, proposal.ID); err != nil {
		t.Fatalf("отправка не удалась: %v", err)
	}
	if _, err := f.service.Get(ctx, f.homeownerID, proposal.ID); err != nil {
		t.Fatalf("владелец должен видеть отправленное: %v", err)
	}

	stranger := f.users.addUser(models.RoleContractor)
	if _, err := f.service.Get(ctx, stranger, proposal.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("чужой подрядчик не должен видеть предложение, получили %v", err)
	}
}

func TestProposalExpireOverdue(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	proposal := f.createDraft(t)

	past := time.Now().Add(-24 * time.Hour)
	f.repo.proposals[proposal.ID].Status = models.ProposalStatusSent
	f.repo.proposals[proposal.ID].ValidUntil = &past

	affected, err := f.service.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("ошибка проверки сроков: %v", err)
	}
	if affected != 1 {
		t.Fatalf("ожидалось одно просроченное предложение, получили %d", affected)
	}

	stored, _ := f.repo.GetByID(ctx, proposal.ID)
	if stored.Status != models.ProposalStatusExpired {
		t.Fatalf("статус должен стать expired, получили %s", stored.Status)
	}
}
