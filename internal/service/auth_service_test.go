package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	users    map[uuid.UUID]*models.User
	byEmail  map[string]*models.User
	profiles map[uuid.UUID]*models.Profile
	sessions map[string]*models.Session
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		users:    make(map[uuid.UUID]*models.User),
		byEmail:  make(map[string]*models.User),
		profiles: make(map[uuid.UUID]*models.Profile),
		sessions: make(map[string]*models.Session),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, repository.ErrProfileNotFound
}

func (m *mockAuthRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s, ok := m.sessions[refreshToken]; ok {
		return s, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if u, ok := m.users[userID]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (m *mockAuthRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var out []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockAuthRepository) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	for token, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			delete(m.sessions, token)
			return nil
		}
	}
	return nil
}

func (m *mockAuthRepository) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	for token, s := range m.sessions {
		if s.UserID == userID && token != exceptRefreshToken {
			delete(m.sessions, token)
		}
	}
	return nil
}

// recordingSignup фиксирует вызовы RecordSignup.
type recordingSignup struct {
	agentID    uuid.UUID
	referredID uuid.UUID
	calls      int
}

func (r *recordingSignup) RecordSignup(ctx context.Context, agentID, referredID uuid.UUID) error {
	r.agentID = agentID
	r.referredID = referredID
	r.calls++
	return nil
}

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

func TestAuthRegister(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Ivan.Petrov@example.com",
		Password: "secret-password-1",
		Role:     models.RoleContractor,
	}, map[string]string{"ip": "192.0.2.1", "user_agent": "test-agent"})
	if err != nil {
		t.Fatalf("регистрация не удалась: %v", err)
	}

	if result.User.Email != "ivan.petrov@example.com" {
		t.Fatalf("email должен приводиться к нижнему регистру, получили %s", result.User.Email)
	}
	if result.User.Username != "ivan_petrov" {
		t.Fatalf("username должен выводиться из email, получили %s", result.User.Username)
	}
	if result.Profile == nil || result.Profile.DisplayName != "ivan_petrov" {
		t.Fatalf("профиль должен создаваться с именем по умолчанию")
	}
	if result.TokenPair == nil || result.TokenPair.AccessToken == "" || result.TokenPair.RefreshToken == "" {
		t.Fatalf("пара токенов должна выпускаться при регистрации")
	}

	session, ok := repo.sessions[result.TokenPair.RefreshToken]
	if !ok {
		t.Fatalf("сессия должна сохраниться")
	}
	if session.IPAddress == nil || *session.IPAddress != "192.0.2.1" {
		t.Fatalf("IP запроса должен попасть в сессию")
	}
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)
	ctx := context.Background()

	in := RegisterInput{Email: "user@example.com", Password: "secret-password-1"}
	if _, err := svc.Register(ctx, in, nil); err != nil {
		t.Fatalf("первая регистрация не удалась: %v", err)
	}
	if _, err := svc.Register(ctx, in, nil); err == nil {
		t.Fatalf("повторная регистрация с тем же email должна отклоняться")
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	svc := NewAuthService(newMockAuthRepository(), newTestTokenManager(), nil)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "not-an-email", Password: "secret-password-1"},
		{Email: "user@example.com", Password: "short"},
		{Email: "user@example.com", Password: "secret-password-1", Role: "superadmin"},
	}
	for i, in := range cases {
		if _, err := svc.Register(ctx, in, nil); err == nil {
			t.Fatalf("кейс %d: ожидалась ошибка валидации", i)
		}
	}
}

// Регистрация по ссылке агента фиксирует приглашение; сам агент
// по чужой ссылке приглашением не считается.
func TestAuthRegisterRecordsReferral(t *testing.T) {
	repo := newMockAuthRepository()
	referrals := &recordingSignup{}
	svc := NewAuthService(repo, newTestTokenManager(), referrals)
	ctx := context.Background()

	agentID := uuid.New()
	result, err := svc.Register(ctx, RegisterInput{
		Email:    "invited@example.com",
		Password: "secret-password-1",
		AgentID:  &agentID,
	}, nil)
	if err != nil {
		t.Fatalf("регистрация не удалась: %v", err)
	}

	if referrals.calls != 1 {
		t.Fatalf("приглашение должно фиксироваться один раз, вызовов %d", referrals.calls)
	}
	if referrals.agentID != agentID || referrals.referredID != result.User.ID {
		t.Fatalf("приглашение должно связывать агента и нового пользователя")
	}

	if _, err := svc.Register(ctx, RegisterInput{
		Email:    "another.agent@example.com",
		Password: "secret-password-1",
		Role:     models.RoleAgent,
		AgentID:  &agentID,
	}, nil); err != nil {
		t.Fatalf("регистрация агента не удалась: %v", err)
	}
	if referrals.calls != 1 {
		t.Fatalf("регистрация агента не должна считаться приглашением")
	}
}

func TestAuthLogin(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Email:    "user@example.com",
		Password: "secret-password-1",
	}, nil); err != nil {
		t.Fatalf("регистрация не удалась: %v", err)
	}

	result, err := svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "secret-password-1"}, nil)
	if err != nil {
		t.Fatalf("вход не удался: %v", err)
	}
	if result.TokenPair == nil || result.TokenPair.RefreshToken == "" {
		t.Fatalf("вход должен выпускать пару токенов")
	}
	if result.User.LastLoginAt == nil {
		t.Fatalf("время последнего входа должно обновляться")
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "wrong-password"}, nil); err != apperror.ErrInvalidCredentials {
		t.Fatalf("неверный пароль должен давать ErrInvalidCredentials, получили %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret-password-1"}, nil); err != apperror.ErrInvalidCredentials {
		t.Fatalf("несуществующий email должен давать ErrInvalidCredentials, получили %v", err)
	}
}

func TestAuthLoginBlockedUser(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "user@example.com",
		Password: "secret-password-1",
	}, nil)
	if err != nil {
		t.Fatalf("регистрация не удалась: %v", err)
	}

	repo.users[result.User.ID].IsActive = false
	if _, err := svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "secret-password-1"}, nil); !apperror.IsForbidden(err) {
		t.Fatalf("вход заблокированного пользователя должен отклоняться, получили %v", err)
	}
}

// Refresh ротирует сессию: старый токен удаляется, новый сохраняется.
func TestAuthRefreshRotatesSession(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "user@example.com",
		Password: "secret-password-1",
	}, nil)
	if err != nil {
		t.Fatalf("регистрация не удалась: %v", err)
	}

	oldToken := result.TokenPair.RefreshToken
	pair, err := svc.Refresh(ctx, oldToken, nil)
	if err != nil {
		t.Fatalf("обновление токенов не удалось: %v", err)
	}

	if _, ok := repo.sessions[oldToken]; ok {
		t.Fatalf("старая сессия должна удаляться")
	}
	if _, ok := repo.sessions[pair.RefreshToken]; !ok {
		t.Fatalf("новая сессия должна сохраняться")
	}

	if _, err := svc.Refresh(ctx, "garbage-token", nil); err == nil {
		t.Fatalf("мусорный refresh токен должен отклоняться")
	}
}

// Валидный по подписи токен отозванной сессии не принимается.
func TestAuthRefreshRevokedSession(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "user@example.com",
		Password: "secret-password-1",
	}, nil)
	if err != nil {
		t.Fatalf("регистрация не удалась: %v", err)
	}

	token := result.TokenPair.RefreshToken
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("выход не удался: %v", err)
	}
	if _, err := svc.Refresh(ctx, token, nil); err == nil {
		t.Fatalf("refresh по отозванной сессии должен отклоняться")
	}
}

func TestAuthUpdateProfileValidation(t *testing.T) {
	repo := newMockAuthRepository()
	svc := NewAuthService(repo, newTestTokenManager(), nil)
	ctx := context.Background()
	userID := uuid.New()

	if err := svc.UpdateProfile(ctx, &models.Profile{UserID: userID, DisplayName: ""}); err == nil {
		t.Fatalf("пустое имя должно отклоняться")
	}

	badLink := "javascript:alert(1)"
	if err := svc.UpdateProfile(ctx, &models.Profile{UserID: userID, DisplayName: "Иван", Website: &badLink}); err == nil {
		t.Fatalf("опасная ссылка должна отклоняться")
	}

	if err := svc.UpdateProfile(ctx, &models.Profile{UserID: userID, DisplayName: "Иван", ServiceTypes: []string{"exorcism"}}); err == nil {
		t.Fatalf("неизвестный вид услуг должен отклоняться")
	}

	if err := svc.UpdateProfile(ctx, &models.Profile{UserID: userID, DisplayName: "Иван", ServiceTypes: []string{models.ServiceTypePlumbing}}); err != nil {
		t.Fatalf("валидный профиль должен сохраняться: %v", err)
	}
}
