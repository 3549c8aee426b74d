package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/models"
)

// Время жизни кеша дашбордов.
const dashboardCacheTTL = 30 * time.Second

// DashboardProposalSource отдаёт агрегаты по предложениям.
type DashboardProposalSource interface {
	ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Proposal, error)
	CountByContractorAndStatus(ctx context.Context, contractorID uuid.UUID, status string) (int, error)
	CountSignedByContractor(ctx context.Context, contractorID uuid.UUID) (int, error)
	SumAcceptedCosts(ctx context.Context, contractorID uuid.UUID) (decimal.Decimal, error)
}

// DashboardAppointmentSource отдаёт будущие визиты.
type DashboardAppointmentSource interface {
	ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Appointment, error)
}

// DashboardPropertySource отдаёт дома владельца.
type DashboardPropertySource interface {
	ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Property, error)
}

// DashboardUnreadSource отдаёт счётчик непрочитанных сообщений.
type DashboardUnreadSource interface {
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// ContractorDashboard агрегат главного экрана подрядчика.
type ContractorDashboard struct {
	DraftCount           int                  `json:"draft_count"`
	SentCount            int                  `json:"sent_count"`
	AcceptedCount        int                  `json:"accepted_count"`
	SignedCount          int                  `json:"signed_count"`
	TotalEarnings        string               `json:"total_earnings"`
	Achievements         []models.Achievement `json:"achievements"`
	UpcomingAppointments []models.Appointment `json:"upcoming_appointments"`
	NextAppointment      *models.Appointment  `json:"next_appointment,omitempty"`
	UnreadMessages       int                  `json:"unread_messages"`
}

// HomeownerDashboard агрегат главного экрана владельца жилья.
type HomeownerDashboard struct {
	PendingProposals     int                  `json:"pending_proposals"`
	AwaitingSignature    int                  `json:"awaiting_signature"`
	PropertyCount        int                  `json:"property_count"`
	MaintenanceTasksDue  int                  `json:"maintenance_tasks_due"`
	UpcomingAppointments []models.Appointment `json:"upcoming_appointments"`
	NextAppointment      *models.Appointment  `json:"next_appointment,omitempty"`
	UnreadMessages       int                  `json:"unread_messages"`
}

// AgentDashboard агрегат главного экрана агента.
type AgentDashboard struct {
	Progress          *ReferralProgress  `json:"progress"`
	RecentCommissions []models.Commission `json:"recent_commissions"`
}

// DashboardService собирает агрегаты главных экранов по ролям.
// Результаты кешируются на короткое время и сбрасываются при
// изменениях предложений.
type DashboardService struct {
	proposals    DashboardProposalSource
	appointments DashboardAppointmentSource
	properties   DashboardPropertySource
	messages     DashboardUnreadSource
	achievements *AchievementService
	referrals    *ReferralService
	maintenance  *MaintenanceService
	cache        *CacheService
}

// NewDashboardService создаёт сервис дашбордов.
func NewDashboardService(
	proposals DashboardProposalSource,
	appointments DashboardAppointmentSource,
	properties DashboardPropertySource,
	messages DashboardUnreadSource,
	achievements *AchievementService,
	referrals *ReferralService,
	maintenance *MaintenanceService,
	cache *CacheService,
) *DashboardService {
	return &DashboardService{
		proposals:    proposals,
		appointments: appointments,
		properties:   properties,
		messages:     messages,
		achievements: achievements,
		referrals:    referrals,
		maintenance:  maintenance,
		cache:        cache,
	}
}

// ForContractor собирает дашборд подрядчика.
func (s *DashboardService) ForContractor(ctx context.Context, contractorID uuid.UUID) (*ContractorDashboard, error) {
	key := DashboardCacheKey(contractorID, models.RoleContractor)
	value, err := s.cache.GetOrSet(ctx, key, dashboardCacheTTL, func() (interface{}, error) {
		return s.buildContractor(ctx, contractorID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*ContractorDashboard), nil
}

func (s *DashboardService) buildContractor(ctx context.Context, contractorID uuid.UUID) (*ContractorDashboard, error) {
	dashboard := &ContractorDashboard{}

	counts := map[string]*int{
		models.ProposalStatusDraft:    &dashboard.DraftCount,
		models.ProposalStatusSent:     &dashboard.SentCount,
		models.ProposalStatusAccepted: &dashboard.AcceptedCount,
	}
	for status, dst := range counts {
		count, err := s.proposals.CountByContractorAndStatus(ctx, contractorID, status)
		if err != nil {
			return nil, err
		}
		*dst = count
	}

	signed, err := s.proposals.CountSignedByContractor(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	dashboard.SignedCount = signed

	earnings, err := s.proposals.SumAcceptedCosts(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	dashboard.TotalEarnings = earnings.StringFixed(2)

	achievements, err := s.achievements.ListByUser(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	dashboard.Achievements = achievements

	if err := s.fillAppointments(ctx, contractorID, &dashboard.UpcomingAppointments, &dashboard.NextAppointment); err != nil {
		return nil, err
	}

	unread, err := s.messages.CountUnread(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	dashboard.UnreadMessages = unread

	return dashboard, nil
}

// ForHomeowner собирает дашборд владельца жилья.
func (s *DashboardService) ForHomeowner(ctx context.Context, homeownerID uuid.UUID) (*HomeownerDashboard, error) {
	key := DashboardCacheKey(homeownerID, models.RoleHomeowner)
	value, err := s.cache.GetOrSet(ctx, key, dashboardCacheTTL, func() (interface{}, error) {
		return s.buildHomeowner(ctx, homeownerID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*HomeownerDashboard), nil
}

func (s *DashboardService) buildHomeowner(ctx context.Context, homeownerID uuid.UUID) (*HomeownerDashboard, error) {
	dashboard := &HomeownerDashboard{}

	proposals, err := s.proposals.ListByHomeowner(ctx, homeownerID)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		p := &proposals[i]
		if p.Status == models.ProposalStatusSent {
			dashboard.PendingProposals++
		}
		if p.IsSignable() && (p.Status == models.ProposalStatusSent || p.Status == models.ProposalStatusAccepted) {
			dashboard.AwaitingSignature++
		}
	}

	properties, err := s.properties.ListByHomeowner(ctx, homeownerID)
	if err != nil {
		return nil, err
	}
	dashboard.PropertyCount = len(properties)

	month := time.Now().Month()
	for _, property := range properties {
		plan, err := s.maintenance.PlanForMonth(ctx, homeownerID, property.ID, month)
		if err != nil {
			return nil, err
		}
		for _, task := range plan {
			if task.CompletedAt == nil {
				dashboard.MaintenanceTasksDue++
			}
		}
	}

	if err := s.fillAppointments(ctx, homeownerID, &dashboard.UpcomingAppointments, &dashboard.NextAppointment); err != nil {
		return nil, err
	}

	unread, err := s.messages.CountUnread(ctx, homeownerID)
	if err != nil {
		return nil, err
	}
	dashboard.UnreadMessages = unread

	return dashboard, nil
}

// ForAgent собирает дашборд агента.
func (s *DashboardService) ForAgent(ctx context.Context, agentID uuid.UUID) (*AgentDashboard, error) {
	key := DashboardCacheKey(agentID, models.RoleAgent)
	value, err := s.cache.GetOrSet(ctx, key, dashboardCacheTTL, func() (interface{}, error) {
		progress, err := s.referrals.Progress(ctx, agentID)
		if err != nil {
			return nil, err
		}
		commissions, err := s.referrals.ListCommissions(ctx, agentID)
		if err != nil {
			return nil, err
		}
		if len(commissions) > 10 {
			commissions = commissions[:10]
		}
		return &AgentDashboard{Progress: progress, RecentCommissions: commissions}, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*AgentDashboard), nil
}

// fillAppointments кладёт ближайшие визиты и первый из них.
// Визиты уже отсортированы по возрастанию времени.
func (s *DashboardService) fillAppointments(ctx context.Context, userID uuid.UUID, list *[]models.Appointment, next **models.Appointment) error {
	appointments, err := s.appointments.ListUpcoming(ctx, userID, time.Now())
	if err != nil {
		return err
	}
	*list = appointments
	if len(appointments) > 0 {
		*next = &appointments[0]
	}
	return nil
}
