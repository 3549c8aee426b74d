package models

// Роли пользователей платформы.
const (
	RoleHomeowner  = "homeowner"
	RoleContractor = "contractor"
	RoleAgent      = "agent"
)

// ProposalStatus константы статусов предложений.
const (
	ProposalStatusDraft    = "draft"
	ProposalStatusSent     = "sent"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
	ProposalStatusExpired  = "expired"
)

// AppointmentStatus константы статусов визитов.
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Виды услуг подрядчиков.
const (
	ServiceTypePlumbing    = "plumbing"
	ServiceTypeElectrical  = "electrical"
	ServiceTypeHVAC        = "hvac"
	ServiceTypeRoofing     = "roofing"
	ServiceTypeLandscaping = "landscaping"
	ServiceTypePainting    = "painting"
	ServiceTypeGeneral     = "general"
)

// ValidRoles список валидных ролей.
var ValidRoles = map[string]struct{}{
	RoleHomeowner:  {},
	RoleContractor: {},
	RoleAgent:      {},
}

// ValidServiceTypes список валидных видов услуг.
var ValidServiceTypes = map[string]struct{}{
	ServiceTypePlumbing:    {},
	ServiceTypeElectrical:  {},
	ServiceTypeHVAC:        {},
	ServiceTypeRoofing:     {},
	ServiceTypeLandscaping: {},
	ServiceTypePainting:    {},
	ServiceTypeGeneral:     {},
}

// ValidAppointmentStatuses список валидных статусов визитов.
var ValidAppointmentStatuses = map[string]struct{}{
	AppointmentStatusScheduled: {},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

// Уровни реферальной программы агентов. Порог определяет, сколько
// приглашений нужно для перехода на следующий уровень.
const (
	ReferralTierBronze = "bronze"
	ReferralTierSilver = "silver"
	ReferralTierGold   = "gold"
)

// ReferralsNeededByTier сколько рефералов нужно на каждом уровне.
var ReferralsNeededByTier = map[string]int{
	ReferralTierBronze: 5,
	ReferralTierSilver: 15,
	ReferralTierGold:   40,
}
