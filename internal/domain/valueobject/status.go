package valueobject

import "github.com/ignatzorin/homecare-backend/internal/pkg/apperror"

type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusExpired  ProposalStatus = "expired"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusSent, ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusExpired:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса нет исходящих переходов.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusAccepted || s == ProposalStatusRejected || s == ProposalStatusExpired
}

// CanTransitionTo проверяет допустимость смены статуса.
// Переход в тот же статус разрешён и трактуется как no-op.
func (s ProposalStatus) CanTransitionTo(newStatus ProposalStatus) bool {
	if s == newStatus {
		return true
	}

	transitions := map[ProposalStatus][]ProposalStatus{
		ProposalStatusDraft:    {ProposalStatusSent},
		ProposalStatusSent:     {ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusExpired},
		ProposalStatusAccepted: {},
		ProposalStatusRejected: {},
		ProposalStatusExpired:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewProposalStatus(status string) (ProposalStatus, error) {
	s := ProposalStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
	return s, nil
}
