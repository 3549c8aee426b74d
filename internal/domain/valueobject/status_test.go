package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProposalStatusTransitions(t *testing.T) {
	assert.True(t, ProposalStatusDraft.CanTransitionTo(ProposalStatusSent))
	assert.True(t, ProposalStatusSent.CanTransitionTo(ProposalStatusAccepted))
	assert.True(t, ProposalStatusSent.CanTransitionTo(ProposalStatusRejected))
	assert.True(t, ProposalStatusSent.CanTransitionTo(ProposalStatusExpired))

	assert.False(t, ProposalStatusDraft.CanTransitionTo(ProposalStatusAccepted))
	assert.False(t, ProposalStatusAccepted.CanTransitionTo(ProposalStatusRejected))
	assert.False(t, ProposalStatusRejected.CanTransitionTo(ProposalStatusSent))
	assert.False(t, ProposalStatusExpired.CanTransitionTo(ProposalStatusSent))
}

// Переход в тот же статус трактуется как no-op и разрешён.
func TestProposalStatusSelfTransition(t *testing.T) {
	for _, s := range []ProposalStatus{
		ProposalStatusDraft,
		ProposalStatusSent,
		ProposalStatusAccepted,
		ProposalStatusRejected,
		ProposalStatusExpired,
	} {
		assert.True(t, s.CanTransitionTo(s), "статус %s", s)
	}
}

func TestProposalStatusTerminal(t *testing.T) {
	assert.False(t, ProposalStatusDraft.IsTerminal())
	assert.False(t, ProposalStatusSent.IsTerminal())
	assert.True(t, ProposalStatusAccepted.IsTerminal())
	assert.True(t, ProposalStatusRejected.IsTerminal())
	assert.True(t, ProposalStatusExpired.IsTerminal())
}

func TestNewProposalStatus(t *testing.T) {
	s, err := NewProposalStatus("sent")
	assert.NoError(t, err)
	assert.Equal(t, ProposalStatusSent, s)

	_, err = NewProposalStatus("published")
	assert.Error(t, err)
}
