package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationStatusTerminal(t *testing.T) {
	for _, status := range []ApplicationStatus{ApplicationStatusDenied, ApplicationStatusEnrolled, ApplicationStatusWithdrawn} {
		assert.True(t, status.IsTerminal(), string(status))
		assert.False(t, status.CanTransitionTo(ApplicationStatusSubmitted), string(status))
	}
	assert.False(t, ApplicationStatusWaitlisted.IsTerminal())
}

func TestApplicationStatusWithdrawableFromNonTerminal(t *testing.T) {
	nonTerminal := []ApplicationStatus{
		ApplicationStatusDraft, ApplicationStatusSubmitted, ApplicationStatusUnderReview,
		ApplicationStatusInterviewScheduled, ApplicationStatusInterviewCompleted,
		ApplicationStatusAccepted, ApplicationStatusWaitlisted,
	}
	for _, status := range nonTerminal {
		assert.True(t, status.CanTransitionTo(ApplicationStatusWithdrawn), string(status))
	}
}

func TestApplicationStatusEnrollOnlyFromAccepted(t *testing.T) {
	assert.True(t, ApplicationStatusAccepted.CanTransitionTo(ApplicationStatusEnrolled))
	assert.False(t, ApplicationStatusWaitlisted.CanTransitionTo(ApplicationStatusEnrolled))
	assert.False(t, ApplicationStatusUnderReview.CanTransitionTo(ApplicationStatusEnrolled))
}

func TestApplicationStatusWaitlistPromotion(t *testing.T) {
	assert.True(t, ApplicationStatusWaitlisted.CanTransitionTo(ApplicationStatusAccepted))
	assert.False(t, ApplicationStatusWaitlisted.CanTransitionTo(ApplicationStatusDenied))
}

func TestLeadStageAdvance(t *testing.T) {
	assert.True(t, LeadStageInquiry.CanAdvanceTo(LeadStageApplied))
	assert.True(t, LeadStageApplied.CanAdvanceTo(LeadStageLost))
	assert.False(t, LeadStageInquiry.CanAdvanceTo(LeadStageConverted), "conversion owns the CONVERTED stage")
	assert.False(t, LeadStageConverted.CanAdvanceTo(LeadStageInquiry))
	assert.False(t, LeadStageLost.CanAdvanceTo(LeadStageLost))
}
