package models

import "fmt"

// Status is the closed set of workflow states for an application.
type Status string

const (
	StatusDraft                 Status = "draft"
	StatusSubmitted             Status = "submitted"
	StatusUnderScrutiny         Status = "under_scrutiny"
	StatusForwardedToDTDO       Status = "forwarded_to_dtdo"
	StatusDTDOReview            Status = "dtdo_review"
	StatusInspectionScheduled   Status = "inspection_scheduled"
	StatusInspectionUnderReview Status = "inspection_under_review"
	StatusVerifiedForPayment    Status = "verified_for_payment"
	StatusPaymentPending        Status = "payment_pending"
	StatusApproved              Status = "approved"
	StatusRejected              Status = "rejected"

	// The three send-back states return control to the applicant; resubmission
	// re-enters submitted.
	StatusSentBackForCorrections Status = "sent_back_for_corrections"
	StatusRevertedToApplicant    Status = "reverted_to_applicant"
	StatusRevertedByDTDO         Status = "reverted_by_dtdo"
)

// Workflow roles. RoleSystem is reserved for the payment callback path; no
// portal token carries it.
const (
	RoleApplicant        = "applicant"
	RoleDealingAssistant = "dealing_assistant"
	RoleDTDO             = "dtdo"
	RoleInspector        = "inspector"
	RoleSystem           = "system"
)

// IsTerminal reports whether the application can never change state again.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsSendBack reports whether the application is waiting on the applicant to
// resubmit.
func (s Status) IsSendBack() bool {
	return s == StatusSentBackForCorrections ||
		s == StatusRevertedToApplicant ||
		s == StatusRevertedByDTDO
}

// PaymentEligible reports whether payment initiation is allowed in this state.
func (s Status) PaymentEligible() bool {
	return s == StatusVerifiedForPayment || s == StatusPaymentPending
}

type transition struct {
	from Status
	to   Status
}

// transitions maps each legal edge to the roles allowed to drive it. Anything
// absent from this table is an illegal transition, full stop.
var transitions = map[transition][]string{
	// Applicant submits and resubmits.
	{StatusDraft, StatusSubmitted}:                  {RoleApplicant},
	{StatusSentBackForCorrections, StatusSubmitted}: {RoleApplicant},
	{StatusRevertedToApplicant, StatusSubmitted}:    {RoleApplicant},
	{StatusRevertedByDTDO, StatusSubmitted}:         {RoleApplicant},

	// District dealing assistant scrutiny.
	{StatusSubmitted, StatusUnderScrutiny}:              {RoleDealingAssistant},
	{StatusUnderScrutiny, StatusForwardedToDTDO}:        {RoleDealingAssistant},
	{StatusSubmitted, StatusSentBackForCorrections}:     {RoleDealingAssistant},
	{StatusUnderScrutiny, StatusSentBackForCorrections}: {RoleDealingAssistant},

	// District tourism development officer review.
	{StatusForwardedToDTDO, StatusDTDOReview}:     {RoleDTDO},
	{StatusDTDOReview, StatusInspectionScheduled}: {RoleDTDO},
	{StatusForwardedToDTDO, StatusRevertedByDTDO}: {RoleDTDO},
	{StatusDTDOReview, StatusRevertedByDTDO}:      {RoleDTDO},
	{StatusForwardedToDTDO, StatusRejected}:       {RoleDTDO},
	{StatusDTDOReview, StatusRejected}:            {RoleDTDO},

	// Inspection outcome.
	{StatusInspectionScheduled, StatusInspectionUnderReview}: {RoleInspector},
	{StatusInspectionUnderReview, StatusVerifiedForPayment}:  {RoleInspector},
	{StatusInspectionUnderReview, StatusRevertedToApplicant}: {RoleInspector},
	{StatusInspectionUnderReview, StatusRejected}:            {RoleInspector},

	// Payment stage. The demand notice comes from the DTDO; approval comes
	// exclusively from the gateway callback path.
	{StatusVerifiedForPayment, StatusPaymentPending}: {RoleDTDO},
	{StatusVerifiedForPayment, StatusApproved}:       {RoleSystem},
	{StatusPaymentPending, StatusApproved}:           {RoleSystem},
}

// CanTransition reports whether role may move an application from one status
// to another. The returned error names the offending edge or role.
func CanTransition(from, to Status, role string) error {
	roles, ok := transitions[transition{from: from, to: to}]
	if !ok {
		return fmt.Errorf("no transition from %q to %q", from, to)
	}
	for _, allowed := range roles {
		if allowed == role {
			return nil
		}
	}
	return fmt.Errorf("role %q may not move %q to %q", role, from, to)
}
