package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
)

type Quorum string

const (
	// QuorumAll needs every listed approver, or one approver per listed role.
	QuorumAll Quorum = "all"
	// QuorumAny needs a single approval from anyone authorised for the step.
	QuorumAny Quorum = "any"
)

type ApprovalStep struct {
	Name      string   `json:"name" yaml:"name"`
	Roles     []Role   `json:"roles,omitempty" yaml:"roles"`
	Approvers []string `json:"approvers,omitempty" yaml:"approvers"`
	Quorum    Quorum   `json:"quorum" yaml:"quorum"`
}

// Authorizes reports whether p may decide this step. Company membership is
// checked by the caller.
func (s ApprovalStep) Authorizes(p Principal) bool {
	if !Can(p.Role, CapDecideApprovals) {
		return false
	}
	return slices.Contains(s.Approvers, p.UserID) || slices.Contains(s.Roles, p.Role)
}

func (s ApprovalStep) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "step name is required")
	}
	if len(s.Roles) == 0 && len(s.Approvers) == 0 {
		problems = append(problems, fmt.Sprintf("step %q must name roles or approvers", s.Name))
	}
	for _, r := range s.Roles {
		if !r.Valid() || r == RoleSystem || !Can(r, CapDecideApprovals) {
			problems = append(problems, fmt.Sprintf("step %q: role %q cannot approve", s.Name, r))
		}
	}
	if s.Quorum != QuorumAll && s.Quorum != QuorumAny {
		problems = append(problems, fmt.Sprintf("step %q: quorum must be all or any", s.Name))
	}
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

type ApprovalTemplate struct {
	ID           string           `json:"id"`
	CompanyID    string           `json:"companyId,omitempty"`
	Name         string           `json:"name"`
	DocumentType DocumentType     `json:"documentType,omitempty"`
	MinAmount    *decimal.Decimal `json:"minAmount,omitempty"`
	MaxAmount    *decimal.Decimal `json:"maxAmount,omitempty"`
	Priority     int              `json:"priority"`
	Active       bool             `json:"active"`
	Steps        []ApprovalStep   `json:"steps"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Matches reports whether the template applies to doc. Empty company and
// document type match everything; nil bounds are unbounded and inclusive.
func (t ApprovalTemplate) Matches(doc Document) bool {
	if !t.Active {
		return false
	}
	if t.CompanyID != "" && t.CompanyID != doc.CompanyID {
		return false
	}
	if t.DocumentType != "" && t.DocumentType != doc.Type {
		return false
	}
	amount := doc.Amount()
	if t.MinAmount != nil && amount.LessThan(*t.MinAmount) {
		return false
	}
	if t.MaxAmount != nil && amount.GreaterThan(*t.MaxAmount) {
		return false
	}
	return true
}

func (t ApprovalTemplate) Validate() error {
	var problems []string
	if strings.TrimSpace(t.Name) == "" {
		problems = append(problems, "name is required")
	}
	if t.DocumentType != "" && !t.DocumentType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown document type %q", t.DocumentType))
	}
	if t.MinAmount != nil && t.MinAmount.IsNegative() {
		problems = append(problems, "minAmount must not be negative")
	}
	if t.MinAmount != nil && t.MaxAmount != nil && t.MaxAmount.LessThan(*t.MinAmount) {
		problems = append(problems, "maxAmount must not be less than minAmount")
	}
	if len(t.Steps) == 0 {
		problems = append(problems, "at least one step is required")
	}
	for _, s := range t.Steps {
		if err := s.Validate(); err != nil {
			problems = append(problems, commons.Detail(err)...)
		}
	}
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

func CloneSteps(steps []ApprovalStep) []ApprovalStep {
	out := make([]ApprovalStep, 0, len(steps))
	for _, s := range steps {
		s.Roles = slices.Clone(s.Roles)
		s.Approvers = slices.Clone(s.Approvers)
		out = append(out, s)
	}
	return out
}

type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalCancelled ApprovalStatus = "cancelled"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

type ApprovalDecision struct {
	Step       int       `json:"step"`
	ApproverID string    `json:"approverId"`
	Role       Role      `json:"role"`
	Decision   Decision  `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decidedAt"`
}

type ApprovalInstance struct {
	ID          string             `json:"id"`
	CompanyID   string             `json:"companyId"`
	DocumentID  string             `json:"documentId"`
	TemplateID  string             `json:"templateId"`
	RequestedBy string             `json:"requestedBy"`
	Steps       []ApprovalStep     `json:"steps"`
	CurrentStep int                `json:"currentStep"`
	Status      ApprovalStatus     `json:"status"`
	Decisions   []ApprovalDecision `json:"decisions"`
	CreatedAt   time.Time          `json:"createdAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

func (i ApprovalInstance) HasDecided(step int, approverID string) bool {
	for _, d := range i.Decisions {
		if d.Step == step && d.ApproverID == approverID {
			return true
		}
	}
	return false
}

// StepSatisfied evaluates the quorum of step against recorded approvals.
func (i ApprovalInstance) StepSatisfied(step int) bool {
	if step < 0 || step >= len(i.Steps) {
		return false
	}
	s := i.Steps[step]

	approvedBy := make(map[string]bool)
	approvedRoles := make(map[Role]bool)
	for _, d := range i.Decisions {
		if d.Step != step || d.Decision != DecisionApprove {
			continue
		}
		approvedBy[d.ApproverID] = true
		approvedRoles[d.Role] = true
	}

	if s.Quorum == QuorumAny {
		return len(approvedBy) > 0
	}

	// The requester can never decide, so they are not part of the required set.
	required := i.requiredApprovers(step)
	if len(required) > 0 {
		for _, id := range required {
			if !approvedBy[id] {
				return false
			}
		}
		return true
	}
	if len(s.Roles) == 0 {
		return len(approvedBy) > 0
	}
	for _, r := range s.Roles {
		if !approvedRoles[r] {
			return false
		}
	}
	return true
}

func (i ApprovalInstance) requiredApprovers(step int) []string {
	out := make([]string, 0, len(i.Steps[step].Approvers))
	for _, id := range i.Steps[step].Approvers {
		if id != i.RequestedBy {
			out = append(out, id)
		}
	}
	return out
}

// Decidable reports whether every step has someone other than the requester
// who may decide it.
func (i ApprovalInstance) Decidable() error {
	var problems []string
	for n, s := range i.Steps {
		if len(s.Roles) == 0 && len(i.requiredApprovers(n)) == 0 {
			problems = append(problems, fmt.Sprintf("step %q has no approver other than the requester", s.Name))
		}
	}
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

// Cancel withdraws a pending instance.
func (i *ApprovalInstance) Cancel(at time.Time) error {
	if i.Status != ApprovalPending {
		return commons.State(fmt.Sprintf("approval is already %s", i.Status))
	}
	i.Status = ApprovalCancelled
	i.CompletedAt = &at
	return nil
}

// AwaitingDecisionFrom reports whether p may decide the current step and has
// not yet done so.
func (i ApprovalInstance) AwaitingDecisionFrom(p Principal) bool {
	if i.Status != ApprovalPending || i.CompanyID != p.CompanyID || i.RequestedBy == p.UserID {
		return false
	}
	if i.CurrentStep >= len(i.Steps) {
		return false
	}
	return i.Steps[i.CurrentStep].Authorizes(p) && !i.HasDecided(i.CurrentStep, p.UserID)
}

func (i ApprovalInstance) IsLastStep() bool {
	return i.CurrentStep == len(i.Steps)-1
}

func (i ApprovalInstance) Clone() ApprovalInstance {
	i.Steps = CloneSteps(i.Steps)
	i.Decisions = slices.Clone(i.Decisions)
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		i.CompletedAt = &t
	}
	return i
}
