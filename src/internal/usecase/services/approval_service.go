package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

type ApprovalService struct {
	store     repo_interfaces.Store
	posting   *PostingService
	clock     domain.Clock
	publisher domain.EventPublisher
	autoPost  bool
}

func NewApprovalService(store repo_interfaces.Store, posting *PostingService, clock domain.Clock, publisher domain.EventPublisher, autoPost bool) *ApprovalService {
	return &ApprovalService{
		store:     store,
		posting:   posting,
		clock:     clockOrSystem(clock),
		publisher: publisherOrNoop(publisher),
		autoPost:  autoPost,
	}
}

type DecisionParams struct {
	Decision domain.Decision
	Comment  string
}

type TemplateParams struct {
	Name         string
	DocumentType domain.DocumentType
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
	Priority     int
	Steps        []domain.ApprovalStep
}

// ApprovalOutcome is the state after a decision was recorded.
type ApprovalOutcome struct {
	Instance domain.ApprovalInstance `json:"instance"`
	Document domain.Document         `json:"document"`
}

// RouteForApproval picks the first active template, by priority, matching
// the document and opens an instance with a snapshot of its steps. A nil
// instance means no template matched and the document is auto-approved.
func (s *ApprovalService) RouteForApproval(ctx context.Context, tx repo_interfaces.Repositories, doc domain.Document, requestedBy string) (*domain.ApprovalInstance, error) {
	templates, err := tx.Approvals().ListTemplates(ctx, doc.CompanyID, true)
	if err != nil {
		return nil, storeErr(err, "approval templates", doc.CompanyID)
	}

	for _, t := range templates {
		if !t.Matches(doc) {
			continue
		}

		instance := domain.ApprovalInstance{
			ID:          newID(),
			CompanyID:   doc.CompanyID,
			DocumentID:  doc.ID,
			TemplateID:  t.ID,
			RequestedBy: requestedBy,
			Steps:       domain.CloneSteps(t.Steps),
			CurrentStep: 0,
			Status:      domain.ApprovalPending,
			CreatedAt:   s.clock.Now(),
		}
		if err := instance.Decidable(); err != nil {
			return nil, err
		}
		created, err := tx.Approvals().CreateInstance(ctx, instance)
		if err != nil {
			return nil, storeErr(err, "approval instance", instance.ID)
		}

		logger.Info("approval service document routed", logger.Fields{
			"documentId": doc.ID,
			"templateId": t.ID,
			"template":   t.Name,
			"instanceId": created.ID,
			"amount":     doc.Amount().String(),
		})
		return &created, nil
	}

	logger.Info("approval service no template matched", logger.Fields{
		"documentId": doc.ID,
		"amount":     doc.Amount().String(),
	})
	return nil, nil
}

// ProcessApproval records one decision. The instance and its document are
// locked for the whole transaction so concurrent final approvals post once.
func (s *ApprovalService) ProcessApproval(ctx context.Context, principal domain.Principal, instanceID string, params DecisionParams) (ApprovalOutcome, error) {
	logger.Info("approval service process approval request", logger.Fields{
		"userId":     principal.UserID,
		"role":       string(principal.Role),
		"instanceId": instanceID,
		"decision":   string(params.Decision),
	})

	if !params.Decision.Valid() {
		return ApprovalOutcome{}, commons.Validation("validation failed", "decision must be approve or reject")
	}
	if err := principal.Require(domain.CapDecideApprovals); err != nil {
		return ApprovalOutcome{}, &commons.NotCurrentApproverError{InstanceID: instanceID, ApproverID: principal.UserID}
	}

	var (
		outcome ApprovalOutcome
		events  []domain.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		instance, err := tx.Approvals().GetInstanceForUpdate(ctx, principal.CompanyID, instanceID)
		if err != nil {
			return storeErr(err, "approval instance", instanceID)
		}
		if instance.Status != domain.ApprovalPending {
			return commons.State(fmt.Sprintf("approval is already %s", instance.Status))
		}

		doc, err := tx.Documents().GetForUpdate(ctx, principal.CompanyID, instance.DocumentID)
		if err != nil {
			return storeErr(err, "document", instance.DocumentID)
		}
		if doc.Status != domain.DocumentSubmitted || doc.ApprovalInstanceID != instance.ID {
			return commons.State(fmt.Sprintf("document is %s and no longer awaits this approval", doc.Status))
		}

		step := instance.CurrentStep
		if !instance.Steps[step].Authorizes(principal) || principal.UserID == doc.CreatedBy {
			return &commons.NotCurrentApproverError{InstanceID: instance.ID, ApproverID: principal.UserID, Step: step}
		}
		if instance.HasDecided(step, principal.UserID) {
			return &commons.AlreadyDecidedError{InstanceID: instance.ID, ApproverID: principal.UserID, Step: step}
		}

		now := s.clock.Now()
		decision := domain.ApprovalDecision{
			Step:       step,
			ApproverID: principal.UserID,
			Role:       principal.Role,
			Decision:   params.Decision,
			Comment:    strings.TrimSpace(params.Comment),
			DecidedAt:  now,
		}
		if err := tx.Approvals().AddDecision(ctx, instance.ID, decision); err != nil {
			if commons.IsKind(err, commons.KindConflict) {
				return &commons.AlreadyDecidedError{InstanceID: instance.ID, ApproverID: principal.UserID, Step: step}
			}
			return storeErr(err, "approval decision", instance.ID)
		}
		instance.Decisions = append(instance.Decisions, decision)

		switch {
		case params.Decision == domain.DecisionReject:
			instance.Status = domain.ApprovalRejected
			instance.CompletedAt = &now
			if err := doc.Transition(domain.DocumentRejected); err != nil {
				return err
			}
			events = append(events, newEvent(domain.EventDocumentRejected, doc.CompanyID, doc.ID, now, documentEventPayload(doc)))
		case instance.StepSatisfied(step) && instance.IsLastStep():
			instance.Status = domain.ApprovalApproved
			instance.CompletedAt = &now
			approved, err := approveDocument(ctx, tx, s.posting, &doc, principal.UserID, now, s.autoPost)
			if err != nil {
				return err
			}
			events = append(events, approved...)
		case instance.StepSatisfied(step):
			instance.CurrentStep++
		}

		if err := tx.Approvals().UpdateInstance(ctx, instance); err != nil {
			return storeErr(err, "approval instance", instance.ID)
		}
		if doc.Status != domain.DocumentSubmitted {
			if err := saveDocument(ctx, tx, &doc, now); err != nil {
				return err
			}
		}

		outcome = ApprovalOutcome{Instance: instance, Document: doc}
		return nil
	})
	if err != nil {
		logger.Error("approval service process approval failed", err, logger.Fields{
			"instanceId": instanceID,
			"userId":     principal.UserID,
		})
		return ApprovalOutcome{}, err
	}

	logger.Info("approval service process approval success", logger.Fields{
		"instanceId":     instanceID,
		"instanceStatus": string(outcome.Instance.Status),
		"currentStep":    outcome.Instance.CurrentStep,
		"documentStatus": string(outcome.Document.Status),
	})
	publish(ctx, s.publisher, events)
	return outcome, nil
}

// CancelApproval withdraws a pending approval and returns its document to
// draft. The requester or a template manager may cancel.
func (s *ApprovalService) CancelApproval(ctx context.Context, principal domain.Principal, instanceID, reason string) (ApprovalOutcome, error) {
	logger.Info("approval service cancel request", logger.Fields{
		"userId":     principal.UserID,
		"instanceId": instanceID,
		"reason":     reason,
	})

	if err := principal.Require(domain.CapViewLedger); err != nil {
		return ApprovalOutcome{}, err
	}

	var (
		outcome ApprovalOutcome
		events  []domain.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		instance, err := tx.Approvals().GetInstanceForUpdate(ctx, principal.CompanyID, instanceID)
		if err != nil {
			return storeErr(err, "approval instance", instanceID)
		}
		if instance.RequestedBy != principal.UserID && !domain.Can(principal.Role, domain.CapManageTemplates) {
			return commons.Authorization("operation not permitted", "only the requester or a template manager may cancel an approval")
		}

		doc, err := tx.Documents().GetForUpdate(ctx, principal.CompanyID, instance.DocumentID)
		if err != nil {
			return storeErr(err, "document", instance.DocumentID)
		}

		now := s.clock.Now()
		if err := instance.Cancel(now); err != nil {
			return err
		}
		if doc.ApprovalInstanceID != instance.ID {
			return commons.State(fmt.Sprintf("document is %s and no longer awaits this approval", doc.Status))
		}
		if err := doc.Transition(domain.DocumentDraft); err != nil {
			return err
		}
		doc.ApprovalInstanceID = ""
		doc.SubmittedAt = nil

		if err := tx.Approvals().UpdateInstance(ctx, instance); err != nil {
			return storeErr(err, "approval instance", instance.ID)
		}
		if err := saveDocument(ctx, tx, &doc, now); err != nil {
			return err
		}

		events = append(events, newEvent(domain.EventApprovalCancelled, doc.CompanyID, doc.ID, now, documentEventPayload(doc)))
		outcome = ApprovalOutcome{Instance: instance, Document: doc}
		return nil
	})
	if err != nil {
		logger.Error("approval service cancel failed", err, logger.Fields{"instanceId": instanceID})
		return ApprovalOutcome{}, err
	}

	logger.Info("approval service cancel success", logger.Fields{
		"instanceId": instanceID,
		"documentId": outcome.Document.ID,
	})
	publish(ctx, s.publisher, events)
	return outcome, nil
}

// GetPendingApprovals lists instances whose current step the principal may
// still decide.
func (s *ApprovalService) GetPendingApprovals(ctx context.Context, principal domain.Principal) ([]domain.ApprovalInstance, error) {
	if err := principal.Require(domain.CapDecideApprovals); err != nil {
		return nil, err
	}

	pending, err := s.store.Approvals().ListPending(ctx, principal.CompanyID)
	if err != nil {
		return nil, storeErr(err, "approval instances", principal.CompanyID)
	}

	out := make([]domain.ApprovalInstance, 0, len(pending))
	for _, instance := range pending {
		if instance.AwaitingDecisionFrom(principal) {
			out = append(out, instance)
		}
	}
	return out, nil
}

func (s *ApprovalService) GetApproval(ctx context.Context, principal domain.Principal, id string) (domain.ApprovalInstance, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.ApprovalInstance{}, err
	}
	instance, err := s.store.Approvals().GetInstance(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.ApprovalInstance{}, storeErr(err, "approval instance", id)
	}
	return instance, nil
}

func (s *ApprovalService) CreateTemplate(ctx context.Context, principal domain.Principal, params TemplateParams) (domain.ApprovalTemplate, error) {
	logger.Info("approval service create template request", logger.Fields{
		"userId": principal.UserID,
		"name":   params.Name,
	})

	if err := principal.Require(domain.CapManageTemplates); err != nil {
		return domain.ApprovalTemplate{}, err
	}

	template := domain.ApprovalTemplate{
		ID:           newID(),
		CompanyID:    principal.CompanyID,
		Name:         strings.TrimSpace(params.Name),
		DocumentType: params.DocumentType,
		MinAmount:    params.MinAmount,
		MaxAmount:    params.MaxAmount,
		Priority:     params.Priority,
		Active:       true,
		Steps:        domain.CloneSteps(params.Steps),
		CreatedAt:    s.clock.Now(),
	}
	if err := template.Validate(); err != nil {
		return domain.ApprovalTemplate{}, err
	}

	created, err := s.store.Approvals().CreateTemplate(ctx, template)
	if err != nil {
		logger.Error("approval service create template failed", err, logger.Fields{"name": template.Name})
		return domain.ApprovalTemplate{}, storeErr(err, "approval template", template.ID)
	}
	return created, nil
}

func (s *ApprovalService) ListTemplates(ctx context.Context, principal domain.Principal) ([]domain.ApprovalTemplate, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return nil, err
	}
	templates, err := s.store.Approvals().ListTemplates(ctx, principal.CompanyID, false)
	if err != nil {
		return nil, storeErr(err, "approval templates", principal.CompanyID)
	}
	return templates, nil
}

// SeedTemplates inserts configured templates whose company and name are not
// present yet. It returns how many were created.
func (s *ApprovalService) SeedTemplates(ctx context.Context, templates []domain.ApprovalTemplate) (int, error) {
	created := 0
	existing := map[string]map[string]bool{}

	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return created, fmt.Errorf("seed template %q: %w", t.Name, err)
		}

		names, ok := existing[t.CompanyID]
		if !ok {
			current, err := s.store.Approvals().ListTemplates(ctx, t.CompanyID, false)
			if err != nil {
				return created, storeErr(err, "approval templates", t.CompanyID)
			}
			names = map[string]bool{}
			for _, c := range current {
				if c.CompanyID == t.CompanyID {
					names[c.Name] = true
				}
			}
			existing[t.CompanyID] = names
		}
		if names[t.Name] {
			continue
		}

		t.ID = newID()
		t.CreatedAt = s.clock.Now()
		if _, err := s.store.Approvals().CreateTemplate(ctx, t); err != nil {
			return created, storeErr(err, "approval template", t.Name)
		}
		names[t.Name] = true
		created++
	}

	if created > 0 {
		logger.Info("approval service templates seeded", logger.Fields{"created": created})
	}
	return created, nil
}
