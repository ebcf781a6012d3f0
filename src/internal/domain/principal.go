package domain

import (
	"fmt"
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleManager    Role = "manager"
	RoleDirector   Role = "director"
	RoleViewer     Role = "viewer"
	// RoleSystem is used by the recurring scheduler. It is never accepted
	// from request headers.
	RoleSystem Role = "system"
)

type Capability string

const (
	CapCreateDocuments Capability = "create_documents"
	CapSubmitDocuments Capability = "submit_documents"
	CapDecideApprovals Capability = "decide_approvals"
	CapPostDocuments   Capability = "post_documents"
	CapVoidDocuments   Capability = "void_documents"
	CapPostJournal     Capability = "post_journal"
	CapViewLedger      Capability = "view_ledger"
	CapManageAccounts  Capability = "manage_accounts"
	CapManageTemplates Capability = "manage_templates"
	CapManageRecurring Capability = "manage_recurring"
	CapManageBudgets   Capability = "manage_budgets"
	CapRunScheduler    Capability = "run_scheduler"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapCreateDocuments, CapSubmitDocuments, CapDecideApprovals, CapPostDocuments, CapVoidDocuments,
		CapPostJournal, CapViewLedger, CapManageAccounts, CapManageTemplates, CapManageRecurring,
		CapManageBudgets, CapRunScheduler,
	},
	RoleAccountant: {
		CapCreateDocuments, CapSubmitDocuments, CapPostDocuments, CapPostJournal, CapViewLedger,
		CapManageRecurring, CapManageBudgets,
	},
	RoleManager: {
		CapCreateDocuments, CapSubmitDocuments, CapDecideApprovals, CapPostDocuments, CapVoidDocuments,
		CapViewLedger, CapManageBudgets,
	},
	RoleDirector: {
		CapDecideApprovals, CapVoidDocuments, CapViewLedger, CapManageTemplates, CapManageBudgets,
	},
	RoleViewer: {
		CapViewLedger,
	},
	RoleSystem: {
		CapCreateDocuments, CapSubmitDocuments, CapPostDocuments, CapViewLedger, CapRunScheduler,
	},
}

func Can(role Role, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// ParseRole accepts the roles a caller may present. The system role is
// internal and rejected here.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == RoleSystem {
		return "", fmt.Errorf("role %q is reserved", raw)
	}
	if _, ok := roleCapabilities[role]; !ok {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Principal is the authenticated caller: who, in which role, for which company.
type Principal struct {
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	CompanyID string `json:"companyId"`
}

func SystemPrincipal(companyID, userID string) Principal {
	return Principal{UserID: userID, Role: RoleSystem, CompanyID: companyID}
}

// Require fails with an authorization error unless the principal is complete
// and its role grants capability.
func (p Principal) Require(capability Capability) error {
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.CompanyID) == "" {
		return commons.Authorization("principal is incomplete", "user id and company id are required")
	}
	if !Can(p.Role, capability) {
		return commons.Authorization("operation not permitted",
			fmt.Sprintf("role %q lacks capability %q", p.Role, capability))
	}
	return nil
}
