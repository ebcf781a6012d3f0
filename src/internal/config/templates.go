package config

import (
	"fmt"
	"os"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type templatesFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Name         string                `yaml:"name"`
	CompanyID    string                `yaml:"company_id"`
	DocumentType string                `yaml:"document_type"`
	MinAmount    string                `yaml:"min_amount"`
	MaxAmount    string                `yaml:"max_amount"`
	Priority     int                   `yaml:"priority"`
	Inactive     bool                  `yaml:"inactive"`
	Steps        []domain.ApprovalStep `yaml:"steps"`
}

// LoadApprovalTemplates reads the approval template seed file at path.
func LoadApprovalTemplates(path string) ([]domain.ApprovalTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read approval templates: %w", err)
	}
	return ParseApprovalTemplates(raw)
}

func ParseApprovalTemplates(raw []byte) ([]domain.ApprovalTemplate, error) {
	var file templatesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse approval templates: %w", err)
	}

	out := make([]domain.ApprovalTemplate, 0, len(file.Templates))
	for i, entry := range file.Templates {
		minAmount, err := optionalAmount(entry.MinAmount)
		if err != nil {
			return nil, fmt.Errorf("template %d (%s) min_amount: %w", i+1, entry.Name, err)
		}
		maxAmount, err := optionalAmount(entry.MaxAmount)
		if err != nil {
			return nil, fmt.Errorf("template %d (%s) max_amount: %w", i+1, entry.Name, err)
		}

		t := domain.ApprovalTemplate{
			CompanyID:    entry.CompanyID,
			Name:         entry.Name,
			DocumentType: domain.DocumentType(entry.DocumentType),
			MinAmount:    minAmount,
			MaxAmount:    maxAmount,
			Priority:     entry.Priority,
			Active:       !entry.Inactive,
			Steps:        entry.Steps,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i+1, entry.Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func optionalAmount(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
