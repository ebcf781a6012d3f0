package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
)

type FrequencyUnit string

const (
	FrequencyDay   FrequencyUnit = "day"
	FrequencyWeek  FrequencyUnit = "week"
	FrequencyMonth FrequencyUnit = "month"
	FrequencyYear  FrequencyUnit = "year"
)

type Frequency struct {
	Unit     FrequencyUnit `json:"unit"`
	Interval int           `json:"interval"`
}

func (f Frequency) Validate() error {
	switch f.Unit {
	case FrequencyDay, FrequencyWeek, FrequencyMonth, FrequencyYear:
	default:
		return commons.Validation("validation failed", fmt.Sprintf("unknown frequency unit %q", f.Unit))
	}
	if f.Interval < 1 {
		return commons.Validation("validation failed", "frequency interval must be at least 1")
	}
	return nil
}

// Occurrence returns the k-th occurrence counted from anchor (k = 0 is the
// anchor itself). Month and year steps keep the anchor's day of month and
// clamp to the last day of shorter months, so Jan 31 is followed by Feb 28
// and then Mar 31.
func (f Frequency) Occurrence(anchor time.Time, k int) time.Time {
	anchor = DateOf(anchor)
	switch f.Unit {
	case FrequencyDay:
		return anchor.AddDate(0, 0, k*f.Interval)
	case FrequencyWeek:
		return anchor.AddDate(0, 0, 7*k*f.Interval)
	case FrequencyMonth:
		return addMonthsClamped(anchor, k*f.Interval)
	case FrequencyYear:
		return addMonthsClamped(anchor, 12*k*f.Interval)
	}
	return anchor
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DocumentTemplate is the document payload a recurring definition copies on
// every occurrence.
type DocumentTemplate struct {
	Type         DocumentType    `json:"type"`
	Reference    string          `json:"reference,omitempty"`
	Description  string          `json:"description,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Lines        []PostingLine   `json:"lines"`
}

func (t DocumentTemplate) Validate() error {
	if !t.Type.Valid() {
		return commons.Validation("validation failed", fmt.Sprintf("unknown document type %q", t.Type))
	}
	return ValidatePostingLines(t.Lines)
}

type RecurringExecution struct {
	DueDate    time.Time `json:"dueDate"`
	DocumentID string    `json:"documentId"`
	ExecutedAt time.Time `json:"executedAt"`
}

type RecurringDefinition struct {
	ID              string               `json:"id"`
	CompanyID       string               `json:"companyId"`
	Name            string               `json:"name"`
	Template        DocumentTemplate     `json:"template"`
	Frequency       Frequency            `json:"frequency"`
	StartDate       time.Time            `json:"startDate"`
	AnchorDate      time.Time            `json:"anchorDate"`
	AnchorIndex     int                  `json:"anchorIndex"`
	NextDueDate     time.Time            `json:"nextDueDate"`
	EndDate         *time.Time           `json:"endDate,omitempty"`
	MaxOccurrences  *int                 `json:"maxOccurrences,omitempty"`
	OccurrenceCount int                  `json:"occurrenceCount"`
	Active          bool                 `json:"active"`
	CreatedBy       string               `json:"createdBy"`
	Version         int                  `json:"version"`
	Executions      []RecurringExecution `json:"executions,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func (d RecurringDefinition) Validate() error {
	var problems []string
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if d.StartDate.IsZero() {
		problems = append(problems, "startDate is required")
	}
	if d.EndDate != nil && DateOf(*d.EndDate).Before(DateOf(d.StartDate)) {
		problems = append(problems, "endDate must not be before startDate")
	}
	if d.MaxOccurrences != nil && *d.MaxOccurrences < 1 {
		problems = append(problems, "maxOccurrences must be at least 1")
	}
	for _, err := range []error{d.Frequency.Validate(), d.Template.Validate()} {
		if err != nil {
			problems = append(problems, commons.Detail(err)...)
		}
	}
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

// IsDue reports whether an occurrence is waiting on or before today.
func (d RecurringDefinition) IsDue(today time.Time) bool {
	return d.Active && !DateOf(d.NextDueDate).After(DateOf(today))
}

func (d RecurringDefinition) ExecutionFor(due time.Time) (RecurringExecution, bool) {
	due = DateOf(due)
	for _, e := range d.Executions {
		if DateOf(e.DueDate).Equal(due) {
			return e, true
		}
	}
	return RecurringExecution{}, false
}

// Advance counts the current occurrence as processed, moves NextDueDate to
// the following occurrence and deactivates the definition once its end
// condition is reached.
func (d *RecurringDefinition) Advance() {
	d.OccurrenceCount++
	d.NextDueDate = d.Frequency.Occurrence(d.AnchorDate, d.OccurrenceCount-d.AnchorIndex)
	if d.Finished() {
		d.Active = false
	}
}

// Finished reports whether no further occurrence may be generated.
func (d RecurringDefinition) Finished() bool {
	if d.MaxOccurrences != nil && d.OccurrenceCount >= *d.MaxOccurrences {
		return true
	}
	return d.EndDate != nil && DateOf(d.NextDueDate).After(DateOf(*d.EndDate))
}

// Reanchor restarts the schedule at the pending due date, used when the
// frequency of an existing definition changes. When the pending date was
// clamped to a month end, month and year schedules anchor on an earlier
// occurrence of the new frequency that still carries the original day, so
// Jan 31 stays the 31st after a change made while Feb 28 is pending.
func (d *RecurringDefinition) Reanchor() {
	pending := DateOf(d.NextDueDate)
	day := DateOf(d.AnchorDate).Day()
	d.AnchorDate = pending
	d.AnchorIndex = d.OccurrenceCount

	if d.Frequency.Unit != FrequencyMonth && d.Frequency.Unit != FrequencyYear || pending.Day() >= day {
		return
	}
	step := d.Frequency.Interval
	if d.Frequency.Unit == FrequencyYear {
		step *= 12
	}
	for j := 1; j <= 48; j++ {
		first := time.Date(pending.Year(), pending.Month()-time.Month(j*step), 1, 0, 0, 0, 0, time.UTC)
		if first.AddDate(0, 1, -1).Day() < day {
			continue
		}
		anchor := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
		if d.Frequency.Occurrence(anchor, j).Equal(pending) {
			d.AnchorDate = anchor
			d.AnchorIndex = d.OccurrenceCount - j
		}
		return
	}
}

func (d RecurringDefinition) Clone() RecurringDefinition {
	d.Template.Lines = CloneLines(d.Template.Lines)
	d.Executions = slices.Clone(d.Executions)
	if d.EndDate != nil {
		t := *d.EndDate
		d.EndDate = &t
	}
	if d.MaxOccurrences != nil {
		n := *d.MaxOccurrences
		d.MaxOccurrences = &n
	}
	return d
}
