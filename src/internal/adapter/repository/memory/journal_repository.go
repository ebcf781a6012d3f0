package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type journalRepository struct{ s *Store }

func (r journalRepository) Create(_ context.Context, entry domain.JournalEntry) (domain.JournalEntry, error) {
	defer r.s.lock()()
	for _, e := range r.s.data.entries {
		if e.CompanyID == entry.CompanyID && e.Number == entry.Number {
			return domain.JournalEntry{}, commons.Conflict("journal entry number already exists", entry.Number)
		}
		if entry.ReversalOfID != "" && e.ReversalOfID == entry.ReversalOfID {
			return domain.JournalEntry{}, commons.Conflict("journal entry already has a reversal", entry.ReversalOfID)
		}
	}
	r.s.data.entries[entry.ID] = cloneEntry(entry)
	r.s.data.track(entry.ID)
	return entry, nil
}

func (r journalRepository) Get(_ context.Context, companyID string, id string) (domain.JournalEntry, error) {
	defer r.s.rlock()()
	e, ok := r.s.data.entries[id]
	if !ok || e.CompanyID != companyID {
		return domain.JournalEntry{}, commons.ErrRecordNotFound
	}
	return cloneEntry(e), nil
}

func (r journalRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.JournalEntry, error) {
	return r.Get(ctx, companyID, id)
}

func (r journalRepository) MarkReversed(_ context.Context, id string, reversedByID string) error {
	defer r.s.lock()()
	e, ok := r.s.data.entries[id]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if e.Status != domain.EntryStatusPosted {
		return commons.State("journal entry is already reversed", id)
	}
	e.Status = domain.EntryStatusReversed
	e.ReversedByID = reversedByID
	r.s.data.entries[id] = e
	return nil
}

func (r journalRepository) ListLines(_ context.Context, filter domain.LedgerFilter) ([]domain.GeneralLedgerLine, error) {
	defer r.s.rlock()()

	type row struct {
		line  domain.GeneralLedgerLine
		order int64
	}
	var rows []row
	for _, e := range r.s.data.entries {
		if e.CompanyID != filter.CompanyID || !inRange(e.Date, filter.From, filter.To) {
			continue
		}
		if filter.SourceType != "" && e.SourceType != filter.SourceType {
			continue
		}
		for _, l := range e.Lines {
			if len(filter.AccountIDs) > 0 && !slices.Contains(filter.AccountIDs, l.AccountID) {
				continue
			}
			acc := r.s.data.accounts[l.AccountID]
			rows = append(rows, row{order: r.s.data.order[e.ID], line: domain.GeneralLedgerLine{
				EntryID:      e.ID,
				EntryNumber:  e.Number,
				Date:         e.Date,
				LineNo:       l.LineNo,
				AccountID:    l.AccountID,
				AccountCode:  acc.Code,
				AccountName:  acc.Name,
				Debit:        l.Debit,
				Credit:       l.Credit,
				Description:  l.Description,
				CostCenterID: l.CostCenterID,
				SourceType:   e.SourceType,
				SourceID:     e.SourceID,
				EntryStatus:  e.Status,
			}})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.line.AccountCode != b.line.AccountCode {
			return a.line.AccountCode < b.line.AccountCode
		}
		if !a.line.Date.Equal(b.line.Date) {
			return a.line.Date.Before(b.line.Date)
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.line.LineNo < b.line.LineNo
	})

	out := make([]domain.GeneralLedgerLine, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.line)
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (r journalRepository) Activity(_ context.Context, filter domain.ActivityFilter) ([]domain.AccountActivity, error) {
	defer r.s.rlock()()

	sums := map[[2]string]*domain.AccountActivity{}
	var keys [][2]string
	for _, e := range r.s.data.entries {
		if e.CompanyID != filter.CompanyID || !inRange(e.Date, filter.From, filter.To) {
			continue
		}
		for _, l := range e.Lines {
			key := [2]string{l.AccountID, l.CostCenterID}
			a, ok := sums[key]
			if !ok {
				a = &domain.AccountActivity{AccountID: l.AccountID, CostCenterID: l.CostCenterID, Debit: decimal.Zero, Credit: decimal.Zero}
				sums[key] = a
				keys = append(keys, key)
			}
			a.Debit = a.Debit.Add(l.Debit)
			a.Credit = a.Credit.Add(l.Credit)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]domain.AccountActivity, 0, len(keys))
	for _, k := range keys {
		out = append(out, *sums[k])
	}
	return out, nil
}
