package deduction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/worker"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type RegistryServiceImpl struct {
	tx   database.Transactor
	repo deduction.RegistryRepository
	now  func() time.Time
}

func NewRegistryService(tx database.Transactor, repo deduction.RegistryRepository) deduction.RegistryService {
	return &RegistryServiceImpl{
		tx:   tx,
		repo: repo,
		now:  time.Now,
	}
}

// ========== LOOKUP ==========

func (s *RegistryServiceImpl) ActiveOn(ctx context.Context, date time.Time, nationality *worker.Nationality) ([]deduction.Entry, error) {
	date = deduction.DateOnly(date)
	entries, err := s.repo.ListActiveOn(ctx, date)
	if err != nil {
		return nil, err
	}

	entries = deduction.ActiveOn(entries, date)
	if nationality != nil {
		entries = deduction.ForNationality(entries, *nationality)
	}
	deduction.SortByCode(entries)
	return entries, nil
}

func (s *RegistryServiceImpl) GetByID(ctx context.Context, id string) (deduction.Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RegistryServiceImpl) History(ctx context.Context, code string) ([]deduction.Entry, error) {
	entries, err := s.repo.ListByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, deduction.ErrCodeNotFound
	}
	deduction.SortByCode(entries)
	return entries, nil
}

// ========== VERSIONING ==========

func (s *RegistryServiceImpl) Create(ctx context.Context, req deduction.CreateEntryRequest, actor string) (deduction.Entry, error) {
	if err := req.Validate(); err != nil {
		return deduction.Entry{}, err
	}

	var created deduction.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.create(ctx, req.ToEntry(actor))
		return err
	})
	if err != nil {
		return deduction.Entry{}, err
	}

	slog.Info("Created deduction entry", "code", created.Code, "entry_id", created.ID, "effective_from", created.EffectiveFrom.Format("2006-01-02"), "actor", actor)
	return created, nil
}

func (s *RegistryServiceImpl) Close(ctx context.Context, req deduction.CloseEntryRequest, actor string) (deduction.Entry, error) {
	if err := req.Validate(); err != nil {
		return deduction.Entry{}, err
	}
	until, _ := time.Parse(dateLayout, req.EffectiveUntil)

	var closed deduction.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.repo.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if !entry.IsOpen() {
			return deduction.ErrEntryAlreadyClosed
		}
		if until.Before(deduction.DateOnly(entry.EffectiveFrom)) {
			return validator.ValidationErrors{{Field: "effective_until", Message: "must not be before effective_from"}}
		}
		if err := s.repo.Close(ctx, entry.ID, until); err != nil {
			return err
		}
		entry.EffectiveUntil = &until
		closed = entry
		return nil
	})
	if err != nil {
		return deduction.Entry{}, err
	}

	slog.Info("Closed deduction entry", "code", closed.Code, "entry_id", closed.ID, "effective_until", req.EffectiveUntil, "actor", actor)
	return closed, nil
}

func (s *RegistryServiceImpl) Supersede(ctx context.Context, code string, req deduction.SupersedeRequest, actor string) (deduction.Entry, error) {
	req.Code = normalizeCode(code)
	if err := req.Validate(); err != nil {
		return deduction.Entry{}, err
	}

	var created deduction.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		open, err := s.repo.GetOpenByCode(ctx, req.Code)
		if err != nil {
			return err
		}
		created, err = s.supersede(ctx, open, req.ToEntry(actor))
		return err
	})
	if err != nil {
		return deduction.Entry{}, err
	}

	slog.Info("Superseded deduction entry", "code", created.Code, "entry_id", created.ID, "effective_from", created.EffectiveFrom.Format("2006-01-02"), "actor", actor)
	return created, nil
}

// AddWageRange adds a bracket to a wage_range entry. Only an entry not yet in
// force is edited in place; an entry already in force is superseded by a copy
// carrying the extra bracket from req.EffectiveFrom (default today), and the
// returned bracket belongs to that new entry.
func (s *RegistryServiceImpl) AddWageRange(ctx context.Context, req deduction.AddWageRangeRequest, actor string) (deduction.WageRange, error) {
	if err := req.Validate(); err != nil {
		return deduction.WageRange{}, err
	}

	var created deduction.WageRange
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.repo.GetByID(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if entry.Kind != deduction.KindWageRange {
			return deduction.ErrWageRangeNotAllowed
		}
		if !entry.IsOpen() {
			return deduction.ErrEntryAlreadyClosed
		}

		wr := req.ToWageRange()
		for _, existing := range entry.WageRanges {
			if existing.Overlaps(wr) {
				return fmt.Errorf("%w: [%s, %s]", deduction.ErrWageRangeOverlap, existing.MinWage, maxLabel(existing))
			}
		}

		today := deduction.DateOnly(s.now())
		if deduction.DateOnly(entry.EffectiveFrom).After(today) {
			wr.EntryID = entry.ID
			created, err = s.repo.CreateWageRange(ctx, wr)
			return err
		}

		from := today
		if req.EffectiveFrom != nil {
			from, _ = time.Parse(dateLayout, *req.EffectiveFrom)
		}
		next := entry
		next.ID = ""
		next.EffectiveFrom = from
		next.EffectiveUntil = nil
		next.WageRanges = append(copyRanges(entry.WageRanges), wr)
		next.CreatedBy = actor
		next.CreatedAt = time.Time{}
		next.UpdatedAt = time.Time{}

		version, err := s.supersede(ctx, entry, next)
		if err != nil {
			return err
		}
		for _, r := range version.WageRanges {
			if r.MinWage.Equal(wr.MinWage) && sameRate(r.MaxWage, wr.MaxWage) {
				created = r
				return nil
			}
		}
		return fmt.Errorf("failed to find added wage range on entry %s", version.ID)
	})
	if err != nil {
		return deduction.WageRange{}, err
	}

	slog.Info("Added wage range", "entry_id", created.EntryID, "source_entry_id", req.EntryID, "min_wage", created.MinWage.String(), "actor", actor)
	return created, nil
}

func (s *RegistryServiceImpl) DeleteCode(ctx context.Context, code string, actor string) (int64, error) {
	code = normalizeCode(code)
	deleted, err := s.repo.DeleteByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, deduction.ErrCodeNotFound
	}

	slog.Warn("Deleted deduction code family", "code", code, "entries", deleted, "actor", actor)
	return deleted, nil
}

// ========== BULK ==========

// Import applies parsed rows in one transaction. Rows identical to the open
// entry of their code are skipped; differing rows are rejected or versioned
// depending on the mode.
func (s *RegistryServiceImpl) Import(ctx context.Context, req deduction.ImportRequest, actor string) (deduction.ImportResult, error) {
	if err := req.Validate(); err != nil {
		return deduction.ImportResult{}, err
	}
	mode := deduction.ImportMode(req.Mode)

	result := deduction.ImportResult{Created: []string{}, Superseded: []string{}, Skipped: []string{}}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i, row := range req.Rows {
			entry := row.ToEntry(actor)

			open, err := s.repo.GetOpenByCode(ctx, entry.Code)
			switch {
			case errors.Is(err, deduction.ErrNoOpenEntry):
				if _, err := s.create(ctx, entry); err != nil {
					return fmt.Errorf("row %d (%s): %w", i, entry.Code, err)
				}
				result.Created = append(result.Created, entry.Code)
				continue
			case err != nil:
				return err
			}

			if sameTerms(open, entry) {
				result.Skipped = append(result.Skipped, entry.Code)
				continue
			}
			if mode == deduction.ImportModeReject {
				return fmt.Errorf("row %d (%s): %w", i, entry.Code, deduction.ErrOpenEntryExists)
			}
			if _, err := s.supersede(ctx, open, entry); err != nil {
				return fmt.Errorf("row %d (%s): %w", i, entry.Code, err)
			}
			result.Superseded = append(result.Superseded, entry.Code)
		}
		return nil
	})
	if err != nil {
		return deduction.ImportResult{}, err
	}

	slog.Info("Imported deduction entries", "mode", req.Mode, "created", len(result.Created), "superseded", len(result.Superseded), "skipped", len(result.Skipped), "actor", actor)
	return result, nil
}

// ========== HELPERS ==========

const dateLayout = "2006-01-02"

// create checks entry against the other versions of its code and persists it.
// Must run inside a transaction.
func (s *RegistryServiceImpl) create(ctx context.Context, entry deduction.Entry) (deduction.Entry, error) {
	if i, j, ok := deduction.FirstOverlap(entry.WageRanges); ok {
		return deduction.Entry{}, fmt.Errorf("%w: wage_ranges[%d] and wage_ranges[%d]", deduction.ErrWageRangeOverlap, i, j)
	}

	existing, err := s.repo.ListByCode(ctx, entry.Code)
	if err != nil {
		return deduction.Entry{}, err
	}
	for _, e := range existing {
		if e.IsOpen() && entry.IsOpen() {
			return deduction.Entry{}, deduction.ErrOpenEntryExists
		}
		if e.Overlaps(entry) {
			return deduction.Entry{}, fmt.Errorf("%w: entry from %s", deduction.ErrEffectiveOverlap, e.EffectiveFrom.Format("2006-01-02"))
		}
	}

	return s.repo.Create(ctx, entry)
}

// supersede closes open the day before next takes effect and creates next.
// Must run inside a transaction.
func (s *RegistryServiceImpl) supersede(ctx context.Context, open, next deduction.Entry) (deduction.Entry, error) {
	from := deduction.DateOnly(next.EffectiveFrom)
	if !from.After(deduction.DateOnly(open.EffectiveFrom)) {
		return deduction.Entry{}, deduction.ErrSupersedeNotLater
	}
	if next.Kind == deduction.KindWageRange && len(next.WageRanges) == 0 && open.Kind == deduction.KindWageRange {
		next.WageRanges = copyRanges(open.WageRanges)
	}

	until := from.AddDate(0, 0, -1)
	if err := s.repo.Close(ctx, open.ID, until); err != nil {
		return deduction.Entry{}, err
	}
	return s.create(ctx, next)
}

func copyRanges(ranges []deduction.WageRange) []deduction.WageRange {
	out := make([]deduction.WageRange, 0, len(ranges))
	for _, wr := range ranges {
		wr.ID = ""
		wr.EntryID = ""
		out = append(out, wr)
	}
	return out
}

// sameTerms reports whether an imported entry restates the open one.
func sameTerms(open, row deduction.Entry) bool {
	if open.Name != row.Name || open.Kind != row.Kind || open.Applicability != row.Applicability || open.IsActive != row.IsActive {
		return false
	}
	if !deduction.DateOnly(open.EffectiveFrom).Equal(deduction.DateOnly(row.EffectiveFrom)) || !row.IsOpen() {
		return false
	}
	if !sameRate(open.EmployeeRate, row.EmployeeRate) || !sameRate(open.EmployerRate, row.EmployerRate) {
		return false
	}

	a, b := deduction.SortRanges(open.WageRanges), deduction.SortRanges(row.WageRanges)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].MinWage.Equal(b[i].MinWage) || a[i].Method != b[i].Method ||
			!sameRate(a[i].MaxWage, b[i].MaxWage) ||
			!a[i].EmployeeValue.Equal(b[i].EmployeeValue) || !a[i].EmployerValue.Equal(b[i].EmployerValue) {
			return false
		}
	}
	return true
}

func sameRate(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func maxLabel(wr deduction.WageRange) string {
	if wr.MaxWage == nil {
		return "open"
	}
	return wr.MaxWage.String()
}
