package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/plantation-payroll-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

type registryRepository struct {
	db *database.DB
}

func NewRegistryRepository(db *database.DB) deduction.RegistryRepository {
	return &registryRepository{db: db}
}

const entryColumns = `
	id, code, name, kind, employee_rate, employer_rate, applicability, is_active,
	effective_from, effective_until, created_by, created_at, updated_at
`

func scanEntry(row pgx.Row) (deduction.Entry, error) {
	var e deduction.Entry
	err := row.Scan(
		&e.ID, &e.Code, &e.Name, &e.Kind, &e.EmployeeRate, &e.EmployerRate, &e.Applicability, &e.IsActive,
		&e.EffectiveFrom, &e.EffectiveUntil, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// ========== ENTRIES ==========

// Create inserts entry and its wage ranges. Callers run it inside a
// transaction so a failed range leaves no half-written entry.
func (r *registryRepository) Create(ctx context.Context, entry deduction.Entry) (deduction.Entry, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return deduction.Entry{}, err
	}

	query := `
		INSERT INTO deduction_registry_entries (
			id, code, name, kind, employee_rate, employer_rate, applicability, is_active,
			effective_from, effective_until, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + entryColumns

	created, err := scanEntry(q.QueryRow(ctx, query,
		id, entry.Code, entry.Name, entry.Kind, entry.EmployeeRate, entry.EmployerRate, entry.Applicability, entry.IsActive,
		entry.EffectiveFrom, entry.EffectiveUntil, entry.CreatedBy,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_deduction_open_entry") {
			return deduction.Entry{}, deduction.ErrOpenEntryExists
		}
		return deduction.Entry{}, fmt.Errorf("failed to create deduction entry: %w", err)
	}

	for _, wr := range deduction.SortRanges(entry.WageRanges) {
		wr.EntryID = created.ID
		saved, err := r.CreateWageRange(ctx, wr)
		if err != nil {
			return deduction.Entry{}, err
		}
		created.WageRanges = append(created.WageRanges, saved)
	}

	return created, nil
}

func (r *registryRepository) GetByID(ctx context.Context, id string) (deduction.Entry, error) {
	if !validator.IsValidUUID(id) {
		return deduction.Entry{}, deduction.ErrEntryNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + entryColumns + ` FROM deduction_registry_entries WHERE id = $1`

	e, err := scanEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return deduction.Entry{}, deduction.ErrEntryNotFound
		}
		return deduction.Entry{}, fmt.Errorf("failed to get deduction entry: %w", err)
	}

	entries := []deduction.Entry{e}
	if err := r.loadWageRanges(ctx, entries); err != nil {
		return deduction.Entry{}, err
	}
	return entries[0], nil
}

func (r *registryRepository) GetOpenByCode(ctx context.Context, code string) (deduction.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + entryColumns + ` FROM deduction_registry_entries WHERE code = $1 AND effective_until IS NULL`

	e, err := scanEntry(q.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return deduction.Entry{}, deduction.ErrNoOpenEntry
		}
		return deduction.Entry{}, fmt.Errorf("failed to get open deduction entry: %w", err)
	}

	entries := []deduction.Entry{e}
	if err := r.loadWageRanges(ctx, entries); err != nil {
		return deduction.Entry{}, err
	}
	return entries[0], nil
}

func (r *registryRepository) ListByCode(ctx context.Context, code string) ([]deduction.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM deduction_registry_entries
		WHERE code = $1
		ORDER BY effective_from
	`
	return r.list(ctx, query, code)
}

// ListActiveOn returns switched-on entries whose interval covers date.
func (r *registryRepository) ListActiveOn(ctx context.Context, date time.Time) ([]deduction.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM deduction_registry_entries
		WHERE is_active
		  AND effective_from <= $1
		  AND (effective_until IS NULL OR effective_until >= $1)
		ORDER BY code, effective_from
	`
	return r.list(ctx, query, deduction.DateOnly(date))
}

func (r *registryRepository) ListOpen(ctx context.Context) ([]deduction.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM deduction_registry_entries
		WHERE effective_until IS NULL
		ORDER BY code, effective_from
	`
	return r.list(ctx, query)
}

func (r *registryRepository) list(ctx context.Context, query string, args ...interface{}) ([]deduction.Entry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deduction entries: %w", err)
	}
	defer rows.Close()

	var entries []deduction.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deduction entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list deduction entries: %w", err)
	}

	if err := r.loadWageRanges(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close sets effective_until on an open entry. It is the only update an entry
// ever receives.
func (r *registryRepository) Close(ctx context.Context, id string, until time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE deduction_registry_entries
		SET effective_until = $2, updated_at = NOW()
		WHERE id = $1 AND effective_until IS NULL
	`

	tag, err := q.Exec(ctx, query, id, deduction.DateOnly(until))
	if err != nil {
		return fmt.Errorf("failed to close deduction entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return deduction.ErrEntryAlreadyClosed
	}

	return nil
}

// DeleteByCode removes every entry of code. Wage ranges go with them by
// cascade.
func (r *registryRepository) DeleteByCode(ctx context.Context, code string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM deduction_registry_entries WHERE code = $1`, code)
	if err != nil {
		return 0, fmt.Errorf("failed to delete deduction code: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ========== WAGE RANGES ==========

func (r *registryRepository) CreateWageRange(ctx context.Context, wr deduction.WageRange) (deduction.WageRange, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return deduction.WageRange{}, err
	}

	query := `
		INSERT INTO wage_ranges (id, deduction_registry_entry_id, min_wage, max_wage, method, employee_value, employer_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, deduction_registry_entry_id, min_wage, max_wage, method, employee_value, employer_value
	`

	var out deduction.WageRange
	err = q.QueryRow(ctx, query,
		id, wr.EntryID, wr.MinWage, wr.MaxWage, wr.Method, wr.EmployeeValue, wr.EmployerValue,
	).Scan(
		&out.ID, &out.EntryID, &out.MinWage, &out.MaxWage, &out.Method, &out.EmployeeValue, &out.EmployerValue,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_wage_range_bounds") {
			return deduction.WageRange{}, deduction.ErrWageRangeOverlap
		}
		return deduction.WageRange{}, fmt.Errorf("failed to create wage range: %w", err)
	}

	return out, nil
}

// loadWageRanges fills WageRanges of every entry with one query.
func (r *registryRepository) loadWageRanges(ctx context.Context, entries []deduction.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}

	query := `
		SELECT id, deduction_registry_entry_id, min_wage, max_wage, method, employee_value, employer_value
		FROM wage_ranges
		WHERE deduction_registry_entry_id = ANY($1::uuid[])
		ORDER BY deduction_registry_entry_id, min_wage
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to list wage ranges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wr deduction.WageRange
		if err := rows.Scan(&wr.ID, &wr.EntryID, &wr.MinWage, &wr.MaxWage, &wr.Method, &wr.EmployeeValue, &wr.EmployerValue); err != nil {
			return fmt.Errorf("failed to scan wage range: %w", err)
		}
		i := index[wr.EntryID]
		entries[i].WageRanges = append(entries[i].WageRanges, wr)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list wage ranges: %w", err)
	}

	return nil
}
