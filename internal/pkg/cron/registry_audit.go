package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/plantation-payroll-go/internal/domain/deduction"
	"github.com/shopspring/decimal"
)

// Finding kinds reported by the registry audit.
const (
	FindingWageRangeGap     = "wage_range_gap"
	FindingBelowFirstRange  = "below_first_range"
	FindingNoWageRanges     = "no_wage_ranges"
	FindingWageRangeOverlap = "wage_range_overlap"
	FindingMultipleOpen     = "multiple_open_entries"
)

// Finding is one registry anomaly. Grosses that fall into a gap resolve to a
// zero contribution at calculation time.
type Finding struct {
	Kind    string
	Code    string
	EntryID string
	From    *decimal.Decimal
	To      *decimal.Decimal
	Detail  string
}

type AuditReport struct {
	CheckedAt time.Time
	Entries   int
	Findings  []Finding
}

// RegistryAuditJobs inspects open registry entries. It never modifies data.
type RegistryAuditJobs struct {
	registryRepo deduction.RegistryRepository
	logger       *slog.Logger
	now          func() time.Time
}

func NewRegistryAuditJobs(registryRepo deduction.RegistryRepository, logger *slog.Logger) *RegistryAuditJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryAuditJobs{
		registryRepo: registryRepo,
		logger:       logger.With("job", "registry_audit"),
		now:          time.Now,
	}
}

func (j *RegistryAuditJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("registry_audit", interval, j.Run)
}

// Run audits the registry and logs every finding.
func (j *RegistryAuditJobs) Run(ctx context.Context) error {
	report, err := j.Audit(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Findings {
		attrs := []any{"kind", f.Kind, "code", f.Code, "entry_id", f.EntryID}
		if f.From != nil {
			attrs = append(attrs, "from", f.From.StringFixed(2))
		}
		if f.To != nil {
			attrs = append(attrs, "to", f.To.StringFixed(2))
		}
		if f.Detail != "" {
			attrs = append(attrs, "detail", f.Detail)
		}
		j.logger.WarnContext(ctx, "Registry audit finding", attrs...)
	}
	j.logger.InfoContext(ctx, "Registry audit completed", "entries", report.Entries, "findings", len(report.Findings))
	return nil
}

// Audit collects findings over all open entries, ordered by code.
func (j *RegistryAuditJobs) Audit(ctx context.Context) (AuditReport, error) {
	entries, err := j.registryRepo.ListOpen(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("failed to list open registry entries: %w", err)
	}

	report := AuditReport{CheckedAt: j.now(), Entries: len(entries)}

	byCode := make(map[string][]deduction.Entry)
	var codes []string
	for _, e := range entries {
		if _, seen := byCode[e.Code]; !seen {
			codes = append(codes, e.Code)
		}
		byCode[e.Code] = append(byCode[e.Code], e)
	}
	sort.Strings(codes)

	for _, code := range codes {
		group := byCode[code]
		if len(group) > 1 {
			report.Findings = append(report.Findings, Finding{
				Kind:   FindingMultipleOpen,
				Code:   code,
				Detail: fmt.Sprintf("%d open entries", len(group)),
			})
		}
		for _, e := range group {
			if e.Kind == deduction.KindWageRange {
				report.Findings = append(report.Findings, auditWageRanges(e)...)
			}
		}
	}
	return report, nil
}

func auditWageRanges(e deduction.Entry) []Finding {
	if len(e.WageRanges) == 0 {
		return []Finding{{Kind: FindingNoWageRanges, Code: e.Code, EntryID: e.ID}}
	}

	var findings []Finding
	sorted := deduction.SortRanges(e.WageRanges)
	if first := sorted[0]; first.MinWage.IsPositive() {
		from := decimal.Zero
		to := first.MinWage.Sub(decimal.New(1, -2))
		findings = append(findings, Finding{Kind: FindingBelowFirstRange, Code: e.Code, EntryID: e.ID, From: &from, To: &to})
	}
	for _, gap := range deduction.Gaps(sorted) {
		from, to := gap.From, gap.To
		findings = append(findings, Finding{Kind: FindingWageRangeGap, Code: e.Code, EntryID: e.ID, From: &from, To: &to})
	}
	if i, k, ok := deduction.FirstOverlap(sorted); ok {
		findings = append(findings, Finding{
			Kind:    FindingWageRangeOverlap,
			Code:    e.Code,
			EntryID: e.ID,
			Detail:  fmt.Sprintf("ranges %s and %s overlap", sorted[i].ID, sorted[k].ID),
		})
	}
	return findings
}
