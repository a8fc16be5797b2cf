package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"listing_sync/internal/domain"
)

// Tables names the destinations of one run. A table with an empty ID is not synced.
type Tables struct {
	Internal domain.Table
	Public   domain.Table
}

// Reconciler drives one full synchronization pass. It keeps no state between runs.
type Reconciler struct {
	source domain.SourceClient
	store  domain.TableStore
	exec   *Executor
	tables Tables
	now    func() time.Time
}

func NewReconciler(src domain.SourceClient, store domain.TableStore, tables Tables, photoSlots int) *Reconciler {
	return &Reconciler{
		source: src,
		store:  store,
		exec:   NewExecutor(store, photoSlots),
		tables: tables,
		now:    time.Now,
	}
}

// Partition splits records into active ones and, among those, ones flagged
// for internet posting. Source order is preserved.
func Partition(recs []domain.SourceRecord) (active, postable []domain.SourceRecord) {
	for _, rec := range recs {
		if !IsActive(rec) {
			continue
		}
		active = append(active, rec)
		if IsPostable(rec) {
			postable = append(postable, rec)
		}
	}
	return active, postable
}

// Run fetches the source listings, syncs them into the internal table and then
// the public one, one row at a time, and publishes the drafts of every table
// that was written to. Per-row failures never abort the run.
func (r *Reconciler) Run(ctx context.Context) domain.RunReport {
	report := domain.RunReport{ID: uuid.NewString(), StartedAt: r.now().UTC(), Failed: []string{}}
	lg := log.With().Str("run_id", report.ID).Logger()

	recs, err := r.source.FetchListings(ctx)
	if err != nil {
		lg.Error().Err(err).Msg("fetching listings failed; nothing to sync")
		report.FetchErr = err.Error()
		recs = nil
	}
	active, postable := Partition(recs)
	report.Fetched, report.Active, report.Postable = len(recs), len(active), len(postable)

	lg.Info().
		Int("fetched", report.Fetched).
		Int("active", report.Active).
		Int("postable", report.Postable).
		Msg("listings fetched")

	if len(active) == 0 {
		lg.Warn().Msg("no active listings; ending run")
		report.FinishedAt = r.now().UTC()
		return report
	}

	// Passes run one after another: a listing can be in both, and the matcher
	// re-lists rows, so concurrent writes could race past each other.
	passes := []struct {
		table domain.Table
		recs  []domain.SourceRecord
	}{
		{r.tables.Internal, active},
		{r.tables.Public, postable},
	}
	for _, p := range passes {
		if p.table.ID == "" {
			continue
		}
		report.Tables = append(report.Tables, r.pass(ctx, &report, p.table, p.recs))
	}

	for _, p := range passes {
		if p.table.ID == "" || !p.table.DraftMode {
			continue
		}
		tr := findTable(report.Tables, p.table.Label)
		if tr == nil || !tr.Touched() {
			continue
		}
		if err := r.store.PublishDraft(ctx, p.table.ID); err != nil {
			// the next run republishes; nothing to roll back
			lg.Error().Err(err).Str("label", p.table.Label).Str("table", p.table.ID).Msg("publish failed")
			tr.PublishErr = err.Error()
			continue
		}
		tr.Published = true
		lg.Info().Str("label", p.table.Label).Str("table", p.table.ID).Msg("published drafts")
	}

	report.FinishedAt = r.now().UTC()
	logSummary(lg, report)
	return report
}

func (r *Reconciler) pass(ctx context.Context, report *domain.RunReport, table domain.Table, recs []domain.SourceRecord) domain.TableReport {
	tr := domain.TableReport{Label: table.Label, TableID: table.ID}
	for _, rec := range recs {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Str("label", table.Label).Msg("run cancelled; stopping pass")
			break
		}
		row := Normalize(rec, table.Public)
		res := r.exec.Upsert(ctx, row, table)
		tr.Count(res.Outcome)

		out := domain.RowOutcome{
			Table:   table.ID,
			Label:   table.Label,
			Listing: row.Name,
			Address: row.Address,
			RowID:   res.RowID,
			Outcome: res.Outcome,
		}
		if res.Err != nil {
			out.Detail = res.Err.Error()
		}
		report.Outcomes = append(report.Outcomes, out)
		if res.Outcome == domain.OutcomeFailed {
			report.Failed = append(report.Failed, row.Name)
		}
	}
	return tr
}

func findTable(ts []domain.TableReport, label string) *domain.TableReport {
	for i := range ts {
		if ts[i].Label == label {
			return &ts[i]
		}
	}
	return nil
}

func logSummary(lg zerolog.Logger, report domain.RunReport) {
	for _, t := range report.Tables {
		lg.Info().
			Str("label", t.Label).
			Str("table", t.TableID).
			Int("processed", t.Processed).
			Int("created", t.Created).
			Int("updated", t.Updated).
			Int("recreated", t.Recreated).
			Int("skipped", t.Skipped).
			Int("failed", t.Failed).
			Bool("published", t.Published).
			Msg("table synced")
	}
	if report.HasFailures() {
		lg.Warn().Strs("failed_listings", report.Failed).Msg("sync finished with failures")
		return
	}
	lg.Info().Dur("took", report.FinishedAt.Sub(report.StartedAt)).Msg("sync finished")
}
