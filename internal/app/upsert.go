package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"listing_sync/internal/domain"
)

// Result is what Upsert did with one row.
type Result struct {
	Outcome domain.Outcome
	RowID   string
	Err     error
}

// Executor applies create-or-update for one row through the draft/publish protocol.
type Executor struct {
	store   domain.TableStore
	matcher *Matcher
	slots   []string
}

// NewExecutor builds an Executor protecting photo slots photo_1..photo_N.
func NewExecutor(s domain.TableStore, photoSlots int) *Executor {
	slots := make([]string, 0, photoSlots)
	for i := 1; i <= photoSlots; i++ {
		slots = append(slots, fmt.Sprintf("photo_%d", i))
	}
	return &Executor{store: s, matcher: NewMatcher(s), slots: slots}
}

// Upsert syncs row into table. It makes one create or update attempt and at
// most one delete+create fallback; it never retries.
func (e *Executor) Upsert(ctx context.Context, row domain.Row, table domain.Table) Result {
	lg := log.With().Str("label", table.Label).Str("table", table.ID).Str("listing", row.Name).Logger()

	if row.Title == "" || (row.Rent != nil && *row.Rent == 0) {
		lg.Info().Msg("skipping incomplete listing")
		return Result{Outcome: domain.OutcomeSkipped}
	}

	values := row.Values()

	rowID, found := e.matcher.FindRow(ctx, row, table)
	if !found {
		created, err := e.store.CreateDraftRow(ctx, table.ID, values)
		if err != nil {
			e.logFailure(lg, err, "create draft", endpoint(table.ID, "rows/draft"), values)
			return Result{Outcome: domain.OutcomeFailed, Err: err}
		}
		lg.Info().Str("row_id", created.ID).Msg("created draft row")
		return Result{Outcome: domain.OutcomeCreated, RowID: created.ID}
	}

	lg = lg.With().Str("row_id", rowID).Logger()
	err := e.update(ctx, table, rowID, values)
	if err == nil {
		lg.Info().Msg("updated draft row")
		return Result{Outcome: domain.OutcomeUpdated, RowID: rowID}
	}

	class := Classify(err)
	if class != RecreateRequired {
		e.logFailure(lg, err, "update draft "+class.String(), endpoint(table.ID, "rows/"+rowID+"/draft"), values)
		return Result{Outcome: domain.OutcomeFailed, RowID: rowID, Err: err}
	}

	lg.Warn().Err(err).Msg("draft patch rejected; recreating row")
	return e.recreate(ctx, lg, table, rowID, values)
}

// update materializes a draft for rowID and overwrites it with values,
// carrying over photo slots the listing data does not own.
func (e *Executor) update(ctx context.Context, table domain.Table, rowID string, values map[string]any) error {
	var existing map[string]any
	if cur, err := e.store.GetRow(ctx, table.ID, rowID); err == nil {
		existing = cur.Values
	} else {
		log.Debug().Err(err).Str("row_id", rowID).Msg("could not read existing row; photo slots omitted")
	}
	e.protectAttachments(values, existing)

	if err := e.store.InitDraft(ctx, table.ID, rowID); err != nil {
		return fmt.Errorf("init draft: %w", err)
	}
	if _, err := e.store.PatchDraft(ctx, table.ID, rowID, values); err != nil {
		return fmt.Errorf("patch draft: %w", err)
	}
	return nil
}

func (e *Executor) recreate(ctx context.Context, lg zerolog.Logger, table domain.Table, rowID string, values map[string]any) Result {
	if err := e.store.DeleteRow(ctx, table.ID, rowID); err != nil {
		e.logFailure(lg, err, "recreate: delete", endpoint(table.ID, "rows/"+rowID), values)
		return Result{Outcome: domain.OutcomeFailed, RowID: rowID, Err: err}
	}

	create, path := e.store.CreateDraftRow, "rows/draft"
	if table.RecreateLive {
		create, path = e.store.CreateLiveRow, "rows"
	}
	created, err := create(ctx, table.ID, values)
	if err != nil {
		lg.Error().Str("deleted_row_id", rowID).Msg("row deleted but not recreated")
		e.logFailure(lg, err, "recreate: create", endpoint(table.ID, path), values)
		return Result{Outcome: domain.OutcomeFailed, Err: err}
	}
	lg.Info().Str("new_row_id", created.ID).Bool("live", table.RecreateLive).Msg("recreated row")
	return Result{Outcome: domain.OutcomeRecreated, RowID: created.ID}
}

// protectAttachments keeps photo slots that already hold content and drops the
// rest so a patch never nulls an attachment it does not own.
func (e *Executor) protectAttachments(values, existing map[string]any) {
	for _, slot := range e.slots {
		if v, ok := existing[slot]; ok && hasContent(v) {
			values[slot] = v
			continue
		}
		delete(values, slot)
	}
}

func hasContent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}

func (e *Executor) logFailure(lg zerolog.Logger, err error, step, target string, values map[string]any) {
	payload, _ := json.Marshal(map[string]any{"values": values})
	lg.Error().Err(err).
		Str("step", step).
		Str("endpoint", target).
		RawJSON("payload", payload).
		Msg("listing sync failed")
}

func endpoint(tableID, suffix string) string {
	return "/tables/" + tableID + "/" + suffix
}
