package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"listing_sync/internal/domain"
)

// outcomes are inserted in chunks to stay under max_allowed_packet
const outcomeChunk = 500

// width of the VARCHAR(255) outcome columns
const maxText = 255

// clip cuts s to at most n runes so strict mode never rejects a row.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Repo is the run ledger. It is write-mostly reporting; the sync never reads
// it back to decide anything.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) RecordRun(ctx context.Context, rr domain.RunReport) error {
	tables, err := json.Marshal(rr.Tables)
	if err != nil {
		return err
	}
	failed := rr.Failed
	if failed == nil {
		failed = []string{}
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertRunSQL,
		rr.ID,
		rr.StartedAt.UTC(),
		rr.FinishedAt.UTC(),
		rr.Fetched,
		rr.Active,
		rr.Postable,
		valStr(rr.FetchErr),
		len(rr.Failed),
		string(tables),
		string(failedJSON),
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", rr.ID, err)
	}
	if _, err := tx.ExecContext(ctx, deleteOutcomesSQL, rr.ID); err != nil {
		return fmt.Errorf("clear outcomes %s: %w", rr.ID, err)
	}

	for start := 0; start < len(rr.Outcomes); start += outcomeChunk {
		end := min(start+outcomeChunk, len(rr.Outcomes))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*9) // 9 params per row
		for i, o := range rr.Outcomes[start:end] {
			values = append(values, "(?,?,?,?,?,?,?,?,?)")
			args = append(args,
				rr.ID,
				start+i,
				clip(o.Table, 64),
				clip(o.Label, 32),
				clip(o.Listing, maxText),
				clip(o.Address, maxText),
				valStr(clip(o.RowID, 64)),
				string(o.Outcome),
				valStr(o.Detail),
			)
		}
		if _, err := tx.ExecContext(ctx, insertOutcomesPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert outcomes %s: %w", rr.ID, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) GetRun(ctx context.Context, id string) (domain.RunReport, error) {
	var (
		rr         domain.RunReport
		fetchErr   sql.NullString
		tablesJSON []byte
		failedJSON []byte
	)
	err := r.db.QueryRowContext(ctx, getRunSQL, id).Scan(
		&rr.ID,
		&rr.StartedAt,
		&rr.FinishedAt,
		&rr.Fetched,
		&rr.Active,
		&rr.Postable,
		&fetchErr,
		&tablesJSON,
		&failedJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunReport{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.RunReport{}, err
	}
	rr.FetchErr = fetchErr.String
	if err := json.Unmarshal(tablesJSON, &rr.Tables); err != nil {
		return domain.RunReport{}, fmt.Errorf("decode tables of run %s: %w", id, err)
	}
	if err := json.Unmarshal(failedJSON, &rr.Failed); err != nil {
		return domain.RunReport{}, fmt.Errorf("decode failed list of run %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx, getOutcomesSQL, id)
	if err != nil {
		return domain.RunReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o             domain.RowOutcome
			outcome       string
			rowID, detail sql.NullString
		)
		if err := rows.Scan(&o.Table, &o.Label, &o.Listing, &o.Address, &rowID, &outcome, &detail); err != nil {
			return domain.RunReport{}, err
		}
		o.Outcome = domain.Outcome(outcome)
		o.RowID = rowID.String
		o.Detail = detail.String
		rr.Outcomes = append(rr.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return domain.RunReport{}, err
	}
	return rr, nil
}

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var s domain.RunSummary
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Fetched, &s.Active, &s.FailedCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
