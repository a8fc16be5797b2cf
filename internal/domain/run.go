package domain

import "time"

// Outcome is the result of one attempted row sync.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeRecreated Outcome = "recreated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// RowOutcome records what happened to one listing in one table.
type RowOutcome struct {
	Table   string  `json:"table"`
	Label   string  `json:"label"`
	Listing string  `json:"listing"`
	Address string  `json:"address"`
	RowID   string  `json:"row_id,omitempty"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// TableReport aggregates one table pass.
type TableReport struct {
	Label      string `json:"label"`
	TableID    string `json:"table_id"`
	Processed  int    `json:"processed"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Recreated  int    `json:"recreated"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Published  bool   `json:"published"`
	PublishErr string `json:"publish_error,omitempty"`
}

// Count tallies one outcome into the report.
func (t *TableReport) Count(o Outcome) {
	t.Processed++
	switch o {
	case OutcomeCreated:
		t.Created++
	case OutcomeUpdated:
		t.Updated++
	case OutcomeRecreated:
		t.Recreated++
	case OutcomeSkipped:
		t.Skipped++
	case OutcomeFailed:
		t.Failed++
	}
}

// Touched reports whether any row in the pass reached the destination.
func (t TableReport) Touched() bool { return t.Processed > t.Skipped }

// RunReport is the result of one synchronization pass.
type RunReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Fetched    int           `json:"fetched"`
	Active     int           `json:"active"`
	Postable   int           `json:"postable"`
	FetchErr   string        `json:"fetch_error,omitempty"`
	Tables     []TableReport `json:"tables"`
	Failed     []string      `json:"failed"`
	Outcomes   []RowOutcome  `json:"outcomes,omitempty"`
}

// HasFailures reports whether any listing ended in OutcomeFailed.
func (r RunReport) HasFailures() bool { return len(r.Failed) > 0 }

// RunSummary is the list view of a recorded run.
type RunSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Fetched     int       `json:"fetched"`
	Active      int       `json:"active"`
	FailedCount int       `json:"failed_count"`
}
