package domain

// Table identifies one destination table and how rows in it are published.
type Table struct {
	ID    string
	Label string // "internal" or "public"

	// Public tables never receive the posted_to_internet column.
	Public bool
	// RecreateLive sends the create half of a recreate straight to the live
	// revision instead of the draft.
	RecreateLive bool
	// DraftMode tables get a push-live call at the end of each run.
	DraftMode bool
}

// DestRow is one row as stored in a destination table.
type DestRow struct {
	ID     string
	Values map[string]any
}
