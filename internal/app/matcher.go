package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"listing_sync/internal/domain"
)

// Matcher finds the destination row holding a listing's business key.
type Matcher struct {
	store domain.TableStore
}

func NewMatcher(s domain.TableStore) *Matcher { return &Matcher{store: s} }

// FindByAddress returns the ID of the first row in table whose address matches.
// An empty address matches rows stored with an empty address.
// A failed listing call is treated as "not found" so the caller falls through to
// a create instead of aborting the batch.
func (m *Matcher) FindByAddress(ctx context.Context, address string, table domain.Table) (string, bool) {
	return m.find(ctx, table, address, "")
}

// FindRow matches row by address. Rows without an address are additionally
// keyed on their name so unrelated address-less listings never share a row.
func (m *Matcher) FindRow(ctx context.Context, row domain.Row, table domain.Table) (string, bool) {
	name := ""
	if AddressKey(row.Address) == "" {
		name = row.Name
	}
	return m.find(ctx, table, row.Address, name)
}

func (m *Matcher) find(ctx context.Context, table domain.Table, address, name string) (string, bool) {
	key := AddressKey(address)
	nameKey := AddressKey(name)

	rows, err := m.store.ListRows(ctx, table.ID)
	if err != nil {
		log.Warn().Err(err).
			Str("label", table.Label).
			Str("table", table.ID).
			Str("address", address).
			Msg("row lookup failed; treating listing as new")
		return "", false
	}

	var match string
	for _, r := range rows {
		if AddressKey(domain.ValueString(r.Values["address"])) != key {
			continue
		}
		if nameKey != "" && AddressKey(domain.ValueString(r.Values["name"])) != nameKey {
			continue
		}
		if match == "" {
			match = r.ID
			continue
		}
		// first match wins; surface the duplicate so it can be cleaned up by hand
		log.Warn().
			Str("label", table.Label).
			Str("table", table.ID).
			Str("address", address).
			Str("row_id", match).
			Str("duplicate_row_id", r.ID).
			Msg("duplicate address in destination table")
	}
	return match, match != ""
}
