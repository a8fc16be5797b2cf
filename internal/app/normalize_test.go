package app_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing_sync/internal/app"
	"listing_sync/internal/domain"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"123 Main St / Unit 4": "123-main-st-unit-4",
		"  Ünïcode   Place  ":  "ncode-place",
		"A--B//C":              "a-b-c",
		"#5 Oak Ave.":          "5-oak-ave",
		"":                     "untitled",
		"   ":                  "untitled",
		"!!!":                  "untitled",
		// control characters are dropped before separators are collapsed
		"Maple\tCourt North":   "maplecourt-north",
	}
	for in, want := range cases {
		got := app.Slug(in)
		assert.Equal(t, want, got, "Slug(%q)", in)
		assert.Regexp(t, slugShape, got)
	}
}

func TestAddressKey(t *testing.T) {
	assert.Equal(t, "12 oak ave", app.AddressKey("  12 Oak AVE "))
	assert.Equal(t, app.AddressKey("12 Oak Ave"), app.AddressKey("12 OAK AVE"))
	assert.Equal(t, "", app.AddressKey("   "))

	for _, a := range []string{"12 Oak Ave", "Straße 5", "  X  "} {
		once := app.AddressKey(a)
		assert.Equal(t, once, app.AddressKey(once), "AddressKey not idempotent for %q", a)
	}
}

func TestNormalize_FullRecord(t *testing.T) {
	rec := domain.SourceRecord{
		"unit_address":          "12 Oak Ave",
		"property_name":         "Oak Commons",
		"unit_city":             "Fresno",
		"unit_state":            "CA",
		"unit_zip":              "93701",
		"sqft":                  "1,100",
		"bedrooms":              2.0,
		"bathrooms":             "1.5",
		"advertised_rent":       "$1,850.00",
		"deposit":               "1850",
		"marketing_description": strings.Repeat("x", 150),
		"marketing_title":       "Sunny two bed",
		"application_fee":       "n/a",
		"unit_amenities":        []any{"Pool", " Gym "},
		"posted_to_internet":    "Yes",
		"visibility":            "Active",
	}

	row := app.Normalize(rec, false)
	assert.Equal(t, "12 Oak Ave", row.Name)
	assert.Equal(t, "12-oak-ave", row.Slug)
	assert.Equal(t, "Oak Commons", row.PropertyName)
	require.NotNil(t, row.Sqft)
	assert.Equal(t, 1100.0, *row.Sqft)
	require.NotNil(t, row.Rent)
	assert.Equal(t, 1850.0, *row.Rent)
	require.NotNil(t, row.Bathrooms)
	assert.Equal(t, 1.5, *row.Bathrooms)
	assert.Nil(t, row.ApplicationFee, "non-numeric must become null, not NaN")
	assert.Equal(t, "Pool, Gym", row.Amenities)
	assert.Equal(t, "Rental home in Fresno. "+strings.Repeat("x", 100), row.MetaDescription)
	require.NotNil(t, row.PostedToInternet)
	assert.Equal(t, "yes", *row.PostedToInternet)

	vals := row.Values()
	assert.Nil(t, vals["application_fee"])
	assert.Contains(t, vals, "application_fee")
	assert.Equal(t, "yes", vals["posted_to_internet"])

	assert.True(t, app.IsActive(rec))
	assert.True(t, app.IsPostable(rec))
}

func TestNormalize_PublicOmitsPostedFlag(t *testing.T) {
	rec := domain.SourceRecord{"unit_address": "1 Main St", "posted_to_internet": true}
	row := app.Normalize(rec, true)
	assert.Nil(t, row.PostedToInternet)
	assert.NotContains(t, row.Values(), "posted_to_internet")

	internal := app.Normalize(domain.SourceRecord{"unit_address": "1 Main St"}, false)
	require.NotNil(t, internal.PostedToInternet)
	assert.Equal(t, "no", *internal.PostedToInternet)
}

func TestNormalize_Fallbacks(t *testing.T) {
	row := app.Normalize(domain.SourceRecord{"property_name": "Birch Flats", "unit_name": "B-2"}, true)
	assert.Equal(t, "B-2", row.Name)
	assert.Equal(t, "birch-flats", row.Slug)

	empty := app.Normalize(domain.SourceRecord{}, true)
	assert.Equal(t, "Untitled Listing", empty.Name)
	assert.Equal(t, "untitled", empty.Slug)
	assert.Equal(t, "", empty.MetaDescription)
	assert.Nil(t, empty.Rent)

	noCity := app.Normalize(domain.SourceRecord{"description": "Cozy."}, true)
	assert.Equal(t, "Rental home in California. Cozy.", noCity.MetaDescription)
}

func TestNormalize_NestedAddress(t *testing.T) {
	rec := domain.SourceRecord{"address": map[string]any{"line": "9 Elm St", "city": "Davis"}}
	row := app.Normalize(rec, true)
	assert.Equal(t, "9 Elm St", row.Address)
	assert.Equal(t, "Davis", row.City)
}

func TestPartition(t *testing.T) {
	recs := []domain.SourceRecord{
		{"unit_address": "A", "visibility": "active", "posted_to_internet": "yes"},
		{"unit_address": "B", "visibility": "inactive", "posted_to_internet": "yes"},
		{"unit_address": "C", "visibility": "ACTIVE", "posted_to_internet": "no"},
		{"unit_address": "D"},
	}
	active, postable := app.Partition(recs)
	require.Len(t, active, 2)
	assert.Equal(t, "A", active[0].Str("unit_address"))
	assert.Equal(t, "C", active[1].Str("unit_address"))
	require.Len(t, postable, 1)
	assert.Equal(t, "A", postable[0].Str("unit_address"))
	_ = pfloat
}
