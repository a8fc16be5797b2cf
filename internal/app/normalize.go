package app

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"listing_sync/internal/domain"
)

/********** alias registry (single source of truth) **********/

var listingAliases = map[string][]string{
	"address":         {"unit_address", "address", "address.line"},
	"unit_name":       {"unit_name", "unit"},
	"property_name":   {"property_name", "property"},
	"city":            {"unit_city", "city", "address.city"},
	"state":           {"unit_state", "state", "address.state"},
	"zip":             {"unit_zip", "zip", "postal_code", "address.zip"},
	"sqft":            {"sqft", "square_feet"},
	"bedrooms":        {"bedrooms", "beds"},
	"bathrooms":       {"bathrooms", "baths"},
	"rent":            {"advertised_rent", "market_rent", "rent"},
	"deposit":         {"deposit", "security_deposit"},
	"description":     {"marketing_description", "description"},
	"title":           {"marketing_title", "title"},
	"youtube_url":     {"you_tube_url", "youtube_url"},
	"application_fee": {"application_fee"},
	"amenities":       {"unit_amenities", "amenities"},
	"appliances":      {"unit_appliances", "appliances"},
	"utilities":       {"unit_utilities", "utilities"},
	"billed_as":       {"billed_as"},
	"posted":          {"posted_to_internet"},
	"visibility":      {"visibility", "unit_visibility", "status"},
}

const (
	fallbackName = "Untitled Listing"
	fallbackSlug = "untitled"
	defaultCity  = "California"
	metaSnippet  = 100
)

func field(rec domain.SourceRecord, key string) string { return rec.Str(listingAliases[key]...) }

func number(rec domain.SourceRecord, key string) *float64 { return rec.Float(listingAliases[key]...) }

// Normalize maps one source record onto the destination row shape. It never
// fails: anything missing becomes an empty string or a null number.
// posted_to_internet is only carried for non-public tables.
func Normalize(rec domain.SourceRecord, public bool) domain.Row {
	address := field(rec, "address")
	propertyName := field(rec, "property_name")
	city := field(rec, "city")
	desc := field(rec, "description")

	name := address
	if name == "" {
		name = field(rec, "unit_name")
	}
	if name == "" {
		name = fallbackName
	}

	slugBase := address
	if slugBase == "" {
		slugBase = propertyName
	}

	row := domain.Row{
		Name:            name,
		Slug:            Slug(slugBase),
		PropertyName:    propertyName,
		Address:         address,
		City:            city,
		State:           field(rec, "state"),
		Zip:             field(rec, "zip"),
		Sqft:            number(rec, "sqft"),
		Bedrooms:        number(rec, "bedrooms"),
		Bathrooms:       number(rec, "bathrooms"),
		Rent:            number(rec, "rent"),
		Deposit:         field(rec, "deposit"),
		Description:     desc,
		Title:           field(rec, "title"),
		YouTubeURL:      field(rec, "youtube_url"),
		ApplicationFee:  number(rec, "application_fee"),
		Amenities:       field(rec, "amenities"),
		Appliances:      field(rec, "appliances"),
		Utilities:       field(rec, "utilities"),
		BilledAs:        field(rec, "billed_as"),
		MetaDescription: metaDescription(desc, city),
	}
	if !public {
		posted := "no"
		if IsPostable(rec) {
			posted = "yes"
		}
		row.PostedToInternet = &posted
	}
	return row
}

// IsActive reports whether the record's visibility is "active".
func IsActive(rec domain.SourceRecord) bool {
	return strings.EqualFold(field(rec, "visibility"), "active")
}

// IsPostable reports whether the record is flagged for internet posting.
func IsPostable(rec domain.SourceRecord) bool {
	return rec.Flag(listingAliases["posted"]...)
}

var (
	slugSeparators = regexp.MustCompile(`[\s/]+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes     = regexp.MustCompile(`-{2,}`)
)

// Slug derives a URL-safe identifier: lower-case, printable ASCII only,
// whitespace and slashes become single hyphens, no leading or trailing hyphen.
func Slug(base string) string {
	if strings.TrimSpace(base) == "" {
		base = fallbackSlug
	}
	s := strings.ToLower(base)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return -1
		}
		return r
	}, s)
	s = slugSeparators.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallbackSlug
	}
	return s
}

// AddressKey is the business key used to match listings across runs.
func AddressKey(address string) string {
	return strings.TrimSpace(cases.Fold().String(strings.TrimSpace(address)))
}

func metaDescription(desc, city string) string {
	if desc == "" && city == "" {
		return ""
	}
	if city == "" {
		city = defaultCity
	}
	snippet := desc
	if r := []rune(desc); len(r) > metaSnippet {
		snippet = string(r[:metaSnippet])
	}
	return strings.TrimSpace(fmt.Sprintf("Rental home in %s. %s", city, strings.TrimSpace(snippet)))
}
