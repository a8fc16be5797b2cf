package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SourceRecord is one listing as delivered by the source report. Values may be
// missing, null, or typed inconsistently between rows, so every read goes
// through the accessors below.
type SourceRecord map[string]any

// Raw returns the first non-nil value among keys. Keys may be dot paths into
// nested objects ("address.city").
func (r SourceRecord) Raw(keys ...string) any {
	for _, k := range keys {
		if v := lookup(r, k); v != nil {
			return v
		}
	}
	return nil
}

// Str returns the first non-blank value among keys rendered as a trimmed string.
func (r SourceRecord) Str(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(stringify(lookup(r, k))); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the first present value among keys parsed as a number.
// A present value that is not numeric yields nil, never NaN.
func (r SourceRecord) Float(keys ...string) *float64 {
	for _, k := range keys {
		v := lookup(r, k)
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return toFloat(v)
	}
	return nil
}

// Flag reports whether the first present value among keys is boolean true or
// the string "yes" in any case.
func (r SourceRecord) Flag(keys ...string) bool {
	switch v := r.Raw(keys...).(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "yes")
	}
	return false
}

func lookup(m map[string]any, path string) any {
	if v, ok := m[path]; ok {
		return v
	}
	if !strings.Contains(path, ".") {
		return nil
	}
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = obj[part]; !ok {
			return nil
		}
	}
	return cur
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		// nested objects are read through dot paths, never as text
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s := strings.TrimSpace(stringify(it)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(t))
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Row is the canonical destination row derived from one SourceRecord.
type Row struct {
	Name            string
	Slug            string
	PropertyName    string
	Address         string
	City            string
	State           string
	Zip             string
	Sqft            *float64
	Bedrooms        *float64
	Bathrooms       *float64
	Rent            *float64
	Deposit         string
	Description     string
	Title           string
	YouTubeURL      string
	ApplicationFee  *float64
	Amenities       string
	Appliances      string
	Utilities       string
	BilledAs        string
	MetaDescription string

	// PostedToInternet is "yes" or "no"; nil for public-facing tables.
	PostedToInternet *string
}

// Values renders the row as the destination's column map. Absent numbers are
// sent as JSON null.
func (r Row) Values() map[string]any {
	v := map[string]any{
		"name":             r.Name,
		"slug":             r.Slug,
		"property_name":    r.PropertyName,
		"address":          r.Address,
		"city":             r.City,
		"state":            r.State,
		"zip":              r.Zip,
		"sqft":             num(r.Sqft),
		"bedrooms":         num(r.Bedrooms),
		"bathrooms":        num(r.Bathrooms),
		"rent":             num(r.Rent),
		"deposit":          r.Deposit,
		"description":      r.Description,
		"title":            r.Title,
		"youtube_url":      r.YouTubeURL,
		"application_fee":  num(r.ApplicationFee),
		"amenities":        r.Amenities,
		"appliances":       r.Appliances,
		"utilities":        r.Utilities,
		"billed_as":        r.BilledAs,
		"meta_description": r.MetaDescription,
	}
	if r.PostedToInternet != nil {
		v["posted_to_internet"] = *r.PostedToInternet
	}
	return v
}

func num(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// ValueString renders a destination cell value for comparison.
func ValueString(v any) string { return stringify(v) }
