package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a nullable numeric value.
//
// Decoding never fails: JSON null, the {} sentinel used for NaN, non-finite numbers and
// anything not parsable as a number all collapse to null.
type Value struct {
	Float float64
	Valid bool
}

// Num builds a non-null [Value].
func Num(v float64) Value {
	return Value{Float: v, Valid: true}
}

// Null is the null [Value].
var Null = Value{} //nolint:gochecknoglobals // immutable sentinel

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return !v.Valid
}

// UnmarshalJSON implements [json.Unmarshaler].
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Null

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil //nolint:nilerr // invalid numeric values collapse to null
	}

	switch n := raw.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		*v = Num(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		*v = Num(f)
	}

	return nil
}

// MarshalJSON implements [json.Marshaler].
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(v.Float)
}

// String renders the value with the default one-decimal format, or "null".
func (v Value) String() string {
	if !v.Valid {
		return "null"
	}

	return strconv.FormatFloat(v.Float, 'f', 1, 64)
}

// Flag is a boolean tolerant to its string encodings ("true", "false").
type Flag bool

// UnmarshalJSON implements [json.Unmarshaler].
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flag: %w", err)
	}

	switch b := raw.(type) {
	case bool:
		*f = Flag(b)
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			*f = false

			return nil
		}
		*f = Flag(parsed)
	case float64:
		*f = b != 0
	default:
		*f = false
	}

	return nil
}

// Key identifies a point along the x-axis: either a date or a category name.
type Key struct {
	Name string
	Date time.Time
}

// CategoryKey builds a named key.
func CategoryKey(name string) Key {
	return Key{Name: name}
}

// DateKey builds a date key.
func DateKey(d time.Time) Key {
	return Key{Name: d.Format(time.DateOnly), Date: d.UTC()}
}

// IsDate reports whether the key holds a date.
func (k Key) IsDate() bool {
	return !k.Date.IsZero()
}

// Ident is the identity of the key: two keys with the same identity designate the same column.
func (k Key) Ident() string {
	if k.IsDate() {
		return k.Date.Format(time.RFC3339)
	}

	return k.Name
}

// Less orders date keys chronologically and other keys by name.
func (k Key) Less(other Key) bool {
	if k.IsDate() && other.IsDate() {
		return k.Date.Before(other.Date)
	}

	return k.Name < other.Name
}

func (k Key) String() string {
	return k.Name
}

// UnmarshalJSON implements [json.Unmarshaler].
func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		// numeric or other literal keys are category names
		k.Name = string(data)
		k.Date = time.Time{}

		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("key: %w", err)
	}

	*k = ParseKey(name)

	return nil
}

// ParseKey builds a key from its string form: a date key when the string parses as a date,
// a category key otherwise.
func ParseKey(s string) Key {
	if d, err := ParseDate(s); err == nil {
		return Key{Name: s, Date: d}
	}

	return CategoryKey(s)
}

// MarshalJSON implements [json.Marshaler].
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Name)
}

var dateLayouts = []string{
	time.DateOnly,
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	time.DateTime,
}

// ParseDate parses ISO 8601 dates and date-times, with or without a zone offset.
//
// Dates without an offset are interpreted as UTC.
func ParseDate(in string) (time.Time, error) {
	in = strings.TrimSpace(in)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, in); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date: %q", in)
}

func parseOptionalDate(in string) (time.Time, bool) {
	if in == "" {
		return time.Time{}, false
	}

	t, err := ParseDate(in)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// Entry is a chart within a report, identified by its UID.
type Entry struct {
	UID   string
	Chart ChartDescriptor
}

// Report is an ordered list of report charts.
//
// It decodes either from an object keyed by UID (order of appearance is retained) or from
// an array of [uid, descriptor] pairs, as served by batched report requests.
type Report []Entry

// UnmarshalJSON implements [json.Unmarshaler].
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("report: expected an object or an array, got %v", tok)
	}

	entries := make(Report, 0)

	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			uid, _ := keyTok.(string)

			var chart ChartDescriptor
			if err := dec.Decode(&chart); err != nil {
				return fmt.Errorf("report chart %q: %w", uid, err)
			}
			entries = append(entries, Entry{UID: uid, Chart: chart})
		}
	case '[':
		for dec.More() {
			var pair []json.RawMessage
			if err := dec.Decode(&pair); err != nil {
				return fmt.Errorf("report: %w", err)
			}
			if len(pair) != 2 {
				return fmt.Errorf("report: expected [uid, chart] pairs, got %d items", len(pair))
			}

			var entry Entry
			if err := json.Unmarshal(pair[0], &entry.UID); err != nil {
				return fmt.Errorf("report uid: %w", err)
			}
			if err := json.Unmarshal(pair[1], &entry.Chart); err != nil {
				return fmt.Errorf("report chart %q: %w", entry.UID, err)
			}
			entries = append(entries, entry)
		}
	default:
		return fmt.Errorf("report: unexpected delimiter %v", delim)
	}

	*r = entries

	return nil
}
