// Package columns maps the headers of an input table onto the logical fields
// the analysis needs. Numeric code never sees raw header labels.
package columns

import (
	"fmt"
	"strings"
)

type Field string

const (
	Capacity  Field = "capacity"
	Current   Field = "current"
	Pressure  Field = "pressure"
	Voltage   Field = "voltage"
	Timestamp Field = "timestamp"
	StepType  Field = "step_type"
)

// Required fields must resolve or the dataset is rejected.
var Required = []Field{Capacity, Current, Pressure}

// Optional fields are resolved when present.
var Optional = []Field{Voltage, Timestamp, StepType}

type rule struct {
	keywords []string
	exclude  []string
}

var rules = map[Field]rule{
	Capacity:  {keywords: []string{"capacity", "cap"}},
	Current:   {keywords: []string{"current", "curr"}},
	Pressure:  {keywords: []string{"pressure"}, exclude: []string{"time", "date"}},
	Voltage:   {keywords: []string{"voltage", "volt"}},
	Timestamp: {keywords: []string{"time", "date"}, exclude: []string{"step time"}},
	StepType:  {keywords: []string{"step type", "step_type", "steptype"}},
}

// Column is a resolved header: its position and its label as found in the source.
type Column struct {
	Index int
	Name  string
}

// Mapping is the result of resolution: logical field → source column.
type Mapping map[Field]Column

func (m Mapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Index returns the column index for f, or -1.
func (m Mapping) Index(f Field) int {
	c, ok := m[f]
	if !ok {
		return -1
	}
	return c.Index
}

// Names returns field → header label, for reporting.
func (m Mapping) Names() map[string]string {
	out := make(map[string]string, len(m))
	for f, c := range m {
		out[string(f)] = c.Name
	}
	return out
}

// MissingColumnError reports a required field that no header matched.
type MissingColumnError struct {
	Field     Field
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("could not find %s column; available columns: [%s]", e.Field, strings.Join(e.Available, ", "))
}

// Resolve maps headers to fields. Overrides (field → exact header, case
// insensitive) win over keyword matching; otherwise the first header, in
// column order, containing any keyword of the field is used. A column is
// never assigned to two fields.
func Resolve(headers []string, overrides map[Field]string) (Mapping, error) {
	clean := make([]string, len(headers))
	for i, h := range headers {
		clean[i] = strings.TrimSpace(h)
	}

	m := Mapping{}
	used := map[int]bool{}

	fields := append(append([]Field{}, Required...), Optional...)
	for _, f := range fields {
		want := strings.TrimSpace(overrides[f])
		if want == "" {
			continue
		}
		for i, h := range clean {
			if strings.EqualFold(h, want) {
				m[f] = Column{Index: i, Name: h}
				used[i] = true
				break
			}
		}
		if !m.Has(f) {
			return nil, &MissingColumnError{Field: f, Available: clean}
		}
	}

	for _, f := range fields {
		if m.Has(f) {
			continue
		}
		if i := match(clean, rules[f], used); i >= 0 {
			m[f] = Column{Index: i, Name: clean[i]}
			used[i] = true
		}
	}

	for _, f := range Required {
		if !m.Has(f) {
			return nil, &MissingColumnError{Field: f, Available: clean}
		}
	}
	return m, nil
}

func match(headers []string, r rule, used map[int]bool) int {
	for i, h := range headers {
		if used[i] {
			continue
		}
		lower := strings.ToLower(h)
		if containsAny(lower, r.exclude) {
			continue
		}
		if containsAny(lower, r.keywords) {
			return i
		}
	}
	return -1
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ParseField accepts the field names used in config files and query strings.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rules[f]; !ok {
		return "", fmt.Errorf("unknown column field: %q", s)
	}
	return f, nil
}
