package record

import (
	"errors"
	"strings"
)

const (
	// UnknownCategory is what the filter matches a missing category name against.
	UnknownCategory = "Unknown Category"
	// UnknownCategoryLabel is the display fallback for a missing category name.
	UnknownCategoryLabel = "Unknown"
)

// Field selects which resolved value Filter matches against.
type Field string

const (
	FieldCategory Field = "category"
	FieldHospital Field = "hospital"
	FieldDoctor   Field = "doctor"
)

var ErrUnknownField = errors.New("field must be one of category, hospital, doctor")

// ParseField accepts a Field name case-insensitively. Empty means category.
func ParseField(raw string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FieldCategory, nil
	case FieldCategory, FieldHospital, FieldDoctor:
		return f, nil
	}
	return "", ErrUnknownField
}

// Collection is a user's enriched records and the category names resolved for them.
type Collection struct {
	Records            []EnrichedLog     `json:"records"`
	CategoryNames      map[string]string `json:"category_names"`
	Enriched           bool              `json:"-"`
	CategoriesResolved bool              `json:"-"`
}

// Ready reports whether both enrichment and category resolution finished.
func (c Collection) Ready() bool {
	return c.Enriched && c.CategoriesResolved
}

// CategoryLabel is the display name for a category id.
func (c Collection) CategoryLabel(id string) string {
	if name, ok := c.CategoryNames[id]; ok && name != "" {
		return name
	}
	return UnknownCategoryLabel
}

// Find returns the record with the given id.
func (c Collection) Find(id string) (EnrichedLog, bool) {
	for _, r := range c.Records {
		if r.ID == id {
			return r, true
		}
	}
	return EnrichedLog{}, false
}

// Filter returns the records whose field value contains term, ignoring case.
// The result is empty (never nil) until c is Ready. An empty term matches
// every record; an unknown field matches none.
func Filter(c Collection, field Field, term string) []EnrichedLog {
	out := []EnrichedLog{}
	if !c.Ready() {
		return out
	}
	switch field {
	case FieldCategory, FieldHospital, FieldDoctor:
	default:
		return out
	}
	needle := strings.ToLower(term)
	for _, r := range c.Records {
		if strings.Contains(strings.ToLower(fieldValue(c, r, field)), needle) {
			out = append(out, r)
		}
	}
	return out
}

func fieldValue(c Collection, r EnrichedLog, field Field) string {
	switch field {
	case FieldCategory:
		if name, ok := c.CategoryNames[r.CategoryID]; ok && name != "" {
			return name
		}
		return UnknownCategory
	case FieldHospital:
		return r.Hospital
	case FieldDoctor:
		return r.DoctorEmail
	}
	return ""
}
