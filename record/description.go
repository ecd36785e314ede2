package record

import (
	"encoding/json"
	"errors"
	"strings"
)

const (
	noteMarker      = `[DoctorNote:"`
	noteEnd         = `"]`
	bloodTestMarker = `{Bloodtest}`
	bloodTestEnd    = `]`

	// NoNoteText and NoBloodTestText are shown when a marker is absent.
	NoNoteText      = "No doctor notes available"
	NoBloodTestText = "No blood test results available"

	// DescriptionVersion is the current structured description version.
	DescriptionVersion = 1
)

// BloodTestResult is one parameter/value pair.
type BloodTestResult struct {
	Parameter string `json:"parameter" example:"HGB"`
	Value     string `json:"value" example:"13.2"`
}

// Description is the parsed form of a record description.
// @Description Parsed doctor note and blood test results
type Description struct {
	HasDoctorNote bool              `json:"has_doctor_note"`
	DoctorNote    string            `json:"doctor_note"`
	HasBloodTest  bool              `json:"has_blood_test"`
	BloodTest     []BloodTestResult `json:"blood_test"`
	// Structured is true when the description was a versioned JSON document.
	Structured bool `json:"structured"`
}

// NoteText is the doctor note, or NoNoteText when there is none.
func (d Description) NoteText() string {
	if !d.HasDoctorNote {
		return NoNoteText
	}
	return d.DoctorNote
}

// BloodTestMap indexes the blood test by parameter; a later duplicate wins.
func (d Description) BloodTestMap() map[string]string {
	m := make(map[string]string, len(d.BloodTest))
	for _, r := range d.BloodTest {
		m[r.Parameter] = r.Value
	}
	return m
}

type structuredDescription struct {
	Version    int               `json:"version"`
	DoctorNote *string           `json:"doctor_note,omitempty"`
	BloodTest  []BloodTestResult `json:"blood_test,omitempty"`
}

// ParseDescription extracts the doctor note and blood test from a
// description. Versioned JSON documents are decoded directly; anything else
// goes through the legacy marker format. It never fails.
func ParseDescription(s string) Description {
	if d, ok := parseStructured(s); ok {
		return d
	}
	return parseLegacy(s)
}

func parseStructured(s string) (Description, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return Description{}, false
	}
	var doc structuredDescription
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil || doc.Version != DescriptionVersion {
		return Description{}, false
	}
	d := Description{Structured: true, BloodTest: []BloodTestResult{}}
	if doc.DoctorNote != nil {
		d.HasDoctorNote, d.DoctorNote = true, *doc.DoctorNote
	}
	if doc.BloodTest != nil {
		d.HasBloodTest = true
		for _, r := range doc.BloodTest {
			if r.Parameter != "" {
				d.BloodTest = append(d.BloodTest, r)
			}
		}
	}
	return d, true
}

// parseLegacy reads ...[DoctorNote:"<text>"]...{Bloodtest}k:"v"/k:"v"/]...
// Values containing '"' or ':' do not survive this format.
func parseLegacy(s string) Description {
	d := Description{BloodTest: []BloodTestResult{}}

	if _, rest, ok := strings.Cut(s, noteMarker); ok {
		note, _, _ := strings.Cut(rest, noteEnd)
		d.HasDoctorNote, d.DoctorNote = true, note
	}

	if _, rest, ok := strings.Cut(s, bloodTestMarker); ok {
		d.HasBloodTest = true
		block, _, _ := strings.Cut(rest, bloodTestEnd)
		for _, entry := range strings.Split(block, "/") {
			param, value, ok := strings.Cut(entry, ":")
			if !ok {
				continue
			}
			d.BloodTest = append(d.BloodTest, BloodTestResult{
				Parameter: cleanToken(param),
				Value:     cleanToken(value),
			})
		}
	}
	return d
}

func cleanToken(s string) string {
	return strings.Trim(s, "\" \t\r\n")
}

var ErrEmptyParameter = errors.New("blood test parameter must not be empty")

// EncodeDescription renders a versioned JSON description. A nil note or an
// empty results slice is left out, so ParseDescription reports it absent.
func EncodeDescription(note *string, results []BloodTestResult) (string, error) {
	for _, r := range results {
		if strings.TrimSpace(r.Parameter) == "" {
			return "", ErrEmptyParameter
		}
	}
	b, err := json.Marshal(structuredDescription{
		Version:    DescriptionVersion,
		DoctorNote: note,
		BloodTest:  results,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
