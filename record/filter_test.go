package record

import (
	"testing"

	"github.com/ariebrainware/patient-portal/model"
	"github.com/stretchr/testify/assert"
)

func readyCollection() Collection {
	return Collection{
		Records: []EnrichedLog{
			{Log: model.Log{ID: "l1", CategoryID: "c1"}, DoctorEmail: "House@Example.com", Hospital: "Princeton Plainsboro"},
			{Log: model.Log{ID: "l2", CategoryID: "c2"}, DoctorEmail: "wilson@example.com", Hospital: "Mercy General"},
			{Log: model.Log{ID: "l3", CategoryID: "gone"}},
		},
		CategoryNames:      map[string]string{"c1": "Hematology", "c2": "Cardiology"},
		Enriched:           true,
		CategoriesResolved: true,
	}
}

func ids(records []EnrichedLog) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	c := readyCollection()
	tests := []struct {
		name  string
		field Field
		term  string
		want  []string
	}{
		{name: "category case insensitive", field: FieldCategory, term: "HEMA", want: []string{"l1"}},
		{name: "unknown category fallback", field: FieldCategory, term: "unknown", want: []string{"l3"}},
		{name: "hospital substring", field: FieldHospital, term: "mercy", want: []string{"l2"}},
		{name: "doctor email", field: FieldDoctor, term: "house@", want: []string{"l1"}},
		{name: "empty term matches all", field: FieldHospital, term: "", want: []string{"l1", "l2", "l3"}},
		{name: "missing values never match a term", field: FieldDoctor, term: "@", want: []string{"l1", "l2"}},
		{name: "no match", field: FieldCategory, term: "oncology", want: []string{}},
		{name: "unknown field", field: Field("date"), term: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(c, tt.field, tt.term)))
		})
	}
}

func TestFilterEmptyUntilReady(t *testing.T) {
	c := readyCollection()
	c.CategoriesResolved = false
	assert.Empty(t, Filter(c, FieldHospital, ""))
	assert.NotNil(t, Filter(c, FieldHospital, ""))

	c = readyCollection()
	c.Enriched = false
	assert.Empty(t, Filter(c, FieldCategory, ""))
}

func TestFilterDoesNotMutate(t *testing.T) {
	c := readyCollection()
	Filter(c, FieldCategory, "hema")
	assert.Len(t, c.Records, 3)
	assert.Equal(t, "l1", c.Records[0].ID)
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Hospital ")
	assert.NoError(t, err)
	assert.Equal(t, FieldHospital, f)

	f, err = ParseField("")
	assert.NoError(t, err)
	assert.Equal(t, FieldCategory, f)

	_, err = ParseField("date")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestCollectionFind(t *testing.T) {
	c := readyCollection()
	r, ok := c.Find("l2")
	assert.True(t, ok)
	assert.Equal(t, "Mercy General", r.Hospital)

	_, ok = c.Find("missing")
	assert.False(t, ok)
}
