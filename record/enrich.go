package record

import (
	"context"

	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Lookup resolves the ids a record references. *datasource.Client satisfies it.
type Lookup interface {
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	GetHospital(ctx context.Context, id string) (model.Hospital, error)
	GetCategory(ctx context.Context, id string) (model.Category, error)
}

// Affiliation is the resolved doctor email and hospital name for one doctor id.
type Affiliation struct {
	DoctorEmail string
	Hospital    string
	Err         error
}

// Failure is one lookup that could not be resolved.
type Failure struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Err  error  `json:"-"`
	// Reason is Err rendered for JSON output.
	Reason string `json:"reason"`
}

func newFailure(kind, id string, err error) Failure {
	return Failure{Kind: kind, ID: id, Err: err, Reason: err.Error()}
}

// EnrichedLog is a Log plus its resolved doctor and hospital.
// @Description Medical record with resolved doctor and hospital
type EnrichedLog struct {
	model.Log
	DoctorEmail  string `json:"doctor_email" example:"dr.house@example.com"`
	Hospital     string `json:"hospital" example:"City Hospital"`
	ResolveError string `json:"resolve_error,omitempty"`
}

// EnrichedAppointment is an Appointment plus its resolved doctor and hospital.
// @Description Appointment with resolved doctor and hospital
type EnrichedAppointment struct {
	model.Appointment
	DoctorEmail  string `json:"doctor_email" example:"dr.house@example.com"`
	Hospital     string `json:"hospital" example:"City Hospital"`
	ResolveError string `json:"resolve_error,omitempty"`
}

// Enricher joins records against doctor, hospital and category lookups.
type Enricher struct {
	lookup      Lookup
	concurrency int
}

// NewEnricher bounds concurrent lookups to concurrency (8 when <= 0).
func NewEnricher(lookup Lookup, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Enricher{lookup: lookup, concurrency: concurrency}
}

// ResolveAffiliations resolves each distinct doctor id once. Every id in the
// result has an entry; ids whose lookups failed carry Err. A failed hospital
// lookup keeps the doctor email that already resolved.
// Empty ids are skipped.
func (e *Enricher) ResolveAffiliations(ctx context.Context, doctorIDs []string) (map[string]Affiliation, []Failure) {
	ids := distinct(doctorIDs)
	results := make([]Affiliation, len(ids))
	failures := make([]*Failure, len(ids))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			doctor, err := e.lookup.GetDoctor(ctx, id)
			if err != nil {
				f := newFailure("doctor", id, err)
				failures[i], results[i] = &f, Affiliation{Err: err}
				return nil
			}
			results[i].DoctorEmail = doctor.Email
			if doctor.HospitalID == "" {
				return nil
			}
			hospital, err := e.lookup.GetHospital(ctx, doctor.HospitalID)
			if err != nil {
				f := newFailure("hospital", doctor.HospitalID, err)
				failures[i], results[i].Err = &f, err
				return nil
			}
			results[i].Hospital = hospital.Name
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Affiliation, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, collect(failures)
}

// EnrichLogs returns one EnrichedLog per input log, in input order.
// A failed lookup only affects the logs of that doctor.
func (e *Enricher) EnrichLogs(ctx context.Context, logs []model.Log) ([]EnrichedLog, []Failure) {
	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.DoctorID
	}
	aff, failures := e.ResolveAffiliations(ctx, ids)

	out := make([]EnrichedLog, len(logs))
	for i, l := range logs {
		a := aff[l.DoctorID]
		out[i] = EnrichedLog{Log: l, DoctorEmail: a.DoctorEmail, Hospital: a.Hospital}
		if a.Err != nil {
			out[i].ResolveError = a.Err.Error()
		}
	}
	logFailures(ctx, "logs", failures)
	return out, failures
}

// EnrichAppointments is EnrichLogs for appointments.
func (e *Enricher) EnrichAppointments(ctx context.Context, appts []model.Appointment) ([]EnrichedAppointment, []Failure) {
	ids := make([]string, len(appts))
	for i, a := range appts {
		ids[i] = a.DoctorID
	}
	aff, failures := e.ResolveAffiliations(ctx, ids)

	out := make([]EnrichedAppointment, len(appts))
	for i, appt := range appts {
		a := aff[appt.DoctorID]
		out[i] = EnrichedAppointment{Appointment: appt, DoctorEmail: a.DoctorEmail, Hospital: a.Hospital}
		if a.Err != nil {
			out[i].ResolveError = a.Err.Error()
		}
	}
	logFailures(ctx, "appointments", failures)
	return out, failures
}

// ResolveCategories maps each distinct category id to its name. Ids that
// failed to resolve are absent from the map and reported as failures.
func (e *Enricher) ResolveCategories(ctx context.Context, records []EnrichedLog) (map[string]string, []Failure) {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.CategoryID
	}
	ids = distinct(ids)
	names := make([]*string, len(ids))
	failures := make([]*Failure, len(ids))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			cat, err := e.lookup.GetCategory(ctx, id)
			if err != nil {
				f := newFailure("category", id, err)
				failures[i] = &f
				return nil
			}
			names[i] = &cat.Name
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(ids))
	for i, id := range ids {
		if names[i] != nil {
			out[id] = *names[i]
		}
	}
	fs := collect(failures)
	logFailures(ctx, "categories", fs)
	return out, fs
}

// Load builds a ready Collection: enrichment first, then category resolution.
func (e *Enricher) Load(ctx context.Context, logs []model.Log) (Collection, []Failure) {
	records, failures := e.EnrichLogs(ctx, logs)
	names, catFailures := e.ResolveCategories(ctx, records)
	return Collection{
		Records:            records,
		CategoryNames:      names,
		Enriched:           true,
		CategoriesResolved: true,
	}, append(failures, catFailures...)
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func collect(in []*Failure) []Failure {
	var out []Failure
	for _, f := range in {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func logFailures(ctx context.Context, batch string, failures []Failure) {
	if len(failures) == 0 {
		return
	}
	evt := util.Logger().Warn().Str("batch", batch).Int("failures", len(failures))
	if ctx.Err() != nil {
		evt = evt.Bool("canceled", true)
	}
	for _, f := range failures {
		evt = evt.Str(f.Kind+":"+f.ID, f.Reason)
	}
	evt.Msg("record lookups failed")
}
