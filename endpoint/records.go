package endpoint

import (
	"context"
	"errors"

	"github.com/ariebrainware/patient-portal/record"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
)

// RecordSummary is one row of the records table.
// @Description Medical record row
type RecordSummary struct {
	record.EnrichedLog
	Category    string `json:"category" example:"Hematology"`
	CreatedDate string `json:"created_date" example:"5/1/2024"`
}

// RecordListResponse is the filtered record table.
// @Description Filtered medical records
type RecordListResponse struct {
	Records    []RecordSummary  `json:"records"`
	Total      int              `json:"total" example:"12"`
	Matched    int              `json:"matched" example:"3"`
	Field      record.Field     `json:"field" example:"category"`
	Query      string           `json:"query" example:"hema"`
	Generation uint64           `json:"generation" example:"7"`
	Stale      bool             `json:"stale" example:"false"`
	Failures   []record.Failure `json:"failures"`
}

// RecordDetailResponse is one record with its parsed description.
// @Description Medical record detail
type RecordDetailResponse struct {
	RecordSummary
	Parsed          record.Description `json:"parsed"`
	DoctorNoteText  string             `json:"doctor_note_text" example:"Patient stable"`
	BloodTestText   string             `json:"blood_test_text,omitempty" example:"No blood test results available"`
	BloodTestValues map[string]string  `json:"blood_test_values"`
}

func summarize(c record.Collection, r record.EnrichedLog) RecordSummary {
	return RecordSummary{
		EnrichedLog: r,
		Category:    c.CategoryLabel(r.CategoryID),
		CreatedDate: record.FormatDate(r.CreatedAt),
	}
}

// loadRecords fetches and enriches the session user's records, then commits
// them to the view cache under a fresh generation. When a newer load already
// committed, that newer view is returned with kept=false.
func loadRecords(ctx context.Context, deps *Deps, email, digest string) (view record.View, failures []record.Failure, kept bool, err error) {
	gen := deps.Views.Begin()
	logs, err := deps.Data.GetLogs(ctx, email)
	if err != nil {
		return record.View{}, nil, false, err
	}
	coll, failures := deps.Enricher.Load(ctx, logs)
	if err := ctx.Err(); err != nil {
		return record.View{}, nil, false, err
	}
	view, kept = deps.Views.Commit(digest, gen, coll)
	if !kept {
		failures = nil
	}
	return view, failures, kept, nil
}

// ListRecords godoc
// @Summary      List medical records
// @Description  Load the patient's records, resolve doctor, hospital and category, and filter them
// @Tags         Records
// @Produce      json
// @Security     SessionToken
// @Param        field query string false "Filter field: category|hospital|doctor (default category)"
// @Param        q query string false "Case-insensitive substring to match"
// @Success      200 {object} util.APIResponse{data=RecordListResponse} "Records retrieved"
// @Failure      400 {object} util.APIResponse "Unknown filter field"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      502 {object} util.APIResponse "Remote service error"
// @Failure      503 {object} util.APIResponse "Remote service unavailable"
// @Router       /records [get]
func ListRecords(c *gin.Context) {
	field, err := record.ParseField(c.Query("field"))
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid filter field", Err: err})
		return
	}
	email, digest, ok := sessionOwner(c)
	if !ok {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}

	view, failures, kept, err := loadRecords(c.Request.Context(), deps, email, digest)
	if err != nil {
		respondUpstreamError(c, "data-api", "GET /api/logs", err)
		return
	}

	term := c.Query("q")
	matched := record.Filter(view.Collection, field, term)
	rows := make([]RecordSummary, 0, len(matched))
	for _, r := range matched {
		rows = append(rows, summarize(view.Collection, r))
	}
	if failures == nil {
		failures = []record.Failure{}
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Records retrieved",
		Data: RecordListResponse{
			Records:    rows,
			Total:      len(view.Collection.Records),
			Matched:    len(rows),
			Field:      field,
			Query:      term,
			Generation: view.Generation,
			Stale:      !kept,
			Failures:   failures,
		},
	})
}

var errRecordNotFound = errors.New("record not found")

// GetRecord godoc
// @Summary      Get a medical record
// @Description  Return one record with its doctor note and blood test parsed out of the description
// @Tags         Records
// @Produce      json
// @Security     SessionToken
// @Param        id path string true "Record ID"
// @Success      200 {object} util.APIResponse{data=RecordDetailResponse} "Record retrieved"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      404 {object} util.APIResponse "Record not found"
// @Failure      502 {object} util.APIResponse "Remote service error"
// @Failure      503 {object} util.APIResponse "Remote service unavailable"
// @Router       /records/{id} [get]
func GetRecord(c *gin.Context) {
	email, digest, ok := sessionOwner(c)
	if !ok {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}
	id := c.Param("id")

	view, cached := deps.Views.Get(digest)
	r, found := view.Collection.Find(id)
	if !cached || !found {
		var err error
		view, _, _, err = loadRecords(c.Request.Context(), deps, email, digest)
		if err != nil {
			respondUpstreamError(c, "data-api", "GET /api/logs", err)
			return
		}
		r, found = view.Collection.Find(id)
	}
	if !found {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Record not found", Err: errRecordNotFound})
		return
	}

	parsed := record.ParseDescription(r.Description)
	detail := RecordDetailResponse{
		RecordSummary:   summarize(view.Collection, r),
		Parsed:          parsed,
		DoctorNoteText:  parsed.NoteText(),
		BloodTestValues: parsed.BloodTestMap(),
	}
	if !parsed.HasBloodTest {
		detail.BloodTestText = record.NoBloodTestText
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Record retrieved", Data: detail})
}
