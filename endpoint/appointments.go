package endpoint

import (
	"github.com/ariebrainware/patient-portal/record"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
)

// AppointmentRow is one enriched appointment.
// @Description Appointment row
type AppointmentRow struct {
	record.EnrichedAppointment
	DateFormatted string `json:"date_formatted" example:"6/10/2024"`
}

// AppointmentListResponse is the appointments table.
// @Description Enriched appointments
type AppointmentListResponse struct {
	Appointments []AppointmentRow `json:"appointments"`
	Total        int              `json:"total" example:"2"`
	Failures     []record.Failure `json:"failures"`
}

// ListAppointments godoc
// @Summary      List appointments
// @Description  Load the patient's appointments with doctor email and hospital resolved
// @Tags         Appointments
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=AppointmentListResponse} "Appointments retrieved"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      502 {object} util.APIResponse "Remote service error"
// @Failure      503 {object} util.APIResponse "Remote service unavailable"
// @Router       /appointments [get]
func ListAppointments(c *gin.Context) {
	email, _, ok := sessionOwner(c)
	if !ok {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	appts, err := deps.Data.GetAppointments(ctx, email)
	if err != nil {
		respondUpstreamError(c, "data-api", "GET /api/appointments", err)
		return
	}
	enriched, failures := deps.Enricher.EnrichAppointments(ctx, appts)

	rows := make([]AppointmentRow, 0, len(enriched))
	for _, a := range enriched {
		rows = append(rows, AppointmentRow{EnrichedAppointment: a, DateFormatted: record.FormatDate(a.Date)})
	}
	if failures == nil {
		failures = []record.Failure{}
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: AppointmentListResponse{Appointments: rows, Total: len(rows), Failures: failures},
	})
}
