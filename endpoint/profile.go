package endpoint

import (
	"github.com/ariebrainware/patient-portal/middleware"
	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/record"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
)

// ProfileResponse is the signed-in patient with their address.
// @Description Patient profile with resolved location
type ProfileResponse struct {
	model.User
	FullName     string          `json:"full_name" example:"Jane Doe"`
	DOBFormatted string          `json:"dob_formatted" example:"4/12/1990"`
	Location     *model.Location `json:"location,omitempty"`
	// LocationError is set when the address could not be loaded.
	LocationError string `json:"location_error,omitempty"`
}

// GetProfile godoc
// @Summary      Get the patient profile
// @Description  Load the signed-in patient and their address from the remote data service
// @Tags         Profile
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=ProfileResponse} "Profile retrieved"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      502 {object} util.APIResponse "Remote service error"
// @Failure      503 {object} util.APIResponse "Remote service unavailable"
// @Router       /profile [get]
func GetProfile(c *gin.Context) {
	email, _, ok := sessionOwner(c)
	if !ok {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := deps.Data.GetUser(ctx, email)
	if err != nil {
		respondUpstreamError(c, "data-api", "GET /api/users", err)
		return
	}

	resp := ProfileResponse{
		User:         user,
		FullName:     user.FullName(),
		DOBFormatted: record.FormatDate(user.DOB),
	}
	// The address is decoration; the profile is still served without it.
	if user.LocationID != "" {
		loc, err := deps.Data.GetLocation(ctx, user.LocationID)
		if err != nil {
			resp.LocationError = err.Error()
			util.Logger().Warn().Err(err).
				Str("request_id", middleware.GetRequestID(c)).
				Str("location_id", user.LocationID).
				Msg("location lookup failed")
		} else {
			resp.Location = &loc
		}
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile retrieved", Data: resp})
}
