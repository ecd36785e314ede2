package endpoint

import (
	"strconv"

	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityResponse is the session user's own security history.
// @Description Account activity
type ActivityResponse struct {
	Events []model.SecurityLog `json:"events"`
}

// ListActivity godoc
// @Summary      Account activity
// @Description  List the security events recorded for the session user (logins, logouts, analyses), newest first
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Param        type query string false "Only events of this type, e.g. LOGIN_SUCCESS"
// @Param        limit query int false "Maximum number of events (default 50, max 200)"
// @Success      200 {object} util.APIResponse{data=ActivityResponse} "Activity retrieved"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /account/activity [get]
func ListActivity(c *gin.Context) {
	email, _, ok := sessionOwner(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	events, err := model.ListSecurityLogs(db, email, c.Query("type"), limit)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve activity", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Activity retrieved", Data: ActivityResponse{Events: events}})
}
