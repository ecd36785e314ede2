package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/patient-portal/datasource"
	"github.com/ariebrainware/patient-portal/middleware"
	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email string `json:"email" binding:"required,email" example:"jane@example.com"`
}

type LoginResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Email     string    `json:"email" example:"jane@example.com"`
	Name      string    `json:"name" example:"Jane Doe"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login godoc
// @Summary      Start a portal session
// @Description  Look the patient up in the remote data service and open a session for them
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Patient email"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Unknown patient"
// @Failure      429 {object} util.APIResponse "Too many attempts"
// @Failure      502 {object} util.APIResponse "Remote service error"
// @Failure      503 {object} util.APIResponse "Remote service unavailable"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	email := util.NormalizeEmail(req.Email)
	lp := util.LoginParams{
		RequestID: middleware.GetRequestID(c),
		Email:     email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	user, err := deps.Data.GetUser(c.Request.Context(), email)
	if errors.Is(err, datasource.ErrNotFound) {
		lp.Reason = "unknown patient"
		util.LogLoginFailure(lp)
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "No patient is registered with this email", Err: err})
		return
	}
	if err != nil {
		lp.Reason = "remote lookup failed"
		util.LogLoginFailure(lp)
		respondUpstreamError(c, "data-api", "GET /api/users", err)
		return
	}

	token, expires, err := util.IssueSessionToken(email, deps.SessionTTL)
	if err != nil {
		lp.Reason = "token generation failed"
		util.LogLoginFailure(lp)
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}
	digest := util.TokenDigest(token)
	session := model.Session{
		TokenDigest: digest,
		Email:       email,
		ExpiresAt:   expires,
		ClientIP:    lp.IP,
		Browser:     lp.UserAgent,
	}
	if err := db.Create(&session).Error; err != nil {
		lp.Reason = "session creation failed"
		util.LogLoginFailure(lp)
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return
	}
	util.SessionCacheSet(digest, email, expires)
	if err := util.StoreSession(c.Request.Context(), digest, email, deps.SessionTTL); err != nil {
		util.Logger().Warn().Err(err).Str("request_id", lp.RequestID).Msg("redis session store failed")
	}

	if err := middleware.ResetRateLimit(c.Request.Context(), lp.IP, c.Request.URL.Path); err != nil && !errors.Is(err, middleware.ErrRateLimitUnavailable) {
		util.Logger().Warn().Err(err).Str("request_id", lp.RequestID).Msg("login rate limit reset failed")
	}

	util.LogLoginSuccess(lp)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Login successful",
		Data: LoginResponse{
			Token:     token,
			Email:     email,
			Name:      user.FullName(),
			ExpiresAt: expires,
		},
	})
}

// Logout godoc
// @Summary      End the current session
// @Description  Revoke the session token and forget the session's cached views
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      500 {object} util.APIResponse "Server error"
// @Param        all query bool false "End every session of the user"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	email, digest, ok := sessionOwner(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	digests := []string{digest}
	ended := 1
	if c.Query("all") == "true" {
		revoked, err := model.DeleteUserSessions(db, email)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to end sessions", Err: err})
			return
		}
		digests = append(digests, revoked...)
		ended = len(revoked)
		if err := util.InvalidateUserSessions(c.Request.Context(), email); err != nil {
			util.Logger().Warn().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("redis session invalidation failed")
		}
	} else {
		if _, err := model.DeleteSession(db, digest); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to end session", Err: err})
			return
		}
		if err := util.RemoveSession(c.Request.Context(), email, digest); err != nil {
			util.Logger().Warn().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("redis session removal failed")
		}
	}

	var deps *Deps
	if v, ok := c.Get(depsKey); ok {
		deps, _ = v.(*Deps)
	}
	for _, d := range digests {
		util.SessionCacheDelete(d)
		if deps != nil {
			deps.Views.Invalidate(d)
			deps.Uploads.Drop(d)
		}
	}

	util.LogLogout(util.LoginParams{
		RequestID: middleware.GetRequestID(c),
		Email:     email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Logout successful",
		Data: map[string]interface{}{"sessions_ended": ended},
	})
}

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Validate if the session token is valid and not expired
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=model.Session} "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	_, digest, ok := sessionOwner(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	session, err := model.FindActiveSession(db, digest, time.Now())
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session not found",
			Err: fmt.Errorf("session lookup: %w", err),
		})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Valid session token", Data: session})
}
