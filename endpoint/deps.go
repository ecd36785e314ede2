package endpoint

import (
	"context"
	"errors"
	"time"

	"github.com/ariebrainware/patient-portal/datasource"
	"github.com/ariebrainware/patient-portal/inference"
	"github.com/ariebrainware/patient-portal/middleware"
	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/record"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const depsKey = "portal_deps"

// DataSource is the part of the remote data service the handlers use.
// *datasource.Client satisfies it.
type DataSource interface {
	record.Lookup
	GetUser(ctx context.Context, email string) (model.User, error)
	GetLocation(ctx context.Context, id string) (model.Location, error)
	GetLogs(ctx context.Context, email string) ([]model.Log, error)
	GetAppointments(ctx context.Context, email string) ([]model.Appointment, error)
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Data       DataSource
	Enricher   *record.Enricher
	Views      *record.ViewCache
	Uploads    *inference.Registry
	SessionTTL time.Duration
}

// NewDeps wires the default collaborators around a data source and an uploader.
func NewDeps(data DataSource, uploader inference.Uploader, concurrency int, sessionTTL time.Duration) *Deps {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &Deps{
		Data:       data,
		Enricher:   record.NewEnricher(data, concurrency),
		Views:      record.NewViewCache(sessionTTL),
		Uploads:    inference.NewRegistry(uploader, sessionTTL),
		SessionTTL: sessionTTL,
	}
}

// DepsMiddleware makes deps available to handlers, the way DatabaseMiddleware does for the DB.
func DepsMiddleware(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(depsKey, deps)
		c.Next()
	}
}

func getDepsOrRespond(c *gin.Context) (*Deps, bool) {
	if v, ok := c.Get(depsKey); ok {
		if deps, ok := v.(*Deps); ok && deps != nil {
			return deps, true
		}
	}
	util.CallServerError(c, util.APIErrorParams{Msg: "Service not configured", Err: errors.New("deps are nil")})
	return nil, false
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: errors.New("db is nil")})
		return nil, false
	}
	return db, true
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

// sessionOwner returns the email and digest set by middleware.ValidateSession.
func sessionOwner(c *gin.Context) (email, digest string, ok bool) {
	email, ok = middleware.GetEmail(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid or expired session", Err: errors.New("no session in context")})
		return "", "", false
	}
	digest, _ = middleware.GetSessionDigest(c)
	return email, digest, true
}

// respondUpstreamError maps a remote service error onto the response envelope.
func respondUpstreamError(c *gin.Context, service, operation string, err error) {
	email, _ := middleware.GetEmail(c)
	params := util.APIErrorParams{Err: err}
	switch datasource.Classify(err) {
	case datasource.CategoryNotFound:
		params.Msg = "Not found"
		util.CallErrorNotFound(c, params)
		return
	case datasource.CategoryTransport:
		params.Msg = "Remote service unavailable"
		util.CallServiceUnavailable(c, params)
	default:
		params.Msg = "Remote service error"
		util.CallBadGateway(c, params)
	}
	util.LogUpstreamFailure(util.UpstreamFailureParams{
		RequestID: middleware.GetRequestID(c),
		Email:     email,
		IP:        c.ClientIP(),
		Service:   service,
		Operation: operation,
		Err:       err,
	})
}
