package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// SessionHeader carries the session token on every authenticated request.
	SessionHeader   = "session-token"
	RequestIDHeader = "X-Request-ID"

	DBKey            = "db"
	EmailKey         = "email"
	SessionDigestKey = "session_digest"
	RequestIDKey     = "request_id"
)

// CORSMiddleware allows the portal UI origins. No origins means any origin,
// without credentials.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "X-Requested-With", "Authorization", SessionHeader, RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RequestID tags each request with an id, reusing a well-formed incoming X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// DatabaseMiddleware makes db available to handlers through GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the request's *gorm.DB, or nil when none was set.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(DBKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// GetEmail returns the email of the authenticated session owner.
func GetEmail(c *gin.Context) (string, bool) {
	email := c.GetString(EmailKey)
	return email, email != ""
}

// GetSessionDigest returns the digest of the request's session token.
func GetSessionDigest(c *gin.Context) (string, bool) {
	d := c.GetString(SessionDigestKey)
	return d, d != ""
}

var errSessionNotFound = errors.New("session not found or expired")

// ValidateSession requires a valid session-token header. The token signature
// is checked first; the session itself is then looked up in the in-process
// cache, Redis and finally the database. On success the owner email and
// token digest are stored in the context.
func ValidateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionHeader)
		if token == "" {
			rejectSession(c, "", errors.New("session token is required"))
			return
		}
		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: errors.New("db is nil"),
			})
			c.Abort()
			return
		}
		claims, err := util.ParseSessionToken(token)
		if err != nil {
			rejectSession(c, "", err)
			return
		}

		digest := util.TokenDigest(token)
		email, err := resolveSession(c, db, digest, claims)
		if err != nil {
			rejectSession(c, claims.Email, err)
			return
		}
		c.Set(EmailKey, email)
		c.Set(SessionDigestKey, digest)
		c.Next()
	}
}

func resolveSession(c *gin.Context, db *gorm.DB, digest string, claims *util.SessionClaims) (string, error) {
	expires := claims.ExpiresAt.Time

	if email, ok := util.SessionCacheGet(digest); ok && email == claims.Email {
		return email, nil
	}

	ctx := c.Request.Context()
	email, ok, err := util.LookupSession(ctx, digest)
	if err != nil {
		util.Logger().Warn().Err(err).Str("request_id", GetRequestID(c)).Msg("redis session lookup failed")
	}
	if ok && email == claims.Email {
		util.SessionCacheSet(digest, email, expires)
		return email, nil
	}

	session, err := model.FindActiveSession(db, digest, time.Now())
	if err != nil || session.Email != claims.Email {
		return "", errSessionNotFound
	}
	if session.ExpiresAt.Before(expires) {
		expires = session.ExpiresAt
	}
	util.SessionCacheSet(digest, session.Email, expires)
	if err := util.StoreSession(ctx, digest, session.Email, time.Until(expires)); err != nil {
		util.Logger().Warn().Err(err).Str("request_id", GetRequestID(c)).Msg("redis session store failed")
	}
	return session.Email, nil
}

func rejectSession(c *gin.Context, email string, err error) {
	util.LogUnauthorizedAccess(util.UnauthorizedAccessParams{
		RequestID: GetRequestID(c),
		Email:     email,
		IP:        c.ClientIP(),
		Resource:  c.Request.URL.Path,
		Reason:    err.Error(),
	})
	util.CallUserNotAuthorized(c, util.APIErrorParams{
		Msg: "Invalid or expired session",
		Err: err,
	})
	c.Abort()
}

// RequestLogger writes one diagnostic line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := util.Logger().Info()
		if status >= http.StatusInternalServerError {
			evt = util.Logger().Error()
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("remote_ip", c.ClientIP()).
			Msg("request")
	}
}
