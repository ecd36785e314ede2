package endpoint

import (
	"encoding/json"
	"net/http/httptest"
	"strings"

	"github.com/ariebrainware/patient-portal/middleware"
	"github.com/gin-gonic/gin"
)

// requestSpec drives a single handler without the full router.
type requestSpec struct {
	method       string
	registerPath string
	requestPath  string
	handler      gin.HandlerFunc
	body         string
	// email, when set, is placed in the context the way ValidateSession does.
	email string
}

// performRequest sends spec against r and decodes the JSON envelope, if any.
func performRequest(r *gin.Engine, spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	req := httptest.NewRequest(spec.method, spec.requestPath, strings.NewReader(spec.body))
	if spec.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.Len() == 0 {
		return w, nil, nil
	}
	var envelope map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &envelope)
	return w, envelope, err
}

// doRequestWithHandler registers spec.handler on r and performs one request.
// Call it once per engine; later calls would stack the session middleware.
func doRequestWithHandler(r *gin.Engine, spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	if spec.email != "" {
		email := spec.email
		r.Use(func(c *gin.Context) {
			c.Set(middleware.EmailKey, email)
			c.Set(middleware.SessionDigestKey, "digest-"+email)
			c.Next()
		})
	}
	r.Handle(spec.method, spec.registerPath, spec.handler)
	return performRequest(r, spec)
}
