package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// captureSecurityLog redirects the security logger into a buffer for the test.
func captureSecurityLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := util.GetSecurityLoggerForTest()
	util.SetSecurityLoggerForTest(log.New(&buf, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix))
	t.Cleanup(func() { util.SetSecurityLoggerForTest(original) })
	return &buf
}

func newLoggedRouter(email string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(EndpointCallLogger())
	r.Use(func(c *gin.Context) {
		if email != "" {
			c.Set(EmailKey, email)
		}
		c.Next()
	})
	r.GET("/records/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.POST("/anemia/upload", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"state": "success"})
	})
	return r
}

func TestEndpointCallLogger(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		method string
		target string
		status int
		want   []string
	}{
		{
			name: "records with session", email: "jane@example.com",
			method: http.MethodGet, target: "/records/l1?field=doctor", status: http.StatusOK,
			want: []string{"Event=ENDPOINT_CALL", "Email=jane@example.com", "GET /records/l1 -> 200", "UserAgent=PortalTest/1.0"},
		},
		{
			name:   "anonymous",
			method: http.MethodGet, target: "/records/l1", status: http.StatusOK,
			want: []string{"Email= ", "IP=192.168.1.100"},
		},
		{
			name: "not found", email: "jane@example.com",
			method: http.MethodGet, target: "/records/missing", status: http.StatusNotFound,
			want: []string{"GET /records/missing -> 404"},
		},
		{
			name: "upload", email: "jane@example.com",
			method: http.MethodPost, target: "/anemia/upload", status: http.StatusCreated,
			want: []string{"POST /anemia/upload -> 201", "DetailsCount=6"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureSecurityLog(t)
			r := newLoggedRouter(tt.email)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(""))
			req.RemoteAddr = "192.168.1.100:1234"
			req.Header.Set("User-Agent", "PortalTest/1.0")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			out := buf.String()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			assert.Contains(t, out, "RequestID="+w.Header().Get(RequestIDHeader))
		})
	}
}

func TestEndpointCallLogger_Persists(t *testing.T) {
	captureSecurityLog(t)
	dsn := fmt.Sprintf("file:endpoint_logger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.SecurityLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	util.SetSecurityLoggerDB(db)
	t.Cleanup(func() { util.SetSecurityLoggerDB(nil) })

	r := newLoggedRouter("jane@example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records/l9?q=hema", nil))

	logs, err := model.ListSecurityLogs(db, "jane@example.com", string(util.EventEndpointCall), 0)
	assert.NoError(t, err)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, w.Header().Get(RequestIDHeader), logs[0].RequestID)
		var details map[string]interface{}
		assert.NoError(t, json.Unmarshal(logs[0].Details, &details))
		assert.Equal(t, "/records/:id", details["path"])
		assert.Equal(t, "q=hema", details["query"])
		assert.EqualValues(t, http.StatusOK, details["status"])
	}
}
