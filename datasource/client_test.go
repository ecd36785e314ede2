package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second), srv
}

func TestGetUser(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/jane@example.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"_id":"u1","f_name":"Jane","l_name":"Doe","email":"jane@example.com","location_id":"loc1"}`))
	})

	u, err := client.GetUser(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Jane Doe", u.FullName())
	assert.Equal(t, "loc1", u.LocationID)
}

func TestGetUserNullBodyIsNotFound(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})

	_, err := client.GetUser(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CategoryNotFound, Classify(err))
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category Category
		message  string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"error":"no such doctor"}`, category: CategoryNotFound, message: "no such doctor"},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"boom"}`, category: CategoryUpstream, message: "boom"},
		{name: "plain text", status: http.StatusBadGateway, body: "bad gateway", category: CategoryUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.GetDoctor(context.Background(), "d1")
			var se *StatusError
			assert.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.Code)
			assert.Equal(t, tt.message, se.Message)
			assert.Equal(t, tt.category, Classify(err))
		})
	}
}

func TestMalformedBody(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_id":`))
	})
	_, err := client.GetHospital(context.Background(), "h1")
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Equal(t, CategoryMalformed, Classify(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(srv.URL, time.Second)
	srv.Close()

	_, err := client.GetLocation(context.Background(), "loc1")
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, CategoryTransport, Classify(err))
}

func TestContextCancellation(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUser(ctx, "jane@example.com")
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestLogsNotFoundIsEmpty(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	logs, err := client.GetLogs(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	assert.Empty(t, logs)

	appts, err := client.GetAppointments(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	assert.Empty(t, appts)
}

func TestGetLogsPreservesOrder(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logs/jane@example.com", r.URL.Path)
		w.Write([]byte(`[{"_id":"l2","doctor_id":"d1"},{"_id":"l1","doctor_id":"d2"}]`))
	})

	logs, err := client.GetLogs(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	if assert.Len(t, logs, 2) {
		assert.Equal(t, "l2", logs[0].ID)
		assert.Equal(t, "l1", logs[1].ID)
	}
}

func TestLookupCache(t *testing.T) {
	var hits int32
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"_id":"c1","cname":"Hematology"}`))
	})

	for i := 0; i < 3; i++ {
		cat, err := client.GetCategory(context.Background(), "c1")
		assert.NoError(t, err)
		assert.Equal(t, "Hematology", cat.Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	client.FlushLookups()
	_, err := client.GetCategory(context.Background(), "c1")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestLookupCacheSkipsFailures(t *testing.T) {
	var hits int32
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"_id":"d1","doctor_email":"dr@example.com","hospital_id":"h1"}`))
	})

	_, err := client.GetDoctor(context.Background(), "d1")
	assert.Error(t, err)

	d, err := client.GetDoctor(context.Background(), "d1")
	assert.NoError(t, err)
	assert.Equal(t, "dr@example.com", d.Email)
}

func TestLookupCacheDisabled(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"_id":"h1","name":"City"}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second, WithLookupCacheTTL(0))

	client.GetHospital(context.Background(), "h1")
	client.GetHospital(context.Background(), "h1")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPathEscaping(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appointments/a%2Fb@example.com", r.URL.EscapedPath())
		w.Write([]byte(`[]`))
	})
	_, err := client.GetAppointments(context.Background(), "a/b@example.com")
	assert.NoError(t, err)
}
