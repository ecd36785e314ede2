package endpoint_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/ariebrainware/patient-portal/datasource"
	"github.com/ariebrainware/patient-portal/endpoint"
	"github.com/ariebrainware/patient-portal/inference"
	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const testEmail = "jane@example.com"

type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// requestParams groups HTTP request parameters to reduce function arguments
type requestParams struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
}

func doRequest(r http.Handler, params requestParams) *httptest.ResponseRecorder {
	req := httptest.NewRequest(params.method, params.path, bytes.NewBuffer(params.body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range params.headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// fakeDataAPI serves /api/{kind}/{id} from in-memory fixtures.
// Paths listed in fail answer with that status instead.
type fakeDataAPI struct {
	mu           sync.Mutex
	users        map[string]model.User
	locations    map[string]model.Location
	logs         map[string][]model.Log
	appointments map[string][]model.Appointment
	doctors      map[string]model.Doctor
	hospitals    map[string]model.Hospital
	categories   map[string]model.Category
	fail         map[string]int
	calls        map[string]int
}

func newFakeDataAPI() *fakeDataAPI {
	return &fakeDataAPI{
		users: map[string]model.User{
			testEmail: {ID: "u1", FirstName: "Jane", LastName: "Doe", Email: testEmail, DOB: "1990-04-12T00:00:00.000Z", LocationID: "loc1"},
		},
		locations: map[string]model.Location{
			"loc1": {ID: "loc1", City: "Amman", Street: "Rainbow St"},
		},
		logs: map[string][]model.Log{
			testEmail: {
				{ID: "l1", DoctorID: "d1", CategoryID: "c1", CreatedAt: "2024-05-01T09:30:00.000Z",
					Description: `[DoctorNote:"Patient stable"]{Bloodtest}HGB:"13.2"/WBC:"6.1"/]`},
				{ID: "l2", DoctorID: "d2", CategoryID: "c2", CreatedAt: "2024-06-02T10:00:00.000Z",
					Description: "routine visit"},
				{ID: "l3", DoctorID: "d1", CategoryID: "c1", CreatedAt: "2024-07-03T11:00:00.000Z",
					Description: `{"version":1,"doctor_note":"Iron low","blood_test":[{"parameter":"FER","value":"12"}]}`},
			},
		},
		appointments: map[string][]model.Appointment{
			testEmail: {
				{ID: "a1", DoctorID: "d2", Date: "2024-06-10T10:00:00.000Z", Description: "Follow-up"},
			},
		},
		doctors: map[string]model.Doctor{
			"d1": {ID: "d1", Email: "house@example.com", HospitalID: "h1"},
			"d2": {ID: "d2", Email: "grey@example.com", HospitalID: "h2"},
		},
		hospitals: map[string]model.Hospital{
			"h1": {ID: "h1", Name: "City Hospital"},
			"h2": {ID: "h2", Name: "Seattle Grace"},
		},
		categories: map[string]model.Category{
			"c1": {ID: "c1", Name: "Hematology"},
			"c2": {ID: "c2", Name: "Cardiology"},
		},
		fail:  map[string]int{},
		calls: map[string]int{},
	}
}

func (f *fakeDataAPI) failWith(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = status
}

func (f *fakeDataAPI) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeDataAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	w.Header().Set("Content-Type", "application/json")
	if status, ok := f.fail[r.URL.Path]; ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"injected failure"}`))
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/api/"), "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kind, id := parts[0], parts[1]

	var (
		v  interface{}
		ok bool
	)
	switch kind {
	case "users":
		v, ok = f.users[id]
	case "locations":
		v, ok = f.locations[id]
	case "logs":
		v, ok = f.logs[id]
	case "appointments":
		v, ok = f.appointments[id]
	case "doctors":
		v, ok = f.doctors[id]
	case "hospitals":
		v, ok = f.hospitals[id]
	case "categories":
		v, ok = f.categories[id]
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// inferenceJSON answers every upload with status and body.
func inferenceJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	data   *fakeDataAPI
	deps   *endpoint.Deps
}

// SetupTestServer wires the full router against an in-memory DB, a fake data
// API and the given inference handler. Tables and servers are cleaned up
// with the test.
func SetupTestServer(t *testing.T, infer http.Handler) *testServer {
	t.Helper()

	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}
	testModels := []interface{}{&model.Session{}, &model.SecurityLog{}, &model.Analysis{}}
	if err := db.AutoMigrate(testModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	data := newFakeDataAPI()
	dataSrv := httptest.NewServer(data)
	if infer == nil {
		infer = inferenceJSON(http.StatusOK, `{"uploaded_image_url":"/uploads/x.png","result":"not blood"}`)
	}
	inferSrv := httptest.NewServer(infer)

	deps := endpoint.NewDeps(
		datasource.NewClient(dataSrv.URL, 2*time.Second),
		inference.NewClient(inferSrv.URL, 2*time.Second),
		4,
		time.Hour,
	)
	router := endpoint.SetupRouter(config.LoadConfig(), db, deps)

	t.Cleanup(func() {
		dataSrv.Close()
		inferSrv.Close()
		if err := db.Migrator().DropTable(testModels...); err != nil {
			t.Errorf("failed to drop tables during cleanup: %v", err)
		}
	})
	return &testServer{router: router, db: db, data: data, deps: deps}
}

// LoginAs logs email in and returns the session token. It fails the test on error.
func LoginAs(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	b, _ := json.Marshal(map[string]string{"email": email})
	rr := doRequest(r, requestParams{method: http.MethodPost, path: "/login", body: b})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s returned non-200: %d %s", email, rr.Code, rr.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	resp := ParseAPIResp(t, rr)
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("parse login data failed: %v", err)
	}
	return data.Token
}

func authGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	return doRequest(r, requestParams{method: http.MethodGet, path: path, headers: map[string]string{"session-token": token}})
}

// ParseAPIResp decodes a standard API response from a ResponseRecorder.
// It fails the test on decoding error.
func ParseAPIResp(t *testing.T, rr *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// ParseData unmarshals the response data into out. It fails the test on error.
func ParseData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) apiResp {
	t.Helper()
	resp := ParseAPIResp(t, rr)
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("parse data failed: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

// uploadRequest posts data as the multipart field "file". An empty field
// name sends the form without a file.
func uploadRequest(r http.Handler, token, field, name string, data []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		fw, _ := mw.CreateFormFile(field, name)
		_, _ = fw.Write(data)
	} else {
		_ = mw.WriteField("note", "no file")
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/anemia/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("session-token", token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// unreachableData returns a data client whose server is already closed.
func unreachableData(t *testing.T) *datasource.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return datasource.NewClient(srv.URL, time.Second)
}

func sessionDigest(token string) string {
	return util.TokenDigest(token)
}
