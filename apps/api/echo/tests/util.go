package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/tests"
)

const pwd = "Tr1cky!Pass"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type app struct {
	*echoapi.Server
	env *testutil.Env
}

type option func(*echoapi.ServerDeps)

func setup(t *testing.T, opts ...option) *app {
	t.Helper()
	env := testutil.NewEnv(t)

	deps := echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		UserSvc:        env.Users,
		RoomSvc:        env.Rooms,
		TeacherSvc:     env.Teachers,
		CourseSvc:      env.Courses,
		TimetableSvc:   env.Timetables,
		StatsSvc:       env.Stats,
		DisableReqLogs: true,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	srv := echoapi.NewServer(deps)
	t.Cleanup(func() { _ = srv.Close() })
	return &app{Server: srv, env: env}
}

// fakeCounter counts hits in memory.
type fakeCounter struct {
	mu   sync.Mutex
	hits map[string]int64
}

func (fc *fakeCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.hits == nil {
		fc.hits = make(map[string]int64)
	}
	fc.hits[key]++
	return fc.hits[key], nil
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (a *app) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	a.ServeHTTP(rec, req)
	return rec
}

func (a *app) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			var body [][]byte
			if tt.body != nil {
				body = append(body, tt.body)
			}
			rec := a.do(method, tt.path, tt.token, body...)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, a *app, usr user.User) string {
	t.Helper()
	token, err := a.IssueToken(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallData(t *testing.T, obj interface{}) []byte {
	t.Helper()
	return marchallObj(t, map[string]interface{}{"data": obj})
}

// decodeData unmarshals the data envelope of rec into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env envelope
	decodeJSON(t, rec, &env)
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
