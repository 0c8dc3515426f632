package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	emailsvc "github.com/trezcool/academia/services/email"
	metricsvc "github.com/trezcool/academia/services/metrics"
	"github.com/trezcool/academia/storage/remote/inmem"
	"github.com/trezcool/academia/tests"
)

const (
	operatorEmail = "ana@uni.edu"
	operatorPwd   = "secreto1"
)

type testApp struct {
	db      *inmem.DB
	server  *echoapi.Server
	session *session.Adapter
	hub     *chat.Hub
}

type appOption func(*inmem.Options, *echoapi.Backend)

func withTables(tables map[string][]string) appOption {
	return func(o *inmem.Options, _ *echoapi.Backend) { o.Tables = tables }
}

func withAvatars(avatars student.AvatarStore) appOption {
	return func(_ *inmem.Options, b *echoapi.Backend) { b.Avatars = avatars }
}

func setup(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	dbOpts := inmem.Options{
		AppName:         "academia-test",
		SecretKey:       testutil.SecretKey,
		TokenExpiration: time.Hour,
		HashCost:        bcrypt.MinCost,
	}
	backend := echoapi.Backend{Mail: emailsvc.NewOutbox(), Location: time.UTC}
	for _, opt := range opts {
		opt(&dbOpts, &backend)
	}

	db := inmem.Open(dbOpts)
	t.Cleanup(func() { _ = db.Close() })
	testutil.SignUp(t, db, operatorEmail, operatorPwd)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	adapter := session.NewAdapter(db.Auth(), session.MemoryStore(), nil)
	t.Cleanup(func() { _ = adapter.Close() })
	select {
	case <-adapter.Start(ctx):
	case <-time.After(5 * time.Second):
		t.Fatal("session adapter did not start")
	}

	hub := chat.NewHub(core.NopLogger())
	go hub.Run(ctx)

	metrics := metricsvc.NewRemoteCalls("academia")
	backend.Remote = db
	backend.Session = adapter
	backend.Hub = hub
	backend.Metrics = metrics.Handler()
	backend.CrudOpts = []crud.Option{crud.WithObserver(metrics)}

	conf := &core.Config{
		AppName:  "Academia",
		Build:    "test",
		TestMode: true,
		Server:   core.ServerConfig{DisableReqLogs: true},
	}
	srv := echoapi.NewServer(echoapi.NewServerDeps(conf, core.NopLogger(), backend))
	return &testApp{db: db, server: srv, session: adapter, hub: hub}
}

// signIn signs the operator in through the API.
func (app *testApp) signIn(t *testing.T) {
	t.Helper()
	rec := app.do(newRequest(http.MethodPost, "/auth/login", marshalObj(t, echoapi.SignInRequest{
		Correo: operatorEmail, Password: operatorPwd,
	})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(tt.method, tt.path, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

// checkCodeAndData compares the status and, when wantData is set, the JSON body.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
