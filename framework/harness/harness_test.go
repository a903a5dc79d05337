package harness

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHostService is a minimal host test service: it reports its status, creates windows, and
// records the commands sent to them.
type fakeHostService struct {
	commands []string
	deleted  []string
	stopped  bool
	lock     sync.Mutex
}

func (f *fakeHostService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()
	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"fake-host","version":"1.0","capabilities":["window-open","websocket"]}`))
	case r.URL.Path == "/" && r.Method == http.MethodDelete:
		f.stopped = true
	case r.URL.Path == "/" && r.Method == http.MethodPost:
		w.Header().Set("Location", "/windows/1")
		w.WriteHeader(http.StatusCreated)
	case r.URL.Path == "/windows/1" && r.Method == http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		f.commands = append(f.commands, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Fixture"}`))
	case r.URL.Path == "/windows/1" && r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, r.URL.Path)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newHarnessForService(t *testing.T, serviceURL string) *TestHarness {
	t.Helper()
	h, err := NewTestHarness(TestHarnessConfig{
		ServiceURL:         serviceURL,
		StatusQueryTimeout: time.Second,
		DebugLogger:        framework.NullLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHarnessQueriesServiceInfo(t *testing.T) {
	service := &fakeHostService{}
	httphelpers.WithServer(service, func(server *httptest.Server) {
		h := newHarnessForService(t, server.URL)

		info := h.TestServiceInfo()
		assert.Equal(t, "fake-host", info.Name)
		assert.Equal(t, "1.0", info.Version)
		assert.True(t, info.Capabilities.Has("websocket"))
		assert.False(t, info.Capabilities.Has("custom-schemes"))
		assert.Contains(t, string(info.FullData), "fake-host")
	})
}

func TestHarnessCallbackEndpointIsReachable(t *testing.T) {
	service := &fakeHostService{}
	httphelpers.WithServer(service, func(server *httptest.Server) {
		h := newHarnessForService(t, server.URL)
		assert.NotZero(t, h.CallbackPort())

		e := h.NewCallbackEndpoint(httphelpers.HandlerWithStatus(http.StatusAccepted), nil)
		defer e.Close()
		assert.True(t, strings.HasPrefix(e.BaseURL(), "http://localhost:"))

		resp, err := http.Post(e.BaseURL()+"/event", "application/json", strings.NewReader(`{"kind":"load"}`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		req := e.RequireRequest(t, time.Second)
		assert.Equal(t, "/event", req.URL.Path)
		assert.Equal(t, `{"kind":"load"}`, string(req.Body))
	})
}

func TestHarnessFailsIfServiceIsUnavailable(t *testing.T) {
	handler := httphelpers.HandlerWithStatus(http.StatusServiceUnavailable)
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := NewTestHarness(TestHarnessConfig{ServiceURL: server.URL, StatusQueryTimeout: time.Second})
		require.Error(t, err)
		assert.True(t, IsSetupError(err, ServiceError), "unexpected error: %s", err)
	})
}

func TestHarnessTimesOutIfServiceIsNotListening(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	url := server.URL
	server.Close()

	_, err := NewTestHarness(TestHarnessConfig{ServiceURL: url, StatusQueryTimeout: time.Millisecond * 200})
	require.Error(t, err)
	assert.True(t, IsSetupError(err, ServiceError), "unexpected error: %s", err)
}

func TestHarnessFailsIfCallbackPortIsTaken(t *testing.T) {
	service := &fakeHostService{}
	httphelpers.WithServer(service, func(server *httptest.Server) {
		h := newHarnessForService(t, server.URL)
		_, err := NewTestHarness(TestHarnessConfig{ServiceURL: server.URL, CallbackPort: h.CallbackPort()})
		require.Error(t, err)
		assert.True(t, IsSetupError(err, BindError), "unexpected error: %s", err)
	})
}

func TestHarnessEntityCommands(t *testing.T) {
	service := &fakeHostService{}
	httphelpers.WithServer(service, func(server *httptest.Server) {
		h := newHarnessForService(t, server.URL)

		entity, err := h.NewTestServiceEntity(map[string]string{"tag": "w1"}, "window", nil)
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/windows/1", entity.ResourceURL())

		var resp struct {
			Title string `json:"title"`
		}
		require.NoError(t, entity.SendCommand("getPageInfo", nil, &resp))
		assert.Equal(t, "Fixture", resp.Title)

		require.NoError(t, entity.Close())

		service.lock.Lock()
		defer service.lock.Unlock()
		require.Len(t, service.commands, 1)
		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(service.commands[0]), &sent))
		assert.Equal(t, "getPageInfo", sent["command"])
		assert.Equal(t, []string{"/windows/1"}, service.deleted)
	})
}

func TestHarnessEntityCreationFailureIsSetupError(t *testing.T) {
	statusHandler := httphelpers.HandlerWithResponse(200, nil, []byte(`{"name":"x"}`))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			statusHandler.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		h := newHarnessForService(t, server.URL)
		_, err := h.NewTestServiceEntity(map[string]string{}, "window", nil)
		require.Error(t, err)
		assert.True(t, IsSetupError(err, EntityError), "unexpected error: %s", err)
	})
}

func TestHarnessStopService(t *testing.T) {
	service := &fakeHostService{}
	httphelpers.WithServer(service, func(server *httptest.Server) {
		h := newHarnessForService(t, server.URL)
		require.NoError(t, h.StopService())

		service.lock.Lock()
		defer service.lock.Unlock()
		assert.True(t, service.stopped)
	})
}

func TestHarnessFixtureServerUsesConfiguredAliasHost(t *testing.T) {
	service := &fakeHostService{}
	httphelpers.WithServer(service, func(server *httptest.Server) {
		h, err := NewTestHarness(TestHarnessConfig{
			ServiceURL:       server.URL,
			FixtureAliasHost: "fixture.test",
		})
		require.NoError(t, err)
		defer h.Close()

		s, err := h.NewFixtureServer(basicRoutes(), nil)
		require.NoError(t, err)
		defer s.Close()
		assert.True(t, strings.HasPrefix(s.AliasURL(), "http://fixture.test:"))
		assert.True(t, strings.HasPrefix(s.URL(), "http://127.0.0.1:"))
	})
}
