package harness

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsGoodTable(t *testing.T) {
	assert.NoError(t, basicRoutes().Validate())
	assert.NoError(t, RouteTable{}.Validate())
}

func TestValidateRejectsBadTables(t *testing.T) {
	for name, routes := range map[string]RouteTable{
		"no leading slash":      {"ping": Literal("pong")},
		"query in path":         {"/ping?x=1": Literal("pong")},
		"mux variable":          {"/{id}": Literal("pong")},
		"redirect out of table": {"/a": Redirect("/b")},
		"missing file":          {"/f": File(filepath.Join(t.TempDir(), "nope.html"))},
		"unencodable JSON":      {"/j": JSON(map[string]interface{}{"f": func() {}})},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, routes.Validate())
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	err := RouteTable{
		"a":  Literal(""),
		"/b": Redirect("/c"),
	}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"/c"`)
}

func TestJSONRouteErrorNamesPath(t *testing.T) {
	err := RouteTable{"/data.json": JSON(make(chan int))}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"/data.json"`)
	assert.Contains(t, err.Error(), "cannot encode JSON body")

	assert.NoError(t, RouteTable{"/data.json": JSON(map[string]int{"a": 1})}.Validate())
}

func TestEventStreamsAreListedOnce(t *testing.T) {
	a := NewEventStream(nil)
	b := NewEventStream(nil)
	defer a.Close()
	defer b.Close()
	rt := RouteTable{"/a": EventStreamRoute(a), "/a2": EventStreamRoute(a), "/b": EventStreamRoute(b), "/x": Literal("")}
	assert.Equal(t, []*EventStream{a, b}, rt.eventStreams())
}

func TestRouteTableWithCopies(t *testing.T) {
	base := RouteTable{"/a": Literal("a")}
	extended := base.With("/b", Literal("b"))
	assert.Equal(t, []string{"/a"}, base.Paths())
	assert.Equal(t, []string{"/a", "/b"}, extended.Paths())
	assert.Equal(t, []string{"/x"}, RouteTable(nil).With("/x", Literal("x")).Paths())
}

func TestRouteAccessors(t *testing.T) {
	r := Redirect("/target").WithDelay(time.Second)
	assert.Equal(t, "/target", r.RedirectTarget())
	assert.Equal(t, time.Second, r.Delay())
	assert.Equal(t, "", Literal("x").RedirectTarget())
}

func TestWithHeaderDoesNotModifyOriginal(t *testing.T) {
	original := Literal("x").WithHeader("A", "1")
	_ = original.WithHeader("B", "2")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	RouteTable{"/x": original}.Handler("app://host", nil).ServeHTTP(rr, req)
	assert.Equal(t, "1", rr.Header().Get("A"))
	assert.Equal(t, "", rr.Header().Get("B"))
}

func TestHandlerServesTableWithoutListener(t *testing.T) {
	handler := RouteTable{
		"/index.html": HTML("<p>hi</p>"),
		"/old":        Redirect("/index.html"),
	}.Handler("app://bundle/", nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<p>hi</p>", rr.Body.String())

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/old", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "app://bundle/index.html", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "", rr.Body.String())
}

func TestHandlerRoute(t *testing.T) {
	s := startServer(t, RouteTable{
		"/echo-method": Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.Method))
		})),
	})
	_, body := getResponse(t, nil, s.URL()+"/echo-method")
	assert.Equal(t, "GET", body)
}
