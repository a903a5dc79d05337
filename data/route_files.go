package data

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hostcontract/host-contract-tests/framework/harness"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// RouteFile is the format of the files in data-files/routes.
//
//	name: redirects
//	routes:
//	  /ping: {body: pong}
//	  /redirect-cross-site: {redirect: /redirected}
//	  /redirected: {file: pages/report-load.html, delayMillis: 50}
type RouteFile struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Routes      map[string]RouteSpec `json:"routes"`
}

// RouteSpec describes one route. Exactly one of Body, HTML, JavaScript, JSON, File, Redirect,
// RedirectSameHost, or WebSocket may be set; if none is, the route answers with Status and an
// empty body.
type RouteSpec struct {
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers"`
	DelayMillis int               `json:"delayMillis"`

	Body             string        `json:"body"`
	HTML             string        `json:"html"`
	JavaScript       string        `json:"javascript"`
	JSON             ldvalue.Value `json:"json"`
	File             string        `json:"file"`
	Redirect         string        `json:"redirect"`
	RedirectSameHost string        `json:"redirectSameHost"`

	// WebSocket is "echo", or "greeting" to send Greeting once and then wait.
	WebSocket string `json:"websocket"`
	Greeting  string `json:"greeting"`
}

// NamedRouteTable is a route table loaded from a data file. Parameterized files produce one
// NamedRouteTable per parameter set, each with the parameters in its Name.
type NamedRouteTable struct {
	Name        string
	Description string
	Params      map[string]ldvalue.Value
	Routes      harness.RouteTable
}

// ToRoute converts the declaration into a harness route. File paths are looked up in FixtureFiles.
func (s RouteSpec) ToRoute() (harness.Route, error) {
	var kinds []string
	var route harness.Route
	if s.Body != "" {
		kinds, route = append(kinds, "body"), harness.Literal(s.Body)
	}
	if s.HTML != "" {
		kinds, route = append(kinds, "html"), harness.HTML(s.HTML)
	}
	if s.JavaScript != "" {
		kinds, route = append(kinds, "javascript"), harness.JavaScript(s.JavaScript)
	}
	if !s.JSON.IsNull() {
		kinds, route = append(kinds, "json"), harness.JSON(s.JSON)
	}
	if s.File != "" {
		kinds, route = append(kinds, "file"), harness.FileFromFS(FixtureFiles(), s.File)
	}
	if s.Redirect != "" {
		kinds, route = append(kinds, "redirect"), harness.Redirect(s.Redirect)
	}
	if s.RedirectSameHost != "" {
		kinds, route = append(kinds, "redirectSameHost"), harness.RedirectSameHost(s.RedirectSameHost)
	}
	if s.WebSocket != "" {
		kinds = append(kinds, "websocket")
		switch s.WebSocket {
		case "echo":
			route = harness.WebSocketEcho()
		case "greeting":
			route = harness.WebSocketGreeting(s.Greeting)
		default:
			return harness.Route{}, fmt.Errorf("unknown websocket behavior %q", s.WebSocket)
		}
	}
	switch len(kinds) {
	case 0:
		route = harness.Status(http.StatusOK)
	case 1:
	default:
		return harness.Route{}, fmt.Errorf("route has more than one kind of response: %s", strings.Join(kinds, ", "))
	}

	if s.Status != 0 {
		route = route.WithStatus(s.Status)
	}
	for name, value := range s.Headers {
		route = route.WithHeader(name, value)
	}
	if s.DelayMillis > 0 {
		route = route.WithDelay(time.Duration(s.DelayMillis) * time.Millisecond)
	}
	return route, nil
}

// ToRouteTable converts every route in the file. The table is also checked with Validate.
func (f RouteFile) ToRouteTable() (harness.RouteTable, error) {
	table := make(harness.RouteTable, len(f.Routes))
	var errs []error
	for routePath, rs := range f.Routes {
		route, err := rs.ToRoute()
		if err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", routePath, err))
			continue
		}
		table[routePath] = route
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadRouteTables reads every file in data-files/routes.
func LoadRouteTables() ([]NamedRouteTable, error) {
	sources, err := LoadAllDataFiles(routeTableDir)
	if err != nil {
		return nil, err
	}
	return routeTablesFromSources(sources)
}

// LoadRouteTableVariants reads one file in data-files/routes, such as "redirects.yaml". A
// parameterized file produces more than one table.
func LoadRouteTableVariants(fileName string) ([]NamedRouteTable, error) {
	sources, err := LoadDataFile(routeTableDir + "/" + fileName)
	if err != nil {
		return nil, err
	}
	return routeTablesFromSources(sources)
}

// LoadRouteTable is LoadRouteTableVariants for a file that is not parameterized.
func LoadRouteTable(fileName string) (NamedRouteTable, error) {
	tables, err := LoadRouteTableVariants(fileName)
	if err != nil {
		return NamedRouteTable{}, err
	}
	if len(tables) != 1 {
		return NamedRouteTable{}, fmt.Errorf("expected one route table in %q but it has %d variants", fileName, len(tables))
	}
	return tables[0], nil
}

func routeTablesFromSources(sources []SourceInfo) ([]NamedRouteTable, error) {
	ret := make([]NamedRouteTable, 0, len(sources))
	for _, source := range sources {
		var file RouteFile
		if err := source.ParseInto(&file); err != nil {
			return nil, err
		}
		table, err := file.ToRouteTable()
		if err != nil {
			return nil, fmt.Errorf("invalid route table in %q %s: %w", source.BaseName, source.ParamsString(), err)
		}
		name := file.Name
		if name == "" {
			name = strings.TrimSuffix(source.BaseName, path.Ext(source.BaseName))
		}
		if p := source.ParamsString(); p != "" {
			name += " " + p
		}
		ret = append(ret, NamedRouteTable{
			Name:        name,
			Description: file.Description,
			Params:      source.Params,
			Routes:      table,
		})
	}
	return ret, nil
}
