package mockhost

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hostcontract/host-contract-tests/framework"

	"github.com/gorilla/mux"
)

// callbackService is the common routing for requests that the host test service POSTs to the
// harness. Each path decodes a JSON body and answers with a JSON value or a 500 error.
type callbackService struct {
	router *mux.Router
	logger framework.Logger
	name   string
}

func newCallbackService(logger framework.Logger, name string) *callbackService {
	if logger == nil {
		logger = framework.NullLogger()
	}
	c := &callbackService{router: mux.NewRouter(), logger: logger, name: name}
	c.router.HandleFunc("/", c.close).Methods(http.MethodDelete)
	return c
}

func (c *callbackService) addPath(path string, handler func(*json.Decoder) (interface{}, error)) {
	c.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
		}
		c.logger.Printf("[%s] got %s %s %s", c.name, r.Method, path, string(body))

		responseValue, err := handler(json.NewDecoder(bytes.NewReader(body)))
		if err != nil {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			c.logger.Printf("[%s] responded with 500 - %s", c.name, err)
			return
		}
		var respBody []byte
		if responseValue != nil {
			respBody, _ = json.Marshal(responseValue)
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(respBody)
		c.logger.Printf("[%s] responded with 200 %s", c.name, string(respBody))
	}).Methods(http.MethodPost)
}

func (c *callbackService) close(w http.ResponseWriter, r *http.Request) {
	c.logger.Printf("[%s] got DELETE - closing fixture", c.name)
	w.WriteHeader(http.StatusNoContent)
}

func (c *callbackService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}
