package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/helpers"
)

// TestServiceInfo is status information returned by the host test service from the initial status
// query.
type TestServiceInfo struct {
	TestServiceInfoBase

	// FullData is the entire response received from the service, which might contain additional
	// properties beyond TestServiceInfoBase.
	FullData []byte
}

// TestServiceInfoBase is the basic set of properties that all host test services must provide.
type TestServiceInfoBase struct {
	// Name is the name of the host application being tested, such as "electron".
	Name string `json:"name"`

	// Version is the host application's version string, if it reports one.
	Version string `json:"version,omitempty"`

	// Capabilities is a list of strings representing optional features of the host.
	Capabilities framework.Capabilities `json:"capabilities"`
}

// TestServiceEntity represents a window that we have asked the host test service to create.
type TestServiceEntity struct {
	resourceURL string
	logger      framework.Logger
}

func queryTestServiceInfo(url string, timeout time.Duration, output io.Writer) (TestServiceInfo, error) {
	fmt.Fprintf(output, "Connecting to host test service at %s", url)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var resp *http.Response
	var lastErr error
	pollErr := helpers.Poll(ctx, time.Millisecond*100, func(ctx context.Context) bool {
		fmt.Fprintf(output, ".")
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, lastErr = http.DefaultClient.Do(req)
		return lastErr == nil
	})
	fmt.Fprintln(output)
	if pollErr != nil {
		if lastErr == nil {
			lastErr = pollErr
		}
		return TestServiceInfo{}, newSetupError(ServiceError, lastErr, "timed out connecting to %s", url)
	}

	respData, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return TestServiceInfo{}, newSetupError(ServiceError, nil,
			"host test service returned status code %d", resp.StatusCode)
	}
	if readErr != nil {
		return TestServiceInfo{}, newSetupError(ServiceError, readErr, "could not read status response")
	}
	return parseTestServiceInfo(respData, output)
}

func parseTestServiceInfo(data []byte, output io.Writer) (TestServiceInfo, error) {
	if len(data) == 0 {
		fmt.Fprintln(output, "Status query successful, but service provided no metadata")
		return TestServiceInfo{}, nil
	}
	fmt.Fprintf(output, "Status query returned metadata: %s\n", string(data))
	var base TestServiceInfoBase
	if err := json.Unmarshal(data, &base); err != nil {
		return TestServiceInfo{}, newSetupError(ServiceError, err,
			"malformed status response from host test service: %s", string(data))
	}
	return TestServiceInfo{TestServiceInfoBase: base, FullData: data}, nil
}

// StopService tells the host test service that it should exit.
func (h *TestHarness) StopService() error {
	_, _, err := doRequest(context.Background(), http.MethodDelete, h.config.ServiceURL, nil)
	var statusErr *serviceStatusError
	if errors.As(err, &statusErr) {
		return err
	}
	// It's normal for the request to fail with an I/O error if the service quit before responding
	return nil
}

// NewTestServiceEntity asks the host test service to create a window, based on the parameters we
// provide. The window is assumed to remain open inside the service until we explicitly close it.
//
// This low-level method simply calls json.Marshal on entityParams; the parameter types are in the
// servicedef package.
func (h *TestHarness) NewTestServiceEntity(
	entityParams interface{},
	description string,
	logger framework.Logger,
) (*TestServiceEntity, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}

	data, err := json.Marshal(entityParams)
	if err != nil {
		return nil, newSetupError(EntityError, err, "could not encode parameters for %s", description)
	}

	logger.Printf("Creating test service entity (%s) with parameters: %s", description, string(data))
	_, headers, err := doRequest(context.Background(), http.MethodPost, h.config.ServiceURL, data)
	if err != nil {
		return nil, newSetupError(EntityError, err, "host test service could not create %s", description)
	}
	resourceURL := headers.Get("Location")
	if resourceURL == "" {
		return nil, newSetupError(EntityError, nil,
			"host test service did not return a Location header with a resource URL for %s", description)
	}
	if !strings.HasPrefix(resourceURL, "http:") && !strings.HasPrefix(resourceURL, "https:") {
		resourceURL = strings.TrimSuffix(h.config.ServiceURL, "/") + "/" + strings.TrimPrefix(resourceURL, "/")
	}

	return &TestServiceEntity{
		resourceURL: resourceURL,
		logger:      logger,
	}, nil
}

// ResourceURL returns the URL the host test service gave for the entity.
func (e *TestServiceEntity) ResourceURL() string { return e.resourceURL }

// Close tells the host test service to dispose of this entity.
func (e *TestServiceEntity) Close() error {
	e.logger.Printf("Closing %s", e.resourceURL)
	_, _, err := doRequest(context.Background(), http.MethodDelete, e.resourceURL, nil)
	if err != nil {
		e.logger.Printf("DELETE request to host test service failed: %s", err)
	}
	return err
}

// SendCommand sends a command with no parameters to the entity.
func (e *TestServiceEntity) SendCommand(
	command string,
	logger framework.Logger,
	responseOut interface{},
) error {
	return e.SendCommandWithParams(
		map[string]interface{}{"command": command},
		logger,
		responseOut,
	)
}

// SendCommandWithParams sends a command to the entity. If responseOut is not nil, the response
// body is decoded into it.
func (e *TestServiceEntity) SendCommandWithParams(
	allParams interface{},
	logger framework.Logger,
	responseOut interface{},
) error {
	if logger == nil {
		logger = e.logger
	}
	data, err := json.Marshal(allParams)
	if err != nil {
		return err
	}
	logger.Printf("Sending command: %s", string(data))
	body, _, err := doRequest(context.Background(), http.MethodPost, e.resourceURL, data)
	if err != nil {
		return err
	}
	if responseOut != nil {
		if len(body) == 0 {
			return errors.New("expected a response body but got none")
		}
		if err = json.Unmarshal(body, responseOut); err != nil {
			return fmt.Errorf("malformed command response %q: %w", string(body), err)
		}
		logger.Printf("Response: %s", string(body))
	}
	return nil
}

type serviceStatusError struct {
	method, url string
	status      int
	requestBody []byte
}

func (e *serviceStatusError) Error() string {
	message := ""
	if e.requestBody != nil {
		message = " (" + string(e.requestBody) + ")"
	}
	return fmt.Sprintf("host test service returned error %d for %s %s%s", e.status, e.method, e.url, message)
}

func doRequest(ctx context.Context, method, url string, body []byte) ([]byte, http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	var respBody []byte
	if resp.Body != nil {
		respBody, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = &serviceStatusError{method: method, url: url, status: resp.StatusCode, requestBody: body}
	}
	return respBody, resp.Header, err
}
