package hosttests

import (
	"net/url"

	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

// The functions in this file are for convenient use of the matchers API with reports, host
// events, and recorded requests. For more information, see matchers.Transform.

// ReportProperty gets a property of a page report. A missing property is ldvalue.Null().
func ReportProperty(name string) m.MatcherTransform {
	return m.Transform(
		"report property "+name,
		func(value interface{}) (interface{}, error) {
			return value.(ldvalue.Value).GetByKey(name), nil
		}).
		EnsureInputValueType(ldvalue.Null())
}

// ReportHasString matches a report whose property is the given string.
func ReportHasString(name, value string) m.Matcher {
	return ReportProperty(name).Should(m.Equal(ldvalue.String(value)))
}

// ReportHasBool matches a report whose property is the given boolean.
func ReportHasBool(name string, value bool) m.Matcher {
	return ReportProperty(name).Should(m.Equal(ldvalue.Bool(value)))
}

func HostEventKind() m.MatcherTransform {
	return m.Transform(
		"host event kind",
		func(value interface{}) (interface{}, error) {
			return value.(servicedef.HostEvent).Kind, nil
		}).
		EnsureInputValueType(servicedef.HostEvent{})
}

func HostEventURL() m.MatcherTransform {
	return m.Transform(
		"host event URL",
		func(value interface{}) (interface{}, error) {
			return value.(servicedef.HostEvent).URL, nil
		}).
		EnsureInputValueType(servicedef.HostEvent{})
}

// URLHost gets the host:port part of a URL string, or fails if it is not a valid URL.
func URLHost() m.MatcherTransform {
	return m.Transform(
		"URL host",
		func(value interface{}) (interface{}, error) {
			u, err := url.Parse(value.(string))
			if err != nil {
				return nil, err
			}
			return u.Host, nil
		}).
		EnsureInputValueType("")
}

// URLHostOf returns the host:port part of a fixture server URL, for comparison with URLHost.
func URLHostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func RequestHeader(name string) m.MatcherTransform {
	return m.Transform(
		"request header "+name,
		func(value interface{}) (interface{}, error) {
			return value.(harness.IncomingRequestInfo).Headers.Get(name), nil
		}).
		EnsureInputValueType(harness.IncomingRequestInfo{})
}

func RequestHost() m.MatcherTransform {
	return m.Transform(
		"request Host",
		func(value interface{}) (interface{}, error) {
			return value.(harness.IncomingRequestInfo).Host, nil
		}).
		EnsureInputValueType(harness.IncomingRequestInfo{})
}
