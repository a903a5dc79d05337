package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
)

type HostTestContext struct {
	harness *harness.TestHarness
}

func requireContext(t *ldtest.T) HostTestContext {
	if c, ok := t.Context().(HostTestContext); ok {
		return c
	}
	panic("HostTestContext was not included in the global test configuration!" +
		" This is a basic mistake in the initialization logic.")
}
