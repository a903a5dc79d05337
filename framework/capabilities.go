package framework

import "golang.org/x/exp/slices"

// Capabilities is a list of strings representing optional features of the host test service.
// The meanings of these strings are defined in the servicedef package.
type Capabilities []string

// Has returns true if the specified string appears in the list.
func (cs Capabilities) Has(name string) bool {
	return slices.Contains(cs, name)
}

// HasAny returns true if at least one of the specified strings appears in the list.
func (cs Capabilities) HasAny(names ...string) bool {
	for _, name := range names {
		if cs.Has(name) {
			return true
		}
	}
	return false
}

// Missing returns the names from the specified list that do not appear in this one.
func (cs Capabilities) Missing(names ...string) Capabilities {
	var ret Capabilities
	for _, name := range names {
		if !cs.Has(name) {
			ret = append(ret, name)
		}
	}
	return ret
}
