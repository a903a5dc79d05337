// Package mockhost contains the services that stand in for the harness's side of the host test
// service protocol: receiving host events for a window, and answering requests that pages make to
// a custom URL scheme.
//
// These are plain http.Handlers. The hosttests package mounts them on callback endpoints.
package mockhost
