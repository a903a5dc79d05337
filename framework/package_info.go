// Package framework contains the host-independent infrastructure of the contract test harness.
// The base package holds shared types such as Logger and Capabilities; the subpackages are:
//
// - harness: the ephemeral fixture servers that pages are loaded from, the callback endpoints
// that the host test service reports events to, and the client for the host test service itself.
//
// - ldtest: a test runner similar to Go's testing package, with per-test scopes and teardown hooks.
//
// - helpers: channel and completion-signal helpers shared by tests.
//
// The general model is that the host test service wraps the desktop application runtime being
// tested. The harness asks it to open windows and load URLs; the pages come from fixture servers
// owned by the current test scope, and results come back either as host events posted to a
// callback endpoint or as reports that the page itself posts to its fixture server.
package framework
