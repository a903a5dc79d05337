// Package ldtest is a test runner similar to Go's testing package, but run as ordinary application
// code so that a whole contract-test suite can be driven from a command-line tool. Each test gets
// its own *T scope with cleanup hooks that run on every exit path, plus captured debug output and
// pluggable result reporting.
package ldtest
