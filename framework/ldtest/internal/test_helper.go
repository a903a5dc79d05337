// Package internal contains test helpers for ldtest. They must live outside the ldtest package so
// that stacktrace filtering does not strip them.
package internal

// RunAction calls action. It is used only in unit tests.
func RunAction(action func()) {
	action()
}
