package ldtest

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// AssertionError is a test failure reported through T.Errorf, with the location it came from.
// Matcher failures put the expected and actual values in Message.
type AssertionError struct {
	Message    string
	Stacktrace []StacktraceInfo
}

// StacktraceInfo is one frame of an AssertionError's stacktrace.
type StacktraceInfo struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (e AssertionError) Error() string { return e.Message }

func (s StacktraceInfo) String() string {
	packageName := strings.TrimPrefix(s.Package, rootPackageName()+"/")
	return fmt.Sprintf("%s.%s (%s:%d)", packageName, s.Function, s.FileName, s.Line)
}

var errorTraceInMessageRegex = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// transformError attaches our own stacktrace to an error, and strips the "Error Trace:" preamble
// that testify's assert and require functions put in their messages.
func transformError(err error, stacktrace []StacktraceInfo) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(errorTraceInMessageRegex.ReplaceAllLiteralString(message, ""))
	}
	if len(stacktrace) == 0 {
		return errors.New(message)
	}
	return AssertionError{Message: message, Stacktrace: stacktrace}
}

func currentPackageName() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "?"
	}
	packageName, _ := parsePackageAndFunctionName(f.Name())
	return packageName
}

func rootPackageName() string {
	parts := strings.Split(currentPackageName(), "/")
	if len(parts) < 3 {
		return parts[0]
	}
	return strings.Join(parts[0:3], "/")
}

func getStacktrace(includeLDTestCode bool, helperFns []string) []StacktraceInfo {
	var callers []StacktraceInfo
	currentPackage := currentPackageName()
StackLoop:
	for i := 1; ; i++ { // 0 is getStacktrace itself
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		f := runtime.FuncForPC(pc)
		if f == nil {
			break
		}
		fullFunctionName := f.Name()
		packageName, functionName := parsePackageAndFunctionName(fullFunctionName)

		if packageName == currentPackage && functionName == "Run" {
			break // ldtest.Run is the root of every test run
		}
		if !includeLDTestCode && packageName == currentPackage {
			continue
		}
		for _, helperFn := range helperFns {
			if helperFn == fullFunctionName {
				continue StackLoop
			}
		}

		callers = append(callers, StacktraceInfo{
			FileName: file[strings.LastIndex(file, "/")+1:],
			Package:  packageName,
			Function: functionName,
			Line:     line,
		})
	}
	return callers
}

func parsePackageAndFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	firstDotAfterSlash := strings.Index(fullName[lastSlash+1:], ".")
	packageName := fullName[0 : lastSlash+firstDotAfterSlash+1]
	functionName := fullName[len(packageName)+1:]
	return packageName, functionName
}
