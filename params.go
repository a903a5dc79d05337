package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hostcontract/host-contract-tests/framework/ldtest"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "HOST_TESTS"

type commandParams struct {
	serviceURL         string
	port               int
	host               string
	fixtureListenHost  string
	fixtureAliasHost   string
	statusQueryTimeout time.Duration
	filters            ldtest.RegexFilters
	stopServiceAtEnd   bool
	debug              bool
	debugAll           bool
	jUnitFile          string
	skipFile           string
	recordFailures     string
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	if err := c.read(fs, args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
			fs.Usage()
		}
		return false
	}
	return true
}

// read parses the flags. Any flag can also be set with a HOST_TESTS_* environment variable (for
// instance HOST_TESTS_STATUS_TIMEOUT), or in the YAML or JSON file named by --config. Flags win
// over the environment, which wins over the file.
func (c *commandParams) read(fs *flag.FlagSet, args []string) error {
	fs.String("config", "", "read settings from a YAML or JSON file")
	fs.String("url", "", "host test service URL")
	fs.String("host", "localhost", "external hostname of the test harness")
	fs.Int("port", 0, "port that the test harness will listen on for callbacks (default: any free port)")
	fs.String("fixture-host", "127.0.0.1", "address that fixture servers bind to")
	fs.String("alias-host", "localhost", "second hostname for fixture servers, for cross-origin tests")
	fs.Duration("status-timeout", defaultStatusQueryTimeout, "how long to wait for the host test service to start")
	fs.StringArray("run", nil, "regex pattern(s) to select tests to run")
	fs.StringArray("skip", nil, "regex pattern(s) to select tests not to run")
	fs.String("skip-from", "", "file listing the IDs of tests not to run, one per line")
	fs.String("record-failures", "", "write the IDs of failed tests to this file")
	fs.Bool("stop-service-at-end", false, "tell host test service to exit after the test run")
	fs.Bool("debug", false, "enable debug logging for failed tests")
	fs.Bool("debug-all", false, "enable debug logging for all tests")
	fs.String("junit", "", "write JUnit XML output to the specified path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config file: %w", err)
		}
	}

	c.serviceURL = v.GetString("url")
	c.host = v.GetString("host")
	c.port = v.GetInt("port")
	c.fixtureListenHost = v.GetString("fixture-host")
	c.fixtureAliasHost = v.GetString("alias-host")
	c.statusQueryTimeout = v.GetDuration("status-timeout")
	c.skipFile = v.GetString("skip-from")
	c.recordFailures = v.GetString("record-failures")
	c.stopServiceAtEnd = v.GetBool("stop-service-at-end")
	c.debug = v.GetBool("debug")
	c.debugAll = v.GetBool("debug-all")
	c.jUnitFile = v.GetString("junit")

	for _, pattern := range patterns(fs, v, "run") {
		if err := c.filters.MustMatch.Set(pattern); err != nil {
			return err
		}
	}
	for _, pattern := range patterns(fs, v, "skip") {
		if err := c.filters.MustNotMatch.Set(pattern); err != nil {
			return err
		}
	}

	if c.serviceURL == "" {
		return errors.New("--url is required")
	}
	return nil
}

// patterns reads a repeatable pattern flag. Patterns given on the command line are used as they
// are, since a regex can contain commas; other sources are comma-separated lists.
func patterns(fs *flag.FlagSet, v *viper.Viper, name string) []string {
	if fs.Changed(name) {
		values, _ := fs.GetStringArray(name)
		return values
	}
	return v.GetStringSlice(name)
}
