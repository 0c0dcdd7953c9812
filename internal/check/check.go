// Package check verifies a passportview installation before it serves views:
// the configuration file, the booklet skeleton, PDF export and the backend.
package check

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/config"
)

const pingTimeout = 5 * time.Second

// Checker runs the installation checks for one configuration file
type Checker struct {
	configPath string
	out        io.Writer
	verbose    bool

	// confirm asks whether a missing configuration should be created
	confirm func(path string) (bool, error)
	// lookPath resolves executables
	lookPath func(file string) (string, error)
	// ping asks the backend for its country list
	ping func(ctx context.Context, cfg *config.Config) error
}

// Option configures a Checker
type Option func(*Checker)

// WithOutput sends progress and the report to w instead of stdout
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.out = w }
}

// NewChecker returns a checker for the configuration at path, or the default path when empty
func NewChecker(path string, opts ...Option) *Checker {
	if path == "" {
		path = config.DefaultConfigPath
	}
	c := &Checker{
		configPath: path,
		out:        os.Stdout,
		confirm:    confirmCreate,
		lookPath:   exec.LookPath,
		ping:       pingBackend,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConfigPath returns the path of the checked configuration file
func (c *Checker) ConfigPath() string {
	return c.configPath
}

// Run executes the checks. Interactive runs print progress, offer to create a
// missing configuration and ping the backend; the non-interactive run used at
// serve startup only reads local files.
func (c *Checker) Run(ctx context.Context, interactive bool) *Result {
	res := &Result{Path: c.configPath}
	c.verbose = interactive
	c.header()

	c.section("Checking configuration file")
	if !c.ensureConfig(interactive, res) {
		return res
	}

	c.section("Validating configuration")
	cfg, ok := c.validate(res)
	if !ok {
		return res
	}
	c.environment(cfg, res)

	if interactive {
		c.section("Contacting backend")
		c.reachBackend(ctx, cfg, res)
	}
	return res
}

// ensureConfig reports whether a configuration file is present after the step
func (c *Checker) ensureConfig(interactive bool, res *Result) bool {
	if fileExists(c.configPath) {
		c.progress(res.add(StepConfigFile, SeverityOK, c.configPath, ""))
		return true
	}
	if !interactive {
		res.add(StepConfigFile, SeverityError, fmt.Sprintf("Configuration not found: %s", c.configPath),
			"Run 'passportview check --interactive' to create a default configuration")
		return false
	}

	created, err := c.createConfig()
	switch {
	case err != nil:
		c.progress(res.add(StepConfigFile, SeverityError, err.Error(), ""))
		return false
	case !created:
		c.progress(res.add(StepConfigFile, SeverityError, fmt.Sprintf("%s: file not found", c.configPath),
			"Create the file or rerun the check and accept the default"))
		return false
	}
	res.Created = true
	c.progress(res.add(StepConfigFile, SeverityOK, fmt.Sprintf("Created %s", c.configPath), ""))
	return true
}

func (c *Checker) reachBackend(ctx context.Context, cfg *config.Config, res *Result) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.ping(ctx, cfg); err != nil {
		c.progress(res.add(StepBackend, SeverityWarning, fmt.Sprintf("backend %s unreachable: %v", cfg.Backend.BaseURL, err),
			"Check backend.base_url or PV_BACKEND_URL"))
		return
	}
	c.progress(res.add(StepBackend, SeverityOK, cfg.Backend.BaseURL, ""))
}

func pingBackend(ctx context.Context, cfg *config.Config) error {
	client, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout())
	if err != nil {
		return err
	}
	_, err = client.GetCountryChoices(ctx, cfg.Backend.DefaultLanguage)
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
