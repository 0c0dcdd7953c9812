package check

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/petmvp/passportview/internal/booklet"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/configfiles"
	"github.com/petmvp/passportview/internal/i18n"
)

// chromeCandidates are the executables chromedp looks for when no path is configured
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
}

func confirmCreate(path string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Create %s with default settings?", path)).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

// createConfig writes the embedded example configuration once the user agrees
func (c *Checker) createConfig() (bool, error) {
	ok, err := c.confirm(c.configPath)
	if err != nil {
		return false, fmt.Errorf("failed to get user confirmation: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", c.configPath, err)
	}
	if err := os.WriteFile(c.configPath, configfiles.GetConfigExample(), 0o644); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", c.configPath, err)
	}
	return true, nil
}

// validate loads the configuration and the booklet skeleton it points at
func (c *Checker) validate(res *Result) (*config.Config, bool) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.progress(res.add(StepValidation, SeverityError, fmt.Sprintf("Invalid %s: %v", c.configPath, err), ""))
		return nil, false
	}
	if appErr := cfg.Validate(); appErr != nil {
		c.progress(res.add(StepValidation, SeverityError, fmt.Sprintf("Invalid %s: %v", c.configPath, appErr), ""))
		return nil, false
	}
	skeleton, err := booklet.New(cfg.Render.Skeleton)
	if err != nil {
		c.progress(res.add(StepValidation, SeverityError, fmt.Sprintf("Booklet skeleton unusable: %v", err),
			"Fix render.skeleton or leave it empty to use the embedded booklet"))
		return nil, false
	}
	c.progress(res.add(StepValidation, SeverityOK,
		fmt.Sprintf("backend %s, skeleton %s", cfg.Backend.BaseURL, skeleton.Source()), ""))
	return cfg, true
}

// environment records settings that work but are probably not intended
func (c *Checker) environment(cfg *config.Config, res *Result) {
	if _, err := c.findChrome(cfg.Export.PDF.ChromePath); err != nil {
		c.progress(res.add(StepEnvironment, SeverityWarning, fmt.Sprintf("PDF export unavailable: %v", err), ""))
	}
	if strings.TrimSpace(cfg.Access.JWTSecret) == "" {
		c.progress(res.add(StepEnvironment, SeverityWarning, "access.jwt_secret is empty; view tokens will not survive a restart", ""))
	}
	if cfg.Database.RetentionDays == 0 {
		c.progress(res.add(StepEnvironment, SeverityWarning, "database.retention_days is 0; view logs are never deleted", ""))
	}
	if cfg.Server.Debug {
		c.progress(res.add(StepEnvironment, SeverityWarning, "server.debug is enabled; internal error messages are returned to clients", ""))
	}
	if !hasCatalog(cfg.Backend.DefaultLanguage) {
		c.progress(res.add(StepEnvironment, SeverityWarning,
			fmt.Sprintf("backend.default_language %q has no national strings; English labels are printed", cfg.Backend.DefaultLanguage),
			"use one of: "+catalogLanguages()))
	}
}

// hasCatalog reports whether the national strings cover lang's base language
func hasCatalog(lang string) bool {
	parsed, err := config.ParseLanguage(lang)
	if err != nil {
		return false
	}
	base, _ := parsed.Tag().Base()
	for _, tag := range i18n.MustNew().Languages() {
		if b, _ := tag.Base(); b == base {
			return true
		}
	}
	return false
}

func catalogLanguages() string {
	tags := i18n.MustNew().Languages()
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.String()
	}
	return strings.Join(names, ", ")
}

// findChrome resolves the Chrome binary used for PDF export:
// the configured path, then CHROME_PATH, then the usual executable names.
func (c *Checker) findChrome(configured string) (string, error) {
	for _, path := range []string{configured, os.Getenv("CHROME_PATH")} {
		if path == "" {
			continue
		}
		if !fileExists(path) {
			return "", fmt.Errorf("chrome not found at %s", path)
		}
		return path, nil
	}
	for _, name := range chromeCandidates {
		if path, err := c.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium executable in PATH (set export.pdf.chrome_path)")
}
