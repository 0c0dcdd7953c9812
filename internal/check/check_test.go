package check

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmvp/passportview/internal/config"
)

func init() {
	color.NoColor = true
}

// newTestChecker returns a checker over dir/passportview.yaml that answers prompts with answer
func newTestChecker(t *testing.T, answer bool) (*Checker, *bytes.Buffer) {
	t.Helper()
	t.Setenv("CHROME_PATH", "")
	t.Setenv("PV_BACKEND_URL", "")
	out := &bytes.Buffer{}
	c := NewChecker(filepath.Join(t.TempDir(), "config", "passportview.yaml"), WithOutput(out))
	c.confirm = func(string) (bool, error) { return answer, nil }
	c.lookPath = func(string) (string, error) { return "", stderrors.New("not found") }
	c.ping = func(context.Context, *config.Config) error { return nil }
	return c, out
}

func writeConfig(t *testing.T, path string, modify func(*config.Config)) {
	t.Helper()
	cfg := config.Default()
	cfg.Access.JWTSecret = "a-configured-secret-that-is-long-enough"
	if modify != nil {
		modify(cfg)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, config.Write(path, cfg))
}

func TestNewChecker(t *testing.T) {
	c := NewChecker("")
	assert.Equal(t, config.DefaultConfigPath, c.ConfigPath())
	assert.Equal(t, os.Stdout, c.out)

	c = NewChecker("custom.yaml")
	assert.Equal(t, "custom.yaml", c.ConfigPath())
}

func TestRun_InteractiveCreatesDefaultConfig(t *testing.T) {
	c, out := newTestChecker(t, true)

	res := c.Run(context.Background(), true)
	require.True(t, res.OK(), res.Errors())
	assert.True(t, res.Created)
	assert.FileExists(t, c.ConfigPath())

	cfg, err := config.Load(c.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, config.Default().Backend.BaseURL, cfg.Backend.BaseURL)

	// Chrome missing and no JWT secret in the default configuration
	assert.Len(t, res.Warnings(), 2)
	assert.Equal(t, "config created, 2 warning(s)", res.Summary())
	assert.Contains(t, out.String(), "Created "+c.ConfigPath())
	assert.Contains(t, out.String(), "Contacting backend")
}

func TestRun_InteractiveDeclined(t *testing.T) {
	c, _ := newTestChecker(t, false)

	res := c.Run(context.Background(), true)
	assert.False(t, res.OK())
	require.Len(t, res.Errors(), 1)
	assert.Contains(t, res.Errors()[0].Message, "file not found")
	assert.NoFileExists(t, c.ConfigPath())
}

func TestRun_ConfirmError(t *testing.T) {
	c, _ := newTestChecker(t, false)
	c.confirm = func(string) (bool, error) { return false, stderrors.New("no tty") }

	res := c.Run(context.Background(), true)
	require.Len(t, res.Errors(), 1)
	assert.Contains(t, res.Errors()[0].Message, "no tty")
}

func TestRun_BackendUnreachable(t *testing.T) {
	c, _ := newTestChecker(t, false)
	writeConfig(t, c.ConfigPath(), nil)
	c.ping = func(context.Context, *config.Config) error { return stderrors.New("connection refused") }

	res := c.Run(context.Background(), true)
	assert.True(t, res.OK())
	warns := res.Warnings()
	require.Len(t, warns, 2)
	assert.Equal(t, StepBackend, warns[1].Step)
	assert.Contains(t, warns[1].Message, "connection refused")
	assert.NotEmpty(t, warns[1].Hint)
}

func TestRun_NonInteractive(t *testing.T) {
	tests := []struct {
		name         string
		write        bool
		modify       func(*config.Config)
		wantOK       bool
		wantWarnings int
		wantHint     bool
	}{
		{
			name:     "missing file",
			wantHint: true,
		},
		{
			name:         "valid",
			write:        true,
			wantOK:       true,
			wantWarnings: 1, // chrome
		},
		{
			name:   "invalid port",
			write:  true,
			modify: func(c *config.Config) { c.Server.Port = 70000 },
		},
		{
			name:     "missing skeleton",
			write:    true,
			modify:   func(c *config.Config) { c.Render.Skeleton = "/does/not/exist.html" },
			wantHint: true,
		},
		{
			name:         "debug and no retention",
			write:        true,
			modify:       func(c *config.Config) { c.Server.Debug = true; c.Database.RetentionDays = 0 },
			wantOK:       true,
			wantWarnings: 3,
		},
		{
			name:         "language without national strings",
			write:        true,
			modify:       func(c *config.Config) { c.Backend.DefaultLanguage = "de" },
			wantOK:       true,
			wantWarnings: 2,
			wantHint:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestChecker(t, false)
			c.ping = func(context.Context, *config.Config) error {
				t.Fatal("non-interactive runs must not contact the backend")
				return nil
			}
			if tt.write {
				writeConfig(t, c.ConfigPath(), tt.modify)
			}

			res := c.Run(context.Background(), false)
			assert.Equal(t, tt.wantOK, res.OK(), res.Errors())
			if !tt.wantOK {
				assert.Len(t, res.Errors(), 1)
			}
			assert.Len(t, res.Warnings(), tt.wantWarnings)
			assert.Empty(t, out.String(), "non-interactive runs print nothing by themselves")

			var printed bytes.Buffer
			res.Print(&printed)
			assert.Equal(t, tt.wantHint, bytes.Contains(printed.Bytes(), []byte("To fix these issues")))
		})
	}
}

func TestPingBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/country-choices" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"value": "BG", "label": "Bulgaria"}]`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	assert.NoError(t, pingBackend(context.Background(), cfg))

	srv.Close()
	assert.Error(t, pingBackend(context.Background(), cfg))
}

func TestFindChrome(t *testing.T) {
	c, _ := newTestChecker(t, false)

	_, err := c.findChrome("")
	assert.Error(t, err)

	exe := filepath.Join(t.TempDir(), "chromium")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	path, err := c.findChrome(exe)
	require.NoError(t, err)
	assert.Equal(t, exe, path)

	_, err = c.findChrome(exe + "-missing")
	assert.Error(t, err)

	t.Setenv("CHROME_PATH", exe)
	path, err = c.findChrome("")
	require.NoError(t, err)
	assert.Equal(t, exe, path)

	t.Setenv("CHROME_PATH", "")
	c.lookPath = func(name string) (string, error) {
		if name == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", stderrors.New("not found")
	}
	path, err = c.findChrome("")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/chromium", path)
}

func TestResultSummary(t *testing.T) {
	r := &Result{}
	assert.Equal(t, "", r.Summary())
	assert.True(t, r.OK())

	r.Created = true
	r.add(StepEnvironment, SeverityWarning, "w1", "")
	r.add(StepEnvironment, SeverityWarning, "w2", "")
	assert.Equal(t, "config created, 2 warning(s)", r.Summary())

	r.add(StepValidation, SeverityError, "bad", "fix it")
	assert.False(t, r.OK())
	assert.Equal(t, "config created, 1 error(s), 2 warning(s)", r.Summary())

	var out bytes.Buffer
	r.PrintSummary(&out)
	assert.Contains(t, out.String(), "✗ Check completed (config created, 1 error(s), 2 warning(s))")

	out.Reset()
	r.Print(&out)
	assert.Contains(t, out.String(), "✗ bad")
	assert.Contains(t, out.String(), "→ fix it")
}
