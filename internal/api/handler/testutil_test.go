package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmvp/passportview/internal/accesscode"
	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/booklet"
	"github.com/petmvp/passportview/internal/exporter"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/internal/model"
	"github.com/petmvp/passportview/internal/passport"
	"github.com/petmvp/passportview/internal/render"
	"github.com/petmvp/passportview/pkg/errors"
)

// SetupTestRouter creates a Gin router for testing.
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// CreateTestRequest creates an HTTP request for testing.
func CreateTestRequest(method, url string, body any) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	return req
}

// serve runs req through r and returns the recorder
func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody decodes a JSON response body
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// AssertErrorResponse asserts the status and the code of a {code, message} error body.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode errors.ErrorCode) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(expectedCode), body["code"])
	assert.NotEmpty(t, body["message"])
}

// stubBackend serves the passport fixture for every valid number except missing
type stubBackend struct {
	data    []byte
	missing string
}

func newStubBackend(t *testing.T) *stubBackend {
	t.Helper()
	data, err := os.ReadFile("../../passport/testdata/passport.json")
	require.NoError(t, err)
	return &stubBackend{data: data, missing: "BG99ZZ999999"}
}

func (b *stubBackend) GetPassport(_ context.Context, _, number string) (*passport.Record, error) {
	if number == b.missing {
		return nil, errors.New(errors.ErrCodeBackendNotFound, "Passport not found.").WithDetails("Passport not found.")
	}
	return passport.Decode(b.data)
}

func (b *stubBackend) GetDoctor(_ context.Context, _, id string) (*backend.Doctor, error) {
	return &backend.Doctor{ID: id, FirstName: "Georgi", LastName: "Dimitrov", Address: "3 Shipka St", Email: "g@example.org"}, nil
}

func (b *stubBackend) GetCountryChoices(_ context.Context, lang string) (backend.Countries, error) {
	if lang == "en" {
		return backend.Countries{{Value: "BG", Label: "Bulgaria"}}, nil
	}
	return backend.Countries{{Value: "BG", Label: "България"}}, nil
}

// newTestController builds a controller over the stub backend and the embedded skeleton
func newTestController(t *testing.T) *render.Controller {
	t.Helper()
	skeleton, err := booklet.New("")
	require.NoError(t, err)
	return render.NewController(newStubBackend(t), skeleton, i18n.MustNew(), render.Options{
		DefaultLanguage:       "bg",
		InternationalLanguage: "en",
		MaxLookups:            4,
	})
}

// newTestExporters registers html, json and a pdf exporter that never starts Chrome
func newTestExporters() *exporter.Manager {
	m := exporter.NewManager(nil)
	m.Register(exporter.FormatHTML, exporter.NewHTMLExporter())
	m.Register(exporter.FormatJSON, exporter.NewJSONExporter())
	m.Register(exporter.FormatPDF, fakePDF{})
	return m
}

type fakePDF struct{}

func (fakePDF) Export(_ context.Context, res *render.Result) ([]byte, error) {
	return []byte("%PDF-1.4 " + res.Record.PassportNumber), nil
}
func (fakePDF) Name() string          { return "PDF" }
func (fakePDF) ContentType() string   { return "application/pdf" }
func (fakePDF) FileExtension() string { return ".pdf" }

// memoryViewLog keeps view log entries in memory
type memoryViewLog struct {
	mu      sync.Mutex
	entries []*model.ViewLog
	fail    error
}

func (m *memoryViewLog) Create(log *model.ViewLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries = append(m.entries, log)
	return nil
}

func (m *memoryViewLog) GetByRenderID(renderID string) (*model.ViewLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.RenderID == renderID {
			return e, nil
		}
	}
	return nil, errors.ErrNotFound("view log")
}

func (m *memoryViewLog) List(q model.ViewLogQuery) ([]model.ViewLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, 0, m.fail
	}
	var out []model.ViewLog
	for _, e := range m.entries {
		if e.PassportNumber == q.PassportNumber && (q.Status == "" || e.Status == q.Status) {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryViewLog) CountByStatus(passportNumber string) (map[model.ViewStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.ViewStatus]int64{}
	for _, e := range m.entries {
		if e.PassportNumber == passportNumber {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (m *memoryViewLog) DeleteOlderThan(int) (int64, error) { return 0, nil }

func (m *memoryViewLog) last() *model.ViewLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// stubVerifier accepts 123456 for pk 42
type stubVerifier struct{}

func (stubVerifier) VerifyAccessCode(_ context.Context, _, code string) (string, string, error) {
	if code == "123456" {
		return "42", "BG99ZZ999999", nil
	}
	return "", "", errors.New(errors.ErrCodeAccessCodeInvalid, "Invalid access code.")
}

func newTestAccessService() *accesscode.Service {
	return accesscode.NewService(stubVerifier{}, i18n.MustNew(), "test-secret", 10*time.Minute)
}
