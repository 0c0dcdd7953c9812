// Package backend is the client of the pet-passport REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/passport"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 4096
	maxResponseBody = 8 << 20
	userAgent       = "PassportView/1.0"
)

// Client talks to the backend API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	metrics *telemetry.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithMetrics records request durations
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid backend URL %q", baseURL))
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetPassport fetches the passport record for a passport number
func (c *Client) GetPassport(ctx context.Context, lang, number string) (*passport.Record, error) {
	body, err := c.do(ctx, http.MethodGet, "passport", "/api/passports/"+url.PathEscape(number), lang, nil, nil)
	if err != nil {
		return nil, err
	}
	rec, err := passport.Decode(body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendResponse, "malformed passport record", err)
	}
	return rec, nil
}

// GetDoctor fetches a veterinarian by id
func (c *Client) GetDoctor(ctx context.Context, lang, id string) (*Doctor, error) {
	body, err := c.do(ctx, http.MethodGet, "doctor", "/api/doctors/"+url.PathEscape(id), lang, nil, nil)
	if err != nil {
		return nil, err
	}
	var d Doctor
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendResponse, "malformed doctor record", err)
	}
	d.ID = id
	return &d, nil
}

// GetCountryChoices fetches the country list labelled in lang
func (c *Client) GetCountryChoices(ctx context.Context, lang string) (Countries, error) {
	headers := http.Header{}
	if lang != "" {
		headers.Set("X-Lang", lang)
	}
	body, err := c.do(ctx, http.MethodGet, "country_choices", "/api/country-choices", lang, headers, nil)
	if err != nil {
		return nil, err
	}
	var countries Countries
	if err := json.Unmarshal(body, &countries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendResponse, "malformed country choices", err)
	}
	return countries, nil
}

// VerifyAccessCode exchanges an access code for the pk of the passport it
// unlocks and that passport's number. When the verify response carries no
// passport_number the passport is fetched by pk to learn it.
func (c *Client) VerifyAccessCode(ctx context.Context, lang, code string) (pk, number string, err error) {
	payload, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return "", "", errors.ErrInternal("failed to encode access code", err)
	}

	body, err := c.do(ctx, http.MethodPost, "access_code_verify", "/api/access-codes/verify/", lang, nil, payload)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeBackendResponse {
			if status, _ := appErr.Details.(int); status >= 400 && status < 500 {
				return "", "", errors.Wrap(errors.ErrCodeAccessCodeInvalid, appErr.Message, appErr.Err)
			}
		}
		return "", "", err
	}

	var resp struct {
		PK             any    `json:"pk"`
		PassportNumber string `json:"passport_number"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeBackendResponse, "malformed access code response", err)
	}
	pk = passport.Entry{"pk": resp.PK}.Text("pk")
	if pk == "" {
		return "", "", errors.New(errors.ErrCodeBackendResponse, "access code response has no pk")
	}

	number = format.NormalizePassportNumber(resp.PassportNumber)
	if number == "" {
		rec, err := c.GetPassport(ctx, lang, pk)
		if err != nil {
			return "", "", err
		}
		number = format.NormalizePassportNumber(rec.PassportNumber)
	}
	return pk, number, nil
}

// do performs a request and returns the body of a 2xx response.
// Non-2xx responses become AppErrors carrying the backend's message and the status as Details.
func (c *Client) do(ctx context.Context, method, endpoint, path, lang string, headers http.Header, payload []byte) (body []byte, err error) {
	ctx, span := telemetry.StartBackendSpan(ctx, endpoint)
	defer func() {
		telemetry.SetSpanError(span, err)
		span.End()
	}()
	target := c.baseURL.JoinPath(path)

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, errors.ErrInternal("failed to create backend request", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.record(ctx, endpoint, 0, start)
		logger.FromContext(ctx).Warn("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("url", target.String()),
			zap.Error(err),
		)
		return nil, errors.Wrap(errors.ErrCodeBackendUnavailable, "backend unavailable", err)
	}
	defer resp.Body.Close()
	c.record(ctx, endpoint, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		logger.FromContext(ctx).Debug("Backend returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", msg),
		)
		code := errors.ErrCodeBackendResponse
		if resp.StatusCode == http.StatusNotFound {
			code = errors.ErrCodeBackendNotFound
		}
		return nil, errors.New(code, msg).WithDetails(resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackendUnavailable, "failed to read backend response", err)
	}
	return body, nil
}

func (c *Client) record(ctx context.Context, endpoint string, status int, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordBackendRequest(ctx, endpoint, status, time.Since(start).Seconds())
	}
}

// errorMessage extracts the human readable message from an error body
func errorMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, key := range []string{"details", "detail", "error", "message"} {
		switch v := body[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return ""
}
