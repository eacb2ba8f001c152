package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/observability"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

const maxResponseBytes = 10 << 20

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the current bearer token, or "" when anonymous.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) string {
	return f(ctx)
}

// Options configures a Dispatcher.
type Options struct {
	BaseURL              string
	UserAgent            string
	Timeout              time.Duration
	MaxRequestsPerSecond float64
}

// OptionsFromConfig builds Options from the API section of the config.
func OptionsFromConfig(cfg config.APIConfig) Options {
	return Options{
		BaseURL:              cfg.BaseURL,
		UserAgent:            cfg.UserAgent,
		Timeout:              cfg.Timeout(),
		MaxRequestsPerSecond: cfg.MaxRequestsPerSecond,
	}
}

// Request describes one backend call. At most one of JSON and Form is set.
type Request struct {
	Method string
	Path   string
	// Route is the metrics label; defaults to Path.
	Route string
	JSON  any
	Form  *Form
}

// Dispatcher issues backend calls, attaching the session's bearer token and
// routing every failure through the normalizer.
type Dispatcher struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	doer      Doer
	tokens    TokenSource
	limiter   *rate.Limiter
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewDispatcher builds a dispatcher. A nil doer uses a default http.Client and
// a nil token source sends every call without credentials.
func NewDispatcher(opts Options, doer Doer, tokens TokenSource, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	if doer == nil {
		doer = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		doer:      doer,
		tokens:    tokens,
		logger:    logger,
		metrics:   metrics,
	}
	if opts.MaxRequestsPerSecond > 0 {
		burst := int(opts.MaxRequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.MaxRequestsPerSecond), burst)
	}
	return d
}

// Get issues a GET and decodes the body into out.
func (d *Dispatcher) Get(ctx context.Context, path string, out any) error {
	return d.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post issues a JSON POST. body may be nil.
func (d *Dispatcher) Post(ctx context.Context, path string, body any, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, JSON: body}, out)
}

// PostForm issues a multipart POST.
func (d *Dispatcher) PostForm(ctx context.Context, path string, form *Form, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, Form: form}, out)
}

// Do executes req. Non-2xx responses and transport failures are returned as
// *errorutil.DomainError. A 2xx body is decoded into out when out is non-nil;
// a {"data": ...} envelope is unwrapped first.
func (d *Dispatcher) Do(ctx context.Context, req Request, out any) error {
	route := req.Route
	if route == "" {
		route = req.Path
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return d.fail(route, method, Normalize(err))
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return d.fail(route, method, Normalize(err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, d.baseURL+req.Path, body)
	if err != nil {
		return d.fail(route, method, Normalize(err))
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if d.userAgent != "" {
		httpReq.Header.Set("User-Agent", d.userAgent)
	}
	if d.tokens != nil {
		if token := d.tokens.Token(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := d.doer.Do(httpReq)
	if err != nil {
		d.logger.Warn("backend call failed",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return d.fail(route, method, Normalize(err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	d.metrics.RecordRequest(route, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return d.fail(route, method, Normalize(fmt.Errorf("read response: %w", err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		derr := NormalizeResponse(resp.StatusCode, payload)
		d.logger.Warn("backend call rejected",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("code", derr.Code))
		return d.fail(route, method, derr)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := decodeEnvelope(payload, out); err != nil {
		return d.fail(route, method, apperrors.ToDomainError(
			apperrors.NewMalformedResponse("Unexpected response from server.", resp.StatusCode)))
	}
	return nil
}

func (d *Dispatcher) fail(route, method string, err *apperrors.DomainError) error {
	d.metrics.RecordError(route, method, err.Code)
	return err
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.Form != nil:
		buf, contentType, err := req.Form.Encode()
		if err != nil {
			return nil, "", err
		}
		return buf, contentType, nil
	case req.JSON != nil:
		raw, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	default:
		return nil, "", nil
	}
}

var envelopeKeys = map[string]struct{}{"data": {}, "meta": {}, "links": {}}

// decodeEnvelope decodes payload into out, unwrapping {"data": ...} when the
// object carries nothing but data and paging metadata.
func decodeEnvelope(payload []byte, out any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if data, ok := obj["data"]; ok && isEnvelope(obj) && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				return json.Unmarshal(data, out)
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

func isEnvelope(obj map[string]json.RawMessage) bool {
	for key := range obj {
		if _, ok := envelopeKeys[key]; !ok {
			return false
		}
	}
	return true
}
