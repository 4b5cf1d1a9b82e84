// Package probe issues single timed requests against the pivot API.
//
// A probe measures the client-observed round trip with the monotonic clock
// and extracts the server-reported metadata. It never retries: a failed
// probe is returned to the caller, which decides whether to skip or abort.
package probe

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// Doer is the part of fasthttp.HostClient the probe needs.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// Result is the outcome of one successful probe.
type Result struct {
	StatusCode  int
	TotalTimeMs float64
	Metadata    Metadata
}

// Probe times requests against one API host.
type Probe struct {
	host    string
	client  Doer
	timeout time.Duration
}

// New creates a Probe for host ("127.0.0.1:8080") with the given per-request
// read timeout.
func New(host string, timeout time.Duration) *Probe {
	client := &fasthttp.HostClient{
		Addr:                host,
		ReadTimeout:         timeout,
		MaxIdleConnDuration: timeout,
		RetryIf:             func(*fasthttp.Request) bool { return false },
		Dial: func(addr string) (net.Conn, error) {
			return fasthttp.DialTimeout(addr, timeout)
		},
	}
	return NewWithClient(host, client, timeout)
}

// NewWithClient creates a Probe that sends requests through client.
func NewWithClient(host string, client Doer, timeout time.Duration) *Probe {
	return &Probe{host: host, client: client, timeout: timeout}
}

// Do issues method path with payload encoded as JSON (nil means no body)
// and returns the elapsed time and the response metadata.
func (p *Probe) Do(ctx context.Context, method, path string, payload interface{}) (Result, error) {
	status, body, elapsed, err := p.roundTrip(ctx, method, path, payload)
	if err != nil {
		return Result{}, err
	}
	md, err := parseMetadata(body)
	if err != nil {
		return Result{}, errors.Wrapf(err, "%s %s", method, path)
	}
	return Result{
		StatusCode:  status,
		TotalTimeMs: float64(elapsed) / float64(time.Millisecond),
		Metadata:    md,
	}, nil
}

// ServiceHealth is the state of one backing service as reported by /health.
type ServiceHealth struct {
	Status    string   `json:"status"`
	LatencyMs *float64 `json:"latency_ms,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Health is the body of GET /health.
type Health struct {
	Status     string        `json:"status"`
	ClickHouse ServiceHealth `json:"clickhouse"`
	Redis      ServiceHealth `json:"redis"`
	Version    string        `json:"version,omitempty"`
}

// Health checks that the API is reachable and decodes its health report.
func (p *Probe) Health(ctx context.Context) (Health, error) {
	var h Health
	_, body, _, err := p.roundTrip(ctx, fasthttp.MethodGet, "/health", nil)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return h, errors.Wrap(err, "decoding /health response")
	}
	return h, nil
}

func (p *Probe) roundTrip(ctx context.Context, method, path string, payload interface{}) (int, []byte, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, 0, err
	}
	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)

	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	req.Header.SetHost(p.host)
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, 0, errors.Wrapf(err, "encoding payload for %s %s", method, path)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	start := time.Now()
	err := p.client.DoTimeout(req, res, p.timeout)
	elapsed := time.Since(start)
	if err != nil {
		return 0, nil, 0, errors.Wrapf(err, "%s %s", method, path)
	}
	status := res.StatusCode()
	if status < 200 || status > 299 {
		return status, nil, elapsed, errors.Errorf("%s %s: unexpected status code %d", method, path, status)
	}
	// the response body is only valid until res is released
	body := append([]byte(nil), res.Body()...)
	return status, body, elapsed, nil
}
