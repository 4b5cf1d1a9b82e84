package probe

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestProbe(t *testing.T, handler fasthttp.RequestHandler) *Probe {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.HostClient{
		Addr: "pivot-api:8080",
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return NewWithClient("pivot-api:8080", client, 5*time.Second)
}

func TestDoExtractsMetadata(t *testing.T) {
	var gotBody map[string]interface{}
	var gotMethod, gotPath, gotContentType string
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		gotMethod = string(ctx.Method())
		gotPath = string(ctx.Path())
		gotContentType = string(ctx.Request.Header.ContentType())
		_ = json.Unmarshal(ctx.PostBody(), &gotBody)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"data":[],"metadata":{"total_rows":1000,"returned_rows":6,"query_time_ms":12,"cached":true}}`)
	})

	payload := map[string]interface{}{
		"dimensions":   []string{"asset_class"},
		"metrics":      []string{"notional", "pnl"},
		"filters":      map[string]string{"trade_date": "2024-01-15"},
		"cache_bypass": true,
	}
	res, err := p.Do(context.Background(), fasthttp.MethodPost, "/api/v1/pivot", payload)
	require.NoError(t, err)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/api/v1/pivot", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, true, gotBody["cache_bypass"])

	assert.Equal(t, 200, res.StatusCode)
	assert.True(t, res.Metadata.Present)
	assert.Equal(t, 12.0, res.Metadata.QueryTime())
	assert.True(t, res.Metadata.IsCached())
	assert.Equal(t, 6, res.Metadata.Rows())
	require.NotNil(t, res.Metadata.TotalRows)
	assert.EqualValues(t, 1000, *res.Metadata.TotalRows)
	assert.GreaterOrEqual(t, res.TotalTimeMs, 0.0)
}

func TestDoPassesQueryString(t *testing.T) {
	var tradeDate, groupBy string
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		tradeDate = string(ctx.QueryArgs().Peek("trade_date"))
		groupBy = string(ctx.QueryArgs().Peek("group_by"))
		ctx.SetBodyString(`{"data":[],"metadata":{"returned_rows":5,"query_time_ms":3,"cached":false}}`)
	})
	_, err := p.Do(context.Background(), fasthttp.MethodGet, "/api/v1/exposure?trade_date=2024-01-15&group_by=asset_class", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", tradeDate)
	assert.Equal(t, "asset_class", groupBy)
}

func TestDoMeasuresElapsedTime(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(20 * time.Millisecond)
		ctx.SetBodyString(`{}`)
	})
	res, err := p.Do(context.Background(), fasthttp.MethodGet, "/api/v1/instruments", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.TotalTimeMs, 20.0)
}

func TestDoMissingMetadataDefaults(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"status":"healthy","clickhouse":{"status":"connected","latency_ms":1},"redis":{"status":"connected","latency_ms":0}}`)
	})
	res, err := p.Do(context.Background(), fasthttp.MethodGet, "/health", nil)
	require.NoError(t, err)
	assert.False(t, res.Metadata.Present)
	assert.Equal(t, 0.0, res.Metadata.QueryTime())
	assert.False(t, res.Metadata.IsCached())
	assert.Equal(t, 0, res.Metadata.Rows())
}

func TestDoPartialMetadata(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"instruments":[],"count":0,"metadata":{"cached":true}}`)
	})
	res, err := p.Do(context.Background(), fasthttp.MethodGet, "/api/v1/instruments", nil)
	require.NoError(t, err)
	assert.True(t, res.Metadata.Present)
	assert.Nil(t, res.Metadata.QueryTimeMs)
	assert.Equal(t, 0.0, res.Metadata.QueryTime())
	assert.True(t, res.Metadata.IsCached())
}

func TestDoFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: fasthttp.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "not found", status: fasthttp.StatusNotFound, body: `{}`},
		{name: "malformed json", status: fasthttp.StatusOK, body: `{"metadata":`},
		{name: "empty body", status: fasthttp.StatusOK, body: ``},
		{name: "metadata not an object", status: fasthttp.StatusOK, body: `{"metadata":"fast"}`},
		{name: "negative query time", status: fasthttp.StatusOK, body: `{"metadata":{"query_time_ms":-1}}`},
		{name: "negative rows", status: fasthttp.StatusOK, body: `{"metadata":{"returned_rows":-3}}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(c.status)
				ctx.SetBodyString(c.body)
			})
			_, err := p.Do(context.Background(), fasthttp.MethodPost, "/api/v1/pivot", map[string]interface{}{})
			assert.Error(t, err)
		})
	}
}

func TestDoNonObjectJSONHasNoMetadata(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`[1,2,3]`)
	})
	res, err := p.Do(context.Background(), fasthttp.MethodGet, "/api/v1/constituents", nil)
	require.NoError(t, err)
	assert.False(t, res.Metadata.Present)
}

func TestDoCancelledContext(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Do(ctx, fasthttp.MethodGet, "/health", nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/health" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetBodyString(`{"status":"healthy","clickhouse":{"status":"connected","latency_ms":2},"redis":{"status":"connected","latency_ms":1},"version":"0.1.0"}`)
	})
	h, err := p.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "connected", h.ClickHouse.Status)
	require.NotNil(t, h.ClickHouse.LatencyMs)
	assert.Equal(t, 2.0, *h.ClickHouse.LatencyMs)
	assert.Equal(t, "connected", h.Redis.Status)
	assert.Equal(t, "0.1.0", h.Version)
}

func TestHealthUnavailable(t *testing.T) {
	p := newTestProbe(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString(`{"status":"unhealthy"}`)
	})
	_, err := p.Health(context.Background())
	assert.Error(t, err)
}
