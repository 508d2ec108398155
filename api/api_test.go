package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"companyresolver/browser"
	"companyresolver/resolver"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	results map[string]resolver.Result
	seen    []resolver.Request
}

func (f *fakeResolver) Resolve(_ context.Context, req resolver.Request) resolver.Result {
	f.seen = append(f.seen, req)
	if r, ok := f.results[req.BusinessName]; ok {
		return r
	}
	return resolver.Failure(req.BusinessName, &resolver.NoResolutionError{BusinessName: req.BusinessName})
}

type fakeBatch struct {
	fake *fakeResolver
	err  error
}

func (b *fakeBatch) Run(ctx context.Context, _ string, reqs []resolver.Request) ([]resolver.Result, error) {
	out := make([]resolver.Result, 0, len(reqs))
	for _, req := range reqs {
		if b.err != nil {
			out = append(out, resolver.Failure(req.BusinessName, b.err))
			continue
		}
		out = append(out, b.fake.Resolve(ctx, req))
	}
	return out, b.err
}

func newTestRouter(batchErr error) (http.Handler, *fakeResolver) {
	fake := &fakeResolver{results: map[string]resolver.Result{
		"Acme Robotics": resolver.Success("Acme Robotics", &resolver.Profile{PageURL: "https://www.linkedin.com/company/acme-robotics/"}),
	}}
	log, _ := test.NewNullLogger()
	return NewRouter(fake, &fakeBatch{fake: fake, err: batchErr}, log), fake
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestResolveEndpoint(t *testing.T) {
	h, fake := newTestRouter(nil)

	rec := post(t, h, "/resolve", `{"business_name":"Acme Robotics","city":"Austin","state":"TX"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res resolver.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "https://www.linkedin.com/company/acme-robotics/", res.Profile.PageURL)
	assert.Equal(t, "Austin", fake.seen[0].City)
}

func TestResolveEndpointFailures(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := post(t, h, "/resolve", `{"business_name":"Nobody Inc"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), resolver.KindNoResolution)

	rec = post(t, h, "/resolve", `{"business_name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/resolve", `{"company":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		"":                          http.StatusOK,
		resolver.KindInvalidRequest: http.StatusBadRequest,
		resolver.KindNoResolution:   http.StatusNotFound,
		resolver.KindTimeout:        http.StatusGatewayTimeout,
		resolver.KindSessionLaunch:  http.StatusServiceUnavailable,
		resolver.KindSessionBusy:    http.StatusServiceUnavailable,
		resolver.KindLogin:          http.StatusBadGateway,
		resolver.KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}

func TestResolveRejectsGet(t *testing.T) {
	h, _ := newTestRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBatchEndpointKeepsOrder(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := post(t, h, "/resolve/batch", `[{"business_name":"Nobody Inc"},{"business_name":"Acme Robotics"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Nobody Inc", resp.Results[0].BusinessName)
	assert.False(t, resp.Results[0].OK())
	assert.Equal(t, "Acme Robotics", resp.Results[1].BusinessName)
	assert.True(t, resp.Results[1].OK())
}

func TestBatchEndpointReportsAbort(t *testing.T) {
	h, _ := newTestRouter(&browser.SessionLaunchError{Attempts: 3})

	rec := post(t, h, "/resolve/batch", `[{"business_name":"Acme Robotics"}]`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, resolver.KindSessionLaunch, resp.Results[0].ErrorKind)
	assert.NotEmpty(t, resp.Error)
}

func TestBatchEndpointRejectsEmpty(t *testing.T) {
	h, _ := newTestRouter(nil)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/resolve/batch", `[]`).Code)
}

func TestBrotliRoundTrip(t *testing.T) {
	h, _ := newTestRouter(nil)

	var body bytes.Buffer
	bw := brotli.NewWriter(&body)
	_, err := bw.Write([]byte(`{"business_name":"Acme Robotics"}`))
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	req := httptest.NewRequest(http.MethodPost, "/resolve", &body)
	req.Header.Set("Content-Encoding", "br")
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	assert.Contains(t, string(plain), "acme-robotics")
}

func TestGzipFallback(t *testing.T) {
	h, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "ok")
}

func TestAcceptsBrotli(t *testing.T) {
	assert.True(t, acceptsBrotli("br"))
	assert.True(t, acceptsBrotli("gzip, br;q=0.5"))
	assert.False(t, acceptsBrotli("gzip, br;q=0"))
	assert.False(t, acceptsBrotli("gzip"))
	assert.False(t, acceptsBrotli(""))
}
