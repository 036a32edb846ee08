package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/claude"
	"github.com/briangreenhill/tripparse/fetch"
	"github.com/briangreenhill/tripparse/internal/db"
	"github.com/briangreenhill/tripparse/parser"
	"github.com/briangreenhill/tripparse/travel"
)

type stubParser struct {
	rec   travel.Record
	err   error
	delay time.Duration
	kinds []travel.DataType
}

func (p *stubParser) Parse(ctx context.Context, kind travel.DataType, _ string) (travel.Record, error) {
	p.kinds = append(p.kinds, kind)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s parsing failed: %w", kind, ctx.Err())
		}
	}
	return p.rec, p.err
}

type stubJobs struct {
	jobs      map[uuid.UUID]db.ParseJob
	submitErr error
}

func (s *stubJobs) Submit(_ context.Context, kind travel.DataType, link string) (db.ParseJob, error) {
	if s.submitErr != nil {
		return db.ParseJob{}, s.submitErr
	}
	if _, err := parser.ValidateURL(link); err != nil {
		return db.ParseJob{}, err
	}
	j := db.ParseJob{ID: uuid.New(), Kind: string(kind), URL: link, Status: db.JobPending}
	s.jobs[j.ID] = j
	return j, nil
}

func (s *stubJobs) Get(_ context.Context, id uuid.UUID) (db.ParseJob, error) {
	j, ok := s.jobs[id]
	if !ok {
		return db.ParseJob{}, db.ErrJobNotFound
	}
	return j, nil
}

type item map[string]string

func (i item) Clone() item {
	out := make(item, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

func newTestServer(t *testing.T, opts ServerOptions) *Server {
	t.Helper()
	opts.Logger = zerolog.Nop()
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = time.Second
	}
	if opts.CORSOrigins == nil {
		opts.CORSOrigins = []string{"http://localhost:3000"}
	}
	return New(opts)
}

func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	assert.False(t, e.Timestamp.IsZero())
	return e
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, ServerOptions{Version: "1.0.0"})

	rec := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Travel Data Parser API","version":"1.0.0"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"travel-data-parser"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", rec.Body.String())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, ServerOptions{})

	rec := do(t, s, http.MethodGet, "/nonexistent", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP_404", decodeError(t, rec).Error)

	rec = do(t, s, http.MethodPost, "/health", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "HTTP_405", decodeError(t, rec).Error)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, ServerOptions{})

	rec := do(t, s, http.MethodGet, "/health", "", "Origin", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, s, http.MethodGet, "/health", "", "Origin", "http://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseFlight(t *testing.T) {
	want := travel.Flight{OriginAirport: "JFK", DestinationAirport: "CDG", Duration: 480, TotalCost: 1200.5,
		TotalCostPerPerson: 600.25, Segment: 1, FlightNumber: "AF123"}
	p := &stubParser{rec: want}
	s := newTestServer(t, ServerOptions{Parser: p})

	rec := do(t, s, http.MethodPost, "/parse-flight", `{"link":"https://www.google.com/travel/flights"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got travel.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got)
	assert.Equal(t, []travel.DataType{travel.KindFlight}, p.kinds)
}

func TestParseLodging(t *testing.T) {
	want := travel.DefaultLodging()
	want.Name = "Casa Azul"
	p := &stubParser{rec: want}
	s := newTestServer(t, ServerOptions{Parser: p})

	rec := do(t, s, http.MethodPost, "/parse-lodging", `{"link":"https://www.airbnb.com/rooms/1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Casa Azul", got["name"])
	assert.Equal(t, "1970-01-01T00:00:00Z", got["check_in"])
	assert.Equal(t, []travel.DataType{travel.KindLodging}, p.kinds)
}

func TestParseValidation(t *testing.T) {
	s := newTestServer(t, ServerOptions{Parser: &stubParser{}})

	for _, body := range []string{`invalid-json`, `{}`, `{"link":"   "}`, `{"link": 42}`} {
		rec := do(t, s, http.MethodPost, "/parse-flight", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, "body %s", body)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error)
	}
}

func TestParseWithoutAPIKey(t *testing.T) {
	s := newTestServer(t, ServerOptions{})

	rec := do(t, s, http.MethodPost, "/parse-lodging", `{"link":"https://www.airbnb.com/rooms/1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "HTTP_500", e.Error)
	assert.Contains(t, e.Message, "Anthropic API key not configured")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid url", fmt.Errorf("%w: %q", parser.ErrInvalidURL, "x"), http.StatusBadRequest, "INVALID_URL"},
		{"no content", fmt.Errorf("flight parsing failed: %w", parser.ErrNoContent), http.StatusInternalServerError, "PARSING_FAILED"},
		{"unreachable", fmt.Errorf("flight parsing failed: %w", &fetch.StatusError{URL: "u", StatusCode: 404}), http.StatusInternalServerError, "URL_UNREACHABLE"},
		{"site rate limited", fmt.Errorf("flight parsing failed: %w", &fetch.StatusError{URL: "u", StatusCode: 429}), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"llm rate limited", &claude.APIError{StatusCode: 429, Err: errors.New("slow down")}, http.StatusTooManyRequests, "LLM_RATE_LIMITED"},
		{"llm error", &claude.APIError{StatusCode: 500, Err: errors.New("boom")}, http.StatusInternalServerError, "LLM_API_ERROR"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, ServerOptions{Parser: &stubParser{err: tt.err}})
			rec := do(t, s, http.MethodPost, "/parse-flight", `{"link":"https://www.google.com/flights"}`)
			require.Equal(t, tt.wantStatus, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, e.Error)
			assert.True(t, strings.HasPrefix(e.Message, tt.wantCode+": "), e.Message)
		})
	}
}

func TestParseTimeout(t *testing.T) {
	p := &stubParser{rec: travel.DefaultFlight(), delay: time.Second}
	s := newTestServer(t, ServerOptions{Parser: p, RequestTimeout: 20 * time.Millisecond})

	rec := do(t, s, http.MethodPost, "/parse-flight", `{"link":"https://www.google.com/flights"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "TIMEOUT", e.Error)
	assert.Contains(t, strings.ToLower(e.Message), "timeout")
}

func TestCacheAdmin(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store, err := cache.New[item](cache.Options{
		TTL: 10 * time.Second, Enabled: true, MaxSize: 10, Logger: zerolog.Nop(),
		Now: func() time.Time { return now },
	})
	require.NoError(t, err)
	store.Set("old", item{"a": "1"})
	now = now.Add(11 * time.Second)
	store.Set("fresh", item{"b": "2"})
	store.Get("fresh")

	s := newTestServer(t, ServerOptions{Cache: store})

	rec := do(t, s, http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.CurrentSize)
	assert.Equal(t, 10, stats.TTL)
	assert.EqualValues(t, 1, stats.Hits)

	rec = do(t, s, http.MethodGet, "/cache/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info cache.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Len(t, info.Entries, 2)
	assert.Equal(t, 2, info.Entries[0].AccessCount)

	rec = do(t, s, http.MethodPost, "/cache/cleanup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Cleaned up 1 expired cache entries","removed":1}`, rec.Body.String())

	rec = do(t, s, http.MethodDelete, "/cache/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Cleared 1 cache entries","removed":1}`, rec.Body.String())
	assert.Zero(t, store.Stats().CurrentSize)
}

func TestCacheAdminRequiresToken(t *testing.T) {
	store, err := cache.New[item](cache.Options{TTL: time.Minute, Enabled: true, MaxSize: 1, Logger: zerolog.Nop()})
	require.NoError(t, err)
	s := newTestServer(t, ServerOptions{Cache: store, AdminToken: "s3cret"})

	rec := do(t, s, http.MethodGet, "/cache/stats", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/cache/stats", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalRoutesHidden(t *testing.T) {
	s := newTestServer(t, ServerOptions{})

	for _, path := range []string{"/cache/stats", "/metrics", "/jobs/" + uuid.NewString()} {
		rec := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	s := newTestServer(t, ServerOptions{Metrics: metrics})

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics\n", rec.Body.String())
}

func TestJobs(t *testing.T) {
	jobs := &stubJobs{jobs: map[uuid.UUID]db.ParseJob{}}
	s := newTestServer(t, ServerOptions{Jobs: jobs})

	rec := do(t, s, http.MethodPost, "/jobs/lodging", `{"link":"https://www.airbnb.com/rooms/1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var view JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "lodging", view.Kind)
	assert.Equal(t, db.JobPending, view.Status)
	assert.Equal(t, "/jobs/"+view.ID, rec.Header().Get("Location"))

	id := uuid.MustParse(view.ID)
	j := jobs.jobs[id]
	j.Status = db.JobSucceeded
	j.Result = []byte(`{"name":"Casa Azul"}`)
	jobs.jobs[id] = j

	rec = do(t, s, http.MethodGet, "/jobs/"+view.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, db.JobSucceeded, view.Status)
	assert.JSONEq(t, `{"name":"Casa Azul"}`, string(view.Result))
}

func TestJobErrors(t *testing.T) {
	jobs := &stubJobs{jobs: map[uuid.UUID]db.ParseJob{}}
	s := newTestServer(t, ServerOptions{Jobs: jobs})

	rec := do(t, s, http.MethodPost, "/jobs/car", `{"link":"https://x.example"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, s, http.MethodPost, "/jobs/flight", `{"link":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_URL", decodeError(t, rec).Error)

	rec = do(t, s, http.MethodGet, "/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/jobs/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error)

	failed := db.ParseJob{
		ID: uuid.New(), Kind: "flight", URL: "https://x.example", Status: db.JobFailed,
		ErrorCode:    pgtype.Text{String: "URL_UNREACHABLE", Valid: true},
		ErrorMessage: pgtype.Text{String: "HTTP 503", Valid: true},
	}
	jobs.jobs[failed.ID] = failed
	rec = do(t, s, http.MethodGet, "/jobs/"+failed.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "URL_UNREACHABLE", view.Error)
	assert.Equal(t, "HTTP 503", view.Message)

	jobs.submitErr = errors.New("redis down")
	rec = do(t, s, http.MethodPost, "/jobs/flight", `{"link":"https://www.google.com/flights"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Error)
}
