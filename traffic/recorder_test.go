package traffic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iqra-23/intrusion-backend/models"
)

type stubStore struct {
	mu     sync.Mutex
	events []*models.TrafficEvent
	err    error
	done   chan struct{}
}

func newStubStore() *stubStore {
	return &stubStore{done: make(chan struct{}, 10)}
}

func (s *stubStore) Create(_ context.Context, ev *models.TrafficEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.done <- struct{}{} }()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubStore) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capture")
	}
}

func (s *stubStore) all() []*models.TrafficEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.TrafficEvent(nil), s.events...)
}

type stubWindow struct {
	spike bool
	err   error
	calls int
	mu    sync.Mutex
}

func (w *stubWindow) IsSpike(_ context.Context, _ string, _ time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return w.spike, w.err
}

type stubGeo struct {
	geo *models.Geo
}

func (g *stubGeo) Lookup(_ context.Context, _ string) *models.Geo {
	return g.geo
}

type stubSpikes struct {
	mu        sync.Mutex
	published []*models.TrafficEvent
}

func (s *stubSpikes) PublishTrafficSpike(_ context.Context, ev *models.TrafficEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, ev)
	return nil
}

func newTestRecorder(store *stubStore, window *stubWindow, g *stubGeo, spikes *stubSpikes) *Recorder {
	opts := RecorderOptions{
		Store:  store,
		Window: window,
		Geo:    g,
		Logger: zerolog.Nop(),
	}
	if spikes != nil {
		opts.Spikes = spikes
	}
	return NewRecorder(opts)
}

func serve(rec *Recorder, status int, method, target string, header http.Header) {
	handler := rec.Record(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRecorderPersistsEvent(t *testing.T) {
	store := newStubStore()
	rec := newTestRecorder(store, &stubWindow{}, &stubGeo{geo: &models.Geo{Country: "US"}}, nil)

	h := http.Header{}
	h.Set("X-Forwarded-For", "203.0.113.7")
	h.Set("User-Agent", "Mozilla/5.0")
	h.Set("Referer", "https://example.com/")
	serve(rec, http.StatusOK, http.MethodGet, "/api/dashboard/summary", h)

	store.wait(t)
	events := store.all()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "203.0.113.7", ev.IP)
	assert.Equal(t, "GET", ev.Method)
	assert.Equal(t, "/api/dashboard/summary", ev.Path)
	assert.Equal(t, http.StatusOK, ev.Status)
	assert.Equal(t, "US", ev.Geo.Country)
	assert.Equal(t, "dashboard", ev.Module)
	assert.False(t, ev.IsSpike)
	assert.Empty(t, ev.Tags)
	assert.Equal(t, 0, ev.AnomalyScore)
	assert.Equal(t, "https://example.com/", ev.Headers["referer"])
	assert.Equal(t, "203.0.113.7-Mozilla/5.0", ev.SessionID)
}

func TestRecorderSpikeTagAndPublish(t *testing.T) {
	store := newStubStore()
	spikes := &stubSpikes{}
	rec := newTestRecorder(store, &stubWindow{spike: true}, &stubGeo{}, spikes)

	serve(rec, http.StatusOK, http.MethodGet, "/api/items", http.Header{"User-Agent": {"Mozilla/5.0"}})

	store.wait(t)
	events := store.all()
	require.Len(t, events, 1)

	assert.True(t, events[0].IsSpike)
	assert.Contains(t, events[0].Tags, "spike")
	assert.Equal(t, 40, events[0].AnomalyScore)

	spikes.mu.Lock()
	defer spikes.mu.Unlock()
	assert.Len(t, spikes.published, 1)
}

func TestRecorderErrorTags(t *testing.T) {
	tests := []struct {
		status int
		tag    string
	}{
		{http.StatusInternalServerError, "server-error"},
		{http.StatusNotFound, "client-error"},
	}

	for _, tc := range tests {
		store := newStubStore()
		rec := newTestRecorder(store, &stubWindow{}, &stubGeo{}, nil)

		serve(rec, tc.status, http.MethodGet, "/api/items", http.Header{"User-Agent": {"Mozilla/5.0"}})

		store.wait(t)
		events := store.all()
		require.Len(t, events, 1)
		assert.Contains(t, events[0].Tags, tc.tag)
	}
}

func TestRecorderGeoFailureDegradesToNil(t *testing.T) {
	store := newStubStore()
	rec := newTestRecorder(store, &stubWindow{}, &stubGeo{geo: nil}, nil)

	serve(rec, http.StatusOK, http.MethodGet, "/api/items", http.Header{"User-Agent": {"Mozilla/5.0"}})

	store.wait(t)
	events := store.all()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Geo)
}

func TestRecorderSpikeCheckFailureDegrades(t *testing.T) {
	store := newStubStore()
	rec := newTestRecorder(store, &stubWindow{err: errors.New("redis down")}, &stubGeo{}, nil)

	serve(rec, http.StatusOK, http.MethodGet, "/api/items", http.Header{"User-Agent": {"Mozilla/5.0"}})

	store.wait(t)
	events := store.all()
	require.Len(t, events, 1)
	assert.False(t, events[0].IsSpike)
}

func TestRecorderStoreFailureIsSwallowed(t *testing.T) {
	store := newStubStore()
	store.err = errors.New("db down")
	rec := newTestRecorder(store, &stubWindow{}, &stubGeo{}, nil)

	assert.NotPanics(t, func() {
		serve(rec, http.StatusOK, http.MethodGet, "/api/items", nil)
	})
	store.wait(t)
	assert.Empty(t, store.all())
}

func TestRecorderExcludesOwnEndpoints(t *testing.T) {
	store := newStubStore()
	window := &stubWindow{}
	rec := newTestRecorder(store, window, &stubGeo{}, nil)

	for _, path := range []string{"/api/traffic", "/api/traffic/stats", "/api/alerts", "/api/logs", "/events", "/health"} {
		serve(rec, http.StatusOK, http.MethodGet, path, nil)
	}

	// Give any stray capture goroutine a moment to run.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.all())
	window.mu.Lock()
	defer window.mu.Unlock()
	assert.Zero(t, window.calls)
}

func TestRecorderSessionIDHeaderWins(t *testing.T) {
	store := newStubStore()
	rec := newTestRecorder(store, &stubWindow{}, &stubGeo{}, nil)

	h := http.Header{}
	h.Set("X-Session-Id", "sess-42")
	serve(rec, http.StatusOK, http.MethodGet, "/api/items", h)

	store.wait(t)
	events := store.all()
	require.Len(t, events, 1)
	assert.Equal(t, "sess-42", events[0].SessionID)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		expect string
	}{
		{
			name:   "x-forwarded-for first hop",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			expect: "203.0.113.7",
		},
		{
			name:   "x-real-ip",
			setup:  func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.2") },
			expect: "198.51.100.2",
		},
		{
			name:   "remote addr strips port",
			setup:  func(r *http.Request) { r.RemoteAddr = "192.0.2.1:54321" },
			expect: "192.0.2.1",
		},
		{
			name:   "ipv6 remote addr",
			setup:  func(r *http.Request) { r.RemoteAddr = "[::1]:54321" },
			expect: "::1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			assert.Equal(t, tc.expect, ClientIP(req))
		})
	}
}

func TestModuleLabel(t *testing.T) {
	assert.Equal(t, "auth", moduleLabel("/api/auth/login"))
	assert.Equal(t, "logs", moduleLabel("/api/logs"))
	assert.Equal(t, "dashboard", moduleLabel("/api/dashboard/summary"))
	assert.Equal(t, "proxy", moduleLabel("/app/checkout"))
	assert.Equal(t, "api", moduleLabel("/api/items"))
	assert.Equal(t, "other", moduleLabel("/favicon.ico"))
}
