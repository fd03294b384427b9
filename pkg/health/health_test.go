package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysPass(context.Context) error { return nil }

func alwaysFail(msg string) Probe {
	return func(context.Context) error { return errors.New(msg) }
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) probeReport {
	t.Helper()
	var report probeReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	return report
}

func TestHandleLive(t *testing.T) {
	ctx := context.Background()

	t.Run("no checks registered", func(t *testing.T) {
		s := New()
		w := httptest.NewRecorder()
		s.HandleLive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pass", decodeReport(t, w).Status)
	})

	t.Run("all passing", func(t *testing.T) {
		s := New()
		s.AddLiveness("goroutines", time.Second, alwaysPass)
		s.AddLiveness("gc", time.Second, alwaysPass)
		s.sweep(ctx)

		w := httptest.NewRecorder()
		s.HandleLive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("failure below threshold stays passing", func(t *testing.T) {
		s := New()
		s.AddLiveness("flaky", time.Second, alwaysFail("transient"))
		s.sweep(ctx)
		s.sweep(ctx)

		w := httptest.NewRecorder()
		s.HandleLive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("failure at threshold reports the error", func(t *testing.T) {
		s := New()
		s.AddLiveness("db", time.Second, alwaysFail("connection refused"))
		for range failAfter {
			s.sweep(ctx)
		}

		w := httptest.NewRecorder()
		s.HandleLive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		report := decodeReport(t, w)
		assert.Equal(t, "fail", report.Status)
		assert.Equal(t, "connection refused", report.Failed["db"])
	})

	t.Run("single success recovers a failing check", func(t *testing.T) {
		down := true
		s := New()
		s.AddLiveness("flaky", time.Second, func(context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		})
		for range failAfter {
			s.sweep(ctx)
		}
		down = false
		s.sweep(ctx)

		w := httptest.NewRecorder()
		s.HandleLive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleReady(t *testing.T) {
	ctx := context.Background()

	t.Run("gate closed by default", func(t *testing.T) {
		s := New()
		s.AddReadiness("postgres", time.Second, alwaysPass)
		s.sweep(ctx)

		w := httptest.NewRecorder()
		s.HandleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decodeReport(t, w).Failed, "gate")
	})

	t.Run("gate open and probes passing", func(t *testing.T) {
		s := New()
		s.AddReadiness("postgres", time.Second, alwaysPass)
		s.SetReady(true)
		s.sweep(ctx)

		w := httptest.NewRecorder()
		s.HandleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("one failing probe fails the whole endpoint", func(t *testing.T) {
		s := New()
		s.AddReadiness("postgres", time.Second, alwaysPass)
		s.AddReadiness("cache", time.Second, alwaysFail("timeout"))
		s.SetReady(true)
		for range failAfter {
			s.sweep(ctx)
		}

		w := httptest.NewRecorder()
		s.HandleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		report := decodeReport(t, w)
		assert.Contains(t, report.Failed, "cache")
		assert.NotContains(t, report.Failed, "postgres")
	})

	t.Run("closing the gate drains a ready service", func(t *testing.T) {
		s := New()
		s.SetReady(true)

		w := httptest.NewRecorder()
		s.HandleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, w.Code)

		s.SetReady(false)
		w = httptest.NewRecorder()
		s.HandleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestIsReady(t *testing.T) {
	ctx := context.Background()

	s := New()
	s.AddReadiness("postgres", time.Second, alwaysPass)
	s.sweep(ctx)

	assert.False(t, s.IsReady(), "gate starts closed")

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestStartStop(t *testing.T) {
	s := New()
	s.AddLiveness("goroutines", time.Second, alwaysPass)

	s.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	// Stop is idempotent.
	s.Stop()
	s.Stop()
}

func TestConcurrentEndpoints(t *testing.T) {
	s := New()
	s.AddLiveness("flaky", time.Second, alwaysFail("err"))
	s.AddReadiness("postgres", time.Second, alwaysPass)
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s.IsReady()

				w := httptest.NewRecorder()
				s.HandleLive(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

				w = httptest.NewRecorder()
				s.HandleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	s.Stop()
}

func TestGoroutineCount(t *testing.T) {
	assert.NoError(t, GoroutineCount(100000)(context.Background()))

	err := GoroutineCount(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit 0")
}

func TestGCPause(t *testing.T) {
	assert.NoError(t, GCPause(time.Hour)(context.Background()))
}
