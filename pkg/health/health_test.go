package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probeLive(s *Service) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	return w
}

func probeReady(s *Service) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return w
}

func decodeProbe(t *testing.T, w *httptest.ResponseRecorder) probeResponse {
	t.Helper()
	var body probeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	s := New()
	s.AddLivenessCheck("check1", time.Second, passing())
	s.AddLivenessCheck("check2", time.Second, passing())

	w := probeLive(s)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeProbe(t, w).Status)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	s := New()
	s.AddLivenessCheck("db", time.Second, failing("connection refused"))

	// Checks start healthy; drive this one past the failure streak.
	ctx := context.Background()
	for range defaultFailureStreak {
		s.liveness[0].probe(ctx)
	}

	w := probeLive(s)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decodeProbe(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveEndpoint_FailureBelowStreak(t *testing.T) {
	s := New()
	s.AddLivenessCheck("flaky", time.Second, failing("temporary"))

	ctx := context.Background()
	for range defaultFailureStreak - 1 {
		s.liveness[0].probe(ctx)
	}

	assert.Equal(t, http.StatusOK, probeLive(s).Code)
}

func TestCheck_RecoversAfterSuccess(t *testing.T) {
	c := newCheck("db", time.Second, nil)
	for range defaultFailureStreak {
		c.observe(errors.New("down"))
	}
	ok, _ := c.status()
	require.False(t, ok)

	c.observe(nil)
	ok, msg := c.status()
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestReadyEndpoint_ReadyAndPassing(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, passing())
	s.SetReady(true)

	w := probeReady(s)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeProbe(t, w).Status)
	assert.True(t, s.IsReady())
}

func TestReadyEndpoint_NotReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, passing())

	w := probeReady(s)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeProbe(t, w).Checks, "_readiness")
	assert.False(t, s.IsReady())
}

func TestReadyEndpoint_DrainOnShutdown(t *testing.T) {
	s := New()
	s.SetReady(true)
	require.Equal(t, http.StatusOK, probeReady(s).Code)

	s.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, probeReady(s).Code)
}

func TestStart_ProbesInBackground(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	s.AddLivenessCheck("signal", time.Second, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 10*time.Millisecond)
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
