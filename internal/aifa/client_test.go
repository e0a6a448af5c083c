package aifa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAIFA replica el motor de referencia: /weights, /vault_split, /health.
func stubAIFA(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/weights", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var tel Telemetry
		if err := json.NewDecoder(r.Body).Decode(&tel); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]float64{
			"w0": 0.25, "w1": 0.30, "w2": 0.20, "w3": 0.15, "w4": tel.TreasuryHealth,
		})
	})
	mux.HandleFunc("/vault_split", func(w http.ResponseWriter, r *http.Request) {
		table := map[string][2]int{"bear": {90, 10}, "neutral": {80, 20}, "bull": {70, 30}}
		v, ok := table[r.URL.Query().Get("mode")]
		if !ok {
			v = table["neutral"]
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"innovation": v[0], "governance": v[1]})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestWeights_OK(t *testing.T) {
	srv := stubAIFA(t)
	c := New(Options{BaseURL: srv.URL + "/"})

	w, err := c.RequestWeights(context.Background(), Telemetry{TreasuryHealth: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.25, w.W0)
	assert.Equal(t, 0.30, w.W1)
	assert.Equal(t, 0.5, w.W4)
}

func TestRequestTreasurySplit_PassesMode(t *testing.T) {
	srv := stubAIFA(t)
	c := New(Options{BaseURL: srv.URL})

	s, err := c.RequestTreasurySplit(context.Background(), "bear")
	require.NoError(t, err)
	assert.Equal(t, Split{Innovation: 90, Governance: 10}, s)

	s, err = c.RequestTreasurySplit(context.Background(), "sideways")
	require.NoError(t, err)
	assert.Equal(t, Split{Innovation: 80, Governance: 20}, s)
}

func TestHealth(t *testing.T) {
	srv := stubAIFA(t)
	require.NoError(t, New(Options{BaseURL: srv.URL}).Health(context.Background()))
}

func TestFailures_AreUniform(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    FailureKind
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, KindStatus},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) }, KindParse},
		{"missing fields", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"w0":1,"innovation":3}`))
		}, KindParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			c := New(Options{BaseURL: srv.URL})

			_, err := c.RequestWeights(context.Background(), DefaultTelemetry)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnavailable))
			assert.Equal(t, tc.kind, KindOf(err))

			_, err = c.RequestTreasurySplit(context.Background(), "neutral")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnavailable))
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Options{BaseURL: url}).RequestWeights(context.Background(), DefaultTelemetry)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestTimeout_IsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.RequestTreasurySplit(context.Background(), "neutral")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestNoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).RequestWeights(context.Background(), DefaultTelemetry)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBreaker_FailsFastWhenOpen(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Hour})
	for i := 0; i < 2; i++ {
		_, err := c.RequestWeights(context.Background(), DefaultTelemetry)
		require.Equal(t, KindStatus, KindOf(err))
	}

	_, err := c.RequestWeights(context.Background(), DefaultTelemetry)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindBreakerOpen, KindOf(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreaker_CountsMissingFields(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"w0":0.2}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Hour})
	for i := 0; i < 2; i++ {
		_, err := c.RequestWeights(context.Background(), DefaultTelemetry)
		require.ErrorIs(t, err, ErrUnavailable)
		require.Equal(t, KindParse, KindOf(err))
	}

	_, err := c.RequestTreasurySplit(context.Background(), "bull")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindBreakerOpen, KindOf(err))
	assert.Equal(t, int32(2), hits.Load())
}
